package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/yashasviy/banco-solar-api/bank"
	"github.com/yashasviy/banco-solar-api/models"
)

// AccountService is the account store as seen by the handlers.
type AccountService interface {
	Create(ctx context.Context, req models.AccountRequest) (models.Account, error)
	List(ctx context.Context) ([]models.Account, error)
	Update(ctx context.Context, id int64, req models.AccountRequest) (models.Account, error)
	Delete(ctx context.Context, id int64) (models.Account, error)
}

const (
	msgMissingFields  = "All required fields must be supplied."
	msgInvalidBody    = "Invalid request body."
	msgInvalidID      = "Invalid account id."
	msgAccountMissing = "The account does not exist."
)

// CreateAccountHandler registers a new account from {nombre, balance}.
func CreateAccountHandler(svc AccountService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.AccountRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeMessage(w, http.StatusBadRequest, msgInvalidBody)
			return
		}

		acc, err := svc.Create(r.Context(), req)
		switch {
		case err == nil:
		case errors.Is(err, bank.ErrMissingFields):
			writeMessage(w, http.StatusNotFound, msgMissingFields)
			return
		case errors.Is(err, bank.ErrInvalidBalance):
			writeMessage(w, http.StatusBadRequest, "Balance must be a non-negative number.")
			return
		default:
			logger.Error("create account failed", zap.Error(err))
			writeMessage(w, http.StatusInternalServerError, "Error registering account.")
			return
		}

		writeJSON(w, http.StatusCreated, map[string]any{
			"message": fmt.Sprintf("Account %s (id = %d) registered successfully.", acc.Name, acc.ID),
			"usuario": acc,
		})
	}
}

// ListAccountsHandler returns every account ordered by id.
func ListAccountsHandler(svc AccountService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accounts, err := svc.List(r.Context())
		if err != nil {
			logger.Error("list accounts failed", zap.Error(err))
			writeMessage(w, http.StatusInternalServerError, "Error retrieving account list.")
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"message":  "Account list retrieved successfully.",
			"usuarios": accounts,
		})
	}
}

// UpdateAccountHandler overwrites name and balance of the account ?id=.
func UpdateAccountHandler(svc AccountService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := accountID(w, r)
		if !ok {
			return
		}

		var req models.AccountRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeMessage(w, http.StatusBadRequest, msgInvalidBody)
			return
		}

		acc, err := svc.Update(r.Context(), id, req)
		switch {
		case err == nil:
		case errors.Is(err, bank.ErrMissingFields):
			writeMessage(w, http.StatusNotFound, msgMissingFields)
			return
		case errors.Is(err, bank.ErrAccountNotFound):
			writeMessage(w, http.StatusBadRequest, msgAccountMissing)
			return
		case errors.Is(err, bank.ErrInvalidBalance):
			writeMessage(w, http.StatusBadRequest, "Balance must be a non-negative number.")
			return
		default:
			logger.Error("update account failed", zap.Int64("id", id), zap.Error(err))
			writeMessage(w, http.StatusInternalServerError, "Error updating account.")
			return
		}

		writeJSON(w, http.StatusCreated, map[string]any{
			"message": fmt.Sprintf("Account %s with id %d updated successfully.", acc.Name, acc.ID),
			"usuario": acc,
		})
	}
}

// DeleteAccountHandler removes the account ?id=.
func DeleteAccountHandler(svc AccountService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := accountID(w, r)
		if !ok {
			return
		}

		acc, err := svc.Delete(r.Context(), id)
		switch {
		case err == nil:
		case errors.Is(err, bank.ErrAccountNotFound):
			writeMessage(w, http.StatusBadRequest, msgAccountMissing)
			return
		default:
			logger.Error("delete account failed", zap.Int64("id", id), zap.Error(err))
			writeMessage(w, http.StatusInternalServerError, "Error deleting account.")
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"message": fmt.Sprintf("Account %s with id %d deleted successfully.", acc.Name, acc.ID),
			"usuario": acc,
		})
	}
}

// accountID parses the ?id= query parameter, answering 400 when it is not
// a positive integer.
func accountID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
	if err != nil || id <= 0 {
		writeMessage(w, http.StatusBadRequest, msgInvalidID)
		return 0, false
	}

	return id, true
}
