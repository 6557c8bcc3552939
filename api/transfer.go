package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/yashasviy/banco-solar-api/bank"
	"github.com/yashasviy/banco-solar-api/models"
)

// TransferService is the transfer engine as seen by the handlers.
type TransferService interface {
	Transfer(ctx context.Context, req models.TransferRequest) (models.TransferReceipt, error)
	ListTransfers(ctx context.Context) ([]models.TransferDetail, error)
}

// TransferHandler processes a money transfer from {emisor, receptor, monto}.
func TransferHandler(svc TransferService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.TransferRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			// An unparseable monto lands here as well.
			writeMessage(w, http.StatusBadRequest, "Invalid request body, check the amount and account ids.")
			return
		}

		receipt, err := svc.Transfer(r.Context(), req)
		if err != nil {
			status, message := transferFailure(err)
			if status >= http.StatusInternalServerError {
				logger.Error("transfer failed", zap.Error(err))
			} else {
				logger.Info("transfer rejected", zap.Error(err))
			}
			writeMessage(w, status, message)
			return
		}

		t := receipt.Transfer
		writeJSON(w, http.StatusCreated, map[string]any{
			"message": fmt.Sprintf(
				"Transfer of $%s from %s's account (id = %d) to %s's account (id = %d) completed successfully.",
				t.Amount.String(), receipt.SenderName, t.Sender, receipt.ReceiverName, t.Receiver,
			),
			"transferencia": t,
		})
	}
}

// ListTransfersHandler returns the ledger with account names resolved.
func ListTransfersHandler(svc TransferService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		transfers, err := svc.ListTransfers(r.Context())
		if err != nil {
			logger.Error("list transfers failed", zap.Error(err))
			writeMessage(w, http.StatusInternalServerError, "Error retrieving transfer list.")
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"message":        "Transfer list retrieved successfully.",
			"transferencias": transfers,
		})
	}
}

// transferFailure maps a transfer error to a status and a user facing
// message. Only the unclassified fallback echoes the underlying message.
func transferFailure(err error) (int, string) {
	var failed *bank.TransferFailedError
	switch {
	case errors.Is(err, bank.ErrMissingFields):
		return http.StatusNotFound, msgMissingFields
	case errors.Is(err, bank.ErrSameAccount):
		return http.StatusNotAcceptable, "Sender and receiver must be different."
	case errors.Is(err, bank.ErrInsufficientFunds):
		return http.StatusBadRequest, "Sender lacks sufficient balance."
	case errors.Is(err, bank.ErrInvalidAmount):
		return http.StatusBadRequest, "Invalid amount, check the data."
	case errors.Is(err, bank.ErrSourceAccountNotFound):
		return http.StatusBadRequest, "The source account does not exist, check the data."
	case errors.Is(err, bank.ErrDestinationAccountNotFound):
		return http.StatusBadRequest, "The destination account does not exist, check the data."
	case errors.As(err, &failed):
		return http.StatusBadRequest, failed.Error()
	default:
		return http.StatusInternalServerError, "Error processing transfer."
	}
}
