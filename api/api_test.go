package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yashasviy/banco-solar-api/bank"
	"github.com/yashasviy/banco-solar-api/db"
	"github.com/yashasviy/banco-solar-api/models"
)

type fakeAccounts struct {
	create func(models.AccountRequest) (models.Account, error)
	list   func() ([]models.Account, error)
	update func(int64, models.AccountRequest) (models.Account, error)
	delete func(int64) (models.Account, error)
}

func (f *fakeAccounts) Create(_ context.Context, req models.AccountRequest) (models.Account, error) {
	return f.create(req)
}

func (f *fakeAccounts) List(context.Context) ([]models.Account, error) {
	return f.list()
}

func (f *fakeAccounts) Update(_ context.Context, id int64, req models.AccountRequest) (models.Account, error) {
	return f.update(id, req)
}

func (f *fakeAccounts) Delete(_ context.Context, id int64) (models.Account, error) {
	return f.delete(id)
}

type fakeTransfers struct {
	transfer func(models.TransferRequest) (models.TransferReceipt, error)
	list     func() ([]models.TransferDetail, error)
}

func (f *fakeTransfers) Transfer(_ context.Context, req models.TransferRequest) (models.TransferReceipt, error) {
	return f.transfer(req)
}

func (f *fakeTransfers) ListTransfers(context.Context) ([]models.TransferDetail, error) {
	return f.list()
}

type fakePinger struct{ err error }

func (p fakePinger) PingContext(context.Context) error { return p.err }

// doJSON sends body as JSON, checks the status code and decodes the
// response into a generic map.
func doJSON(t *testing.T, h http.Handler, method, url string, body any, wantCode int) map[string]any {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}

	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, wantCode, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func account(id int64, name string, balance string) models.Account {
	return models.Account{ID: id, Name: name, Balance: decimal.RequireFromString(balance)}
}

func TestCreateAccount(t *testing.T) {
	accounts := &fakeAccounts{
		create: func(req models.AccountRequest) (models.Account, error) {
			return account(1, *req.Name, req.Balance.String()), nil
		},
	}
	h := NewRouter(Deps{Accounts: accounts})

	out := doJSON(t, h, http.MethodPost, "/usuario", `{"nombre":"Ana","balance":100}`, http.StatusCreated)
	assert.Equal(t, "Account Ana (id = 1) registered successfully.", out["message"])
	usuario := out["usuario"].(map[string]any)
	assert.Equal(t, "Ana", usuario["nombre"])
	assert.Equal(t, "100", usuario["balance"])
}

func TestCreateAccount_Failures(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantMsg  string
	}{
		{"missing fields", bank.ErrMissingFields, http.StatusNotFound, msgMissingFields},
		{"negative balance", fmt.Errorf("create account: %w", bank.ErrInvalidBalance), http.StatusBadRequest, "Balance must be a non-negative number."},
		{"store failure", &bank.StoreError{Op: "create account", Err: errors.New("pq: secret detail")}, http.StatusInternalServerError, "Error registering account."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			accounts := &fakeAccounts{
				create: func(models.AccountRequest) (models.Account, error) { return models.Account{}, tt.err },
			}
			h := NewRouter(Deps{Accounts: accounts})

			out := doJSON(t, h, http.MethodPost, "/usuario", `{"nombre":"Ana"}`, tt.wantCode)
			assert.Equal(t, tt.wantMsg, out["message"])
		})
	}
}

func TestCreateAccount_BadJSON(t *testing.T) {
	h := NewRouter(Deps{Accounts: &fakeAccounts{}})
	out := doJSON(t, h, http.MethodPost, "/usuario", `{nombre}`, http.StatusBadRequest)
	assert.Equal(t, msgInvalidBody, out["message"])
}

func TestListAccounts(t *testing.T) {
	accounts := &fakeAccounts{
		list: func() ([]models.Account, error) {
			return []models.Account{account(1, "Ana", "60"), account(2, "Beto", "90")}, nil
		},
	}
	h := NewRouter(Deps{Accounts: accounts})

	out := doJSON(t, h, http.MethodGet, "/usuarios", nil, http.StatusOK)
	usuarios := out["usuarios"].([]any)
	require.Len(t, usuarios, 2)
	assert.Equal(t, "Ana", usuarios[0].(map[string]any)["nombre"])
	assert.Equal(t, "90", usuarios[1].(map[string]any)["balance"])
}

func TestListAccounts_StoreError(t *testing.T) {
	accounts := &fakeAccounts{
		list: func() ([]models.Account, error) { return nil, errors.New("boom") },
	}
	h := NewRouter(Deps{Accounts: accounts})

	out := doJSON(t, h, http.MethodGet, "/usuarios", nil, http.StatusInternalServerError)
	assert.Equal(t, "Error retrieving account list.", out["message"])
}

func TestUpdateAccount(t *testing.T) {
	var gotID int64
	accounts := &fakeAccounts{
		update: func(id int64, req models.AccountRequest) (models.Account, error) {
			gotID = id
			return account(id, *req.Name, req.Balance.String()), nil
		},
	}
	h := NewRouter(Deps{Accounts: accounts})

	out := doJSON(t, h, http.MethodPut, "/usuario?id=3", `{"nombre":"Carla","balance":"12.50"}`, http.StatusCreated)
	assert.Equal(t, int64(3), gotID)
	assert.Equal(t, "Account Carla with id 3 updated successfully.", out["message"])
	assert.Equal(t, "12.5", out["usuario"].(map[string]any)["balance"])
}

func TestUpdateAccount_Failures(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		err      error
		wantCode int
	}{
		{"not found", "/usuario?id=9", bank.ErrAccountNotFound, http.StatusBadRequest},
		{"missing fields", "/usuario?id=9", bank.ErrMissingFields, http.StatusNotFound},
		{"store failure", "/usuario?id=9", &bank.StoreError{Op: "update account", Err: errors.New("x")}, http.StatusInternalServerError},
		{"bad id", "/usuario?id=abc", nil, http.StatusBadRequest},
		{"no id", "/usuario", nil, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			accounts := &fakeAccounts{
				update: func(int64, models.AccountRequest) (models.Account, error) { return models.Account{}, tt.err },
			}
			h := NewRouter(Deps{Accounts: accounts})
			doJSON(t, h, http.MethodPut, tt.url, `{"nombre":"Ana","balance":1}`, tt.wantCode)
		})
	}
}

func TestDeleteAccount(t *testing.T) {
	accounts := &fakeAccounts{
		delete: func(id int64) (models.Account, error) { return account(id, "Ana", "60"), nil },
	}
	h := NewRouter(Deps{Accounts: accounts})

	out := doJSON(t, h, http.MethodDelete, "/usuario?id=1", nil, http.StatusOK)
	assert.Equal(t, "Account Ana with id 1 deleted successfully.", out["message"])
	assert.EqualValues(t, 1, out["usuario"].(map[string]any)["id"])
}

func TestDeleteAccount_NotFound(t *testing.T) {
	accounts := &fakeAccounts{
		delete: func(int64) (models.Account, error) { return models.Account{}, bank.ErrAccountNotFound },
	}
	h := NewRouter(Deps{Accounts: accounts})

	out := doJSON(t, h, http.MethodDelete, "/usuario?id=1", nil, http.StatusBadRequest)
	assert.Equal(t, msgAccountMissing, out["message"])
}

func TestTransfer(t *testing.T) {
	var got models.TransferRequest
	transfers := &fakeTransfers{
		transfer: func(req models.TransferRequest) (models.TransferReceipt, error) {
			got = req
			return models.TransferReceipt{
				Transfer: models.Transfer{
					ID: 10, Sender: *req.Sender, Receiver: *req.Receiver,
					Amount: *req.Amount, Date: time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC),
				},
				SenderName:   "Ana",
				ReceiverName: "Beto",
			}, nil
		},
	}
	h := NewRouter(Deps{Transfers: transfers})

	out := doJSON(t, h, http.MethodPost, "/transferencia", `{"emisor":1,"receptor":2,"monto":40}`, http.StatusCreated)
	require.NotNil(t, got.Sender)
	assert.Equal(t, int64(1), *got.Sender)
	assert.Equal(t, int64(2), *got.Receiver)
	assert.Equal(t, "40", got.Amount.String())

	assert.Equal(t,
		"Transfer of $40 from Ana's account (id = 1) to Beto's account (id = 2) completed successfully.",
		out["message"])
	tr := out["transferencia"].(map[string]any)
	assert.EqualValues(t, 10, tr["id"])
	assert.EqualValues(t, 1, tr["emisor"])
	assert.EqualValues(t, 2, tr["receptor"])
	assert.Equal(t, "40", tr["monto"])
	assert.Equal(t, "2026-10-17T09:00:00Z", tr["fecha"])
}

func TestTransfer_Failures(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantMsg  string
	}{
		{"missing fields", bank.ErrMissingFields, http.StatusNotFound, msgMissingFields},
		{"same account", bank.ErrSameAccount, http.StatusNotAcceptable, "Sender and receiver must be different."},
		{"insufficient funds", bank.ErrInsufficientFunds, http.StatusBadRequest, "Sender lacks sufficient balance."},
		{"invalid amount", bank.ErrInvalidAmount, http.StatusBadRequest, "Invalid amount, check the data."},
		{"source missing", bank.ErrSourceAccountNotFound, http.StatusBadRequest, "The source account does not exist, check the data."},
		{"destination missing", bank.ErrDestinationAccountNotFound, http.StatusBadRequest, "The destination account does not exist, check the data."},
		{"fallback", &bank.TransferFailedError{Err: errors.New("credit receiver: deadlock detected")}, http.StatusBadRequest, "credit receiver: deadlock detected"},
		{"unexpected", errors.New("not classified"), http.StatusInternalServerError, "Error processing transfer."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transfers := &fakeTransfers{
				transfer: func(models.TransferRequest) (models.TransferReceipt, error) {
					return models.TransferReceipt{}, tt.err
				},
			}
			h := NewRouter(Deps{Transfers: transfers})

			out := doJSON(t, h, http.MethodPost, "/transferencia", `{"emisor":1,"receptor":2,"monto":5}`, tt.wantCode)
			assert.Equal(t, tt.wantMsg, out["message"])
		})
	}
}

func TestTransfer_MalformedAmount(t *testing.T) {
	h := NewRouter(Deps{Transfers: &fakeTransfers{}})
	doJSON(t, h, http.MethodPost, "/transferencia", `{"emisor":1,"receptor":2,"monto":"abc"}`, http.StatusBadRequest)
}

func TestListTransfers(t *testing.T) {
	transfers := &fakeTransfers{
		list: func() ([]models.TransferDetail, error) {
			return []models.TransferDetail{{
				ID: 1, Sender: "Ana", Receiver: "Beto",
				Amount: decimal.NewFromInt(40), Date: time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC),
			}}, nil
		},
	}
	h := NewRouter(Deps{Transfers: transfers})

	out := doJSON(t, h, http.MethodGet, "/transferencias", nil, http.StatusOK)
	list := out["transferencias"].([]any)
	require.Len(t, list, 1)
	first := list[0].(map[string]any)
	assert.Equal(t, "Ana", first["emisor"])
	assert.Equal(t, "Beto", first["receptor"])
}

func TestListTransfers_StoreError(t *testing.T) {
	transfers := &fakeTransfers{
		list: func() ([]models.TransferDetail, error) { return nil, errors.New("boom") },
	}
	h := NewRouter(Deps{Transfers: transfers})

	out := doJSON(t, h, http.MethodGet, "/transferencias", nil, http.StatusInternalServerError)
	assert.Equal(t, "Error retrieving transfer list.", out["message"])
}

func TestHealth(t *testing.T) {
	out := doJSON(t, NewRouter(Deps{DB: fakePinger{}}), http.MethodGet, "/health", nil, http.StatusOK)
	assert.Equal(t, "ok", out["status"])

	out = doJSON(t, NewRouter(Deps{DB: fakePinger{err: errors.New("down")}}), http.MethodGet, "/health", nil, http.StatusServiceUnavailable)
	assert.Equal(t, "unavailable", out["status"])
}

func TestUnknownMethod(t *testing.T) {
	h := NewRouter(Deps{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/usuario", strings.NewReader("{}")))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

// Runs the real transfer engine behind the router with a mocked database:
// an overdraft comes back as 400 and the transaction is rolled back.
func TestTransfer_InsufficientFundsThroughEngine(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE usuarios SET balance = balance - $1")).
		WithArgs("1000", int64(1)).
		WillReturnError(&pgconn.PgError{Code: pgerrcode.CheckViolation, ConstraintName: db.BalanceConstraint})
	mock.ExpectRollback()

	h := NewRouter(Deps{Transfers: bank.NewTransferEngine(mockDB, nil)})

	out := doJSON(t, h, http.MethodPost, "/transferencia", `{"emisor":1,"receptor":2,"monto":1000}`, http.StatusBadRequest)
	assert.Equal(t, "Sender lacks sufficient balance.", out["message"])
	assert.NoError(t, mock.ExpectationsWereMet())
}
