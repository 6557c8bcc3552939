package bank

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/yashasviy/banco-solar-api/db"
	"github.com/yashasviy/banco-solar-api/logging"
	"github.com/yashasviy/banco-solar-api/models"
)

const (
	insertAccountQuery = `INSERT INTO usuarios (nombre, balance) VALUES ($1, $2) RETURNING id, nombre, balance`
	listAccountsQuery  = `SELECT id, nombre, balance FROM usuarios ORDER BY id`
	updateAccountQuery = `UPDATE usuarios SET nombre = $1, balance = $2 WHERE id = $3 RETURNING id, nombre, balance`
	deleteAccountQuery = `DELETE FROM usuarios WHERE id = $1 RETURNING id, nombre, balance`
)

// AccountStore performs single-statement CRUD over accounts.
type AccountStore struct {
	db     DB
	logger *zap.Logger
}

func NewAccountStore(pool DB, logger *zap.Logger) *AccountStore {
	return &AccountStore{db: pool, logger: logging.OrNop(logger).Named("accounts")}
}

// Create stores a new account. A zero balance is valid; a negative one is
// rejected by the balance floor and reported as ErrInvalidBalance.
func (s *AccountStore) Create(ctx context.Context, req models.AccountRequest) (models.Account, error) {
	if err := validateRequest(req); err != nil {
		return models.Account{}, err
	}

	var acc models.Account
	err := s.db.QueryRowContext(ctx, insertAccountQuery, *req.Name, *req.Balance).
		Scan(&acc.ID, &acc.Name, &acc.Balance)
	if err != nil {
		return models.Account{}, s.storeError("create account", err)
	}

	s.logger.Info("account created", zap.Int64("id", acc.ID))

	return acc, nil
}

// List returns every account ordered by id.
func (s *AccountStore) List(ctx context.Context) ([]models.Account, error) {
	rows, err := s.db.QueryContext(ctx, listAccountsQuery)
	if err != nil {
		return nil, s.storeError("list accounts", err)
	}
	defer rows.Close()

	accounts := make([]models.Account, 0)
	for rows.Next() {
		var acc models.Account
		if err := rows.Scan(&acc.ID, &acc.Name, &acc.Balance); err != nil {
			return nil, s.storeError("scan account", err)
		}
		accounts = append(accounts, acc)
	}
	if err := rows.Err(); err != nil {
		return nil, s.storeError("list accounts", err)
	}

	return accounts, nil
}

// Update overwrites name and balance of the account with the given id.
func (s *AccountStore) Update(ctx context.Context, id int64, req models.AccountRequest) (models.Account, error) {
	if err := validateRequest(req); err != nil {
		return models.Account{}, err
	}

	var acc models.Account
	err := s.db.QueryRowContext(ctx, updateAccountQuery, *req.Name, *req.Balance, id).
		Scan(&acc.ID, &acc.Name, &acc.Balance)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Account{}, ErrAccountNotFound
	}
	if err != nil {
		return models.Account{}, s.storeError("update account", err)
	}

	s.logger.Info("account updated", zap.Int64("id", acc.ID))

	return acc, nil
}

// Delete removes the account and returns its last state. Transfers that
// reference it are left untouched.
func (s *AccountStore) Delete(ctx context.Context, id int64) (models.Account, error) {
	var acc models.Account
	err := s.db.QueryRowContext(ctx, deleteAccountQuery, id).
		Scan(&acc.ID, &acc.Name, &acc.Balance)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Account{}, ErrAccountNotFound
	}
	if err != nil {
		return models.Account{}, s.storeError("delete account", err)
	}

	s.logger.Info("account deleted", zap.Int64("id", acc.ID))

	return acc, nil
}

func (s *AccountStore) storeError(op string, err error) error {
	switch db.Classify(err) {
	case db.KindBalanceFloor, db.KindInvalidNumber:
		return fmt.Errorf("%s: %w", op, ErrInvalidBalance)
	}

	return &StoreError{Op: op, Err: err}
}
