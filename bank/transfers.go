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
	debitQuery  = `UPDATE usuarios SET balance = balance - $1 WHERE id = $2 RETURNING id, nombre, balance`
	creditQuery = `UPDATE usuarios SET balance = balance + $1 WHERE id = $2 RETURNING id, nombre, balance`
	// fecha comes from the database clock, never from the caller.
	insertTransferQuery = `INSERT INTO transferencias (emisor, receptor, monto, fecha) VALUES ($1, $2, $3, now()) RETURNING id, emisor, receptor, monto, fecha`
	listTransfersQuery  = `SELECT t.id, ue.nombre, ur.nombre, t.monto, t.fecha FROM transferencias AS t JOIN usuarios AS ue ON t.emisor = ue.id JOIN usuarios AS ur ON t.receptor = ur.id ORDER BY t.id`
)

// TransferEngine moves funds between two accounts in one database
// transaction and records the movement in the ledger.
type TransferEngine struct {
	db     DB
	logger *zap.Logger
}

func NewTransferEngine(pool DB, logger *zap.Logger) *TransferEngine {
	return &TransferEngine{db: pool, logger: logging.OrNop(logger).Named("transfers")}
}

// Transfer debits the sender, credits the receiver and inserts the ledger
// row, in that order, inside a single transaction. Any failure rolls the
// whole transaction back before the error is classified.
//
// The balance floor is enforced by the usuarios check constraint rather than
// a read-then-compare, so concurrent debits of one account cannot overdraw it;
// the row lock taken by the debit serializes them.
func (e *TransferEngine) Transfer(ctx context.Context, req models.TransferRequest) (receipt models.TransferReceipt, err error) {
	if err := validateRequest(req); err != nil {
		return receipt, err
	}
	sender, receiver, amount := *req.Sender, *req.Receiver, *req.Amount
	if sender == receiver {
		return receipt, ErrSameAccount
	}
	if !amount.IsPositive() {
		return receipt, ErrInvalidAmount
	}

	log := e.logger.With(
		zap.Int64("emisor", sender),
		zap.Int64("receptor", receiver),
		zap.String("monto", amount.String()),
	)

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return receipt, &TransferFailedError{Err: fmt.Errorf("begin transaction: %w", err)}
	}
	defer func() {
		if err == nil {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			log.Error("rollback failed", zap.Error(rbErr))
		}
		log.Warn("transfer rolled back", zap.Error(err))
		err = classifyTransferError(err)
	}()
	log.Debug("transaction started")

	// 1. Debit the sender
	var from models.Account
	err = tx.QueryRowContext(ctx, debitQuery, amount, sender).Scan(&from.ID, &from.Name, &from.Balance)
	if errors.Is(err, sql.ErrNoRows) {
		return receipt, ErrSourceAccountNotFound
	}
	if err != nil {
		return receipt, fmt.Errorf("debit sender: %w", err)
	}
	log.Debug("sender debited", zap.String("balance", from.Balance.String()))

	// 2. Credit the receiver
	var to models.Account
	err = tx.QueryRowContext(ctx, creditQuery, amount, receiver).Scan(&to.ID, &to.Name, &to.Balance)
	if errors.Is(err, sql.ErrNoRows) {
		return receipt, ErrDestinationAccountNotFound
	}
	if err != nil {
		return receipt, fmt.Errorf("credit receiver: %w", err)
	}
	log.Debug("receiver credited", zap.String("balance", to.Balance.String()))

	// 3. Record the transfer
	var t models.Transfer
	err = tx.QueryRowContext(ctx, insertTransferQuery, sender, receiver, amount).
		Scan(&t.ID, &t.Sender, &t.Receiver, &t.Amount, &t.Date)
	if errors.Is(err, sql.ErrNoRows) {
		return receipt, ErrTransferRecord
	}
	if err != nil {
		return receipt, fmt.Errorf("record transfer: %w", err)
	}

	// 4. Commit
	if err = tx.Commit(); err != nil {
		return receipt, fmt.Errorf("commit transfer: %w", err)
	}
	log.Info("transfer committed", zap.Int64("id", t.ID))

	return models.TransferReceipt{
		Transfer:     t,
		SenderName:   from.Name,
		ReceiverName: to.Name,
	}, nil
}

// ListTransfers returns the ledger with sender and receiver resolved to
// their current names, ordered by id. Rows whose accounts were deleted are
// omitted.
func (e *TransferEngine) ListTransfers(ctx context.Context) ([]models.TransferDetail, error) {
	rows, err := e.db.QueryContext(ctx, listTransfersQuery)
	if err != nil {
		return nil, &StoreError{Op: "list transfers", Err: err}
	}
	defer rows.Close()

	transfers := make([]models.TransferDetail, 0)
	for rows.Next() {
		var t models.TransferDetail
		if err := rows.Scan(&t.ID, &t.Sender, &t.Receiver, &t.Amount, &t.Date); err != nil {
			return nil, &StoreError{Op: "scan transfer", Err: err}
		}
		transfers = append(transfers, t)
	}
	if err := rows.Err(); err != nil {
		return nil, &StoreError{Op: "list transfers", Err: err}
	}

	return transfers, nil
}

// classifyTransferError maps a failure inside the transfer transaction onto
// the error taxonomy. Store errors are checked first so that a balance floor
// violation always reads as insufficient funds.
func classifyTransferError(err error) error {
	switch db.Classify(err) {
	case db.KindBalanceFloor:
		return ErrInsufficientFunds
	case db.KindInvalidAmount, db.KindInvalidNumber:
		return ErrInvalidAmount
	}

	var failed *TransferFailedError
	switch {
	case errors.Is(err, ErrAccountNotFound), errors.As(err, &failed):
		return err
	default:
		return &TransferFailedError{Err: err}
	}
}
