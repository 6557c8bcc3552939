// Package bank implements the account store and the transfer engine on top
// of an injected SQL connection pool.
package bank

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
)

// DB is the subset of *sql.DB the store and the engine need.
type DB interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

var validate = validator.New()

// validateRequest reports ErrMissingFields when any required field is absent.
func validateRequest(req any) error {
	if err := validate.Struct(req); err != nil {
		return ErrMissingFields
	}

	return nil
}
