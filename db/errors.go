package db

import (
	"errors"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
)

// Kind is a store-independent classification of a database error.
type Kind int

const (
	// KindOther covers every error without a more specific kind.
	KindOther Kind = iota
	// KindBalanceFloor means an account balance would have gone negative.
	KindBalanceFloor
	// KindInvalidAmount means a transfer amount was rejected by its constraint.
	KindInvalidAmount
	// KindInvalidNumber means a value could not be parsed as a number or overflowed.
	KindInvalidNumber
)

func (k Kind) String() string {
	switch k {
	case KindBalanceFloor:
		return "balance_floor"
	case KindInvalidAmount:
		return "invalid_amount"
	case KindInvalidNumber:
		return "invalid_number"
	default:
		return "other"
	}
}

// Classify inspects err for a Postgres error and reports its Kind.
func Classify(err error) Kind {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return KindOther
	}

	switch pgErr.Code {
	case pgerrcode.CheckViolation:
		if pgErr.ConstraintName == AmountConstraint {
			return KindInvalidAmount
		}
		// usuarios_balance_check is the only other check in the schema.
		return KindBalanceFloor
	case pgerrcode.InvalidTextRepresentation, pgerrcode.NumericValueOutOfRange:
		return KindInvalidNumber
	default:
		return KindOther
	}
}
