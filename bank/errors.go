package bank

import (
	"errors"
	"fmt"
)

var (
	ErrMissingFields   = errors.New("must supply all required fields")
	ErrSameAccount     = errors.New("sender and receiver must be different accounts")
	ErrAccountNotFound = errors.New("account not found")
	// ErrSourceAccountNotFound and ErrDestinationAccountNotFound both match
	// ErrAccountNotFound with errors.Is.
	ErrSourceAccountNotFound      = fmt.Errorf("source %w", ErrAccountNotFound)
	ErrDestinationAccountNotFound = fmt.Errorf("destination %w", ErrAccountNotFound)
	ErrInsufficientFunds          = errors.New("sender lacks sufficient balance")
	ErrInvalidAmount              = errors.New("invalid transfer amount")
	ErrInvalidBalance             = errors.New("balance must be a non-negative number")
	ErrTransferRecord             = errors.New("failed to record transfer")
)

// StoreError is an unexpected failure of the backing store outside a transfer.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// TransferFailedError is a transfer failure that none of the sentinel
// errors describe. Its message is the underlying cause's message.
type TransferFailedError struct {
	Err error
}

func (e *TransferFailedError) Error() string {
	return e.Err.Error()
}

func (e *TransferFailedError) Unwrap() error {
	return e.Err
}
