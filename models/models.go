package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account is a named holder of funds ("usuario").
type Account struct {
	ID      int64           `json:"id"`
	Name    string          `json:"nombre"`
	Balance decimal.Decimal `json:"balance"`
}

// Transfer represents a completed money movement as stored in the ledger
type Transfer struct {
	ID       int64           `json:"id"`
	Sender   int64           `json:"emisor"`
	Receiver int64           `json:"receptor"`
	Amount   decimal.Decimal `json:"monto"`
	Date     time.Time       `json:"fecha"`
}

// TransferReceipt is the outcome of a successful transfer: the ledger row
// plus the display names of both parties at the time of the transfer.
type TransferReceipt struct {
	Transfer     Transfer
	SenderName   string
	ReceiverName string
}

// TransferDetail is a ledger row with account ids resolved to names.
type TransferDetail struct {
	ID       int64           `json:"id"`
	Sender   string          `json:"emisor"`
	Receiver string          `json:"receptor"`
	Amount   decimal.Decimal `json:"monto"`
	Date     time.Time       `json:"fecha"`
}

// AccountRequest is the body of POST /usuario and PUT /usuario.
// Pointer fields distinguish "absent" from a legitimate zero balance.
type AccountRequest struct {
	Name    *string          `json:"nombre" validate:"required,min=1"`
	Balance *decimal.Decimal `json:"balance" validate:"required"`
}

// TransferRequest is what the user sends in the API call
type TransferRequest struct {
	Sender   *int64           `json:"emisor" validate:"required"`
	Receiver *int64           `json:"receptor" validate:"required"`
	Amount   *decimal.Decimal `json:"monto" validate:"required"`
}
