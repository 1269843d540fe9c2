package domain

import (
	"errors"

	"github.com/shopspring/decimal"
)

// ErrSelfTransfer indicates that the sender and the recipient are the same account.
var ErrSelfTransfer = errors.New("Cannot transfer to the same account")

// CreateTransferParams is the input data for the transfer transaction.
type CreateTransferParams struct {
	SenderID    string          `json:"sender_id"`
	RecipientID string          `json:"recipient_id"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

// TransferResult is the result of the transfer transaction.
type TransferResult struct {
	SenderStatement    Statement `json:"sender_statement"`
	RecipientStatement Statement `json:"recipient_statement"`
}
