// Package domain provides definitions of all entities.
package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrStatementNotFound indicates that the statement is not found for the requesting user.
	ErrStatementNotFound = errors.New("Statement not found")
	// ErrInsufficientFunds indicates that the derived balance is lower than the requested amount.
	ErrInsufficientFunds = errors.New("Insufficient funds")
	// ErrInvalidAmount indicates a zero, negative or too large amount.
	ErrInvalidAmount = errors.New("Amount must be positive and below 10000000000000")
	// ErrInvalidOperation indicates an operation type the endpoint does not accept.
	ErrInvalidOperation = errors.New("Invalid operation type")
)

// MaxAmount is the largest amount a single statement can hold, the limit of
// the NUMERIC(15,2) amount column.
var MaxAmount = decimal.RequireFromString("9999999999999.99")

// ValidAmount reports whether amount is positive and fits a statement.
func ValidAmount(amount decimal.Decimal) bool {
	return amount.IsPositive() && amount.LessThanOrEqual(MaxAmount)
}

// OperationType is the kind of a ledger statement.
type OperationType string

// Operation types.
const (
	OperationDeposit  OperationType = "deposit"
	OperationWithdraw OperationType = "withdraw"
	OperationTransfer OperationType = "transfer"
)

// Valid reports whether t is a known operation type.
func (t OperationType) Valid() bool {
	switch t {
	case OperationDeposit, OperationWithdraw, OperationTransfer:
		return true
	}

	return false
}

// Statement is one immutable ledger record of a user account.
//
// SenderID and RecipientID are set only on transfer statements. UpdatedAt
// always equals CreatedAt since statements are never modified.
type Statement struct {
	ID          uuid.UUID       `json:"id"`
	UserID      string          `json:"user_id"`
	Type        OperationType   `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	SenderID    *string         `json:"sender_id,omitempty"`
	RecipientID *string         `json:"recipient_id,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// CreateStatementParams holds data needed to append a statement.
type CreateStatementParams struct {
	UserID      string
	Type        OperationType
	Amount      decimal.Decimal
	Description string
	SenderID    *string
	RecipientID *string
}

// Balance is the derived balance of an account together with the statements it was folded from.
type Balance struct {
	Balance    decimal.Decimal `json:"balance"`
	Statements []Statement     `json:"statement"`
}
