// Package balance derives account balances from statement history.
//
// No running balance is stored anywhere: the balance of an account is always
// the fold of its statements in insertion order.
package balance

import (
	"context"

	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Fold computes the balance of userID from its statements.
//
// Deposits add, withdrawals subtract. A transfer subtracts when userID is its
// sender and adds when userID is its recipient.
func Fold(userID string, statements []domain.Statement) decimal.Decimal {
	total := decimal.Zero

	for _, s := range statements {
		total = total.Add(Effect(userID, s))
	}

	return total
}

// Effect returns the signed contribution of s to the balance of userID.
func Effect(userID string, s domain.Statement) decimal.Decimal {
	switch s.Type {
	case domain.OperationDeposit:
		return s.Amount
	case domain.OperationWithdraw:
		return s.Amount.Neg()
	case domain.OperationTransfer:
		if s.SenderID != nil && *s.SenderID == userID {
			return s.Amount.Neg()
		}

		if s.RecipientID != nil && *s.RecipientID == userID {
			return s.Amount
		}
	}

	return decimal.Zero
}

// Lister lists the statements of a user in insertion order.
type Lister interface {
	ListByUser(ctx context.Context, userID string) ([]domain.Statement, error)
}

// Calculator computes balances over a statement lister.
//
// Built over a transaction-scoped ledger it sees the same snapshot the
// caller is about to append to.
type Calculator struct {
	lister Lister
}

// New returns a Calculator reading statements from l.
func New(l Lister) Calculator {
	return Calculator{lister: l}
}

// Balance returns the derived balance of userID.
func (c Calculator) Balance(ctx context.Context, userID string) (decimal.Decimal, error) {
	statements, err := c.lister.ListByUser(ctx, userID)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("user_id", userID).Msg("listing statements")
		return decimal.Zero, err
	}

	return Fold(userID, statements), nil
}
