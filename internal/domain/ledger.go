package domain

import (
	"context"

	"github.com/google/uuid"
)

// Ledger is the statement store as seen from inside a unit of work.
//
// Reads observe the statements appended earlier in the same unit of work.
//
//go:generate mockgen -source ledger.go -destination ledger_mock.go -package domain
type Ledger interface {
	Create(ctx context.Context, arg CreateStatementParams) (Statement, error)
	Get(ctx context.Context, id uuid.UUID) (Statement, error)
	ListByUser(ctx context.Context, userID string) ([]Statement, error)
}
