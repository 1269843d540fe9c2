// Package helpers seeds the database with users and statements for integration tests.
package helpers

import (
	"context"
	"testing"

	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/internal/statementrepo"
	"github.com/go-petr/pet-ledger/internal/userrepo"
	"github.com/go-petr/pet-ledger/pkg/dbpkg"
	"github.com/go-petr/pet-ledger/pkg/randompkg"
	"github.com/shopspring/decimal"
)

// SeedUser registers a random user.
func SeedUser(t *testing.T, db dbpkg.SQLInterface) domain.User {
	t.Helper()

	arg := domain.CreateUserParams{
		Name:  randompkg.Name(),
		Email: randompkg.Email(),
	}

	user, err := userrepo.NewRepoPGS(db, 0).Create(context.Background(), arg)
	if err != nil {
		t.Fatalf("userrepo.Create(%+v) returned error: %v", arg, err)
	}

	return user
}

// SeedStatement appends a statement of the given type for userID.
func SeedStatement(t *testing.T, db dbpkg.SQLInterface, userID string, opType domain.OperationType, amount decimal.Decimal) domain.Statement {
	t.Helper()

	arg := domain.CreateStatementParams{
		UserID:      userID,
		Type:        opType,
		Amount:      amount,
		Description: randompkg.Description(),
	}

	statement, err := statementrepo.NewTxRepoPGS(db).Create(context.Background(), arg)
	if err != nil {
		t.Fatalf("statementrepo.Create(%+v) returned error: %v", arg, err)
	}

	return statement
}

// SeedDeposit deposits amount into the account of userID.
func SeedDeposit(t *testing.T, db dbpkg.SQLInterface, userID string, amount int64) domain.Statement {
	t.Helper()

	return SeedStatement(t, db, userID, domain.OperationDeposit, decimal.NewFromInt(amount))
}
