// Package statementrepo manages repository layer of ledger statements.
package statementrepo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/pkg/dbpkg"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/rs/zerolog"
)

// RepoPGS facilitates statement repository layer logic on Postgres.
type RepoPGS struct {
	db      dbpkg.SQLInterface
	conn    *sql.DB
	timeout time.Duration

	// txCtx bounds every query of a repo handed to an ExecTx callback.
	txCtx context.Context
}

// NewTxRepoPGS returns statement RepoPGS bound to an already open transaction.
//
// ExecTx on it runs in that transaction instead of opening a new one.
func NewTxRepoPGS(db dbpkg.SQLInterface) *RepoPGS {
	return &RepoPGS{
		db: db,
	}
}

// NewRepoPGS returns statement RepoPGS with connection to start transactions.
//
// Every unit of work and every standalone read is bounded by timeout.
func NewRepoPGS(db *sql.DB, timeout time.Duration) *RepoPGS {
	return &RepoPGS{
		db:      db,
		conn:    db,
		timeout: timeout,
	}
}

const statementColumns = `id, user_id, type, amount, description, sender_id, recipient_id, created_at, updated_at`

const createQuery = `
INSERT INTO statements (
    user_id,
    type,
    amount,
    description,
    sender_id,
    recipient_id
) VALUES (
    $1, $2, $3, $4, $5, $6
) RETURNING ` + statementColumns

type scanner interface {
	Scan(dest ...any) error
}

func scanStatement(row scanner) (domain.Statement, error) {
	var s domain.Statement

	err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.Type,
		&s.Amount,
		&s.Description,
		&s.SenderID,
		&s.RecipientID,
		&s.CreatedAt,
		&s.UpdatedAt,
	)

	return s, err
}

// Create appends the statement and then returns it.
func (r *RepoPGS) Create(ctx context.Context, arg domain.CreateStatementParams) (domain.Statement, error) {
	ctx = r.bound(ctx)
	l := zerolog.Ctx(ctx)

	if _, err := uuid.Parse(arg.UserID); err != nil {
		l.Info().Err(err).Str("user_id", arg.UserID).Send()
		return domain.Statement{}, domain.ErrUserNotFound
	}

	row := r.db.QueryRowContext(ctx, createQuery,
		arg.UserID,
		arg.Type,
		arg.Amount,
		arg.Description,
		arg.SenderID,
		arg.RecipientID,
	)

	s, err := scanStatement(row)
	if err != nil {
		l.Error().Err(err).Msgf("Create(ctx context.Context, %+v)", arg)

		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Constraint {
			case "statements_user_id_fkey":
				return domain.Statement{}, domain.ErrUserNotFound
			case "statements_recipient_id_fkey":
				return domain.Statement{}, domain.ErrRecipientNotFound
			case "statements_amount_check":
				return domain.Statement{}, domain.ErrInvalidAmount
			case "statements_type_check":
				return domain.Statement{}, domain.ErrInvalidOperation
			}

			if pqErr.Code.Name() == "numeric_value_out_of_range" {
				return domain.Statement{}, domain.ErrInvalidAmount
			}
		}

		return domain.Statement{}, dbpkg.InfraError(ctx, err)
	}

	return s, nil
}

const getQuery = `
SELECT ` + statementColumns + `
FROM statements
WHERE id = $1
`

// Get returns the statement with the given id.
func (r *RepoPGS) Get(ctx context.Context, id uuid.UUID) (domain.Statement, error) {
	l := zerolog.Ctx(ctx)

	ctx, cancel := dbpkg.WithTimeout(r.bound(ctx), r.timeout)
	defer cancel()

	s, err := scanStatement(r.db.QueryRowContext(ctx, getQuery, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			l.Info().Err(err).Stringer("statement_id", id).Send()
			return domain.Statement{}, domain.ErrStatementNotFound
		}

		l.Error().Err(err).Send()

		return domain.Statement{}, dbpkg.InfraError(ctx, err)
	}

	return s, nil
}

const listByUserQuery = `
SELECT ` + statementColumns + `
FROM statements
WHERE user_id = $1
ORDER BY seq
`

// ListByUser returns the statements of the user in insertion order.
func (r *RepoPGS) ListByUser(ctx context.Context, userID string) ([]domain.Statement, error) {
	l := zerolog.Ctx(ctx)

	items := []domain.Statement{}

	if _, err := uuid.Parse(userID); err != nil {
		return items, nil
	}

	ctx, cancel := dbpkg.WithTimeout(r.bound(ctx), r.timeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, listByUserQuery, userID)
	if err != nil {
		l.Error().Err(err).Send()
		return nil, dbpkg.InfraError(ctx, err)
	}
	defer rows.Close()

	for rows.Next() {
		s, err := scanStatement(rows)
		if err != nil {
			l.Error().Err(err).Send()
			return nil, dbpkg.InfraError(ctx, err)
		}

		items = append(items, s)
	}

	if err := rows.Close(); err != nil {
		l.Error().Err(err).Send()
		return nil, dbpkg.InfraError(ctx, err)
	}

	if err := rows.Err(); err != nil {
		l.Error().Err(err).Send()
		return nil, dbpkg.InfraError(ctx, err)
	}

	return items, nil
}

const (
	lockQuery = `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`

	savepointQuery         = `SAVEPOINT ledger_unit`
	rollbackSavepointQuery = `ROLLBACK TO SAVEPOINT ledger_unit`
	releaseSavepointQuery  = `RELEASE SAVEPOINT ledger_unit`
)

// ExecTx runs fn as one unit of work holding the locks of the given accounts.
//
// Locks are transaction scoped advisory locks taken in sorted order, so two
// units of work touching the same accounts never deadlock. Statements created
// through the ledger passed to fn are committed together only when fn returns
// nil. The ledger passed to fn runs its queries under the unit's deadline.
//
// On a repo bound to an open transaction the unit is a savepoint, so a failed
// fn leaves the outer transaction as it was.
func (r *RepoPGS) ExecTx(ctx context.Context, userIDs []string, fn func(domain.Ledger) error) error {
	l := zerolog.Ctx(ctx)

	if r.conn == nil {
		return r.execSavepoint(r.bound(ctx), userIDs, fn)
	}

	ctx, cancel := dbpkg.WithTimeout(ctx, r.timeout)
	defer cancel()

	tx, err := r.conn.BeginTx(ctx, nil)
	if err != nil {
		l.Error().Err(err).Send()
		return dbpkg.InfraError(ctx, err)
	}

	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			l.Error().Err(err).Send()
		}
	}()

	if err := lockAccounts(ctx, tx, userIDs); err != nil {
		return err
	}

	if err := fn(&RepoPGS{db: tx, txCtx: ctx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		l.Error().Err(err).Send()
		return dbpkg.InfraError(ctx, err)
	}

	return nil
}

func (r *RepoPGS) execSavepoint(ctx context.Context, userIDs []string, fn func(domain.Ledger) error) error {
	l := zerolog.Ctx(ctx)

	if _, err := r.db.ExecContext(ctx, savepointQuery); err != nil {
		l.Error().Err(err).Send()
		return dbpkg.InfraError(ctx, err)
	}

	err := lockAccounts(ctx, r.db, userIDs)
	if err == nil {
		err = fn(r)
	}

	if err != nil {
		if _, rbErr := r.db.ExecContext(ctx, rollbackSavepointQuery); rbErr != nil {
			l.Error().Err(rbErr).Msg("rolling back to savepoint")
		}

		return err
	}

	if _, err := r.db.ExecContext(ctx, releaseSavepointQuery); err != nil {
		l.Error().Err(err).Send()
		return dbpkg.InfraError(ctx, err)
	}

	return nil
}

// bound returns the context of the unit of work the repo belongs to, if any.
func (r *RepoPGS) bound(ctx context.Context) context.Context {
	if r.txCtx != nil {
		return r.txCtx
	}

	return ctx
}

func lockAccounts(ctx context.Context, db dbpkg.SQLInterface, userIDs []string) error {
	for _, id := range lockOrder(userIDs) {
		if _, err := db.ExecContext(ctx, lockQuery, id); err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Str("user_id", id).Msg("locking account")
			return dbpkg.InfraError(ctx, err)
		}
	}

	return nil
}
