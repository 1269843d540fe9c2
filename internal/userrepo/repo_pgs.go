// Package userrepo manages repository layer of users.
//
// The ledger only ever reads from it to resolve account existence.
package userrepo

import (
	"context"
	"time"

	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/pkg/dbpkg"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/rs/zerolog"
)

// RepoPGS facilitates user repository layer logic.
type RepoPGS struct {
	db      dbpkg.SQLInterface
	timeout time.Duration
}

// NewRepoPGS returns user RepoPGS. A positive timeout bounds every query.
func NewRepoPGS(db dbpkg.SQLInterface, timeout time.Duration) *RepoPGS {
	return &RepoPGS{
		db:      db,
		timeout: timeout,
	}
}

// CreateQuery inserts into users table.
const CreateQuery = `
INSERT INTO users (
    name,
    email
) VALUES (
    $1, $2
) RETURNING id, name, email, created_at
`

// Create creates the user and then returns it.
func (r *RepoPGS) Create(ctx context.Context, arg domain.CreateUserParams) (domain.User, error) {
	l := zerolog.Ctx(ctx)

	ctx, cancel := dbpkg.WithTimeout(ctx, r.timeout)
	defer cancel()

	row := r.db.QueryRowContext(ctx, CreateQuery, arg.Name, arg.Email)

	var u domain.User

	err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.CreatedAt,
	)

	if err != nil {
		l.Error().Err(err).Send()

		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code.Name() == "unique_violation" && pqErr.Constraint == "users_email_key" {
				return domain.User{}, domain.ErrEmailAlreadyExists
			}
		}

		return domain.User{}, dbpkg.InfraError(ctx, err)
	}

	return u, nil
}

const existsQuery = `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`

// Exists reports whether the user with the given id is registered.
func (r *RepoPGS) Exists(ctx context.Context, id string) (bool, error) {
	l := zerolog.Ctx(ctx)

	if _, err := uuid.Parse(id); err != nil {
		return false, nil
	}

	ctx, cancel := dbpkg.WithTimeout(ctx, r.timeout)
	defer cancel()

	var exists bool

	if err := r.db.QueryRowContext(ctx, existsQuery, id).Scan(&exists); err != nil {
		l.Error().Err(err).Send()
		return false, dbpkg.InfraError(ctx, err)
	}

	return exists, nil
}
