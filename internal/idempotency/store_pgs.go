package idempotency

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/go-petr/pet-ledger/pkg/dbpkg"
)

// StorePGS keeps idempotency records in the idempotency_keys table.
type StorePGS struct {
	db         dbpkg.SQLInterface
	timeout    time.Duration
	staleAfter time.Duration
}

// NewStorePGS returns StorePGS. A positive timeout bounds every query.
// Reservations without a response older than staleAfter can be taken over by
// a new request.
func NewStorePGS(db dbpkg.SQLInterface, timeout, staleAfter time.Duration) *StorePGS {
	return &StorePGS{db: db, timeout: timeout, staleAfter: staleAfterOrDefault(staleAfter)}
}

const reserveQuery = `
INSERT INTO idempotency_keys (
	user_id,
	key,
	method,
	path
) VALUES (
	$1, $2, $3, $4
) ON CONFLICT (user_id, key) DO UPDATE
SET
	method = EXCLUDED.method,
	path = EXCLUDED.path,
	created_at = clock_timestamp()
WHERE
	idempotency_keys.status_code = 0
	AND idempotency_keys.created_at < clock_timestamp() - make_interval(secs => $5)
`

const getQuery = `
SELECT
	method,
	path,
	status_code,
	response_body
FROM
	idempotency_keys
WHERE
	user_id = $1 AND key = $2
`

// Reserve claims key for userID unless it is already taken. A stale
// reservation is taken over.
func (s *StorePGS) Reserve(ctx context.Context, userID, key string, rec Record) (Record, bool, error) {
	l := zerolog.Ctx(ctx)

	ctx, cancel := dbpkg.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.db.ExecContext(ctx, reserveQuery, userID, key, rec.Method, rec.Path, s.staleAfter.Seconds())
	if err != nil {
		l.Error().Err(err).Send()
		return Record{}, false, dbpkg.InfraError(ctx, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		l.Error().Err(err).Send()
		return Record{}, false, dbpkg.InfraError(ctx, err)
	}

	if n == 1 {
		return Record{}, true, nil
	}

	var existing Record

	err = s.db.QueryRowContext(ctx, getQuery, userID, key).Scan(
		&existing.Method,
		&existing.Path,
		&existing.StatusCode,
		&existing.Body,
	)
	if err != nil {
		l.Error().Err(err).Send()
		return Record{}, false, dbpkg.InfraError(ctx, err)
	}

	return existing, false, nil
}

const completeQuery = `
UPDATE idempotency_keys
SET
	status_code = $3,
	response_body = $4
WHERE
	user_id = $1 AND key = $2
`

// Complete stores the final response of a reserved key.
func (s *StorePGS) Complete(ctx context.Context, userID, key string, statusCode int, body []byte) error {
	ctx, cancel := dbpkg.WithTimeout(ctx, s.timeout)
	defer cancel()

	if _, err := s.db.ExecContext(ctx, completeQuery, userID, key, statusCode, body); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Send()
		return dbpkg.InfraError(ctx, err)
	}

	return nil
}

const releaseQuery = `
DELETE FROM idempotency_keys
WHERE
	user_id = $1 AND key = $2 AND status_code = 0
`

// Release forgets a reserved key that has no stored response.
func (s *StorePGS) Release(ctx context.Context, userID, key string) error {
	ctx, cancel := dbpkg.WithTimeout(ctx, s.timeout)
	defer cancel()

	if _, err := s.db.ExecContext(ctx, releaseQuery, userID, key); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Send()
		return dbpkg.InfraError(ctx, err)
	}

	return nil
}
