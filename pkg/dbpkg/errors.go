package dbpkg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-petr/pet-ledger/pkg/errorspkg"
	"github.com/lib/pq"
)

// InfraError turns a driver failure into an infrastructure sentinel.
//
// Deadlines and cancelled statements become errorspkg.ErrTimeout so callers
// can retry, and so does sql.ErrTxDone from a transaction its context already
// rolled back. Everything else is errorspkg.ErrInternal.
func InfraError(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return errorspkg.ErrTimeout
	}

	if errors.Is(err, sql.ErrTxDone) {
		return errorspkg.ErrTimeout
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Name() == "query_canceled" {
		return errorspkg.ErrTimeout
	}

	return errorspkg.ErrInternal
}

// WithTimeout bounds ctx by timeout. A non-positive timeout leaves ctx as is.
func WithTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, timeout)
}
