// Package idempotency replays the response of a write request retried with
// the same Idempotency-Key header.
//
// A key is reserved before the handler runs, so a duplicate that arrives
// while the first attempt is still in flight is rejected instead of being
// executed twice. Responses with a 5xx status and panicking handlers release
// the key again, which lets the client retry a failed request. Reservations
// left behind by a crashed process go stale and are taken over.
package idempotency

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/go-petr/pet-ledger/internal/middleware"
	"github.com/go-petr/pet-ledger/pkg/web"
)

const (
	// HeaderKey is the request header carrying the client chosen key.
	HeaderKey = "Idempotency-Key"
	// HitHeader is set on replayed responses.
	HitHeader = "X-Idempotency-Hit"

	maxKeyLength = 255

	// DefaultStaleAfter is how long an unfinished reservation blocks its key.
	DefaultStaleAfter = time.Minute
)

var (
	// ErrInProgress indicates that a request with the same key has not finished yet.
	ErrInProgress = errors.New("A request with this idempotency key is in progress")
	// ErrKeyReused indicates that the key was first used for another route.
	ErrKeyReused = errors.New("Idempotency key was already used for a different request")
	// ErrKeyTooLong indicates an oversized Idempotency-Key header.
	ErrKeyTooLong = errors.New("Idempotency key must be at most 255 characters long")
)

// Record is the stored outcome of a request. StatusCode is zero while the
// request is in flight.
type Record struct {
	Method     string
	Path       string
	StatusCode int
	Body       []byte
}

// Done reports whether the request finished and can be replayed.
func (r Record) Done() bool {
	return r.StatusCode != 0
}

func staleAfterOrDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return DefaultStaleAfter
	}

	return d
}

// Store persists idempotency records scoped by user.
//
//go:generate mockgen -source idempotency.go -destination idempotency_mock.go -package idempotency
type Store interface {
	// Reserve claims key for userID. When the key already exists it returns
	// the existing record and reserved is false.
	Reserve(ctx context.Context, userID, key string, rec Record) (existing Record, reserved bool, err error)
	Complete(ctx context.Context, userID, key string, statusCode int, body []byte) error
	Release(ctx context.Context, userID, key string) error
}

type bodyRecorder struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *bodyRecorder) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *bodyRecorder) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Middleware makes the wrapped routes idempotent per user and key.
//
// It must run behind middleware.AuthMiddleware. Requests without the header
// pass through untouched.
func Middleware(store Store) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		key := gctx.GetHeader(HeaderKey)
		if key == "" {
			gctx.Next()
			return
		}

		ctx := gctx.Request.Context()
		l := zerolog.Ctx(ctx).With().Str("idempotency_key", key).Logger()

		if len(key) > maxKeyLength {
			l.Info().Err(ErrKeyTooLong).Send()
			gctx.AbortWithStatusJSON(http.StatusBadRequest, web.Error(ErrKeyTooLong))

			return
		}

		userID := middleware.Payload(gctx).UserID
		req := Record{Method: gctx.Request.Method, Path: gctx.Request.URL.Path}

		existing, reserved, err := store.Reserve(ctx, userID, key, req)
		if err != nil {
			web.InfraError(gctx, err)
			gctx.Abort()

			return
		}

		if !reserved {
			switch {
			case existing.Method != req.Method || existing.Path != req.Path:
				l.Info().Err(ErrKeyReused).Str("first_path", existing.Path).Send()
				gctx.AbortWithStatusJSON(http.StatusUnprocessableEntity, web.Error(ErrKeyReused))
			case !existing.Done():
				l.Info().Err(ErrInProgress).Send()
				gctx.AbortWithStatusJSON(http.StatusConflict, web.Error(ErrInProgress))
			default:
				l.Info().Int("status_code", existing.StatusCode).Msg("replaying stored response")
				gctx.Header(HitHeader, "true")
				gctx.Data(existing.StatusCode, gin.MIMEJSON+"; charset=utf-8", existing.Body)
				gctx.Abort()
			}

			return
		}

		w := &bodyRecorder{ResponseWriter: gctx.Writer}
		gctx.Writer = w

		// The outcome is stored even when the client went away.
		storeCtx := context.WithoutCancel(ctx)
		finished := false

		release := func() {
			if err := store.Release(storeCtx, userID, key); err != nil {
				l.Error().Err(err).Msg("releasing idempotency key")
			}
		}

		// A panicking handler frees the key before the panic moves on.
		defer func() {
			if !finished {
				release()
			}
		}()

		gctx.Next()

		finished = true

		if status := w.Status(); status >= http.StatusInternalServerError {
			release()
			return
		}

		if err := store.Complete(storeCtx, userID, key, w.Status(), w.body.Bytes()); err != nil {
			l.Error().Err(err).Msg("storing idempotent response")
		}
	}
}
