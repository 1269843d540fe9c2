// Package resilience guards the statement store with a circuit breaker.
package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/internal/metrics"
	"github.com/go-petr/pet-ledger/pkg/errorspkg"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

// Store is the statement store the breaker protects.
type Store interface {
	ExecTx(ctx context.Context, userIDs []string, fn func(domain.Ledger) error) error
	Get(ctx context.Context, id uuid.UUID) (domain.Statement, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Statement, error)
}

// Config configures the circuit breaker.
type Config struct {
	Name string
	// MaxFailures is the number of consecutive infrastructure failures that opens the circuit.
	MaxFailures uint32
	// OpenTimeout is how long the circuit stays open before letting a probe through.
	OpenTimeout time.Duration
}

// Breaker wraps a Store with circuit breaker protection.
//
// Only infrastructure failures count against the circuit. Domain rejections
// such as insufficient funds are successful calls from the store's point of view.
type Breaker struct {
	store   Store
	cb      *gobreaker.CircuitBreaker
	metrics metrics.Collector
}

// NewBreaker returns a Breaker around store.
func NewBreaker(store Store, config Config, logger zerolog.Logger, collector metrics.Collector) *Breaker {
	b := &Breaker{
		store:   store,
		metrics: metrics.OrNoOp(collector),
	}

	maxFailures := config.MaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}

	settings := gobreaker.Settings{
		Name:        config.Name,
		MaxRequests: 1,
		Timeout:     config.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !errorspkg.IsInfrastructure(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")

			b.metrics.RecordCircuitState(name, circuitState(to))
		},
	}

	b.cb = gobreaker.NewCircuitBreaker(settings)

	return b
}

// State returns the current breaker state.
func (b *Breaker) State() metrics.CircuitState {
	return circuitState(b.cb.State())
}

// ExecTx runs a unit of work through the breaker.
func (b *Breaker) ExecTx(ctx context.Context, userIDs []string, fn func(domain.Ledger) error) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, b.store.ExecTx(ctx, userIDs, fn)
	})

	return b.mapErr(ctx, err)
}

// Get returns the statement with the given id through the breaker.
func (b *Breaker) Get(ctx context.Context, id uuid.UUID) (domain.Statement, error) {
	res, err := b.cb.Execute(func() (interface{}, error) {
		return b.store.Get(ctx, id)
	})
	if err != nil {
		return domain.Statement{}, b.mapErr(ctx, err)
	}

	return res.(domain.Statement), nil
}

// ListByUser lists the statements of the user through the breaker.
func (b *Breaker) ListByUser(ctx context.Context, userID string) ([]domain.Statement, error) {
	res, err := b.cb.Execute(func() (interface{}, error) {
		return b.store.ListByUser(ctx, userID)
	})
	if err != nil {
		return nil, b.mapErr(ctx, err)
	}

	return res.([]domain.Statement), nil
}

func (b *Breaker) mapErr(ctx context.Context, err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("statement store rejected by circuit breaker")
		return errorspkg.ErrUnavailable
	}

	return err
}

func circuitState(s gobreaker.State) metrics.CircuitState {
	switch s {
	case gobreaker.StateOpen:
		return metrics.CircuitOpen
	case gobreaker.StateHalfOpen:
		return metrics.CircuitHalfOpen
	}

	return metrics.CircuitClosed
}
