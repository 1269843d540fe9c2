// Package metrics records ledger operation metrics.
package metrics

import (
	"time"

	"github.com/go-petr/pet-ledger/pkg/errorspkg"
)

// Collector defines the interface for collecting ledger metrics.
type Collector interface {
	// RecordOperation records one service operation and how it ended.
	RecordOperation(operation, outcome string, duration time.Duration)
	// RecordCircuitState records the current state of a circuit breaker.
	RecordCircuitState(name string, state CircuitState)
	// RecordCacheLookup records a statement cache lookup.
	RecordCacheLookup(hit bool)
}

// Operation outcomes.
const (
	OutcomeOK        = "ok"
	OutcomeRejected  = "rejected"
	OutcomeRetryable = "retryable"
	OutcomeError     = "error"
)

// OutcomeOf classifies err into an operation outcome label.
func OutcomeOf(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errorspkg.IsRetryable(err):
		return OutcomeRetryable
	case errorspkg.IsInfrastructure(err):
		return OutcomeError
	}

	return OutcomeRejected
}

// CircuitState represents the state of a circuit breaker.
type CircuitState int

const (
	// CircuitClosed means the circuit breaker is allowing requests through.
	CircuitClosed CircuitState = iota
	// CircuitOpen means the circuit breaker is blocking requests.
	CircuitOpen
	// CircuitHalfOpen means the circuit breaker is testing if the store has recovered.
	CircuitHalfOpen
)

// String returns the string representation of the circuit state.
func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// NoOpCollector is a no-op implementation of Collector.
type NoOpCollector struct{}

// RecordOperation does nothing.
func (NoOpCollector) RecordOperation(operation, outcome string, duration time.Duration) {}

// RecordCircuitState does nothing.
func (NoOpCollector) RecordCircuitState(name string, state CircuitState) {}

// RecordCacheLookup does nothing.
func (NoOpCollector) RecordCacheLookup(hit bool) {}

// OrNoOp returns c, or a NoOpCollector when c is nil.
func OrNoOp(c Collector) Collector {
	if c == nil {
		return NoOpCollector{}
	}

	return c
}
