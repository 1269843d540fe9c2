package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/pkg/errorspkg"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestOutcomeOf(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		err  error
		want string
	}{
		{nil, OutcomeOK},
		{domain.ErrInsufficientFunds, OutcomeRejected},
		{domain.ErrUserNotFound, OutcomeRejected},
		{errorspkg.ErrTimeout, OutcomeRetryable},
		{fmt.Errorf("wrapped: %w", errorspkg.ErrUnavailable), OutcomeRetryable},
		{errorspkg.ErrInternal, OutcomeError},
		{errors.New("unclassified"), OutcomeRejected},
	}

	for _, tc := range testCases {
		require.Equal(t, tc.want, OutcomeOf(tc.err), "OutcomeOf(%v)", tc.err)
	}
}

func TestCircuitStateString(t *testing.T) {
	t.Parallel()

	require.Equal(t, "closed", CircuitClosed.String())
	require.Equal(t, "open", CircuitOpen.String())
	require.Equal(t, "half-open", CircuitHalfOpen.String())
	require.Equal(t, "unknown", CircuitState(42).String())
}

func TestPrometheusCollector(t *testing.T) {
	t.Parallel()

	pc := NewPrometheusCollector("test")
	registry := prometheus.NewRegistry()
	require.NoError(t, pc.Register(registry))

	pc.RecordOperation("deposit", OutcomeOK, time.Millisecond)
	pc.RecordOperation("deposit", OutcomeOK, time.Millisecond)
	pc.RecordOperation("withdraw", OutcomeRejected, time.Millisecond)
	pc.RecordCircuitState("ledger", CircuitOpen)
	pc.RecordCacheLookup(true)
	pc.RecordCacheLookup(false)
	pc.RecordCacheLookup(false)

	require.Equal(t, 2.0, testutil.ToFloat64(pc.operations.WithLabelValues("deposit", OutcomeOK)))
	require.Equal(t, 1.0, testutil.ToFloat64(pc.operations.WithLabelValues("withdraw", OutcomeRejected)))
	require.Equal(t, 1.0, testutil.ToFloat64(pc.circuitState.WithLabelValues("ledger")))
	require.Equal(t, 1.0, testutil.ToFloat64(pc.circuitOpens.WithLabelValues("ledger")))
	require.Equal(t, 1.0, testutil.ToFloat64(pc.cacheLookups.WithLabelValues("hit")))
	require.Equal(t, 2.0, testutil.ToFloat64(pc.cacheLookups.WithLabelValues("miss")))

	require.Error(t, pc.Register(registry), "registering twice must fail")
}

func TestOrNoOp(t *testing.T) {
	t.Parallel()

	require.Equal(t, NoOpCollector{}, OrNoOp(nil))

	pc := NewPrometheusCollector("x")
	require.Same(t, pc, OrNoOp(pc))
}
