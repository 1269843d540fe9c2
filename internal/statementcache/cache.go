// Package statementcache keeps single statement lookups in Redis.
//
// Statements are immutable once written, so cached entries never need
// invalidation and only expire by TTL.
package statementcache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/internal/metrics"
	"github.com/google/uuid"
	"github.com/redis/rueidis"
	"github.com/rs/zerolog"
)

const keyPrefix = "ledger:statement:"

// Store is the statement store behind the cache.
type Store interface {
	ExecTx(ctx context.Context, userIDs []string, fn func(domain.Ledger) error) error
	Get(ctx context.Context, id uuid.UUID) (domain.Statement, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Statement, error)
}

// Repo is a read-through cache in front of a Store.
type Repo struct {
	next    Store
	client  rueidis.Client
	ttl     time.Duration
	metrics metrics.Collector
}

// NewClient connects to Redis at addr and pings it.
func NewClient(ctx context.Context, addr string) (rueidis.Client, error) {
	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  []string{addr},
		DisableCache: true,
	})
	if err != nil {
		return nil, fmt.Errorf("redis: failed to create client: %w", err)
	}

	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis: failed to ping server: %w", err)
	}

	return client, nil
}

// New returns a Repo caching Get results of next for ttl. Statements never
// change, so a non-positive ttl keeps entries until Redis evicts them.
func New(next Store, client rueidis.Client, ttl time.Duration, collector metrics.Collector) *Repo {
	return &Repo{
		next:    next,
		client:  client,
		ttl:     ttl,
		metrics: metrics.OrNoOp(collector),
	}
}

// Get returns the statement from Redis, falling back to the store on a miss.
//
// Redis failures are logged and treated as misses.
func (r *Repo) Get(ctx context.Context, id uuid.UUID) (domain.Statement, error) {
	l := zerolog.Ctx(ctx)
	key := keyPrefix + id.String()

	resp := r.client.Do(ctx, r.client.B().Get().Key(key).Build())

	data, err := resp.AsBytes()
	if err == nil {
		var s domain.Statement
		if err := json.Unmarshal(data, &s); err == nil {
			r.metrics.RecordCacheLookup(true)
			return s, nil
		}

		l.Warn().Err(err).Str("key", key).Msg("dropping undecodable cache entry")
	} else if !rueidis.IsRedisNil(err) {
		l.Warn().Err(err).Str("key", key).Msg("statement cache get failed")
	}

	r.metrics.RecordCacheLookup(false)

	s, err := r.next.Get(ctx, id)
	if err != nil {
		return s, err
	}

	r.set(ctx, key, s)

	return s, nil
}

func (r *Repo) set(ctx context.Context, key string, s domain.Statement) {
	l := zerolog.Ctx(ctx)

	data, err := json.Marshal(s)
	if err != nil {
		l.Warn().Err(err).Str("key", key).Msg("statement cache encode failed")
		return
	}

	set := r.client.B().Set().Key(key).Value(rueidis.BinaryString(data))

	cmd := set.Build()
	if r.ttl > 0 {
		cmd = set.Ex(r.ttl).Build()
	}

	if err := r.client.Do(ctx, cmd).Error(); err != nil {
		l.Warn().Err(err).Str("key", key).Msg("statement cache set failed")
	}
}

// ListByUser is not cached: the list grows with every append.
func (r *Repo) ListByUser(ctx context.Context, userID string) ([]domain.Statement, error) {
	return r.next.ListByUser(ctx, userID)
}

// ExecTx passes the unit of work to the store.
func (r *Repo) ExecTx(ctx context.Context, userIDs []string, fn func(domain.Ledger) error) error {
	return r.next.ExecTx(ctx, userIDs, fn)
}
