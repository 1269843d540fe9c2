package idempotency

import (
	"context"
	"sync"
	"time"
)

type memKey struct {
	userID string
	key    string
}

type memRecord struct {
	Record
	reservedAt time.Time
}

// StoreMem keeps idempotency records in memory.
type StoreMem struct {
	mu         sync.Mutex
	records    map[memKey]memRecord
	staleAfter time.Duration
	now        func() time.Time
}

// NewStoreMem returns an empty StoreMem. Reservations without a response
// older than staleAfter can be taken over by a new request.
func NewStoreMem(staleAfter time.Duration) *StoreMem {
	return &StoreMem{
		records:    make(map[memKey]memRecord),
		staleAfter: staleAfterOrDefault(staleAfter),
		now:        time.Now,
	}
}

// Reserve claims key for userID unless it is already taken.
func (s *StoreMem) Reserve(_ context.Context, userID, key string, rec Record) (Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	k := memKey{userID, key}

	if existing, ok := s.records[k]; ok {
		if existing.Done() || now.Sub(existing.reservedAt) <= s.staleAfter {
			return existing.Record, false, nil
		}
	}

	s.records[k] = memRecord{
		Record:     Record{Method: rec.Method, Path: rec.Path},
		reservedAt: now,
	}

	return Record{}, true, nil
}

// Complete stores the final response of a reserved key.
func (s *StoreMem) Complete(_ context.Context, userID, key string, statusCode int, body []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := memKey{userID, key}
	rec := s.records[k]
	rec.StatusCode = statusCode
	rec.Body = append([]byte(nil), body...)
	s.records[k] = rec

	return nil
}

// Release forgets a reserved key that has no stored response.
func (s *StoreMem) Release(_ context.Context, userID, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := memKey{userID, key}
	if rec, ok := s.records[k]; ok && !rec.Done() {
		delete(s.records, k)
	}

	return nil
}
