package statementrepo

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/pkg/errorspkg"
	"github.com/google/uuid"
)

// RepoMem is an in-memory statement store.
//
// It gives the same guarantees as RepoPGS: appends inside ExecTx become
// visible together or not at all, and units of work on the same account are
// serialized.
type RepoMem struct {
	mu         sync.RWMutex
	statements []domain.Statement
	byID       map[uuid.UUID]int

	locksMu sync.Mutex
	locks   map[string]chan struct{}

	now func() time.Time
}

// NewRepoMem returns an empty RepoMem.
func NewRepoMem() *RepoMem {
	return &RepoMem{
		byID:  make(map[uuid.UUID]int),
		locks: make(map[string]chan struct{}),
		now:   time.Now,
	}
}

// Create appends a single statement outside of any unit of work.
func (r *RepoMem) Create(ctx context.Context, arg domain.CreateStatementParams) (domain.Statement, error) {
	s, err := r.build(ctx, arg)
	if err != nil {
		return domain.Statement{}, err
	}

	r.commit([]domain.Statement{s})

	return s, nil
}

// Get returns the statement with the given id.
func (r *RepoMem) Get(ctx context.Context, id uuid.UUID) (domain.Statement, error) {
	if err := ctxErr(ctx); err != nil {
		return domain.Statement{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	i, ok := r.byID[id]
	if !ok {
		return domain.Statement{}, domain.ErrStatementNotFound
	}

	return r.statements[i], nil
}

// ListByUser returns the statements of the user in insertion order.
func (r *RepoMem) ListByUser(ctx context.Context, userID string) ([]domain.Statement, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	return filterByUser(r.statements, userID, []domain.Statement{}), nil
}

// ExecTx runs fn as one unit of work holding the locks of the given accounts.
//
// Waiting for a lock gives up once ctx is done.
func (r *RepoMem) ExecTx(ctx context.Context, userIDs []string, fn func(domain.Ledger) error) error {
	for _, id := range lockOrder(userIDs) {
		lock := r.accountLock(id)

		select {
		case lock <- struct{}{}:
			defer func() { <-lock }()
		case <-ctx.Done():
			return ctxErr(ctx)
		}
	}

	tx := &memTx{repo: r}

	if err := fn(tx); err != nil {
		return err
	}

	if err := ctxErr(ctx); err != nil {
		return err
	}

	r.commit(tx.staged)

	return nil
}

func (r *RepoMem) accountLock(userID string) chan struct{} {
	r.locksMu.Lock()
	defer r.locksMu.Unlock()

	lock, ok := r.locks[userID]
	if !ok {
		lock = make(chan struct{}, 1)
		r.locks[userID] = lock
	}

	return lock
}

func (r *RepoMem) build(ctx context.Context, arg domain.CreateStatementParams) (domain.Statement, error) {
	if err := ctxErr(ctx); err != nil {
		return domain.Statement{}, err
	}

	if !domain.ValidAmount(arg.Amount) {
		return domain.Statement{}, domain.ErrInvalidAmount
	}

	if !arg.Type.Valid() {
		return domain.Statement{}, domain.ErrInvalidOperation
	}

	now := r.now().UTC()

	return domain.Statement{
		ID:          uuid.New(),
		UserID:      arg.UserID,
		Type:        arg.Type,
		Amount:      arg.Amount,
		Description: arg.Description,
		SenderID:    arg.SenderID,
		RecipientID: arg.RecipientID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func (r *RepoMem) commit(staged []domain.Statement) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range staged {
		r.byID[s.ID] = len(r.statements)
		r.statements = append(r.statements, s)
	}
}

// memTx is the ledger view handed to ExecTx callbacks.
type memTx struct {
	repo   *RepoMem
	staged []domain.Statement
}

func (tx *memTx) Create(ctx context.Context, arg domain.CreateStatementParams) (domain.Statement, error) {
	s, err := tx.repo.build(ctx, arg)
	if err != nil {
		return domain.Statement{}, err
	}

	tx.staged = append(tx.staged, s)

	return s, nil
}

func (tx *memTx) Get(ctx context.Context, id uuid.UUID) (domain.Statement, error) {
	for _, s := range tx.staged {
		if s.ID == id {
			return s, nil
		}
	}

	return tx.repo.Get(ctx, id)
}

func (tx *memTx) ListByUser(ctx context.Context, userID string) ([]domain.Statement, error) {
	items, err := tx.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	return filterByUser(tx.staged, userID, items), nil
}

func filterByUser(statements []domain.Statement, userID string, dst []domain.Statement) []domain.Statement {
	for _, s := range statements {
		if s.UserID == userID {
			dst = append(dst, s)
		}
	}

	return dst
}

func ctxErr(ctx context.Context) error {
	err := ctx.Err()
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return errorspkg.ErrTimeout
	}

	return err
}
