package userrepo

import (
	"context"
	"sync"
	"time"

	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/google/uuid"
)

// RepoMem is an in-memory user directory.
type RepoMem struct {
	mu    sync.RWMutex
	users map[string]domain.User
}

// NewRepoMem returns an empty RepoMem.
func NewRepoMem() *RepoMem {
	return &RepoMem{
		users: make(map[string]domain.User),
	}
}

// Create registers a new user with a generated id.
func (r *RepoMem) Create(_ context.Context, arg domain.CreateUserParams) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Email == arg.Email {
			return domain.User{}, domain.ErrEmailAlreadyExists
		}
	}

	u := domain.User{
		ID:        uuid.NewString(),
		Name:      arg.Name,
		Email:     arg.Email,
		CreatedAt: time.Now().UTC(),
	}

	r.users[u.ID] = u

	return u, nil
}

// Exists reports whether the user with the given id is registered.
func (r *RepoMem) Exists(_ context.Context, id string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.users[id]

	return ok, nil
}
