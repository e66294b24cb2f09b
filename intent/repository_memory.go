package intent

import (
	"context"
	"errors"
	"sync"

	"github.com/orbitintent/core/types"
)

// ErrNotFound is returned by a Repository when no intent exists for an id.
var ErrNotFound = errors.New("intent: not found")

// MemoryRepository is an in-memory Repository, the default collaborator for
// tests and single-process deployments (mirrors the teacher's
// infrastructure/state.MemoryBackend single-process pattern).
type MemoryRepository struct {
	mu      sync.RWMutex
	byID    map[types.Hash]*Intent
	nonces  map[types.Address]map[uint64]bool
}

// NewMemoryRepository builds an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:   make(map[types.Hash]*Intent),
		nonces: make(map[types.Address]map[uint64]bool),
	}
}

func (r *MemoryRepository) Save(_ context.Context, i *Intent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *i
	r.byID[i.ID] = &cp
	if r.nonces[i.User] == nil {
		r.nonces[i.User] = make(map[uint64]bool)
	}
	r.nonces[i.User][i.Nonce] = true
	return nil
}

func (r *MemoryRepository) Get(_ context.Context, id types.Hash) (*Intent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *i
	return &cp, nil
}

func (r *MemoryRepository) NonceUsed(_ context.Context, user types.Address, nonce uint64) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	used, ok := r.nonces[user]
	if !ok {
		return false, nil
	}
	return used[nonce], nil
}

func (r *MemoryRepository) ListPendingOrMatched(_ context.Context) ([]*Intent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Intent, 0)
	for _, i := range r.byID {
		if i.Status == StatusPending || i.Status == StatusMatched {
			cp := *i
			out = append(out, &cp)
		}
	}
	return out, nil
}
