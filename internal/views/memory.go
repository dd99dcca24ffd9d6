package views

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Store, used in tests and as the fallback when
// a tenant database is not yet provisioned for saved views.
type MemoryStore struct {
	mu    sync.RWMutex
	views map[Scope][]View
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{views: make(map[Scope][]View)}
}

func (s *MemoryStore) Get(_ context.Context, scope Scope) ([]View, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored := s.views[scope]
	out := make([]View, len(stored))
	copy(out, stored)
	return out, nil
}

func (s *MemoryStore) Set(_ context.Context, scope Scope, views []View) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := make([]View, len(views))
	copy(stored, views)
	s.views[scope] = stored
	return nil
}
