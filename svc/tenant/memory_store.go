package tenant

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// memoryStore is an in-memory Store for tests and single-node deployments.
type memoryStore struct {
	mu          sync.RWMutex
	byID        map[uuid.UUID]Tenant
	bySubdomain map[string]uuid.UUID
}

// NewMemoryStore returns an empty in-memory Store.
func NewMemoryStore() Store {
	return &memoryStore{
		byID:        make(map[uuid.UUID]Tenant),
		bySubdomain: make(map[string]uuid.UUID),
	}
}

func (s *memoryStore) GetByID(_ context.Context, id uuid.UUID) (*Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.byID[id]
	if !ok {
		return nil, ErrTenantNotFound
	}
	out := t
	return &out, nil
}

func (s *memoryStore) GetBySubdomain(_ context.Context, subdomain string) (*Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.bySubdomain[strings.ToLower(subdomain)]
	if !ok {
		return nil, ErrTenantNotFound
	}
	t := s.byID[id]
	return &t, nil
}

func (s *memoryStore) Save(_ context.Context, t *Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.byID[t.ID]; ok && prev.Subdomain != t.Subdomain {
		delete(s.bySubdomain, strings.ToLower(prev.Subdomain))
	}
	s.byID[t.ID] = *t
	s.bySubdomain[strings.ToLower(t.Subdomain)] = t.ID
	return nil
}
