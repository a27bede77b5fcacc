package usage

import (
	"context"
	"maps"
	"sync"

	"github.com/google/uuid"
)

type tenantCounts struct {
	products      int64
	categories    int64
	orders        int64
	subcategories map[uuid.UUID]int64
}

// memoryStore is an in-memory Store for tests and single-node deployments.
type memoryStore struct {
	mu      sync.RWMutex
	tenants map[uuid.UUID]*tenantCounts
}

// NewMemoryStore returns an empty in-memory Store.
func NewMemoryStore() Store {
	return &memoryStore{tenants: make(map[uuid.UUID]*tenantCounts)}
}

func (s *memoryStore) Adjust(_ context.Context, tenantID uuid.UUID, kind Kind, categoryID uuid.UUID, delta int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tc, ok := s.tenants[tenantID]
	if !ok {
		tc = &tenantCounts{subcategories: make(map[uuid.UUID]int64)}
		s.tenants[tenantID] = tc
	}

	switch kind {
	case KindProducts:
		tc.products = max(tc.products+delta, 0)
	case KindOrders:
		tc.orders = max(tc.orders+delta, 0)
	case KindCategories:
		tc.categories = max(tc.categories+delta, 0)
		if delta < 0 {
			delete(tc.subcategories, categoryID)
		}
	case KindSubcategories:
		next := max(tc.subcategories[categoryID]+delta, 0)
		if next == 0 {
			delete(tc.subcategories, categoryID)
		} else {
			tc.subcategories[categoryID] = next
		}
	default:
		return ErrUnknownKind
	}
	return nil
}

func (s *memoryStore) Counts(_ context.Context, tenantID uuid.UUID) (Counts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tc, ok := s.tenants[tenantID]
	if !ok {
		return Counts{SubcategoriesByCategory: map[uuid.UUID]int64{}}, nil
	}
	return Counts{
		Products:                tc.products,
		Categories:              tc.categories,
		Orders:                  tc.orders,
		SubcategoriesByCategory: maps.Clone(tc.subcategories),
	}, nil
}

func (s *memoryStore) CategoryCount(_ context.Context, tenantID, categoryID uuid.UUID) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tc, ok := s.tenants[tenantID]
	if !ok {
		return 0, nil
	}
	return tc.subcategories[categoryID], nil
}
