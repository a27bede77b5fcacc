package subscription

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// memoryStore is an in-memory Store for tests and single-node deployments.
type memoryStore struct {
	mu         sync.RWMutex
	subs       map[uuid.UUID]Subscription
	trialsUsed map[uuid.UUID]struct{}
}

// NewMemoryStore returns an empty in-memory Store.
func NewMemoryStore() Store {
	return &memoryStore{
		subs:       make(map[uuid.UUID]Subscription),
		trialsUsed: make(map[uuid.UUID]struct{}),
	}
}

func (s *memoryStore) Get(_ context.Context, tenantID uuid.UUID) (*Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.subs[tenantID]
	if !ok {
		return nil, ErrSubscriptionNotFound
	}
	out := sub
	return &out, nil
}

func (s *memoryStore) Save(_ context.Context, sub *Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs[sub.TenantID] = *sub
	return nil
}

func (s *memoryStore) HasUsedTrial(_ context.Context, tenantID uuid.UUID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, used := s.trialsUsed[tenantID]
	return used, nil
}

func (s *memoryStore) RecordTrialUse(_ context.Context, tenantID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trialsUsed[tenantID] = struct{}{}
	return nil
}

func (s *memoryStore) CountByPlan(_ context.Context, planID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, sub := range s.subs {
		if sub.PlanID == planID || sub.PendingPlanID == planID {
			count++
		}
	}
	return count, nil
}
