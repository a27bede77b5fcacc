package notifications

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// memoryStorage is an in-memory Storage for tests and single-node
// deployments. Notifications are kept newest first per tenant.
type memoryStorage struct {
	mu       sync.RWMutex
	byTenant map[uuid.UUID][]Notification
}

// NewMemoryStorage returns an empty in-memory Storage.
func NewMemoryStorage() Storage {
	return &memoryStorage{byTenant: make(map[uuid.UUID][]Notification)}
}

func (s *memoryStorage) Create(_ context.Context, notif Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byTenant[notif.TenantID] = append([]Notification{notif}, s.byTenant[notif.TenantID]...)
	return nil
}

func (s *memoryStorage) List(_ context.Context, tenantID uuid.UUID, opts ListOptions) ([]Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Notification
	for _, n := range s.byTenant[tenantID] {
		if opts.OnlyUnread && n.Read {
			continue
		}
		out = append(out, n)
	}

	if opts.Offset > 0 {
		if opts.Offset >= len(out) {
			return nil, nil
		}
		out = out[opts.Offset:]
	}
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return slices.Clone(out), nil
}

func (s *memoryStorage) MarkRead(_ context.Context, tenantID uuid.UUID, ids ...uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.byTenant[tenantID]
	for _, id := range ids {
		found := false
		for i := range list {
			if list[i].ID == id {
				list[i].MarkAsRead(time.Now().UTC())
				found = true
				break
			}
		}
		if !found {
			return ErrNotificationNotFound
		}
	}
	return nil
}

func (s *memoryStorage) CountUnread(_ context.Context, tenantID uuid.UUID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	for _, n := range s.byTenant[tenantID] {
		if !n.Read {
			count++
		}
	}
	return count, nil
}
