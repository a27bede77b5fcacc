package usage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultCacheTTL = 30 * time.Second

// Cache keeps recently computed snapshots in Redis for display surfaces.
// Quota enforcement never reads it; writes invalidate it.
type Cache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewCache returns a snapshot cache with the given TTL; ttl <= 0 uses the
// default. Panics if client is nil.
func NewCache(client redis.UniversalClient, ttl time.Duration) *Cache {
	if client == nil {
		panic("usage: redis client is required")
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) key(tenantID uuid.UUID) string {
	return "usage:snapshot:" + tenantID.String()
}

// Get returns the cached snapshot, or ok=false on miss.
func (c *Cache) Get(ctx context.Context, tenantID uuid.UUID) (Snapshot, bool, error) {
	raw, err := c.client.Get(ctx, c.key(tenantID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return Snapshot{}, false, nil
		}
		return Snapshot{}, false, fmt.Errorf("get cached snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return Snapshot{}, false, fmt.Errorf("decode cached snapshot: %w", err)
	}
	return snap, true, nil
}

// Set stores a snapshot for the cache TTL.
func (c *Cache) Set(ctx context.Context, snap Snapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := c.client.Set(ctx, c.key(snap.TenantID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache snapshot: %w", err)
	}
	return nil
}

// Invalidate drops a tenant's cached snapshot.
func (c *Cache) Invalidate(ctx context.Context, tenantID uuid.UUID) error {
	if err := c.client.Del(ctx, c.key(tenantID)).Err(); err != nil {
		return fmt.Errorf("invalidate snapshot: %w", err)
	}
	return nil
}
