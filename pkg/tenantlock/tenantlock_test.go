package tenantlock_test

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/storekit/storekit/pkg/tenantlock"
)

func TestMap_SerializesSameTenant(t *testing.T) {
	t.Parallel()

	locks := tenantlock.New()
	tenantID := uuid.New()

	counter := 0
	var wg sync.WaitGroup
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock(tenantID)
			defer unlock()
			counter++
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, counter)
}

func TestMap_ManyTenantsConcurrently(t *testing.T) {
	t.Parallel()

	locks := tenantlock.New()

	counters := make(map[uuid.UUID]*int, 16)
	ids := make([]uuid.UUID, 0, 16)
	for range 16 {
		id := uuid.New()
		ids = append(ids, id)
		counters[id] = new(int)
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		for range 50 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				unlock := locks.Lock(id)
				defer unlock()
				*counters[id]++
			}()
		}
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, 50, *counters[id])
	}
}
