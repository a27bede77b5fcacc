package usage_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storekit/storekit/svc/plans"
	"github.com/storekit/storekit/svc/usage"
)

func testPlan() plans.Plan {
	return plans.Plan{
		ID:       "starter",
		Name:     "Starter",
		Interval: plans.IntervalMonthly,
		Limits: map[plans.Resource]int64{
			plans.ResourceProducts:                 10,
			plans.ResourceCategories:               3,
			plans.ResourceSubcategoriesPerCategory: 5,
			plans.ResourceOrders:                   plans.Unlimited,
		},
		Active: true,
	}
}

func record(t *testing.T, svc *usage.Service, tenantID uuid.UUID, kind usage.Kind, categoryID uuid.UUID, n int) {
	t.Helper()
	for range n {
		require.NoError(t, svc.RecordCreate(context.Background(), tenantID, kind, categoryID))
	}
}

func TestService_Snapshot(t *testing.T) {
	t.Parallel()

	t.Run("pools keep the used plus remaining identity", func(t *testing.T) {
		t.Parallel()
		svc := usage.NewService(usage.NewMemoryStore())
		tenantID := uuid.New()

		record(t, svc, tenantID, usage.KindProducts, uuid.Nil, 4)
		record(t, svc, tenantID, usage.KindOrders, uuid.Nil, 2)

		snap, err := svc.Snapshot(context.Background(), tenantID, testPlan())
		require.NoError(t, err)

		assert.Equal(t, int64(4), snap.Products.Used)
		assert.Equal(t, int64(10), snap.Products.Limit)
		assert.Equal(t, snap.Products.Limit, snap.Products.Used+snap.Products.Remaining)

		assert.Equal(t, plans.Unlimited, snap.Orders.Limit)
		assert.Equal(t, plans.Unlimited, snap.Orders.Remaining)
	})

	t.Run("remaining goes negative when over a shrunk limit", func(t *testing.T) {
		t.Parallel()
		svc := usage.NewService(usage.NewMemoryStore())
		tenantID := uuid.New()

		record(t, svc, tenantID, usage.KindProducts, uuid.Nil, 12)

		snap, err := svc.Snapshot(context.Background(), tenantID, testPlan())
		require.NoError(t, err)

		assert.Equal(t, int64(-2), snap.Products.Remaining)
		assert.False(t, snap.Products.HasHeadroom())
		assert.Equal(t, snap.Products.Limit, snap.Products.Used+snap.Products.Remaining)
	})

	t.Run("subcategories report the worst-filled category", func(t *testing.T) {
		t.Parallel()
		svc := usage.NewService(usage.NewMemoryStore())
		tenantID := uuid.New()
		catA, catB := uuid.New(), uuid.New()

		record(t, svc, tenantID, usage.KindSubcategories, catA, 5)
		record(t, svc, tenantID, usage.KindSubcategories, catB, 2)

		snap, err := svc.Snapshot(context.Background(), tenantID, testPlan())
		require.NoError(t, err)

		assert.Equal(t, int64(5), snap.Subcategories.MaxUsed)
		assert.Equal(t, int64(5), snap.Subcategories.Limit)
	})

	t.Run("empty tenant snapshots cleanly", func(t *testing.T) {
		t.Parallel()
		svc := usage.NewService(usage.NewMemoryStore())

		snap, err := svc.Snapshot(context.Background(), uuid.New(), testPlan())
		require.NoError(t, err)
		assert.Zero(t, snap.Products.Used)
		assert.Equal(t, int64(10), snap.Products.Remaining)
	})
}

func TestService_Headroom(t *testing.T) {
	t.Parallel()

	t.Run("subcategory headroom targets the parent category only", func(t *testing.T) {
		t.Parallel()
		svc := usage.NewService(usage.NewMemoryStore())
		tenantID := uuid.New()
		full, sparse := uuid.New(), uuid.New()

		record(t, svc, tenantID, usage.KindSubcategories, full, 5)
		record(t, svc, tenantID, usage.KindSubcategories, sparse, 2)

		used, limit, err := svc.Headroom(context.Background(), tenantID, testPlan(), usage.KindSubcategories, full)
		require.NoError(t, err)
		assert.Equal(t, int64(5), used)
		assert.Equal(t, int64(5), limit)

		used, _, err = svc.Headroom(context.Background(), tenantID, testPlan(), usage.KindSubcategories, sparse)
		require.NoError(t, err)
		assert.Equal(t, int64(2), used, "sibling category counts must not leak in")
	})

	t.Run("subcategory headroom requires a category", func(t *testing.T) {
		t.Parallel()
		svc := usage.NewService(usage.NewMemoryStore())

		_, _, err := svc.Headroom(context.Background(), uuid.New(), testPlan(), usage.KindSubcategories, uuid.Nil)
		assert.ErrorIs(t, err, usage.ErrCategoryRequired)
	})

	t.Run("pool kinds read the tenant-wide count", func(t *testing.T) {
		t.Parallel()
		svc := usage.NewService(usage.NewMemoryStore())
		tenantID := uuid.New()

		record(t, svc, tenantID, usage.KindProducts, uuid.Nil, 7)

		used, limit, err := svc.Headroom(context.Background(), tenantID, testPlan(), usage.KindProducts, uuid.Nil)
		require.NoError(t, err)
		assert.Equal(t, int64(7), used)
		assert.Equal(t, int64(10), limit)
	})
}

func TestService_RecordDelete(t *testing.T) {
	t.Parallel()

	t.Run("counts never go below zero", func(t *testing.T) {
		t.Parallel()
		svc := usage.NewService(usage.NewMemoryStore())
		tenantID := uuid.New()

		require.NoError(t, svc.RecordDelete(context.Background(), tenantID, usage.KindProducts, uuid.Nil))

		snap, err := svc.Snapshot(context.Background(), tenantID, testPlan())
		require.NoError(t, err)
		assert.Zero(t, snap.Products.Used)
	})

	t.Run("deleting a category drops its subcategory bucket", func(t *testing.T) {
		t.Parallel()
		svc := usage.NewService(usage.NewMemoryStore())
		tenantID := uuid.New()
		cat := uuid.New()

		record(t, svc, tenantID, usage.KindCategories, cat, 1)
		record(t, svc, tenantID, usage.KindSubcategories, cat, 4)

		require.NoError(t, svc.RecordDelete(context.Background(), tenantID, usage.KindCategories, cat))

		used, _, err := svc.Headroom(context.Background(), tenantID, testPlan(), usage.KindSubcategories, cat)
		require.NoError(t, err)
		assert.Zero(t, used)
	})

	t.Run("category operations require the category id", func(t *testing.T) {
		t.Parallel()
		svc := usage.NewService(usage.NewMemoryStore())

		err := svc.RecordCreate(context.Background(), uuid.New(), usage.KindCategories, uuid.Nil)
		assert.ErrorIs(t, err, usage.ErrCategoryRequired)
	})
}
