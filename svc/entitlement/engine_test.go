package entitlement_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storekit/storekit/svc/entitlement"
	"github.com/storekit/storekit/svc/plans"
	"github.com/storekit/storekit/svc/subscription"
	"github.com/storekit/storekit/svc/usage"
)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func enginePlans() []plans.Plan {
	return []plans.Plan{
		{
			ID:        "free",
			Name:      "Free",
			Interval:  plans.IntervalMonthly,
			TrialDays: 14,
			Limits: map[plans.Resource]int64{
				plans.ResourceProducts:                 10,
				plans.ResourceCategories:               3,
				plans.ResourceSubcategoriesPerCategory: 5,
				plans.ResourceOrders:                   20,
			},
			Active: true,
		},
	}
}

func newTestEngine(t *testing.T) (*entitlement.Engine, *subscription.Service, *testClock) {
	t.Helper()

	catalog := plans.NewCatalog(plans.NewMemoryStore())
	require.NoError(t, catalog.Seed(context.Background(), plans.StaticSource(enginePlans())))

	clock := &testClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	subs := subscription.NewService(subscription.NewMemoryStore(), catalog,
		subscription.WithClock(clock.Now))
	usageSvc := usage.NewService(usage.NewMemoryStore())

	engine := entitlement.NewEngine(subs, usageSvc, catalog,
		entitlement.WithClock(clock.Now))
	return engine, subs, clock
}

func startTrial(t *testing.T, subs *subscription.Service, tenantID uuid.UUID) {
	t.Helper()
	_, err := subs.ActivateTrial(context.Background(), tenantID, "free")
	require.NoError(t, err)
}

func TestEngine_CommitCreate(t *testing.T) {
	t.Parallel()

	t.Run("refuses at the pool limit with the exact count", func(t *testing.T) {
		t.Parallel()
		engine, subs, _ := newTestEngine(t)
		tenantID := uuid.New()
		startTrial(t, subs, tenantID)

		for range 10 {
			require.NoError(t, engine.CommitCreate(context.Background(), tenantID, usage.KindProducts, uuid.Nil))
		}

		err := engine.CommitCreate(context.Background(), tenantID, usage.KindProducts, uuid.Nil)
		require.ErrorIs(t, err, entitlement.ErrQuotaExceeded)
		assert.EqualError(t, err, "Plan limit reached: 10/10 products")
	})

	t.Run("subcategory quota is scoped to the target category", func(t *testing.T) {
		t.Parallel()
		engine, subs, _ := newTestEngine(t)
		tenantID := uuid.New()
		startTrial(t, subs, tenantID)

		catA, catB := uuid.New(), uuid.New()
		for range 5 {
			require.NoError(t, engine.CommitCreate(context.Background(), tenantID, usage.KindSubcategories, catA))
		}
		require.NoError(t, engine.CommitCreate(context.Background(), tenantID, usage.KindSubcategories, catB))
		require.NoError(t, engine.CommitCreate(context.Background(), tenantID, usage.KindSubcategories, catB))

		err := engine.CommitCreate(context.Background(), tenantID, usage.KindSubcategories, catA)
		require.ErrorIs(t, err, entitlement.ErrQuotaExceeded)
		assert.EqualError(t, err, "Plan limit reached: 5/5 subcategories")

		assert.NoError(t, engine.CommitCreate(context.Background(), tenantID, usage.KindSubcategories, catB),
			"a sibling category with headroom stays open")
	})

	t.Run("denies unsubscribed tenants", func(t *testing.T) {
		t.Parallel()
		engine, _, _ := newTestEngine(t)

		err := engine.CommitCreate(context.Background(), uuid.New(), usage.KindProducts, uuid.Nil)
		require.ErrorIs(t, err, entitlement.ErrAccessDenied)
		assert.EqualError(t, err, "No active subscription")
	})

	t.Run("denies creates during the grace period", func(t *testing.T) {
		t.Parallel()
		engine, subs, clock := newTestEngine(t)
		tenantID := uuid.New()
		startTrial(t, subs, tenantID)
		clock.Advance(16 * 24 * time.Hour)

		err := engine.CommitCreate(context.Background(), tenantID, usage.KindProducts, uuid.Nil)
		assert.ErrorIs(t, err, entitlement.ErrAccessDenied)
	})
}

func TestEngine_CommitDelete(t *testing.T) {
	t.Parallel()

	t.Run("works during the grace period", func(t *testing.T) {
		t.Parallel()
		engine, subs, clock := newTestEngine(t)
		tenantID := uuid.New()
		startTrial(t, subs, tenantID)

		require.NoError(t, engine.CommitCreate(context.Background(), tenantID, usage.KindProducts, uuid.Nil))
		clock.Advance(16 * 24 * time.Hour)

		require.NoError(t, engine.CommitDelete(context.Background(), tenantID, usage.KindProducts, uuid.Nil))

		sess, err := engine.Session(context.Background(), tenantID)
		require.NoError(t, err)
		assert.Zero(t, sess.Usage.Products.Used)
	})

	t.Run("refused once the grace period lapses", func(t *testing.T) {
		t.Parallel()
		engine, subs, clock := newTestEngine(t)
		tenantID := uuid.New()
		startTrial(t, subs, tenantID)
		clock.Advance((14 + entitlement.GraceDays + 2) * 24 * time.Hour)

		err := engine.CommitDelete(context.Background(), tenantID, usage.KindProducts, uuid.Nil)
		assert.ErrorIs(t, err, entitlement.ErrAccessDenied)
	})
}

func TestEngine_AuthorizeUpdate(t *testing.T) {
	t.Parallel()

	engine, subs, clock := newTestEngine(t)
	tenantID := uuid.New()
	startTrial(t, subs, tenantID)

	require.NoError(t, engine.AuthorizeUpdate(context.Background(), tenantID))

	clock.Advance(16 * 24 * time.Hour)
	assert.NoError(t, engine.AuthorizeUpdate(context.Background(), tenantID),
		"edits stay open through the grace window")

	clock.Advance(time.Duration(entitlement.GraceDays) * 24 * time.Hour)
	assert.ErrorIs(t, engine.AuthorizeUpdate(context.Background(), tenantID), entitlement.ErrAccessDenied)
}

func TestEngine_Session(t *testing.T) {
	t.Parallel()

	t.Run("bundles subscription, access, and usage", func(t *testing.T) {
		t.Parallel()
		engine, subs, _ := newTestEngine(t)
		tenantID := uuid.New()
		startTrial(t, subs, tenantID)

		require.NoError(t, engine.CommitCreate(context.Background(), tenantID, usage.KindProducts, uuid.Nil))

		sess, err := engine.Session(context.Background(), tenantID)
		require.NoError(t, err)

		require.NotNil(t, sess.Subscription)
		assert.Equal(t, subscription.StatusTrialing, sess.Subscription.Status)
		assert.True(t, sess.Access.HasAccess)
		assert.Equal(t, int64(1), sess.Usage.Products.Used)
		assert.Equal(t, int64(10), sess.Usage.Products.Limit)
	})

	t.Run("unsubscribed tenant gets a denial, not an error", func(t *testing.T) {
		t.Parallel()
		engine, _, _ := newTestEngine(t)

		sess, err := engine.Session(context.Background(), uuid.New())
		require.NoError(t, err)

		assert.Nil(t, sess.Subscription)
		assert.False(t, sess.Access.HasAccess)
		assert.Equal(t, "No active subscription", sess.Access.Message)
	})

	t.Run("lazily expires an overdue subscription", func(t *testing.T) {
		t.Parallel()
		engine, subs, clock := newTestEngine(t)
		tenantID := uuid.New()
		startTrial(t, subs, tenantID)
		clock.Advance(15 * 24 * time.Hour)

		sess, err := engine.Session(context.Background(), tenantID)
		require.NoError(t, err)

		require.NotNil(t, sess.Subscription)
		assert.Equal(t, subscription.StatusExpired, sess.Subscription.Status)
		assert.True(t, sess.Access.IsInGracePeriod)
	})
}
