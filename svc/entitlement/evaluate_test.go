package entitlement_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/storekit/storekit/svc/entitlement"
	"github.com/storekit/storekit/svc/plans"
	"github.com/storekit/storekit/svc/subscription"
	"github.com/storekit/storekit/svc/usage"
)

var now = time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)

func activeSub(status subscription.Status, endsAt time.Time) *subscription.Subscription {
	return &subscription.Subscription{
		ID:       uuid.New(),
		TenantID: uuid.New(),
		PlanID:   "starter",
		Status:   status,
		EndsAt:   endsAt,
	}
}

func openSnapshot() usage.Snapshot {
	return usage.Snapshot{
		Products:      usage.Pool{Used: 2, Limit: 10, Remaining: 8},
		Categories:    usage.Pool{Used: 1, Limit: 3, Remaining: 2},
		Orders:        usage.Pool{Used: 0, Limit: plans.Unlimited, Remaining: plans.Unlimited},
		Subcategories: usage.PerCategory{MaxUsed: 1, Limit: 5},
	}
}

func TestEvaluate_NoSubscription(t *testing.T) {
	t.Parallel()

	dec := entitlement.Evaluate(nil, usage.Snapshot{}, now)

	assert.False(t, dec.HasAccess)
	assert.False(t, dec.CanUpdate)
	assert.False(t, dec.CanDelete)
	assert.False(t, dec.AllowsCreate(usage.KindProducts))
	assert.Equal(t, "No active subscription", dec.Message)
}

func TestEvaluate_ActiveWithinPeriod(t *testing.T) {
	t.Parallel()

	sub := activeSub(subscription.StatusActive, now.AddDate(0, 0, 10))
	dec := entitlement.Evaluate(sub, openSnapshot(), now)

	assert.True(t, dec.HasAccess)
	assert.True(t, dec.CanUpdate)
	assert.True(t, dec.CanDelete)
	assert.True(t, dec.AllowsCreate(usage.KindProducts))
	assert.True(t, dec.AllowsCreate(usage.KindOrders))
	assert.Equal(t, 10, dec.DaysRemaining)
	assert.Equal(t, "Subscription active", dec.Message)
}

func TestEvaluate_TrialMessage(t *testing.T) {
	t.Parallel()

	sub := activeSub(subscription.StatusTrialing, now.AddDate(0, 0, 3))
	dec := entitlement.Evaluate(sub, openSnapshot(), now)

	assert.True(t, dec.HasAccess)
	assert.Equal(t, "Trial ends in 3 days", dec.Message)
}

func TestEvaluate_ExhaustedPool(t *testing.T) {
	t.Parallel()

	snap := openSnapshot()
	snap.Products = usage.Pool{Used: 10, Limit: 10, Remaining: 0}

	sub := activeSub(subscription.StatusActive, now.AddDate(0, 0, 10))
	dec := entitlement.Evaluate(sub, snap, now)

	assert.True(t, dec.HasAccess)
	assert.False(t, dec.AllowsCreate(usage.KindProducts))
	assert.True(t, dec.AllowsCreate(usage.KindCategories))
	assert.Contains(t, dec.Message, "10/10")
	assert.Equal(t, "Plan limit reached: 10/10 products", dec.Message)
}

func TestEvaluate_StaleStatusJudgedExpired(t *testing.T) {
	t.Parallel()

	// Status still says active but the period is over: the decision must
	// follow the dates, not the unwritten lazy-expire transition.
	sub := activeSub(subscription.StatusActive, now.AddDate(0, 0, -1))
	dec := entitlement.Evaluate(sub, openSnapshot(), now)

	assert.True(t, dec.HasAccess)
	assert.True(t, dec.IsInGracePeriod)
	assert.False(t, dec.AllowsCreate(usage.KindProducts))
}

func TestEvaluate_GracePeriod(t *testing.T) {
	t.Parallel()

	t.Run("inside the window", func(t *testing.T) {
		t.Parallel()
		sub := activeSub(subscription.StatusExpired, now.AddDate(0, 0, -3))
		dec := entitlement.Evaluate(sub, openSnapshot(), now)

		assert.True(t, dec.HasAccess)
		assert.True(t, dec.IsInGracePeriod)
		assert.Equal(t, entitlement.GraceDays-3, dec.GracePeriodDaysRemaining)
		assert.False(t, dec.AllowsCreate(usage.KindProducts), "no new resources while lapsed")
		assert.True(t, dec.CanUpdate)
		assert.True(t, dec.CanDelete)
	})

	t.Run("at exactly the boundary", func(t *testing.T) {
		t.Parallel()
		sub := activeSub(subscription.StatusExpired, now.AddDate(0, 0, -entitlement.GraceDays))
		dec := entitlement.Evaluate(sub, openSnapshot(), now)

		assert.True(t, dec.HasAccess)
		assert.True(t, dec.IsInGracePeriod)
		assert.Equal(t, 0, dec.GracePeriodDaysRemaining)
	})

	t.Run("one day past the boundary", func(t *testing.T) {
		t.Parallel()
		sub := activeSub(subscription.StatusExpired, now.AddDate(0, 0, -(entitlement.GraceDays+1)))
		dec := entitlement.Evaluate(sub, openSnapshot(), now)

		assert.False(t, dec.HasAccess)
		assert.False(t, dec.IsInGracePeriod)
		assert.False(t, dec.CanUpdate)
		assert.False(t, dec.CanDelete)
	})
}

func TestEvaluate_Cancelled(t *testing.T) {
	t.Parallel()

	t.Run("keeps access until period end", func(t *testing.T) {
		t.Parallel()
		sub := activeSub(subscription.StatusCancelled, now.AddDate(0, 0, 5))
		dec := entitlement.Evaluate(sub, openSnapshot(), now)

		assert.True(t, dec.HasAccess)
		assert.True(t, dec.AllowsCreate(usage.KindProducts))
		assert.Contains(t, dec.Message, "cancelled")
	})

	t.Run("loses access after period end", func(t *testing.T) {
		t.Parallel()
		sub := activeSub(subscription.StatusCancelled, now.AddDate(0, 0, -1))
		dec := entitlement.Evaluate(sub, openSnapshot(), now)

		assert.False(t, dec.HasAccess)
		assert.Equal(t, "No active subscription", dec.Message)
	})
}

func TestEvaluate_SubcategoryBundleFlag(t *testing.T) {
	t.Parallel()

	snap := openSnapshot()
	snap.Subcategories = usage.PerCategory{MaxUsed: 5, Limit: 5}

	sub := activeSub(subscription.StatusActive, now.AddDate(0, 0, 10))
	dec := entitlement.Evaluate(sub, snap, now)

	// The bundle flag reflects the worst-filled category; a specific
	// category may still have headroom and is checked at the write path.
	assert.False(t, dec.AllowsCreate(usage.KindSubcategories))
	assert.Equal(t,
		fmt.Sprintf("Plan limit reached: %d/%d %s", 5, 5, usage.KindSubcategories),
		dec.Message)
}

func TestEvaluate_ActiveImpliesAccess(t *testing.T) {
	t.Parallel()

	// Property: every active subscription within its period has access,
	// whatever the usage looks like.
	snaps := []usage.Snapshot{
		{},
		openSnapshot(),
		{Products: usage.Pool{Used: 100, Limit: 10, Remaining: -90}},
	}
	for i, snap := range snaps {
		sub := activeSub(subscription.StatusActive, now.Add(time.Minute))
		dec := entitlement.Evaluate(sub, snap, now)
		assert.True(t, dec.HasAccess, "snapshot %d", i)
	}
}
