package plans_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/storekit/storekit/svc/plans"
)

func TestPlan_LimitFor(t *testing.T) {
	t.Parallel()

	plan := plans.Plan{Limits: map[plans.Resource]int64{
		plans.ResourceProducts: 10,
		plans.ResourceOrders:   plans.Unlimited,
	}}

	assert.Equal(t, int64(10), plan.LimitFor(plans.ResourceProducts))
	assert.Equal(t, plans.Unlimited, plan.LimitFor(plans.ResourceOrders))
	assert.Equal(t, int64(0), plan.LimitFor(plans.ResourceCategories), "unlisted resources are forbidden")
}

func TestPlan_PeriodEnd(t *testing.T) {
	t.Parallel()

	from := time.Date(2025, 1, 31, 10, 0, 0, 0, time.UTC)

	monthly := plans.Plan{Interval: plans.IntervalMonthly}
	yearly := plans.Plan{Interval: plans.IntervalYearly}

	assert.Equal(t, time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC), monthly.PeriodEnd(from),
		"AddDate normalizes Jan 31 + 1 month")
	assert.Equal(t, time.Date(2026, 1, 31, 10, 0, 0, 0, time.UTC), yearly.PeriodEnd(from))
}

func TestPlan_TrialEndsAt(t *testing.T) {
	t.Parallel()

	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	withTrial := plans.Plan{TrialDays: 14}
	assert.Equal(t, start.AddDate(0, 0, 14), withTrial.TrialEndsAt(start))

	noTrial := plans.Plan{}
	assert.Equal(t, start, noTrial.TrialEndsAt(start))
}

func TestPlan_Validate(t *testing.T) {
	t.Parallel()

	valid := plans.Plan{
		ID:       "starter",
		Name:     "Starter",
		Price:    plans.Money{Amount: 1900, Currency: "USD"},
		Interval: plans.IntervalMonthly,
		Limits:   map[plans.Resource]int64{plans.ResourceProducts: 100},
	}
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*plans.Plan)
	}{
		{"empty id", func(p *plans.Plan) { p.ID = "" }},
		{"empty name", func(p *plans.Plan) { p.Name = "" }},
		{"negative trial days", func(p *plans.Plan) { p.TrialDays = -1 }},
		{"negative price", func(p *plans.Plan) { p.Price.Amount = -100 }},
		{"price without currency", func(p *plans.Plan) { p.Price.Currency = "" }},
		{"bad interval", func(p *plans.Plan) { p.Interval = "weekly" }},
		{"limit below unlimited", func(p *plans.Plan) { p.Limits[plans.ResourceProducts] = -2 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			plan := valid
			plan.Limits = map[plans.Resource]int64{plans.ResourceProducts: 100}
			tt.mutate(&plan)
			assert.ErrorIs(t, plan.Validate(), plans.ErrInvalidPlanConfiguration)
		})
	}
}

func TestPlan_HasFeature(t *testing.T) {
	t.Parallel()

	plan := plans.Plan{Features: []plans.Feature{plans.FeatureCustomDomain}}
	assert.True(t, plan.HasFeature(plans.FeatureCustomDomain))
	assert.False(t, plans.Plan{}.HasFeature(plans.FeatureCustomDomain))
}
