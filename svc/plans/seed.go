package plans

import "context"

// StaticSource adapts a fixed plan slice to the Source interface.
type StaticSource []Plan

// Load returns the static plans.
func (s StaticSource) Load(_ context.Context) ([]Plan, error) {
	out := make([]Plan, len(s))
	copy(out, s)
	return out, nil
}

// DefaultPlans returns the canonical starter set installed by SeedDefaults.
func DefaultPlans() []Plan {
	return []Plan{
		{
			ID:          "free-trial",
			Name:        "Free Trial",
			Description: "Try the platform for 14 days.",
			Price:       Money{Amount: 0, Currency: "USD"},
			Interval:    IntervalMonthly,
			TrialDays:   14,
			Limits: map[Resource]int64{
				ResourceProducts:                 10,
				ResourceCategories:               3,
				ResourceSubcategoriesPerCategory: 3,
				ResourceOrders:                   20,
			},
			Active: true,
		},
		{
			ID:          "starter",
			Name:        "Starter",
			Description: "For new stores finding their footing.",
			Price:       Money{Amount: 1900, Currency: "USD"},
			Interval:    IntervalMonthly,
			Limits: map[Resource]int64{
				ResourceProducts:                 100,
				ResourceCategories:               10,
				ResourceSubcategoriesPerCategory: 5,
				ResourceOrders:                   500,
			},
			Active: true,
		},
		{
			ID:          "growth",
			Name:        "Growth",
			Description: "For stores that outgrew Starter.",
			Price:       Money{Amount: 4900, Currency: "USD"},
			Interval:    IntervalMonthly,
			Limits: map[Resource]int64{
				ResourceProducts:                 1000,
				ResourceCategories:               50,
				ResourceSubcategoriesPerCategory: 10,
				ResourceOrders:                   Unlimited,
			},
			Features: []Feature{FeatureCustomDomain},
			Active:   true,
		},
	}
}
