package plans

import (
	"fmt"
	"slices"
	"time"
)

// Resource represents a countable tenant resource kind.
type Resource string

const (
	ResourceProducts   Resource = "products"
	ResourceCategories Resource = "categories"
	ResourceOrders     Resource = "orders"

	// ResourceSubcategoriesPerCategory is a per-parent pool: the limit
	// applies to each category's own subcategories, not to a tenant-wide
	// total.
	ResourceSubcategoriesPerCategory Resource = "subcategories_per_category"
)

// Unlimited indicates no limit for a resource (-1 chosen for SQL compatibility).
const Unlimited int64 = -1

// Feature represents a plan-specific capability that can be enabled per tier.
type Feature string

const (
	FeatureCustomDomain Feature = "custom_domain"
)

// Money represents a monetary amount in the smallest currency unit.
type Money struct {
	Amount   int64  `json:"amount" yaml:"amount"`
	Currency string `json:"currency" yaml:"currency"`
}

// BillingInterval represents the billing frequency for a plan.
type BillingInterval string

const (
	IntervalMonthly BillingInterval = "monthly"
	IntervalYearly  BillingInterval = "yearly"
)

// Plan describes a priced tier and its resource/feature constraints.
// Quotas are evaluated live against the plan record, so editing a plan's
// limits takes effect for all subscribers at their next evaluation.
type Plan struct {
	ID          string             `json:"id" yaml:"id"`
	Name        string             `json:"name" yaml:"name"`
	Description string             `json:"description" yaml:"description"`
	Price       Money              `json:"price" yaml:"price"`
	Interval    BillingInterval    `json:"interval" yaml:"interval"`
	TrialDays   int                `json:"trial_days" yaml:"trial_days"`
	Limits      map[Resource]int64 `json:"limits" yaml:"limits"`
	Features    []Feature          `json:"features" yaml:"features"`
	Active      bool               `json:"active" yaml:"active"`

	// ProviderPriceID maps this plan to the billing provider's price
	// record; empty for plans that never go through checkout.
	ProviderPriceID string `json:"provider_price_id,omitempty" yaml:"provider_price_id"`

	CreatedAt time.Time `json:"created_at" yaml:"-"`
	UpdatedAt time.Time `json:"updated_at" yaml:"-"`
}

// IsFree reports whether the plan activates without payment.
func (p Plan) IsFree() bool {
	return p.Price.Amount == 0
}

// LimitFor returns the limit for a resource kind. Resources the plan does
// not mention are treated as forbidden (limit 0).
func (p Plan) LimitFor(res Resource) int64 {
	limit, ok := p.Limits[res]
	if !ok {
		return 0
	}
	return limit
}

// HasFeature reports whether the plan enables a feature.
func (p Plan) HasFeature(f Feature) bool {
	return slices.Contains(p.Features, f)
}

// TrialEndsAt calculates when a trial started at startedAt ends.
// Returns startedAt unchanged if the plan has no trial.
func (p Plan) TrialEndsAt(startedAt time.Time) time.Time {
	if p.TrialDays <= 0 {
		return startedAt
	}
	return startedAt.AddDate(0, 0, p.TrialDays).UTC()
}

// PeriodEnd returns the end of a billing period starting at from.
func (p Plan) PeriodEnd(from time.Time) time.Time {
	if p.Interval == IntervalYearly {
		return from.AddDate(1, 0, 0).UTC()
	}
	return from.AddDate(0, 1, 0).UTC()
}

// Validate checks the plan configuration for internal consistency.
func (p Plan) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("%w: empty plan ID", ErrInvalidPlanConfiguration)
	}
	if p.Name == "" {
		return fmt.Errorf("%w: plan %s has no name", ErrInvalidPlanConfiguration, p.ID)
	}
	if p.TrialDays < 0 {
		return fmt.Errorf("%w: plan %s has negative trial days: %d", ErrInvalidPlanConfiguration, p.ID, p.TrialDays)
	}
	if p.Price.Amount < 0 {
		return fmt.Errorf("%w: plan %s has negative price", ErrInvalidPlanConfiguration, p.ID)
	}
	if p.Price.Amount > 0 && p.Price.Currency == "" {
		return fmt.Errorf("%w: plan %s has a price without currency", ErrInvalidPlanConfiguration, p.ID)
	}
	switch p.Interval {
	case IntervalMonthly, IntervalYearly:
	default:
		return fmt.Errorf("%w: plan %s has invalid interval %q", ErrInvalidPlanConfiguration, p.ID, p.Interval)
	}
	for res, limit := range p.Limits {
		if limit < Unlimited {
			return fmt.Errorf("%w: plan %s has invalid limit %d for %s", ErrInvalidPlanConfiguration, p.ID, limit, res)
		}
	}
	return nil
}
