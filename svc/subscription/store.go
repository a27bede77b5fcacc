package subscription

import (
	"context"

	"github.com/google/uuid"
)

// Store defines subscription persistence. Each tenant has exactly one
// current subscription, so TenantID serves as the lookup key.
//
// Trial usage is tracked independently of the current record: a tenant may
// use the free trial exactly once, even after the trial subscription itself
// has been replaced.
type Store interface {
	// Get retrieves the tenant's current subscription.
	// Returns ErrSubscriptionNotFound if no subscription exists.
	Get(ctx context.Context, tenantID uuid.UUID) (*Subscription, error)

	// Save creates or updates the tenant's subscription.
	Save(ctx context.Context, sub *Subscription) error

	// HasUsedTrial reports whether the tenant has ever held a trial.
	HasUsedTrial(ctx context.Context, tenantID uuid.UUID) (bool, error)

	// RecordTrialUse marks the tenant's one free trial as consumed.
	// Idempotent.
	RecordTrialUse(ctx context.Context, tenantID uuid.UUID) error

	// CountByPlan returns how many subscriptions reference a plan,
	// regardless of status. Guards plan deletion.
	CountByPlan(ctx context.Context, planID string) (int64, error)
}
