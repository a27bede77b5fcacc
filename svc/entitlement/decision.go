// Package entitlement answers whether a tenant's attempted mutation is
// allowed. The evaluator is a pure function of (subscription, usage, now);
// the engine wraps it with per-tenant locking, lazy expiry, and usage
// commits so check-then-write sequences cannot race.
package entitlement

import "github.com/storekit/storekit/svc/usage"

// GraceDays is the platform-wide window after expiry during which a tenant
// may still update and delete existing data, but not create new resources.
const GraceDays = 7

// AccessDecision is the evaluator's output. It is never persisted;
// every evaluation recomputes it from current state.
type AccessDecision struct {
	HasAccess                bool                `json:"has_access"`
	CanCreate                map[usage.Kind]bool `json:"can_create"`
	CanUpdate                bool                `json:"can_update"`
	CanDelete                bool                `json:"can_delete"`
	IsInGracePeriod          bool                `json:"is_in_grace_period"`
	GracePeriodDaysRemaining int                 `json:"grace_period_days_remaining"`
	DaysRemaining            int                 `json:"days_remaining"`
	Message                  string              `json:"message"`
}

// AllowsCreate reports the bundle's create flag for a kind. For
// subcategories this reflects the worst-filled category; the authoritative
// per-category check happens at the write path.
func (d AccessDecision) AllowsCreate(kind usage.Kind) bool {
	return d.CanCreate[kind]
}

func noCreate() map[usage.Kind]bool {
	return map[usage.Kind]bool{
		usage.KindProducts:      false,
		usage.KindCategories:    false,
		usage.KindSubcategories: false,
		usage.KindOrders:        false,
	}
}
