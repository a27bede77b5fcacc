package subscription

import (
	"time"

	"github.com/google/uuid"
)

// Status represents the current state of a subscription.
type Status string

const (
	StatusTrialing  Status = "trialing"
	StatusActive    Status = "active"
	StatusExpired   Status = "expired"
	StatusCancelled Status = "cancelled"

	// StatusNone marks the pre-state of a tenant with no subscription
	// record. It never appears on a stored record; it exists so
	// transition errors can name the source state.
	StatusNone Status = "none"
)

// Subscription tracks a tenant's relationship to a plan. Each tenant has
// exactly one current subscription; records are never hard-deleted so plan
// history (including trial usage) is retained.
//
// PendingPlanID carries a deferred downgrade: the tenant stays on PlanID
// until the current period ends, so a read during the deferral window is
// unambiguous about which plan's quotas apply.
type Subscription struct {
	ID            uuid.UUID  `json:"id"`
	TenantID      uuid.UUID  `json:"tenant_id"`
	PlanID        string     `json:"plan_id"`
	PendingPlanID string     `json:"pending_plan_id,omitempty"`
	Status        Status     `json:"status"`
	StartedAt     time.Time  `json:"started_at"`
	EndsAt        time.Time  `json:"ends_at"`
	TrialEndsAt   *time.Time `json:"trial_ends_at,omitempty"`
	CancelledAt   *time.Time `json:"cancelled_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func (s *Subscription) IsTrialing() bool {
	return s.Status == StatusTrialing
}

func (s *Subscription) IsActive() bool {
	return s.Status == StatusActive
}

func (s *Subscription) IsExpired() bool {
	return s.Status == StatusExpired
}

func (s *Subscription) IsCancelled() bool {
	return s.Status == StatusCancelled
}

// DaysRemainingAt returns whole days until the period ends, rounded up for
// partial days and clamped to zero. Taking now as a parameter keeps the
// math testable against fixed times.
func (s *Subscription) DaysRemainingAt(now time.Time) int {
	remaining := s.EndsAt.Sub(now)
	if remaining <= 0 {
		return 0
	}
	return int(remaining.Hours()/24 + 0.5)
}

// DaysSinceExpiryAt returns whole days elapsed since the period ended, or 0
// if the period has not ended yet.
func (s *Subscription) DaysSinceExpiryAt(now time.Time) int {
	elapsed := now.Sub(s.EndsAt)
	if elapsed <= 0 {
		return 0
	}
	return int(elapsed.Hours() / 24)
}

// ExpireIfDue applies the lazy expiry transition: a trialing or active
// subscription past its period end becomes expired. Returns true when the
// status changed. Idempotent: calling it on an already-expired subscription
// is a no-op.
func (s *Subscription) ExpireIfDue(now time.Time) bool {
	if s.Status != StatusTrialing && s.Status != StatusActive {
		return false
	}
	if !now.After(s.EndsAt) {
		return false
	}
	s.Status = StatusExpired
	s.UpdatedAt = now.UTC()
	return true
}
