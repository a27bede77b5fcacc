package entitlement

import (
	"fmt"
	"time"

	"github.com/storekit/storekit/svc/plans"
	"github.com/storekit/storekit/svc/subscription"
	"github.com/storekit/storekit/svc/usage"
)

// Evaluate computes the access decision for one tenant. Pure: no I/O, no
// clock reads, no mutation. A trialing or active subscription past its end
// date is judged as expired even if the lazy-expire write has not landed
// yet, so a stale status cannot widen access.
func Evaluate(sub *subscription.Subscription, snap usage.Snapshot, now time.Time) AccessDecision {
	if sub == nil {
		return AccessDecision{CanCreate: noCreate(), Message: "No active subscription"}
	}

	status := sub.Status
	if (status == subscription.StatusTrialing || status == subscription.StatusActive) && now.After(sub.EndsAt) {
		status = subscription.StatusExpired
	}

	switch status {
	case subscription.StatusCancelled:
		if now.After(sub.EndsAt) {
			return AccessDecision{CanCreate: noCreate(), Message: "No active subscription"}
		}
		dec := grantedDecision(sub, snap, now)
		if dec.Message == "" {
			dec.Message = fmt.Sprintf("Subscription cancelled, access until %s", sub.EndsAt.Format("Jan 2, 2006"))
		}
		return dec

	case subscription.StatusExpired:
		days := sub.DaysSinceExpiryAt(now)
		if days > GraceDays {
			return AccessDecision{CanCreate: noCreate(), Message: "Subscription expired"}
		}
		left := GraceDays - days
		return AccessDecision{
			HasAccess:                true,
			CanCreate:                noCreate(),
			CanUpdate:                true,
			CanDelete:                true,
			IsInGracePeriod:          true,
			GracePeriodDaysRemaining: left,
			Message:                  fmt.Sprintf("Subscription expired, grace period ends in %d days", left),
		}

	case subscription.StatusTrialing, subscription.StatusActive:
		dec := grantedDecision(sub, snap, now)
		if dec.Message == "" {
			if status == subscription.StatusTrialing {
				dec.Message = fmt.Sprintf("Trial ends in %d days", dec.DaysRemaining)
			} else {
				dec.Message = "Subscription active"
			}
		}
		return dec

	default:
		return AccessDecision{CanCreate: noCreate(), Message: "No active subscription"}
	}
}

// grantedDecision builds the in-good-standing decision: full access, creates
// gated per pool. The message is left empty unless a pool is exhausted, so
// the caller can fill in the status-specific summary.
func grantedDecision(sub *subscription.Subscription, snap usage.Snapshot, now time.Time) AccessDecision {
	dec := AccessDecision{
		HasAccess:     true,
		CanCreate:     noCreate(),
		CanUpdate:     true,
		CanDelete:     true,
		DaysRemaining: sub.DaysRemainingAt(now),
	}

	for _, kind := range []usage.Kind{usage.KindProducts, usage.KindCategories, usage.KindOrders} {
		pool, _ := snap.PoolFor(kind)
		dec.CanCreate[kind] = pool.HasHeadroom()
		if !pool.HasHeadroom() && dec.Message == "" {
			dec.Message = LimitReachedMessage(pool.Used, pool.Limit, kind)
		}
	}

	sc := snap.Subcategories
	dec.CanCreate[usage.KindSubcategories] = sc.Limit == plans.Unlimited || sc.MaxUsed < sc.Limit
	if !dec.CanCreate[usage.KindSubcategories] && dec.Message == "" {
		dec.Message = LimitReachedMessage(sc.MaxUsed, sc.Limit, usage.KindSubcategories)
	}
	return dec
}

// LimitReachedMessage renders the quota-refusal text surfaced verbatim to
// clients, e.g. "Plan limit reached: 10/10 products".
func LimitReachedMessage(used, limit int64, kind usage.Kind) string {
	return fmt.Sprintf("Plan limit reached: %d/%d %s", used, limit, kind)
}
