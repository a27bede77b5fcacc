// Package subscription owns the per-tenant subscription lifecycle: trial,
// activation, upgrade, deferred downgrade, renewal, lazy expiry, and
// deferred cancellation. Expiry is evaluated lazily at access-check time;
// no background scheduler is involved.
package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/storekit/storekit/pkg/tenantlock"
	"github.com/storekit/storekit/svc/billing"
	"github.com/storekit/storekit/svc/plans"
)

// NotifyFunc delivers an in-app notification to a tenant's owner. Optional.
type NotifyFunc func(ctx context.Context, tenantID uuid.UUID, title, message string)

// PlanChange is the outcome of a plan-change request. When RequiresPayment
// is set the subscription is not written yet: the checkout link must be
// completed and the billing webhook will finish the transition.
type PlanChange struct {
	PlanID          string        `json:"plan_id"`
	PlanName        string        `json:"plan_name"`
	Amount          int64         `json:"amount"`
	Currency        string        `json:"currency"`
	RequiresPayment bool          `json:"requires_payment"`
	CheckoutURL     string        `json:"checkout_url,omitempty"`
	Subscription    *Subscription `json:"subscription,omitempty"`
}

// Service coordinates lifecycle transitions. All mutations run under the
// tenant's lock so concurrent requests cannot interleave read-check-write
// sequences.
type Service struct {
	store    Store
	catalog  *plans.Catalog
	provider billing.Provider
	locks    *tenantlock.Map
	log      *slog.Logger
	notify   NotifyFunc
	now      func() time.Time
}

// Option configures the Service.
type Option func(*Service)

// WithBilling wires the payment provider used for priced plans.
func WithBilling(p billing.Provider) Option {
	return func(s *Service) { s.provider = p }
}

// WithLocks shares a lock map with other components serializing on the same
// tenants (the entitlement engine must use the same map).
func WithLocks(locks *tenantlock.Map) Option {
	return func(s *Service) { s.locks = locks }
}

func WithLogger(log *slog.Logger) Option {
	return func(s *Service) { s.log = log }
}

// WithNotifier wires in-app notifications for lifecycle events.
func WithNotifier(fn NotifyFunc) Option {
	return func(s *Service) { s.notify = fn }
}

// WithClock overrides the time source. Test use only.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a lifecycle Service.
// Panics if store or catalog is nil to fail fast during initialization.
func NewService(store Store, catalog *plans.Catalog, opts ...Option) *Service {
	if store == nil {
		panic("subscription: Store is required")
	}
	if catalog == nil {
		panic("subscription: plan catalog is required")
	}
	s := &Service{
		store:   store,
		catalog: catalog,
		locks:   tenantlock.New(),
		log:     slog.New(slog.DiscardHandler),
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Locks exposes the tenant lock map so the entitlement engine can serialize
// on the same locks.
func (s *Service) Locks() *tenantlock.Map {
	return s.locks
}

// Current returns the tenant's subscription with lazy expiry applied and
// persisted. Returns ErrSubscriptionNotFound for unsubscribed tenants.
func (s *Service) Current(ctx context.Context, tenantID uuid.UUID) (*Subscription, error) {
	unlock := s.locks.Lock(tenantID)
	defer unlock()
	return s.Reconcile(ctx, tenantID)
}

// CountByPlan adapts the store's reference count to the catalog's
// RefCounter, guarding plan deletion.
func (s *Service) CountByPlan(ctx context.Context, planID string) (int64, error) {
	return s.store.CountByPlan(ctx, planID)
}

// ActivateTrial starts the tenant's one free trial on the given plan.
func (s *Service) ActivateTrial(ctx context.Context, tenantID uuid.UUID, planID string) (*Subscription, error) {
	unlock := s.locks.Lock(tenantID)
	defer unlock()

	// Trial history is checked before the state table so a second attempt
	// reports the real reason: the one free trial is spent.
	used, err := s.store.HasUsedTrial(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if used {
		return nil, ErrTrialAlreadyUsed
	}

	existing, err := s.store.Get(ctx, tenantID)
	if err != nil && !errors.Is(err, ErrSubscriptionNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, &TransitionError{From: existing.Status, Event: EventActivateTrial}
	}

	plan, err := s.catalog.Get(ctx, planID)
	if err != nil {
		return nil, err
	}
	if plan.TrialDays <= 0 {
		return nil, ErrTrialNotAvailable
	}

	now := s.now()
	trialEnd := plan.TrialEndsAt(now)
	sub := &Subscription{
		ID:          uuid.New(),
		TenantID:    tenantID,
		PlanID:      plan.ID,
		Status:      StatusTrialing,
		StartedAt:   now,
		EndsAt:      trialEnd,
		TrialEndsAt: &trialEnd,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Save(ctx, sub); err != nil {
		return nil, err
	}
	if err := s.store.RecordTrialUse(ctx, tenantID); err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "trial activated",
		slog.String("tenant_id", tenantID.String()),
		slog.String("plan_id", plan.ID))
	s.sendNotification(ctx, tenantID, "Trial started",
		fmt.Sprintf("Your %d-day free trial of %s has started.", plan.TrialDays, plan.Name))
	return sub, nil
}

// SelectPlan subscribes an unsubscribed (or lapsed) tenant to a plan. Free
// plans activate immediately; priced plans return a checkout link and write
// nothing until the payment webhook confirms.
func (s *Service) SelectPlan(ctx context.Context, tenantID uuid.UUID, planID string) (*PlanChange, error) {
	unlock := s.locks.Lock(tenantID)
	defer unlock()

	existing, err := s.Reconcile(ctx, tenantID)
	if err != nil && !errors.Is(err, ErrSubscriptionNotFound) {
		return nil, err
	}

	from := StatusNone
	if existing != nil {
		from = existing.Status
		// A cancelled subscription still grants access until period
		// end; selecting a new plan before then is an upgrade concern,
		// not a fresh sign-up.
		if existing.Status == StatusCancelled && s.now().Before(existing.EndsAt) {
			return nil, &TransitionError{From: from, Event: EventSelectPlan}
		}
	}
	if err := canFire(from, EventSelectPlan); err != nil {
		return nil, err
	}

	plan, err := s.activePlan(ctx, planID)
	if err != nil {
		return nil, err
	}

	if !plan.IsFree() {
		return s.checkout(ctx, tenantID, plan)
	}

	now := s.now()
	sub := existing
	if sub == nil {
		sub = &Subscription{ID: uuid.New(), TenantID: tenantID, CreatedAt: now}
	}
	sub.PlanID = plan.ID
	sub.PendingPlanID = ""
	sub.Status = StatusActive
	sub.StartedAt = now
	sub.EndsAt = plan.PeriodEnd(now)
	sub.CancelledAt = nil
	sub.UpdatedAt = now
	if err := s.store.Save(ctx, sub); err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "plan selected",
		slog.String("tenant_id", tenantID.String()),
		slog.String("plan_id", plan.ID))
	return &PlanChange{
		PlanID:       plan.ID,
		PlanName:     plan.Name,
		Amount:       plan.Price.Amount,
		Currency:     plan.Price.Currency,
		Subscription: sub,
	}, nil
}

// Upgrade moves a trialing or active tenant to a new plan effective
// immediately. Proration is a billing concern outside this engine; usage is
// re-evaluated against the new plan's limits on the next access check.
func (s *Service) Upgrade(ctx context.Context, tenantID uuid.UUID, planID string) (*Subscription, error) {
	unlock := s.locks.Lock(tenantID)
	defer unlock()

	sub, err := s.Reconcile(ctx, tenantID)
	if err != nil {
		if errors.Is(err, ErrSubscriptionNotFound) {
			return nil, &TransitionError{From: StatusNone, Event: EventUpgrade}
		}
		return nil, err
	}
	if err := canFire(sub.Status, EventUpgrade); err != nil {
		return nil, err
	}

	plan, err := s.activePlan(ctx, planID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	wasTrialing := sub.IsTrialing()
	sub.PlanID = plan.ID
	sub.PendingPlanID = ""
	sub.Status = StatusActive
	if wasTrialing {
		// Leaving trial starts the first real billing period.
		sub.StartedAt = now
		sub.EndsAt = plan.PeriodEnd(now)
	}
	sub.UpdatedAt = now
	if err := s.store.Save(ctx, sub); err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "plan upgraded",
		slog.String("tenant_id", tenantID.String()),
		slog.String("plan_id", plan.ID))
	s.sendNotification(ctx, tenantID, "Plan upgraded",
		fmt.Sprintf("Your store is now on the %s plan.", plan.Name))
	return sub, nil
}

// Downgrade schedules a move to a cheaper plan at the end of the current
// period. Until then evaluation keeps using the current plan's quotas, so a
// tenant within old limits but over new ones is not abruptly broken.
func (s *Service) Downgrade(ctx context.Context, tenantID uuid.UUID, planID string) (*Subscription, error) {
	unlock := s.locks.Lock(tenantID)
	defer unlock()

	sub, err := s.Reconcile(ctx, tenantID)
	if err != nil {
		if errors.Is(err, ErrSubscriptionNotFound) {
			return nil, &TransitionError{From: StatusNone, Event: EventDowngrade}
		}
		return nil, err
	}
	if err := canFire(sub.Status, EventDowngrade); err != nil {
		return nil, err
	}

	plan, err := s.activePlan(ctx, planID)
	if err != nil {
		return nil, err
	}

	sub.PendingPlanID = plan.ID
	sub.UpdatedAt = s.now()
	if err := s.store.Save(ctx, sub); err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "downgrade scheduled",
		slog.String("tenant_id", tenantID.String()),
		slog.String("plan_id", plan.ID),
		slog.Time("effective_at", sub.EndsAt))
	s.sendNotification(ctx, tenantID, "Downgrade scheduled",
		fmt.Sprintf("Your store moves to the %s plan on %s.", plan.Name, sub.EndsAt.Format("Jan 2, 2006")))
	return sub, nil
}

// Renew extends an active subscription by one interval, applying any
// pending downgrade at the period boundary. An expired subscription renews
// immediately for free plans and through payment confirmation otherwise.
func (s *Service) Renew(ctx context.Context, tenantID uuid.UUID) (*PlanChange, error) {
	unlock := s.locks.Lock(tenantID)
	defer unlock()

	sub, err := s.Reconcile(ctx, tenantID)
	if err != nil {
		if errors.Is(err, ErrSubscriptionNotFound) {
			return nil, &TransitionError{From: StatusNone, Event: EventRenew}
		}
		return nil, err
	}
	if err := canFire(sub.Status, EventRenew); err != nil {
		return nil, err
	}

	// The pending downgrade takes effect at the boundary being renewed
	// across.
	planID := sub.PlanID
	if sub.PendingPlanID != "" {
		planID = sub.PendingPlanID
	}
	plan, err := s.catalog.Get(ctx, planID)
	if err != nil {
		return nil, err
	}

	if sub.IsExpired() && !plan.IsFree() {
		return s.checkout(ctx, tenantID, plan)
	}

	now := s.now()
	sub.PlanID = plan.ID
	sub.PendingPlanID = ""
	if sub.IsExpired() {
		// Re-entry from expired starts a fresh period from now, not
		// from the lapsed end date.
		sub.Status = StatusActive
		sub.EndsAt = plan.PeriodEnd(now)
	} else {
		sub.EndsAt = plan.PeriodEnd(sub.EndsAt)
	}
	sub.UpdatedAt = now
	if err := s.store.Save(ctx, sub); err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "subscription renewed",
		slog.String("tenant_id", tenantID.String()),
		slog.String("plan_id", plan.ID),
		slog.Time("ends_at", sub.EndsAt))
	return &PlanChange{
		PlanID:       plan.ID,
		PlanName:     plan.Name,
		Amount:       plan.Price.Amount,
		Currency:     plan.Price.Currency,
		Subscription: sub,
	}, nil
}

// Cancel stops renewal. The tenant keeps access until the period end,
// matching the downgrade's deferred-effect policy.
func (s *Service) Cancel(ctx context.Context, tenantID uuid.UUID) (*Subscription, error) {
	unlock := s.locks.Lock(tenantID)
	defer unlock()

	sub, err := s.Reconcile(ctx, tenantID)
	if err != nil {
		if errors.Is(err, ErrSubscriptionNotFound) {
			return nil, &TransitionError{From: StatusNone, Event: EventCancel}
		}
		return nil, err
	}
	if err := canFire(sub.Status, EventCancel); err != nil {
		return nil, err
	}

	now := s.now()
	sub.Status = StatusCancelled
	sub.CancelledAt = &now
	sub.UpdatedAt = now
	if err := s.store.Save(ctx, sub); err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "subscription cancelled",
		slog.String("tenant_id", tenantID.String()),
		slog.Time("access_until", sub.EndsAt))
	s.sendNotification(ctx, tenantID, "Subscription cancelled",
		fmt.Sprintf("Your store keeps access until %s.", sub.EndsAt.Format("Jan 2, 2006")))
	return sub, nil
}

// ConfirmPayment completes a pending plan selection or renewal once the
// billing provider reports payment. Called from the webhook handler; safe
// to replay.
func (s *Service) ConfirmPayment(ctx context.Context, tenantID uuid.UUID, planID string) (*Subscription, error) {
	unlock := s.locks.Lock(tenantID)
	defer unlock()

	plan, err := s.catalog.Get(ctx, planID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	sub, err := s.store.Get(ctx, tenantID)
	if err != nil && !errors.Is(err, ErrSubscriptionNotFound) {
		return nil, err
	}

	if sub == nil {
		sub = &Subscription{ID: uuid.New(), TenantID: tenantID, StartedAt: now, CreatedAt: now}
	}
	if sub.IsActive() && sub.PlanID == plan.ID && now.Before(sub.EndsAt) {
		// Webhook replay for an already-confirmed payment.
		return sub, nil
	}

	sub.PlanID = plan.ID
	sub.PendingPlanID = ""
	sub.Status = StatusActive
	sub.EndsAt = plan.PeriodEnd(now)
	sub.CancelledAt = nil
	sub.UpdatedAt = now
	if err := s.store.Save(ctx, sub); err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "payment confirmed",
		slog.String("tenant_id", tenantID.String()),
		slog.String("plan_id", plan.ID))
	s.sendNotification(ctx, tenantID, "Payment received",
		fmt.Sprintf("Your store is now on the %s plan.", plan.Name))
	return sub, nil
}

// Reconcile loads the subscription and applies lazy expiry, persisting the
// transition at most once. It does not take the tenant lock: callers must
// hold it already, via Locks or one of the public methods.
func (s *Service) Reconcile(ctx context.Context, tenantID uuid.UUID) (*Subscription, error) {
	sub, err := s.store.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if sub.ExpireIfDue(s.now()) {
		if err := s.store.Save(ctx, sub); err != nil {
			return nil, err
		}
		s.log.InfoContext(ctx, "subscription expired",
			slog.String("tenant_id", tenantID.String()),
			slog.String("plan_id", sub.PlanID))
	}
	return sub, nil
}

// activePlan resolves a plan that is currently sellable. Inactive plans are
// invisible to tenant-initiated changes even though existing subscribers
// keep them.
func (s *Service) activePlan(ctx context.Context, planID string) (plans.Plan, error) {
	plan, err := s.catalog.Get(ctx, planID)
	if err != nil {
		return plans.Plan{}, err
	}
	if !plan.Active {
		return plans.Plan{}, plans.ErrPlanNotFound
	}
	return plan, nil
}

// checkout builds the payment-required response for a priced plan.
func (s *Service) checkout(ctx context.Context, tenantID uuid.UUID, plan plans.Plan) (*PlanChange, error) {
	if s.provider == nil {
		return nil, ErrBillingNotConfigured
	}
	link, err := s.provider.CreateCheckoutLink(ctx, billing.CheckoutRequest{
		PriceID:  plan.ProviderPriceID,
		TenantID: tenantID.String(),
		PlanID:   plan.ID,
	})
	if err != nil {
		return nil, err
	}
	return &PlanChange{
		PlanID:          plan.ID,
		PlanName:        plan.Name,
		Amount:          plan.Price.Amount,
		Currency:        plan.Price.Currency,
		RequiresPayment: true,
		CheckoutURL:     link.URL,
	}, nil
}

func (s *Service) sendNotification(ctx context.Context, tenantID uuid.UUID, title, message string) {
	if s.notify != nil {
		s.notify(ctx, tenantID, title, message)
	}
}
