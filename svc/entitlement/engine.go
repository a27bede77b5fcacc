package entitlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/storekit/storekit/pkg/tenantlock"
	"github.com/storekit/storekit/svc/plans"
	"github.com/storekit/storekit/svc/subscription"
	"github.com/storekit/storekit/svc/usage"
)

// Session is the full gating bundle a client fetches after authentication.
type Session struct {
	Subscription *subscription.Subscription `json:"subscription"`
	Access       AccessDecision             `json:"access"`
	Usage        usage.Snapshot             `json:"usage"`
}

// Engine is the authoritative write-path gate. It serializes each tenant's
// evaluate-then-commit sequence on the lock map shared with the lifecycle
// service, so a quota check and the usage commit it authorizes are atomic
// per tenant.
type Engine struct {
	subs    *subscription.Service
	usage   *usage.Service
	catalog *plans.Catalog
	locks   *tenantlock.Map
	log     *slog.Logger
	now     func() time.Time
}

// Option configures the Engine.
type Option func(*Engine)

func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithClock overrides the time source. Test use only.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates the engine. It locks on the lifecycle service's own
// lock map; panics if any dependency is nil.
func NewEngine(subs *subscription.Service, usageSvc *usage.Service, catalog *plans.Catalog, opts ...Option) *Engine {
	if subs == nil {
		panic("entitlement: subscription service is required")
	}
	if usageSvc == nil {
		panic("entitlement: usage service is required")
	}
	if catalog == nil {
		panic("entitlement: plan catalog is required")
	}
	e := &Engine{
		subs:    subs,
		usage:   usageSvc,
		catalog: catalog,
		locks:   subs.Locks(),
		log:     slog.New(slog.DiscardHandler),
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Session evaluates the tenant's current entitlements for display. Usage
// comes from the snapshot cache when one is configured; writes invalidate
// it, so staleness is bounded by the cache TTL with no intervening writes.
func (e *Engine) Session(ctx context.Context, tenantID uuid.UUID) (Session, error) {
	unlock := e.locks.Lock(tenantID)
	defer unlock()

	sub, plan, err := e.effective(ctx, tenantID)
	if err != nil {
		return Session{}, err
	}
	snap, err := e.usage.CachedSnapshot(ctx, tenantID, plan)
	if err != nil {
		return Session{}, err
	}
	return Session{
		Subscription: sub,
		Access:       Evaluate(sub, snap, e.now()),
		Usage:        snap,
	}, nil
}

// AuthorizeUpdate checks that the tenant may modify existing resources.
func (e *Engine) AuthorizeUpdate(ctx context.Context, tenantID uuid.UUID) error {
	unlock := e.locks.Lock(tenantID)
	defer unlock()

	dec, _, err := e.decide(ctx, tenantID)
	if err != nil {
		return err
	}
	if !dec.HasAccess || !dec.CanUpdate {
		return denied(ErrAccessDenied, dec.Message)
	}
	return nil
}

// CommitCreate authorizes creating one resource of kind and records it,
// all under the tenant's lock. For subcategories the quota is checked
// against the target category's own count, never a tenant-wide total.
func (e *Engine) CommitCreate(ctx context.Context, tenantID uuid.UUID, kind usage.Kind, categoryID uuid.UUID) error {
	unlock := e.locks.Lock(tenantID)
	defer unlock()

	dec, plan, err := e.decide(ctx, tenantID)
	if err != nil {
		return err
	}
	if !dec.HasAccess || dec.IsInGracePeriod {
		return denied(ErrAccessDenied, dec.Message)
	}

	used, limit, err := e.usage.Headroom(ctx, tenantID, plan, kind, categoryID)
	if err != nil {
		return err
	}
	if limit != plans.Unlimited && used >= limit {
		return denied(ErrQuotaExceeded, LimitReachedMessage(used, limit, kind))
	}

	if err := e.usage.RecordCreate(ctx, tenantID, kind, categoryID); err != nil {
		return fmt.Errorf("record create: %w", err)
	}
	e.log.DebugContext(ctx, "create authorized",
		slog.String("tenant_id", tenantID.String()),
		slog.String("kind", string(kind)))
	return nil
}

// CommitDelete checks delete access and records the removal. Deletes never
// need quota headroom; they only require access (active, cancelled before
// period end, or in the grace window).
func (e *Engine) CommitDelete(ctx context.Context, tenantID uuid.UUID, kind usage.Kind, categoryID uuid.UUID) error {
	unlock := e.locks.Lock(tenantID)
	defer unlock()

	dec, _, err := e.decide(ctx, tenantID)
	if err != nil {
		return err
	}
	if !dec.HasAccess || !dec.CanDelete {
		return denied(ErrAccessDenied, dec.Message)
	}
	if err := e.usage.RecordDelete(ctx, tenantID, kind, categoryID); err != nil {
		return fmt.Errorf("record delete: %w", err)
	}
	return nil
}

// decide evaluates against live counts. Callers must hold the tenant lock.
func (e *Engine) decide(ctx context.Context, tenantID uuid.UUID) (AccessDecision, plans.Plan, error) {
	sub, plan, err := e.effective(ctx, tenantID)
	if err != nil {
		return AccessDecision{}, plans.Plan{}, err
	}
	snap, err := e.usage.Snapshot(ctx, tenantID, plan)
	if err != nil {
		return AccessDecision{}, plans.Plan{}, err
	}
	return Evaluate(sub, snap, e.now()), plan, nil
}

// effective resolves the reconciled subscription and the currently
// effective plan. An unsubscribed tenant gets a nil subscription and the
// zero plan, whose limits are all zero.
func (e *Engine) effective(ctx context.Context, tenantID uuid.UUID) (*subscription.Subscription, plans.Plan, error) {
	sub, err := e.subs.Reconcile(ctx, tenantID)
	if err != nil {
		if errors.Is(err, subscription.ErrSubscriptionNotFound) {
			return nil, plans.Plan{}, nil
		}
		return nil, plans.Plan{}, err
	}

	plan, err := e.catalog.Get(ctx, sub.PlanID)
	if err != nil {
		return nil, plans.Plan{}, fmt.Errorf("resolve effective plan: %w", err)
	}
	return sub, plan, nil
}
