// Package plans owns the plan catalog: the priced tiers that bound what a
// tenant may do. Plans are edited by platform operators, soft-deactivated
// instead of deleted while subscriptions reference them, and evaluated live
// so quota edits reach all subscribers immediately.
package plans

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"
)

// Store defines plan persistence.
type Store interface {
	// List returns every plan, including inactive ones.
	List(ctx context.Context) ([]Plan, error)
	// Get returns a plan by ID or ErrPlanNotFound.
	Get(ctx context.Context, id string) (Plan, error)
	// Save creates or updates a plan keyed by Plan.ID.
	Save(ctx context.Context, plan Plan) error
	// Delete removes a plan permanently or returns ErrPlanNotFound.
	Delete(ctx context.Context, id string) error
}

// RefCounter reports how many subscriptions currently reference a plan.
// Wired to the subscription store; used only to guard hard deletes.
type RefCounter func(ctx context.Context, planID string) (int64, error)

// Source loads an initial plan set, e.g. from a YAML file shipped with the
// deployment.
type Source interface {
	Load(ctx context.Context) ([]Plan, error)
}

// Catalog is the operator- and tenant-facing plan catalog service.
type Catalog struct {
	store Store
	refs  RefCounter
	log   *slog.Logger
}

// Option configures the Catalog.
type Option func(*Catalog)

// WithRefCounter wires the subscription reference counter guarding deletes.
// Without it, deletes are refused outright.
func WithRefCounter(refs RefCounter) Option {
	return func(c *Catalog) { c.refs = refs }
}

func WithLogger(log *slog.Logger) Option {
	return func(c *Catalog) { c.log = log }
}

// NewCatalog creates a Catalog backed by the given store.
// Panics on a nil store to fail fast during initialization.
func NewCatalog(store Store, opts ...Option) *Catalog {
	if store == nil {
		panic("plans: Store is required")
	}
	c := &Catalog{
		store: store,
		log:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListActive returns sellable plans for the public pricing page, cheapest
// first. Inactive plans are hidden here but remain valid for tenants already
// subscribed to them.
func (c *Catalog) ListActive(ctx context.Context) ([]Plan, error) {
	all, err := c.store.List(ctx)
	if err != nil {
		return nil, err
	}
	active := slices.DeleteFunc(all, func(p Plan) bool { return !p.Active })
	slices.SortFunc(active, func(a, b Plan) int { return cmp.Compare(a.Price.Amount, b.Price.Amount) })
	return active, nil
}

// ListAll returns every plan for the operator view, including inactive ones.
func (c *Catalog) ListAll(ctx context.Context) ([]Plan, error) {
	all, err := c.store.List(ctx)
	if err != nil {
		return nil, err
	}
	slices.SortFunc(all, func(a, b Plan) int { return cmp.Compare(a.Price.Amount, b.Price.Amount) })
	return all, nil
}

// Get returns a plan by ID.
func (c *Catalog) Get(ctx context.Context, id string) (Plan, error) {
	return c.store.Get(ctx, id)
}

// Create validates and stores a new plan.
func (c *Catalog) Create(ctx context.Context, plan Plan) (Plan, error) {
	if err := plan.Validate(); err != nil {
		return Plan{}, err
	}
	if _, err := c.store.Get(ctx, plan.ID); err == nil {
		return Plan{}, ErrPlanAlreadyExists
	} else if !errors.Is(err, ErrPlanNotFound) {
		return Plan{}, err
	}

	now := time.Now().UTC()
	plan.CreatedAt = now
	plan.UpdatedAt = now
	if err := c.store.Save(ctx, plan); err != nil {
		return Plan{}, err
	}
	c.log.InfoContext(ctx, "plan created", slog.String("plan_id", plan.ID))
	return plan, nil
}

// Update represents a partial plan edit; nil fields stay unchanged.
type Update struct {
	Name            *string
	Description     *string
	Price           *Money
	Interval        *BillingInterval
	TrialDays       *int
	Limits          map[Resource]int64
	Features        []Feature
	ProviderPriceID *string
}

// Update applies a partial edit. Quota changes take effect for all
// subscribers at their next evaluation.
func (c *Catalog) Update(ctx context.Context, id string, upd Update) (Plan, error) {
	plan, err := c.store.Get(ctx, id)
	if err != nil {
		return Plan{}, err
	}

	if upd.Name != nil {
		plan.Name = *upd.Name
	}
	if upd.Description != nil {
		plan.Description = *upd.Description
	}
	if upd.Price != nil {
		plan.Price = *upd.Price
	}
	if upd.Interval != nil {
		plan.Interval = *upd.Interval
	}
	if upd.TrialDays != nil {
		plan.TrialDays = *upd.TrialDays
	}
	if upd.Limits != nil {
		plan.Limits = upd.Limits
	}
	if upd.Features != nil {
		plan.Features = upd.Features
	}
	if upd.ProviderPriceID != nil {
		plan.ProviderPriceID = *upd.ProviderPriceID
	}

	if err := plan.Validate(); err != nil {
		return Plan{}, err
	}
	plan.UpdatedAt = time.Now().UTC()
	if err := c.store.Save(ctx, plan); err != nil {
		return Plan{}, err
	}
	c.log.InfoContext(ctx, "plan updated", slog.String("plan_id", plan.ID))
	return plan, nil
}

// Deactivate hides a plan from new sign-ups. Always permitted: existing
// subscribers keep the plan until they change it themselves.
func (c *Catalog) Deactivate(ctx context.Context, id string) error {
	plan, err := c.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if !plan.Active {
		return nil
	}
	plan.Active = false
	plan.UpdatedAt = time.Now().UTC()
	if err := c.store.Save(ctx, plan); err != nil {
		return err
	}
	c.log.InfoContext(ctx, "plan deactivated", slog.String("plan_id", id))
	return nil
}

// Delete removes a plan permanently. Fails with ErrPlanInUse while any
// subscription references the plan; deactivate instead.
func (c *Catalog) Delete(ctx context.Context, id string) error {
	if _, err := c.store.Get(ctx, id); err != nil {
		return err
	}
	if c.refs == nil {
		return ErrPlanInUse
	}
	count, err := c.refs(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return ErrPlanInUse
	}
	if err := c.store.Delete(ctx, id); err != nil {
		return err
	}
	c.log.InfoContext(ctx, "plan deleted", slog.String("plan_id", id))
	return nil
}

// Seed installs plans from a source, skipping IDs that already exist so the
// call is idempotent across restarts.
func (c *Catalog) Seed(ctx context.Context, src Source) error {
	loaded, err := src.Load(ctx)
	if err != nil {
		return errors.Join(ErrFailedToLoadPlans, err)
	}
	for _, plan := range loaded {
		if err := plan.Validate(); err != nil {
			return err
		}
		if _, err := c.store.Get(ctx, plan.ID); err == nil {
			continue
		} else if !errors.Is(err, ErrPlanNotFound) {
			return err
		}

		now := time.Now().UTC()
		plan.CreatedAt = now
		plan.UpdatedAt = now
		if err := c.store.Save(ctx, plan); err != nil {
			return err
		}
		c.log.InfoContext(ctx, "plan seeded", slog.String("plan_id", plan.ID))
	}
	return nil
}

// SeedDefaults idempotently installs the canonical starter set.
func (c *Catalog) SeedDefaults(ctx context.Context) error {
	return c.Seed(ctx, StaticSource(DefaultPlans()))
}
