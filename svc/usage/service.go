package usage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/storekit/storekit/svc/plans"
)

// Service tracks resource usage and derives quota snapshots against a plan.
type Service struct {
	store Store
	cache *Cache
	log   *slog.Logger
	now   func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithCache enables Redis snapshot caching for display reads.
func WithCache(cache *Cache) Option {
	return func(s *Service) { s.cache = cache }
}

// WithLogger sets the service logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) { s.log = log }
}

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a usage service. Panics if store is nil.
func NewService(store Store, opts ...Option) *Service {
	if store == nil {
		panic("usage: store is required")
	}
	s := &Service{
		store: store,
		log:   slog.New(slog.DiscardHandler),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RecordCreate counts a newly created resource. The categoryID identifies
// the parent for subcategories and the category itself for categories.
func (s *Service) RecordCreate(ctx context.Context, tenantID uuid.UUID, kind Kind, categoryID uuid.UUID) error {
	return s.adjust(ctx, tenantID, kind, categoryID, 1)
}

// RecordDelete counts a deleted resource. Counts never go below zero.
func (s *Service) RecordDelete(ctx context.Context, tenantID uuid.UUID, kind Kind, categoryID uuid.UUID) error {
	return s.adjust(ctx, tenantID, kind, categoryID, -1)
}

func (s *Service) adjust(ctx context.Context, tenantID uuid.UUID, kind Kind, categoryID uuid.UUID, delta int64) error {
	if (kind == KindSubcategories || kind == KindCategories) && categoryID == uuid.Nil {
		return ErrCategoryRequired
	}
	if err := s.store.Adjust(ctx, tenantID, kind, categoryID, delta); err != nil {
		return fmt.Errorf("adjust usage: %w", err)
	}
	s.invalidate(ctx, tenantID)
	return nil
}

func (s *Service) invalidate(ctx context.Context, tenantID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, tenantID); err != nil {
		s.log.WarnContext(ctx, "failed to invalidate usage snapshot",
			slog.String("tenant_id", tenantID.String()), slog.Any("error", err))
	}
}

// Snapshot computes a tenant's usage against the given plan from live counts.
func (s *Service) Snapshot(ctx context.Context, tenantID uuid.UUID, plan plans.Plan) (Snapshot, error) {
	counts, err := s.store.Counts(ctx, tenantID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load usage counts: %w", err)
	}

	return Snapshot{
		TenantID:   tenantID,
		Products:   newPool(counts.Products, plan.LimitFor(plans.ResourceProducts)),
		Categories: newPool(counts.Categories, plan.LimitFor(plans.ResourceCategories)),
		Orders:     newPool(counts.Orders, plan.LimitFor(plans.ResourceOrders)),
		Subcategories: PerCategory{
			MaxUsed: counts.MaxSubcategories(),
			Limit:   plan.LimitFor(plans.ResourceSubcategoriesPerCategory),
		},
		TakenAt: s.now().UTC(),
	}, nil
}

// CachedSnapshot returns a recent snapshot for display surfaces, recomputing
// on miss. Cache failures degrade to a live read.
func (s *Service) CachedSnapshot(ctx context.Context, tenantID uuid.UUID, plan plans.Plan) (Snapshot, error) {
	if s.cache != nil {
		snap, ok, err := s.cache.Get(ctx, tenantID)
		if err != nil {
			s.log.WarnContext(ctx, "usage snapshot cache read failed",
				slog.String("tenant_id", tenantID.String()), slog.Any("error", err))
		} else if ok {
			return snap, nil
		}
	}

	snap, err := s.Snapshot(ctx, tenantID, plan)
	if err != nil {
		return Snapshot{}, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, snap); err != nil {
			s.log.WarnContext(ctx, "usage snapshot cache write failed",
				slog.String("tenant_id", tenantID.String()), slog.Any("error", err))
		}
	}
	return snap, nil
}

// Headroom returns the used count and limit that govern creating one more
// instance of kind. For subcategories the check targets the parent category's
// own bucket, never the tenant-wide maximum.
func (s *Service) Headroom(ctx context.Context, tenantID uuid.UUID, plan plans.Plan, kind Kind, categoryID uuid.UUID) (used, limit int64, err error) {
	limit = plan.LimitFor(kind.Resource())

	if kind == KindSubcategories {
		if categoryID == uuid.Nil {
			return 0, 0, ErrCategoryRequired
		}
		used, err = s.store.CategoryCount(ctx, tenantID, categoryID)
		if err != nil {
			return 0, 0, fmt.Errorf("load category count: %w", err)
		}
		return used, limit, nil
	}

	counts, err := s.store.Counts(ctx, tenantID)
	if err != nil {
		return 0, 0, fmt.Errorf("load usage counts: %w", err)
	}
	switch kind {
	case KindProducts:
		used = counts.Products
	case KindCategories:
		used = counts.Categories
	case KindOrders:
		used = counts.Orders
	default:
		return 0, 0, ErrUnknownKind
	}
	return used, limit, nil
}
