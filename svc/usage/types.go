package usage

import (
	"time"

	"github.com/google/uuid"

	"github.com/storekit/storekit/svc/plans"
)

// Kind represents a countable resource kind.
type Kind string

const (
	KindProducts      Kind = "products"
	KindCategories    Kind = "categories"
	KindSubcategories Kind = "subcategories"
	KindOrders        Kind = "orders"
)

// Resource maps a usage kind to the plan resource whose limit bounds it.
func (k Kind) Resource() plans.Resource {
	switch k {
	case KindProducts:
		return plans.ResourceProducts
	case KindCategories:
		return plans.ResourceCategories
	case KindSubcategories:
		return plans.ResourceSubcategoriesPerCategory
	case KindOrders:
		return plans.ResourceOrders
	default:
		return plans.Resource(k)
	}
}

// Pool is a whole-tenant quota pool: every instance of the kind counts
// against one tenant-wide limit.
type Pool struct {
	Used      int64 `json:"used"`
	Limit     int64 `json:"limit"`
	Remaining int64 `json:"remaining"`
}

// HasHeadroom reports whether another instance fits in the pool.
func (p Pool) HasHeadroom() bool {
	return p.Limit == plans.Unlimited || p.Remaining > 0
}

// PerCategory is a per-parent quota pool: the limit applies to each
// category's own subcategories. MaxUsed is the highest count across the
// tenant's categories, a display figure; the authoritative check always
// targets a specific category.
type PerCategory struct {
	MaxUsed int64 `json:"max_used"`
	Limit   int64 `json:"limit"`
}

// Snapshot is the derived usage view for one tenant against the currently
// effective plan. Recomputed from live counts; cached only for display.
type Snapshot struct {
	TenantID      uuid.UUID   `json:"tenant_id"`
	Products      Pool        `json:"products"`
	Categories    Pool        `json:"categories"`
	Orders        Pool        `json:"orders"`
	Subcategories PerCategory `json:"subcategories_per_category"`
	TakenAt       time.Time   `json:"taken_at"`
}

// PoolFor returns the whole-tenant pool for a kind. Subcategories are not a
// pool; callers must check them per-category.
func (s Snapshot) PoolFor(kind Kind) (Pool, bool) {
	switch kind {
	case KindProducts:
		return s.Products, true
	case KindCategories:
		return s.Categories, true
	case KindOrders:
		return s.Orders, true
	default:
		return Pool{}, false
	}
}

// newPool keeps the used + remaining == limit identity; remaining can go
// negative when a downgrade leaves the tenant over the new ceiling.
func newPool(used, limit int64) Pool {
	pool := Pool{Used: used, Limit: limit}
	if limit == plans.Unlimited {
		pool.Remaining = plans.Unlimited
		return pool
	}
	pool.Remaining = limit - used
	return pool
}
