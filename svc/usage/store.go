package usage

import (
	"context"

	"github.com/google/uuid"
)

// Counts holds a tenant's live resource counts. Subcategories are bucketed
// by parent category because their quota is per-category.
type Counts struct {
	Products                int64
	Categories              int64
	Orders                  int64
	SubcategoriesByCategory map[uuid.UUID]int64
}

// MaxSubcategories returns the highest subcategory count across categories.
func (c Counts) MaxSubcategories() int64 {
	var m int64
	for _, n := range c.SubcategoriesByCategory {
		m = max(m, n)
	}
	return m
}

// Store maintains live per-tenant resource counts.
//
// The categoryID argument identifies the parent for subcategory counts and
// the category itself for category counts; it is ignored for products and
// orders. Deleting a category drops its subcategory bucket with it.
type Store interface {
	// Adjust changes a count by delta, clamping at zero.
	Adjust(ctx context.Context, tenantID uuid.UUID, kind Kind, categoryID uuid.UUID, delta int64) error

	// Counts returns all live counts for a tenant.
	Counts(ctx context.Context, tenantID uuid.UUID) (Counts, error)

	// CategoryCount returns one category's subcategory count.
	CategoryCount(ctx context.Context, tenantID, categoryID uuid.UUID) (int64, error)
}
