package usage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pgStore persists counters in PostgreSQL. One row per (tenant, kind,
// category); pool kinds use the nil category id.
type pgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore returns a Store backed by the given connection pool.
func NewPgStore(pool *pgxpool.Pool) Store {
	return &pgStore{pool: pool}
}

func (s *pgStore) Adjust(ctx context.Context, tenantID uuid.UUID, kind Kind, categoryID uuid.UUID, delta int64) error {
	switch kind {
	case KindProducts, KindOrders:
		categoryID = uuid.Nil
	case KindCategories, KindSubcategories:
	default:
		return ErrUnknownKind
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin adjust: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	_, err = tx.Exec(ctx, `
		INSERT INTO usage_counters (tenant_id, kind, category_id, count, updated_at)
		VALUES ($1, $2, $3, GREATEST($4::bigint, 0), now())
		ON CONFLICT (tenant_id, kind, category_id) DO UPDATE SET
			count = GREATEST(usage_counters.count + $4, 0),
			updated_at = now()`,
		tenantID, string(kind), categoryID, delta)
	if err != nil {
		return fmt.Errorf("adjust %s counter: %w", kind, err)
	}

	// A deleted category takes its subcategory bucket with it.
	if kind == KindCategories && delta < 0 {
		_, err = tx.Exec(ctx, `
			DELETE FROM usage_counters
			WHERE tenant_id = $1 AND kind = $2 AND category_id = $3`,
			tenantID, string(KindSubcategories), categoryID)
		if err != nil {
			return fmt.Errorf("drop subcategory bucket: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit adjust: %w", err)
	}
	return nil
}

func (s *pgStore) Counts(ctx context.Context, tenantID uuid.UUID) (Counts, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT kind, category_id, count
		FROM usage_counters WHERE tenant_id = $1`, tenantID)
	if err != nil {
		return Counts{}, fmt.Errorf("query counts: %w", err)
	}
	defer rows.Close()

	counts := Counts{SubcategoriesByCategory: map[uuid.UUID]int64{}}
	for rows.Next() {
		var (
			kind       string
			categoryID uuid.UUID
			count      int64
		)
		if err := rows.Scan(&kind, &categoryID, &count); err != nil {
			return Counts{}, fmt.Errorf("scan count row: %w", err)
		}
		switch Kind(kind) {
		case KindProducts:
			counts.Products = count
		case KindOrders:
			counts.Orders = count
		case KindCategories:
			counts.Categories += count
		case KindSubcategories:
			counts.SubcategoriesByCategory[categoryID] = count
		}
	}
	if err := rows.Err(); err != nil {
		return Counts{}, fmt.Errorf("iterate count rows: %w", err)
	}
	return counts, nil
}

func (s *pgStore) CategoryCount(ctx context.Context, tenantID, categoryID uuid.UUID) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `
		SELECT count FROM usage_counters
		WHERE tenant_id = $1 AND kind = $2 AND category_id = $3`,
		tenantID, string(KindSubcategories), categoryID).Scan(&count)
	if err != nil {
		if err == pgx.ErrNoRows {
			return 0, nil
		}
		return 0, fmt.Errorf("query category count: %w", err)
	}
	return count, nil
}
