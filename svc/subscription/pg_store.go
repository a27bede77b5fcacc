package subscription

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/storekit/storekit/pkg/pg"
)

// pgStore persists subscriptions in PostgreSQL. Trial usage lives in its
// own table so the one-trial-per-tenant rule survives subscription rewrites.
type pgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore returns a Store backed by the given connection pool.
func NewPgStore(pool *pgxpool.Pool) Store {
	return &pgStore{pool: pool}
}

func (s *pgStore) Get(ctx context.Context, tenantID uuid.UUID) (*Subscription, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, tenant_id, plan_id, pending_plan_id, status, started_at, ends_at,
			trial_ends_at, cancelled_at, created_at, updated_at
		FROM subscriptions WHERE tenant_id = $1`, tenantID)

	var (
		sub     Subscription
		status  string
		pending *string
	)
	err := row.Scan(&sub.ID, &sub.TenantID, &sub.PlanID, &pending, &status,
		&sub.StartedAt, &sub.EndsAt, &sub.TrialEndsAt, &sub.CancelledAt,
		&sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("get subscription: %w", err)
	}
	sub.Status = Status(status)
	if pending != nil {
		sub.PendingPlanID = *pending
	}
	return &sub, nil
}

func (s *pgStore) Save(ctx context.Context, sub *Subscription) error {
	var pending *string
	if sub.PendingPlanID != "" {
		pending = &sub.PendingPlanID
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO subscriptions (id, tenant_id, plan_id, pending_plan_id, status,
			started_at, ends_at, trial_ends_at, cancelled_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (tenant_id) DO UPDATE SET
			plan_id = EXCLUDED.plan_id,
			pending_plan_id = EXCLUDED.pending_plan_id,
			status = EXCLUDED.status,
			started_at = EXCLUDED.started_at,
			ends_at = EXCLUDED.ends_at,
			trial_ends_at = EXCLUDED.trial_ends_at,
			cancelled_at = EXCLUDED.cancelled_at,
			updated_at = EXCLUDED.updated_at`,
		sub.ID, sub.TenantID, sub.PlanID, pending, string(sub.Status),
		sub.StartedAt, sub.EndsAt, sub.TrialEndsAt, sub.CancelledAt,
		sub.CreatedAt, sub.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save subscription: %w", err)
	}
	return nil
}

func (s *pgStore) HasUsedTrial(ctx context.Context, tenantID uuid.UUID) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM trial_history WHERE tenant_id = $1)`, tenantID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check trial history: %w", err)
	}
	return exists, nil
}

func (s *pgStore) RecordTrialUse(ctx context.Context, tenantID uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO trial_history (tenant_id, used_at)
		VALUES ($1, now())
		ON CONFLICT (tenant_id) DO NOTHING`, tenantID)
	if err != nil {
		return fmt.Errorf("record trial use: %w", err)
	}
	return nil
}

func (s *pgStore) CountByPlan(ctx context.Context, planID string) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `
		SELECT count(*) FROM subscriptions
		WHERE plan_id = $1 OR pending_plan_id = $1`, planID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count subscriptions by plan: %w", err)
	}
	return count, nil
}
