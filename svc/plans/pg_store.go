package plans

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/storekit/storekit/pkg/pg"
)

// pgStore persists plans in PostgreSQL. Limits and features are stored as
// JSONB so adding a resource kind does not require a migration.
type pgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore returns a Store backed by the given connection pool.
func NewPgStore(pool *pgxpool.Pool) Store {
	return &pgStore{pool: pool}
}

const planColumns = `id, name, description, price_amount, price_currency, billing_interval,
	trial_days, limits, features, active, provider_price_id, created_at, updated_at`

func (s *pgStore) List(ctx context.Context) ([]Plan, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+planColumns+` FROM plans`)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	defer rows.Close()

	var out []Plan
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, plan)
	}
	return out, rows.Err()
}

func (s *pgStore) Get(ctx context.Context, id string) (Plan, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+planColumns+` FROM plans WHERE id = $1`, id)
	plan, err := scanPlan(row)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return Plan{}, ErrPlanNotFound
		}
		return Plan{}, err
	}
	return plan, nil
}

func (s *pgStore) Save(ctx context.Context, plan Plan) error {
	limits, err := json.Marshal(plan.Limits)
	if err != nil {
		return fmt.Errorf("marshal plan limits: %w", err)
	}
	features, err := json.Marshal(plan.Features)
	if err != nil {
		return fmt.Errorf("marshal plan features: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO plans (id, name, description, price_amount, price_currency, billing_interval,
			trial_days, limits, features, active, provider_price_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			price_amount = EXCLUDED.price_amount,
			price_currency = EXCLUDED.price_currency,
			billing_interval = EXCLUDED.billing_interval,
			trial_days = EXCLUDED.trial_days,
			limits = EXCLUDED.limits,
			features = EXCLUDED.features,
			active = EXCLUDED.active,
			provider_price_id = EXCLUDED.provider_price_id,
			updated_at = EXCLUDED.updated_at`,
		plan.ID, plan.Name, plan.Description, plan.Price.Amount, plan.Price.Currency,
		string(plan.Interval), plan.TrialDays, limits, features, plan.Active,
		plan.ProviderPriceID, plan.CreatedAt, plan.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save plan %s: %w", plan.ID, err)
	}
	return nil
}

func (s *pgStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM plans WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete plan %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPlanNotFound
	}
	return nil
}

func scanPlan(row pgx.Row) (Plan, error) {
	var (
		plan     Plan
		interval string
		limits   []byte
		features []byte
	)
	err := row.Scan(&plan.ID, &plan.Name, &plan.Description, &plan.Price.Amount,
		&plan.Price.Currency, &interval, &plan.TrialDays, &limits, &features,
		&plan.Active, &plan.ProviderPriceID, &plan.CreatedAt, &plan.UpdatedAt)
	if err != nil {
		return Plan{}, err
	}
	plan.Interval = BillingInterval(interval)
	if err := json.Unmarshal(limits, &plan.Limits); err != nil {
		return Plan{}, fmt.Errorf("unmarshal plan limits: %w", err)
	}
	if err := json.Unmarshal(features, &plan.Features); err != nil {
		return Plan{}, fmt.Errorf("unmarshal plan features: %w", err)
	}
	return plan, nil
}
