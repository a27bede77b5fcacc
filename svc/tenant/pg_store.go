package tenant

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/storekit/storekit/pkg/pg"
)

// pgStore persists tenants in PostgreSQL.
type pgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore returns a Store backed by the given connection pool.
func NewPgStore(pool *pgxpool.Pool) Store {
	return &pgStore{pool: pool}
}

const tenantColumns = `id, subdomain, name, owner_name, owner_email, active, created_at`

func (s *pgStore) GetByID(ctx context.Context, id uuid.UUID) (*Tenant, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE id = $1`, id)
	return scanTenant(row)
}

func (s *pgStore) GetBySubdomain(ctx context.Context, subdomain string) (*Tenant, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE subdomain = $1`, strings.ToLower(subdomain))
	return scanTenant(row)
}

func (s *pgStore) Save(ctx context.Context, t *Tenant) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO tenants (id, subdomain, name, owner_name, owner_email, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			subdomain = EXCLUDED.subdomain,
			name = EXCLUDED.name,
			owner_name = EXCLUDED.owner_name,
			owner_email = EXCLUDED.owner_email,
			active = EXCLUDED.active`,
		t.ID, strings.ToLower(t.Subdomain), t.Name, t.OwnerName, t.OwnerEmail, t.Active, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("save tenant: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTenant(row rowScanner) (*Tenant, error) {
	var t Tenant
	err := row.Scan(&t.ID, &t.Subdomain, &t.Name, &t.OwnerName, &t.OwnerEmail, &t.Active, &t.CreatedAt)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, ErrTenantNotFound
		}
		return nil, fmt.Errorf("get tenant: %w", err)
	}
	return &t, nil
}
