// Package tenant resolves the store owner a request acts for and carries it
// through the request context. Resolution order is the X-Tenant-ID header,
// then the store subdomain.
package tenant

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Tenant is a store owner account: the unit of subscription and quota
// isolation.
type Tenant struct {
	ID         uuid.UUID `json:"id"`
	Subdomain  string    `json:"subdomain"`
	Name       string    `json:"name"`
	OwnerName  string    `json:"owner_name"`
	OwnerEmail string    `json:"owner_email"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"created_at"`
}

// Store loads tenants by either unique identifier.
type Store interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Tenant, error)
	GetBySubdomain(ctx context.Context, subdomain string) (*Tenant, error)
	Save(ctx context.Context, t *Tenant) error
}
