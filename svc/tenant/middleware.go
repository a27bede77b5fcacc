package tenant

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/storekit/storekit/core"
)

// Middleware resolves the request's tenant and stores it in the context.
// A UUID identifier loads by ID, anything else by subdomain. Requests with
// no identifier pass through without a tenant; handlers that need one use
// RequireTenant behind it.
func Middleware(resolve Resolver, store Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identifier, err := resolve(r)
			if err != nil {
				core.JSONError(w, fmt.Errorf("%w: %s", core.ErrBadRequest, err.Error()))
				return
			}
			if identifier == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			var t *Tenant
			if id, parseErr := uuid.Parse(identifier); parseErr == nil {
				t, err = store.GetByID(ctx, id)
			} else {
				t, err = store.GetBySubdomain(ctx, identifier)
			}
			if err != nil {
				if errors.Is(err, ErrTenantNotFound) {
					core.JSONError(w, fmt.Errorf("%w: tenant not found", core.ErrNotFound))
					return
				}
				core.JSONError(w, err)
				return
			}
			if !t.Active {
				core.JSONError(w, fmt.Errorf("%w: tenant is inactive", core.ErrForbidden))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithTenant(ctx, t)))
		})
	}
}

// RequireTenant rejects requests that reached a tenant-scoped handler
// without a resolved tenant.
func RequireTenant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := FromContext(r.Context()); !ok {
			core.JSONError(w, fmt.Errorf("%w: tenant identification required", core.ErrUnauthorized))
			return
		}
		next.ServeHTTP(w, r)
	})
}
