// Package api exposes the entitlement engine over HTTP: the session bundle,
// the plan catalog, subscription lifecycle endpoints, the billing webhook,
// and quota-gated resource mutations.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/storekit/storekit/core"
	"github.com/storekit/storekit/svc/billing"
	"github.com/storekit/storekit/svc/entitlement"
	"github.com/storekit/storekit/svc/notifications"
	"github.com/storekit/storekit/svc/plans"
	"github.com/storekit/storekit/svc/subscription"
	"github.com/storekit/storekit/svc/tenant"
)

// Module wires the engine's services into a chi router.
type Module struct {
	engine   *entitlement.Engine
	subs     *subscription.Service
	catalog  *plans.Catalog
	notifs   *notifications.Service
	provider billing.Provider
	log      *slog.Logger
}

// Option configures the Module.
type Option func(*Module)

// WithBilling enables the billing webhook endpoint.
func WithBilling(p billing.Provider) Option {
	return func(m *Module) { m.provider = p }
}

// WithNotifications enables the notification endpoints and the session's
// unread count.
func WithNotifications(n *notifications.Service) Option {
	return func(m *Module) { m.notifs = n }
}

func WithLogger(log *slog.Logger) Option {
	return func(m *Module) { m.log = log }
}

// New creates the API module. Panics if a required dependency is nil.
func New(engine *entitlement.Engine, subs *subscription.Service, catalog *plans.Catalog, opts ...Option) *Module {
	if engine == nil {
		panic("api: entitlement engine is required")
	}
	if subs == nil {
		panic("api: subscription service is required")
	}
	if catalog == nil {
		panic("api: plan catalog is required")
	}
	m := &Module{
		engine:  engine,
		subs:    subs,
		catalog: catalog,
		log:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Routes mounts all endpoints. Tenant-scoped routes sit behind
// tenant.RequireTenant; the webhook and catalog do not need a tenant.
func (m *Module) Routes(r chi.Router) {
	r.Get("/plans", m.handleListPlans)
	if m.provider != nil {
		r.Post("/webhooks/billing", m.handleBillingWebhook)
	}

	r.Group(func(r chi.Router) {
		r.Use(tenant.RequireTenant)

		r.Get("/session", m.handleSession)

		r.Route("/subscriptions", func(r chi.Router) {
			r.Post("/activate-trial", m.handleActivateTrial)
			r.Post("/select-plan", m.handleSelectPlan)
			r.Post("/upgrade", m.handleUpgrade)
			r.Post("/downgrade", m.handleDowngrade)
			r.Post("/renew", m.handleRenew)
			r.Post("/cancel", m.handleCancel)
		})

		if m.notifs != nil {
			r.Get("/notifications", m.handleListNotifications)
			r.Post("/notifications/read", m.handleMarkNotificationsRead)
		}

		m.resourceRoutes(r)
	})
}

// decodeBody reads a small JSON request body into dst.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		core.JSONError(w, core.ErrBadRequest)
		return false
	}
	return true
}
