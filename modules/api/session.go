package api

import (
	"net/http"

	"github.com/storekit/storekit/core"
	"github.com/storekit/storekit/svc/entitlement"
	"github.com/storekit/storekit/svc/subscription"
	"github.com/storekit/storekit/svc/tenant"
	"github.com/storekit/storekit/svc/usage"
)

type userView struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// sessionResponse is the full gating bundle: the one call a client makes
// after authentication to drive all entitlement UI.
type sessionResponse struct {
	User                userView                   `json:"user"`
	Tenant              *tenant.Tenant             `json:"tenant"`
	Subscription        *subscription.Subscription `json:"subscription"`
	Access              entitlement.AccessDecision `json:"access"`
	Usage               usage.Snapshot             `json:"usage"`
	UnreadNotifications int                        `json:"unread_notifications"`
}

func (m *Module) handleSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	t, ok := tenant.FromContext(ctx)
	if !ok {
		core.JSONError(w, core.ErrUnauthorized)
		return
	}

	// An unsubscribed tenant is not an error: the bundle carries a nil
	// subscription and a "No active subscription" decision.
	session, err := m.engine.Session(ctx, t.ID)
	if err != nil {
		m.writeError(w, r, err)
		return
	}

	resp := sessionResponse{
		User:         userView{Name: t.OwnerName, Email: t.OwnerEmail},
		Tenant:       t,
		Subscription: session.Subscription,
		Access:       session.Access,
		Usage:        session.Usage,
	}
	if m.notifs != nil {
		unread, err := m.notifs.CountUnread(ctx, t.ID)
		if err != nil {
			m.writeError(w, r, err)
			return
		}
		resp.UnreadNotifications = unread
	}

	core.JSON(w, http.StatusOK, resp)
}
