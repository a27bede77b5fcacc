package api

import (
	"net/http"

	"github.com/storekit/storekit/core"
	"github.com/storekit/storekit/svc/subscription"
	"github.com/storekit/storekit/svc/tenant"
)

type planRequest struct {
	PlanID string `json:"plan_id"`
}

func (m *Module) handleActivateTrial(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if !decodeBody(w, r, &req) {
		return
	}
	t := mustTenant(r)

	sub, err := m.subs.ActivateTrial(r.Context(), t.ID, req.PlanID)
	if err != nil {
		m.writeError(w, r, err)
		return
	}
	core.JSON(w, http.StatusCreated, sub)
}

func (m *Module) handleSelectPlan(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if !decodeBody(w, r, &req) {
		return
	}
	t := mustTenant(r)

	change, err := m.subs.SelectPlan(r.Context(), t.ID, req.PlanID)
	if err != nil {
		m.writeError(w, r, err)
		return
	}
	writePlanChange(w, change)
}

func (m *Module) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if !decodeBody(w, r, &req) {
		return
	}
	t := mustTenant(r)

	sub, err := m.subs.Upgrade(r.Context(), t.ID, req.PlanID)
	if err != nil {
		m.writeError(w, r, err)
		return
	}
	core.JSON(w, http.StatusOK, sub)
}

func (m *Module) handleDowngrade(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if !decodeBody(w, r, &req) {
		return
	}
	t := mustTenant(r)

	sub, err := m.subs.Downgrade(r.Context(), t.ID, req.PlanID)
	if err != nil {
		m.writeError(w, r, err)
		return
	}
	core.JSON(w, http.StatusOK, sub)
}

func (m *Module) handleRenew(w http.ResponseWriter, r *http.Request) {
	t := mustTenant(r)

	change, err := m.subs.Renew(r.Context(), t.ID)
	if err != nil {
		m.writeError(w, r, err)
		return
	}
	writePlanChange(w, change)
}

func (m *Module) handleCancel(w http.ResponseWriter, r *http.Request) {
	t := mustTenant(r)

	sub, err := m.subs.Cancel(r.Context(), t.ID)
	if err != nil {
		m.writeError(w, r, err)
		return
	}
	core.JSON(w, http.StatusOK, sub)
}

// writePlanChange renders a lifecycle outcome: 402 when the change awaits
// payment through the returned checkout link, 200 otherwise.
func writePlanChange(w http.ResponseWriter, change *subscription.PlanChange) {
	status := http.StatusOK
	if change.RequiresPayment {
		status = http.StatusPaymentRequired
	}
	core.JSON(w, status, change)
}

// mustTenant returns the request tenant. Routes using it sit behind
// tenant.RequireTenant, so absence is a programming error.
func mustTenant(r *http.Request) *tenant.Tenant {
	t, ok := tenant.FromContext(r.Context())
	if !ok {
		panic("api: handler reached without tenant in context")
	}
	return t
}
