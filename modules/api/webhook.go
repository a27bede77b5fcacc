package api

import (
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/storekit/storekit/core"
	"github.com/storekit/storekit/svc/billing"
)

// maxWebhookBody bounds the webhook payload size.
const maxWebhookBody = 1 << 20

// handleBillingWebhook verifies and applies billing provider events. A
// payment confirmation completes the pending plan selection or renewal.
// Replayed events are safe; unrecognized events are acknowledged and
// ignored so the provider stops retrying them.
func (m *Module) handleBillingWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		core.JSONError(w, core.ErrBadRequest)
		return
	}

	event, err := m.provider.ParseWebhook(r.Context(), payload, r.Header.Get("Paddle-Signature"))
	if err != nil {
		m.writeError(w, r, err)
		return
	}

	switch event.Type {
	case billing.EventPaymentSucceeded:
		tenantID, err := uuid.Parse(event.TenantID)
		if err != nil {
			m.log.WarnContext(r.Context(), "webhook without usable tenant id",
				"provider_event", event.ProviderEvent)
			core.JSONError(w, core.ErrBadRequest)
			return
		}
		if _, err := m.subs.ConfirmPayment(r.Context(), tenantID, event.PlanID); err != nil {
			m.writeError(w, r, err)
			return
		}
	case billing.EventPaymentFailed:
		m.log.WarnContext(r.Context(), "payment failed",
			"tenant_id", event.TenantID, "plan_id", event.PlanID)
	default:
		m.log.DebugContext(r.Context(), "ignoring billing event",
			"provider_event", event.ProviderEvent)
	}

	core.JSON(w, http.StatusOK, map[string]any{"received": true})
}
