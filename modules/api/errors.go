package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/storekit/storekit/core"
	"github.com/storekit/storekit/svc/billing"
	"github.com/storekit/storekit/svc/entitlement"
	"github.com/storekit/storekit/svc/plans"
	"github.com/storekit/storekit/svc/subscription"
)

var (
	errQuotaExceeded     = core.NewHTTPError(http.StatusForbidden, "quota_exceeded")
	errAccessDenied      = core.NewHTTPError(http.StatusForbidden, "access_denied")
	errInvalidTransition = core.NewHTTPError(http.StatusConflict, "invalid_transition")
	errTrialAlreadyUsed  = core.NewHTTPError(http.StatusConflict, "trial_already_used")
)

// writeError maps domain errors onto the HTTP taxonomy. Refusals carry the
// evaluator's message verbatim so clients can render it without re-deriving
// policy. Unknown errors become 500s and never default to allow.
func (m *Module) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var denied *entitlement.DeniedError
	if errors.As(err, &denied) {
		code := errAccessDenied
		if errors.Is(denied.Kind, entitlement.ErrQuotaExceeded) {
			code = errQuotaExceeded
		}
		core.JSONError(w, fmt.Errorf("%w: %s", code, denied.Message))
		return
	}

	var transition *subscription.TransitionError
	if errors.As(err, &transition) {
		core.JSONError(w, fmt.Errorf("%w: %s", errInvalidTransition, transition.Error()))
		return
	}

	switch {
	case errors.Is(err, subscription.ErrTrialAlreadyUsed):
		core.JSONError(w, fmt.Errorf("%w: free trial already used", errTrialAlreadyUsed))
	case errors.Is(err, subscription.ErrTrialNotAvailable):
		core.JSONError(w, fmt.Errorf("%w: plan has no trial", core.ErrUnprocessableEntity))
	case errors.Is(err, subscription.ErrSubscriptionNotFound):
		core.JSONError(w, fmt.Errorf("%w: no subscription for tenant", core.ErrNotFound))
	case errors.Is(err, plans.ErrPlanNotFound):
		core.JSONError(w, fmt.Errorf("%w: plan not found", core.ErrNotFound))
	case errors.Is(err, plans.ErrPlanInUse):
		core.JSONError(w, fmt.Errorf("%w: plan has active subscriptions", core.ErrConflict))
	case errors.Is(err, subscription.ErrBillingNotConfigured):
		core.JSONError(w, fmt.Errorf("%w: billing is not configured", core.ErrServiceUnavailable))
	case errors.Is(err, billing.ErrInvalidWebhookSignature):
		core.JSONError(w, core.ErrBadRequest)
	default:
		m.log.ErrorContext(r.Context(), "request failed",
			"method", r.Method, "path", r.URL.Path, "error", err)
		core.JSONError(w, core.ErrInternalServerError)
	}
}
