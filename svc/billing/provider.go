// Package billing abstracts the payment provider. The engine never captures
// payments itself: it hands the tenant a hosted checkout link and waits for
// the provider's webhook to confirm payment before activating a plan.
package billing

import (
	"context"
	"time"
)

// Provider defines the minimal payment provider surface the engine needs.
// Implementations use the provider's official SDK and keep provider-specific
// quirks internal.
type Provider interface {
	// CreateCheckoutLink creates a hosted checkout session for a plan.
	CreateCheckoutLink(ctx context.Context, req CheckoutRequest) (*CheckoutLink, error)

	// ParseWebhook validates the signature and normalizes the payload.
	// Must reject unverifiable payloads to prevent webhook spoofing.
	ParseWebhook(ctx context.Context, payload []byte, signature string) (*Event, error)
}

// CheckoutRequest contains data needed to create a checkout session.
type CheckoutRequest struct {
	PriceID  string // provider's price identifier
	TenantID string // internal tenant ID, echoed back in webhook custom data
	PlanID   string // internal plan slug, echoed back in webhook custom data
	Email    string // optional billing email
}

// CheckoutLink represents a hosted checkout session.
type CheckoutLink struct {
	URL       string
	SessionID string
	ExpiresAt time.Time
}

// EventType represents the normalized billing event type.
type EventType string

const (
	EventPaymentSucceeded EventType = "payment_succeeded"
	EventPaymentFailed    EventType = "payment_failed"
)

// Event is a normalized webhook event.
type Event struct {
	Type          EventType
	ProviderEvent string // original provider event name
	TenantID      string // internal tenant ID from custom data
	PlanID        string // internal plan slug from custom data
	ProviderSubID string
	Raw           map[string]any
}
