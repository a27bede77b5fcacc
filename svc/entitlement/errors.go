package entitlement

import "errors"

var (
	// ErrAccessDenied marks a mutation refused because the tenant has no
	// active or grace access, or the grace window blocks creation.
	ErrAccessDenied = errors.New("access denied")

	// ErrQuotaExceeded marks a creation refused because the governing
	// quota has no headroom.
	ErrQuotaExceeded = errors.New("quota exceeded")
)

// DeniedError is a refusal carrying the evaluator's message so clients can
// render actionable text without re-deriving policy. It unwraps to one of
// the sentinels above.
type DeniedError struct {
	Kind    error
	Message string
}

func (e *DeniedError) Error() string { return e.Message }

func (e *DeniedError) Unwrap() error { return e.Kind }

func denied(kind error, message string) error {
	return &DeniedError{Kind: kind, Message: message}
}
