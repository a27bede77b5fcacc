package subscription

import "errors"

var (
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrInvalidTransition    = errors.New("invalid subscription transition")
	ErrTrialAlreadyUsed     = errors.New("free trial has already been used")
	ErrTrialNotAvailable    = errors.New("plan has no trial period")
	ErrPaymentRequired      = errors.New("plan requires payment confirmation")
	ErrBillingNotConfigured = errors.New("no billing provider configured for paid plans")
)
