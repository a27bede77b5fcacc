package billing

import "errors"

var ErrInvalidWebhookSignature = errors.New("webhook signature verification failed")
