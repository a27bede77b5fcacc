package notifications

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrNotificationNotFound = errors.New("notification not found")

// ListOptions filters and paginates a tenant's notifications.
type ListOptions struct {
	Limit      int
	Offset     int
	OnlyUnread bool
}

// Storage persists notifications per tenant.
type Storage interface {
	Create(ctx context.Context, notif Notification) error

	// List returns notifications newest first.
	List(ctx context.Context, tenantID uuid.UUID, opts ListOptions) ([]Notification, error)

	MarkRead(ctx context.Context, tenantID uuid.UUID, ids ...uuid.UUID) error

	CountUnread(ctx context.Context, tenantID uuid.UUID) (int, error)
}
