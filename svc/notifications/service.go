package notifications

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Service wraps Storage with the write-and-forget semantics lifecycle
// events need: a failed notice is logged, never surfaced to the caller.
type Service struct {
	storage Storage
	log     *slog.Logger
	now     func() time.Time
}

// Option configures the Service.
type Option func(*Service)

func WithLogger(log *slog.Logger) Option {
	return func(s *Service) { s.log = log }
}

// WithClock overrides the time source. Test use only.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a notification service. Panics if storage is nil.
func NewService(storage Storage, opts ...Option) *Service {
	if storage == nil {
		panic("notifications: storage is required")
	}
	s := &Service{
		storage: storage,
		log:     slog.New(slog.DiscardHandler),
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Notify records an informational notice for a tenant. Matches the
// lifecycle service's NotifyFunc signature; errors are logged and dropped
// so a notice can never fail a plan change.
func (s *Service) Notify(ctx context.Context, tenantID uuid.UUID, title, message string) {
	err := s.storage.Create(ctx, Notification{
		ID:        uuid.New(),
		TenantID:  tenantID,
		Type:      TypeInfo,
		Title:     title,
		Message:   message,
		CreatedAt: s.now(),
	})
	if err != nil {
		s.log.WarnContext(ctx, "failed to store notification",
			slog.String("tenant_id", tenantID.String()),
			slog.String("title", title),
			slog.Any("error", err))
	}
}

// List returns a tenant's notifications newest first.
func (s *Service) List(ctx context.Context, tenantID uuid.UUID, opts ListOptions) ([]Notification, error) {
	return s.storage.List(ctx, tenantID, opts)
}

// MarkRead marks the given notifications read.
func (s *Service) MarkRead(ctx context.Context, tenantID uuid.UUID, ids ...uuid.UUID) error {
	return s.storage.MarkRead(ctx, tenantID, ids...)
}

// CountUnread returns the tenant's unread notice count.
func (s *Service) CountUnread(ctx context.Context, tenantID uuid.UUID) (int, error) {
	return s.storage.CountUnread(ctx, tenantID)
}
