package notifications

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pgStorage persists notifications in PostgreSQL.
type pgStorage struct {
	pool *pgxpool.Pool
}

// NewPgStorage returns a Storage backed by the given connection pool.
func NewPgStorage(pool *pgxpool.Pool) Storage {
	return &pgStorage{pool: pool}
}

func (s *pgStorage) Create(ctx context.Context, notif Notification) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO notifications (id, tenant_id, type, title, message, read, read_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		notif.ID, notif.TenantID, string(notif.Type), notif.Title, notif.Message,
		notif.Read, notif.ReadAt, notif.CreatedAt)
	if err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

func (s *pgStorage) List(ctx context.Context, tenantID uuid.UUID, opts ListOptions) ([]Notification, error) {
	query := `
		SELECT id, tenant_id, type, title, message, read, read_at, created_at
		FROM notifications WHERE tenant_id = $1`
	if opts.OnlyUnread {
		query += ` AND read = false`
	}
	query += ` ORDER BY created_at DESC`
	args := []any{tenantID}
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}
	if opts.Offset > 0 {
		args = append(args, opts.Offset)
		query += fmt.Sprintf(` OFFSET $%d`, len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		var (
			n   Notification
			typ string
		)
		if err := rows.Scan(&n.ID, &n.TenantID, &typ, &n.Title, &n.Message,
			&n.Read, &n.ReadAt, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		n.Type = Type(typ)
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}
	return out, nil
}

func (s *pgStorage) MarkRead(ctx context.Context, tenantID uuid.UUID, ids ...uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.pool.Exec(ctx, `
		UPDATE notifications SET read = true, read_at = now()
		WHERE tenant_id = $1 AND id = ANY($2) AND read = false`, tenantID, ids)
	if err != nil {
		return fmt.Errorf("mark notifications read: %w", err)
	}
	return nil
}

func (s *pgStorage) CountUnread(ctx context.Context, tenantID uuid.UUID) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `
		SELECT count(*) FROM notifications
		WHERE tenant_id = $1 AND read = false`, tenantID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return count, nil
}
