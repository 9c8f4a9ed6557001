package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yigit/scholarsphere/internal/app/models"
	"github.com/yigit/scholarsphere/internal/pkg/apperrors"
)

// NotificationRepository handles in-app notification persistence
type NotificationRepository struct {
	baseRepository
}

// NewNotificationRepository creates a new NotificationRepository
func NewNotificationRepository(db *pgxpool.Pool) *NotificationRepository {
	return &NotificationRepository{baseRepository: newBaseRepository(db)}
}

// Create stores a notification and fills its id and timestamp
func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	sql, args, err := r.sb.Insert("notifications").
		Columns("recipient_id", "title", "message", "notification_type", "related_application_id").
		Values(n.RecipientID, n.Title, n.Message, n.Type, n.RelatedApplicationID).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create notification query: %w", err)
	}
	if err := r.conn(ctx).QueryRow(ctx, sql, args...).Scan(&n.ID, &n.CreatedAt); err != nil {
		return fmt.Errorf("error creating notification: %w", err)
	}
	return nil
}

// ListForUser returns one page of a user's notifications, newest first, and the total
func (r *NotificationRepository) ListForUser(ctx context.Context, userID int64, unreadOnly bool, offset uint64, limit int) ([]*models.Notification, int64, error) {
	where := squirrel.And{squirrel.Eq{"recipient_id": userID}}
	if unreadOnly {
		where = append(where, squirrel.Eq{"is_read": false})
	}

	countSQL, countArgs, err := r.sb.Select("COUNT(*)").From("notifications").Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build count notifications query: %w", err)
	}
	var total int64
	if err := r.conn(ctx).QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("error counting notifications: %w", err)
	}

	q := r.sb.Select("id", "recipient_id", "title", "message", "notification_type", "is_read", "read_at", "related_application_id", "created_at").
		From("notifications").
		Where(where).
		OrderBy("created_at DESC", "id DESC")
	if limit > 0 {
		q = q.Limit(uint64(limit)).Offset(offset)
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build list notifications query: %w", err)
	}

	rows, err := r.conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("error listing notifications: %w", err)
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*models.Notification, error) {
		n := &models.Notification{}
		err := row.Scan(&n.ID, &n.RecipientID, &n.Title, &n.Message, &n.Type, &n.IsRead, &n.ReadAt, &n.RelatedApplicationID, &n.CreatedAt)
		return n, err
	})
	if err != nil {
		return nil, 0, fmt.Errorf("error scanning notifications: %w", err)
	}
	return items, total, nil
}

// MarkRead marks one of the user's notifications as read
func (r *NotificationRepository) MarkRead(ctx context.Context, id, userID int64) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE notifications SET is_read = TRUE, read_at = COALESCE(read_at, $1)
		WHERE id = $2 AND recipient_id = $3`,
		time.Now(), id, userID)
	if err != nil {
		return fmt.Errorf("error marking notification read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotificationNotFound
	}
	return nil
}

// MarkAllRead marks every unread notification of the user and returns how many changed
func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE notifications SET is_read = TRUE, read_at = $1
		WHERE recipient_id = $2 AND NOT is_read`,
		time.Now(), userID)
	if err != nil {
		return 0, fmt.Errorf("error marking notifications read: %w", err)
	}
	return tag.RowsAffected(), nil
}

// CountUnread returns the user's unread notification count
func (r *NotificationRepository) CountUnread(ctx context.Context, userID int64) (int64, error) {
	var n int64
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE recipient_id = $1 AND NOT is_read`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("error counting unread notifications: %w", err)
	}
	return n, nil
}

// DeleteReadOlderThan removes read notifications created before cutoff
func (r *NotificationRepository) DeleteReadOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.conn(ctx).Exec(ctx,
		`DELETE FROM notifications WHERE is_read AND created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("error deleting old notifications: %w", err)
	}
	return tag.RowsAffected(), nil
}

// CountAll returns total and unread notification counts
func (r *NotificationRepository) CountAll(ctx context.Context) (total, unread int64, err error) {
	err = r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE NOT is_read) FROM notifications`).Scan(&total, &unread)
	if err != nil {
		return 0, 0, fmt.Errorf("error counting notifications: %w", err)
	}
	return total, unread, nil
}
