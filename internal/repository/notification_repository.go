package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/incident-hub/internal/domain"
)

// NotificationRepository stores delivery units.
type NotificationRepository interface {
	Create(ctx context.Context, n *domain.Notification) error
	// Update persists the delivery state of n.
	Update(ctx context.Context, n *domain.Notification) error
	GetByID(ctx context.Context, id string) (*domain.Notification, error)
	ListByRecipient(ctx context.Context, recipientID string, limit, offset int) ([]domain.Notification, int64, error)
	CountByStatus(ctx context.Context, recipientID string, status domain.NotificationStatus) (int64, error)
	// MarkAllAsRead moves every SENT notification of the recipient to READ in one statement.
	MarkAllAsRead(ctx context.Context, recipientID string, at time.Time) (int64, error)
	// FindRetryable returns FAILED notifications with retry_count below maxRetries, oldest first.
	FindRetryable(ctx context.Context, maxRetries, limit int) ([]domain.Notification, error)
	// ClaimRetry moves a FAILED row still at retryCount back to PENDING. It
	// reports false when another delivery already claimed or changed the row.
	ClaimRetry(ctx context.Context, id string, retryCount int) (bool, error)
}

type notificationRepository struct {
	pool *pgxpool.Pool
}

// NewNotificationRepository builds repository.
func NewNotificationRepository(pool *pgxpool.Pool) NotificationRepository {
	return &notificationRepository{pool: pool}
}

const notificationColumns = `id, recipient_id, type, channel, status, title, content, entity_type, entity_id,
               metadata, retry_count, error_message, created_at, sent_at, read_at`

func (r *notificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	const query = `
        INSERT INTO notifications (id, recipient_id, type, channel, status, title, content, entity_type, entity_id,
            metadata, retry_count, error_message, created_at, sent_at, read_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`
	_, err := r.pool.Exec(ctx, query,
		n.ID,
		n.RecipientID,
		n.Type,
		n.Channel,
		n.Status,
		n.Title,
		n.Content,
		n.EntityType,
		n.EntityID,
		n.Metadata,
		n.RetryCount,
		n.ErrorMessage,
		n.CreatedAt,
		n.SentAt,
		n.ReadAt,
	)
	return err
}

func (r *notificationRepository) Update(ctx context.Context, n *domain.Notification) error {
	const query = `
        UPDATE notifications SET status=$1, retry_count=$2, error_message=$3, sent_at=$4, read_at=$5
        WHERE id=$6`
	cmd, err := r.pool.Exec(ctx, query,
		n.Status,
		n.RetryCount,
		n.ErrorMessage,
		n.SentAt,
		n.ReadAt,
		n.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.NewNotFound("notification", n.ID)
	}
	return nil
}

func (r *notificationRepository) GetByID(ctx context.Context, id string) (*domain.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE id=$1`
	n, err := scanNotification(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.NewNotFound("notification", id)
	}
	return n, err
}

func (r *notificationRepository) ListByRecipient(ctx context.Context, recipientID string, limit, offset int) ([]domain.Notification, int64, error) {
	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM notifications WHERE recipient_id=$1`, recipientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	limit, offset = pageBounds(limit, offset)
	query := fmt.Sprintf(`SELECT %s FROM notifications WHERE recipient_id=$1 ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		notificationColumns, limit, offset)
	rows, err := r.pool.Query(ctx, query, recipientID)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	result, err := scanNotifications(rows)
	return result, total, err
}

func (r *notificationRepository) CountByStatus(ctx context.Context, recipientID string, status domain.NotificationStatus) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE recipient_id=$1 AND status=$2`,
		recipientID, status,
	).Scan(&count)
	return count, err
}

func (r *notificationRepository) MarkAllAsRead(ctx context.Context, recipientID string, at time.Time) (int64, error) {
	cmd, err := r.pool.Exec(ctx,
		`UPDATE notifications SET status=$1, read_at=$2 WHERE recipient_id=$3 AND status=$4`,
		domain.NotificationRead, at, recipientID, domain.NotificationSent,
	)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *notificationRepository) FindRetryable(ctx context.Context, maxRetries, limit int) ([]domain.Notification, error) {
	limit, _ = pageBounds(limit, 0)
	query := fmt.Sprintf(`SELECT %s FROM notifications WHERE status=$1 AND retry_count < $2 ORDER BY created_at ASC LIMIT %d`,
		notificationColumns, limit)
	rows, err := r.pool.Query(ctx, query, domain.NotificationFailed, maxRetries)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanNotifications(rows)
}

func (r *notificationRepository) ClaimRetry(ctx context.Context, id string, retryCount int) (bool, error) {
	const query = `
        UPDATE notifications SET status=$1
        WHERE id=$2 AND status=$3 AND retry_count=$4`
	cmd, err := r.pool.Exec(ctx, query, domain.NotificationPending, id, domain.NotificationFailed, retryCount)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

func scanNotification(row pgx.Row) (*domain.Notification, error) {
	var n domain.Notification
	var entityType *string
	if err := row.Scan(
		&n.ID,
		&n.RecipientID,
		&n.Type,
		&n.Channel,
		&n.Status,
		&n.Title,
		&n.Content,
		&entityType,
		&n.EntityID,
		&n.Metadata,
		&n.RetryCount,
		&n.ErrorMessage,
		&n.CreatedAt,
		&n.SentAt,
		&n.ReadAt,
	); err != nil {
		return nil, err
	}
	n.EntityType = deref(entityType)
	return &n, nil
}

func scanNotifications(rows pgx.Rows) ([]domain.Notification, error) {
	var result []domain.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *n)
	}
	return result, rows.Err()
}
