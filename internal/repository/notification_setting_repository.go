package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/incident-hub/internal/domain"
)

// NotificationSettingRepository stores per-user opt-in flags.
type NotificationSettingRepository interface {
	// Find returns domain.ErrNotFound when the user never changed the default.
	Find(ctx context.Context, userID string, kind domain.NotificationType, channel domain.NotificationChannel) (*domain.NotificationSetting, error)
	ListByUser(ctx context.Context, userID string) ([]domain.NotificationSetting, error)
	Upsert(ctx context.Context, setting *domain.NotificationSetting) error
}

type notificationSettingRepository struct {
	pool *pgxpool.Pool
}

// NewNotificationSettingRepository builds repository.
func NewNotificationSettingRepository(pool *pgxpool.Pool) NotificationSettingRepository {
	return &notificationSettingRepository{pool: pool}
}

func (r *notificationSettingRepository) Find(ctx context.Context, userID string, kind domain.NotificationType, channel domain.NotificationChannel) (*domain.NotificationSetting, error) {
	const query = `
        SELECT id, user_id, notification_type, channel, enabled, created_at, updated_at
        FROM notification_settings WHERE user_id=$1 AND notification_type=$2 AND channel=$3`
	setting, err := scanSetting(r.pool.QueryRow(ctx, query, userID, kind, channel))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.NewNotFound("notification setting", userID+"/"+string(kind)+"/"+string(channel))
	}
	return setting, err
}

func (r *notificationSettingRepository) ListByUser(ctx context.Context, userID string) ([]domain.NotificationSetting, error) {
	const query = `
        SELECT id, user_id, notification_type, channel, enabled, created_at, updated_at
        FROM notification_settings WHERE user_id=$1 ORDER BY notification_type, channel`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.NotificationSetting
	for rows.Next() {
		setting, err := scanSetting(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *setting)
	}
	return result, rows.Err()
}

func (r *notificationSettingRepository) Upsert(ctx context.Context, setting *domain.NotificationSetting) error {
	const query = `
        INSERT INTO notification_settings (id, user_id, notification_type, channel, enabled, created_at)
        VALUES ($1,$2,$3,$4,$5,$6)
        ON CONFLICT (user_id, notification_type, channel)
        DO UPDATE SET enabled=EXCLUDED.enabled, updated_at=EXCLUDED.created_at
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		setting.ID,
		setting.UserID,
		setting.Type,
		setting.Channel,
		setting.Enabled,
		setting.CreatedAt,
	).Scan(&setting.ID, &setting.CreatedAt, &setting.UpdatedAt)
}

func scanSetting(row pgx.Row) (*domain.NotificationSetting, error) {
	var setting domain.NotificationSetting
	if err := row.Scan(
		&setting.ID,
		&setting.UserID,
		&setting.Type,
		&setting.Channel,
		&setting.Enabled,
		&setting.CreatedAt,
		&setting.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &setting, nil
}
