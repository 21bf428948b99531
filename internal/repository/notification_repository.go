package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ngabarin/realtime/internal/apperror"
	"ngabarin/realtime/internal/models"
)

// NotificationRepository keeps notifications as a JSONB array on the user row
type NotificationRepository struct {
	pool *pgxpool.Pool
}

func NewNotificationRepository(pool *pgxpool.Pool) *NotificationRepository {
	return &NotificationRepository{pool: pool}
}

func (r *NotificationRepository) Append(ctx context.Context, userID string, n models.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return err
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE users
		SET notifications = COALESCE(notifications, '[]'::jsonb) || jsonb_build_array($2::jsonb)
		WHERE id = $1
	`, userID, string(payload))
	if err != nil {
		return apperror.Dependency("Failed to store notification", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.ErrUserNotFound
	}
	return nil
}

// List returns the user's notifications, oldest first. Unknown users have none.
func (r *NotificationRepository) List(ctx context.Context, userID string) ([]models.Notification, error) {
	var raw []byte
	err := r.pool.QueryRow(ctx, `SELECT notifications FROM users WHERE id = $1`, userID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return []models.Notification{}, nil
	}
	if err != nil {
		return nil, apperror.Dependency("Failed to load notifications", err)
	}

	notifications := []models.Notification{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &notifications); err != nil {
			return nil, apperror.Dependency("Failed to decode notifications", err)
		}
	}
	return notifications, nil
}

func (r *NotificationRepository) Clear(ctx context.Context, userID string) error {
	_, err := r.pool.Exec(ctx, `UPDATE users SET notifications = '[]'::jsonb WHERE id = $1`, userID)
	if err != nil {
		return apperror.Dependency("Failed to clear notifications", err)
	}
	return nil
}
