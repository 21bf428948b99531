package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ngabarin/realtime/internal/apperror"
	"ngabarin/realtime/internal/models"
)

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	var joinedAt []byte

	err := r.pool.QueryRow(ctx, `
		SELECT id, username, email, role, group_id, is_online, last_seen, group_joined_at, created_at, updated_at
		FROM users WHERE id = $1
	`, id).Scan(&user.ID, &user.Username, &user.Email, &user.Role, &user.GroupID,
		&user.IsOnline, &user.LastSeen, &joinedAt, &user.CreatedAt, &user.UpdatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.Wrap(apperror.ErrUserNotFound, err)
	}
	if err != nil {
		return nil, apperror.Dependency("Failed to load user", err)
	}

	if len(joinedAt) > 0 {
		if err := json.Unmarshal(joinedAt, &user.GroupJoinedAt); err != nil {
			return nil, apperror.Dependency("Failed to decode user", err)
		}
	}

	return &user, nil
}

// SetPresence flips the online flag and stamps last seen. Last write wins.
func (r *UserRepository) SetPresence(ctx context.Context, id string, isOnline bool, lastSeen time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE users SET is_online = $1, last_seen = $2, updated_at = $2 WHERE id = $3
	`, isOnline, lastSeen, id)
	if err != nil {
		return apperror.Dependency("Failed to update presence", err)
	}
	return nil
}
