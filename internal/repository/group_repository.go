package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ngabarin/realtime/internal/apperror"
	"ngabarin/realtime/internal/models"
)

const groupColumns = `id, name, region, members, managers, created_at, updated_at`

type GroupRepository struct {
	pool *pgxpool.Pool
}

func NewGroupRepository(pool *pgxpool.Pool) *GroupRepository {
	return &GroupRepository{pool: pool}
}

func (r *GroupRepository) FindByID(ctx context.Context, id string) (*models.Group, error) {
	var group models.Group
	err := r.pool.QueryRow(ctx, `SELECT `+groupColumns+` FROM groups WHERE id = $1`, id).
		Scan(&group.ID, &group.Name, &group.Region, &group.Members, &group.Managers, &group.CreatedAt, &group.UpdatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.Wrap(apperror.ErrGroupNotFound, err)
	}
	if err != nil {
		return nil, apperror.Dependency("Failed to load group", err)
	}
	return &group, nil
}

// FindByIDs returns the groups that exist, in the order the IDs were given
func (r *GroupRepository) FindByIDs(ctx context.Context, ids []string) ([]models.Group, error) {
	if len(ids) == 0 {
		return []models.Group{}, nil
	}

	groups, err := r.query(ctx, `
		SELECT `+groupColumns+` FROM groups
		WHERE id = ANY($1)
		ORDER BY array_position($1::text[], id)
	`, ids)
	if err != nil {
		return nil, apperror.Dependency("Failed to load groups", err)
	}
	return groups, nil
}

func (r *GroupRepository) FindByRegions(ctx context.Context, regions []string) ([]models.Group, error) {
	if len(regions) == 0 {
		return []models.Group{}, nil
	}

	groups, err := r.query(ctx, `
		SELECT `+groupColumns+` FROM groups
		WHERE region = ANY($1)
		ORDER BY created_at, id
	`, regions)
	if err != nil {
		return nil, apperror.Dependency("Failed to resolve groups by region", err)
	}
	return groups, nil
}

func (r *GroupRepository) query(ctx context.Context, sql string, args ...any) ([]models.Group, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	groups := []models.Group{}
	for rows.Next() {
		var group models.Group
		if err := rows.Scan(&group.ID, &group.Name, &group.Region, &group.Members,
			&group.Managers, &group.CreatedAt, &group.UpdatedAt); err != nil {
			return nil, err
		}
		groups = append(groups, group)
	}
	return groups, rows.Err()
}
