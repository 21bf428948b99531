package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ngabarin/realtime/internal/apperror"
	"ngabarin/realtime/internal/models"
)

const messageColumns = `id, sender_id, group_id, text, file, tags, forwarded_from, forwarded_to_groups,
	is_edited, edited_at, is_deleted, deleted_by, deleted_at, delivered_to, seen_by, status, created_at, updated_at`

type MessageRepository struct {
	pool *pgxpool.Pool
}

func NewMessageRepository(pool *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{pool: pool}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (*models.Message, error) {
	var m models.Message
	err := row.Scan(
		&m.ID, &m.SenderID, &m.GroupID, &m.Text, &m.File, &m.Tags, &m.ForwardedFrom, &m.ForwardedToGroups,
		&m.Edited.IsEdited, &m.Edited.EditedAt, &m.Deleted.IsDeleted, &m.Deleted.DeletedBy, &m.Deleted.DeletedAt,
		&m.DeliveredTo, &m.SeenBy, &m.Status, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func (r *MessageRepository) Create(ctx context.Context, m *models.Message) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO messages (`+messageColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`, m.ID, m.SenderID, m.GroupID, m.Text, m.File, nonNil(m.Tags), m.ForwardedFrom, nonNil(m.ForwardedToGroups),
		m.Edited.IsEdited, m.Edited.EditedAt, m.Deleted.IsDeleted, m.Deleted.DeletedBy, m.Deleted.DeletedAt,
		nonNil(m.DeliveredTo), nonNil(m.SeenBy), m.Status, m.CreatedAt, m.UpdatedAt)
	if err != nil {
		return apperror.Dependency("Failed to save message", err)
	}
	return nil
}

func (r *MessageRepository) FindByID(ctx context.Context, id string) (*models.Message, error) {
	m, err := scanMessage(r.pool.QueryRow(ctx, `SELECT `+messageColumns+` FROM messages WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.Wrap(apperror.ErrMessageNotFound, err)
	}
	if err != nil {
		return nil, apperror.Dependency("Failed to load message", err)
	}
	return m, nil
}

func (r *MessageRepository) UpdateEdit(ctx context.Context, m *models.Message) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE messages SET text = $2, tags = $3, is_edited = TRUE, edited_at = $4, updated_at = $4
		WHERE id = $1
	`, m.ID, m.Text, nonNil(m.Tags), m.Edited.EditedAt)
	if err != nil {
		return apperror.Dependency("Failed to edit message", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.ErrMessageNotFound
	}
	return nil
}

func (r *MessageRepository) CascadeEdit(ctx context.Context, originalID, text string, tags []string, editedAt time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE messages SET text = $2, tags = $3, is_edited = TRUE, edited_at = $4, updated_at = $4
		WHERE forwarded_from = $1
	`, originalID, text, nonNil(tags), editedAt)
	if err != nil {
		return 0, apperror.Dependency("Failed to edit forwarded copies", err)
	}
	return tag.RowsAffected(), nil
}

func (r *MessageRepository) UpdateDelete(ctx context.Context, m *models.Message) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE messages SET is_deleted = TRUE, deleted_by = $2, deleted_at = $3, updated_at = $3
		WHERE id = $1
	`, m.ID, m.Deleted.DeletedBy, m.Deleted.DeletedAt)
	if err != nil {
		return apperror.Dependency("Failed to delete message", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.ErrMessageNotFound
	}
	return nil
}

func (r *MessageRepository) CascadeDelete(ctx context.Context, originalID, deletedBy string, deletedAt time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE messages SET is_deleted = TRUE, deleted_by = $2, deleted_at = $3, updated_at = $3
		WHERE forwarded_from = $1
	`, originalID, deletedBy, deletedAt)
	if err != nil {
		return 0, apperror.Dependency("Failed to delete forwarded copies", err)
	}
	return tag.RowsAffected(), nil
}

// AddReceipt adds userID to the receipt set of each message that does not contain it yet
func (r *MessageRepository) AddReceipt(ctx context.Context, ids []string, userID string, kind ReceiptKind) (int64, error) {
	var sql string
	switch kind {
	case ReceiptSeen:
		sql = `
			UPDATE messages
			SET seen_by = array_append(seen_by, $2), status = 'seen', updated_at = now()
			WHERE id = ANY($1) AND NOT ($2 = ANY(seen_by))`
	default:
		sql = `
			UPDATE messages
			SET delivered_to = array_append(delivered_to, $2),
				status = CASE WHEN status = 'sent' THEN 'delivered' ELSE status END,
				updated_at = now()
			WHERE id = ANY($1) AND NOT ($2 = ANY(delivered_to))`
	}

	tag, err := r.pool.Exec(ctx, sql, ids, userID)
	if err != nil {
		return 0, apperror.Dependency("Failed to update receipts", err)
	}
	return tag.RowsAffected(), nil
}

// ListByGroup returns messages created in [since, before), newest first
func (r *MessageRepository) ListByGroup(ctx context.Context, groupID string, since, before time.Time, limit int) ([]models.Message, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+messageColumns+` FROM messages
		WHERE group_id = $1 AND created_at >= $2 AND created_at < $3
		ORDER BY created_at DESC
		LIMIT $4
	`, groupID, since, before, limit)
	if err != nil {
		return nil, apperror.Dependency("Failed to load messages", err)
	}
	defer rows.Close()

	messages := []models.Message{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, apperror.Dependency("Failed to load messages", err)
		}
		messages = append(messages, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.Dependency("Failed to load messages", err)
	}
	return messages, nil
}

func (r *MessageRepository) PurgeDeletedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM messages WHERE is_deleted = TRUE AND deleted_at < $1`, cutoff)
	if err != nil {
		return 0, apperror.Dependency("Failed to purge messages", err)
	}
	return tag.RowsAffected(), nil
}

// Hydrate joins the message with its sender and group summaries
func (r *MessageRepository) Hydrate(ctx context.Context, m *models.Message) (*models.MessageView, error) {
	view := &models.MessageView{Message: *m}

	var sender models.UserSummary
	err := r.pool.QueryRow(ctx, `SELECT id, username, role FROM users WHERE id = $1`, m.SenderID).
		Scan(&sender.ID, &sender.Username, &sender.Role)
	switch {
	case err == nil:
		view.Sender = &sender
	case !errors.Is(err, pgx.ErrNoRows):
		return nil, apperror.Dependency("Failed to hydrate sender", err)
	}

	var group models.GroupSummary
	err = r.pool.QueryRow(ctx, `SELECT id, name, region FROM groups WHERE id = $1`, m.GroupID).
		Scan(&group.ID, &group.Name, &group.Region)
	switch {
	case err == nil:
		view.Group = &group
	case !errors.Is(err, pgx.ErrNoRows):
		return nil, apperror.Dependency("Failed to hydrate group", err)
	}

	return view, nil
}
