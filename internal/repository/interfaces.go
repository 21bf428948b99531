package repository

import (
	"context"
	"time"

	"ngabarin/realtime/internal/models"
)

// ReceiptKind selects the delivery-tracking set a receipt is added to
type ReceiptKind string

const (
	ReceiptDelivered ReceiptKind = "delivered"
	ReceiptSeen      ReceiptKind = "seen"
)

// UserRepositoryInterface defines the contract for user repository operations
type UserRepositoryInterface interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	SetPresence(ctx context.Context, id string, isOnline bool, lastSeen time.Time) error
}

// GroupRepositoryInterface defines the contract for group repository operations
type GroupRepositoryInterface interface {
	FindByID(ctx context.Context, id string) (*models.Group, error)
	FindByIDs(ctx context.Context, ids []string) ([]models.Group, error)
	FindByRegions(ctx context.Context, regions []string) ([]models.Group, error)
}

// MessageRepositoryInterface defines the contract for message repository operations
type MessageRepositoryInterface interface {
	Create(ctx context.Context, message *models.Message) error
	FindByID(ctx context.Context, id string) (*models.Message, error)
	UpdateEdit(ctx context.Context, message *models.Message) error
	CascadeEdit(ctx context.Context, originalID, text string, tags []string, editedAt time.Time) (int64, error)
	UpdateDelete(ctx context.Context, message *models.Message) error
	CascadeDelete(ctx context.Context, originalID, deletedBy string, deletedAt time.Time) (int64, error)
	AddReceipt(ctx context.Context, ids []string, userID string, kind ReceiptKind) (int64, error)
	ListByGroup(ctx context.Context, groupID string, since, before time.Time, limit int) ([]models.Message, error)
	PurgeDeletedBefore(ctx context.Context, cutoff time.Time) (int64, error)
	Hydrate(ctx context.Context, message *models.Message) (*models.MessageView, error)
}

// NotificationRepositoryInterface defines the contract for the durable per-user notification list
type NotificationRepositoryInterface interface {
	Append(ctx context.Context, userID string, n models.Notification) error
	List(ctx context.Context, userID string) ([]models.Notification, error)
	Clear(ctx context.Context, userID string) error
}
