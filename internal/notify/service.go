package notify

import (
	"context"
	"time"

	"github.com/google/uuid"

	"ngabarin/realtime/internal/logger"
	"ngabarin/realtime/internal/models"
	ws "ngabarin/realtime/internal/websocket"
)

// Template is the recipient-independent part of a notification
type Template struct {
	Type       string
	Title      string
	Body       string
	GroupID    string
	FromUserID string
}

// Service fans a notification out to recipients
type Service struct {
	store   *Store
	emitter ws.Emitter
	now     func() time.Time
}

func NewService(store *Store, emitter ws.Emitter, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{store: store, emitter: emitter, now: now}
}

// Store returns the underlying notification store
func (s *Service) Store() *Store {
	return s.store
}

// Notify records the notification for every recipient and pushes it to their personal rooms.
// A record failure is logged and the push still happens.
func (s *Service) Notify(ctx context.Context, recipients []string, tmpl Template) {
	s.fanOut(ctx, recipients, tmpl, true)
}

// Enqueue records the notification for every recipient without pushing it
func (s *Service) Enqueue(ctx context.Context, recipients []string, tmpl Template) {
	s.fanOut(ctx, recipients, tmpl, false)
}

func (s *Service) fanOut(ctx context.Context, recipients []string, tmpl Template, push bool) {
	createdAt := s.now()
	for _, userID := range recipients {
		n := models.Notification{
			ID:         uuid.NewString(),
			Type:       tmpl.Type,
			Title:      tmpl.Title,
			Body:       tmpl.Body,
			GroupID:    tmpl.GroupID,
			FromUserID: tmpl.FromUserID,
			CreatedAt:  createdAt,
		}
		if err := s.store.Record(ctx, userID, n); err != nil {
			logger.Error("notification_record_failed", "user_id", userID, "type", n.Type, "error", err)
		}
		if push {
			s.emitter.EmitToRoom(ws.UserRoom(userID), ws.EventNotificationNew, n, "")
		}
	}
}
