// Package presence tracks online state and announces transitions.
package presence

import (
	"context"
	"time"

	"ngabarin/realtime/internal/logger"
	"ngabarin/realtime/internal/models"
	"ngabarin/realtime/internal/repository"
	ws "ngabarin/realtime/internal/websocket"
)

// Tracker records presence transitions and announces them to every
// scope that renders presence: the user's group, admins, the user's own
// connections, and everyone.
type Tracker struct {
	users   repository.UserRepositoryInterface
	emitter ws.Emitter
	now     func() time.Time
}

func NewTracker(users repository.UserRepositoryInterface, emitter ws.Emitter, now func() time.Time) *Tracker {
	if now == nil {
		now = time.Now
	}
	return &Tracker{users: users, emitter: emitter, now: now}
}

// Online marks the user online. connID is excluded from the group emission.
func (t *Tracker) Online(ctx context.Context, user *models.User, connID string) {
	t.transition(ctx, user, connID, true)
}

// Offline marks the user offline and stamps last-seen
func (t *Tracker) Offline(ctx context.Context, user *models.User, connID string) {
	t.transition(ctx, user, connID, false)
}

func (t *Tracker) transition(ctx context.Context, user *models.User, connID string, online bool) {
	at := t.now()
	if err := t.users.SetPresence(ctx, user.ID, online, at); err != nil {
		logger.Error("presence_update_failed", "user_id", user.ID, "online", online, "error", err)
	}

	event := ws.EventUserOffline
	if online {
		event = ws.EventUserOnline
	}
	payload := ws.PresencePayload{
		UserID:   user.ID,
		Username: user.Username,
		IsOnline: online,
		LastSeen: &at,
	}

	if groupID := user.DefaultGroup(); groupID != "" {
		t.emitter.EmitToRoom(ws.GroupRoom(groupID), event, payload, connID)
	}
	t.emitter.EmitToRoom(ws.AdminRoom, event, payload, "")
	t.emitter.EmitToRoom(ws.UserRoom(user.ID), event, payload, "")
	t.emitter.EmitAll(ws.EventUserStatusChanged, ws.StatusChangedPayload{
		UserID:    user.ID,
		Username:  user.Username,
		IsOnline:  online,
		Timestamp: at,
	})

	logger.Debug("presence_changed", "user_id", user.ID, "online", online)
}
