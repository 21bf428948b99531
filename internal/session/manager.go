// Package session owns the lifecycle of one realtime connection: room
// membership, presence transitions and inbound event routing.
package session

import (
	"context"

	"ngabarin/realtime/internal/logger"
	"ngabarin/realtime/internal/messaging"
	"ngabarin/realtime/internal/models"
	"ngabarin/realtime/internal/notify"
	"ngabarin/realtime/internal/presence"
	"ngabarin/realtime/internal/repository"
	ws "ngabarin/realtime/internal/websocket"
)

// Manager creates sessions for verified connections
type Manager struct {
	users    repository.UserRepositoryInterface
	groups   repository.GroupRepositoryInterface
	hub      *ws.Hub
	emitter  ws.Emitter
	presence *presence.Tracker
	pipeline *messaging.Pipeline
	notifier *notify.Service
}

// Deps are the collaborators of a Manager
type Deps struct {
	Users    repository.UserRepositoryInterface
	Groups   repository.GroupRepositoryInterface
	Hub      *ws.Hub
	Emitter  ws.Emitter
	Presence *presence.Tracker
	Pipeline *messaging.Pipeline
	Notifier *notify.Service
}

func NewManager(d Deps) *Manager {
	emitter := d.Emitter
	if emitter == nil {
		emitter = d.Hub
	}
	return &Manager{
		users:    d.Users,
		groups:   d.Groups,
		hub:      d.Hub,
		emitter:  emitter,
		presence: d.Presence,
		pipeline: d.Pipeline,
		notifier: d.Notifier,
	}
}

// Session is one authenticated connection
type Session struct {
	manager *Manager
	client  *ws.Client
	user    *models.User
}

// Client returns the hub client backing the session
func (s *Session) Client() *ws.Client {
	return s.client
}

// User returns the user snapshot taken at connect time
func (s *Session) User() *models.User {
	return s.user
}

// Connect resolves the already verified userID and sets up room membership.
// It returns an error without touching any state when the user no longer exists.
func (m *Manager) Connect(ctx context.Context, userID string, conn ws.Conn) (*Session, error) {
	user, err := m.users.FindByID(ctx, userID)
	if err != nil {
		logger.Warn("session_user_lookup_failed", "user_id", userID, "error", err)
		return nil, err
	}

	client := ws.NewClient(user.ID, user.Username, conn, m.hub)
	m.hub.Register(client)
	m.hub.Join(client, ws.UserRoom(user.ID))
	if groupID := user.DefaultGroup(); groupID != "" {
		m.hub.Join(client, ws.GroupRoom(groupID))
	}
	if user.IsAdmin() {
		m.hub.Join(client, ws.AdminRoom)
	}

	m.presence.Online(ctx, user, client.ID)
	logger.Info("session_connected", "user_id", user.ID, "conn_id", client.ID, "role", user.Role)

	return &Session{manager: m, client: client, user: user}, nil
}

// Serve pumps the connection until it closes, then runs the disconnect sequence
func (m *Manager) Serve(ctx context.Context, s *Session) {
	go s.client.WritePump()
	s.client.ReadPump(ctx, s)
	m.Disconnect(s)
}

// Disconnect removes the session from every room and marks the user offline.
// It runs to completion regardless of the request context.
func (m *Manager) Disconnect(s *Session) {
	if !m.hub.Unregister(s.client) {
		return
	}
	m.presence.Offline(context.Background(), s.user, s.client.ID)
	logger.Info("session_disconnected", "user_id", s.user.ID, "conn_id", s.client.ID)
}
