package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"ngabarin/realtime/internal/logger"
	"ngabarin/realtime/internal/metrics"
)

// Room is a broadcast address
type Room string

// AdminRoom is joined by every connection whose user holds the admin role
const AdminRoom Room = "admin"

// UserRoom is the personal room of a user
func UserRoom(userID string) Room {
	return Room("user:" + userID)
}

// GroupRoom is the room of a group
func GroupRoom(groupID string) Room {
	return Room("group:" + groupID)
}

// Emitter is the sole way components reach connected clients
type Emitter interface {
	// EmitToRoom sends to every connection in room except the one with excludeConnID
	EmitToRoom(room Room, event EventType, payload interface{}, excludeConnID string)
	// EmitAll sends to every connection
	EmitAll(event EventType, payload interface{})
}

// Hub maintains the set of active clients and their room memberships
type Hub struct {
	// Registered clients mapped by connection ID
	clients map[string]*Client

	// Room memberships, room -> connection ID -> client
	rooms map[Room]map[string]*Client

	// Mutex for thread-safe operations
	mu sync.RWMutex

	now func() time.Time
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		rooms:   make(map[Room]map[string]*Client),
		now:     time.Now,
	}
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client.ID] = client
	metrics.Connections.Inc()
	logger.Debug("client_registered", "conn_id", client.ID, "user_id", client.UserID)
}

// Unregister removes a client from the hub and every room it joined.
// It returns false if the client was not registered.
func (h *Hub) Unregister(client *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.ID]; !ok {
		return false
	}

	for room := range client.rooms {
		h.removeFromRoom(client, room)
	}
	delete(h.clients, client.ID)
	close(client.send)
	metrics.Connections.Dec()

	logger.Debug("client_unregistered", "conn_id", client.ID, "user_id", client.UserID)
	return true
}

// Join adds a registered client to a room. Joining twice is a no-op.
func (h *Hub) Join(client *Client, room Room) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.ID]; !ok {
		return
	}

	members, ok := h.rooms[room]
	if !ok {
		members = make(map[string]*Client)
		h.rooms[room] = members
	}
	members[client.ID] = client
	client.rooms[room] = struct{}{}
}

// Leave removes a client from a room
func (h *Hub) Leave(client *Client, room Room) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.removeFromRoom(client, room)
}

func (h *Hub) removeFromRoom(client *Client, room Room) {
	delete(client.rooms, room)
	if members, ok := h.rooms[room]; ok {
		delete(members, client.ID)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

// InRoom reports whether the client is a member of room
func (h *Hub) InRoom(client *Client, room Room) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	_, ok := client.rooms[room]
	return ok
}

// RoomSize returns the number of connections in room
func (h *Hub) RoomSize(room Room) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.rooms[room])
}

// EmitToRoom sends a message to all connections in a room
func (h *Hub) EmitToRoom(room Room, event EventType, payload interface{}, excludeConnID string) {
	data, err := h.encode(WSMessage{Type: event, Payload: payload})
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for connID, client := range h.rooms[room] {
		if connID == excludeConnID {
			continue
		}
		h.deliver(client, data)
	}
	metrics.EventsEmitted.WithLabelValues(string(event)).Inc()
}

// EmitAll sends a message to every connected client
func (h *Hub) EmitAll(event EventType, payload interface{}) {
	data, err := h.encode(WSMessage{Type: event, Payload: payload})
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.clients {
		h.deliver(client, data)
	}
	metrics.EventsEmitted.WithLabelValues(string(event)).Inc()
}

// SendTo sends a message to a single connection
func (h *Hub) SendTo(client *Client, message WSMessage) {
	data, err := h.encode(message)
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if _, ok := h.clients[client.ID]; ok {
		h.deliver(client, data)
	}
}

func (h *Hub) encode(message WSMessage) ([]byte, error) {
	if message.Timestamp.IsZero() {
		message.Timestamp = h.now()
	}
	data, err := json.Marshal(message)
	if err != nil {
		logger.Error("ws_marshal_failed", "event", message.Type, "error", err)
	}
	return data, err
}

// deliver must be called with h.mu held
func (h *Hub) deliver(client *Client, data []byte) {
	select {
	case client.send <- data:
	default:
		logger.Warn("ws_send_buffer_full", "conn_id", client.ID, "user_id", client.UserID)
	}
}

// IsUserOnline checks if a user has at least one connection
func (h *Hub) IsUserOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.clients {
		if client.UserID == userID {
			return true
		}
	}
	return false
}

// GetOnlineUsers returns the distinct IDs of connected users
func (h *Hub) GetOnlineUsers() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	seen := make(map[string]struct{}, len(h.clients))
	userIDs := make([]string, 0, len(h.clients))
	for _, client := range h.clients {
		if _, ok := seen[client.UserID]; ok {
			continue
		}
		seen[client.UserID] = struct{}{}
		userIDs = append(userIDs, client.UserID)
	}

	return userIDs
}

// GetConnectionCount returns the number of currently connected clients
func (h *Hub) GetConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}
