package websocket

import (
	"encoding/json"
	"time"
)

// EventType represents different WebSocket event types
type EventType string

const (
	// Room membership
	EventJoinAdmin  EventType = "join:admin"
	EventGroupJoin  EventType = "group:join"
	EventGroupLeave EventType = "group:leave"

	// Message pipeline
	EventMessageSend      EventType = "message:send"
	EventMessageEdit      EventType = "message:edit"
	EventMessageDelete    EventType = "message:delete"
	EventMessageForward   EventType = "message:forward"
	EventMessageDelivered EventType = "message:delivered"
	EventMessageSeen      EventType = "message:seen"
	EventMessageNew       EventType = "message:new"
	EventMessageEdited    EventType = "message:edited"
	EventMessageDeleted   EventType = "message:deleted"

	// Typing events
	EventTypingStart EventType = "typing:start"
	EventTypingStop  EventType = "typing:stop"

	// Presence events
	EventUserOnline        EventType = "user:online"
	EventUserOffline       EventType = "user:offline"
	EventUserStatusChanged EventType = "user:status:changed"
	EventUserJoined        EventType = "user:joined"
	EventUserLeft          EventType = "user:left"

	// Notifications
	EventNotificationNew    EventType = "notification:new"
	EventNotificationsFetch EventType = "notifications:fetch"
	EventNotificationsSeen  EventType = "notifications:seen"
	EventNotificationsClear EventType = "notifications:clear"

	// Replies
	EventAck   EventType = "ack"
	EventError EventType = "error"
)

// WSMessage represents a WebSocket message structure
type WSMessage struct {
	Type      EventType   `json:"type"`
	Payload   interface{} `json:"payload"`
	AckID     string      `json:"ackId,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// IncomingMessage represents messages received from clients
type IncomingMessage struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload"`
	AckID   string          `json:"ackId,omitempty"`
}

// Decode unmarshals the payload into v. An absent payload leaves v untouched.
func (m IncomingMessage) Decode(v interface{}) error {
	if len(m.Payload) == 0 || string(m.Payload) == "null" {
		return nil
	}
	return json.Unmarshal(m.Payload, v)
}

// GroupPayload carries a group reference (group:join, group:leave, typing)
type GroupPayload struct {
	GroupID string `json:"groupId"`
}

// SendPayload is the body of message:send
type SendPayload struct {
	Text         string   `json:"text,omitempty"`
	File         *string  `json:"file,omitempty"`
	GroupID      string   `json:"groupId,omitempty"`
	TargetGroups []string `json:"targetGroups,omitempty"`
}

// EditPayload is the body of message:edit
type EditPayload struct {
	MessageID string `json:"messageId"`
	Text      string `json:"text"`
}

// MessageRefPayload references a single message (message:delete)
type MessageRefPayload struct {
	MessageID string `json:"messageId"`
}

// ForwardPayload is the body of message:forward
type ForwardPayload struct {
	MessageID string   `json:"messageId"`
	GroupIDs  []string `json:"groupIds"`
}

// ReceiptPayload is the body of message:delivered and message:seen
type ReceiptPayload struct {
	MessageIDs []string `json:"messageIds"`
}

// TypingPayload represents typing indicator payload
type TypingPayload struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	GroupID  string `json:"groupId"`
}

// PresencePayload represents user presence payload
type PresencePayload struct {
	UserID   string     `json:"userId"`
	Username string     `json:"username"`
	IsOnline bool       `json:"isOnline"`
	LastSeen *time.Time `json:"lastSeen,omitempty"`
}

// StatusChangedPayload is the global presence broadcast
type StatusChangedPayload struct {
	UserID    string    `json:"userId"`
	Username  string    `json:"username"`
	IsOnline  bool      `json:"isOnline"`
	Timestamp time.Time `json:"timestamp"`
}

// MembershipPayload announces a user joining or leaving a group room
type MembershipPayload struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

// DeletedPayload is the body of message:deleted
type DeletedPayload struct {
	MessageID string `json:"messageId"`
	DeletedBy string `json:"deletedBy"`
}

// AckPayload answers a request that carried an ackId
type AckPayload struct {
	OK    bool        `json:"ok"`
	ID    string      `json:"id,omitempty"`
	Data  interface{} `json:"data,omitempty"`
	Error interface{} `json:"error,omitempty"`
}
