package models

import "time"

// Notification types
const (
	NotificationMessage   = "message"
	NotificationForwarded = "forwarded_message"
	NotificationJoined    = "group_joined"
	NotificationLeft      = "group_left"
)

// Notification is a user-addressed record kept on the user and mirrored in the cache
type Notification struct {
	ID         string    `json:"id" msgpack:"id"`
	Type       string    `json:"type" msgpack:"type"`
	Title      string    `json:"title" msgpack:"title"`
	Body       string    `json:"body" msgpack:"body"`
	GroupID    string    `json:"groupId,omitempty" msgpack:"groupId"`
	FromUserID string    `json:"fromUserId,omitempty" msgpack:"fromUserId"`
	CreatedAt  time.Time `json:"createdAt" msgpack:"createdAt"`
}
