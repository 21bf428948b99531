package models

import "time"

// Role is a user's system-wide role
type Role string

const (
	RoleMember  Role = "member"
	RoleManager Role = "manager"
	RoleAdmin   Role = "admin"
)

// User represents a user in the system
type User struct {
	ID            string               `json:"id" db:"id"`
	Username      string               `json:"username" db:"username"`
	Email         string               `json:"email" db:"email"`
	Role          Role                 `json:"role" db:"role"`
	GroupID       *string              `json:"groupId,omitempty" db:"group_id"` // Default messaging group
	IsOnline      bool                 `json:"isOnline" db:"is_online"`
	LastSeen      time.Time            `json:"lastSeen" db:"last_seen"`
	GroupJoinedAt map[string]time.Time `json:"groupJoinedAt,omitempty" db:"group_joined_at"`
	CreatedAt     time.Time            `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time            `json:"updatedAt" db:"updated_at"`
}

// UserSummary is the sender projection embedded in hydrated messages
type UserSummary struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

// IsAdmin reports whether the user holds the admin role
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// CanModerate reports whether the user may delete messages they did not send
func (u *User) CanModerate() bool {
	return u.Role == RoleManager || u.Role == RoleAdmin
}

// DefaultGroup returns the user's current group ID or an empty string
func (u *User) DefaultGroup() string {
	if u.GroupID == nil {
		return ""
	}
	return *u.GroupID
}

// ToSummary converts User to UserSummary
func (u *User) ToSummary() UserSummary {
	return UserSummary{
		ID:       u.ID,
		Username: u.Username,
		Role:     u.Role,
	}
}
