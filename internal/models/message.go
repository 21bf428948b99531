package models

import (
	"strings"
	"time"
)

// Message status values. Receipts only ever move the status forward.
const (
	StatusSent      = "sent"
	StatusDelivered = "delivered"
	StatusSeen      = "seen"
)

// EditState records whether and when a message was last edited
type EditState struct {
	IsEdited bool       `json:"isEdited"`
	EditedAt *time.Time `json:"editedAt,omitempty"`
}

// DeleteState is the tombstone of a soft-deleted message
type DeleteState struct {
	IsDeleted bool       `json:"isDeleted"`
	DeletedBy *string    `json:"deletedBy,omitempty"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
}

// Message represents a group chat message
type Message struct {
	ID                string      `json:"id" db:"id"`
	SenderID          string      `json:"senderId" db:"sender_id"`
	GroupID           string      `json:"groupId" db:"group_id"`
	Text              string      `json:"text" db:"text"`
	File              *string     `json:"file,omitempty" db:"file"`
	Tags              []string    `json:"tags" db:"tags"`
	ForwardedFrom     *string     `json:"forwardedFrom,omitempty" db:"forwarded_from"`
	ForwardedToGroups []string    `json:"forwardedToGroups,omitempty" db:"forwarded_to_groups"`
	Edited            EditState   `json:"edited"`
	Deleted           DeleteState `json:"deleted"`
	DeliveredTo       []string    `json:"deliveredTo" db:"delivered_to"`
	SeenBy            []string    `json:"seenBy" db:"seen_by"`
	Status            string      `json:"status" db:"status"`
	CreatedAt         time.Time   `json:"createdAt" db:"created_at"`
	UpdatedAt         time.Time   `json:"updatedAt" db:"updated_at"`
}

// IsForwardedCopy reports whether the message was created from another message
func (m *Message) IsForwardedCopy() bool {
	return m.ForwardedFrom != nil && *m.ForwardedFrom != ""
}

// HasContent reports whether the message carries text or a file
func (m *Message) HasContent() bool {
	return strings.TrimSpace(m.Text) != "" || (m.File != nil && strings.TrimSpace(*m.File) != "")
}

// MessageView is a message joined with its sender and group
type MessageView struct {
	Message
	Sender        *UserSummary  `json:"sender,omitempty"`
	Group         *GroupSummary `json:"group,omitempty"`
	IsForwarded   bool          `json:"isForwarded,omitempty"`
	OriginalGroup string        `json:"originalGroup,omitempty"`
}

// Tombstoned returns a copy of the view with deleted content removed
func (v MessageView) Tombstoned() MessageView {
	if !v.Deleted.IsDeleted {
		return v
	}
	v.Text = ""
	v.File = nil
	v.Tags = []string{}
	return v
}
