package models

import "time"

// Group represents a chat group
type Group struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Region    string    `json:"region" db:"region"`
	Members   []string  `json:"members" db:"members"`
	Managers  []string  `json:"managers" db:"managers"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// GroupSummary is the group projection embedded in hydrated messages
type GroupSummary struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Region string `json:"region"`
}

// HasParticipant reports whether userID is a member or manager of the group
func (g *Group) HasParticipant(userID string) bool {
	for _, id := range g.Members {
		if id == userID {
			return true
		}
	}
	for _, id := range g.Managers {
		if id == userID {
			return true
		}
	}
	return false
}

// Recipients returns members followed by managers, deduplicated, without excludeUserID
func (g *Group) Recipients(excludeUserID string) []string {
	seen := make(map[string]struct{}, len(g.Members)+len(g.Managers))
	out := make([]string, 0, len(g.Members)+len(g.Managers))
	for _, list := range [][]string{g.Members, g.Managers} {
		for _, id := range list {
			if id == excludeUserID {
				continue
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}

// ToSummary converts Group to GroupSummary
func (g *Group) ToSummary() GroupSummary {
	return GroupSummary{
		ID:     g.ID,
		Name:   g.Name,
		Region: g.Region,
	}
}
