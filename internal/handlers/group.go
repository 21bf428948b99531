package handlers

import (
	"github.com/gofiber/fiber/v2"

	"ngabarin/realtime/internal/apperror"
	"ngabarin/realtime/internal/middleware"
	"ngabarin/realtime/internal/models"
	"ngabarin/realtime/internal/repository"
	ws "ngabarin/realtime/internal/websocket"
)

// GroupHandler serves group details with live presence
type GroupHandler struct {
	groups repository.GroupRepositoryInterface
	users  repository.UserRepositoryInterface
	hub    *ws.Hub
}

func NewGroupHandler(groups repository.GroupRepositoryInterface, users repository.UserRepositoryInterface, hub *ws.Hub) *GroupHandler {
	return &GroupHandler{groups: groups, users: users, hub: hub}
}

// GroupDetails is a group with the participants that are currently connected
type GroupDetails struct {
	models.Group
	OnlineUserIDs []string `json:"onlineUserIds"`
}

// GetGroupDetails returns a group the caller participates in
func (h *GroupHandler) GetGroupDetails(c *fiber.Ctx) error {
	user, err := h.users.FindByID(c.UserContext(), middleware.GetUserID(c))
	if err != nil {
		return apperror.Respond(c, err)
	}

	group, err := h.groups.FindByID(c.UserContext(), c.Params("groupId"))
	if err != nil {
		return apperror.Respond(c, err)
	}

	// Check if user is member
	if !user.IsAdmin() && user.DefaultGroup() != group.ID && !group.HasParticipant(user.ID) {
		return apperror.Respond(c, apperror.ErrNotGroupMember)
	}

	online := []string{}
	for _, id := range group.Recipients("") {
		if h.hub.IsUserOnline(id) {
			online = append(online, id)
		}
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": GroupDetails{
			Group:         *group,
			OnlineUserIDs: online,
		},
	})
}
