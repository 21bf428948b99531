package handlers

import (
	"github.com/gofiber/fiber/v2"

	"ngabarin/realtime/internal/apperror"
	"ngabarin/realtime/internal/middleware"
	"ngabarin/realtime/internal/notify"
)

// NotificationHandler serves the caller's notification list
type NotificationHandler struct {
	store *notify.Store
}

func NewNotificationHandler(store *notify.Store) *NotificationHandler {
	return &NotificationHandler{store: store}
}

// GetNotifications returns the caller's notifications, oldest first
func (h *NotificationHandler) GetNotifications(c *fiber.Ctx) error {
	list, err := h.store.Fetch(c.UserContext(), middleware.GetUserID(c))
	if err != nil {
		return apperror.Respond(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    list,
	})
}

// MarkSeen marks every notification as seen
func (h *NotificationHandler) MarkSeen(c *fiber.Ctx) error {
	if err := h.store.MarkSeen(c.UserContext(), middleware.GetUserID(c)); err != nil {
		return apperror.Respond(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}

// ClearNotifications empties the caller's list
func (h *NotificationHandler) ClearNotifications(c *fiber.Ctx) error {
	if err := h.store.Clear(c.UserContext(), middleware.GetUserID(c)); err != nil {
		return apperror.Respond(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}
