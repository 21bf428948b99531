package handlers

import (
	"context"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"ngabarin/realtime/internal/apperror"
	"ngabarin/realtime/internal/logger"
	"ngabarin/realtime/internal/middleware"
	"ngabarin/realtime/internal/session"
	ws "ngabarin/realtime/internal/websocket"
)

// WebSocketHandler upgrades verified requests into realtime sessions
type WebSocketHandler struct {
	sessions *session.Manager
	hub      *ws.Hub
}

func NewWebSocketHandler(sessions *session.Manager, hub *ws.Hub) *WebSocketHandler {
	return &WebSocketHandler{sessions: sessions, hub: hub}
}

// Upgrade checks if the request should be upgraded to WebSocket
func (h *WebSocketHandler) Upgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}

	return c.Status(fiber.StatusUpgradeRequired).JSON(fiber.Map{
		"success": false,
		"error": apperror.Payload{
			Code:    "upgrade_required",
			Message: "WebSocket upgrade required",
		},
	})
}

// Handle runs one connection until it closes
func (h *WebSocketHandler) Handle(c *websocket.Conn) {
	// Set by the auth middleware before the upgrade
	userID, _ := c.Locals("userID").(string)

	ctx := context.Background()
	s, err := h.sessions.Connect(ctx, userID, c)
	if err != nil {
		logger.Warn("ws_connect_rejected", "user_id", userID, "code", apperror.CodeOf(err))
		c.WriteMessage(websocket.CloseMessage, []byte{})
		c.Close()
		return
	}

	h.sessions.Serve(ctx, s)
}

// Stats returns WebSocket connection statistics
func (h *WebSocketHandler) Stats(c *fiber.Ctx) error {
	if middleware.GetUserID(c) == "" {
		return apperror.Respond(c, apperror.ErrMissingCredential)
	}

	users := h.hub.GetOnlineUsers()
	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"connections": h.hub.GetConnectionCount(),
			"onlineUsers": len(users),
			"userIds":     users,
		},
	})
}
