package routes

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"ngabarin/realtime/internal/auth"
	"ngabarin/realtime/internal/handlers"
	"ngabarin/realtime/internal/metrics"
	"ngabarin/realtime/internal/middleware"
)

// Handlers groups every HTTP handler the routes are wired to
type Handlers struct {
	WebSocket     *handlers.WebSocketHandler
	Messages      *handlers.MessageHandler
	Groups        *handlers.GroupHandler
	Notifications *handlers.NotificationHandler
}

// SetupRoutes configures all application routes
func SetupRoutes(app *fiber.App, verifier auth.Verifier, h Handlers) {
	app.Get("/metrics", metrics.Handler())

	// API v1 group
	api := app.Group("/api/v1")

	// Health check (public)
	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"message": "Ngabarin realtime is running",
		})
	})

	requireAuth := middleware.Auth(verifier)

	// WebSocket route (protected, verified before the upgrade)
	api.Get("/ws", requireAuth, h.WebSocket.Upgrade, websocket.New(h.WebSocket.Handle))
	api.Get("/ws/stats", requireAuth, h.WebSocket.Stats)

	// Message routes (protected)
	messages := api.Group("/messages", requireAuth, middleware.ModerateRateLimiter())
	messages.Post("/", h.Messages.SendMessage)
	messages.Post("/delivered", h.Messages.MarkDelivered)
	messages.Post("/seen", h.Messages.MarkSeen)
	messages.Patch("/:messageId", h.Messages.EditMessage)
	messages.Delete("/:messageId", h.Messages.DeleteMessage)
	messages.Post("/:messageId/forward", h.Messages.ForwardMessage)

	// Group routes (protected)
	groups := api.Group("/groups", requireAuth, middleware.RelaxedRateLimiter())
	groups.Get("/:groupId", h.Groups.GetGroupDetails)
	groups.Get("/:groupId/messages", h.Messages.GetGroupMessages)

	// Notification routes (protected)
	notifications := api.Group("/notifications", requireAuth, middleware.RelaxedRateLimiter())
	notifications.Get("/", h.Notifications.GetNotifications)
	notifications.Post("/seen", h.Notifications.MarkSeen)
	notifications.Delete("/", h.Notifications.ClearNotifications)
}
