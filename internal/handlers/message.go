package handlers

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"ngabarin/realtime/internal/apperror"
	"ngabarin/realtime/internal/messaging"
	"ngabarin/realtime/internal/middleware"
	"ngabarin/realtime/internal/models"
	"ngabarin/realtime/internal/repository"
)

// EditMessageRequest represents edit message request body
type EditMessageRequest struct {
	Text string `json:"text"`
}

// ForwardMessageRequest represents forward message request body
type ForwardMessageRequest struct {
	GroupIDs []string `json:"groupIds"`
}

// ReceiptRequest represents delivered/seen request body
type ReceiptRequest struct {
	MessageIDs []string `json:"messageIds"`
}

// MessageHandler exposes the message pipeline over HTTP
type MessageHandler struct {
	pipeline *messaging.Pipeline
	users    repository.UserRepositoryInterface
}

func NewMessageHandler(pipeline *messaging.Pipeline, users repository.UserRepositoryInterface) *MessageHandler {
	return &MessageHandler{pipeline: pipeline, users: users}
}

func (h *MessageHandler) currentUser(c *fiber.Ctx) (*models.User, error) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		return nil, apperror.ErrMissingCredential
	}
	return h.users.FindByID(c.UserContext(), userID)
}

// SendMessage sends a message to a group, forwarding it where tags or targets say
func (h *MessageHandler) SendMessage(c *fiber.Ctx) error {
	user, err := h.currentUser(c)
	if err != nil {
		return apperror.Respond(c, err)
	}

	var req messaging.SendInput
	if err := c.BodyParser(&req); err != nil {
		return apperror.Respond(c, apperror.Wrap(apperror.ErrInvalidRequestBody, err))
	}

	message, err := h.pipeline.Send(c.UserContext(), user, req)
	if err != nil {
		return apperror.Respond(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Message sent successfully",
		"data":    message,
	})
}

// EditMessage edits a message within the edit window
func (h *MessageHandler) EditMessage(c *fiber.Ctx) error {
	user, err := h.currentUser(c)
	if err != nil {
		return apperror.Respond(c, err)
	}

	var req EditMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperror.Respond(c, apperror.Wrap(apperror.ErrInvalidRequestBody, err))
	}

	message, err := h.pipeline.Edit(c.UserContext(), user, c.Params("messageId"), req.Text)
	if err != nil {
		return apperror.Respond(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    message,
	})
}

// DeleteMessage tombstones a message
func (h *MessageHandler) DeleteMessage(c *fiber.Ctx) error {
	user, err := h.currentUser(c)
	if err != nil {
		return apperror.Respond(c, err)
	}

	message, err := h.pipeline.Delete(c.UserContext(), user, c.Params("messageId"))
	if err != nil {
		return apperror.Respond(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Message deleted",
		"data": fiber.Map{
			"messageId": message.ID,
			"deletedBy": user.ID,
		},
	})
}

// ForwardMessage copies a message into other groups
func (h *MessageHandler) ForwardMessage(c *fiber.Ctx) error {
	user, err := h.currentUser(c)
	if err != nil {
		return apperror.Respond(c, err)
	}

	var req ForwardMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperror.Respond(c, apperror.Wrap(apperror.ErrInvalidRequestBody, err))
	}

	messages, err := h.pipeline.Forward(c.UserContext(), user, c.Params("messageId"), req.GroupIDs)
	if err != nil {
		return apperror.Respond(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    messages,
	})
}

// MarkDelivered records delivery receipts
func (h *MessageHandler) MarkDelivered(c *fiber.Ctx) error {
	return h.receipt(c, repository.ReceiptDelivered)
}

// MarkSeen records read receipts
func (h *MessageHandler) MarkSeen(c *fiber.Ctx) error {
	return h.receipt(c, repository.ReceiptSeen)
}

func (h *MessageHandler) receipt(c *fiber.Ctx, kind repository.ReceiptKind) error {
	user, err := h.currentUser(c)
	if err != nil {
		return apperror.Respond(c, err)
	}

	var req ReceiptRequest
	if err := c.BodyParser(&req); err != nil {
		return apperror.Respond(c, apperror.Wrap(apperror.ErrInvalidRequestBody, err))
	}

	updated, err := h.pipeline.Acknowledge(c.UserContext(), user, req.MessageIDs, kind)
	if err != nil {
		return apperror.Respond(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"updated": updated,
		},
	})
}

// GetGroupMessages returns group history, newest first
func (h *MessageHandler) GetGroupMessages(c *fiber.Ctx) error {
	user, err := h.currentUser(c)
	if err != nil {
		return apperror.Respond(c, err)
	}

	var before time.Time
	if raw := c.Query("before"); raw != "" {
		before, err = time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return apperror.Respond(c, apperror.Wrap(apperror.ErrInvalidRequestBody, err))
		}
	}
	limit, _ := strconv.Atoi(c.Query("limit", "0"))

	messages, err := h.pipeline.ListGroupMessages(c.UserContext(), user, c.Params("groupId"), before, limit)
	if err != nil {
		return apperror.Respond(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    messages,
	})
}
