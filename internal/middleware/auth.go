package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"ngabarin/realtime/internal/apperror"
	"ngabarin/realtime/internal/auth"
	"ngabarin/realtime/internal/logger"
)

// Auth verifies the bearer credential before any handler runs. The token is
// read from the Authorization header, the token query parameter or the token
// cookie, in that order.
func Auth(verifier auth.Verifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := extractToken(c)

		claims, err := verifier.Verify(token)
		if err != nil {
			logger.Debug("auth_rejected", "path", c.Path(), "token", logger.MaskToken(token), "code", apperror.CodeOf(err))
			return apperror.Respond(c, err)
		}

		// Store user info in context
		c.Locals("userID", claims.UserID)

		return c.Next()
	}
}

func extractToken(c *fiber.Ctx) string {
	if header := c.Get(fiber.HeaderAuthorization); header != "" {
		if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
			return strings.TrimSpace(header[7:])
		}
	}
	if token := c.Query("token"); token != "" {
		return token
	}
	return c.Cookies("token")
}

// GetUserID gets user ID from context
func GetUserID(c *fiber.Ctx) string {
	userID, ok := c.Locals("userID").(string)
	if !ok {
		return ""
	}
	return userID
}
