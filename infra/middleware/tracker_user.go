package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// RequireUser resolves the acting user from the X-User-ID header and stores
// it in request locals. The service sits behind a gateway that authenticates
// requests and forwards the verified user identity in this header.
func RequireUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := c.Get("X-User-ID")
		if raw == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing user identity")
		}

		userID, err := uuid.Parse(raw)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid user identity")
		}

		c.Locals("user_id", userID)
		return c.Next()
	}
}
