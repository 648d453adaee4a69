package middleware

import (
	"fmt"

	"tracker_server/pkg/ratelimit"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// RateLimit limits requests per user using the shared sliding window
// limiter. Unauthenticated requests fall back to the client IP.
func RateLimit(limiter *ratelimit.SlidingWindowLimiter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.IP()
		if userID, ok := c.Locals("user_id").(uuid.UUID); ok {
			key = userID.String()
		}

		allowed, wait := limiter.Allow(c.Context(), key)
		if !allowed {
			retryAfter := int(wait.Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Set("Retry-After", fmt.Sprintf("%d", retryAfter))
			return c.Status(429).JSON(fiber.Map{
				"error":       "rate limit exceeded",
				"code":        "RATE_LIMITED",
				"retry_after": retryAfter,
			})
		}

		return c.Next()
	}
}
