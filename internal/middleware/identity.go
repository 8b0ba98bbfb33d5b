package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/relionflow/api/internal/logging"
)

// Identity reads the caller's identity from X-User-* headers set by the
// gateway. It is attribution only: a request without headers is keyed by
// client address and still served.
func Identity() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Get("X-User-Id")
		if userID == "" {
			userID = "ip:" + c.IP()
		}

		c.Locals("userId", userID)
		c.Locals("email", c.Get("X-User-Email"))
		c.Locals("name", c.Get("X-User-Name"))

		logger := logging.FromContext(c.UserContext()).With("user_id", userID)
		c.SetUserContext(logging.WithLogger(c.UserContext(), logger))

		return c.Next()
	}
}

// GetUserID extracts user ID from context
func GetUserID(c *fiber.Ctx) string {
	if userID, ok := c.Locals("userId").(string); ok {
		return userID
	}
	return ""
}
