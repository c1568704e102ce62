package handlers

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"

	applog "saleroom/internal/log"
)

// RequireOperator guards the admin surface. Operators carry an actor id like
// every other caller plus the operator secret; a wrong secret is a 403 so a
// probing caller learns the route exists but nothing else.
func RequireOperator(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		got := c.Get("X-Admin-Secret")
		if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			applog.Security(c, "access.denied.admin", nil)
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "operator access required"})
		}
		return c.Next()
	}
}
