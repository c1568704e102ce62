package handlers

import (
	"github.com/gofiber/fiber/v2"

	"saleroom/internal/domain"
	applog "saleroom/internal/log"
	"saleroom/internal/validate"
)

// fail maps the engine's error kinds onto HTTP statuses.
func fail(c *fiber.Ctx, err error) error {
	var status int
	switch {
	case domain.IsValidation(err):
		status = fiber.StatusBadRequest
	case domain.IsPermission(err):
		status = fiber.StatusForbidden
	case domain.IsNotFound(err):
		status = fiber.StatusNotFound
	case domain.IsConflict(err):
		status = fiber.StatusConflict
	default:
		applog.Error(c, "server.error", err, nil)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}

// RequireActor pulls the authenticated actor identity set by the surrounding
// system. The engine trusts the header; verification happened upstream.
func RequireActor() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, ok := validate.ID(c.Get("X-Actor-ID"))
		if !ok {
			applog.Security(c, "actor.missing", nil)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing or malformed X-Actor-ID"})
		}
		c.Locals("actor", actor)
		return c.Next()
	}
}

func actorID(c *fiber.Ctx) string {
	actor, _ := c.Locals("actor").(string)
	return actor
}
