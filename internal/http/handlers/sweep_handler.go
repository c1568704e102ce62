package handlers

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"

	applog "saleroom/internal/log"
	"saleroom/internal/services"
)

// SweepHandler exposes the trusted periodic trigger. The caller is an
// out-of-band scheduler authenticated by a shared secret.
type SweepHandler struct {
	Sweep  *services.SweepService
	Secret string
}

func (h *SweepHandler) Trigger(c *fiber.Ctx) error {
	got := c.Get("X-Sweep-Secret")
	if subtle.ConstantTimeCompare([]byte(got), []byte(h.Secret)) != 1 {
		applog.Security(c, "sweep.auth.fail", nil)
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "bad sweep secret"})
	}
	rep, err := h.Sweep.Run()
	if err != nil {
		applog.Error(c, "sweep.fail", err, nil)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "sweep failed"})
	}
	applog.Info(c, "sweep.run", map[string]any{
		"sold": rep.ListingsSold, "unsold": rep.ListingsUnsold, "offers_expired": rep.OffersExpired,
	})
	return c.JSON(rep)
}
