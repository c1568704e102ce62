package handlers

import (
	"github.com/gofiber/fiber/v2"

	"saleroom/internal/services"
	"saleroom/internal/validate"
)

type InvoiceHandler struct {
	Settle *services.SettlementService
}

func (h *InvoiceHandler) Get(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "invalid invoice id")
	}
	inv, err := h.Settle.Get(id)
	if err != nil {
		return fail(c, err)
	}
	// Invoices are visible to their two parties only.
	if actor := actorID(c); actor != inv.BuyerID && actor != inv.SellerID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "not a party to this invoice"})
	}
	return c.JSON(inv)
}
