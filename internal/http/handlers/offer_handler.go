package handlers

import (
	"github.com/gofiber/fiber/v2"

	applog "saleroom/internal/log"
	"saleroom/internal/services"
	"saleroom/internal/validate"
)

type OfferHandler struct {
	Offers *services.OfferService
}

type createOfferReq struct {
	ListingID string `json:"listing_id"`
	Amount    string `json:"amount"`
}

func (h *OfferHandler) Create(c *fiber.Ctx) error {
	var req createOfferReq
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "malformed body")
	}
	listingID, ok := validate.ID(req.ListingID)
	if !ok {
		return badRequest(c, "invalid listing_id")
	}
	amount, ok := validate.Amount(req.Amount)
	if !ok {
		return badRequest(c, "invalid amount")
	}
	o, err := h.Offers.Create(listingID, actorID(c), amount)
	if err != nil {
		return fail(c, err)
	}
	applog.Audit(c, "offer.create", map[string]any{"offer_id": o.ID, "listing_id": listingID})
	return c.Status(fiber.StatusCreated).JSON(o)
}

func (h *OfferHandler) Accept(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "invalid offer id")
	}
	inv, err := h.Offers.Accept(id, actorID(c))
	if err != nil {
		return fail(c, err)
	}
	applog.Audit(c, "offer.accept", map[string]any{"offer_id": id, "invoice_id": inv.ID})
	return c.Status(fiber.StatusCreated).JSON(inv)
}

func (h *OfferHandler) Reject(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "invalid offer id")
	}
	if err := h.Offers.Reject(id, actorID(c)); err != nil {
		return fail(c, err)
	}
	applog.Audit(c, "offer.reject", map[string]any{"offer_id": id})
	return c.JSON(fiber.Map{"ok": true})
}

type counterOfferReq struct {
	Amount string `json:"amount"`
}

func (h *OfferHandler) Counter(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "invalid offer id")
	}
	var req counterOfferReq
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "malformed body")
	}
	amount, ok := validate.Amount(req.Amount)
	if !ok {
		return badRequest(c, "invalid amount")
	}
	child, err := h.Offers.Counter(id, actorID(c), amount)
	if err != nil {
		return fail(c, err)
	}
	applog.Audit(c, "offer.counter", map[string]any{"offer_id": id, "counter_id": child.ID})
	return c.Status(fiber.StatusCreated).JSON(child)
}

func (h *OfferHandler) Withdraw(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "invalid offer id")
	}
	if err := h.Offers.Withdraw(id, actorID(c)); err != nil {
		return fail(c, err)
	}
	applog.Audit(c, "offer.withdraw", map[string]any{"offer_id": id})
	return c.JSON(fiber.Map{"ok": true})
}

func (h *OfferHandler) Chain(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "invalid offer id")
	}
	chain, err := h.Offers.Chain(id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"offers": chain})
}
