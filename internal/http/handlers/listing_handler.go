package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"saleroom/internal/domain"
	applog "saleroom/internal/log"
	"saleroom/internal/services"
	"saleroom/internal/validate"
)

type ListingHandler struct {
	Listings *services.ListingService
	Bids     *services.BidService
}

type createListingReq struct {
	Title         string `json:"title"`
	Type          string `json:"type"`
	StartingPrice string `json:"starting_price"`
	ReservePrice  string `json:"reserve_price,omitempty"`
	EndTime       string `json:"end_time,omitempty"` // RFC3339
	Activate      bool   `json:"activate"`
}

func (h *ListingHandler) Create(c *fiber.Ctx) error {
	var req createListingReq
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "malformed body")
	}
	title, ok := validate.Title(req.Title)
	if !ok {
		return badRequest(c, "missing or invalid title")
	}
	typ, ok := validate.ListingType(req.Type)
	if !ok {
		return badRequest(c, "type must be auction, fixed_price or hybrid")
	}
	start, ok := validate.Amount(req.StartingPrice)
	if !ok {
		return badRequest(c, "invalid starting_price")
	}

	in := services.CreateListingInput{
		SellerID:      actorID(c),
		Title:         title,
		Type:          typ,
		StartingPrice: start,
		Activate:      req.Activate,
	}
	if req.ReservePrice != "" {
		reserve, ok := validate.Amount(req.ReservePrice)
		if !ok {
			return badRequest(c, "invalid reserve_price")
		}
		in.ReservePrice = &reserve
	}
	if req.EndTime != "" {
		end, err := time.Parse(time.RFC3339, req.EndTime)
		if err != nil {
			return badRequest(c, "end_time must be RFC3339")
		}
		in.EndTime = &end
	}

	l, err := h.Listings.Create(in)
	if err != nil {
		return fail(c, err)
	}
	applog.Audit(c, "listing.create", map[string]any{"listing_id": l.ID, "type": l.Type})
	return c.Status(fiber.StatusCreated).JSON(listingView(l))
}

func (h *ListingHandler) Activate(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "invalid listing id")
	}
	if err := h.Listings.Activate(id, actorID(c)); err != nil {
		return fail(c, err)
	}
	applog.Audit(c, "listing.activate", map[string]any{"listing_id": id})
	return c.JSON(fiber.Map{"ok": true})
}

func (h *ListingHandler) Get(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "invalid listing id")
	}
	l, err := h.Listings.Get(id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(listingView(l))
}

func (h *ListingHandler) BuyNow(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "invalid listing id")
	}
	inv, err := h.Listings.BuyNow(id, actorID(c))
	if err != nil {
		return fail(c, err)
	}
	applog.Audit(c, "listing.buy_now", map[string]any{"listing_id": id, "invoice_id": inv.ID})
	return c.Status(fiber.StatusCreated).JSON(inv)
}

// listingView hides the reserve price; only its existence is public.
func listingView(l domain.Listing) fiber.Map {
	return fiber.Map{
		"id":             l.ID,
		"seller_id":      l.SellerID,
		"title":          l.Title,
		"type":           l.Type,
		"starting_price": l.StartingPrice,
		"current_price":  l.CurrentPrice,
		"has_reserve":    l.ReservePrice.Valid,
		"end_time":       l.EndTime,
		"status":         l.Status,
		"created_at":     l.CreatedAt,
	}
}
