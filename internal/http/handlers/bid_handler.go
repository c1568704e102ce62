package handlers

import (
	"github.com/gofiber/fiber/v2"

	applog "saleroom/internal/log"
	"saleroom/internal/services"
	"saleroom/internal/validate"
)

type BidHandler struct {
	Bids *services.BidService
}

type placeBidReq struct {
	Amount string `json:"amount"`
	MaxBid string `json:"max_bid,omitempty"`
	IsAuto bool   `json:"is_auto,omitempty"`
}

func (h *BidHandler) Place(c *fiber.Ctx) error {
	listingID, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "invalid listing id")
	}
	var req placeBidReq
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "malformed body")
	}
	amount, ok := validate.Amount(req.Amount)
	if !ok {
		return badRequest(c, "invalid amount")
	}

	var res services.PlaceBidResult
	var err error
	if req.MaxBid != "" {
		maxBid, ok := validate.Amount(req.MaxBid)
		if !ok {
			return badRequest(c, "invalid max_bid")
		}
		res, err = h.Bids.Place(listingID, actorID(c), amount, &maxBid, req.IsAuto)
	} else {
		res, err = h.Bids.Place(listingID, actorID(c), amount, nil, req.IsAuto)
	}
	if err != nil {
		return fail(c, err)
	}
	applog.Audit(c, "bid.place", map[string]any{
		"listing_id": listingID, "current_price": res.CurrentPrice.String(), "winning_bid": res.WinningBidID,
	})
	return c.Status(fiber.StatusCreated).JSON(res)
}

func (h *BidHandler) Retract(c *fiber.Ctx) error {
	listingID, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "invalid listing id")
	}
	bidID, ok := validate.ID(c.Params("bidId"))
	if !ok {
		return badRequest(c, "invalid bid id")
	}
	if err := h.Bids.Retract(listingID, bidID, actorID(c)); err != nil {
		return fail(c, err)
	}
	applog.Audit(c, "bid.retract", map[string]any{"listing_id": listingID, "bid_id": bidID})
	return c.JSON(fiber.Map{"ok": true})
}

// History returns the public ledger. Proxy ceilings stay hidden.
func (h *BidHandler) History(c *fiber.Ctx) error {
	listingID, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "invalid listing id")
	}
	bids, err := h.Bids.History(listingID)
	if err != nil {
		return fail(c, err)
	}
	out := make([]fiber.Map, 0, len(bids))
	for _, b := range bids {
		out = append(out, fiber.Map{
			"id":         b.ID,
			"bidder_id":  b.BidderID,
			"amount":     b.Amount,
			"is_auto":    b.IsAuto,
			"status":     b.Status,
			"created_at": b.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"bids": out})
}
