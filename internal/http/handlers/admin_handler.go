package handlers

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"saleroom/internal/domain"
	applog "saleroom/internal/log"
	"saleroom/internal/repos"
	"saleroom/internal/services"
	"saleroom/internal/validate"
)

// AdminHandler serves the trusted operator surface: platform settings,
// per-seller rate overrides and the end-time override. Changes to rates
// never touch issued invoices; settlement froze those.
type AdminHandler struct {
	Settings *repos.SettingsRepo
	Listings *services.ListingService
}

type settingsReq struct {
	DefaultBuyerPremiumPercent     string `json:"default_buyer_premium_percent"`
	DefaultSellerCommissionPercent string `json:"default_seller_commission_percent"`
	DefaultBidIncrement            string `json:"default_bid_increment"`
	AuctionExtensionMinutes        string `json:"auction_extension_minutes"`
	OfferExpiryHours               string `json:"offer_expiry_hours"`
}

func (h *AdminHandler) UpdateSettings(c *fiber.Ctx) error {
	var req settingsReq
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "malformed body")
	}
	premium, ok := validate.Percent(req.DefaultBuyerPremiumPercent)
	if !ok {
		return badRequest(c, "invalid default_buyer_premium_percent")
	}
	commission, ok := validate.Percent(req.DefaultSellerCommissionPercent)
	if !ok {
		return badRequest(c, "invalid default_seller_commission_percent")
	}
	increment, ok := validate.Amount(req.DefaultBidIncrement)
	if !ok {
		return badRequest(c, "invalid default_bid_increment")
	}
	extension, err := strconv.Atoi(req.AuctionExtensionMinutes)
	if err != nil || extension < 0 {
		return badRequest(c, "invalid auction_extension_minutes")
	}
	expiry, err := strconv.Atoi(req.OfferExpiryHours)
	if err != nil || expiry < 1 {
		return badRequest(c, "invalid offer_expiry_hours")
	}

	s := domain.PlatformSettings{
		ID:                             1,
		DefaultBuyerPremiumPercent:     premium,
		DefaultSellerCommissionPercent: commission,
		DefaultBidIncrement:            increment,
		AuctionExtensionMinutes:        extension,
		OfferExpiryHours:               expiry,
	}
	if err := h.Settings.Update(s); err != nil {
		return fail(c, err)
	}
	applog.Audit(c, "admin.settings.update", nil)
	return c.JSON(s)
}

type ratesReq struct {
	BuyerPremiumPercent     *string `json:"buyer_premium_percent"`     // null = platform default
	SellerCommissionPercent *string `json:"seller_commission_percent"` // null = platform default
}

func (h *AdminHandler) UpsertSellerRates(c *fiber.Ctx) error {
	sellerID, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "invalid seller id")
	}
	var req ratesReq
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "malformed body")
	}
	o := domain.SellerRateOverride{SellerID: sellerID}
	if req.BuyerPremiumPercent != nil {
		p, ok := validate.Percent(*req.BuyerPremiumPercent)
		if !ok {
			return badRequest(c, "invalid buyer_premium_percent")
		}
		o.BuyerPremiumPercent = decimal.NewNullDecimal(p)
	}
	if req.SellerCommissionPercent != nil {
		p, ok := validate.Percent(*req.SellerCommissionPercent)
		if !ok {
			return badRequest(c, "invalid seller_commission_percent")
		}
		o.SellerCommissionPercent = decimal.NewNullDecimal(p)
	}
	if err := h.Settings.UpsertOverride(o); err != nil {
		return fail(c, err)
	}
	applog.Audit(c, "admin.rates.upsert", map[string]any{"seller_id": sellerID})
	return c.JSON(o)
}

type endTimeReq struct {
	EndTime string `json:"end_time"` // RFC3339
}

func (h *AdminHandler) OverrideEndTime(c *fiber.Ctx) error {
	listingID, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "invalid listing id")
	}
	var req endTimeReq
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "malformed body")
	}
	end, err := time.Parse(time.RFC3339, req.EndTime)
	if err != nil {
		return badRequest(c, "end_time must be RFC3339")
	}
	if err := h.Listings.OverrideEndTime(listingID, end); err != nil {
		return fail(c, err)
	}
	applog.Audit(c, "admin.end_time.override", map[string]any{"listing_id": listingID, "end_time": req.EndTime})
	return c.JSON(fiber.Map{"ok": true})
}
