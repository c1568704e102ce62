package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TimeFormat is the canonical timestamp layout for every persisted time.
// Fixed-width UTC so TEXT comparisons in SQL order the same as time.Time.
const TimeFormat = "2006-01-02T15:04:05Z"

func FormatTime(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(TimeFormat)
}

func ParseTime(s string) (time.Time, error) {
	return time.Parse(TimeFormat, s)
}

// Listing types
const (
	ListingAuction    = "auction"
	ListingFixedPrice = "fixed_price"
	ListingHybrid     = "hybrid"
)

// Listing statuses. PROCESSING is the sweep's claim marker: a listing being
// resolved holds it until the run commits sold/unsold.
const (
	ListingScheduled  = "scheduled"
	ListingActive     = "active"
	ListingProcessing = "processing"
	ListingSold       = "sold"
	ListingUnsold     = "unsold"
)

type Listing struct {
	ID            string              `db:"id" json:"id"`
	SellerID      string              `db:"seller_id" json:"seller_id"`
	Title         string              `db:"title" json:"title"`
	Type          string              `db:"type" json:"type"`
	StartingPrice decimal.Decimal     `db:"starting_price" json:"starting_price"`
	ReservePrice  decimal.NullDecimal `db:"reserve_price" json:"reserve_price"`
	CurrentPrice  decimal.Decimal     `db:"current_price" json:"current_price"`
	EndTime       string              `db:"end_time" json:"end_time"` // empty for pure fixed-price
	Status        string              `db:"status" json:"status"`
	CreatedAt     string              `db:"created_at" json:"created_at"`
	UpdatedAt     string              `db:"updated_at" json:"updated_at"`
}

// Auctionable reports whether the listing type accepts bids.
func (l Listing) Auctionable() bool {
	return l.Type == ListingAuction || l.Type == ListingHybrid
}

// BuyableNow reports whether the listing type accepts an immediate purchase.
func (l Listing) BuyableNow() bool {
	return l.Type == ListingFixedPrice || l.Type == ListingHybrid
}

// Bid statuses
const (
	BidActive    = "active"
	BidOutbid    = "outbid"
	BidRetracted = "retracted"
)

type Bid struct {
	ID        string              `db:"id" json:"id"` // ULID: lexical order == placement order
	ListingID string              `db:"listing_id" json:"listing_id"`
	BidderID  string              `db:"bidder_id" json:"bidder_id"`
	Amount    decimal.Decimal     `db:"amount" json:"amount"`
	MaxBid    decimal.NullDecimal `db:"max_bid" json:"max_bid"` // proxy ceiling, hidden from other bidders
	IsAuto    bool                `db:"is_auto" json:"is_auto"`
	Status    string              `db:"status" json:"status"`
	CreatedAt string              `db:"created_at" json:"created_at"`
}

// Offer statuses. A "countered" node is superseded and never mutated again;
// every other non-pending status is terminal.
const (
	OfferPending   = "pending"
	OfferAccepted  = "accepted"
	OfferRejected  = "rejected"
	OfferCountered = "countered"
	OfferWithdrawn = "withdrawn"
	OfferExpired   = "expired"
)

type Offer struct {
	ID            string          `db:"id" json:"id"` // ULID
	ListingID     string          `db:"listing_id" json:"listing_id"`
	BuyerID       string          `db:"buyer_id" json:"buyer_id"`
	SellerID      string          `db:"seller_id" json:"seller_id"`
	Amount        decimal.Decimal `db:"amount" json:"amount"`
	Status        string          `db:"status" json:"status"`
	ParentOfferID string          `db:"parent_offer_id" json:"parent_offer_id"` // "" for a chain head
	RootOfferID   string          `db:"root_offer_id" json:"root_offer_id"`     // chain head id; lock key for the chain
	CounterCount  int             `db:"counter_count" json:"counter_count"`
	ExpiresAt     string          `db:"expires_at" json:"expires_at"`
	CreatedAt     string          `db:"created_at" json:"created_at"`
	UpdatedAt     string          `db:"updated_at" json:"updated_at"`
}

// PlatformSettings is a singleton row (id = 1).
type PlatformSettings struct {
	ID                             int             `db:"id" json:"id"`
	DefaultBuyerPremiumPercent     decimal.Decimal `db:"default_buyer_premium_percent" json:"default_buyer_premium_percent"`
	DefaultSellerCommissionPercent decimal.Decimal `db:"default_seller_commission_percent" json:"default_seller_commission_percent"`
	DefaultBidIncrement            decimal.Decimal `db:"default_bid_increment" json:"default_bid_increment"`
	AuctionExtensionMinutes        int             `db:"auction_extension_minutes" json:"auction_extension_minutes"`
	OfferExpiryHours               int             `db:"offer_expiry_hours" json:"offer_expiry_hours"`
}

// SellerRateOverride holds per-seller fee rates; a null column means
// "use the platform default".
type SellerRateOverride struct {
	SellerID                string              `db:"seller_id" json:"seller_id"`
	BuyerPremiumPercent     decimal.NullDecimal `db:"buyer_premium_percent" json:"buyer_premium_percent"`
	SellerCommissionPercent decimal.NullDecimal `db:"seller_commission_percent" json:"seller_commission_percent"`
}

// Invoice statuses
const (
	InvoicePending = "pending"
	InvoicePaid    = "paid"

	FulfillmentAwaitingPayment = "awaiting_payment"
)

type Invoice struct {
	ID                      string          `db:"id" json:"id"`
	ListingID               string          `db:"listing_id" json:"listing_id"`
	SellerID                string          `db:"seller_id" json:"seller_id"`
	BuyerID                 string          `db:"buyer_id" json:"buyer_id"`
	SaleAmount              decimal.Decimal `db:"sale_amount" json:"sale_amount"`
	BuyerPremiumPercent     decimal.Decimal `db:"buyer_premium_percent" json:"buyer_premium_percent"`
	BuyerPremiumAmount      decimal.Decimal `db:"buyer_premium_amount" json:"buyer_premium_amount"`
	SellerCommissionPercent decimal.Decimal `db:"seller_commission_percent" json:"seller_commission_percent"`
	SellerCommissionAmount  decimal.Decimal `db:"seller_commission_amount" json:"seller_commission_amount"`
	TotalAmount             decimal.Decimal `db:"total_amount" json:"total_amount"`
	SellerPayoutAmount      decimal.Decimal `db:"seller_payout_amount" json:"seller_payout_amount"`
	Status                  string          `db:"status" json:"status"`
	FulfillmentStatus       string          `db:"fulfillment_status" json:"fulfillment_status"`
	PaymentDueDate          string          `db:"payment_due_date" json:"payment_due_date"`
	CreatedAt               string          `db:"created_at" json:"created_at"`
}
