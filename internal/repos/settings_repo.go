package repos

import (
	"github.com/jmoiron/sqlx"

	"saleroom/internal/domain"
)

type SettingsRepo struct{ db *sqlx.DB }

func NewSettingsRepo(db *sqlx.DB) *SettingsRepo { return &SettingsRepo{db: db} }

func (r *SettingsRepo) Get() (domain.PlatformSettings, error) {
	var s domain.PlatformSettings
	err := r.db.Get(&s, `SELECT * FROM platform_settings WHERE id = 1`)
	return s, err
}

func (r *SettingsRepo) Update(s domain.PlatformSettings) error {
	_, err := r.db.Exec(`
		UPDATE platform_settings SET
		  default_buyer_premium_percent = ?,
		  default_seller_commission_percent = ?,
		  default_bid_increment = ?,
		  auction_extension_minutes = ?,
		  offer_expiry_hours = ?
		WHERE id = 1
	`, s.DefaultBuyerPremiumPercent, s.DefaultSellerCommissionPercent,
		s.DefaultBidIncrement, s.AuctionExtensionMinutes, s.OfferExpiryHours)
	return err
}

// Override returns a seller's rate override row, or sql.ErrNoRows.
func (r *SettingsRepo) Override(sellerID string) (domain.SellerRateOverride, error) {
	var o domain.SellerRateOverride
	err := r.db.Get(&o, `SELECT * FROM seller_rate_overrides WHERE seller_id = ?`, sellerID)
	return o, err
}

func (r *SettingsRepo) UpsertOverride(o domain.SellerRateOverride) error {
	_, err := r.db.Exec(`
		INSERT INTO seller_rate_overrides(seller_id, buyer_premium_percent, seller_commission_percent)
		VALUES (?, ?, ?)
		ON CONFLICT(seller_id) DO UPDATE SET
		  buyer_premium_percent = excluded.buyer_premium_percent,
		  seller_commission_percent = excluded.seller_commission_percent
	`, o.SellerID, o.BuyerPremiumPercent, o.SellerCommissionPercent)
	return err
}
