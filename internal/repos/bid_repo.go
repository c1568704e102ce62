package repos

import (
	"github.com/jmoiron/sqlx"

	"saleroom/internal/domain"
)

type BidRepo struct{ db *sqlx.DB }

func NewBidRepo(db *sqlx.DB) *BidRepo { return &BidRepo{db: db} }

func (r *BidRepo) Insert(q sqlx.Execer, b domain.Bid) error {
	_, err := q.Exec(`
	  INSERT INTO bids (id, listing_id, bidder_id, amount, max_bid, is_auto, status, created_at)
	  VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, b.ID, b.ListingID, b.BidderID, b.Amount, b.MaxBid, b.IsAuto, b.Status, b.CreatedAt)
	return err
}

// Active returns the listing's single active bid, or sql.ErrNoRows.
func (r *BidRepo) Active(q sqlx.Queryer, listingID string) (domain.Bid, error) {
	var b domain.Bid
	err := sqlx.Get(q, &b, `
		SELECT * FROM bids WHERE listing_id = ? AND status = 'active'
	`, listingID)
	return b, err
}

func (r *BidRepo) MarkOutbid(q sqlx.Execer, bidID string) error {
	_, err := q.Exec(`UPDATE bids SET status = 'outbid' WHERE id = ? AND status = 'active'`, bidID)
	return err
}

// Standing returns the listing's non-retracted bids carrying a proxy ceiling,
// in placement order (ULID ids sort by creation).
func (r *BidRepo) Standing(q sqlx.Queryer, listingID string) ([]domain.Bid, error) {
	var out []domain.Bid
	err := sqlx.Select(q, &out, `
		SELECT * FROM bids
		WHERE listing_id = ? AND max_bid IS NOT NULL AND status IN ('active','outbid')
		ORDER BY id
	`, listingID)
	return out, err
}

// ListByListing returns the full ledger for a listing, newest first.
func (r *BidRepo) ListByListing(listingID string) ([]domain.Bid, error) {
	var out []domain.Bid
	err := r.db.Select(&out, `
		SELECT * FROM bids WHERE listing_id = ? ORDER BY id DESC
	`, listingID)
	return out, err
}
