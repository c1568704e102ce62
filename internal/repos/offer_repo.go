package repos

import (
	"github.com/jmoiron/sqlx"

	"saleroom/internal/domain"
)

type OfferRepo struct{ db *sqlx.DB }

func NewOfferRepo(db *sqlx.DB) *OfferRepo { return &OfferRepo{db: db} }

func (r *OfferRepo) Insert(q sqlx.Execer, o domain.Offer) error {
	_, err := q.Exec(`
	  INSERT INTO offers
	    (id, listing_id, buyer_id, seller_id, amount, status, parent_offer_id, root_offer_id, counter_count, expires_at, created_at, updated_at)
	  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, o.ID, o.ListingID, o.BuyerID, o.SellerID, o.Amount, o.Status, o.ParentOfferID, o.RootOfferID, o.CounterCount, o.ExpiresAt, o.CreatedAt, o.UpdatedAt)
	return err
}

func (r *OfferRepo) Get(id string) (domain.Offer, error) {
	var o domain.Offer
	err := r.db.Get(&o, `SELECT * FROM offers WHERE id = ?`, id)
	return o, err
}

// Chain returns every node of a negotiation chain in creation order.
func (r *OfferRepo) Chain(rootID string) ([]domain.Offer, error) {
	var out []domain.Offer
	err := r.db.Select(&out, `SELECT * FROM offers WHERE root_offer_id = ? ORDER BY id`, rootID)
	return out, err
}

// TransitionStatus flips an offer's status only from the expected prior one.
// The guard is what keeps a concurrently expired/resolved node untouched.
func (r *OfferRepo) TransitionStatus(q sqlx.Execer, id, from, to, updatedAt string) (bool, error) {
	res, err := q.Exec(`
		UPDATE offers SET status = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`, to, updatedAt, id, from)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// DueIDs returns pending offers whose expiry has passed.
func (r *OfferRepo) DueIDs(now string) ([]string, error) {
	var ids []string
	err := r.db.Select(&ids, `
		SELECT id FROM offers WHERE status = 'pending' AND expires_at <= ?
		ORDER BY expires_at
	`, now)
	return ids, err
}

// Expire transitions one due pending offer to expired. The status guard makes
// it safe under overlapping sweep runs: only one of them flips the row.
func (r *OfferRepo) Expire(id, now string) (bool, error) {
	res, err := r.db.Exec(`
		UPDATE offers SET status = 'expired', updated_at = ?
		WHERE id = ? AND status = 'pending' AND expires_at <= ?
	`, now, id, now)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}
