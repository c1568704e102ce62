package repos

import (
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"saleroom/internal/domain"
)

type ListingRepo struct{ db *sqlx.DB }

func NewListingRepo(db *sqlx.DB) *ListingRepo { return &ListingRepo{db: db} }

func (r *ListingRepo) Create(l domain.Listing) error {
	_, err := r.db.Exec(`
	  INSERT INTO listings
	    (id, seller_id, title, type, starting_price, reserve_price, current_price, end_time, status, created_at, updated_at)
	  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, l.ID, l.SellerID, l.Title, l.Type, l.StartingPrice, l.ReservePrice, l.CurrentPrice, l.EndTime, l.Status, l.CreatedAt, l.UpdatedAt)
	return err
}

func (r *ListingRepo) Get(id string) (domain.Listing, error) {
	var l domain.Listing
	err := r.db.Get(&l, `SELECT * FROM listings WHERE id = ?`, id)
	return l, err
}

func (r *ListingRepo) GetTx(q sqlx.Queryer, id string) (domain.Listing, error) {
	var l domain.Listing
	err := sqlx.Get(q, &l, `SELECT * FROM listings WHERE id = ?`, id)
	return l, err
}

// TransitionStatus flips status only if it still holds the expected value.
// Returns false when a concurrent action got there first.
func (r *ListingRepo) TransitionStatus(q sqlx.Execer, id, from, to, updatedAt string) (bool, error) {
	res, err := q.Exec(`
		UPDATE listings SET status = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`, to, updatedAt, id, from)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *ListingRepo) UpdatePrice(q sqlx.Execer, id string, price decimal.Decimal, updatedAt string) error {
	_, err := q.Exec(`UPDATE listings SET current_price = ?, updated_at = ? WHERE id = ?`, price, updatedAt, id)
	return err
}

func (r *ListingRepo) UpdateEndTime(q sqlx.Execer, id, endTime, updatedAt string) error {
	_, err := q.Exec(`UPDATE listings SET end_time = ?, updated_at = ? WHERE id = ?`, endTime, updatedAt, id)
	return err
}

// DueIDs returns active auction listings whose end time has passed.
func (r *ListingRepo) DueIDs(now string) ([]string, error) {
	var ids []string
	err := r.db.Select(&ids, `
		SELECT id FROM listings
		WHERE status = 'active' AND end_time != '' AND end_time <= ?
		ORDER BY end_time
	`, now)
	return ids, err
}

// Claim marks a due listing as processing so overlapping sweep runs cannot
// resolve it twice. Returns false if another run already holds the claim.
func (r *ListingRepo) Claim(id, now string) (bool, error) {
	res, err := r.db.Exec(`
		UPDATE listings SET status = 'processing', updated_at = ?
		WHERE id = ? AND status = 'active' AND end_time != '' AND end_time <= ?
	`, now, id, now)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// ReleaseClaim puts a claimed listing back to active after a failed resolve.
func (r *ListingRepo) ReleaseClaim(id, now string) error {
	_, err := r.db.Exec(`
		UPDATE listings SET status = 'active', updated_at = ?
		WHERE id = ? AND status = 'processing'
	`, now, id)
	return err
}
