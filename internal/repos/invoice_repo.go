package repos

import (
	"github.com/jmoiron/sqlx"

	"saleroom/internal/domain"
)

type InvoiceRepo struct{ db *sqlx.DB }

func NewInvoiceRepo(db *sqlx.DB) *InvoiceRepo { return &InvoiceRepo{db: db} }

// InsertIfAbsent attempts the insert and reports whether this call created
// the row. The UNIQUE(listing_id, seller_id) constraint absorbs concurrent
// duplicate settlement attempts.
func (r *InvoiceRepo) InsertIfAbsent(inv domain.Invoice) (bool, error) {
	res, err := r.db.Exec(`
	  INSERT INTO invoices
	    (id, listing_id, seller_id, buyer_id, sale_amount,
	     buyer_premium_percent, buyer_premium_amount,
	     seller_commission_percent, seller_commission_amount,
	     total_amount, seller_payout_amount,
	     status, fulfillment_status, payment_due_date, created_at)
	  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	  ON CONFLICT(listing_id, seller_id) DO NOTHING
	`, inv.ID, inv.ListingID, inv.SellerID, inv.BuyerID, inv.SaleAmount,
		inv.BuyerPremiumPercent, inv.BuyerPremiumAmount,
		inv.SellerCommissionPercent, inv.SellerCommissionAmount,
		inv.TotalAmount, inv.SellerPayoutAmount,
		inv.Status, inv.FulfillmentStatus, inv.PaymentDueDate, inv.CreatedAt)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *InvoiceRepo) Get(id string) (domain.Invoice, error) {
	var inv domain.Invoice
	err := r.db.Get(&inv, `SELECT * FROM invoices WHERE id = ?`, id)
	return inv, err
}

func (r *InvoiceRepo) GetByListingSeller(listingID, sellerID string) (domain.Invoice, error) {
	var inv domain.Invoice
	err := r.db.Get(&inv, `
		SELECT * FROM invoices WHERE listing_id = ? AND seller_id = ?
	`, listingID, sellerID)
	return inv, err
}
