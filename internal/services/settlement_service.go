package services

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"saleroom/internal/domain"
	"saleroom/internal/repos"
)

const paymentDueDays = 7

// SettlementService turns a won bid or accepted offer into exactly one
// invoice. The UNIQUE(listing_id, seller_id) constraint makes duplicate
// settlement attempts converge on the first invoice instead of erroring.
type SettlementService struct {
	Invoices *repos.InvoiceRepo
	Settings *repos.SettingsRepo
	Notify   Notifier
	Now      func() time.Time
}

func NewSettlementService(invoices *repos.InvoiceRepo, settings *repos.SettingsRepo, notify Notifier) *SettlementService {
	return &SettlementService{Invoices: invoices, Settings: settings, Notify: notify, Now: time.Now}
}

// ResolveRates picks the seller's override when present, else the platform
// defaults. Called once at settlement; the result is frozen onto the invoice.
func (s *SettlementService) ResolveRates(sellerID string) (FeeRates, error) {
	st, err := s.Settings.Get()
	if err != nil {
		return FeeRates{}, err
	}
	rates := FeeRates{
		BuyerPremiumPercent:     st.DefaultBuyerPremiumPercent,
		SellerCommissionPercent: st.DefaultSellerCommissionPercent,
	}
	o, err := s.Settings.Override(sellerID)
	if err != nil {
		if isNoRows(err) {
			return rates, nil
		}
		return FeeRates{}, err
	}
	if o.BuyerPremiumPercent.Valid {
		rates.BuyerPremiumPercent = o.BuyerPremiumPercent.Decimal
	}
	if o.SellerCommissionPercent.Valid {
		rates.SellerCommissionPercent = o.SellerCommissionPercent.Decimal
	}
	return rates, nil
}

// Settle issues the invoice for a winning transaction. Idempotent: a second
// call for the same (listing, seller) returns the existing invoice unchanged.
// fromOffer adds the seller-side confirmation for offer-driven settlement.
func (s *SettlementService) Settle(listingID, sellerID, buyerID string, saleAmount decimal.Decimal, fromOffer bool) (domain.Invoice, error) {
	rates, err := s.ResolveRates(sellerID)
	if err != nil {
		return domain.Invoice{}, err
	}
	fees := CalculateFees(saleAmount, rates)
	now := s.Now()

	inv := domain.Invoice{
		ID:                      uuid.NewString(),
		ListingID:               listingID,
		SellerID:                sellerID,
		BuyerID:                 buyerID,
		SaleAmount:              saleAmount,
		BuyerPremiumPercent:     rates.BuyerPremiumPercent,
		BuyerPremiumAmount:      fees.BuyerPremiumAmount,
		SellerCommissionPercent: rates.SellerCommissionPercent,
		SellerCommissionAmount:  fees.SellerCommissionAmount,
		TotalAmount:             fees.TotalBuyerPays,
		SellerPayoutAmount:      fees.SellerPayoutAmount,
		Status:                  domain.InvoicePending,
		FulfillmentStatus:       domain.FulfillmentAwaitingPayment,
		PaymentDueDate:          domain.FormatTime(now.AddDate(0, 0, paymentDueDays)),
		CreatedAt:               domain.FormatTime(now),
	}

	created, err := s.Invoices.InsertIfAbsent(inv)
	if err != nil {
		return domain.Invoice{}, err
	}
	if !created {
		// A concurrent or earlier settlement won the insert; hand back its invoice.
		return s.Invoices.GetByListingSeller(listingID, sellerID)
	}

	msgs := []Notification{{
		UserID:    buyerID,
		Type:      NotifySettlement,
		Title:     "Payment due",
		Body:      fmt.Sprintf("Your invoice total is %s, due by %s.", inv.TotalAmount, inv.PaymentDueDate),
		ListingID: listingID,
		InvoiceID: inv.ID,
	}}
	if fromOffer {
		msgs = append(msgs, Notification{
			UserID:    sellerID,
			Type:      NotifySettlement,
			Title:     "Sale confirmed",
			Body:      fmt.Sprintf("Your accepted offer settled at %s; payout %s.", inv.SaleAmount, inv.SellerPayoutAmount),
			ListingID: listingID,
			InvoiceID: inv.ID,
		})
	}
	dispatch(s.Notify, msgs)

	return inv, nil
}

// Get returns an invoice by id.
func (s *SettlementService) Get(id string) (domain.Invoice, error) {
	inv, err := s.Invoices.Get(id)
	if err != nil {
		if isNoRows(err) {
			return domain.Invoice{}, domain.NotFoundf("invoice %s not found", id)
		}
		return domain.Invoice{}, err
	}
	return inv, nil
}
