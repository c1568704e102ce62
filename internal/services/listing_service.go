package services

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"saleroom/internal/domain"
	"saleroom/internal/repos"
)

type ListingService struct {
	db       *sqlx.DB
	Listings *repos.ListingRepo
	Settle   *SettlementService
	Locks    *KeyedMutex
	Notify   Notifier
	Now      func() time.Time
}

func NewListingService(db *sqlx.DB, listings *repos.ListingRepo, settle *SettlementService, locks *KeyedMutex, notify Notifier) *ListingService {
	return &ListingService{db: db, Listings: listings, Settle: settle, Locks: locks, Notify: notify, Now: time.Now}
}

type CreateListingInput struct {
	SellerID      string
	Title         string
	Type          string
	StartingPrice decimal.Decimal
	ReservePrice  *decimal.Decimal
	EndTime       *time.Time
	Activate      bool
}

func (s *ListingService) Create(in CreateListingInput) (domain.Listing, error) {
	now := s.Now()
	nowStr := domain.FormatTime(now)

	l := domain.Listing{
		ID:            uuid.NewString(),
		SellerID:      in.SellerID,
		Title:         in.Title,
		Type:          in.Type,
		StartingPrice: in.StartingPrice,
		CurrentPrice:  in.StartingPrice,
		Status:        domain.ListingScheduled,
		CreatedAt:     nowStr,
		UpdatedAt:     nowStr,
	}
	if in.ReservePrice != nil {
		l.ReservePrice = decimal.NewNullDecimal(*in.ReservePrice)
	}
	if l.Auctionable() {
		if in.EndTime == nil || !in.EndTime.After(now) {
			return domain.Listing{}, domain.Validationf("an auctionable listing needs a future end time")
		}
		l.EndTime = domain.FormatTime(*in.EndTime)
	}
	if in.Activate {
		l.Status = domain.ListingActive
	}

	if err := s.Listings.Create(l); err != nil {
		return domain.Listing{}, err
	}
	return l, nil
}

// Activate moves a scheduled listing live. Seller-only.
func (s *ListingService) Activate(listingID, actorID string) error {
	l, err := s.get(listingID)
	if err != nil {
		return err
	}
	if l.SellerID != actorID {
		return domain.Permissionf("only the seller may activate listing %s", listingID)
	}
	ok, err := s.Listings.TransitionStatus(s.db, listingID, domain.ListingScheduled, domain.ListingActive, domain.FormatTime(s.Now()))
	if err != nil {
		return err
	}
	if !ok {
		return domain.Conflictf("listing %s is not scheduled", listingID)
	}
	return nil
}

// OverrideEndTime is the administrative exception to the no-backward rule:
// it sets the end time unconditionally on an active auction listing.
func (s *ListingService) OverrideEndTime(listingID string, newEnd time.Time) error {
	unlock := s.Locks.Lock("listing:" + listingID)
	defer unlock()

	l, err := s.get(listingID)
	if err != nil {
		return err
	}
	if !l.Auctionable() {
		return domain.Validationf("listing %s has no auction clock", listingID)
	}
	if l.Status != domain.ListingActive && l.Status != domain.ListingScheduled {
		return domain.Conflictf("listing %s is %s; its clock cannot change", listingID, l.Status)
	}
	return s.Listings.UpdateEndTime(s.db, listingID, domain.FormatTime(newEnd), domain.FormatTime(s.Now()))
}

// BuyNow sells a fixed-price or hybrid listing immediately at the current
// price and settles.
func (s *ListingService) BuyNow(listingID, buyerID string) (domain.Invoice, error) {
	unlock := s.Locks.Lock("listing:" + listingID)
	defer unlock()

	l, err := s.get(listingID)
	if err != nil {
		return domain.Invoice{}, err
	}
	if !l.BuyableNow() {
		return domain.Invoice{}, domain.Validationf("listing %s is auction-only", listingID)
	}
	if l.Status != domain.ListingActive {
		return domain.Invoice{}, domain.Conflictf("listing %s is %s, not active", listingID, l.Status)
	}
	if l.SellerID == buyerID {
		return domain.Invoice{}, domain.Validationf("seller cannot buy their own listing")
	}

	ok, err := s.Listings.TransitionStatus(s.db, listingID, domain.ListingActive, domain.ListingSold, domain.FormatTime(s.Now()))
	if err != nil {
		return domain.Invoice{}, err
	}
	if !ok {
		return domain.Invoice{}, domain.Conflictf("listing %s was sold by a concurrent action", listingID)
	}

	inv, err := s.Settle.Settle(listingID, l.SellerID, buyerID, l.CurrentPrice, false)
	if err != nil {
		return domain.Invoice{}, err
	}
	dispatch(s.Notify, []Notification{{
		UserID:    buyerID,
		Type:      NotifySettlement,
		Title:     "Purchase confirmed",
		Body:      fmt.Sprintf("You bought %q for %s.", l.Title, l.CurrentPrice),
		ListingID: listingID,
		InvoiceID: inv.ID,
	}})
	return inv, nil
}

func (s *ListingService) Get(listingID string) (domain.Listing, error) {
	return s.get(listingID)
}

func (s *ListingService) get(listingID string) (domain.Listing, error) {
	l, err := s.Listings.Get(listingID)
	if err != nil {
		if isNoRows(err) {
			return domain.Listing{}, domain.NotFoundf("listing %s not found", listingID)
		}
		return domain.Listing{}, err
	}
	return l, nil
}
