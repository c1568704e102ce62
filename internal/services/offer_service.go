package services

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"

	"saleroom/internal/domain"
	"saleroom/internal/repos"
)

// OfferService runs the negotiation state machine. All mutations on one
// chain serialize on the chain root's lock; a counter commits the parent
// flip and the child insert in one transaction.
type OfferService struct {
	db       *sqlx.DB
	Offers   *repos.OfferRepo
	Listings *repos.ListingRepo
	Settings *repos.SettingsRepo
	Settle   *SettlementService
	Locks    *KeyedMutex
	Notify   Notifier
	Now      func() time.Time
}

func NewOfferService(db *sqlx.DB, offers *repos.OfferRepo, listings *repos.ListingRepo, settings *repos.SettingsRepo, settle *SettlementService, locks *KeyedMutex, notify Notifier) *OfferService {
	return &OfferService{db: db, Offers: offers, Listings: listings, Settings: settings, Settle: settle, Locks: locks, Notify: notify, Now: time.Now}
}

// Create opens a new negotiation chain with a pending head offer.
func (s *OfferService) Create(listingID, buyerID string, amount decimal.Decimal) (domain.Offer, error) {
	l, err := s.Listings.Get(listingID)
	if err != nil {
		if isNoRows(err) {
			return domain.Offer{}, domain.NotFoundf("listing %s not found", listingID)
		}
		return domain.Offer{}, err
	}
	if l.Status != domain.ListingActive {
		return domain.Offer{}, domain.Conflictf("listing %s is %s, not active", listingID, l.Status)
	}
	if l.SellerID == buyerID {
		return domain.Offer{}, domain.Validationf("seller cannot make an offer on their own listing")
	}

	st, err := s.Settings.Get()
	if err != nil {
		return domain.Offer{}, err
	}
	now := s.Now()
	nowStr := domain.FormatTime(now)

	o := domain.Offer{
		ID:        ulid.Make().String(),
		ListingID: listingID,
		BuyerID:   buyerID,
		SellerID:  l.SellerID,
		Amount:    amount,
		Status:    domain.OfferPending,
		ExpiresAt: domain.FormatTime(now.Add(time.Duration(st.OfferExpiryHours) * time.Hour)),
		CreatedAt: nowStr,
		UpdatedAt: nowStr,
	}
	o.RootOfferID = o.ID
	if err := s.Offers.Insert(s.db, o); err != nil {
		return domain.Offer{}, err
	}

	dispatch(s.Notify, []Notification{{
		UserID:    l.SellerID,
		Type:      NotifyOfferNew,
		Title:     "New offer received",
		Body:      fmt.Sprintf("A buyer offered %s for %q.", amount, l.Title),
		ListingID: listingID,
	}})
	return o, nil
}

// Accept closes a pending offer as accepted, marks the listing sold and
// settles. Seller-only.
func (s *OfferService) Accept(offerID, actorID string) (domain.Invoice, error) {
	o, unlock, err := s.claim(offerID)
	if err != nil {
		return domain.Invoice{}, err
	}
	defer unlock()

	if o.SellerID != actorID {
		return domain.Invoice{}, domain.Permissionf("only the offer's seller may accept it")
	}
	if err := s.ensureActionable(o); err != nil {
		return domain.Invoice{}, err
	}
	// Accept mutates the listing, so it joins the per-listing writer queue
	// alongside bid placement and buy-now. Lock order is chain then listing;
	// nothing acquires them the other way around.
	unlockListing := s.Locks.Lock("listing:" + o.ListingID)
	defer unlockListing()
	nowStr := domain.FormatTime(s.Now())

	tx, err := s.db.Beginx()
	if err != nil {
		return domain.Invoice{}, err
	}
	defer func() { _ = tx.Rollback() }()

	ok, err := s.Offers.TransitionStatus(tx, o.ID, domain.OfferPending, domain.OfferAccepted, nowStr)
	if err != nil {
		return domain.Invoice{}, err
	}
	if !ok {
		return domain.Invoice{}, domain.Conflictf("offer %s was resolved by a concurrent action", o.ID)
	}
	// Accepting also ends the sale for everyone else. A listing already
	// sold through another path blocks the accept.
	if ok, err := s.Listings.TransitionStatus(tx, o.ListingID, domain.ListingActive, domain.ListingSold, nowStr); err != nil {
		return domain.Invoice{}, err
	} else if !ok {
		return domain.Invoice{}, domain.Conflictf("listing %s is no longer open for sale", o.ListingID)
	}
	if err := s.Listings.UpdatePrice(tx, o.ListingID, o.Amount, nowStr); err != nil {
		return domain.Invoice{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Invoice{}, err
	}

	inv, err := s.Settle.Settle(o.ListingID, o.SellerID, o.BuyerID, o.Amount, true)
	if err != nil {
		return domain.Invoice{}, err
	}
	dispatch(s.Notify, []Notification{{
		UserID:    o.BuyerID,
		Type:      NotifyOfferAccepted,
		Title:     "Offer accepted",
		Body:      fmt.Sprintf("Your offer of %s was accepted.", o.Amount),
		ListingID: o.ListingID,
		InvoiceID: inv.ID,
	}})
	return inv, nil
}

// Reject closes a pending offer as rejected. Seller-only.
func (s *OfferService) Reject(offerID, actorID string) error {
	o, unlock, err := s.claim(offerID)
	if err != nil {
		return err
	}
	defer unlock()

	if o.SellerID != actorID {
		return domain.Permissionf("only the offer's seller may reject it")
	}
	if err := s.ensureActionable(o); err != nil {
		return err
	}
	ok, err := s.Offers.TransitionStatus(s.db, o.ID, domain.OfferPending, domain.OfferRejected, domain.FormatTime(s.Now()))
	if err != nil {
		return err
	}
	if !ok {
		return domain.Conflictf("offer %s was resolved by a concurrent action", o.ID)
	}
	return nil
}

// Counter supersedes a pending offer with a new pending node at a new
// amount. Parent flip and child insert commit together or not at all.
// Seller-only.
func (s *OfferService) Counter(offerID, actorID string, newAmount decimal.Decimal) (domain.Offer, error) {
	o, unlock, err := s.claim(offerID)
	if err != nil {
		return domain.Offer{}, err
	}
	defer unlock()

	if o.SellerID != actorID {
		return domain.Offer{}, domain.Permissionf("only the offer's seller may counter it")
	}
	if err := s.ensureActionable(o); err != nil {
		return domain.Offer{}, err
	}

	st, err := s.Settings.Get()
	if err != nil {
		return domain.Offer{}, err
	}
	now := s.Now()
	nowStr := domain.FormatTime(now)

	child := domain.Offer{
		ID:            ulid.Make().String(),
		ListingID:     o.ListingID,
		BuyerID:       o.BuyerID,
		SellerID:      o.SellerID,
		Amount:        newAmount,
		Status:        domain.OfferPending,
		ParentOfferID: o.ID,
		RootOfferID:   o.RootOfferID,
		CounterCount:  o.CounterCount + 1,
		ExpiresAt:     domain.FormatTime(now.Add(time.Duration(st.OfferExpiryHours) * time.Hour)),
		CreatedAt:     nowStr,
		UpdatedAt:     nowStr,
	}

	tx, err := s.db.Beginx()
	if err != nil {
		return domain.Offer{}, err
	}
	defer func() { _ = tx.Rollback() }()

	ok, err := s.Offers.TransitionStatus(tx, o.ID, domain.OfferPending, domain.OfferCountered, nowStr)
	if err != nil {
		return domain.Offer{}, err
	}
	if !ok {
		return domain.Offer{}, domain.Conflictf("offer %s was resolved by a concurrent action", o.ID)
	}
	if err := s.Offers.Insert(tx, child); err != nil {
		return domain.Offer{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Offer{}, err
	}

	dispatch(s.Notify, []Notification{{
		UserID:    o.BuyerID,
		Type:      NotifyOfferCountered,
		Title:     "Counter-offer received",
		Body:      fmt.Sprintf("The seller countered at %s.", newAmount),
		ListingID: o.ListingID,
	}})
	return child, nil
}

// Withdraw closes a pending offer as withdrawn. Buyer-only.
func (s *OfferService) Withdraw(offerID, actorID string) error {
	o, unlock, err := s.claim(offerID)
	if err != nil {
		return err
	}
	defer unlock()

	if o.BuyerID != actorID {
		return domain.Permissionf("only the offer's buyer may withdraw it")
	}
	if err := s.ensureActionable(o); err != nil {
		return err
	}
	ok, err := s.Offers.TransitionStatus(s.db, o.ID, domain.OfferPending, domain.OfferWithdrawn, domain.FormatTime(s.Now()))
	if err != nil {
		return err
	}
	if !ok {
		return domain.Conflictf("offer %s was resolved by a concurrent action", o.ID)
	}
	return nil
}

// Chain returns every node of the chain containing offerID, in order.
func (s *OfferService) Chain(offerID string) ([]domain.Offer, error) {
	o, err := s.Offers.Get(offerID)
	if err != nil {
		if isNoRows(err) {
			return nil, domain.NotFoundf("offer %s not found", offerID)
		}
		return nil, err
	}
	return s.Offers.Chain(o.RootOfferID)
}

// claim loads the offer and takes its chain lock. On success the caller owns
// the returned unlock.
func (s *OfferService) claim(offerID string) (domain.Offer, func(), error) {
	o, err := s.Offers.Get(offerID)
	if err != nil {
		if isNoRows(err) {
			return domain.Offer{}, nil, domain.NotFoundf("offer %s not found", offerID)
		}
		return domain.Offer{}, nil, err
	}
	unlock := s.Locks.Lock("chain:" + o.RootOfferID)
	// Re-read under the lock; the node may have been resolved while we waited.
	o, err = s.Offers.Get(offerID)
	if err != nil {
		unlock()
		return domain.Offer{}, nil, err
	}
	return o, unlock, nil
}

// ensureActionable rejects operations on resolved nodes, lazily expiring a
// pending node whose deadline already passed so it can never be acted on.
func (s *OfferService) ensureActionable(o domain.Offer) error {
	if o.Status != domain.OfferPending {
		return domain.Conflictf("offer %s is %s, not pending", o.ID, o.Status)
	}
	if exp, err := domain.ParseTime(o.ExpiresAt); err == nil && !s.Now().Before(exp) {
		if _, err := s.Offers.Expire(o.ID, domain.FormatTime(s.Now())); err != nil {
			return err
		}
		return domain.Conflictf("offer %s has expired", o.ID)
	}
	return nil
}
