package services

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"saleroom/internal/domain"
	applog "saleroom/internal/log"
	"saleroom/internal/repos"
)

// SweepService is the periodic resolver: it ends due auctions and expires
// overdue offers. Each due listing is claimed (active -> processing) before
// any mutation so overlapping sweep runs never resolve the same listing
// twice; each due offer flips through a status-guarded update for the same
// reason.
type SweepService struct {
	db       *sqlx.DB
	Listings *repos.ListingRepo
	Bids     *repos.BidRepo
	Offers   *repos.OfferRepo
	Settle   *SettlementService
	Locks    *KeyedMutex
	Notify   Notifier
	Now      func() time.Time
}

func NewSweepService(db *sqlx.DB, listings *repos.ListingRepo, bids *repos.BidRepo, offers *repos.OfferRepo, settle *SettlementService, locks *KeyedMutex, notify Notifier) *SweepService {
	return &SweepService{db: db, Listings: listings, Bids: bids, Offers: offers, Settle: settle, Locks: locks, Notify: notify, Now: time.Now}
}

type SweepReport struct {
	ListingsSold   int `json:"listings_sold"`
	ListingsUnsold int `json:"listings_unsold"`
	OffersExpired  int `json:"offers_expired"`
}

// Run executes one full sweep pass.
func (s *SweepService) Run() (SweepReport, error) {
	var rep SweepReport
	if err := s.endDueAuctions(&rep); err != nil {
		return rep, err
	}
	if err := s.expireDueOffers(&rep); err != nil {
		return rep, err
	}
	return rep, nil
}

func (s *SweepService) endDueAuctions(rep *SweepReport) error {
	now := domain.FormatTime(s.Now())
	ids, err := s.Listings.DueIDs(now)
	if err != nil {
		return err
	}
	for _, id := range ids {
		sold, err := s.resolveListing(id, now)
		if err != nil {
			applog.Error(nil, "sweep.listing.fail", err, map[string]any{"listing_id": id})
			continue
		}
		switch sold {
		case +1:
			rep.ListingsSold++
		case -1:
			rep.ListingsUnsold++
		}
	}
	return nil
}

// resolveListing returns +1 sold, -1 unsold, 0 skipped (lost the claim).
func (s *SweepService) resolveListing(id, now string) (int, error) {
	unlock := s.Locks.Lock("listing:" + id)
	defer unlock()

	claimed, err := s.Listings.Claim(id, now)
	if err != nil {
		return 0, err
	}
	if !claimed {
		return 0, nil // another run, or a soft close, got here first
	}

	l, err := s.Listings.Get(id)
	if err != nil {
		_ = s.Listings.ReleaseClaim(id, now)
		return 0, err
	}

	winner, err := s.Bids.Active(s.db, id)
	hasWinner := err == nil
	if err != nil && !isNoRows(err) {
		_ = s.Listings.ReleaseClaim(id, now)
		return 0, err
	}

	// Reserve check: bids below a set reserve end the listing unsold.
	if hasWinner && l.ReservePrice.Valid && winner.Amount.LessThan(l.ReservePrice.Decimal) {
		hasWinner = false
	}

	// Settle before committing the sold transition: a released claim puts the
	// listing back in the next sweep's due set, and settlement is idempotent,
	// so a retried claim reuses the invoice instead of minting another.
	to := domain.ListingUnsold
	var inv domain.Invoice
	if hasWinner {
		to = domain.ListingSold
		inv, err = s.Settle.Settle(id, l.SellerID, winner.BidderID, winner.Amount, false)
		if err != nil {
			_ = s.Listings.ReleaseClaim(id, now)
			return 0, err
		}
	}
	if _, err := s.Listings.TransitionStatus(s.db, id, domain.ListingProcessing, to, now); err != nil {
		_ = s.Listings.ReleaseClaim(id, now)
		return 0, err
	}

	if !hasWinner {
		return -1, nil
	}
	dispatch(s.Notify, []Notification{{
		UserID:    winner.BidderID,
		Type:      NotifyAuctionWon,
		Title:     "You won the auction",
		Body:      fmt.Sprintf("You won %q at %s.", l.Title, winner.Amount),
		ListingID: id,
		InvoiceID: inv.ID,
	}})
	return +1, nil
}

func (s *SweepService) expireDueOffers(rep *SweepReport) error {
	now := domain.FormatTime(s.Now())
	ids, err := s.Offers.DueIDs(now)
	if err != nil {
		return err
	}
	for _, id := range ids {
		o, err := s.Offers.Get(id)
		if err != nil {
			continue
		}
		unlock := s.Locks.Lock("chain:" + o.RootOfferID)
		flipped, err := s.Offers.Expire(id, now)
		unlock()
		if err != nil {
			applog.Error(nil, "sweep.offer.fail", err, map[string]any{"offer_id": id})
			continue
		}
		if !flipped {
			continue
		}
		rep.OffersExpired++
		dispatch(s.Notify, []Notification{{
			UserID:    o.BuyerID,
			Type:      NotifyOfferExpired,
			Title:     "Offer expired",
			Body:      fmt.Sprintf("The offer of %s expired without a response.", o.Amount),
			ListingID: o.ListingID,
		}})
	}
	return nil
}
