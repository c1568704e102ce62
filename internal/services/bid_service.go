package services

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"

	"saleroom/internal/domain"
	"saleroom/internal/repos"
)

// BidService is the bid ledger and proxy resolver. Everything a single
// placement causes — outbidding the prior leader, the automatic proxy
// counter-bids, the price update, the soft-close extension — commits as one
// transaction under the listing's write lock.
type BidService struct {
	db       *sqlx.DB
	Listings *repos.ListingRepo
	Bids     *repos.BidRepo
	Settings *repos.SettingsRepo
	Locks    *KeyedMutex
	Notify   Notifier
	Now      func() time.Time
}

func NewBidService(db *sqlx.DB, listings *repos.ListingRepo, bids *repos.BidRepo, settings *repos.SettingsRepo, locks *KeyedMutex, notify Notifier) *BidService {
	return &BidService{db: db, Listings: listings, Bids: bids, Settings: settings, Locks: locks, Notify: notify, Now: time.Now}
}

type PlaceBidResult struct {
	CurrentPrice    decimal.Decimal `json:"current_price"`
	WinningBidID    string          `json:"winning_bid_id"`
	WinningBidderID string          `json:"winning_bidder_id"`
	EndTime         string          `json:"end_time,omitempty"`
}

// standing ceiling for one bidder
type proxyEntry struct {
	bidder string
	max    decimal.Decimal
	seq    string // ULID of the bid that set the ceiling; lexical order == placement order
}

// Place records a bid and resolves proxy counter-bidding to its fixed point.
func (s *BidService) Place(listingID, bidderID string, amount decimal.Decimal, maxBid *decimal.Decimal, isAuto bool) (PlaceBidResult, error) {
	unlock := s.Locks.Lock("listing:" + listingID)
	defer unlock()

	if maxBid != nil && maxBid.LessThan(amount) {
		return PlaceBidResult{}, domain.Validationf("max bid %s is below the bid amount %s", maxBid, amount)
	}

	st, err := s.Settings.Get()
	if err != nil {
		return PlaceBidResult{}, err
	}
	inc := st.DefaultBidIncrement
	ext := time.Duration(st.AuctionExtensionMinutes) * time.Minute
	now := s.Now()
	nowStr := domain.FormatTime(now)

	tx, err := s.db.Beginx()
	if err != nil {
		return PlaceBidResult{}, err
	}
	defer func() { _ = tx.Rollback() }()

	l, err := s.Listings.GetTx(tx, listingID)
	if err == sql.ErrNoRows {
		return PlaceBidResult{}, domain.NotFoundf("listing %s not found", listingID)
	}
	if err != nil {
		return PlaceBidResult{}, err
	}
	if !l.Auctionable() {
		return PlaceBidResult{}, domain.Validationf("listing %s does not accept bids", listingID)
	}
	if l.Status != domain.ListingActive {
		return PlaceBidResult{}, domain.Conflictf("listing %s is %s, not active", listingID, l.Status)
	}
	if l.SellerID == bidderID {
		return PlaceBidResult{}, domain.Validationf("seller cannot bid on their own listing")
	}

	var priorActive *domain.Bid
	if b, err := s.Bids.Active(tx, listingID); err == nil {
		priorActive = &b
	} else if err != sql.ErrNoRows {
		return PlaceBidResult{}, err
	}

	floor := l.StartingPrice
	if priorActive != nil {
		floor = l.CurrentPrice
	}
	minAccept := floor.Add(inc)
	if amount.LessThan(minAccept) {
		return PlaceBidResult{}, domain.Validationf("bid %s is below the minimum %s", amount, minAccept)
	}

	// Accept the incoming bid.
	displaced := map[string]bool{}
	newBid := domain.Bid{
		ID:        ulid.Make().String(),
		ListingID: listingID,
		BidderID:  bidderID,
		Amount:    amount,
		IsAuto:    isAuto,
		Status:    domain.BidActive,
		CreatedAt: nowStr,
	}
	if maxBid != nil {
		newBid.MaxBid = decimal.NewNullDecimal(*maxBid)
	}
	if priorActive != nil {
		if err := s.Bids.MarkOutbid(tx, priorActive.ID); err != nil {
			return PlaceBidResult{}, err
		}
		displaced[priorActive.BidderID] = true
	}
	if err := s.Bids.Insert(tx, newBid); err != nil {
		return PlaceBidResult{}, err
	}

	activeBid := newBid
	price := amount
	endTime := applySoftClose(l.EndTime, now, ext)

	// Proxy registry: one standing ceiling per bidder, the highest it ever
	// set; ties keep the earlier row so the earlier proxy wins equal-max wars.
	standing, err := s.Bids.Standing(tx, listingID)
	if err != nil {
		return PlaceBidResult{}, err
	}
	best := map[string]proxyEntry{}
	var order []string
	for _, b := range standing {
		p, ok := best[b.BidderID]
		if !ok {
			best[b.BidderID] = proxyEntry{bidder: b.BidderID, max: b.MaxBid.Decimal, seq: b.ID}
			order = append(order, b.BidderID)
			continue
		}
		if b.MaxBid.Decimal.GreaterThan(p.max) {
			p.max, p.seq = b.MaxBid.Decimal, b.ID
			best[b.BidderID] = p
		}
	}

	// Fixed point: synthesize counter-bids until no standing proxy can top
	// the current price. Each round strictly raises the price except the
	// single equal-max takeover, so the loop terminates.
	for {
		holder := activeBid.BidderID
		holderProxy, holderHasProxy := best[holder]

		var ch *proxyEntry
		for _, bidder := range order {
			if bidder == holder {
				continue
			}
			p := best[bidder]
			eligible := p.max.GreaterThan(price) ||
				(holderHasProxy && p.max.Equal(price) && holderProxy.max.Equal(price) && p.seq < holderProxy.seq)
			if !eligible {
				continue
			}
			if ch == nil || p.max.GreaterThan(ch.max) || (p.max.Equal(ch.max) && p.seq < ch.seq) {
				q := p
				ch = &q
			}
		}
		if ch == nil {
			break
		}

		newPrice := price.Add(inc)
		if newPrice.GreaterThan(ch.max) {
			newPrice = ch.max // settles exactly at the ceiling
		}
		auto := domain.Bid{
			ID:        ulid.Make().String(),
			ListingID: listingID,
			BidderID:  ch.bidder,
			Amount:    newPrice,
			IsAuto:    true,
			Status:    domain.BidActive,
			CreatedAt: nowStr,
		}
		if err := s.Bids.MarkOutbid(tx, activeBid.ID); err != nil {
			return PlaceBidResult{}, err
		}
		displaced[activeBid.BidderID] = true
		if err := s.Bids.Insert(tx, auto); err != nil {
			return PlaceBidResult{}, err
		}
		activeBid = auto
		price = newPrice
		endTime = applySoftClose(endTime, now, ext)
	}

	if err := s.Listings.UpdatePrice(tx, listingID, price, nowStr); err != nil {
		return PlaceBidResult{}, err
	}
	if endTime != l.EndTime {
		if err := s.Listings.UpdateEndTime(tx, listingID, endTime, nowStr); err != nil {
			return PlaceBidResult{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return PlaceBidResult{}, err
	}

	var msgs []Notification
	for bidder := range displaced {
		if bidder == activeBid.BidderID {
			continue
		}
		msgs = append(msgs, Notification{
			UserID:    bidder,
			Type:      NotifyOutbid,
			Title:     "You've been outbid",
			Body:      fmt.Sprintf("Bidding on %q has reached %s.", l.Title, price),
			ListingID: listingID,
		})
	}
	dispatch(s.Notify, msgs)

	return PlaceBidResult{
		CurrentPrice:    price,
		WinningBidID:    activeBid.ID,
		WinningBidderID: activeBid.BidderID,
		EndTime:         endTime,
	}, nil
}

// Retract withdraws a non-leading bid so its proxy ceiling stops countering.
// The active bid cannot be retracted.
func (s *BidService) Retract(listingID, bidID, actorID string) error {
	unlock := s.Locks.Lock("listing:" + listingID)
	defer unlock()

	bids, err := s.Bids.ListByListing(listingID)
	if err != nil {
		return err
	}
	for _, b := range bids {
		if b.ID != bidID {
			continue
		}
		if b.BidderID != actorID {
			return domain.Permissionf("bid %s belongs to another bidder", bidID)
		}
		switch b.Status {
		case domain.BidActive:
			return domain.Conflictf("the leading bid cannot be retracted")
		case domain.BidRetracted:
			return domain.Conflictf("bid %s is already retracted", bidID)
		}
		_, err := s.db.Exec(`UPDATE bids SET status = 'retracted' WHERE id = ? AND status = 'outbid'`, bidID)
		return err
	}
	return domain.NotFoundf("bid %s not found on listing %s", bidID, listingID)
}

// History returns the listing's ledger, newest first.
func (s *BidService) History(listingID string) ([]domain.Bid, error) {
	if _, err := s.Listings.Get(listingID); err == sql.ErrNoRows {
		return nil, domain.NotFoundf("listing %s not found", listingID)
	} else if err != nil {
		return nil, err
	}
	return s.Bids.ListByListing(listingID)
}

// applySoftClose extends endTime to t+ext when a bid accepted at t lands
// inside the extension window. The end time never moves backward here.
func applySoftClose(endTime string, t time.Time, ext time.Duration) string {
	if endTime == "" || ext <= 0 {
		return endTime
	}
	end, err := domain.ParseTime(endTime)
	if err != nil || t.After(end) {
		return endTime
	}
	if end.Sub(t) <= ext {
		return domain.FormatTime(t.Add(ext))
	}
	return endTime
}
