package services_test

import (
	"testing"
	"time"

	"saleroom/internal/domain"
)

func TestPlaceBid_PriceNonDecreasingAndMatchesActive(t *testing.T) {
	e := newEngine(t)
	now := time.Now()
	l := e.activeAuction(t, "u-seller", "100", "", now.Add(24*time.Hour))

	prev := dec("0")
	for _, amt := range []string{"110", "125", "140", "200"} {
		res, err := e.Bid.Place(l.ID, "u-"+amt, dec(amt), nil, false)
		if err != nil {
			t.Fatal(err)
		}
		if res.CurrentPrice.LessThan(prev) {
			t.Fatalf("price decreased: %s -> %s", prev, res.CurrentPrice)
		}
		prev = res.CurrentPrice

		active, err := e.Bids.Active(e.db, l.ID)
		if err != nil {
			t.Fatal(err)
		}
		if !active.Amount.Equal(res.CurrentPrice) {
			t.Fatalf("active bid %s != current price %s", active.Amount, res.CurrentPrice)
		}
	}

	got, err := e.Listing.Get(l.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !got.CurrentPrice.Equal(dec("200")) {
		t.Fatalf("want current price 200, got %s", got.CurrentPrice)
	}
}

func TestPlaceBid_ProxyOutbidsManual(t *testing.T) {
	e := newEngine(t)
	l := e.activeAuction(t, "u-seller", "100", "", time.Now().Add(24*time.Hour))

	// proxy holder with a 600 ceiling
	maxBid := dec("600")
	if _, err := e.Bid.Place(l.ID, "u-proxy", dec("110"), &maxBid, false); err != nil {
		t.Fatal(err)
	}

	// manual 550 is immediately countered at 560 (increment 10)
	res, err := e.Bid.Place(l.ID, "u-manual", dec("550"), nil, false)
	if err != nil {
		t.Fatal(err)
	}
	if res.WinningBidderID != "u-proxy" {
		t.Fatalf("want u-proxy winning, got %s", res.WinningBidderID)
	}
	if !res.CurrentPrice.Equal(dec("560")) {
		t.Fatalf("want price 560, got %s", res.CurrentPrice)
	}
	if res.CurrentPrice.GreaterThan(dec("600")) {
		t.Fatalf("price exceeded the proxy ceiling: %s", res.CurrentPrice)
	}

	// the displaced manual bidder hears about it
	if msgs := e.Sent.byType("outbid"); len(msgs) == 0 || msgs[len(msgs)-1].UserID != "u-manual" {
		t.Fatalf("expected an outbid notification for u-manual, got %+v", msgs)
	}
}

func TestPlaceBid_EqualMaxProxiesEarlierWins(t *testing.T) {
	e := newEngine(t)
	l := e.activeAuction(t, "u-seller", "100", "", time.Now().Add(24*time.Hour))

	m1, m2 := dec("500"), dec("500")
	if _, err := e.Bid.Place(l.ID, "u-first", dec("110"), &m1, false); err != nil {
		t.Fatal(err)
	}
	res, err := e.Bid.Place(l.ID, "u-second", dec("120"), &m2, false)
	if err != nil {
		t.Fatal(err)
	}

	if !res.CurrentPrice.Equal(dec("500")) {
		t.Fatalf("want price to settle exactly at 500, got %s", res.CurrentPrice)
	}
	if res.WinningBidderID != "u-first" {
		t.Fatalf("earlier proxy must win the tie, got %s", res.WinningBidderID)
	}
}

func TestPlaceBid_SoftClose(t *testing.T) {
	e := newEngine(t)
	if _, err := e.db.Exec(`UPDATE platform_settings SET auction_extension_minutes = 2`); err != nil {
		t.Fatal(err)
	}
	at := time.Now().Truncate(time.Second)
	e.setClock(at)

	// a bid 30s before the end extends to acceptance + 2min
	l := e.activeAuction(t, "u-seller", "100", "", at.Add(30*time.Second))
	res, err := e.Bid.Place(l.ID, "u-sniper", dec("110"), nil, false)
	if err != nil {
		t.Fatal(err)
	}
	if want := domain.FormatTime(at.Add(2 * time.Minute)); res.EndTime != want {
		t.Fatalf("want end time %s, got %s", want, res.EndTime)
	}

	// a bid 10min out leaves the clock alone
	l2 := e.activeAuction(t, "u-seller", "100", "", at.Add(10*time.Minute))
	res2, err := e.Bid.Place(l2.ID, "u-early", dec("110"), nil, false)
	if err != nil {
		t.Fatal(err)
	}
	if res2.EndTime != l2.EndTime {
		t.Fatalf("end time moved without a late bid: %s -> %s", l2.EndTime, res2.EndTime)
	}
}

func TestPlaceBid_Rejections(t *testing.T) {
	e := newEngine(t)
	l := e.activeAuction(t, "u-seller", "100", "", time.Now().Add(24*time.Hour))

	// below minimum increment
	if _, err := e.Bid.Place(l.ID, "u-low", dec("105"), nil, false); !domain.IsValidation(err) {
		t.Fatalf("want ValidationError for low bid, got %v", err)
	}
	// self-dealing
	if _, err := e.Bid.Place(l.ID, "u-seller", dec("110"), nil, false); !domain.IsValidation(err) {
		t.Fatalf("want ValidationError for seller bid, got %v", err)
	}
	// unknown listing
	if _, err := e.Bid.Place("nope", "u-x", dec("110"), nil, false); !domain.IsNotFound(err) {
		t.Fatalf("want NotFoundError, got %v", err)
	}
	// max bid below bid amount
	low := dec("50")
	if _, err := e.Bid.Place(l.ID, "u-x", dec("110"), &low, false); !domain.IsValidation(err) {
		t.Fatalf("want ValidationError for inverted max bid, got %v", err)
	}
	// fixed-price listings don't take bids
	fp := e.activeFixedPrice(t, "u-seller", "80")
	if _, err := e.Bid.Place(fp.ID, "u-x", dec("90"), nil, false); !domain.IsValidation(err) {
		t.Fatalf("want ValidationError for bid on fixed-price, got %v", err)
	}
	// inactive listing conflicts
	if _, err := e.db.Exec(`UPDATE listings SET status = 'unsold' WHERE id = ?`, l.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Bid.Place(l.ID, "u-x", dec("110"), nil, false); !domain.IsConflict(err) {
		t.Fatalf("want ConflictError on ended listing, got %v", err)
	}
}

func TestRetractBid(t *testing.T) {
	e := newEngine(t)
	l := e.activeAuction(t, "u-seller", "100", "", time.Now().Add(24*time.Hour))

	first, err := e.Bid.Place(l.ID, "u-a", dec("110"), nil, false)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.Bid.Place(l.ID, "u-b", dec("120"), nil, false); err != nil {
		t.Fatal(err)
	}

	// only the owner may retract
	if err := e.Bid.Retract(l.ID, first.WinningBidID, "u-b"); !domain.IsPermission(err) {
		t.Fatalf("want PermissionError, got %v", err)
	}
	if err := e.Bid.Retract(l.ID, first.WinningBidID, "u-a"); err != nil {
		t.Fatal(err)
	}

	// the leading bid stays put
	active, err := e.Bids.Active(e.db, l.ID)
	if err != nil {
		t.Fatal(err)
	}
	if err := e.Bid.Retract(l.ID, active.ID, "u-b"); !domain.IsConflict(err) {
		t.Fatalf("want ConflictError retracting the active bid, got %v", err)
	}
}
