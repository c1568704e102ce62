package services_test

import (
	"testing"
	"time"

	"saleroom/internal/domain"
)

func TestOfferLifecycle_AcceptSettles(t *testing.T) {
	e := newEngine(t)
	l := e.activeFixedPrice(t, "u-seller", "300")

	o, err := e.Offer.Create(l.ID, "u-buyer", dec("250"))
	if err != nil {
		t.Fatal(err)
	}
	if o.Status != domain.OfferPending || o.RootOfferID != o.ID {
		t.Fatalf("bad chain head: %+v", o)
	}

	inv, err := e.Offer.Accept(o.ID, "u-seller")
	if err != nil {
		t.Fatal(err)
	}
	if !inv.SaleAmount.Equal(dec("250")) {
		t.Fatalf("want sale amount 250, got %s", inv.SaleAmount)
	}
	// default 8% both ways
	if !inv.TotalAmount.Equal(dec("270")) || !inv.SellerPayoutAmount.Equal(dec("230")) {
		t.Fatalf("bad fee math: total=%s payout=%s", inv.TotalAmount, inv.SellerPayoutAmount)
	}

	got, err := e.Listing.Get(l.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != domain.ListingSold || !got.CurrentPrice.Equal(dec("250")) {
		t.Fatalf("listing not sold at the offer amount: %+v", got)
	}

	// a terminal node rejects further actions
	if _, err := e.Offer.Accept(o.ID, "u-seller"); !domain.IsConflict(err) {
		t.Fatalf("want ConflictError on re-accept, got %v", err)
	}
}

func TestOfferCounter_AtomicChainExtension(t *testing.T) {
	e := newEngine(t)
	l := e.activeFixedPrice(t, "u-seller", "300")

	o, err := e.Offer.Create(l.ID, "u-buyer", dec("200"))
	if err != nil {
		t.Fatal(err)
	}
	child, err := e.Offer.Counter(o.ID, "u-seller", dec("275"))
	if err != nil {
		t.Fatal(err)
	}

	if child.ParentOfferID != o.ID || child.RootOfferID != o.ID {
		t.Fatalf("bad chain linkage: %+v", child)
	}
	if child.CounterCount != o.CounterCount+1 {
		t.Fatalf("want counter_count %d, got %d", o.CounterCount+1, child.CounterCount)
	}

	chain, err := e.Offer.Chain(child.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(chain) != 2 {
		t.Fatalf("want 2 chain nodes, got %d", len(chain))
	}
	pending := 0
	for _, n := range chain {
		if n.Status == domain.OfferPending {
			pending++
		}
		if n.ID == o.ID && n.Status != domain.OfferCountered {
			t.Fatalf("parent should be countered, got %s", n.Status)
		}
	}
	if pending != 1 {
		t.Fatalf("a chain carries exactly one pending node, got %d", pending)
	}

	// the superseded parent can't be acted on again
	if _, err := e.Offer.Counter(o.ID, "u-seller", dec("280")); !domain.IsConflict(err) {
		t.Fatalf("want ConflictError countering a countered node, got %v", err)
	}
}

func TestOfferAccept_WaitsForListingLock(t *testing.T) {
	e := newEngine(t)
	l := e.activeFixedPrice(t, "u-seller", "300")
	o, err := e.Offer.Create(l.ID, "u-buyer", dec("250"))
	if err != nil {
		t.Fatal(err)
	}

	// Accept mutates the listing, so it must queue on the same per-listing
	// lock that bid placement and buy-now hold.
	unlock := e.Locks.Lock("listing:" + l.ID)
	done := make(chan error, 1)
	go func() {
		_, err := e.Offer.Accept(o.ID, "u-seller")
		done <- err
	}()

	select {
	case <-done:
		t.Fatal("accept completed while another writer held the listing lock")
	case <-time.After(100 * time.Millisecond):
	}
	unlock()

	if err := <-done; err != nil {
		t.Fatal(err)
	}
	got, err := e.Listing.Get(l.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != domain.ListingSold || !got.CurrentPrice.Equal(dec("250")) {
		t.Fatalf("listing not sold at the offer amount after accept: %+v", got)
	}
}

func TestOfferPermissions(t *testing.T) {
	e := newEngine(t)
	l := e.activeFixedPrice(t, "u-seller", "300")

	// sellers can't open offers on their own listing
	if _, err := e.Offer.Create(l.ID, "u-seller", dec("250")); !domain.IsValidation(err) {
		t.Fatalf("want ValidationError for self-offer, got %v", err)
	}

	o, err := e.Offer.Create(l.ID, "u-buyer", dec("250"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.Offer.Accept(o.ID, "u-buyer"); !domain.IsPermission(err) {
		t.Fatalf("want PermissionError: buyer accepting, got %v", err)
	}
	if err := e.Offer.Reject(o.ID, "u-somebody"); !domain.IsPermission(err) {
		t.Fatalf("want PermissionError: stranger rejecting, got %v", err)
	}
	if err := e.Offer.Withdraw(o.ID, "u-seller"); !domain.IsPermission(err) {
		t.Fatalf("want PermissionError: seller withdrawing, got %v", err)
	}

	if err := e.Offer.Withdraw(o.ID, "u-buyer"); err != nil {
		t.Fatal(err)
	}
	got, err := e.Offer.Chain(o.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got[0].Status != domain.OfferWithdrawn {
		t.Fatalf("want withdrawn, got %s", got[0].Status)
	}
}

func TestOfferReject(t *testing.T) {
	e := newEngine(t)
	l := e.activeFixedPrice(t, "u-seller", "300")

	o, err := e.Offer.Create(l.ID, "u-buyer", dec("120"))
	if err != nil {
		t.Fatal(err)
	}
	if err := e.Offer.Reject(o.ID, "u-seller"); err != nil {
		t.Fatal(err)
	}
	// rejected is terminal
	if _, err := e.Offer.Counter(o.ID, "u-seller", dec("150")); !domain.IsConflict(err) {
		t.Fatalf("want ConflictError countering a rejected node, got %v", err)
	}

	// the listing stays for sale
	got, err := e.Listing.Get(l.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != domain.ListingActive {
		t.Fatalf("rejecting an offer must not touch the listing, got %s", got.Status)
	}
}
