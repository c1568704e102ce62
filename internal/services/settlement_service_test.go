package services_test

import (
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"saleroom/internal/domain"
)

func TestSettle_IdempotentUnderConcurrency(t *testing.T) {
	e := newEngine(t)
	l := e.activeFixedPrice(t, "u-seller", "100")

	var wg sync.WaitGroup
	invs := make([]domain.Invoice, 4)
	errs := make([]error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			invs[i], errs[i] = e.Settle.Settle(l.ID, "u-seller", "u-buyer", dec("100"), false)
		}(i)
	}
	wg.Wait()

	for i := range errs {
		if errs[i] != nil {
			t.Fatal(errs[i])
		}
		if invs[i].ID != invs[0].ID {
			t.Fatalf("settlement produced different invoices: %s vs %s", invs[0].ID, invs[i].ID)
		}
	}

	var n int
	if err := e.db.Get(&n, `SELECT COUNT(*) FROM invoices WHERE listing_id = ? AND seller_id = ?`, l.ID, "u-seller"); err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("want exactly one invoice row, got %d", n)
	}
}

func TestSettle_SellerOverrideRates(t *testing.T) {
	e := newEngine(t)
	l := e.activeFixedPrice(t, "u-seller", "100")

	o := domain.SellerRateOverride{
		SellerID:            "u-seller",
		BuyerPremiumPercent: decimal.NewNullDecimal(dec("5")),
		// commission left null: platform default applies
	}
	if err := e.Settings.UpsertOverride(o); err != nil {
		t.Fatal(err)
	}

	inv, err := e.Settle.Settle(l.ID, "u-seller", "u-buyer", dec("1000"), false)
	if err != nil {
		t.Fatal(err)
	}
	if !inv.BuyerPremiumPercent.Equal(dec("5")) || !inv.BuyerPremiumAmount.Equal(dec("50")) {
		t.Fatalf("override premium not applied: %+v", inv)
	}
	if !inv.SellerCommissionPercent.Equal(dec("8")) || !inv.SellerCommissionAmount.Equal(dec("80")) {
		t.Fatalf("default commission not applied: %+v", inv)
	}
}

func TestSettle_RatesFrozenOnInvoice(t *testing.T) {
	e := newEngine(t)
	l := e.activeFixedPrice(t, "u-seller", "100")

	first, err := e.Settle.Settle(l.ID, "u-seller", "u-buyer", dec("1000"), false)
	if err != nil {
		t.Fatal(err)
	}

	// later rate changes never rewrite an issued invoice
	if _, err := e.db.Exec(`UPDATE platform_settings SET default_buyer_premium_percent = '20'`); err != nil {
		t.Fatal(err)
	}
	again, err := e.Settle.Settle(l.ID, "u-seller", "u-buyer", dec("1000"), false)
	if err != nil {
		t.Fatal(err)
	}
	if again.ID != first.ID || !again.BuyerPremiumPercent.Equal(dec("8")) {
		t.Fatalf("issued invoice changed: %+v", again)
	}
}

func TestSettle_PaymentTerms(t *testing.T) {
	e := newEngine(t)
	at := time.Now().Truncate(time.Second)
	e.setClock(at)
	l := e.activeFixedPrice(t, "u-seller", "100")

	inv, err := e.Settle.Settle(l.ID, "u-seller", "u-buyer", dec("100"), true)
	if err != nil {
		t.Fatal(err)
	}
	if inv.Status != domain.InvoicePending || inv.FulfillmentStatus != domain.FulfillmentAwaitingPayment {
		t.Fatalf("bad initial statuses: %+v", inv)
	}
	if want := domain.FormatTime(at.AddDate(0, 0, 7)); inv.PaymentDueDate != want {
		t.Fatalf("want due date %s, got %s", want, inv.PaymentDueDate)
	}

	// offer-driven settlement confirms to the seller too
	sellerMsgs := 0
	for _, m := range e.Sent.byType("settlement") {
		if m.UserID == "u-seller" {
			sellerMsgs++
		}
	}
	if sellerMsgs != 1 {
		t.Fatalf("want a seller confirmation, got %d", sellerMsgs)
	}
}
