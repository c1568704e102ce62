package services_test

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite" // pure-Go SQLite driver

	"saleroom/internal/domain"
	"saleroom/internal/repos"
	"saleroom/internal/services"
)

// captureNotifier records outward notifications for assertions.
type captureNotifier struct {
	mu   sync.Mutex
	msgs []services.Notification
}

func (c *captureNotifier) Send(n services.Notification) services.NotificationResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, n)
	return services.NotificationResult{Success: true}
}

func (c *captureNotifier) byType(typ string) []services.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []services.Notification
	for _, m := range c.msgs {
		if m.Type == typ {
			out = append(out, m)
		}
	}
	return out
}

type engine struct {
	db       *sqlx.DB
	Settings *repos.SettingsRepo
	Invoices *repos.InvoiceRepo
	Bids     *repos.BidRepo

	Listing *services.ListingService
	Bid     *services.BidService
	Offer   *services.OfferService
	Sweep   *services.SweepService
	Settle  *services.SettlementService
	Locks   *services.KeyedMutex
	Sent    *captureNotifier
}

func newEngine(t *testing.T) *engine {
	t.Helper()
	db, err := repos.OpenDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	listingRepo := repos.NewListingRepo(db)
	bidRepo := repos.NewBidRepo(db)
	offerRepo := repos.NewOfferRepo(db)
	invoiceRepo := repos.NewInvoiceRepo(db)
	settingsRepo := repos.NewSettingsRepo(db)
	locks := &services.KeyedMutex{}
	sent := &captureNotifier{}

	settleSvc := services.NewSettlementService(invoiceRepo, settingsRepo, sent)
	return &engine{
		db:       db,
		Settings: settingsRepo,
		Invoices: invoiceRepo,
		Bids:     bidRepo,
		Listing:  services.NewListingService(db, listingRepo, settleSvc, locks, sent),
		Bid:      services.NewBidService(db, listingRepo, bidRepo, settingsRepo, locks, sent),
		Offer:    services.NewOfferService(db, offerRepo, listingRepo, settingsRepo, settleSvc, locks, sent),
		Sweep:    services.NewSweepService(db, listingRepo, bidRepo, offerRepo, settleSvc, locks, sent),
		Settle:   settleSvc,
		Locks:    locks,
		Sent:     sent,
	}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func (e *engine) activeAuction(t *testing.T, seller, start, reserve string, end time.Time) domain.Listing {
	t.Helper()
	in := services.CreateListingInput{
		SellerID:      seller,
		Title:         "Vintage tube amplifier",
		Type:          domain.ListingAuction,
		StartingPrice: dec(start),
		EndTime:       &end,
		Activate:      true,
	}
	if reserve != "" {
		r := dec(reserve)
		in.ReservePrice = &r
	}
	l, err := e.Listing.Create(in)
	if err != nil {
		t.Fatal(err)
	}
	return l
}

func (e *engine) activeFixedPrice(t *testing.T, seller, price string) domain.Listing {
	t.Helper()
	l, err := e.Listing.Create(services.CreateListingInput{
		SellerID:      seller,
		Title:         "Mid-century floor lamp",
		Type:          domain.ListingFixedPrice,
		StartingPrice: dec(price),
		Activate:      true,
	})
	if err != nil {
		t.Fatal(err)
	}
	return l
}

// setClock pins every service clock to t.
func (e *engine) setClock(at time.Time) {
	now := func() time.Time { return at }
	e.Listing.Now = now
	e.Bid.Now = now
	e.Offer.Now = now
	e.Sweep.Now = now
	e.Settle.Now = now
}
