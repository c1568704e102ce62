package handlers

import (
	"github.com/jmoiron/sqlx"

	"saleroom/internal/config"
	"saleroom/internal/repos"
	"saleroom/internal/services"
)

type Deps struct {
	ListingHandler *ListingHandler
	BidHandler     *BidHandler
	OfferHandler   *OfferHandler
	InvoiceHandler *InvoiceHandler
	SweepHandler   *SweepHandler
	AdminHandler   *AdminHandler

	Sweep *services.SweepService
}

func NewDeps(db *sqlx.DB, cfg config.Config, notify services.Notifier) *Deps {
	listingRepo := repos.NewListingRepo(db)
	bidRepo := repos.NewBidRepo(db)
	offerRepo := repos.NewOfferRepo(db)
	invoiceRepo := repos.NewInvoiceRepo(db)
	settingsRepo := repos.NewSettingsRepo(db)

	// One lock table across every service so bid placement, buy-now and the
	// sweep all serialize on the same per-listing key.
	locks := &services.KeyedMutex{}

	settleSvc := services.NewSettlementService(invoiceRepo, settingsRepo, notify)
	listingSvc := services.NewListingService(db, listingRepo, settleSvc, locks, notify)
	bidSvc := services.NewBidService(db, listingRepo, bidRepo, settingsRepo, locks, notify)
	offerSvc := services.NewOfferService(db, offerRepo, listingRepo, settingsRepo, settleSvc, locks, notify)
	sweepSvc := services.NewSweepService(db, listingRepo, bidRepo, offerRepo, settleSvc, locks, notify)

	return &Deps{
		ListingHandler: &ListingHandler{Listings: listingSvc, Bids: bidSvc},
		BidHandler:     &BidHandler{Bids: bidSvc},
		OfferHandler:   &OfferHandler{Offers: offerSvc},
		InvoiceHandler: &InvoiceHandler{Settle: settleSvc},
		SweepHandler:   &SweepHandler{Sweep: sweepSvc, Secret: cfg.SweepSecret},
		AdminHandler:   &AdminHandler{Settings: settingsRepo, Listings: listingSvc},

		Sweep: sweepSvc,
	}
}
