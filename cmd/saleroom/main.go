package main

import (
	"io"
	"log"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"saleroom/internal/config"
	"saleroom/internal/http/handlers"
	applog "saleroom/internal/log"
	"saleroom/internal/repos"
	"saleroom/internal/services"
)

func main() {
	cfg := config.Load()

	// Optional file logging
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			log.Printf("[warn] could not open log file %s: %v", cfg.LogFile, err)
		} else {
			mw := io.MultiWriter(os.Stdout, f)
			log.SetOutput(mw)
		}
	}

	db, err := repos.OpenDB(cfg.DBDSN)
	if err != nil {
		log.Fatal(err)
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			applog.Error(c, "server.error", err, nil)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
		},
	})
	app.Server().MaxRequestBodySize = 1 << 20 // 1 MiB

	// ---------- Middlewares ----------
	app.Use(requestid.New())
	app.Use(logger.New())
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: time.Minute,
	}))

	// ---------- App handlers ----------
	deps := handlers.NewDeps(db, cfg, services.LogNotifier{})

	api := app.Group("/api/v1")

	// Listings
	api.Post("/listings", handlers.RequireActor(), deps.ListingHandler.Create)
	api.Post("/listings/:id/activate", handlers.RequireActor(), deps.ListingHandler.Activate)
	api.Get("/listings/:id", deps.ListingHandler.Get)
	api.Post("/listings/:id/buy", handlers.RequireActor(), deps.ListingHandler.BuyNow)

	// Bids
	api.Post("/listings/:id/bids", handlers.RequireActor(), deps.BidHandler.Place)
	api.Get("/listings/:id/bids", deps.BidHandler.History)
	api.Post("/listings/:id/bids/:bidId/retract", handlers.RequireActor(), deps.BidHandler.Retract)

	// Offers
	api.Post("/offers", handlers.RequireActor(), deps.OfferHandler.Create)
	api.Post("/offers/:id/accept", handlers.RequireActor(), deps.OfferHandler.Accept)
	api.Post("/offers/:id/reject", handlers.RequireActor(), deps.OfferHandler.Reject)
	api.Post("/offers/:id/counter", handlers.RequireActor(), deps.OfferHandler.Counter)
	api.Post("/offers/:id/withdraw", handlers.RequireActor(), deps.OfferHandler.Withdraw)
	api.Get("/offers/:id/chain", deps.OfferHandler.Chain)

	// Invoices
	api.Get("/invoices/:id", handlers.RequireActor(), deps.InvoiceHandler.Get)

	// Trusted periodic trigger (shared secret, out-of-band auth)
	app.Post("/internal/sweep", deps.SweepHandler.Trigger)

	// Admin surface
	admin := app.Group("/admin", handlers.RequireActor(), handlers.RequireOperator(cfg.AdminSecret))
	admin.Put("/settings", deps.AdminHandler.UpdateSettings)
	admin.Put("/sellers/:id/rates", deps.AdminHandler.UpsertSellerRates)
	admin.Post("/listings/:id/end-time", deps.AdminHandler.OverrideEndTime)

	// Health
	app.Get("/healthz", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"ok": true}) })

	// In-process sweeper alongside the external trigger: either path may
	// fire; the claim markers make overlap harmless.
	go func() {
		t := time.NewTicker(cfg.SweepInterval)
		defer t.Stop()
		for range t.C {
			if rep, err := deps.Sweep.Run(); err != nil {
				applog.Error(nil, "sweep.tick.fail", err, nil)
			} else if rep.ListingsSold+rep.ListingsUnsold+rep.OffersExpired > 0 {
				applog.Info(nil, "sweep.tick", map[string]any{
					"sold": rep.ListingsSold, "unsold": rep.ListingsUnsold, "offers_expired": rep.OffersExpired,
				})
			}
		}
	}()

	log.Fatal(app.Listen(":" + cfg.Port))
}
