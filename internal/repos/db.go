package repos

import (
	"log"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

func OpenDB(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err = db.Ping(); err != nil {
		return nil, err
	}

	if err := ensureSchema(db); err != nil {
		return nil, err
	}
	// Seed the settings singleton if absent (idempotent; safe every start)
	if err := seedSettings(db); err != nil {
		return nil, err
	}

	return db, nil
}

func ensureSchema(db *sqlx.DB) error {
	schema := `
PRAGMA foreign_keys = ON;

-- Listings
CREATE TABLE IF NOT EXISTS listings(
  id TEXT PRIMARY KEY,
  seller_id TEXT NOT NULL,
  title TEXT NOT NULL,
  type TEXT NOT NULL CHECK (type IN ('auction','fixed_price','hybrid')),
  starting_price TEXT NOT NULL,
  reserve_price TEXT,
  current_price TEXT NOT NULL,
  end_time TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL DEFAULT 'scheduled'
    CHECK (status IN ('scheduled','active','processing','sold','unsold')),
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_listings_status_end ON listings(status, end_time);
CREATE INDEX IF NOT EXISTS idx_listings_seller     ON listings(seller_id);

-- Bid ledger (append-only except the status flip)
CREATE TABLE IF NOT EXISTS bids(
  id TEXT PRIMARY KEY,
  listing_id TEXT NOT NULL REFERENCES listings(id) ON DELETE CASCADE,
  bidder_id TEXT NOT NULL,
  amount TEXT NOT NULL,
  max_bid TEXT,
  is_auto INTEGER NOT NULL DEFAULT 0,
  status TEXT NOT NULL CHECK (status IN ('active','outbid','retracted')),
  created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_bids_listing        ON bids(listing_id);
CREATE INDEX IF NOT EXISTS idx_bids_listing_status ON bids(listing_id, status);

-- Offer negotiation chains
CREATE TABLE IF NOT EXISTS offers(
  id TEXT PRIMARY KEY,
  listing_id TEXT NOT NULL REFERENCES listings(id) ON DELETE CASCADE,
  buyer_id TEXT NOT NULL,
  seller_id TEXT NOT NULL,
  amount TEXT NOT NULL,
  status TEXT NOT NULL CHECK (status IN ('pending','accepted','rejected','countered','withdrawn','expired')),
  parent_offer_id TEXT NOT NULL DEFAULT '',
  root_offer_id TEXT NOT NULL,
  counter_count INTEGER NOT NULL DEFAULT 0,
  expires_at TEXT NOT NULL,
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_offers_chain  ON offers(root_offer_id);
CREATE INDEX IF NOT EXISTS idx_offers_expiry ON offers(status, expires_at);
-- At most one pending node per chain
CREATE UNIQUE INDEX IF NOT EXISTS idx_offers_one_pending ON offers(root_offer_id) WHERE status='pending';

-- Invoices: the UNIQUE pair is what makes settlement idempotent
CREATE TABLE IF NOT EXISTS invoices(
  id TEXT PRIMARY KEY,
  listing_id TEXT NOT NULL REFERENCES listings(id),
  seller_id TEXT NOT NULL,
  buyer_id TEXT NOT NULL,
  sale_amount TEXT NOT NULL,
  buyer_premium_percent TEXT NOT NULL,
  buyer_premium_amount TEXT NOT NULL,
  seller_commission_percent TEXT NOT NULL,
  seller_commission_amount TEXT NOT NULL,
  total_amount TEXT NOT NULL,
  seller_payout_amount TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending','paid')),
  fulfillment_status TEXT NOT NULL DEFAULT 'awaiting_payment',
  payment_due_date TEXT NOT NULL,
  created_at TEXT NOT NULL,
  UNIQUE(listing_id, seller_id)
);

-- Platform settings singleton
CREATE TABLE IF NOT EXISTS platform_settings(
  id INTEGER PRIMARY KEY CHECK (id = 1),
  default_buyer_premium_percent TEXT NOT NULL,
  default_seller_commission_percent TEXT NOT NULL,
  default_bid_increment TEXT NOT NULL,
  auction_extension_minutes INTEGER NOT NULL,
  offer_expiry_hours INTEGER NOT NULL
);

-- Per-seller fee overrides; NULL column = use platform default
CREATE TABLE IF NOT EXISTS seller_rate_overrides(
  seller_id TEXT PRIMARY KEY,
  buyer_premium_percent TEXT,
  seller_commission_percent TEXT
);
`
	_, err := db.Exec(schema)
	return err
}

func seedSettings(db *sqlx.DB) error {
	var n int
	if err := db.Get(&n, `SELECT COUNT(*) FROM platform_settings`); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	log.Println("[seed] inserting default platform settings")

	_, err := db.Exec(`
		INSERT INTO platform_settings(
		  id, default_buyer_premium_percent, default_seller_commission_percent,
		  default_bid_increment, auction_extension_minutes, offer_expiry_hours)
		VALUES (1, '8', '8', '10', 5, 48)
	`)
	return err
}
