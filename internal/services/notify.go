package services

import (
	"encoding/json"
	"log"
)

// Notification event types surfaced to buyers and sellers.
const (
	NotifyOutbid         = "outbid"
	NotifyAuctionWon     = "auction_won"
	NotifyOfferNew       = "offer_new"
	NotifyOfferAccepted  = "offer_accepted"
	NotifyOfferCountered = "offer_countered"
	NotifyOfferExpired   = "offer_expired"
	NotifySettlement     = "settlement"
)

type Notification struct {
	UserID    string `json:"user_id"`
	Type      string `json:"type"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	ListingID string `json:"listing_id,omitempty"`
	InvoiceID string `json:"invoice_id,omitempty"`
}

type NotificationResult struct {
	Success  bool `json:"success"`
	PushSent bool `json:"push_sent"`
}

// Notifier is the outward delivery collaborator. Delivery mechanics live
// outside this engine; dispatch is best-effort and never rolls back the
// state transition that triggered it.
type Notifier interface {
	Send(n Notification) NotificationResult
}

// LogNotifier is the default stand-in: it records the event on the process
// log and reports success without a push.
type LogNotifier struct{}

func (LogNotifier) Send(n Notification) NotificationResult {
	b, _ := json.Marshal(n)
	log.Printf(`{"level":"info","action":"notify.send","notification":%s}`, b)
	return NotificationResult{Success: true, PushSent: false}
}

// dispatch sends after-commit notifications and logs failures; callers never
// see an error from it.
func dispatch(n Notifier, msgs []Notification) {
	if n == nil {
		return
	}
	for _, m := range msgs {
		if res := n.Send(m); !res.Success {
			log.Printf(`{"level":"warn","action":"notify.fail","user_id":%q,"type":%q}`, m.UserID, m.Type)
		}
	}
}
