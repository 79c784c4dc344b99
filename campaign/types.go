/*
Package campaign orchestrates the loyalty decision engine against its
external collaborators: the content/sentiment generator, the delivery
channel, and the storage layer.

PURPOSE:
  The loyalty package decides; this package executes. It runs the automated
  campaigns (we-miss-you, birthday, recommendations), handles feedback
  sentiment flows, and records sends only after delivery is confirmed - so a
  dispatch failure never silently marks a customer as handled.

KEY TYPES IN THIS FILE (types.go):
  - Generator: Opaque, fallible text/sentiment collaborator
  - Messenger: Opaque, fallible delivery collaborator
  - Offer: A reward attached to a campaign message (birthday free drink)
  - Result: Structured per-campaign outcome the caller can count, log, or
    test - replacing printed success counters

COLLABORATOR BOUNDARY:
  Generator and Messenger calls happen strictly outside the decision
  engine's own logic. A generator failure skips the associated dispatch and
  nothing else; points accounting has already committed independently.

SEE ALSO:
  - content.go: Fallback generator and log messenger
  - runner.go: Campaign execution and feedback handling
*/
package campaign

import (
	"context"

	"github.com/bobaclub/loyalty-engine/loyalty"
)

// =============================================================================
// COLLABORATOR INTERFACES
// =============================================================================

// Generator produces sentiment scores and localized campaign copy. Both
// calls are fallible and may be backed by a remote AI service; failures are
// recoverable via retry on the next scheduled run.
type Generator interface {
	// SentimentScore returns a scalar in [-1, 1] for free-text feedback.
	SentimentScore(ctx context.Context, text string) (float64, error)

	// Message returns campaign copy for a customer. The offer may be nil.
	Message(ctx context.Context, kind loyalty.CampaignKind, c loyalty.Customer, offer *Offer) (string, error)

	// Recommendations suggests products a customer might enjoy, based on
	// their profile.
	Recommendations(ctx context.Context, c loyalty.Customer) ([]string, error)
}

// Messenger delivers campaign messages. Deliver returns nil only on a
// delivery confirmation; the send record is written afterwards.
type Messenger interface {
	Deliver(ctx context.Context, c loyalty.Customer, kind loyalty.CampaignKind, message string) error

	// Alert notifies the store manager out of band (negative feedback).
	Alert(ctx context.Context, storeID loyalty.StoreID, message string) error
}

// =============================================================================
// OFFERS
// =============================================================================

type OfferType string

const (
	OfferFreeDrink OfferType = "free_drink"
)

// Offer is a reward attached to a campaign message.
type Offer struct {
	Type       OfferType
	Item       string
	ExpiryDays int
}

// BirthdayOffer builds the standard birthday reward: the customer's favorite
// product free, valid for a week.
func BirthdayOffer(c loyalty.Customer) Offer {
	item := c.FavoriteProduct
	if item == "" {
		item = "Any drink"
	}
	return Offer{Type: OfferFreeDrink, Item: item, ExpiryDays: 7}
}

// =============================================================================
// RESULTS
// =============================================================================

// Result summarizes one campaign's run.
type Result struct {
	Kind       loyalty.CampaignKind `json:"kind"`
	Targets    int                  `json:"targets"`
	Dispatched int                  `json:"dispatched"`
	Skipped    int                  `json:"skipped"`
	Failed     int                  `json:"failed"`
}

// FeedbackResult summarizes a feedback submission's handling.
type FeedbackResult struct {
	Score       float64 `json:"score"`
	Sentiment   string  `json:"sentiment"` // "negative", "neutral", "positive"
	ActionTaken string  `json:"action_taken"`
	IncidentID  string  `json:"incident_id,omitempty"`
}

// PurchaseResult carries the ledger outcome of a tracked purchase.
type PurchaseResult struct {
	Customer     loyalty.Customer `json:"customer"`
	PointsEarned int64            `json:"points_earned"`
	Milestone    int              `json:"milestone,omitempty"`
}
