/*
Package loyalty provides the core customer loyalty and campaign decision engine.

PURPOSE:
  This package contains the rules that convert raw visit/purchase events into
  loyalty point balances, detect customer states that qualify for automated
  outreach (inactivity, birthdays, negative sentiment), guarantee each
  qualifying customer is addressed at most once per campaign window, and
  define the records those decisions operate on.

KEY CONCEPTS IN THIS FILE (types.go):
  - Customer: The loyalty profile mutated by every purchase
  - Transaction: An immutable purchase record (ledger input)
  - CustomerState: A campaign-eligible condition derived from a profile
  - DispatchIntent: A decision output ("this customer should get this
    campaign now"), not yet a confirmed send
  - SendRecord: The sole source of truth for at-most-once dispatch

DESIGN PRINCIPLES:
  1. Determinism: Every decision is a pure function of explicit inputs;
     `now` is always a parameter, never a hidden clock read
  2. Precision: Uses decimal.Decimal for money to avoid floating-point errors
  3. Type Safety: Strong typing for IDs prevents mixing customer/store IDs
  4. Idempotency: Dispatch dedupe is keyed (customer, kind, window), never
     inferred from unrelated data

SEE ALSO:
  - ledger.go: Points accounting from transactions
  - classify.go: Customer state derivation
  - dispatch.go: Campaign decisions and window keys
*/
package loyalty

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type CustomerID string
type StoreID string
type TransactionID string

// =============================================================================
// CUSTOMER - Loyalty profile, mutated on every purchase
// =============================================================================

// CustomerStatus is derived from the last visit and the inactivity threshold.
// It is never set directly; see Customer.Status.
type CustomerStatus string

const (
	StatusActive   CustomerStatus = "active"
	StatusInactive CustomerStatus = "inactive"
)

// Customer is the loyalty profile for a single person at a single store.
// Created on first sign-up, mutated by ApplyTransaction, never hard-deleted
// (Archived marks soft removal).
type Customer struct {
	ID              CustomerID
	StoreID         StoreID
	Name            string
	Phone           string
	Email           string
	FavoriteProduct string
	SignupDate      time.Time
	TotalVisits     int
	TotalSpent      decimal.Decimal
	LoyaltyPoints   int64
	LastVisit       *time.Time // nil until first visit
	BirthDate       *time.Time // optional; only month+day are significant
	Archived        bool
}

// HasContact reports whether at least one contact channel is present.
func (c Customer) HasContact() bool {
	return c.Phone != "" || c.Email != ""
}

// HasVisited reports whether the customer has at least one recorded visit.
// A signup with no visits is pre-engagement, not inactive.
func (c Customer) HasVisited() bool {
	return c.LastVisit != nil && c.TotalVisits > 0
}

// Status derives the active/inactive status from the last visit and the
// inactivity threshold. A customer who never visited is considered active
// (pre-engagement).
func (c Customer) Status(now time.Time, inactiveDays int) CustomerStatus {
	if !c.HasVisited() {
		return StatusActive
	}
	if now.Sub(*c.LastVisit) >= time.Duration(inactiveDays)*24*time.Hour {
		return StatusInactive
	}
	return StatusActive
}

// =============================================================================
// TRANSACTION - Immutable purchase record
// =============================================================================

// Transaction records a single purchase. Immutable once recorded; feeds both
// the points ledger and the report aggregator.
type Transaction struct {
	ID         TransactionID
	CustomerID CustomerID
	StoreID    StoreID
	Amount     decimal.Decimal
	Items      []string
	Timestamp  time.Time
}

// =============================================================================
// CUSTOMER STATE - Campaign-eligible conditions
// =============================================================================

type CustomerState string

const (
	// StateInactive: no visit for at least the inactivity threshold.
	StateInactive CustomerState = "inactive"

	// StateBirthdayToday: birth month+day match today's (year ignored).
	StateBirthdayToday CustomerState = "birthday_today"

	// StateLowSentiment: a supplied sentiment score is below the negative
	// threshold.
	StateLowSentiment CustomerState = "low_sentiment"

	// StateRecentVisit: visited within the recency window; feeds the
	// recommendation campaign.
	StateRecentVisit CustomerState = "recent_visit"
)

// =============================================================================
// CAMPAIGN KINDS AND DISPATCH
// =============================================================================

type CampaignKind string

const (
	CampaignWeMissYou      CampaignKind = "we_miss_you"
	CampaignBirthday       CampaignKind = "birthday"
	CampaignLowSentiment   CampaignKind = "low_sentiment"
	CampaignRecommendation CampaignKind = "recommendation"
	CampaignMilestone      CampaignKind = "milestone"
)

// DispatchIntent is a decision output meaning "this customer should receive
// this campaign now". It is not a confirmed send; the send record is written
// only after the delivery collaborator confirms.
type DispatchIntent struct {
	CustomerID CustomerID
	Kind       CampaignKind
	WindowKey  string
}

// SendRecord marks a confirmed campaign send. The set of send records is the
// sole source of truth for dispatch idempotency.
type SendRecord struct {
	CustomerID CustomerID
	Kind       CampaignKind
	WindowKey  string
	SentAt     time.Time
}

// =============================================================================
// MONEY HELPERS
// =============================================================================

// NewMoney builds a decimal amount from a float. Use for literals and
// seed data only; internal math stays in decimal.
func NewMoney(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

// ParseMoneyOrZero parses a decimal string, returning zero on failure.
// Only for values we wrote ourselves (stored rows, seed data). Untrusted
// input goes through decimal.NewFromString so the error surfaces.
func ParseMoneyOrZero(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
