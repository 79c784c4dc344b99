/*
runner.go - Campaign execution and customer lifecycle orchestration

PURPOSE:
  Glues the pure decision engine to storage and the external collaborators.
  The runner owns the order of operations the engine's contracts require:

    classify -> decide -> generate content -> deliver -> record send

  The send record is written ONLY after the messenger confirms delivery.
  A duplicate-insert collision from a concurrent run is the expected signal
  to skip, not an error.

FAILURE ISOLATION:
  Points accounting commits before any campaign work. Generator or delivery
  failures mark the intent failed for this run and are retried on the next
  scheduled run; they never touch the ledger.

SEE ALSO:
  - loyalty/dispatch.go: Decision rules and window keys
  - api/scheduler.go: Periodic invocation
*/
package campaign

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bobaclub/loyalty-engine/loyalty"
)

// Runner executes campaigns for one store's loyalty program.
type Runner struct {
	Store     loyalty.Store
	Generator Generator
	Messenger Messenger
	Config    loyalty.Config
}

func NewRunner(store loyalty.Store, gen Generator, msg Messenger, cfg loyalty.Config) *Runner {
	return &Runner{Store: store, Generator: gen, Messenger: msg, Config: cfg.Normalize()}
}

// =============================================================================
// ID GENERATION
// =============================================================================

func NewCustomerID() loyalty.CustomerID {
	return loyalty.CustomerID("CUST-" + strings.ToUpper(uuid.NewString()[:8]))
}

func NewTransactionID() loyalty.TransactionID {
	return loyalty.TransactionID("TXN-" + strings.ToUpper(uuid.NewString()[:8]))
}

// =============================================================================
// SIGNUP CAPTURE
// =============================================================================

// SignupInput is a sign-up event from the webhook front door. CustomerID is
// normally empty; a replayed event carries the id it was first assigned.
type SignupInput struct {
	CustomerID      loyalty.CustomerID
	StoreID         loyalty.StoreID
	Name            string
	Phone           string
	Email           string
	FavoriteProduct string
	BirthDate       *time.Time
}

// CaptureSignup creates a customer profile with the one-time welcome bonus
// and sends the welcome greeting. The greeting is best-effort; a delivery
// failure does not fail the signup.
func (r *Runner) CaptureSignup(ctx context.Context, in SignupInput, now time.Time) (loyalty.Customer, error) {
	id := in.CustomerID
	if id == "" {
		id = NewCustomerID()
	}

	// A replay for a profile we still hold is a no-op.
	if existing, err := r.Store.GetCustomer(ctx, id); err == nil {
		return existing, nil
	} else if !errors.Is(err, loyalty.ErrCustomerNotFound) {
		return loyalty.Customer{}, err
	}

	// The bonus hinges on the transaction ledger, not on a profile flag, so
	// a replay whose profile row was lost still earns nothing when the
	// ledger shows prior visits.
	txs, err := r.Store.TransactionsByCustomer(ctx, id)
	if err != nil {
		return loyalty.Customer{}, err
	}
	hadHistory := len(txs) > 0

	c, err := loyalty.NewCustomer(id, in.StoreID, in.Name, in.Phone, in.Email, in.FavoriteProduct, in.BirthDate, now, hadHistory, r.Config)
	if err != nil {
		return loyalty.Customer{}, err
	}

	if err := r.Store.UpsertCustomer(ctx, c); err != nil {
		return loyalty.Customer{}, err
	}

	if !hadHistory {
		if err := r.Messenger.Deliver(ctx, c, loyalty.CampaignKind("welcome"), WelcomeMessage(c, r.Config.WelcomeBonusPoints)); err != nil {
			log.Printf("[Runner] welcome message for %s failed: %v", c.ID, err)
		}
	}

	return c, nil
}

// =============================================================================
// PURCHASE TRACKING
// =============================================================================

// TrackPurchase records a purchase, updates the loyalty profile, and fires a
// milestone reward when the visit count lands on one. The ledger write
// commits before any campaign work; a reward delivery failure surfaces in
// the result, never in the ledger.
func (r *Runner) TrackPurchase(ctx context.Context, customerID loyalty.CustomerID, storeID loyalty.StoreID, amount decimal.Decimal, items []string, ts time.Time) (PurchaseResult, error) {
	c, err := r.Store.GetCustomer(ctx, customerID)
	if err != nil {
		return PurchaseResult{}, err
	}

	tx := loyalty.Transaction{
		ID:         NewTransactionID(),
		CustomerID: customerID,
		StoreID:    storeID,
		Amount:     amount,
		Items:      items,
		Timestamp:  ts,
	}

	updated, earned, err := loyalty.ApplyTransaction(c, tx, r.Config)
	if err != nil {
		return PurchaseResult{}, err
	}

	if err := r.Store.AppendTransaction(ctx, tx); err != nil {
		return PurchaseResult{}, err
	}
	if err := r.Store.UpsertCustomer(ctx, updated); err != nil {
		return PurchaseResult{}, err
	}

	result := PurchaseResult{Customer: updated, PointsEarned: earned}

	if m, ok := loyalty.MilestoneReached(updated, r.Config); ok {
		result.Milestone = m
		intents := loyalty.Decide(loyalty.DecideInput{
			Customer:  updated,
			Now:       ts,
			Milestone: m,
		}, r.Store, r.Config)
		for _, intent := range intents {
			if err := r.executeIntent(ctx, updated, intent, ts); err != nil && !loyalty.IsConflict(err) {
				log.Printf("[Runner] milestone reward for %s failed: %v", updated.ID, err)
			}
		}
	}

	return result, nil
}

// =============================================================================
// CAMPAIGN RUNS
// =============================================================================

// campaignOrder fixes the reporting order of a run's results.
var campaignOrder = []loyalty.CampaignKind{
	loyalty.CampaignWeMissYou,
	loyalty.CampaignBirthday,
	loyalty.CampaignRecommendation,
}

// RunCampaigns classifies every active customer of the store at the given
// instant and executes the resulting dispatch intents. Safe to run
// concurrently with itself: the conditional send-record insert guarantees
// at-most-once delivery per window.
func (r *Runner) RunCampaigns(ctx context.Context, storeID loyalty.StoreID, now time.Time) ([]Result, error) {
	customers, err := r.Store.ListCustomers(ctx, storeID)
	if err != nil {
		return nil, err
	}

	results := make(map[loyalty.CampaignKind]*Result)
	for _, kind := range campaignOrder {
		results[kind] = &Result{Kind: kind}
	}

	for _, c := range customers {
		states := loyalty.Classify(c, now, nil, r.Config)
		if len(states) == 0 {
			continue
		}

		intents := loyalty.Decide(loyalty.DecideInput{
			Customer: c,
			States:   states,
			Now:      now,
		}, r.Store, r.Config)

		// Targets counts customers in an eligible state even when the
		// window already consumed them.
		for _, state := range states {
			if res, ok := results[kindForState(state)]; ok {
				res.Targets++
			}
		}

		seen := make(map[loyalty.CampaignKind]bool, len(intents))
		for _, intent := range intents {
			seen[intent.Kind] = true
			res, ok := results[intent.Kind]
			if !ok {
				continue
			}
			switch err := r.executeIntent(ctx, c, intent, now); {
			case err == nil:
				res.Dispatched++
			case loyalty.IsConflict(err):
				res.Skipped++
			default:
				res.Failed++
				log.Printf("[Runner] %s dispatch for %s failed: %v", intent.Kind, c.ID, err)
			}
		}

		// An eligible state whose window was already consumed counts as
		// skipped.
		for _, state := range states {
			kind := kindForState(state)
			if res, ok := results[kind]; ok && !seen[kind] {
				res.Skipped++
			}
		}
	}

	out := make([]Result, 0, len(campaignOrder))
	for _, kind := range campaignOrder {
		out = append(out, *results[kind])
	}
	return out, nil
}

func kindForState(state loyalty.CustomerState) loyalty.CampaignKind {
	switch state {
	case loyalty.StateInactive:
		return loyalty.CampaignWeMissYou
	case loyalty.StateBirthdayToday:
		return loyalty.CampaignBirthday
	case loyalty.StateRecentVisit:
		return loyalty.CampaignRecommendation
	case loyalty.StateLowSentiment:
		return loyalty.CampaignLowSentiment
	default:
		return ""
	}
}

// =============================================================================
// FEEDBACK / SENTIMENT
// =============================================================================

// HandleFeedback scores free-text feedback and, when the score falls below
// the negative threshold, alerts the manager and dispatches an apology scoped
// to this submission's incident id. A sentiment collaborator failure is a
// DependencyError; it never blocks points accounting, which has no part in
// this flow.
func (r *Runner) HandleFeedback(ctx context.Context, customerID loyalty.CustomerID, text string, now time.Time) (FeedbackResult, error) {
	if strings.TrimSpace(text) == "" {
		return FeedbackResult{}, &loyalty.ValidationError{Field: "feedback", Message: "required"}
	}

	c, err := r.Store.GetCustomer(ctx, customerID)
	if err != nil {
		return FeedbackResult{}, err
	}

	score, err := r.Generator.SentimentScore(ctx, text)
	if err != nil {
		return FeedbackResult{}, &loyalty.DependencyError{Collaborator: "sentiment", Err: err}
	}

	result := FeedbackResult{Score: score, Sentiment: sentimentLabel(score, r.Config.SentimentThreshold), ActionTaken: "none"}

	states := loyalty.Classify(c, now, &score, r.Config)
	if !containsState(states, loyalty.StateLowSentiment) {
		return result, nil
	}

	incident := uuid.NewString()
	result.IncidentID = incident

	intents := loyalty.Decide(loyalty.DecideInput{
		Customer:   c,
		States:     []loyalty.CustomerState{loyalty.StateLowSentiment},
		Now:        now,
		IncidentID: incident,
	}, r.Store, r.Config)

	if err := r.Messenger.Alert(ctx, c.StoreID, fmt.Sprintf("Negative feedback from %s: %s", c.Name, text)); err != nil {
		log.Printf("[Runner] manager alert for %s failed: %v", c.ID, err)
	}

	for _, intent := range intents {
		switch err := r.executeIntent(ctx, c, intent, now); {
		case err == nil:
			result.ActionTaken = "manager_alerted_and_apology_sent"
		case loyalty.IsConflict(err):
			result.ActionTaken = "already_handled"
		default:
			result.ActionTaken = "manager_alerted"
			log.Printf("[Runner] apology dispatch for %s failed: %v", c.ID, err)
		}
	}
	if len(intents) == 0 {
		result.ActionTaken = "already_handled"
	}

	return result, nil
}

func sentimentLabel(score, threshold float64) string {
	switch {
	case score < threshold:
		return "negative"
	case score > 0:
		return "positive"
	default:
		return "neutral"
	}
}

func containsState(states []loyalty.CustomerState, want loyalty.CustomerState) bool {
	for _, s := range states {
		if s == want {
			return true
		}
	}
	return false
}

// =============================================================================
// INTENT EXECUTION
// =============================================================================

// executeIntent generates content, delivers it, and records the send.
// Returns a conflict error when a concurrent run already recorded the
// triple; callers treat that as a skip.
func (r *Runner) executeIntent(ctx context.Context, c loyalty.Customer, intent loyalty.DispatchIntent, now time.Time) error {
	message, err := r.renderMessage(ctx, c, intent)
	if err != nil {
		return &loyalty.DependencyError{Collaborator: "content", Err: err}
	}

	if err := r.Messenger.Deliver(ctx, c, intent.Kind, message); err != nil {
		return &loyalty.DependencyError{Collaborator: "delivery", Err: err}
	}

	// Record only after confirmed delivery. A duplicate here means a
	// concurrent run won the race after our history snapshot; the message
	// was at worst duplicated once, and the window stays closed.
	return r.Store.Insert(ctx, loyalty.SendRecord{
		CustomerID: intent.CustomerID,
		Kind:       intent.Kind,
		WindowKey:  intent.WindowKey,
		SentAt:     now,
	})
}

func (r *Runner) renderMessage(ctx context.Context, c loyalty.Customer, intent loyalty.DispatchIntent) (string, error) {
	switch intent.Kind {
	case loyalty.CampaignBirthday:
		offer := BirthdayOffer(c)
		return r.Generator.Message(ctx, intent.Kind, c, &offer)
	case loyalty.CampaignRecommendation:
		items, err := r.Generator.Recommendations(ctx, c)
		if err != nil {
			return "", err
		}
		if len(items) == 0 {
			return r.Generator.Message(ctx, intent.Kind, c, nil)
		}
		return RecommendationMessage(c, items), nil
	default:
		return r.Generator.Message(ctx, intent.Kind, c, nil)
	}
}
