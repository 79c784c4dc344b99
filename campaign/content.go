/*
content.go - Fallback content generator and log messenger

PURPOSE:
  Default collaborator implementations for development and tests. The static
  generator carries the fallback copy used when no AI service is wired; the
  log messenger prints instead of sending.

Production deployments replace both with real integrations; the engine never
knows the difference.
*/
package campaign

import (
	"context"
	"fmt"
	"log"

	"github.com/bobaclub/loyalty-engine/loyalty"
)

// =============================================================================
// STATIC GENERATOR
// =============================================================================

// StaticGenerator returns canned copy and a neutral sentiment score. Useful
// for tests and as a fallback when the AI collaborator is unavailable.
type StaticGenerator struct {
	// Score is returned by SentimentScore; zero value is neutral.
	Score float64
}

var _ Generator = (*StaticGenerator)(nil)

func (g *StaticGenerator) SentimentScore(_ context.Context, _ string) (float64, error) {
	return g.Score, nil
}

func (g *StaticGenerator) Message(_ context.Context, kind loyalty.CampaignKind, c loyalty.Customer, offer *Offer) (string, error) {
	switch kind {
	case loyalty.CampaignWeMissYou:
		return fmt.Sprintf("We miss you, %s! Come back for 15%% off!", c.Name), nil
	case loyalty.CampaignBirthday:
		item := "Any drink"
		if offer != nil {
			item = offer.Item
		}
		return fmt.Sprintf("Happy Birthday %s! Enjoy a free %s on us!", c.Name, item), nil
	case loyalty.CampaignLowSentiment:
		return "We're sorry for your experience. Please accept this free drink coupon.", nil
	case loyalty.CampaignMilestone:
		return fmt.Sprintf("Milestone! %s, you've reached %d visits. Thank you!", c.Name, c.TotalVisits), nil
	case loyalty.CampaignRecommendation:
		return fmt.Sprintf("Hi %s! We have new drinks we think you'll love.", c.Name), nil
	default:
		return "", &loyalty.ValidationError{Field: "kind", Message: fmt.Sprintf("unknown campaign kind %q", kind)}
	}
}

func (g *StaticGenerator) Recommendations(_ context.Context, c loyalty.Customer) ([]string, error) {
	if c.FavoriteProduct != "" {
		return []string{c.FavoriteProduct}, nil
	}
	return nil, nil
}

// RecommendationMessage renders the recommendation copy for a list of items.
func RecommendationMessage(c loyalty.Customer, items []string) string {
	joined := ""
	for i, item := range items {
		if i > 0 {
			joined += ", "
		}
		joined += item
	}
	return fmt.Sprintf("Hi %s! Based on your taste, you might love: %s", c.Name, joined)
}

// WelcomeMessage renders the signup greeting with the granted bonus.
func WelcomeMessage(c loyalty.Customer, bonus int64) string {
	return fmt.Sprintf("Welcome to Boba Club, %s! You've earned %d points!", c.Name, bonus)
}

// =============================================================================
// LOG MESSENGER
// =============================================================================

// LogMessenger writes messages to the process log instead of a delivery
// channel. Every delivery "succeeds".
type LogMessenger struct{}

var _ Messenger = (*LogMessenger)(nil)

func (LogMessenger) Deliver(_ context.Context, c loyalty.Customer, kind loyalty.CampaignKind, message string) error {
	log.Printf("[Messenger] %s -> %s (%s): %s", kind, c.Name, c.ID, message)
	return nil
}

func (LogMessenger) Alert(_ context.Context, storeID loyalty.StoreID, message string) error {
	log.Printf("[Messenger] ALERT for %s: %s", storeID, message)
	return nil
}
