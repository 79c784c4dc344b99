/*
config.go - Engine configuration with explicit defaults

PURPOSE:
  One struct carries every tunable the engine exposes. All fields have
  documented defaults via DefaultConfig; zero-value configs are normalized
  before use so a partially filled struct never silently disables a rule.

CONFIGURATION SURFACE:
  InactiveDays          Inactivity threshold in days (default 30)
  PointsPerCurrencyUnit Points earned per currency unit spent (default 1)
  WelcomeBonusPoints    One-time signup bonus (default 100)
  SentimentThreshold    Negative sentiment cutoff on [-1,1] (default -0.5)
  RecentVisitDays       Recency window for recommendations (default 7)
  MilestoneVisits       Visit counts that trigger milestone rewards
  Priorities            Optional campaign ordering; when set, only the
                        highest-priority eligible campaign fires per customer
*/
package loyalty

import "github.com/shopspring/decimal"

// Config holds the decision engine's tunables.
type Config struct {
	InactiveDays          int
	PointsPerCurrencyUnit decimal.Decimal
	WelcomeBonusPoints    int64
	SentimentThreshold    float64
	RecentVisitDays       int
	MilestoneVisits       []int
	Priorities            []CampaignKind
}

// DefaultConfig returns the engine defaults. Milestone rewards fire at
// 5, 10, 25, 50 and 100 visits.
func DefaultConfig() Config {
	return Config{
		InactiveDays:          30,
		PointsPerCurrencyUnit: decimal.NewFromInt(1),
		WelcomeBonusPoints:    100,
		SentimentThreshold:    -0.5,
		RecentVisitDays:       7,
		MilestoneVisits:       []int{5, 10, 25, 50, 100},
	}
}

// Normalize fills unset fields with defaults. A sentiment threshold of 0 is
// treated as unset: a zero cutoff would flag neutral feedback as negative.
func (c Config) Normalize() Config {
	def := DefaultConfig()
	if c.InactiveDays <= 0 {
		c.InactiveDays = def.InactiveDays
	}
	if c.PointsPerCurrencyUnit.IsZero() {
		c.PointsPerCurrencyUnit = def.PointsPerCurrencyUnit
	}
	if c.WelcomeBonusPoints <= 0 {
		c.WelcomeBonusPoints = def.WelcomeBonusPoints
	}
	if c.SentimentThreshold == 0 {
		c.SentimentThreshold = def.SentimentThreshold
	}
	if c.RecentVisitDays <= 0 {
		c.RecentVisitDays = def.RecentVisitDays
	}
	if len(c.MilestoneVisits) == 0 {
		c.MilestoneVisits = def.MilestoneVisits
	}
	return c
}
