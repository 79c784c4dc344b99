package report

import (
	"time"

	"github.com/bobaclub/loyalty-engine/loyalty"
)

// =============================================================================
// PERIOD - Explicit [start, end) bounds for aggregation
// =============================================================================

type PeriodType string

const (
	PeriodDaily   PeriodType = "daily"
	PeriodWeekly  PeriodType = "weekly"
	PeriodMonthly PeriodType = "monthly"
)

// Period is a half-open interval [Start, End). End-exclusive so a transaction
// at an exact boundary belongs to exactly one period.
type Period struct {
	Type  PeriodType
	Start time.Time
	End   time.Time
}

// PeriodFor returns the period of the given type containing the instant.
// Weeks start on Monday; all bounds are at UTC midnight.
func PeriodFor(t PeriodType, at time.Time) (Period, error) {
	day := time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, time.UTC)

	switch t {
	case PeriodDaily:
		return Period{Type: t, Start: day, End: day.AddDate(0, 0, 1)}, nil
	case PeriodWeekly:
		offset := (int(day.Weekday()) + 6) % 7 // Monday = 0
		start := day.AddDate(0, 0, -offset)
		return Period{Type: t, Start: start, End: start.AddDate(0, 0, 7)}, nil
	case PeriodMonthly:
		start := time.Date(at.Year(), at.Month(), 1, 0, 0, 0, 0, time.UTC)
		return Period{Type: t, Start: start, End: start.AddDate(0, 1, 0)}, nil
	default:
		return Period{}, &loyalty.ValidationError{Field: "period", Message: "must be daily, weekly, or monthly"}
	}
}

// CustomPeriod builds a period from explicit bounds, validating order.
func CustomPeriod(t PeriodType, start, end time.Time) (Period, error) {
	if !end.After(start) {
		return Period{}, &loyalty.InvalidPeriodError{Start: start, End: end}
	}
	return Period{Type: t, Start: start, End: end}, nil
}
