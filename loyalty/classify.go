/*
classify.go - Customer state derivation

PURPOSE:
  Derives the set of campaign-eligible states from a customer profile and an
  explicit clock. Pure function of its inputs: no hidden time.Now(), no I/O,
  so every classification is deterministically testable.

STATES:
  INACTIVE        now - last_visit >= threshold AND at least one prior visit.
                  A signup who never visited is pre-engagement, not inactive;
                  win-back messaging to non-activated signups is spurious.
  BIRTHDAY_TODAY  birth month+day equal now's month+day, year ignored.
                  Feb 29 birthdays are observed on Mar 1 in non-leap years.
  LOW_SENTIMENT   a supplied sentiment score is below the negative threshold.
                  The score comes from an external collaborator; this package
                  only thresholds it.
  RECENT_VISIT    visited within the recency window; feeds recommendations.

BOUNDARY:
  A last visit exactly threshold days before now IS inactive; one day less
  is not.
*/
package loyalty

import "time"

// Classify returns the campaign-eligible states for a customer at the given
// instant. sentiment is nil when no feedback score is available; recency and
// inactivity are mutually exclusive by construction of their windows.
func Classify(c Customer, now time.Time, sentiment *float64, cfg Config) []CustomerState {
	cfg = cfg.Normalize()
	var states []CustomerState

	if c.Archived {
		return nil
	}

	if inactive(c, now, cfg.InactiveDays) {
		states = append(states, StateInactive)
	}

	if birthdayToday(c, now) {
		states = append(states, StateBirthdayToday)
	}

	if sentiment != nil && *sentiment < cfg.SentimentThreshold {
		states = append(states, StateLowSentiment)
	}

	if recentVisit(c, now, cfg.RecentVisitDays) {
		states = append(states, StateRecentVisit)
	}

	return states
}

func inactive(c Customer, now time.Time, thresholdDays int) bool {
	if !c.HasVisited() {
		return false
	}
	return now.Sub(*c.LastVisit) >= time.Duration(thresholdDays)*24*time.Hour
}

func recentVisit(c Customer, now time.Time, recencyDays int) bool {
	if !c.HasVisited() {
		return false
	}
	since := now.Sub(*c.LastVisit)
	return since >= 0 && since < time.Duration(recencyDays)*24*time.Hour
}

func birthdayToday(c Customer, now time.Time) bool {
	if c.BirthDate == nil {
		return false
	}
	bm, bd := c.BirthDate.Month(), c.BirthDate.Day()

	// Leap-day policy: Feb 29 birthdays are observed on Mar 1 in non-leap
	// years.
	if bm == time.February && bd == 29 && !isLeapYear(now.Year()) {
		return now.Month() == time.March && now.Day() == 1
	}

	return now.Month() == bm && now.Day() == bd
}

func isLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}
