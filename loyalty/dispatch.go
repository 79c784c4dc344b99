/*
dispatch.go - Campaign dispatch decisions with at-most-once windows

PURPOSE:
  Given a customer's eligible states and the send history, decides which
  campaigns fire and produces dispatch intents. The state machine per
  (customer, campaign kind) is NOT_DUE -> DUE -> SENT within a window,
  resetting when the window key changes.

WINDOW KEYS:
  we_miss_you     Inactivity episode id: the last visit timestamp bucketed by
                  the threshold period. A customer who returns and lapses
                  again gets a fresh episode; a continuously inactive
                  customer is messaged once per episode, not once per day.
  birthday        Calendar year. One birthday send per customer per year no
                  matter how often the classifier runs that day.
  low_sentiment   Caller-supplied incident id. Each feedback submission is
                  its own incident; one alert per incident.
  recommendation  Last visit day. One recommendation per visit.
  milestone       The visit count reached. Each milestone fires once ever.

DECISION RULE:
  Emit an intent for (customer, kind, window) iff no send record exists for
  that exact triple. This engine never writes the record itself - recording
  happens only after the delivery collaborator confirms, so a dispatch
  failure does not silently mark the customer as handled.

PRIORITIES:
  By default every eligible state yields an independent intent (a customer
  can be inactive AND have a birthday). When Config.Priorities is set, only
  the highest-priority eligible kind survives.
*/
package loyalty

import (
	"fmt"
	"sync"
	"time"
)

// =============================================================================
// SEND HISTORY - Read-side of the idempotency ledger
// =============================================================================

// SendHistory answers whether a campaign was already sent for a window.
// Implementations must be snapshots or safely concurrent; Decide only reads.
type SendHistory interface {
	Sent(customerID CustomerID, kind CampaignKind, windowKey string) bool
}

// SendLog is an in-memory SendHistory, used in tests and as the decision
// snapshot loaded from storage.
type SendLog struct {
	mu   sync.RWMutex
	sent map[string]time.Time
}

func NewSendLog() *SendLog {
	return &SendLog{sent: make(map[string]time.Time)}
}

func (l *SendLog) Sent(customerID CustomerID, kind CampaignKind, windowKey string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.sent[sendKey(customerID, kind, windowKey)]
	return ok
}

// Record marks a triple as sent. Returns ErrDuplicateSend if already present,
// mirroring the conditional-insert contract of the persistent store.
func (l *SendLog) Record(rec SendRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	k := sendKey(rec.CustomerID, rec.Kind, rec.WindowKey)
	if _, ok := l.sent[k]; ok {
		return &DuplicateSendError{CustomerID: rec.CustomerID, Kind: rec.Kind, WindowKey: rec.WindowKey}
	}
	l.sent[k] = rec.SentAt
	return nil
}

func sendKey(id CustomerID, kind CampaignKind, window string) string {
	return string(id) + "|" + string(kind) + "|" + window
}

// =============================================================================
// WINDOW KEYS
// =============================================================================

// InactivityEpisodeKey buckets the last visit by the threshold period to form
// a monotonically increasing episode id.
func InactivityEpisodeKey(lastVisit time.Time, thresholdDays int) string {
	bucket := lastVisit.Unix() / (int64(thresholdDays) * 86400)
	return fmt.Sprintf("episode-%d", bucket)
}

// BirthdayWindowKey scopes birthday sends to the calendar year.
func BirthdayWindowKey(now time.Time) string {
	return fmt.Sprintf("year-%d", now.Year())
}

// IncidentWindowKey scopes sentiment alerts to a single feedback submission.
func IncidentWindowKey(incidentID string) string {
	return "incident-" + incidentID
}

// VisitWindowKey scopes recommendation sends to a single visit day.
func VisitWindowKey(lastVisit time.Time) string {
	return "visit-" + lastVisit.UTC().Format("2006-01-02")
}

// MilestoneWindowKey scopes a milestone reward to the visit count reached.
func MilestoneWindowKey(visits int) string {
	return fmt.Sprintf("visits-%d", visits)
}

// =============================================================================
// DECIDE
// =============================================================================

// DecideInput carries everything a dispatch decision needs. IncidentID must
// be set when States contains low_sentiment; Milestone is the visit count
// just reached, or 0.
type DecideInput struct {
	Customer   Customer
	States     []CustomerState
	Now        time.Time
	IncidentID string
	Milestone  int
}

// Decide emits one intent per eligible (kind, window) triple absent from the
// history. Pure: it never writes the send record.
func Decide(in DecideInput, history SendHistory, cfg Config) []DispatchIntent {
	cfg = cfg.Normalize()
	c := in.Customer

	var candidates []DispatchIntent

	for _, state := range in.States {
		switch state {
		case StateInactive:
			if c.LastVisit == nil {
				continue
			}
			candidates = append(candidates, DispatchIntent{
				CustomerID: c.ID,
				Kind:       CampaignWeMissYou,
				WindowKey:  InactivityEpisodeKey(*c.LastVisit, cfg.InactiveDays),
			})
		case StateBirthdayToday:
			candidates = append(candidates, DispatchIntent{
				CustomerID: c.ID,
				Kind:       CampaignBirthday,
				WindowKey:  BirthdayWindowKey(in.Now),
			})
		case StateLowSentiment:
			if in.IncidentID == "" {
				continue
			}
			candidates = append(candidates, DispatchIntent{
				CustomerID: c.ID,
				Kind:       CampaignLowSentiment,
				WindowKey:  IncidentWindowKey(in.IncidentID),
			})
		case StateRecentVisit:
			if c.LastVisit == nil {
				continue
			}
			candidates = append(candidates, DispatchIntent{
				CustomerID: c.ID,
				Kind:       CampaignRecommendation,
				WindowKey:  VisitWindowKey(*c.LastVisit),
			})
		}
	}

	if in.Milestone > 0 {
		candidates = append(candidates, DispatchIntent{
			CustomerID: c.ID,
			Kind:       CampaignMilestone,
			WindowKey:  MilestoneWindowKey(in.Milestone),
		})
	}

	candidates = applyPriorities(candidates, cfg.Priorities)

	var intents []DispatchIntent
	for _, intent := range candidates {
		if history.Sent(intent.CustomerID, intent.Kind, intent.WindowKey) {
			continue
		}
		intents = append(intents, intent)
	}
	return intents
}

// applyPriorities keeps only the highest-priority eligible kind when a
// priority list is configured. Kinds absent from the list never fire while
// a listed kind is eligible.
func applyPriorities(intents []DispatchIntent, priorities []CampaignKind) []DispatchIntent {
	if len(priorities) == 0 || len(intents) <= 1 {
		return intents
	}

	rank := make(map[CampaignKind]int, len(priorities))
	for i, k := range priorities {
		rank[k] = i
	}

	best := -1
	for _, intent := range intents {
		r, ok := rank[intent.Kind]
		if !ok {
			continue
		}
		if best == -1 || r < best {
			best = r
		}
	}
	if best == -1 {
		return intents
	}

	var kept []DispatchIntent
	for _, intent := range intents {
		if r, ok := rank[intent.Kind]; ok && r == best {
			kept = append(kept, intent)
		}
	}
	return kept
}
