/*
ledger.go - Points accounting from purchase transactions

PURPOSE:
  Converts spend into loyalty points and maintains the running profile
  (visits, spend, points, last visit). Pure functions over explicit inputs:
  persistence is the caller's responsibility, so a conflicted write can
  always be retried with a fresh read.

CRITICAL INVARIANTS:
  1. MONOTONIC: points, visits, and spend never decrease
  2. FLOOR: fractional currency never yields fractional points; points
     earned = floor(amount x rate), never rounded up
  3. MAX TIMESTAMP: last visit reflects the latest timestamp seen, not the
     most recently processed transaction (events may arrive out of order)
  4. ONE-TIME BONUS: the welcome bonus is granted at creation only, detected
     by absence of prior history, never by a mutable flag

EXAMPLE:
  A $12.50 purchase at 1 point per dollar earns 12 points, not 13.

SEE ALSO:
  - classify.go: Reads the updated profile
  - store/: Persistence implementations
*/
package loyalty

import (
	"strings"
	"time"
)

// =============================================================================
// CUSTOMER CREATION
// =============================================================================

// NewCustomer builds a loyalty profile for a fresh signup and grants the
// one-time welcome bonus. hadHistory must report whether any transaction
// already exists for this customer; replaying a signup event against a
// customer with history must not re-grant the bonus.
func NewCustomer(id CustomerID, storeID StoreID, name, phone, email, favorite string, birthDate *time.Time, signup time.Time, hadHistory bool, cfg Config) (Customer, error) {
	cfg = cfg.Normalize()

	if strings.TrimSpace(name) == "" {
		return Customer{}, &ValidationError{Field: "name", Message: "required"}
	}
	if phone == "" && email == "" {
		return Customer{}, &ValidationError{Field: "contact", Message: "at least one of phone or email required"}
	}

	c := Customer{
		ID:              id,
		StoreID:         storeID,
		Name:            name,
		Phone:           phone,
		Email:           email,
		FavoriteProduct: favorite,
		BirthDate:       birthDate,
		SignupDate:      signup,
	}
	if !hadHistory {
		c.LoyaltyPoints = cfg.WelcomeBonusPoints
	}
	return c, nil
}

// =============================================================================
// APPLY TRANSACTION
// =============================================================================

// ApplyTransaction folds one purchase into the customer profile and returns
// the updated projection plus the points earned. No side effects: the caller
// persists the result, and a retry with a fresh read is always correct.
func ApplyTransaction(c Customer, tx Transaction, cfg Config) (Customer, int64, error) {
	cfg = cfg.Normalize()

	if tx.CustomerID != c.ID {
		return c, 0, &ValidationError{Field: "customer_id", Message: "transaction belongs to a different customer"}
	}
	if tx.Amount.IsNegative() {
		return c, 0, &ValidationError{Field: "amount", Message: "must not be negative"}
	}
	if tx.Timestamp.IsZero() {
		return c, 0, &ValidationError{Field: "timestamp", Message: "required"}
	}

	earned := tx.Amount.Mul(cfg.PointsPerCurrencyUnit).Floor().IntPart()

	c.TotalVisits++
	c.TotalSpent = c.TotalSpent.Add(tx.Amount)
	c.LoyaltyPoints += earned

	// Out-of-order arrivals: keep the max timestamp, not the latest write.
	if c.LastVisit == nil || tx.Timestamp.After(*c.LastVisit) {
		ts := tx.Timestamp
		c.LastVisit = &ts
	}

	return c, earned, nil
}

// =============================================================================
// MILESTONES
// =============================================================================

// MilestoneReached reports whether the customer's visit count sits exactly on
// a configured milestone. Checked after ApplyTransaction; the dispatch engine
// dedupes on the visit count so a milestone fires once.
func MilestoneReached(c Customer, cfg Config) (int, bool) {
	cfg = cfg.Normalize()
	for _, m := range cfg.MilestoneVisits {
		if c.TotalVisits == m {
			return m, true
		}
	}
	return 0, false
}
