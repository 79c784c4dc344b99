/*
errors.go - Centralized error types for the loyalty engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers classify errors with errors.Is and the helpers below.

ERROR CATEGORIES:
  1. Validation errors - Malformed customer/transaction input; always
     surfaced, never coerced
  2. Conflict errors - Duplicate send-record insert; an expected control-flow
     signal meaning "skip this dispatch", not a failure
  3. Dependency errors - Sentiment/content/delivery collaborator failures;
     recoverable via retry, never allowed to corrupt the points ledger
  4. Computation errors - Inconsistent report bounds, rejected up front

USAGE:
    if errors.Is(err, loyalty.ErrDuplicateSend) {
        // Already handled this window, skip.
    }
*/
package loyalty

import (
	"errors"
	"fmt"
	"time"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrDuplicateSend is returned when a send record already exists for a
	// (customer, campaign, window) triple. Expected under concurrent
	// scheduler runs; treat as "skip", not as failure.
	ErrDuplicateSend = errors.New("campaign already sent for this window")

	// ErrCustomerNotFound is returned when a referenced customer doesn't exist.
	ErrCustomerNotFound = errors.New("customer not found")

	// ErrReportNotFound is returned when no report exists for a store+period.
	ErrReportNotFound = errors.New("report not found")

	// ErrInvalidPeriod is returned when a report period is malformed
	// (end not after start).
	ErrInvalidPeriod = errors.New("invalid period: end not after start")

	// ErrValidation is the root of all input validation failures.
	ErrValidation = errors.New("validation failed")

	// ErrDependency is the root of collaborator (sentiment, content,
	// delivery) failures.
	ErrDependency = errors.New("collaborator unavailable")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError describes a malformed input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// DuplicateSendError identifies the exact triple that collided.
type DuplicateSendError struct {
	CustomerID CustomerID
	Kind       CampaignKind
	WindowKey  string
}

func (e *DuplicateSendError) Error() string {
	return fmt.Sprintf("already sent %s to %s in window %s", e.Kind, e.CustomerID, e.WindowKey)
}

func (e *DuplicateSendError) Unwrap() error { return ErrDuplicateSend }

// DependencyError wraps a collaborator failure with its origin.
type DependencyError struct {
	Collaborator string // "sentiment", "content", "delivery"
	Err          error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("%s collaborator: %v", e.Collaborator, e.Err)
}

func (e *DependencyError) Unwrap() error { return ErrDependency }

// InvalidPeriodError reports the rejected report bounds.
type InvalidPeriodError struct {
	Start time.Time
	End   time.Time
}

func (e *InvalidPeriodError) Error() string {
	return fmt.Sprintf("invalid period: start %s, end %s", e.Start.Format(time.RFC3339), e.End.Format(time.RFC3339))
}

func (e *InvalidPeriodError) Unwrap() error { return ErrInvalidPeriod }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsConflict reports whether the error is the expected duplicate-send
// collision signal.
func IsConflict(err error) bool {
	return errors.Is(err, ErrDuplicateSend)
}

// IsClientError reports whether the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrInvalidPeriod)
}

// IsNotFound reports whether the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrCustomerNotFound) || errors.Is(err, ErrReportNotFound)
}

// IsRetryable reports whether the error might succeed on a later attempt.
// Dependency failures are retried on the next scheduled run.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrDependency)
}
