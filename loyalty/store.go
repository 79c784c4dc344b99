/*
store.go - Persistence interfaces for the loyalty engine

PURPOSE:
  Defines the interface between the decision engine and its storage
  collaborator. The engine itself is pure; these contracts spell out the
  isolation it relies on.

KEY INTERFACES:
  CustomerStore:    Customer profiles (upsert; archives, never hard-deletes)
  TransactionStore: Append-only purchase log
  SendHistoryStore: Conditional send-record inserts for dispatch idempotency
  ReportStore:      Canonical report per (store, period); regeneration
                    overwrites, never appends

IDEMPOTENCY CONTRACT:
  SendHistoryStore.Insert must be conditional: it fails with ErrDuplicateSend
  when the (customer, kind, window) triple already exists. Under concurrent
  scheduler runs the duplicate insert is the expected collision signal that
  dispatch should be skipped, not an error to surface.

CONCURRENCY CONTRACT:
  Implementations serialize per-customer writes. The engine's functions are
  pure projections of their inputs, so retry-with-fresh-read after a conflict
  is always correct.

IMPLEMENTATIONS:
  - store/memory.go: In-memory, for tests and dev
  - store/sqlite (top level): Production SQLite
*/
package loyalty

import (
	"context"
	"time"
)

// =============================================================================
// CUSTOMER STORE
// =============================================================================

type CustomerStore interface {
	// GetCustomer returns ErrCustomerNotFound for unknown or archived ids.
	GetCustomer(ctx context.Context, id CustomerID) (Customer, error)

	// UpsertCustomer inserts or replaces a profile. Writes for the same
	// customer id are serialized by the implementation.
	UpsertCustomer(ctx context.Context, c Customer) error

	// ListCustomers returns all non-archived customers for a store.
	ListCustomers(ctx context.Context, storeID StoreID) ([]Customer, error)

	// ArchiveCustomer soft-deletes. Archived customers keep their history.
	ArchiveCustomer(ctx context.Context, id CustomerID) error
}

// =============================================================================
// TRANSACTION STORE - Append-only
// =============================================================================

type TransactionStore interface {
	// AppendTransaction records a purchase. No update or delete exists.
	AppendTransaction(ctx context.Context, tx Transaction) error

	// TransactionsByCustomer returns a customer's purchases, oldest first.
	TransactionsByCustomer(ctx context.Context, id CustomerID) ([]Transaction, error)

	// TransactionsInRange returns a store's purchases in [from, to),
	// end-exclusive to match report period semantics.
	TransactionsInRange(ctx context.Context, storeID StoreID, from, to time.Time) ([]Transaction, error)
}

// =============================================================================
// SEND HISTORY STORE
// =============================================================================

type SendHistoryStore interface {
	SendHistory

	// Insert records a confirmed send. Fails with ErrDuplicateSend when the
	// triple already exists.
	Insert(ctx context.Context, rec SendRecord) error
}

// =============================================================================
// REPORT STORE
// =============================================================================

// ReportRecord is the persisted form of a generated report; the report
// package produces it. Stored keyed by (store, period type, period start).
type ReportRecord struct {
	ID          string
	StoreID     StoreID
	PeriodType  string
	PeriodStart time.Time
	PeriodEnd   time.Time
	GeneratedAt time.Time
	PayloadJSON string
}

type ReportStore interface {
	// SaveReport upserts the canonical report for its (store, period) key.
	SaveReport(ctx context.Context, rec ReportRecord) error

	// GetReport returns ErrReportNotFound when absent.
	GetReport(ctx context.Context, storeID StoreID, periodType string, periodStart time.Time) (ReportRecord, error)
}

// Store aggregates every persistence concern the orchestration layer needs.
type Store interface {
	CustomerStore
	TransactionStore
	SendHistoryStore
	ReportStore
}
