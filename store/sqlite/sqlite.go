/*
Package sqlite provides a SQLite-backed implementation of the loyalty
storage interfaces.

PURPOSE:
  Implements loyalty.Store (customers, transactions, send history, reports)
  using SQLite. In production, the same patterns apply to PostgreSQL - only
  minor SQL dialect differences.

KEY TABLES:
  customers:      Loyalty profiles (soft-archived, never deleted)
  transactions:   Append-only purchase log
  campaign_sends: Idempotency ledger for dispatch; the PRIMARY KEY on
                  (customer_id, kind, window_key) IS the at-most-once
                  guarantee - a duplicate insert surfaces ErrDuplicateSend
  sales_reports:  One canonical report per (store, period type, start);
                  regeneration upserts

APPEND-ONLY ENFORCEMENT:
  No UPDATE or DELETE statements exist for the transactions table.

CONCURRENCY:
  Uses sync.RWMutex for thread safety, which also serializes per-customer
  writes. WAL mode keeps readers unblocked.

USAGE:
  store, err := sqlite.New("./data/loyalty.db")  // or ":memory:"
  if err != nil { ... }
  defer store.Close()

SEE ALSO:
  - loyalty/store.go: Interface contracts
  - loyalty/store/memory.go: In-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/bobaclub/loyalty-engine/loyalty"
)

// Store implements loyalty.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ loyalty.Store = (*Store)(nil)

// New opens (or creates) the database and migrates the schema.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS customers (
		id TEXT PRIMARY KEY,
		store_id TEXT NOT NULL,
		name TEXT NOT NULL,
		phone TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		favorite_product TEXT NOT NULL DEFAULT '',
		signup_date TEXT NOT NULL,
		total_visits INTEGER NOT NULL DEFAULT 0,
		total_spent TEXT NOT NULL DEFAULT '0',
		loyalty_points INTEGER NOT NULL DEFAULT 0,
		last_visit TEXT,
		birth_date TEXT,
		archived INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_customers_store
		ON customers(store_id) WHERE archived = 0;

	-- Append-only purchase log. No UPDATE, no DELETE.
	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		customer_id TEXT NOT NULL,
		store_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		items_json TEXT NOT NULL DEFAULT '[]',
		ts TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_customer
		ON transactions(customer_id, ts);
	CREATE INDEX IF NOT EXISTS idx_transactions_store_ts
		ON transactions(store_id, ts);

	-- Dispatch idempotency ledger. The primary key IS the at-most-once
	-- guarantee per (customer, campaign, window).
	CREATE TABLE IF NOT EXISTS campaign_sends (
		customer_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		window_key TEXT NOT NULL,
		sent_at TEXT NOT NULL,
		PRIMARY KEY (customer_id, kind, window_key)
	);

	-- One canonical report per (store, period type, period start).
	CREATE TABLE IF NOT EXISTS sales_reports (
		id TEXT NOT NULL,
		store_id TEXT NOT NULL,
		period_type TEXT NOT NULL,
		period_start TEXT NOT NULL,
		period_end TEXT NOT NULL,
		generated_at TEXT NOT NULL,
		payload_json TEXT NOT NULL,
		PRIMARY KEY (store_id, period_type, period_start)
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// CUSTOMERS
// =============================================================================

func (s *Store) GetCustomer(ctx context.Context, id loyalty.CustomerID) (loyalty.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, store_id, name, phone, email, favorite_product, signup_date,
		       total_visits, total_spent, loyalty_points, last_visit, birth_date, archived
		FROM customers WHERE id = ? AND archived = 0
	`, id)

	c, err := scanCustomer(row)
	if err == sql.ErrNoRows {
		return loyalty.Customer{}, loyalty.ErrCustomerNotFound
	}
	if err != nil {
		return loyalty.Customer{}, fmt.Errorf("failed to get customer: %w", err)
	}
	return c, nil
}

func (s *Store) UpsertCustomer(ctx context.Context, c loyalty.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO customers
		(id, store_id, name, phone, email, favorite_product, signup_date,
		 total_visits, total_spent, loyalty_points, last_visit, birth_date, archived)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			store_id = excluded.store_id,
			name = excluded.name,
			phone = excluded.phone,
			email = excluded.email,
			favorite_product = excluded.favorite_product,
			signup_date = excluded.signup_date,
			total_visits = excluded.total_visits,
			total_spent = excluded.total_spent,
			loyalty_points = excluded.loyalty_points,
			last_visit = excluded.last_visit,
			birth_date = excluded.birth_date,
			archived = excluded.archived
	`,
		c.ID, c.StoreID, c.Name, c.Phone, c.Email, c.FavoriteProduct,
		c.SignupDate.UTC().Format(time.RFC3339),
		c.TotalVisits, c.TotalSpent.String(), c.LoyaltyPoints,
		nullTime(c.LastVisit), nullTime(c.BirthDate), boolToInt(c.Archived),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert customer: %w", err)
	}
	return nil
}

func (s *Store) ListCustomers(ctx context.Context, storeID loyalty.StoreID) ([]loyalty.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, store_id, name, phone, email, favorite_product, signup_date,
		       total_visits, total_spent, loyalty_points, last_visit, birth_date, archived
		FROM customers WHERE store_id = ? AND archived = 0
		ORDER BY id
	`, storeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}
	defer rows.Close()

	var result []loyalty.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

func (s *Store) ArchiveCustomer(ctx context.Context, id loyalty.CustomerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `UPDATE customers SET archived = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to archive customer: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return loyalty.ErrCustomerNotFound
	}
	return nil
}

// =============================================================================
// TRANSACTIONS - Append-only
// =============================================================================

func (s *Store) AppendTransaction(ctx context.Context, tx loyalty.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	itemsJSON, _ := json.Marshal(tx.Items)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions (id, customer_id, store_id, amount, items_json, ts)
		VALUES (?, ?, ?, ?, ?, ?)
	`, tx.ID, tx.CustomerID, tx.StoreID, tx.Amount.String(), string(itemsJSON),
		tx.Timestamp.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to append transaction: %w", err)
	}
	return nil
}

func (s *Store) TransactionsByCustomer(ctx context.Context, id loyalty.CustomerID) ([]loyalty.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryTransactions(ctx, `
		SELECT id, customer_id, store_id, amount, items_json, ts
		FROM transactions WHERE customer_id = ? ORDER BY ts ASC
	`, id)
}

func (s *Store) TransactionsInRange(ctx context.Context, storeID loyalty.StoreID, from, to time.Time) ([]loyalty.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// End-exclusive to match report period semantics.
	return s.queryTransactions(ctx, `
		SELECT id, customer_id, store_id, amount, items_json, ts
		FROM transactions
		WHERE store_id = ? AND ts >= ? AND ts < ?
		ORDER BY ts ASC
	`, storeID, from.UTC().Format(time.RFC3339), to.UTC().Format(time.RFC3339))
}

func (s *Store) queryTransactions(ctx context.Context, query string, args ...any) ([]loyalty.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var result []loyalty.Transaction
	for rows.Next() {
		var tx loyalty.Transaction
		var amount, itemsJSON, ts string
		if err := rows.Scan(&tx.ID, &tx.CustomerID, &tx.StoreID, &amount, &itemsJSON, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		tx.Amount = loyalty.ParseMoneyOrZero(amount)
		if err := json.Unmarshal([]byte(itemsJSON), &tx.Items); err != nil {
			tx.Items = nil
		}
		tx.Timestamp, _ = time.Parse(time.RFC3339, ts)
		result = append(result, tx)
	}
	return result, rows.Err()
}

// =============================================================================
// SEND HISTORY - Conditional inserts
// =============================================================================

func (s *Store) Sent(id loyalty.CustomerID, kind loyalty.CampaignKind, window string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM campaign_sends
		WHERE customer_id = ? AND kind = ? AND window_key = ?
	`, id, kind, window).Scan(&count)
	// On a read failure, report not-sent; the conditional Insert still
	// guarantees at-most-once.
	return err == nil && count > 0
}

func (s *Store) Insert(ctx context.Context, rec loyalty.SendRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO campaign_sends (customer_id, kind, window_key, sent_at)
		VALUES (?, ?, ?, ?)
	`, rec.CustomerID, rec.Kind, rec.WindowKey, rec.SentAt.UTC().Format(time.RFC3339))
	if err != nil {
		if isUniqueConstraintError(err) {
			return &loyalty.DuplicateSendError{CustomerID: rec.CustomerID, Kind: rec.Kind, WindowKey: rec.WindowKey}
		}
		return fmt.Errorf("failed to insert send record: %w", err)
	}
	return nil
}

// =============================================================================
// REPORTS - Upsert on (store, period)
// =============================================================================

func (s *Store) SaveReport(ctx context.Context, rec loyalty.ReportRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sales_reports
		(id, store_id, period_type, period_start, period_end, generated_at, payload_json)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(store_id, period_type, period_start) DO UPDATE SET
			id = excluded.id,
			period_end = excluded.period_end,
			generated_at = excluded.generated_at,
			payload_json = excluded.payload_json
	`, rec.ID, rec.StoreID, rec.PeriodType,
		rec.PeriodStart.UTC().Format(time.RFC3339),
		rec.PeriodEnd.UTC().Format(time.RFC3339),
		rec.GeneratedAt.UTC().Format(time.RFC3339),
		rec.PayloadJSON)
	if err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}

func (s *Store) GetReport(ctx context.Context, storeID loyalty.StoreID, periodType string, periodStart time.Time) (loyalty.ReportRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rec loyalty.ReportRecord
	var start, end, generated string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, store_id, period_type, period_start, period_end, generated_at, payload_json
		FROM sales_reports
		WHERE store_id = ? AND period_type = ? AND period_start = ?
	`, storeID, periodType, periodStart.UTC().Format(time.RFC3339)).
		Scan(&rec.ID, &rec.StoreID, &rec.PeriodType, &start, &end, &generated, &rec.PayloadJSON)
	if err == sql.ErrNoRows {
		return loyalty.ReportRecord{}, loyalty.ErrReportNotFound
	}
	if err != nil {
		return loyalty.ReportRecord{}, fmt.Errorf("failed to get report: %w", err)
	}
	rec.PeriodStart, _ = time.Parse(time.RFC3339, start)
	rec.PeriodEnd, _ = time.Parse(time.RFC3339, end)
	rec.GeneratedAt, _ = time.Parse(time.RFC3339, generated)
	return rec, nil
}

// =============================================================================
// SCAN HELPERS
// =============================================================================

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCustomer(row rowScanner) (loyalty.Customer, error) {
	var c loyalty.Customer
	var signup, spent string
	var lastVisit, birthDate sql.NullString
	var archived int

	err := row.Scan(&c.ID, &c.StoreID, &c.Name, &c.Phone, &c.Email, &c.FavoriteProduct,
		&signup, &c.TotalVisits, &spent, &c.LoyaltyPoints, &lastVisit, &birthDate, &archived)
	if err != nil {
		return loyalty.Customer{}, err
	}

	c.SignupDate, _ = time.Parse(time.RFC3339, signup)
	c.TotalSpent = loyalty.ParseMoneyOrZero(spent)
	c.Archived = archived != 0
	if lastVisit.Valid {
		t, err := time.Parse(time.RFC3339, lastVisit.String)
		if err == nil {
			c.LastVisit = &t
		}
	}
	if birthDate.Valid {
		t, err := time.Parse(time.RFC3339, birthDate.String)
		if err == nil {
			c.BirthDate = &t
		}
	}
	return c, nil
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339), Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
