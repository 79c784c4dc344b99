// Package store provides in-memory implementations of the loyalty
// persistence interfaces, for tests and development.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/bobaclub/loyalty-engine/loyalty"
)

// =============================================================================
// MEMORY STORE
// =============================================================================

// Memory implements loyalty.Store with mutex-guarded maps. Writes for the
// same customer serialize on the store-wide lock, which satisfies the
// per-customer isolation contract trivially.
type Memory struct {
	mu           sync.RWMutex
	customers    map[loyalty.CustomerID]loyalty.Customer
	transactions []loyalty.Transaction
	sends        map[string]loyalty.SendRecord
	reports      map[string]loyalty.ReportRecord
}

func NewMemory() *Memory {
	return &Memory{
		customers: make(map[loyalty.CustomerID]loyalty.Customer),
		sends:     make(map[string]loyalty.SendRecord),
		reports:   make(map[string]loyalty.ReportRecord),
	}
}

var _ loyalty.Store = (*Memory)(nil)

// =============================================================================
// CUSTOMERS
// =============================================================================

func (m *Memory) GetCustomer(_ context.Context, id loyalty.CustomerID) (loyalty.Customer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.customers[id]
	if !ok || c.Archived {
		return loyalty.Customer{}, loyalty.ErrCustomerNotFound
	}
	return c, nil
}

func (m *Memory) UpsertCustomer(_ context.Context, c loyalty.Customer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.customers[c.ID] = c
	return nil
}

func (m *Memory) ListCustomers(_ context.Context, storeID loyalty.StoreID) ([]loyalty.Customer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []loyalty.Customer
	for _, c := range m.customers {
		if c.StoreID == storeID && !c.Archived {
			result = append(result, c)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *Memory) ArchiveCustomer(_ context.Context, id loyalty.CustomerID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.customers[id]
	if !ok {
		return loyalty.ErrCustomerNotFound
	}
	c.Archived = true
	m.customers[id] = c
	return nil
}

// =============================================================================
// TRANSACTIONS - Append-only
// =============================================================================

func (m *Memory) AppendTransaction(_ context.Context, tx loyalty.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transactions = append(m.transactions, tx)
	return nil
}

func (m *Memory) TransactionsByCustomer(_ context.Context, id loyalty.CustomerID) ([]loyalty.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []loyalty.Transaction
	for _, tx := range m.transactions {
		if tx.CustomerID == id {
			result = append(result, tx)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Timestamp.Before(result[j].Timestamp) })
	return result, nil
}

func (m *Memory) TransactionsInRange(_ context.Context, storeID loyalty.StoreID, from, to time.Time) ([]loyalty.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []loyalty.Transaction
	for _, tx := range m.transactions {
		if tx.StoreID != storeID {
			continue
		}
		// End-exclusive, matching report period semantics.
		if !tx.Timestamp.Before(from) && tx.Timestamp.Before(to) {
			result = append(result, tx)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Timestamp.Before(result[j].Timestamp) })
	return result, nil
}

// =============================================================================
// SEND HISTORY - Conditional inserts
// =============================================================================

func (m *Memory) Sent(id loyalty.CustomerID, kind loyalty.CampaignKind, window string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.sends[sendKey(id, kind, window)]
	return ok
}

func (m *Memory) Insert(_ context.Context, rec loyalty.SendRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := sendKey(rec.CustomerID, rec.Kind, rec.WindowKey)
	if _, ok := m.sends[k]; ok {
		return &loyalty.DuplicateSendError{CustomerID: rec.CustomerID, Kind: rec.Kind, WindowKey: rec.WindowKey}
	}
	m.sends[k] = rec
	return nil
}

func sendKey(id loyalty.CustomerID, kind loyalty.CampaignKind, window string) string {
	return string(id) + "|" + string(kind) + "|" + window
}

// =============================================================================
// REPORTS - Upsert on (store, period)
// =============================================================================

func (m *Memory) SaveReport(_ context.Context, rec loyalty.ReportRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports[reportKey(rec.StoreID, rec.PeriodType, rec.PeriodStart)] = rec
	return nil
}

func (m *Memory) GetReport(_ context.Context, storeID loyalty.StoreID, periodType string, periodStart time.Time) (loyalty.ReportRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.reports[reportKey(storeID, periodType, periodStart)]
	if !ok {
		return loyalty.ReportRecord{}, loyalty.ErrReportNotFound
	}
	return rec, nil
}

func reportKey(storeID loyalty.StoreID, periodType string, start time.Time) string {
	return string(storeID) + "|" + periodType + "|" + start.UTC().Format(time.RFC3339)
}
