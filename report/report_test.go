package report_test

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobaclub/loyalty-engine/loyalty"
	"github.com/bobaclub/loyalty-engine/report"
)

// =============================================================================
// TEST SETUP
// =============================================================================

const testStore = loyalty.StoreID("STORE-001")

func tx(id, customer, amount string, ts time.Time, items ...string) loyalty.Transaction {
	return loyalty.Transaction{
		ID:         loyalty.TransactionID(id),
		CustomerID: loyalty.CustomerID(customer),
		StoreID:    testStore,
		Amount:     loyalty.ParseMoneyOrZero(amount),
		Items:      items,
		Timestamp:  ts,
	}
}

func dayPeriod(t *testing.T, at time.Time) report.Period {
	t.Helper()
	p, err := report.PeriodFor(report.PeriodDaily, at)
	require.NoError(t, err)
	return p
}

// =============================================================================
// EDGE CASES
// =============================================================================

func TestAggregate_EmptyPeriod_AllZeros(t *testing.T) {
	// GIVEN: No transactions in the period
	// WHEN: Aggregated
	// THEN: A valid report with zeros, not an error

	now := time.Date(2025, time.June, 5, 12, 0, 0, 0, time.UTC)
	rep, err := report.Aggregate(nil, dayPeriod(t, now), testStore, nil, now)
	require.NoError(t, err)

	assert.True(t, rep.TotalRevenue.IsZero())
	assert.Equal(t, 0, rep.TotalTransactions)
	assert.True(t, rep.AverageTransaction.IsZero())
	assert.True(t, rep.LoyaltyPercentage.IsZero())
	assert.Empty(t, rep.TopItems)
	assert.Empty(t, rep.PeakHours)
}

func TestAggregate_InvalidPeriod_Rejected(t *testing.T) {
	// GIVEN: A period whose end is not after its start
	// WHEN: Aggregated
	// THEN: InvalidPeriodError, classified as a client error

	now := time.Date(2025, time.June, 5, 12, 0, 0, 0, time.UTC)
	bad := report.Period{Type: report.PeriodDaily, Start: now, End: now}

	_, err := report.Aggregate(nil, bad, testStore, nil, now)
	require.Error(t, err)
	assert.ErrorIs(t, err, loyalty.ErrInvalidPeriod)
	assert.True(t, loyalty.IsClientError(err))
}

func TestAggregate_EndExclusiveBoundary(t *testing.T) {
	// GIVEN: Transactions at the exact start and exact end of the period
	// WHEN: Aggregated
	// THEN: The start boundary is counted, the end boundary is not

	day := time.Date(2025, time.June, 5, 0, 0, 0, 0, time.UTC)
	p := dayPeriod(t, day)

	txs := []loyalty.Transaction{
		tx("t1", "cust-1", "10.00", p.Start),                    // inclusive
		tx("t2", "cust-1", "10.00", p.End),                      // exclusive: next period
		tx("t3", "cust-1", "10.00", p.End.Add(-time.Nanosecond)), // last instant
	}

	rep, err := report.Aggregate(txs, p, testStore, nil, day)
	require.NoError(t, err)
	assert.Equal(t, 2, rep.TotalTransactions)
	assert.True(t, rep.TotalRevenue.Equal(loyalty.ParseMoneyOrZero("20.00")))
}

func TestAggregate_FiltersOtherStores(t *testing.T) {
	// GIVEN: A transaction from another store inside the period
	// WHEN: Aggregated for testStore
	// THEN: It is excluded

	day := time.Date(2025, time.June, 5, 0, 0, 0, 0, time.UTC)
	p := dayPeriod(t, day)

	other := tx("t1", "cust-1", "99.00", day.Add(2*time.Hour))
	other.StoreID = "STORE-002"
	mine := tx("t2", "cust-1", "8.00", day.Add(3*time.Hour))

	rep, err := report.Aggregate([]loyalty.Transaction{other, mine}, p, testStore, nil, day)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.TotalTransactions)
	assert.True(t, rep.TotalRevenue.Equal(loyalty.ParseMoneyOrZero("8.00")))
}

// =============================================================================
// NUMERIC RULES
// =============================================================================

func TestAggregate_AverageAndLoyaltyPercentage(t *testing.T) {
	// GIVEN: Three transactions, two from loyalty members
	// WHEN: Aggregated
	// THEN: Average is Round(sum/count, 2); loyalty % is member revenue share

	day := time.Date(2025, time.June, 5, 0, 0, 0, 0, time.UTC)
	p := dayPeriod(t, day)

	txs := []loyalty.Transaction{
		tx("t1", "member-1", "10.00", day.Add(10*time.Hour)),
		tx("t2", "member-2", "20.00", day.Add(11*time.Hour)),
		tx("t3", "walk-in", "10.00", day.Add(12*time.Hour)),
	}
	members := map[loyalty.CustomerID]bool{"member-1": true, "member-2": true}

	rep, err := report.Aggregate(txs, p, testStore, members, day)
	require.NoError(t, err)

	assert.True(t, rep.TotalRevenue.Equal(loyalty.ParseMoneyOrZero("40.00")))
	assert.True(t, rep.AverageTransaction.Equal(loyalty.ParseMoneyOrZero("13.33")), "40/3 rounds to 13.33, got %s", rep.AverageTransaction)
	assert.True(t, rep.LoyaltyPercentage.Equal(loyalty.ParseMoneyOrZero("75")), "30/40 of revenue is member spend, got %s", rep.LoyaltyPercentage)
}

func TestAggregate_TopItemsAndPeakHours_Deterministic(t *testing.T) {
	// GIVEN: Item and hour counts with ties
	// WHEN: Aggregated
	// THEN: Ties break by name ascending / earlier hour, capped at the limits

	day := time.Date(2025, time.June, 5, 0, 0, 0, 0, time.UTC)
	p := dayPeriod(t, day)

	txs := []loyalty.Transaction{
		tx("t1", "c1", "5.00", day.Add(14*time.Hour), "Taro Milk Tea", "Brown Sugar Boba"),
		tx("t2", "c2", "5.00", day.Add(14*time.Hour+30*time.Minute), "Taro Milk Tea"),
		tx("t3", "c3", "5.00", day.Add(15*time.Hour), "Matcha Latte", "Brown Sugar Boba"),
		tx("t4", "c4", "5.00", day.Add(9*time.Hour), "Jasmine Green Tea"),
	}

	rep, err := report.Aggregate(txs, p, testStore, nil, day)
	require.NoError(t, err)

	// Taro=2, Brown Sugar=2, Matcha=1, Jasmine=1; name breaks both ties.
	require.Len(t, rep.TopItems, 3)
	assert.Equal(t, report.ItemCount{Item: "Brown Sugar Boba", Count: 2}, rep.TopItems[0])
	assert.Equal(t, report.ItemCount{Item: "Taro Milk Tea", Count: 2}, rep.TopItems[1])
	assert.Equal(t, report.ItemCount{Item: "Jasmine Green Tea", Count: 1}, rep.TopItems[2])

	// Hour 14 has 2 transactions; 9 and 15 tie at 1, earlier hour wins.
	assert.Equal(t, []string{"2pm-3pm", "9am-10am"}, rep.PeakHours)
}

func TestAggregate_OrderIndependent(t *testing.T) {
	// GIVEN: The same transaction set in shuffled orders
	// WHEN: Aggregated repeatedly
	// THEN: Every numeric output and ranking is identical

	day := time.Date(2025, time.June, 5, 0, 0, 0, 0, time.UTC)
	p := dayPeriod(t, day)

	txs := []loyalty.Transaction{
		tx("t1", "c1", "12.50", day.Add(10*time.Hour), "Taro Milk Tea"),
		tx("t2", "c2", "7.25", day.Add(14*time.Hour), "Matcha Latte"),
		tx("t3", "c3", "30.00", day.Add(14*time.Hour+5*time.Minute), "Taro Milk Tea"),
		tx("t4", "c1", "4.75", day.Add(18*time.Hour), "Jasmine Green Tea"),
	}
	members := map[loyalty.CustomerID]bool{"c1": true}

	base, err := report.Aggregate(txs, p, testStore, members, day)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 10; i++ {
		shuffled := make([]loyalty.Transaction, len(txs))
		copy(shuffled, txs)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

		rep, err := report.Aggregate(shuffled, p, testStore, members, day)
		require.NoError(t, err)
		assert.Equal(t, base, rep)
	}
}

// =============================================================================
// PERIOD BOUNDS
// =============================================================================

func TestPeriodFor_Bounds(t *testing.T) {
	// GIVEN: A Thursday afternoon instant
	// WHEN: Daily, weekly, and monthly periods are derived
	// THEN: Bounds are UTC midnight; weeks start Monday; all half-open

	at := time.Date(2025, time.June, 5, 15, 30, 0, 0, time.UTC) // Thursday

	daily, err := report.PeriodFor(report.PeriodDaily, at)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, time.June, 5, 0, 0, 0, 0, time.UTC), daily.Start)
	assert.Equal(t, time.Date(2025, time.June, 6, 0, 0, 0, 0, time.UTC), daily.End)

	weekly, err := report.PeriodFor(report.PeriodWeekly, at)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, time.June, 2, 0, 0, 0, 0, time.UTC), weekly.Start, "week starts Monday")
	assert.Equal(t, time.Date(2025, time.June, 9, 0, 0, 0, 0, time.UTC), weekly.End)

	monthly, err := report.PeriodFor(report.PeriodMonthly, at)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC), monthly.Start)
	assert.Equal(t, time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC), monthly.End)

	_, err = report.PeriodFor("quarterly", at)
	assert.Error(t, err)
}

func TestCustomPeriod_Validation(t *testing.T) {
	// GIVEN: Custom bounds with end before start
	// WHEN: Constructed
	// THEN: Rejected with ErrInvalidPeriod

	start := time.Date(2025, time.June, 5, 0, 0, 0, 0, time.UTC)
	_, err := report.CustomPeriod(report.PeriodDaily, start, start.AddDate(0, 0, -1))
	assert.ErrorIs(t, err, loyalty.ErrInvalidPeriod)

	p, err := report.CustomPeriod(report.PeriodWeekly, start, start.AddDate(0, 0, 7))
	require.NoError(t, err)
	assert.Equal(t, report.PeriodWeekly, p.Type)
}
