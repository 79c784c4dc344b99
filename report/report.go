/*
Package report folds transaction sets into reproducible period sales reports.

PURPOSE:
  Aggregates a store's transactions over a daily, weekly, or monthly period
  into summary statistics with defined rounding and edge-case rules.

CRITICAL INVARIANTS:
  1. DETERMINISTIC: Identical transaction sets and bounds always produce
     identical numeric outputs, regardless of input order
  2. END-EXCLUSIVE: Periods are [start, end) so a transaction at an exact
     boundary is never counted by two adjacent periods
  3. ZERO-SAFE: An empty period is a valid, reportable state - average and
     loyalty percentage are 0, never a division error, never null
  4. VALIDATED: end <= start is rejected before aggregation, not silently
     reported as zero

ROUNDING:
  Average transaction and loyalty percentage round half-up to 2 decimal
  places; revenue is the exact decimal sum.

SEE ALSO:
  - period.go: Period descriptors and boundary calculation
*/
package report

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bobaclub/loyalty-engine/loyalty"
)

// =============================================================================
// SALES REPORT
// =============================================================================

// SalesReport is the canonical summary for one (store, period). The ID is
// deterministic so regeneration overwrites rather than appends.
type SalesReport struct {
	ID                 string          `json:"id"`
	StoreID            loyalty.StoreID `json:"store_id"`
	PeriodType         PeriodType      `json:"period_type"`
	PeriodStart        time.Time       `json:"period_start"`
	PeriodEnd          time.Time       `json:"period_end"`
	GeneratedAt        time.Time       `json:"generated_at"`
	TotalRevenue       decimal.Decimal `json:"total_revenue"`
	TotalTransactions  int             `json:"total_transactions"`
	AverageTransaction decimal.Decimal `json:"average_transaction"`
	LoyaltyPercentage  decimal.Decimal `json:"loyalty_percentage"`
	TopItems           []ItemCount     `json:"top_items,omitempty"`
	PeakHours          []string        `json:"peak_hours,omitempty"`
}

// ItemCount pairs an item name with how many times it sold in the period.
type ItemCount struct {
	Item  string `json:"item"`
	Count int    `json:"count"`
}

// =============================================================================
// AGGREGATE
// =============================================================================

const (
	topItemLimit  = 3
	peakHourLimit = 2
)

// Aggregate filters transactions to [period.Start, period.End) and the given
// store, then folds them into a SalesReport. loyaltyIDs identifies customers
// enrolled in the loyalty program; generatedAt stamps the report and is the
// only input that may differ between otherwise identical runs.
func Aggregate(txs []loyalty.Transaction, period Period, storeID loyalty.StoreID, loyaltyIDs map[loyalty.CustomerID]bool, generatedAt time.Time) (SalesReport, error) {
	if !period.End.After(period.Start) {
		return SalesReport{}, &loyalty.InvalidPeriodError{Start: period.Start, End: period.End}
	}

	revenue := decimal.Zero
	memberRevenue := decimal.Zero
	count := 0
	itemCounts := make(map[string]int)
	hourCounts := make(map[int]int)

	for _, tx := range txs {
		if tx.StoreID != storeID {
			continue
		}
		if tx.Timestamp.Before(period.Start) || !tx.Timestamp.Before(period.End) {
			continue
		}

		revenue = revenue.Add(tx.Amount)
		count++
		if loyaltyIDs[tx.CustomerID] {
			memberRevenue = memberRevenue.Add(tx.Amount)
		}
		for _, item := range tx.Items {
			itemCounts[item]++
		}
		hourCounts[tx.Timestamp.UTC().Hour()]++
	}

	rep := SalesReport{
		ID:                 reportID(storeID, period),
		StoreID:            storeID,
		PeriodType:         period.Type,
		PeriodStart:        period.Start,
		PeriodEnd:          period.End,
		GeneratedAt:        generatedAt,
		TotalRevenue:       revenue,
		TotalTransactions:  count,
		AverageTransaction: decimal.Zero,
		LoyaltyPercentage:  decimal.Zero,
		TopItems:           topItems(itemCounts, topItemLimit),
		PeakHours:          peakHours(hourCounts, peakHourLimit),
	}

	if count > 0 {
		rep.AverageTransaction = revenue.Div(decimal.NewFromInt(int64(count))).Round(2)
	}
	if revenue.IsPositive() {
		rep.LoyaltyPercentage = memberRevenue.Div(revenue).Mul(decimal.NewFromInt(100)).Round(2)
	}

	return rep, nil
}

func reportID(storeID loyalty.StoreID, period Period) string {
	return fmt.Sprintf("rpt-%s-%s-%s", storeID, period.Type, period.Start.UTC().Format("2006-01-02"))
}

// topItems ranks items by count descending, name ascending on ties, so the
// output never depends on map iteration order.
func topItems(counts map[string]int, limit int) []ItemCount {
	if len(counts) == 0 {
		return nil
	}
	items := make([]ItemCount, 0, len(counts))
	for item, n := range counts {
		items = append(items, ItemCount{Item: item, Count: n})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Count != items[j].Count {
			return items[i].Count > items[j].Count
		}
		return items[i].Item < items[j].Item
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items
}

// peakHours ranks hours by transaction count descending, earlier hour on
// ties, rendered as "2pm-3pm" style ranges.
func peakHours(counts map[int]int, limit int) []string {
	if len(counts) == 0 {
		return nil
	}
	type hourCount struct {
		hour  int
		count int
	}
	hours := make([]hourCount, 0, len(counts))
	for h, n := range counts {
		hours = append(hours, hourCount{hour: h, count: n})
	}
	sort.Slice(hours, func(i, j int) bool {
		if hours[i].count != hours[j].count {
			return hours[i].count > hours[j].count
		}
		return hours[i].hour < hours[j].hour
	})
	if len(hours) > limit {
		hours = hours[:limit]
	}

	ranges := make([]string, len(hours))
	for i, hc := range hours {
		ranges[i] = fmt.Sprintf("%s-%s", clockLabel(hc.hour), clockLabel((hc.hour+1)%24))
	}
	return ranges
}

func clockLabel(hour int) string {
	switch {
	case hour == 0:
		return "12am"
	case hour < 12:
		return fmt.Sprintf("%dam", hour)
	case hour == 12:
		return "12pm"
	default:
		return fmt.Sprintf("%dpm", hour-12)
	}
}
