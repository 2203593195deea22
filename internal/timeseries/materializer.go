// Package timeseries maintains the customer x calendar-month spend
// table and the month-over-month trend view derived from it.
package timeseries

import (
	"sort"
	"time"

	"github.com/jpurrutia/customer-analytics/internal/domain"
)

// Materializer rebuilds monthly spend rows. On incremental runs only
// months inside the trailing lookback window (measured from the
// high-water mark, the maximum month already materialized) are
// recomputed and upserted; older months are left exactly as they are.
type Materializer struct {
	// LookbackMonths is how many months before the high-water month
	// are reprocessed to absorb late-arriving transactions.
	LookbackMonths int
}

// Plan is the outcome of planning one materialization: the rows to
// upsert plus bookkeeping for the quality report.
type Plan struct {
	Rows        []domain.MonthlySpend
	WindowStart time.Time
	// FullRebuild is set when every month was recomputed, either
	// because a full run was requested or because the target table
	// was empty (first-ever run).
	FullRebuild bool
	// LateIgnoredMonths counts months older than the window that
	// received transactions after they were last materialized. Those
	// months are intentionally left stale until an operator triggers
	// a full rebuild.
	LateIgnoredMonths int64
}

// BuildFull aggregates every approved transaction into monthly rows.
func (m Materializer) BuildFull(facts []domain.Transaction, materializedAt time.Time) Plan {
	return Plan{
		Rows:        buildMonths(facts, time.Time{}, materializedAt),
		FullRebuild: true,
	}
}

// BuildIncremental recomputes only months at or after the window
// start. An empty target table makes the incremental path behave as a
// full run implicitly.
func (m Materializer) BuildIncremental(facts []domain.Transaction, existing []domain.MonthlySpend, materializedAt time.Time) Plan {
	if len(existing) == 0 {
		return m.BuildFull(facts, materializedAt)
	}

	var highWater time.Time
	lastMaterialized := make(map[monthKey]time.Time, len(existing))
	for _, row := range existing {
		month := row.Month.UTC()
		if month.After(highWater) {
			highWater = month
		}
		lastMaterialized[monthKey{row.CustomerID, month}] = row.MaterializedAt
	}
	windowStart := highWater.AddDate(0, -m.LookbackMonths, 0)

	plan := Plan{
		Rows:        buildMonths(facts, windowStart, materializedAt),
		WindowStart: windowStart,
	}

	// Count late arrivals the window cannot absorb: transactions for
	// months before the window that landed after that month's row was
	// last written.
	staleMonths := make(map[monthKey]bool)
	for _, tx := range facts {
		if !tx.Approved() {
			continue
		}
		month := tx.Month()
		if !month.Before(windowStart) {
			continue
		}
		key := monthKey{tx.CustomerID, month}
		writtenAt, ok := lastMaterialized[key]
		if !ok || tx.IngestedAt.After(writtenAt) {
			staleMonths[key] = true
		}
	}
	plan.LateIgnoredMonths = int64(len(staleMonths))
	return plan
}

type monthKey struct {
	customerID string
	month      time.Time
}

// buildMonths is the shared grouped reduction. A zero windowStart
// means no lower bound. Output is ordered by (customer_id, month) so
// repeated runs produce identical row sets.
func buildMonths(facts []domain.Transaction, windowStart, materializedAt time.Time) []domain.MonthlySpend {
	groups := make(map[monthKey]*domain.MonthlySpend)
	for _, tx := range facts {
		if !tx.Approved() {
			continue
		}
		month := tx.Month()
		if !windowStart.IsZero() && month.Before(windowStart) {
			continue
		}
		key := monthKey{tx.CustomerID, month}
		row, ok := groups[key]
		if !ok {
			row = &domain.MonthlySpend{
				CustomerID:       tx.CustomerID,
				Month:            month,
				FirstTransaction: tx.Timestamp,
				LastTransaction:  tx.Timestamp,
				MaterializedAt:   materializedAt,
			}
			groups[key] = row
		}
		row.TotalSpend += tx.Amount
		row.TransactionCount++
		if tx.Timestamp.Before(row.FirstTransaction) {
			row.FirstTransaction = tx.Timestamp
		}
		if tx.Timestamp.After(row.LastTransaction) {
			row.LastTransaction = tx.Timestamp
		}
	}

	out := make([]domain.MonthlySpend, 0, len(groups))
	for _, row := range groups {
		row.AvgTransactionValue = row.TotalSpend / float64(row.TransactionCount)
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CustomerID != out[j].CustomerID {
			return out[i].CustomerID < out[j].CustomerID
		}
		return out[i].Month.Before(out[j].Month)
	})
	return out
}

// MergeMonthly overlays upserted rows onto the existing table and
// returns the resulting full state, as the committed warehouse would
// see it. Used to feed the trend pass and the grain check without
// re-reading the store mid-run.
func MergeMonthly(existing, upserts []domain.MonthlySpend) []domain.MonthlySpend {
	merged := make(map[monthKey]domain.MonthlySpend, len(existing)+len(upserts))
	for _, row := range existing {
		merged[monthKey{row.CustomerID, row.Month.UTC()}] = row
	}
	for _, row := range upserts {
		merged[monthKey{row.CustomerID, row.Month.UTC()}] = row
	}
	out := make([]domain.MonthlySpend, 0, len(merged))
	for _, row := range merged {
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CustomerID != out[j].CustomerID {
			return out[i].CustomerID < out[j].CustomerID
		}
		return out[i].Month.Before(out[j].Month)
	})
	return out
}
