// Package aggregate computes the per-customer metrics snapshot in one
// consolidated pass over the transaction fact set. Every downstream
// consumer (segmentation, profiles, campaign flags) derives from this
// single grouped result; nothing re-scans the facts per metric.
package aggregate

import (
	"sort"
	"time"

	"github.com/jpurrutia/customer-analytics/internal/domain"
)

// Stats reports what the pass excluded.
type Stats struct {
	// OrphanTransactions are approved transactions whose customer id
	// has no current dimension version. They are excluded and
	// reported, not silently dropped.
	OrphanTransactions int64
	// DeclinedSkipped counts transactions excluded by status.
	DeclinedSkipped int64
}

// accumulator collects everything needed for one customer's aggregate
// during the single pass.
type accumulator struct {
	stats      runningStats
	amounts    []float64
	first      time.Time
	last       time.Time
	last90     float64
	prior90    float64
	groupSpend map[string]float64
}

// Run performs the consolidated pass: group all approved transactions
// by customer id once, accumulate every target metric simultaneously,
// then emit one wide row per current-dimension customer (customers
// with no transactions included, zeroed). asOf anchors the rolling
// 90-day windows and tenure.
func Run(current map[string]domain.CustomerVersion, facts []domain.Transaction, asOf time.Time) ([]domain.CustomerAggregate, Stats) {
	var stats Stats
	asOf = asOf.UTC()
	cut90 := asOf.AddDate(0, 0, -90)
	cut180 := asOf.AddDate(0, 0, -180)

	groups := make(map[string]*accumulator, len(current))
	for _, tx := range facts {
		if !tx.Approved() {
			stats.DeclinedSkipped++
			continue
		}
		if _, ok := current[tx.CustomerID]; !ok {
			stats.OrphanTransactions++
			continue
		}
		acc, ok := groups[tx.CustomerID]
		if !ok {
			acc = &accumulator{groupSpend: make(map[string]float64, 3)}
			groups[tx.CustomerID] = acc
		}
		acc.stats.add(tx.Amount)
		acc.amounts = append(acc.amounts, tx.Amount)
		ts := tx.Timestamp.UTC()
		if acc.first.IsZero() || ts.Before(acc.first) {
			acc.first = ts
		}
		if ts.After(acc.last) {
			acc.last = ts
		}
		if ts.After(cut90) && !ts.After(asOf) {
			acc.last90 += tx.Amount
		} else if ts.After(cut180) && !ts.After(cut90) {
			acc.prior90 += tx.Amount
		}
		acc.groupSpend[domain.CategoryGroup(tx.MerchantCategory)] += tx.Amount
	}

	out := make([]domain.CustomerAggregate, 0, len(current))
	for customerID, version := range current {
		out = append(out, finalize(customerID, version, groups[customerID], asOf))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CustomerID < out[j].CustomerID })
	return out, stats
}

func finalize(customerID string, version domain.CustomerVersion, acc *accumulator, asOf time.Time) domain.CustomerAggregate {
	agg := domain.CustomerAggregate{
		CustomerID:          customerID,
		CustomerKey:         version.CustomerKey,
		SpendingConsistency: domain.ConsistencyNone,
		ComputedAt:          asOf,
	}

	if acc == nil {
		agg.TenureMonths = tenureMonths(version.AccountOpenDate, asOf)
		return agg
	}

	agg.LifetimeValue = acc.stats.sum
	agg.TransactionCount = acc.stats.count
	first, last := acc.first, acc.last
	agg.FirstTransaction = &first
	agg.LastTransaction = &last
	agg.CustomerAgeDays = int64(last.Sub(first).Hours() / 24)

	agg.AvgTransactionValue = acc.stats.mean
	agg.MedianTransactionValue = median(acc.amounts)
	agg.StddevTransactionValue = acc.stats.stddev()
	agg.MinTransactionValue = acc.stats.min
	agg.MaxTransactionValue = acc.stats.max

	// Zero-day span means a single active day; spend-per-day is
	// defined as 0 there rather than dividing by zero.
	if agg.CustomerAgeDays > 0 {
		agg.AvgSpendPerDay = agg.LifetimeValue / float64(agg.CustomerAgeDays)
	}

	agg.SpendLast90Days = acc.last90
	agg.SpendPrior90Days = acc.prior90
	agg.SpendChangePct = spendChangePct(acc.last90, acc.prior90)

	openDate := version.AccountOpenDate
	if openDate.IsZero() {
		openDate = first
	}
	agg.TenureMonths = tenureMonths(openDate, asOf)
	agg.AvgMonthlySpend = agg.LifetimeValue / float64(agg.TenureMonths)

	if agg.LifetimeValue > 0 {
		agg.TravelSpendPct = acc.groupSpend[domain.GroupTravel] / agg.LifetimeValue * 100
		agg.NecessitiesSpendPct = acc.groupSpend[domain.GroupNecessities] / agg.LifetimeValue * 100
	}

	agg.SpendingConsistency = consistencyLabel(acc.stats)
	return agg
}

// spendChangePct compares the trailing 90 days to the 90 before that.
// An empty prior window with recent activity counts as full growth.
func spendChangePct(last90, prior90 float64) float64 {
	switch {
	case prior90 > 0:
		return (last90 - prior90) / prior90 * 100
	case last90 > 0:
		return 100
	default:
		return 0
	}
}

// consistencyLabel buckets the coefficient of variation of a
// customer's transaction values. Fewer than two transactions leaves
// the deviation undefined.
func consistencyLabel(s runningStats) string {
	if s.count < 2 {
		return domain.ConsistencyNone
	}
	cv := 0.0
	if s.mean > 0 {
		cv = s.stddev() / s.mean
	}
	switch {
	case cv < 0.30:
		return domain.ConsistencyVeryConsistent
	case cv < 0.60:
		return domain.ConsistencyConsistent
	case cv < 1.00:
		return domain.ConsistencyVariable
	default:
		return domain.ConsistencyHighlyVariable
	}
}

// tenureMonths counts whole calendar months between the account open
// date and asOf, with a floor of one month so per-month averages stay
// defined for brand-new accounts.
func tenureMonths(openDate, asOf time.Time) int64 {
	if openDate.IsZero() || openDate.After(asOf) {
		return 1
	}
	openDate, asOf = openDate.UTC(), asOf.UTC()
	months := int64(asOf.Year()-openDate.Year())*12 + int64(asOf.Month()-openDate.Month())
	if asOf.Day() < openDate.Day() {
		months--
	}
	if months < 1 {
		return 1
	}
	return months
}
