package domain

import (
	"time"
)

// Spending consistency labels, derived from the coefficient of
// variation of a customer's approved transaction values.
const (
	ConsistencyNone           = "No Transactions"
	ConsistencyVeryConsistent = "Very Consistent"
	ConsistencyConsistent     = "Consistent"
	ConsistencyVariable       = "Variable"
	ConsistencyHighlyVariable = "Highly Variable"
)

// Category groups used for spend-mix percentages.
const (
	GroupTravel        = "Travel"
	GroupNecessities   = "Necessities"
	GroupDiscretionary = "Discretionary"
)

var categoryGroups = map[string]string{
	"Travel":        GroupTravel,
	"Airlines":      GroupTravel,
	"Hotels":        GroupTravel,
	"Groceries":     GroupNecessities,
	"Utilities":     GroupNecessities,
	"Gas":           GroupNecessities,
	"Healthcare":    GroupNecessities,
	"Insurance":     GroupNecessities,
}

// CategoryGroup maps a merchant category to its spend group. Unknown
// categories, including the Uncategorized sentinel, are discretionary.
func CategoryGroup(category string) string {
	if g, ok := categoryGroups[category]; ok {
		return g
	}
	return GroupDiscretionary
}

// CustomerAggregate is the wide per-customer metrics snapshot produced
// by the consolidated fact aggregator. One row per current-dimension
// customer; fully replaced on every run.
type CustomerAggregate struct {
	CustomerID  string
	CustomerKey string

	LifetimeValue    float64
	TransactionCount int64

	FirstTransaction *time.Time
	LastTransaction  *time.Time
	CustomerAgeDays  int64 // days between first and last transaction

	AvgTransactionValue    float64
	MedianTransactionValue float64
	StddevTransactionValue float64
	MinTransactionValue    float64
	MaxTransactionValue    float64

	// AvgSpendPerDay is lifetime value over the first-to-last span;
	// zero when the span is zero days.
	AvgSpendPerDay float64

	SpendLast90Days  float64
	SpendPrior90Days float64
	// SpendChangePct compares the trailing 90 days against the 90
	// before that; 100 when the prior window is empty but the recent
	// one is not, 0 when both are empty.
	SpendChangePct float64

	AvgMonthlySpend    float64
	TravelSpendPct     float64
	NecessitiesSpendPct float64

	TenureMonths int64

	SpendingConsistency string

	ComputedAt time.Time
}
