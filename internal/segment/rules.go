// Package segment classifies customers into the fixed behavioral
// segments. The decision table is an ordered list of (predicate,
// label) pairs evaluated first-match-wins, kept separate from the
// aggregation math so the business rules are independently testable.
package segment

import (
	"github.com/jpurrutia/customer-analytics/internal/domain"
)

// Thresholds are the business-rule constants behind the decision
// table. Defaults mirror the marketing team's published criteria.
type Thresholds struct {
	// MinTransactions below which a customer is not yet scored.
	MinTransactions int64

	HighValueMonthlySpend float64
	HighValueTravelPct    float64

	DecliningChangePct  float64
	DecliningPriorSpend float64

	NewGrowingTenureMonths int64
	NewGrowingChangePct    float64

	BudgetMonthlySpend   float64
	BudgetNecessitiesPct float64
}

// DefaultThresholds returns the production rule constants.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinTransactions:        3,
		HighValueMonthlySpend:  5000,
		HighValueTravelPct:     25,
		DecliningChangePct:     -30,
		DecliningPriorSpend:    2000,
		NewGrowingTenureMonths: 6,
		NewGrowingChangePct:    50,
		BudgetMonthlySpend:     1500,
		BudgetNecessitiesPct:   60,
	}
}

// Rule is one entry of the decision table.
type Rule struct {
	Segment string
	Match   func(domain.CustomerAggregate) bool
}

// Rules builds the ordered decision table. Order matters: the first
// matching rule wins, and the final rule always matches.
func Rules(t Thresholds) []Rule {
	return []Rule{
		{
			Segment: domain.SegmentNotYetScored,
			Match: func(a domain.CustomerAggregate) bool {
				return a.TransactionCount < t.MinTransactions
			},
		},
		{
			Segment: domain.SegmentHighValueTraveler,
			Match: func(a domain.CustomerAggregate) bool {
				return a.AvgMonthlySpend >= t.HighValueMonthlySpend && a.TravelSpendPct >= t.HighValueTravelPct
			},
		},
		{
			Segment: domain.SegmentDeclining,
			Match: func(a domain.CustomerAggregate) bool {
				return a.SpendChangePct <= t.DecliningChangePct && a.SpendPrior90Days >= t.DecliningPriorSpend
			},
		},
		{
			Segment: domain.SegmentNewAndGrowing,
			Match: func(a domain.CustomerAggregate) bool {
				return a.TenureMonths <= t.NewGrowingTenureMonths && a.SpendChangePct >= t.NewGrowingChangePct
			},
		},
		{
			Segment: domain.SegmentBudgetConscious,
			Match: func(a domain.CustomerAggregate) bool {
				return a.AvgMonthlySpend < t.BudgetMonthlySpend && a.NecessitiesSpendPct >= t.BudgetNecessitiesPct
			},
		},
		{
			Segment: domain.SegmentStableMidSpender,
			Match:   func(domain.CustomerAggregate) bool { return true },
		},
	}
}
