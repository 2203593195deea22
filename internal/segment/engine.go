package segment

import (
	"sort"
	"time"

	"github.com/jpurrutia/customer-analytics/internal/domain"
)

// Engine evaluates the decision table. Classification is a pure
// per-customer function; there is no state across customers.
type Engine struct {
	rules []Rule
}

// NewEngine builds an engine over an ordered rule list.
func NewEngine(rules []Rule) *Engine {
	return &Engine{rules: rules}
}

// Assign classifies one aggregate row. The final catch-all rule
// guarantees a label for every input.
func (e *Engine) Assign(agg domain.CustomerAggregate, at time.Time) domain.SegmentAssignment {
	assignment := domain.SegmentAssignment{
		CustomerID:          agg.CustomerID,
		AssignedAt:          at,
		SpendLast90Days:     agg.SpendLast90Days,
		SpendPrior90Days:    agg.SpendPrior90Days,
		SpendChangePct:      agg.SpendChangePct,
		AvgMonthlySpend:     agg.AvgMonthlySpend,
		TravelSpendPct:      agg.TravelSpendPct,
		NecessitiesSpendPct: agg.NecessitiesSpendPct,
		TenureMonths:        agg.TenureMonths,
		LifetimeValue:       agg.LifetimeValue,
	}
	for _, rule := range e.rules {
		if rule.Match(agg) {
			assignment.Segment = rule.Segment
			return assignment
		}
	}
	// Unreachable with a well-formed table; fail safe, not loud.
	assignment.Segment = domain.SegmentStableMidSpender
	return assignment
}

// AssignAll classifies a full aggregate snapshot, preserving order.
func (e *Engine) AssignAll(aggs []domain.CustomerAggregate, at time.Time) []domain.SegmentAssignment {
	out := make([]domain.SegmentAssignment, 0, len(aggs))
	for _, agg := range aggs {
		out = append(out, e.Assign(agg, at))
	}
	return out
}

// BuildProfiles joins the current dimension, the aggregate snapshot,
// segment assignments and churn scores into the customer-360 output,
// deriving the campaign-eligibility flags. A missing churn score is a
// legal state and resolves to the Unknown risk category.
func BuildProfiles(
	current map[string]domain.CustomerVersion,
	aggs []domain.CustomerAggregate,
	assignments []domain.SegmentAssignment,
	scores []domain.ChurnScore,
) []domain.CustomerProfile {
	segmentByCustomer := make(map[string]string, len(assignments))
	for _, a := range assignments {
		segmentByCustomer[a.CustomerID] = a.Segment
	}
	scoreByCustomer := make(map[string]float64, len(scores))
	for _, s := range scores {
		scoreByCustomer[s.CustomerID] = s.Score
	}

	out := make([]domain.CustomerProfile, 0, len(aggs))
	for _, agg := range aggs {
		version, ok := current[agg.CustomerID]
		if !ok {
			continue
		}
		profile := domain.CustomerProfile{
			CustomerID:  agg.CustomerID,
			CustomerKey: version.CustomerKey,
			FullName:    version.FullName(),
			Email:       version.Email,
			Age:         version.Age,
			State:       version.State,
			CardType:    version.CardType,
			CreditLimit: version.CreditLimit,
			Aggregate:   agg,
			Segment:     segmentByCustomer[agg.CustomerID],
		}
		if score, ok := scoreByCustomer[agg.CustomerID]; ok {
			s := score
			profile.ChurnRiskScore = &s
		}
		profile.ChurnRiskCategory = domain.ChurnRiskCategory(profile.ChurnRiskScore)

		highChurn := profile.ChurnRiskScore != nil && *profile.ChurnRiskScore >= domain.ChurnRiskThreshold
		profile.RetentionEligible = profile.Segment == domain.SegmentDeclining || highChurn
		profile.OnboardingEligible = profile.Segment == domain.SegmentNewAndGrowing
		profile.PremiumEligible = profile.Segment == domain.SegmentHighValueTraveler

		out = append(out, profile)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CustomerID < out[j].CustomerID })
	return out
}

// Distribution tallies customers per segment.
func Distribution(assignments []domain.SegmentAssignment) map[string]int64 {
	out := make(map[string]int64)
	for _, a := range assignments {
		out[a.Segment]++
	}
	return out
}
