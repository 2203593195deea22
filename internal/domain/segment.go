package domain

import (
	"time"
)

// The closed set of behavioral segments. SegmentNotYetScored is used
// for customers below the minimum transaction count rather than
// forcing them into a behavioral bucket.
const (
	SegmentNotYetScored      = "Not Yet Scored"
	SegmentHighValueTraveler = "High-Value Travelers"
	SegmentDeclining         = "Declining"
	SegmentNewAndGrowing     = "New & Growing"
	SegmentBudgetConscious   = "Budget-Conscious"
	SegmentStableMidSpender  = "Stable Mid-Spenders"
)

// SegmentAssignment is the outcome of rule evaluation for one
// customer, together with the metrics that drove the decision.
type SegmentAssignment struct {
	CustomerID string
	Segment    string
	AssignedAt time.Time

	SpendLast90Days     float64
	SpendPrior90Days    float64
	SpendChangePct      float64
	AvgMonthlySpend     float64
	TravelSpendPct      float64
	NecessitiesSpendPct float64
	TenureMonths        int64
	LifetimeValue       float64
}

// ChurnScore is an externally produced churn-risk score (0-100).
// Scores may be absent for any customer.
type ChurnScore struct {
	CustomerID string
	Score      float64
	ScoredAt   time.Time
}

// Churn risk categories derived from the raw score.
const (
	ChurnRiskHigh    = "High"
	ChurnRiskMedium  = "Medium"
	ChurnRiskLow     = "Low"
	ChurnRiskUnknown = "Unknown"
)

// ChurnRiskThreshold is the score at or above which a customer is
// treated as high risk for campaign eligibility.
const ChurnRiskThreshold = 70.0

// ChurnRiskCategory buckets a churn score; a nil score is Unknown.
func ChurnRiskCategory(score *float64) string {
	switch {
	case score == nil:
		return ChurnRiskUnknown
	case *score >= ChurnRiskThreshold:
		return ChurnRiskHigh
	case *score >= 40:
		return ChurnRiskMedium
	default:
		return ChurnRiskLow
	}
}

// CustomerProfile is the joined customer-360 output row: current
// dimension attributes, aggregate metrics, segment, churn risk and
// campaign eligibility. One row per current customer.
type CustomerProfile struct {
	CustomerID  string
	CustomerKey string
	FullName    string
	Email       string
	Age         int
	State       string
	CardType    string
	CreditLimit float64

	Aggregate CustomerAggregate
	Segment   string

	ChurnRiskScore    *float64
	ChurnRiskCategory string

	RetentionEligible  bool
	OnboardingEligible bool
	PremiumEligible    bool
}
