package bigquery

import (
	"time"

	"cloud.google.com/go/bigquery"

	"github.com/jpurrutia/customer-analytics/internal/domain"
)

type factTransactionRow struct {
	TransactionID    string    `bigquery:"transaction_id"` // REQUIRED
	CustomerID       string    `bigquery:"customer_id"`    // REQUIRED
	Timestamp        time.Time `bigquery:"ts"`
	Amount           float64   `bigquery:"amount"`
	MerchantName     string    `bigquery:"merchant_name"`
	MerchantCategory string    `bigquery:"merchant_category"`
	Channel          string    `bigquery:"channel"`
	Status           string    `bigquery:"status"`
	IngestedAt       time.Time `bigquery:"ingested_at"`
	SourceFile       string    `bigquery:"source_file"`
}

type aggregateRow struct {
	CustomerID  string `bigquery:"customer_id"` // REQUIRED
	CustomerKey string `bigquery:"customer_key"`

	LifetimeValue    float64 `bigquery:"lifetime_value"`
	TransactionCount int64   `bigquery:"transaction_count"`

	FirstTransaction bigquery.NullTimestamp `bigquery:"first_transaction"` // NULLABLE
	LastTransaction  bigquery.NullTimestamp `bigquery:"last_transaction"`  // NULLABLE
	CustomerAgeDays  int64                  `bigquery:"customer_age_days"`

	AvgTransactionValue    float64 `bigquery:"avg_transaction_value"`
	MedianTransactionValue float64 `bigquery:"median_transaction_value"`
	StddevTransactionValue float64 `bigquery:"stddev_transaction_value"`
	MinTransactionValue    float64 `bigquery:"min_transaction_value"`
	MaxTransactionValue    float64 `bigquery:"max_transaction_value"`
	AvgSpendPerDay         float64 `bigquery:"avg_spend_per_day"`

	SpendLast90Days  float64 `bigquery:"spend_last_90_days"`
	SpendPrior90Days float64 `bigquery:"spend_prior_90_days"`
	SpendChangePct   float64 `bigquery:"spend_change_pct"`

	AvgMonthlySpend     float64 `bigquery:"avg_monthly_spend"`
	TravelSpendPct      float64 `bigquery:"travel_spend_pct"`
	NecessitiesSpendPct float64 `bigquery:"necessities_spend_pct"`

	TenureMonths        int64  `bigquery:"tenure_months"`
	SpendingConsistency string `bigquery:"spending_consistency"`

	ComputedAt time.Time `bigquery:"computed_at"`
}

type segmentRow struct {
	CustomerID string    `bigquery:"customer_id"` // REQUIRED
	Segment    string    `bigquery:"segment"`
	AssignedAt time.Time `bigquery:"assigned_at"`

	SpendLast90Days     float64 `bigquery:"spend_last_90_days"`
	SpendPrior90Days    float64 `bigquery:"spend_prior_90_days"`
	SpendChangePct      float64 `bigquery:"spend_change_pct"`
	AvgMonthlySpend     float64 `bigquery:"avg_monthly_spend"`
	TravelSpendPct      float64 `bigquery:"travel_spend_pct"`
	NecessitiesSpendPct float64 `bigquery:"necessities_spend_pct"`
	TenureMonths        int64   `bigquery:"tenure_months"`
	LifetimeValue       float64 `bigquery:"lifetime_value"`
}

type profileRow struct {
	CustomerID  string  `bigquery:"customer_id"` // REQUIRED
	CustomerKey string  `bigquery:"customer_key"`
	FullName    string  `bigquery:"full_name"`
	Email       string  `bigquery:"email"`
	Age         int64   `bigquery:"age"`
	State       string  `bigquery:"state"`
	CardType    string  `bigquery:"card_type"`
	CreditLimit float64 `bigquery:"credit_limit"`

	LifetimeValue       float64 `bigquery:"lifetime_value"`
	TransactionCount    int64   `bigquery:"transaction_count"`
	AvgTransactionValue float64 `bigquery:"avg_transaction_value"`
	AvgMonthlySpend     float64 `bigquery:"avg_monthly_spend"`
	SpendLast90Days     float64 `bigquery:"spend_last_90_days"`
	SpendPrior90Days    float64 `bigquery:"spend_prior_90_days"`
	SpendChangePct      float64 `bigquery:"spend_change_pct"`
	TravelSpendPct      float64 `bigquery:"travel_spend_pct"`
	NecessitiesSpendPct float64 `bigquery:"necessities_spend_pct"`
	TenureMonths        int64   `bigquery:"tenure_months"`
	SpendingConsistency string  `bigquery:"spending_consistency"`

	Segment           string                `bigquery:"segment"`
	ChurnRiskScore    bigquery.NullFloat64  `bigquery:"churn_risk_score"` // NULLABLE
	ChurnRiskCategory string                `bigquery:"churn_risk_category"`

	RetentionEligible  bool `bigquery:"retention_eligible"`
	OnboardingEligible bool `bigquery:"onboarding_eligible"`
	PremiumEligible    bool `bigquery:"premium_eligible"`
}

func factTransactionFromDomain(t domain.Transaction) *factTransactionRow {
	return &factTransactionRow{
		TransactionID:    t.TransactionID,
		CustomerID:       t.CustomerID,
		Timestamp:        t.Timestamp,
		Amount:           t.Amount,
		MerchantName:     t.MerchantName,
		MerchantCategory: t.MerchantCategory,
		Channel:          t.Channel,
		Status:           t.Status,
		IngestedAt:       t.IngestedAt,
		SourceFile:       t.SourceFile,
	}
}

func aggregateFromDomain(a domain.CustomerAggregate) *aggregateRow {
	row := &aggregateRow{
		CustomerID:             a.CustomerID,
		CustomerKey:            a.CustomerKey,
		LifetimeValue:          a.LifetimeValue,
		TransactionCount:       a.TransactionCount,
		CustomerAgeDays:        a.CustomerAgeDays,
		AvgTransactionValue:    a.AvgTransactionValue,
		MedianTransactionValue: a.MedianTransactionValue,
		StddevTransactionValue: a.StddevTransactionValue,
		MinTransactionValue:    a.MinTransactionValue,
		MaxTransactionValue:    a.MaxTransactionValue,
		AvgSpendPerDay:         a.AvgSpendPerDay,
		SpendLast90Days:        a.SpendLast90Days,
		SpendPrior90Days:       a.SpendPrior90Days,
		SpendChangePct:         a.SpendChangePct,
		AvgMonthlySpend:        a.AvgMonthlySpend,
		TravelSpendPct:         a.TravelSpendPct,
		NecessitiesSpendPct:    a.NecessitiesSpendPct,
		TenureMonths:           a.TenureMonths,
		SpendingConsistency:    a.SpendingConsistency,
		ComputedAt:             a.ComputedAt,
	}
	if a.FirstTransaction != nil {
		row.FirstTransaction = bigquery.NullTimestamp{Timestamp: *a.FirstTransaction, Valid: true}
	}
	if a.LastTransaction != nil {
		row.LastTransaction = bigquery.NullTimestamp{Timestamp: *a.LastTransaction, Valid: true}
	}
	return row
}

func (r *aggregateRow) toDomain() domain.CustomerAggregate {
	a := domain.CustomerAggregate{
		CustomerID:             r.CustomerID,
		CustomerKey:            r.CustomerKey,
		LifetimeValue:          r.LifetimeValue,
		TransactionCount:       r.TransactionCount,
		CustomerAgeDays:        r.CustomerAgeDays,
		AvgTransactionValue:    r.AvgTransactionValue,
		MedianTransactionValue: r.MedianTransactionValue,
		StddevTransactionValue: r.StddevTransactionValue,
		MinTransactionValue:    r.MinTransactionValue,
		MaxTransactionValue:    r.MaxTransactionValue,
		AvgSpendPerDay:         r.AvgSpendPerDay,
		SpendLast90Days:        r.SpendLast90Days,
		SpendPrior90Days:       r.SpendPrior90Days,
		SpendChangePct:         r.SpendChangePct,
		AvgMonthlySpend:        r.AvgMonthlySpend,
		TravelSpendPct:         r.TravelSpendPct,
		NecessitiesSpendPct:    r.NecessitiesSpendPct,
		TenureMonths:           r.TenureMonths,
		SpendingConsistency:    r.SpendingConsistency,
		ComputedAt:             r.ComputedAt,
	}
	if r.FirstTransaction.Valid {
		t := r.FirstTransaction.Timestamp
		a.FirstTransaction = &t
	}
	if r.LastTransaction.Valid {
		t := r.LastTransaction.Timestamp
		a.LastTransaction = &t
	}
	return a
}

func segmentFromDomain(s domain.SegmentAssignment) *segmentRow {
	return &segmentRow{
		CustomerID:          s.CustomerID,
		Segment:             s.Segment,
		AssignedAt:          s.AssignedAt,
		SpendLast90Days:     s.SpendLast90Days,
		SpendPrior90Days:    s.SpendPrior90Days,
		SpendChangePct:      s.SpendChangePct,
		AvgMonthlySpend:     s.AvgMonthlySpend,
		TravelSpendPct:      s.TravelSpendPct,
		NecessitiesSpendPct: s.NecessitiesSpendPct,
		TenureMonths:        s.TenureMonths,
		LifetimeValue:       s.LifetimeValue,
	}
}

func (r *segmentRow) toDomain() domain.SegmentAssignment {
	return domain.SegmentAssignment{
		CustomerID:          r.CustomerID,
		Segment:             r.Segment,
		AssignedAt:          r.AssignedAt,
		SpendLast90Days:     r.SpendLast90Days,
		SpendPrior90Days:    r.SpendPrior90Days,
		SpendChangePct:      r.SpendChangePct,
		AvgMonthlySpend:     r.AvgMonthlySpend,
		TravelSpendPct:      r.TravelSpendPct,
		NecessitiesSpendPct: r.NecessitiesSpendPct,
		TenureMonths:        r.TenureMonths,
		LifetimeValue:       r.LifetimeValue,
	}
}

func profileFromDomain(p domain.CustomerProfile) *profileRow {
	row := &profileRow{
		CustomerID:          p.CustomerID,
		CustomerKey:         p.CustomerKey,
		FullName:            p.FullName,
		Email:               p.Email,
		Age:                 int64(p.Age),
		State:               p.State,
		CardType:            p.CardType,
		CreditLimit:         p.CreditLimit,
		LifetimeValue:       p.Aggregate.LifetimeValue,
		TransactionCount:    p.Aggregate.TransactionCount,
		AvgTransactionValue: p.Aggregate.AvgTransactionValue,
		AvgMonthlySpend:     p.Aggregate.AvgMonthlySpend,
		SpendLast90Days:     p.Aggregate.SpendLast90Days,
		SpendPrior90Days:    p.Aggregate.SpendPrior90Days,
		SpendChangePct:      p.Aggregate.SpendChangePct,
		TravelSpendPct:      p.Aggregate.TravelSpendPct,
		NecessitiesSpendPct: p.Aggregate.NecessitiesSpendPct,
		TenureMonths:        p.Aggregate.TenureMonths,
		SpendingConsistency: p.Aggregate.SpendingConsistency,
		Segment:             p.Segment,
		ChurnRiskCategory:   p.ChurnRiskCategory,
		RetentionEligible:   p.RetentionEligible,
		OnboardingEligible:  p.OnboardingEligible,
		PremiumEligible:     p.PremiumEligible,
	}
	if p.ChurnRiskScore != nil {
		row.ChurnRiskScore = bigquery.NullFloat64{Float64: *p.ChurnRiskScore, Valid: true}
	}
	return row
}

// toDomain rebuilds the profile from the flattened export columns.
// Aggregate fields not carried on the profile table stay zero; the
// aggregates table is the full-fidelity source.
func (r *profileRow) toDomain() domain.CustomerProfile {
	p := domain.CustomerProfile{
		CustomerID:  r.CustomerID,
		CustomerKey: r.CustomerKey,
		FullName:    r.FullName,
		Email:       r.Email,
		Age:         int(r.Age),
		State:       r.State,
		CardType:    r.CardType,
		CreditLimit: r.CreditLimit,
		Aggregate: domain.CustomerAggregate{
			CustomerID:          r.CustomerID,
			CustomerKey:         r.CustomerKey,
			LifetimeValue:       r.LifetimeValue,
			TransactionCount:    r.TransactionCount,
			AvgTransactionValue: r.AvgTransactionValue,
			AvgMonthlySpend:     r.AvgMonthlySpend,
			SpendLast90Days:     r.SpendLast90Days,
			SpendPrior90Days:    r.SpendPrior90Days,
			SpendChangePct:      r.SpendChangePct,
			TravelSpendPct:      r.TravelSpendPct,
			NecessitiesSpendPct: r.NecessitiesSpendPct,
			TenureMonths:        r.TenureMonths,
			SpendingConsistency: r.SpendingConsistency,
		},
		Segment:            r.Segment,
		ChurnRiskCategory:  r.ChurnRiskCategory,
		RetentionEligible:  r.RetentionEligible,
		OnboardingEligible: r.OnboardingEligible,
		PremiumEligible:    r.PremiumEligible,
	}
	if r.ChurnRiskScore.Valid {
		s := r.ChurnRiskScore.Float64
		p.ChurnRiskScore = &s
	}
	return p
}
