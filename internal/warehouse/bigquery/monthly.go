package bigquery

import (
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"

	"github.com/jpurrutia/customer-analytics/internal/domain"
)

type monthlySpendRow struct {
	CustomerID string     `bigquery:"customer_id"` // REQUIRED
	Month      civil.Date `bigquery:"month"`       // DATE, first of month

	TotalSpend          float64   `bigquery:"total_spend"`
	TransactionCount    int64     `bigquery:"transaction_count"`
	AvgTransactionValue float64   `bigquery:"avg_transaction_value"`
	FirstTransaction    time.Time `bigquery:"first_transaction"`
	LastTransaction     time.Time `bigquery:"last_transaction"`

	MaterializedAt time.Time `bigquery:"materialized_at"`
}

func monthlySpendFromDomain(m domain.MonthlySpend) *monthlySpendRow {
	return &monthlySpendRow{
		CustomerID:          m.CustomerID,
		Month:               civil.DateOf(m.Month.UTC()),
		TotalSpend:          m.TotalSpend,
		TransactionCount:    m.TransactionCount,
		AvgTransactionValue: m.AvgTransactionValue,
		FirstTransaction:    m.FirstTransaction,
		LastTransaction:     m.LastTransaction,
		MaterializedAt:      m.MaterializedAt,
	}
}

func (r *monthlySpendRow) toDomain() domain.MonthlySpend {
	return domain.MonthlySpend{
		CustomerID:          r.CustomerID,
		Month:               r.Month.In(time.UTC),
		TotalSpend:          r.TotalSpend,
		TransactionCount:    r.TransactionCount,
		AvgTransactionValue: r.AvgTransactionValue,
		FirstTransaction:    r.FirstTransaction,
		LastTransaction:     r.LastTransaction,
		MaterializedAt:      r.MaterializedAt,
	}
}

type trendRow struct {
	CustomerID string     `bigquery:"customer_id"` // REQUIRED
	Month      civil.Date `bigquery:"month"`       // DATE

	MonthlySpend    float64              `bigquery:"monthly_spend"`
	PriorMonthSpend bigquery.NullFloat64 `bigquery:"prior_month_spend"` // NULLABLE
	MoMChangePct    bigquery.NullFloat64 `bigquery:"mom_change_pct"`    // NULLABLE
	TrendCategory   string               `bigquery:"trend_category"`
}

func trendFromDomain(t domain.TrendRow) *trendRow {
	row := &trendRow{
		CustomerID:    t.CustomerID,
		Month:         civil.DateOf(t.Month.UTC()),
		MonthlySpend:  t.MonthlySpend,
		TrendCategory: t.TrendCategory,
	}
	if t.PriorMonthSpend != nil {
		row.PriorMonthSpend = bigquery.NullFloat64{Float64: *t.PriorMonthSpend, Valid: true}
	}
	if t.MoMChangePct != nil {
		row.MoMChangePct = bigquery.NullFloat64{Float64: *t.MoMChangePct, Valid: true}
	}
	return row
}

func (r *trendRow) toDomain() domain.TrendRow {
	t := domain.TrendRow{
		CustomerID:    r.CustomerID,
		Month:         r.Month.In(time.UTC),
		MonthlySpend:  r.MonthlySpend,
		TrendCategory: r.TrendCategory,
	}
	if r.PriorMonthSpend.Valid {
		v := r.PriorMonthSpend.Float64
		t.PriorMonthSpend = &v
	}
	if r.MoMChangePct.Valid {
		v := r.MoMChangePct.Float64
		t.MoMChangePct = &v
	}
	return t
}
