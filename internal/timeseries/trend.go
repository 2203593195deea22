package timeseries

import (
	"sort"

	"github.com/jpurrutia/customer-analytics/internal/domain"
)

// ComputeTrends derives a trend row for every monthly spend row.
// "Prior month" means the customer's previous month with activity,
// not the strictly adjacent calendar month, so a customer who skips
// a month still gets a change figure against their last active month.
func ComputeTrends(monthly []domain.MonthlySpend) []domain.TrendRow {
	rows := make([]domain.MonthlySpend, len(monthly))
	copy(rows, monthly)
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].CustomerID != rows[j].CustomerID {
			return rows[i].CustomerID < rows[j].CustomerID
		}
		return rows[i].Month.Before(rows[j].Month)
	})

	out := make([]domain.TrendRow, 0, len(rows))
	var priorSpend *float64
	priorCustomer := ""
	for _, row := range rows {
		if row.CustomerID != priorCustomer {
			priorSpend = nil
			priorCustomer = row.CustomerID
		}
		trend := domain.TrendRow{
			CustomerID:   row.CustomerID,
			Month:        row.Month,
			MonthlySpend: row.TotalSpend,
		}
		if priorSpend != nil {
			p := *priorSpend
			trend.PriorMonthSpend = &p
			change := momChange(p, row.TotalSpend)
			trend.MoMChangePct = &change
		}
		trend.TrendCategory = domain.TrendCategoryFor(trend.MoMChangePct)
		out = append(out, trend)

		spend := row.TotalSpend
		priorSpend = &spend
	}
	return out
}

// momChange guards the division: a customer whose prior active month
// somehow carries zero spend jumps to 100% rather than dividing by
// zero.
func momChange(prior, current float64) float64 {
	if prior > 0 {
		return (current - prior) / prior * 100
	}
	if current > 0 {
		return 100
	}
	return 0
}
