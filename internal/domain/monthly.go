package domain

import (
	"time"
)

// MonthlySpend is one row of the customer x calendar-month spend
// table. (CustomerID, Month) is the unique grain; rows inside the
// materializer's lookback window are replaced in place, rows outside
// it are never touched again.
type MonthlySpend struct {
	CustomerID string
	Month      time.Time // first of month, UTC

	TotalSpend          float64
	TransactionCount    int64
	AvgTransactionValue float64
	FirstTransaction    time.Time
	LastTransaction     time.Time

	MaterializedAt time.Time
}

// Trend categories bucketing month-over-month spend change.
const (
	TrendFirstMonth  = "First Month"
	TrendHighGrowth  = "High Growth"
	TrendGrowth      = "Growth"
	TrendFlat        = "Flat"
	TrendDecline     = "Decline"
	TrendHighDecline = "High Decline"
)

// TrendRow is the derived month-over-month view of MonthlySpend.
// Recomputed in full on every run; it has no independent identity.
type TrendRow struct {
	CustomerID string
	Month      time.Time

	MonthlySpend    float64
	PriorMonthSpend *float64 // nil on the customer's first month
	MoMChangePct    *float64 // nil on the customer's first month
	TrendCategory   string
}

// TrendCategoryFor buckets a month-over-month percentage change.
// A nil change means the customer has no prior month.
func TrendCategoryFor(changePct *float64) string {
	switch {
	case changePct == nil:
		return TrendFirstMonth
	case *changePct >= 100:
		return TrendHighGrowth
	case *changePct >= 10:
		return TrendGrowth
	case *changePct > -10:
		return TrendFlat
	case *changePct > -50:
		return TrendDecline
	default:
		return TrendHighDecline
	}
}
