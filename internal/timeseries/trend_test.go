package timeseries

import (
	"testing"
	"time"

	"github.com/jpurrutia/customer-analytics/internal/domain"
)

func monthly(customerID string, m time.Time, spend float64) domain.MonthlySpend {
	return domain.MonthlySpend{CustomerID: customerID, Month: m, TotalSpend: spend}
}

func TestComputeTrends(t *testing.T) {
	rows := []domain.MonthlySpend{
		monthly("c1", month(2026, time.April), 1000),
		monthly("c1", month(2026, time.May), 1500),
		monthly("c1", month(2026, time.June), 3100),
		monthly("c2", month(2026, time.May), 400),
		monthly("c2", month(2026, time.June), 150),
	}

	trends := ComputeTrends(rows)
	if len(trends) != 5 {
		t.Fatalf("expected 5 trend rows, got %d", len(trends))
	}

	t.Run("first month", func(t *testing.T) {
		tr := trends[0]
		if tr.PriorMonthSpend != nil || tr.MoMChangePct != nil {
			t.Errorf("first month must have nil prior fields: %+v", tr)
		}
		if tr.TrendCategory != domain.TrendFirstMonth {
			t.Errorf("TrendCategory = %q, want %q", tr.TrendCategory, domain.TrendFirstMonth)
		}
	})

	t.Run("growth", func(t *testing.T) {
		tr := trends[1]
		if tr.PriorMonthSpend == nil || *tr.PriorMonthSpend != 1000 {
			t.Fatalf("PriorMonthSpend wrong: %+v", tr)
		}
		if *tr.MoMChangePct != 50 {
			t.Errorf("MoMChangePct = %v, want 50", *tr.MoMChangePct)
		}
		if tr.TrendCategory != domain.TrendGrowth {
			t.Errorf("TrendCategory = %q, want %q", tr.TrendCategory, domain.TrendGrowth)
		}
	})

	t.Run("high growth at the boundary", func(t *testing.T) {
		tr := trends[2]
		if got := *tr.MoMChangePct; got < 106 || got > 107 {
			t.Errorf("MoMChangePct = %v, want roughly 106.7", got)
		}
		if tr.TrendCategory != domain.TrendHighGrowth {
			t.Errorf("TrendCategory = %q, want %q", tr.TrendCategory, domain.TrendHighGrowth)
		}
	})

	t.Run("prior resets per customer", func(t *testing.T) {
		tr := trends[3]
		if tr.CustomerID != "c2" || tr.TrendCategory != domain.TrendFirstMonth {
			t.Errorf("c2's first month must not see c1's history: %+v", tr)
		}
	})

	t.Run("high decline", func(t *testing.T) {
		tr := trends[4]
		if *tr.MoMChangePct != -62.5 {
			t.Errorf("MoMChangePct = %v, want -62.5", *tr.MoMChangePct)
		}
		if tr.TrendCategory != domain.TrendHighDecline {
			t.Errorf("TrendCategory = %q, want %q", tr.TrendCategory, domain.TrendHighDecline)
		}
	})
}

func TestComputeTrendsSkippedMonthUsesLastActiveMonth(t *testing.T) {
	rows := []domain.MonthlySpend{
		monthly("c1", month(2026, time.January), 200),
		monthly("c1", month(2026, time.April), 220),
	}
	trends := ComputeTrends(rows)
	tr := trends[1]
	if tr.PriorMonthSpend == nil || *tr.PriorMonthSpend != 200 {
		t.Fatalf("April must compare against January, the last active month: %+v", tr)
	}
	if *tr.MoMChangePct != 10 || tr.TrendCategory != domain.TrendGrowth {
		t.Errorf("MoMChangePct = %v, category %q", *tr.MoMChangePct, tr.TrendCategory)
	}
}

func TestComputeTrendsDoesNotMutateInput(t *testing.T) {
	rows := []domain.MonthlySpend{
		monthly("c1", month(2026, time.June), 30),
		monthly("c1", month(2026, time.May), 20),
	}
	ComputeTrends(rows)
	if !rows[0].Month.Equal(month(2026, time.June)) {
		t.Errorf("input order changed: %+v", rows)
	}
}

// Two customers through materialization and trends: A spends 100 then
// 150 across two months, B spends 100 once.
func TestMaterializeThenTrendScenario(t *testing.T) {
	facts := []domain.Transaction{
		tx("A", time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC), 100),
		tx("A", time.Date(2026, 6, 8, 0, 0, 0, 0, time.UTC), 150),
		tx("B", time.Date(2026, 5, 21, 0, 0, 0, 0, time.UTC), 100),
	}
	plan := Materializer{LookbackMonths: 2}.BuildFull(facts, runAt)
	if len(plan.Rows) != 3 {
		t.Fatalf("expected 2 rows for A and 1 for B, got %d", len(plan.Rows))
	}

	trends := ComputeTrends(plan.Rows)
	june := trends[1]
	if june.CustomerID != "A" || *june.MoMChangePct != 50 || june.TrendCategory != domain.TrendGrowth {
		t.Errorf("A's second month wrong: %+v", june)
	}
	b := trends[2]
	if b.CustomerID != "B" || b.MoMChangePct != nil || b.TrendCategory != domain.TrendFirstMonth {
		t.Errorf("B's only month wrong: %+v", b)
	}
}

func TestMomChange(t *testing.T) {
	tests := []struct {
		name           string
		prior, current float64
		want           float64
	}{
		{"increase", 100, 150, 50},
		{"decrease", 100, 25, -75},
		{"zero prior with activity", 0, 10, 100},
		{"zero prior zero current", 0, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := momChange(tt.prior, tt.current); got != tt.want {
				t.Errorf("momChange(%v, %v) = %v, want %v", tt.prior, tt.current, got, tt.want)
			}
		})
	}
}
