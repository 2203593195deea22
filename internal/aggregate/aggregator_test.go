package aggregate

import (
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/jpurrutia/customer-analytics/internal/domain"
)

var asOf = time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC)

func currentCustomer(id string, opened time.Time) map[string]domain.CustomerVersion {
	return map[string]domain.CustomerVersion{
		id: {
			CustomerKey:     "key-" + id,
			CustomerID:      id,
			AccountOpenDate: opened,
			IsCurrent:       true,
		},
	}
}

func tx(id, customer string, ts time.Time, amount float64, category string) domain.Transaction {
	return domain.Transaction{
		TransactionID:    id,
		CustomerID:       customer,
		Timestamp:        ts,
		Amount:           amount,
		MerchantCategory: category,
		Status:           domain.StatusApproved,
	}
}

func almost(got, want float64) bool {
	return math.Abs(got-want) < 1e-9
}

func TestRunBasicMetrics(t *testing.T) {
	opened := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	current := currentCustomer("c1", opened)

	base := asOf.AddDate(0, 0, -10)
	facts := []domain.Transaction{
		tx("t1", "c1", base, 10, "Groceries"),
		tx("t2", "c1", base.Add(24*time.Hour), 20, "Travel"),
		tx("t3", "c1", base.Add(48*time.Hour), 30, "Dining"),
		tx("t4", "c1", base.Add(72*time.Hour), 40, "Groceries"),
	}

	aggs, stats := Run(current, facts, asOf)
	if stats.OrphanTransactions != 0 || stats.DeclinedSkipped != 0 {
		t.Fatalf("unexpected exclusions: %+v", stats)
	}
	if len(aggs) != 1 {
		t.Fatalf("expected 1 aggregate, got %d", len(aggs))
	}
	a := aggs[0]

	if a.LifetimeValue != 100 || a.TransactionCount != 4 {
		t.Errorf("ltv=%v count=%d, want 100 and 4", a.LifetimeValue, a.TransactionCount)
	}
	if !almost(a.AvgTransactionValue, 25) {
		t.Errorf("avg = %v, want 25", a.AvgTransactionValue)
	}
	if !almost(a.MedianTransactionValue, 25) {
		t.Errorf("median = %v, want 25", a.MedianTransactionValue)
	}
	// Sample stddev of {10,20,30,40} is sqrt(500/3).
	if !almost(a.StddevTransactionValue, math.Sqrt(500.0/3.0)) {
		t.Errorf("stddev = %v, want %v", a.StddevTransactionValue, math.Sqrt(500.0/3.0))
	}
	if a.MinTransactionValue != 10 || a.MaxTransactionValue != 40 {
		t.Errorf("min/max = %v/%v, want 10/40", a.MinTransactionValue, a.MaxTransactionValue)
	}
	if a.CustomerAgeDays != 3 {
		t.Errorf("CustomerAgeDays = %d, want 3", a.CustomerAgeDays)
	}
	if !almost(a.TravelSpendPct, 20) {
		t.Errorf("TravelSpendPct = %v, want 20", a.TravelSpendPct)
	}
	// Groceries 10+40 = 50 of 100.
	if !almost(a.NecessitiesSpendPct, 50) {
		t.Errorf("NecessitiesSpendPct = %v, want 50", a.NecessitiesSpendPct)
	}
	// June 2025 to June 2026 is 12 full months.
	if a.TenureMonths != 12 {
		t.Errorf("TenureMonths = %d, want 12", a.TenureMonths)
	}
	if !almost(a.AvgMonthlySpend, 100.0/12.0) {
		t.Errorf("AvgMonthlySpend = %v, want %v", a.AvgMonthlySpend, 100.0/12.0)
	}
}

func TestRunRollingWindows(t *testing.T) {
	current := currentCustomer("c1", asOf.AddDate(-1, 0, 0))
	facts := []domain.Transaction{
		tx("t1", "c1", asOf.AddDate(0, 0, -30), 500, "Dining"),   // last 90
		tx("t2", "c1", asOf.AddDate(0, 0, -89), 250, "Dining"),   // last 90
		tx("t3", "c1", asOf.AddDate(0, 0, -120), 1000, "Dining"), // prior 90
		tx("t4", "c1", asOf.AddDate(0, 0, -200), 9999, "Dining"), // outside both
	}

	aggs, _ := Run(current, facts, asOf)
	a := aggs[0]
	if a.SpendLast90Days != 750 {
		t.Errorf("SpendLast90Days = %v, want 750", a.SpendLast90Days)
	}
	if a.SpendPrior90Days != 1000 {
		t.Errorf("SpendPrior90Days = %v, want 1000", a.SpendPrior90Days)
	}
	if !almost(a.SpendChangePct, -25) {
		t.Errorf("SpendChangePct = %v, want -25", a.SpendChangePct)
	}
}

func TestSpendChangePct(t *testing.T) {
	tests := []struct {
		name           string
		last90, prior90 float64
		want           float64
	}{
		{"growth", 150, 100, 50},
		{"decline", 50, 100, -50},
		{"empty prior with activity", 100, 0, 100},
		{"both empty", 0, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := spendChangePct(tt.last90, tt.prior90); !almost(got, tt.want) {
				t.Errorf("spendChangePct(%v, %v) = %v, want %v", tt.last90, tt.prior90, got, tt.want)
			}
		})
	}
}

func TestRunExclusions(t *testing.T) {
	current := currentCustomer("c1", asOf.AddDate(-1, 0, 0))

	declined := tx("t1", "c1", asOf.AddDate(0, 0, -5), 100, "Dining")
	declined.Status = domain.StatusDeclined
	orphan := tx("t2", "ghost", asOf.AddDate(0, 0, -5), 100, "Dining")

	aggs, stats := Run(current, []domain.Transaction{declined, orphan}, asOf)
	if stats.DeclinedSkipped != 1 {
		t.Errorf("DeclinedSkipped = %d, want 1", stats.DeclinedSkipped)
	}
	if stats.OrphanTransactions != 1 {
		t.Errorf("OrphanTransactions = %d, want 1", stats.OrphanTransactions)
	}
	if aggs[0].LifetimeValue != 0 {
		t.Errorf("excluded transactions must not contribute spend, got ltv=%v", aggs[0].LifetimeValue)
	}
}

func TestRunCustomerWithoutTransactions(t *testing.T) {
	current := currentCustomer("c1", asOf.AddDate(0, -3, 0))

	aggs, _ := Run(current, nil, asOf)
	if len(aggs) != 1 {
		t.Fatalf("zero-transaction customers must still get a row, got %d", len(aggs))
	}
	a := aggs[0]
	if a.TransactionCount != 0 || a.FirstTransaction != nil {
		t.Errorf("expected zeroed metrics: %+v", a)
	}
	if a.SpendingConsistency != domain.ConsistencyNone {
		t.Errorf("SpendingConsistency = %q, want %q", a.SpendingConsistency, domain.ConsistencyNone)
	}
	if a.TenureMonths != 3 {
		t.Errorf("TenureMonths = %d, want 3", a.TenureMonths)
	}
}

func TestConsistencyLabels(t *testing.T) {
	build := func(values ...float64) runningStats {
		var s runningStats
		for _, v := range values {
			s.add(v)
		}
		return s
	}

	tests := []struct {
		name   string
		stats  runningStats
		want   string
	}{
		{"single transaction", build(50), domain.ConsistencyNone},
		{"identical values", build(50, 50, 50), domain.ConsistencyVeryConsistent},
		{"wild swings", build(1, 500, 2, 900), domain.ConsistencyHighlyVariable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := consistencyLabel(tt.stats); got != tt.want {
				t.Errorf("consistencyLabel() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRunSingleTransaction(t *testing.T) {
	current := currentCustomer("c1", asOf.AddDate(0, -6, 0))
	facts := []domain.Transaction{
		tx("t1", "c1", asOf.AddDate(0, 0, -5), 75, "Dining"),
	}

	aggs, _ := Run(current, facts, asOf)
	a := aggs[0]
	if a.CustomerAgeDays != 0 {
		t.Errorf("CustomerAgeDays = %d, want 0 for a single active day", a.CustomerAgeDays)
	}
	if a.AvgSpendPerDay != 0 {
		t.Errorf("AvgSpendPerDay = %v, want 0 on a zero-day span", a.AvgSpendPerDay)
	}
	if a.SpendingConsistency != domain.ConsistencyNone {
		t.Errorf("SpendingConsistency = %q, want %q", a.SpendingConsistency, domain.ConsistencyNone)
	}
	if a.StddevTransactionValue != 0 {
		t.Errorf("StddevTransactionValue = %v, want 0 below two samples", a.StddevTransactionValue)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	current := currentCustomer("c1", asOf.AddDate(-2, 0, 0))
	facts := []domain.Transaction{
		tx("t1", "c1", asOf.AddDate(0, 0, -40), 120.5, "Travel"),
		tx("t2", "c1", asOf.AddDate(0, 0, -20), 80.25, "Groceries"),
	}

	first, _ := Run(current, facts, asOf)
	second, _ := Run(current, facts, asOf)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("aggregates differ across identical runs:\n%+v\n%+v", first, second)
	}
}
