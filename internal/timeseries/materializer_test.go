package timeseries

import (
	"testing"
	"time"

	"github.com/jpurrutia/customer-analytics/internal/domain"
)

var runAt = time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)

func tx(customerID string, ts time.Time, amount float64) domain.Transaction {
	return domain.Transaction{
		TransactionID: customerID + "-" + ts.Format("20060102T150405"),
		CustomerID:    customerID,
		Timestamp:     ts,
		Amount:        amount,
		Status:        domain.StatusApproved,
		IngestedAt:    runAt.Add(-time.Hour),
	}
}

func month(y int, m time.Month) time.Time {
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

func TestBuildFull(t *testing.T) {
	facts := []domain.Transaction{
		tx("c1", time.Date(2026, 4, 3, 10, 0, 0, 0, time.UTC), 100),
		tx("c1", time.Date(2026, 4, 20, 9, 0, 0, 0, time.UTC), 50),
		tx("c1", time.Date(2026, 5, 2, 8, 0, 0, 0, time.UTC), 30),
		tx("c2", time.Date(2026, 4, 15, 7, 0, 0, 0, time.UTC), 200),
	}
	declined := tx("c1", time.Date(2026, 4, 10, 0, 0, 0, 0, time.UTC), 999)
	declined.Status = domain.StatusDeclined
	facts = append(facts, declined)

	plan := Materializer{LookbackMonths: 2}.BuildFull(facts, runAt)

	if !plan.FullRebuild {
		t.Errorf("full build must set FullRebuild")
	}
	if plan.LateIgnoredMonths != 0 {
		t.Errorf("LateIgnoredMonths = %d, want 0", plan.LateIgnoredMonths)
	}
	if len(plan.Rows) != 3 {
		t.Fatalf("expected 3 rows, got %d: %+v", len(plan.Rows), plan.Rows)
	}

	// Ordered by (customer_id, month).
	first := plan.Rows[0]
	if first.CustomerID != "c1" || !first.Month.Equal(month(2026, time.April)) {
		t.Fatalf("unexpected first row: %+v", first)
	}
	if first.TotalSpend != 150 || first.TransactionCount != 2 {
		t.Errorf("April totals wrong: %+v", first)
	}
	if first.AvgTransactionValue != 75 {
		t.Errorf("AvgTransactionValue = %v, want 75", first.AvgTransactionValue)
	}
	if first.FirstTransaction.Day() != 3 || first.LastTransaction.Day() != 20 {
		t.Errorf("first/last transaction wrong: %+v", first)
	}
	if !first.MaterializedAt.Equal(runAt) {
		t.Errorf("MaterializedAt = %v, want %v", first.MaterializedAt, runAt)
	}

	if plan.Rows[1].CustomerID != "c1" || !plan.Rows[1].Month.Equal(month(2026, time.May)) {
		t.Errorf("unexpected second row: %+v", plan.Rows[1])
	}
	if plan.Rows[2].CustomerID != "c2" {
		t.Errorf("unexpected third row: %+v", plan.Rows[2])
	}
}

func TestBuildIncrementalEmptyTable(t *testing.T) {
	facts := []domain.Transaction{
		tx("c1", time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC), 10),
	}
	plan := Materializer{LookbackMonths: 2}.BuildIncremental(facts, nil, runAt)
	if !plan.FullRebuild {
		t.Errorf("empty target table must fall back to a full build")
	}
	if len(plan.Rows) != 1 {
		t.Errorf("expected 1 row, got %d", len(plan.Rows))
	}
}

func TestBuildIncrementalWindow(t *testing.T) {
	existing := []domain.MonthlySpend{
		{CustomerID: "c1", Month: month(2026, time.February), TotalSpend: 80, MaterializedAt: runAt.AddDate(0, -2, 0)},
		{CustomerID: "c1", Month: month(2026, time.May), TotalSpend: 40, MaterializedAt: runAt.AddDate(0, -1, 0)},
	}
	// High water is May, lookback 2 puts the window start at March.
	facts := []domain.Transaction{
		tx("c1", time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC), 80),
		tx("c1", time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC), 25),
		tx("c1", time.Date(2026, 5, 9, 0, 0, 0, 0, time.UTC), 40),
		tx("c1", time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC), 70),
	}
	// The February transaction predates its row's write, so it does
	// not count as a late arrival.
	facts[0].IngestedAt = runAt.AddDate(0, -3, 0)

	plan := Materializer{LookbackMonths: 2}.BuildIncremental(facts, existing, runAt)

	if plan.FullRebuild {
		t.Errorf("incremental plan must not set FullRebuild")
	}
	if !plan.WindowStart.Equal(month(2026, time.March)) {
		t.Errorf("WindowStart = %v, want 2026-03-01", plan.WindowStart)
	}
	if plan.LateIgnoredMonths != 0 {
		t.Errorf("LateIgnoredMonths = %d, want 0", plan.LateIgnoredMonths)
	}

	months := make([]time.Time, 0, len(plan.Rows))
	for _, row := range plan.Rows {
		months = append(months, row.Month)
	}
	if len(months) != 3 {
		t.Fatalf("expected March, May, June rows, got %v", months)
	}
	if !months[0].Equal(month(2026, time.March)) || !months[2].Equal(month(2026, time.June)) {
		t.Errorf("window months wrong: %v", months)
	}
}

func TestBuildIncrementalCountsLateArrivals(t *testing.T) {
	existing := []domain.MonthlySpend{
		{CustomerID: "c1", Month: month(2026, time.January), MaterializedAt: runAt.AddDate(0, -4, 0)},
		{CustomerID: "c1", Month: month(2026, time.June), MaterializedAt: runAt.AddDate(0, 0, -7)},
	}
	// Window start is April. Late facts: one for the already written
	// January row, ingested after it was written, and one for a March
	// month that was never materialized at all.
	late1 := tx("c1", time.Date(2026, 1, 20, 0, 0, 0, 0, time.UTC), 5)
	late1.IngestedAt = runAt.Add(-time.Minute)
	late2 := tx("c1", time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC), 5)
	inWindow := tx("c1", time.Date(2026, 6, 2, 0, 0, 0, 0, time.UTC), 60)

	plan := Materializer{LookbackMonths: 2}.BuildIncremental(
		[]domain.Transaction{late1, late2, inWindow}, existing, runAt)

	if plan.LateIgnoredMonths != 2 {
		t.Errorf("LateIgnoredMonths = %d, want 2", plan.LateIgnoredMonths)
	}
	if len(plan.Rows) != 1 || !plan.Rows[0].Month.Equal(month(2026, time.June)) {
		t.Errorf("only the June row should be rebuilt: %+v", plan.Rows)
	}
}

func TestIncrementalMatchesFullInsideWindow(t *testing.T) {
	facts := []domain.Transaction{
		tx("c1", time.Date(2026, 5, 3, 0, 0, 0, 0, time.UTC), 10),
		tx("c1", time.Date(2026, 5, 9, 0, 0, 0, 0, time.UTC), 20),
		tx("c1", time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC), 30),
		tx("c2", time.Date(2026, 6, 12, 0, 0, 0, 0, time.UTC), 40),
	}
	existing := []domain.MonthlySpend{
		{CustomerID: "c1", Month: month(2026, time.June), MaterializedAt: runAt.AddDate(0, 0, -1)},
	}

	m := Materializer{LookbackMonths: 3}
	full := m.BuildFull(facts, runAt)
	incr := m.BuildIncremental(facts, existing, runAt)

	// The window covers every fact month, so both plans produce the
	// same row set.
	if len(full.Rows) != len(incr.Rows) {
		t.Fatalf("row counts differ: full %d, incremental %d", len(full.Rows), len(incr.Rows))
	}
	for i := range full.Rows {
		f, n := full.Rows[i], incr.Rows[i]
		if f.CustomerID != n.CustomerID || !f.Month.Equal(n.Month) || f.TotalSpend != n.TotalSpend || f.TransactionCount != n.TransactionCount {
			t.Errorf("row %d differs: full %+v, incremental %+v", i, f, n)
		}
	}
}

func TestBuildIncrementalAbsorbsLateArrivalInsideWindow(t *testing.T) {
	existing := []domain.MonthlySpend{
		{CustomerID: "c1", Month: month(2026, time.April), TotalSpend: 30, TransactionCount: 1, MaterializedAt: runAt.AddDate(0, 0, -10)},
		{CustomerID: "c1", Month: month(2026, time.May), TotalSpend: 90, TransactionCount: 2, MaterializedAt: runAt.AddDate(0, 0, -10)},
	}
	facts := []domain.Transaction{
		tx("c1", time.Date(2026, 4, 6, 0, 0, 0, 0, time.UTC), 30),
		tx("c1", time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC), 40),
		tx("c1", time.Date(2026, 5, 19, 0, 0, 0, 0, time.UTC), 50),
	}
	// One more April transaction landed after the last run.
	late := tx("c1", time.Date(2026, 4, 28, 0, 0, 0, 0, time.UTC), 25)
	late.IngestedAt = runAt.Add(-time.Minute)
	facts = append(facts, late)

	plan := Materializer{LookbackMonths: 2}.BuildIncremental(facts, existing, runAt)
	if plan.LateIgnoredMonths != 0 {
		t.Errorf("April is inside the window, nothing was ignored: %d", plan.LateIgnoredMonths)
	}

	merged := MergeMonthly(existing, plan.Rows)
	if len(merged) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(merged))
	}
	april, may := merged[0], merged[1]
	if april.TotalSpend != 55 || april.TransactionCount != 2 {
		t.Errorf("April must gain exactly the late amount: %+v", april)
	}
	if may.TotalSpend != 90 || may.TransactionCount != 2 {
		t.Errorf("May must be unchanged: %+v", may)
	}
}

func TestMergeMonthly(t *testing.T) {
	existing := []domain.MonthlySpend{
		{CustomerID: "c1", Month: month(2026, time.April), TotalSpend: 100},
		{CustomerID: "c1", Month: month(2026, time.May), TotalSpend: 50},
	}
	upserts := []domain.MonthlySpend{
		{CustomerID: "c1", Month: month(2026, time.May), TotalSpend: 75},
		{CustomerID: "c2", Month: month(2026, time.May), TotalSpend: 10},
	}

	merged := MergeMonthly(existing, upserts)
	if len(merged) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(merged))
	}
	if merged[0].TotalSpend != 100 {
		t.Errorf("untouched April row changed: %+v", merged[0])
	}
	if merged[1].TotalSpend != 75 {
		t.Errorf("upsert must win on collision: %+v", merged[1])
	}
	if merged[2].CustomerID != "c2" {
		t.Errorf("new customer row missing: %+v", merged)
	}
}
