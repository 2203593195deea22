package memory

import (
	"context"
	"testing"
	"time"

	"github.com/jpurrutia/customer-analytics/internal/domain"
)

func TestSnapshotLatestPerCustomerWins(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	older := domain.CustomerSnapshot{CustomerID: "c1", Email: "old@example.com", IngestedAt: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)}
	newer := domain.CustomerSnapshot{CustomerID: "c1", Email: "new@example.com", IngestedAt: time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)}

	if err := store.AppendCustomerSnapshots(ctx, []domain.CustomerSnapshot{newer, older}); err != nil {
		t.Fatalf("append: %v", err)
	}
	snaps, err := store.ListCustomerSnapshots(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(snaps) != 1 || snaps[0].Email != "new@example.com" {
		t.Errorf("latest snapshot must win: %+v", snaps)
	}

	if err := store.AppendCustomerSnapshots(ctx, []domain.CustomerSnapshot{{Email: "noid@example.com"}}); err == nil {
		t.Error("snapshot without a customer id must be rejected")
	}
}

func TestMonthlyGrain(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	jan := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	rows := []domain.MonthlySpend{
		{CustomerID: "c1", Month: jan, TotalSpend: 10},
		{CustomerID: "c1", Month: feb, TotalSpend: 20},
	}
	if err := store.UpsertMonthly(ctx, rows); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	// Same grain key replaces, never duplicates.
	if err := store.UpsertMonthly(ctx, []domain.MonthlySpend{{CustomerID: "c1", Month: feb, TotalSpend: 25}}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	monthly, _ := store.ListMonthly(ctx)
	if len(monthly) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(monthly))
	}
	if monthly[1].TotalSpend != 25 {
		t.Errorf("upsert must replace in place: %+v", monthly[1])
	}

	if err := store.ReplaceMonthly(ctx, []domain.MonthlySpend{{CustomerID: "c2", Month: jan, TotalSpend: 5}}); err != nil {
		t.Fatalf("replace: %v", err)
	}
	monthly, _ = store.ListMonthly(ctx)
	if len(monthly) != 1 || monthly[0].CustomerID != "c2" {
		t.Errorf("replace must drop prior rows: %+v", monthly)
	}
}

func TestRunLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	run := domain.Run{RunID: "r1", Mode: domain.RunModeFull, Status: domain.RunStatusRunning, StartedAt: time.Now().UTC()}
	if err := store.StartRun(ctx, run); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := store.StartRun(ctx, domain.Run{}); err == nil {
		t.Error("a run without an id must be rejected")
	}

	report := &domain.QualityReport{CleanTransactions: 42}
	if err := store.FinishRun(ctx, "r1", domain.RunStatusSucceeded, "", report); err != nil {
		t.Fatalf("finish: %v", err)
	}
	if err := store.FinishRun(ctx, "missing", domain.RunStatusFailed, "boom", nil); err == nil {
		t.Error("finishing an unknown run must fail")
	}

	runs, err := store.ListRuns(ctx, 10)
	if err != nil || len(runs) != 1 {
		t.Fatalf("list: %v %d", err, len(runs))
	}
	got := runs[0]
	if got.Status != domain.RunStatusSucceeded || got.FinishedAt == nil {
		t.Errorf("run not finalized: %+v", got)
	}
	if got.Report == nil || got.Report.CleanTransactions != 42 {
		t.Errorf("report not recorded: %+v", got.Report)
	}
}
