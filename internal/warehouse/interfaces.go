// Package warehouse defines the storage interfaces the pipeline runs
// against. Implementations: warehouse/bigquery for the real warehouse,
// warehouse/memory for tests and local runs.
package warehouse

import (
	"context"

	"github.com/jpurrutia/customer-analytics/internal/domain"
)

// RawStore holds the append-only raw inputs: transaction batches,
// customer snapshot loads and externally computed churn scores.
type RawStore interface {
	// AppendRawTransactions appends a raw batch. Duplicates are
	// permitted; deduplication happens at ingestion time.
	AppendRawTransactions(ctx context.Context, rows []domain.RawTransaction) error
	ListRawTransactions(ctx context.Context) ([]domain.RawTransaction, error)

	AppendCustomerSnapshots(ctx context.Context, rows []domain.CustomerSnapshot) error
	// ListCustomerSnapshots returns the latest snapshot per customer.
	ListCustomerSnapshots(ctx context.Context) ([]domain.CustomerSnapshot, error)

	ReplaceChurnScores(ctx context.Context, rows []domain.ChurnScore) error
	ListChurnScores(ctx context.Context) ([]domain.ChurnScore, error)
}

// DimensionStore owns the historized customer dimension. Only the
// dimension historian writes it.
type DimensionStore interface {
	ListVersions(ctx context.Context) ([]domain.CustomerVersion, error)
	// ReplaceVersions publishes the full versioned dimension produced
	// by a historian run.
	ReplaceVersions(ctx context.Context, versions []domain.CustomerVersion) error
}

// MartStore holds the derived, queryable outputs.
type MartStore interface {
	ReplaceFacts(ctx context.Context, rows []domain.Transaction) error

	ReplaceAggregates(ctx context.Context, rows []domain.CustomerAggregate) error
	ListAggregates(ctx context.Context) ([]domain.CustomerAggregate, error)

	ReplaceSegments(ctx context.Context, rows []domain.SegmentAssignment) error
	ListSegments(ctx context.Context) ([]domain.SegmentAssignment, error)

	ReplaceProfiles(ctx context.Context, rows []domain.CustomerProfile) error
	ListProfiles(ctx context.Context) ([]domain.CustomerProfile, error)

	// UpsertMonthly inserts or replaces rows by (customer_id, month).
	// The unique grain is enforced by the store, not pre-checked by
	// callers.
	UpsertMonthly(ctx context.Context, rows []domain.MonthlySpend) error
	// ReplaceMonthly swaps the entire monthly table, used by full
	// rebuilds so months absent from the new state do not linger.
	ReplaceMonthly(ctx context.Context, rows []domain.MonthlySpend) error
	ListMonthly(ctx context.Context) ([]domain.MonthlySpend, error)

	ReplaceTrends(ctx context.Context, rows []domain.TrendRow) error
	ListTrends(ctx context.Context) ([]domain.TrendRow, error)
}

// RunStore records pipeline run lifecycle and quality reports.
type RunStore interface {
	StartRun(ctx context.Context, run domain.Run) error
	FinishRun(ctx context.Context, runID string, status domain.RunStatus, errMsg string, report *domain.QualityReport) error
	ListRuns(ctx context.Context, limit int) ([]domain.Run, error)
}

// Store is the full warehouse surface a pipeline run needs.
type Store interface {
	RawStore
	DimensionStore
	MartStore
	RunStore

	Close() error
}
