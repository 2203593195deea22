package domain

import (
	"time"
)

// RunMode selects which stages a pipeline run executes.
type RunMode string

const (
	// RunModeFull rebuilds every derived table from scratch.
	RunModeFull RunMode = "full"
	// RunModeIncremental rebuilds everything except the monthly spend
	// table, which is reprocessed only inside the lookback window.
	RunModeIncremental RunMode = "incremental"
	// RunModeSegments re-runs segmentation and profile assembly from
	// the stored aggregate snapshot without scanning the fact table.
	RunModeSegments RunMode = "segments"
)

// RunStatus is the lifecycle state of a pipeline run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// Run is the audit record of one pipeline execution.
type Run struct {
	RunID      string
	Mode       RunMode
	Status     RunStatus
	StartedAt  time.Time
	FinishedAt *time.Time
	Error      string
	Report     *QualityReport
}

// CheckResult is the outcome of one named invariant check.
type CheckResult struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	// WarnOnly checks report failures without failing the run
	// (e.g. the segment distribution floor, a regression signal
	// rather than an invariant).
	WarnOnly bool   `json:"warn_only"`
	Detail   string `json:"detail,omitempty"`
}

// QualityReport is the machine-readable per-run summary of row
// counts, rejected records and invariant checks.
type QualityReport struct {
	RawTransactions     int64            `json:"raw_transactions"`
	CleanTransactions   int64            `json:"clean_transactions"`
	DuplicatesDropped   int64            `json:"duplicates_dropped"`
	RejectedRecords     int64            `json:"rejected_records"`
	RejectionsByReason  map[string]int64 `json:"rejections_by_reason,omitempty"`
	CustomerSnapshots   int64            `json:"customer_snapshots"`
	DimensionVersions   int64            `json:"dimension_versions"`
	CurrentCustomers    int64            `json:"current_customers"`
	AggregateRows       int64            `json:"aggregate_rows"`
	OrphanTransactions  int64            `json:"orphan_transactions"`
	SegmentCounts       map[string]int64 `json:"segment_counts,omitempty"`
	MonthlyRowsUpserted int64            `json:"monthly_rows_upserted"`
	TrendRows           int64            `json:"trend_rows"`
	LateIgnoredMonths   int64            `json:"late_ignored_months"`

	Checks []CheckResult `json:"checks,omitempty"`
}

// AddCheck appends a named check result.
func (r *QualityReport) AddCheck(name string, passed, warnOnly bool, detail string) {
	r.Checks = append(r.Checks, CheckResult{Name: name, Passed: passed, WarnOnly: warnOnly, Detail: detail})
}

// Failed reports whether any non-advisory check failed.
func (r *QualityReport) Failed() bool {
	for _, c := range r.Checks {
		if !c.Passed && !c.WarnOnly {
			return true
		}
	}
	return false
}
