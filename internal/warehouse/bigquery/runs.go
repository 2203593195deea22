package bigquery

import (
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"

	"github.com/jpurrutia/customer-analytics/internal/domain"
)

type pipelineRunRow struct {
	RunID string `bigquery:"run_id"` // REQUIRED
	Mode  string `bigquery:"mode"`

	StartedAt  time.Time              `bigquery:"started_ts"`
	FinishedAt bigquery.NullTimestamp `bigquery:"finished_ts"` // NULLABLE

	Status       string `bigquery:"status"`
	ErrorMessage string `bigquery:"error_message"`

	// QualityReport is the serialized per-run quality report.
	QualityReport bigquery.NullJSON `bigquery:"quality_report"` // JSON, NULLABLE
}

func (r *pipelineRunRow) toDomain() (domain.Run, error) {
	run := domain.Run{
		RunID:     r.RunID,
		Mode:      domain.RunMode(r.Mode),
		Status:    domain.RunStatus(r.Status),
		StartedAt: r.StartedAt,
		Error:     r.ErrorMessage,
	}
	if r.FinishedAt.Valid {
		t := r.FinishedAt.Timestamp
		run.FinishedAt = &t
	}
	if r.QualityReport.Valid {
		raw, err := json.Marshal(r.QualityReport.JSONVal)
		if err != nil {
			return domain.Run{}, fmt.Errorf("marshaling quality report: %w", err)
		}
		var report domain.QualityReport
		if err := json.Unmarshal(raw, &report); err != nil {
			return domain.Run{}, fmt.Errorf("unmarshaling quality report: %w", err)
		}
		run.Report = &report
	}
	return run, nil
}
