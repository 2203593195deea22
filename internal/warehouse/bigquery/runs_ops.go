package bigquery

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/jpurrutia/customer-analytics/internal/domain"
)

// StartRun implements warehouse.RunStore. The row is written with
// parameterized DML so it is immediately visible to status queries.
func (w *Warehouse) StartRun(ctx context.Context, run domain.Run) error {
	q := w.client.Query(`
		INSERT ` + w.table(pipelineRunsTable) + ` (
		  run_id, mode, started_ts, status, error_message
		)
		VALUES (
		  @run_id, @mode, @started_ts, @status, ""
		)
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "run_id", Value: run.RunID},
		{Name: "mode", Value: string(run.Mode)},
		{Name: "started_ts", Value: run.StartedAt},
		{Name: "status", Value: string(run.Status)},
	}

	if err := runDML(ctx, q); err != nil {
		return fmt.Errorf("StartRun: %w", err)
	}
	return nil
}

// FinishRun implements warehouse.RunStore.
func (w *Warehouse) FinishRun(ctx context.Context, runID string, status domain.RunStatus, errMsg string, report *domain.QualityReport) error {
	reportJSON := "null"
	if report != nil {
		raw, err := json.Marshal(report)
		if err != nil {
			return fmt.Errorf("FinishRun: marshaling quality report: %w", err)
		}
		reportJSON = string(raw)
	}

	const maxErrLen = 2000
	if len(errMsg) > maxErrLen {
		errMsg = errMsg[:maxErrLen]
	}

	q := w.client.Query(`
		UPDATE ` + w.table(pipelineRunsTable) + `
		SET status = @status,
		    finished_ts = @finished_ts,
		    error_message = @error_message,
		    quality_report = PARSE_JSON(@report_json)
		WHERE run_id = @run_id
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: string(status)},
		{Name: "finished_ts", Value: time.Now().UTC()},
		{Name: "error_message", Value: errMsg},
		{Name: "report_json", Value: reportJSON},
		{Name: "run_id", Value: runID},
	}

	if err := runDML(ctx, q); err != nil {
		return fmt.Errorf("FinishRun: %w", err)
	}
	return nil
}

// ListRuns implements warehouse.RunStore, newest first.
func (w *Warehouse) ListRuns(ctx context.Context, limit int) ([]domain.Run, error) {
	q := w.client.Query(fmt.Sprintf(`
		SELECT
		  run_id, mode, started_ts, finished_ts, status,
		  error_message, quality_report
		FROM `+w.table(pipelineRunsTable)+`
		ORDER BY started_ts DESC
		LIMIT %d
	`, limit))

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListRuns: reading query: %w", err)
	}
	var out []domain.Run
	for {
		var row pipelineRunRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListRuns: iterating: %w", err)
		}
		run, err := row.toDomain()
		if err != nil {
			return nil, fmt.Errorf("ListRuns: %w", err)
		}
		out = append(out, run)
	}
	return out, nil
}
