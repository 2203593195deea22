// Package bigquery implements the warehouse interfaces on Google
// BigQuery: one table per store collection, replace semantics as
// DELETE plus batched insert, the monthly upsert as a single MERGE.
package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"

	"github.com/jpurrutia/customer-analytics/internal/warehouse"
)

// Table names within the analytics dataset.
const (
	rawTransactionsTable  = "raw_transactions"
	rawCustomersTable     = "raw_customer_snapshots"
	churnScoresTable      = "churn_scores"
	dimCustomersTable     = "dim_customers"
	factTransactionsTable = "fact_transactions"
	aggregatesTable       = "customer_aggregates"
	segmentsTable         = "customer_segments"
	profilesTable         = "customer_profiles"
	monthlySpendTable     = "monthly_spend"
	trendsTable           = "spending_trends"
	pipelineRunsTable     = "pipeline_runs"
)

// Warehouse is the BigQuery-backed warehouse.Store implementation.
// It holds one shared client for the life of the process.
type Warehouse struct {
	client    *bigquery.Client
	projectID string
	dataset   string
}

var _ warehouse.Store = (*Warehouse)(nil)

// New creates a Warehouse against the given project and dataset.
func New(ctx context.Context, projectID, dataset string) (*Warehouse, error) {
	if projectID == "" {
		return nil, fmt.Errorf("bigquery warehouse: project id is required")
	}
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("bigquery warehouse: creating client: %w", err)
	}
	return &Warehouse{client: client, projectID: projectID, dataset: dataset}, nil
}

// Close releases the underlying client.
func (w *Warehouse) Close() error {
	if w.client != nil {
		return w.client.Close()
	}
	return nil
}

// table returns the fully qualified, backtick-quoted table reference.
func (w *Warehouse) table(name string) string {
	return "`" + w.projectID + "." + w.dataset + "." + name + "`"
}

// runDML executes a DML query and waits for the job to finish.
func runDML(ctx context.Context, q *bigquery.Query) error {
	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("running query: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("job error: %w", err)
	}
	return nil
}

// clearTable removes every row from a table.
func (w *Warehouse) clearTable(ctx context.Context, name string) error {
	q := w.client.Query(`DELETE FROM ` + w.table(name) + ` WHERE TRUE`)
	if err := runDML(ctx, q); err != nil {
		return fmt.Errorf("clearing %s: %w", name, err)
	}
	return nil
}

// insertBatchSize bounds one streaming insert request.
const insertBatchSize = 500

// putAll streams rows to a table in bounded batches.
func (w *Warehouse) putAll(ctx context.Context, name string, rows []interface{}) error {
	ins := w.client.Dataset(w.dataset).Table(name).Inserter()
	for start := 0; start < len(rows); start += insertBatchSize {
		end := start + insertBatchSize
		if end > len(rows) {
			end = len(rows)
		}
		if err := ins.Put(ctx, rows[start:end]); err != nil {
			return fmt.Errorf("inserting into %s: %w", name, err)
		}
	}
	return nil
}
