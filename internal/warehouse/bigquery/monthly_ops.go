package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"google.golang.org/api/iterator"

	"github.com/jpurrutia/customer-analytics/internal/domain"
)

// monthlyMergeRow is the MERGE source element. Field names are
// referenced directly in the MERGE statement, so renames here must be
// mirrored there.
type monthlyMergeRow struct {
	CustomerID          string
	Month               civil.Date
	TotalSpend          float64
	TransactionCount    int64
	AvgTransactionValue float64
	FirstTransaction    time.Time
	LastTransaction     time.Time
	MaterializedAt      time.Time
}

// UpsertMonthly implements warehouse.MartStore with a single MERGE on
// the (customer_id, month) grain, so one statement atomically updates
// rewritten months and inserts new ones.
func (w *Warehouse) UpsertMonthly(ctx context.Context, rows []domain.MonthlySpend) error {
	if len(rows) == 0 {
		return nil
	}
	src := make([]monthlyMergeRow, 0, len(rows))
	for _, m := range rows {
		src = append(src, monthlyMergeRow{
			CustomerID:          m.CustomerID,
			Month:               civil.DateOf(m.Month.UTC()),
			TotalSpend:          m.TotalSpend,
			TransactionCount:    m.TransactionCount,
			AvgTransactionValue: m.AvgTransactionValue,
			FirstTransaction:    m.FirstTransaction,
			LastTransaction:     m.LastTransaction,
			MaterializedAt:      m.MaterializedAt,
		})
	}

	q := w.client.Query(`
		MERGE ` + w.table(monthlySpendTable) + ` AS t
		USING UNNEST(@rows) AS s
		ON t.customer_id = s.CustomerID AND t.month = s.Month
		WHEN MATCHED THEN UPDATE SET
		  total_spend = s.TotalSpend,
		  transaction_count = s.TransactionCount,
		  avg_transaction_value = s.AvgTransactionValue,
		  first_transaction = s.FirstTransaction,
		  last_transaction = s.LastTransaction,
		  materialized_at = s.MaterializedAt
		WHEN NOT MATCHED THEN INSERT (
		  customer_id, month, total_spend, transaction_count,
		  avg_transaction_value, first_transaction, last_transaction,
		  materialized_at
		) VALUES (
		  s.CustomerID, s.Month, s.TotalSpend, s.TransactionCount,
		  s.AvgTransactionValue, s.FirstTransaction, s.LastTransaction,
		  s.MaterializedAt
		)
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "rows", Value: src},
	}

	if err := runDML(ctx, q); err != nil {
		return fmt.Errorf("UpsertMonthly: %w", err)
	}
	return nil
}

// ReplaceMonthly implements warehouse.MartStore.
func (w *Warehouse) ReplaceMonthly(ctx context.Context, rows []domain.MonthlySpend) error {
	if err := w.clearTable(ctx, monthlySpendTable); err != nil {
		return fmt.Errorf("ReplaceMonthly: %w", err)
	}
	batch := make([]interface{}, 0, len(rows))
	for _, r := range rows {
		batch = append(batch, monthlySpendFromDomain(r))
	}
	return w.putAll(ctx, monthlySpendTable, batch)
}

// ListMonthly implements warehouse.MartStore.
func (w *Warehouse) ListMonthly(ctx context.Context) ([]domain.MonthlySpend, error) {
	q := w.client.Query(`
		SELECT
		  customer_id, month, total_spend, transaction_count,
		  avg_transaction_value, first_transaction, last_transaction,
		  materialized_at
		FROM ` + w.table(monthlySpendTable) + `
		ORDER BY customer_id, month
	`)

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListMonthly: reading query: %w", err)
	}
	var out []domain.MonthlySpend
	for {
		var row monthlySpendRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListMonthly: iterating: %w", err)
		}
		out = append(out, row.toDomain())
	}
	return out, nil
}

// ReplaceTrends implements warehouse.MartStore.
func (w *Warehouse) ReplaceTrends(ctx context.Context, rows []domain.TrendRow) error {
	if err := w.clearTable(ctx, trendsTable); err != nil {
		return fmt.Errorf("ReplaceTrends: %w", err)
	}
	batch := make([]interface{}, 0, len(rows))
	for _, r := range rows {
		batch = append(batch, trendFromDomain(r))
	}
	return w.putAll(ctx, trendsTable, batch)
}

// ListTrends implements warehouse.MartStore.
func (w *Warehouse) ListTrends(ctx context.Context) ([]domain.TrendRow, error) {
	q := w.client.Query(`
		SELECT
		  customer_id, month, monthly_spend, prior_month_spend,
		  mom_change_pct, trend_category
		FROM ` + w.table(trendsTable) + `
		ORDER BY customer_id, month
	`)

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListTrends: reading query: %w", err)
	}
	var out []domain.TrendRow
	for {
		var row trendRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListTrends: iterating: %w", err)
		}
		out = append(out, row.toDomain())
	}
	return out, nil
}
