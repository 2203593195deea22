package bigquery

import (
	"context"
	"fmt"

	"google.golang.org/api/iterator"

	"github.com/jpurrutia/customer-analytics/internal/domain"
)

// AppendRawTransactions implements warehouse.RawStore. The raw log is
// append-only; redelivered duplicates are kept and resolved at
// ingestion time.
func (w *Warehouse) AppendRawTransactions(ctx context.Context, rows []domain.RawTransaction) error {
	batch := make([]interface{}, 0, len(rows))
	for _, r := range rows {
		batch = append(batch, rawTransactionFromDomain(r))
	}
	return w.putAll(ctx, rawTransactionsTable, batch)
}

// ListRawTransactions implements warehouse.RawStore.
func (w *Warehouse) ListRawTransactions(ctx context.Context) ([]domain.RawTransaction, error) {
	q := w.client.Query(`
		SELECT
		  transaction_id, customer_id, ts, amount,
		  merchant_name, merchant_category, channel, status,
		  ingested_at, source_file
		FROM ` + w.table(rawTransactionsTable) + `
		ORDER BY ts, transaction_id
	`)

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListRawTransactions: reading query: %w", err)
	}
	var out []domain.RawTransaction
	for {
		var row rawTransactionRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListRawTransactions: iterating: %w", err)
		}
		out = append(out, row.toDomain())
	}
	return out, nil
}

// AppendCustomerSnapshots implements warehouse.RawStore.
func (w *Warehouse) AppendCustomerSnapshots(ctx context.Context, rows []domain.CustomerSnapshot) error {
	batch := make([]interface{}, 0, len(rows))
	for _, r := range rows {
		batch = append(batch, customerSnapshotFromDomain(r))
	}
	return w.putAll(ctx, rawCustomersTable, batch)
}

// ListCustomerSnapshots implements warehouse.RawStore. Only the
// latest snapshot per customer by ingestion time is returned.
func (w *Warehouse) ListCustomerSnapshots(ctx context.Context) ([]domain.CustomerSnapshot, error) {
	q := w.client.Query(`
		SELECT
		  customer_id, first_name, last_name, email, age, state,
		  card_type, credit_limit, employment_status,
		  account_open_date, effective_date, ingested_at, source_file
		FROM ` + w.table(rawCustomersTable) + `
		QUALIFY ROW_NUMBER() OVER (
		  PARTITION BY customer_id ORDER BY ingested_at DESC
		) = 1
		ORDER BY customer_id
	`)

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListCustomerSnapshots: reading query: %w", err)
	}
	var out []domain.CustomerSnapshot
	for {
		var row customerSnapshotRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListCustomerSnapshots: iterating: %w", err)
		}
		out = append(out, row.toDomain())
	}
	return out, nil
}

// ReplaceChurnScores implements warehouse.RawStore. The score feed is
// a full snapshot, so the previous one is dropped wholesale.
func (w *Warehouse) ReplaceChurnScores(ctx context.Context, rows []domain.ChurnScore) error {
	if err := w.clearTable(ctx, churnScoresTable); err != nil {
		return fmt.Errorf("ReplaceChurnScores: %w", err)
	}
	batch := make([]interface{}, 0, len(rows))
	for _, r := range rows {
		batch = append(batch, &churnScoreRow{CustomerID: r.CustomerID, Score: r.Score, ScoredAt: r.ScoredAt})
	}
	return w.putAll(ctx, churnScoresTable, batch)
}

// ListChurnScores implements warehouse.RawStore.
func (w *Warehouse) ListChurnScores(ctx context.Context) ([]domain.ChurnScore, error) {
	q := w.client.Query(`
		SELECT customer_id, score, scored_at
		FROM ` + w.table(churnScoresTable) + `
		ORDER BY customer_id
	`)

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListChurnScores: reading query: %w", err)
	}
	var out []domain.ChurnScore
	for {
		var row churnScoreRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListChurnScores: iterating: %w", err)
		}
		out = append(out, domain.ChurnScore{CustomerID: row.CustomerID, Score: row.Score, ScoredAt: row.ScoredAt})
	}
	return out, nil
}
