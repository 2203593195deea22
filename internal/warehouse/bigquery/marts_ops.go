package bigquery

import (
	"context"
	"fmt"

	"google.golang.org/api/iterator"

	"github.com/jpurrutia/customer-analytics/internal/domain"
)

// ReplaceFacts implements warehouse.MartStore.
func (w *Warehouse) ReplaceFacts(ctx context.Context, rows []domain.Transaction) error {
	if err := w.clearTable(ctx, factTransactionsTable); err != nil {
		return fmt.Errorf("ReplaceFacts: %w", err)
	}
	batch := make([]interface{}, 0, len(rows))
	for _, r := range rows {
		batch = append(batch, factTransactionFromDomain(r))
	}
	return w.putAll(ctx, factTransactionsTable, batch)
}

// ReplaceAggregates implements warehouse.MartStore.
func (w *Warehouse) ReplaceAggregates(ctx context.Context, rows []domain.CustomerAggregate) error {
	if err := w.clearTable(ctx, aggregatesTable); err != nil {
		return fmt.Errorf("ReplaceAggregates: %w", err)
	}
	batch := make([]interface{}, 0, len(rows))
	for _, r := range rows {
		batch = append(batch, aggregateFromDomain(r))
	}
	return w.putAll(ctx, aggregatesTable, batch)
}

// ListAggregates implements warehouse.MartStore.
func (w *Warehouse) ListAggregates(ctx context.Context) ([]domain.CustomerAggregate, error) {
	q := w.client.Query(`
		SELECT
		  customer_id, customer_key, lifetime_value, transaction_count,
		  first_transaction, last_transaction, customer_age_days,
		  avg_transaction_value, median_transaction_value,
		  stddev_transaction_value, min_transaction_value,
		  max_transaction_value, avg_spend_per_day,
		  spend_last_90_days, spend_prior_90_days, spend_change_pct,
		  avg_monthly_spend, travel_spend_pct, necessities_spend_pct,
		  tenure_months, spending_consistency, computed_at
		FROM ` + w.table(aggregatesTable) + `
		ORDER BY customer_id
	`)

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListAggregates: reading query: %w", err)
	}
	var out []domain.CustomerAggregate
	for {
		var row aggregateRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListAggregates: iterating: %w", err)
		}
		out = append(out, row.toDomain())
	}
	return out, nil
}

// ReplaceSegments implements warehouse.MartStore.
func (w *Warehouse) ReplaceSegments(ctx context.Context, rows []domain.SegmentAssignment) error {
	if err := w.clearTable(ctx, segmentsTable); err != nil {
		return fmt.Errorf("ReplaceSegments: %w", err)
	}
	batch := make([]interface{}, 0, len(rows))
	for _, r := range rows {
		batch = append(batch, segmentFromDomain(r))
	}
	return w.putAll(ctx, segmentsTable, batch)
}

// ListSegments implements warehouse.MartStore.
func (w *Warehouse) ListSegments(ctx context.Context) ([]domain.SegmentAssignment, error) {
	q := w.client.Query(`
		SELECT
		  customer_id, segment, assigned_at,
		  spend_last_90_days, spend_prior_90_days, spend_change_pct,
		  avg_monthly_spend, travel_spend_pct, necessities_spend_pct,
		  tenure_months, lifetime_value
		FROM ` + w.table(segmentsTable) + `
		ORDER BY customer_id
	`)

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListSegments: reading query: %w", err)
	}
	var out []domain.SegmentAssignment
	for {
		var row segmentRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListSegments: iterating: %w", err)
		}
		out = append(out, row.toDomain())
	}
	return out, nil
}

// ReplaceProfiles implements warehouse.MartStore.
func (w *Warehouse) ReplaceProfiles(ctx context.Context, rows []domain.CustomerProfile) error {
	if err := w.clearTable(ctx, profilesTable); err != nil {
		return fmt.Errorf("ReplaceProfiles: %w", err)
	}
	batch := make([]interface{}, 0, len(rows))
	for _, r := range rows {
		batch = append(batch, profileFromDomain(r))
	}
	return w.putAll(ctx, profilesTable, batch)
}

// ListProfiles implements warehouse.MartStore.
func (w *Warehouse) ListProfiles(ctx context.Context) ([]domain.CustomerProfile, error) {
	q := w.client.Query(`
		SELECT
		  customer_id, customer_key, full_name, email, age, state,
		  card_type, credit_limit, lifetime_value, transaction_count,
		  avg_transaction_value, avg_monthly_spend,
		  spend_last_90_days, spend_prior_90_days, spend_change_pct,
		  travel_spend_pct, necessities_spend_pct, tenure_months,
		  spending_consistency, segment, churn_risk_score,
		  churn_risk_category, retention_eligible, onboarding_eligible,
		  premium_eligible
		FROM ` + w.table(profilesTable) + `
		ORDER BY customer_id
	`)

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListProfiles: reading query: %w", err)
	}
	var out []domain.CustomerProfile
	for {
		var row profileRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListProfiles: iterating: %w", err)
		}
		out = append(out, row.toDomain())
	}
	return out, nil
}
