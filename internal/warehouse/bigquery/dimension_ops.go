package bigquery

import (
	"context"
	"fmt"

	"google.golang.org/api/iterator"

	"github.com/jpurrutia/customer-analytics/internal/domain"
)

// ListVersions implements warehouse.DimensionStore. Versions come
// back ordered by customer and validity start.
func (w *Warehouse) ListVersions(ctx context.Context) ([]domain.CustomerVersion, error) {
	q := w.client.Query(`
		SELECT
		  customer_key, customer_id, first_name, last_name, email,
		  age, state, card_type, credit_limit, employment_status,
		  account_open_date, valid_from, valid_to, is_current, updated_at
		FROM ` + w.table(dimCustomersTable) + `
		ORDER BY customer_id, valid_from
	`)

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListVersions: reading query: %w", err)
	}
	var out []domain.CustomerVersion
	for {
		var row customerVersionRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListVersions: iterating: %w", err)
		}
		out = append(out, row.toDomain())
	}
	return out, nil
}

// ReplaceVersions implements warehouse.DimensionStore. The historian
// emits the complete dimension every run, so the swap is a clear plus
// reinsert.
func (w *Warehouse) ReplaceVersions(ctx context.Context, versions []domain.CustomerVersion) error {
	if err := w.clearTable(ctx, dimCustomersTable); err != nil {
		return fmt.Errorf("ReplaceVersions: %w", err)
	}
	batch := make([]interface{}, 0, len(versions))
	for _, v := range versions {
		batch = append(batch, customerVersionFromDomain(v))
	}
	return w.putAll(ctx, dimCustomersTable, batch)
}
