package ingest

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestFetchBatchLocalFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "txns.csv")
	if err := os.WriteFile(file, []byte("transaction_id,amount\nt1,10.50\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Run("reads local path", func(t *testing.T) {
		data, err := FetchBatch(context.Background(), file)
		if err != nil {
			t.Fatalf("FetchBatch: %v", err)
		}
		if !strings.HasPrefix(string(data), "transaction_id") {
			t.Errorf("unexpected contents: %q", data)
		}
	})

	t.Run("missing file errors", func(t *testing.T) {
		if _, err := FetchBatch(context.Background(), filepath.Join(dir, "missing.csv")); err == nil {
			t.Error("expected error for missing file")
		}
	})
}

func TestSourceTag(t *testing.T) {
	cases := map[string]string{
		"gs://bucket/batches/txns_2026_08.csv": "txns_2026_08.csv",
		"/data/loads/customers.csv":            "customers.csv",
		"churn.csv":                            "churn.csv",
	}
	for uri, want := range cases {
		if got := SourceTag(uri); got != want {
			t.Errorf("SourceTag(%q) = %q, want %q", uri, got, want)
		}
	}
}

func TestParseTransactionsCSV(t *testing.T) {
	ingestedAt := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	csvBody := strings.Join([]string{
		"transaction_id,customer_id,timestamp,amount,merchant_name,merchant_category,channel,status",
		"t1,c1,2026-07-15 09:30:00,42.75,Coffee Hut,Dining,in_store,completed",
		"t2,c1,2026-07-16,not-a-number,Webshop,Shopping,online,completed",
	}, "\n")

	rows, err := ParseTransactionsCSV(strings.NewReader(csvBody), "batch_07.csv", ingestedAt)
	if err != nil {
		t.Fatalf("ParseTransactionsCSV: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}

	first := rows[0]
	if first.TransactionID != "t1" || first.CustomerID != "c1" {
		t.Errorf("ids = %s/%s", first.TransactionID, first.CustomerID)
	}
	if first.Amount != 42.75 {
		t.Errorf("amount = %v, want 42.75", first.Amount)
	}
	if !first.Timestamp.Equal(time.Date(2026, 7, 15, 9, 30, 0, 0, time.UTC)) {
		t.Errorf("timestamp = %v", first.Timestamp)
	}
	if first.SourceFile != "batch_07.csv" || !first.IngestedAt.Equal(ingestedAt) {
		t.Errorf("provenance = %s/%v", first.SourceFile, first.IngestedAt)
	}

	// Unparsable amounts come through as NaN for the cleaner to reject.
	if !math.IsNaN(rows[1].Amount) {
		t.Errorf("bad amount = %v, want NaN", rows[1].Amount)
	}
}

func TestParseCustomersCSV(t *testing.T) {
	ingestedAt := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	csvBody := strings.Join([]string{
		"customer_id,first_name,last_name,email,age,state,card_type,credit_limit,employment_status,account_open_date,effective_date",
		"c1,Ana,Reyes,ana@example.com,34,TX,gold,12000,employed,2024-02-01,2026-07-01",
	}, "\n")

	rows, err := ParseCustomersCSV(strings.NewReader(csvBody), "customers_07.csv", ingestedAt)
	if err != nil {
		t.Fatalf("ParseCustomersCSV: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	row := rows[0]
	if row.CustomerID != "c1" || row.Age != 34 || row.CreditLimit != 12000 {
		t.Errorf("row = %+v", row)
	}
	if !row.EffectiveDate.Equal(time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("effective date = %v", row.EffectiveDate)
	}
}

func TestParseChurnScoresCSV(t *testing.T) {
	csvBody := strings.Join([]string{
		"customer_id,churn_risk_score,scored_at",
		"c1,82.5,2026-07-31",
		"c2,,2026-07-31",
		",50,2026-07-31",
	}, "\n")

	rows, err := ParseChurnScoresCSV(strings.NewReader(csvBody))
	if err != nil {
		t.Fatalf("ParseChurnScoresCSV: %v", err)
	}
	// Rows without a parsable score or a customer id are skipped.
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if rows[0].CustomerID != "c1" || rows[0].Score != 82.5 {
		t.Errorf("row = %+v", rows[0])
	}
}
