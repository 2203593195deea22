package ingest

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/storage"

	"github.com/jpurrutia/customer-analytics/internal/domain"
)

// FetchBatch reads a raw batch file. URIs starting with gs:// are
// fetched from Cloud Storage (Application Default Credentials);
// anything else is treated as a local path.
func FetchBatch(ctx context.Context, uri string) ([]byte, error) {
	if strings.HasPrefix(uri, "gs://") {
		return fetchFromGCS(ctx, uri)
	}
	data, err := os.ReadFile(uri)
	if err != nil {
		return nil, fmt.Errorf("FetchBatch: reading local file %q: %w", uri, err)
	}
	return data, nil
}

func fetchFromGCS(ctx context.Context, gcsURI string) ([]byte, error) {
	trimmed := strings.TrimPrefix(gcsURI, "gs://")
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("fetchFromGCS: invalid GCS URI (no object path): %s", gcsURI)
	}
	bucketName := parts[0]
	objectPath := parts[1]

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetchFromGCS: creating storage client: %w", err)
	}
	defer client.Close()

	rc, err := client.Bucket(bucketName).Object(objectPath).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetchFromGCS: reading object %s/%s: %w", bucketName, objectPath, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("fetchFromGCS: reading bytes: %w", err)
	}
	return data, nil
}

// SourceTag extracts the file name from a batch URI.
// e.g. "gs://bucket/batches/txns_2026_08.csv" -> "txns_2026_08.csv"
func SourceTag(uri string) string {
	trimmed := strings.TrimPrefix(uri, "gs://")
	return path.Base(trimmed)
}

// ParseTransactionsCSV decodes a raw transaction batch. Expected
// header: transaction_id,customer_id,timestamp,amount,merchant_name,
// merchant_category,channel,status. Unparsable numeric fields are
// carried through as NaN so the cleaner can reject them with
// accounting instead of the parser dropping rows silently.
func ParseTransactionsCSV(r io.Reader, sourceFile string, ingestedAt time.Time) ([]domain.RawTransaction, error) {
	header, records, err := readCSV(r)
	if err != nil {
		return nil, fmt.Errorf("ParseTransactionsCSV: %w", err)
	}

	var rows []domain.RawTransaction
	for _, rec := range records {
		get := fieldGetter(header, rec)
		rows = append(rows, domain.RawTransaction{
			TransactionID:    get("transaction_id"),
			CustomerID:       get("customer_id"),
			Timestamp:        parseTimestamp(get("timestamp")),
			Amount:           parseAmount(get("amount")),
			MerchantName:     get("merchant_name"),
			MerchantCategory: get("merchant_category"),
			Channel:          get("channel"),
			Status:           get("status"),
			IngestedAt:       ingestedAt,
			SourceFile:       sourceFile,
		})
	}
	return rows, nil
}

// ParseCustomersCSV decodes a customer snapshot load. Expected header:
// customer_id,first_name,last_name,email,age,state,card_type,
// credit_limit,employment_status,account_open_date,effective_date.
func ParseCustomersCSV(r io.Reader, sourceFile string, ingestedAt time.Time) ([]domain.CustomerSnapshot, error) {
	header, records, err := readCSV(r)
	if err != nil {
		return nil, fmt.Errorf("ParseCustomersCSV: %w", err)
	}

	var rows []domain.CustomerSnapshot
	for _, rec := range records {
		get := fieldGetter(header, rec)
		age, _ := strconv.Atoi(get("age"))
		creditLimit, _ := strconv.ParseFloat(get("credit_limit"), 64)
		rows = append(rows, domain.CustomerSnapshot{
			CustomerID:       get("customer_id"),
			FirstName:        get("first_name"),
			LastName:         get("last_name"),
			Email:            get("email"),
			Age:              age,
			State:            get("state"),
			CardType:         get("card_type"),
			CreditLimit:      creditLimit,
			EmploymentStatus: get("employment_status"),
			AccountOpenDate:  parseTimestamp(get("account_open_date")),
			EffectiveDate:    parseTimestamp(get("effective_date")),
			IngestedAt:       ingestedAt,
			SourceFile:       sourceFile,
		})
	}
	return rows, nil
}

// ParseChurnScoresCSV decodes an externally produced churn score
// feed. Expected header: customer_id,churn_risk_score,scored_at.
// Rows without a parsable score are skipped; absence of a score is a
// legal state, not a quality failure.
func ParseChurnScoresCSV(r io.Reader) ([]domain.ChurnScore, error) {
	header, records, err := readCSV(r)
	if err != nil {
		return nil, fmt.Errorf("ParseChurnScoresCSV: %w", err)
	}

	var rows []domain.ChurnScore
	for _, rec := range records {
		get := fieldGetter(header, rec)
		score, err := strconv.ParseFloat(get("churn_risk_score"), 64)
		if err != nil || get("customer_id") == "" {
			continue
		}
		rows = append(rows, domain.ChurnScore{
			CustomerID: get("customer_id"),
			Score:      score,
			ScoredAt:   parseTimestamp(get("scored_at")),
		})
	}
	return rows, nil
}

func readCSV(r io.Reader) (map[string]int, [][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	all, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("reading csv: %w", err)
	}
	if len(all) == 0 {
		return nil, nil, fmt.Errorf("empty file")
	}
	header := make(map[string]int, len(all[0]))
	for i, name := range all[0] {
		header[strings.ToLower(strings.TrimSpace(name))] = i
	}
	return header, all[1:], nil
}

func fieldGetter(header map[string]int, record []string) func(string) string {
	return func(name string) string {
		idx, ok := header[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}
}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTimestamp(s string) time.Time {
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC()
		}
	}
	return time.Time{}
}

func parseAmount(s string) float64 {
	if s == "" {
		return math.NaN()
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return f
}
