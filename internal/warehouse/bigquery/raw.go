package bigquery

import (
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"

	"github.com/jpurrutia/customer-analytics/internal/domain"
)

type rawTransactionRow struct {
	TransactionID    string    `bigquery:"transaction_id"` // REQUIRED
	CustomerID       string    `bigquery:"customer_id"`    // REQUIRED
	Timestamp        time.Time `bigquery:"ts"`             // TIMESTAMP
	Amount           float64   `bigquery:"amount"`
	MerchantName     string    `bigquery:"merchant_name"`
	MerchantCategory string    `bigquery:"merchant_category"`
	Channel          string    `bigquery:"channel"`
	Status           string    `bigquery:"status"`
	IngestedAt       time.Time `bigquery:"ingested_at"`
	SourceFile       string    `bigquery:"source_file"`
}

func rawTransactionFromDomain(t domain.RawTransaction) *rawTransactionRow {
	return &rawTransactionRow{
		TransactionID:    t.TransactionID,
		CustomerID:       t.CustomerID,
		Timestamp:        t.Timestamp,
		Amount:           t.Amount,
		MerchantName:     t.MerchantName,
		MerchantCategory: t.MerchantCategory,
		Channel:          t.Channel,
		Status:           t.Status,
		IngestedAt:       t.IngestedAt,
		SourceFile:       t.SourceFile,
	}
}

func (r *rawTransactionRow) toDomain() domain.RawTransaction {
	return domain.RawTransaction{
		TransactionID:    r.TransactionID,
		CustomerID:       r.CustomerID,
		Timestamp:        r.Timestamp,
		Amount:           r.Amount,
		MerchantName:     r.MerchantName,
		MerchantCategory: r.MerchantCategory,
		Channel:          r.Channel,
		Status:           r.Status,
		IngestedAt:       r.IngestedAt,
		SourceFile:       r.SourceFile,
	}
}

type customerSnapshotRow struct {
	CustomerID       string            `bigquery:"customer_id"` // REQUIRED
	FirstName        string            `bigquery:"first_name"`
	LastName         string            `bigquery:"last_name"`
	Email            string            `bigquery:"email"`
	Age              int64             `bigquery:"age"`
	State            string            `bigquery:"state"`
	CardType         string            `bigquery:"card_type"`
	CreditLimit      float64           `bigquery:"credit_limit"`
	EmploymentStatus string            `bigquery:"employment_status"`
	AccountOpenDate  bigquery.NullDate `bigquery:"account_open_date"` // DATE, NULLABLE
	EffectiveDate    time.Time         `bigquery:"effective_date"`
	IngestedAt       time.Time         `bigquery:"ingested_at"`
	SourceFile       string            `bigquery:"source_file"`
}

func customerSnapshotFromDomain(s domain.CustomerSnapshot) *customerSnapshotRow {
	return &customerSnapshotRow{
		CustomerID:       s.CustomerID,
		FirstName:        s.FirstName,
		LastName:         s.LastName,
		Email:            s.Email,
		Age:              int64(s.Age),
		State:            s.State,
		CardType:         s.CardType,
		CreditLimit:      s.CreditLimit,
		EmploymentStatus: s.EmploymentStatus,
		AccountOpenDate:  nullDateOf(s.AccountOpenDate),
		EffectiveDate:    s.EffectiveDate,
		IngestedAt:       s.IngestedAt,
		SourceFile:       s.SourceFile,
	}
}

func (r *customerSnapshotRow) toDomain() domain.CustomerSnapshot {
	return domain.CustomerSnapshot{
		CustomerID:       r.CustomerID,
		FirstName:        r.FirstName,
		LastName:         r.LastName,
		Email:            r.Email,
		Age:              int(r.Age),
		State:            r.State,
		CardType:         r.CardType,
		CreditLimit:      r.CreditLimit,
		EmploymentStatus: r.EmploymentStatus,
		AccountOpenDate:  timeOfNullDate(r.AccountOpenDate),
		EffectiveDate:    r.EffectiveDate,
		IngestedAt:       r.IngestedAt,
		SourceFile:       r.SourceFile,
	}
}

type churnScoreRow struct {
	CustomerID string    `bigquery:"customer_id"` // REQUIRED
	Score      float64   `bigquery:"score"`
	ScoredAt   time.Time `bigquery:"scored_at"`
}

// nullDateOf converts a possibly-zero time to a nullable DATE.
func nullDateOf(t time.Time) bigquery.NullDate {
	if t.IsZero() {
		return bigquery.NullDate{}
	}
	return bigquery.NullDate{Date: civil.DateOf(t.UTC()), Valid: true}
}

// timeOfNullDate converts a nullable DATE back to a midnight-UTC time.
func timeOfNullDate(d bigquery.NullDate) time.Time {
	if !d.Valid {
		return time.Time{}
	}
	return d.Date.In(time.UTC)
}
