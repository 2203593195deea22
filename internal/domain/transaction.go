package domain

import (
	"time"
)

// Transaction statuses as they appear in the raw feed.
const (
	StatusApproved = "approved"
	StatusDeclined = "declined"
)

// CategoryUncategorized is the sentinel assigned to transactions whose
// merchant category is missing from the source feed.
const CategoryUncategorized = "Uncategorized"

// RawTransaction is one record of a raw transaction batch exactly as
// delivered. Batches are append-only and may contain re-delivered
// duplicates of the same transaction_id.
type RawTransaction struct {
	TransactionID    string
	CustomerID       string
	Timestamp        time.Time
	Amount           float64
	MerchantName     string
	MerchantCategory string
	Channel          string // "online" or "in-store"
	Status           string // "approved" or "declined"
	IngestedAt       time.Time
	SourceFile       string
}

// Transaction is a cleaned, deduplicated fact. It is immutable once
// produced; reruns regenerate the full cleaned set from the raw log.
type Transaction struct {
	TransactionID    string
	CustomerID       string
	Timestamp        time.Time
	Amount           float64
	MerchantName     string
	MerchantCategory string
	Channel          string
	Status           string
	IngestedAt       time.Time
	SourceFile       string
}

// Approved reports whether the transaction counts toward spend metrics.
func (t Transaction) Approved() bool {
	return t.Status == StatusApproved
}

// Month returns the calendar month of the transaction, normalized to
// midnight UTC on the first of the month. This is the grain key of
// the monthly spend table.
func (t Transaction) Month() time.Time {
	return MonthOf(t.Timestamp)
}

// MonthOf truncates a timestamp to the first of its calendar month, UTC.
func MonthOf(ts time.Time) time.Time {
	ts = ts.UTC()
	return time.Date(ts.Year(), ts.Month(), 1, 0, 0, 0, 0, time.UTC)
}
