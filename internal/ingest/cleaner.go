// Package ingest turns raw, possibly duplicated batch records into
// the cleaned sets the rest of the pipeline consumes. Records failing
// quality checks are excluded and accounted for, never silently
// dropped.
package ingest

import (
	"math"
	"sort"
	"strings"

	"github.com/jpurrutia/customer-analytics/internal/domain"
)

// Rejection reasons reported in the quality report.
const (
	ReasonMissingTransactionID = "missing_transaction_id"
	ReasonMissingCustomerID    = "missing_customer_id"
	ReasonInvalidAmount        = "invalid_amount"
	ReasonMissingTimestamp     = "missing_timestamp"
)

// Reject identifies one excluded record and why.
type Reject struct {
	Reason        string
	TransactionID string
	CustomerID    string
	SourceFile    string
}

// TransactionResult is the outcome of cleaning one raw transaction set.
type TransactionResult struct {
	Transactions      []domain.Transaction
	Rejects           []Reject
	DuplicatesDropped int64
}

// RejectionsByReason tallies rejects for the quality report.
func (r TransactionResult) RejectionsByReason() map[string]int64 {
	if len(r.Rejects) == 0 {
		return nil
	}
	out := make(map[string]int64)
	for _, rej := range r.Rejects {
		out[rej.Reason]++
	}
	return out
}

// CleanTransactions validates, normalizes and deduplicates a raw
// transaction set. Duplicate transaction ids keep the record with the
// latest ingestion timestamp; on an exact tie the record encountered
// later wins. Output is ordered by timestamp, then transaction id, so
// repeated runs over the same input are byte-identical.
func CleanTransactions(raw []domain.RawTransaction) TransactionResult {
	var res TransactionResult

	kept := make(map[string]domain.Transaction, len(raw))
	for _, r := range raw {
		if rej, ok := validateTransaction(r); !ok {
			res.Rejects = append(res.Rejects, rej)
			continue
		}
		tx := normalizeTransaction(r)
		existing, dup := kept[tx.TransactionID]
		if dup {
			res.DuplicatesDropped++
			if existing.IngestedAt.After(tx.IngestedAt) {
				continue
			}
		}
		kept[tx.TransactionID] = tx
	}

	res.Transactions = make([]domain.Transaction, 0, len(kept))
	for _, tx := range kept {
		res.Transactions = append(res.Transactions, tx)
	}
	sort.Slice(res.Transactions, func(i, j int) bool {
		a, b := res.Transactions[i], res.Transactions[j]
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.Before(b.Timestamp)
		}
		return a.TransactionID < b.TransactionID
	})
	return res
}

func validateTransaction(r domain.RawTransaction) (Reject, bool) {
	rej := Reject{
		TransactionID: r.TransactionID,
		CustomerID:    r.CustomerID,
		SourceFile:    r.SourceFile,
	}
	switch {
	case strings.TrimSpace(r.TransactionID) == "":
		rej.Reason = ReasonMissingTransactionID
	case strings.TrimSpace(r.CustomerID) == "":
		rej.Reason = ReasonMissingCustomerID
	case math.IsNaN(r.Amount) || math.IsInf(r.Amount, 0) || r.Amount < 0:
		rej.Reason = ReasonInvalidAmount
	case r.Timestamp.IsZero():
		rej.Reason = ReasonMissingTimestamp
	default:
		return Reject{}, true
	}
	return rej, false
}

func normalizeTransaction(r domain.RawTransaction) domain.Transaction {
	category := strings.TrimSpace(r.MerchantCategory)
	if category == "" {
		category = domain.CategoryUncategorized
	}
	return domain.Transaction{
		TransactionID:    strings.TrimSpace(r.TransactionID),
		CustomerID:       strings.TrimSpace(r.CustomerID),
		Timestamp:        r.Timestamp.UTC(),
		Amount:           r.Amount,
		MerchantName:     strings.TrimSpace(r.MerchantName),
		MerchantCategory: category,
		Channel:          strings.ToLower(strings.TrimSpace(r.Channel)),
		Status:           strings.ToLower(strings.TrimSpace(r.Status)),
		IngestedAt:       r.IngestedAt.UTC(),
		SourceFile:       r.SourceFile,
	}
}

// CleanCustomerSnapshots normalizes customer snapshots: emails are
// lowercased, state codes uppercased, names trimmed. Snapshots
// without a customer id are rejected.
func CleanCustomerSnapshots(raw []domain.CustomerSnapshot) ([]domain.CustomerSnapshot, []Reject) {
	var rejects []Reject
	out := make([]domain.CustomerSnapshot, 0, len(raw))
	for _, s := range raw {
		if strings.TrimSpace(s.CustomerID) == "" {
			rejects = append(rejects, Reject{Reason: ReasonMissingCustomerID, SourceFile: s.SourceFile})
			continue
		}
		s.CustomerID = strings.TrimSpace(s.CustomerID)
		s.FirstName = strings.TrimSpace(s.FirstName)
		s.LastName = strings.TrimSpace(s.LastName)
		s.Email = strings.ToLower(strings.TrimSpace(s.Email))
		s.State = strings.ToUpper(strings.TrimSpace(s.State))
		s.CardType = strings.TrimSpace(s.CardType)
		s.EmploymentStatus = strings.TrimSpace(s.EmploymentStatus)
		if s.EffectiveDate.IsZero() {
			s.EffectiveDate = s.IngestedAt
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CustomerID < out[j].CustomerID })
	return out, rejects
}
