// Package memory is an in-memory warehouse implementation. It is safe
// for concurrent use and returns copies so callers cannot mutate
// stored state. Data is lost on restart - it backs tests and the
// CLI's local mode, not production runs.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jpurrutia/customer-analytics/internal/domain"
	"github.com/jpurrutia/customer-analytics/internal/warehouse"
)

// Store implements warehouse.Store with plain maps and slices.
type Store struct {
	mu sync.RWMutex

	rawTransactions   []domain.RawTransaction
	customerSnapshots map[string]domain.CustomerSnapshot
	churnScores       []domain.ChurnScore

	versions   []domain.CustomerVersion
	facts      []domain.Transaction
	aggregates []domain.CustomerAggregate
	segments   []domain.SegmentAssignment
	profiles   []domain.CustomerProfile

	monthly map[monthlyKey]domain.MonthlySpend
	trends  []domain.TrendRow

	runs map[string]domain.Run
}

type monthlyKey struct {
	customerID string
	month      time.Time
}

// NewStore creates an empty in-memory warehouse.
func NewStore() *Store {
	return &Store{
		customerSnapshots: make(map[string]domain.CustomerSnapshot),
		monthly:           make(map[monthlyKey]domain.MonthlySpend),
		runs:              make(map[string]domain.Run),
	}
}

// AppendRawTransactions implements warehouse.RawStore.
func (s *Store) AppendRawTransactions(ctx context.Context, rows []domain.RawTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rawTransactions = append(s.rawTransactions, rows...)
	return nil
}

// ListRawTransactions implements warehouse.RawStore.
func (s *Store) ListRawTransactions(ctx context.Context) ([]domain.RawTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.RawTransaction, len(s.rawTransactions))
	copy(out, s.rawTransactions)
	return out, nil
}

// AppendCustomerSnapshots implements warehouse.RawStore. The latest
// snapshot per customer wins, matching the upstream one-per-load
// contract.
func (s *Store) AppendCustomerSnapshots(ctx context.Context, rows []domain.CustomerSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range rows {
		if r.CustomerID == "" {
			return fmt.Errorf("AppendCustomerSnapshots: customer id is required")
		}
		existing, ok := s.customerSnapshots[r.CustomerID]
		if !ok || !r.IngestedAt.Before(existing.IngestedAt) {
			s.customerSnapshots[r.CustomerID] = r
		}
	}
	return nil
}

// ListCustomerSnapshots implements warehouse.RawStore.
func (s *Store) ListCustomerSnapshots(ctx context.Context) ([]domain.CustomerSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.CustomerSnapshot, 0, len(s.customerSnapshots))
	for _, snap := range s.customerSnapshots {
		out = append(out, snap)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CustomerID < out[j].CustomerID })
	return out, nil
}

// ReplaceChurnScores implements warehouse.RawStore.
func (s *Store) ReplaceChurnScores(ctx context.Context, rows []domain.ChurnScore) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.churnScores = append([]domain.ChurnScore(nil), rows...)
	return nil
}

// ListChurnScores implements warehouse.RawStore.
func (s *Store) ListChurnScores(ctx context.Context) ([]domain.ChurnScore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.ChurnScore, len(s.churnScores))
	copy(out, s.churnScores)
	return out, nil
}

// ListVersions implements warehouse.DimensionStore.
func (s *Store) ListVersions(ctx context.Context) ([]domain.CustomerVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.CustomerVersion, len(s.versions))
	copy(out, s.versions)
	return out, nil
}

// ReplaceVersions implements warehouse.DimensionStore.
func (s *Store) ReplaceVersions(ctx context.Context, versions []domain.CustomerVersion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.versions = append([]domain.CustomerVersion(nil), versions...)
	return nil
}

// ReplaceFacts implements warehouse.MartStore.
func (s *Store) ReplaceFacts(ctx context.Context, rows []domain.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.facts = append([]domain.Transaction(nil), rows...)
	return nil
}

// ReplaceAggregates implements warehouse.MartStore.
func (s *Store) ReplaceAggregates(ctx context.Context, rows []domain.CustomerAggregate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.aggregates = append([]domain.CustomerAggregate(nil), rows...)
	return nil
}

// ListAggregates implements warehouse.MartStore.
func (s *Store) ListAggregates(ctx context.Context) ([]domain.CustomerAggregate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.CustomerAggregate, len(s.aggregates))
	copy(out, s.aggregates)
	return out, nil
}

// ReplaceSegments implements warehouse.MartStore.
func (s *Store) ReplaceSegments(ctx context.Context, rows []domain.SegmentAssignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.segments = append([]domain.SegmentAssignment(nil), rows...)
	return nil
}

// ListSegments implements warehouse.MartStore.
func (s *Store) ListSegments(ctx context.Context) ([]domain.SegmentAssignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.SegmentAssignment, len(s.segments))
	copy(out, s.segments)
	return out, nil
}

// ReplaceProfiles implements warehouse.MartStore.
func (s *Store) ReplaceProfiles(ctx context.Context, rows []domain.CustomerProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles = append([]domain.CustomerProfile(nil), rows...)
	return nil
}

// ListProfiles implements warehouse.MartStore.
func (s *Store) ListProfiles(ctx context.Context) ([]domain.CustomerProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.CustomerProfile, len(s.profiles))
	copy(out, s.profiles)
	return out, nil
}

// UpsertMonthly implements warehouse.MartStore. The map key enforces
// the (customer, month) grain.
func (s *Store) UpsertMonthly(ctx context.Context, rows []domain.MonthlySpend) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range rows {
		s.monthly[monthlyKey{customerID: r.CustomerID, month: r.Month.UTC()}] = r
	}
	return nil
}

// ReplaceMonthly implements warehouse.MartStore.
func (s *Store) ReplaceMonthly(ctx context.Context, rows []domain.MonthlySpend) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.monthly = make(map[monthlyKey]domain.MonthlySpend, len(rows))
	for _, r := range rows {
		s.monthly[monthlyKey{customerID: r.CustomerID, month: r.Month.UTC()}] = r
	}
	return nil
}

// ListMonthly implements warehouse.MartStore. Rows come back ordered
// by (customer_id, month).
func (s *Store) ListMonthly(ctx context.Context) ([]domain.MonthlySpend, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.MonthlySpend, 0, len(s.monthly))
	for _, row := range s.monthly {
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CustomerID != out[j].CustomerID {
			return out[i].CustomerID < out[j].CustomerID
		}
		return out[i].Month.Before(out[j].Month)
	})
	return out, nil
}

// ReplaceTrends implements warehouse.MartStore.
func (s *Store) ReplaceTrends(ctx context.Context, rows []domain.TrendRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trends = append([]domain.TrendRow(nil), rows...)
	return nil
}

// ListTrends implements warehouse.MartStore.
func (s *Store) ListTrends(ctx context.Context) ([]domain.TrendRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.TrendRow, len(s.trends))
	copy(out, s.trends)
	return out, nil
}

// StartRun implements warehouse.RunStore.
func (s *Store) StartRun(ctx context.Context, run domain.Run) error {
	if run.RunID == "" {
		return fmt.Errorf("StartRun: run ID is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.RunID] = run
	return nil
}

// FinishRun implements warehouse.RunStore.
func (s *Store) FinishRun(ctx context.Context, runID string, status domain.RunStatus, errMsg string, report *domain.QualityReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, exists := s.runs[runID]
	if !exists {
		return fmt.Errorf("FinishRun: run not found: %s", runID)
	}
	now := time.Now().UTC()
	run.Status = status
	run.FinishedAt = &now
	run.Error = errMsg
	run.Report = report
	s.runs[runID] = run
	return nil
}

// ListRuns implements warehouse.RunStore, most recent first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]domain.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Run, 0, len(s.runs))
	for _, run := range s.runs {
		out = append(out, run)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

// Close implements warehouse.Store.
func (s *Store) Close() error { return nil }

// Ensure Store implements the full warehouse surface.
var _ warehouse.Store = (*Store)(nil)
