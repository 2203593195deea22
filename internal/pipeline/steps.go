package pipeline

import (
	"context"
	"fmt"

	"github.com/jpurrutia/customer-analytics/internal/aggregate"
	"github.com/jpurrutia/customer-analytics/internal/domain"
	"github.com/jpurrutia/customer-analytics/internal/ingest"
	"github.com/jpurrutia/customer-analytics/internal/logger"
	"github.com/jpurrutia/customer-analytics/internal/scd"
	"github.com/jpurrutia/customer-analytics/internal/segment"
	"github.com/jpurrutia/customer-analytics/internal/timeseries"
)

// LoadInputsStep reads everything a full or incremental run needs
// from the warehouse up front.
type LoadInputsStep struct{ deps stepDeps }

func (s *LoadInputsStep) Name() string { return "load-inputs" }

func (s *LoadInputsStep) Execute(ctx context.Context, state *State) error {
	var err error
	if state.Raw, err = s.deps.store.ListRawTransactions(ctx); err != nil {
		return fmt.Errorf("listing raw transactions: %w", err)
	}
	if state.Snapshots, err = s.deps.store.ListCustomerSnapshots(ctx); err != nil {
		return fmt.Errorf("listing customer snapshots: %w", err)
	}
	if state.Scores, err = s.deps.store.ListChurnScores(ctx); err != nil {
		return fmt.Errorf("listing churn scores: %w", err)
	}
	if state.ExistingVersions, err = s.deps.store.ListVersions(ctx); err != nil {
		return fmt.Errorf("listing dimension versions: %w", err)
	}
	if state.Mode == domain.RunModeIncremental {
		if state.ExistingMonthly, err = s.deps.store.ListMonthly(ctx); err != nil {
			return fmt.Errorf("listing monthly spend: %w", err)
		}
	}
	state.Report.RawTransactions = int64(len(state.Raw))
	state.Report.CustomerSnapshots = int64(len(state.Snapshots))
	return nil
}

// CleanStep validates, normalizes and deduplicates the raw inputs.
// A batch whose reject fraction exceeds the configured ceiling aborts
// the run before anything downstream is computed.
type CleanStep struct{ deps stepDeps }

func (s *CleanStep) Name() string { return "clean" }

func (s *CleanStep) Execute(ctx context.Context, state *State) error {
	log := logger.FromContext(ctx)

	state.Clean = ingest.CleanTransactions(state.Raw)
	snapshots, snapRejects := ingest.CleanCustomerSnapshots(state.Snapshots)
	state.CleanSnapshots = snapshots

	rejected := int64(len(state.Clean.Rejects) + len(snapRejects))
	state.Report.CleanTransactions = int64(len(state.Clean.Transactions))
	state.Report.DuplicatesDropped = state.Clean.DuplicatesDropped
	state.Report.RejectedRecords = rejected
	state.Report.RejectionsByReason = state.Clean.RejectionsByReason()
	for _, rej := range snapRejects {
		if state.Report.RejectionsByReason == nil {
			state.Report.RejectionsByReason = make(map[string]int64)
		}
		state.Report.RejectionsByReason[rej.Reason]++
	}

	total := int64(len(state.Raw) + len(state.Snapshots))
	if total > 0 {
		fraction := float64(rejected) / float64(total)
		if fraction > s.deps.cfg.MaxRejectFraction {
			return fmt.Errorf("reject fraction %.4f exceeds ceiling %.4f (%d of %d records)",
				fraction, s.deps.cfg.MaxRejectFraction, rejected, total)
		}
	}

	log.Info().
		Int("clean_transactions", len(state.Clean.Transactions)).
		Int64("duplicates_dropped", state.Clean.DuplicatesDropped).
		Int64("rejected", rejected).
		Msg("cleaned raw inputs")
	return nil
}

// HistorianStep applies the latest snapshots to the versioned
// customer dimension and verifies its integrity. An integrity
// violation is fatal; the corrupted dimension is never published.
type HistorianStep struct{ deps stepDeps }

func (s *HistorianStep) Name() string { return "historian" }

func (s *HistorianStep) Execute(ctx context.Context, state *State) error {
	log := logger.FromContext(ctx)

	state.Versions, state.HistorianStats = scd.Apply(state.ExistingVersions, state.CleanSnapshots, state.Now)
	if err := scd.Check(state.Versions); err != nil {
		return fmt.Errorf("verifying customer dimension: %w", err)
	}
	state.Current = scd.CurrentVersions(state.Versions)

	state.Report.DimensionVersions = int64(len(state.Versions))
	state.Report.CurrentCustomers = int64(len(state.Current))

	log.Info().
		Int64("new_customers", state.HistorianStats.NewCustomers).
		Int64("versions_opened", state.HistorianStats.VersionsOpened).
		Int64("type1_updates", state.HistorianStats.Type1Updates).
		Int("current_customers", len(state.Current)).
		Msg("historized customer dimension")
	return nil
}

// AggregateStep computes the consolidated per-customer metrics in a
// single pass over the cleaned facts.
type AggregateStep struct{ deps stepDeps }

func (s *AggregateStep) Name() string { return "aggregate" }

func (s *AggregateStep) Execute(ctx context.Context, state *State) error {
	log := logger.FromContext(ctx)

	state.Aggregates, state.AggregateStats = aggregate.Run(state.Current, state.Clean.Transactions, state.Now)
	state.Report.AggregateRows = int64(len(state.Aggregates))
	state.Report.OrphanTransactions = state.AggregateStats.OrphanTransactions

	if state.AggregateStats.OrphanTransactions > 0 {
		log.Warn().
			Int64("orphan_transactions", state.AggregateStats.OrphanTransactions).
			Msg("transactions reference customers missing from the dimension")
	}
	log.Info().Int("aggregate_rows", len(state.Aggregates)).Msg("computed customer aggregates")
	return nil
}

// SegmentStep classifies every aggregate row and assembles the
// customer-360 profiles with campaign-eligibility flags.
type SegmentStep struct{ deps stepDeps }

func (s *SegmentStep) Name() string { return "segment" }

func (s *SegmentStep) Execute(ctx context.Context, state *State) error {
	log := logger.FromContext(ctx)

	thresholds := segment.DefaultThresholds()
	thresholds.MinTransactions = s.deps.cfg.MinSegmentTransactions
	engine := segment.NewEngine(segment.Rules(thresholds))

	state.Assignments = engine.AssignAll(state.Aggregates, state.Now)
	state.Profiles = segment.BuildProfiles(state.Current, state.Aggregates, state.Assignments, state.Scores)
	state.Report.SegmentCounts = segment.Distribution(state.Assignments)

	log.Info().
		Int("assignments", len(state.Assignments)).
		Int("profiles", len(state.Profiles)).
		Msg("assigned segments and built profiles")
	return nil
}

// MaterializeStep plans the monthly spend rows to upsert. Incremental
// runs recompute only the lookback window behind the high-water mark;
// an empty target table falls back to a full rebuild.
type MaterializeStep struct{ deps stepDeps }

func (s *MaterializeStep) Name() string { return "materialize" }

func (s *MaterializeStep) Execute(ctx context.Context, state *State) error {
	log := logger.FromContext(ctx)
	m := timeseries.Materializer{LookbackMonths: s.deps.cfg.LookbackMonths}

	switch state.Mode {
	case domain.RunModeIncremental:
		state.MonthlyPlan = m.BuildIncremental(state.Clean.Transactions, state.ExistingMonthly, state.Now)
	default:
		state.MonthlyPlan = m.BuildFull(state.Clean.Transactions, state.Now)
	}
	state.MergedMonthly = timeseries.MergeMonthly(state.ExistingMonthly, state.MonthlyPlan.Rows)
	if state.MonthlyPlan.FullRebuild {
		state.MergedMonthly = state.MonthlyPlan.Rows
	}

	state.Report.MonthlyRowsUpserted = int64(len(state.MonthlyPlan.Rows))
	state.Report.LateIgnoredMonths = state.MonthlyPlan.LateIgnoredMonths

	if state.MonthlyPlan.LateIgnoredMonths > 0 {
		log.Warn().
			Int64("late_ignored_months", state.MonthlyPlan.LateIgnoredMonths).
			Time("window_start", state.MonthlyPlan.WindowStart).
			Msg("late transactions fell outside the lookback window; run a full rebuild to absorb them")
	}
	log.Info().
		Int("monthly_rows", len(state.MonthlyPlan.Rows)).
		Bool("full_rebuild", state.MonthlyPlan.FullRebuild).
		Msg("materialized monthly spend")
	return nil
}

// TrendStep derives month-over-month trend rows from the merged
// monthly state the publish step will commit.
type TrendStep struct{ deps stepDeps }

func (s *TrendStep) Name() string { return "trend" }

func (s *TrendStep) Execute(ctx context.Context, state *State) error {
	log := logger.FromContext(ctx)

	state.Trends = timeseries.ComputeTrends(state.MergedMonthly)
	state.Report.TrendRows = int64(len(state.Trends))
	log.Info().Int("trend_rows", len(state.Trends)).Msg("computed spending trends")
	return nil
}

// PublishStep commits every staged output to the warehouse. It is the
// only step that writes derived tables, so a run that failed earlier
// has changed nothing.
type PublishStep struct{ deps stepDeps }

func (s *PublishStep) Name() string { return "publish" }

func (s *PublishStep) Execute(ctx context.Context, state *State) error {
	store := s.deps.store
	if err := store.ReplaceVersions(ctx, state.Versions); err != nil {
		return fmt.Errorf("publishing dimension versions: %w", err)
	}
	if err := store.ReplaceFacts(ctx, state.Clean.Transactions); err != nil {
		return fmt.Errorf("publishing transaction facts: %w", err)
	}
	if err := store.ReplaceAggregates(ctx, state.Aggregates); err != nil {
		return fmt.Errorf("publishing aggregates: %w", err)
	}
	if err := store.ReplaceSegments(ctx, state.Assignments); err != nil {
		return fmt.Errorf("publishing segment assignments: %w", err)
	}
	if err := store.ReplaceProfiles(ctx, state.Profiles); err != nil {
		return fmt.Errorf("publishing customer profiles: %w", err)
	}
	if state.MonthlyPlan.FullRebuild {
		if err := store.ReplaceMonthly(ctx, state.MonthlyPlan.Rows); err != nil {
			return fmt.Errorf("publishing monthly spend: %w", err)
		}
	} else if err := store.UpsertMonthly(ctx, state.MonthlyPlan.Rows); err != nil {
		return fmt.Errorf("publishing monthly spend: %w", err)
	}
	if err := store.ReplaceTrends(ctx, state.Trends); err != nil {
		return fmt.Errorf("publishing trends: %w", err)
	}
	log := logger.FromContext(ctx)
	log.Info().Msg("published all derived tables")
	return nil
}

// LoadSnapshotStep feeds segments mode from the stored derived state
// instead of rescanning the fact table.
type LoadSnapshotStep struct{ deps stepDeps }

func (s *LoadSnapshotStep) Name() string { return "load-snapshot" }

func (s *LoadSnapshotStep) Execute(ctx context.Context, state *State) error {
	var err error
	if state.Aggregates, err = s.deps.store.ListAggregates(ctx); err != nil {
		return fmt.Errorf("listing aggregates: %w", err)
	}
	if state.Scores, err = s.deps.store.ListChurnScores(ctx); err != nil {
		return fmt.Errorf("listing churn scores: %w", err)
	}
	versions, err := s.deps.store.ListVersions(ctx)
	if err != nil {
		return fmt.Errorf("listing dimension versions: %w", err)
	}
	state.Current = scd.CurrentVersions(versions)
	state.Report.AggregateRows = int64(len(state.Aggregates))
	state.Report.CurrentCustomers = int64(len(state.Current))
	return nil
}

// PublishSegmentsStep commits only the segmentation outputs.
type PublishSegmentsStep struct{ deps stepDeps }

func (s *PublishSegmentsStep) Name() string { return "publish-segments" }

func (s *PublishSegmentsStep) Execute(ctx context.Context, state *State) error {
	if err := s.deps.store.ReplaceSegments(ctx, state.Assignments); err != nil {
		return fmt.Errorf("publishing segment assignments: %w", err)
	}
	if err := s.deps.store.ReplaceProfiles(ctx, state.Profiles); err != nil {
		return fmt.Errorf("publishing customer profiles: %w", err)
	}
	log := logger.FromContext(ctx)
	log.Info().Msg("republished segments and profiles")
	return nil
}
