// Package pipeline orchestrates the analytics runs: ingestion,
// dimension historization, aggregation, segmentation, monthly
// materialization, trend derivation, quality checks and finally a
// single publish. All derived tables are written in the last step, so
// a run that fails anywhere earlier leaves every target untouched.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/jpurrutia/customer-analytics/internal/aggregate"
	"github.com/jpurrutia/customer-analytics/internal/config"
	"github.com/jpurrutia/customer-analytics/internal/domain"
	"github.com/jpurrutia/customer-analytics/internal/ingest"
	"github.com/jpurrutia/customer-analytics/internal/scd"
	"github.com/jpurrutia/customer-analytics/internal/timeseries"
	"github.com/jpurrutia/customer-analytics/internal/warehouse"
)

// Step is a single stage of an analytics run.
type Step interface {
	Name() string
	Execute(ctx context.Context, state *State) error
}

// State is the shared state threaded through the steps of one run.
// Steps only compute; nothing here is visible to readers until the
// publish step commits it.
type State struct {
	RunID string
	Mode  domain.RunMode
	Now   time.Time

	// Inputs read from the warehouse.
	Raw              []domain.RawTransaction
	Snapshots        []domain.CustomerSnapshot
	Scores           []domain.ChurnScore
	ExistingVersions []domain.CustomerVersion
	ExistingMonthly  []domain.MonthlySpend

	// Computed outputs, staged for publish.
	Clean          ingest.TransactionResult
	CleanSnapshots []domain.CustomerSnapshot
	Versions       []domain.CustomerVersion
	HistorianStats scd.Stats
	Current        map[string]domain.CustomerVersion
	Aggregates     []domain.CustomerAggregate
	AggregateStats aggregate.Stats
	Assignments    []domain.SegmentAssignment
	Profiles       []domain.CustomerProfile
	MonthlyPlan    timeseries.Plan
	MergedMonthly  []domain.MonthlySpend
	Trends         []domain.TrendRow

	Report *domain.QualityReport
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []Step
}

// New creates a pipeline from an ordered step list.
func New(steps ...Step) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps sequentially, stopping at the first failure.
func (p *Pipeline) Execute(ctx context.Context, state *State) error {
	for i, step := range p.steps {
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("pipeline step %d (%s) failed: %w", i+1, step.Name(), err)
		}
	}
	return nil
}

// buildSteps assembles the step list for a run mode. Full and
// incremental runs differ only in how the monthly table is
// materialized; segments mode reuses the stored aggregate snapshot
// and republishes segments and profiles only.
func buildSteps(deps stepDeps, mode domain.RunMode) ([]Step, error) {
	switch mode {
	case domain.RunModeFull, domain.RunModeIncremental:
		return []Step{
			&LoadInputsStep{deps},
			&CleanStep{deps},
			&HistorianStep{deps},
			&AggregateStep{deps},
			&SegmentStep{deps},
			&MaterializeStep{deps},
			&TrendStep{deps},
			&QualityStep{deps},
			&PublishStep{deps},
		}, nil
	case domain.RunModeSegments:
		return []Step{
			&LoadSnapshotStep{deps},
			&SegmentStep{deps},
			&QualityStep{deps},
			&PublishSegmentsStep{deps},
		}, nil
	default:
		return nil, fmt.Errorf("unknown run mode %q", mode)
	}
}

type stepDeps struct {
	store warehouse.Store
	cfg   *config.Config
}
