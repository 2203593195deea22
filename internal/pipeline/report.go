package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/jpurrutia/customer-analytics/internal/domain"
	"github.com/jpurrutia/customer-analytics/internal/logger"
)

// QualityStep evaluates the named run checks and records them on the
// quality report. A failed non-advisory check aborts the run before
// publish, so bad state never reaches readers.
type QualityStep struct{ deps stepDeps }

func (s *QualityStep) Name() string { return "quality" }

func (s *QualityStep) Execute(ctx context.Context, state *State) error {
	log := logger.FromContext(ctx)
	report := state.Report

	s.checkDimension(state)
	s.checkMonthlyGrain(state)
	s.checkSegmentCoverage(state)
	s.checkSegmentFloor(state)

	for _, c := range report.Checks {
		ev := log.Info()
		if !c.Passed {
			ev = log.Warn()
		}
		ev.Str("check", c.Name).Bool("passed", c.Passed).Bool("warn_only", c.WarnOnly).
			Str("detail", c.Detail).Msg("quality check")
	}
	if report.Failed() {
		return fmt.Errorf("quality checks failed, refusing to publish")
	}
	return nil
}

// checkDimension verifies each customer holds exactly one current
// version. The historian already enforced the dimension invariants;
// this records the evidence in the run report.
func (s *QualityStep) checkDimension(state *State) {
	currentByCustomer := make(map[string]int, len(state.Current))
	for _, v := range state.Versions {
		if v.IsCurrent {
			currentByCustomer[v.CustomerID]++
		}
	}
	bad := 0
	for _, n := range currentByCustomer {
		if n != 1 {
			bad++
		}
	}
	if len(state.Versions) == 0 {
		// Segments mode carries no version list; the current map was
		// read from the committed dimension.
		state.Report.AddCheck("dimension_one_current_per_customer", true, false,
			fmt.Sprintf("%d current customers from committed dimension", len(state.Current)))
		return
	}
	state.Report.AddCheck("dimension_one_current_per_customer", bad == 0, false,
		fmt.Sprintf("%d customers with a current version count other than one", bad))
}

// checkMonthlyGrain verifies (customer_id, month) uniqueness over the
// state the publish will leave behind.
func (s *QualityStep) checkMonthlyGrain(state *State) {
	if state.Mode == domain.RunModeSegments {
		return
	}
	type key struct {
		customerID string
		month      time.Time
	}
	seen := make(map[key]bool, len(state.MergedMonthly))
	dupes := 0
	for _, row := range state.MergedMonthly {
		k := key{row.CustomerID, row.Month.UTC()}
		if seen[k] {
			dupes++
		}
		seen[k] = true
	}
	state.Report.AddCheck("monthly_grain_unique", dupes == 0, false,
		fmt.Sprintf("%d duplicate (customer_id, month) rows", dupes))
}

// checkSegmentCoverage verifies every aggregate row received a
// segment label.
func (s *QualityStep) checkSegmentCoverage(state *State) {
	assigned := make(map[string]bool, len(state.Assignments))
	for _, a := range state.Assignments {
		if a.Segment != "" {
			assigned[a.CustomerID] = true
		}
	}
	missing := 0
	for _, agg := range state.Aggregates {
		if !assigned[agg.CustomerID] {
			missing++
		}
	}
	state.Report.AddCheck("segment_coverage", missing == 0, false,
		fmt.Sprintf("%d customers without a segment", missing))
}

// checkSegmentFloor flags segments holding less than the advisory
// floor share. On a representative dataset a near-empty segment
// usually means a rule constant has drifted from the data, so this
// warns without failing the run.
func (s *QualityStep) checkSegmentFloor(state *State) {
	total := int64(0)
	for seg, n := range state.Report.SegmentCounts {
		if seg == domain.SegmentNotYetScored {
			continue
		}
		total += n
	}
	if total == 0 {
		return
	}
	for _, seg := range []string{
		domain.SegmentHighValueTraveler,
		domain.SegmentDeclining,
		domain.SegmentNewAndGrowing,
		domain.SegmentBudgetConscious,
		domain.SegmentStableMidSpender,
	} {
		pct := float64(state.Report.SegmentCounts[seg]) / float64(total) * 100
		state.Report.AddCheck("segment_floor:"+seg, pct >= s.deps.cfg.SegmentFloorPct, true,
			fmt.Sprintf("%.1f%% of scored customers (floor %.1f%%)", pct, s.deps.cfg.SegmentFloorPct))
	}
}
