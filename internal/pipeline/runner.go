package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jpurrutia/customer-analytics/internal/config"
	"github.com/jpurrutia/customer-analytics/internal/domain"
	"github.com/jpurrutia/customer-analytics/internal/logger"
	"github.com/jpurrutia/customer-analytics/internal/warehouse"
)

// Runner executes analytics runs against a warehouse and records
// their audit trail.
type Runner struct {
	store warehouse.Store
	cfg   *config.Config
	log   zerolog.Logger
}

// NewRunner creates a Runner.
func NewRunner(store warehouse.Store, cfg *config.Config, log zerolog.Logger) *Runner {
	return &Runner{store: store, cfg: cfg, log: log}
}

// Run executes one pipeline run in the given mode. The run record is
// written up front with status running and finalized on completion;
// the returned Run carries the quality report either way.
func (r *Runner) Run(ctx context.Context, mode domain.RunMode) (domain.Run, error) {
	run := domain.Run{
		RunID:     uuid.NewString(),
		Mode:      mode,
		Status:    domain.RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}

	log := r.log.With().Str("run_id", run.RunID).Str("mode", string(mode)).Logger()
	ctx = logger.WithContext(ctx, log)

	state := &State{
		RunID:  run.RunID,
		Mode:   mode,
		Now:    run.StartedAt,
		Report: &domain.QualityReport{},
	}

	steps, err := buildSteps(stepDeps{store: r.store, cfg: r.cfg}, mode)
	if err != nil {
		run.Status = domain.RunStatusFailed
		run.Error = err.Error()
		return run, err
	}

	if err := r.store.StartRun(ctx, run); err != nil {
		run.Status = domain.RunStatusFailed
		run.Error = err.Error()
		return run, err
	}
	log.Info().Msg("pipeline run started")

	execErr := New(steps...).Execute(ctx, state)
	run.Report = state.Report

	status := domain.RunStatusSucceeded
	errMsg := ""
	if execErr != nil {
		status = domain.RunStatusFailed
		errMsg = execErr.Error()
		log.Error().Err(execErr).Msg("pipeline run failed")
	} else {
		log.Info().Msg("pipeline run succeeded")
	}
	run.Status = status
	run.Error = errMsg
	finished := time.Now().UTC()
	run.FinishedAt = &finished

	if err := r.store.FinishRun(ctx, run.RunID, status, errMsg, state.Report); err != nil {
		// The derived tables are already in their final state; losing
		// the audit update should not mask the run outcome.
		log.Error().Err(err).Msg("recording run completion failed")
		if execErr == nil {
			return run, err
		}
	}
	return run, execErr
}
