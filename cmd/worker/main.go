package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/jpurrutia/customer-analytics/internal/config"
	"github.com/jpurrutia/customer-analytics/internal/domain"
	"github.com/jpurrutia/customer-analytics/internal/jobs"
	"github.com/jpurrutia/customer-analytics/internal/jobs/inmemory"
	"github.com/jpurrutia/customer-analytics/internal/logger"
	"github.com/jpurrutia/customer-analytics/internal/pipeline"
	bqstore "github.com/jpurrutia/customer-analytics/internal/warehouse/bigquery"
)

func main() {
	_ = godotenv.Load()

	fs := flag.NewFlagSet("worker", flag.ExitOnError)
	interval := fs.Duration("interval", 6*time.Hour, "Time between scheduled incremental runs")
	mode := fs.String("mode", "incremental", "Run mode for scheduled runs")
	fs.Parse(os.Args[1:])

	log := logger.New()
	cfg := config.Load()

	runMode := domain.RunMode(*mode)
	switch runMode {
	case domain.RunModeFull, domain.RunModeIncremental, domain.RunModeSegments:
	default:
		log.Fatal().Str("mode", *mode).Msg("Invalid run mode")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	store, err := bqstore.New(ctx, cfg.ProjectID, cfg.Dataset)
	if err != nil {
		log.Fatal().Err(err).Msg("Opening warehouse failed")
	}
	defer store.Close()

	runner := pipeline.NewRunner(store, cfg, log)

	jobStore := inmemory.NewStore()
	queue := inmemory.NewQueue(16, jobStore)

	handler := func(ctx context.Context, job *jobs.RunJob) error {
		log.Info().Str("job_id", job.JobID).Str("mode", string(job.Mode)).Msg("Processing run job")

		run, err := runner.Run(ctx, job.Mode)
		job.RunID = run.RunID
		if err != nil {
			log.Error().Err(err).Str("job_id", job.JobID).Str("run_id", run.RunID).Msg("Pipeline run failed")
			return err
		}
		log.Info().Str("job_id", job.JobID).Str("run_id", run.RunID).Msg("Pipeline run completed")
		return nil
	}

	if err := queue.Start(ctx, handler); err != nil {
		log.Fatal().Err(err).Msg("Starting job consumer failed")
	}

	log.Info().Dur("interval", *interval).Str("mode", string(runMode)).Msg("Worker started")

	// Schedule the first run immediately, then on the interval.
	publish := func() {
		job := &jobs.RunJob{Mode: runMode}
		if err := queue.PublishRun(ctx, job); err != nil {
			log.Error().Err(err).Msg("Enqueueing scheduled run failed")
		}
	}
	publish()

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-ticker.C:
			publish()
		case <-quit:
			log.Info().Msg("Shutting down worker")
			cancel()

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer shutdownCancel()
			if err := queue.Stop(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("Error during graceful shutdown")
			}
			log.Info().Msg("Worker exited")
			return
		}
	}
}
