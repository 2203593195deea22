package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/jpurrutia/customer-analytics/internal/config"
	"github.com/jpurrutia/customer-analytics/internal/domain"
	"github.com/jpurrutia/customer-analytics/internal/ingest"
	"github.com/jpurrutia/customer-analytics/internal/logger"
	"github.com/jpurrutia/customer-analytics/internal/pipeline"
	"github.com/jpurrutia/customer-analytics/internal/warehouse"
	bqstore "github.com/jpurrutia/customer-analytics/internal/warehouse/bigquery"
	"github.com/jpurrutia/customer-analytics/internal/warehouse/memory"
)

func main() {
	// A local .env is optional; real deployments set the environment
	// directly.
	_ = godotenv.Load()

	log := logger.New()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run":
		runPipeline(log)
	case "load":
		runLoad(log)
	case "status":
		runStatus(log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Customer Analytics CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  analytics <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  run       Execute a pipeline run (full, incremental or segments)")
	fmt.Println("  load      Load raw CSV batches into the warehouse")
	fmt.Println("  status    Show recent pipeline runs and their quality reports")
	fmt.Println("  help      Show this help message")
	fmt.Println("\nRun 'analytics <command> -h' for more information on a command.")
}

func openWarehouse(ctx context.Context, cfg *config.Config, log zerolog.Logger) warehouse.Store {
	store, err := bqstore.New(ctx, cfg.ProjectID, cfg.Dataset)
	if err != nil {
		log.Fatal().Err(err).Msg("Opening warehouse failed")
	}
	return store
}

func runPipeline(log zerolog.Logger) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	mode := fs.String("mode", "incremental", "Run mode: full, incremental or segments")
	local := fs.Bool("local", false, "Dry run against an in-memory warehouse seeded from the CSV flags")
	transactionsURI := fs.String("transactions", "", "CSV batch of transactions to seed a -local run")
	customersURI := fs.String("customers", "", "CSV batch of customer snapshots to seed a -local run")
	churnURI := fs.String("churn-scores", "", "CSV snapshot of churn scores to seed a -local run")
	fs.Parse(os.Args[2:])

	runMode := domain.RunMode(*mode)
	switch runMode {
	case domain.RunModeFull, domain.RunModeIncremental, domain.RunModeSegments:
	default:
		log.Fatal().Str("mode", *mode).Msg("Error: mode must be full, incremental or segments")
	}

	cfg := config.Load()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	var store warehouse.Store
	if *local {
		if *transactionsURI == "" || *customersURI == "" {
			log.Fatal().Msg("Error: -local requires -transactions and -customers")
		}
		store = memory.NewStore()
		loadBatches(ctx, store, *transactionsURI, *customersURI, *churnURI, log)
	} else {
		store = openWarehouse(ctx, cfg, log)
	}
	defer store.Close()

	runner := pipeline.NewRunner(store, cfg, log)
	run, err := runner.Run(ctx, runMode)
	if err != nil {
		log.Fatal().Err(err).Str("run_id", run.RunID).Msg("Pipeline run failed")
	}

	fmt.Printf("Run %s (%s) succeeded.\n", run.RunID, run.Mode)
	if run.Report != nil {
		printReport(run.Report)
	}
}

func runLoad(log zerolog.Logger) {
	fs := flag.NewFlagSet("load", flag.ExitOnError)
	transactionsURI := fs.String("transactions", "", "CSV batch of transactions (gs:// URI or local path)")
	customersURI := fs.String("customers", "", "CSV batch of customer snapshots (gs:// URI or local path)")
	churnURI := fs.String("churn-scores", "", "CSV snapshot of churn scores (gs:// URI or local path)")
	fs.Parse(os.Args[2:])

	if *transactionsURI == "" && *customersURI == "" && *churnURI == "" {
		log.Fatal().Msg("Error: at least one of --transactions, --customers, --churn-scores is required")
	}

	cfg := config.Load()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	store := openWarehouse(ctx, cfg, log)
	defer store.Close()

	loadBatches(ctx, store, *transactionsURI, *customersURI, *churnURI, log)
}

// loadBatches fetches, parses and appends each provided CSV batch. Empty
// URIs are skipped. Any failure is fatal since a half-loaded batch would
// skew the next run's dedup and reject accounting.
func loadBatches(ctx context.Context, store warehouse.Store, transactionsURI, customersURI, churnURI string, log zerolog.Logger) {
	now := time.Now().UTC()

	if transactionsURI != "" {
		data, err := ingest.FetchBatch(ctx, transactionsURI)
		if err != nil {
			log.Fatal().Err(err).Msg("Fetching transaction batch failed")
		}
		rows, err := ingest.ParseTransactionsCSV(bytes.NewReader(data), ingest.SourceTag(transactionsURI), now)
		if err != nil {
			log.Fatal().Err(err).Msg("Parsing transaction batch failed")
		}
		if err := store.AppendRawTransactions(ctx, rows); err != nil {
			log.Fatal().Err(err).Msg("Loading transaction batch failed")
		}
		fmt.Printf("Loaded %d raw transactions from %s\n", len(rows), transactionsURI)
	}

	if customersURI != "" {
		data, err := ingest.FetchBatch(ctx, customersURI)
		if err != nil {
			log.Fatal().Err(err).Msg("Fetching customer batch failed")
		}
		rows, err := ingest.ParseCustomersCSV(bytes.NewReader(data), ingest.SourceTag(customersURI), now)
		if err != nil {
			log.Fatal().Err(err).Msg("Parsing customer batch failed")
		}
		if err := store.AppendCustomerSnapshots(ctx, rows); err != nil {
			log.Fatal().Err(err).Msg("Loading customer batch failed")
		}
		fmt.Printf("Loaded %d customer snapshots from %s\n", len(rows), customersURI)
	}

	if churnURI != "" {
		data, err := ingest.FetchBatch(ctx, churnURI)
		if err != nil {
			log.Fatal().Err(err).Msg("Fetching churn score batch failed")
		}
		rows, err := ingest.ParseChurnScoresCSV(bytes.NewReader(data))
		if err != nil {
			log.Fatal().Err(err).Msg("Parsing churn score batch failed")
		}
		if err := store.ReplaceChurnScores(ctx, rows); err != nil {
			log.Fatal().Err(err).Msg("Loading churn scores failed")
		}
		fmt.Printf("Loaded %d churn scores from %s\n", len(rows), churnURI)
	}
}

func runStatus(log zerolog.Logger) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	limit := fs.Int("limit", 5, "Number of recent runs to show")
	fs.Parse(os.Args[2:])

	cfg := config.Load()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	store := openWarehouse(ctx, cfg, log)
	defer store.Close()

	runs, err := store.ListRuns(ctx, *limit)
	if err != nil {
		log.Fatal().Err(err).Msg("Listing runs failed")
	}
	if len(runs) == 0 {
		fmt.Println("No pipeline runs recorded.")
		return
	}

	for _, run := range runs {
		duration := ""
		if run.FinishedAt != nil {
			duration = run.FinishedAt.Sub(run.StartedAt).Round(time.Second).String()
		}
		fmt.Printf("%s  %-12s %-10s %s %s\n",
			run.StartedAt.Format(time.RFC3339), run.Mode, run.Status, run.RunID, duration)
		if run.Error != "" {
			fmt.Printf("    error: %s\n", run.Error)
		}
		if run.Report != nil {
			printReport(run.Report)
		}
	}
}

func printReport(report *domain.QualityReport) {
	fmt.Printf("    raw=%d clean=%d dupes=%d rejected=%d orphans=%d customers=%d aggregates=%d monthly=%d trends=%d\n",
		report.RawTransactions, report.CleanTransactions, report.DuplicatesDropped,
		report.RejectedRecords, report.OrphanTransactions, report.CurrentCustomers,
		report.AggregateRows, report.MonthlyRowsUpserted, report.TrendRows)
	for seg, n := range report.SegmentCounts {
		fmt.Printf("    segment %-22s %d\n", seg, n)
	}
	for _, check := range report.Checks {
		mark := "ok"
		if !check.Passed {
			mark = "FAIL"
			if check.WarnOnly {
				mark = "warn"
			}
		}
		fmt.Printf("    check %-40s %-4s %s\n", check.Name, mark, check.Detail)
	}
	if report.LateIgnoredMonths > 0 {
		fmt.Printf("    late months outside lookback window: %d (full run required to absorb)\n", report.LateIgnoredMonths)
	}
}
