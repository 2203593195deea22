package config

import (
	"os"
	"strconv"
)

// Config holds the runtime configuration for the analytics pipeline.
// Values are sourced from environment variables with sensible
// defaults; the CLI loads a local .env first when present.
type Config struct {
	// ProjectID and Dataset identify the BigQuery warehouse.
	ProjectID string
	Dataset   string

	// RawBucket is the GCS bucket raw batches are loaded from when a
	// bare object name is given instead of a full gs:// URI.
	RawBucket string

	// LookbackMonths is how many months before the high-water mark an
	// incremental run reprocesses, to absorb late-arriving
	// transactions. The window is the high-water month plus this many
	// preceding months.
	LookbackMonths int

	// MinSegmentTransactions is the minimum transaction count below
	// which a customer is reported as not yet scored instead of being
	// forced into a behavioral segment.
	MinSegmentTransactions int64

	// MaxRejectFraction aborts a run when more than this fraction of
	// a raw batch fails quality checks.
	MaxRejectFraction float64

	// SegmentFloorPct is the advisory minimum share (percent) any
	// segment should hold on a representative dataset.
	SegmentFloorPct float64
}

// Load reads configuration from environment variables and applies
// defaults.
func Load() *Config {
	cfg := &Config{
		ProjectID:              getenv("ANALYTICS_PROJECT_ID", ""),
		Dataset:                getenv("ANALYTICS_DATASET", "customer_analytics"),
		RawBucket:              getenv("ANALYTICS_RAW_BUCKET", ""),
		LookbackMonths:         2,
		MinSegmentTransactions: 3,
		MaxRejectFraction:      0.05,
		SegmentFloorPct:        5.0,
	}

	if v := os.Getenv("ANALYTICS_LOOKBACK_MONTHS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.LookbackMonths = n
		}
	}
	if v := os.Getenv("ANALYTICS_MIN_SEGMENT_TRANSACTIONS"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n >= 0 {
			cfg.MinSegmentTransactions = n
		}
	}
	if v := os.Getenv("ANALYTICS_MAX_REJECT_FRACTION"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 && f <= 1 {
			cfg.MaxRejectFraction = f
		}
	}
	if v := os.Getenv("ANALYTICS_SEGMENT_FLOOR_PCT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
			cfg.SegmentFloorPct = f
		}
	}

	return cfg
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
