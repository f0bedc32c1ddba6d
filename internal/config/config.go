// Package config defines process configuration and its defaults.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - Load layers a YAML file and environment variables on top.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"context"
	"fmt"
	"runtime"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the ops HTTP listen address (/healthz, /metrics).
	Addr string `koanf:"addr"`

	// GitHubBaseURL overrides the code-hosting API endpoint (tests, GHES).
	GitHubBaseURL string `koanf:"github_base_url"`

	// GitHubRepoLimit bounds how many recently updated repositories are scanned.
	GitHubRepoLimit int `koanf:"github_repo_limit"`

	// HarvestConcurrency caps simultaneous outbound requests.
	HarvestConcurrency int `koanf:"harvest_concurrency"`

	// HarvestTimeoutMS bounds a whole harvest; partial results are kept.
	HarvestTimeoutMS int `koanf:"harvest_timeout_ms"`

	// StreamChunkBytes is the read size used when streaming manifests.
	StreamChunkBytes int `koanf:"stream_chunk_bytes"`

	// DatabasePath is the SQLite file. Empty selects the in-memory store.
	DatabasePath string `koanf:"database_path"`

	// OffloadWorkers is the number of blocking workers.
	OffloadWorkers int `koanf:"offload_workers"`

	// OffloadQueueSize bounds queued blocking jobs.
	OffloadQueueSize int `koanf:"offload_queue_size"`

	// ModelDir holds the risk model artifact. Empty means heuristic only.
	ModelDir string `koanf:"model_dir"`

	// GovernanceRetentionDays is the governance log retention window.
	GovernanceRetentionDays int `koanf:"governance_retention_days"`

	// RetentionIntervalMinutes schedules the retention job in serve mode.
	RetentionIntervalMinutes int `koanf:"retention_interval_minutes"`

	// MetricsRefreshSeconds is how often serve refreshes the system and queue
	// gauges.
	MetricsRefreshSeconds int `koanf:"metrics_refresh_seconds"`

	// SpikeThreshold is the minimum score increase logged as a risk spike.
	SpikeThreshold int `koanf:"spike_threshold"`

	// MarketSkills is the high-demand list used for market overlap.
	MarketSkills []string `koanf:"market_skills"`
}

// New creates a Config populated with defaults. ctx is reserved for loaders
// that need it.
func New(_ context.Context) *Config {
	workers := runtime.NumCPU()
	if workers < 2 {
		workers = 2
	}
	return &Config{
		LogLevel:                 "info",
		LogFormat:                "text",
		Addr:                     ":9080",
		GitHubRepoLimit:          20,
		HarvestConcurrency:       8,
		HarvestTimeoutMS:         30_000,
		StreamChunkBytes:         64 * 1024,
		DatabasePath:             "careerpulse.db",
		OffloadWorkers:           workers,
		OffloadQueueSize:         1024,
		GovernanceRetentionDays:  90,
		RetentionIntervalMinutes: 60,
		MetricsRefreshSeconds:    10,
		SpikeThreshold:           15,
		MarketSkills: []string{
			"Rust", "Go", "Python", "AI/ML", "React", "System Design", "Cloud Architecture",
		},
	}
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.GitHubRepoLimit < 1 || c.GitHubRepoLimit > 100:
		return fmt.Errorf("%w: github_repo_limit must be in [1,100], got %d", ErrInvalidConfig, c.GitHubRepoLimit)
	case c.HarvestConcurrency < 5 || c.HarvestConcurrency > 10:
		return fmt.Errorf("%w: harvest_concurrency must be in [5,10], got %d", ErrInvalidConfig, c.HarvestConcurrency)
	case c.StreamChunkBytes < 1024:
		return fmt.Errorf("%w: stream_chunk_bytes must be at least 1024, got %d", ErrInvalidConfig, c.StreamChunkBytes)
	case c.OffloadWorkers < 1:
		return fmt.Errorf("%w: offload_workers must be positive", ErrInvalidConfig)
	case c.OffloadQueueSize < 1:
		return fmt.Errorf("%w: offload_queue_size must be positive", ErrInvalidConfig)
	case c.GovernanceRetentionDays < 1:
		return fmt.Errorf("%w: governance_retention_days must be positive", ErrInvalidConfig)
	case c.MetricsRefreshSeconds < 1:
		return fmt.Errorf("%w: metrics_refresh_seconds must be positive", ErrInvalidConfig)
	case c.SpikeThreshold < 1:
		return fmt.Errorf("%w: spike_threshold must be positive", ErrInvalidConfig)
	}
	return nil
}
