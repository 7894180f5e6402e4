// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(...) initializer to build a Config with defaults.
// - All future functions must accept context.Context as the first parameter.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"runtime"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"oneof=debug info warn warning error"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr" validate:"required"`

	// ModelDir points at the directory holding model artifacts and their
	// manifest. Startup fails if no model loads from it.
	ModelDir string `koanf:"model_dir" validate:"required"`

	// WeightsPath points at the fusion weights artifact. Empty keeps the
	// built-in default weights, in memory only.
	WeightsPath string `koanf:"weights_path"`

	// QueueSize bounds the in-memory assessment request queue.
	QueueSize int `koanf:"queue_size" validate:"gt=0"`

	// WorkerCount sets the number of pipeline workers.
	WorkerCount int `koanf:"worker_count" validate:"gt=0"`

	// DedupeSize sets the size of the request deduplication cache.
	DedupeSize int `koanf:"dedupe_size" validate:"gt=0"`

	// ShardCount configures the number of shards in the assessment store.
	ShardCount int `koanf:"shard_count" validate:"gt=0"`

	// BatchConcurrency bounds how many subjects a batch assesses at once.
	BatchConcurrency int `koanf:"batch_concurrency" validate:"gt=0"`

	// SubjectTimeoutSeconds bounds one subject's pipeline run in a batch.
	SubjectTimeoutSeconds int `koanf:"subject_timeout_seconds" validate:"gt=0"`

	// MissingSourcePenalty is the confidence multiplier per absent
	// evidence source.
	MissingSourcePenalty float64 `koanf:"missing_source_penalty" validate:"gt=0,lte=1"`

	// DisagreementThreshold is the sub-score standard deviation above
	// which an assessment is flagged for review.
	DisagreementThreshold float64 `koanf:"disagreement_threshold" validate:"gt=0"`

	// RateLimitPerMinute and RateLimitPerHour cap calls to the downstream
	// reasoning service.
	RateLimitPerMinute int `koanf:"rate_limit_per_minute" validate:"gt=0"`
	RateLimitPerHour   int `koanf:"rate_limit_per_hour" validate:"gt=0"`
}

// New creates a Config with service defaults.
func New() *Config {
	return &Config{
		LogLevel:              "info",
		Addr:                  ":9080",
		ModelDir:              "artifacts/models",
		WeightsPath:           "",
		QueueSize:             10_000,
		WorkerCount:           runtime.NumCPU() * 4,
		DedupeSize:            50_000,
		ShardCount:            16,
		BatchConcurrency:      16,
		SubjectTimeoutSeconds: 30,
		MissingSourcePenalty:  0.85,
		DisagreementThreshold: 0.3,
		RateLimitPerMinute:    60,
		RateLimitPerHour:      1800,
	}
}
