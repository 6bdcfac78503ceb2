// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults, Load(ctx) to layer sources.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"runtime"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory analysis job queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of analysis workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets the size of the deduplication cache.
	DedupeSize int `koanf:"dedupe_size"`

	// MaxScoreboardLimit caps GET /scoreboard?limit.
	MaxScoreboardLimit int `koanf:"max_scoreboard_limit"`

	// DefaultOD applies to submissions that omit overall difficulty.
	DefaultOD float64 `koanf:"default_od"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:           "info",
		Addr:               ":8080",
		QueueSize:          100_000,
		WorkerCount:        runtime.NumCPU() * 10,
		DedupeSize:         500_000,
		MaxScoreboardLimit: 100,
		DefaultOD:          8.0,
	}
}
