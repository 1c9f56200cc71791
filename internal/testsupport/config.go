package testsupport

import (
	"path/filepath"
	"testing"

	"clipforge/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "runs")
	cfg.Paths.OutputDir = filepath.Join(base, "output")
	cfg.Paths.LogDir = filepath.Join(base, "logs")

	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	return &cfg
}

// WithChunking sets the transcript chunking strategy.
func WithChunking(strategy string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Transcript.Chunking = strategy
	}
}

// WithConfidenceThreshold sets the transcript confidence floor.
func WithConfidenceThreshold(threshold float64) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Transcript.ConfidenceThreshold = threshold
	}
}

// WithRenderWorkers sets the render worker pool size.
func WithRenderWorkers(workers int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Render.Workers = workers
	}
}
