package testsupport

import (
	"path/filepath"
	"testing"

	"voidbot/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.QueueDir = filepath.Join(base, "queue")
	cfg.Paths.StateDir = filepath.Join(base, "state")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Workflow.QueuePollInterval = 1
	cfg.Workflow.ErrorRetryInterval = 1

	for _, opt := range opts {
		opt(&cfg)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return &cfg
}

// WithSuppressedKinds overrides the suppressed notification kinds.
func WithSuppressedKinds(kinds ...string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Queue.SuppressedKinds = kinds
	}
}

// WithPriorityHandles overrides the priority author handles.
func WithPriorityHandles(handles ...string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Queue.PriorityHandles = handles
	}
}
