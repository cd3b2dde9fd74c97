package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"voidbot/internal/config"
)

func TestLoadDefaultsAndExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantQueue := filepath.Join(tempHome, ".local", "share", "voidbot", "queue")
	if cfg.Paths.QueueDir != wantQueue {
		t.Fatalf("unexpected queue dir: got %q want %q", cfg.Paths.QueueDir, wantQueue)
	}
	if cfg.StateDBPath() != filepath.Join(tempHome, ".local", "share", "voidbot", "state", "notifications.db") {
		t.Fatalf("unexpected state db path: %q", cfg.StateDBPath())
	}
	if !cfg.KindSuppressed("like") {
		t.Fatal("expected like notifications suppressed by default")
	}
	if cfg.KindSuppressed("mention") {
		t.Fatal("mention should not be suppressed by default")
	}
	if cfg.Retry.MaxRetries != 3 {
		t.Fatalf("unexpected retry default: %d", cfg.Retry.MaxRetries)
	}
	if cfg.Logging.Format != "console" {
		t.Fatalf("unexpected log format: %q", cfg.Logging.Format)
	}
}

func TestLoadParsesFileAndNormalizesHandles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := `
[queue]
suppressed_kinds = ["Like", "Repost", ""]
priority_handles = ["@Operator.Example.Org"]
retention_days = 3

[logging]
format = "JSON"
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to exist")
	}
	if got := cfg.Queue.SuppressedKinds; len(got) != 2 || got[0] != "like" || got[1] != "repost" {
		t.Fatalf("unexpected suppressed kinds: %v", got)
	}
	if got := cfg.Queue.PriorityHandles; len(got) != 1 || got[0] != "operator.example.org" {
		t.Fatalf("unexpected priority handles: %v", got)
	}
	if cfg.Queue.RetentionDays != 3 {
		t.Fatalf("unexpected retention: %d", cfg.Queue.RetentionDays)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("unexpected format: %q", cfg.Logging.Format)
	}
}

func TestValidateRejectsBadThresholds(t *testing.T) {
	cfg := config.Default()
	cfg.Health.ErrorRateCritical = 0.1
	cfg.Health.ErrorRateWarning = 0.5
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error when critical <= warning")
	}

	cfg = config.Default()
	cfg.Retry.MaxDelaySeconds = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for max delay below base delay")
	}
}

func TestEnsureDirectoriesCreatesBuckets(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.QueueDir = filepath.Join(base, "queue")
	cfg.Paths.StateDir = filepath.Join(base, "state")
	cfg.Paths.LogDir = filepath.Join(base, "logs")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, dir := range []string{
		cfg.Paths.QueueDir,
		filepath.Join(cfg.Paths.QueueDir, "errors"),
		filepath.Join(cfg.Paths.QueueDir, "no_reply"),
	} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("expected directory %q: %v", dir, err)
		}
	}
}
