package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	QueueDir string `toml:"queue_dir"`
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
}

// Queue contains admission and retention policy for the work queue.
type Queue struct {
	SuppressedKinds []string `toml:"suppressed_kinds"`
	PriorityHandles []string `toml:"priority_handles"`
	RetentionDays   int      `toml:"retention_days"`
}

// Retry contains backoff settings applied to fallible operations.
type Retry struct {
	MaxRetries       int `toml:"max_retries"`
	BaseDelaySeconds int `toml:"base_delay_seconds"`
	MaxDelaySeconds  int `toml:"max_delay_seconds"`
}

// Consumer configures the external reply agent the pipeline shells out to
// for each notification.
type Consumer struct {
	Command        []string `toml:"command"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
}

// Upstream configures the external command that lists platform notifications
// for the recovery engine.
type Upstream struct {
	Command []string `toml:"command"`
}

// Workflow contains pipeline loop timing and recovery settings.
type Workflow struct {
	QueuePollInterval   int `toml:"queue_poll_interval"`
	ErrorRetryInterval  int `toml:"error_retry_interval"`
	RescanEveryNItems   int `toml:"rescan_every_n_items"`
	RecoveryWindowHours int `toml:"recovery_window_hours"`
	RecoveryInterval    int `toml:"recovery_interval"`
	UpstreamPageSize    int `toml:"upstream_page_size"`
	UpstreamMaxPages    int `toml:"upstream_max_pages"`
	HealthCheckInterval int `toml:"health_check_interval"`
}

// Health contains thresholds for the queue health verdict.
type Health struct {
	ErrorRateWarning  float64 `toml:"error_rate_warning"`
	ErrorRateCritical float64 `toml:"error_rate_critical"`
	MaxBacklog        int     `toml:"max_backlog"`
	MinFreeDiskMB     int     `toml:"min_free_disk_mb"`
}

// Alerts contains configuration for ntfy operational alerts.
type Alerts struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for the pipeline.
//
// Configuration sections by subsystem:
//   - Paths: queue, state database, and log directories
//   - Queue: suppressed notification kinds, priority handles, retention
//   - Retry: backoff applied to queue I/O and consumer invocation
//   - Consumer: external reply agent command
//   - Upstream: external notification listing command
//   - Workflow: poll intervals, priority rescan cadence, recovery window
//   - Health: error-rate and backlog thresholds
//   - Alerts: ntfy push alert settings
//   - Logging: log format and level
type Config struct {
	Paths    Paths    `toml:"paths"`
	Queue    Queue    `toml:"queue"`
	Retry    Retry    `toml:"retry"`
	Consumer Consumer `toml:"consumer"`
	Upstream Upstream `toml:"upstream"`
	Workflow Workflow `toml:"workflow"`
	Health   Health   `toml:"health"`
	Alerts   Alerts   `toml:"alerts"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/voidbot/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("voidbot.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for pipeline operation,
// including the three queue buckets.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.Paths.QueueDir,
		filepath.Join(c.Paths.QueueDir, "errors"),
		filepath.Join(c.Paths.QueueDir, "no_reply"),
		c.Paths.StateDir,
		c.Paths.LogDir,
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// StateDBPath returns the path of the notification state database.
func (c *Config) StateDBPath() string {
	return filepath.Join(c.Paths.StateDir, "notifications.db")
}

// LockPath returns the path of the daemon lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "voidbot.lock")
}

// KindSuppressed reports whether a notification kind is configured for
// outright suppression.
func (c *Config) KindSuppressed(kind string) bool {
	kind = strings.ToLower(strings.TrimSpace(kind))
	for _, suppressed := range c.Queue.SuppressedKinds {
		if kind == suppressed {
			return true
		}
	}
	return false
}

// SampleConfig returns the embedded sample configuration document.
func SampleConfig() string {
	return sampleConfig
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}
