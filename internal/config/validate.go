package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateQueue(); err != nil {
		return err
	}
	if err := c.validateRetry(); err != nil {
		return err
	}
	if err := c.validateConsumer(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateHealth(); err != nil {
		return err
	}
	if err := c.validateAlerts(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateQueue() error {
	if c.Queue.RetentionDays <= 0 {
		return errors.New("queue.retention_days must be positive")
	}
	return nil
}

func (c *Config) validateRetry() error {
	if c.Retry.MaxRetries < 0 {
		return errors.New("retry.max_retries must be >= 0")
	}
	if c.Retry.BaseDelaySeconds <= 0 {
		return errors.New("retry.base_delay_seconds must be positive")
	}
	if c.Retry.MaxDelaySeconds < c.Retry.BaseDelaySeconds {
		return errors.New("retry.max_delay_seconds must be >= retry.base_delay_seconds")
	}
	return nil
}

func (c *Config) validateConsumer() error {
	if c.Consumer.TimeoutSeconds <= 0 {
		return errors.New("consumer.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if err := ensurePositiveMap(map[string]int{
		"workflow.queue_poll_interval":   c.Workflow.QueuePollInterval,
		"workflow.error_retry_interval":  c.Workflow.ErrorRetryInterval,
		"workflow.rescan_every_n_items":  c.Workflow.RescanEveryNItems,
		"workflow.recovery_window_hours": c.Workflow.RecoveryWindowHours,
		"workflow.recovery_interval":     c.Workflow.RecoveryInterval,
		"workflow.upstream_page_size":    c.Workflow.UpstreamPageSize,
		"workflow.upstream_max_pages":    c.Workflow.UpstreamMaxPages,
		"workflow.health_check_interval": c.Workflow.HealthCheckInterval,
	}); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateHealth() error {
	if c.Health.ErrorRateWarning <= 0 || c.Health.ErrorRateWarning > 1 {
		return errors.New("health.error_rate_warning must be between 0 and 1")
	}
	if c.Health.ErrorRateCritical <= 0 || c.Health.ErrorRateCritical > 1 {
		return errors.New("health.error_rate_critical must be between 0 and 1")
	}
	if c.Health.ErrorRateCritical <= c.Health.ErrorRateWarning {
		return errors.New("health.error_rate_critical must be greater than health.error_rate_warning")
	}
	if c.Health.MaxBacklog <= 0 {
		return errors.New("health.max_backlog must be positive")
	}
	if c.Health.MinFreeDiskMB < 0 {
		return errors.New("health.min_free_disk_mb must be >= 0")
	}
	return nil
}

func (c *Config) validateAlerts() error {
	if c.Alerts.RequestTimeout <= 0 {
		return errors.New("alerts.request_timeout must be positive")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
