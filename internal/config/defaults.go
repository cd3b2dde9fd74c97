package config

const (
	defaultQueueDir            = "~/.local/share/voidbot/queue"
	defaultStateDir            = "~/.local/share/voidbot/state"
	defaultLogDir              = "~/.local/share/voidbot/logs"
	defaultRetentionDays       = 7
	defaultMaxRetries          = 3
	defaultBaseDelaySeconds    = 1
	defaultMaxDelaySeconds     = 60
	defaultConsumerTimeout     = 120
	defaultQueuePollInterval   = 5
	defaultErrorRetryInterval  = 10
	defaultRescanEveryNItems   = 5
	defaultRecoveryWindowHours = 24
	defaultRecoveryInterval    = 3600
	defaultUpstreamPageSize    = 100
	defaultUpstreamMaxPages    = 50
	defaultHealthCheckInterval = 60
	defaultErrorRateWarning    = 0.2
	defaultErrorRateCritical   = 0.5
	defaultMaxBacklog          = 1000
	defaultMinFreeDiskMB       = 512
	defaultAlertRequestTimeout = 10
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			QueueDir: defaultQueueDir,
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Queue: Queue{
			SuppressedKinds: []string{"like"},
			RetentionDays:   defaultRetentionDays,
		},
		Retry: Retry{
			MaxRetries:       defaultMaxRetries,
			BaseDelaySeconds: defaultBaseDelaySeconds,
			MaxDelaySeconds:  defaultMaxDelaySeconds,
		},
		Consumer: Consumer{
			TimeoutSeconds: defaultConsumerTimeout,
		},
		Workflow: Workflow{
			QueuePollInterval:   defaultQueuePollInterval,
			ErrorRetryInterval:  defaultErrorRetryInterval,
			RescanEveryNItems:   defaultRescanEveryNItems,
			RecoveryWindowHours: defaultRecoveryWindowHours,
			RecoveryInterval:    defaultRecoveryInterval,
			UpstreamPageSize:    defaultUpstreamPageSize,
			UpstreamMaxPages:    defaultUpstreamMaxPages,
			HealthCheckInterval: defaultHealthCheckInterval,
		},
		Health: Health{
			ErrorRateWarning:  defaultErrorRateWarning,
			ErrorRateCritical: defaultErrorRateCritical,
			MaxBacklog:        defaultMaxBacklog,
			MinFreeDiskMB:     defaultMinFreeDiskMB,
		},
		Alerts: Alerts{
			RequestTimeout: defaultAlertRequestTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
