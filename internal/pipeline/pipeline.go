package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"voidbot/internal/alerts"
	"voidbot/internal/config"
	"voidbot/internal/health"
	"voidbot/internal/logging"
	"voidbot/internal/notification"
	"voidbot/internal/queue"
	"voidbot/internal/recovery"
	"voidbot/internal/retry"
	"voidbot/internal/state"
)

// Outcome is the consumer's verdict for one notification.
type Outcome int

const (
	// OutcomeReply means a reply was produced and delivered.
	OutcomeReply Outcome = iota
	// OutcomeIgnore means the notification required no action at all.
	OutcomeIgnore
	// OutcomeNoReply means the consumer deliberately chose to stay silent.
	OutcomeNoReply
)

// Consumer handles one notification. Implementations wrap the LLM reply
// generation and delivery; errors should be tagged with the retry sentinels
// so the runner can classify them.
type Consumer interface {
	Handle(ctx context.Context, item *notification.Item) (Outcome, error)
}

// ConsumerFunc adapts a function to the Consumer interface.
type ConsumerFunc func(ctx context.Context, item *notification.Item) (Outcome, error)

func (f ConsumerFunc) Handle(ctx context.Context, item *notification.Item) (Outcome, error) {
	return f(ctx, item)
}

// Runner drives the queue: it drains pending notifications through the
// consumer, resolves outcomes, and keeps the recovery and health loops
// ticking. Shutdown is cooperative and only happens between items.
type Runner struct {
	cfg      *config.Config
	queue    *queue.Queue
	store    *state.Store
	monitor  *health.Monitor
	recovery *recovery.Engine
	alerter  alerts.Service
	consumer Consumer
	policy   retry.Policy
	logger   *slog.Logger

	pollInterval  time.Duration
	errorInterval time.Duration

	mu        sync.Mutex
	running   bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	sessionID int64
	wake      chan struct{}
	watcher   *watcher
	lastAlert health.Status
}

// NewRunner wires a pipeline runner. The recovery engine and alert service
// may be nil; the corresponding loops then do nothing.
func NewRunner(
	cfg *config.Config,
	q *queue.Queue,
	store *state.Store,
	monitor *health.Monitor,
	engine *recovery.Engine,
	alerter alerts.Service,
	consumer Consumer,
	logger *slog.Logger,
) *Runner {
	if alerter == nil {
		alerter = alerts.NewService(cfg)
	}
	runnerLogger := logging.NewComponentLogger(logger, "pipeline")
	policy := retry.FromConfig(cfg, runnerLogger)
	return &Runner{
		cfg:           cfg,
		queue:         q,
		store:         store,
		monitor:       monitor,
		recovery:      engine,
		alerter:       alerter,
		consumer:      consumer,
		policy:        policy,
		logger:        runnerLogger,
		pollInterval:  time.Duration(cfg.Workflow.QueuePollInterval) * time.Second,
		errorInterval: time.Duration(cfg.Workflow.ErrorRetryInterval) * time.Second,
		wake:          make(chan struct{}, 1),
		lastAlert:     health.StatusHealthy,
	}
}
