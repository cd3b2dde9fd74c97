package health

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"voidbot/internal/config"
	"voidbot/internal/logging"
	"voidbot/internal/queue"
	"voidbot/internal/state"
)

// Status is the coarse health verdict.
type Status string

const (
	StatusHealthy  Status = "HEALTHY"
	StatusWarning  Status = "WARNING"
	StatusCritical Status = "CRITICAL"
)

// Trend describes how the pending bucket is moving between snapshots.
type Trend string

const (
	TrendStable    Trend = "stable"
	TrendGrowing   Trend = "growing"
	TrendShrinking Trend = "shrinking"
	TrendUnknown   Trend = "unknown"
)

const historyLimit = 100

// Snapshot is one observation of the queue and state store.
type Snapshot struct {
	At            time.Time
	Queue         queue.Stats
	UniqueHandles int
	TotalResolved int
	FreeDiskMB    int64
}

// Report is a verdict plus the reasons behind it.
type Report struct {
	Status   Status
	Reasons  []string
	Snapshot Snapshot
}

// Monitor periodically observes the queue and keeps a bounded history so
// trends and processing rates can be derived. It never mutates the queue.
type Monitor struct {
	cfg    *config.Config
	queue  *queue.Queue
	store  *state.Store
	logger *slog.Logger

	mu          sync.Mutex
	history     []Snapshot
	infraFailed bool

	// freeDisk is replaced in tests.
	freeDisk func(path string) (int64, error)
}

// NewMonitor builds a monitor over the given queue and state store.
func NewMonitor(cfg *config.Config, q *queue.Queue, store *state.Store, logger *slog.Logger) *Monitor {
	return &Monitor{
		cfg:      cfg,
		queue:    q,
		store:    store,
		logger:   logging.NewComponentLogger(logger, "health"),
		freeDisk: freeDiskMB,
	}
}

// Observe takes a snapshot, appends it to the history, and returns the
// resulting report.
func (m *Monitor) Observe(ctx context.Context) (Report, error) {
	snapshot, err := m.collect(ctx)
	if err != nil {
		return Report{}, err
	}

	m.mu.Lock()
	m.history = append(m.history, snapshot)
	if len(m.history) > historyLimit {
		m.history = m.history[len(m.history)-historyLimit:]
	}
	m.mu.Unlock()

	report := m.Evaluate(snapshot)
	if report.Status != StatusHealthy {
		m.logger.Warn("health degraded",
			logging.String("status", string(report.Status)),
			logging.Any("reasons", report.Reasons))
	}
	return report, nil
}

func (m *Monitor) collect(ctx context.Context) (Snapshot, error) {
	stats, err := m.queue.Stats()
	if err != nil {
		return Snapshot{}, fmt.Errorf("collect queue stats: %w", err)
	}

	snapshot := Snapshot{At: time.Now(), Queue: stats}

	handles := make(map[string]struct{})
	entries, err := m.queue.List(queue.BucketPending)
	if err == nil {
		for _, entry := range entries {
			item, loadErr := entry.Load()
			if loadErr != nil {
				continue
			}
			if item.AuthorHandle != "" {
				handles[item.AuthorHandle] = struct{}{}
			}
		}
	}
	snapshot.UniqueHandles = len(handles)

	stateStats, err := m.store.Stats(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("collect state stats: %w", err)
	}
	snapshot.TotalResolved = stateStats.ByStatus[state.StatusProcessed] +
		stateStats.ByStatus[state.StatusIgnored] +
		stateStats.ByStatus[state.StatusNoReply]

	free, err := m.freeDisk(m.queue.Root())
	if err != nil {
		m.logger.Warn("free disk check failed", logging.Error(err))
		free = -1
	}
	snapshot.FreeDiskMB = free

	return snapshot, nil
}

// Evaluate derives a verdict from a snapshot plus the sticky infrastructure
// flag. It does not touch the history.
func (m *Monitor) Evaluate(snapshot Snapshot) Report {
	report := Report{Status: StatusHealthy, Snapshot: snapshot}

	errorRate := snapshot.Queue.ErrorRate()
	total := snapshot.Queue.Total()
	minFree := int64(m.cfg.Health.MinFreeDiskMB)

	m.mu.Lock()
	infraFailed := m.infraFailed
	m.mu.Unlock()

	critical := func(reason string) {
		report.Status = StatusCritical
		report.Reasons = append(report.Reasons, reason)
	}
	warning := func(reason string) {
		if report.Status != StatusCritical {
			report.Status = StatusWarning
		}
		report.Reasons = append(report.Reasons, reason)
	}

	if errorRate > m.cfg.Health.ErrorRateCritical {
		critical(fmt.Sprintf("error rate %.2f exceeds %.2f", errorRate, m.cfg.Health.ErrorRateCritical))
	}
	if snapshot.Queue.Pending == 0 && total > 0 {
		critical("pending bucket empty while failed records remain")
	}
	if snapshot.FreeDiskMB >= 0 && minFree > 0 && snapshot.FreeDiskMB < minFree/4 {
		critical(fmt.Sprintf("free disk %dMB critically low", snapshot.FreeDiskMB))
	}
	if infraFailed {
		critical("infrastructure failure escalated by retry path")
	}

	if report.Status == StatusCritical {
		return report
	}

	if errorRate > m.cfg.Health.ErrorRateWarning {
		warning(fmt.Sprintf("error rate %.2f exceeds %.2f", errorRate, m.cfg.Health.ErrorRateWarning))
	}
	if m.cfg.Health.MaxBacklog > 0 && total > m.cfg.Health.MaxBacklog {
		warning(fmt.Sprintf("%d records exceed backlog limit %d", total, m.cfg.Health.MaxBacklog))
	}
	if snapshot.FreeDiskMB >= 0 && minFree > 0 && snapshot.FreeDiskMB < minFree {
		warning(fmt.Sprintf("free disk %dMB below %dMB", snapshot.FreeDiskMB, minFree))
	}

	return report
}

// EscalateInfrastructure raises a sticky flag that forces CRITICAL verdicts
// until ClearInfrastructure is called. Wired as the retry escalation hook.
func (m *Monitor) EscalateInfrastructure(reason string) {
	m.mu.Lock()
	already := m.infraFailed
	m.infraFailed = true
	m.mu.Unlock()
	if !already {
		m.logger.Error("infrastructure failure escalated", logging.String("reason", reason))
	}
}

// ClearInfrastructure resets the sticky infrastructure flag, typically after
// a successful consumer cycle.
func (m *Monitor) ClearInfrastructure() {
	m.mu.Lock()
	m.infraFailed = false
	m.mu.Unlock()
}

// TrendDirection compares the two most recent pending sizes. Changes within
// ten percent count as stable.
func (m *Monitor) TrendDirection() Trend {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.history) < 2 {
		return TrendUnknown
	}
	prev := m.history[len(m.history)-2].Queue.Pending
	curr := m.history[len(m.history)-1].Queue.Pending
	if prev == 0 {
		if curr == 0 {
			return TrendStable
		}
		return TrendGrowing
	}
	change := (float64(curr) - float64(prev)) / float64(prev)
	switch {
	case change > 0.10:
		return TrendGrowing
	case change < -0.10:
		return TrendShrinking
	default:
		return TrendStable
	}
}

// ProcessingRate derives items per minute from the resolved-count delta
// between the last two snapshots. Zero when the history is too short.
func (m *Monitor) ProcessingRate() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.history) < 2 {
		return 0
	}
	prev := m.history[len(m.history)-2]
	curr := m.history[len(m.history)-1]
	minutes := curr.At.Sub(prev.At).Minutes()
	if minutes <= 0 {
		return 0
	}
	delta := curr.TotalResolved - prev.TotalResolved
	if delta < 0 {
		return 0
	}
	return float64(delta) / minutes
}

// DetectBacklog reports whether the pending bucket grew strictly across the
// last three snapshots.
func (m *Monitor) DetectBacklog() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.history) < 3 {
		return false
	}
	last := m.history[len(m.history)-3:]
	return last[0].Queue.Pending < last[1].Queue.Pending && last[1].Queue.Pending < last[2].Queue.Pending
}

// History returns a copy of the recorded snapshots, oldest first.
func (m *Monitor) History() []Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]Snapshot, len(m.history))
	copy(cp, m.history)
	return cp
}
