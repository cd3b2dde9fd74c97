package pipeline

import (
	"context"
	"errors"
	"time"

	"voidbot/internal/health"
	"voidbot/internal/logging"
)

// Start begins background queue processing.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return errors.New("pipeline already running")
	}

	sessionID, err := r.store.StartSession(ctx)
	if err != nil {
		r.mu.Unlock()
		return err
	}
	r.sessionID = sessionID

	w, err := newWatcher(r.queue.Root(), r.wake, r.logger)
	if err != nil {
		r.logger.Warn("queue watcher unavailable, falling back to polling", logging.Error(err))
	} else {
		r.watcher = w
	}

	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.running = true
	r.wg.Add(1)
	r.mu.Unlock()

	stats, statsErr := r.queue.Stats()
	if statsErr != nil {
		r.logger.Warn("queue stats unavailable at startup", logging.Error(statsErr))
	} else if err := r.alerter.PipelineStarted(runCtx, stats.Pending); err != nil {
		r.logger.Warn("start alert failed",
			logging.String(logging.FieldAlert, "started"),
			logging.Error(err))
	}

	go r.runLoop(runCtx)
	return nil
}

// Stop terminates background processing and waits for the in-flight item to
// finish.
func (r *Runner) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	cancel := r.cancel
	r.running = false
	r.cancel = nil
	watcher := r.watcher
	r.watcher = nil
	sessionID := r.sessionID
	r.mu.Unlock()

	cancel()
	r.wg.Wait()
	if watcher != nil {
		watcher.Close()
	}
	if err := r.store.EndSession(context.Background(), sessionID); err != nil {
		r.logger.Warn("end session failed", logging.Error(err))
	}
}

func (r *Runner) runLoop(ctx context.Context) {
	defer r.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		started := time.Now()
		pass, err := r.drain(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			r.logger.Error("drain pass failed", logging.Error(err))
			if alertErr := r.alerter.Error(ctx, err, "queue drain"); alertErr != nil {
				r.logger.Warn("error alert failed",
					logging.String(logging.FieldAlert, "error"),
					logging.Error(alertErr))
			}
			r.waitOrShutdown(ctx, r.errorInterval)
			continue
		}
		if pass.handled > 0 {
			// The pending bucket is empty when drain returns without error.
			if err := r.alerter.QueueDrained(ctx, pass.handled-pass.failed, pass.failed, time.Since(started)); err != nil {
				r.logger.Warn("drain alert failed",
					logging.String(logging.FieldAlert, "drained"),
					logging.Error(err))
			}
			continue
		}
		if err := r.store.TouchSession(ctx, r.sessionID); err != nil && !errors.Is(err, context.Canceled) {
			r.logger.Warn("session heartbeat failed", logging.Error(err))
		}
		r.waitForWorkOrShutdown(ctx)
	}
}

func (r *Runner) waitForWorkOrShutdown(ctx context.Context) {
	timer := time.NewTimer(r.pollInterval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-r.wake:
	case <-timer.C:
	}
}

func (r *Runner) waitOrShutdown(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// HealthLoop observes queue health on the configured interval until the
// context ends. CRITICAL transitions fire an alert; recovering to a better
// status arms the alert again.
func (r *Runner) HealthLoop(ctx context.Context) error {
	if r.monitor == nil {
		<-ctx.Done()
		return ctx.Err()
	}
	interval := time.Duration(r.cfg.Workflow.HealthCheckInterval) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		report, err := r.monitor.Observe(ctx)
		if err != nil {
			r.logger.Warn("health observation failed", logging.Error(err))
			continue
		}
		r.maybeAlert(ctx, report)
	}
}

func (r *Runner) maybeAlert(ctx context.Context, report health.Report) {
	r.mu.Lock()
	previous := r.lastAlert
	r.lastAlert = report.Status
	r.mu.Unlock()

	if report.Status == health.StatusCritical && previous != health.StatusCritical {
		if err := r.alerter.HealthAlert(ctx, string(report.Status), report.Reasons); err != nil {
			r.logger.Warn("health alert failed",
				logging.String(logging.FieldAlert, "health"),
				logging.Error(err))
		}
	}
}

// RecoveryLoop periodically reconciles the queue against upstream until the
// context ends.
func (r *Runner) RecoveryLoop(ctx context.Context) error {
	if r.recovery == nil {
		<-ctx.Done()
		return ctx.Err()
	}
	interval := time.Duration(r.cfg.Workflow.RecoveryInterval) * time.Second
	window := time.Duration(r.cfg.Workflow.RecoveryWindowHours) * time.Hour
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		recovered, err := r.recovery.Reconcile(ctx, window, false)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			r.logger.Warn("reconciliation failed", logging.Error(err))
			continue
		}
		if recovered > 0 {
			r.kick()
			if err := r.alerter.RecoveryReport(ctx, recovered); err != nil {
				r.logger.Warn("recovery alert failed",
					logging.String(logging.FieldAlert, "recovery"),
					logging.Error(err))
			}
		}
	}
}

// MaintenanceLoop purges old terminal records once a day.
func (r *Runner) MaintenanceLoop(ctx context.Context) error {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		age := time.Duration(r.cfg.Queue.RetentionDays) * 24 * time.Hour
		if _, err := r.store.PurgeOlderThan(ctx, age); err != nil {
			r.logger.Warn("record purge failed", logging.Error(err))
		}
		if _, err := r.queue.Repair(); err != nil {
			r.logger.Warn("queue repair failed", logging.Error(err))
		}
	}
}

// kick wakes the run loop without waiting for the poll interval.
func (r *Runner) kick() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}
