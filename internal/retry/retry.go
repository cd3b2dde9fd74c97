package retry

import (
	"context"
	"log/slog"
	"time"

	"voidbot/internal/config"
	"voidbot/internal/logging"
)

// Policy controls the backoff schedule. An operation gets one initial
// attempt plus up to MaxRetries retries, with delays doubling from BaseDelay
// and capped at MaxDelay.
type Policy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Logger     *slog.Logger

	// sleep is replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// FromConfig builds a policy from the configured retry settings.
func FromConfig(cfg *config.Config, logger *slog.Logger) Policy {
	return Policy{
		MaxRetries: cfg.Retry.MaxRetries,
		BaseDelay:  time.Duration(cfg.Retry.BaseDelaySeconds) * time.Second,
		MaxDelay:   time.Duration(cfg.Retry.MaxDelaySeconds) * time.Second,
		Logger:     logger,
	}
}

func (p Policy) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return logging.NewNop()
}

func (p Policy) wait(ctx context.Context, d time.Duration) error {
	if p.sleep != nil {
		return p.sleep(ctx, d)
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Delay returns the backoff before retry attempt n (0-based).
func (p Policy) Delay(attempt int) time.Duration {
	delay := p.BaseDelay
	if delay <= 0 {
		delay = time.Second
	}
	for i := 0; i < attempt; i++ {
		delay *= 2
		if p.MaxDelay > 0 && delay >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		return p.MaxDelay
	}
	return delay
}

// Do runs op, retrying transient and infrastructure failures with
// exponential backoff. Permanent and no-reply failures return immediately.
// When retries are exhausted the last attempt's error is returned unchanged
// so callers can still classify it.
func (p Policy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; ; attempt++ {
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		class := Classify(lastErr)
		if !class.Retryable() || attempt >= p.MaxRetries {
			return lastErr
		}
		delay := p.Delay(attempt)
		p.logger().Warn("retrying after failure",
			logging.Int("attempt", attempt+1),
			logging.Int("max_retries", p.MaxRetries),
			logging.Duration("delay", delay),
			logging.String("class", class.String()),
			logging.Error(lastErr))
		if err := p.wait(ctx, delay); err != nil {
			return lastErr
		}
	}
}

// DoValue is Do for operations that produce a value.
func DoValue[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := p.Do(ctx, func(ctx context.Context) error {
		var opErr error
		result, opErr = op(ctx)
		return opErr
	})
	return result, err
}
