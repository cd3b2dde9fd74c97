package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func testPolicy(maxRetries int) (Policy, *[]time.Duration) {
	delays := &[]time.Duration{}
	p := Policy{
		MaxRetries: maxRetries,
		BaseDelay:  time.Second,
		MaxDelay:   60 * time.Second,
		sleep: func(_ context.Context, d time.Duration) error {
			*delays = append(*delays, d)
			return nil
		},
	}
	return p, delays
}

func TestDoRetriesTransientUpToCeiling(t *testing.T) {
	p, delays := testPolicy(3)
	attempts := 0
	cause := fmt.Errorf("%w: rate limited", ErrTransient)

	err := p.Do(context.Background(), func(context.Context) error {
		attempts++
		return cause
	})
	if !errors.Is(err, ErrTransient) {
		t.Fatalf("expected original transient error, got %v", err)
	}
	if attempts != 4 {
		t.Fatalf("expected 1 initial + 3 retries, got %d attempts", attempts)
	}
	if len(*delays) != 3 {
		t.Fatalf("expected 3 backoff sleeps, got %d", len(*delays))
	}
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}
	for i, d := range *delays {
		if d != want[i] {
			t.Fatalf("delay %d = %v, want %v", i, d, want[i])
		}
	}
}

func TestDoDoesNotRetryPermanent(t *testing.T) {
	p, delays := testPolicy(3)
	attempts := 0

	err := p.Do(context.Background(), func(context.Context) error {
		attempts++
		return fmt.Errorf("%w: bad payload", ErrPermanent)
	})
	if !errors.Is(err, ErrPermanent) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected a single attempt, got %d", attempts)
	}
	if len(*delays) != 0 {
		t.Fatalf("expected no sleeps, got %d", len(*delays))
	}
}

func TestDoDoesNotRetryUnknownErrors(t *testing.T) {
	p, _ := testPolicy(3)
	attempts := 0

	err := p.Do(context.Background(), func(context.Context) error {
		attempts++
		return errors.New("something novel went wrong")
	})
	if err == nil || attempts != 1 {
		t.Fatalf("expected unknown error to fail fast, attempts=%d err=%v", attempts, err)
	}
}

func TestDoSucceedsAfterTransientFailures(t *testing.T) {
	p, _ := testPolicy(3)
	attempts := 0

	err := p.Do(context.Background(), func(context.Context) error {
		attempts++
		if attempts < 3 {
			return fmt.Errorf("%w: flaky", ErrTransient)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestDoStopsWhenContextCanceled(t *testing.T) {
	p := Policy{
		MaxRetries: 5,
		BaseDelay:  time.Second,
		sleep: func(ctx context.Context, _ time.Duration) error {
			return context.Canceled
		},
	}
	attempts := 0
	cause := fmt.Errorf("%w: flaky", ErrTransient)

	err := p.Do(context.Background(), func(context.Context) error {
		attempts++
		return cause
	})
	if !errors.Is(err, ErrTransient) {
		t.Fatalf("expected last attempt error, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected cancellation to stop retries, got %d attempts", attempts)
	}
}

func TestDelayCapsAtMax(t *testing.T) {
	p := Policy{MaxRetries: 10, BaseDelay: time.Second, MaxDelay: 60 * time.Second}
	if d := p.Delay(0); d != time.Second {
		t.Fatalf("Delay(0) = %v", d)
	}
	if d := p.Delay(5); d != 32*time.Second {
		t.Fatalf("Delay(5) = %v", d)
	}
	if d := p.Delay(10); d != 60*time.Second {
		t.Fatalf("Delay(10) = %v, want cap", d)
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Class
	}{
		{"nil", nil, ClassPermanent},
		{"transient sentinel", Wrap(ErrTransient, "consumer", "generate", errors.New("x")), ClassTransient},
		{"permanent sentinel", Wrap(ErrPermanent, "consumer", "generate", errors.New("x")), ClassPermanent},
		{"infrastructure sentinel", Wrap(ErrInfrastructure, "state", "insert", errors.New("x")), ClassInfrastructure},
		{"no reply sentinel", ErrNoReply, ClassNoReply},
		{"deadline", context.DeadlineExceeded, ClassTransient},
		{"disk full text", errors.New("write queue file: no space left on device"), ClassInfrastructure},
		{"rate limit text", errors.New("HTTP 429 Too Many Requests"), ClassTransient},
		{"connection refused text", errors.New("dial tcp: connection refused"), ClassTransient},
		{"unknown", errors.New("weird"), ClassPermanent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Classify(tc.err); got != tc.want {
				t.Fatalf("Classify(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestDoValueReturnsResult(t *testing.T) {
	p, _ := testPolicy(2)
	attempts := 0

	got, err := DoValue(context.Background(), p, func(context.Context) (string, error) {
		attempts++
		if attempts == 1 {
			return "", fmt.Errorf("%w: not yet", ErrTransient)
		}
		return "reply text", nil
	})
	if err != nil {
		t.Fatalf("DoValue failed: %v", err)
	}
	if got != "reply text" {
		t.Fatalf("unexpected value %q", got)
	}
}
