package alerts

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"voidbot/internal/config"
)

const userAgent = "Voidbot/0.1.0"

// Service defines the operational alert surface exposed to the pipeline.
type Service interface {
	PipelineStarted(ctx context.Context, pending int) error
	QueueDrained(ctx context.Context, processed, failed int, duration time.Duration) error
	HealthAlert(ctx context.Context, status string, reasons []string) error
	RecoveryReport(ctx context.Context, recovered int) error
	Error(ctx context.Context, err error, contextLabel string) error
	TestAlert(ctx context.Context) error
}

// NewService builds an alert service backed by ntfy when configured. When no
// ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Alerts.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Alerts.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) PipelineStarted(ctx context.Context, pending int) error {
	data := payload{
		title:   "Voidbot - Pipeline Started",
		message: fmt.Sprintf("Started processing with %d pending notifications", pending),
		tags:    []string{"voidbot", "pipeline", "started"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) QueueDrained(ctx context.Context, processed, failed int, duration time.Duration) error {
	duration = duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}
	durationText := duration.String()

	var title, message string
	if failed == 0 {
		title = "Voidbot - Queue Drained"
		message = fmt.Sprintf("Queue drained: %d notifications processed in %s", processed, durationText)
	} else {
		title = "Voidbot - Queue Drained (with errors)"
		message = fmt.Sprintf("Queue drained: %d succeeded, %d failed in %s", processed, failed, durationText)
	}

	data := payload{
		title:   title,
		message: message,
		tags:    []string{"voidbot", "queue", "drained"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) HealthAlert(ctx context.Context, status string, reasons []string) error {
	message := fmt.Sprintf("Queue health is %s", status)
	if len(reasons) > 0 {
		message = fmt.Sprintf("%s:\n%s", message, strings.Join(reasons, "\n"))
	}
	data := payload{
		title:    "Voidbot - Health Alert",
		message:  message,
		tags:     []string{"voidbot", "health", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) RecoveryReport(ctx context.Context, recovered int) error {
	if recovered == 0 {
		return nil
	}
	data := payload{
		title:   "Voidbot - Recovery",
		message: fmt.Sprintf("Recovered %d missed notifications from upstream", recovered),
		tags:    []string{"voidbot", "recovery", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) Error(ctx context.Context, err error, contextLabel string) error {
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "Voidbot - Error",
		message:  builder.String(),
		tags:     []string{"voidbot", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestAlert(ctx context.Context) error {
	data := payload{
		title:    "Voidbot - Test",
		message:  "Alert system test",
		tags:     []string{"voidbot", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy alert: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) PipelineStarted(context.Context, int) error                  { return nil }
func (noopService) QueueDrained(context.Context, int, int, time.Duration) error { return nil }
func (noopService) HealthAlert(context.Context, string, []string) error         { return nil }
func (noopService) RecoveryReport(context.Context, int) error                   { return nil }
func (noopService) Error(context.Context, error, string) error                  { return nil }
func (noopService) TestAlert(context.Context) error                             { return nil }
