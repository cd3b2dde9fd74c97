package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"voidbot/internal/config"
	"voidbot/internal/logging"
	"voidbot/internal/notification"
	"voidbot/internal/retry"
)

var commandContext = exec.CommandContext

// ExecConsumer shells out to the configured reply agent once per
// notification. The item is written to stdin as JSON; the agent prints its
// verdict ("reply", "ignore", or "no_reply") on stdout and exits zero, or
// exits nonzero with the failure on stderr.
type ExecConsumer struct {
	command []string
	timeout time.Duration
	logger  *slog.Logger
}

// NewExecConsumer builds a consumer from the [consumer] config section.
func NewExecConsumer(cfg *config.Config, logger *slog.Logger) (*ExecConsumer, error) {
	if len(cfg.Consumer.Command) == 0 {
		return nil, errors.New("consumer.command is not configured")
	}
	return &ExecConsumer{
		command: cfg.Consumer.Command,
		timeout: time.Duration(cfg.Consumer.TimeoutSeconds) * time.Second,
		logger:  logging.NewComponentLogger(logger, "consumer"),
	}, nil
}

// Handle runs the agent for one item and maps its verdict to an Outcome.
func (c *ExecConsumer) Handle(ctx context.Context, item *notification.Item) (Outcome, error) {
	payload, err := json.Marshal(item)
	if err != nil {
		return OutcomeReply, retry.Wrap(retry.ErrPermanent, "consumer", "encode item", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := commandContext(runCtx, c.command[0], c.command[1:]...) //nolint:gosec
	cmd.Stdin = bytes.NewReader(payload)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	started := time.Now()
	runErr := cmd.Run()
	c.logger.Debug("agent finished",
		logging.String("id", item.ID),
		logging.Duration("elapsed", time.Since(started)))

	if runErr != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return OutcomeReply, retry.Wrap(retry.ErrTransient, "consumer", "agent timed out", runErr)
		}
		detail := strings.TrimSpace(stderr.String())
		if detail != "" {
			return OutcomeReply, fmt.Errorf("%s: %w: %s", c.command[0], runErr, detail)
		}
		return OutcomeReply, fmt.Errorf("%s: %w", c.command[0], runErr)
	}

	verdict := strings.ToLower(strings.TrimSpace(stdout.String()))
	switch verdict {
	case "reply":
		return OutcomeReply, nil
	case "ignore":
		return OutcomeIgnore, nil
	case "no_reply", "no-reply":
		return OutcomeNoReply, nil
	default:
		return OutcomeReply, retry.Wrap(retry.ErrPermanent, "consumer",
			fmt.Sprintf("unexpected verdict %q", verdict), nil)
	}
}

var _ Consumer = (*ExecConsumer)(nil)
