package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"voidbot/internal/config"
	"voidbot/internal/logging"
)

var commandContext = exec.CommandContext

// ExecSource drives the external platform adapter configured under
// [upstream]. Listing runs `<command> list --cursor <c> --limit <n>` and
// parses a JSON page from stdout; acknowledgment runs
// `<command> mark-seen <timestamp>`.
type ExecSource struct {
	command []string
	logger  *slog.Logger
}

// NewExecSource builds a source from the [upstream] config section. It
// returns an error when no command is configured so callers can distinguish
// "recovery disabled" from a broken adapter.
func NewExecSource(cfg *config.Config, logger *slog.Logger) (*ExecSource, error) {
	if len(cfg.Upstream.Command) == 0 {
		return nil, errors.New("upstream.command is not configured")
	}
	return &ExecSource{
		command: cfg.Upstream.Command,
		logger:  logging.NewComponentLogger(logger, "upstream"),
	}, nil
}

// Configured reports whether an upstream command is present in the config.
func Configured(cfg *config.Config) bool {
	return len(cfg.Upstream.Command) > 0
}

func (s *ExecSource) run(ctx context.Context, args ...string) ([]byte, error) {
	full := append(append([]string(nil), s.command[1:]...), args...)
	cmd := commandContext(ctx, s.command[0], full...) //nolint:gosec
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail != "" {
			return nil, fmt.Errorf("%s: %w: %s", s.command[0], err, detail)
		}
		return nil, fmt.Errorf("%s: %w", s.command[0], err)
	}
	return stdout.Bytes(), nil
}

// ListNotifications fetches one page of the platform listing.
func (s *ExecSource) ListNotifications(ctx context.Context, cursor string, limit int) (Page, error) {
	args := []string{"list", "--limit", strconv.Itoa(limit)}
	if cursor != "" {
		args = append(args, "--cursor", cursor)
	}
	output, err := s.run(ctx, args...)
	if err != nil {
		return Page{}, err
	}

	var page Page
	if err := json.Unmarshal(output, &page); err != nil {
		return Page{}, fmt.Errorf("parse upstream page: %w", err)
	}
	s.logger.Debug("fetched upstream page",
		logging.Int("items", len(page.Items)),
		logging.Bool("more", page.Cursor != ""))
	return page, nil
}

// MarkSeen acknowledges the listing up to the given instant.
func (s *ExecSource) MarkSeen(ctx context.Context, upTo time.Time) error {
	_, err := s.run(ctx, "mark-seen", upTo.UTC().Format(time.RFC3339))
	return err
}

var _ Source = (*ExecSource)(nil)
