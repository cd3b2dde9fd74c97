package upstream

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"voidbot/internal/config"
)

func stubAdapter(t *testing.T, mode string, captured *[]string) {
	t.Helper()
	original := commandContext
	commandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		if captured != nil {
			*captured = append([]string(nil), args...)
		}
		cmd := exec.CommandContext(ctx, os.Args[0], "-test.run=TestAdapterHelperProcess")
		cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1", fmt.Sprintf("VOIDBOT_UPSTREAM_MODE=%s", mode))
		return cmd
	}
	t.Cleanup(func() {
		commandContext = original
	})
}

func newExecSource(t *testing.T) *ExecSource {
	t.Helper()
	cfg := config.Default()
	cfg.Upstream.Command = []string{"voidbot-agent", "notifications"}
	source, err := NewExecSource(&cfg, nil)
	if err != nil {
		t.Fatalf("NewExecSource: %v", err)
	}
	return source
}

func TestNewExecSourceRequiresCommand(t *testing.T) {
	cfg := config.Default()
	if _, err := NewExecSource(&cfg, nil); err == nil {
		t.Fatal("expected error when upstream.command is empty")
	}
	if Configured(&cfg) {
		t.Fatal("expected Configured to be false without a command")
	}
	cfg.Upstream.Command = []string{"voidbot-agent"}
	if !Configured(&cfg) {
		t.Fatal("expected Configured to be true with a command")
	}
}

func TestExecSourceListParsesPage(t *testing.T) {
	var captured []string
	stubAdapter(t, "page", &captured)
	source := newExecSource(t)

	page, err := source.ListNotifications(context.Background(), "", 25)
	if err != nil {
		t.Fatalf("ListNotifications: %v", err)
	}
	if len(page.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(page.Items))
	}
	if page.Items[0].ID != "at://handle/post/1" {
		t.Fatalf("unexpected item id %q", page.Items[0].ID)
	}
	if page.Cursor != "next-cursor" {
		t.Fatalf("expected cursor next-cursor, got %q", page.Cursor)
	}
	joined := strings.Join(captured, " ")
	if !strings.Contains(joined, "notifications list --limit 25") {
		t.Fatalf("unexpected adapter args %v", captured)
	}
	if strings.Contains(joined, "--cursor") {
		t.Fatalf("expected no cursor flag on first page, got %v", captured)
	}
}

func TestExecSourceListForwardsCursor(t *testing.T) {
	var captured []string
	stubAdapter(t, "page", &captured)
	source := newExecSource(t)

	if _, err := source.ListNotifications(context.Background(), "next-cursor", 10); err != nil {
		t.Fatalf("ListNotifications: %v", err)
	}
	joined := strings.Join(captured, " ")
	if !strings.Contains(joined, "--cursor next-cursor") {
		t.Fatalf("expected cursor flag in args %v", captured)
	}
}

func TestExecSourceMarkSeen(t *testing.T) {
	var captured []string
	stubAdapter(t, "ok", &captured)
	source := newExecSource(t)

	upTo := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	if err := source.MarkSeen(context.Background(), upTo); err != nil {
		t.Fatalf("MarkSeen: %v", err)
	}
	joined := strings.Join(captured, " ")
	if !strings.Contains(joined, "mark-seen 2025-06-01T12:00:00Z") {
		t.Fatalf("unexpected adapter args %v", captured)
	}
}

func TestExecSourceSurfacesAdapterStderr(t *testing.T) {
	stubAdapter(t, "failure", nil)
	source := newExecSource(t)

	_, err := source.ListNotifications(context.Background(), "", 5)
	if err == nil {
		t.Fatal("expected error from failing adapter")
	}
	if !strings.Contains(err.Error(), "session expired") {
		t.Fatalf("expected stderr detail in error, got %v", err)
	}
}

func TestAdapterHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}

	switch os.Getenv("VOIDBOT_UPSTREAM_MODE") {
	case "page":
		fmt.Println(`{"items":[{"id":"at://handle/post/1","priority":"normal","kind":"mention","author_handle":"someone.example","received_at":"2025-06-01T11:59:00Z"}],"cursor":"next-cursor"}`)
	case "failure":
		fmt.Fprintln(os.Stderr, "session expired")
		os.Exit(1)
	}
	os.Exit(0)
}
