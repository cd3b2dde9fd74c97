package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"testing"

	"voidbot/internal/config"
	"voidbot/internal/retry"
	"voidbot/internal/testsupport"
)

func stubAgent(t *testing.T, mode string) {
	t.Helper()
	original := commandContext
	commandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		cmd := exec.CommandContext(ctx, os.Args[0], "-test.run=TestAgentHelperProcess")
		cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1", fmt.Sprintf("VOIDBOT_AGENT_MODE=%s", mode))
		return cmd
	}
	t.Cleanup(func() {
		commandContext = original
	})
}

func newExecConsumer(t *testing.T) *ExecConsumer {
	t.Helper()
	cfg := testsupport.NewConfig(t, func(cfg *config.Config) {
		cfg.Consumer.Command = []string{"voidbot-agent", "reply"}
	})
	consumer, err := NewExecConsumer(cfg, nil)
	if err != nil {
		t.Fatalf("NewExecConsumer: %v", err)
	}
	return consumer
}

func TestNewExecConsumerRequiresCommand(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if _, err := NewExecConsumer(cfg, nil); err == nil {
		t.Fatal("expected error when consumer.command is empty")
	}
}

func TestExecConsumerMapsVerdicts(t *testing.T) {
	cases := []struct {
		mode string
		want Outcome
	}{
		{"reply", OutcomeReply},
		{"ignore", OutcomeIgnore},
		{"no_reply", OutcomeNoReply},
	}
	for _, tc := range cases {
		t.Run(tc.mode, func(t *testing.T) {
			stubAgent(t, tc.mode)
			consumer := newExecConsumer(t)
			item := testsupport.NewItem(t, "at://handle/post/"+tc.mode, "mention", "someone.example")
			outcome, err := consumer.Handle(context.Background(), item)
			if err != nil {
				t.Fatalf("Handle: %v", err)
			}
			if outcome != tc.want {
				t.Fatalf("expected outcome %v, got %v", tc.want, outcome)
			}
		})
	}
}

func TestExecConsumerPassesItemOnStdin(t *testing.T) {
	stubAgent(t, "echo-id")
	consumer := newExecConsumer(t)
	item := testsupport.NewItem(t, "at://handle/post/stdin", "mention", "someone.example")
	outcome, err := consumer.Handle(context.Background(), item)
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if outcome != OutcomeReply {
		t.Fatalf("expected reply outcome, got %v", outcome)
	}
}

func TestExecConsumerSurfacesAgentStderr(t *testing.T) {
	stubAgent(t, "failure")
	consumer := newExecConsumer(t)
	item := testsupport.NewItem(t, "at://handle/post/fail", "mention", "someone.example")
	_, err := consumer.Handle(context.Background(), item)
	if err == nil {
		t.Fatal("expected error from failing agent")
	}
	if !strings.Contains(err.Error(), "429") {
		t.Fatalf("expected stderr detail in error, got %v", err)
	}
	if retry.Classify(err) != retry.ClassTransient {
		t.Fatalf("expected rate-limit failure to classify transient, got %v", retry.Classify(err))
	}
}

func TestExecConsumerRejectsUnknownVerdict(t *testing.T) {
	stubAgent(t, "garbage")
	consumer := newExecConsumer(t)
	item := testsupport.NewItem(t, "at://handle/post/garbage", "mention", "someone.example")
	_, err := consumer.Handle(context.Background(), item)
	if err == nil {
		t.Fatal("expected error for unknown verdict")
	}
	if retry.Classify(err) != retry.ClassPermanent {
		t.Fatalf("expected permanent classification, got %v", retry.Classify(err))
	}
}

func TestAgentHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}

	switch os.Getenv("VOIDBOT_AGENT_MODE") {
	case "reply":
		fmt.Println("reply")
	case "ignore":
		fmt.Println("ignore")
	case "no_reply":
		fmt.Println("no_reply")
	case "echo-id":
		raw, err := io.ReadAll(os.Stdin)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		var item struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(raw, &item); err != nil || item.ID == "" {
			fmt.Fprintln(os.Stderr, "no item on stdin")
			os.Exit(1)
		}
		fmt.Println("reply")
	case "failure":
		fmt.Fprintln(os.Stderr, "model overloaded: 429")
		os.Exit(1)
	case "garbage":
		fmt.Println("maybe")
	}
	os.Exit(0)
}
