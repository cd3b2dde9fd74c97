package testsupport

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"voidbot/internal/config"
	"voidbot/internal/logging"
	"voidbot/internal/notification"
	"voidbot/internal/state"
)

// MustOpenState opens a state.Store for tests and registers cleanup.
func MustOpenState(t testing.TB, cfg *config.Config) *state.Store {
	t.Helper()

	store, err := state.Open(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("state.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewItem builds a notification item with predictable fields for tests.
func NewItem(t testing.TB, id, kind, handle string) *notification.Item {
	t.Helper()

	payload, err := json.Marshal(map[string]string{
		"uri":  id,
		"text": fmt.Sprintf("test payload for %s", id),
	})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	item := &notification.Item{
		ID:           id,
		Priority:     notification.PriorityNormal,
		Kind:         kind,
		AuthorHandle: handle,
		ReceivedAt:   time.Now().UTC().Truncate(time.Millisecond),
		Payload:      payload,
	}
	item.EnsureID()
	if err := item.Validate(); err != nil {
		t.Fatalf("validate item: %v", err)
	}
	return item
}
