package state_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"voidbot/internal/notification"
	"voidbot/internal/state"
	"voidbot/internal/testsupport"
)

func TestInsertIfAbsentDeduplicates(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenState(t, cfg)
	ctx := context.Background()

	item := testsupport.NewItem(t, "at://did:plc:abc/app.bsky.feed.post/1", "mention", "alice.example")

	inserted, err := store.InsertIfAbsent(ctx, item)
	if err != nil {
		t.Fatalf("InsertIfAbsent failed: %v", err)
	}
	if !inserted {
		t.Fatal("expected first insert to report true")
	}

	inserted, err = store.InsertIfAbsent(ctx, item)
	if err != nil {
		t.Fatalf("second InsertIfAbsent failed: %v", err)
	}
	if inserted {
		t.Fatal("expected duplicate insert to report false")
	}

	record, err := store.Lookup(ctx, item.ID)
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if record.Status != state.StatusPending {
		t.Fatalf("expected pending status, got %q", record.Status)
	}
	if record.Kind != "mention" || record.AuthorHandle != "alice.example" {
		t.Fatalf("unexpected record fields: %#v", record)
	}
}

func TestLookupMissingReturnsNotFound(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenState(t, cfg)

	if _, err := store.Lookup(context.Background(), "nope"); !errors.Is(err, state.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMarkTerminalKeepsFirstOutcome(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenState(t, cfg)
	ctx := context.Background()

	item := testsupport.NewItem(t, "at://did:plc:abc/app.bsky.feed.post/2", "reply", "bob.example")
	if _, err := store.InsertIfAbsent(ctx, item); err != nil {
		t.Fatalf("InsertIfAbsent failed: %v", err)
	}

	if err := store.MarkTerminal(ctx, item.ID, state.StatusProcessed, ""); err != nil {
		t.Fatalf("MarkTerminal failed: %v", err)
	}
	record, err := store.Lookup(ctx, item.ID)
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if record.Status != state.StatusProcessed {
		t.Fatalf("expected processed, got %q", record.Status)
	}
	if record.ProcessedAt == nil {
		t.Fatal("expected processed_at to be set")
	}

	// Conflicting second outcome is logged but ignored.
	if err := store.MarkTerminal(ctx, item.ID, state.StatusError, "boom"); err != nil {
		t.Fatalf("conflicting MarkTerminal returned error: %v", err)
	}
	record, err = store.Lookup(ctx, item.ID)
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if record.Status != state.StatusProcessed {
		t.Fatalf("expected first outcome to win, got %q", record.Status)
	}
	if record.Error != "" {
		t.Fatalf("expected no error message, got %q", record.Error)
	}
}

func TestMarkTerminalErrorDoesNotSetProcessedAt(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenState(t, cfg)
	ctx := context.Background()

	item := testsupport.NewItem(t, "at://did:plc:abc/app.bsky.feed.post/3", "mention", "carol.example")
	if _, err := store.InsertIfAbsent(ctx, item); err != nil {
		t.Fatalf("InsertIfAbsent failed: %v", err)
	}
	if err := store.MarkTerminal(ctx, item.ID, state.StatusError, "model unavailable"); err != nil {
		t.Fatalf("MarkTerminal failed: %v", err)
	}

	record, err := store.Lookup(ctx, item.ID)
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if record.Status != state.StatusError {
		t.Fatalf("expected error status, got %q", record.Status)
	}
	if record.ProcessedAt != nil {
		t.Fatal("error records should not carry processed_at")
	}
	if record.Error != "model unavailable" {
		t.Fatalf("unexpected error message: %q", record.Error)
	}
}

func TestMarkTerminalRejectsPending(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenState(t, cfg)

	if err := store.MarkTerminal(context.Background(), "whatever", state.StatusPending, ""); err == nil {
		t.Fatal("expected error for non-terminal target status")
	}
}

func TestResetToPendingRespectsWindow(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenState(t, cfg)
	ctx := context.Background()

	recent := testsupport.NewItem(t, "at://recent", "mention", "alice.example")
	recent.ReceivedAt = time.Now().Add(-1 * time.Hour)
	old := testsupport.NewItem(t, "at://old", "mention", "alice.example")
	old.ReceivedAt = time.Now().Add(-48 * time.Hour)
	done := testsupport.NewItem(t, "at://done", "mention", "alice.example")
	done.ReceivedAt = time.Now().Add(-1 * time.Hour)

	for _, item := range []*notification.Item{recent, old, done} {
		if _, err := store.InsertIfAbsent(ctx, item); err != nil {
			t.Fatalf("InsertIfAbsent failed: %v", err)
		}
	}
	if err := store.MarkTerminal(ctx, recent.ID, state.StatusError, "x"); err != nil {
		t.Fatalf("MarkTerminal failed: %v", err)
	}
	if err := store.MarkTerminal(ctx, old.ID, state.StatusError, "x"); err != nil {
		t.Fatalf("MarkTerminal failed: %v", err)
	}
	if err := store.MarkTerminal(ctx, done.ID, state.StatusProcessed, ""); err != nil {
		t.Fatalf("MarkTerminal failed: %v", err)
	}

	count, err := store.ResetToPending(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("ResetToPending failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 record reset, got %d", count)
	}

	status, _, err := store.IsKnown(ctx, recent.ID)
	if err != nil {
		t.Fatalf("IsKnown failed: %v", err)
	}
	if status != state.StatusPending {
		t.Fatalf("expected recent error reset to pending, got %q", status)
	}
	status, _, err = store.IsKnown(ctx, old.ID)
	if err != nil {
		t.Fatalf("IsKnown failed: %v", err)
	}
	if status != state.StatusError {
		t.Fatalf("expected old error untouched, got %q", status)
	}
	status, _, err = store.IsKnown(ctx, done.ID)
	if err != nil {
		t.Fatalf("IsKnown failed: %v", err)
	}
	if status != state.StatusProcessed {
		t.Fatalf("expected processed record untouched, got %q", status)
	}
}

func TestLatestResolvedTimestamp(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenState(t, cfg)
	ctx := context.Background()

	if _, ok, err := store.LatestResolvedTimestamp(ctx); err != nil || ok {
		t.Fatalf("expected no resolved records, got ok=%v err=%v", ok, err)
	}

	older := testsupport.NewItem(t, "at://older", "mention", "alice.example")
	older.ReceivedAt = time.Now().Add(-2 * time.Hour)
	newer := testsupport.NewItem(t, "at://newer", "mention", "alice.example")
	newer.ReceivedAt = time.Now().Add(-1 * time.Hour)
	failing := testsupport.NewItem(t, "at://failing", "mention", "alice.example")
	failing.ReceivedAt = time.Now()

	for _, item := range []*notification.Item{older, newer, failing} {
		if _, err := store.InsertIfAbsent(ctx, item); err != nil {
			t.Fatalf("InsertIfAbsent failed: %v", err)
		}
	}
	if err := store.MarkTerminal(ctx, older.ID, state.StatusProcessed, ""); err != nil {
		t.Fatalf("MarkTerminal failed: %v", err)
	}
	if err := store.MarkTerminal(ctx, newer.ID, state.StatusNoReply, ""); err != nil {
		t.Fatalf("MarkTerminal failed: %v", err)
	}
	if err := store.MarkTerminal(ctx, failing.ID, state.StatusError, "x"); err != nil {
		t.Fatalf("MarkTerminal failed: %v", err)
	}

	ts, ok, err := store.LatestResolvedTimestamp(ctx)
	if err != nil {
		t.Fatalf("LatestResolvedTimestamp failed: %v", err)
	}
	if !ok {
		t.Fatal("expected a resolved timestamp")
	}
	if diff := ts.Sub(newer.ReceivedAt.UTC()); diff < -time.Millisecond || diff > time.Millisecond {
		t.Fatalf("expected newest resolved timestamp, got %v (want about %v)", ts, newer.ReceivedAt)
	}
}

func TestPurgeOlderThanKeepsPending(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenState(t, cfg)
	ctx := context.Background()

	oldDone := testsupport.NewItem(t, "at://old-done", "mention", "alice.example")
	oldDone.ReceivedAt = time.Now().Add(-10 * 24 * time.Hour)
	oldPending := testsupport.NewItem(t, "at://old-pending", "mention", "alice.example")
	oldPending.ReceivedAt = time.Now().Add(-10 * 24 * time.Hour)
	freshDone := testsupport.NewItem(t, "at://fresh-done", "mention", "alice.example")

	for _, item := range []*notification.Item{oldDone, oldPending, freshDone} {
		if _, err := store.InsertIfAbsent(ctx, item); err != nil {
			t.Fatalf("InsertIfAbsent failed: %v", err)
		}
	}
	if err := store.MarkTerminal(ctx, oldDone.ID, state.StatusProcessed, ""); err != nil {
		t.Fatalf("MarkTerminal failed: %v", err)
	}
	if err := store.MarkTerminal(ctx, freshDone.ID, state.StatusProcessed, ""); err != nil {
		t.Fatalf("MarkTerminal failed: %v", err)
	}

	purged, err := store.PurgeOlderThan(ctx, 7*24*time.Hour)
	if err != nil {
		t.Fatalf("PurgeOlderThan failed: %v", err)
	}
	if purged != 1 {
		t.Fatalf("expected 1 purged record, got %d", purged)
	}

	if _, known, _ := store.IsKnown(ctx, oldDone.ID); known {
		t.Fatal("expected old terminal record to be purged")
	}
	if _, known, _ := store.IsKnown(ctx, oldPending.ID); !known {
		t.Fatal("expected old pending record to survive")
	}
	if _, known, _ := store.IsKnown(ctx, freshDone.ID); !known {
		t.Fatal("expected fresh terminal record to survive")
	}
}

func TestStatsCountsByStatus(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenState(t, cfg)
	ctx := context.Background()

	a := testsupport.NewItem(t, "at://a", "mention", "alice.example")
	b := testsupport.NewItem(t, "at://b", "reply", "bob.example")
	for _, item := range []*notification.Item{a, b} {
		if _, err := store.InsertIfAbsent(ctx, item); err != nil {
			t.Fatalf("InsertIfAbsent failed: %v", err)
		}
	}
	if err := store.MarkTerminal(ctx, a.ID, state.StatusProcessed, ""); err != nil {
		t.Fatalf("MarkTerminal failed: %v", err)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Total != 2 {
		t.Fatalf("expected 2 total records, got %d", stats.Total)
	}
	if stats.ByStatus[state.StatusProcessed] != 1 || stats.ByStatus[state.StatusPending] != 1 {
		t.Fatalf("unexpected status counts: %#v", stats.ByStatus)
	}
	if stats.Recent24 != 2 {
		t.Fatalf("expected 2 recent records, got %d", stats.Recent24)
	}
}

func TestSessionCounters(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenState(t, cfg)
	ctx := context.Background()

	id, err := store.StartSession(ctx)
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}
	if err := store.RecordSessionItem(ctx, id, state.StatusProcessed); err != nil {
		t.Fatalf("RecordSessionItem failed: %v", err)
	}
	if err := store.RecordSessionItem(ctx, id, state.StatusIgnored); err != nil {
		t.Fatalf("RecordSessionItem failed: %v", err)
	}
	if err := store.RecordSessionItem(ctx, id, state.StatusError); err != nil {
		t.Fatalf("RecordSessionItem failed: %v", err)
	}
	if err := store.EndSession(ctx, id); err != nil {
		t.Fatalf("EndSession failed: %v", err)
	}

	session, err := store.LatestSession(ctx)
	if err != nil {
		t.Fatalf("LatestSession failed: %v", err)
	}
	if session == nil {
		t.Fatal("expected a session")
	}
	if session.ItemsProcessed != 1 || session.ItemsSkipped != 1 || session.ItemsErrored != 1 {
		t.Fatalf("unexpected counters: %#v", session)
	}
	if session.EndedAt == nil {
		t.Fatal("expected session to be ended")
	}
}

func TestCheckHealthReportsHealthyDatabase(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenState(t, cfg)
	ctx := context.Background()

	item := testsupport.NewItem(t, "at://health", "mention", "alice.example")
	if _, err := store.InsertIfAbsent(ctx, item); err != nil {
		t.Fatalf("InsertIfAbsent failed: %v", err)
	}

	health, err := store.CheckHealth(ctx)
	if err != nil {
		t.Fatalf("CheckHealth failed: %v", err)
	}
	if !health.DatabaseExists || !health.DatabaseReadable || !health.TableExists {
		t.Fatalf("unexpected health: %#v", health)
	}
	if !health.IntegrityCheck {
		t.Fatalf("integrity check failed: %#v", health)
	}
	if health.TotalRecords != 1 {
		t.Fatalf("expected 1 record, got %d", health.TotalRecords)
	}
}
