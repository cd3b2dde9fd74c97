package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"voidbot/internal/logging"
	"voidbot/internal/notification"
)

// Enqueue persists a notification into the pending bucket. It returns false
// without writing when the notification's kind is suppressed or when the
// state store already knows the id. The file lands via a temp write and an
// atomic rename so a crash never leaves a half-written queue record visible.
func (q *Queue) Enqueue(ctx context.Context, item *notification.Item) (bool, error) {
	if item == nil {
		return false, fmt.Errorf("nil notification item")
	}
	item.EnsureID()
	if err := item.Validate(); err != nil {
		return false, fmt.Errorf("validate notification: %w", err)
	}

	if q.cfg.KindSuppressed(item.Kind) {
		q.logger.Debug("suppressed kind, not enqueueing",
			logging.String(logging.FieldItemID, item.ID),
			logging.String(logging.FieldKind, item.Kind))
		return false, nil
	}

	inserted, err := q.store.InsertIfAbsent(ctx, item)
	if err != nil {
		return false, err
	}
	if !inserted {
		q.logger.Debug("duplicate notification, not enqueueing",
			logging.String(logging.FieldItemID, item.ID))
		return false, nil
	}

	if err := q.writeEntry(item); err != nil {
		return false, err
	}
	q.logger.Info("enqueued notification",
		logging.String(logging.FieldItemID, item.ID),
		logging.String(logging.FieldKind, item.Kind),
		logging.String("priority", string(item.Priority)))
	return true, nil
}

func (q *Queue) writeEntry(item *notification.Item) error {
	data, err := json.MarshalIndent(item, "", "  ")
	if err != nil {
		return fmt.Errorf("encode notification %s: %w", item.ID, err)
	}

	name := notification.FileName(item)
	target := filepath.Join(q.root, name)

	tmp, err := os.CreateTemp(q.root, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp queue file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp queue file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("sync temp queue file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp queue file: %w", err)
	}
	if err := os.Rename(tmpPath, target); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("publish queue file %s: %w", name, err)
	}
	return nil
}
