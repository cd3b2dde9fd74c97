package queue

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"voidbot/internal/logging"
	"voidbot/internal/state"
)

// Resolve records a terminal outcome for a pending entry and settles its
// file: processed and ignored records are deleted, error records move to the
// errors bucket, no-reply records move to the no_reply bucket. The state
// store is updated first so a crash between the two steps leaves a stray
// file rather than a lost outcome; Repair and the dedup check absorb strays.
func (q *Queue) Resolve(ctx context.Context, entry Entry, id string, outcome state.Status, errMessage string) error {
	if entry.Bucket != BucketPending {
		return fmt.Errorf("resolve: entry %s is in bucket %s, not pending", entry.Name, entry.Bucket)
	}
	if !outcome.IsTerminal() {
		return fmt.Errorf("resolve: status %q is not terminal", outcome)
	}

	if err := q.store.MarkTerminal(ctx, id, outcome, errMessage); err != nil {
		return err
	}

	switch outcome {
	case state.StatusProcessed, state.StatusIgnored:
		if err := os.Remove(entry.Path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove resolved queue file %s: %w", entry.Name, err)
		}
	case state.StatusError:
		if err := q.moveToBucket(entry, BucketErrors); err != nil {
			return err
		}
	case state.StatusNoReply:
		if err := q.moveToBucket(entry, BucketNoReply); err != nil {
			return err
		}
	}

	q.logger.Info("resolved notification",
		logging.String(logging.FieldItemID, id),
		logging.String("outcome", string(outcome)))
	return nil
}

// Discard removes a pending entry without recording an outcome. Used when a
// queue file turns out to belong to a suppressed kind or an id the state
// store already settled.
func (q *Queue) Discard(entry Entry) error {
	if err := os.Remove(entry.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("discard queue file %s: %w", entry.Name, err)
	}
	return nil
}

// Requeue moves an entry from the errors or no_reply bucket back into
// pending. The caller is expected to reset the record's state separately.
func (q *Queue) Requeue(entry Entry) error {
	if entry.Bucket == BucketPending {
		return nil
	}
	return q.moveFile(entry.Path, filepath.Join(q.root, entry.Name))
}

func (q *Queue) moveToBucket(entry Entry, bucket Bucket) error {
	if err := q.ensureBucket(bucket); err != nil {
		return err
	}
	return q.moveFile(entry.Path, filepath.Join(q.Dir(bucket), entry.Name))
}

func (q *Queue) moveFile(from, to string) error {
	if err := os.Rename(from, to); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("move queue file %s: %w", filepath.Base(from), err)
	}
	return nil
}
