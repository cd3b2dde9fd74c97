package queue

import (
	"strings"
	"time"

	"voidbot/internal/logging"
)

func normalizeHandle(handle string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(handle), "@"))
}

// CountByHandle counts pending records authored by the given handle. This
// opens each pending file since the author is not part of the filename.
func (q *Queue) CountByHandle(handle string) (int, error) {
	handle = normalizeHandle(handle)
	entries, err := q.List(BucketPending)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, entry := range entries {
		item, err := entry.Load()
		if err != nil {
			continue
		}
		if normalizeHandle(item.AuthorHandle) == handle {
			count++
		}
	}
	return count, nil
}

// DeleteByHandle removes pending records authored by the given handle and
// returns how many were deleted. State records are left alone so the ids
// stay deduplicated.
func (q *Queue) DeleteByHandle(handle string) (int, error) {
	handle = normalizeHandle(handle)
	entries, err := q.List(BucketPending)
	if err != nil {
		return 0, err
	}
	deleted := 0
	for _, entry := range entries {
		item, err := entry.Load()
		if err != nil {
			continue
		}
		if normalizeHandle(item.AuthorHandle) != handle {
			continue
		}
		if err := q.Discard(entry); err != nil {
			return deleted, err
		}
		deleted++
	}
	if deleted > 0 {
		q.logger.Info("deleted pending records by handle",
			logging.String(logging.FieldHandle, handle),
			logging.Int("count", deleted))
	}
	return deleted, nil
}

// RequeueBucket moves records received since the cutoff from a terminal
// bucket back into pending. Callers reset the matching state records
// separately so the pipeline picks the files up again.
func (q *Queue) RequeueBucket(bucket Bucket, since time.Time) (int, error) {
	if bucket == BucketPending {
		return 0, nil
	}
	entries, err := q.List(bucket)
	if err != nil {
		return 0, err
	}
	moved := 0
	for _, entry := range entries {
		if entry.Info.ReceivedAt.Before(since) {
			continue
		}
		if err := q.Requeue(entry); err != nil {
			return moved, err
		}
		moved++
	}
	if moved > 0 {
		q.logger.Info("requeued records",
			logging.String("bucket", string(bucket)),
			logging.Int("count", moved))
	}
	return moved, nil
}
