package queue

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"voidbot/internal/notification"
)

// List returns the well-formed entries in a bucket, lexically sorted. For
// the pending bucket that order is priority first, then arrival time.
// Malformed filenames are skipped here; Repair deals with them.
func (q *Queue) List(bucket Bucket) ([]Entry, error) {
	dir := q.Dir(bucket)
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s bucket: %w", bucket, err)
	}

	entries := make([]Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		if de.IsDir() {
			continue
		}
		name := de.Name()
		if !notification.IsQueueFile(name) {
			continue
		}
		info, err := notification.ParseFileName(name)
		if err != nil {
			continue
		}
		entries = append(entries, Entry{
			Bucket: bucket,
			Name:   name,
			Path:   filepath.Join(dir, name),
			Info:   info,
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

// Next returns the first pending entry in processing order, or false when
// the pending bucket is empty.
func (q *Queue) Next() (Entry, bool, error) {
	entries, err := q.List(BucketPending)
	if err != nil {
		return Entry{}, false, err
	}
	if len(entries) == 0 {
		return Entry{}, false, nil
	}
	return entries[0], true, nil
}

// Stats summarizes the physical buckets for monitoring.
type Stats struct {
	Pending       int
	PendingHigh   int
	Errors        int
	NoReply       int
	OldestPending time.Time
}

// Total returns the number of records across all buckets.
func (s Stats) Total() int {
	return s.Pending + s.Errors + s.NoReply
}

// ErrorRate is the fraction of bucket records that failed or produced no
// reply. Zero when the buckets are empty.
func (s Stats) ErrorRate() float64 {
	total := s.Total()
	if total == 0 {
		return 0
	}
	return float64(s.Errors+s.NoReply) / float64(total)
}

// Stats counts records per bucket and notes the oldest pending arrival.
func (q *Queue) Stats() (Stats, error) {
	stats := Stats{}

	pending, err := q.List(BucketPending)
	if err != nil {
		return Stats{}, err
	}
	stats.Pending = len(pending)
	for _, entry := range pending {
		if entry.Info.Priority == notification.PriorityHigh {
			stats.PendingHigh++
		}
		if stats.OldestPending.IsZero() || entry.Info.ReceivedAt.Before(stats.OldestPending) {
			stats.OldestPending = entry.Info.ReceivedAt
		}
	}

	errored, err := q.List(BucketErrors)
	if err != nil {
		return Stats{}, err
	}
	stats.Errors = len(errored)

	noReply, err := q.List(BucketNoReply)
	if err != nil {
		return Stats{}, err
	}
	stats.NoReply = len(noReply)

	return stats, nil
}
