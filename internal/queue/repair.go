package queue

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"voidbot/internal/logging"
	"voidbot/internal/notification"
)

const staleTempAge = time.Hour

// RepairResult summarizes what a repair pass did.
type RepairResult struct {
	Quarantined  int
	TempsRemoved int
}

// Repair scans every bucket for files that cannot be processed: names that
// don't parse, payloads that don't decode, and stale temp files left behind
// by an interrupted write. Broken records are renamed with a .corrupt suffix
// so scans stop picking them up but the bytes stay around for inspection.
func (q *Queue) Repair() (RepairResult, error) {
	result := RepairResult{}
	for _, bucket := range []Bucket{BucketPending, BucketErrors, BucketNoReply} {
		dir := q.Dir(bucket)
		dirEntries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return result, err
		}
		for _, de := range dirEntries {
			if de.IsDir() {
				continue
			}
			name := de.Name()
			path := filepath.Join(dir, name)

			if strings.HasPrefix(name, ".tmp-") {
				info, err := de.Info()
				if err == nil && time.Since(info.ModTime()) > staleTempAge {
					if err := os.Remove(path); err == nil {
						result.TempsRemoved++
						q.logger.Warn("removed stale temp file", logging.String("file", name))
					}
				}
				continue
			}
			if strings.HasSuffix(name, ".corrupt") {
				continue
			}

			broken := false
			if !notification.IsQueueFile(name) {
				broken = true
			} else if _, err := notification.ParseFileName(name); err != nil {
				broken = true
			} else {
				entry := Entry{Bucket: bucket, Name: name, Path: path}
				if _, err := entry.Load(); err != nil {
					broken = true
				}
			}
			if !broken {
				continue
			}

			if err := os.Rename(path, path+".corrupt"); err != nil {
				q.logger.Error("quarantine queue file", logging.String("file", name), logging.Error(err))
				continue
			}
			result.Quarantined++
			q.logger.Warn("quarantined corrupt queue file",
				logging.String("file", name),
				logging.String("bucket", string(bucket)))
		}
	}
	return result, nil
}
