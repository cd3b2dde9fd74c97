package queue

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"voidbot/internal/config"
	"voidbot/internal/logging"
	"voidbot/internal/state"
)

// Bucket identifies one of the physical queue directories.
type Bucket string

const (
	BucketPending Bucket = "pending"
	BucketErrors  Bucket = "errors"
	BucketNoReply Bucket = "no_reply"
)

// Queue is the durable filesystem buffer between ingestion and the consumer.
// The pending bucket is the queue root; resolved items move into the errors
// and no_reply buckets or are deleted once fully processed.
type Queue struct {
	root   string
	cfg    *config.Config
	store  *state.Store
	logger *slog.Logger
}

// New attaches a queue to its directories. The state store is consulted for
// deduplication before any file is written.
func New(cfg *config.Config, store *state.Store, logger *slog.Logger) (*Queue, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if store == nil {
		return nil, fmt.Errorf("nil state store")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return &Queue{
		root:   cfg.Paths.QueueDir,
		cfg:    cfg,
		store:  store,
		logger: logging.NewComponentLogger(logger, "queue"),
	}, nil
}

// Dir returns the absolute path of a bucket directory.
func (q *Queue) Dir(bucket Bucket) string {
	switch bucket {
	case BucketErrors:
		return filepath.Join(q.root, "errors")
	case BucketNoReply:
		return filepath.Join(q.root, "no_reply")
	default:
		return q.root
	}
}

// Root returns the queue root directory (the pending bucket).
func (q *Queue) Root() string {
	return q.root
}

func (q *Queue) ensureBucket(bucket Bucket) error {
	if err := os.MkdirAll(q.Dir(bucket), 0o755); err != nil {
		return fmt.Errorf("ensure %s bucket: %w", bucket, err)
	}
	return nil
}
