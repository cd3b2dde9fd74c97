package recovery

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"voidbot/internal/config"
	"voidbot/internal/logging"
	"voidbot/internal/notification"
	"voidbot/internal/queue"
	"voidbot/internal/state"
	"voidbot/internal/upstream"
)

// Engine reconciles the durable queue against the upstream listing. It finds
// notifications that were delivered upstream but never made it into the
// queue (missed while the daemon was down, lost to a crash between receipt
// and persist) and re-enqueues them.
type Engine struct {
	cfg    *config.Config
	source upstream.Source
	queue  *queue.Queue
	store  *state.Store
	logger *slog.Logger
}

// NewEngine wires a recovery engine.
func NewEngine(cfg *config.Config, source upstream.Source, q *queue.Queue, store *state.Store, logger *slog.Logger) *Engine {
	return &Engine{
		cfg:    cfg,
		source: source,
		queue:  q,
		store:  store,
		logger: logging.NewComponentLogger(logger, "recovery"),
	}
}

// Reconcile pages through the upstream listing, newest first, down to the
// recovery window cutoff and enqueues anything the state store has never
// seen. With dryRun the candidates are only counted. Upstream page errors
// end the scan early with the count accumulated so far rather than failing
// the whole pass.
func (e *Engine) Reconcile(ctx context.Context, window time.Duration, dryRun bool) (int, error) {
	cutoff := time.Now().Add(-window)
	if latest, ok, err := e.store.LatestResolvedTimestamp(ctx); err != nil {
		return 0, err
	} else if ok && latest.After(cutoff) {
		cutoff = latest
	}
	e.logger.Info("starting reconciliation",
		logging.Time("cutoff", cutoff),
		logging.Bool("dry_run", dryRun))

	pageSize := e.cfg.Workflow.UpstreamPageSize
	maxPages := e.cfg.Workflow.UpstreamMaxPages

	recovered := 0
	cursor := ""
	for page := 0; page < maxPages; page++ {
		if err := ctx.Err(); err != nil {
			return recovered, err
		}
		listing, err := e.source.ListNotifications(ctx, cursor, pageSize)
		if err != nil {
			e.logger.Warn("upstream listing failed, stopping scan",
				logging.Int("page", page),
				logging.Error(err))
			return recovered, nil
		}
		if len(listing.Items) == 0 {
			break
		}

		reachedCutoff := false
		for _, item := range listing.Items {
			if item.ReceivedAt.Before(cutoff) {
				reachedCutoff = true
				break
			}
			added, err := e.consider(ctx, item, dryRun)
			if err != nil {
				e.logger.Warn("skipping unrecoverable notification",
					logging.String(logging.FieldItemID, item.ID),
					logging.Error(err))
				continue
			}
			if added {
				recovered++
			}
		}
		if reachedCutoff || listing.Cursor == "" {
			break
		}
		cursor = listing.Cursor
	}

	e.logger.Info("reconciliation finished",
		logging.Int("recovered", recovered),
		logging.Bool("dry_run", dryRun))
	return recovered, nil
}

func (e *Engine) consider(ctx context.Context, item *notification.Item, dryRun bool) (bool, error) {
	item.EnsureID()
	if e.cfg.KindSuppressed(item.Kind) {
		return false, nil
	}
	if _, known, err := e.store.IsKnown(ctx, item.ID); err != nil {
		return false, err
	} else if known {
		return false, nil
	}
	if dryRun {
		return true, nil
	}
	if item.Priority == "" {
		item.Priority = notification.ClassifyPriority(e.cfg.Queue.PriorityHandles, item.AuthorHandle)
	}
	return e.queue.Enqueue(ctx, item)
}

// ResetStatus moves error and no_reply records received within the window
// back to pending, both in the state store and on disk. With dryRun it only
// reports how many records qualify.
func (e *Engine) ResetStatus(ctx context.Context, window time.Duration, dryRun bool) (int, error) {
	since := time.Now().Add(-window)

	if dryRun {
		count, err := e.store.CountByStatusSince(ctx, since)
		if err != nil {
			return 0, err
		}
		return int(count), nil
	}

	reset, err := e.store.ResetToPending(ctx, since)
	if err != nil {
		return 0, err
	}
	for _, bucket := range []queue.Bucket{queue.BucketErrors, queue.BucketNoReply} {
		if _, err := e.queue.RequeueBucket(bucket, since); err != nil {
			return int(reset), fmt.Errorf("requeue %s bucket: %w", bucket, err)
		}
	}
	return int(reset), nil
}
