package pipeline

import (
	"context"

	"github.com/google/uuid"

	"voidbot/internal/logging"
	"voidbot/internal/notification"
	"voidbot/internal/queue"
	"voidbot/internal/retry"
	"voidbot/internal/state"
)

// drainPass summarizes one pass over the pending bucket.
type drainPass struct {
	handled int
	failed  int
}

// drain processes one batch of pending entries and reports how many were
// handled and how many settled as errors. The listing is refreshed every
// rescanEvery items, and immediately after any high-priority item, so newly
// arrived urgent work jumps ahead of an old backlog.
func (r *Runner) drain(ctx context.Context) (drainPass, error) {
	rescanEvery := r.cfg.Workflow.RescanEveryNItems
	if rescanEvery <= 0 {
		rescanEvery = 1
	}

	pass := drainPass{}
	for {
		entries, err := r.queue.List(queue.BucketPending)
		if err != nil {
			return pass, err
		}
		if len(entries) == 0 {
			return pass, nil
		}

		sinceRescan := 0
		rescan := false
		for _, entry := range entries {
			if err := ctx.Err(); err != nil {
				return pass, err
			}
			wasHigh, failed, err := r.processEntry(ctx, entry)
			if err != nil {
				return pass, err
			}
			pass.handled++
			if failed {
				pass.failed++
			}
			sinceRescan++
			if wasHigh || sinceRescan >= rescanEvery {
				rescan = true
				break
			}
		}
		if !rescan {
			return pass, nil
		}
	}
}

func (r *Runner) processEntry(ctx context.Context, entry queue.Entry) (wasHigh, failed bool, err error) {
	wasHigh = entry.Info.Priority == notification.PriorityHigh

	item, err := entry.Load()
	if err != nil {
		r.logger.Error("unreadable queue file, quarantining",
			logging.String("file", entry.Name),
			logging.Error(err))
		if _, repairErr := r.queue.Repair(); repairErr != nil {
			return wasHigh, false, repairErr
		}
		return wasHigh, false, nil
	}

	ctx = logging.WithItemID(ctx, item.ID)
	ctx = logging.WithCorrelationID(ctx, uuid.NewString())
	logger := logging.WithContext(ctx, r.logger)

	// Suppressed kinds found on disk (config changed, or an older producer
	// wrote them) are deleted outright.
	if r.cfg.KindSuppressed(item.Kind) {
		logger.Info("deleting suppressed notification", logging.String(logging.FieldKind, item.Kind))
		return wasHigh, false, r.queue.Discard(entry)
	}

	// A file whose id is already settled is a leftover from a crash between
	// state update and file move. The recorded outcome wins.
	status, known, err := r.store.IsKnown(ctx, item.ID)
	if err != nil {
		return wasHigh, false, err
	}
	if known && status.IsTerminal() {
		logger.Info("discarding already-settled notification", logging.String("status", string(status)))
		return wasHigh, false, r.queue.Discard(entry)
	}
	if !known {
		if _, err := r.store.InsertIfAbsent(ctx, item); err != nil {
			return wasHigh, false, err
		}
	}

	outcome, handleErr := retry.DoValue(ctx, r.policy, func(ctx context.Context) (Outcome, error) {
		return r.consumer.Handle(ctx, item)
	})

	target, errMessage := r.settle(outcome, handleErr)
	if handleErr != nil {
		class := retry.Classify(handleErr)
		if class == retry.ClassInfrastructure && r.monitor != nil {
			r.monitor.EscalateInfrastructure(handleErr.Error())
		}
		if target == state.StatusError {
			logger.Error("notification failed",
				logging.String("class", class.String()),
				logging.Error(handleErr))
		}
	} else if r.monitor != nil {
		r.monitor.ClearInfrastructure()
	}

	failed = target == state.StatusError
	if err := r.queue.Resolve(ctx, entry, item.ID, target, errMessage); err != nil {
		return wasHigh, failed, err
	}
	if err := r.store.RecordSessionItem(ctx, r.sessionID, target); err != nil {
		logger.Warn("session counter update failed", logging.Error(err))
	}
	logger.Info("notification settled", logging.String("status", string(target)))
	return wasHigh, failed, nil
}

// settle maps a consumer outcome and error to the terminal status to record.
func (r *Runner) settle(outcome Outcome, err error) (state.Status, string) {
	if err != nil {
		if retry.Classify(err) == retry.ClassNoReply {
			return state.StatusNoReply, ""
		}
		return state.StatusError, err.Error()
	}
	switch outcome {
	case OutcomeIgnore:
		return state.StatusIgnored, ""
	case OutcomeNoReply:
		return state.StatusNoReply, ""
	default:
		return state.StatusProcessed, ""
	}
}
