package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"voidbot/internal/logging"
	"voidbot/internal/notification"
)

const recordColumns = "id, status, kind, author_handle, received_at, first_seen_at, last_updated_at, processed_at, error, metadata"

// ErrNotFound indicates the requested notification id has no record.
var ErrNotFound = errors.New("notification record not found")

// timeLayout is fixed-width so stored timestamps compare lexically in SQL.
const timeLayout = "2006-01-02T15:04:05.000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", raw, err)
	}
	return t, nil
}

func scanRecord(scanner interface{ Scan(dest ...any) error }) (*Record, error) {
	var (
		id           string
		statusStr    string
		kind         sql.NullString
		authorHandle sql.NullString
		receivedRaw  string
		firstSeenRaw string
		updatedRaw   string
		processedRaw sql.NullString
		errMessage   sql.NullString
		metadata     sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&statusStr,
		&kind,
		&authorHandle,
		&receivedRaw,
		&firstSeenRaw,
		&updatedRaw,
		&processedRaw,
		&errMessage,
		&metadata,
	); err != nil {
		return nil, err
	}

	record := &Record{
		ID:           id,
		Status:       Status(statusStr),
		Kind:         kind.String,
		AuthorHandle: authorHandle.String,
		Error:        errMessage.String,
		Metadata:     metadata.String,
	}

	var err error
	if record.ReceivedAt, err = parseTime(receivedRaw); err != nil {
		return nil, err
	}
	if record.FirstSeenAt, err = parseTime(firstSeenRaw); err != nil {
		return nil, err
	}
	if record.LastUpdatedAt, err = parseTime(updatedRaw); err != nil {
		return nil, err
	}
	if processedRaw.Valid && processedRaw.String != "" {
		processed, perr := parseTime(processedRaw.String)
		if perr != nil {
			return nil, perr
		}
		record.ProcessedAt = &processed
	}
	return record, nil
}

// InsertIfAbsent records a notification id the first time it is seen. It
// returns true when the id was newly inserted and false when a record with
// the same id already exists, leaving the existing record untouched.
func (s *Store) InsertIfAbsent(ctx context.Context, item *notification.Item) (bool, error) {
	if item == nil {
		return false, errors.New("nil notification item")
	}
	if err := item.Validate(); err != nil {
		return false, fmt.Errorf("validate notification: %w", err)
	}

	now := formatTime(time.Now())
	res, err := s.execWithRetry(ctx,
		`INSERT OR IGNORE INTO notifications (id, status, kind, author_handle, received_at, first_seen_at, last_updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		item.ID, string(StatusPending), item.Kind, item.AuthorHandle, formatTime(item.ReceivedAt), now, now,
	)
	if err != nil {
		return false, fmt.Errorf("insert notification record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert notification record: %w", err)
	}
	return affected > 0, nil
}

// Lookup returns the record for the given id, or ErrNotFound.
func (s *Store) Lookup(ctx context.Context, id string) (*Record, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM notifications WHERE id = ?", recordColumns), id)
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup notification record: %w", err)
	}
	return record, nil
}

// IsKnown reports whether the id has a record and, if so, its status.
func (s *Store) IsKnown(ctx context.Context, id string) (Status, bool, error) {
	ctx = ensureContext(ctx)
	var statusStr string
	err := s.db.QueryRowContext(ctx, "SELECT status FROM notifications WHERE id = ?", id).Scan(&statusStr)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("check notification record: %w", err)
	}
	return Status(statusStr), true, nil
}

// MarkTerminal transitions a record to a terminal status. Marking an id with
// its current status is a no-op. Marking an id that already carries a
// different terminal status keeps the first outcome and logs the anomaly.
func (s *Store) MarkTerminal(ctx context.Context, id string, status Status, errMessage string) error {
	if !status.IsTerminal() {
		return fmt.Errorf("status %q is not terminal", status)
	}

	current, known, err := s.IsKnown(ctx, id)
	if err != nil {
		return err
	}
	if !known {
		return fmt.Errorf("mark %s: %w", id, ErrNotFound)
	}
	if current == status {
		return nil
	}
	if current.IsTerminal() {
		s.logger.Warn("conflicting terminal outcome, keeping first",
			logging.String(logging.FieldItemID, id),
			logging.String("current", string(current)),
			logging.String("requested", string(status)))
		return nil
	}

	now := formatTime(time.Now())
	var processedAt any
	if status != StatusError {
		processedAt = now
	}
	var storedError any
	if errMessage != "" {
		storedError = errMessage
	}

	res, err := s.execWithRetry(ctx,
		`UPDATE notifications SET status = ?, processed_at = ?, error = ?, last_updated_at = ? WHERE id = ?`,
		string(status), processedAt, storedError, now, id,
	)
	if err != nil {
		return fmt.Errorf("mark notification %s: %w", id, err)
	}
	if affected, rerr := res.RowsAffected(); rerr == nil && affected == 0 {
		return fmt.Errorf("mark %s: %w", id, ErrNotFound)
	}
	return nil
}

// LatestResolvedTimestamp returns the received_at of the most recently
// received notification that reached a resolved terminal state. The second
// return value is false when no such record exists.
func (s *Store) LatestResolvedTimestamp(ctx context.Context) (time.Time, bool, error) {
	ctx = ensureContext(ctx)
	var raw sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(received_at) FROM notifications WHERE status IN (?, ?, ?)`,
		string(StatusProcessed), string(StatusIgnored), string(StatusNoReply),
	).Scan(&raw)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("latest resolved timestamp: %w", err)
	}
	if !raw.Valid || raw.String == "" {
		return time.Time{}, false, nil
	}
	t, err := parseTime(raw.String)
	if err != nil {
		return time.Time{}, false, err
	}
	return t, true, nil
}

// ResetToPending moves terminal records received within the window back to
// pending so the pipeline can retry them. When no statuses are given, error
// and no_reply records are reset. Returns the records modified.
func (s *Store) ResetToPending(ctx context.Context, since time.Time, statuses ...Status) (int64, error) {
	if len(statuses) == 0 {
		statuses = []Status{StatusError, StatusNoReply}
	}
	for _, status := range statuses {
		if !status.IsTerminal() {
			return 0, fmt.Errorf("cannot reset from non-terminal status %q", status)
		}
	}

	placeholders := make([]string, len(statuses))
	args := []any{string(StatusPending), formatTime(time.Now())}
	for i, status := range statuses {
		placeholders[i] = "?"
		args = append(args, string(status))
	}
	args = append(args, formatTime(since))

	res, err := s.execWithRetry(ctx, fmt.Sprintf(
		`UPDATE notifications
		 SET status = ?, processed_at = NULL, error = NULL, last_updated_at = ?
		 WHERE status IN (%s) AND received_at >= ?`,
		strings.Join(placeholders, ", ")),
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("reset records to pending: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reset records to pending: %w", err)
	}
	if affected > 0 {
		s.logger.Info("reset records to pending", logging.Int64("count", affected))
	}
	return affected, nil
}

// PurgeOlderThan deletes terminal records whose received_at is older than the
// retention window and compacts the database. Pending records are never
// purged.
func (s *Store) PurgeOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	cutoff := formatTime(time.Now().Add(-age))
	res, err := s.execWithRetry(ctx,
		`DELETE FROM notifications WHERE status != ? AND received_at < ?`,
		string(StatusPending), cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("purge old records: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge old records: %w", err)
	}
	if affected > 0 {
		if err := s.execWithoutResultRetry(ctx, "VACUUM"); err != nil {
			return affected, fmt.Errorf("vacuum after purge: %w", err)
		}
		s.logger.Info("purged old records", logging.Int64("count", affected))
	}
	return affected, nil
}

// Stats returns record counts grouped by status plus the count of records
// received in the last 24 hours.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	ctx = ensureContext(ctx)
	stats := Stats{ByStatus: make(map[Status]int)}

	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM notifications GROUP BY status`)
	if err != nil {
		return Stats{}, fmt.Errorf("state stats: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return Stats{}, err
		}
		stats.ByStatus[status] = count
		stats.Total += count
	}
	if err := rows.Err(); err != nil {
		return Stats{}, err
	}

	cutoff := formatTime(time.Now().Add(-24 * time.Hour))
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM notifications WHERE received_at >= ?`, cutoff,
	).Scan(&stats.Recent24); err != nil {
		return Stats{}, fmt.Errorf("state stats: %w", err)
	}
	return stats, nil
}

// CountByStatusSince counts records in the given statuses received at or
// after the cutoff. Used by recovery to preview a reset.
func (s *Store) CountByStatusSince(ctx context.Context, since time.Time, statuses ...Status) (int64, error) {
	if len(statuses) == 0 {
		statuses = []Status{StatusError, StatusNoReply}
	}
	ctx = ensureContext(ctx)

	placeholders := make([]string, len(statuses))
	args := make([]any, 0, len(statuses)+1)
	for i, status := range statuses {
		placeholders[i] = "?"
		args = append(args, string(status))
	}
	args = append(args, formatTime(since))

	var count int64
	err := s.db.QueryRowContext(ctx, fmt.Sprintf(
		`SELECT COUNT(1) FROM notifications WHERE status IN (%s) AND received_at >= ?`,
		strings.Join(placeholders, ", ")),
		args...,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count records by status: %w", err)
	}
	return count, nil
}
