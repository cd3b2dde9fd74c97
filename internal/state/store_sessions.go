package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Session tracks one pipeline run and its item counters.
type Session struct {
	ID             int64
	StartedAt      time.Time
	EndedAt        *time.Time
	LastSeenAt     *time.Time
	ItemsProcessed int
	ItemsSkipped   int
	ItemsErrored   int
}

// StartSession opens a new session row and returns its id.
func (s *Store) StartSession(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx,
		`INSERT INTO sessions (started_at, last_seen_at) VALUES (?, ?)`,
		formatTime(time.Now()), formatTime(time.Now()),
	)
	if err != nil {
		return 0, fmt.Errorf("start session: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("start session: %w", err)
	}
	return id, nil
}

// RecordSessionItem bumps one of the session counters and refreshes the
// heartbeat timestamp.
func (s *Store) RecordSessionItem(ctx context.Context, sessionID int64, outcome Status) error {
	column := "items_skipped"
	switch outcome {
	case StatusProcessed, StatusNoReply:
		column = "items_processed"
	case StatusError:
		column = "items_errored"
	}
	err := s.execWithoutResultRetry(ctx, fmt.Sprintf(
		`UPDATE sessions SET %s = %s + 1, last_seen_at = ? WHERE id = ?`, column, column),
		formatTime(time.Now()), sessionID,
	)
	if err != nil {
		return fmt.Errorf("record session item: %w", err)
	}
	return nil
}

// TouchSession refreshes the session heartbeat without changing counters.
func (s *Store) TouchSession(ctx context.Context, sessionID int64) error {
	err := s.execWithoutResultRetry(ctx,
		`UPDATE sessions SET last_seen_at = ? WHERE id = ?`,
		formatTime(time.Now()), sessionID,
	)
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	return nil
}

// EndSession closes the session row.
func (s *Store) EndSession(ctx context.Context, sessionID int64) error {
	err := s.execWithoutResultRetry(ctx,
		`UPDATE sessions SET ended_at = ? WHERE id = ?`,
		formatTime(time.Now()), sessionID,
	)
	if err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	return nil
}

// LatestSession returns the most recently started session, or nil when no
// session has ever run.
func (s *Store) LatestSession(ctx context.Context) (*Session, error) {
	ctx = ensureContext(ctx)
	var (
		session    Session
		startedRaw string
		endedRaw   sql.NullString
		seenRaw    sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, started_at, ended_at, last_seen_at, items_processed, items_skipped, items_errored
		 FROM sessions ORDER BY id DESC LIMIT 1`,
	).Scan(&session.ID, &startedRaw, &endedRaw, &seenRaw,
		&session.ItemsProcessed, &session.ItemsSkipped, &session.ItemsErrored)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest session: %w", err)
	}
	if session.StartedAt, err = parseTime(startedRaw); err != nil {
		return nil, err
	}
	if endedRaw.Valid && endedRaw.String != "" {
		ended, perr := parseTime(endedRaw.String)
		if perr != nil {
			return nil, perr
		}
		session.EndedAt = &ended
	}
	if seenRaw.Valid && seenRaw.String != "" {
		seen, perr := parseTime(seenRaw.String)
		if perr != nil {
			return nil, perr
		}
		session.LastSeenAt = &seen
	}
	return &session, nil
}
