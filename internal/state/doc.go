// Package state persists notification processing outcomes in SQLite. It is
// the source of truth for deduplication: an id present here is never
// re-enqueued, regardless of what the filesystem queue currently holds.
package state
