package state

import (
	"strings"
	"time"
)

// Status represents the logical processing state of a notification id. The
// state store, not the physical queue, is the source of truth for these.
type Status string

const (
	StatusPending   Status = "pending"
	StatusProcessed Status = "processed"
	StatusError     Status = "error"
	StatusIgnored   Status = "ignored"
	StatusNoReply   Status = "no_reply"
)

var allStatuses = []Status{
	StatusPending,
	StatusProcessed,
	StatusError,
	StatusIgnored,
	StatusNoReply,
}

var terminalStatuses = map[Status]struct{}{
	StatusProcessed: {},
	StatusError:     {},
	StatusIgnored:   {},
	StatusNoReply:   {},
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	for _, status := range allStatuses {
		if status == normalized {
			return normalized, true
		}
	}
	return "", false
}

// IsTerminal reports whether a status will never change without an explicit
// operator reset.
func (s Status) IsTerminal() bool {
	_, ok := terminalStatuses[s]
	return ok
}

// Record is a notification's persisted processing state.
type Record struct {
	ID            string
	Status        Status
	Kind          string
	AuthorHandle  string
	ReceivedAt    time.Time
	FirstSeenAt   time.Time
	LastUpdatedAt time.Time
	ProcessedAt   *time.Time
	Error         string
	Metadata      string
}

// Stats aggregates record counts for diagnostics.
type Stats struct {
	Total    int
	ByStatus map[Status]int
	Recent24 int
}

// DatabaseHealth captures diagnostic information about the state database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	TableExists      bool
	IntegrityCheck   bool
	TotalRecords     int
	Error            string
}
