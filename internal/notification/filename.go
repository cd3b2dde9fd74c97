package notification

import (
	"fmt"
	"strings"
	"time"
)

// Queue filenames encode priority, receipt time, kind, and a payload hash so
// a plain lexical sort of the pending bucket yields priority-then-arrival
// order: 0_<timestamp>_<kind>_<hash>.json before 1_<timestamp>_<kind>_<hash>.json.
const (
	highPrefix          = "0"
	normalPrefix        = "1"
	fileTimestampLayout = "20060102T150405.000"
	fileExtension       = ".json"
)

// FileName renders the on-disk queue filename for an item.
func FileName(item *Item) string {
	prefix := normalPrefix
	if item.Priority == PriorityHigh {
		prefix = highPrefix
	}
	return fmt.Sprintf("%s_%s_%s_%s%s",
		prefix,
		item.ReceivedAt.UTC().Format(fileTimestampLayout),
		sanitizeKind(item.Kind),
		ContentHash(item.Payload),
		fileExtension,
	)
}

// FileNameInfo is the metadata recoverable from a queue filename without
// opening the record.
type FileNameInfo struct {
	Priority   Priority
	ReceivedAt time.Time
	Kind       string
	Hash       string
}

// ParseFileName decodes the fields encoded in a queue filename.
func ParseFileName(name string) (FileNameInfo, error) {
	base := strings.TrimSuffix(name, fileExtension)
	if base == name {
		return FileNameInfo{}, fmt.Errorf("queue filename %q: missing %s extension", name, fileExtension)
	}
	parts := strings.SplitN(base, "_", 4)
	if len(parts) != 4 {
		return FileNameInfo{}, fmt.Errorf("queue filename %q: expected 4 fields, got %d", name, len(parts))
	}

	info := FileNameInfo{Kind: parts[2], Hash: parts[3]}
	switch parts[0] {
	case highPrefix:
		info.Priority = PriorityHigh
	case normalPrefix:
		info.Priority = PriorityNormal
	default:
		return FileNameInfo{}, fmt.Errorf("queue filename %q: unknown priority prefix %q", name, parts[0])
	}

	ts, err := time.Parse(fileTimestampLayout, parts[1])
	if err != nil {
		return FileNameInfo{}, fmt.Errorf("queue filename %q: %w", name, err)
	}
	info.ReceivedAt = ts.UTC()
	return info, nil
}

// IsQueueFile reports whether a directory entry name looks like a queue
// record. Non-record files (locks, temp writes) are skipped during scans.
func IsQueueFile(name string) bool {
	if !strings.HasSuffix(name, fileExtension) {
		return false
	}
	return strings.HasPrefix(name, highPrefix+"_") || strings.HasPrefix(name, normalPrefix+"_")
}

func sanitizeKind(kind string) string {
	kind = strings.ToLower(strings.TrimSpace(kind))
	if kind == "" {
		return "unknown"
	}
	var b strings.Builder
	b.Grow(len(kind))
	for _, r := range kind {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	return strings.Trim(b.String(), "-")
}
