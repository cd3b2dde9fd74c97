package notification

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// Priority orders queue consumption. High-priority items strictly precede
// normal ones regardless of arrival time.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityNormal Priority = "normal"
)

// ParsePriority converts a string into a known Priority.
func ParsePriority(value string) (Priority, bool) {
	switch Priority(strings.ToLower(strings.TrimSpace(value))) {
	case PriorityHigh:
		return PriorityHigh, true
	case PriorityNormal, "":
		return PriorityNormal, value != ""
	default:
		return "", false
	}
}

// Item is a unit of inbound work. The payload is opaque to the pipeline;
// only the identity, routing, and ordering fields are ever inspected.
type Item struct {
	ID           string          `json:"id"`
	Priority     Priority        `json:"priority"`
	Kind         string          `json:"kind"`
	AuthorHandle string          `json:"author_handle,omitempty"`
	ReceivedAt   time.Time       `json:"received_at"`
	Payload      json.RawMessage `json:"payload,omitempty"`
}

// EnsureID assigns a content-addressed identifier when the upstream source
// supplied none. The payload is NFC-normalized first so byte-level encoding
// differences between visually identical notifications do not defeat dedup.
func (i *Item) EnsureID() {
	if strings.TrimSpace(i.ID) != "" {
		return
	}
	i.ID = "content:" + ContentHash(i.Payload)
}

// Validate reports whether the item carries enough to be admitted.
func (i *Item) Validate() error {
	if strings.TrimSpace(i.ID) == "" {
		return errors.New("item id is empty")
	}
	if i.Priority != PriorityHigh && i.Priority != PriorityNormal {
		return errors.New("item priority is unset")
	}
	if strings.TrimSpace(i.Kind) == "" {
		return errors.New("item kind is empty")
	}
	if i.ReceivedAt.IsZero() {
		return errors.New("item received_at is unset")
	}
	return nil
}

// ContentHash returns the first 16 hex characters of the SHA-256 digest of
// the NFC-normalized payload.
func ContentHash(payload []byte) string {
	digest := sha256.Sum256(norm.NFC.Bytes(payload))
	return hex.EncodeToString(digest[:])[:16]
}

// ClassifyPriority resolves an item's priority from the static allowlist of
// operator handles. Classification policy beyond the allowlist is external;
// callers may set Priority explicitly before enqueueing.
func ClassifyPriority(priorityHandles []string, authorHandle string) Priority {
	handle := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(authorHandle, "@")))
	for _, candidate := range priorityHandles {
		if handle == candidate {
			return PriorityHigh
		}
	}
	return PriorityNormal
}
