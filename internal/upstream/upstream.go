// Package upstream defines the contract against the notification source.
// Recovery paginates it to find items that never reached the queue; the
// live producer uses the same surface to acknowledge deliveries.
package upstream

import (
	"context"
	"time"

	"voidbot/internal/notification"
)

// Page is one slice of the upstream notification listing, newest first.
type Page struct {
	Items []*notification.Item `json:"items"`
	// Cursor requests the next (older) page. Empty when the listing is
	// exhausted.
	Cursor string `json:"cursor,omitempty"`
}

// Source lists notifications from the platform.
type Source interface {
	// ListNotifications returns up to limit notifications starting at the
	// cursor, newest first. An empty cursor starts from the newest.
	ListNotifications(ctx context.Context, cursor string, limit int) (Page, error)

	// MarkSeen acknowledges everything up to the given instant so the
	// platform stops reporting it as unread.
	MarkSeen(ctx context.Context, upTo time.Time) error
}
