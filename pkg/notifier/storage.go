package notifier

import (
	"context"
	"time"
)

// Storage handles notification persistence. The engine mutates rows only
// through these operations; each is expected to be a single atomic update at
// the storage layer. Flags only move forward, so no compare-and-swap is
// required.
type Storage interface {
	// Create stores a new notification.
	Create(ctx context.Context, notif Notification) error

	// Get retrieves a single notification owned by the user, or ErrNotFound.
	Get(ctx context.Context, userID, id string) (*Notification, error)

	// List returns a page of the user's notifications ordered newest-first,
	// along with the total count matching the filters.
	List(ctx context.Context, userID string, opts ListOptions) ([]Notification, int, error)

	// MarkDelivered sets the delivered flag exactly once. Marking an already
	// delivered notification is a no-op, not an error.
	MarkDelivered(ctx context.Context, id string) error

	// MarkRead marks the given notifications as read. IDs not owned by the
	// user are silently ignored; this is an authorization boundary.
	MarkRead(ctx context.Context, userID string, ids ...string) error

	// MarkAllRead marks every currently unread notification for the user.
	MarkAllRead(ctx context.Context, userID string) error

	// Delete removes notifications owned by the user.
	Delete(ctx context.Context, userID string, ids ...string) error

	// DeleteAllRead removes every read notification for the user.
	DeleteAllRead(ctx context.Context, userID string) error

	// DeleteReadBefore removes read notifications whose ReadAt is older than
	// the cutoff, across all users. Returns the number of rows removed.
	// Used by the retention sweeper.
	DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// CountUnread returns the user's unread notification count.
	CountUnread(ctx context.Context, userID string) (int, error)

	// Stats returns aggregate counts for the user.
	Stats(ctx context.Context, userID string) (*Stats, error)
}

// ListOptions provides filtering and pagination for listing notifications.
type ListOptions struct {
	Page     int      // 1-based page number (0 treated as 1)
	Limit    int      // page size (0 falls back to DefaultPageSize)
	Read     *bool    // filter by read state when set
	Type     Type     // filter by type when non-empty
	Priority Priority // filter by priority when non-empty
}

// DefaultPageSize is used when ListOptions.Limit is not set.
const DefaultPageSize = 20

// Normalize clamps page and limit to usable values.
func (o ListOptions) Normalize() ListOptions {
	if o.Page < 1 {
		o.Page = 1
	}
	if o.Limit < 1 {
		o.Limit = DefaultPageSize
	}
	return o
}

// Offset returns the row offset for the normalized page/limit pair.
func (o ListOptions) Offset() int {
	n := o.Normalize()
	return (n.Page - 1) * n.Limit
}

// Page is one page of a user's notification list.
type Page struct {
	Notifications []Notification `json:"notifications"`
	Total         int            `json:"total"`
	Page          int            `json:"page"`
	Limit         int            `json:"limit"`
}

// Stats aggregates a user's notification counts. ByPriority breaks down the
// unread set only.
type Stats struct {
	Total      int              `json:"total"`
	Unread     int              `json:"unread"`
	Delivered  int              `json:"delivered"`
	ByPriority map[Priority]int `json:"by_priority"`
}
