// Package presence tracks which users currently hold an active real-time
// session. The registry is consulted by the notification engine to decide
// whether a pushed notification can be marked delivered immediately.
package presence

import (
	"context"
	"time"
)

// DefaultSessionTTL is how long a session counts as online without a
// heartbeat. Transports are expected to heartbeat at a fraction of this.
const DefaultSessionTTL = 60 * time.Second

// Registry tracks active sessions per user. A user is online while at least
// one of their sessions is tracked and fresh.
type Registry interface {
	// Track registers (or refreshes) a session for the user.
	Track(ctx context.Context, userID, sessionID string) error

	// Untrack removes a session for the user.
	Untrack(ctx context.Context, userID, sessionID string) error

	// IsOnline reports whether the user has at least one active session.
	IsOnline(ctx context.Context, userID string) (bool, error)
}
