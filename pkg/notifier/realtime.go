package notifier

import (
	"context"
	"log/slog"

	"github.com/coursekit/notify/pkg/logger"
)

// EventNotification is the event name used for notification pushes on the
// real-time channel.
const EventNotification = "notification"

// Transport is the real-time transport collaborator. It owns the session
// registry and presence state; the engine only calls this interface.
type Transport interface {
	// SendToUser pushes a payload to every active session of the user.
	// Implementations discard the payload when no session exists.
	SendToUser(ctx context.Context, userID, event string, payload any) error

	// IsUserOnline reports whether the user currently has an active session.
	IsUserOnline(ctx context.Context, userID string) (bool, error)
}

// RealtimeDispatcher pushes notifications to active sessions and marks
// records delivered when a session was live at push time. Transport failures
// are logged and swallowed: the push channel is non-critical relative to the
// persisted record.
type RealtimeDispatcher struct {
	transport Transport
	manager   *Manager
	logger    *slog.Logger
}

// RealtimeDispatcherOption configures a RealtimeDispatcher.
type RealtimeDispatcherOption func(*RealtimeDispatcher)

// WithRealtimeLogger sets the logger for the RealtimeDispatcher.
func WithRealtimeLogger(l *slog.Logger) RealtimeDispatcherOption {
	return func(d *RealtimeDispatcher) {
		d.logger = l
	}
}

// NewRealtimeDispatcher creates a dispatcher over the given transport.
func NewRealtimeDispatcher(transport Transport, manager *Manager, opts ...RealtimeDispatcherOption) *RealtimeDispatcher {
	d := &RealtimeDispatcher{
		transport: transport,
		manager:   manager,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Push sends the notification to the user's sessions and, when the user is
// online, marks the stored record delivered. The returned flag is a
// best-effort heuristic: "a session was live at push time", not a delivery
// receipt. Push only reads notif; the caller decides whether to apply the
// flag to its own copy. Push never returns an error; every failure is logged
// and swallowed.
func (d *RealtimeDispatcher) Push(ctx context.Context, notif *Notification) bool {
	// Fire regardless of presence. The transport discards the payload when
	// no session exists.
	if err := d.transport.SendToUser(ctx, notif.UserID, EventNotification, notif); err != nil {
		d.logger.LogAttrs(ctx, slog.LevelWarn, "realtime push failed",
			logger.NotificationID(notif.ID),
			logger.UserID(notif.UserID),
			logger.Channel("socket"),
			logger.Error(err),
		)
	}

	online, err := d.transport.IsUserOnline(ctx, notif.UserID)
	if err != nil {
		d.logger.LogAttrs(ctx, slog.LevelWarn, "presence check failed",
			logger.UserID(notif.UserID),
			logger.Channel("socket"),
			logger.Error(err),
		)
		return false
	}
	if !online {
		return false
	}

	if err := d.manager.MarkDelivered(ctx, notif.ID); err != nil {
		d.logger.LogAttrs(ctx, slog.LevelWarn, "failed to mark notification delivered",
			logger.NotificationID(notif.ID),
			logger.UserID(notif.UserID),
			logger.Error(err),
		)
		return false
	}
	return true
}
