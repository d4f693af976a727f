package notifier

import (
	"context"
	"log/slog"

	"github.com/coursekit/notify/pkg/email"
	"github.com/coursekit/notify/pkg/logger"
)

// Recipient is the minimal user profile the email channel needs.
type Recipient struct {
	Email string
	Name  string
}

// RecipientDirectory resolves a user ID to an email recipient. The user
// table is owned by the surrounding platform, so the engine only sees this
// lookup boundary.
type RecipientDirectory interface {
	Recipient(ctx context.Context, userID string) (*Recipient, error)
}

// EmailDispatcher renders a channel-specific message for a notification and
// hands it to the outbound email collaborator. Types without a mapped
// template produce no email; that is expected for in-app-only types, not an
// error. All transport failures are logged, never propagated.
type EmailDispatcher struct {
	sender    email.Sender
	directory RecipientDirectory
	logger    *slog.Logger
}

// EmailDispatcherOption configures an EmailDispatcher.
type EmailDispatcherOption func(*EmailDispatcher)

// WithEmailLogger sets the logger for the EmailDispatcher.
func WithEmailLogger(l *slog.Logger) EmailDispatcherOption {
	return func(d *EmailDispatcher) {
		d.logger = l
	}
}

// NewEmailDispatcher creates an email dispatcher.
func NewEmailDispatcher(sender email.Sender, directory RecipientDirectory, opts ...EmailDispatcherOption) *EmailDispatcher {
	d := &EmailDispatcher{
		sender:    sender,
		directory: directory,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch renders and sends the email for a notification. Returns true when
// an email was handed to the transport. Failures are logged and swallowed:
// email is always best-effort relative to the notification record itself.
func (d *EmailDispatcher) Dispatch(ctx context.Context, notif *Notification) bool {
	rcpt, err := d.directory.Recipient(ctx, notif.UserID)
	if err != nil {
		d.logger.LogAttrs(ctx, slog.LevelWarn, "recipient lookup failed, skipping email",
			logger.NotificationID(notif.ID),
			logger.UserID(notif.UserID),
			logger.Channel("email"),
			logger.Error(err),
		)
		return false
	}
	if rcpt.Email == "" {
		return false
	}

	msg, ok := renderEmail(notif, *rcpt)
	if !ok {
		// No template for this type; in-app only.
		return false
	}

	if err := d.sender.SendEmail(ctx, email.SendParams{
		SendTo:   rcpt.Email,
		Subject:  msg.Subject,
		BodyHTML: msg.BodyHTML,
		Tag:      string(notif.Type),
	}); err != nil {
		d.logger.LogAttrs(ctx, slog.LevelWarn, "email send failed",
			logger.NotificationID(notif.ID),
			logger.UserID(notif.UserID),
			logger.Channel("email"),
			logger.Error(err),
		)
		return false
	}
	return true
}
