package notifier

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/coursekit/notify/pkg/async"
	"github.com/coursekit/notify/pkg/logger"
)

// DefaultSideChannelTimeout bounds each side-channel dispatch (push, email)
// so a slow transport cannot stall a fan-out.
const DefaultSideChannelTimeout = 5 * time.Second

// Options tunes the delivery of a single Create call.
type Options struct {
	// SendEmail forces the email decision when set; otherwise the preference
	// resolver decides.
	SendEmail *bool

	// SendSocket disables the real-time push when set to false. Defaults to
	// true.
	SendSocket *bool
}

func (o Options) sendSocket() bool {
	return o.SendSocket == nil || *o.SendSocket
}

// BulkFailure records one recipient whose notification could not be created.
type BulkFailure struct {
	UserID string
	Err    error
}

// BulkResult is the outcome of a bulk fan-out: every successfully created
// record plus the isolated per-recipient creation failures.
type BulkResult struct {
	Created []Notification
	Failed  []BulkFailure
}

// Service is the caller-facing API of the notification engine. It
// orchestrates a notification's full lifecycle: persist, classify, push to
// live sessions, resolve preferences, email. Only the persistence step can
// fail the call; both delivery channels are best-effort and their failures
// are logged, never surfaced.
type Service struct {
	manager  *Manager
	realtime *RealtimeDispatcher
	emailer  *EmailDispatcher
	resolver *PreferenceResolver
	settings SettingsStore
	logger   *slog.Logger
	timeout  time.Duration
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithRealtime attaches the real-time dispatcher. Without it, no socket
// pushes are attempted and records stay undelivered until read.
func WithRealtime(d *RealtimeDispatcher) ServiceOption {
	return func(s *Service) {
		s.realtime = d
	}
}

// WithEmailer attaches the email dispatcher. Without it, no emails are sent.
func WithEmailer(d *EmailDispatcher) ServiceOption {
	return func(s *Service) {
		s.emailer = d
	}
}

// WithServiceLogger sets the logger for the Service.
func WithServiceLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = l
	}
}

// WithSideChannelTimeout overrides the per-dispatch timeout for push and
// email side effects.
func WithSideChannelTimeout(d time.Duration) ServiceOption {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// NewService assembles the delivery engine. The settings store backs both
// the preference resolver and the settings API.
func NewService(manager *Manager, settings SettingsStore, opts ...ServiceOption) *Service {
	s := &Service{
		manager:  manager,
		settings: settings,
		logger:   slog.Default(),
		timeout:  DefaultSideChannelTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.resolver = NewPreferenceResolver(settings, WithResolverLogger(s.logger))
	return s
}

// Create persists a notification and fans it out to the delivery channels.
//
// Persistence failure aborts the call. After that point nothing can fail it:
// push and email are awaited internally, bounded by the side-channel
// timeout, and their failures are logged only. The returned record reflects
// the delivered flag when a live session was present at push time.
func (s *Service) Create(ctx context.Context, in CreateInput, opts Options) (*Notification, error) {
	notif, err := s.manager.Create(ctx, in)
	if err != nil {
		return nil, err
	}

	s.dispatch(ctx, notif, opts)
	return notif, nil
}

// CreateBulk creates one notification per recipient and fans out the side
// effects concurrently. A creation failure for one recipient is collected
// into the result and does not abort sibling creations; a side-channel
// failure for one recipient is isolated and logged, never aborting the
// batch.
func (s *Service) CreateBulk(ctx context.Context, userIDs []string, in CreateInput, opts Options) (*BulkResult, error) {
	result := &BulkResult{}

	// Persist sequentially so each recipient's creation is independently
	// validated and its failure isolated.
	for _, userID := range userIDs {
		recipientInput := in
		recipientInput.UserID = userID

		notif, err := s.manager.Create(ctx, recipientInput)
		if err != nil {
			s.logger.LogAttrs(ctx, slog.LevelError, "bulk notification creation failed for recipient",
				logger.UserID(userID),
				logger.EventType(string(in.Type)),
				logger.Error(err),
			)
			result.Failed = append(result.Failed, BulkFailure{UserID: userID, Err: err})
			continue
		}
		result.Created = append(result.Created, *notif)
	}

	// Side effects for all recipients run concurrently and are awaited
	// together before returning.
	futures := make([]*async.Future[struct{}], 0, len(result.Created))
	for i := range result.Created {
		futures = append(futures, async.Async(ctx, &result.Created[i],
			func(ctx context.Context, n *Notification) (struct{}, error) {
				s.dispatch(ctx, n, opts)
				return struct{}{}, nil
			}))
	}
	for _, f := range futures {
		// dispatch never returns an error; awaiting only serializes completion.
		_, _ = f.Await()
	}

	return result, nil
}

// dispatch runs the best-effort side channels for one persisted record:
// real-time push, then the email decision, then the email itself. Each
// channel is bounded by the side-channel timeout. dispatch never fails.
func (s *Service) dispatch(ctx context.Context, notif *Notification, opts Options) {
	if s.realtime != nil && opts.sendSocket() {
		// The goroutine gets a private copy: after a timeout it keeps running
		// while the caller already holds the record, so it must never touch
		// the original. The delivered flag is applied here, synchronously,
		// only when the push finished in time.
		pushCopy := *notif
		f := async.Async(ctx, &pushCopy, func(ctx context.Context, n *Notification) (bool, error) {
			return s.realtime.Push(ctx, n), nil
		})
		delivered, err := f.AwaitWithTimeout(s.timeout)
		switch {
		case err != nil:
			s.logger.LogAttrs(ctx, slog.LevelWarn, "realtime push timed out",
				logger.NotificationID(notif.ID),
				logger.UserID(notif.UserID),
				logger.Channel("socket"),
				logger.Error(err),
			)
		case delivered:
			notif.MarkDelivered()
		}
	}

	sendEmail := false
	if opts.SendEmail != nil {
		sendEmail = *opts.SendEmail
	} else {
		sendEmail = s.resolver.ShouldSendEmail(ctx, notif.UserID, notif.Type)
	}

	if sendEmail && s.emailer != nil {
		emailCopy := *notif
		f := async.Async(ctx, &emailCopy, func(ctx context.Context, n *Notification) (bool, error) {
			return s.emailer.Dispatch(ctx, n), nil
		})
		if _, err := f.AwaitWithTimeout(s.timeout); err != nil {
			s.logger.LogAttrs(ctx, slog.LevelWarn, "email dispatch timed out",
				logger.NotificationID(notif.ID),
				logger.UserID(notif.UserID),
				logger.Channel("email"),
				logger.Error(err),
			)
		}
	}
}

// Notifications returns a page of the user's notifications, newest first.
func (s *Service) Notifications(ctx context.Context, userID string, opts ListOptions) (*Page, error) {
	return s.manager.List(ctx, userID, opts)
}

// Notification returns a single notification owned by the user.
func (s *Service) Notification(ctx context.Context, userID, id string) (*Notification, error) {
	return s.manager.Get(ctx, userID, id)
}

// MarkAsRead marks the given notifications as read for the user.
func (s *Service) MarkAsRead(ctx context.Context, userID string, ids ...string) error {
	return s.manager.MarkRead(ctx, userID, ids...)
}

// MarkAllAsRead marks every unread notification for the user.
func (s *Service) MarkAllAsRead(ctx context.Context, userID string) error {
	return s.manager.MarkAllRead(ctx, userID)
}

// DeleteNotification removes a single notification owned by the user.
func (s *Service) DeleteNotification(ctx context.Context, userID, id string) error {
	return s.manager.Delete(ctx, userID, id)
}

// DeleteAllRead removes every read notification for the user.
func (s *Service) DeleteAllRead(ctx context.Context, userID string) error {
	return s.manager.DeleteAllRead(ctx, userID)
}

// UnreadCount returns the user's unread notification count.
func (s *Service) UnreadCount(ctx context.Context, userID string) (int, error) {
	return s.manager.CountUnread(ctx, userID)
}

// Stats returns the user's aggregate notification counts.
func (s *Service) Stats(ctx context.Context, userID string) (*Stats, error) {
	return s.manager.Stats(ctx, userID)
}

// GetSettings returns the user's notification settings, falling back to
// defaults when none are stored.
func (s *Service) GetSettings(ctx context.Context, userID string) (*Settings, error) {
	settings, err := s.settings.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrSettingsNotFound) {
			defaults := DefaultSettings(userID)
			return &defaults, nil
		}
		return nil, err
	}
	return settings, nil
}

// UpdateSettings stores the user's notification settings.
func (s *Service) UpdateSettings(ctx context.Context, settings Settings) error {
	if settings.UserID == "" {
		return errors.Join(ErrValidation, errors.New("settings user_id is required"))
	}
	return s.settings.Upsert(ctx, settings)
}
