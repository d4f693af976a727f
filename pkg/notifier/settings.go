package notifier

import (
	"context"
	"errors"
	"log/slog"

	"github.com/coursekit/notify/pkg/logger"
)

// Settings holds a user's per-channel notification preferences.
// The engine consumes them read-only; the caller-facing service exposes
// Get/Update operations for the web layer.
type Settings struct {
	UserID            string `json:"user_id"`
	Email             bool   `json:"email"`
	InApp             bool   `json:"in_app"`
	CourseUpdates     bool   `json:"course_updates"`
	AssignmentUpdates bool   `json:"assignment_updates"`
	DiscussionUpdates bool   `json:"discussion_updates"`
	PaymentUpdates    bool   `json:"payment_updates"`
	AccountUpdates    bool   `json:"account_updates"`
}

// DefaultSettings returns the settings surfaced to users without a stored
// record: every channel enabled. These are the values the settings API
// returns before the user saves anything; email decisions for users without
// a record are made by the resolver, not by these defaults.
func DefaultSettings(userID string) Settings {
	return Settings{
		UserID:            userID,
		Email:             true,
		InApp:             true,
		CourseUpdates:     true,
		AssignmentUpdates: true,
		DiscussionUpdates: true,
		PaymentUpdates:    true,
		AccountUpdates:    true,
	}
}

// SettingsStore persists per-user notification settings.
type SettingsStore interface {
	// Get returns the stored settings for a user, or ErrSettingsNotFound.
	Get(ctx context.Context, userID string) (*Settings, error)

	// Upsert creates or replaces the settings for the user identified by
	// settings.UserID.
	Upsert(ctx context.Context, settings Settings) error
}

// PreferenceResolver decides whether the email channel should fire for a
// given user and notification type.
type PreferenceResolver struct {
	settings SettingsStore
	logger   *slog.Logger
}

// PreferenceResolverOption configures a PreferenceResolver.
type PreferenceResolverOption func(*PreferenceResolver)

// WithResolverLogger sets the logger for the PreferenceResolver.
func WithResolverLogger(l *slog.Logger) PreferenceResolverOption {
	return func(r *PreferenceResolver) {
		r.logger = l
	}
}

// NewPreferenceResolver creates a resolver backed by the given settings store.
func NewPreferenceResolver(settings SettingsStore, opts ...PreferenceResolverOption) *PreferenceResolver {
	r := &PreferenceResolver{
		settings: settings,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ShouldSendEmail reports whether an email should be sent for the given user
// and type.
//
// For users with stored settings, always-email types return true regardless
// of the toggles and conditional types require both the email toggle and
// course updates toggle. Users with no stored record get the reduced
// transactional default set only. Any settings lookup failure degrades to
// false (fail-closed for email) and is logged, never raised.
func (r *PreferenceResolver) ShouldSendEmail(ctx context.Context, userID string, typ Type) bool {
	policy := Classify(typ)
	if policy == EmailNever {
		return false
	}

	settings, err := r.settings.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrSettingsNotFound) {
			return emailsByDefault(typ)
		}
		r.logger.LogAttrs(ctx, slog.LevelWarn, "settings lookup failed, suppressing email",
			logger.UserID(userID),
			logger.EventType(string(typ)),
			logger.Error(err),
		)
		return false
	}

	if policy == EmailAlways {
		return true
	}
	return settings.Email && settings.CourseUpdates
}
