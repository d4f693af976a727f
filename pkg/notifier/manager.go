package notifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// CreateInput describes a notification to be created. UserID, Type, Title
// and Message are required; Priority defaults to PriorityNormal.
type CreateInput struct {
	UserID    string         `json:"user_id"`
	Type      Type           `json:"type"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Priority  Priority       `json:"priority,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	ActionURL string         `json:"action_url,omitempty"`
}

// Validate checks the required fields.
func (in CreateInput) Validate() error {
	switch {
	case in.UserID == "":
		return fmt.Errorf("%w: user_id is required", ErrValidation)
	case in.Type == "":
		return fmt.Errorf("%w: type is required", ErrValidation)
	case in.Title == "":
		return fmt.Errorf("%w: title is required", ErrValidation)
	case in.Message == "":
		return fmt.Errorf("%w: message is required", ErrValidation)
	}
	return nil
}

// Manager owns the persisted notification records: it creates them and
// applies the forward-only delivery/read transitions. It never touches the
// delivery channels.
type Manager struct {
	storage Storage
	logger  *slog.Logger
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithManagerLogger sets the logger for the Manager.
func WithManagerLogger(l *slog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = l
	}
}

// NewManager creates a notification record manager.
func NewManager(storage Storage, opts ...ManagerOption) *Manager {
	m := &Manager{
		storage: storage,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create validates the input, fills defaults and persists the record.
// Storage failures are surfaced wrapped in ErrPersistence: creation failure
// must be visible because the record is the source of truth.
func (m *Manager) Create(ctx context.Context, in CreateInput) (*Notification, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	priority := in.Priority
	if priority == "" {
		priority = PriorityNormal
	}

	notif := Notification{
		ID:        uuid.New().String(),
		UserID:    in.UserID,
		Type:      in.Type,
		Title:     in.Title,
		Message:   in.Message,
		Priority:  priority,
		Data:      in.Data,
		ActionURL: in.ActionURL,
		CreatedAt: time.Now(),
	}

	if err := m.storage.Create(ctx, notif); err != nil {
		return nil, errors.Join(ErrPersistence, err)
	}

	return &notif, nil
}

// Get retrieves a single notification owned by the user.
func (m *Manager) Get(ctx context.Context, userID, id string) (*Notification, error) {
	return m.storage.Get(ctx, userID, id)
}

// List returns a page of the user's notifications, newest first.
func (m *Manager) List(ctx context.Context, userID string, opts ListOptions) (*Page, error) {
	opts = opts.Normalize()
	notifs, total, err := m.storage.List(ctx, userID, opts)
	if err != nil {
		return nil, errors.Join(ErrPersistence, err)
	}
	return &Page{
		Notifications: notifs,
		Total:         total,
		Page:          opts.Page,
		Limit:         opts.Limit,
	}, nil
}

// MarkDelivered records that a live session existed at push time.
// Idempotent: marking twice is a no-op.
func (m *Manager) MarkDelivered(ctx context.Context, id string) error {
	return m.storage.MarkDelivered(ctx, id)
}

// MarkRead marks the given notifications as read for the user. IDs the user
// does not own are ignored.
func (m *Manager) MarkRead(ctx context.Context, userID string, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	return m.storage.MarkRead(ctx, userID, ids...)
}

// MarkAllRead marks every unread notification for the user.
func (m *Manager) MarkAllRead(ctx context.Context, userID string) error {
	return m.storage.MarkAllRead(ctx, userID)
}

// Delete removes a single notification owned by the user.
func (m *Manager) Delete(ctx context.Context, userID, id string) error {
	return m.storage.Delete(ctx, userID, id)
}

// DeleteAllRead removes every read notification for the user.
func (m *Manager) DeleteAllRead(ctx context.Context, userID string) error {
	return m.storage.DeleteAllRead(ctx, userID)
}

// CountUnread returns the user's unread count.
func (m *Manager) CountUnread(ctx context.Context, userID string) (int, error) {
	return m.storage.CountUnread(ctx, userID)
}

// Stats returns the user's aggregate notification counts.
func (m *Manager) Stats(ctx context.Context, userID string) (*Stats, error) {
	return m.storage.Stats(ctx, userID)
}
