package notifier

import "errors"

var (
	// ErrValidation is returned when a notification input is missing required fields.
	ErrValidation = errors.New("notifier: invalid notification input")

	// ErrPersistence wraps storage failures. Creation failures are always
	// surfaced with this sentinel because the persisted record is the source
	// of truth for the user-facing notification list.
	ErrPersistence = errors.New("notifier: storage operation failed")

	// ErrNotFound is returned when a notification does not exist or is not
	// owned by the requesting user.
	ErrNotFound = errors.New("notifier: notification not found")

	// ErrSettingsNotFound is returned when a user has no stored notification
	// settings. Callers fall back to DefaultSettings.
	ErrSettingsNotFound = errors.New("notifier: notification settings not found")
)
