// Package logger provides a configured slog factory plus the attribute
// helpers shared across the notification engine.
//
// Defaults are production-safe (JSON at INFO); WithDevelopment switches to
// human-readable text at DEBUG. The attribute helpers (UserID,
// NotificationID, Channel, EventType) keep log keys consistent across
// components so delivery traces can be correlated per user and per record.
package logger
