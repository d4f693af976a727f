package notifier

import (
	"context"
	"log/slog"
	"time"

	"github.com/coursekit/notify/pkg/logger"
)

const (
	// DefaultSweepInterval is how often the retention sweeper runs.
	DefaultSweepInterval = 24 * time.Hour

	// DefaultRetention is how long read notifications are kept after being
	// read.
	DefaultRetention = 30 * 24 * time.Hour
)

// Sweeper periodically deletes notifications that have been read and are
// older than the retention window. It is an explicitly owned background
// task: the owner starts it with Start and stops it by cancelling the
// context.
type Sweeper struct {
	storage   Storage
	interval  time.Duration
	retention time.Duration
	logger    *slog.Logger
}

// SweeperOption configures a Sweeper.
type SweeperOption func(*Sweeper)

// WithSweepInterval overrides the sweep interval.
func WithSweepInterval(d time.Duration) SweeperOption {
	return func(s *Sweeper) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithRetention overrides the retention window for read notifications.
func WithRetention(d time.Duration) SweeperOption {
	return func(s *Sweeper) {
		if d > 0 {
			s.retention = d
		}
	}
}

// WithSweeperLogger sets the logger for the Sweeper.
func WithSweeperLogger(l *slog.Logger) SweeperOption {
	return func(s *Sweeper) {
		s.logger = l
	}
}

// NewSweeper creates a retention sweeper over the given storage.
func NewSweeper(storage Storage, opts ...SweeperOption) *Sweeper {
	s := &Sweeper{
		storage:   storage,
		interval:  DefaultSweepInterval,
		retention: DefaultRetention,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start runs the sweep loop until the context is cancelled. One sweep runs
// immediately on start, then one per interval. A failed cycle is logged and
// the next scheduled cycle proceeds normally; cycles are not retried.
func (s *Sweeper) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.LogAttrs(ctx, slog.LevelInfo, "retention sweeper shutting down",
				logger.Component("sweeper"),
			)
			return ctx.Err()
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// Sweep runs a single retention cycle immediately. Exposed for operational
// tooling; Start uses it internally.
func (s *Sweeper) Sweep(ctx context.Context) (int64, error) {
	cutoff := time.Now().Add(-s.retention)
	return s.storage.DeleteReadBefore(ctx, cutoff)
}

func (s *Sweeper) sweep(ctx context.Context) {
	removed, err := s.Sweep(ctx)
	if err != nil {
		s.logger.LogAttrs(ctx, slog.LevelError, "retention sweep failed",
			logger.Component("sweeper"),
			logger.Error(err),
		)
		return
	}
	if removed > 0 {
		s.logger.LogAttrs(ctx, slog.LevelInfo, "retention sweep removed read notifications",
			logger.Component("sweeper"),
			logger.Count(int(removed)),
		)
	}
}
