package notifier

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweeper_Sweep(t *testing.T) {
	storage := NewMemoryStorage()
	now := time.Now()

	readAt := func(ts time.Time) func(*Notification) {
		return func(n *Notification) {
			n.Read = true
			n.ReadAt = &ts
		}
	}

	stale := seedNotification(t, storage, "user-1", readAt(now.Add(-31*24*time.Hour)))
	fresh := seedNotification(t, storage, "user-1", readAt(now.Add(-29*24*time.Hour)))
	unread := seedNotification(t, storage, "user-1", nil)

	sweeper := NewSweeper(storage)

	removed, err := sweeper.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	_, err = storage.Get(context.Background(), "user-1", stale.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = storage.Get(context.Background(), "user-1", fresh.ID)
	assert.NoError(t, err)
	_, err = storage.Get(context.Background(), "user-1", unread.ID)
	assert.NoError(t, err)
}

func TestSweeper_CustomRetention(t *testing.T) {
	storage := NewMemoryStorage()
	now := time.Now()
	readAt := now.Add(-2 * time.Hour)

	seedNotification(t, storage, "user-1", func(n *Notification) {
		n.Read = true
		n.ReadAt = &readAt
	})

	sweeper := NewSweeper(storage, WithRetention(time.Hour))

	removed, err := sweeper.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
}

type countingStorage struct {
	Storage
	sweeps atomic.Int64
}

func (s *countingStorage) DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	s.sweeps.Add(1)
	return 0, nil
}

func TestSweeper_StartRunsUntilCancelled(t *testing.T) {
	storage := &countingStorage{Storage: NewMemoryStorage()}
	sweeper := NewSweeper(storage, WithSweepInterval(10*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- sweeper.Start(ctx)
	}()

	require.Eventually(t, func() bool {
		return storage.sweeps.Load() >= 3
	}, time.Second, 5*time.Millisecond, "sweeper should run immediately and then on every tick")

	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after context cancellation")
	}
}

type failingSweepStorage struct {
	Storage
}

func (s *failingSweepStorage) DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, errors.New("disk on fire")
}

func TestSweeper_FailedCycleIsLoggedNotFatal(t *testing.T) {
	logs := &bytes.Buffer{}
	log := slog.New(slog.NewJSONHandler(logs, nil))

	sweeper := NewSweeper(&failingSweepStorage{Storage: NewMemoryStorage()},
		WithSweepInterval(10*time.Millisecond),
		WithSweeperLogger(log),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := sweeper.Start(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, logs.String(), "retention sweep failed")
	assert.Contains(t, logs.String(), "disk on fire")
}
