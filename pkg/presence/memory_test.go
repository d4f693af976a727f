package presence_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coursekit/notify/pkg/presence"
)

func TestMemoryRegistry_TrackUntrack(t *testing.T) {
	registry := presence.NewMemoryRegistry(0)
	ctx := context.Background()

	online, err := registry.IsOnline(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, online)

	require.NoError(t, registry.Track(ctx, "user-1", "session-a"))

	online, err = registry.IsOnline(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, online)

	require.NoError(t, registry.Untrack(ctx, "user-1", "session-a"))

	online, err = registry.IsOnline(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, online)
}

func TestMemoryRegistry_MultipleSessions(t *testing.T) {
	registry := presence.NewMemoryRegistry(0)
	ctx := context.Background()

	require.NoError(t, registry.Track(ctx, "user-1", "laptop"))
	require.NoError(t, registry.Track(ctx, "user-1", "phone"))

	// One session going away leaves the user online.
	require.NoError(t, registry.Untrack(ctx, "user-1", "laptop"))

	online, err := registry.IsOnline(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, online)
}

func TestMemoryRegistry_SessionsExpire(t *testing.T) {
	registry := presence.NewMemoryRegistry(20 * time.Millisecond)
	ctx := context.Background()

	require.NoError(t, registry.Track(ctx, "user-1", "session-a"))

	assert.Eventually(t, func() bool {
		online, err := registry.IsOnline(ctx, "user-1")
		return err == nil && !online
	}, time.Second, 5*time.Millisecond)
}

func TestMemoryRegistry_HeartbeatRefreshesTTL(t *testing.T) {
	registry := presence.NewMemoryRegistry(40 * time.Millisecond)
	ctx := context.Background()

	require.NoError(t, registry.Track(ctx, "user-1", "session-a"))
	time.Sleep(25 * time.Millisecond)
	require.NoError(t, registry.Track(ctx, "user-1", "session-a"))
	time.Sleep(25 * time.Millisecond)

	online, err := registry.IsOnline(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, online, "refreshed session must outlive the original TTL")
}

func TestMemoryRegistry_UntrackUnknownSession(t *testing.T) {
	registry := presence.NewMemoryRegistry(0)

	assert.NoError(t, registry.Untrack(context.Background(), "ghost", "nope"))
}
