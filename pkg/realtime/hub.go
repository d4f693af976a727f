// Package realtime provides the in-process real-time transport: per-user
// broadcasters the web edge (WebSocket, SSE) subscribes to, backed by a
// presence registry. It implements the transport boundary the notification
// engine pushes through.
package realtime

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/coursekit/notify/pkg/broadcast"
	"github.com/coursekit/notify/pkg/cache"
	"github.com/coursekit/notify/pkg/presence"
)

// DefaultMaxUserStreams caps how many per-user broadcasters a hub keeps
// alive at once. A long-running instance serving churning users would
// otherwise accumulate one broadcaster per user it ever saw.
const DefaultMaxUserStreams = 10000

// Envelope is the wire shape of one pushed event.
type Envelope struct {
	Event   string `json:"event"`
	Payload any    `json:"payload"`
}

// Hub fans events out to a user's active sessions. Each user gets a
// dedicated broadcaster created lazily on first subscribe; sends to users
// without sessions are discarded, matching the engine's "fire regardless of
// presence" contract. Broadcasters live in an LRU bounded by
// DefaultMaxUserStreams; evicting one closes it, which ends that user's
// remaining sessions on this instance.
type Hub struct {
	registry       presence.Registry
	bufferSize     int
	maxUserStreams int

	streams *cache.LRU[string, *broadcast.MemoryBroadcaster[Envelope]]
	mu      sync.Mutex
}

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithBufferSize sets each session's subscription buffer.
func WithBufferSize(n int) HubOption {
	return func(h *Hub) {
		if n > 0 {
			h.bufferSize = n
		}
	}
}

// WithMaxUserStreams caps the number of per-user broadcasters kept alive.
func WithMaxUserStreams(n int) HubOption {
	return func(h *Hub) {
		if n > 0 {
			h.maxUserStreams = n
		}
	}
}

// NewHub creates a hub over the given presence registry.
func NewHub(registry presence.Registry, opts ...HubOption) *Hub {
	h := &Hub{
		registry:       registry,
		bufferSize:     32,
		maxUserStreams: DefaultMaxUserStreams,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.streams = cache.NewLRU[string, *broadcast.MemoryBroadcaster[Envelope]](h.maxUserStreams)
	h.streams.OnEvict(func(_ string, b *broadcast.MemoryBroadcaster[Envelope]) {
		_ = b.Close()
	})
	return h
}

// Session is one live subscription to a user's event stream.
type Session struct {
	ID         string
	UserID     string
	subscriber broadcast.Subscriber[Envelope]
	hub        *Hub
	closeOnce  sync.Once
}

// Receive returns the channel of events pushed to this session.
func (s *Session) Receive(ctx context.Context) <-chan broadcast.Message[Envelope] {
	return s.subscriber.Receive(ctx)
}

// Close ends the session and removes it from the presence registry.
func (s *Session) Close(ctx context.Context) error {
	var err error
	s.closeOnce.Do(func() {
		err = s.subscriber.Close()
		_ = s.hub.registry.Untrack(ctx, s.UserID, s.ID)
	})
	return err
}

// Subscribe opens a session for the user and registers it as present.
// Cancelling the context closes the underlying subscription; the caller
// should still Close the session to untrack presence promptly.
func (h *Hub) Subscribe(ctx context.Context, userID string) (*Session, error) {
	b := h.broadcaster(userID)

	session := &Session{
		ID:         uuid.New().String(),
		UserID:     userID,
		subscriber: b.Subscribe(ctx),
		hub:        h,
	}
	if err := h.registry.Track(ctx, userID, session.ID); err != nil {
		_ = session.subscriber.Close()
		return nil, err
	}
	return session, nil
}

// Heartbeat refreshes a session's presence TTL. Transports call it on every
// client ping.
func (h *Hub) Heartbeat(ctx context.Context, session *Session) error {
	return h.registry.Track(ctx, session.UserID, session.ID)
}

// SendToUser pushes an event to every active session of the user. The
// payload is discarded when no session exists.
func (h *Hub) SendToUser(ctx context.Context, userID, event string, payload any) error {
	b, ok := h.streams.Get(userID)
	if !ok {
		// No sessions were opened for this user on this instance recently.
		return nil
	}
	return b.Broadcast(ctx, broadcast.Message[Envelope]{Data: Envelope{Event: event, Payload: payload}})
}

// IsUserOnline reports whether the user has an active session anywhere,
// per the presence registry.
func (h *Hub) IsUserOnline(ctx context.Context, userID string) (bool, error) {
	return h.registry.IsOnline(ctx, userID)
}

// Close shuts down every user broadcaster.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.streams.Clear()
	return nil
}

// broadcaster returns the user's broadcaster, creating it on first use. The
// hub lock covers the get-then-put so concurrent subscribers for the same
// user share one broadcaster.
func (h *Hub) broadcaster(userID string) *broadcast.MemoryBroadcaster[Envelope] {
	h.mu.Lock()
	defer h.mu.Unlock()

	b, ok := h.streams.Get(userID)
	if !ok {
		b = broadcast.NewMemoryBroadcaster[Envelope](h.bufferSize)
		h.streams.Put(userID, b)
	}
	return b
}
