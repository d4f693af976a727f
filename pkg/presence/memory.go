package presence

import (
	"context"
	"sync"
	"time"
)

// MemoryRegistry is an in-process Registry for single-instance deployments
// and tests. Sessions expire lazily on read when their TTL lapses.
type MemoryRegistry struct {
	ttl      time.Duration
	sessions map[string]map[string]time.Time // userID -> sessionID -> expiry
	mu       sync.RWMutex
}

// NewMemoryRegistry creates an in-memory presence registry. A non-positive
// ttl falls back to DefaultSessionTTL.
func NewMemoryRegistry(ttl time.Duration) *MemoryRegistry {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &MemoryRegistry{
		ttl:      ttl,
		sessions: make(map[string]map[string]time.Time),
	}
}

func (r *MemoryRegistry) Track(ctx context.Context, userID, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sessions[userID] == nil {
		r.sessions[userID] = make(map[string]time.Time)
	}
	r.sessions[userID][sessionID] = time.Now().Add(r.ttl)
	return nil
}

func (r *MemoryRegistry) Untrack(ctx context.Context, userID, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if sessions := r.sessions[userID]; sessions != nil {
		delete(sessions, sessionID)
		if len(sessions) == 0 {
			delete(r.sessions, userID)
		}
	}
	return nil
}

func (r *MemoryRegistry) IsOnline(ctx context.Context, userID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sessions := r.sessions[userID]
	now := time.Now()
	for sessionID, expiry := range sessions {
		if expiry.After(now) {
			return true, nil
		}
		delete(sessions, sessionID)
	}
	if len(sessions) == 0 {
		delete(r.sessions, userID)
	}
	return false, nil
}
