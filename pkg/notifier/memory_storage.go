package notifier

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStorage is an in-memory implementation of Storage.
// Suitable for development and testing.
type MemoryStorage struct {
	byUser map[string][]*Notification
	byID   map[string]*Notification
	mu     sync.RWMutex
}

// NewMemoryStorage creates a new in-memory notification storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		byUser: make(map[string][]*Notification),
		byID:   make(map[string]*Notification),
	}
}

func (s *MemoryStorage) Create(ctx context.Context, notif Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := notif
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	s.byUser[n.UserID] = append(s.byUser[n.UserID], &n)
	s.byID[n.ID] = &n
	return nil
}

func (s *MemoryStorage) Get(ctx context.Context, userID, id string) (*Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.byID[id]
	if !ok || n.UserID != userID {
		return nil, ErrNotFound
	}
	copied := *n
	return &copied, nil
}

func (s *MemoryStorage) List(ctx context.Context, userID string, opts ListOptions) ([]Notification, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	opts = opts.Normalize()

	var matched []*Notification
	for _, n := range s.byUser[userID] {
		if opts.Read != nil && n.Read != *opts.Read {
			continue
		}
		if opts.Type != "" && n.Type != opts.Type {
			continue
		}
		if opts.Priority != "" && n.Priority != opts.Priority {
			continue
		}
		matched = append(matched, n)
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	start := opts.Offset()
	if start > total {
		return []Notification{}, total, nil
	}
	end := start + opts.Limit
	if end > total {
		end = total
	}

	page := make([]Notification, 0, end-start)
	for _, n := range matched[start:end] {
		page = append(page, *n)
	}
	return page, total, nil
}

func (s *MemoryStorage) MarkDelivered(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	n.MarkDelivered()
	return nil
}

func (s *MemoryStorage) MarkRead(ctx context.Context, userID string, ids ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		if n, ok := s.byID[id]; ok && n.UserID == userID {
			n.MarkRead()
		}
	}
	return nil
}

func (s *MemoryStorage) MarkAllRead(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, n := range s.byUser[userID] {
		n.MarkRead()
	}
	return nil
}

func (s *MemoryStorage) Delete(ctx context.Context, userID string, ids ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		if n, ok := s.byID[id]; ok && n.UserID == userID {
			drop[id] = true
			delete(s.byID, id)
		}
	}
	s.byUser[userID] = filterOut(s.byUser[userID], func(n *Notification) bool {
		return drop[n.ID]
	})
	return nil
}

func (s *MemoryStorage) DeleteAllRead(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.byUser[userID] = filterOut(s.byUser[userID], func(n *Notification) bool {
		if n.Read {
			delete(s.byID, n.ID)
			return true
		}
		return false
	})
	return nil
}

func (s *MemoryStorage) DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for userID, notifs := range s.byUser {
		s.byUser[userID] = filterOut(notifs, func(n *Notification) bool {
			if n.Read && n.ReadAt != nil && n.ReadAt.Before(cutoff) {
				delete(s.byID, n.ID)
				removed++
				return true
			}
			return false
		})
	}
	return removed, nil
}

func (s *MemoryStorage) CountUnread(ctx context.Context, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, n := range s.byUser[userID] {
		if !n.Read {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStorage) Stats(ctx context.Context, userID string) (*Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &Stats{ByPriority: make(map[Priority]int)}
	for _, n := range s.byUser[userID] {
		stats.Total++
		if n.Delivered {
			stats.Delivered++
		}
		if !n.Read {
			stats.Unread++
			stats.ByPriority[n.Priority]++
		}
	}
	return stats, nil
}

func filterOut(notifs []*Notification, drop func(*Notification) bool) []*Notification {
	kept := notifs[:0]
	for _, n := range notifs {
		if !drop(n) {
			kept = append(kept, n)
		}
	}
	return kept
}

// MemorySettingsStore is an in-memory implementation of SettingsStore.
type MemorySettingsStore struct {
	settings map[string]Settings
	mu       sync.RWMutex
}

// NewMemorySettingsStore creates a new in-memory settings store.
func NewMemorySettingsStore() *MemorySettingsStore {
	return &MemorySettingsStore{settings: make(map[string]Settings)}
}

func (s *MemorySettingsStore) Get(ctx context.Context, userID string) (*Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	settings, ok := s.settings[userID]
	if !ok {
		return nil, ErrSettingsNotFound
	}
	return &settings, nil
}

func (s *MemorySettingsStore) Upsert(ctx context.Context, settings Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.settings[settings.UserID] = settings
	return nil
}
