package session

import (
	"context"
	"sync"
	"time"
)

type memoryItem struct {
	entry   Entry
	expires time.Time
}

// MemoryStore is an in-process Store. Expired entries are dropped lazily
// on access and by Sweep.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]memoryItem
	ttl   time.Duration
	now   func() time.Time
}

// NewMemoryStore creates a store whose entries live for ttl. A ttl of zero
// uses DefaultTTL.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		items: make(map[string]memoryItem),
		ttl:   ttl,
		now:   time.Now,
	}
}

func (s *MemoryStore) Put(_ context.Context, id string, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[id] = memoryItem{entry: e, expires: s.now().Add(s.ttl)}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (Entry, bool, error) {
	s.mu.RLock()
	item, ok := s.items[id]
	s.mu.RUnlock()
	if !ok {
		return Entry{}, false, nil
	}
	if !s.now().Before(item.expires) {
		s.mu.Lock()
		// Re-check: a concurrent Put may have refreshed it.
		if cur, ok := s.items[id]; ok && !s.now().Before(cur.expires) {
			delete(s.items, id)
		}
		s.mu.Unlock()
		return Entry{}, false, nil
	}
	return item.entry, true, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, id)
	return nil
}

// Sweep removes every expired entry and returns how many were removed.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	removed := 0
	for id, item := range s.items {
		if !now.Before(item.expires) {
			delete(s.items, id)
			removed++
		}
	}
	return removed
}

// Len is the number of entries held, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *MemoryStore) Close() error { return nil }
