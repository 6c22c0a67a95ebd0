package extractcache

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/signupassist/provider-pipeline/internal/program"
)

type memoryEntry struct {
	items     []program.Program
	expiresAt time.Time
}

// InMemoryStore is the default extraction cache: a mutex-guarded map with
// per-entry expiry. Expiry is lazy on read plus an eager sweep via
// InvalidateExpired. Nothing survives process restart; durability, when
// needed, is the Redis store's job.
type InMemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// NewInMemoryStoreWithClock injects the clock so TTL behavior is
// deterministic under test.
func NewInMemoryStoreWithClock(now func() time.Time) *InMemoryStore {
	store := NewInMemoryStore()
	if now != nil {
		store.now = now
	}
	return store
}

func (s *InMemoryStore) Get(_ context.Context, key string) ([]program.Program, bool, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, false, errors.New("cache key is required")
	}

	now := s.now().UTC()
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		return nil, false, nil
	}
	if now.After(entry.expiresAt) {
		delete(s.entries, key)
		return nil, false, nil
	}
	return cloneItems(entry.items), true, nil
}

func (s *InMemoryStore) Set(_ context.Context, key string, items []program.Program, ttl time.Duration) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("cache key is required")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	now := s.now().UTC()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = memoryEntry{
		items:     cloneItems(items),
		expiresAt: now.Add(ttl),
	}
	return nil
}

func (s *InMemoryStore) InvalidateExpired(_ context.Context) (int, error) {
	now := s.now().UTC()
	s.mu.Lock()
	defer s.mu.Unlock()

	purged := 0
	for key, entry := range s.entries {
		if now.After(entry.expiresAt) {
			delete(s.entries, key)
			purged++
		}
	}
	return purged, nil
}

func (s *InMemoryStore) Clear(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cleared := len(s.entries)
	s.entries = make(map[string]memoryEntry)
	return cleared, nil
}

// Len reports live entries without disturbing expiry; used by the ops
// surface and tests.
func (s *InMemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func cloneItems(items []program.Program) []program.Program {
	return append([]program.Program(nil), items...)
}
