package cache

import (
	"context"
	"errors"
	"path"
	"sync"
	"time"
)

var ErrMiss = errors.New("cache miss")

// Entry is one stored payload and the moment it was fetched.
type Entry struct {
	Data     []byte    `json:"data"`
	StoredAt time.Time `json:"stored_at"`
}

// Store holds serialized query results. Patterns use glob syntax, where
// '*' matches any run of characters within a key.
type Store interface {
	Get(ctx context.Context, key string) (Entry, error)
	Set(ctx context.Context, key string, entry Entry) error
	DeleteMatching(ctx context.Context, pattern string) (int, error)
	Ping(ctx context.Context) error
}

// MemoryStore keeps entries in process. Entries older than the retention
// window are dropped on access.
type MemoryStore struct {
	mu        sync.RWMutex
	entries   map[string]Entry
	retention time.Duration
	now       func() time.Time
}

func NewMemoryStore(retention time.Duration) *MemoryStore {
	return &MemoryStore{
		entries:   make(map[string]Entry),
		retention: retention,
		now:       time.Now,
	}
}

func (s *MemoryStore) expired(e Entry) bool {
	return s.retention > 0 && s.now().Sub(e.StoredAt) > s.retention
}

func (s *MemoryStore) Get(_ context.Context, key string) (Entry, error) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return Entry{}, ErrMiss
	}
	if s.expired(e) {
		s.mu.Lock()
		delete(s.entries, key)
		s.mu.Unlock()
		return Entry{}, ErrMiss
	}
	return e, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = entry
	return nil
}

func (s *MemoryStore) DeleteMatching(_ context.Context, pattern string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for key, e := range s.entries {
		matched, err := path.Match(pattern, key)
		if err != nil {
			return deleted, err
		}
		if matched {
			delete(s.entries, key)
			deleted++
			continue
		}
		if s.expired(e) {
			delete(s.entries, key)
		}
	}
	return deleted, nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
