package cache

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// entry represents a cached value with expiration time.
type entry struct {
	value      []byte
	expiration time.Time
}

func (e *entry) isExpired(now time.Time) bool {
	return now.After(e.expiration)
}

// DefaultMemoryMaxBytes bounds the payload bytes a MemoryStore keeps.
const DefaultMemoryMaxBytes = 256 << 20

// MemoryStore is an in-process Store used when Redis is disabled. It gives
// no sharing across processes. Entries expire by TTL, and the least recently
// used ones are evicted once the stored bytes exceed the cap.
type MemoryStore struct {
	mu       sync.Mutex
	entries  *simplelru.LRU[string, *entry]
	maxBytes int64
	used     int64
	now      func() time.Time
	stop     chan struct{}
	once     sync.Once
}

type MemoryOption func(*MemoryStore)

// WithMaxBytes caps the total size of stored values.
func WithMaxBytes(n int64) MemoryOption {
	return func(s *MemoryStore) {
		if n > 0 {
			s.maxBytes = n
		}
	}
}

// NewMemoryStore creates an in-memory store. A positive cleanupInterval
// starts a janitor goroutine that removes expired entries; stop it with Close.
func NewMemoryStore(cleanupInterval time.Duration, opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		maxBytes: DefaultMemoryMaxBytes,
		now:      time.Now,
		stop:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	// Only the byte cap bounds the store, so the entry count is unlimited.
	s.entries, _ = simplelru.NewLRU[string, *entry](math.MaxInt, func(_ string, e *entry) {
		s.used -= int64(len(e.value))
	})
	if cleanupInterval > 0 {
		go s.janitor(cleanupInterval)
	}
	return s
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries.Get(key)
	if !ok {
		return nil, ErrMiss
	}
	if e.isExpired(s.now()) {
		s.entries.Remove(key)
		return nil, ErrMiss
	}
	return append([]byte(nil), e.value...), nil
}

// SetEx stores value under key. A value larger than the cap is not stored.
func (s *MemoryStore) SetEx(_ context.Context, key string, ttl time.Duration, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries.Remove(key)
	size := int64(len(value))
	if size > s.maxBytes {
		return nil
	}

	s.entries.Add(key, &entry{
		value:      append([]byte(nil), value...),
		expiration: s.now().Add(ttl),
	})
	s.used += size
	for s.used > s.maxBytes {
		if _, _, ok := s.entries.RemoveOldest(); !ok {
			break
		}
	}
	return nil
}

func (s *MemoryStore) IsOpen() bool                  { return true }
func (s *MemoryStore) Connect(context.Context) error { return nil }

// Close stops the janitor.
func (s *MemoryStore) Close() error {
	s.once.Do(func() { close(s.stop) })
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entries.Len()
}

// Bytes returns the total size of stored values.
func (s *MemoryStore) Bytes() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.used
}

// deleteExpired removes all expired entries and returns how many went.
func (s *MemoryStore) deleteExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	count := 0
	for _, key := range s.entries.Keys() {
		if e, ok := s.entries.Peek(key); ok && e.isExpired(now) {
			s.entries.Remove(key)
			count++
		}
	}
	return count
}

func (s *MemoryStore) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.deleteExpired()
		case <-s.stop:
			return
		}
	}
}
