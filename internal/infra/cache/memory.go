package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a thread-safe in-memory implementation of Store.
//
// Entries expire lazily: an expired entry is removed the next time it is
// read, and Cleanup sweeps the rest. Memory is bounded by a maximum key
// count with LRU (Least Recently Used) eviction when capacity is
// reached, so a long-lived worker cannot grow without limit.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	maxKeys int
	clock   Clock

	// LRU tracking
	lru *lruList
}

// memoryEntry holds one cached value.
type memoryEntry struct {
	value     []byte
	expiresAt time.Time // zero means no expiry
}

// expired reports whether the entry has passed its expiry.
func (e *memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// lruList maintains a doubly-linked list of keys ordered by last access time.
type lruList struct {
	head *lruNode
	tail *lruNode
	keys map[string]*lruNode
}

// lruNode represents a node in the LRU list.
type lruNode struct {
	key  string
	prev *lruNode
	next *lruNode
}

// MemoryStoreConfig holds configuration for MemoryStore.
type MemoryStoreConfig struct {
	// MaxKeys is the maximum number of keys to store in memory.
	// When this limit is reached, the least recently used keys are evicted.
	// Default: 10000
	MaxKeys int

	// Clock provides time operations for testing.
	// Default: SystemClock
	Clock Clock
}

// DefaultMemoryStoreConfig returns the default configuration.
func DefaultMemoryStoreConfig() MemoryStoreConfig {
	return MemoryStoreConfig{
		MaxKeys: 10000,
		Clock:   &SystemClock{},
	}
}

// NewMemoryStore creates a new in-memory store with the given configuration.
func NewMemoryStore(config MemoryStoreConfig) *MemoryStore {
	if config.MaxKeys <= 0 {
		config.MaxKeys = 10000
	}
	if config.Clock == nil {
		config.Clock = &SystemClock{}
	}

	return &MemoryStore{
		entries: make(map[string]*memoryEntry),
		maxKeys: config.MaxKeys,
		clock:   config.Clock,
		lru:     newLRUList(),
	}
}

// newLRUList creates a new LRU list.
func newLRUList() *lruList {
	return &lruList{
		keys: make(map[string]*lruNode),
	}
}

// Get returns the value stored under key, or ErrMiss. Reading a key
// counts as an access for LRU purposes; an expired entry is removed and
// reported as a miss.
func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.entries[key]
	if !exists {
		return nil, ErrMiss
	}

	if entry.expired(s.clock.Now()) {
		delete(s.entries, key)
		s.lru.remove(key)
		return nil, ErrMiss
	}

	s.lru.touch(key)

	// Copy so callers cannot mutate the stored value.
	value := make([]byte, len(entry.value))
	copy(value, entry.value)
	return value, nil
}

// Set stores value under key, evicting least recently used keys when the
// store is at capacity. A non-positive ttl stores the entry without
// expiry.
func (s *MemoryStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Check if we need to evict before adding a new key
	if len(s.entries) >= s.maxKeys {
		if _, exists := s.entries[key]; !exists {
			s.evictLRU()
		}
	}

	stored := make([]byte, len(value))
	copy(stored, value)

	entry := &memoryEntry{value: stored}
	if ttl > 0 {
		entry.expiresAt = s.clock.Now().Add(ttl)
	}

	s.entries[key] = entry
	s.lru.touch(key)

	return nil
}

// Delete removes key. Deleting an absent key is not an error.
func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)
	s.lru.remove(key)

	return nil
}

// Close releases nothing for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}

// Cleanup removes every expired entry. Call it periodically from a
// maintenance loop; Get already removes expired entries it touches, so
// this only matters for keys that are written once and never read again.
func (s *MemoryStore) Cleanup(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	for key, entry := range s.entries {
		if entry.expired(now) {
			delete(s.entries, key)
			s.lru.remove(key)
		}
	}

	return nil
}

// Len returns the number of keys currently in the store, including
// entries that have expired but not yet been swept.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.entries)
}

// evictLRU evicts the least recently used keys when the key limit is
// reached. It evicts 10% of capacity at once to avoid evicting on every
// subsequent write.
//
// This method must be called while holding the lock.
func (s *MemoryStore) evictLRU() {
	evictCount := s.maxKeys / 10
	if evictCount < 1 {
		evictCount = 1
	}

	evicted := 0
	for evicted < evictCount && s.lru.tail != nil {
		key := s.lru.tail.key
		delete(s.entries, key)
		s.lru.remove(key)
		evicted++
	}
}

// touch moves a key to the most recently used position, adding it if
// absent.
//
// This method must be called while holding the lock.
func (l *lruList) touch(key string) {
	if _, exists := l.keys[key]; exists {
		l.remove(key)
	}

	node := &lruNode{
		key:  key,
		next: l.head,
	}

	if l.head != nil {
		l.head.prev = node
	}
	l.head = node

	if l.tail == nil {
		l.tail = node
	}

	l.keys[key] = node
}

// remove removes a key from the LRU list.
//
// This method must be called while holding the lock.
func (l *lruList) remove(key string) {
	node, exists := l.keys[key]
	if !exists {
		return
	}

	if node.prev != nil {
		node.prev.next = node.next
	} else {
		l.head = node.next
	}

	if node.next != nil {
		node.next.prev = node.prev
	} else {
		l.tail = node.prev
	}

	delete(l.keys, key)
}
