// Package cache provides caching implementations for Arbiter resolved
// permission sets.
package cache

import (
	"context"
	"path"
	"sync"
	"time"

	"github.com/xraph/arbiter"
)

// Compile-time interface check.
var _ arbiter.Cache = (*Memory)(nil)

// Memory is an in-memory grouped cache with TTL-based expiration.
// Every key belongs to one invalidation group; evicting the group
// evicts all of its keys at once.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]*entry
	groups  map[string]map[string]struct{}
	maxSize int
}

type entry struct {
	value     []byte
	group     string
	expiresAt time.Time
}

// MemoryOption configures the memory cache.
type MemoryOption func(*Memory)

// WithMaxSize sets the maximum number of cache entries.
func WithMaxSize(n int) MemoryOption {
	return func(m *Memory) { m.maxSize = n }
}

// NewMemory creates a new in-memory cache.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		entries: make(map[string]*entry),
		groups:  make(map[string]map[string]struct{}),
		maxSize: 10000,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get returns the cached value for the key, if present and not expired.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if time.Now().After(e.expiresAt) {
		m.mu.Lock()
		m.remove(key)
		m.mu.Unlock()
		return nil, false, nil
	}
	return e.value, true, nil
}

// SetWithGroup stores the value under the key and registers the key in
// the invalidation group.
func (m *Memory) SetWithGroup(_ context.Context, key string, value []byte, group string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Evict if at capacity.
	if len(m.entries) >= m.maxSize {
		m.evictExpired()
		if len(m.entries) >= m.maxSize {
			// Evict one arbitrary entry.
			m.evictOne()
		}
	}

	if old, ok := m.entries[key]; ok && old.group != group {
		m.dropFromGroup(old.group, key)
	}
	m.entries[key] = &entry{
		value:     value,
		group:     group,
		expiresAt: time.Now().Add(ttl),
	}
	keys, ok := m.groups[group]
	if !ok {
		keys = make(map[string]struct{})
		m.groups[group] = keys
	}
	keys[key] = struct{}{}
	return nil
}

// InvalidateGroup evicts every key registered in the group.
func (m *Memory) InvalidateGroup(_ context.Context, group string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.groups[group] {
		delete(m.entries, key)
	}
	delete(m.groups, group)
	return nil
}

// InvalidatePattern evicts every key matching the glob pattern.
func (m *Memory) InvalidatePattern(_ context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.entries {
		ok, err := path.Match(pattern, key)
		if err != nil {
			return err
		}
		if ok {
			m.remove(key)
		}
	}
	return nil
}

// remove deletes the key and its group registration. Must hold write lock.
func (m *Memory) remove(key string) {
	e, ok := m.entries[key]
	if !ok {
		return
	}
	delete(m.entries, key)
	m.dropFromGroup(e.group, key)
}

// dropFromGroup unregisters the key from the group. Must hold write lock.
func (m *Memory) dropFromGroup(group, key string) {
	keys, ok := m.groups[group]
	if !ok {
		return
	}
	delete(keys, key)
	if len(keys) == 0 {
		delete(m.groups, group)
	}
}

// evictExpired removes all expired entries. Must hold write lock.
func (m *Memory) evictExpired() {
	now := time.Now()
	for k, e := range m.entries {
		if now.After(e.expiresAt) {
			m.remove(k)
		}
	}
}

// evictOne removes one arbitrary entry. Must hold write lock.
func (m *Memory) evictOne() {
	for k := range m.entries {
		m.remove(k)
		return
	}
}
