// Package identity resolves the current user from an opaque principal,
// caching principal-to-id lookups in an injected TTL cache.
package identity

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrCacheMiss reports that a key is absent or expired.
var ErrCacheMiss = errors.New("cache miss")

// Cache is a key-value store with per-entry expiry.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Expire(ctx context.Context, key string) error
}

type memoryItem struct {
	value   string
	expires time.Time // zero = no ttl
}

// MemoryCache is an in-process Cache. The clock is injectable so expiry
// can be tested without sleeping.
type MemoryCache struct {
	mu   sync.Mutex
	data map[string]memoryItem
	now  func() time.Time
}

// NewMemoryCache returns an empty MemoryCache. A nil clock uses time.Now.
func NewMemoryCache(now func() time.Time) *MemoryCache {
	if now == nil {
		now = time.Now
	}
	return &MemoryCache{data: make(map[string]memoryItem), now: now}
}

func (m *MemoryCache) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.data[key]
	if !ok {
		return "", ErrCacheMiss
	}
	if !item.expires.IsZero() && !m.now().Before(item.expires) {
		delete(m.data, key)
		return "", ErrCacheMiss
	}
	return item.value, nil
}

func (m *MemoryCache) Set(_ context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var exp time.Time
	if ttl > 0 {
		exp = m.now().Add(ttl)
	}
	m.data[key] = memoryItem{value: value, expires: exp}
	return nil
}

func (m *MemoryCache) Expire(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}
