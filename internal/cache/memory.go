package cache

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

type MemoryProvider struct {
	mu    sync.Mutex
	cache *lru.Cache[string, item]
	now   func() time.Time
}

type item struct {
	value     string
	expiresAt time.Time
}

const defaultMemoryCacheSize = 10_000

func NewMemoryProvider() (*MemoryProvider, error) {
	c, err := lru.New[string, item](defaultMemoryCacheSize)
	if err != nil {
		return nil, err
	}
	return &MemoryProvider{cache: c, now: time.Now}, nil
}

func (m *MemoryProvider) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cached, ok := m.live(key)
	if !ok {
		return "", ErrNotFound
	}
	return cached.value, nil
}

func (m *MemoryProvider) Set(_ context.Context, key string, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cache.Add(key, item{value: value, expiresAt: m.now().Add(ttl)})
	return nil
}

func (m *MemoryProvider) SetIfAbsent(_ context.Context, key string, value string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.live(key); ok {
		return false, nil
	}
	m.cache.Add(key, item{value: value, expiresAt: m.now().Add(ttl)})
	return true, nil
}

func (m *MemoryProvider) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cache.Remove(key)
	return nil
}

func (m *MemoryProvider) Close() error {
	return nil
}

// live must be called with mu held.
func (m *MemoryProvider) live(key string) (item, bool) {
	cached, ok := m.cache.Get(key)
	if !ok {
		return item{}, false
	}
	if !m.now().Before(cached.expiresAt) {
		m.cache.Remove(key)
		return item{}, false
	}
	return cached, true
}
