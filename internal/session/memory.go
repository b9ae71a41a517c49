package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps sessions in process. Sessions do not survive a restart.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]memoryEntry
	now      func() time.Time
}

type memoryEntry struct {
	data      *Data
	expiresAt time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]memoryEntry),
		now:      time.Now,
	}
}

func (s *MemoryStore) Get(_ context.Context, key string) (*Data, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.cleanupExpiredLocked(now)

	entry, ok := s.sessions[key]
	if !ok {
		return nil, false
	}
	return cloneData(entry.data), true
}

func (s *MemoryStore) Set(_ context.Context, key string, data *Data, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.cleanupExpiredLocked(now)
	s.sessions[key] = memoryEntry{data: cloneData(data), expiresAt: now.Add(ttl)}
}

func (s *MemoryStore) Delete(_ context.Context, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, key)
}

func (s *MemoryStore) cleanupExpiredLocked(now time.Time) {
	for key, entry := range s.sessions {
		if !now.Before(entry.expiresAt) {
			delete(s.sessions, key)
		}
	}
}

func (s *MemoryStore) Close() error {
	return nil
}
