package session

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	session   Session
	expiresAt time.Time
}

// MemoryStore is a process-local Store for tests and single-instance runs.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry), now: time.Now}
}

func (m *MemoryStore) Load(_ context.Context, id string) (*Session, error) {
	m.mu.RLock()
	e, ok := m.entries[id]
	m.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	if m.now().After(e.expiresAt) {
		m.mu.Lock()
		// a concurrent Save may have refreshed the entry
		if cur, ok := m.entries[id]; ok && m.now().After(cur.expiresAt) {
			delete(m.entries, id)
		}
		m.mu.Unlock()
		return nil, nil
	}
	s := e.session
	s.Flashes = append([]Flash(nil), e.session.Flashes...)
	return &s, nil
}

func (m *MemoryStore) Save(_ context.Context, s *Session, ttl time.Duration) error {
	copied := *s
	copied.Flashes = append([]Flash(nil), s.Flashes...)
	copied.dirty = false

	m.mu.Lock()
	m.entries[s.ID] = memoryEntry{session: copied, expiresAt: m.now().Add(ttl)}
	m.mu.Unlock()
	s.dirty = false
	return nil
}
