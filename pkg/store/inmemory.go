package store

import (
	"context"
	"sync"
)

// InMemoryStore is a process-local MemoryStore with the same versioning
// rules as the database-backed one. Used by the CLI offline mode and tests.
type InMemoryStore struct {
	mu       sync.Mutex
	sessions map[Key]*Session
}

var _ MemoryStore = &InMemoryStore{}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[Key]*Session)}
}

func (m *InMemoryStore) Load(_ context.Context, key Key) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[key]; ok {
		return s.Clone(), nil
	}
	return NewSession(key), nil
}

func (m *InMemoryStore) Save(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var current int64
	if stored, ok := m.sessions[s.Key]; ok {
		current = stored.Version
	}
	if current != s.Version {
		return ErrVersionConflict
	}
	s.Version++
	m.sessions[s.Key] = s.Clone()
	return nil
}

func (m *InMemoryStore) Delete(_ context.Context, key Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, key)
	return nil
}
