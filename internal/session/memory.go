package session

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Store used in tests and when no Redis is
// configured. Values do not survive a restart.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]map[string][]byte
}

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]map[string][]byte),
	}
}

func (s *MemoryStore) Get(ctx context.Context, sessionID, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.sessions[sessionID][key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

func (s *MemoryStore) Set(ctx context.Context, sessionID, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sessions[sessionID] == nil {
		s.sessions[sessionID] = make(map[string][]byte)
	}
	stored := make([]byte, len(value))
	copy(stored, value)
	s.sessions[sessionID][key] = stored
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, sessionID string, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range keys {
		delete(s.sessions[sessionID], key)
	}
	return nil
}
