package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// MemoryStore keeps session values in process memory
type MemoryStore struct {
	mu       sync.RWMutex
	ttl      time.Duration
	sessions map[uuid.UUID]map[string]memoryEntry
	now      func() time.Time
}

// NewMemoryStore creates a memory store whose values expire after ttl
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:      ttl,
		sessions: make(map[uuid.UUID]map[string]memoryEntry),
		now:      time.Now,
	}
}

// Get implements Store
func (s *MemoryStore) Get(ctx context.Context, sessionID uuid.UUID, key string, dest interface{}) (bool, error) {
	s.mu.RLock()
	entry, ok := s.sessions[sessionID][key]
	s.mu.RUnlock()

	if !ok || s.now().After(entry.expiresAt) {
		return false, nil
	}
	return true, decode(entry.data, dest)
}

// Set implements Store
func (s *MemoryStore) Set(ctx context.Context, sessionID uuid.UUID, key string, value interface{}) error {
	data, err := encode(value)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	values, ok := s.sessions[sessionID]
	if !ok {
		values = make(map[string]memoryEntry)
		s.sessions[sessionID] = values
	}
	values[key] = memoryEntry{data: data, expiresAt: s.now().Add(s.ttl)}
	return nil
}

// Delete implements Store
func (s *MemoryStore) Delete(ctx context.Context, sessionID uuid.UUID, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if values, ok := s.sessions[sessionID]; ok {
		delete(values, key)
		if len(values) == 0 {
			delete(s.sessions, sessionID)
		}
	}
	return nil
}

// Clear implements Store
func (s *MemoryStore) Clear(ctx context.Context, sessionID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, sessionID)
	return nil
}

// DeleteExpired removes expired values and returns how many were dropped
func (s *MemoryStore) DeleteExpired(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var removed int64
	for id, values := range s.sessions {
		for key, entry := range values {
			if now.After(entry.expiresAt) {
				delete(values, key)
				removed++
			}
		}
		if len(values) == 0 {
			delete(s.sessions, id)
		}
	}
	return removed, nil
}
