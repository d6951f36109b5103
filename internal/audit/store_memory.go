package audit

import (
	"context"
	"sync"
)

// InMemoryStore keeps audit events per fingerprint, for tests and local use.
type InMemoryStore struct {
	mu     sync.RWMutex
	events map[string][]Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{events: make(map[string][]Event)}
}

func (s *InMemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.Fingerprint] = append(s.events[event.Fingerprint], event)
	return nil
}

func (s *InMemoryStore) ListByFingerprint(_ context.Context, fingerprint string) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Event{}, s.events[fingerprint]...), nil
}

var _ Store = (*InMemoryStore)(nil)
