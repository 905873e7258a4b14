package audit

import (
	"context"
	"sync"

	id "drs/pkg/domain"
)

type InMemoryStore struct {
	mu     sync.RWMutex
	events map[id.TrackingID][]Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{events: make(map[id.TrackingID][]Event)}
}

func (s *InMemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.TrackingID] = append(s.events[event.TrackingID], event)
	return nil
}

func (s *InMemoryStore) ListByTracking(_ context.Context, trackingID id.TrackingID) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Event{}, s.events[trackingID]...), nil
}
