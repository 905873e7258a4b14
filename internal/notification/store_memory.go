package notification

import (
	"context"
	"sync"

	"github.com/google/uuid"

	id "drs/pkg/domain"
	"drs/pkg/platform/sentinel"
)

// InMemoryStore keeps notifications in memory for tests and local runs.
type InMemoryStore struct {
	mu     sync.RWMutex
	byUser map[id.UserID][]Notification
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{byUser: make(map[id.UserID][]Notification)}
}

func (s *InMemoryStore) Append(_ context.Context, n Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byUser[n.UserID] = append(s.byUser[n.UserID], n)
	return nil
}

func (s *InMemoryStore) ListByUser(_ context.Context, userID id.UserID) ([]Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Notification, len(s.byUser[userID]))
	copy(out, s.byUser[userID])
	return out, nil
}

func (s *InMemoryStore) MarkRead(_ context.Context, notificationID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for userID, list := range s.byUser {
		for i := range list {
			if list[i].ID == notificationID {
				s.byUser[userID][i].Read = true
				return nil
			}
		}
	}
	return sentinel.ErrNotFound
}
