package review

import (
	"context"
	"sync"

	id "drs/pkg/domain"
)

// InMemoryStore keeps the comment ledger in memory for tests and local runs.
type InMemoryStore struct {
	mu     sync.RWMutex
	nextID int64
	byCase map[id.CaseID][]Comment
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{byCase: make(map[id.CaseID][]Comment)}
}

func (s *InMemoryStore) Append(_ context.Context, c Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	c.ID = s.nextID
	s.byCase[c.CaseID] = append(s.byCase[c.CaseID], c)
	return nil
}

func (s *InMemoryStore) Current(_ context.Context, caseID id.CaseID) (map[Section]Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[Section]Comment)
	// Later appends overwrite earlier ones, so the map ends up holding the
	// most recent entry per section.
	for _, c := range s.byCase[caseID] {
		out[c.Section] = c
	}
	return out, nil
}

func (s *InMemoryStore) ListByCase(_ context.Context, caseID id.CaseID) ([]Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Comment{}, s.byCase[caseID]...), nil
}
