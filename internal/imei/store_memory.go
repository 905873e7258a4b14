package imei

import (
	"context"
	"sync"
	"time"

	"drs/pkg/platform/sentinel"
)

// InMemoryStore keeps IMEI approval records in a map. Used by unit tests and
// single-node development runs.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[string]Record)}
}

func (s *InMemoryStore) Upsert(_ context.Context, record Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = time.Now()
	}
	s.records[record.Normalized] = record
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, normalized string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[normalized]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &record, nil
}

func (s *InMemoryStore) FilterByStatus(_ context.Context, normalized []string, status ApprovalStatus) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []string
	for _, n := range normalized {
		if record, ok := s.records[n]; ok && record.Status == status {
			matched = append(matched, n)
		}
	}
	return matched, nil
}

func (s *InMemoryStore) UpdateStatus(_ context.Context, normalized []string, status ApprovalStatus, delta DeltaStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for _, n := range normalized {
		record, ok := s.records[n]
		if !ok {
			continue
		}
		record.Status = status
		record.Delta = delta
		record.UpdatedAt = now
		s.records[n] = record
	}
	return nil
}
