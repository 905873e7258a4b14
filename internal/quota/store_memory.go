package quota

import (
	"context"
	"sync"
	"time"

	id "drs/pkg/domain"
	"drs/pkg/platform/sentinel"
)

// DefaultRegQuota and DefaultDeregQuota are the allowances granted to users
// seen for the first time by the in-memory store.
const (
	DefaultRegQuota   = 500
	DefaultDeregQuota = 500
)

type InMemoryStore struct {
	mu     sync.Mutex
	quotas map[id.UserID]*DeviceQuota
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{quotas: make(map[id.UserID]*DeviceQuota)}
}

func (s *InMemoryStore) Get(_ context.Context, userID id.UserID) (*DeviceQuota, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	quota, ok := s.quotas[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *quota
	return &copied, nil
}

func (s *InMemoryStore) Seed(_ context.Context, userID id.UserID, regQuota, deregQuota int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.quotas[userID]; ok {
		return nil
	}
	s.quotas[userID] = &DeviceQuota{
		UserID:     userID,
		RegQuota:   regQuota,
		DeregQuota: deregQuota,
		UpdatedAt:  time.Now(),
	}
	return nil
}

func (s *InMemoryStore) Debit(_ context.Context, userID id.UserID, kind Kind, count int) (*DeviceQuota, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	quota, ok := s.quotas[userID]
	if !ok {
		quota = &DeviceQuota{
			UserID:     userID,
			RegQuota:   DefaultRegQuota,
			DeregQuota: DefaultDeregQuota,
		}
		s.quotas[userID] = quota
	}

	if quota.Remaining(kind) < count {
		return nil, sentinel.ErrInvalidState
	}
	if kind == KindDeregistration {
		quota.DeregQuota -= count
	} else {
		quota.RegQuota -= count
	}
	quota.UpdatedAt = time.Now()

	copied := *quota
	return &copied, nil
}
