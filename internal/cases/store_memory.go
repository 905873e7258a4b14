package cases

import (
	"context"
	"sync"

	id "drs/pkg/domain"
	"drs/pkg/platform/sentinel"
)

// InMemoryStore keeps cases in memory for tests and local runs.
type InMemoryStore struct {
	mu     sync.RWMutex
	nextID int64
	cases  map[id.TrackingID]*Case
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{cases: make(map[id.TrackingID]*Case)}
}

func (s *InMemoryStore) Create(_ context.Context, c *Case) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cases[c.TrackingID]; ok {
		return sentinel.ErrConflict
	}
	s.nextID++
	c.ID = id.CaseID(s.nextID)
	stored := *c
	s.cases[c.TrackingID] = &stored
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, trackingID id.TrackingID) (*Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.cases[trackingID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := *c
	out.Devices = append([]Device(nil), c.Devices...)
	return &out, nil
}

func (s *InMemoryStore) ListByUser(_ context.Context, userID id.UserID) ([]*Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Case
	for _, c := range s.cases {
		if c.UserID == userID {
			copied := *c
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (s *InMemoryStore) AttachDevices(_ context.Context, trackingID id.TrackingID, devices []Device) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cases[trackingID]
	if !ok {
		return sentinel.ErrNotFound
	}
	c.Devices = append(c.Devices, devices...)
	return nil
}

func (s *InMemoryStore) SetReviewer(_ context.Context, trackingID id.TrackingID, reviewerID id.ReviewerID, reviewerName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cases[trackingID]
	if !ok {
		return sentinel.ErrNotFound
	}
	c.ReviewerID = reviewerID
	c.ReviewerName = reviewerName
	return nil
}

func (s *InMemoryStore) UpdateStatus(_ context.Context, trackingID id.TrackingID, status int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cases[trackingID]
	if !ok {
		return sentinel.ErrNotFound
	}
	c.Status = status
	return nil
}

func (s *InMemoryStore) UpdatePipelineStatus(_ context.Context, trackingID id.TrackingID, processingStatus, reportStatus int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cases[trackingID]
	if !ok {
		return sentinel.ErrNotFound
	}
	c.ProcessingStatus = processingStatus
	c.ReportStatus = reportStatus
	return nil
}

func (s *InMemoryStore) SetSummary(_ context.Context, trackingID id.TrackingID, summary []byte, report string, reportAllowed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cases[trackingID]
	if !ok {
		return sentinel.ErrNotFound
	}
	c.Summary = append([]byte(nil), summary...)
	c.Report = report
	c.ReportAllowed = reportAllowed
	return nil
}
