package quota

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	id "drs/pkg/domain"
	dErrors "drs/pkg/domain-errors"
	"drs/pkg/platform/sentinel"
)

// Metrics is the slice of platform metrics the quota service reports to.
type Metrics interface {
	IncQuotaDebits()
}

// Service guards quota reads and debits behind validation and logging.
type Service struct {
	store   Store
	logger  *slog.Logger
	metrics Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(metrics Metrics) Option {
	return func(s *Service) {
		s.metrics = metrics
	}
}

func New(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("quota store is required")
	}
	svc := &Service{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Check returns the user's current quota.
func (s *Service) Check(ctx context.Context, userID id.UserID) (*DeviceQuota, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "user_id is required")
	}
	quota, err := s.store.Get(ctx, userID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "quota not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to get device quota")
	}
	return quota, nil
}

// Debit decrements the user's allowance by count, exactly once per approval.
func (s *Service) Debit(ctx context.Context, userID id.UserID, kind Kind, count int) (*DeviceQuota, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "user_id is required")
	}
	if count <= 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "debit count must be positive")
	}

	quota, err := s.store.Debit(ctx, userID, kind, count)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "quota not found")
	}
	if errors.Is(err, sentinel.ErrInvalidState) {
		return nil, dErrors.Wrap(err, dErrors.CodePreconditionFailed, "insufficient device quota")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to debit device quota")
	}

	if s.metrics != nil {
		s.metrics.IncQuotaDebits()
	}
	s.logger.InfoContext(ctx, "device quota debited",
		"user_id", userID,
		"kind", kind,
		"count", count,
		"remaining", quota.Remaining(kind),
	)
	return quota, nil
}
