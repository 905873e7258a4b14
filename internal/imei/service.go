package imei

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	id "drs/pkg/domain"
	dErrors "drs/pkg/domain-errors"
	"drs/pkg/platform/sentinel"
)

// Service owns the approval lifecycle of normalized IMEIs.
type Service struct {
	store  Store
	logger *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func New(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("imei store is required")
	}
	svc := &Service{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// RegisterPending creates pending/add records for a case's normalized IMEIs.
// A removed record is revived to pending; an existing whitelist record is left
// untouched (the duplicate check at approval time catches those).
func (s *Service) RegisterPending(ctx context.Context, caseID id.CaseID, normalized []string) error {
	for _, n := range normalized {
		existing, err := s.store.Get(ctx, n)
		if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read imei record")
		}
		if existing != nil && existing.Status == StatusWhitelist {
			continue
		}
		record := Record{
			Normalized: n,
			Status:     StatusPending,
			Delta:      DeltaAdd,
			CaseID:     caseID,
		}
		if existing != nil && existing.Status == StatusRemoved {
			// Revival of a previously de-registered device.
			record.Delta = DeltaUpdate
		}
		if err := s.store.Upsert(ctx, record); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to register pending imei")
		}
	}
	return nil
}

// Duplicates returns the normalized IMEIs that are already whitelisted.
// A non-empty result blocks a registration approval.
func (s *Service) Duplicates(ctx context.Context, normalized []string) ([]string, error) {
	duplicates, err := s.store.FilterByStatus(ctx, normalized, StatusWhitelist)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check duplicate imeis")
	}
	return duplicates, nil
}

// InvalidForDeregistration returns the normalized IMEIs that are NOT currently
// whitelisted. A non-empty result blocks a de-registration approval.
func (s *Service) InvalidForDeregistration(ctx context.Context, normalized []string) ([]string, error) {
	whitelisted, err := s.store.FilterByStatus(ctx, normalized, StatusWhitelist)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to validate imeis")
	}
	valid := make(map[string]struct{}, len(whitelisted))
	for _, n := range whitelisted {
		valid[n] = struct{}{}
	}
	var invalid []string
	for _, n := range normalized {
		if _, ok := valid[n]; !ok {
			invalid = append(invalid, n)
		}
	}
	return invalid, nil
}

// Promote moves a registration case's IMEIs from pending to whitelist.
func (s *Service) Promote(ctx context.Context, normalized []string) error {
	if err := s.store.UpdateStatus(ctx, normalized, StatusWhitelist, DeltaAdd); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to promote imeis to whitelist")
	}
	s.logger.InfoContext(ctx, "imeis promoted to whitelist", "count", len(normalized))
	return nil
}

// Remove marks a de-registration case's IMEIs as removed.
func (s *Service) Remove(ctx context.Context, normalized []string) error {
	if err := s.store.UpdateStatus(ctx, normalized, StatusRemoved, DeltaRemove); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to remove imeis")
	}
	s.logger.InfoContext(ctx, "imeis removed from whitelist", "count", len(normalized))
	return nil
}
