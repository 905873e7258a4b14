package gsma

import (
	"context"
	"fmt"
	"log/slog"

	id "drs/pkg/domain"
	dErrors "drs/pkg/domain-errors"
)

// Lookuper fetches a TAC record from the core service.
type Lookuper interface {
	Lookup(ctx context.Context, tac string) (*Device, error)
}

// Service answers device-model questions for IMEIs, reading through the
// cache when one is configured.
type Service struct {
	client Lookuper
	cache  *Cache
	logger *slog.Logger
}

type Option func(*Service)

func WithCache(cache *Cache) Option {
	return func(s *Service) {
		s.cache = cache
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func New(client Lookuper, opts ...Option) (*Service, error) {
	if client == nil {
		return nil, fmt.Errorf("tac client is required")
	}
	svc := &Service{client: client, logger: slog.Default()}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// DeviceByIMEI returns the GSMA record for the IMEI's TAC, or nil when the
// TAC is unknown.
func (s *Service) DeviceByIMEI(ctx context.Context, imei id.IMEI) (*Device, error) {
	return s.DeviceByTAC(ctx, imei.TAC())
}

// DeviceByTAC returns the GSMA record for a TAC, or nil when unknown.
func (s *Service) DeviceByTAC(ctx context.Context, tac string) (*Device, error) {
	if len(tac) != id.TACLength {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "tac must be 8 digits")
	}

	if s.cache != nil {
		device, found, err := s.cache.Get(ctx, tac)
		if err != nil {
			// Cache trouble falls through to the core service.
			s.logger.WarnContext(ctx, "tac cache read failed", "tac", tac, "error", err)
		} else if found {
			return device, nil
		}
	}

	device, err := s.client.Lookup(ctx, tac)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, tac, device); err != nil {
			s.logger.WarnContext(ctx, "tac cache write failed", "tac", tac, "error", err)
		}
	}
	return device, nil
}
