package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	id "drs/pkg/domain"
	dErrors "drs/pkg/domain-errors"
	"drs/pkg/platform/sentinel"
	"drs/pkg/requestcontext"
)

// Service writes notifications for case owners. Notify participates in the
// caller's transaction when one is on the context; failures there roll the
// whole operation back together.
type Service struct {
	store  Store
	logger *slog.Logger
	outbox chan<- Notification
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithOutbox forwards persisted notifications to a delivery channel consumed
// by the background worker.
func WithOutbox(outbox chan<- Notification) Option {
	return func(s *Service) {
		s.outbox = outbox
	}
}

func New(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("notification store is required")
	}
	svc := &Service{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Notify records a notification for the case owner.
func (s *Service) Notify(ctx context.Context, userID id.UserID, trackingID id.TrackingID, subject, message string) error {
	if userID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "user_id is required")
	}
	if subject == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "subject is required")
	}

	n := Notification{
		ID:         uuid.New(),
		UserID:     userID,
		TrackingID: trackingID,
		Subject:    subject,
		Message:    message,
		Generated:  requestcontext.Now(ctx),
	}
	if err := s.store.Append(ctx, n); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store notification")
	}

	if s.outbox != nil {
		select {
		case s.outbox <- n:
		default:
			s.logger.WarnContext(ctx, "notification outbox full, delivery skipped",
				"notification_id", n.ID,
			)
		}
	}
	return nil
}

// MarkRead flags a notification as read.
func (s *Service) MarkRead(ctx context.Context, notificationID uuid.UUID) error {
	if err := s.store.MarkRead(ctx, notificationID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Wrap(err, dErrors.CodeNotFound, "notification not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to mark notification read")
	}
	return nil
}

// List returns the user's notifications, newest first for the postgres store.
func (s *Service) List(ctx context.Context, userID id.UserID) ([]Notification, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "user_id is required")
	}
	out, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list notifications")
	}
	return out, nil
}
