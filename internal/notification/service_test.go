package notification

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	id "drs/pkg/domain"
	dErrors "drs/pkg/domain-errors"
	"drs/pkg/requestcontext"
)

type NotificationServiceSuite struct {
	suite.Suite
	store   *InMemoryStore
	outbox  chan Notification
	service *Service
}

func TestNotificationServiceSuite(t *testing.T) {
	suite.Run(t, new(NotificationServiceSuite))
}

func (s *NotificationServiceSuite) SetupTest() {
	s.store = NewInMemoryStore()
	s.outbox = make(chan Notification, 4)

	var err error
	s.service, err = New(s.store, WithOutbox(s.outbox))
	s.Require().NoError(err)
}

func (s *NotificationServiceSuite) TestNotify() {
	ctx := context.Background()

	s.Run("nil user id is rejected", func() {
		err := s.service.Notify(ctx, id.UserID{}, id.NewTrackingID(), "subject", "body")
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("empty subject is rejected", func() {
		err := s.service.Notify(ctx, id.UserID(uuid.New()), id.NewTrackingID(), "", "body")
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("stores and forwards to the outbox", func() {
		userID := id.UserID(uuid.New())
		now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		ctx := requestcontext.WithTime(ctx, now)

		err := s.service.Notify(ctx, userID, id.NewTrackingID(), "case rejected", "details")
		s.Require().NoError(err)

		stored, err := s.service.List(ctx, userID)
		s.Require().NoError(err)
		s.Require().Len(stored, 1)
		s.Equal("case rejected", stored[0].Subject)
		s.Equal(now, stored[0].Generated)

		select {
		case forwarded := <-s.outbox:
			s.Equal(stored[0].ID, forwarded.ID)
		default:
			s.Fail("expected notification on outbox")
		}
	})

	s.Run("full outbox does not fail the write", func() {
		userID := id.UserID(uuid.New())
		for range cap(s.outbox) {
			s.outbox <- Notification{}
		}

		err := s.service.Notify(ctx, userID, id.NewTrackingID(), "subject", "body")
		s.NoError(err)

		stored, err := s.service.List(ctx, userID)
		s.Require().NoError(err)
		s.Len(stored, 1)
	})
}
