package cases

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"drs/internal/audit"
	"drs/internal/compliance"
	"drs/internal/imei"
	"drs/internal/notification"
	"drs/internal/status"
	id "drs/pkg/domain"
	dErrors "drs/pkg/domain-errors"
)

type fakeAggregator struct {
	summary *compliance.Summary
	err     error
	calls   int
}

func (a *fakeAggregator) Aggregate(_ context.Context, trackingID id.TrackingID, imeis []id.IMEI) (*compliance.Summary, error) {
	a.calls++
	if a.err != nil {
		return nil, a.err
	}
	if a.summary != nil {
		return a.summary, nil
	}
	return &compliance.Summary{
		VerifiedIMEI: len(imeis),
		TrackingID:   trackingID.String(),
	}, nil
}

type fakeAutoReviewer struct {
	calls int
}

func (r *fakeAutoReviewer) AutoReview(_ context.Context, _ id.TrackingID) error {
	r.calls++
	return nil
}

type CaseServiceSuite struct {
	suite.Suite
	store      *InMemoryStore
	imeiStore  *imei.InMemoryStore
	aggregator *fakeAggregator
	notes      *notification.InMemoryStore
	service    *Service
}

func TestCaseServiceSuite(t *testing.T) {
	suite.Run(t, new(CaseServiceSuite))
}

func (s *CaseServiceSuite) SetupTest() {
	s.store = NewInMemoryStore()
	s.imeiStore = imei.NewInMemoryStore()
	s.aggregator = &fakeAggregator{}
	s.notes = notification.NewInMemoryStore()

	imeiSvc, err := imei.New(s.imeiStore)
	s.Require().NoError(err)
	notifier, err := notification.New(s.notes)
	s.Require().NoError(err)

	s.service, err = New(s.store, imeiSvc, s.aggregator,
		WithNotifier(notifier),
		WithAuditor(audit.NewPublisher(audit.NewInMemoryStore())),
	)
	s.Require().NoError(err)
}

func (s *CaseServiceSuite) newCase(caseType Type) *Case {
	c, err := s.service.Create(context.Background(), caseType, ChannelWeb, id.UserID(uuid.New()), "importer one")
	s.Require().NoError(err)
	return c
}

func (s *CaseServiceSuite) attach(trackingID id.TrackingID, imeis ...string) *Case {
	parsed := make([]id.IMEI, 0, len(imeis))
	for _, raw := range imeis {
		parsed = append(parsed, id.IMEI(raw))
	}
	c, err := s.service.AttachDevices(context.Background(), trackingID, []Device{
		{Brand: "Acme", ModelName: "A1", Count: 1, IMEIs: parsed},
	})
	s.Require().NoError(err)
	return c
}

func (s *CaseServiceSuite) TestCreate() {
	ctx := context.Background()

	s.Run("nil user id is rejected", func() {
		_, err := s.service.Create(ctx, TypeRegistration, ChannelWeb, id.UserID{}, "name")
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("new case starts as a new request", func() {
		c := s.newCase(TypeRegistration)
		s.False(c.TrackingID.IsNil())
		s.Equal(status.NewRequest, c.Status)
		s.Equal(status.NewRequest, c.ProcessingStatus)
	})
}

func (s *CaseServiceSuite) TestAttachDevices() {
	ctx := context.Background()

	s.Run("requires at least one device", func() {
		c := s.newCase(TypeRegistration)
		_, err := s.service.AttachDevices(ctx, c.TrackingID, nil)
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("moves the case to awaiting documents", func() {
		c := s.newCase(TypeRegistration)
		c = s.attach(c.TrackingID, "350000000000010", "350000000000029")
		s.Equal(status.AwaitingDocuments, c.Status)
		s.Len(c.IMEIs(), 2)
	})

	s.Run("registers pending imei records for registration cases", func() {
		c := s.newCase(TypeRegistration)
		s.attach(c.TrackingID, "350000000000037")

		record, err := s.imeiStore.Get(ctx, id.IMEI("350000000000037").Normalized())
		s.Require().NoError(err)
		s.Equal(imei.StatusPending, record.Status)
	})

	s.Run("rejects devices on a case already in review", func() {
		c := s.newCase(TypeRegistration)
		s.attach(c.TrackingID, "350000000000045")

		_, err := s.service.AttachDevices(ctx, c.TrackingID, []Device{
			{IMEIs: []id.IMEI{"350000000000052"}},
		})
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodePreconditionFailed))
	})
}

func (s *CaseServiceSuite) TestProcessCompliance() {
	ctx := context.Background()

	s.Run("stores the summary and moves to pending review", func() {
		c := s.newCase(TypeRegistration)
		s.attach(c.TrackingID, "350000000000060", "350000000000078")

		s.Require().NoError(s.service.ProcessCompliance(ctx, c.TrackingID))

		got, err := s.service.Get(ctx, c.TrackingID)
		s.Require().NoError(err)
		s.Equal(status.PendingReview, got.Status)
		s.Equal(status.Processed, got.ProcessingStatus)
		s.Equal(status.Processed, got.ReportStatus)

		summary, err := compliance.DecodeSummary(got.Summary)
		s.Require().NoError(err)
		s.Equal(2, summary.VerifiedIMEI)
	})

	s.Run("aggregation failure marks the pipeline failed and notifies the owner", func() {
		c := s.newCase(TypeRegistration)
		s.attach(c.TrackingID, "350000000000086")
		s.aggregator.err = fmt.Errorf("core unreachable")

		err := s.service.ProcessCompliance(ctx, c.TrackingID)
		s.Error(err)

		got, getErr := s.service.Get(ctx, c.TrackingID)
		s.Require().NoError(getErr)
		s.Equal(status.Failed, got.ProcessingStatus)
		s.Equal(status.Failed, got.ReportStatus)

		notes, listErr := s.notes.ListByUser(ctx, got.UserID)
		s.Require().NoError(listErr)
		s.Len(notes, 1)
	})

	s.Run("cannot process a case without devices", func() {
		c := s.newCase(TypeRegistration)
		err := s.service.ProcessCompliance(ctx, c.TrackingID)
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodePreconditionFailed))
	})

	s.Run("a ussd case is handed to the auto-reviewer", func() {
		auto := &fakeAutoReviewer{}
		s.service.SetAutoReviewer(auto)

		c, err := s.service.Create(ctx, TypeRegistration, ChannelUSSD, id.UserID(uuid.New()), "importer one")
		s.Require().NoError(err)
		s.attach(c.TrackingID, "350000000000110")

		s.Require().NoError(s.service.ProcessCompliance(ctx, c.TrackingID))
		s.Equal(1, auto.calls)
	})
}

func (s *CaseServiceSuite) TestAssignReviewer() {
	ctx := context.Background()

	s.Run("claims a pending review case", func() {
		c := s.newCase(TypeRegistration)
		s.attach(c.TrackingID, "350000000000094")
		s.Require().NoError(s.service.ProcessCompliance(ctx, c.TrackingID))

		reviewerID := id.ReviewerID(uuid.New())
		s.Require().NoError(s.service.AssignReviewer(ctx, c.TrackingID, reviewerID, "reviewer one"))

		got, err := s.service.Get(ctx, c.TrackingID)
		s.Require().NoError(err)
		s.Equal(status.InReview, got.Status)
		s.Equal(reviewerID, got.ReviewerID)
	})

	s.Run("cannot claim a case that is not pending review", func() {
		c := s.newCase(TypeRegistration)
		err := s.service.AssignReviewer(ctx, c.TrackingID, id.ReviewerID(uuid.New()), "reviewer one")
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodePreconditionFailed))
	})
}

func (s *CaseServiceSuite) TestResubmit() {
	ctx := context.Background()

	// inReviewWithInfoRequest drives a case to In Review and then parks it in
	// Information Requested the way a submitted review would.
	inReviewWithInfoRequest := func() *Case {
		c := s.newCase(TypeRegistration)
		s.attach(c.TrackingID, "350000000000128")
		s.Require().NoError(s.service.ProcessCompliance(ctx, c.TrackingID))
		s.Require().NoError(s.service.AssignReviewer(ctx, c.TrackingID, id.ReviewerID(uuid.New()), "reviewer one"))
		s.Require().NoError(s.store.UpdateStatus(ctx, c.TrackingID, status.InformationRequested))
		got, err := s.service.Get(ctx, c.TrackingID)
		s.Require().NoError(err)
		return got
	}

	s.Run("owner returns the case to its reviewer", func() {
		c := inReviewWithInfoRequest()
		s.Require().NoError(s.service.Resubmit(ctx, c.TrackingID, c.UserID))

		got, err := s.service.Get(ctx, c.TrackingID)
		s.Require().NoError(err)
		s.Equal(status.InReview, got.Status)
		s.Equal(c.ReviewerID, got.ReviewerID)
	})

	s.Run("another user cannot resubmit", func() {
		c := inReviewWithInfoRequest()
		err := s.service.Resubmit(ctx, c.TrackingID, id.UserID(uuid.New()))
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("only an information-requested case can be resubmitted", func() {
		c := s.newCase(TypeRegistration)
		err := s.service.Resubmit(ctx, c.TrackingID, c.UserID)
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodePreconditionFailed))
	})
}

func (s *CaseServiceSuite) TestClose() {
	ctx := context.Background()

	s.Run("owner closes a new request", func() {
		c := s.newCase(TypeRegistration)
		s.Require().NoError(s.service.Close(ctx, c.TrackingID, c.UserID))

		got, err := s.service.Get(ctx, c.TrackingID)
		s.Require().NoError(err)
		s.Equal(status.Closed, got.Status)
	})

	s.Run("another user cannot close the case", func() {
		c := s.newCase(TypeRegistration)
		err := s.service.Close(ctx, c.TrackingID, id.UserID(uuid.New()))
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("a case in review cannot be closed", func() {
		c := s.newCase(TypeRegistration)
		s.attach(c.TrackingID, "350000000000102")
		s.Require().NoError(s.service.ProcessCompliance(ctx, c.TrackingID))
		s.Require().NoError(s.service.AssignReviewer(ctx, c.TrackingID, id.ReviewerID(uuid.New()), "reviewer one"))

		err := s.service.Close(ctx, c.TrackingID, c.UserID)
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodePreconditionFailed))
	})
}
