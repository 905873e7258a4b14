package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"drs/internal/audit"
	"drs/internal/cases"
	"drs/internal/compliance"
	"drs/internal/imei"
	"drs/internal/notification"
	"drs/internal/status"
	id "drs/pkg/domain"
	"drs/pkg/testutil"
)

var errAggregation = errors.New("core system unreachable")

type stubAggregator struct {
	err error
}

func (a *stubAggregator) Aggregate(_ context.Context, trackingID id.TrackingID, imeis []id.IMEI) (*compliance.Summary, error) {
	if a.err != nil {
		return nil, a.err
	}
	return &compliance.Summary{
		VerifiedIMEI: len(imeis),
		Compliant:    len(imeis),
		TrackingID:   trackingID.String(),
	}, nil
}

type CaseHandlerSuite struct {
	suite.Suite
	router     http.Handler
	store      *cases.InMemoryStore
	aggregator *stubAggregator

	userID     string
	userName   string
	reviewerID string
}

func TestCaseHandlerSuite(t *testing.T) {
	suite.Run(t, new(CaseHandlerSuite))
}

func (s *CaseHandlerSuite) SetupTest() {
	s.aggregator = &stubAggregator{}
	s.userID = uuid.NewString()
	s.userName = "importer one"
	s.reviewerID = uuid.NewString()

	imeiSvc, err := imei.New(imei.NewInMemoryStore())
	s.Require().NoError(err)
	notifier, err := notification.New(notification.NewInMemoryStore())
	s.Require().NoError(err)

	s.store = cases.NewInMemoryStore()
	svc, err := cases.New(s.store, imeiSvc, s.aggregator,
		cases.WithNotifier(notifier),
		cases.WithAuditor(audit.NewPublisher(audit.NewInMemoryStore())),
	)
	s.Require().NoError(err)

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	r := chi.NewRouter()
	New(svc, logger, s.T().TempDir()).Register(r)
	s.router = r
}

func (s *CaseHandlerSuite) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *CaseHandlerSuite) createCase() caseResponse {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/cases", createCaseRequest{CaseType: "registration"})
	rec := s.do(testutil.WithUser(req, s.userID, s.userName))
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	return *testutil.UnmarshalResponse[caseResponse](s.T(), rec)
}

func (s *CaseHandlerSuite) attachDevices(trackingID string, imeis ...string) *httptest.ResponseRecorder {
	body := attachDevicesRequest{Devices: []deviceRequest{
		{Brand: "Acme", ModelName: "A1", Count: len(imeis), IMEIs: imeis},
	}}
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/cases/"+trackingID+"/devices", body)
	return s.do(testutil.WithUser(req, s.userID, s.userName))
}

func (s *CaseHandlerSuite) TestCreateCase() {
	s.Run("requires authentication", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/cases", createCaseRequest{CaseType: "registration"})
		rec := s.do(req)
		testutil.AssertStatusAndError(s.T(), rec, http.StatusUnauthorized, "unauthorized")
	})

	s.Run("rejects invalid JSON", func() {
		req := testutil.NewRequestWithBody(s.T(), http.MethodPost, "/cases", "not valid json")
		rec := s.do(testutil.WithUser(req, s.userID, s.userName))
		testutil.AssertStatus(s.T(), rec, http.StatusBadRequest)
	})

	s.Run("rejects unknown case type", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/cases", createCaseRequest{CaseType: "renewal"})
		rec := s.do(testutil.WithUser(req, s.userID, s.userName))
		testutil.AssertStatusAndError(s.T(), rec, http.StatusBadRequest, "invalid_input")
	})

	s.Run("creates a registration case", func() {
		resp := s.createCase()
		s.NotEmpty(resp.TrackingID)
		s.Equal("registration", resp.CaseType)
		s.Equal(status.NewRequest, resp.Status)
		s.Equal("New Request", resp.StatusName)
	})
}

func (s *CaseHandlerSuite) TestGetCase() {
	s.Run("unknown tracking id is not found", func() {
		req := testutil.NewRequest(s.T(), http.MethodGet, "/cases/"+uuid.NewString())
		rec := s.do(testutil.WithUser(req, s.userID, s.userName))
		testutil.AssertStatus(s.T(), rec, http.StatusNotFound)
	})

	s.Run("malformed tracking id is invalid input", func() {
		req := testutil.NewRequest(s.T(), http.MethodGet, "/cases/not-a-uuid")
		rec := s.do(testutil.WithUser(req, s.userID, s.userName))
		testutil.AssertStatus(s.T(), rec, http.StatusBadRequest)
	})

	s.Run("returns an existing case", func() {
		created := s.createCase()
		req := testutil.NewRequest(s.T(), http.MethodGet, "/cases/"+created.TrackingID)
		rec := s.do(testutil.WithUser(req, s.userID, s.userName))
		testutil.AssertStatusOK(s.T(), rec)

		got := testutil.UnmarshalResponse[caseResponse](s.T(), rec)
		s.Equal(created.TrackingID, got.TrackingID)
	})
}

func (s *CaseHandlerSuite) TestListCases() {
	s.createCase()
	s.createCase()

	req := testutil.NewRequest(s.T(), http.MethodGet, "/cases")
	rec := s.do(testutil.WithUser(req, s.userID, s.userName))
	testutil.AssertStatusOK(s.T(), rec)

	var list []caseResponse
	s.Require().NoError(json.NewDecoder(rec.Body).Decode(&list))
	s.Len(list, 2)
}

func (s *CaseHandlerSuite) TestAttachDevices() {
	s.Run("runs the compliance pipeline and returns the aggregated case", func() {
		created := s.createCase()
		rec := s.attachDevices(created.TrackingID, "350000000000010", "350000000000029")
		testutil.AssertStatusOK(s.T(), rec)

		got := testutil.UnmarshalResponse[caseResponse](s.T(), rec)
		s.Equal(status.PendingReview, got.Status)
		s.Equal(status.Processed, got.ProcessingStatus)
		s.Require().NotEmpty(got.Summary)

		var summary compliance.Summary
		s.Require().NoError(json.Unmarshal(got.Summary, &summary))
		s.Equal(2, summary.VerifiedIMEI)
	})

	s.Run("rejects malformed IMEIs at the boundary", func() {
		created := s.createCase()
		rec := s.attachDevices(created.TrackingID, "not-an-imei")
		testutil.AssertStatusAndError(s.T(), rec, http.StatusBadRequest, "invalid_input")
	})

	s.Run("aggregator failure surfaces as an error", func() {
		created := s.createCase()
		s.aggregator.err = errAggregation
		defer func() { s.aggregator.err = nil }()

		rec := s.attachDevices(created.TrackingID, "350000000000010")
		s.Equal(http.StatusInternalServerError, rec.Code)
	})
}

func (s *CaseHandlerSuite) TestAssignReviewer() {
	created := s.createCase()
	rec := s.attachDevices(created.TrackingID, "350000000000010")
	testutil.AssertStatusOK(s.T(), rec)

	s.Run("requires a reviewer identity", func() {
		req := testutil.NewRequest(s.T(), http.MethodPost, "/cases/"+created.TrackingID+"/assign")
		rec := s.do(testutil.WithUser(req, s.userID, s.userName))
		testutil.AssertStatusAndError(s.T(), rec, http.StatusForbidden, "forbidden")
	})

	s.Run("moves the case into review", func() {
		req := testutil.NewRequest(s.T(), http.MethodPost, "/cases/"+created.TrackingID+"/assign")
		rec := s.do(testutil.WithReviewer(req, s.userID, "reviewer one", s.reviewerID))
		testutil.AssertStatus(s.T(), rec, http.StatusNoContent)

		getReq := testutil.NewRequest(s.T(), http.MethodGet, "/cases/"+created.TrackingID)
		getRec := s.do(testutil.WithUser(getReq, s.userID, s.userName))
		got := testutil.UnmarshalResponse[caseResponse](s.T(), getRec)
		s.Equal(status.InReview, got.Status)
		s.Equal("reviewer one", got.ReviewerName)
	})
}

func (s *CaseHandlerSuite) TestResubmitCase() {
	// Park an in-review case in Information Requested the way a submitted
	// review would.
	created := s.createCase()
	rec := s.attachDevices(created.TrackingID, "350000000000010")
	testutil.AssertStatusOK(s.T(), rec)

	assignReq := testutil.NewRequest(s.T(), http.MethodPost, "/cases/"+created.TrackingID+"/assign")
	testutil.AssertStatus(s.T(), s.do(testutil.WithReviewer(assignReq, s.userID, "reviewer one", s.reviewerID)), http.StatusNoContent)

	trackingID, err := id.ParseTrackingID(created.TrackingID)
	s.Require().NoError(err)
	s.Require().NoError(s.store.UpdateStatus(context.Background(), trackingID, status.InformationRequested))

	s.Run("non-owner is forbidden", func() {
		req := testutil.NewRequest(s.T(), http.MethodPost, "/cases/"+created.TrackingID+"/resubmit")
		rec := s.do(testutil.WithUser(req, uuid.NewString(), "someone else"))
		testutil.AssertStatusAndError(s.T(), rec, http.StatusForbidden, "forbidden")
	})

	s.Run("owner's response puts the case back in review", func() {
		req := testutil.NewRequest(s.T(), http.MethodPost, "/cases/"+created.TrackingID+"/resubmit")
		rec := s.do(testutil.WithUser(req, s.userID, s.userName))
		testutil.AssertStatus(s.T(), rec, http.StatusNoContent)

		getReq := testutil.NewRequest(s.T(), http.MethodGet, "/cases/"+created.TrackingID)
		getRec := s.do(testutil.WithUser(getReq, s.userID, s.userName))
		got := testutil.UnmarshalResponse[caseResponse](s.T(), getRec)
		s.Equal(status.InReview, got.Status)
		s.Equal("reviewer one", got.ReviewerName)
	})

	s.Run("a second resubmission has nothing to answer", func() {
		req := testutil.NewRequest(s.T(), http.MethodPost, "/cases/"+created.TrackingID+"/resubmit")
		rec := s.do(testutil.WithUser(req, s.userID, s.userName))
		testutil.AssertStatusAndError(s.T(), rec, http.StatusConflict, "precondition_failed")
	})
}

func (s *CaseHandlerSuite) TestCloseCase() {
	s.Run("owner closes a fresh case", func() {
		created := s.createCase()
		req := testutil.NewRequest(s.T(), http.MethodPost, "/cases/"+created.TrackingID+"/close")
		rec := s.do(testutil.WithUser(req, s.userID, s.userName))
		testutil.AssertStatus(s.T(), rec, http.StatusNoContent)

		getReq := testutil.NewRequest(s.T(), http.MethodGet, "/cases/"+created.TrackingID)
		getRec := s.do(testutil.WithUser(getReq, s.userID, s.userName))
		got := testutil.UnmarshalResponse[caseResponse](s.T(), getRec)
		s.Equal(status.Closed, got.Status)
	})

	s.Run("non-owner is forbidden", func() {
		created := s.createCase()
		req := testutil.NewRequest(s.T(), http.MethodPost, "/cases/"+created.TrackingID+"/close")
		rec := s.do(testutil.WithUser(req, uuid.NewString(), "someone else"))
		testutil.AssertStatusAndError(s.T(), rec, http.StatusForbidden, "forbidden")
	})
}
