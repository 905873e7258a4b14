package compliance

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	id "drs/pkg/domain"
)

// fakeBatchClient serves successful batches and fails the batches whose
// first IMEI is on the fail list. Batches on the fail-once list fail a
// single call and succeed on the retry.
type fakeBatchClient struct {
	mu        sync.Mutex
	calls     int
	failFirst map[string]bool
	failOnce  map[string]bool
}

func (c *fakeBatchClient) BatchCheck(_ context.Context, imeis []string) (*BatchResponse, error) {
	c.mu.Lock()
	c.calls++
	fail := c.failFirst != nil && c.failFirst[imeis[0]]
	if !fail && c.failOnce != nil && c.failOnce[imeis[0]] {
		fail = true
		delete(c.failOnce, imeis[0])
	}
	c.mu.Unlock()

	if fail {
		return nil, fmt.Errorf("core service returned 503")
	}
	resp := &BatchResponse{}
	for _, imei := range imeis {
		resp.Results = append(resp.Results, Record{IMEINorm: imei})
	}
	return resp, nil
}

func (c *fakeBatchClient) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// fakeMetrics records aggregator counter increments under a lock; workers
// report concurrently.
type fakeMetrics struct {
	mu       sync.Mutex
	calls    int
	failures int
}

func (m *fakeMetrics) IncBatchCalls() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
}

func (m *fakeMetrics) IncBatchFailures() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures++
}

func (m *fakeMetrics) ObserveRetryRounds(int) {}

func (m *fakeMetrics) ObserveAggregateDuration(float64) {}

func (m *fakeMetrics) batchCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *fakeMetrics) batchFailures() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failures
}

func makeIMEIs(n int) []id.IMEI {
	out := make([]id.IMEI, 0, n)
	for i := range n {
		out = append(out, id.IMEI(fmt.Sprintf("%015d", i)))
	}
	return out
}

type AggregatorSuite struct {
	suite.Suite
	client     *fakeBatchClient
	uploads    string
	aggregator *Aggregator
}

func TestAggregatorSuite(t *testing.T) {
	suite.Run(t, new(AggregatorSuite))
}

func (s *AggregatorSuite) SetupTest() {
	s.client = &fakeBatchClient{}
	s.uploads = s.T().TempDir()

	var err error
	s.aggregator, err = NewAggregator(s.client, NewClassifier(nil), NewReportWriter(s.uploads))
	s.Require().NoError(err)
}

func (s *AggregatorSuite) TestAggregate() {
	ctx := context.Background()

	s.Run("empty imei list is rejected", func() {
		_, err := s.aggregator.Aggregate(ctx, id.NewTrackingID(), nil)
		s.Error(err)
	})

	s.Run("2500 imeis issue exactly three batch calls", func() {
		summary, err := s.aggregator.Aggregate(ctx, id.NewTrackingID(), makeIMEIs(2500))
		s.Require().NoError(err)
		s.Equal(3, s.client.callCount())
		s.Equal(2500, summary.VerifiedIMEI)
	})

	s.Run("batch count is the ceiling of n over the batch limit", func() {
		client := &fakeBatchClient{}
		agg, err := NewAggregator(client, nil, NewReportWriter(s.T().TempDir()))
		s.Require().NoError(err)

		_, err = agg.Aggregate(ctx, id.NewTrackingID(), makeIMEIs(1001))
		s.Require().NoError(err)
		s.Equal(2, client.callCount())
	})

	s.Run("summary records the tracking id and report name", func() {
		trackingID := id.NewTrackingID()
		summary, err := s.aggregator.Aggregate(ctx, trackingID, makeIMEIs(5))
		s.Require().NoError(err)

		s.Equal(trackingID.String(), summary.TrackingID)
		s.Require().NotEmpty(summary.CompliantReportName)

		full := filepath.Join(s.uploads, trackingID.String(), summary.CompliantReportName)
		s.FileExists(full)
		s.FileExists(filepath.Join(s.uploads, trackingID.String(), "user_report-"+summary.CompliantReportName))

		content, err := os.ReadFile(full)
		s.Require().NoError(err)
		s.Contains(string(content), "imei\tstatus\tstolen_status")

		user, err := os.ReadFile(filepath.Join(s.uploads, trackingID.String(), "user_report-"+summary.CompliantReportName))
		s.Require().NoError(err)
		s.NotContains(string(user), "stolen_status")
		s.NotContains(string(user), "block_date")
	})
}

func (s *AggregatorSuite) TestRetries() {
	ctx := context.Background()

	s.Run("permanently failing batches stop after the retry bound", func() {
		client := &fakeBatchClient{failFirst: map[string]bool{"00000000000000": true}}
		agg, err := NewAggregator(client, nil, NewReportWriter(s.T().TempDir()))
		s.Require().NoError(err)

		summary, err := agg.Aggregate(ctx, id.NewTrackingID(), makeIMEIs(100))
		s.Require().NoError(err)

		// Initial dispatch plus ten retry rounds, then the batch is dropped.
		s.Equal(11, client.callCount())
		s.Equal(0, summary.VerifiedIMEI)
	})

	s.Run("transient failures count even when the retry succeeds", func() {
		client := &fakeBatchClient{failOnce: map[string]bool{"00000000000000": true}}
		recorder := &fakeMetrics{}
		agg, err := NewAggregator(client, nil, NewReportWriter(s.T().TempDir()),
			WithMetrics(recorder))
		s.Require().NoError(err)

		summary, err := agg.Aggregate(ctx, id.NewTrackingID(), makeIMEIs(100))
		s.Require().NoError(err)

		s.Equal(100, summary.VerifiedIMEI)
		s.Equal(2, recorder.batchCalls())
		s.Equal(1, recorder.batchFailures())
	})

	s.Run("failed batches do not poison the others", func() {
		client := &fakeBatchClient{failFirst: map[string]bool{"00000000000000": true}}
		agg, err := NewAggregator(client, nil, NewReportWriter(s.T().TempDir()),
			WithBatchSize(50))
		s.Require().NoError(err)

		summary, err := agg.Aggregate(ctx, id.NewTrackingID(), makeIMEIs(150))
		s.Require().NoError(err)

		// The first 50-IMEI batch never succeeds; the other two do.
		s.Equal(100, summary.VerifiedIMEI)
	})
}

func (s *AggregatorSuite) TestReduce() {
	trackingID := id.NewTrackingID()

	records := []Record{
		{IMEINorm: "1", RealtimeChecks: RealtimeChecks{InRegistrationList: true, EverObservedOnNetwork: true}},
		{IMEINorm: "2", RealtimeChecks: RealtimeChecks{InRegistrationList: true}},
		{IMEINorm: "3"},
		{IMEINorm: "4", StolenStatus: TriState{ProvisionalOnly: boolPtr(true)}},
		{IMEINorm: "5", StolenStatus: TriState{ProvisionalOnly: boolPtr(false)}},
		{IMEINorm: "6", RegistrationStatus: TriState{ProvisionalOnly: boolPtr(true)}},
		{IMEINorm: "7", RealtimeChecks: RealtimeChecks{GSMANotFound: true},
			ClassificationState: ClassificationState{
				BlockingConditions: []Condition{{Name: "gsma_not_found", Met: true}},
			}},
	}

	summary, rows := s.aggregator.reduce(trackingID, records)

	s.Equal(7, summary.VerifiedIMEI)
	s.Equal(1, summary.CompliantActive)
	s.Equal(2, summary.Compliant)
	s.Equal(2, summary.NonCompliant)
	s.Equal(1, summary.ProvisionalCompliant)
	s.Equal(1, summary.ProvisionalNonCompliant)
	s.Equal(1, summary.ProvisionalStolen)
	s.Equal(1, summary.Stolen)
	s.Equal(1, summary.SeenOnNetwork)
	s.Equal(1, summary.CountPerCondition["gsma_not_found"])
	s.Len(rows, 7)

	var stolenRow ReportRow
	for _, row := range rows {
		if row.IMEI == "4" {
			stolenRow = row
		}
	}
	s.Equal("provisional", stolenRow.StolenStatus)
	s.True(strings.HasPrefix(stolenRow.Status, "Provisionally Non compliant"))
}

func TestChunk(t *testing.T) {
	cases := []struct {
		n, size, want int
	}{
		{0, 1000, 0},
		{1, 1000, 1},
		{1000, 1000, 1},
		{1001, 1000, 2},
		{2500, 1000, 3},
	}
	for _, tc := range cases {
		imeis := make([]string, tc.n)
		if got := len(chunk(imeis, tc.size)); got != tc.want {
			t.Errorf("chunk(%d, %d) produced %d batches, want %d", tc.n, tc.size, got, tc.want)
		}
	}
}

func TestChunkGroups(t *testing.T) {
	batches := make([][]string, 25)
	groups := chunkGroups(batches, 10)
	if len(groups) > 10 {
		t.Fatalf("got %d groups, want at most 10", len(groups))
	}
	total := 0
	for _, g := range groups {
		total += len(g)
	}
	if total != 25 {
		t.Fatalf("groups hold %d batches, want 25", total)
	}
}
