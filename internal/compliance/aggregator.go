package compliance

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	id "drs/pkg/domain"
	dErrors "drs/pkg/domain-errors"
)

const (
	// maxBatchSize is the core service's hard per-call limit.
	maxBatchSize = 1000
	// maxGroups caps concurrent workers per round.
	maxGroups = 10
	// maxRetryRounds bounds re-dispatch of failed batches. Batches still
	// failing after the last round are dropped from the summary.
	maxRetryRounds = 10
)

// BatchClient is the slice of the core service client the aggregator needs.
type BatchClient interface {
	BatchCheck(ctx context.Context, imeis []string) (*BatchResponse, error)
}

// Metrics is the slice of platform metrics the aggregator reports to.
type Metrics interface {
	IncBatchCalls()
	IncBatchFailures()
	ObserveRetryRounds(rounds int)
	ObserveAggregateDuration(seconds float64)
}

// Aggregator fans batch compliance calls out over worker groups, retries
// failed batches in bounded rounds, and reduces the records into a Summary
// plus the case's report files.
type Aggregator struct {
	client     BatchClient
	classifier *Classifier
	reports    *ReportWriter
	logger     *slog.Logger
	metrics    Metrics

	batchSize   int
	groupCount  int
	retryRounds int
}

type AggregatorOption func(*Aggregator)

func WithLogger(logger *slog.Logger) AggregatorOption {
	return func(a *Aggregator) {
		a.logger = logger
	}
}

func WithMetrics(metrics Metrics) AggregatorOption {
	return func(a *Aggregator) {
		a.metrics = metrics
	}
}

// WithBatchSize overrides the per-call batch limit, for tests.
func WithBatchSize(n int) AggregatorOption {
	return func(a *Aggregator) {
		a.batchSize = n
	}
}

func NewAggregator(client BatchClient, classifier *Classifier, reports *ReportWriter, opts ...AggregatorOption) (*Aggregator, error) {
	if client == nil {
		return nil, fmt.Errorf("batch client is required")
	}
	if classifier == nil {
		classifier = NewClassifier(nil)
	}
	if reports == nil {
		return nil, fmt.Errorf("report writer is required")
	}
	a := &Aggregator{
		client:      client,
		classifier:  classifier,
		reports:     reports,
		logger:      slog.Default(),
		batchSize:   maxBatchSize,
		groupCount:  maxGroups,
		retryRounds: maxRetryRounds,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Aggregate runs the full pipeline for one case. The result is degraded, not
// failed, when some batches never succeed: their IMEIs are absent from the
// summary and the shortfall is logged.
func (a *Aggregator) Aggregate(ctx context.Context, trackingID id.TrackingID, imeis []id.IMEI) (*Summary, error) {
	if len(imeis) == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "no imeis to aggregate")
	}
	start := time.Now()

	batches := chunk(normalize(imeis), a.batchSize)
	collector := newCollector()

	pending := batches
	retries := 0
	for {
		pending = a.dispatchRound(ctx, pending, collector)
		if len(pending) == 0 {
			break
		}
		if retries == a.retryRounds {
			a.logger.WarnContext(ctx, "dropping unprocessed batches after final retry round",
				"tracking_id", trackingID,
				"batches", len(pending),
			)
			break
		}
		retries++
	}

	records := collector.take()
	summary, rows := a.reduce(trackingID, records)

	reportName, err := a.reports.Write(trackingID, rows)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to write compliance report")
	}
	summary.CompliantReportName = reportName

	if a.metrics != nil {
		a.metrics.ObserveRetryRounds(retries)
		a.metrics.ObserveAggregateDuration(time.Since(start).Seconds())
	}
	a.logger.InfoContext(ctx, "aggregation finished",
		"tracking_id", trackingID,
		"imeis", len(imeis),
		"verified", summary.VerifiedIMEI,
		"retry_rounds", retries,
	)
	return summary, nil
}

// dispatchRound splits the batches into at most groupCount worker groups,
// runs one goroutine per group, and returns the batches that failed. Each
// worker owns its group and pops batches last-in-first-out; results and
// failures go to the shared collector under its lock.
func (a *Aggregator) dispatchRound(ctx context.Context, batches [][]string, collector *collector) [][]string {
	groups := chunkGroups(batches, a.groupCount)

	var (
		mu     sync.Mutex
		failed [][]string
	)

	g, ctx := errgroup.WithContext(ctx)
	for _, group := range groups {
		g.Go(func() error {
			queue := group
			for len(queue) > 0 {
				batch := queue[len(queue)-1]
				queue = queue[:len(queue)-1]

				if a.metrics != nil {
					a.metrics.IncBatchCalls()
				}
				resp, err := a.client.BatchCheck(ctx, batch)
				if err != nil {
					if a.metrics != nil {
						a.metrics.IncBatchFailures()
					}
					mu.Lock()
					failed = append(failed, batch)
					mu.Unlock()
					continue
				}
				collector.add(resp.Results)
			}
			return nil
		})
	}
	// Workers never return errors; failures land on the failed list.
	_ = g.Wait()
	return failed
}

func (a *Aggregator) reduce(trackingID id.TrackingID, records []Record) (*Summary, []ReportRow) {
	summary := &Summary{
		VerifiedIMEI:      len(records),
		CountPerCondition: make(map[string]int),
		TrackingID:        trackingID.String(),
	}
	rows := make([]ReportRow, 0, len(records))

	for _, rec := range records {
		cls := a.classifier.Classify(rec)

		switch cls.Status {
		case StatusCompliant:
			if cls.Active {
				summary.CompliantActive++
			} else {
				summary.Compliant++
			}
		case StatusNonCompliant:
			summary.NonCompliant++
		case StatusProvisionallyCompliant:
			summary.ProvisionalCompliant++
		case StatusProvisionallyNonCompliant:
			summary.ProvisionalNonCompliant++
		}

		if rec.StolenStatus.Provisional() {
			summary.ProvisionalStolen++
		} else if rec.StolenStatus.Confirmed() {
			summary.Stolen++
		}
		if rec.RealtimeChecks.EverObservedOnNetwork {
			summary.SeenOnNetwork++
		}
		for _, cond := range rec.ClassificationState.BlockingConditions {
			if cond.Met {
				summary.CountPerCondition[cond.Name]++
			}
		}
		for _, cond := range rec.ClassificationState.InformativeConditions {
			if cond.Met {
				summary.CountPerCondition[cond.Name]++
			}
		}

		rows = append(rows, ReportRow{
			IMEI:          rec.IMEINorm,
			Status:        cls.Label(),
			StolenStatus:  stolenLabel(rec.StolenStatus),
			SeenOnNetwork: rec.RealtimeChecks.EverObservedOnNetwork,
			BlockDate:     cls.BlockDate,
			Reasons:       JoinReasons(cls.Reasons),
		})
	}
	return summary, rows
}

func stolenLabel(t TriState) string {
	switch {
	case t.Provisional():
		return "provisional"
	case t.Confirmed():
		return "confirmed"
	default:
		return ""
	}
}

func normalize(imeis []id.IMEI) []string {
	out := make([]string, 0, len(imeis))
	for _, imei := range imeis {
		out = append(out, imei.Normalized())
	}
	return out
}

// chunk splits the IMEI list into batches of at most size.
func chunk(imeis []string, size int) [][]string {
	var out [][]string
	for len(imeis) > size {
		out = append(out, imeis[:size])
		imeis = imeis[size:]
	}
	if len(imeis) > 0 {
		out = append(out, imeis)
	}
	return out
}

// chunkGroups partitions batches into at most maxGroups groups of
// ceil(len/maxGroups) batches each.
func chunkGroups(batches [][]string, maxGroups int) [][][]string {
	if len(batches) == 0 {
		return nil
	}
	perGroup := (len(batches) + maxGroups - 1) / maxGroups
	var out [][][]string
	for len(batches) > perGroup {
		out = append(out, batches[:perGroup])
		batches = batches[perGroup:]
	}
	out = append(out, batches)
	return out
}

// collector is the shared result sink worker goroutines append to.
type collector struct {
	mu      sync.Mutex
	records []Record
}

func newCollector() *collector {
	return &collector{}
}

func (c *collector) add(records []Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = append(c.records, records...)
}

func (c *collector) take() []Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.records
}
