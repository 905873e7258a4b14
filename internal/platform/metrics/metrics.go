package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics shared across the application.
type Metrics struct {
	CasesCreated     *prometheus.CounterVec
	ReviewOutcomes   *prometheus.CounterVec
	BatchCalls       prometheus.Counter
	BatchFailures    prometheus.Counter
	RetryRounds      prometheus.Histogram
	AggregateSeconds prometheus.Histogram
	QuotaDebits      prometheus.Counter
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		CasesCreated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "drs_cases_created_total",
			Help: "Cases created, labeled by case type",
		}, []string{"case_type"}),
		ReviewOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "drs_review_outcomes_total",
			Help: "Review submissions by final outcome",
		}, []string{"outcome"}),
		BatchCalls: promauto.NewCounter(prometheus.CounterOpts{
			Name: "drs_compliance_batch_calls_total",
			Help: "Batch compliance calls issued to the core service",
		}),
		BatchFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "drs_compliance_batch_failures_total",
			Help: "Batch compliance calls that returned an error, retried or not",
		}),
		RetryRounds: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "drs_compliance_retry_rounds",
			Help:    "Retry rounds needed per aggregation run",
			Buckets: []float64{0, 1, 2, 3, 5, 10},
		}),
		AggregateSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "drs_compliance_aggregate_duration_seconds",
			Help:    "Wall time of full aggregation runs",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		QuotaDebits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "drs_quota_debits_total",
			Help: "Successful device quota debits on case approval",
		}),
	}
}

// IncCasesCreated increments the case creation counter for a case type.
func (m *Metrics) IncCasesCreated(caseType string) {
	m.CasesCreated.WithLabelValues(caseType).Inc()
}

// IncReviewOutcome increments the review outcome counter.
func (m *Metrics) IncReviewOutcome(outcome string) {
	m.ReviewOutcomes.WithLabelValues(outcome).Inc()
}

// IncBatchCalls increments the compliance batch call counter.
func (m *Metrics) IncBatchCalls() {
	m.BatchCalls.Inc()
}

// IncBatchFailures increments the failed batch call counter.
func (m *Metrics) IncBatchFailures() {
	m.BatchFailures.Inc()
}

// ObserveRetryRounds records retry rounds used by an aggregation run.
func (m *Metrics) ObserveRetryRounds(rounds int) {
	m.RetryRounds.Observe(float64(rounds))
}

// ObserveAggregateDuration records the wall time of an aggregation run.
func (m *Metrics) ObserveAggregateDuration(seconds float64) {
	m.AggregateSeconds.Observe(seconds)
}

// IncQuotaDebits increments the quota debit counter.
func (m *Metrics) IncQuotaDebits() {
	m.QuotaDebits.Inc()
}
