package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	apiRequestsTotal      *prometheus.CounterVec
	apiLatencySeconds     *prometheus.HistogramVec
	apiErrorsTotal        *prometheus.CounterVec
	submissionOutcomes    *prometheus.CounterVec
	feedbackStoreReads    *prometheus.CounterVec
	feedbackStoreWrites   *prometheus.CounterVec
	evaluationEventsTotal *prometheus.CounterVec
	catalogFallbacksTotal prometheus.Counter
)

// RegisterMetrics initialises the Prometheus collectors used by the portal API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_api_requests_total",
			Help: "Total number of portal API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "portal_api_latency_seconds",
			Help:    "Latency distribution for portal API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_api_errors_total",
			Help: "Total number of error responses returned by portal endpoints.",
		}, []string{"method", "route", "status"})

		submissionOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_submission_outcomes_total",
			Help: "Terminal state reached by each submission pipeline run.",
		}, []string{"state", "source"})

		feedbackStoreReads = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_feedback_store_reads_total",
			Help: "Feedback store reads partitioned by the tier that answered.",
		}, []string{"operation", "tier"})

		feedbackStoreWrites = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_feedback_store_writes_total",
			Help: "Feedback store writes partitioned by the tier that accepted them.",
		}, []string{"tier"})

		evaluationEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_evaluation_events_total",
			Help: "Evaluation events published per broker.",
		}, []string{"broker", "result"})

		catalogFallbacksTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "portal_catalog_fallbacks_total",
			Help: "Number of catalog lookups answered from the built-in course list.",
		})

		prometheus.MustRegister(
			apiRequestsTotal,
			apiLatencySeconds,
			apiErrorsTotal,
			submissionOutcomes,
			feedbackStoreReads,
			feedbackStoreWrites,
			evaluationEventsTotal,
			catalogFallbacksTotal,
		)
	})
}

// APIRequests exposes the counter for API requests.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram for API requests.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the counter for API error responses.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// SubmissionOutcomes counts pipeline terminal states.
func SubmissionOutcomes() *prometheus.CounterVec {
	RegisterMetrics()
	return submissionOutcomes
}

// FeedbackStoreReads counts listing and lookup answers per tier (remote, local, seed).
func FeedbackStoreReads() *prometheus.CounterVec {
	RegisterMetrics()
	return feedbackStoreReads
}

// FeedbackStoreWrites counts saved records per tier.
func FeedbackStoreWrites() *prometheus.CounterVec {
	RegisterMetrics()
	return feedbackStoreWrites
}

// EvaluationEvents counts published evaluation events.
func EvaluationEvents() *prometheus.CounterVec {
	RegisterMetrics()
	return evaluationEventsTotal
}

// CatalogFallbacks counts catalog answers served from the built-in list.
func CatalogFallbacks() prometheus.Counter {
	RegisterMetrics()
	return catalogFallbacksTotal
}
