package observability

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the INSPIRE papers catalog.
// Metrics are organized by subsystem: small paper gateway, literature searches,
// INSPIRE HTTP requests, sessions, change events and the HTTP API. All counters
// and histograms are registered via promauto with the default Prometheus registry.
//
// A nil *Metrics is valid: every Record method is a no-op on it.
type Metrics struct {
	// GatewayOperations counts small paper gateway calls, labeled by operation.
	GatewayOperations *prometheus.CounterVec

	// GatewayFailures counts failed gateway calls, labeled by operation and error type
	// ("invalid_argument" or "remote").
	GatewayFailures *prometheus.CounterVec

	// GatewayDuration observes gateway call duration in seconds, labeled by operation.
	GatewayDuration *prometheus.HistogramVec

	// SearchesCompleted counts successful literature searches, labeled by source.
	SearchesCompleted *prometheus.CounterVec

	// SearchesFailed counts failed literature searches, labeled by source.
	SearchesFailed *prometheus.CounterVec

	// SearchDuration observes search duration in seconds, labeled by source.
	SearchDuration *prometheus.HistogramVec

	// RecordsPerSearch observes the number of records returned per search, labeled by source.
	RecordsPerSearch *prometheus.HistogramVec

	// SourceRequestsTotal counts HTTP requests to literature APIs, labeled by source and endpoint.
	SourceRequestsTotal *prometheus.CounterVec

	// SourceRequestsFailed counts failed HTTP requests to literature APIs, labeled by source, endpoint, and error type.
	SourceRequestsFailed *prometheus.CounterVec

	// SourceRequestDuration observes HTTP request duration to literature APIs in seconds.
	SourceRequestDuration *prometheus.HistogramVec

	// SourceRateLimited counts rate-limited responses from literature APIs, labeled by source.
	SourceRateLimited *prometheus.CounterVec

	// SessionTransitions counts session state changes, labeled by transition
	// ("signed_in", "signed_out", "sign_in_failed", "sign_out_failed").
	SessionTransitions *prometheus.CounterVec

	// EventsPublished counts change events written to the broker, labeled by event type.
	EventsPublished *prometheus.CounterVec

	// EventsFailed counts change events that could not be published, labeled by event type.
	EventsFailed *prometheus.CounterVec

	// HTTPRequests counts API requests, labeled by method, route, and status code.
	HTTPRequests *prometheus.CounterVec

	// HTTPRequestDuration observes API request duration in seconds, labeled by method and route.
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The namespace is used as a prefix for all metric names.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		// Gateway
		GatewayOperations: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "small_paper_operations_total",
			Help:      "Total number of small paper gateway operations",
		}, []string{"operation"}),
		GatewayFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "small_paper_operations_failed_total",
			Help:      "Total number of failed small paper gateway operations",
		}, []string{"operation", "error_type"}),
		GatewayDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "small_paper_operation_duration_seconds",
			Help:      "Duration of small paper gateway operations in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"operation"}),

		// Searches
		SearchesCompleted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_completed_total",
			Help:      "Total number of literature searches completed",
		}, []string{"source"}),
		SearchesFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_failed_total",
			Help:      "Total number of literature searches failed",
		}, []string{"source"}),
		SearchDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Duration of literature searches in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"source"}),
		RecordsPerSearch: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "records_per_search",
			Help:      "Number of records returned per literature search",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250},
		}, []string{"source"}),

		// Sources
		SourceRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_requests_total",
			Help:      "Total number of requests to literature sources",
		}, []string{"source", "endpoint"}),
		SourceRequestsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_requests_failed_total",
			Help:      "Total number of failed requests to literature sources",
		}, []string{"source", "endpoint", "error_type"}),
		SourceRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "source_request_duration_seconds",
			Help:      "Duration of requests to literature sources in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"source", "endpoint"}),
		SourceRateLimited: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_rate_limited_total",
			Help:      "Total number of rate limit responses from literature sources",
		}, []string{"source"}),

		// Sessions
		SessionTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_transitions_total",
			Help:      "Total number of session state transitions",
		}, []string{"transition"}),

		// Events
		EventsPublished: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Total number of change events published",
		}, []string{"type"}),
		EventsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_failed_total",
			Help:      "Total number of change events that failed to publish",
		}, []string{"type"}),

		// HTTP
		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP API requests",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP API requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// RecordGatewayOperation records a successful gateway call.
func (m *Metrics) RecordGatewayOperation(operation string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.GatewayOperations.WithLabelValues(operation).Inc()
	m.GatewayDuration.WithLabelValues(operation).Observe(durationSeconds)
}

// RecordGatewayFailure records a failed gateway call.
func (m *Metrics) RecordGatewayFailure(operation, errorType string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.GatewayOperations.WithLabelValues(operation).Inc()
	m.GatewayFailures.WithLabelValues(operation, errorType).Inc()
	m.GatewayDuration.WithLabelValues(operation).Observe(durationSeconds)
}

// RecordSearchCompleted records that a search has completed.
func (m *Metrics) RecordSearchCompleted(source string, recordCount int, durationSeconds float64) {
	if m == nil {
		return
	}
	m.SearchesCompleted.WithLabelValues(source).Inc()
	m.SearchDuration.WithLabelValues(source).Observe(durationSeconds)
	m.RecordsPerSearch.WithLabelValues(source).Observe(float64(recordCount))
}

// RecordSearchFailed records that a search has failed.
func (m *Metrics) RecordSearchFailed(source string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.SearchesFailed.WithLabelValues(source).Inc()
	m.SearchDuration.WithLabelValues(source).Observe(durationSeconds)
}

// RecordSourceRequest records a request to a literature source.
func (m *Metrics) RecordSourceRequest(source, endpoint string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.SourceRequestsTotal.WithLabelValues(source, endpoint).Inc()
	m.SourceRequestDuration.WithLabelValues(source, endpoint).Observe(durationSeconds)
}

// RecordSourceRequestFailed records a failed request to a literature source.
func (m *Metrics) RecordSourceRequestFailed(source, endpoint, errorType string) {
	if m == nil {
		return
	}
	m.SourceRequestsFailed.WithLabelValues(source, endpoint, errorType).Inc()
}

// RecordSourceRateLimited records a rate limit response from a source.
func (m *Metrics) RecordSourceRateLimited(source string) {
	if m == nil {
		return
	}
	m.SourceRateLimited.WithLabelValues(source).Inc()
}

// RecordSessionTransition records a session state change.
func (m *Metrics) RecordSessionTransition(transition string) {
	if m == nil {
		return
	}
	m.SessionTransitions.WithLabelValues(transition).Inc()
}

// RecordEventPublished records a change event written to the broker.
func (m *Metrics) RecordEventPublished(eventType string) {
	if m == nil {
		return
	}
	m.EventsPublished.WithLabelValues(eventType).Inc()
}

// RecordEventFailed records a change event that could not be published.
func (m *Metrics) RecordEventFailed(eventType string) {
	if m == nil {
		return
	}
	m.EventsFailed.WithLabelValues(eventType).Inc()
}

// RecordHTTPRequest records a served API request.
func (m *Metrics) RecordHTTPRequest(method, route string, status int, durationSeconds float64) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(durationSeconds)
}
