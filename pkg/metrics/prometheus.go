// Package metrics provides Prometheus metrics for the drivescore service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Finalize outcomes.
const (
	OutcomeScored       = "scored"
	OutcomeInsufficient = "insufficient"
	OutcomeFailed       = "failed"
)

// Manager manages all Prometheus metrics for the drivescore service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	refreshInterval  time.Duration
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Ingest
	ingestRequests   *prometheus.CounterVec
	samplesIngested  prometheus.Counter
	samplesDuplicate prometheus.Counter
	tripsCreated     prometheus.Counter

	// Finalize pipeline
	finalizeRuns        *prometheus.CounterVec
	finalizeRunDuration prometheus.Histogram
	tripsFinalized      *prometheus.CounterVec
	tripDuration        prometheus.Histogram
	eventsDetected      *prometheus.CounterVec
	tripScores          *prometheus.HistogramVec
	driverScores        prometheus.Histogram
	tripsByStatus       *prometheus.GaugeVec

	// Providers
	providerErrors  *prometheus.CounterVec
	providerLatency *prometheus.HistogramVec

	// Repository
	repositoryLatency *prometheus.HistogramVec

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error Metrics
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec
	errorLatency         *prometheus.HistogramVec

	// System Performance Metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "drivescore",
		subsystem:        "pipeline",
		histogramBuckets: prometheus.DefBuckets,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	// Apply all options
	for _, opt := range opts {
		opt(m)
	}

	// Initialize metrics
	m.initializeMetrics()

	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.customLabels,
	}
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	// Ensure metrics are registered on the configured registry (custom by default)
	auto := promauto.With(m.registry)
	scoreBuckets := prometheus.LinearBuckets(300, 50, 15)

	m.ingestRequests = auto.NewCounterVec(
		m.counterOpts("ingest_requests_total", "Total number of ingest batches by outcome"),
		[]string{"outcome"},
	)
	m.samplesIngested = auto.NewCounter(m.counterOpts("samples_ingested_total", "Total number of telemetry samples stored"))
	m.samplesDuplicate = auto.NewCounter(m.counterOpts("samples_duplicate_total", "Total number of telemetry samples ignored as duplicates"))
	m.tripsCreated = auto.NewCounter(m.counterOpts("trips_created_total", "Total number of trips opened by ingest"))

	m.finalizeRuns = auto.NewCounterVec(
		m.counterOpts("finalize_runs_total", "Total number of finalize runs by result"),
		[]string{"result"},
	)
	m.finalizeRunDuration = auto.NewHistogram(m.histogramOpts(
		"finalize_run_duration_milliseconds", "Duration of finalize runs in milliseconds",
		prometheus.ExponentialBuckets(10, 2, 14),
	))
	m.tripsFinalized = auto.NewCounterVec(
		m.counterOpts("trips_finalized_total", "Total number of trips finalized by outcome"),
		[]string{"outcome"},
	)
	m.tripDuration = auto.NewHistogram(m.histogramOpts(
		"trip_finalize_duration_milliseconds", "Time spent finalizing a single trip in milliseconds",
		m.histogramBuckets,
	))
	m.eventsDetected = auto.NewCounterVec(
		m.counterOpts("events_detected_total", "Total number of driving events detected by type"),
		[]string{"type"},
	)
	m.tripScores = auto.NewHistogramVec(
		m.histogramOpts("trip_safety_score", "Distribution of trip safety scores", scoreBuckets),
		[]string{"confidence"},
	)
	m.driverScores = auto.NewHistogram(m.histogramOpts(
		"driver_score", "Distribution of daily rolling driver scores", scoreBuckets,
	))
	m.tripsByStatus = auto.NewGaugeVec(
		m.gaugeOpts("trips", "Current number of trips by status"),
		[]string{"status"},
	)

	m.providerErrors = auto.NewCounterVec(
		m.counterOpts("provider_errors_total", "Total number of external provider failures"),
		[]string{"provider"},
	)
	m.providerLatency = auto.NewHistogramVec(
		m.histogramOpts("provider_latency_milliseconds", "External provider call latency in milliseconds", m.histogramBuckets),
		[]string{"provider"},
	)

	m.repositoryLatency = auto.NewHistogramVec(
		m.histogramOpts("repository_latency_milliseconds", "Repository operation latency in milliseconds", m.histogramBuckets),
		[]string{"operation"},
	)

	// HTTP Performance Metrics - User experience indicators
	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "Total number of HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds", m.histogramBuckets),
		[]string{"endpoint", "method", "status_code"},
	)

	// Error Metrics - Detailed error tracking
	m.errorRateByComponent = auto.NewCounterVec(
		m.counterOpts("errors_by_component_total", "Total number of errors by component"),
		[]string{"component", "error_type"},
	)
	m.errorRateByType = auto.NewCounterVec(
		m.counterOpts("errors_by_type_total", "Total number of errors by type"),
		[]string{"error_type", "severity"},
	)
	m.errorRateByEndpoint = auto.NewCounterVec(
		m.counterOpts("errors_by_endpoint_total", "Total number of errors by endpoint"),
		[]string{"endpoint", "method", "error_type"},
	)
	m.errorLatency = auto.NewHistogramVec(
		m.histogramOpts("error_latency_milliseconds", "Latency of operations that resulted in errors", m.histogramBuckets),
		[]string{"component", "error_type"},
	)

	// System Performance Metrics
	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_usage_bytes", "System memory usage in bytes"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutine_count", "Number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(m.histogramOpts(
		"system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
	))
}

// RecordIngestRequest counts an ingest batch by outcome.
func RecordIngestRequest(outcome string) {
	globalManager.ingestRequests.WithLabelValues(outcome).Inc()
}

// RecordSamplesIngested adds stored and duplicate sample counts.
func RecordSamplesIngested(stored, duplicate int) {
	globalManager.samplesIngested.Add(float64(stored))
	globalManager.samplesDuplicate.Add(float64(duplicate))
}

// RecordTripCreated increments the trips created counter.
func RecordTripCreated() {
	globalManager.tripsCreated.Inc()
}

// RecordFinalizeRun records a finalize run and its duration.
func RecordFinalizeRun(result string, durationMs float64) {
	globalManager.finalizeRuns.WithLabelValues(result).Inc()
	globalManager.finalizeRunDuration.Observe(durationMs)
}

// RecordTripFinalized records the outcome and duration of one trip.
func RecordTripFinalized(outcome string, durationMs float64) {
	globalManager.tripsFinalized.WithLabelValues(outcome).Inc()
	globalManager.tripDuration.Observe(durationMs)
}

// RecordEventDetected increments the detected events counter.
func RecordEventDetected(eventType string) {
	globalManager.eventsDetected.WithLabelValues(eventType).Inc()
}

// RecordTripScore observes a trip safety score.
func RecordTripScore(confidence string, tss int) {
	globalManager.tripScores.WithLabelValues(confidence).Observe(float64(tss))
}

// RecordDriverScore observes a daily driver score.
func RecordDriverScore(rds int) {
	globalManager.driverScores.Observe(float64(rds))
}

// UpdateTripsByStatus sets the number of trips in a status.
func UpdateTripsByStatus(status string, count int) {
	globalManager.tripsByStatus.WithLabelValues(status).Set(float64(count))
}

// RecordProviderCall records the latency of a provider call and counts it as
// an error when failed is set.
func RecordProviderCall(provider string, latencyMs float64, failed bool) {
	globalManager.providerLatency.WithLabelValues(provider).Observe(latencyMs)
	if failed {
		globalManager.providerErrors.WithLabelValues(provider).Inc()
	}
}

// RecordRepositoryLatency records the latency of a repository operation.
func RecordRepositoryLatency(operation string, latencyMs float64) {
	globalManager.repositoryLatency.WithLabelValues(operation).Observe(latencyMs)
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorLatency records the latency of an operation that resulted in an error.
func RecordErrorLatency(component, errorType string, latencyMs float64) {
	globalManager.errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
