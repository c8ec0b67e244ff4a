// Package metrics provides Prometheus metrics for the rollcall attendance service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Match result label values.
const (
	ResultKnown   = "known"
	ResultUnknown = "unknown"
)

// Manager owns every Prometheus collector exported by rollcall.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Session pipeline
	framesProcessed   prometheus.Counter
	frameErrors       prometheus.Counter
	frameLatency      prometheus.Histogram
	facesDetected     prometheus.Counter
	providerLatency   prometheus.Histogram
	providerErrors    prometheus.Counter
	queueSize         prometheus.Gauge
	queueCapacity     prometheus.Gauge
	sessionIdentities prometheus.Gauge

	// Matching
	matches       *prometheus.CounterVec
	matchDistance prometheus.Histogram

	// Roster
	rosterSize        prometheus.Gauge
	enrollmentSkipped *prometheus.CounterVec

	// Ledger
	attendanceRecorded  prometheus.Counter
	attendanceDuplicate prometheus.Counter
	ledgerWriteErrors   prometheus.Counter
	ledgerWriteLatency  prometheus.Histogram

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorRateByComponent *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton used by the package-level helpers

// customRegistry keeps the default Go collectors out of /healthz.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // shared registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "rollcall",
		subsystem:        "attendance",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
	})
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
		Buckets:   buckets,
	})
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for all collectors
	auto := promauto.With(m.registry)

	m.framesProcessed = m.counter("frames_processed_total", "Total number of frames fully processed by the session loop")
	m.frameErrors = m.counter("frame_errors_total", "Total number of frame capture failures")
	m.frameLatency = m.histogram("frame_processing_latency_milliseconds", "Per-frame processing latency in milliseconds", m.histogramBuckets)
	m.facesDetected = m.counter("faces_detected_total", "Total number of faces returned by the embedding provider on live frames")
	m.providerLatency = m.histogram("provider_latency_milliseconds", "Embedding provider call latency in milliseconds", m.histogramBuckets)
	m.providerErrors = m.counter("provider_errors_total", "Total number of embedding provider failures")
	m.queueSize = m.gauge("queue_size", "Frames waiting between capture and matching")
	m.queueCapacity = m.gauge("queue_capacity", "Capacity of the frame hand-off queue")
	m.sessionIdentities = m.gauge("session_identities", "Identities logged in the current session")

	m.matches = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "matches_total",
			Help:      "Total number of probes matched, by result",
		},
		[]string{"result"},
	)
	m.matchDistance = m.histogram("match_distance", "Distance of the winning roster entry for identified probes",
		[]float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 1.0})

	m.rosterSize = m.gauge("roster_size", "Number of enrolled identities")
	m.enrollmentSkipped = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "enrollment_skipped_total",
			Help:      "Enrollment images skipped, by reason",
		},
		[]string{"reason"},
	)

	m.attendanceRecorded = m.counter("records_total", "Total number of attendance records written")
	m.attendanceDuplicate = m.counter("duplicates_total", "Total number of sightings of identities already logged this session")
	m.ledgerWriteErrors = m.counter("ledger_write_errors_total", "Total number of failed ledger writes")
	m.ledgerWriteLatency = m.histogram("ledger_write_latency_milliseconds", "Ledger append latency in milliseconds", m.histogramBuckets)

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by endpoint and method",
		},
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_request_duration_milliseconds",
			Help:      "HTTP request duration in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorRateByComponent = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "errors_by_component_total",
			Help:      "Total number of errors by component",
		},
		[]string{"component", "error_type"},
	)

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Heap memory in use in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_time_milliseconds", "Average GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000})
}

// RecordFrameProcessed increments the processed frames counter and observes its latency.
func RecordFrameProcessed(latencyMs float64) {
	globalManager.framesProcessed.Inc()
	globalManager.frameLatency.Observe(latencyMs)
}

// RecordFrameError increments the capture failure counter.
func RecordFrameError() {
	globalManager.frameErrors.Inc()
}

// RecordFacesDetected adds n faces to the detected counter.
func RecordFacesDetected(n int) {
	globalManager.facesDetected.Add(float64(n))
}

// RecordProviderLatency records an embedding provider call latency.
func RecordProviderLatency(latencyMs float64) {
	globalManager.providerLatency.Observe(latencyMs)
}

// RecordProviderError increments the provider failure counter.
func RecordProviderError() {
	globalManager.providerErrors.Inc()
}

// UpdateQueueSize sets the current frame queue length.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the frame queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateSessionIdentities sets the number of identities logged this session.
func UpdateSessionIdentities(n int64) {
	globalManager.sessionIdentities.Set(float64(n))
}

// RecordMatch counts a probe by result; known matches also observe their distance.
func RecordMatch(known bool, distance float64) {
	if !known {
		globalManager.matches.WithLabelValues(ResultUnknown).Inc()
		return
	}
	globalManager.matches.WithLabelValues(ResultKnown).Inc()
	globalManager.matchDistance.Observe(distance)
}

// UpdateRosterSize sets the number of enrolled identities.
func UpdateRosterSize(n int) {
	globalManager.rosterSize.Set(float64(n))
}

// RecordEnrollmentSkipped counts an enrollment image skipped for reason.
func RecordEnrollmentSkipped(reason string) {
	globalManager.enrollmentSkipped.WithLabelValues(reason).Inc()
}

// RecordAttendance increments the written records counter.
func RecordAttendance(latencyMs float64) {
	globalManager.attendanceRecorded.Inc()
	globalManager.ledgerWriteLatency.Observe(latencyMs)
}

// RecordAttendanceDuplicate increments the already-logged sightings counter.
func RecordAttendanceDuplicate() {
	globalManager.attendanceDuplicate.Inc()
}

// RecordLedgerWriteError increments the failed ledger writes counter.
func RecordLedgerWriteError() {
	globalManager.ledgerWriteErrors.Inc()
}

// RecordHTTPRequest records an HTTP request and its duration.
func RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the heap memory in use in bytes.
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
