// Package metrics provides Prometheus metrics for the scrolldown moment PBP service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Load outcome label values.
const (
	LoadResultSuccess    = "success"
	LoadResultFailure    = "failure"
	LoadResultSkipped    = "skipped"
	LoadResultSuperseded = "superseded"
)

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Core loader metrics
	loadsTotal       *prometheus.CounterVec
	fetchLatency     prometheus.Histogram
	eventsOrdered    prometheus.Histogram
	eventsFiltered   prometheus.Counter
	unresolvedEvents prometheus.Counter

	// Fetch cache
	cacheHits   prometheus.Counter
	cacheMisses prometheus.Counter

	// Sessions
	activeSessions   prometheus.Gauge
	sessionEvictions prometheus.Counter

	// Prefetch pipeline
	prefetchDuplicates     prometheus.Counter
	queueSize              prometheus.Gauge
	queueCapacity          prometheus.Gauge
	queueUtilization       prometheus.Gauge
	queueEnqueued          prometheus.Counter
	queueDequeued          prometheus.Counter
	queueEnqueueErrors     prometheus.Counter
	workerCount            prometheus.Gauge
	workerProcessed        prometheus.Counter
	workerErrors           prometheus.Counter
	workerProcessingMillis prometheus.Histogram

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorsByComponent *prometheus.CounterVec
	errorsByEndpoint  *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "scrolldown",
		subsystem:        "moment_pbp",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

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
	auto := promauto.With(m.registry)

	m.loadsTotal = auto.NewCounterVec(
		m.counterOpts("loads_total", "Total number of moment PBP loads by result"),
		[]string{"result"},
	)
	m.fetchLatency = auto.NewHistogram(m.histogramOpts(
		"fetch_latency_milliseconds",
		"Latency of the PBP fetch behind a load in milliseconds",
		[]float64{5, 10, 25, 50, 100, 150, 250, 500, 1000, 2500, 5000},
	))
	m.eventsOrdered = auto.NewHistogram(m.histogramOpts(
		"events_ordered",
		"Number of events published per successful load",
		[]float64{0, 1, 5, 10, 25, 50, 100, 250, 500, 1000},
	))
	m.eventsFiltered = auto.NewCounter(m.counterOpts(
		"events_filtered_total",
		"Events dropped because they occurred after the moment",
	))
	m.unresolvedEvents = auto.NewCounter(m.counterOpts(
		"events_unresolved_total",
		"Published events whose elapsed game time could not be resolved",
	))

	m.cacheHits = auto.NewCounter(m.counterOpts("cache_hits_total", "PBP cache hits"))
	m.cacheMisses = auto.NewCounter(m.counterOpts("cache_misses_total", "PBP cache misses"))

	m.activeSessions = auto.NewGauge(m.gaugeOpts("active_sessions", "Number of sessions holding a loader"))
	m.sessionEvictions = auto.NewCounter(m.counterOpts("session_evictions_total", "Sessions evicted to respect the session limit"))

	m.prefetchDuplicates = auto.NewCounter(m.counterOpts("prefetch_duplicates_total", "Prefetch requests skipped as duplicates"))
	m.queueSize = auto.NewGauge(m.gaugeOpts("queue_size", "Current size of the prefetch queue"))
	m.queueCapacity = auto.NewGauge(m.gaugeOpts("queue_capacity", "Maximum prefetch queue capacity"))
	m.queueUtilization = auto.NewGauge(m.gaugeOpts("queue_utilization_ratio", "Prefetch queue utilization ratio (size / capacity)"))
	m.queueEnqueued = auto.NewCounter(m.counterOpts("queue_enqueue_total", "Total number of prefetch jobs enqueued"))
	m.queueDequeued = auto.NewCounter(m.counterOpts("queue_dequeue_total", "Total number of prefetch jobs dequeued"))
	m.queueEnqueueErrors = auto.NewCounter(m.counterOpts("queue_enqueue_errors_total", "Total number of rejected prefetch enqueues"))
	m.workerCount = auto.NewGauge(m.gaugeOpts("worker_count", "Number of prefetch workers"))
	m.workerProcessed = auto.NewCounter(m.counterOpts("worker_processed_total", "Prefetch jobs completed successfully"))
	m.workerErrors = auto.NewCounter(m.counterOpts("worker_errors_total", "Prefetch jobs that failed"))
	m.workerProcessingMillis = auto.NewHistogram(m.histogramOpts(
		"worker_processing_latency_milliseconds",
		"Prefetch job processing latency in milliseconds",
		m.histogramBuckets,
	))

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "Total number of HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds", m.histogramBuckets),
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorsByComponent = auto.NewCounterVec(
		m.counterOpts("errors_by_component_total", "Total number of errors by component"),
		[]string{"component", "error_type"},
	)
	m.errorsByEndpoint = auto.NewCounterVec(
		m.counterOpts("errors_by_endpoint_total", "Total number of HTTP errors by endpoint"),
		[]string{"endpoint", "method", "error_type"},
	)

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_usage_bytes", "Allocated heap memory in bytes"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutine_count", "Number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(m.histogramOpts(
		"system_gc_pause_time_milliseconds",
		"GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
	))
}

// RecordLoad counts a loader outcome; result is one of the LoadResult* values.
func (m *Manager) RecordLoad(result string) {
	if m.enabled {
		m.loadsTotal.WithLabelValues(result).Inc()
	}
}

// RecordFetchLatency records fetch latency in milliseconds.
func (m *Manager) RecordFetchLatency(latencyMs float64) {
	if m.enabled {
		m.fetchLatency.Observe(latencyMs)
	}
}

// RecordOrderedEvents records the shape of a published timeline.
func (m *Manager) RecordOrderedEvents(published, filteredOut, unresolved int) {
	if !m.enabled {
		return
	}
	m.eventsOrdered.Observe(float64(published))
	m.eventsFiltered.Add(float64(filteredOut))
	m.unresolvedEvents.Add(float64(unresolved))
}

// Package-level helpers delegating to the global manager.

// RecordLoad counts a loader outcome on the global manager.
func RecordLoad(result string) { globalManager.RecordLoad(result) }

// RecordFetchLatency records fetch latency on the global manager.
func RecordFetchLatency(latencyMs float64) { globalManager.RecordFetchLatency(latencyMs) }

// RecordOrderedEvents records a published timeline on the global manager.
func RecordOrderedEvents(published, filteredOut, unresolved int) {
	globalManager.RecordOrderedEvents(published, filteredOut, unresolved)
}

// RecordCacheHit increments the cache hit counter.
func RecordCacheHit() { globalManager.cacheHits.Inc() }

// RecordCacheMiss increments the cache miss counter.
func RecordCacheMiss() { globalManager.cacheMisses.Inc() }

// UpdateActiveSessions sets the number of live sessions.
func UpdateActiveSessions(count int) { globalManager.activeSessions.Set(float64(count)) }

// RecordSessionEviction increments the session eviction counter.
func RecordSessionEviction() { globalManager.sessionEvictions.Inc() }

// RecordPrefetchDuplicate increments the duplicate prefetch counter.
func RecordPrefetchDuplicate() { globalManager.prefetchDuplicates.Inc() }

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) { globalManager.queueSize.Set(float64(size)) }

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) { globalManager.queueCapacity.Set(float64(capacity)) }

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) { globalManager.queueUtilization.Set(utilization) }

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() { globalManager.queueEnqueued.Inc() }

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() { globalManager.queueDequeued.Inc() }

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() { globalManager.queueEnqueueErrors.Inc() }

// UpdateWorkerCount sets the number of prefetch workers.
func UpdateWorkerCount(count int) { globalManager.workerCount.Set(float64(count)) }

// RecordWorkerProcessed increments the completed job counter.
func RecordWorkerProcessed() { globalManager.workerProcessed.Inc() }

// RecordWorkerError increments the failed job counter.
func RecordWorkerError() { globalManager.workerErrors.Inc() }

// RecordWorkerProcessingLatency records prefetch job latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingMillis.Observe(latencyMs)
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
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) { globalManager.systemMemoryUsage.Set(float64(bytes)) }

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) { globalManager.systemGoroutineCount.Set(float64(count)) }

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) { globalManager.systemGCPauseTime.Observe(pauseMs) }

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
