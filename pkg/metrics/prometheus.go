// Package metrics provides Prometheus metrics for the AQI classification service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector the service exports.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	inferenceBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Classification
	classifications    *prometheus.CounterVec
	unclassified       *prometheus.CounterVec
	inferenceLatency   *prometheus.HistogramVec
	inferenceErrors    *prometheus.CounterVec
	readingsSubmitted  prometheus.Counter
	readingsDuplicate  prometheus.Counter
	readingsRejected   *prometheus.CounterVec
	historyRecords     prometheus.Gauge
	publishedResults   *prometheus.CounterVec
	publishErrors      *prometheus.CounterVec
	modelsLoaded       prometheus.Gauge
	profilesConfigured prometheus.Gauge

	// Queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueDequeued      prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Workers
	workerCount             prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorsByComponent *prometheus.CounterVec
	errorsByType      *prometheus.CounterVec
	errorsByEndpoint  *prometheus.CounterVec
	errorLatency      *prometheus.HistogramVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "airq",
		subsystem:        "classifier",
		histogramBuckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000},
		inferenceBuckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 100, 250},
		constLabels:      prometheus.Labels{},
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
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
		Buckets: buckets,
	})
}

func (m *Manager) histogramVec(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
		Buckets: buckets,
	}, labels)
}

func (m *Manager) initializeMetrics() {
	m.classifications = m.counterVec("classifications_total",
		"Total number of classified readings by profile and category", "profile", "category")
	m.unclassified = m.counterVec("unclassified_total",
		"Total number of scores outside every category range", "profile")
	m.inferenceLatency = m.histogramVec("inference_latency_milliseconds",
		"Model inference latency in milliseconds", m.inferenceBuckets, "profile")
	m.inferenceErrors = m.counterVec("inference_errors_total",
		"Total number of failed classifications by profile and error kind", "profile", "kind")
	m.readingsSubmitted = m.counter("readings_submitted_total", "Total number of readings accepted for asynchronous classification")
	m.readingsDuplicate = m.counter("readings_duplicate_total", "Total number of duplicate reading ids dropped")
	m.readingsRejected = m.counterVec("readings_rejected_total",
		"Total number of readings rejected before classification by source and reason", "source", "reason")
	m.historyRecords = m.gauge("history_records", "Number of evaluations retained in history")
	m.publishedResults = m.counterVec("published_results_total", "Total number of evaluations published by sink", "sink")
	m.publishErrors = m.counterVec("publish_errors_total", "Total number of failed publishes by sink", "sink")
	m.modelsLoaded = m.gauge("models_loaded", "Number of model artifacts loaded")
	m.profilesConfigured = m.gauge("profiles_configured", "Number of classification profiles served")

	m.queueSize = m.gauge("queue_size", "Current size of the reading queue")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum queue capacity")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Queue utilization ratio (current size / capacity)")
	m.queueEnqueued = m.counter("queue_enqueue_total", "Total number of readings enqueued")
	m.queueDequeued = m.counter("queue_dequeue_total", "Total number of readings dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Total number of enqueue errors")

	m.workerCount = m.gauge("worker_count", "Current number of classification workers")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds",
		"Worker processing latency in milliseconds", m.histogramBuckets)
	m.workerErrors = m.counter("worker_errors_total", "Total number of worker errors")

	m.httpRequests = m.counterVec("http_requests_total",
		"Total number of HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds",
		"HTTP request duration in milliseconds", m.histogramBuckets, "endpoint", "method", "status_code")

	m.errorsByComponent = m.counterVec("errors_by_component_total",
		"Total number of errors by component", "component", "error_type")
	m.errorsByType = m.counterVec("errors_by_type_total",
		"Total number of errors by type", "error_type", "severity")
	m.errorsByEndpoint = m.counterVec("errors_by_endpoint_total",
		"Total number of errors by endpoint", "endpoint", "method", "error_type")
	m.errorLatency = m.histogramVec("error_latency_milliseconds",
		"Latency of operations that resulted in errors", m.histogramBuckets, "component", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "System memory usage in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000})
}

// RecordClassification counts one result. An empty category counts as unclassified.
func (m *Manager) RecordClassification(profile, category string) {
	if category == "" {
		m.unclassified.WithLabelValues(profile).Inc()
		category = "unclassified"
	}
	m.classifications.WithLabelValues(profile, category).Inc()
}

// RecordInferenceLatency observes model latency in milliseconds.
func (m *Manager) RecordInferenceLatency(profile string, latencyMs float64) {
	m.inferenceLatency.WithLabelValues(profile).Observe(latencyMs)
}

// RecordInferenceError counts a failed classification.
func (m *Manager) RecordInferenceError(profile, kind string) {
	m.inferenceErrors.WithLabelValues(profile, kind).Inc()
}

// RecordPublish counts a publish attempt on sink.
func (m *Manager) RecordPublish(sink string, err error) {
	if err != nil {
		m.publishErrors.WithLabelValues(sink).Inc()
		return
	}
	m.publishedResults.WithLabelValues(sink).Inc()
}

// RecordClassification increments classifications for profile and category.
func RecordClassification(profile, category string) {
	globalManager.RecordClassification(profile, category)
}

// RecordInferenceLatency records inference latency in milliseconds.
func RecordInferenceLatency(profile string, latencyMs float64) {
	globalManager.RecordInferenceLatency(profile, latencyMs)
}

// RecordInferenceError increments inference errors for profile and kind.
func RecordInferenceError(profile, kind string) {
	globalManager.RecordInferenceError(profile, kind)
}

// RecordReadingSubmitted increments the accepted readings counter.
func RecordReadingSubmitted() {
	globalManager.readingsSubmitted.Inc()
}

// RecordReadingDuplicate increments the duplicate readings counter.
func RecordReadingDuplicate() {
	globalManager.readingsDuplicate.Inc()
}

// RecordReadingRejected counts a reading dropped before classification.
func RecordReadingRejected(source, reason string) {
	globalManager.readingsRejected.WithLabelValues(source, reason).Inc()
}

// UpdateHistoryRecords sets the number of retained evaluations.
func UpdateHistoryRecords(count int) {
	globalManager.historyRecords.Set(float64(count))
}

// RecordPublish counts a publish on sink, successful when err is nil.
func RecordPublish(sink string, err error) {
	globalManager.RecordPublish(sink, err)
}

// UpdateModelsLoaded sets the number of loaded model artifacts.
func UpdateModelsLoaded(count int) {
	globalManager.modelsLoaded.Set(float64(count))
}

// UpdateProfilesConfigured sets the number of served profiles.
func UpdateProfilesConfigured(count int) {
	globalManager.profilesConfigured.Set(float64(count))
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeued.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// UpdateWorkerCount sets the current worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
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

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorsByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
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
