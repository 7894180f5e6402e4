// Package metrics provides Prometheus metrics for the skill assessment
// service.
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

// Manager manages all Prometheus metrics for the assessment service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Core Business Metrics - Assessment throughput and quality
	assessmentsTotal    *prometheus.CounterVec
	skillsUnavailable   *prometheus.CounterVec
	disagreementFlags   prometheus.Counter
	missingSourcesTotal prometheus.Counter
	subjectLatency      prometheus.Histogram
	inferenceErrors     prometheus.Counter

	// Batch Metrics
	batchSubjectsSuccessful prometheus.Counter
	batchSubjectsFailed     prometheus.Counter
	batchRuns               prometheus.Counter
	rateLimitedTotal        prometheus.Counter

	// Model Registry Metrics
	modelsLoaded        prometheus.Gauge
	modelReloads        prometheus.Counter
	modelReloadFailures prometheus.Counter

	// Weights Configuration Metrics
	weightsReloads        prometheus.Counter
	weightsReloadFailures prometheus.Counter
	weightsUpdates        prometheus.Counter

	// Ingestion Metrics
	requestsDuplicate prometheus.Counter

	// Operational Health Metrics
	queueSize        prometheus.Gauge
	queueCapacity    prometheus.Gauge
	queueUtilization prometheus.Gauge
	queueEnqueues    prometheus.Counter
	queueDequeues    prometheus.Counter
	queueEnqueueErrs prometheus.Counter
	workerCount      prometheus.Gauge
	workerLatency    prometheus.Histogram
	workerErrors     prometheus.Counter

	// Store Metrics - Shard and record management
	storeShardCount   prometheus.Gauge
	storeRecordsTotal prometheus.Gauge
	storeSubjects     prometheus.Gauge
	storeWriteLatency prometheus.Histogram
	storeQueryLatency prometheus.Histogram

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// System Metrics - process health
	systemMemoryUsage prometheus.Gauge
	systemGoroutines  prometheus.Gauge
	systemGCPause     prometheus.Histogram
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
		namespace:        "ueai",
		subsystem:        "assessment",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		metricPrefix:     "",
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

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	// Ensure metrics are registered on the configured registry (custom by default)
	auto := promauto.With(m.registry)

	// Core Business Metrics
	m.assessmentsTotal = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "assessments_total",
			Help:      "Total number of skill assessments produced, by skill",
		},
		[]string{"skill"},
	)

	m.skillsUnavailable = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "skills_unavailable_total",
			Help:      "Total number of skills omitted because no evidence source had data",
		},
		[]string{"skill"},
	)

	m.disagreementFlags = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "disagreement_flags_total",
		Help:      "Total number of assessments flagged for review due to source disagreement",
	})

	m.missingSourcesTotal = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "missing_sources_total",
		Help:      "Total count of evidence sources absent at fusion time",
	})

	m.subjectLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "subject_latency_seconds",
		Help:      "Histogram of full per-subject pipeline latency in seconds",
		Buckets:   m.histogramBuckets,
	})

	m.inferenceErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "inference_errors_total",
		Help:      "Total number of model inference failures",
	})

	// Batch Metrics
	m.batchSubjectsSuccessful = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "batch_subjects_successful_total",
		Help:      "Total number of subjects assessed successfully in batches",
	})

	m.batchSubjectsFailed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "batch_subjects_failed_total",
		Help:      "Total number of subjects that failed inside batches",
	})

	m.batchRuns = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "batch_runs_total",
		Help:      "Total number of batch runs",
	})

	m.rateLimitedTotal = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "rate_limited_total",
		Help:      "Total number of subject runs rejected by the downstream rate limiter",
	})

	// Model Registry Metrics
	m.modelsLoaded = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "models_loaded",
		Help:      "Number of model artifacts currently loaded in the registry",
	})

	m.modelReloads = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "model_reloads_total",
		Help:      "Total number of successful model registry reloads",
	})

	m.modelReloadFailures = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "model_reload_failures_total",
		Help:      "Total number of model registry reloads that kept the previous generation",
	})

	// Weights Configuration Metrics
	m.weightsReloads = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "weights_reloads_total",
		Help:      "Total number of successful fusion weight reloads",
	})

	m.weightsReloadFailures = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "weights_reload_failures_total",
		Help:      "Total number of fusion weight reloads that kept the previous generation",
	})

	m.weightsUpdates = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "weights_updates_total",
		Help:      "Total number of administrative fusion weight updates",
	})

	// Ingestion Metrics
	m.requestsDuplicate = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "requests_duplicate_total",
		Help:      "Total number of duplicate assessment requests rejected by request ID",
	})

	// Operational Health Metrics
	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_size",
		Help:      "Current size of the assessment request queue (backlog indicator)",
	})

	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_capacity",
		Help:      "Maximum queue capacity",
	})

	m.queueUtilization = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_utilization_ratio",
		Help:      "Queue utilization ratio (current size / capacity)",
	})

	m.queueEnqueues = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_enqueue_total",
		Help:      "Total number of requests enqueued",
	})

	m.queueDequeues = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_dequeue_total",
		Help:      "Total number of requests dequeued",
	})

	m.queueEnqueueErrs = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_enqueue_errors_total",
		Help:      "Total number of enqueue rejections (queue full)",
	})

	m.workerCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_count",
		Help:      "Current number of pipeline workers (processing capacity)",
	})

	m.workerLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_processing_latency_milliseconds",
		Help:      "Worker processing latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.workerErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_errors_total",
		Help:      "Total number of worker errors",
	})

	// Store Metrics
	m.storeShardCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_shard_count",
		Help:      "Total number of assessment store shards",
	})

	m.storeRecordsTotal = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_records_total",
		Help:      "Total number of assessments across all shards",
	})

	m.storeSubjects = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_subjects_total",
		Help:      "Total number of distinct subjects in the store (business scale)",
	})

	m.storeWriteLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_write_latency_milliseconds",
		Help:      "Assessment store write latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.storeQueryLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_query_latency_milliseconds",
		Help:      "Assessment store query latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	// HTTP Performance Metrics - User experience indicators
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
			Help:      "HTTP request duration in milliseconds (user experience)",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	// System Metrics
	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_memory_bytes",
		Help:      "Current heap allocation in bytes",
	})

	m.systemGoroutines = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_goroutines",
		Help:      "Current number of goroutines",
	})

	m.systemGCPause = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_gc_pause_milliseconds",
		Help:      "Average GC pause time in milliseconds",
		Buckets:   m.histogramBuckets,
	})
}

// RecordAssessment increments the per-skill assessment counter.
func RecordAssessment(skill string) {
	globalManager.assessmentsTotal.WithLabelValues(skill).Inc()
}

// RecordSkillUnavailable counts a skill omitted for lack of evidence.
func RecordSkillUnavailable(skill string) {
	globalManager.skillsUnavailable.WithLabelValues(skill).Inc()
}

// RecordDisagreementFlag counts an assessment flagged for review.
func RecordDisagreementFlag() {
	globalManager.disagreementFlags.Inc()
}

// RecordMissingSources counts sources absent at fusion time.
func RecordMissingSources(count int) {
	globalManager.missingSourcesTotal.Add(float64(count))
}

// RecordSubjectLatency records one subject's pipeline latency in seconds.
func RecordSubjectLatency(seconds float64) {
	globalManager.subjectLatency.Observe(seconds)
}

// RecordInferenceError increments the inference error counter.
func RecordInferenceError() {
	globalManager.inferenceErrors.Inc()
}

// RecordBatch records one batch outcome.
func RecordBatch(successful, failed int) {
	globalManager.batchRuns.Inc()
	globalManager.batchSubjectsSuccessful.Add(float64(successful))
	globalManager.batchSubjectsFailed.Add(float64(failed))
}

// RecordRateLimited counts a subject run rejected by the limiter.
func RecordRateLimited() {
	globalManager.rateLimitedTotal.Inc()
}

// UpdateModelsLoaded sets the number of loaded model artifacts.
func UpdateModelsLoaded(count int) {
	globalManager.modelsLoaded.Set(float64(count))
}

// RecordModelReload increments the successful model reload counter.
func RecordModelReload() {
	globalManager.modelReloads.Inc()
}

// RecordModelReloadFailure increments the failed model reload counter.
func RecordModelReloadFailure() {
	globalManager.modelReloadFailures.Inc()
}

// RecordWeightsReload increments the successful weights reload counter.
func RecordWeightsReload() {
	globalManager.weightsReloads.Inc()
}

// RecordWeightsReloadFailure increments the failed weights reload counter.
func RecordWeightsReloadFailure() {
	globalManager.weightsReloadFailures.Inc()
}

// RecordWeightsUpdate increments the administrative weights update counter.
func RecordWeightsUpdate() {
	globalManager.weightsUpdates.Inc()
}

// RecordRequestDuplicate increments the duplicate request counter.
func RecordRequestDuplicate() {
	globalManager.requestsDuplicate.Inc()
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
	globalManager.queueEnqueues.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeues.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrs.Inc()
}

// UpdateWorkerCount sets the current worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// UpdateStoreShardCount sets the total number of store shards.
func UpdateStoreShardCount(count int) {
	globalManager.storeShardCount.Set(float64(count))
}

// UpdateStoreRecordsTotal sets the total number of stored assessments.
func UpdateStoreRecordsTotal(count int) {
	globalManager.storeRecordsTotal.Set(float64(count))
}

// UpdateStoreSubjects sets the number of distinct subjects stored.
func UpdateStoreSubjects(count int) {
	globalManager.storeSubjects.Set(float64(count))
}

// RecordStoreWriteLatency records store write latency.
func RecordStoreWriteLatency(latencyMs float64) {
	globalManager.storeWriteLatency.Observe(latencyMs)
}

// RecordStoreQueryLatency records store query latency.
func RecordStoreQueryLatency(latencyMs float64) {
	globalManager.storeQueryLatency.Observe(latencyMs)
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// UpdateSystemMemoryUsage updates the heap allocation gauge.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount updates the goroutine count gauge.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutines.Set(float64(count))
}

// RecordSystemGCPauseTime records an average GC pause observation.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPause.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
