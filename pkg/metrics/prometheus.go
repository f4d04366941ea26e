// Package metrics provides Prometheus metrics for the fluency service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the fluency service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	damageBuckets    []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Speech analysis
	analyses             *prometheus.CounterVec
	analysisLatency      prometheus.Histogram
	transcriptionLatency *prometheus.HistogramVec
	silenceLatency       prometheus.Histogram
	pausesDetected       prometheus.Counter
	hesitations          prometheus.Counter
	damage               prometheus.Histogram
	maxPause             prometheus.Histogram

	// Leaderboard
	leaderboardSubmissions *prometheus.CounterVec
	leaderboardEntries     prometheus.Gauge
	leaderboardQuery       prometheus.Histogram

	// Analysis queue and workers
	queueSize       prometheus.Gauge
	queueCapacity   prometheus.Gauge
	queueRejections prometheus.Counter
	workerCount     prometheus.Gauge
	workerBusy      prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorsByKind        *prometheus.CounterVec

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
		namespace:        "fluency",
		subsystem:        "",
		histogramBuckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
		damageBuckets:    []float64{0, 5, 10, 20, 50, 100},
		constLabels:      prometheus.Labels{},
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: buckets, ConstLabels: m.constLabels}
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)

	m.analyses = auto.NewCounterVec(
		m.counterOpts("speech_analyses_total", "Speech analyses by outcome (ok or failure kind)"),
		[]string{"outcome"},
	)
	m.analysisLatency = auto.NewHistogram(m.histogramOpts(
		"analysis_latency_milliseconds", "End-to-end analysis latency in milliseconds", m.histogramBuckets))
	m.transcriptionLatency = auto.NewHistogramVec(
		m.histogramOpts("transcription_latency_milliseconds", "External transcription latency in milliseconds", m.histogramBuckets),
		[]string{"provider"},
	)
	m.silenceLatency = auto.NewHistogram(m.histogramOpts(
		"silence_detection_latency_milliseconds", "Decode plus silence detection latency in milliseconds", m.histogramBuckets))
	m.pausesDetected = auto.NewCounter(m.counterOpts(
		"pauses_detected_total", "Pauses longer than the hesitation threshold"))
	m.hesitations = auto.NewCounter(m.counterOpts(
		"hesitations_total", "Analyses that resulted in hesitation damage"))
	m.damage = auto.NewHistogram(m.histogramOpts(
		"damage", "Damage assigned per analysis", m.damageBuckets))
	m.maxPause = auto.NewHistogram(m.histogramOpts(
		"max_pause_seconds", "Longest pause per analysis in seconds", []float64{0.5, 1, 2, 3, 5, 10, 30}))

	m.leaderboardSubmissions = auto.NewCounterVec(
		m.counterOpts("leaderboard_submissions_total", "Leaderboard submissions by source"),
		[]string{"source"},
	)
	m.leaderboardEntries = auto.NewGauge(m.gaugeOpts(
		"leaderboard_entries", "Number of users on the leaderboard"))
	m.leaderboardQuery = auto.NewHistogram(m.histogramOpts(
		"leaderboard_query_latency_milliseconds", "Leaderboard read latency in milliseconds",
		[]float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 50}))

	m.queueSize = auto.NewGauge(m.gaugeOpts("analysis_queue_size", "Jobs waiting in the analysis queue"))
	m.queueCapacity = auto.NewGauge(m.gaugeOpts("analysis_queue_capacity", "Analysis queue capacity"))
	m.queueRejections = auto.NewCounter(m.counterOpts(
		"analysis_queue_rejections_total", "Analyses rejected because the queue was full"))
	m.workerCount = auto.NewGauge(m.gaugeOpts("worker_count", "Configured analysis workers"))
	m.workerBusy = auto.NewGauge(m.gaugeOpts("worker_busy", "Analysis workers currently running a job"))

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "Total number of HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds", m.histogramBuckets),
		[]string{"endpoint", "method", "status_code"},
	)
	m.errorsByKind = auto.NewCounterVec(
		m.counterOpts("errors_by_kind_total", "Errors by component and failure kind"),
		[]string{"component", "kind"},
	)

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_usage_bytes", "Heap memory in use in bytes"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutine_count", "Number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(m.histogramOpts(
		"system_gc_pause_time_milliseconds", "Average GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000}))
}

// RecordAnalysis counts a finished analysis; outcome is "ok" or a failure kind.
func RecordAnalysis(outcome string, latencyMs float64) {
	globalManager.analyses.WithLabelValues(outcome).Inc()
	globalManager.analysisLatency.Observe(latencyMs)
}

// RecordTranscriptionLatency records the external STT call latency.
func RecordTranscriptionLatency(provider string, latencyMs float64) {
	globalManager.transcriptionLatency.WithLabelValues(provider).Observe(latencyMs)
}

// RecordSilenceDetectionLatency records decode plus detection latency.
func RecordSilenceDetectionLatency(latencyMs float64) {
	globalManager.silenceLatency.Observe(latencyMs)
}

// RecordScore records the scoring outcome of one analysis.
func RecordScore(damage, pauseCount int, maxPauseSeconds float64) {
	globalManager.damage.Observe(float64(damage))
	globalManager.maxPause.Observe(maxPauseSeconds)
	if pauseCount > 0 {
		globalManager.pausesDetected.Add(float64(pauseCount))
	}
	if damage > 0 {
		globalManager.hesitations.Inc()
	}
}

// RecordLeaderboardSubmission counts a submission; source is "analysis" or "form".
func RecordLeaderboardSubmission(source string) {
	globalManager.leaderboardSubmissions.WithLabelValues(source).Inc()
}

// UpdateLeaderboardEntries sets the number of users on the leaderboard.
func UpdateLeaderboardEntries(count int) {
	globalManager.leaderboardEntries.Set(float64(count))
}

// RecordLeaderboardQueryLatency records a leaderboard read.
func RecordLeaderboardQueryLatency(latencyMs float64) {
	globalManager.leaderboardQuery.Observe(latencyMs)
}

// UpdateQueueSize sets the number of queued analysis jobs.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the analysis queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueRejection counts a job rejected by a full queue.
func RecordQueueRejection() {
	globalManager.queueRejections.Inc()
}

// UpdateWorkerCount sets the configured worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// WorkerBusy adjusts the busy worker gauge by delta.
func WorkerBusy(delta int) {
	globalManager.workerBusy.Add(float64(delta))
}

// RecordHTTPRequest records an HTTP request and its duration.
func RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordError records an error with component and kind labels.
func RecordError(component, kind string) {
	globalManager.errorsByKind.WithLabelValues(component, kind).Inc()
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

// Configure rebuilds the global manager with opts on a fresh custom registry.
// Call it at startup before metrics are served.
func Configure(opts ...Option) {
	registry := prometheus.NewRegistry()
	customRegistry = registry
	globalManager = NewManager(append(append([]Option{}, opts...), WithPrometheusRegistry(registry))...)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
