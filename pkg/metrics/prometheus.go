// Package metrics provides Prometheus metrics for the rallyeval service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default histogram buckets for latencies in milliseconds.
var defaultLatencyBuckets = []float64{0.1, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000}

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Evaluation metrics
	evaluations       prometheus.Counter
	evaluationErrors  *prometheus.CounterVec
	evaluationLatency prometheus.Histogram
	framesEvaluated   prometheus.Counter
	instances         *prometheus.CounterVec
	recall            *prometheus.GaugeVec
	renders           *prometheus.CounterVec

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorRateByEndpoint *prometheus.CounterVec
	errorRateByType     *prometheus.CounterVec

	// System metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
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
		namespace:        "rallyeval",
		subsystem:        "matcher",
		histogramBuckets: defaultLatencyBuckets,
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

func (m *Manager) histogramOpts(name, help string) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels, Buckets: m.histogramBuckets}
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.evaluations = auto.NewCounter(m.counterOpts("evaluations_total", "Total number of completed evaluations"))
	m.evaluationErrors = auto.NewCounterVec(m.counterOpts("evaluation_errors_total", "Evaluations rejected by validation, by kind"), []string{"kind"})
	m.evaluationLatency = auto.NewHistogram(m.histogramOpts("evaluation_latency_milliseconds", "Evaluation latency in milliseconds"))
	m.framesEvaluated = auto.NewCounter(m.counterOpts("frames_evaluated_total", "Total number of frame records evaluated"))
	m.instances = auto.NewCounterVec(m.counterOpts("instances_total", "Ground-truth events classified, by event type and outcome"), []string{"event", "outcome"})
	m.recall = auto.NewGaugeVec(m.gaugeOpts("last_recall_ratio", "Correct/total of the most recent evaluation, by event type"), []string{"event"})
	m.renders = auto.NewCounterVec(m.counterOpts("renders_total", "Visualizations rendered, by kind"), []string{"kind"})

	m.httpRequests = auto.NewCounterVec(m.counterOpts("http_requests_total", "Total number of HTTP requests by endpoint and method"), []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds"), []string{"endpoint", "method", "status_code"})
	m.errorRateByEndpoint = auto.NewCounterVec(m.counterOpts("errors_by_endpoint_total", "HTTP errors by endpoint, method and error type"), []string{"endpoint", "method", "error_type"})
	m.errorRateByType = auto.NewCounterVec(m.counterOpts("errors_by_type_total", "HTTP errors by type and severity"), []string{"error_type", "severity"})

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_bytes", "Allocated heap memory in bytes"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutines", "Number of goroutines"))
}

// RecordEvaluation records one successful evaluation.
func (m *Manager) RecordEvaluation(latencyMs float64, frames int) {
	m.evaluations.Inc()
	m.evaluationLatency.Observe(latencyMs)
	m.framesEvaluated.Add(float64(frames))
}

// RecordInstances adds n classified ground-truth events.
func (m *Manager) RecordInstances(event, outcome string, n int) {
	if n > 0 {
		m.instances.WithLabelValues(event, outcome).Add(float64(n))
	}
}

// UpdateRecall sets the recall of the most recent evaluation.
func (m *Manager) UpdateRecall(event string, recall float64) {
	m.recall.WithLabelValues(event).Set(recall)
}

// RecordEvaluationError counts a rejected evaluation.
func (m *Manager) RecordEvaluationError(kind string) {
	m.evaluationErrors.WithLabelValues(kind).Inc()
}

// RecordRender counts a rendered visualization.
func (m *Manager) RecordRender(kind string) {
	m.renders.WithLabelValues(kind).Inc()
}

// Global helpers.

// RecordEvaluation records one successful evaluation.
func RecordEvaluation(latencyMs float64, frames int) {
	globalManager.RecordEvaluation(latencyMs, frames)
}

// RecordInstances adds n classified ground-truth events.
func RecordInstances(event, outcome string, n int) { globalManager.RecordInstances(event, outcome, n) }

// UpdateRecall sets the recall of the most recent evaluation.
func UpdateRecall(event string, recall float64) { globalManager.UpdateRecall(event, recall) }

// RecordEvaluationError counts a rejected evaluation.
func RecordEvaluationError(kind string) { globalManager.RecordEvaluationError(kind) }

// RecordRender counts a rendered visualization.
func RecordRender(kind string) { globalManager.RecordRender(kind) }

// RecordHTTPRequest increments the HTTP request counter.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// Default returns the process-wide manager backing the global helpers.
func Default() *Manager {
	return globalManager
}
