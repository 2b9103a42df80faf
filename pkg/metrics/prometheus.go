// Package metrics provides Prometheus metrics for the Crew Score engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Label values shared by callers.
const (
	OutcomeOK      = "ok"
	OutcomeNoop    = "noop"
	OutcomePartial = "partial"
	OutcomeError   = "error"

	ChannelPush = "push"
	ChannelChat = "chat"

	StatusSent      = "sent"
	StatusFailed    = "failed"
	StatusDropped   = "dropped"
	StatusDuplicate = "duplicate"
)

// Manager holds all Prometheus collectors of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Recalculation
	recalcRuns     *prometheus.CounterVec
	recalcDuration prometheus.Histogram
	cohortSize     prometheus.Histogram
	membersScored  prometheus.Counter
	upserts        *prometheus.CounterVec
	promotions     prometheus.Counter
	singleScores   *prometheus.CounterVec
	schedulerRuns  *prometheus.CounterVec

	// Store
	storeLatency *prometheus.HistogramVec

	// Notifications
	notifications       *prometheus.CounterVec
	notifyQueueSize     prometheus.Gauge
	notifyQueueCapacity prometheus.Gauge
	notifyWorkers       prometheus.Gauge
	notifyLatency       prometheus.Histogram

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorsByComponent *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Naming of the process-wide collectors.
const (
	Namespace = "crewscore"
	Subsystem = "engine"
)

// LatencyBuckets are the millisecond buckets of the process-wide histograms.
var LatencyBuckets = []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000} //nolint:gochecknoglobals // read-only defaults

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(
		WithNamespace(Namespace),
		WithSubsystem(Subsystem),
		WithHistogramBuckets(LatencyBuckets),
		WithPrometheusRegistry(customRegistry),
	)
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "crew",
		subsystem:        "score",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()
	return m
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	}, labels)
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: buckets,
	})
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	m.recalcRuns = m.counterVec("recalculations_total",
		"Group recalculation runs by outcome", "outcome")
	m.recalcDuration = m.histogram("recalculation_duration_milliseconds",
		"Wall time of a group recalculation in milliseconds", m.histogramBuckets)
	m.cohortSize = m.histogram("cohort_size",
		"Number of approved members scored per run", []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000})
	m.membersScored = m.counter("members_scored_total",
		"Members scored across all recalculations")
	m.upserts = m.counterVec("upserts_total",
		"Crew score record upserts by status", "status")
	m.promotions = m.counter("promotions_total",
		"Tier promotions emitted by recalculations")
	m.singleScores = m.counterVec("single_member_scores_total",
		"On-demand single member score computations by outcome", "outcome")
	m.schedulerRuns = m.counterVec("scheduler_runs_total",
		"Scheduled recalculation sweeps by outcome", "outcome")

	m.storeLatency = promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name:    "store_operation_duration_milliseconds",
		Help:    "Data store operation latency in milliseconds",
		Buckets: m.histogramBuckets,
	}, []string{"operation"})

	m.notifications = m.counterVec("notifications_total",
		"Promotion notifications by channel and status", "channel", "status")
	m.notifyQueueSize = m.gauge("notify_queue_size",
		"Promotion notifications waiting for a worker")
	m.notifyQueueCapacity = m.gauge("notify_queue_capacity",
		"Capacity of the promotion notification queue")
	m.notifyWorkers = m.gauge("notify_workers",
		"Number of promotion notification workers")
	m.notifyLatency = m.histogram("notify_latency_milliseconds",
		"Time to deliver one promotion notification in milliseconds", m.histogramBuckets)

	m.httpRequests = m.counterVec("http_requests_total",
		"HTTP requests by endpoint, method and status code", "endpoint", "method", "status_code")
	m.httpRequestDuration = promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name:    "http_request_duration_milliseconds",
		Help:    "HTTP request duration in milliseconds",
		Buckets: m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.errorsByComponent = m.counterVec("errors_total",
		"Errors by component and type", "component", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "System memory usage in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
}

// RecordRecalculation records one recalculation run.
func RecordRecalculation(outcome string, durationMs float64, cohortSize int) {
	globalManager.recalcRuns.WithLabelValues(outcome).Inc()
	globalManager.recalcDuration.Observe(durationMs)
	if cohortSize > 0 {
		globalManager.cohortSize.Observe(float64(cohortSize))
		globalManager.membersScored.Add(float64(cohortSize))
	}
}

// RecordUpsert counts a record upsert.
func RecordUpsert(ok bool) {
	status := StatusSent
	if !ok {
		status = StatusFailed
	}
	globalManager.upserts.WithLabelValues(status).Inc()
}

// RecordPromotions adds n emitted promotions.
func RecordPromotions(n int) {
	globalManager.promotions.Add(float64(n))
}

// RecordSingleScore counts an on-demand score computation.
func RecordSingleScore(outcome string) {
	globalManager.singleScores.WithLabelValues(outcome).Inc()
}

// RecordSchedulerRun counts a scheduled sweep.
func RecordSchedulerRun(outcome string) {
	globalManager.schedulerRuns.WithLabelValues(outcome).Inc()
}

// RecordStoreLatency records the latency of a data store operation.
func RecordStoreLatency(operation string, latencyMs float64) {
	globalManager.storeLatency.WithLabelValues(operation).Observe(latencyMs)
}

// RecordNotification counts a notification outcome on a channel.
func RecordNotification(channel, status string) {
	globalManager.notifications.WithLabelValues(channel, status).Inc()
}

// RecordNotifyLatency records how long one notification took to deliver.
func RecordNotifyLatency(latencyMs float64) {
	globalManager.notifyLatency.Observe(latencyMs)
}

// UpdateNotifyQueueSize sets the current notification backlog.
func UpdateNotifyQueueSize(size int) {
	globalManager.notifyQueueSize.Set(float64(size))
}

// UpdateNotifyQueueCapacity sets the notification queue capacity.
func UpdateNotifyQueueCapacity(capacity int) {
	globalManager.notifyQueueCapacity.Set(float64(capacity))
}

// UpdateNotifyWorkers sets the number of notification workers.
func UpdateNotifyWorkers(count int) {
	globalManager.notifyWorkers.Set(float64(count))
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
