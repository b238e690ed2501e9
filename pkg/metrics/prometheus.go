// Package metrics provides Prometheus metrics for the ghostslot reservation service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the ghostslot service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Reservation lifecycle
	reservations  *prometheus.CounterVec
	releases      *prometheus.CounterVec
	submissions   *prometheus.CounterVec
	lazyReclaims  *prometheus.CounterVec
	conflictRetry *prometheus.CounterVec
	slotsByStatus *prometheus.GaugeVec
	cohortCount   prometheus.Gauge

	// Actors
	actorCount    prometheus.Gauge
	mailboxDepth  *prometheus.GaugeVec
	mailboxReject *prometheus.CounterVec
	commandTime   *prometheus.HistogramVec

	// Store
	storeLatency *prometheus.HistogramVec
	storeErrors  *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	rateLimited         prometheus.Counter

	// Errors
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec

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
		namespace:        "ghostslot",
		subsystem:        "reservation",
		histogramBuckets: []float64{0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000},
		customLabels:     make(map[string]string),
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
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	}, labels)
}

func (m *Manager) gaugeVec(name, help string, labels ...string) *prometheus.GaugeVec {
	return promauto.With(m.registry).NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	}, labels)
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     m.histogramBuckets,
		ConstLabels: m.customLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	})
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	m.reservations = m.counterVec("reservations_total",
		"Reserve calls by cohort and outcome (granted, exhausted, error)", "cohort", "outcome")
	m.releases = m.counterVec("releases_total",
		"Release calls by cohort and outcome", "cohort", "outcome")
	m.submissions = m.counterVec("submissions_total",
		"ConfirmSubmission calls by cohort and outcome", "cohort", "outcome")
	m.lazyReclaims = m.counterVec("lazy_reclaims_total",
		"Expired reservations reclaimed during a reserve scan", "cohort")
	m.conflictRetry = m.counterVec("conflict_retries_total",
		"Optimistic concurrency conflicts retried by the coordinator", "cohort")
	m.slotsByStatus = m.gaugeVec("slots",
		"Slots per cohort and status as of the last write", "cohort", "status")
	m.cohortCount = m.gauge("cohorts", "Number of known cohorts")

	m.actorCount = m.gauge("actors", "Number of running cohort actors")
	m.mailboxDepth = m.gaugeVec("mailbox_depth",
		"Pending commands in a cohort actor mailbox", "cohort")
	m.mailboxReject = m.counterVec("mailbox_rejections_total",
		"Commands rejected because the mailbox was full or closed", "cohort", "reason")
	m.commandTime = m.histogramVec("command_duration_milliseconds",
		"Time spent by an actor applying one command", "command")

	m.storeLatency = m.histogramVec("store_latency_milliseconds",
		"Reservation store operation latency", "backend", "op")
	m.storeErrors = m.counterVec("store_errors_total",
		"Reservation store errors", "backend", "op", "kind")

	m.httpRequests = m.counterVec("http_requests_total",
		"Total number of HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds",
		"HTTP request duration in milliseconds", "endpoint", "method", "status_code")
	m.rateLimited = promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "rate_limited_total",
		Help:        "Mutating requests rejected by the per-requester rate limiter",
		ConstLabels: m.customLabels,
	})

	m.errorRateByComponent = m.counterVec("errors_by_component_total",
		"Errors by component and kind", "component", "error_type")
	m.errorRateByType = m.counterVec("errors_by_type_total",
		"Errors by type and severity", "error_type", "severity")
	m.errorRateByEndpoint = m.counterVec("errors_by_endpoint_total",
		"Errors by endpoint", "endpoint", "method", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "System memory usage in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "system_gc_pause_time_milliseconds",
		Help:        "GC pause time in milliseconds",
		Buckets:     []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		ConstLabels: m.customLabels,
	})
}

// RecordReservation counts a reserve outcome for a cohort.
func RecordReservation(cohort, outcome string) {
	globalManager.reservations.WithLabelValues(cohort, outcome).Inc()
}

// RecordRelease counts a release outcome for a cohort.
func RecordRelease(cohort, outcome string) {
	globalManager.releases.WithLabelValues(cohort, outcome).Inc()
}

// RecordSubmission counts a confirm-submission outcome for a cohort.
func RecordSubmission(cohort, outcome string) {
	globalManager.submissions.WithLabelValues(cohort, outcome).Inc()
}

// RecordLazyReclaim counts an expired reservation reclaimed by a reserve scan.
func RecordLazyReclaim(cohort string) {
	globalManager.lazyReclaims.WithLabelValues(cohort).Inc()
}

// RecordConflictRetry counts a retried optimistic concurrency conflict.
func RecordConflictRetry(cohort string) {
	globalManager.conflictRetry.WithLabelValues(cohort).Inc()
}

// UpdateSlotCounts sets the per-status slot gauges of a cohort.
func UpdateSlotCounts(cohort string, available, reserved, submitted int) {
	globalManager.slotsByStatus.WithLabelValues(cohort, "available").Set(float64(available))
	globalManager.slotsByStatus.WithLabelValues(cohort, "reserved").Set(float64(reserved))
	globalManager.slotsByStatus.WithLabelValues(cohort, "submitted").Set(float64(submitted))
}

// UpdateCohortCount sets the number of known cohorts.
func UpdateCohortCount(count int) {
	globalManager.cohortCount.Set(float64(count))
}

// UpdateActorCount sets the number of running cohort actors.
func UpdateActorCount(count int) {
	globalManager.actorCount.Set(float64(count))
}

// UpdateMailboxDepth sets the pending command count of a cohort mailbox.
func UpdateMailboxDepth(cohort string, depth int) {
	globalManager.mailboxDepth.WithLabelValues(cohort).Set(float64(depth))
}

// RecordMailboxRejection counts a command that could not be enqueued.
func RecordMailboxRejection(cohort, reason string) {
	globalManager.mailboxReject.WithLabelValues(cohort, reason).Inc()
}

// RecordCommandDuration records how long an actor spent on one command.
func RecordCommandDuration(command string, latencyMs float64) {
	globalManager.commandTime.WithLabelValues(command).Observe(latencyMs)
}

// RecordStoreLatency records store operation latency in milliseconds.
func RecordStoreLatency(backend, op string, latencyMs float64) {
	globalManager.storeLatency.WithLabelValues(backend, op).Observe(latencyMs)
}

// RecordStoreError counts a store error by kind.
func RecordStoreError(backend, op, kind string) {
	globalManager.storeErrors.WithLabelValues(backend, op, kind).Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordRateLimited counts a request rejected by the rate limiter.
func RecordRateLimited() {
	globalManager.rateLimited.Inc()
}

// RecordErrorByComponent records errors by component and type.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records errors by type and severity.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records errors by endpoint.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the current memory usage.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the current goroutine count.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records a GC pause time.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the registry backing the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
