// Package metrics provides Prometheus metrics for the careerpulse pipeline.
package metrics

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the pipeline.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshNanos     atomic.Int64
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Harvest - outbound code-hosting traffic
	harvestRequests *prometheus.CounterVec
	harvestSkipped  *prometheus.CounterVec
	harvestDuration prometheus.Histogram
	harvestInFlight prometheus.Gauge
	manifestBytes   prometheus.Counter
	frameworksFound *prometheus.CounterVec
	duplicateEvents prometheus.Counter

	// Scoring
	forecastDuration prometheus.Histogram
	riskScores       prometheus.Histogram
	riskLevels       *prometheus.CounterVec
	modelFallbacks   *prometheus.CounterVec
	explainActions   *prometheus.CounterVec

	// Growth and benchmark
	plansGenerated *prometheus.CounterVec
	tasksVerified  *prometheus.CounterVec
	benchmarkRuns  *prometheus.CounterVec

	// Governance
	riskSpikes        prometheus.Counter
	governanceEntries *prometheus.CounterVec
	retentionDeleted  prometheus.Counter
	retentionFailures prometheus.Counter

	// Store
	storeOps     *prometheus.CounterVec
	storeLatency *prometheus.HistogramVec

	// Offload queue and workers
	queueSize        prometheus.Gauge
	queueCapacity    prometheus.Gauge
	queueUtilization prometheus.Gauge
	queueRejected    *prometheus.CounterVec
	workerActive     prometheus.Gauge
	jobLatency       prometheus.Histogram
	jobErrors        prometheus.Counter

	// Ops surface
	httpRequests *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
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
		namespace:        "careerpulse",
		subsystem:        "pipeline",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		customLabels:     make(map[string]string),
		metricPrefix:     "",
		registry:         prometheus.DefaultRegisterer,
	}

	m.refreshNanos.Store(int64(defaultRefreshInterval))
	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// RefreshInterval is how often background gauges should be refreshed.
func (m *Manager) RefreshInterval() time.Duration { return time.Duration(m.refreshNanos.Load()) }

// SetRefreshInterval changes the global gauge refresh interval. Non-positive
// intervals are ignored.
func SetRefreshInterval(interval time.Duration) {
	if globalManager != nil && interval > 0 {
		globalManager.refreshNanos.Store(int64(interval))
	}
}

// RefreshInterval is the global gauge refresh interval.
func RefreshInterval() time.Duration {
	if globalManager == nil {
		return defaultRefreshInterval
	}
	return globalManager.RefreshInterval()
}

// Enabled reports whether recording is active.
func (m *Manager) Enabled() bool { return m.enabled }

func (m *Manager) name(n string) string { return m.metricPrefix + n }

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	if buckets == nil {
		buckets = m.histogramBuckets
	}
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.customLabels,
	}
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every metric
	auto := promauto.With(m.registry)
	msBuckets := []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000}

	m.harvestRequests = auto.NewCounterVec(m.counterOpts("harvest_requests_total",
		"Outbound code-hosting API requests by endpoint and outcome"), []string{"endpoint", "outcome"})
	m.harvestSkipped = auto.NewCounterVec(m.counterOpts("harvest_skipped_units_total",
		"Harvest units skipped, by reason"), []string{"reason"})
	m.harvestDuration = auto.NewHistogram(m.histogramOpts("harvest_duration_ms",
		"Wall time of a full harvest in milliseconds", msBuckets))
	m.harvestInFlight = auto.NewGauge(m.gaugeOpts("harvest_in_flight_requests",
		"Outbound requests currently holding a semaphore slot"))
	m.manifestBytes = auto.NewCounter(m.counterOpts("manifest_bytes_scanned_total",
		"Bytes of dependency manifests streamed through the keyword matcher"))
	m.frameworksFound = auto.NewCounterVec(m.counterOpts("frameworks_detected_total",
		"Frameworks detected in dependency manifests"), []string{"framework"})
	m.duplicateEvents = auto.NewCounter(m.counterOpts("duplicate_events_total",
		"Activity events dropped because their ID was already counted"))

	m.forecastDuration = auto.NewHistogram(m.histogramOpts("forecast_duration_ms",
		"Risk forecast latency in milliseconds", []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100}))
	m.riskScores = auto.NewHistogram(m.histogramOpts("risk_score",
		"Distribution of final risk scores", prometheus.LinearBuckets(0, 10, 11)))
	m.riskLevels = auto.NewCounterVec(m.counterOpts("risk_level_total",
		"Forecasts by risk level"), []string{"level"})
	m.modelFallbacks = auto.NewCounterVec(m.counterOpts("model_fallbacks_total",
		"Heuristic fallbacks taken because a model was unavailable"), []string{"component", "reason"})
	m.explainActions = auto.NewCounterVec(m.counterOpts("counterfactual_actions_total",
		"Counterfactual actions emitted by type"), []string{"type"})

	m.plansGenerated = auto.NewCounterVec(m.counterOpts("plans_generated_total",
		"Weekly plans generated by mode"), []string{"mode"})
	m.tasksVerified = auto.NewCounterVec(m.counterOpts("tasks_verified_total",
		"Task verification attempts by outcome"), []string{"outcome"})
	m.benchmarkRuns = auto.NewCounterVec(m.counterOpts("benchmark_runs_total",
		"Benchmark computations by operation"), []string{"operation"})

	m.riskSpikes = auto.NewCounter(m.counterOpts("risk_spikes_total",
		"Risk spikes recorded in the governance log"))
	m.governanceEntries = auto.NewCounterVec(m.counterOpts("governance_entries_total",
		"Governance log entries written by severity"), []string{"severity"})
	m.retentionDeleted = auto.NewCounter(m.counterOpts("retention_deleted_total",
		"Governance log entries removed by retention"))
	m.retentionFailures = auto.NewCounter(m.counterOpts("retention_failures_total",
		"Retention runs rolled back"))

	m.storeOps = auto.NewCounterVec(m.counterOpts("store_operations_total",
		"Snapshot store operations by op and outcome"), []string{"op", "outcome"})
	m.storeLatency = auto.NewHistogramVec(m.histogramOpts("store_latency_ms",
		"Snapshot store latency in milliseconds", msBuckets), []string{"op"})

	m.queueSize = auto.NewGauge(m.gaugeOpts("offload_queue_size", "Jobs waiting for a blocking worker"))
	m.queueCapacity = auto.NewGauge(m.gaugeOpts("offload_queue_capacity", "Capacity of the offload queue"))
	m.queueUtilization = auto.NewGauge(m.gaugeOpts("offload_queue_utilization", "Queue size over capacity"))
	m.queueRejected = auto.NewCounterVec(m.counterOpts("offload_queue_rejected_total",
		"Jobs rejected by the offload queue"), []string{"reason"})
	m.workerActive = auto.NewGauge(m.gaugeOpts("offload_workers", "Blocking workers running"))
	m.jobLatency = auto.NewHistogram(m.histogramOpts("offload_job_latency_ms",
		"Time from job dequeue to completion in milliseconds", msBuckets))
	m.jobErrors = auto.NewCounter(m.counterOpts("offload_job_errors_total", "Offloaded jobs that returned an error"))

	m.httpRequests = auto.NewCounterVec(m.counterOpts("http_requests_total",
		"Ops HTTP requests"), []string{"endpoint", "status"})

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_bytes", "Heap bytes allocated"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutines", "Goroutines running"))
}

func on() bool { return globalManager != nil && globalManager.enabled }

// RecordHarvestRequest counts one outbound API request.
func RecordHarvestRequest(endpoint, outcome string) {
	if on() {
		globalManager.harvestRequests.WithLabelValues(endpoint, outcome).Inc()
	}
}

// RecordHarvestSkipped counts a skipped harvest unit.
func RecordHarvestSkipped(reason string) {
	if on() {
		globalManager.harvestSkipped.WithLabelValues(reason).Inc()
	}
}

// RecordHarvestDuration records the wall time of a harvest.
func RecordHarvestDuration(latencyMs float64) {
	if on() {
		globalManager.harvestDuration.Observe(latencyMs)
	}
}

// AddHarvestInFlight adjusts the in-flight request gauge.
func AddHarvestInFlight(delta int) {
	if on() {
		globalManager.harvestInFlight.Add(float64(delta))
	}
}

// RecordManifestBytes adds streamed manifest bytes.
func RecordManifestBytes(n int) {
	if on() {
		globalManager.manifestBytes.Add(float64(n))
	}
}

// RecordFrameworkDetected counts one framework detection.
func RecordFrameworkDetected(framework string) {
	if on() {
		globalManager.frameworksFound.WithLabelValues(framework).Inc()
	}
}

// RecordDuplicateEvent counts an activity event dropped by the deduper.
func RecordDuplicateEvent() {
	if on() {
		globalManager.duplicateEvents.Inc()
	}
}

// RecordForecast records forecast latency, score and level.
func RecordForecast(latencyMs float64, score int, level string) {
	if on() {
		globalManager.forecastDuration.Observe(latencyMs)
		globalManager.riskScores.Observe(float64(score))
		globalManager.riskLevels.WithLabelValues(level).Inc()
	}
}

// RecordModelFallback counts a heuristic fallback.
func RecordModelFallback(component, reason string) {
	if on() {
		globalManager.modelFallbacks.WithLabelValues(component, reason).Inc()
	}
}

// RecordCounterfactualAction counts an emitted action.
func RecordCounterfactualAction(actionType string) {
	if on() {
		globalManager.explainActions.WithLabelValues(actionType).Inc()
	}
}

// RecordPlanGenerated counts a generated weekly plan.
func RecordPlanGenerated(mode string) {
	if on() {
		globalManager.plansGenerated.WithLabelValues(mode).Inc()
	}
}

// RecordTaskVerification counts a verification attempt.
func RecordTaskVerification(outcome string) {
	if on() {
		globalManager.tasksVerified.WithLabelValues(outcome).Inc()
	}
}

// RecordBenchmark counts a benchmark computation.
func RecordBenchmark(operation string) {
	if on() {
		globalManager.benchmarkRuns.WithLabelValues(operation).Inc()
	}
}

// RecordRiskSpike counts a recorded spike.
func RecordRiskSpike() {
	if on() {
		globalManager.riskSpikes.Inc()
	}
}

// RecordGovernanceEntry counts a governance log entry.
func RecordGovernanceEntry(severity string) {
	if on() {
		globalManager.governanceEntries.WithLabelValues(severity).Inc()
	}
}

// RecordRetention records the outcome of a retention run.
func RecordRetention(deleted int, err error) {
	if !on() {
		return
	}
	if err != nil {
		globalManager.retentionFailures.Inc()
		return
	}
	globalManager.retentionDeleted.Add(float64(deleted))
}

// RecordStoreOp records a store operation outcome and latency.
func RecordStoreOp(op string, latencyMs float64, err error) {
	if !on() {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	globalManager.storeOps.WithLabelValues(op, outcome).Inc()
	globalManager.storeLatency.WithLabelValues(op).Observe(latencyMs)
}

// UpdateQueueCapacity sets the offload queue capacity.
func UpdateQueueCapacity(capacity int) {
	if on() {
		globalManager.queueCapacity.Set(float64(capacity))
	}
}

// UpdateQueueSize sets the offload queue size and utilization.
func UpdateQueueSize(size, capacity int) {
	if !on() {
		return
	}
	globalManager.queueSize.Set(float64(size))
	if capacity > 0 {
		globalManager.queueUtilization.Set(float64(size) / float64(capacity))
	}
}

// RecordQueueRejected counts a rejected job.
func RecordQueueRejected(reason string) {
	if on() {
		globalManager.queueRejected.WithLabelValues(reason).Inc()
	}
}

// UpdateWorkerActiveCount sets the number of running workers.
func UpdateWorkerActiveCount(count int) {
	if on() {
		globalManager.workerActive.Set(float64(count))
	}
}

// RecordJob records the latency of an offloaded job.
func RecordJob(latencyMs float64, err error) {
	if !on() {
		return
	}
	globalManager.jobLatency.Observe(latencyMs)
	if err != nil {
		globalManager.jobErrors.Inc()
	}
}

// RecordHTTPRequest counts an ops HTTP request.
func RecordHTTPRequest(endpoint, status string) {
	if on() {
		globalManager.httpRequests.WithLabelValues(endpoint, status).Inc()
	}
}

// UpdateSystemMemoryUsage sets heap bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	if on() {
		globalManager.systemMemoryUsage.Set(float64(bytes))
	}
}

// UpdateSystemGoroutineCount sets the goroutine count.
func UpdateSystemGoroutineCount(count int) {
	if on() {
		globalManager.systemGoroutineCount.Set(float64(count))
	}
}

// GetRegistry returns the registry backing the package-level recorders.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
