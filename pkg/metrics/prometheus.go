// Package metrics provides Prometheus metrics for the kartscore pipeline.
//
// The pipeline is a batch job, so metrics are not scraped over HTTP. A run can
// dump the registry to a node-exporter textfile with WriteTextfile.
package metrics

import (
	"errors"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns all Prometheus metrics for the pipeline.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Input
	recordsRead      prometheus.Counter
	recordsMalformed prometheus.Counter

	// Grouping and scoring
	sessionsGrouped       prometheus.Gauge
	sessionsScored        prometheus.Counter
	sessionScoringLatency prometheus.Histogram
	warnings              *prometheus.CounterVec

	// Queue
	queueCapacity      prometheus.Gauge
	queueSize          prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueDequeued      prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Workers
	workerActiveCount prometheus.Gauge
	workerErrors      prometheus.Counter

	// Errors
	errorsByComponent *prometheus.CounterVec

	// Runs
	rowsEmitted        prometheus.Counter
	stageDuration      *prometheus.HistogramVec
	runs               *prometheus.CounterVec
	lastRunDurationSec prometheus.Gauge
	lastSuccessUnix    prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics in the textfile dump.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // singleton registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// Configure rebuilds the global metrics on a fresh registry with opts applied.
// Call it once at startup, before anything is recorded: values recorded so far
// are dropped, and runtime collectors must be registered again.
func Configure(opts ...Option) {
	registry := prometheus.NewRegistry()
	all := make([]Option, 0, len(opts)+1)
	all = append(all, opts...)
	all = append(all, WithPrometheusRegistry(registry))

	customRegistry = registry
	globalManager = NewManager(all...)
	runtimeOnce = sync.Once{}
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "kartscore",
		subsystem:        "pipeline",
		histogramBuckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 50, 100},
		constLabels:      make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // flat list of metric definitions
	auto := promauto.With(m.registry)

	m.recordsRead = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "records_read_total",
		Help:        "Total number of telemetry rows parsed into records",
		ConstLabels: m.constLabels,
	})

	m.recordsMalformed = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "records_malformed_total",
		Help:        "Total number of telemetry rows rejected as malformed",
		ConstLabels: m.constLabels,
	})

	m.sessionsGrouped = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "sessions_grouped",
		Help:        "Number of sessions produced by the grouper in the last run",
		ConstLabels: m.constLabels,
	})

	m.sessionsScored = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "sessions_scored_total",
		Help:        "Total number of sessions scored",
		ConstLabels: m.constLabels,
	})

	m.sessionScoringLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "session_scoring_latency_milliseconds",
		Help:        "Time spent extracting signals and combining the score of one session",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	})

	m.warnings = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "warnings_total",
		Help:        "Non-fatal data quality anomalies by kind",
		ConstLabels: m.constLabels,
	}, []string{"kind"})

	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "queue_capacity",
		Help:        "Capacity of the session job queue",
		ConstLabels: m.constLabels,
	})

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "queue_size",
		Help:        "Current number of session jobs waiting in the queue",
		ConstLabels: m.constLabels,
	})

	m.queueEnqueued = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "queue_enqueued_total",
		Help:        "Total number of session jobs enqueued",
		ConstLabels: m.constLabels,
	})

	m.queueDequeued = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "queue_dequeued_total",
		Help:        "Total number of session jobs handed to workers",
		ConstLabels: m.constLabels,
	})

	m.queueEnqueueErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "queue_enqueue_errors_total",
		Help:        "Total number of rejected enqueue attempts",
		ConstLabels: m.constLabels,
	})

	m.workerActiveCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "worker_active_count",
		Help:        "Number of scoring workers in the pool",
		ConstLabels: m.constLabels,
	})

	m.workerErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "worker_errors_total",
		Help:        "Total number of session jobs that failed in a worker",
		ConstLabels: m.constLabels,
	})

	m.errorsByComponent = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "errors_by_component_total",
		Help:        "Errors by pipeline component and error type",
		ConstLabels: m.constLabels,
	}, []string{"component", "error_type"})

	m.rowsEmitted = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "rows_emitted_total",
		Help:        "Total number of session score rows written",
		ConstLabels: m.constLabels,
	})

	m.stageDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "stage_duration_milliseconds",
		Help:        "Duration of each pipeline stage",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, []string{"stage"})

	m.runs = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "runs_total",
		Help:        "Batch runs by outcome",
		ConstLabels: m.constLabels,
	}, []string{"status"})

	m.lastRunDurationSec = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "last_run_duration_seconds",
		Help:        "Wall time of the last batch run",
		ConstLabels: m.constLabels,
	})

	m.lastSuccessUnix = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "last_success_timestamp_seconds",
		Help:        "Unix time of the last successful batch run",
		ConstLabels: m.constLabels,
	})
}

// Input Metrics Functions.

// RecordRecordsRead adds n parsed records.
func RecordRecordsRead(n int) {
	globalManager.recordsRead.Add(float64(n))
}

// RecordMalformedRecord increments the malformed row counter.
func RecordMalformedRecord() {
	globalManager.recordsMalformed.Inc()
}

// Grouping and Scoring Metrics Functions.

// UpdateSessionsGrouped sets the session count of the current run.
func UpdateSessionsGrouped(count int) {
	globalManager.sessionsGrouped.Set(float64(count))
}

// RecordSessionScored increments the scored sessions counter.
func RecordSessionScored() {
	globalManager.sessionsScored.Inc()
}

// RecordSessionScoringLatency records the scoring latency of one session.
func RecordSessionScoringLatency(latencyMs float64) {
	globalManager.sessionScoringLatency.Observe(latencyMs)
}

// RecordWarning increments the anomaly counter for kind.
func RecordWarning(kind string) {
	globalManager.warnings.WithLabelValues(kind).Inc()
}

// Queue Metrics Functions.

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueSize sets the current queue length.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
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

// Worker Metrics Functions.

// UpdateWorkerActiveCount sets the number of workers in the pool.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActiveCount.Set(float64(count))
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// Run Metrics Functions.

// RecordRowsEmitted adds n written output rows.
func RecordRowsEmitted(n int) {
	globalManager.rowsEmitted.Add(float64(n))
}

// RecordStageDuration records how long a pipeline stage took.
func RecordStageDuration(stage string, durationMs float64) {
	globalManager.stageDuration.WithLabelValues(stage).Observe(durationMs)
}

// RecordRun records the outcome and wall time of a batch run. A successful run
// also moves the last-success timestamp.
func RecordRun(status string, durationSec float64, finishedUnix int64) {
	globalManager.runs.WithLabelValues(status).Inc()
	globalManager.lastRunDurationSec.Set(durationSec)
	if status == StatusSuccess {
		globalManager.lastSuccessUnix.Set(float64(finishedUnix))
	}
}

// Run status label values.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

var runtimeOnce sync.Once //nolint:gochecknoglobals // guards RegisterRuntimeCollectors

// RegisterRuntimeCollectors adds the Go runtime and process collectors to the
// registry, so textfile dumps carry memory and GC figures of the run. Calling
// it more than once is a no-op.
func RegisterRuntimeCollectors() error {
	var err error
	runtimeOnce.Do(func() {
		for _, c := range []prometheus.Collector{
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		} {
			if rerr := customRegistry.Register(c); rerr != nil {
				var already prometheus.AlreadyRegisteredError
				if !errors.As(rerr, &already) {
					err = rerr
				}
			}
		}
	})
	return err
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// WriteTextfile dumps the registry in text exposition format to path, for the
// node-exporter textfile collector. The file is replaced atomically.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, customRegistry); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWriteTextfile, path, err)
	}
	return nil
}
