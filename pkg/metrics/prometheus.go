// Package metrics provides Prometheus metrics for segmentation runs.
package metrics

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the segmentor.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	registry         prometheus.Registerer
	gatherer         prometheus.Gatherer

	// Segmentation
	runs            prometheus.Counter
	failures        *prometheus.CounterVec
	entities        prometheus.Gauge
	tierEntities    *prometheus.GaugeVec
	unmapped        prometheus.Counter
	computeDuration prometheus.Histogram

	// Sources
	sourceLoadDuration *prometheus.HistogramVec
	sourceRows         *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "segmentor",
		subsystem:        "segmentation",
		histogramBuckets: []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000, 5000},
		enabled:          true,
		registry:         prometheus.DefaultRegisterer,
		gatherer:         prometheus.DefaultGatherer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.runs = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "runs_total",
		Help:      "Total number of segmentation runs started",
	})

	m.failures = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "failures_total",
		Help:      "Segmentation runs rejected or aborted, by reason",
	}, []string{"reason"})

	m.entities = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "entities",
		Help:      "Number of entities segmented by the last run",
	})

	m.tierEntities = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "tier_entities",
		Help:      "Number of entities assigned to each tier by the last run",
	}, []string{"tier"})

	m.unmapped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "unmapped_details_total",
		Help:      "Detail records skipped because their entity id was unknown",
	})

	m.computeDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "compute_duration_milliseconds",
		Help:      "Time spent computing percentile ranks and tier summaries",
		Buckets:   m.histogramBuckets,
	})

	m.sourceLoadDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "source",
		Name:      "load_duration_milliseconds",
		Help:      "Time spent loading a snapshot from a source, by source kind",
		Buckets:   m.histogramBuckets,
	}, []string{"kind"})

	m.sourceRows = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "source",
		Name:      "rows_total",
		Help:      "Rows read from a source, by source kind and dataset",
	}, []string{"kind", "dataset"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "system",
		Name:      "memory_usage_bytes",
		Help:      "Heap bytes allocated at the end of the run",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "system",
		Name:      "goroutine_count",
		Help:      "Number of goroutines at the end of the run",
	})
}

// RecordRun increments the runs counter.
func (m *Manager) RecordRun() {
	if m.enabled {
		m.runs.Inc()
	}
}

// RecordFailure increments the failure counter for reason.
func (m *Manager) RecordFailure(reason string) {
	if m.enabled {
		m.failures.WithLabelValues(reason).Inc()
	}
}

// UpdateEntities sets the entity gauge.
func (m *Manager) UpdateEntities(count int) {
	if m.enabled {
		m.entities.Set(float64(count))
	}
}

// UpdateTierEntities sets the per-tier entity gauge.
func (m *Manager) UpdateTierEntities(tier string, count int) {
	if m.enabled {
		m.tierEntities.WithLabelValues(tier).Set(float64(count))
	}
}

// AddUnmappedDetails adds n skipped detail records.
func (m *Manager) AddUnmappedDetails(n int) {
	if m.enabled && n > 0 {
		m.unmapped.Add(float64(n))
	}
}

// RecordComputeDuration observes compute latency in milliseconds.
func (m *Manager) RecordComputeDuration(ms float64) {
	if m.enabled {
		m.computeDuration.Observe(ms)
	}
}

// RecordSourceLoad observes snapshot load latency in milliseconds.
func (m *Manager) RecordSourceLoad(kind string, ms float64) {
	if m.enabled {
		m.sourceLoadDuration.WithLabelValues(kind).Observe(ms)
	}
}

// AddSourceRows adds rows read for a dataset ("entities" or "details").
func (m *Manager) AddSourceRows(kind, dataset string, n int) {
	if m.enabled && n > 0 {
		m.sourceRows.WithLabelValues(kind, dataset).Add(float64(n))
	}
}

// UpdateSystem sets memory and goroutine gauges.
func (m *Manager) UpdateSystem(allocBytes uint64, goroutines int) {
	if m.enabled {
		m.systemMemoryUsage.Set(float64(allocBytes))
		m.systemGoroutineCount.Set(float64(goroutines))
	}
}

// WriteTextfile writes every gathered metric to path in the text exposition
// format, atomically, for a node-exporter textfile collector.
func (m *Manager) WriteTextfile(path string) error {
	if path == "" {
		return ErrEmptyPath
	}
	if err := prometheus.WriteToTextfile(path, m.gatherer); err != nil {
		return errors.Wrapf(err, "write metrics textfile %s", path)
	}
	return nil
}

// Default returns the global manager.
func Default() *Manager {
	return globalManager
}

// RecordRun increments the runs counter.
func RecordRun() { globalManager.RecordRun() }

// RecordFailure increments the failure counter for reason.
func RecordFailure(reason string) { globalManager.RecordFailure(reason) }

// UpdateEntities sets the entity gauge.
func UpdateEntities(count int) { globalManager.UpdateEntities(count) }

// UpdateTierEntities sets the per-tier entity gauge.
func UpdateTierEntities(tier string, count int) { globalManager.UpdateTierEntities(tier, count) }

// AddUnmappedDetails adds n skipped detail records.
func AddUnmappedDetails(n int) { globalManager.AddUnmappedDetails(n) }

// RecordComputeDuration observes compute latency in milliseconds.
func RecordComputeDuration(ms float64) { globalManager.RecordComputeDuration(ms) }

// RecordSourceLoad observes snapshot load latency in milliseconds.
func RecordSourceLoad(kind string, ms float64) { globalManager.RecordSourceLoad(kind, ms) }

// AddSourceRows adds rows read for a dataset.
func AddSourceRows(kind, dataset string, n int) { globalManager.AddSourceRows(kind, dataset, n) }

// UpdateSystem sets memory and goroutine gauges.
func UpdateSystem(allocBytes uint64, goroutines int) {
	globalManager.UpdateSystem(allocBytes, goroutines)
}

// WriteTextfile writes the global registry to path.
func WriteTextfile(path string) error { return globalManager.WriteTextfile(path) }

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
