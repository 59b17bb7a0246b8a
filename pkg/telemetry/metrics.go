package telemetry

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides Prometheus metrics for the configuration pipeline.
type Metrics struct {
	config MetricsConfig

	// Upload metrics
	uploadsTotal     *prometheus.CounterVec
	duplicateUploads prometheus.Counter
	uploadBytes      prometheus.Histogram

	// Analysis metrics
	analysesTotal    *prometheus.CounterVec
	analysisDuration prometheus.Histogram
	itemsClassified  *prometheus.CounterVec
	advisorFailures  prometheus.Counter

	// Implementation metrics
	implementationsTotal  *prometheus.CounterVec
	implementationSeconds prometheus.Histogram
	itemsApplied          prometheus.Counter
	itemApplyErrors       prometheus.Counter
	activeImplementations prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with the given configuration.
// When metrics are disabled a no-op instance is returned.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		uploadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "uploads_total",
				Help:      "Total number of workbook uploads",
			},
			[]string{"outcome"},
		),
		duplicateUploads: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "duplicate_uploads_total",
				Help:      "Uploads rejected because identical content was already stored",
			},
		),
		uploadBytes: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "upload_bytes",
				Help:      "Size distribution of uploaded workbooks",
				Buckets:   prometheus.ExponentialBuckets(1024, 4, 8),
			},
		),
		analysesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "analyses_total",
				Help:      "Total number of workbook analyses",
			},
			[]string{"complexity", "risk_level"},
		),
		analysisDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "analysis_duration_seconds",
				Help:      "Duration of workbook analyses",
				Buckets:   prometheus.DefBuckets,
			},
		),
		itemsClassified: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "items_classified_total",
				Help:      "Configuration items produced by analysis, by type",
			},
			[]string{"type"},
		),
		advisorFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "advisor_failures_total",
				Help:      "Best-effort advisor calls that failed and were ignored",
			},
		),
		implementationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "implementations_total",
				Help:      "Total number of implementation runs, by final status",
			},
			[]string{"status"},
		),
		implementationSeconds: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "implementation_duration_seconds",
				Help:      "Duration of implementation runs",
				Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
			},
		),
		itemsApplied: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "items_applied_total",
				Help:      "Configuration items applied successfully to the remote platform",
			},
		),
		itemApplyErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "item_apply_errors_total",
				Help:      "Configuration items that failed to apply",
			},
		),
		activeImplementations: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_implementations",
				Help:      "Implementation runs currently in flight",
			},
		),
	}

	collectors := []prometheus.Collector{
		m.uploadsTotal,
		m.duplicateUploads,
		m.uploadBytes,
		m.analysesTotal,
		m.analysisDuration,
		m.itemsClassified,
		m.advisorFailures,
		m.implementationsTotal,
		m.implementationSeconds,
		m.itemsApplied,
		m.itemApplyErrors,
		m.activeImplementations,
	}
	for _, c := range collectors {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register collector: %w", err)
		}
	}

	return m, nil
}

// enabled reports whether this instance collects metrics.
func (m *Metrics) enabled() bool {
	return m != nil && m.registry != nil
}

// RecordUpload records an upload attempt and its outcome.
func (m *Metrics) RecordUpload(outcome string, size int64) {
	if !m.enabled() {
		return
	}
	m.uploadsTotal.WithLabelValues(outcome).Inc()
	if size > 0 {
		m.uploadBytes.Observe(float64(size))
	}
}

// RecordDuplicateUpload records a rejected duplicate upload.
func (m *Metrics) RecordDuplicateUpload() {
	if !m.enabled() {
		return
	}
	m.duplicateUploads.Inc()
	m.uploadsTotal.WithLabelValues("duplicate").Inc()
}

// RecordAnalysis records a completed analysis.
func (m *Metrics) RecordAnalysis(complexity, riskLevel string, duration time.Duration) {
	if !m.enabled() {
		return
	}
	m.analysesTotal.WithLabelValues(complexity, riskLevel).Inc()
	m.analysisDuration.Observe(duration.Seconds())
}

// RecordItemClassified records one classified configuration item.
func (m *Metrics) RecordItemClassified(configType string) {
	if !m.enabled() {
		return
	}
	m.itemsClassified.WithLabelValues(configType).Inc()
}

// RecordAdvisorFailure records an ignored advisor failure.
func (m *Metrics) RecordAdvisorFailure() {
	if !m.enabled() {
		return
	}
	m.advisorFailures.Inc()
}

// ImplementationStarted marks an implementation run as in flight.
func (m *Metrics) ImplementationStarted() {
	if !m.enabled() {
		return
	}
	m.activeImplementations.Inc()
}

// ImplementationFinished records a finished implementation run.
func (m *Metrics) ImplementationFinished(status string, applied, failed int, duration time.Duration) {
	if !m.enabled() {
		return
	}
	m.activeImplementations.Dec()
	m.implementationsTotal.WithLabelValues(status).Inc()
	m.implementationSeconds.Observe(duration.Seconds())
	m.itemsApplied.Add(float64(applied))
	m.itemApplyErrors.Add(float64(failed))
}

// Handler returns an HTTP handler exposing the metrics.
func (m *Metrics) Handler() http.Handler {
	if !m.enabled() {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// StartServer starts the metrics HTTP endpoint in a background goroutine.
func (m *Metrics) StartServer() {
	if !m.enabled() || m.config.ListenAddr == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	go func() {
		// Errors here are not fatal to the pipeline.
		_ = http.ListenAndServe(m.config.ListenAddr, mux)
	}()
}
