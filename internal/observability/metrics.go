// Package observability provides Prometheus metrics for the allocation engine.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wonny/aegis-allocator/internal/contracts"
)

// DefaultNamespace metric name prefix
const DefaultNamespace = "aegis_allocator"

// Metrics holds all Prometheus metrics for the engine.
// 전용 Registry를 사용하므로 여러 인스턴스를 만들어도 충돌하지 않음.
type Metrics struct {
	registry *prometheus.Registry

	// Pipeline metrics
	PipelineRunsTotal *prometheus.CounterVec
	PipelineDuration  *prometheus.HistogramVec
	StageDuration     *prometheus.HistogramVec
	SkippedScenarios  *prometheus.CounterVec

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Cache metrics
	CacheLookups *prometheus.CounterVec

	// Refdata metrics
	RefDataReloads *prometheus.CounterVec
}

// NewMetrics creates a Metrics instance with every collector registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = DefaultNamespace
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		PipelineRunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total number of pipeline runs by objective and status",
		}, []string{"objective", "status"}),
		PipelineDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "duration_seconds",
			Help:      "Pipeline run duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}, []string{"objective"}),
		StageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Pipeline stage duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		}, []string{"stage"}),
		SkippedScenarios: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "skipped_scenarios_total",
			Help:      "Total number of malformed scenarios skipped by stage",
		}, []string{"stage"}),

		HTTPRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by route and status code",
		}, []string{"route", "method", "code"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),

		CacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Pipeline result cache lookups by outcome",
		}, []string{"outcome"}),

		RefDataReloads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "refdata",
			Name:      "reloads_total",
			Help:      "Reference table reload attempts by result",
		}, []string{"result"}),
	}
}

// Handler returns the /metrics HTTP handler for this registry
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry (tests, custom collectors)
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ============================================================================
// pipeline.Observer
// ============================================================================

// ObserveStage records one stage duration
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// ObserveRun records a finished pipeline run
func (m *Metrics) ObserveRun(objective contracts.Objective, status string, d time.Duration) {
	m.PipelineRunsTotal.WithLabelValues(string(objective), status).Inc()
	m.PipelineDuration.WithLabelValues(string(objective)).Observe(d.Seconds())
}

// ObserveSkipped adds skipped scenarios for a stage
func (m *Metrics) ObserveSkipped(stage string, n int) {
	if n <= 0 {
		return
	}
	m.SkippedScenarios.WithLabelValues(stage).Add(float64(n))
}

// ============================================================================
// Cache / refdata
// ============================================================================

// ObserveCache records a cache hit or miss
func (m *Metrics) ObserveCache(hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	m.CacheLookups.WithLabelValues(outcome).Inc()
}

// ObserveReload records a refdata reload result ("changed", "unchanged", "error")
func (m *Metrics) ObserveReload(result string) {
	m.RefDataReloads.WithLabelValues(result).Inc()
}
