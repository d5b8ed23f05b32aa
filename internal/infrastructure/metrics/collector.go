package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"HealthFetcher/internal/domain"
	"HealthFetcher/internal/ports"
)

// Collector exposes cycle outcomes as Prometheus metrics.
type Collector struct {
	cycles         prometheus.Counter
	sourceOutcomes *prometheus.CounterVec
	cycleDuration  prometheus.Histogram
	lastRows       prometheus.Gauge
	lastCells      prometheus.Gauge
	lastFailed     prometheus.Gauge
	lastFinished   prometheus.Gauge

	registry *prometheus.Registry
}

var _ ports.CycleObserver = (*Collector)(nil)

// NewCollector creates a collector with its own registry.
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,

		cycles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "health_fetcher_cycles_total",
			Help: "Total number of completed fetch cycles",
		}),
		sourceOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "health_fetcher_source_outcomes_total",
			Help: "Per-source outcomes by final lifecycle status",
		}, []string{"state", "status"}),
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "health_fetcher_cycle_duration_seconds",
			Help:    "Wall time of a fetch cycle",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10), // 1s to ~8.5min
		}),
		lastRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "health_fetcher_last_cycle_rows",
			Help: "Rows in the table of the last cycle",
		}),
		lastCells: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "health_fetcher_last_cycle_cells",
			Help: "Non-empty value cells in the table of the last cycle",
		}),
		lastFailed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "health_fetcher_last_cycle_failed_sources",
			Help: "Sources that contributed nothing in the last cycle",
		}),
		lastFinished: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "health_fetcher_last_cycle_finished_timestamp_seconds",
			Help: "Unix time the last cycle finished",
		}),
	}

	registry.MustRegister(
		c.cycles,
		c.sourceOutcomes,
		c.cycleDuration,
		c.lastRows,
		c.lastCells,
		c.lastFailed,
		c.lastFinished,
	)
	registry.MustRegister(collectors.NewGoCollector())

	return c
}

// ObserveCycle records a finished cycle.
func (c *Collector) ObserveCycle(report domain.CycleReport) {
	c.cycles.Inc()
	for _, o := range report.Outcomes {
		c.sourceOutcomes.WithLabelValues(o.State, string(o.Status)).Inc()
	}
	c.cycleDuration.Observe(report.Duration().Seconds())
	c.lastRows.Set(float64(report.Rows))
	c.lastCells.Set(float64(report.Cells))
	c.lastFailed.Set(float64(report.Failed()))
	if !report.FinishedAt.IsZero() {
		c.lastFinished.Set(float64(report.FinishedAt.Unix()))
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
