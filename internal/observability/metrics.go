package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// reconciliation engine.
type Metrics struct {
	CyclesTotal      prometheus.Counter
	FetchErrors      prometheus.Counter
	NewIncidents     prometheus.Counter
	UnitChanges      prometheus.Counter
	ResolvedTotal    prometheus.Counter
	SinkErrors       prometheus.Counter
	IncidentsTracked prometheus.Gauge
	FeedOnline       prometheus.Gauge

	BatchSize     prometheus.Histogram
	CycleDuration prometheus.Histogram
}

// NewMetrics creates and registers all engine metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		CyclesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cad_engine",
			Name:      "cycles_total",
			Help:      "Total reconciliation cycles attempted, scheduled or forced.",
		}),
		FetchErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cad_engine",
			Name:      "fetch_errors_total",
			Help:      "Total feed fetches that failed or timed out.",
		}),
		NewIncidents: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cad_engine",
			Name:      "new_incidents_total",
			Help:      "Total never-before-seen incidents added to the store.",
		}),
		UnitChanges: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cad_engine",
			Name:      "unit_change_events_total",
			Help:      "Total unit-addition events published to observers.",
		}),
		ResolvedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cad_engine",
			Name:      "resolved_total",
			Help:      "Total incidents observed transitioning to RESOLVED.",
		}),
		SinkErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cad_engine",
			Name:      "sink_errors_total",
			Help:      "Total failed publishes to the incident-update sink.",
		}),
		IncidentsTracked: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "cad_engine",
			Name:      "incidents_tracked",
			Help:      "Incidents currently retained in the store.",
		}),
		FeedOnline: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "cad_engine",
			Name:      "feed_online",
			Help:      "1 when the last fetch succeeded, 0 after a failure.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "cad_engine",
			Name:      "batch_size",
			Help:      "Raw records returned per feed fetch.",
			Buckets:   []float64{0, 10, 25, 50, 100, 250, 500, 1000},
		}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "cad_engine",
			Name:      "cycle_duration_seconds",
			Help:      "Duration of a complete fetch-normalize-reconcile-publish cycle.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
	}

	prometheus.MustRegister(
		m.CyclesTotal,
		m.FetchErrors,
		m.NewIncidents,
		m.UnitChanges,
		m.ResolvedTotal,
		m.SinkErrors,
		m.IncidentsTracked,
		m.FeedOnline,
		m.BatchSize,
		m.CycleDuration,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		CyclesTotal:      prometheus.NewCounter(prometheus.CounterOpts{Namespace: "cad_engine", Name: "cycles_total"}),
		FetchErrors:      prometheus.NewCounter(prometheus.CounterOpts{Namespace: "cad_engine", Name: "fetch_errors_total"}),
		NewIncidents:     prometheus.NewCounter(prometheus.CounterOpts{Namespace: "cad_engine", Name: "new_incidents_total"}),
		UnitChanges:      prometheus.NewCounter(prometheus.CounterOpts{Namespace: "cad_engine", Name: "unit_change_events_total"}),
		ResolvedTotal:    prometheus.NewCounter(prometheus.CounterOpts{Namespace: "cad_engine", Name: "resolved_total"}),
		SinkErrors:       prometheus.NewCounter(prometheus.CounterOpts{Namespace: "cad_engine", Name: "sink_errors_total"}),
		IncidentsTracked: prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "cad_engine", Name: "incidents_tracked"}),
		FeedOnline:       prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "cad_engine", Name: "feed_online"}),
		BatchSize:        prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "cad_engine", Name: "batch_size"}),
		CycleDuration:    prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "cad_engine", Name: "cycle_duration_seconds"}),
	}
}
