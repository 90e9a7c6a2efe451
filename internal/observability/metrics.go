package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// forecast refresh pipeline.
type Metrics struct {
	PanelsBuilt      prometheus.Counter
	PanelRows        prometheus.Histogram
	SourceLoadErrors *prometheus.CounterVec // labels: source={weather,price,storage,notices,capacity}
	ForecastRuns     *prometheus.CounterVec // labels: model={stress_event,vol_risk}, outcome={success,error}
	AlertsPublished  prometheus.Counter
	CycleDuration    prometheus.Histogram
	PipelineRunning  prometheus.Gauge

	// EIA provider metrics.
	EIARequests    *prometheus.CounterVec   // labels: dataset={spot,storage}, outcome={success,error,empty}
	EIACache       *prometheus.CounterVec   // labels: dataset={spot,storage}, result={hit,miss}
	EIAAPIDuration *prometheus.HistogramVec // labels: dataset={spot,storage}
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		PanelsBuilt: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gas_forecast",
			Name:      "panels_built_total",
			Help:      "Total daily feature panels assembled.",
		}),
		PanelRows: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "gas_forecast",
			Name:      "panel_rows",
			Help:      "Rows per assembled panel.",
			Buckets:   []float64{10, 30, 90, 180, 365, 540, 1095},
		}),
		SourceLoadErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gas_forecast",
			Name:      "source_load_errors_total",
			Help:      "Source load failures by series.",
		}, []string{"source"}),
		ForecastRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gas_forecast",
			Name:      "forecast_runs_total",
			Help:      "Forecast evaluations by model and outcome.",
		}, []string{"model", "outcome"}),
		AlertsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gas_forecast",
			Name:      "alerts_published_total",
			Help:      "Forecast alerts written to the sink topic.",
		}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "gas_forecast",
			Name:      "cycle_duration_seconds",
			Help:      "Duration of a complete extract-panel-forecast-publish cycle.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "gas_forecast",
			Name:      "pipeline_running",
			Help:      "1 when the refresh pipeline is active, 0 when shut down.",
		}),
		EIARequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gas_forecast",
			Name:      "eia_requests_total",
			Help:      "EIA API requests by dataset and outcome.",
		}, []string{"dataset", "outcome"}),
		EIACache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gas_forecast",
			Name:      "eia_cache_total",
			Help:      "EIA response cache lookups by dataset and result.",
		}, []string{"dataset", "result"}),
		EIAAPIDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "gas_forecast",
			Name:      "eia_api_duration_seconds",
			Help:      "EIA API request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"dataset"}),
	}

	prometheus.MustRegister(
		m.PanelsBuilt,
		m.PanelRows,
		m.SourceLoadErrors,
		m.ForecastRuns,
		m.AlertsPublished,
		m.CycleDuration,
		m.PipelineRunning,
		m.EIARequests,
		m.EIACache,
		m.EIAAPIDuration,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		PanelsBuilt:      prometheus.NewCounter(prometheus.CounterOpts{Namespace: "gas_forecast", Name: "panels_built_total"}),
		PanelRows:        prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "gas_forecast", Name: "panel_rows"}),
		SourceLoadErrors: prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "gas_forecast", Name: "source_load_errors_total"}, []string{"source"}),
		ForecastRuns:     prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "gas_forecast", Name: "forecast_runs_total"}, []string{"model", "outcome"}),
		AlertsPublished:  prometheus.NewCounter(prometheus.CounterOpts{Namespace: "gas_forecast", Name: "alerts_published_total"}),
		CycleDuration:    prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "gas_forecast", Name: "cycle_duration_seconds"}),
		PipelineRunning:  prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "gas_forecast", Name: "pipeline_running"}),
		EIARequests:      prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "gas_forecast", Name: "eia_requests_total"}, []string{"dataset", "outcome"}),
		EIACache:         prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "gas_forecast", Name: "eia_cache_total"}, []string{"dataset", "result"}),
		EIAAPIDuration:   prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: "gas_forecast", Name: "eia_api_duration_seconds"}, []string{"dataset"}),
	}
}
