package app

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"riskboard/internal/exchange"
	"riskboard/internal/riskmetrics"
)

const metricsNamespace = "riskboard"

// runMetrics 汇总每次计算的 Prometheus 指标。
type runMetrics struct {
	registry *prometheus.Registry

	runs           *prometheus.CounterVec
	assets         prometheus.Counter
	assetFailures  *prometheus.CounterVec
	fetchFailures  *prometheus.CounterVec
	evalDuration   prometheus.Histogram
	lastRunSuccess prometheus.Gauge
}

func newRunMetrics() *runMetrics {
	m := &runMetrics{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "runs_total",
			Help:      "Number of dashboard refreshes by outcome.",
		}, []string{"status"}),
		assets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "assets_evaluated_total",
			Help:      "Number of assets that produced a metrics row.",
		}),
		assetFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "asset_failures_total",
			Help:      "Number of assets skipped by the metrics engine, by error kind.",
		}, []string{"kind"}),
		fetchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "fetch_failures_total",
			Help:      "Number of symbols whose price history could not be fetched.",
		}, []string{"source"}),
		evalDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "evaluation_duration_seconds",
			Help:      "Time spent computing the metrics table.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}),
		lastRunSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "last_run_success_timestamp_seconds",
			Help:      "Unix time of the last successful refresh.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.runs,
		m.assets,
		m.assetFailures,
		m.fetchFailures,
		m.evalDuration,
		m.lastRunSuccess,
	)
	return m
}

func (m *runMetrics) observeFetch(source string, failures []exchange.FetchFailure) {
	if len(failures) > 0 {
		m.fetchFailures.WithLabelValues(source).Add(float64(len(failures)))
	}
}

func (m *runMetrics) observeTable(table riskmetrics.Table, elapsed time.Duration) {
	m.evalDuration.Observe(elapsed.Seconds())
	m.assets.Add(float64(len(table.Rows)))
	for _, f := range table.Failures {
		m.assetFailures.WithLabelValues(f.Kind).Inc()
	}
}

func (m *runMetrics) observeRun(err error, at time.Time) {
	if err != nil {
		m.runs.WithLabelValues("failed").Inc()
		return
	}
	m.runs.WithLabelValues("ok").Inc()
	m.lastRunSuccess.Set(float64(at.Unix()))
}
