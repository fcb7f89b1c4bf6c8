package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tigerroll/roomrate/internal/support/logger"
)

// PrometheusRecorder is a Prometheus implementation of Recorder with its own registry.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	runDurationSeconds *prometheus.HistogramVec
	runStatusCounter   *prometheus.CounterVec
	runsInProgress     prometheus.Gauge
	forecastRows       prometheus.Counter
	estimatorCounter   *prometheus.CounterVec
	fallbackCounter    *prometheus.CounterVec
	exportFailures     prometheus.Counter
}

// NewPrometheusRecorder creates a PrometheusRecorder.
func NewPrometheusRecorder() *PrometheusRecorder {
	registry := prometheus.NewRegistry()

	// Go runtime and process metrics.
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &PrometheusRecorder{
		registry: registry,
		runDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "roomrate_run_duration_seconds",
			Help:    "Duration of forecast pipeline runs.",
			Buckets: prometheus.DefBuckets,
		}, []string{"status"}),
		runStatusCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "roomrate_runs_total",
			Help: "Total number of finished forecast pipeline runs by status.",
		}, []string{"status"}),
		runsInProgress: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "roomrate_runs_in_progress",
			Help: "Forecast pipeline runs currently executing.",
		}),
		forecastRows: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "roomrate_forecast_rows_written_total",
			Help: "Total forecast rows upserted.",
		}),
		estimatorCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "roomrate_estimator_used_total",
			Help: "Runs by the demand estimator that produced the forecast.",
		}, []string{"estimator"}),
		fallbackCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "roomrate_estimator_fallback_total",
			Help: "Demand estimator failures that fell through to the next estimator.",
		}, []string{"estimator", "reason"}),
		exportFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "roomrate_export_failures_total",
			Help: "Forecast parquet exports that failed.",
		}),
	}

	registry.MustRegister(r.runDurationSeconds)
	registry.MustRegister(r.runStatusCounter)
	registry.MustRegister(r.runsInProgress)
	registry.MustRegister(r.forecastRows)
	registry.MustRegister(r.estimatorCounter)
	registry.MustRegister(r.fallbackCounter)
	registry.MustRegister(r.exportFailures)

	return r
}

// GetRegistry returns the Prometheus registry.
func (r *PrometheusRecorder) GetRegistry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// RecordRunStart implements Recorder.
func (r *PrometheusRecorder) RecordRunStart(ctx context.Context) {
	r.runsInProgress.Inc()
	logger.Debugf("Metrics: run started.")
}

// RecordRunEnd implements Recorder.
func (r *PrometheusRecorder) RecordRunEnd(ctx context.Context, status string, duration time.Duration) {
	r.runsInProgress.Dec()
	r.runStatusCounter.WithLabelValues(status).Inc()
	r.runDurationSeconds.WithLabelValues(status).Observe(duration.Seconds())
	logger.Debugf("Metrics: run ended with %s. Duration: %.3fs", status, duration.Seconds())
}

// RecordForecastRows implements Recorder.
func (r *PrometheusRecorder) RecordForecastRows(ctx context.Context, count int) {
	r.forecastRows.Add(float64(count))
}

// RecordEstimator implements Recorder.
func (r *PrometheusRecorder) RecordEstimator(ctx context.Context, estimator string) {
	r.estimatorCounter.WithLabelValues(estimator).Inc()
}

// RecordFallback implements Recorder.
func (r *PrometheusRecorder) RecordFallback(ctx context.Context, estimator, reason string) {
	r.fallbackCounter.WithLabelValues(estimator, reason).Inc()
}

// RecordExportFailure implements Recorder.
func (r *PrometheusRecorder) RecordExportFailure(ctx context.Context) {
	r.exportFailures.Inc()
}

var _ Recorder = (*PrometheusRecorder)(nil)
