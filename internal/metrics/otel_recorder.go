package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// InstrumentationName names the meter and tracer of the pipeline.
const InstrumentationName = "github.com/tigerroll/roomrate"

// OTelRecorder is an OpenTelemetry metrics implementation of Recorder.
type OTelRecorder struct {
	runs           metric.Int64Counter
	runDuration    metric.Float64Histogram
	forecastRows   metric.Int64Counter
	estimatorRuns  metric.Int64Counter
	fallbacks      metric.Int64Counter
	exportFailures metric.Int64Counter
}

// NewOTelRecorder creates the instruments on meter. A nil meter uses the global meter provider.
func NewOTelRecorder(meter metric.Meter) (*OTelRecorder, error) {
	if meter == nil {
		meter = otel.Meter(InstrumentationName)
	}
	r := &OTelRecorder{}
	var err error
	if r.runs, err = meter.Int64Counter("roomrate.runs",
		metric.WithDescription("Finished forecast pipeline runs by status.")); err != nil {
		return nil, err
	}
	if r.runDuration, err = meter.Float64Histogram("roomrate.run.duration",
		metric.WithDescription("Duration of forecast pipeline runs."), metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if r.forecastRows, err = meter.Int64Counter("roomrate.forecast.rows",
		metric.WithDescription("Forecast rows upserted.")); err != nil {
		return nil, err
	}
	if r.estimatorRuns, err = meter.Int64Counter("roomrate.estimator.used",
		metric.WithDescription("Runs by the demand estimator that produced the forecast.")); err != nil {
		return nil, err
	}
	if r.fallbacks, err = meter.Int64Counter("roomrate.estimator.fallbacks",
		metric.WithDescription("Demand estimator failures that fell through to the next estimator.")); err != nil {
		return nil, err
	}
	if r.exportFailures, err = meter.Int64Counter("roomrate.export.failures",
		metric.WithDescription("Forecast parquet exports that failed.")); err != nil {
		return nil, err
	}
	return r, nil
}

// RecordRunStart implements Recorder. Runs are counted when they end.
func (r *OTelRecorder) RecordRunStart(ctx context.Context) {}

// RecordRunEnd implements Recorder.
func (r *OTelRecorder) RecordRunEnd(ctx context.Context, status string, duration time.Duration) {
	attrs := metric.WithAttributes(attribute.String("status", status))
	r.runs.Add(ctx, 1, attrs)
	r.runDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordForecastRows implements Recorder.
func (r *OTelRecorder) RecordForecastRows(ctx context.Context, count int) {
	r.forecastRows.Add(ctx, int64(count))
}

// RecordEstimator implements Recorder.
func (r *OTelRecorder) RecordEstimator(ctx context.Context, estimator string) {
	r.estimatorRuns.Add(ctx, 1, metric.WithAttributes(attribute.String("estimator", estimator)))
}

// RecordFallback implements Recorder.
func (r *OTelRecorder) RecordFallback(ctx context.Context, estimator, reason string) {
	r.fallbacks.Add(ctx, 1, metric.WithAttributes(
		attribute.String("estimator", estimator),
		attribute.String("reason", reason),
	))
}

// RecordExportFailure implements Recorder.
func (r *OTelRecorder) RecordExportFailure(ctx context.Context) {
	r.exportFailures.Add(ctx, 1)
}

var _ Recorder = (*OTelRecorder)(nil)
