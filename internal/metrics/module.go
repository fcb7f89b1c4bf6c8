package metrics

import (
	"go.uber.org/fx"

	"github.com/tigerroll/roomrate/internal/forecast"
)

// newRecorder combines the Prometheus and OpenTelemetry recorders.
func newRecorder(prom *PrometheusRecorder) (Recorder, error) {
	otelRecorder, err := NewOTelRecorder(nil)
	if err != nil {
		return nil, err
	}
	return NewComposite(prom, otelRecorder), nil
}

// Module provides the PrometheusRecorder, the combined Recorder (also as the estimator fallback recorder) and the Tracer.
var Module = fx.Options(
	fx.Provide(NewPrometheusRecorder),
	fx.Provide(newRecorder),
	fx.Provide(func(r Recorder) forecast.FallbackRecorder { return r }),
	fx.Provide(func() *Tracer { return NewTracer(nil) }),
)
