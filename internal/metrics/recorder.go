// Package metrics records pipeline run metrics and traces the pipeline stages.
package metrics

import (
	"context"
	"time"
)

// Run statuses.
const (
	StatusCompleted = "COMPLETED"
	StatusFailed    = "FAILED"
)

// Recorder records what a pipeline run did.
type Recorder interface {
	RecordRunStart(ctx context.Context)
	RecordRunEnd(ctx context.Context, status string, duration time.Duration)
	RecordForecastRows(ctx context.Context, count int)
	RecordEstimator(ctx context.Context, estimator string)
	// RecordFallback records that estimator failed and the next one in the chain was tried.
	RecordFallback(ctx context.Context, estimator, reason string)
	RecordExportFailure(ctx context.Context)
}

// Composite fans every call out to several recorders.
type Composite []Recorder

// NewComposite creates a Composite, dropping nil recorders.
func NewComposite(recorders ...Recorder) Composite {
	out := make(Composite, 0, len(recorders))
	for _, r := range recorders {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

func (c Composite) RecordRunStart(ctx context.Context) {
	for _, r := range c {
		r.RecordRunStart(ctx)
	}
}

func (c Composite) RecordRunEnd(ctx context.Context, status string, duration time.Duration) {
	for _, r := range c {
		r.RecordRunEnd(ctx, status, duration)
	}
}

func (c Composite) RecordForecastRows(ctx context.Context, count int) {
	for _, r := range c {
		r.RecordForecastRows(ctx, count)
	}
}

func (c Composite) RecordEstimator(ctx context.Context, estimator string) {
	for _, r := range c {
		r.RecordEstimator(ctx, estimator)
	}
}

func (c Composite) RecordFallback(ctx context.Context, estimator, reason string) {
	for _, r := range c {
		r.RecordFallback(ctx, estimator, reason)
	}
}

func (c Composite) RecordExportFailure(ctx context.Context) {
	for _, r := range c {
		r.RecordExportFailure(ctx)
	}
}

var _ Recorder = Composite(nil)
