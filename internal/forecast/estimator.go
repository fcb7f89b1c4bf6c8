// Package forecast estimates the in-sample demand ratio of every feature row.
//
// Estimation strategies implement DemandEstimator and are tried in order by a Chain:
// the first strategy that succeeds provides the predictions, so a failing regression
// quietly degrades to the rolling-mean estimator.
package forecast

import (
	"context"
	"errors"
	"fmt"

	"github.com/tigerroll/roomrate/internal/domain/model"
	"github.com/tigerroll/roomrate/internal/stats"
	"github.com/tigerroll/roomrate/internal/support/exception"
	"github.com/tigerroll/roomrate/internal/support/logger"
)

// DemandEstimator predicts the occupancy ratio of each feature row.
// Predictions are aligned with rows and clamped to [0, 1].
type DemandEstimator interface {
	// Name identifies the strategy in logs and metrics.
	Name() string
	Estimate(ctx context.Context, rows []model.FeatureRow, columns []string) ([]float64, error)
}

// FallbackRecorder is notified when an estimator fails and the next one is tried.
type FallbackRecorder interface {
	RecordFallback(ctx context.Context, estimator, reason string)
}

// Result is the outcome of a chained estimation.
type Result struct {
	Predictions []float64
	// Estimator is the name of the strategy that produced Predictions.
	Estimator    string
	FallbackUsed bool
}

// Chain tries its estimators in order until one succeeds.
type Chain struct {
	estimators []DemandEstimator
	recorder   FallbackRecorder
}

// NewChain creates a Chain. recorder may be nil.
func NewChain(recorder FallbackRecorder, estimators ...DemandEstimator) *Chain {
	return &Chain{estimators: estimators, recorder: recorder}
}

// Forecast runs the chain. It only fails when ctx is done or every estimator failed.
func (c *Chain) Forecast(ctx context.Context, rows []model.FeatureRow, columns []string) (Result, error) {
	var errs []error
	for i, est := range c.estimators {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		preds, err := est.Estimate(ctx, rows, columns)
		if err == nil {
			if len(preds) != len(rows) {
				err = fmt.Errorf("%s returned %d predictions for %d rows: %w", est.Name(), len(preds), len(rows), exception.ErrFitFailed)
			} else {
				return Result{Predictions: preds, Estimator: est.Name(), FallbackUsed: i > 0}, nil
			}
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{}, ctxErr
		}

		errs = append(errs, err)
		if i+1 < len(c.estimators) {
			next := c.estimators[i+1].Name()
			logger.Warnf("Demand estimator '%s' failed, falling back to '%s': %v", est.Name(), next, err)
			if c.recorder != nil {
				c.recorder.RecordFallback(ctx, est.Name(), reasonOf(err))
			}
		}
	}
	return Result{}, exception.NewPipelineError("forecast", "no demand estimator succeeded", errors.Join(errs...), false)
}

// reasonOf returns a low-cardinality label for a fallback.
func reasonOf(err error) string {
	switch {
	case errors.Is(err, exception.ErrEstimatorUnavailable):
		return "unavailable"
	case errors.Is(err, exception.ErrFitFailed):
		return "fit_failed"
	default:
		return "error"
	}
}

// ApplyPredictions stores predictions into the Pred field of rows.
func ApplyPredictions(rows []model.FeatureRow, predictions []float64) {
	for i := range rows {
		if i < len(predictions) {
			rows[i].Pred = predictions[i]
		}
	}
}

func clampRatio(v float64) float64 {
	return stats.Clamp(v, 0, 1)
}
