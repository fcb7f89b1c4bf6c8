package forecast_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/roomrate/internal/config"
	"github.com/tigerroll/roomrate/internal/domain/model"
	"github.com/tigerroll/roomrate/internal/feature"
	"github.com/tigerroll/roomrate/internal/forecast"
	"github.com/tigerroll/roomrate/internal/support/exception"
)

var day0 = time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

// oscillating builds n nights alternating between 40% and 90% occupancy.
func oscillating(roomType string, n int) []model.ReservationRecord {
	out := make([]model.ReservationRecord, n)
	for i := range out {
		sold := 4
		if i%2 == 1 {
			sold = 9
		}
		out[i] = model.ReservationRecord{
			StayDate: day0.AddDate(0, 0, i), RoomType: roomType,
			RoomsSold: sold, RoomsAvailable: 10, ADR: 150,
		}
	}
	return out
}

func features(t *testing.T, recs []model.ReservationRecord) ([]model.FeatureRow, []string) {
	t.Helper()
	rows, cols, err := feature.Build(recs, nil, feature.DefaultOptions())
	require.NoError(t, err)
	return rows, cols
}

type failingEstimator struct{ err error }

func (f failingEstimator) Name() string { return "broken" }
func (f failingEstimator) Estimate(context.Context, []model.FeatureRow, []string) ([]float64, error) {
	return nil, f.err
}

type fallbackSpy struct {
	estimator, reason string
	calls             int
}

func (s *fallbackSpy) RecordFallback(_ context.Context, estimator, reason string) {
	s.estimator, s.reason = estimator, reason
	s.calls++
}

func TestGBMEstimator_PredictsWithinRange(t *testing.T) {
	rows, cols := features(t, append(oscillating("King", 30), oscillating("Twin", 30)...))
	est := forecast.NewGBMEstimator(config.NewConfig().Pipeline.GBM)

	preds, err := est.Estimate(context.Background(), rows, cols)
	require.NoError(t, err)
	require.Len(t, preds, len(rows))
	for _, p := range preds {
		assert.GreaterOrEqual(t, p, 0.0)
		assert.LessOrEqual(t, p, 1.0)
	}

	// Weekday pattern is learnable: the fit should be close to the alternating target.
	var sse float64
	for i, r := range rows {
		d := preds[i] - r.Target
		sse += d * d
	}
	assert.Less(t, sse/float64(len(rows)), 0.01)
}

func TestGBMEstimator_Deterministic(t *testing.T) {
	rows, cols := features(t, oscillating("King", 20))
	est := forecast.NewGBMEstimator(config.GBMConfig{NEstimators: 50, Seed: 7})

	a, err := est.Estimate(context.Background(), rows, cols)
	require.NoError(t, err)
	b, err := est.Estimate(context.Background(), rows, cols)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestGBMEstimator_Errors(t *testing.T) {
	est := forecast.NewGBMEstimator(config.GBMConfig{})
	_, err := est.Estimate(context.Background(), nil, model.FeatureColumns)
	assert.True(t, errors.Is(err, exception.ErrFitFailed))

	est.Disabled = true
	_, err = est.Estimate(context.Background(), nil, model.FeatureColumns)
	assert.True(t, errors.Is(err, exception.ErrEstimatorUnavailable))
}

func TestRollingEstimator(t *testing.T) {
	recs := append(oscillating("King", 4), model.ReservationRecord{
		StayDate: day0, RoomType: "Solo", RoomsSold: 3, RoomsAvailable: 10, ADR: 90,
	})
	rows, cols := features(t, recs)
	preds, err := forecast.NewRollingEstimator(7, 2).Estimate(context.Background(), rows, cols)
	require.NoError(t, err)

	// King targets 0.4, 0.9, 0.4, 0.9: the leading row is back-filled.
	assert.InDeltaSlice(t, []float64{0.65, 0.65, 1.7 / 3, 0.65}, preds[:4], 1e-9)
	// A single sample falls back to its own mean.
	assert.InDelta(t, 0.3, preds[4], 1e-9)
}

func TestChain_FallbackOnFailure(t *testing.T) {
	rows, cols := features(t, append(oscillating("King", 10), oscillating("Twin", 2)...))
	spy := &fallbackSpy{}
	chain := forecast.NewChain(spy,
		failingEstimator{err: exception.ErrFitFailed},
		forecast.NewRollingEstimator(7, 2),
	)

	res, err := chain.Forecast(context.Background(), rows, cols)
	require.NoError(t, err)
	assert.True(t, res.FallbackUsed)
	assert.Equal(t, forecast.RollingEstimatorName, res.Estimator)
	require.Len(t, res.Predictions, len(rows))
	for _, p := range res.Predictions {
		assert.GreaterOrEqual(t, p, 0.0)
		assert.LessOrEqual(t, p, 1.0)
	}
	assert.Equal(t, 1, spy.calls)
	assert.Equal(t, "broken", spy.estimator)
	assert.Equal(t, "fit_failed", spy.reason)
}

func TestChain_PrimarySucceeds(t *testing.T) {
	rows, cols := features(t, oscillating("King", 10))
	spy := &fallbackSpy{}
	chain := forecast.NewChain(spy, forecast.NewGBMEstimator(config.GBMConfig{NEstimators: 20}), forecast.NewRollingEstimator(7, 2))

	res, err := chain.Forecast(context.Background(), rows, cols)
	require.NoError(t, err)
	assert.False(t, res.FallbackUsed)
	assert.Equal(t, forecast.GBMEstimatorName, res.Estimator)
	assert.Zero(t, spy.calls)
}

func TestChain_AllFail(t *testing.T) {
	chain := forecast.NewChain(nil, failingEstimator{err: exception.ErrEstimatorUnavailable})
	_, err := chain.Forecast(context.Background(), nil, nil)
	require.Error(t, err)
	assert.True(t, exception.IsPipelineError(err))
	assert.True(t, errors.Is(err, exception.ErrEstimatorUnavailable))
}

func TestChain_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	chain := forecast.NewChain(nil, forecast.NewRollingEstimator(7, 2))
	_, err := chain.Forecast(ctx, nil, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewEstimators(t *testing.T) {
	cfg := config.NewConfig().Pipeline
	ests, err := forecast.NewEstimators(cfg)
	require.NoError(t, err)
	require.Len(t, ests, 2)
	assert.Equal(t, forecast.GBMEstimatorName, ests[0].Name())

	cfg.Estimator = config.EstimatorRolling
	ests, err = forecast.NewEstimators(cfg)
	require.NoError(t, err)
	require.Len(t, ests, 1)

	cfg.Estimator = "prophet"
	_, err = forecast.NewEstimators(cfg)
	assert.Error(t, err)
}

func TestApplyPredictions(t *testing.T) {
	rows := make([]model.FeatureRow, 2)
	forecast.ApplyPredictions(rows, []float64{0.2, 0.7})
	assert.Equal(t, 0.7, rows[1].Pred)
}

func TestGBMEstimator_UnknownColumnFallsBack(t *testing.T) {
	rows, cols := features(t, oscillating("King", 10))
	cols = append(cols, "occupancy_lag_7")

	_, err := forecast.NewGBMEstimator(config.GBMConfig{NEstimators: 10}).Estimate(context.Background(), rows, cols)
	assert.True(t, errors.Is(err, exception.ErrFitFailed))
	assert.Contains(t, err.Error(), "occupancy_lag_7")

	spy := &fallbackSpy{}
	chain := forecast.NewChain(spy, forecast.NewGBMEstimator(config.GBMConfig{NEstimators: 10}), forecast.NewRollingEstimator(7, 2))
	res, err := chain.Forecast(context.Background(), rows, cols)
	require.NoError(t, err)
	assert.True(t, res.FallbackUsed)
	assert.Equal(t, forecast.RollingEstimatorName, res.Estimator)
	assert.Equal(t, "fit_failed", spy.reason)
}
