package horizon_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/roomrate/internal/config"
	"github.com/tigerroll/roomrate/internal/domain/model"
	"github.com/tigerroll/roomrate/internal/forecast"
	"github.com/tigerroll/roomrate/internal/horizon"
	"github.com/tigerroll/roomrate/internal/support/exception"
)

var day0 = time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

func nights(roomType string, from, n int, adr float64) []model.ReservationRecord {
	out := make([]model.ReservationRecord, n)
	for i := range out {
		sold := 4
		if (from+i)%2 == 1 {
			sold = 9
		}
		out[i] = model.ReservationRecord{
			StayDate: day0.AddDate(0, 0, from+i), RoomType: roomType,
			RoomsSold: sold, RoomsAvailable: 10, ADR: adr,
		}
	}
	return out
}

func newOrchestrator(t *testing.T, mutate func(*config.PipelineConfig), estimators ...forecast.DemandEstimator) *horizon.Orchestrator {
	t.Helper()
	cfg := config.NewConfig().Pipeline
	if mutate != nil {
		mutate(&cfg)
	}
	opts, err := horizon.OptionsFromConfig(cfg)
	require.NoError(t, err)
	if len(estimators) == 0 {
		estimators = []forecast.DemandEstimator{forecast.NewRollingEstimator(7, 2)}
	}
	return horizon.NewOrchestrator(opts, forecast.NewChain(nil, estimators...))
}

type brokenRegressor struct{}

func (brokenRegressor) Name() string { return "gbm" }
func (brokenRegressor) Estimate(context.Context, []model.FeatureRow, []string) ([]float64, error) {
	return nil, exception.ErrFitFailed
}

func TestRun_EmptyHistory(t *testing.T) {
	_, err := newOrchestrator(t, nil).Run(context.Background(), nil, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, exception.ErrNoReservations))
}

func TestRun_WindowAndOrdering(t *testing.T) {
	recs := append(nights("Twin", 0, 10, 120), nights("King", 0, 10, 150)...)
	plan, err := newOrchestrator(t, nil).Run(context.Background(), recs, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"King", "Twin"}, plan.RoomTypes)
	assert.Equal(t, day0.AddDate(0, 0, 10), plan.Start)
	assert.Equal(t, day0.AddDate(0, 0, 23), plan.End)
	require.Len(t, plan.Records, 28)

	assert.Equal(t, "King", plan.Records[0].RoomType)
	assert.Equal(t, "Twin", plan.Records[1].RoomType)
	assert.Equal(t, plan.Start, plan.Records[0].StayDate)
	assert.Equal(t, plan.End, plan.Records[27].StayDate)
	for _, r := range plan.Records {
		assert.GreaterOrEqual(t, r.DemandForecast, 0.0)
		assert.LessOrEqual(t, r.DemandForecast, 1.0)
		assert.Nil(t, r.CompetitorRate)
	}
}

func TestRun_KingScenario(t *testing.T) {
	plan, err := newOrchestrator(t, nil).Run(context.Background(), nights("King", 0, 10, 150), nil)
	require.NoError(t, err)

	// Every future date resolves to the last historical row: rolling mean of
	// the last seven nights (0.9, 0.4, 0.9, 0.4, 0.9, 0.4, 0.9) = 0.6857.
	for _, r := range plan.Records {
		assert.Equal(t, 0.6857, r.DemandForecast)
		assert.Equal(t, 150.0, r.RecommendedADR)
	}
}

func TestRun_CompetitorMedianPerExactDate(t *testing.T) {
	recs := nights("King", 0, 10, 150)
	target := day0.AddDate(0, 0, 11)
	comps := []model.CompetitorRateRecord{
		{StayDate: target, Competitor: "A", RoomType: "King", Rate: 200},
		{StayDate: target, Competitor: "B", RoomType: "King", Rate: 220},
		{StayDate: target, Competitor: "C", RoomType: "Twin", Rate: 999},
	}
	plan, err := newOrchestrator(t, nil).Run(context.Background(), recs, comps)
	require.NoError(t, err)

	for _, r := range plan.Records {
		if r.StayDate.Equal(target) {
			require.NotNil(t, r.CompetitorRate)
			assert.Equal(t, 210.0, *r.CompetitorRate)
			// Tier [0.50, 0.70): max(150, 210).
			assert.Equal(t, 210.0, r.RecommendedADR)
		} else {
			assert.Nil(t, r.CompetitorRate)
		}
	}
}

func TestRun_RoomTypeAbsentBeforeHorizon(t *testing.T) {
	recs := append(nights("King", 0, 20, 150), nights("Suite", 5, 15, 300)...)
	anchor := func(c *config.PipelineConfig) { c.HorizonStart = model.FormatDay(day0) }

	plan, err := newOrchestrator(t, anchor).Run(context.Background(), recs, nil)
	require.NoError(t, err)
	assert.Equal(t, day0, plan.Start)

	var suite []model.ForecastRecord
	for _, r := range plan.Records {
		if r.RoomType == "Suite" {
			suite = append(suite, r)
		}
	}
	require.Len(t, suite, 14)

	// Synthesized: 0.4 x mean occupancy + 0.6 x mean rolling occupancy, baseline = median ADR.
	for _, r := range suite[:5] {
		assert.InDelta(t, 0.6639, r.DemandForecast, 0.0005)
		assert.Equal(t, 300.0, r.RecommendedADR)
	}
	// From its first night on, Suite uses its own feature rows.
	for _, r := range suite[5:] {
		assert.GreaterOrEqual(t, r.DemandForecast, 0.0)
		assert.LessOrEqual(t, r.DemandForecast, 1.0)
	}
}

func TestRun_RegressionFailureFallsBack(t *testing.T) {
	recs := append(nights("King", 0, 10, 150), nights("Twin", 0, 2, 90)...)
	o := newOrchestrator(t, nil, brokenRegressor{}, forecast.NewRollingEstimator(7, 2))

	plan, err := o.Run(context.Background(), recs, nil)
	require.NoError(t, err)
	assert.True(t, plan.FallbackUsed)
	assert.Equal(t, forecast.RollingEstimatorName, plan.Estimator)
	require.Len(t, plan.Records, 28)
	for _, r := range plan.Records {
		assert.GreaterOrEqual(t, r.DemandForecast, 0.0)
		assert.LessOrEqual(t, r.DemandForecast, 1.0)
	}
}

func TestRun_Deterministic(t *testing.T) {
	recs := append(nights("King", 0, 12, 150), nights("Twin", 0, 12, 110)...)
	o := newOrchestrator(t, nil, forecast.NewGBMEstimator(config.GBMConfig{NEstimators: 30}))
	a, err := o.Run(context.Background(), recs, nil)
	require.NoError(t, err)
	b, err := o.Run(context.Background(), recs, nil)
	require.NoError(t, err)
	assert.Equal(t, a.Records, b.Records)
}

func TestProject_NeutralDefaultWithoutHistory(t *testing.T) {
	opts, err := horizon.OptionsFromConfig(config.NewConfig().Pipeline)
	require.NoError(t, err)
	recs := horizon.Project(horizon.ProjectInput{
		RoomTypes: []string{"Loft"},
		Dates:     []time.Time{day0},
	}, opts)
	require.Len(t, recs, 1)
	assert.Equal(t, 0.5, recs[0].DemandForecast)
	assert.Equal(t, 100.0, recs[0].RecommendedADR)
}

func TestOptionsFromConfig_InvalidWeekend(t *testing.T) {
	cfg := config.NewConfig().Pipeline
	cfg.WeekendDays = []string{"caturday"}
	_, err := horizon.OptionsFromConfig(cfg)
	assert.Error(t, err)
}
