package job_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/roomrate/internal/adapter/database"
	gormadapter "github.com/tigerroll/roomrate/internal/adapter/database/gorm"
	_ "github.com/tigerroll/roomrate/internal/adapter/database/gorm/sqlite"
	"github.com/tigerroll/roomrate/internal/config"
	"github.com/tigerroll/roomrate/internal/domain/model"
	"github.com/tigerroll/roomrate/internal/forecast"
	"github.com/tigerroll/roomrate/internal/horizon"
	"github.com/tigerroll/roomrate/internal/job"
	"github.com/tigerroll/roomrate/internal/metrics"
	"github.com/tigerroll/roomrate/internal/migration"
	"github.com/tigerroll/roomrate/internal/repository"
	"github.com/tigerroll/roomrate/internal/support/exception"
)

var day0 = time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

func history(roomType string, n int, adr float64) []model.ReservationRecord {
	out := make([]model.ReservationRecord, n)
	for i := range out {
		out[i] = model.ReservationRecord{
			StayDate: day0.AddDate(0, 0, i), RoomType: roomType,
			RoomsSold: 5 + i%4, RoomsAvailable: 10, ADR: adr,
		}
	}
	return out
}

func orchestrator(t *testing.T, estimators ...forecast.DemandEstimator) *horizon.Orchestrator {
	t.Helper()
	opts, err := horizon.OptionsFromConfig(config.NewConfig().Pipeline)
	require.NoError(t, err)
	if len(estimators) == 0 {
		estimators = []forecast.DemandEstimator{forecast.NewRollingEstimator(7, 2)}
	}
	return horizon.NewOrchestrator(opts, forecast.NewChain(nil, estimators...))
}

type memStore struct {
	reservations []model.ReservationRecord
	competitors  []model.CompetitorRateRecord
	written      []model.ForecastRecord
	writeErr     error
}

func (m *memStore) ReadReservations(context.Context) ([]model.ReservationRecord, error) {
	return m.reservations, nil
}

func (m *memStore) ReadCompetitorRates(context.Context) ([]model.CompetitorRateRecord, error) {
	return m.competitors, nil
}

func (m *memStore) UpsertForecasts(_ context.Context, rows []model.ForecastRecord) (int64, error) {
	if m.writeErr != nil {
		return 0, m.writeErr
	}
	m.written = rows
	return int64(len(rows)), nil
}

type fakeExporter struct {
	err   error
	calls int
}

func (f *fakeExporter) Enabled() bool { return true }

func (f *fakeExporter) Export(context.Context, string, []model.ForecastRecord) (string, error) {
	f.calls++
	return "forecasts/dt=2025-06-30/x.parquet", f.err
}

type spyRecorder struct {
	metrics.Composite
	statuses       []string
	rows           int
	estimators     []string
	exportFailures int
}

func (s *spyRecorder) RecordRunEnd(_ context.Context, status string, _ time.Duration) {
	s.statuses = append(s.statuses, status)
}
func (s *spyRecorder) RecordForecastRows(_ context.Context, n int)   { s.rows += n }
func (s *spyRecorder) RecordEstimator(_ context.Context, e string)  { s.estimators = append(s.estimators, e) }
func (s *spyRecorder) RecordExportFailure(context.Context)           { s.exportFailures++ }

func TestPipeline_Run(t *testing.T) {
	store := &memStore{reservations: append(history("King", 20, 150), history("Twin", 20, 90)...)}
	exp := &fakeExporter{}
	rec := &spyRecorder{}
	p := job.NewPipeline(store, orchestrator(t), exp, rec, nil)

	res, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, int64(28), res.Rows)
	assert.Equal(t, []string{"King", "Twin"}, res.RoomTypes)
	assert.True(t, res.HorizonStart.Equal(day0.AddDate(0, 0, 20)))
	assert.True(t, res.HorizonEnd.Equal(day0.AddDate(0, 0, 33)))
	assert.Equal(t, forecast.RollingEstimatorName, res.Estimator)
	assert.Equal(t, "forecasts/dt=2025-06-30/x.parquet", res.ExportObject)
	assert.Len(t, store.written, 28)

	assert.Equal(t, []string{metrics.StatusCompleted}, rec.statuses)
	assert.Equal(t, 28, rec.rows)
	assert.Equal(t, []string{forecast.RollingEstimatorName}, rec.estimators)
}

func TestPipeline_EmptyHistory(t *testing.T) {
	rec := &spyRecorder{}
	p := job.NewPipeline(&memStore{}, orchestrator(t), nil, rec, nil)

	_, err := p.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, exception.ErrNoReservations))
	assert.True(t, exception.IsPipelineError(err))
	assert.Equal(t, []string{metrics.StatusFailed}, rec.statuses)
}

func TestPipeline_WriteFailureFailsRun(t *testing.T) {
	store := &memStore{
		reservations: history("King", 10, 150),
		writeErr:     exception.NewPipelineError("writer", "failed to upsert", errors.New("disk full"), true),
	}
	rec := &spyRecorder{}
	_, err := job.NewPipeline(store, orchestrator(t), nil, rec, nil).Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, "writer", exception.ModuleOf(err))
	assert.Equal(t, []string{metrics.StatusFailed}, rec.statuses)
}

func TestPipeline_ExportFailureIsNotFatal(t *testing.T) {
	store := &memStore{reservations: history("King", 10, 150)}
	exp := &fakeExporter{err: errors.New("bucket unavailable")}
	rec := &spyRecorder{}

	res, err := job.NewPipeline(store, orchestrator(t), exp, rec, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, res.ExportObject)
	assert.Equal(t, 1, exp.calls)
	assert.Equal(t, 1, rec.exportFailures)
	assert.Equal(t, []string{metrics.StatusCompleted}, rec.statuses)
}

func TestPipeline_RerunIsIdempotent(t *testing.T) {
	cfg := database.DatabaseConfig{Type: "sqlite", DSN: "file::memory:", Pool: database.PoolConfig{MaxOpenConns: 1}}
	db, err := gormadapter.Open(cfg, "silent")
	require.NoError(t, err)
	conn, err := gormadapter.NewGormDBAdapter(db, cfg, "forecast")
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	ctx := context.Background()
	require.NoError(t, migration.NewMigrator(conn).Up(ctx))

	store := repository.NewStore(conn, gormadapter.NewGormTransactionManagerFactory())
	_, err = store.UpsertReservations(ctx, append(history("King", 30, 150), history("Twin", 30, 90)...))
	require.NoError(t, err)
	_, err = store.UpsertCompetitorRates(ctx, []model.CompetitorRateRecord{
		{StayDate: day0.AddDate(0, 0, 30), Competitor: "A", RoomType: "King", Rate: 210},
	})
	require.NoError(t, err)

	gbm := forecast.NewGBMEstimator(config.GBMConfig{NEstimators: 30})
	p := job.NewPipeline(store, orchestrator(t, gbm, forecast.NewRollingEstimator(7, 2)), nil, nil, nil)

	first, err := p.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, forecast.GBMEstimatorName, first.Estimator)
	firstRows, err := store.FindForecasts(ctx, first.HorizonStart, first.HorizonEnd)
	require.NoError(t, err)
	require.Len(t, firstRows, 28)

	second, err := p.Run(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, first.RunID, second.RunID)
	secondRows, err := store.FindForecasts(ctx, second.HorizonStart, second.HorizonEnd)
	require.NoError(t, err)
	assert.Equal(t, firstRows, secondRows)

	n, err := conn.Count(ctx, &model.ForecastRecord{}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(28), n)

	require.NotNil(t, firstRows[0].CompetitorRate)
	assert.Equal(t, 210.0, *firstRows[0].CompetitorRate)
	assert.Equal(t, "King", firstRows[0].RoomType)
}
