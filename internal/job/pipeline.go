// Package job runs the forecast pipeline as one batch:
// read history, forecast and price the horizon, write the forecasts, export them.
package job

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/tigerroll/roomrate/internal/domain/model"
	"github.com/tigerroll/roomrate/internal/horizon"
	"github.com/tigerroll/roomrate/internal/metrics"
	"github.com/tigerroll/roomrate/internal/support/exception"
	"github.com/tigerroll/roomrate/internal/support/logger"
)

// Store is the persistence the pipeline reads history from and writes forecasts to.
type Store interface {
	ReadReservations(ctx context.Context) ([]model.ReservationRecord, error)
	ReadCompetitorRates(ctx context.Context) ([]model.CompetitorRateRecord, error)
	UpsertForecasts(ctx context.Context, rows []model.ForecastRecord) (int64, error)
}

// Exporter publishes a forecast batch outside the store.
type Exporter interface {
	Enabled() bool
	Export(ctx context.Context, runID string, records []model.ForecastRecord) (string, error)
}

// RunResult summarises one pipeline run.
type RunResult struct {
	RunID        string        `json:"run_id"`
	Rows         int64         `json:"rows"`
	RoomTypes    []string      `json:"room_types"`
	HorizonStart time.Time     `json:"horizon_start"`
	HorizonEnd   time.Time     `json:"horizon_end"`
	Estimator    string        `json:"estimator"`
	FallbackUsed bool          `json:"fallback_used"`
	ExportObject string        `json:"export_object,omitempty"`
	Duration     time.Duration `json:"duration"`
}

// Pipeline is the forecast job.
type Pipeline struct {
	store        Store
	orchestrator *horizon.Orchestrator
	exporter     Exporter
	recorder     metrics.Recorder
	tracer       *metrics.Tracer
	newRunID     func() string
}

// NewPipeline creates a Pipeline. exporter may be nil.
func NewPipeline(store Store, orchestrator *horizon.Orchestrator, exporter Exporter, recorder metrics.Recorder, tracer *metrics.Tracer) *Pipeline {
	if recorder == nil {
		recorder = metrics.NewComposite()
	}
	if tracer == nil {
		tracer = metrics.NewTracer(nil)
	}
	return &Pipeline{
		store:        store,
		orchestrator: orchestrator,
		exporter:     exporter,
		recorder:     recorder,
		tracer:       tracer,
		newRunID:     func() string { return uuid.New().String() },
	}
}

// Run executes the pipeline once. Re-running is safe: forecasts are upserted by (stay_date, room_type).
func (p *Pipeline) Run(ctx context.Context) (result *RunResult, err error) {
	started := time.Now()
	runID := p.newRunID()
	ctx, endSpan := p.tracer.StartSpan(ctx, "pipeline.run", attribute.String("run_id", runID))
	p.recorder.RecordRunStart(ctx)
	logger.Infof("Forecast run %s started.", runID)

	defer func() {
		status := metrics.StatusCompleted
		if err != nil {
			status = metrics.StatusFailed
			logger.Errorf("Forecast run %s failed: %v", runID, err)
		}
		p.recorder.RecordRunEnd(ctx, status, time.Since(started))
		endSpan(err)
	}()

	reservations, competitors, err := p.read(ctx)
	if err != nil {
		return nil, err
	}

	plan, err := p.forecast(ctx, reservations, competitors)
	if err != nil {
		return nil, err
	}
	p.recorder.RecordEstimator(ctx, plan.Estimator)

	written, err := p.write(ctx, plan.Records)
	if err != nil {
		return nil, err
	}
	p.recorder.RecordForecastRows(ctx, int(written))

	result = &RunResult{
		RunID:        runID,
		Rows:         written,
		RoomTypes:    plan.RoomTypes,
		HorizonStart: plan.Start,
		HorizonEnd:   plan.End,
		Estimator:    plan.Estimator,
		FallbackUsed: plan.FallbackUsed,
	}
	result.ExportObject = p.export(ctx, runID, plan.Records)
	result.Duration = time.Since(started)

	logger.Infof("Forecast run %s completed: %d rows, %d room types, %s..%s, estimator '%s' (fallback=%t) in %v.",
		runID, written, len(plan.RoomTypes), model.FormatDay(plan.Start), model.FormatDay(plan.End),
		plan.Estimator, plan.FallbackUsed, result.Duration)
	return result, nil
}

func (p *Pipeline) read(ctx context.Context) (reservations []model.ReservationRecord, competitors []model.CompetitorRateRecord, err error) {
	ctx, end := p.tracer.StartSpan(ctx, "pipeline.read")
	defer func() { end(err) }()

	if reservations, err = p.store.ReadReservations(ctx); err != nil {
		return nil, nil, err
	}
	if len(reservations) == 0 {
		return nil, nil, exception.NewPipelineError("reader", "reservation table is empty", exception.ErrNoReservations, false)
	}
	if competitors, err = p.store.ReadCompetitorRates(ctx); err != nil {
		return nil, nil, err
	}
	p.tracer.RecordEvent(ctx, "history.loaded",
		attribute.Int("reservations", len(reservations)),
		attribute.Int("competitor_rates", len(competitors)))
	return reservations, competitors, nil
}

func (p *Pipeline) forecast(ctx context.Context, reservations []model.ReservationRecord, competitors []model.CompetitorRateRecord) (plan *horizon.Plan, err error) {
	ctx, end := p.tracer.StartSpan(ctx, "pipeline.forecast")
	defer func() { end(err) }()
	return p.orchestrator.Run(ctx, reservations, competitors)
}

func (p *Pipeline) write(ctx context.Context, records []model.ForecastRecord) (n int64, err error) {
	ctx, end := p.tracer.StartSpan(ctx, "pipeline.write", attribute.Int("rows", len(records)))
	defer func() { end(err) }()
	return p.store.UpsertForecasts(ctx, records)
}

// export publishes the batch. The store is the system of record, so failures are only logged and counted.
func (p *Pipeline) export(ctx context.Context, runID string, records []model.ForecastRecord) string {
	if p.exporter == nil || !p.exporter.Enabled() {
		return ""
	}
	ctx, end := p.tracer.StartSpan(ctx, "pipeline.export")
	objectName, err := p.exporter.Export(ctx, runID, records)
	end(err)
	if err != nil {
		logger.Warnf("Forecast export of run %s failed: %v", runID, err)
		p.recorder.RecordExportFailure(ctx)
		return ""
	}
	return objectName
}
