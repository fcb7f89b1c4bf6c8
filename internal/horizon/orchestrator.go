// Package horizon produces the forward forecast: one record per future stay date and
// room type, priced from the demand estimate that was current at that date.
package horizon

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tigerroll/roomrate/internal/config"
	"github.com/tigerroll/roomrate/internal/domain/model"
	"github.com/tigerroll/roomrate/internal/feature"
	"github.com/tigerroll/roomrate/internal/forecast"
	"github.com/tigerroll/roomrate/internal/pricing"
	"github.com/tigerroll/roomrate/internal/stats"
	"github.com/tigerroll/roomrate/internal/support/exception"
	"github.com/tigerroll/roomrate/internal/support/logger"
)

// Options configures an Orchestrator.
type Options struct {
	Days int
	// Start anchors the first forecast date. Zero means the day after the latest reservation.
	Start            time.Time
	Features         feature.Options
	Baseline         pricing.BaselineOptions
	NeutralOccupancy float64
}

// OptionsFromConfig builds Options from the pipeline configuration.
func OptionsFromConfig(cfg config.PipelineConfig) (Options, error) {
	weekend, err := cfg.Weekend()
	if err != nil {
		return Options{}, err
	}
	start, ok, err := cfg.Start()
	if err != nil {
		return Options{}, err
	}
	if !ok {
		start = time.Time{}
	}
	return Options{
		Days:  cfg.HorizonDays,
		Start: start,
		Features: feature.Options{
			Weekend:           weekend,
			RollingWindow:     cfg.RollingWindow,
			RollingMinPeriods: cfg.RollingMinPeriods,
		},
		Baseline: pricing.BaselineOptions{
			Window:     cfg.BaselineWindow,
			MinPeriods: cfg.BaselineMinPeriods,
			Default:    cfg.DefaultBaseline,
		},
		NeutralOccupancy: cfg.NeutralOccupancy,
	}, nil
}

// Plan is the outcome of one orchestration.
type Plan struct {
	Records      []model.ForecastRecord
	RoomTypes    []string
	Start        time.Time
	End          time.Time
	Estimator    string
	FallbackUsed bool
}

// Orchestrator chains the feature builder, the demand estimators, the baseline pricer
// and the price selector over the forecast window.
type Orchestrator struct {
	opts  Options
	chain *forecast.Chain
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(opts Options, chain *forecast.Chain) *Orchestrator {
	if opts.Days <= 0 {
		opts.Days = 14
	}
	if opts.Baseline.Default <= 0 {
		opts.Baseline.Default = pricing.DefaultBaseline
	}
	if opts.NeutralOccupancy <= 0 {
		opts.NeutralOccupancy = 50
	}
	return &Orchestrator{opts: opts, chain: chain}
}

// Run forecasts every reservation room type over the window.
// It fails only when there is no reservation history at all or the context is done.
func (o *Orchestrator) Run(ctx context.Context, reservations []model.ReservationRecord, competitors []model.CompetitorRateRecord) (*Plan, error) {
	if len(reservations) == 0 {
		return nil, exception.NewPipelineError("horizon", "nothing to forecast", exception.ErrNoReservations, false)
	}

	rows, columns, err := feature.Build(reservations, competitors, o.opts.Features)
	if err != nil {
		return nil, err
	}
	result, err := o.chain.Forecast(ctx, rows, columns)
	if err != nil {
		return nil, err
	}
	forecast.ApplyPredictions(rows, result.Predictions)

	baselines := pricing.ComputeBaselines(reservations, o.opts.Baseline)
	start := o.windowStart(reservations)
	roomTypes := roomTypesOf(reservations)

	records := Project(ProjectInput{
		Rows:         rows,
		Reservations: reservations,
		Competitors:  feature.NewCompetitorIndex(competitors),
		Baselines:    baselines,
		RoomTypes:    roomTypes,
		Dates:        window(start, o.opts.Days),
	}, o.opts)

	logger.Infof("Horizon %s..%s: %d records for %d room types (estimator '%s').",
		model.FormatDay(start), model.FormatDay(start.AddDate(0, 0, o.opts.Days-1)), len(records), len(roomTypes), result.Estimator)

	return &Plan{
		Records:      records,
		RoomTypes:    roomTypes,
		Start:        start,
		End:          start.AddDate(0, 0, o.opts.Days-1),
		Estimator:    result.Estimator,
		FallbackUsed: result.FallbackUsed,
	}, nil
}

func (o *Orchestrator) windowStart(reservations []model.ReservationRecord) time.Time {
	if !o.opts.Start.IsZero() {
		return model.Day(o.opts.Start)
	}
	latest := model.Day(reservations[0].StayDate)
	for _, r := range reservations[1:] {
		if d := model.Day(r.StayDate); d.After(latest) {
			latest = d
		}
	}
	return latest.AddDate(0, 0, 1)
}

// ProjectInput carries the precomputed inputs of Project.
type ProjectInput struct {
	// Rows are feature rows with Pred filled in.
	Rows         []model.FeatureRow
	Reservations []model.ReservationRecord
	Competitors  feature.CompetitorIndex
	Baselines    map[string]float64
	RoomTypes    []string
	Dates        []time.Time
}

// Project prices every (date, room type) pair, ordered by date then room type.
//
// The demand of a pair is the prediction of the latest feature row of the room type dated
// on or before the date. Pairs without such a row use a demand synthesized from the room
// type's history and its all-time median ADR as baseline.
func Project(in ProjectInput, opts Options) []model.ForecastRecord {
	asOf := newAsOfIndex(in.Rows)
	synth := synthesize(in.Rows, in.Reservations, opts)

	records := make([]model.ForecastRecord, 0, len(in.Dates)*len(in.RoomTypes))
	for _, day := range in.Dates {
		for _, roomType := range in.RoomTypes {
			var occupancy, baseline float64
			if row, ok := asOf.lookup(roomType, day); ok {
				occupancy = row.Pred
				baseline = pricing.BaselineFor(in.Baselines, roomType, opts.Baseline.Default)
			} else {
				d := synth.forRoom(roomType)
				occupancy, baseline = d.occupancy, d.baseline
			}
			comp := in.Competitors.Median(day, roomType)
			records = append(records, model.ForecastRecord{
				StayDate:       day,
				RoomType:       roomType,
				DemandForecast: round4(occupancy),
				CompetitorRate: comp,
				RecommendedADR: pricing.ChoosePrice(baseline, occupancy, comp),
			})
		}
	}
	return records
}

type defaults struct {
	occupancy float64
	baseline  float64
}

type synthesizer struct {
	byRoom  map[string]defaults
	neutral defaults
}

func (s synthesizer) forRoom(roomType string) defaults {
	if d, ok := s.byRoom[roomType]; ok {
		return d
	}
	return s.neutral
}

// synthesize derives the fallback demand and baseline of every room type:
// 0.4 x mean occupancy + 0.6 x mean rolling occupancy, as ratios.
func synthesize(rows []model.FeatureRow, reservations []model.ReservationRecord, opts Options) synthesizer {
	occ := make(map[string][]float64)
	roll := make(map[string][]float64)
	adr := make(map[string][]float64)
	for _, r := range rows {
		occ[r.RoomType] = append(occ[r.RoomType], r.Occupancy)
		if r.RollingOccupancy7 != nil {
			roll[r.RoomType] = append(roll[r.RoomType], *r.RollingOccupancy7)
		}
	}
	for _, r := range reservations {
		if stats.IsFinite(r.ADR) {
			adr[r.RoomType] = append(adr[r.RoomType], r.ADR)
		}
	}

	neutral := opts.NeutralOccupancy / 100
	s := synthesizer{
		byRoom:  make(map[string]defaults, len(occ)),
		neutral: defaults{occupancy: neutral, baseline: opts.Baseline.Default},
	}
	for roomType, values := range occ {
		meanOcc := stats.Mean(values)
		meanRoll := stats.Mean(roll[roomType])
		if math.IsNaN(meanRoll) {
			meanRoll = meanOcc
		}
		d := defaults{
			occupancy: stats.Clamp(0.4*(meanOcc/100)+0.6*(meanRoll/100), 0, 1),
			baseline:  stats.Median(adr[roomType]),
		}
		if math.IsNaN(d.occupancy) {
			d.occupancy = neutral
		}
		if math.IsNaN(d.baseline) || d.baseline <= 0 {
			d.baseline = opts.Baseline.Default
		}
		s.byRoom[roomType] = d
	}
	return s
}

func window(start time.Time, days int) []time.Time {
	out := make([]time.Time, days)
	for i := range out {
		out[i] = start.AddDate(0, 0, i)
	}
	return out
}

func roomTypesOf(reservations []model.ReservationRecord) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, r := range reservations {
		if _, ok := seen[r.RoomType]; !ok {
			seen[r.RoomType] = struct{}{}
			out = append(out, r.RoomType)
		}
	}
	sort.Strings(out)
	return out
}

func round4(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(4).Float64()
	return f
}
