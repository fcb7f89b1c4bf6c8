// Package feature turns reservation history into the per-(stay date, room type)
// feature table consumed by the demand estimators.
package feature

import (
	"sort"
	"time"

	"github.com/tigerroll/roomrate/internal/domain/model"
	"github.com/tigerroll/roomrate/internal/stats"
	"github.com/tigerroll/roomrate/internal/support/exception"
)

// Options controls the derived features.
type Options struct {
	// Weekend is the set of weekdays flagged by is_weekend.
	Weekend           []time.Weekday
	RollingWindow     int
	RollingMinPeriods int
}

// DefaultOptions returns Friday/Saturday weekends and a 7-sample rolling window with 2 minimum samples.
func DefaultOptions() Options {
	return Options{
		Weekend:           []time.Weekday{time.Friday, time.Saturday},
		RollingWindow:     7,
		RollingMinPeriods: 2,
	}
}

// Build derives the feature table from reservation history and optional competitor rates.
// Rows are returned sorted by (room type, stay date); lag and rolling windows never cross room types.
// Duplicate (stay date, room type) records keep the last one seen.
func Build(reservations []model.ReservationRecord, competitors []model.CompetitorRateRecord, opts Options) ([]model.FeatureRow, []string, error) {
	if len(reservations) == 0 {
		return nil, nil, exception.NewPipelineError("feature", "cannot build features without reservations", exception.ErrNoReservations, false)
	}

	records := model.LatestPerNight(reservations)
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].RoomType != records[j].RoomType {
			return records[i].RoomType < records[j].RoomType
		}
		return records[i].StayDate.Before(records[j].StayDate)
	})

	weekend := make(map[time.Weekday]bool, len(opts.Weekend))
	for _, d := range opts.Weekend {
		weekend[d] = true
	}
	compIndex := NewCompetitorIndex(competitors)

	rows := make([]model.FeatureRow, 0, len(records))
	for start := 0; start < len(records); {
		end := start
		for end < len(records) && records[end].RoomType == records[start].RoomType {
			end++
		}
		rows = append(rows, buildGroup(records[start:end], weekend, compIndex, opts)...)
		start = end
	}

	columns := make([]string, len(model.FeatureColumns))
	copy(columns, model.FeatureColumns)
	return rows, columns, nil
}

// buildGroup computes the features of one room type; group is sorted by stay date.
func buildGroup(group []model.ReservationRecord, weekend map[time.Weekday]bool, compIndex CompetitorIndex, opts Options) []model.FeatureRow {
	occupancy := make([]float64, len(group))
	for i, r := range group {
		occupancy[i] = r.Occupancy()
	}
	lag := stats.Shift(occupancy)
	rolling := stats.Rolling(occupancy, opts.RollingWindow, opts.RollingMinPeriods, stats.Mean)

	rows := make([]model.FeatureRow, len(group))
	for i, r := range group {
		isWeekend := 0
		if weekend[r.StayDate.Weekday()] {
			isWeekend = 1
		}
		rows[i] = model.FeatureRow{
			StayDate:          r.StayDate,
			RoomType:          r.RoomType,
			Occupancy:         occupancy[i],
			ADR:               r.ADR,
			DayOfWeek:         model.DayOfWeek(r.StayDate),
			IsWeekend:         isWeekend,
			LagOccupancy1:     lag[i],
			RollingOccupancy7: rolling[i],
			CompetitorMedian:  compIndex.Median(r.StayDate, r.RoomType),
			Target:            occupancy[i] / 100.0,
		}
	}
	return rows
}
