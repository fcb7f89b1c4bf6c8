// Package pricing turns demand estimates into recommended nightly rates.
package pricing

import (
	"math"
	"sort"

	"github.com/tigerroll/roomrate/internal/domain/model"
	"github.com/tigerroll/roomrate/internal/stats"
)

// DefaultBaseline is the rate used when a room type has no usable ADR history.
const DefaultBaseline = 100.0

// BaselineOptions controls the trailing ADR median.
type BaselineOptions struct {
	Window     int
	MinPeriods int
	Default    float64
}

// DefaultBaselineOptions returns a 14-night window with at least 3 nights.
func DefaultBaselineOptions() BaselineOptions {
	return BaselineOptions{Window: 14, MinPeriods: 3, Default: DefaultBaseline}
}

// ComputeBaselines returns the baseline ADR per room type.
//
// The baseline is the most recent trailing median of ADR. Room types with too little
// history fall back to the median of all their ADRs, and to opts.Default when that
// is missing or not positive. Duplicate (stay date, room type) records count once, keeping the last.
func ComputeBaselines(reservations []model.ReservationRecord, opts BaselineOptions) map[string]float64 {
	byRoom := make(map[string][]model.ReservationRecord)
	for _, r := range model.LatestPerNight(reservations) {
		byRoom[r.RoomType] = append(byRoom[r.RoomType], r)
	}

	out := make(map[string]float64, len(byRoom))
	for roomType, rs := range byRoom {
		sort.SliceStable(rs, func(i, j int) bool { return rs[i].StayDate.Before(rs[j].StayDate) })
		adr := make([]float64, 0, len(rs))
		for _, r := range rs {
			if stats.IsFinite(r.ADR) {
				adr = append(adr, r.ADR)
			}
		}
		out[roomType] = baselineOf(adr, opts)
	}
	return out
}

// BaselineFor looks up a room type's baseline, defaulting when it is unknown.
func BaselineFor(baselines map[string]float64, roomType string, fallback float64) float64 {
	if v, ok := baselines[roomType]; ok {
		return v
	}
	return fallback
}

func baselineOf(adr []float64, opts BaselineOptions) float64 {
	v, ok := stats.LastDefined(stats.Rolling(adr, opts.Window, opts.MinPeriods, stats.Median))
	if !ok {
		v = stats.Median(adr)
	}
	if math.IsNaN(v) || v <= 0 {
		return opts.Default
	}
	return v
}
