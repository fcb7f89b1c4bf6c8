package model

import "time"

// Feature column names consumed by the demand estimators, in model order.
const (
	ColumnDayOfWeek         = "day_of_week"
	ColumnLagOccupancy1     = "lag_occupancy_1"
	ColumnRollingOccupancy7 = "rolling_occupancy_7"
	ColumnIsWeekend         = "is_weekend"
	ColumnCompetitorMedian  = "competitor_median"
)

// FeatureColumns is the feature set produced by the feature builder.
var FeatureColumns = []string{
	ColumnDayOfWeek,
	ColumnLagOccupancy1,
	ColumnRollingOccupancy7,
	ColumnIsWeekend,
	ColumnCompetitorMedian,
}

// IsFeatureColumn reports whether FeatureRow.Feature knows column.
func IsFeatureColumn(column string) bool {
	for _, c := range FeatureColumns {
		if c == column {
			return true
		}
	}
	return false
}

// FeatureRow is the derived feature snapshot for one (stay date, room type).
// Nil pointers are undefined values.
type FeatureRow struct {
	StayDate time.Time
	RoomType string
	// Occupancy is the source occupancy percentage.
	Occupancy float64
	ADR       float64

	DayOfWeek         int
	IsWeekend         int
	LagOccupancy1     *float64
	RollingOccupancy7 *float64
	CompetitorMedian  *float64

	// Target is occupancy as a ratio in [0, 1].
	Target float64
	// Pred is the in-sample demand estimate in [0, 1], filled by the forecaster.
	Pred float64
}

// Feature returns the value of a feature column and whether it is defined.
func (r FeatureRow) Feature(column string) (float64, bool) {
	switch column {
	case ColumnDayOfWeek:
		return float64(r.DayOfWeek), true
	case ColumnIsWeekend:
		return float64(r.IsWeekend), true
	case ColumnLagOccupancy1:
		return deref(r.LagOccupancy1)
	case ColumnRollingOccupancy7:
		return deref(r.RollingOccupancy7)
	case ColumnCompetitorMedian:
		return deref(r.CompetitorMedian)
	}
	return 0, false
}

func deref(p *float64) (float64, bool) {
	if p == nil {
		return 0, false
	}
	return *p, true
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}
