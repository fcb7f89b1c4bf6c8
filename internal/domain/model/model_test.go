package model_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/roomrate/internal/domain/model"
)

func TestTableNames(t *testing.T) {
	assert.Equal(t, "reservations", model.ReservationRecord{}.TableName())
	assert.Equal(t, "competitor_rates", model.CompetitorRateRecord{}.TableName())
	assert.Equal(t, "forecasts", model.ForecastRecord{}.TableName())
	assert.Equal(t, "users", model.User{}.TableName())
}

func TestReservationRecord_Occupancy(t *testing.T) {
	cases := []struct {
		name      string
		sold      int
		available int
		want      float64
	}{
		{"half", 5, 10, 50},
		{"overbooked is clamped", 12, 10, 100},
		{"no rooms", 3, 0, 0},
		{"empty", 0, 20, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := model.ReservationRecord{RoomsSold: tc.sold, RoomsAvailable: tc.available}
			assert.InDelta(t, tc.want, r.Occupancy(), 1e-9)
		})
	}
}

func TestDayHelpers(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)

	ts := time.Date(2025, 1, 3, 23, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC), model.Day(ts))
	assert.Equal(t, time.Date(2025, 1, 4, 0, 0, 0, 0, time.UTC), model.DayIn(ts, tokyo))

	d, err := model.ParseDay("2025-01-03")
	require.NoError(t, err)
	assert.Equal(t, "2025-01-03", model.FormatDay(d))

	// 2025-01-03 is a Friday, 2025-01-05 a Sunday, 2025-01-06 a Monday.
	assert.Equal(t, 4, model.DayOfWeek(d))
	assert.Equal(t, 6, model.DayOfWeek(d.AddDate(0, 0, 2)))
	assert.Equal(t, 0, model.DayOfWeek(d.AddDate(0, 0, 3)))
}

func TestFeatureRow_Feature(t *testing.T) {
	row := model.FeatureRow{DayOfWeek: 5, IsWeekend: 1, RollingOccupancy7: model.Float(62.5)}

	v, ok := row.Feature(model.ColumnDayOfWeek)
	assert.True(t, ok)
	assert.Equal(t, 5.0, v)

	v, ok = row.Feature(model.ColumnRollingOccupancy7)
	assert.True(t, ok)
	assert.Equal(t, 62.5, v)

	_, ok = row.Feature(model.ColumnLagOccupancy1)
	assert.False(t, ok)
	_, ok = row.Feature("unknown")
	assert.False(t, ok)
}

func TestNewForecastExport(t *testing.T) {
	rec := model.ForecastRecord{
		StayDate:       time.Date(1970, 1, 11, 0, 0, 0, 0, time.UTC),
		RoomType:       "King",
		DemandForecast: 0.8,
		RecommendedADR: 162,
	}
	gen := time.UnixMilli(1700000000000)
	out := model.NewForecastExport("run-1", rec, gen)

	assert.Equal(t, int32(10), out.StayDate)
	assert.Equal(t, "King", out.RoomType)
	assert.Nil(t, out.CompetitorRate)
	assert.Equal(t, int64(1700000000000), out.GeneratedAt)
}

func TestLatestPerNight(t *testing.T) {
	night := time.Date(2025, 3, 1, 14, 30, 0, 0, time.UTC)
	recs := []model.ReservationRecord{
		{StayDate: night, RoomType: "King", RoomsSold: 4},
		{StayDate: night, RoomType: "Twin", RoomsSold: 2},
		{StayDate: night.Add(2 * time.Hour), RoomType: "King", RoomsSold: 7},
	}

	got := model.LatestPerNight(recs)
	require.Len(t, got, 2)
	assert.Equal(t, "King", got[0].RoomType)
	assert.Equal(t, 7, got[0].RoomsSold)
	assert.True(t, got[0].StayDate.Equal(model.Day(night)))
	assert.Equal(t, "Twin", got[1].RoomType)
}
