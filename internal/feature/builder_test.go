package feature_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/roomrate/internal/domain/model"
	"github.com/tigerroll/roomrate/internal/feature"
	"github.com/tigerroll/roomrate/internal/support/exception"
)

var day0 = time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC) // Monday

func res(offset int, roomType string, sold int) model.ReservationRecord {
	return model.ReservationRecord{
		StayDate:       day0.AddDate(0, 0, offset),
		RoomType:       roomType,
		RoomsSold:      sold,
		RoomsAvailable: 10,
		ADR:            120,
	}
}

func TestBuild_EmptyHistory(t *testing.T) {
	_, _, err := feature.Build(nil, nil, feature.DefaultOptions())
	require.Error(t, err)
	assert.True(t, errors.Is(err, exception.ErrNoReservations))
}

func TestBuild_SortsAndWindowsPerRoomType(t *testing.T) {
	in := []model.ReservationRecord{
		res(1, "Twin", 4),
		res(0, "King", 5),
		res(0, "Twin", 2),
		res(2, "King", 9),
		res(1, "King", 7),
	}
	rows, cols, err := feature.Build(in, nil, feature.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, model.FeatureColumns, cols)
	require.Len(t, rows, 5)

	assert.Equal(t, "King", rows[0].RoomType)
	assert.Equal(t, day0, rows[0].StayDate)
	assert.Equal(t, "Twin", rows[3].RoomType)

	// The first row of each room type has no lag and no rolling mean.
	assert.Nil(t, rows[0].LagOccupancy1)
	assert.Nil(t, rows[0].RollingOccupancy7)
	assert.Nil(t, rows[3].LagOccupancy1)

	require.NotNil(t, rows[1].LagOccupancy1)
	assert.Equal(t, 50.0, *rows[1].LagOccupancy1)
	require.NotNil(t, rows[1].RollingOccupancy7)
	assert.InDelta(t, 60.0, *rows[1].RollingOccupancy7, 1e-9)
	assert.InDelta(t, 70.0, *rows[2].RollingOccupancy7, 1e-9)

	// Twin's lag never reads King's history.
	require.NotNil(t, rows[4].LagOccupancy1)
	assert.Equal(t, 20.0, *rows[4].LagOccupancy1)

	assert.InDelta(t, 0.9, rows[2].Target, 1e-12)
}

func TestBuild_CalendarFeatures(t *testing.T) {
	in := []model.ReservationRecord{res(4, "King", 5), res(5, "King", 5), res(6, "King", 5), res(0, "King", 5)}
	rows, _, err := feature.Build(in, nil, feature.DefaultOptions())
	require.NoError(t, err)

	// Monday, Friday, Saturday, Sunday
	assert.Equal(t, []int{0, 4, 5, 6}, []int{rows[0].DayOfWeek, rows[1].DayOfWeek, rows[2].DayOfWeek, rows[3].DayOfWeek})
	assert.Equal(t, []int{0, 1, 1, 0}, []int{rows[0].IsWeekend, rows[1].IsWeekend, rows[2].IsWeekend, rows[3].IsWeekend})

	opts := feature.DefaultOptions()
	opts.Weekend = []time.Weekday{time.Saturday, time.Sunday}
	rows, _, err = feature.Build(in, nil, opts)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0, 1, 1}, []int{rows[0].IsWeekend, rows[1].IsWeekend, rows[2].IsWeekend, rows[3].IsWeekend})
}

func TestBuild_CompetitorMedian(t *testing.T) {
	in := []model.ReservationRecord{res(0, "King", 5), res(1, "King", 5)}
	comps := []model.CompetitorRateRecord{
		{StayDate: day0, Competitor: "A", RoomType: "King", Rate: 100},
		{StayDate: day0, Competitor: "B", RoomType: "King", Rate: 140},
		{StayDate: day0, Competitor: "C", RoomType: "King", Rate: 110},
		{StayDate: day0, Competitor: "A", RoomType: "Twin", Rate: 90},
	}
	rows, _, err := feature.Build(in, comps, feature.DefaultOptions())
	require.NoError(t, err)

	require.NotNil(t, rows[0].CompetitorMedian)
	assert.Equal(t, 110.0, *rows[0].CompetitorMedian)
	assert.Nil(t, rows[1].CompetitorMedian)
}

func TestBuild_DuplicateKeepsLast(t *testing.T) {
	in := []model.ReservationRecord{res(0, "King", 2), res(0, "King", 8)}
	rows, _, err := feature.Build(in, nil, feature.DefaultOptions())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 80.0, rows[0].Occupancy)
}

func TestCompetitorIndex_Median(t *testing.T) {
	ix := feature.NewCompetitorIndex([]model.CompetitorRateRecord{
		{StayDate: day0.Add(5 * time.Hour), Competitor: "A", RoomType: "King", Rate: 100},
		{StayDate: day0, Competitor: "B", RoomType: "King", Rate: 120},
	})
	m := ix.Median(day0, "King")
	require.NotNil(t, m)
	assert.Equal(t, 110.0, *m)
	assert.Nil(t, ix.Median(day0, "Suite"))
}
