package forecast

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tigerroll/roomrate/internal/domain/model"
)

func TestDesignMatrix_ForwardFillThenZero(t *testing.T) {
	day := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	cols := []string{model.ColumnLagOccupancy1, model.ColumnCompetitorMedian, model.ColumnIsWeekend}
	rows := []model.FeatureRow{
		// Leading undefined values become 0.
		{StayDate: day, RoomType: "King"},
		{StayDate: day.AddDate(0, 0, 1), RoomType: "King", LagOccupancy1: model.Float(40), CompetitorMedian: model.Float(180), IsWeekend: 1},
		// Mid-series gap takes the previous row's value.
		{StayDate: day.AddDate(0, 0, 2), RoomType: "King", LagOccupancy1: model.Float(55)},
		// The fill carries across the room type boundary.
		{StayDate: day, RoomType: "Twin"},
		{StayDate: day.AddDate(0, 0, 1), RoomType: "Twin", CompetitorMedian: model.Float(120)},
	}

	x := designMatrix(rows, cols)
	assert.Equal(t, [][]float64{
		{0, 0, 0},
		{40, 180, 1},
		{55, 180, 0},
		{55, 180, 0},
		{55, 120, 0},
	}, x)
}
