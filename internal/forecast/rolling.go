package forecast

import (
	"context"

	"github.com/tigerroll/roomrate/internal/domain/model"
	"github.com/tigerroll/roomrate/internal/stats"
)

// RollingEstimatorName is the name of the rolling-mean estimator.
const RollingEstimatorName = "rolling"

// RollingEstimator predicts each row as the trailing mean of its room type's target.
// Leading rows without enough samples take the first defined mean that follows them.
type RollingEstimator struct {
	Window     int
	MinPeriods int
}

// NewRollingEstimator creates a RollingEstimator.
func NewRollingEstimator(window, minPeriods int) *RollingEstimator {
	return &RollingEstimator{Window: window, MinPeriods: minPeriods}
}

// Name implements DemandEstimator.
func (e *RollingEstimator) Name() string { return RollingEstimatorName }

// Estimate implements DemandEstimator. Rows must be grouped by room type in date order,
// as produced by the feature builder.
func (e *RollingEstimator) Estimate(_ context.Context, rows []model.FeatureRow, _ []string) ([]float64, error) {
	preds := make([]float64, len(rows))

	groups := make(map[string][]int)
	var order []string
	for i, r := range rows {
		if _, ok := groups[r.RoomType]; !ok {
			order = append(order, r.RoomType)
		}
		groups[r.RoomType] = append(groups[r.RoomType], i)
	}

	for _, roomType := range order {
		idx := groups[roomType]
		target := make([]float64, len(idx))
		for j, i := range idx {
			target[j] = rows[i].Target
		}
		filled := stats.BackFill(stats.Rolling(target, e.Window, e.MinPeriods, stats.Mean))
		// A room type too short for any window uses the mean of its targets.
		groupMean := stats.Mean(target)
		for j, i := range idx {
			v := groupMean
			if filled[j] != nil {
				v = *filled[j]
			}
			preds[i] = clampRatio(v)
		}
	}
	return preds, nil
}
