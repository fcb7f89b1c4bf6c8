package forecast

import "github.com/tigerroll/roomrate/internal/domain/model"

// designMatrix extracts the feature columns of rows. Undefined values are filled with
// the previous row's value of the same column across the whole row order, and with 0
// where no earlier value exists.
func designMatrix(rows []model.FeatureRow, columns []string) [][]float64 {
	x := make([][]float64, len(rows))
	last := make([]float64, len(columns))
	seen := make([]bool, len(columns))
	for i, r := range rows {
		x[i] = make([]float64, len(columns))
		for j, col := range columns {
			v, ok := r.Feature(col)
			switch {
			case ok:
				last[j], seen[j] = v, true
			case seen[j]:
				v = last[j]
			default:
				v = 0
			}
			x[i][j] = v
		}
	}
	return x
}
