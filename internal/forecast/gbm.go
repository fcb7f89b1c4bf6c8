package forecast

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"github.com/tigerroll/roomrate/internal/config"
	"github.com/tigerroll/roomrate/internal/domain/model"
	"github.com/tigerroll/roomrate/internal/stats"
	"github.com/tigerroll/roomrate/internal/support/exception"
	"github.com/tigerroll/roomrate/internal/support/logger"
)

// GBMEstimatorName is the name of the gradient boosting estimator.
const GBMEstimatorName = "gbm"

// GBMEstimator fits gradient-boosted regression trees on the feature table and predicts in-sample.
type GBMEstimator struct {
	params config.GBMConfig
	// Disabled makes Estimate return ErrEstimatorUnavailable.
	Disabled bool
}

// NewGBMEstimator creates a GBMEstimator. Non-positive parameters take their defaults.
func NewGBMEstimator(params config.GBMConfig) *GBMEstimator {
	def := config.NewConfig().Pipeline.GBM
	if params.NEstimators <= 0 {
		params.NEstimators = def.NEstimators
	}
	if params.LearningRate <= 0 {
		params.LearningRate = def.LearningRate
	}
	if params.MaxDepth <= 0 {
		params.MaxDepth = def.MaxDepth
	}
	if params.Subsample <= 0 || params.Subsample > 1 {
		params.Subsample = def.Subsample
	}
	if params.ColSample <= 0 || params.ColSample > 1 {
		params.ColSample = def.ColSample
	}
	if params.MinSamplesLeaf <= 0 {
		params.MinSamplesLeaf = def.MinSamplesLeaf
	}
	return &GBMEstimator{params: params}
}

// Name implements DemandEstimator.
func (e *GBMEstimator) Name() string { return GBMEstimatorName }

// Estimate implements DemandEstimator.
func (e *GBMEstimator) Estimate(ctx context.Context, rows []model.FeatureRow, columns []string) (preds []float64, err error) {
	if e.Disabled {
		return nil, exception.ErrEstimatorUnavailable
	}
	if len(rows) == 0 || len(columns) == 0 {
		return nil, fmt.Errorf("empty feature table: %w", exception.ErrFitFailed)
	}
	for _, col := range columns {
		if !model.IsFeatureColumn(col) {
			return nil, fmt.Errorf("unknown feature column %q: %w", col, exception.ErrFitFailed)
		}
	}
	defer func() {
		if r := recover(); r != nil {
			preds = nil
			err = fmt.Errorf("panic during fit: %v: %w", r, exception.ErrFitFailed)
		}
	}()

	y := make([]float64, len(rows))
	for i, r := range rows {
		if !stats.IsFinite(r.Target) {
			return nil, fmt.Errorf("non-finite target at row %d: %w", i, exception.ErrFitFailed)
		}
		y[i] = r.Target
	}
	x := designMatrix(rows, columns)

	booster, err := e.fit(ctx, x, y)
	if err != nil {
		return nil, err
	}
	preds = make([]float64, len(rows))
	for i, row := range x {
		v := booster.predict(row)
		if !stats.IsFinite(v) {
			return nil, fmt.Errorf("non-finite prediction at row %d: %w", i, exception.ErrFitFailed)
		}
		preds[i] = clampRatio(v)
	}
	logger.Debugf("GBM fitted %d trees on %d rows x %d features.", len(booster.trees), len(rows), len(columns))
	return preds, nil
}

type boostedModel struct {
	base         float64
	learningRate float64
	trees        []*regressionTree
}

func (m *boostedModel) predict(row []float64) float64 {
	v := m.base
	for _, t := range m.trees {
		v += m.learningRate * t.predict(row)
	}
	return v
}

// fit runs squared-error boosting with row and column subsampling per tree.
func (e *GBMEstimator) fit(ctx context.Context, x [][]float64, y []float64) (*boostedModel, error) {
	n, p := len(x), len(x[0])
	rng := rand.New(rand.NewSource(e.params.Seed))

	m := &boostedModel{base: stats.Mean(y), learningRate: e.params.LearningRate}
	current := make([]float64, n)
	for i := range current {
		current[i] = m.base
	}
	residual := make([]float64, n)
	tp := treeParams{maxDepth: e.params.MaxDepth, minSamplesLeaf: e.params.MinSamplesLeaf}

	rowCount := sampleSize(n, e.params.Subsample)
	colCount := sampleSize(p, e.params.ColSample)
	for it := 0; it < e.params.NEstimators; it++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for i := range y {
			residual[i] = y[i] - current[i]
		}
		rowsIdx := rng.Perm(n)[:rowCount]
		cols := rng.Perm(p)[:colCount]

		tree := fitTree(x, residual, rowsIdx, cols, tp)
		for i := range current {
			current[i] += m.learningRate * tree.predict(x[i])
		}
		m.trees = append(m.trees, tree)
	}
	return m, nil
}

func sampleSize(n int, fraction float64) int {
	k := int(math.Round(float64(n) * fraction))
	if k < 1 {
		k = 1
	}
	if k > n {
		k = n
	}
	return k
}
