package forecast

import (
	"fmt"

	"github.com/tigerroll/roomrate/internal/config"
)

// NewEstimators returns the estimator chain selected by pipeline.estimator.
// The rolling estimator always closes the chain.
func NewEstimators(cfg config.PipelineConfig) ([]DemandEstimator, error) {
	rolling := NewRollingEstimator(cfg.RollingWindow, cfg.RollingMinPeriods)
	switch cfg.Estimator {
	case config.EstimatorGBM, "":
		return []DemandEstimator{NewGBMEstimator(cfg.GBM), rolling}, nil
	case config.EstimatorRolling:
		return []DemandEstimator{rolling}, nil
	default:
		return nil, fmt.Errorf("unknown estimator '%s'", cfg.Estimator)
	}
}
