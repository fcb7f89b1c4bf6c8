package pricing

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/tigerroll/roomrate/internal/stats"
)

// tier is one closed-open occupancy band of the price rule.
type tier struct {
	// below is the exclusive upper bound of the band; the last tier has none.
	below          float64
	baselineFactor decimal.Decimal
	compFactor     decimal.Decimal
}

var tiers = []tier{
	{below: 0.50, baselineFactor: decimal.RequireFromString("0.90"), compFactor: decimal.RequireFromString("0.95")},
	{below: 0.70, baselineFactor: decimal.RequireFromString("1.00"), compFactor: decimal.RequireFromString("1.00")},
	{below: 0.85, baselineFactor: decimal.RequireFromString("1.08"), compFactor: decimal.RequireFromString("1.05")},
	{below: math.Inf(1), baselineFactor: decimal.RequireFromString("1.15"), compFactor: decimal.RequireFromString("1.10")},
}

// ChoosePrice recommends a nightly rate from the baseline ADR, the projected occupancy
// ratio and the optional competitor median, rounded to 2 decimal places.
//
// A baseline that is NaN or not positive is treated as DefaultBaseline. A missing or
// non-positive competitor median is replaced by the baseline. The price is the larger
// of the two scaled references of the first band containing occupancy.
func ChoosePrice(baseline, occupancy float64, competitor *float64) float64 {
	if math.IsNaN(baseline) || math.IsInf(baseline, 0) || baseline <= 0 {
		baseline = DefaultBaseline
	}
	comp := baseline
	if competitor != nil && stats.IsFinite(*competitor) && *competitor > 0 {
		comp = *competitor
	}

	t := tierFor(occupancy)
	base := decimal.NewFromFloat(baseline).Mul(t.baselineFactor)
	market := decimal.NewFromFloat(comp).Mul(t.compFactor)
	price, _ := decimal.Max(base, market).Round(2).Float64()
	return price
}

func tierFor(occupancy float64) tier {
	for _, t := range tiers {
		if occupancy < t.below {
			return t
		}
	}
	// NaN occupancy matches no band; price it as the lowest demand.
	return tiers[0]
}
