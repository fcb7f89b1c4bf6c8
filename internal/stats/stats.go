// Package stats implements the small set of descriptive statistics used by the
// feature builder, the demand estimators and the pricers.
//
// Series of optional values are represented as []*float64 where nil means undefined.
package stats

import (
	"math"
	"sort"
)

// Mean returns the arithmetic mean of values, or NaN for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Median returns the median of values, or NaN for an empty slice.
// Even-length inputs average the two middle values.
func Median(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return math.NaN()
	}
	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// Rolling applies agg over a trailing window ending at each position.
// A position whose window holds fewer than minPeriods values is undefined.
func Rolling(values []float64, window, minPeriods int, agg func([]float64) float64) []*float64 {
	out := make([]*float64, len(values))
	for i := range values {
		start := i - window + 1
		if start < 0 {
			start = 0
		}
		w := values[start : i+1]
		if len(w) < minPeriods {
			continue
		}
		v := agg(w)
		out[i] = &v
	}
	return out
}

// Shift returns the series lagged by one position. The first position is undefined.
func Shift(values []float64) []*float64 {
	out := make([]*float64, len(values))
	for i := 1; i < len(values); i++ {
		v := values[i-1]
		out[i] = &v
	}
	return out
}

// ForwardFill replaces undefined values with the closest preceding defined value.
// Leading undefined values stay undefined.
func ForwardFill(series []*float64) []*float64 {
	out := make([]*float64, len(series))
	var last *float64
	for i, v := range series {
		if v != nil {
			last = v
		}
		out[i] = last
	}
	return out
}

// BackFill replaces undefined values with the closest following defined value.
// Trailing undefined values stay undefined.
func BackFill(series []*float64) []*float64 {
	out := make([]*float64, len(series))
	var next *float64
	for i := len(series) - 1; i >= 0; i-- {
		if series[i] != nil {
			next = series[i]
		}
		out[i] = next
	}
	return out
}

// LastDefined returns the last defined value of series.
func LastDefined(series []*float64) (float64, bool) {
	for i := len(series) - 1; i >= 0; i-- {
		if series[i] != nil {
			return *series[i], true
		}
	}
	return 0, false
}

// Defined collects the defined values of series.
func Defined(series []*float64) []float64 {
	out := make([]float64, 0, len(series))
	for _, v := range series {
		if v != nil {
			out = append(out, *v)
		}
	}
	return out
}

// Clamp bounds v to [lo, hi]. NaN is returned unchanged.
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// IsFinite reports whether v is neither NaN nor infinite.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
