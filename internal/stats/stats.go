// Package stats provides the numeric primitives shared by the voice analyzer
// and the comparison aggregation: percentiles with linear interpolation
// between order statistics and population-variance rollups.
package stats

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Percentile returns the p-th percentile (0-100) of values using linear
// interpolation between order statistics: k = (n-1) * p/100, result =
// v[floor(k)] + frac(k) * (v[ceil(k)] - v[floor(k)]). Returns NaN for empty
// input. The input slice is not modified.
func Percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)

	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}

	k := float64(len(sorted)-1) * p / 100
	f := int(k)
	c := f + 1
	if c >= len(sorted) {
		return sorted[f]
	}
	return sorted[f] + (k-float64(f))*(sorted[c]-sorted[f])
}

// Median returns the 50th percentile of values.
func Median(values []float64) float64 {
	return Percentile(values, 50)
}

// Mean returns the arithmetic mean, or NaN for empty input.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	return stat.Mean(values, nil)
}

// PopStdDev returns the population standard deviation (dividing by n, not
// n-1), or NaN for empty input.
func PopStdDev(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	return stat.PopStdDev(values, nil)
}

// PopVariance returns the population variance, or NaN for empty input.
func PopVariance(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	return stat.PopVariance(values, nil)
}

// Min returns the smallest value, or NaN for empty input.
func Min(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	return floats.Min(values)
}

// Max returns the largest value, or NaN for empty input.
func Max(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	return floats.Max(values)
}

// Round2 rounds v to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Round3 rounds v to three decimal places.
func Round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
