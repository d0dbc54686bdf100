// math_utils.go
package internal

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return stat.Mean(xs, nil)
}

// StdDev is the population standard deviation.
func StdDev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	return math.Sqrt(stat.PopVariance(xs, nil))
}

func MeanStd(xs []float64) (float64, float64) {
	return Mean(xs), StdDev(xs)
}

// Correlation is the Pearson correlation, 0 for degenerate input.
func Correlation(x, y []float64) float64 {
	if len(x) != len(y) || len(x) < 2 {
		return 0
	}
	c := stat.Correlation(x, y, nil)
	if math.IsNaN(c) {
		return 0
	}
	return c
}

// Quantile returns the empirical p-quantile of xs.
func Quantile(p float64, xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	sort.Float64s(sorted)
	return stat.Quantile(p, stat.Empirical, sorted, nil)
}

func Clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
