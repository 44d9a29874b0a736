package utils

import (
	"math"
	"sort"
)

// ClampFloat64 clamps a float64 value between min and max
func ClampFloat64(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// Mean calculates the mean of a slice of float64 values
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return Sum(values) / float64(len(values))
}

// SampleVariance calculates the unbiased (n-1) variance.
// Returns 0 for fewer than two values.
func SampleVariance(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mean := Mean(values)
	sumSquares := 0.0
	for _, v := range values {
		diff := v - mean
		sumSquares += diff * diff
	}
	return sumSquares / float64(len(values)-1)
}

// SampleStdDev calculates the sample standard deviation
func SampleStdDev(values []float64) float64 {
	return math.Sqrt(SampleVariance(values))
}

// Percentile returns the nearest-rank percentile of values: the element at
// index round(p/100 × (n-1)) of the sorted copy. p is clamped to [0, 100].
// No interpolation is done between neighbours.
func Percentile(values []float64, percentile float64) float64 {
	if len(values) == 0 {
		return 0
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	p := ClampFloat64(percentile, 0, 100) / 100.0
	index := int(math.Round(p * float64(len(sorted)-1)))
	if index > len(sorted)-1 {
		index = len(sorted) - 1
	}
	return sorted[index]
}

// MinMax returns the smallest and largest value, or (0, 0) for an empty slice
func MinMax(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

// Sum calculates the sum of a slice of float64 values
func Sum(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum
}

// LogSpace returns n values spaced evenly on a log scale between lo and hi
// inclusive. n == 1 yields [lo].
func LogSpace(lo, hi float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []float64{lo}
	}
	logLo, logHi := math.Log(lo), math.Log(hi)
	step := (logHi - logLo) / float64(n-1)
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Exp(logLo + step*float64(i))
	}
	return out
}

// LinSpace returns n values spaced evenly between lo and hi inclusive.
func LinSpace(lo, hi float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []float64{(lo + hi) / 2}
	}
	step := (hi - lo) / float64(n-1)
	out := make([]float64, n)
	for i := range out {
		out[i] = lo + step*float64(i)
	}
	return out
}
