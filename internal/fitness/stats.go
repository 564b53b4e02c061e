package fitness

import (
	"math"
	"sort"
)

// MeanNA returns the arithmetic mean of the non-NaN values, or NaN if
// there are none.
func MeanNA(values []float64) float64 {
	sum, n := 0.0, 0
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

// MedianNA returns the median of the non-NaN values, or NaN if there are
// none. The input slice is not modified.
func MedianNA(values []float64) float64 {
	clean := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			clean = append(clean, v)
		}
	}
	n := len(clean)
	if n == 0 {
		return math.NaN()
	}
	sort.Float64s(clean)
	if n%2 == 1 {
		return clean[n/2]
	}
	return (clean[n/2-1] + clean[n/2]) / 2
}

// SumNA returns the sum of the non-NaN values, or NaN if there are none.
func SumNA(values []float64) float64 {
	sum, n := 0.0, 0
	for _, v := range values {
		if !math.IsNaN(v) {
			sum += v
			n++
		}
	}
	if n == 0 {
		return math.NaN()
	}
	return sum
}

// CountValid returns the number of non-NaN values.
func CountValid(values []float64) int {
	n := 0
	for _, v := range values {
		if !math.IsNaN(v) {
			n++
		}
	}
	return n
}
