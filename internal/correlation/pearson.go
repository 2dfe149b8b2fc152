// Package correlation computes the Pearson correlation between
// sentiment-score and price series over an adaptive window.
package correlation

import "math"

// Pearson returns the Pearson correlation coefficient of two series.
// Series of unequal length are truncated to the shorter one. Empty input
// returns 0, and a zero denominator (a constant series) also returns 0
// rather than NaN, so callers never have to special-case either.
func Pearson(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if n == 0 {
		return 0
	}

	var sumA, sumB, sumAB, sumA2, sumB2 float64
	for i := 0; i < n; i++ {
		sumA += a[i]
		sumB += b[i]
		sumAB += a[i] * b[i]
		sumA2 += a[i] * a[i]
		sumB2 += b[i] * b[i]
	}

	fn := float64(n)
	denom := math.Sqrt((sumA2 - sumA*sumA/fn) * (sumB2 - sumB*sumB/fn))
	if denom == 0 {
		return 0
	}
	return (sumAB - sumA*sumB/fn) / denom
}

// Window returns the most recent `interval` elements of s. Slices shorter
// than the interval are returned as-is. Replay callers that pre-slice
// their series pass interval <= 0 to use the input verbatim, which keeps
// live and backtest runs reproducible against each other.
func Window(s []float64, interval int) []float64 {
	if interval <= 0 || len(s) <= interval {
		return s
	}
	return s[len(s)-interval:]
}
