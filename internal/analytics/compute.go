// Package analytics computes outcome statistics over trades and runs:
// win rates, outcome distribution, drawdown and losing streaks.
package analytics

import (
	"math"
	"sort"
)

// Summary describes the distribution of a series of outcomes. Outcomes
// are percentages (per-trade return or per-run growth); order matters
// for the drawdown and streak fields.
type Summary struct {
	Count  int
	Wins   int // outcome > 0
	Losses int // outcome <= 0

	WinRate float64 // wins / count

	// Outcome distribution
	Mean   float64
	Median float64
	P10    float64
	P25    float64
	P75    float64
	P90    float64
	Min    float64
	Max    float64
	Stddev float64

	// MaxDrawdown is the worst peak-to-trough decline of the cumulative
	// outcome series, in the same units as the outcomes.
	MaxDrawdown float64

	// MaxConsecutiveLosses is the longest streak of outcome <= 0.
	MaxConsecutiveLosses int
}

// Summarize computes the full summary over outcomes in chronological
// order. An empty series yields the zero summary.
func Summarize(outcomes []float64) *Summary {
	n := len(outcomes)
	if n == 0 {
		return &Summary{}
	}

	wins := 0
	for _, o := range outcomes {
		if o > 0 {
			wins++
		}
	}

	sorted := make([]float64, n)
	copy(sorted, outcomes)
	sort.Float64s(sorted)

	mean := computeMean(outcomes)

	return &Summary{
		Count:   n,
		Wins:    wins,
		Losses:  n - wins,
		WinRate: float64(wins) / float64(n),

		Mean:   mean,
		Median: computePercentile(sorted, 0.50),
		P10:    computePercentile(sorted, 0.10),
		P25:    computePercentile(sorted, 0.25),
		P75:    computePercentile(sorted, 0.75),
		P90:    computePercentile(sorted, 0.90),
		Min:    sorted[0],
		Max:    sorted[n-1],
		Stddev: computeStddev(outcomes, mean),

		MaxDrawdown:          computeMaxDrawdown(outcomes),
		MaxConsecutiveLosses: computeMaxConsecutiveLosses(outcomes),
	}
}

// computeMean calculates the arithmetic mean of outcomes.
func computeMean(outcomes []float64) float64 {
	sum := 0.0
	for _, o := range outcomes {
		sum += o
	}
	return sum / float64(len(outcomes))
}

// computeStddev calculates sample standard deviation (n-1 denominator).
func computeStddev(outcomes []float64, mean float64) float64 {
	n := len(outcomes)
	if n < 2 {
		return 0
	}
	sumSq := 0.0
	for _, o := range outcomes {
		diff := o - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(n-1))
}

// computePercentile uses linear interpolation. sorted must be
// pre-sorted ASC; p is the percentile (0.10 = 10th percentile).
func computePercentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}

	idx := p * float64(n-1)
	lower := int(idx)
	upper := lower + 1
	if upper >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}

// computeMaxDrawdown calculates the worst peak-to-trough decline on the
// cumulative outcome series. Outcomes must be in chronological order.
func computeMaxDrawdown(outcomes []float64) float64 {
	cumulative := 0.0
	peak := 0.0
	maxDrawdown := 0.0

	for _, o := range outcomes {
		cumulative += o
		if cumulative > peak {
			peak = cumulative
		}
		drawdown := peak - cumulative
		if drawdown > maxDrawdown {
			maxDrawdown = drawdown
		}
	}
	return maxDrawdown
}

// computeMaxConsecutiveLosses finds the longest streak of outcome <= 0.
// Outcomes must be in chronological order.
func computeMaxConsecutiveLosses(outcomes []float64) int {
	maxStreak := 0
	currentStreak := 0

	for _, o := range outcomes {
		if o <= 0 {
			currentStreak++
			if currentStreak > maxStreak {
				maxStreak = currentStreak
			}
		} else {
			currentStreak = 0
		}
	}
	return maxStreak
}
