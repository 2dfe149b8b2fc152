package analytics

import (
	"math"
	"testing"
)

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)

	if s.Count != 0 {
		t.Errorf("expected count 0, got %d", s.Count)
	}
	if s.WinRate != 0 {
		t.Errorf("expected winRate 0, got %f", s.WinRate)
	}
}

func TestSummarizeSingleOutcome(t *testing.T) {
	s := Summarize([]float64{2.5})

	if s.Count != 1 || s.Wins != 1 || s.Losses != 0 {
		t.Errorf("expected 1 win, got count=%d wins=%d losses=%d", s.Count, s.Wins, s.Losses)
	}
	if s.Mean != 2.5 || s.Median != 2.5 || s.Min != 2.5 || s.Max != 2.5 {
		t.Errorf("single outcome should dominate all stats, got %+v", s)
	}
	// Sample stddev needs at least 2 samples
	if s.Stddev != 0 {
		t.Errorf("expected stddev 0 for single sample, got %f", s.Stddev)
	}
}

func TestSummarizeWinRate(t *testing.T) {
	// 3 wins, 2 losses (zero counts as loss)
	s := Summarize([]float64{1.0, -2.0, 3.0, 0.0, 5.0})

	if s.Wins != 3 || s.Losses != 2 {
		t.Errorf("expected 3 wins 2 losses, got %d/%d", s.Wins, s.Losses)
	}
	if s.WinRate != 0.6 {
		t.Errorf("expected winRate 0.6, got %f", s.WinRate)
	}
}

func TestSummarizeDistribution(t *testing.T) {
	s := Summarize([]float64{1, 2, 3, 4, 5})

	if s.Mean != 3 {
		t.Errorf("expected mean 3, got %f", s.Mean)
	}
	if s.Median != 3 {
		t.Errorf("expected median 3, got %f", s.Median)
	}
	if s.Min != 1 || s.Max != 5 {
		t.Errorf("expected min 1 max 5, got %f/%f", s.Min, s.Max)
	}
	// Sample stddev of 1..5 = sqrt(10/4)
	want := math.Sqrt(2.5)
	if math.Abs(s.Stddev-want) > 1e-9 {
		t.Errorf("expected stddev %f, got %f", want, s.Stddev)
	}
}

func TestPercentileInterpolation(t *testing.T) {
	sorted := []float64{10, 20, 30, 40}

	// idx = 0.5 * 3 = 1.5 → halfway between 20 and 30
	if got := computePercentile(sorted, 0.50); got != 25 {
		t.Errorf("expected median 25, got %f", got)
	}
	// idx = 0.1 * 3 = 0.3 → 10 + 0.3*(20-10)
	if got := computePercentile(sorted, 0.10); got != 13 {
		t.Errorf("expected p10 13, got %f", got)
	}
}

func TestMaxDrawdown(t *testing.T) {
	// Cumulative: 5, 8, 4, 2, 6. Peak 8, trough 2 → drawdown 6.
	s := Summarize([]float64{5, 3, -4, -2, 4})

	if s.MaxDrawdown != 6 {
		t.Errorf("expected max drawdown 6, got %f", s.MaxDrawdown)
	}
}

func TestMaxDrawdownMonotonicGains(t *testing.T) {
	s := Summarize([]float64{1, 2, 3})

	if s.MaxDrawdown != 0 {
		t.Errorf("expected zero drawdown for monotonic gains, got %f", s.MaxDrawdown)
	}
}

func TestMaxConsecutiveLosses(t *testing.T) {
	// Streaks of <= 0: [2], [3] → max 3
	s := Summarize([]float64{-1, -2, 5, -1, 0, -3, 4})

	if s.MaxConsecutiveLosses != 3 {
		t.Errorf("expected max streak 3, got %d", s.MaxConsecutiveLosses)
	}
}

func TestMaxConsecutiveLossesOrderDependence(t *testing.T) {
	// Same multiset, different orders, different streaks.
	a := Summarize([]float64{-1, -1, 1, 1})
	b := Summarize([]float64{-1, 1, -1, 1})

	if a.MaxConsecutiveLosses != 2 {
		t.Errorf("expected streak 2, got %d", a.MaxConsecutiveLosses)
	}
	if b.MaxConsecutiveLosses != 1 {
		t.Errorf("expected streak 1, got %d", b.MaxConsecutiveLosses)
	}
}
