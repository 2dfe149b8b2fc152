// Package verification checks that replays are deterministic: a
// scenario run twice must produce identical action and anchor sequences.
package verification

import (
	"context"
	"fmt"
	"math"

	"github.com/mrdavey/Futura-os/internal/replay"
)

// FloatTolerance is the tolerance for float64 comparisons. Prices and
// scores travel through identical arithmetic on both runs, so anything
// past it is a real divergence, not rounding.
const FloatTolerance = 1e-7

// Divergence is one mismatch between two runs of the same scenario.
type Divergence struct {
	Tick     int    // observation index
	Field    string // diverging field
	Expected interface{}
	Actual   interface{}
}

// Report is the outcome of one determinism check.
type Report struct {
	Ticks       int
	Match       bool
	Divergences []Divergence
}

// Verifier replays scenarios twice and diffs the outcomes.
type Verifier struct {
	Runner *replay.Runner
}

// NewVerifier creates a verifier around the given runner. A nil runner
// gets the default fee-free configuration.
func NewVerifier(runner *replay.Runner) *Verifier {
	if runner == nil {
		runner = &replay.Runner{}
	}
	return &Verifier{Runner: runner}
}

// Verify runs the scenario twice from clean state and compares the step
// sequences and the realized result.
func (v *Verifier) Verify(ctx context.Context, sc *replay.Scenario) (*Report, error) {
	first, err := v.Runner.Run(ctx, sc)
	if err != nil {
		return nil, fmt.Errorf("first run: %w", err)
	}
	second, err := v.Runner.Run(ctx, sc)
	if err != nil {
		return nil, fmt.Errorf("second run: %w", err)
	}
	return CompareReports(first, second), nil
}

// CompareReports diffs two replay reports step by step.
func CompareReports(expected, actual *replay.Report) *Report {
	report := &Report{Ticks: len(expected.Steps)}

	if len(expected.Steps) != len(actual.Steps) {
		report.Divergences = append(report.Divergences, Divergence{
			Field:    "StepCount",
			Expected: len(expected.Steps),
			Actual:   len(actual.Steps),
		})
		report.Match = false
		return report
	}

	for i := range expected.Steps {
		report.Divergences = append(report.Divergences, compareSteps(i, expected.Steps[i], actual.Steps[i])...)
	}

	e, a := expected.Result, actual.Result
	if !floatEquals(e.Profit, a.Profit) {
		report.Divergences = append(report.Divergences, Divergence{Field: "Profit", Expected: e.Profit, Actual: a.Profit})
	}
	if !floatEquals(e.GrowthPct, a.GrowthPct) {
		report.Divergences = append(report.Divergences, Divergence{Field: "GrowthPct", Expected: e.GrowthPct, Actual: a.GrowthPct})
	}
	if e.Trades != a.Trades {
		report.Divergences = append(report.Divergences, Divergence{Field: "Trades", Expected: e.Trades, Actual: a.Trades})
	}

	report.Match = len(report.Divergences) == 0
	return report
}

func compareSteps(tick int, expected, actual replay.Step) []Divergence {
	var divergences []Divergence

	if expected.TimestampMs != actual.TimestampMs {
		divergences = append(divergences, Divergence{
			Tick: tick, Field: "TimestampMs",
			Expected: expected.TimestampMs, Actual: actual.TimestampMs,
		})
	}
	if expected.Branch != actual.Branch {
		divergences = append(divergences, Divergence{
			Tick: tick, Field: "Branch",
			Expected: expected.Branch, Actual: actual.Branch,
		})
	}
	if expected.Action.Type != actual.Action.Type {
		divergences = append(divergences, Divergence{
			Tick: tick, Field: "Action",
			Expected: expected.Action.Type, Actual: actual.Action.Type,
		})
	}
	if !floatEquals(expected.Action.LossThreshold, actual.Action.LossThreshold) {
		divergences = append(divergences, Divergence{
			Tick: tick, Field: "Action.LossThreshold",
			Expected: expected.Action.LossThreshold, Actual: actual.Action.LossThreshold,
		})
	}
	if !floatEquals(expected.Anchor.Price, actual.Anchor.Price) {
		divergences = append(divergences, Divergence{
			Tick: tick, Field: "Anchor.Price",
			Expected: expected.Anchor.Price, Actual: actual.Anchor.Price,
		})
	}
	if !floatEquals(expected.Anchor.Score, actual.Anchor.Score) {
		divergences = append(divergences, Divergence{
			Tick: tick, Field: "Anchor.Score",
			Expected: expected.Anchor.Score, Actual: actual.Anchor.Score,
		})
	}
	if expected.Anchor.TimestampMs != actual.Anchor.TimestampMs {
		divergences = append(divergences, Divergence{
			Tick: tick, Field: "Anchor.TimestampMs",
			Expected: expected.Anchor.TimestampMs, Actual: actual.Anchor.TimestampMs,
		})
	}

	return divergences
}

// floatEquals compares two float64 values within FloatTolerance.
// NaN equals NaN so a divergence is reported at most once.
func floatEquals(a, b float64) bool {
	if math.IsNaN(a) && math.IsNaN(b) {
		return true
	}
	return math.Abs(a-b) <= FloatTolerance
}
