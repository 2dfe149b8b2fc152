package verification

import (
	"context"
	"testing"

	"github.com/mrdavey/Futura-os/internal/domain"
	"github.com/mrdavey/Futura-os/internal/engine"
	"github.com/mrdavey/Futura-os/internal/replay"
)

var testKey = domain.TradeKey{Currency: "BTC", Exchange: "coinbase", PairedAsset: "USD"}

func testScenario() *replay.Scenario {
	observations := []*domain.Observation{
		{Key: testKey, Price: 100, Score: 5, TimestampMs: 1000},
		{Key: testKey, Price: 101, Score: 6, TimestampMs: 2000},
		{Key: testKey, Price: 103.5, Score: 6.5, TimestampMs: 3000},
		{Key: testKey, Price: 105, Score: 7, TimestampMs: 4000},
	}
	return &replay.Scenario{
		Key: testKey,
		Settings: domain.TradeSettings{
			CorrelationThreshold:    0.3,
			CorrelationInterval:     3,
			DailyStoplossThreshold:  0.04,
			WeeklyStoplossThreshold: 0.10,
			ProfitThreshold:         1.02,
			LossThreshold:           0.97,
		},
		Observations: observations,
	}
}

func TestVerifyDeterministicScenario(t *testing.T) {
	v := NewVerifier(nil)

	report, err := v.Verify(context.Background(), testScenario())
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !report.Match {
		t.Fatalf("determinism check failed: %+v", report.Divergences)
	}
	if report.Ticks != 4 {
		t.Errorf("Ticks = %d, want 4", report.Ticks)
	}
}

func TestCompareReportsDetectsActionDivergence(t *testing.T) {
	base := replay.Step{
		TimestampMs: 1000,
		Branch:      engine.BranchEnter,
		Action:      domain.Buy(0.97),
		Anchor:      domain.Anchor{Price: 100, Score: 5, TimestampMs: 1000},
	}
	diverged := base
	diverged.Action = domain.None()
	diverged.Branch = engine.BranchHold

	expected := &replay.Report{Steps: []replay.Step{base}, Result: &domain.BacktestResult{}}
	actual := &replay.Report{Steps: []replay.Step{diverged}, Result: &domain.BacktestResult{}}

	report := CompareReports(expected, actual)
	if report.Match {
		t.Fatal("divergence not detected")
	}

	fields := make(map[string]bool)
	for _, d := range report.Divergences {
		fields[d.Field] = true
		if d.Tick != 0 {
			t.Errorf("divergence tick = %d, want 0", d.Tick)
		}
	}
	for _, want := range []string{"Branch", "Action", "Action.LossThreshold"} {
		if !fields[want] {
			t.Errorf("missing divergence for %s, got %+v", want, report.Divergences)
		}
	}
}

func TestCompareReportsToleratesFloatNoise(t *testing.T) {
	step := replay.Step{
		TimestampMs: 1000,
		Branch:      engine.BranchHold,
		Anchor:      domain.Anchor{Price: 100, Score: 5, TimestampMs: 1000},
	}
	noisy := step
	noisy.Anchor.Price += 1e-9

	expected := &replay.Report{Steps: []replay.Step{step}, Result: &domain.BacktestResult{Profit: 1}}
	actual := &replay.Report{Steps: []replay.Step{noisy}, Result: &domain.BacktestResult{Profit: 1 + 1e-9}}

	if report := CompareReports(expected, actual); !report.Match {
		t.Errorf("sub-tolerance noise reported as divergence: %+v", report.Divergences)
	}
}

func TestCompareReportsStepCountMismatch(t *testing.T) {
	step := replay.Step{TimestampMs: 1000, Branch: engine.BranchBootstrap}
	expected := &replay.Report{Steps: []replay.Step{step, step}, Result: &domain.BacktestResult{}}
	actual := &replay.Report{Steps: []replay.Step{step}, Result: &domain.BacktestResult{}}

	report := CompareReports(expected, actual)
	if report.Match {
		t.Fatal("step count mismatch not detected")
	}
	if report.Divergences[0].Field != "StepCount" {
		t.Errorf("first divergence = %s, want StepCount", report.Divergences[0].Field)
	}
}
