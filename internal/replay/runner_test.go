package replay

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/mrdavey/Futura-os/internal/domain"
	"github.com/mrdavey/Futura-os/internal/engine"
)

var testKey = domain.TradeKey{Currency: "BTC", Exchange: "coinbase", PairedAsset: "USD"}

func testSettings() domain.TradeSettings {
	return domain.TradeSettings{
		CorrelationThreshold:    0.3,
		CorrelationInterval:     3,
		DailyStoplossThreshold:  0.04,
		WeeklyStoplossThreshold: 0.10,
		ProfitThreshold:         1.02,
		LossThreshold:           0.97,
	}
}

func obs(price, score float64, ts int64) *domain.Observation {
	return &domain.Observation{Key: testKey, Price: price, Score: score, TimestampMs: ts}
}

// roundTripScenario bootstraps, buys on the second tick and take-profits
// on the third.
func roundTripScenario() *Scenario {
	return &Scenario{
		Key:      testKey,
		Settings: testSettings(),
		Observations: []*domain.Observation{
			obs(100, 5, 1000),
			obs(101, 6, 2000),
			obs(105, 7, 3000),
		},
	}
}

func TestRunRoundTrip(t *testing.T) {
	runner := &Runner{}
	report, err := runner.Run(context.Background(), roundTripScenario())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	wantBranches := []engine.Branch{engine.BranchBootstrap, engine.BranchEnter, engine.BranchTakeProfit}
	if len(report.Steps) != len(wantBranches) {
		t.Fatalf("steps = %d, want %d", len(report.Steps), len(wantBranches))
	}
	for i, want := range wantBranches {
		if report.Steps[i].Branch != want {
			t.Errorf("step %d branch = %s, want %s", i, report.Steps[i].Branch, want)
		}
	}

	res := report.Result
	if res.Trades != 1 {
		t.Errorf("Trades = %d, want 1", res.Trades)
	}
	if res.Profit <= 0 {
		t.Errorf("Profit = %v, want > 0 after a profitable round trip", res.Profit)
	}
	// Bought at 101, sold at 105 on 1000 capital with no fees.
	wantProfit := 1000*105/101.0 - 1000
	if math.Abs(res.Profit-wantProfit) > 1e-9 {
		t.Errorf("Profit = %v, want %v", res.Profit, wantProfit)
	}
	if math.Abs(res.BetaPct-5) > 1e-9 {
		t.Errorf("BetaPct = %v, want 5 (100 -> 105 buy and hold)", res.BetaPct)
	}
	if math.Abs(res.AlphaPct-(res.GrowthPct-res.BetaPct)) > 1e-9 {
		t.Errorf("AlphaPct = %v, want GrowthPct-BetaPct", res.AlphaPct)
	}
	if res.StartMs != 1000 || res.EndMs != 3000 {
		t.Errorf("window = [%d, %d], want [1000, 3000]", res.StartMs, res.EndMs)
	}
	if res.RunID == "" {
		t.Error("RunID not generated")
	}
}

func TestRunIsDeterministic(t *testing.T) {
	runner := &Runner{RunID: "fixed"}

	first, err := runner.Run(context.Background(), roundTripScenario())
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := runner.Run(context.Background(), roundTripScenario())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if len(first.Steps) != len(second.Steps) {
		t.Fatalf("step counts differ: %d vs %d", len(first.Steps), len(second.Steps))
	}
	for i := range first.Steps {
		if first.Steps[i] != second.Steps[i] {
			t.Errorf("step %d differs: %+v vs %+v", i, first.Steps[i], second.Steps[i])
		}
	}
	if first.Result.Profit != second.Result.Profit {
		t.Errorf("profits differ: %v vs %v", first.Result.Profit, second.Result.Profit)
	}
	if first.FinalCapital != second.FinalCapital {
		t.Errorf("final capital differs: %+v vs %+v", first.FinalCapital, second.FinalCapital)
	}
}

func TestRunSortsUnorderedObservations(t *testing.T) {
	sc := roundTripScenario()
	sc.Observations[0], sc.Observations[2] = sc.Observations[2], sc.Observations[0]

	runner := &Runner{}
	report, err := runner.Run(context.Background(), sc)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Steps[0].TimestampMs != 1000 {
		t.Errorf("first step ts = %d, want 1000", report.Steps[0].TimestampMs)
	}
	if report.Result.Trades != 1 {
		t.Errorf("Trades = %d, want 1", report.Result.Trades)
	}
}

func TestRunEmptyScenario(t *testing.T) {
	runner := &Runner{}
	_, err := runner.Run(context.Background(), &Scenario{Key: testKey, Settings: testSettings()})
	if !errors.Is(err, ErrEmptyScenario) {
		t.Fatalf("error = %v, want ErrEmptyScenario", err)
	}
}

func TestRunRejectsInvalidSettings(t *testing.T) {
	sc := roundTripScenario()
	sc.Settings.ProfitThreshold = 0.5

	runner := &Runner{}
	if _, err := runner.Run(context.Background(), sc); err == nil {
		t.Fatal("expected settings validation error")
	}
}

func TestRunStopLossRealizesLoss(t *testing.T) {
	sc := &Scenario{
		Key:      testKey,
		Settings: testSettings(),
		Observations: []*domain.Observation{
			obs(100, 5, 1000),
			obs(101, 6, 2000),
			obs(90, 6.5, 3000), // below 101*0.97
		},
	}

	runner := &Runner{}
	report, err := runner.Run(context.Background(), sc)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	last := report.Steps[len(report.Steps)-1]
	if last.Branch != engine.BranchCutLosses {
		t.Fatalf("last branch = %s, want %s", last.Branch, engine.BranchCutLosses)
	}
	if report.Result.Profit >= 0 {
		t.Errorf("Profit = %v, want negative after a cut", report.Result.Profit)
	}
}

func TestBuildWindows(t *testing.T) {
	observations := []*domain.Observation{
		obs(100, 1, 1000),
		obs(101, 2, 2000),
		obs(102, 3, 3000),
		obs(103, 4, 4000),
	}
	BuildWindows(observations, 3)

	if got := len(observations[0].CorrelationSeries); got != 1 {
		t.Errorf("tick 0 window = %d samples, want 1", got)
	}
	if got := len(observations[3].CorrelationSeries); got != 3 {
		t.Errorf("tick 3 window = %d samples, want 3", got)
	}
	last := observations[3].CorrelationSeries
	if last[0].TimestampMs != 2000 || last[2].TimestampMs != 4000 {
		t.Errorf("tick 3 window spans [%d, %d], want [2000, 4000]", last[0].TimestampMs, last[2].TimestampMs)
	}

	// Pre-attached windows stay untouched.
	custom := []*domain.Observation{obs(1, 1, 1)}
	custom[0].CorrelationSeries = []domain.CorrelationSample{}
	BuildWindows(custom, 3)
	if len(custom[0].CorrelationSeries) != 0 {
		t.Error("pre-attached window was replaced")
	}
}

func TestSortObservationsKeyTieBreak(t *testing.T) {
	other := domain.TradeKey{Currency: "ETH", Exchange: "coinbase", PairedAsset: "USD"}
	a := &domain.Observation{Key: other, TimestampMs: 1000}
	b := &domain.Observation{Key: testKey, TimestampMs: 1000}
	list := []*domain.Observation{a, b}

	SortObservations(list)
	if list[0].Key != testKey {
		t.Errorf("first key = %s, want %s (BTC sorts before ETH)", list[0].Key, testKey)
	}
}
