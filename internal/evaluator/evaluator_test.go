package evaluator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mrdavey/Futura-os/internal/dispatch"
	"github.com/mrdavey/Futura-os/internal/domain"
	"github.com/mrdavey/Futura-os/internal/engine"
	"github.com/mrdavey/Futura-os/internal/storage"
	"github.com/mrdavey/Futura-os/internal/storage/memory"
)

var testKey = domain.TradeKey{Currency: "BTC", Exchange: "coinbase", PairedAsset: "USD"}

func testSettings() *domain.TradeSettings {
	return &domain.TradeSettings{
		CorrelationThreshold:    0.3,
		CorrelationInterval:     3,
		DailyStoplossThreshold:  0.04,
		WeeklyStoplossThreshold: 0.10,
		ProfitThreshold:         1.02,
		LossThreshold:           0.97,
	}
}

type testEnv struct {
	evaluator *Evaluator
	anchors   *memory.AnchorStore
	positions *memory.PositionStore
	capital   *memory.WorkingCapitalStore
	ledger    *memory.ProfitLedger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	settings := memory.NewSettingsStore()
	if err := settings.Set(ctx, testKey, testSettings()); err != nil {
		t.Fatalf("seed settings: %v", err)
	}

	capital := memory.NewWorkingCapitalStore()
	if err := capital.Set(ctx, testKey, &domain.WorkingCapital{CurrentWC: 1000, DefaultWC: 1000}); err != nil {
		t.Fatalf("seed capital: %v", err)
	}

	positions := memory.NewPositionStore()
	anchors := memory.NewAnchorStore()
	ledger := memory.NewProfitLedger()

	ev := New(Options{
		SettingsStore:       settings,
		AnchorStore:         anchors,
		PositionStore:       positions,
		WorkingCapitalStore: capital,
		ProfitLedger:        ledger,
		Dispatcher:          dispatch.NewPaperDispatcher(positions, capital, ledger, 0),
		Retry:               RetryConfig{MaxAttempts: 1},
	})

	return &testEnv{evaluator: ev, anchors: anchors, positions: positions, capital: capital, ledger: ledger}
}

// risingObs builds an observation that carries its own perfectly
// correlated lookback window, so entries pass the correlation gate
// without any history stores.
func risingObs(price, score float64, ts int64) *domain.Observation {
	return &domain.Observation{
		Key:         testKey,
		Price:       price,
		Score:       score,
		TimestampMs: ts,
		CorrelationSeries: []domain.CorrelationSample{
			{TimestampMs: ts - 200, Score: score - 2, Price: price - 2},
			{TimestampMs: ts - 100, Score: score - 1, Price: price - 1},
			{TimestampMs: ts, Score: score, Price: price},
		},
	}
}

func TestEvaluateBootstrap(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res, err := env.evaluator.Evaluate(ctx, risingObs(100, 5, 1000))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if res.Branch != engine.BranchBootstrap {
		t.Errorf("branch = %s, want %s", res.Branch, engine.BranchBootstrap)
	}
	if res.Action.Type != domain.ActionNone {
		t.Errorf("action = %s, want NONE", res.Action.Type)
	}

	anchor, err := env.anchors.Get(ctx, testKey)
	if err != nil {
		t.Fatalf("anchor not persisted: %v", err)
	}
	if anchor.Price != 100 || anchor.Score != 5 {
		t.Errorf("anchor = %+v, want price 100 score 5", anchor)
	}
}

func TestEvaluateBuyOnRisingSentiment(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.evaluator.Evaluate(ctx, risingObs(100, 5, 1000)); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}

	res, err := env.evaluator.Evaluate(ctx, risingObs(101, 6, 2000))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if res.Branch != engine.BranchEnter {
		t.Fatalf("branch = %s, want %s", res.Branch, engine.BranchEnter)
	}
	if res.Action.Type != domain.ActionBuy {
		t.Fatalf("action = %s, want BUY", res.Action.Type)
	}

	pos, err := env.positions.Get(ctx, testKey)
	if err != nil {
		t.Fatalf("position not created: %v", err)
	}
	if !pos.HasPosition {
		t.Fatal("position not open after confirmed buy")
	}
	if pos.BuyPrice != 101 {
		t.Errorf("BuyPrice = %v, want 101", pos.BuyPrice)
	}
	if pos.LossThreshold != 0.97 {
		t.Errorf("LossThreshold = %v, want 0.97 frozen from settings", pos.LossThreshold)
	}

	anchor, _ := env.anchors.Get(ctx, testKey)
	if anchor.Score != 6 {
		t.Errorf("anchor score = %v, want 6", anchor.Score)
	}
}

func TestEvaluateFallingSentimentSkipsHistoryStores(t *testing.T) {
	// No history stores are wired at all; a live observation with falling
	// sentiment must still evaluate because that branch needs no window.
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.evaluator.Evaluate(ctx, risingObs(100, 5, 1000)); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}

	obs := &domain.Observation{Key: testKey, Price: 120, Score: 4, TimestampMs: 2000}
	res, err := env.evaluator.Evaluate(ctx, obs)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if res.Branch != engine.BranchFallingSentiment {
		t.Errorf("branch = %s, want %s", res.Branch, engine.BranchFallingSentiment)
	}

	anchor, _ := env.anchors.Get(ctx, testKey)
	if anchor.Price != 120 || anchor.Score != 4 {
		t.Errorf("anchor = %+v, want updated to the refused tick", anchor)
	}
}

func TestEvaluateLiveCorrelationUnavailableIsFatal(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.evaluator.Evaluate(ctx, risingObs(100, 5, 1000)); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	prevAnchor, _ := env.anchors.Get(ctx, testKey)

	// Rising sentiment without a supplied series needs live history,
	// which this evaluator does not have.
	obs := &domain.Observation{Key: testKey, Price: 101, Score: 6, TimestampMs: 2000}
	_, err := env.evaluator.Evaluate(ctx, obs)
	if err == nil {
		t.Fatal("expected error for undetermined correlation")
	}
	var derr *DecisionError
	if !errors.As(err, &derr) || derr.Kind != KindFatal {
		t.Fatalf("error = %v, want DecisionError kind %s", err, KindFatal)
	}

	anchor, _ := env.anchors.Get(ctx, testKey)
	if *anchor != *prevAnchor {
		t.Errorf("anchor moved on a failed tick: %+v", anchor)
	}
}

func TestEvaluateStopLossLedgerFailureBlocksEntry(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.evaluator.Evaluate(ctx, risingObs(100, 5, 1000)); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}

	env.ledger.FailNextSum(errors.New("ledger down"))

	res, err := env.evaluator.Evaluate(ctx, risingObs(101, 6, 2000))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if res.Branch != engine.BranchRiskGate {
		t.Errorf("branch = %s, want %s (fail closed)", res.Branch, engine.BranchRiskGate)
	}
	if _, err := env.positions.Get(ctx, testKey); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("position created despite unreadable ledger")
	}
}

func TestEvaluateRiskGateBlocksEntryAfterDrawdown(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.evaluator.Evaluate(ctx, risingObs(100, 5, 1000)); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}

	// 5% of default capital lost today, over the 4% daily threshold.
	rec := &domain.ProfitRecord{
		Key:         testKey,
		Range:       domain.ProfitRangeDay,
		RangeID:     domain.DayKey(time.UnixMilli(2000)),
		Gross:       -50,
		TimestampMs: 2000,
	}
	if err := env.ledger.Record(ctx, rec); err != nil {
		t.Fatalf("seed ledger: %v", err)
	}

	res, err := env.evaluator.Evaluate(ctx, risingObs(101, 6, 2000))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if res.Branch != engine.BranchRiskGate {
		t.Errorf("branch = %s, want %s", res.Branch, engine.BranchRiskGate)
	}
}

func TestEvaluateFailedDispatchLeavesStateUntouched(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.evaluator.Evaluate(ctx, risingObs(100, 5, 1000)); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	prevAnchor, _ := env.anchors.Get(ctx, testKey)

	failing := &failingDispatcher{err: errors.New("venue unreachable")}
	env.evaluator.dispatcher = failing

	obs := risingObs(101, 6, 2000)
	_, err := env.evaluator.Evaluate(ctx, obs)
	var derr *DecisionError
	if !errors.As(err, &derr) || derr.Kind != KindDispatch {
		t.Fatalf("error = %v, want DecisionError kind %s", err, KindDispatch)
	}
	if !derr.IsRetryable() {
		t.Error("dispatch failure must be retryable")
	}

	anchor, _ := env.anchors.Get(ctx, testKey)
	if *anchor != *prevAnchor {
		t.Errorf("anchor moved after failed dispatch: %+v", anchor)
	}
	if _, err := env.positions.Get(ctx, testKey); !errors.Is(err, storage.ErrNotFound) {
		t.Error("position created after failed dispatch")
	}

	// Same observation retried after the venue recovers produces the
	// same buy exactly once.
	failing.err = nil
	res, err := env.evaluator.Evaluate(ctx, obs)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if res.Action.Type != domain.ActionBuy {
		t.Fatalf("retried action = %s, want BUY", res.Action.Type)
	}
	if failing.buys != 1 {
		t.Errorf("buys dispatched = %d, want 1", failing.buys)
	}
}

func TestEvaluateSellRealizesProfit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.evaluator.Evaluate(ctx, risingObs(100, 5, 1000)); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if _, err := env.evaluator.Evaluate(ctx, risingObs(100, 6, 2000)); err != nil {
		t.Fatalf("buy: %v", err)
	}

	// 4% over the buy price clears the buffered 1.02*1.01 ceiling.
	res, err := env.evaluator.Evaluate(ctx, risingObs(104, 7, 3000))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if res.Action.Type != domain.ActionSell {
		t.Fatalf("action = %s, want SELL", res.Action.Type)
	}
	if res.Branch != engine.BranchTakeProfit {
		t.Errorf("branch = %s, want %s", res.Branch, engine.BranchTakeProfit)
	}

	pos, _ := env.positions.Get(ctx, testKey)
	if pos.HasPosition {
		t.Error("position still open after confirmed sell")
	}
	wc, _ := env.capital.Get(ctx, testKey)
	if wc.CurrentWC <= 1000 {
		t.Errorf("CurrentWC = %v, want above the initial 1000", wc.CurrentWC)
	}
}

func TestEvaluateKillSwitchRefusesTick(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	ks := NewStaticKillSwitch(true)
	env.evaluator.killSwitch = ks

	_, err := env.evaluator.Evaluate(ctx, risingObs(100, 5, 1000))
	if !errors.Is(err, ErrKillSwitchActive) {
		t.Fatalf("error = %v, want ErrKillSwitchActive", err)
	}
	if _, err := env.anchors.Get(ctx, testKey); !errors.Is(err, storage.ErrNotFound) {
		t.Error("anchor written while halted")
	}

	ks.Set(false)
	if _, err := env.evaluator.Evaluate(ctx, risingObs(100, 5, 1000)); err != nil {
		t.Fatalf("Evaluate after release: %v", err)
	}
}

func TestEvaluateMissingSettingsIsConfigError(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	other := &domain.Observation{
		Key:         domain.TradeKey{Currency: "ETH", Exchange: "coinbase", PairedAsset: "USD"},
		Price:       10,
		Score:       1,
		TimestampMs: 1000,
	}
	_, err := env.evaluator.Evaluate(ctx, other)
	var derr *DecisionError
	if !errors.As(err, &derr) || derr.Kind != KindConfig {
		t.Fatalf("error = %v, want DecisionError kind %s", err, KindConfig)
	}
	if derr.IsRetryable() {
		t.Error("missing settings must not be retryable")
	}
}

// failingDispatcher fails every call until err is cleared, then counts
// the orders it confirms.
type failingDispatcher struct {
	err   error
	buys  int
	sells int
}

var _ dispatch.OrderDispatcher = (*failingDispatcher)(nil)

func (d *failingDispatcher) Buy(_ context.Context, _ domain.TradeKey, obs *domain.Observation, lossThreshold float64) (*dispatch.Ack, error) {
	if d.err != nil {
		return nil, d.err
	}
	d.buys++
	return &dispatch.Ack{Price: obs.Price, Amount: 1}, nil
}

func (d *failingDispatcher) Sell(_ context.Context, _ domain.TradeKey, obs *domain.Observation, _ *domain.Position) (*dispatch.Ack, error) {
	if d.err != nil {
		return nil, d.err
	}
	d.sells++
	return &dispatch.Ack{Price: obs.Price, Amount: 1}, nil
}
