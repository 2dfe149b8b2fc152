package engine

import (
	"testing"

	"github.com/mrdavey/Futura-os/internal/domain"
)

func makeObservation(price, score float64, ts int64) *domain.Observation {
	return &domain.Observation{
		Key:         domain.TradeKey{Currency: "BTC", Exchange: "coinbase", PairedAsset: "USD"},
		Price:       price,
		Score:       score,
		TimestampMs: ts,
	}
}

func defaultSettings() domain.TradeSettings {
	return domain.TradeSettings{
		CorrelationThreshold:    0.3,
		CorrelationInterval:     10,
		DailyStoplossThreshold:  0.04,
		WeeklyStoplossThreshold: 0.10,
		ProfitThreshold:         1.03,
		LossThreshold:           0.97,
	}
}

func TestDecide_Bootstrap(t *testing.T) {
	obs := makeObservation(100, 5, 1000)
	d := Decide(Input{Observation: obs, Settings: defaultSettings()})

	if d.Branch != BranchBootstrap {
		t.Fatalf("expected bootstrap branch, got %s", d.Branch)
	}
	if d.Action.Type != domain.ActionNone {
		t.Errorf("bootstrap must not trade, got %s", d.Action.Type)
	}
	if d.Anchor == nil || d.Anchor.Price != 100 || d.Anchor.Score != 5 {
		t.Errorf("bootstrap anchor must equal the observation, got %+v", d.Anchor)
	}
}

// Falling sentiment blocks entry for any price or correlation.
func TestDecide_FallingSentimentBlocksEntry(t *testing.T) {
	anchor := &domain.Anchor{Price: 90, Score: 10, TimestampMs: 500}

	for _, price := range []float64{50, 90, 500} {
		for _, corr := range []Correlation{{}, {Enabled: true, Value: 0.99}} {
			obs := makeObservation(price, 9, 1000)
			d := Decide(Input{
				Observation: obs,
				Settings:    defaultSettings(),
				Anchor:      anchor,
				Correlation: corr,
			})

			if d.Action.Type != domain.ActionNone {
				t.Errorf("price=%v corr=%+v: expected None, got %s", price, corr, d.Action.Type)
			}
			if d.Branch != BranchFallingSentiment {
				t.Errorf("price=%v: expected falling_sentiment, got %s", price, d.Branch)
			}
			if d.Anchor.Score != 9 || d.Anchor.Price != price {
				t.Errorf("anchor must become the new observation, got %+v", d.Anchor)
			}
		}
	}
}

func TestDecide_CorrelationGate(t *testing.T) {
	anchor := &domain.Anchor{Price: 90, Score: 5, TimestampMs: 500}
	obs := makeObservation(100, 6, 1000)

	low := Decide(Input{
		Observation: obs,
		Settings:    defaultSettings(),
		Anchor:      anchor,
		Correlation: Correlation{Enabled: true, Value: 0.1},
	})
	if low.Action.Type != domain.ActionNone || low.Branch != BranchCorrelationGate {
		t.Errorf("correlation 0.1 < 0.3 must block entry, got %s/%s", low.Action.Type, low.Branch)
	}

	high := Decide(Input{
		Observation: obs,
		Settings:    defaultSettings(),
		Anchor:      anchor,
		Correlation: Correlation{Enabled: true, Value: 0.5},
	})
	if high.Action.Type != domain.ActionBuy {
		t.Errorf("correlation 0.5 >= 0.3 must buy, got %s/%s", high.Action.Type, high.Branch)
	}
	if high.Action.LossThreshold != 0.97 {
		t.Errorf("buy must carry the settings loss threshold, got %v", high.Action.LossThreshold)
	}
}

func TestDecide_CorrelationDisabledSkipsGate(t *testing.T) {
	anchor := &domain.Anchor{Price: 90, Score: 5, TimestampMs: 500}
	obs := makeObservation(100, 6, 1000)
	settings := defaultSettings()
	settings.CorrelationInterval = 0

	d := Decide(Input{
		Observation: obs,
		Settings:    settings,
		Anchor:      anchor,
		Correlation: Correlation{Enabled: false},
	})
	if d.Action.Type != domain.ActionBuy {
		t.Errorf("disabled correlation must not gate entry, got %s/%s", d.Action.Type, d.Branch)
	}
}

func TestDecide_RiskGateBlocksEntryOnly(t *testing.T) {
	anchor := &domain.Anchor{Price: 90, Score: 5, TimestampMs: 500}
	obs := makeObservation(100, 6, 1000)

	for _, tc := range []struct {
		name      string
		day, week bool
	}{
		{"day", true, false},
		{"week", false, true},
		{"both", true, true},
	} {
		d := Decide(Input{
			Observation:    obs,
			Settings:       defaultSettings(),
			Anchor:         anchor,
			Correlation:    Correlation{Enabled: true, Value: 0.5},
			DayStopActive:  tc.day,
			WeekStopActive: tc.week,
		})
		if d.Action.Type != domain.ActionNone || d.Branch != BranchRiskGate {
			t.Errorf("%s stop must block entry, got %s/%s", tc.name, d.Action.Type, d.Branch)
		}
	}

	// An active stop never forces an exit of an existing position.
	pos := &domain.Position{HasPosition: true, BuyPrice: 100, LossThreshold: 0.97}
	d := Decide(Input{
		Observation:   makeObservation(101, 6, 1000),
		Settings:      defaultSettings(),
		Anchor:        &domain.Anchor{Price: 100, Score: 5},
		Position:      pos,
		DayStopActive: true,
	})
	if d.Action.Type == domain.ActionSell {
		t.Errorf("risk gate must not exit an open position, got %s/%s", d.Action.Type, d.Branch)
	}
}

// Hard stop-loss exit precedes every other has-position rule.
func TestDecide_StopLossExit(t *testing.T) {
	pos := &domain.Position{HasPosition: true, BuyPrice: 100, BuyScore: 5, LossThreshold: 0.97}
	obs := makeObservation(96, 50, 1000) // stop at 97, score irrelevant

	d := Decide(Input{
		Observation: obs,
		Settings:    defaultSettings(),
		Anchor:      &domain.Anchor{Price: 95, Score: 1},
		Position:    pos,
		Correlation: Correlation{Enabled: true, Value: 0.99},
	})
	if d.Action.Type != domain.ActionSell || d.Branch != BranchCutLosses {
		t.Fatalf("price 96 < 97 must cut losses, got %s/%s", d.Action.Type, d.Branch)
	}
}

// The 1%-buffered profit ceiling overrides riding the price wave.
func TestDecide_TakeProfitBufferOverridesRiding(t *testing.T) {
	pos := &domain.Position{HasPosition: true, BuyPrice: 100, LossThreshold: 0.97}
	// target 103, hard ceiling 104.03; price rising vs anchor 101
	obs := makeObservation(105, 5, 1000)

	d := Decide(Input{
		Observation: obs,
		Settings:    defaultSettings(),
		Anchor:      &domain.Anchor{Price: 101, Score: 5},
		Position:    pos,
	})
	if d.Action.Type != domain.ActionSell || d.Branch != BranchTakeProfit {
		t.Fatalf("price above buffered ceiling must sell, got %s/%s", d.Action.Type, d.Branch)
	}
}

func TestDecide_RidePriceWave(t *testing.T) {
	pos := &domain.Position{HasPosition: true, BuyPrice: 100, LossThreshold: 0.97}
	// above nominal target 103 but below ceiling 104.03, price rising
	obs := makeObservation(103.5, 2, 1000)

	d := Decide(Input{
		Observation: obs,
		Settings:    defaultSettings(),
		Anchor:      &domain.Anchor{Price: 102, Score: 5},
		Position:    pos,
		Correlation: Correlation{Enabled: true, Value: 0.0},
	})
	if d.Action.Type != domain.ActionNone || d.Branch != BranchRidePriceWave {
		t.Fatalf("rising price below ceiling must ride, got %s/%s", d.Action.Type, d.Branch)
	}
}

func TestDecide_RideSentimentWave(t *testing.T) {
	pos := &domain.Position{HasPosition: true, BuyPrice: 100, LossThreshold: 0.97}
	// price flat/falling, correlated, sentiment not dropping
	obs := makeObservation(101, 6, 1000)

	d := Decide(Input{
		Observation: obs,
		Settings:    defaultSettings(),
		Anchor:      &domain.Anchor{Price: 102, Score: 6},
		Position:    pos,
		Correlation: Correlation{Enabled: true, Value: 0.5},
	})
	if d.Action.Type != domain.ActionNone || d.Branch != BranchRideSentiment {
		t.Fatalf("correlated steady sentiment must ride, got %s/%s", d.Action.Type, d.Branch)
	}
}

// Correlated but falling sentiment falls through to the profit check
// instead of returning early.
func TestDecide_SentimentDropFallsThroughToProfitCheck(t *testing.T) {
	pos := &domain.Position{HasPosition: true, BuyPrice: 100, LossThreshold: 0.97}
	settings := defaultSettings()

	// Above nominal target (103 < 103.5 < 104.03): fall-through sells.
	sell := Decide(Input{
		Observation: makeObservation(103.5, 4, 1000),
		Settings:    settings,
		Anchor:      &domain.Anchor{Price: 104, Score: 6},
		Position:    pos,
		Correlation: Correlation{Enabled: true, Value: 0.5},
	})
	if sell.Action.Type != domain.ActionSell || sell.Branch != BranchTakeProfit {
		t.Errorf("fall-through above target must sell, got %s/%s", sell.Action.Type, sell.Branch)
	}

	// Below target: fall-through holds.
	hold := Decide(Input{
		Observation: makeObservation(101, 4, 1000),
		Settings:    settings,
		Anchor:      &domain.Anchor{Price: 102, Score: 6},
		Position:    pos,
		Correlation: Correlation{Enabled: true, Value: 0.5},
	})
	if hold.Action.Type != domain.ActionNone || hold.Branch != BranchHold {
		t.Errorf("fall-through below target must hold, got %s/%s", hold.Action.Type, hold.Branch)
	}
}

func TestDecide_Hold(t *testing.T) {
	pos := &domain.Position{HasPosition: true, BuyPrice: 100, LossThreshold: 0.97}
	// price falling but above stop, correlation disabled, below target
	obs := makeObservation(99, 5, 1000)

	d := Decide(Input{
		Observation: obs,
		Settings:    defaultSettings(),
		Anchor:      &domain.Anchor{Price: 100, Score: 5},
		Position:    pos,
	})
	if d.Action.Type != domain.ActionNone || d.Branch != BranchHold {
		t.Fatalf("expected hold, got %s/%s", d.Action.Type, d.Branch)
	}
}

// Identical inputs always yield identical decisions.
func TestDecide_Deterministic(t *testing.T) {
	in := Input{
		Observation: makeObservation(101, 6, 1000),
		Settings:    defaultSettings(),
		Anchor:      &domain.Anchor{Price: 100, Score: 5, TimestampMs: 500},
		Correlation: Correlation{Enabled: true, Value: 0.42},
	}

	first := Decide(in)
	for i := 0; i < 10; i++ {
		d := Decide(in)
		if d.Action != first.Action || d.Branch != first.Branch || *d.Anchor != *first.Anchor {
			t.Fatalf("run %d diverged: %+v vs %+v", i, d, first)
		}
	}
}

func TestDecide_AnchorAlwaysUpdated(t *testing.T) {
	anchor := &domain.Anchor{Price: 100, Score: 5, TimestampMs: 500}
	inputs := []Input{
		{Observation: makeObservation(90, 4, 1000), Settings: defaultSettings(), Anchor: anchor},
		{Observation: makeObservation(110, 6, 1000), Settings: defaultSettings(), Anchor: anchor},
		{
			Observation: makeObservation(96, 5, 1000),
			Settings:    defaultSettings(),
			Anchor:      anchor,
			Position:    &domain.Position{HasPosition: true, BuyPrice: 100, LossThreshold: 0.97},
		},
	}

	for i, in := range inputs {
		d := Decide(in)
		if d.Anchor.Price != in.Observation.Price || d.Anchor.Score != in.Observation.Score {
			t.Errorf("case %d: anchor not updated to observation: %+v", i, d.Anchor)
		}
	}
}
