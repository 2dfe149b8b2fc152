// Package engine implements the per-key trading decision state machine.
// Decide is pure: it never performs I/O and never fails on valid inputs,
// so identical inputs always produce identical decisions. All loading,
// dispatch and persistence belong to the evaluator wrapping it.
package engine

import (
	"github.com/mrdavey/Futura-os/internal/domain"
)

// takeProfitBuffer is the multiplicative buffer above the nominal profit
// target at which a sell is forced regardless of momentum.
const takeProfitBuffer = 1.01

// Branch names the guard that produced a decision. Logged with every
// evaluation so any decision can be reconstructed from its inputs.
type Branch string

// Branch constants, in evaluation order.
const (
	BranchBootstrap        Branch = "bootstrap"
	BranchFallingSentiment Branch = "falling_sentiment"
	BranchCorrelationGate  Branch = "correlation_gate"
	BranchRiskGate         Branch = "risk_gate"
	BranchEnter            Branch = "enter"
	BranchCutLosses        Branch = "cut_losses"
	BranchRidePriceWave    Branch = "ride_price_wave"
	BranchRideSentiment    Branch = "ride_sentiment_wave"
	BranchTakeProfit       Branch = "take_profit"
	BranchHold             Branch = "hold"
)

// Correlation carries the sentiment/price correlation for the tick.
// Enabled is false when the settings disable correlation gating
// (interval 0); Value is then ignored.
type Correlation struct {
	Enabled bool
	Value   float64
}

// Input is everything one decision tick depends on. The caller resolves
// all of it up front; Decide only computes.
type Input struct {
	Observation *domain.Observation
	Settings    domain.TradeSettings

	// Anchor is nil on the very first tick for a key.
	Anchor *domain.Anchor

	// Position is nil or HasPosition=false when the key holds nothing.
	Position *domain.Position

	Correlation Correlation

	// DayStopActive and WeekStopActive are the resolved risk gates.
	// They block new entries only; open positions are controlled solely
	// by the price thresholds.
	DayStopActive  bool
	WeekStopActive bool
}

// Decision is the outcome of one tick: the action to dispatch and the
// anchor to persist once the action succeeded. The anchor always becomes
// the current observation; it is returned explicitly so a failed dispatch
// can leave the stored anchor untouched and retry naturally.
type Decision struct {
	Action domain.Action
	Anchor *domain.Anchor
	Branch Branch
}

// Decide runs the decision state machine for one observation.
//
// Branch order is load-bearing: later guards are only reached when
// earlier ones did not return. The stop-loss exit precedes everything in
// the has-position branch, and the buffered take-profit ceiling overrides
// wave riding.
func Decide(in Input) Decision {
	obs := in.Observation
	anchor := domain.AnchorFromObservation(obs)

	// First observation for the key: it becomes the anchor, nothing else runs.
	if in.Anchor == nil {
		return Decision{Action: domain.None(), Anchor: anchor, Branch: BranchBootstrap}
	}

	if in.Position == nil || !in.Position.HasPosition {
		return decideEntry(in, anchor)
	}
	return decideExit(in, anchor)
}

// decideEntry handles the no-position branch: whether to open.
func decideEntry(in Input, anchor *domain.Anchor) Decision {
	obs := in.Observation

	// Falling sentiment never triggers an entry, whatever the price does.
	if obs.Score < in.Anchor.Score {
		return Decision{Action: domain.None(), Anchor: anchor, Branch: BranchFallingSentiment}
	}

	if in.Correlation.Enabled && in.Correlation.Value < in.Settings.CorrelationThreshold {
		return Decision{Action: domain.None(), Anchor: anchor, Branch: BranchCorrelationGate}
	}

	if in.DayStopActive || in.WeekStopActive {
		return Decision{Action: domain.None(), Anchor: anchor, Branch: BranchRiskGate}
	}

	return Decision{
		Action: domain.Buy(in.Settings.LossThreshold),
		Anchor: anchor,
		Branch: BranchEnter,
	}
}

// decideExit handles the has-position branch: whether to close.
func decideExit(in Input, anchor *domain.Anchor) Decision {
	obs := in.Observation
	pos := in.Position

	// Hard stop-loss, checked before every other rule.
	if obs.Price < pos.BuyPrice*in.Settings.LossThreshold {
		return Decision{Action: domain.Sell(), Anchor: anchor, Branch: BranchCutLosses}
	}

	target := pos.BuyPrice * in.Settings.ProfitThreshold
	takeProfits := obs.Price >= target*takeProfitBuffer
	aboveTarget := obs.Price > target

	if !takeProfits {
		// Price momentum alone justifies holding; sentiment is not
		// re-checked while the price keeps climbing.
		if obs.Price > in.Anchor.Price {
			return Decision{Action: domain.None(), Anchor: anchor, Branch: BranchRidePriceWave}
		}

		if in.Correlation.Enabled && in.Correlation.Value >= in.Settings.CorrelationThreshold {
			if obs.Score >= in.Anchor.Score {
				return Decision{Action: domain.None(), Anchor: anchor, Branch: BranchRideSentiment}
			}
			// Correlated but sentiment dropped: fall through so the
			// profit-threshold check below still decides this tick.
		}
	}

	if aboveTarget {
		return Decision{Action: domain.Sell(), Anchor: anchor, Branch: BranchTakeProfit}
	}

	return Decision{Action: domain.None(), Anchor: anchor, Branch: BranchHold}
}
