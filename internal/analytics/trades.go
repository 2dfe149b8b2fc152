package analytics

import (
	"github.com/mrdavey/Futura-os/internal/domain"
	"github.com/mrdavey/Futura-os/internal/replay"
)

// Trade is one completed buy+sell round trip extracted from a replayed
// step sequence.
type Trade struct {
	BuyMs  int64
	SellMs int64

	BuyPrice  float64
	SellPrice float64

	// ReturnPct is the gross price return of the round trip, before
	// execution fees: (sellPrice/buyPrice - 1) * 100.
	ReturnPct float64
}

// RoundTrips pairs each buy step with the sell step that closed it. A
// position still open at the end of the sequence yields no trade.
func RoundTrips(steps []replay.Step) []Trade {
	var trades []Trade
	var open *Trade

	for _, step := range steps {
		switch step.Action.Type {
		case domain.ActionBuy:
			// The anchor was advanced to the buy observation.
			open = &Trade{BuyMs: step.TimestampMs, BuyPrice: step.Anchor.Price}
		case domain.ActionSell:
			if open == nil {
				continue
			}
			open.SellMs = step.TimestampMs
			open.SellPrice = step.Anchor.Price
			if open.BuyPrice > 0 {
				open.ReturnPct = (open.SellPrice/open.BuyPrice - 1) * 100
			}
			trades = append(trades, *open)
			open = nil
		}
	}
	return trades
}

// TradeReturns extracts the chronological return series of completed
// round trips, ready for Summarize.
func TradeReturns(steps []replay.Step) []float64 {
	trades := RoundTrips(steps)
	returns := make([]float64, len(trades))
	for i, t := range trades {
		returns[i] = t.ReturnPct
	}
	return returns
}
