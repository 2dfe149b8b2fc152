package domain

// Position is the open (or absent) holding for a trade key.
// At most one open position exists per key. A position is created only
// by a confirmed buy and cleared only by a confirmed sell.
// Corresponds to the positions table.
type Position struct {
	HasPosition    bool
	BuyPrice       float64
	BuyScore       float64
	BuyTimestampMs int64

	// LossThreshold is the fraction of BuyPrice below which the position
	// is cut. Frozen at buy time; later settings changes do not touch it.
	LossThreshold float64

	// Execution bookkeeping, owned by the order dispatcher.
	Amount float64 // units of the currency bought
	Fees   float64 // cumulative execution fees in the paired asset
}

// StopPrice returns the absolute price below which the position is cut.
func (p *Position) StopPrice() float64 {
	return p.BuyPrice * p.LossThreshold
}
