package domain

// Anchor is the last observation used as the comparison baseline for
// momentum decisions. Exactly one anchor exists per trade key; it is
// updated after every successful evaluation. The very first observation
// for a key becomes the anchor without producing a decision.
// Corresponds to the anchors table.
type Anchor struct {
	Price       float64
	Score       float64
	TimestampMs int64
}

// AnchorFromObservation builds the anchor recorded after evaluating o.
func AnchorFromObservation(o *Observation) *Anchor {
	return &Anchor{
		Price:       o.Price,
		Score:       o.Score,
		TimestampMs: o.TimestampMs,
	}
}
