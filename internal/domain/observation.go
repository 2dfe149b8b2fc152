package domain

// Observation is one sentiment+price sample for a trade key.
// Constructed by the caller (live feed or replay driver) for each tick;
// immutable; never persisted by the decision engine itself.
type Observation struct {
	Key         TradeKey
	Price       float64 // exchange price at the tick, >= 0
	Score       float64 // aggregated sentiment score, signed
	TimestampMs int64   // Unix timestamp in milliseconds

	// CorrelationSeries carries paired sentiment/price history supplied
	// directly by a replay driver. When set, correlation is computed from
	// it verbatim instead of querying the history stores, so backtest
	// results are reproducible without live lookups.
	CorrelationSeries []CorrelationSample
}

// CorrelationSample is one paired sentiment/price point of the
// correlation lookback window.
type CorrelationSample struct {
	TimestampMs int64
	Score       float64
	Price       float64
}

// Validate checks observation fields that must hold before evaluation.
func (o *Observation) Validate() error {
	if err := o.Key.Validate(); err != nil {
		return err
	}
	if o.Price < 0 {
		return errNegativePrice
	}
	return nil
}
