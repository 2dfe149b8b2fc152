package domain

// BacktestResult summarizes one replayed observation sequence.
// Growth is measured against default working capital; beta is the
// buy-and-hold return of the asset over the same window, so alpha is
// the strategy's excess over simply holding.
// Corresponds to the backtest_results table.
type BacktestResult struct {
	RunID string
	Key   TradeKey

	StartMs    int64
	EndMs      int64
	StartPrice float64
	EndPrice   float64

	Trades    int     // completed buy+sell round trips
	Profit    float64 // currentWC - defaultWC at the end of the run
	GrowthPct float64 // (currentWC/defaultWC - 1) * 100
	BetaPct   float64 // (endPrice/startPrice - 1) * 100
	AlphaPct  float64 // GrowthPct - BetaPct

	DurationMs int64 // wall-clock time the replay took
	Settings   TradeSettings
}
