package domain

import (
	"errors"
	"fmt"
)

// Validation errors for settings and observations.
var (
	errNegativePrice = errors.New("observation price must be >= 0")
)

// TradeSettings are the per-key tunable parameters of the decision engine.
// They may change between observations; changes take effect on the next
// evaluation. An open position keeps the LossThreshold it was bought with.
// Corresponds to the trade_settings table.
type TradeSettings struct {
	// CorrelationThreshold is the minimum Pearson correlation between
	// sentiment and price required to open a position (typically 0.0-0.6).
	CorrelationThreshold float64

	// CorrelationInterval is the lookback window size in observation
	// ticks. Zero disables correlation gating entirely.
	CorrelationInterval int

	// DailyStoplossThreshold and WeeklyStoplossThreshold are fractions of
	// default working capital that, once lost within the period, block
	// new entries for the remainder of it.
	DailyStoplossThreshold  float64
	WeeklyStoplossThreshold float64

	// ProfitThreshold is the multiplicative take-profit target on the buy
	// price (> 1). A further 1% buffer above it forces a sell regardless
	// of momentum.
	ProfitThreshold float64

	// LossThreshold is the multiplicative stop on the buy price (< 1).
	LossThreshold float64
}

// Validate rejects inconsistent settings at load time, so the decision
// loop never has to handle them.
func (s *TradeSettings) Validate() error {
	if s.CorrelationInterval < 0 {
		return fmt.Errorf("correlationInterval must be >= 0, got %d", s.CorrelationInterval)
	}
	if s.DailyStoplossThreshold < 0 {
		return fmt.Errorf("dailyStoplossThreshold must be >= 0, got %v", s.DailyStoplossThreshold)
	}
	if s.WeeklyStoplossThreshold < 0 {
		return fmt.Errorf("weeklyStoplossThreshold must be >= 0, got %v", s.WeeklyStoplossThreshold)
	}
	if s.ProfitThreshold <= 1 {
		return fmt.Errorf("profitThreshold must be > 1, got %v", s.ProfitThreshold)
	}
	if s.LossThreshold <= 0 || s.LossThreshold >= 1 {
		return fmt.Errorf("lossThreshold must be in (0, 1), got %v", s.LossThreshold)
	}
	return nil
}
