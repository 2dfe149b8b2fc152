// Package risk implements the drawdown gates that block new entries once
// too much working capital was lost within a calendar day or ISO week.
package risk

import (
	"github.com/mrdavey/Futura-os/internal/domain"
)

// IsStopLossActive reports whether realized gross P&L for a period has
// fallen below the allowed drawdown. The gate performs no I/O; the caller
// resolves the ledger key and supplies the sum. A ledger lookup failure
// must be treated by the caller as an active gate (fail closed).
func IsStopLossActive(realizedGross, defaultWorkingCapital, thresholdFraction float64) bool {
	return realizedGross < defaultWorkingCapital*(-thresholdFraction)
}

// ThresholdFor picks the stop-loss fraction for the given range kind.
func ThresholdFor(kind domain.ProfitRange, s domain.TradeSettings) float64 {
	if kind == domain.ProfitRangeWeek {
		return s.WeeklyStoplossThreshold
	}
	return s.DailyStoplossThreshold
}
