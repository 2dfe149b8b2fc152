// Package reporting renders backtest run histories as Markdown and CSV.
package reporting

import (
	"time"

	"github.com/mrdavey/Futura-os/internal/analytics"
	"github.com/mrdavey/Futura-os/internal/domain"
)

// Report summarizes every recorded backtest run for one trade key.
type Report struct {
	// Metadata
	GeneratedAt time.Time
	Key         domain.TradeKey
	RunCount    int

	// DateRangeStartMs and DateRangeEndMs span the earliest and latest
	// observation windows across all runs.
	DateRangeStartMs int64
	DateRangeEndMs   int64

	// Runs, sorted by (StartMs, RunID).
	Runs []RunRow

	// Growth is the distribution of per-run growth, in run order.
	Growth *analytics.Summary
}

// RunRow is one recorded run in the report table.
type RunRow struct {
	RunID   string
	StartMs int64
	EndMs   int64

	Trades    int
	Profit    float64
	GrowthPct float64
	BetaPct   float64
	AlphaPct  float64

	DurationMs int64
}
