package reporting

import (
	"context"
	"sort"
	"time"

	"github.com/mrdavey/Futura-os/internal/analytics"
	"github.com/mrdavey/Futura-os/internal/domain"
	"github.com/mrdavey/Futura-os/internal/storage"
)

// Generator produces reports from recorded backtest results.
type Generator struct {
	results storage.BacktestResultStore
	now     func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(results storage.BacktestResultStore) *Generator {
	return &Generator{
		results: results,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate builds the full report for one trade key. A key with no
// recorded runs yields an empty report, not an error.
func (g *Generator) Generate(ctx context.Context, key domain.TradeKey) (*Report, error) {
	results, err := g.results.GetByKey(ctx, key)
	if err != nil {
		return nil, err
	}

	rows := make([]RunRow, len(results))
	growths := make([]float64, len(results))
	for i, r := range results {
		rows[i] = RunRow{
			RunID:      r.RunID,
			StartMs:    r.StartMs,
			EndMs:      r.EndMs,
			Trades:     r.Trades,
			Profit:     r.Profit,
			GrowthPct:  r.GrowthPct,
			BetaPct:    r.BetaPct,
			AlphaPct:   r.AlphaPct,
			DurationMs: r.DurationMs,
		}
	}

	// Sort by (StartMs, RunID) so identical stores always render the
	// same report.
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].StartMs != rows[j].StartMs {
			return rows[i].StartMs < rows[j].StartMs
		}
		return rows[i].RunID < rows[j].RunID
	})
	for i, row := range rows {
		growths[i] = row.GrowthPct
	}

	report := &Report{
		GeneratedAt: g.now(),
		Key:         key,
		RunCount:    len(rows),
		Runs:        rows,
		Growth:      analytics.Summarize(growths),
	}

	if len(rows) > 0 {
		report.DateRangeStartMs = rows[0].StartMs
		report.DateRangeEndMs = rows[0].EndMs
		for _, row := range rows {
			if row.StartMs < report.DateRangeStartMs {
				report.DateRangeStartMs = row.StartMs
			}
			if row.EndMs > report.DateRangeEndMs {
				report.DateRangeEndMs = row.EndMs
			}
		}
	}

	return report, nil
}
