package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders the report as a Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString(fmt.Sprintf("# Backtest Report: %s\n\n", r.Key))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Runs: %d\n\n", r.RunCount))

	if r.RunCount == 0 {
		sb.WriteString("No recorded runs for this key.\n")
		return sb.String()
	}

	// Data Summary
	sb.WriteString("## Data Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Date Range Start | %s |\n", formatMs(r.DateRangeStartMs)))
	sb.WriteString(fmt.Sprintf("| Date Range End | %s |\n", formatMs(r.DateRangeEndMs)))
	totalTrades := 0
	for _, run := range r.Runs {
		totalTrades += run.Trades
	}
	sb.WriteString(fmt.Sprintf("| Total Trades | %d |\n", totalTrades))
	sb.WriteString("\n")

	// Runs
	sb.WriteString("## Runs\n\n")
	sb.WriteString("| Run | Start | End | Trades | Profit | Growth% | Beta% | Alpha% |\n")
	sb.WriteString("|-----|-------|-----|--------|--------|---------|-------|--------|\n")
	for _, run := range r.Runs {
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %d | %.2f | %.2f | %.2f | %.2f |\n",
			shortRunID(run.RunID), formatMs(run.StartMs), formatMs(run.EndMs),
			run.Trades, run.Profit, run.GrowthPct, run.BetaPct, run.AlphaPct))
	}
	sb.WriteString("\n")

	// Growth Distribution
	sb.WriteString("## Growth Distribution\n\n")
	g := r.Growth
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Win Rate | %.4f |\n", g.WinRate))
	sb.WriteString(fmt.Sprintf("| Mean | %.4f |\n", g.Mean))
	sb.WriteString(fmt.Sprintf("| Median | %.4f |\n", g.Median))
	sb.WriteString(fmt.Sprintf("| P10 | %.4f |\n", g.P10))
	sb.WriteString(fmt.Sprintf("| P90 | %.4f |\n", g.P90))
	sb.WriteString(fmt.Sprintf("| Min | %.4f |\n", g.Min))
	sb.WriteString(fmt.Sprintf("| Max | %.4f |\n", g.Max))
	sb.WriteString(fmt.Sprintf("| Stddev | %.4f |\n", g.Stddev))
	sb.WriteString(fmt.Sprintf("| Max Drawdown | %.4f |\n", g.MaxDrawdown))
	sb.WriteString(fmt.Sprintf("| Max Consecutive Losses | %d |\n", g.MaxConsecutiveLosses))
	sb.WriteString("\n")

	return sb.String()
}

// formatMs renders a millisecond timestamp as RFC 3339.
func formatMs(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(time.RFC3339)
}

// shortRunID truncates long hash-style run IDs for table readability.
func shortRunID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
