package reporting

import (
	"fmt"
	"strings"
)

// RenderCSV renders the run rows as a CSV string.
func RenderCSV(runs []RunRow) string {
	var sb strings.Builder

	// Header
	sb.WriteString("run_id,start_ms,end_ms,trades,profit,growth_pct,beta_pct,alpha_pct,duration_ms\n")

	// Rows
	for _, run := range runs {
		sb.WriteString(fmt.Sprintf("%s,%d,%d,%d,%.6f,%.6f,%.6f,%.6f,%d\n",
			run.RunID,
			run.StartMs,
			run.EndMs,
			run.Trades,
			run.Profit,
			run.GrowthPct,
			run.BetaPct,
			run.AlphaPct,
			run.DurationMs,
		))
	}

	return sb.String()
}
