// Package main replays a recorded observation sequence through the
// decision loop and reports the backtest result. The replay runs on
// fresh in-memory stores with paper fills, so results are reproducible
// and never touch live trading state.
package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mrdavey/Futura-os/internal/analytics"
	"github.com/mrdavey/Futura-os/internal/domain"
	"github.com/mrdavey/Futura-os/internal/idhash"
	"github.com/mrdavey/Futura-os/internal/replay"
	"github.com/mrdavey/Futura-os/internal/storage/migrations"
	pgstore "github.com/mrdavey/Futura-os/internal/storage/postgres"
	"github.com/mrdavey/Futura-os/internal/verification"
)

func main() {
	// Parse flags
	input := flag.String("input", "", "Observation file, .csv (timestampMs,score,price) or .json (required)")
	key := flag.String("key", "", "Trade key, e.g. BTC-coinbase-USD (required)")

	// Decision parameters
	corrThreshold := flag.Float64("correlation-threshold", 0.3, "Minimum sentiment/price correlation to enter")
	corrInterval := flag.Int("correlation-interval", 10, "Correlation lookback window in ticks (0 disables)")
	dailyStoploss := flag.Float64("daily-stoploss", 0.04, "Daily stop-loss fraction of default working capital")
	weeklyStoploss := flag.Float64("weekly-stoploss", 0.10, "Weekly stop-loss fraction of default working capital")
	profitThreshold := flag.Float64("profit-threshold", 1.02, "Take-profit multiple on buy price (> 1)")
	lossThreshold := flag.Float64("loss-threshold", 0.97, "Stop-loss multiple on buy price (0, 1)")

	// Replay parameters
	defaultWC := flag.Float64("default-wc", 1000, "Default working capital to seed the run with")
	feeRate := flag.Float64("fee-rate", 0, "Paper execution fee rate")
	runID := flag.String("run-id", "", "Run identifier; empty derives one from the key and time range")
	verify := flag.Bool("verify", false, "Replay twice and fail on any divergence")

	// Output
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string for recording the result")
	persistResult := flag.Bool("persist", false, "Record the result row to PostgreSQL")
	outputJSON := flag.Bool("json", false, "Output as JSON")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stderr, "[backtest] ", log.LstdFlags)

	// Validate required flags
	if *input == "" {
		logger.Fatal("--input is required")
	}
	if *key == "" {
		logger.Fatal("--key is required")
	}
	if *persistResult && *postgresDSN == "" {
		logger.Fatal("--persist requires --postgres-dsn or POSTGRES_DSN")
	}

	tradeKey, err := parseTradeKey(*key)
	if err != nil {
		logger.Fatalf("Invalid --key: %v", err)
	}

	settings := domain.TradeSettings{
		CorrelationThreshold:    *corrThreshold,
		CorrelationInterval:     *corrInterval,
		DailyStoplossThreshold:  *dailyStoploss,
		WeeklyStoplossThreshold: *weeklyStoploss,
		ProfitThreshold:         *profitThreshold,
		LossThreshold:           *lossThreshold,
	}
	if err := settings.Validate(); err != nil {
		logger.Fatalf("Invalid settings: %v", err)
	}

	observations, err := loadObservations(*input, tradeKey)
	if err != nil {
		logger.Fatalf("Failed to load observations: %v", err)
	}
	if len(observations) == 0 {
		logger.Fatal("No observations in input file")
	}
	logger.Printf("Loaded %d observations from %s", len(observations), *input)

	scenario := &replay.Scenario{
		Key:          tradeKey,
		Settings:     settings,
		DefaultWC:    *defaultWC,
		Observations: observations,
	}

	// Derive a deterministic run ID from the key and the time range
	// unless one was given explicitly.
	replay.SortObservations(scenario.Observations)
	resolvedRunID := *runID
	if resolvedRunID == "" {
		first := scenario.Observations[0]
		last := scenario.Observations[len(scenario.Observations)-1]
		resolvedRunID = idhash.ComputeRunID(tradeKey, first.TimestampMs, last.TimestampMs)
	}

	runner := &replay.Runner{RunID: resolvedRunID, FeeRate: *feeRate}

	ctx := context.Background()

	if *verify {
		verifier := verification.NewVerifier(runner)
		vreport, err := verifier.Verify(ctx, scenario)
		if err != nil {
			logger.Fatalf("Verification run failed: %v", err)
		}
		if !vreport.Match {
			for _, d := range vreport.Divergences {
				logger.Printf("Divergence at tick %d: %s expected=%v actual=%v",
					d.Tick, d.Field, d.Expected, d.Actual)
			}
			logger.Fatalf("Replay is not deterministic: %d divergences over %d ticks",
				len(vreport.Divergences), vreport.Ticks)
		}
		logger.Printf("Verified: %d ticks, both runs identical", vreport.Ticks)
	}

	report, err := runner.Run(ctx, scenario)
	if err != nil {
		logger.Fatalf("Backtest failed: %v", err)
	}

	if *persistResult {
		if err := recordResult(ctx, *postgresDSN, report.Result); err != nil {
			logger.Fatalf("Failed to record result: %v", err)
		}
		logger.Printf("Recorded result run_id=%s", report.Result.RunID)
	}

	// Output result
	if *outputJSON {
		output, _ := json.MarshalIndent(report.Result, "", "  ")
		fmt.Println(string(output))
	} else {
		printResult(report)
	}
}

// parseTradeKey parses "BTC-coinbase-USD".
func parseTradeKey(s string) (domain.TradeKey, error) {
	fields := strings.Split(strings.TrimSpace(s), "-")
	if len(fields) != 3 {
		return domain.TradeKey{}, fmt.Errorf("key %q must be currency-exchange-pairedAsset", s)
	}
	key := domain.TradeKey{Currency: fields[0], Exchange: fields[1], PairedAsset: fields[2]}
	return key, key.Validate()
}

// loadObservations reads the observation file. CSV rows are
// timestampMs,score,price with an optional header; JSON is an array of
// {"timestampMs": ..., "score": ..., "price": ...}.
func loadObservations(path string, key domain.TradeKey) ([]*domain.Observation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return loadJSONObservations(f, key)
	case ".csv":
		return loadCSVObservations(f, key)
	default:
		return nil, fmt.Errorf("unsupported input format %q, use .csv or .json", filepath.Ext(path))
	}
}

func loadJSONObservations(r io.Reader, key domain.TradeKey) ([]*domain.Observation, error) {
	var rows []struct {
		TimestampMs int64   `json:"timestampMs"`
		Score       float64 `json:"score"`
		Price       float64 `json:"price"`
	}
	if err := json.NewDecoder(r).Decode(&rows); err != nil {
		return nil, err
	}

	observations := make([]*domain.Observation, 0, len(rows))
	for _, row := range rows {
		observations = append(observations, &domain.Observation{
			Key:         key,
			Price:       row.Price,
			Score:       row.Score,
			TimestampMs: row.TimestampMs,
		})
	}
	return observations, nil
}

func loadCSVObservations(r io.Reader, key domain.TradeKey) ([]*domain.Observation, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, err
	}

	var observations []*domain.Observation
	for i, record := range records {
		if len(record) != 3 {
			return nil, fmt.Errorf("row %d: expected 3 columns, got %d", i+1, len(record))
		}
		ts, err := strconv.ParseInt(strings.TrimSpace(record[0]), 10, 64)
		if err != nil {
			if i == 0 {
				continue // header row
			}
			return nil, fmt.Errorf("row %d: bad timestamp: %w", i+1, err)
		}
		score, err := strconv.ParseFloat(strings.TrimSpace(record[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: bad score: %w", i+1, err)
		}
		price, err := strconv.ParseFloat(strings.TrimSpace(record[2]), 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: bad price: %w", i+1, err)
		}
		observations = append(observations, &domain.Observation{
			Key:         key,
			Price:       price,
			Score:       score,
			TimestampMs: ts,
		})
	}
	return observations, nil
}

// recordResult writes the result row to PostgreSQL.
func recordResult(ctx context.Context, dsn string, result *domain.BacktestResult) error {
	pool, err := pgstore.NewPool(ctx, dsn)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		return err
	}
	return pgstore.NewBacktestResultStore(pool).Insert(ctx, result)
}

// printResult outputs a human-readable backtest summary.
func printResult(report *replay.Report) {
	r := report.Result

	fmt.Println()
	fmt.Println("=== Backtest Result ===")
	fmt.Printf("Run ID:             %s\n", r.RunID)
	fmt.Printf("Key:                %s\n", r.Key)
	fmt.Printf("Window:             %s .. %s\n",
		time.UnixMilli(r.StartMs).Format(time.RFC3339),
		time.UnixMilli(r.EndMs).Format(time.RFC3339))
	fmt.Printf("Ticks:              %d\n", len(report.Steps))
	fmt.Printf("Duration:           %v\n", time.Duration(r.DurationMs)*time.Millisecond)
	fmt.Println()

	fmt.Println("Market:")
	fmt.Printf("  Start Price:      %.8f\n", r.StartPrice)
	fmt.Printf("  End Price:        %.8f\n", r.EndPrice)
	fmt.Printf("  Beta:             %+.2f%%\n", r.BetaPct)
	fmt.Println()

	fmt.Println("Strategy:")
	fmt.Printf("  Trades:           %d\n", r.Trades)
	fmt.Printf("  Profit:           %+.2f\n", r.Profit)
	fmt.Printf("  Growth:           %+.2f%%\n", r.GrowthPct)
	fmt.Printf("  Alpha:            %+.2f%%\n", r.AlphaPct)
	fmt.Printf("  Final Capital:    %.2f\n", report.FinalCapital.CurrentWC)

	stats := analytics.Summarize(analytics.TradeReturns(report.Steps))
	if stats.Count > 0 {
		fmt.Println()
		fmt.Println("Trade Returns:")
		fmt.Printf("  Win Rate:         %.4f\n", stats.WinRate)
		fmt.Printf("  Mean:             %+.2f%%\n", stats.Mean)
		fmt.Printf("  Median:           %+.2f%%\n", stats.Median)
		fmt.Printf("  Max Drawdown:     %.2f%%\n", stats.MaxDrawdown)
		fmt.Printf("  Max Loss Streak:  %d\n", stats.MaxConsecutiveLosses)
	}
}
