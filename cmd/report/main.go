// Package main renders the recorded backtest history of a trade key as
// a Markdown report and a CSV run table.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/mrdavey/Futura-os/internal/domain"
	"github.com/mrdavey/Futura-os/internal/reporting"
	pgstore "github.com/mrdavey/Futura-os/internal/storage/postgres"
)

func main() {
	// Parse flags
	key := flag.String("key", "", "Trade key, e.g. BTC-coinbase-USD (required)")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	outputDir := flag.String("output-dir", "", "Write report files here instead of stdout")
	flag.Parse()

	// Setup logger
	logger := log.New(os.Stderr, "[report] ", log.LstdFlags)

	// Validate required flags
	if *key == "" {
		logger.Fatal("--key is required")
	}
	if *postgresDSN == "" {
		logger.Fatal("--postgres-dsn or POSTGRES_DSN is required")
	}

	tradeKey, err := parseTradeKey(*key)
	if err != nil {
		logger.Fatalf("Invalid --key: %v", err)
	}

	ctx := context.Background()

	pool, err := pgstore.NewPool(ctx, *postgresDSN)
	if err != nil {
		logger.Fatalf("connect to postgres: %v", err)
	}
	defer pool.Close()

	gen := reporting.NewGenerator(pgstore.NewBacktestResultStore(pool))
	report, err := gen.Generate(ctx, tradeKey)
	if err != nil {
		logger.Fatalf("generate report: %v", err)
	}

	markdown := reporting.RenderMarkdown(report)
	csv := reporting.RenderCSV(report.Runs)

	if *outputDir == "" {
		fmt.Print(markdown)
		return
	}

	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		logger.Fatalf("create output dir: %v", err)
	}

	mdPath := filepath.Join(*outputDir, fmt.Sprintf("BACKTEST_%s.md", tradeKey))
	csvPath := filepath.Join(*outputDir, fmt.Sprintf("BACKTEST_%s.csv", tradeKey))

	if err := os.WriteFile(mdPath, []byte(markdown), 0o644); err != nil {
		logger.Fatalf("write markdown: %v", err)
	}
	if err := os.WriteFile(csvPath, []byte(csv), 0o644); err != nil {
		logger.Fatalf("write csv: %v", err)
	}

	fmt.Println("Report generated:")
	fmt.Printf("  - %s\n", mdPath)
	fmt.Printf("  - %s\n", csvPath)
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
