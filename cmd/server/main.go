// Package main runs the live trading service: the WebSocket sentiment
// feed drives the evaluation loop for every configured trade key, with
// trading state in PostgreSQL, tick history in ClickHouse, and orders
// going to the paper dispatcher or to Binance.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mrdavey/Futura-os/internal/dispatch"
	"github.com/mrdavey/Futura-os/internal/domain"
	"github.com/mrdavey/Futura-os/internal/evaluator"
	"github.com/mrdavey/Futura-os/internal/ingestion"
	"github.com/mrdavey/Futura-os/internal/observability"
	"github.com/mrdavey/Futura-os/internal/storage"
	chstore "github.com/mrdavey/Futura-os/internal/storage/clickhouse"
	"github.com/mrdavey/Futura-os/internal/storage/memory"
	"github.com/mrdavey/Futura-os/internal/storage/migrations"
	pgstore "github.com/mrdavey/Futura-os/internal/storage/postgres"
)

// allStores holds all storage implementations.
type allStores struct {
	settings  storage.SettingsStore
	anchors   storage.AnchorStore
	positions storage.PositionStore
	capital   storage.WorkingCapitalStore
	ledger    storage.ProfitLedger
	sentiment storage.SentimentHistoryStore
	prices    storage.PriceHistoryStore
}

func main() {
	// Load .env file if exists
	loadEnvFile()

	// Parse flags (env vars as defaults)
	feedEndpoint := flag.String("feed-endpoint", os.Getenv("FEED_WS_ENDPOINT"), "Sentiment feed WebSocket endpoint")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	keys := flag.String("keys", os.Getenv("TRADE_KEYS"), "Comma-separated trade keys, e.g. BTC-coinbase-USD,ETH-coinbase-USD")
	live := flag.Bool("live", false, "Dispatch real orders to Binance instead of paper fills")
	feeRate := flag.Float64("fee-rate", dispatch.DefaultFeeRate, "Paper execution fee rate")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	metricsAddr := flag.String("metrics-addr", ":9090", "Prometheus metrics HTTP address")
	verbose := flag.Bool("verbose", false, "Log every evaluation")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	// Validate required flags
	if *feedEndpoint == "" {
		logger.Fatal("--feed-endpoint is required")
	}
	if !*useMemory && (*postgresDSN == "" || *clickhouseDSN == "") {
		logger.Fatal("--postgres-dsn and --clickhouse-dsn are required (use --use-memory for in-memory storage)")
	}

	tradeKeys, err := parseTradeKeys(*keys)
	if err != nil {
		logger.Fatalf("Invalid --keys: %v", err)
	}
	if len(tradeKeys) == 0 {
		logger.Fatal("No trade keys specified. Use --keys or TRADE_KEYS")
	}
	logger.Printf("Managing trade keys: %v", tradeKeys)

	ctx, cancel := context.WithCancel(context.Background())

	stores, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	dispatcher, err := createDispatcher(stores, *live, *feeRate, logger)
	if err != nil {
		// Fatalf skips deferred cleanup, so close the pools first.
		cleanup()
		logger.Fatalf("Failed to create dispatcher: %v", err)
	}

	killSwitch := evaluator.NewStaticKillSwitch(false)

	ev := evaluator.New(evaluator.Options{
		SettingsStore:         stores.settings,
		AnchorStore:           stores.anchors,
		PositionStore:         stores.positions,
		WorkingCapitalStore:   stores.capital,
		ProfitLedger:          stores.ledger,
		SentimentHistoryStore: stores.sentiment,
		PriceHistoryStore:     stores.prices,
		Dispatcher:            dispatcher,
		KillSwitch:            killSwitch,
		Verbose:               *verbose,
	})

	feed, err := ingestion.NewFeedClient(ctx, *feedEndpoint, nil)
	if err != nil {
		cleanup()
		logger.Fatalf("Failed to connect to sentiment feed: %v", err)
	}
	defer feed.Close()

	runner := ingestion.NewRunner(ingestion.RunnerOptions{
		Source:                feed,
		Evaluator:             ev,
		SentimentHistoryStore: stores.sentiment,
		PriceHistoryStore:     stores.prices,
		Keys:                  tradeKeys,
	})

	// Channel to signal completion
	done := make(chan error, 1)

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
			// Normal shutdown completed
		}
	}()

	go startHTTPServer(*metricsAddr, killSwitch, logger)

	logger.Printf("Consuming sentiment feed from %s", *feedEndpoint)
	err = runner.Run(ctx)
	done <- err
	cancel()

	if err != nil && err != context.Canceled {
		feed.Close()
		cleanup()
		logger.Fatalf("Server error: %v", err)
	}

	logger.Println("Shutdown complete")
}

// createStores builds the storage layer: in-memory, or Postgres for
// trading state plus ClickHouse for tick history.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool) (*allStores, func(), error) {
	if useMemory {
		return &allStores{
			settings:  memory.NewSettingsStore(),
			anchors:   memory.NewAnchorStore(),
			positions: memory.NewPositionStore(),
			capital:   memory.NewWorkingCapitalStore(),
			ledger:    memory.NewProfitLedger(),
			sentiment: memory.NewSentimentHistoryStore(),
			prices:    memory.NewPriceHistoryStore(),
		}, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}

	conn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
	}

	cleanup := func() {
		pool.Close()
		conn.Close()
	}

	return &allStores{
		settings:  pgstore.NewSettingsStore(pool),
		anchors:   pgstore.NewAnchorStore(pool),
		positions: pgstore.NewPositionStore(pool),
		capital:   pgstore.NewWorkingCapitalStore(pool),
		ledger:    pgstore.NewProfitLedger(pool),
		sentiment: chstore.NewSentimentHistoryStore(conn),
		prices:    chstore.NewPriceHistoryStore(conn),
	}, cleanup, nil
}

// createDispatcher picks paper fills or live Binance execution.
func createDispatcher(stores *allStores, live bool, feeRate float64, logger *log.Logger) (dispatch.OrderDispatcher, error) {
	if !live {
		logger.Printf("Using paper dispatcher (fee rate %.4f)", feeRate)
		return dispatch.NewPaperDispatcher(stores.positions, stores.capital, stores.ledger, feeRate), nil
	}

	apiKey := os.Getenv("BINANCE_API_KEY")
	secretKey := os.Getenv("BINANCE_SECRET_KEY")
	if apiKey == "" || secretKey == "" {
		return nil, fmt.Errorf("--live requires BINANCE_API_KEY and BINANCE_SECRET_KEY")
	}

	logger.Println("Using live Binance dispatcher")
	return dispatch.NewBinanceDispatcher(apiKey, secretKey, stores.positions, stores.capital, stores.ledger, logger), nil
}

// startHTTPServer serves metrics, health and the kill switch endpoint.
func startHTTPServer(addr string, killSwitch *evaluator.StaticKillSwitch, logger *log.Logger) {
	if addr == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/killswitch", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			active, _ := killSwitch.Active(r.Context())
			json.NewEncoder(w).Encode(map[string]bool{"active": active})
		case http.MethodPost:
			var body struct {
				Active bool `json:"active"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			killSwitch.Set(body.Active)
			logger.Printf("Kill switch set to %t", body.Active)
			json.NewEncoder(w).Encode(map[string]bool{"active": body.Active})
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})

	logger.Printf("Starting HTTP server on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		logger.Printf("HTTP server error: %v", err)
	}
}

// parseTradeKeys parses "BTC-coinbase-USD,ETH-coinbase-USD".
func parseTradeKeys(s string) ([]domain.TradeKey, error) {
	var keys []domain.TradeKey
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		fields := strings.Split(part, "-")
		if len(fields) != 3 {
			return nil, fmt.Errorf("key %q must be currency-exchange-pairedAsset", part)
		}
		key := domain.TradeKey{Currency: fields[0], Exchange: fields[1], PairedAsset: fields[2]}
		if err := key.Validate(); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Don't override existing env vars
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
