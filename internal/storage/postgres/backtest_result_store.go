package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mrdavey/Futura-os/internal/domain"
	"github.com/mrdavey/Futura-os/internal/storage"
)

// BacktestResultStore implements storage.BacktestResultStore using PostgreSQL.
type BacktestResultStore struct {
	pool *Pool
}

// NewBacktestResultStore creates a new BacktestResultStore.
func NewBacktestResultStore(pool *Pool) *BacktestResultStore {
	return &BacktestResultStore{pool: pool}
}

// Compile-time interface check.
var _ storage.BacktestResultStore = (*BacktestResultStore)(nil)

// Insert adds a new result. Returns ErrDuplicateKey if run_id exists.
func (s *BacktestResultStore) Insert(ctx context.Context, r *domain.BacktestResult) error {
	if r == nil {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO backtest_results (
			run_id, currency, exchange, paired_asset,
			start_ms, end_ms, start_price, end_price,
			trades, profit, growth_pct, beta_pct, alpha_pct, duration_ms,
			correlation_threshold, correlation_interval,
			daily_stoploss_threshold, weekly_stoploss_threshold,
			profit_threshold, loss_threshold
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8,
			$9, $10, $11, $12, $13, $14,
			$15, $16,
			$17, $18,
			$19, $20
		)
	`, r.RunID, r.Key.Currency, r.Key.Exchange, r.Key.PairedAsset,
		r.StartMs, r.EndMs, r.StartPrice, r.EndPrice,
		r.Trades, r.Profit, r.GrowthPct, r.BetaPct, r.AlphaPct, r.DurationMs,
		r.Settings.CorrelationThreshold, r.Settings.CorrelationInterval,
		r.Settings.DailyStoplossThreshold, r.Settings.WeeklyStoplossThreshold,
		r.Settings.ProfitThreshold, r.Settings.LossThreshold,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert backtest result: %w", err)
	}
	return nil
}

// GetByID retrieves a result by run ID. Returns ErrNotFound if not exists.
func (s *BacktestResultStore) GetByID(ctx context.Context, runID string) (*domain.BacktestResult, error) {
	row := s.pool.QueryRow(ctx, selectResultColumns+`WHERE run_id = $1`, runID)

	result, err := scanResult(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get backtest result: %w", err)
	}
	return result, nil
}

// GetByKey retrieves all results for a trade key, ordered by StartMs ASC.
func (s *BacktestResultStore) GetByKey(ctx context.Context, key domain.TradeKey) ([]*domain.BacktestResult, error) {
	rows, err := s.pool.Query(ctx, selectResultColumns+`
		WHERE currency = $1 AND exchange = $2 AND paired_asset = $3
		ORDER BY start_ms ASC, run_id ASC
	`, key.Currency, key.Exchange, key.PairedAsset)
	if err != nil {
		return nil, fmt.Errorf("query backtest results: %w", err)
	}
	defer rows.Close()

	var results []*domain.BacktestResult
	for rows.Next() {
		result, err := scanResult(rows)
		if err != nil {
			return nil, fmt.Errorf("scan backtest result: %w", err)
		}
		results = append(results, result)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate backtest results: %w", err)
	}
	return results, nil
}

const selectResultColumns = `
	SELECT run_id, currency, exchange, paired_asset,
	       start_ms, end_ms, start_price, end_price,
	       trades, profit, growth_pct, beta_pct, alpha_pct, duration_ms,
	       correlation_threshold, correlation_interval,
	       daily_stoploss_threshold, weekly_stoploss_threshold,
	       profit_threshold, loss_threshold
	FROM backtest_results
`

func scanResult(row pgx.Row) (*domain.BacktestResult, error) {
	var r domain.BacktestResult
	err := row.Scan(
		&r.RunID, &r.Key.Currency, &r.Key.Exchange, &r.Key.PairedAsset,
		&r.StartMs, &r.EndMs, &r.StartPrice, &r.EndPrice,
		&r.Trades, &r.Profit, &r.GrowthPct, &r.BetaPct, &r.AlphaPct, &r.DurationMs,
		&r.Settings.CorrelationThreshold, &r.Settings.CorrelationInterval,
		&r.Settings.DailyStoplossThreshold, &r.Settings.WeeklyStoplossThreshold,
		&r.Settings.ProfitThreshold, &r.Settings.LossThreshold,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}
