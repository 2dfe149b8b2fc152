package postgres

import (
	"context"
	"fmt"

	"github.com/mrdavey/Futura-os/internal/domain"
	"github.com/mrdavey/Futura-os/internal/storage"
)

// SettingsStore implements storage.SettingsStore using PostgreSQL.
type SettingsStore struct {
	pool *Pool
}

// NewSettingsStore creates a new SettingsStore.
func NewSettingsStore(pool *Pool) *SettingsStore {
	return &SettingsStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SettingsStore = (*SettingsStore)(nil)

// Get retrieves the settings for a key. Returns ErrNotFound if none exist.
func (s *SettingsStore) Get(ctx context.Context, key domain.TradeKey) (*domain.TradeSettings, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT correlation_threshold, correlation_interval,
		       daily_stoploss_threshold, weekly_stoploss_threshold,
		       profit_threshold, loss_threshold
		FROM trade_settings
		WHERE currency = $1 AND exchange = $2 AND paired_asset = $3
	`, key.Currency, key.Exchange, key.PairedAsset)

	var settings domain.TradeSettings
	err := row.Scan(
		&settings.CorrelationThreshold, &settings.CorrelationInterval,
		&settings.DailyStoplossThreshold, &settings.WeeklyStoplossThreshold,
		&settings.ProfitThreshold, &settings.LossThreshold,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get trade settings: %w", err)
	}
	return &settings, nil
}

// Set stores (or replaces) the settings for a key.
func (s *SettingsStore) Set(ctx context.Context, key domain.TradeKey, settings *domain.TradeSettings) error {
	if settings == nil {
		return storage.ErrInvalidInput
	}
	if err := settings.Validate(); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO trade_settings (
			currency, exchange, paired_asset,
			correlation_threshold, correlation_interval,
			daily_stoploss_threshold, weekly_stoploss_threshold,
			profit_threshold, loss_threshold, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		ON CONFLICT (currency, exchange, paired_asset) DO UPDATE
		SET correlation_threshold = EXCLUDED.correlation_threshold,
		    correlation_interval = EXCLUDED.correlation_interval,
		    daily_stoploss_threshold = EXCLUDED.daily_stoploss_threshold,
		    weekly_stoploss_threshold = EXCLUDED.weekly_stoploss_threshold,
		    profit_threshold = EXCLUDED.profit_threshold,
		    loss_threshold = EXCLUDED.loss_threshold,
		    updated_at = NOW()
	`, key.Currency, key.Exchange, key.PairedAsset,
		settings.CorrelationThreshold, settings.CorrelationInterval,
		settings.DailyStoplossThreshold, settings.WeeklyStoplossThreshold,
		settings.ProfitThreshold, settings.LossThreshold,
	)
	if err != nil {
		return fmt.Errorf("set trade settings: %w", err)
	}
	return nil
}

// AnchorStore implements storage.AnchorStore using PostgreSQL.
type AnchorStore struct {
	pool *Pool
}

// NewAnchorStore creates a new AnchorStore.
func NewAnchorStore(pool *Pool) *AnchorStore {
	return &AnchorStore{pool: pool}
}

// Compile-time interface check.
var _ storage.AnchorStore = (*AnchorStore)(nil)

// Get retrieves the anchor for a key. Returns ErrNotFound before the
// first observation bootstraps it.
func (s *AnchorStore) Get(ctx context.Context, key domain.TradeKey) (*domain.Anchor, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT price, score, timestamp_ms
		FROM anchors
		WHERE currency = $1 AND exchange = $2 AND paired_asset = $3
	`, key.Currency, key.Exchange, key.PairedAsset)

	var anchor domain.Anchor
	if err := row.Scan(&anchor.Price, &anchor.Score, &anchor.TimestampMs); err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get anchor: %w", err)
	}
	return &anchor, nil
}

// Set stores (or replaces) the anchor for a key.
func (s *AnchorStore) Set(ctx context.Context, key domain.TradeKey, anchor *domain.Anchor) error {
	if anchor == nil {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO anchors (currency, exchange, paired_asset, price, score, timestamp_ms, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (currency, exchange, paired_asset) DO UPDATE
		SET price = EXCLUDED.price,
		    score = EXCLUDED.score,
		    timestamp_ms = EXCLUDED.timestamp_ms,
		    updated_at = NOW()
	`, key.Currency, key.Exchange, key.PairedAsset, anchor.Price, anchor.Score, anchor.TimestampMs)
	if err != nil {
		return fmt.Errorf("set anchor: %w", err)
	}
	return nil
}

// PositionStore implements storage.PositionStore using PostgreSQL.
type PositionStore struct {
	pool *Pool
}

// NewPositionStore creates a new PositionStore.
func NewPositionStore(pool *Pool) *PositionStore {
	return &PositionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PositionStore = (*PositionStore)(nil)

// Get retrieves the position for a key. Returns ErrNotFound if the key
// never held one.
func (s *PositionStore) Get(ctx context.Context, key domain.TradeKey) (*domain.Position, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT has_position, buy_price, buy_score, buy_timestamp_ms,
		       loss_threshold, amount, fees
		FROM positions
		WHERE currency = $1 AND exchange = $2 AND paired_asset = $3
	`, key.Currency, key.Exchange, key.PairedAsset)

	var pos domain.Position
	err := row.Scan(
		&pos.HasPosition, &pos.BuyPrice, &pos.BuyScore, &pos.BuyTimestampMs,
		&pos.LossThreshold, &pos.Amount, &pos.Fees,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get position: %w", err)
	}
	return &pos, nil
}

// Set stores (or replaces) the position for a key.
func (s *PositionStore) Set(ctx context.Context, key domain.TradeKey, pos *domain.Position) error {
	if pos == nil {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO positions (
			currency, exchange, paired_asset,
			has_position, buy_price, buy_score, buy_timestamp_ms,
			loss_threshold, amount, fees, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
		ON CONFLICT (currency, exchange, paired_asset) DO UPDATE
		SET has_position = EXCLUDED.has_position,
		    buy_price = EXCLUDED.buy_price,
		    buy_score = EXCLUDED.buy_score,
		    buy_timestamp_ms = EXCLUDED.buy_timestamp_ms,
		    loss_threshold = EXCLUDED.loss_threshold,
		    amount = EXCLUDED.amount,
		    fees = EXCLUDED.fees,
		    updated_at = NOW()
	`, key.Currency, key.Exchange, key.PairedAsset,
		pos.HasPosition, pos.BuyPrice, pos.BuyScore, pos.BuyTimestampMs,
		pos.LossThreshold, pos.Amount, pos.Fees,
	)
	if err != nil {
		return fmt.Errorf("set position: %w", err)
	}
	return nil
}

// WorkingCapitalStore implements storage.WorkingCapitalStore using PostgreSQL.
type WorkingCapitalStore struct {
	pool *Pool
}

// NewWorkingCapitalStore creates a new WorkingCapitalStore.
func NewWorkingCapitalStore(pool *Pool) *WorkingCapitalStore {
	return &WorkingCapitalStore{pool: pool}
}

// Compile-time interface check.
var _ storage.WorkingCapitalStore = (*WorkingCapitalStore)(nil)

// Get retrieves the working capital for a key. Returns ErrNotFound if
// the key has no capital allocated.
func (s *WorkingCapitalStore) Get(ctx context.Context, key domain.TradeKey) (*domain.WorkingCapital, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT current_wc, default_wc
		FROM working_capital
		WHERE currency = $1 AND exchange = $2 AND paired_asset = $3
	`, key.Currency, key.Exchange, key.PairedAsset)

	var wc domain.WorkingCapital
	if err := row.Scan(&wc.CurrentWC, &wc.DefaultWC); err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get working capital: %w", err)
	}
	return &wc, nil
}

// Set stores (or replaces) the working capital for a key.
func (s *WorkingCapitalStore) Set(ctx context.Context, key domain.TradeKey, wc *domain.WorkingCapital) error {
	if wc == nil {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO working_capital (currency, exchange, paired_asset, current_wc, default_wc, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (currency, exchange, paired_asset) DO UPDATE
		SET current_wc = EXCLUDED.current_wc,
		    default_wc = EXCLUDED.default_wc,
		    updated_at = NOW()
	`, key.Currency, key.Exchange, key.PairedAsset, wc.CurrentWC, wc.DefaultWC)
	if err != nil {
		return fmt.Errorf("set working capital: %w", err)
	}
	return nil
}
