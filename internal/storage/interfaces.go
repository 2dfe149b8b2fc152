package storage

import (
	"context"

	"github.com/mrdavey/Futura-os/internal/domain"
)

// SettingsStore provides access to per-key trade settings.
type SettingsStore interface {
	// Get retrieves the settings for a key. Returns ErrNotFound if none exist.
	Get(ctx context.Context, key domain.TradeKey) (*domain.TradeSettings, error)

	// Set stores (or replaces) the settings for a key. Implementations
	// must reject settings that fail validation with ErrInvalidInput.
	Set(ctx context.Context, key domain.TradeKey, s *domain.TradeSettings) error
}

// AnchorStore provides access to the last reference observation per key.
type AnchorStore interface {
	// Get retrieves the anchor for a key. Returns ErrNotFound if no
	// anchor exists yet (the bootstrap case).
	Get(ctx context.Context, key domain.TradeKey) (*domain.Anchor, error)

	// Set stores (or replaces) the anchor for a key.
	Set(ctx context.Context, key domain.TradeKey, a *domain.Anchor) error
}

// PositionStore provides access to the open position per key.
type PositionStore interface {
	// Get retrieves the position for a key. Returns ErrNotFound if the
	// key never held a position.
	Get(ctx context.Context, key domain.TradeKey) (*domain.Position, error)

	// Set stores (or replaces) the position for a key.
	Set(ctx context.Context, key domain.TradeKey, p *domain.Position) error
}

// WorkingCapitalStore provides access to the capital pool per key.
type WorkingCapitalStore interface {
	// Get retrieves the working capital for a key. Returns ErrNotFound
	// if the key has no capital allocated.
	Get(ctx context.Context, key domain.TradeKey) (*domain.WorkingCapital, error)

	// Set stores (or replaces) the working capital for a key.
	Set(ctx context.Context, key domain.TradeKey, wc *domain.WorkingCapital) error
}

// ProfitLedger provides access to realized P&L keyed by calendar day or
// ISO week.
type ProfitLedger interface {
	// Sum returns the realized gross P&L for the given range. A range
	// with no entries sums to 0 without error.
	Sum(ctx context.Context, key domain.TradeKey, kind domain.ProfitRange, rangeID string) (float64, error)

	// Record appends one realized P&L entry.
	Record(ctx context.Context, rec *domain.ProfitRecord) error
}

// SentimentHistoryStore provides access to recorded sentiment scores,
// used to assemble live correlation windows.
type SentimentHistoryStore interface {
	// Insert appends one sentiment point.
	Insert(ctx context.Context, p *domain.SentimentPoint) error

	// Latest retrieves up to limit points for a currency at or before
	// beforeMs, ordered by timestamp ASC.
	Latest(ctx context.Context, currency string, limit int, beforeMs int64) ([]*domain.SentimentPoint, error)
}

// PriceHistoryStore provides access to recorded price snapshots, matched
// to sentiment ticks when computing live correlation.
type PriceHistoryStore interface {
	// Insert appends one price snapshot.
	Insert(ctx context.Context, s *domain.PriceSnapshot) error

	// At retrieves the snapshots matching the given timestamps, in the
	// same order. A timestamp with no snapshot yields a nil entry.
	At(ctx context.Context, currency string, timestamps []int64) ([]*domain.PriceSnapshot, error)
}

// BacktestResultStore provides access to recorded backtest runs.
type BacktestResultStore interface {
	// Insert adds a new result. Returns ErrDuplicateKey if run_id exists.
	Insert(ctx context.Context, r *domain.BacktestResult) error

	// GetByID retrieves a result by run ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, runID string) (*domain.BacktestResult, error)

	// GetByKey retrieves all results for a trade key, ordered by StartMs ASC.
	GetByKey(ctx context.Context, key domain.TradeKey) ([]*domain.BacktestResult, error)
}
