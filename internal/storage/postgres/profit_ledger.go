package postgres

import (
	"context"
	"fmt"

	"github.com/mrdavey/Futura-os/internal/domain"
	"github.com/mrdavey/Futura-os/internal/storage"
)

// ProfitLedger implements storage.ProfitLedger using PostgreSQL.
type ProfitLedger struct {
	pool *Pool
}

// NewProfitLedger creates a new ProfitLedger.
func NewProfitLedger(pool *Pool) *ProfitLedger {
	return &ProfitLedger{pool: pool}
}

// Compile-time interface check.
var _ storage.ProfitLedger = (*ProfitLedger)(nil)

// Sum returns the realized gross P&L for the given range. A range with
// no entries sums to 0 without error.
func (l *ProfitLedger) Sum(ctx context.Context, key domain.TradeKey, kind domain.ProfitRange, rangeID string) (float64, error) {
	row := l.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(gross), 0)
		FROM profit_ledger
		WHERE currency = $1 AND exchange = $2 AND paired_asset = $3
		  AND range_kind = $4 AND range_id = $5
	`, key.Currency, key.Exchange, key.PairedAsset, string(kind), rangeID)

	var sum float64
	if err := row.Scan(&sum); err != nil {
		return 0, fmt.Errorf("sum profit ledger: %w", err)
	}
	return sum, nil
}

// Record appends one realized P&L entry.
func (l *ProfitLedger) Record(ctx context.Context, rec *domain.ProfitRecord) error {
	if rec == nil {
		return storage.ErrInvalidInput
	}
	if err := rec.Key.Validate(); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
	}

	_, err := l.pool.Exec(ctx, `
		INSERT INTO profit_ledger (
			currency, exchange, paired_asset, range_kind, range_id, gross, timestamp_ms
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, rec.Key.Currency, rec.Key.Exchange, rec.Key.PairedAsset,
		string(rec.Range), rec.RangeID, rec.Gross, rec.TimestampMs,
	)
	if err != nil {
		return fmt.Errorf("record profit: %w", err)
	}
	return nil
}
