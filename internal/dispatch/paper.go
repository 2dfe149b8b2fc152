package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mrdavey/Futura-os/internal/domain"
	"github.com/mrdavey/Futura-os/internal/idhash"
	"github.com/mrdavey/Futura-os/internal/storage"
)

// DefaultFeeRate approximates a spot taker fee.
const DefaultFeeRate = 0.005

// PaperDispatcher simulates execution against the position, capital and
// profit repositories. Backtests and dry runs use it in place of a real
// exchange; fills are immediate at the observation price.
type PaperDispatcher struct {
	positions storage.PositionStore
	capital   storage.WorkingCapitalStore
	profits   storage.ProfitLedger
	feeRate   float64
}

// NewPaperDispatcher creates a paper dispatcher over the given stores.
// feeRate <= 0 selects DefaultFeeRate.
func NewPaperDispatcher(positions storage.PositionStore, capital storage.WorkingCapitalStore, profits storage.ProfitLedger, feeRate float64) *PaperDispatcher {
	if feeRate <= 0 {
		feeRate = DefaultFeeRate
	}
	return &PaperDispatcher{
		positions: positions,
		capital:   capital,
		profits:   profits,
		feeRate:   feeRate,
	}
}

var _ OrderDispatcher = (*PaperDispatcher)(nil)

// Buy spends the key's current working capital at the observation price
// and records the new position.
func (d *PaperDispatcher) Buy(ctx context.Context, key domain.TradeKey, obs *domain.Observation, lossThreshold float64) (*Ack, error) {
	existing, err := d.positions.Get(ctx, key)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("load position: %w", err)
	}
	if existing != nil && existing.HasPosition {
		return nil, ErrOpenOrderExists
	}

	wc, err := d.capital.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load working capital: %w", err)
	}
	if wc.CurrentWC <= 0 {
		return nil, fmt.Errorf("no working capital left for %s", key)
	}
	if obs.Price <= 0 {
		return nil, fmt.Errorf("cannot buy at price %v", obs.Price)
	}

	spend := wc.CurrentWC
	fees := spend * d.feeRate
	amount := (spend - fees) / obs.Price

	pos := &domain.Position{
		HasPosition:    true,
		BuyPrice:       obs.Price,
		BuyScore:       obs.Score,
		BuyTimestampMs: obs.TimestampMs,
		LossThreshold:  lossThreshold,
		Amount:         amount,
		Fees:           fees,
	}
	if err := d.positions.Set(ctx, key, pos); err != nil {
		return nil, fmt.Errorf("record position: %w", err)
	}

	wc.CurrentWC = 0
	if err := d.capital.Set(ctx, key, wc); err != nil {
		return nil, fmt.Errorf("update working capital: %w", err)
	}

	return &Ack{
		OrderID: idhash.ComputeOrderID(key, domain.ActionBuy, obs.TimestampMs),
		Price:   obs.Price,
		Amount:  amount,
		Fees:    fees,
	}, nil
}

// Sell closes the position at the observation price, returns the
// proceeds to working capital, and records realized P&L in the day and
// week ledgers.
func (d *PaperDispatcher) Sell(ctx context.Context, key domain.TradeKey, obs *domain.Observation, pos *domain.Position) (*Ack, error) {
	if pos == nil || !pos.HasPosition {
		return nil, ErrNoPosition
	}

	gross := pos.Amount * obs.Price
	fees := gross * d.feeRate
	proceeds := gross - fees

	wc, err := d.capital.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load working capital: %w", err)
	}

	costBasis := pos.Amount*pos.BuyPrice + pos.Fees
	realized := proceeds - costBasis

	cleared := &domain.Position{HasPosition: false}
	if err := d.positions.Set(ctx, key, cleared); err != nil {
		return nil, fmt.Errorf("clear position: %w", err)
	}

	wc.CurrentWC += proceeds
	if err := d.capital.Set(ctx, key, wc); err != nil {
		return nil, fmt.Errorf("update working capital: %w", err)
	}

	at := time.UnixMilli(obs.TimestampMs)
	for _, rec := range []*domain.ProfitRecord{
		{Key: key, Range: domain.ProfitRangeDay, RangeID: domain.DayKey(at), Gross: realized, TimestampMs: obs.TimestampMs},
		{Key: key, Range: domain.ProfitRangeWeek, RangeID: domain.WeekKey(at), Gross: realized, TimestampMs: obs.TimestampMs},
	} {
		if err := d.profits.Record(ctx, rec); err != nil {
			return nil, fmt.Errorf("record profit: %w", err)
		}
	}

	return &Ack{
		OrderID: idhash.ComputeOrderID(key, domain.ActionSell, obs.TimestampMs),
		Price:   obs.Price,
		Amount:  pos.Amount,
		Fees:    fees,
	}, nil
}
