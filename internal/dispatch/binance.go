package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2"

	"github.com/mrdavey/Futura-os/internal/domain"
	"github.com/mrdavey/Futura-os/internal/idhash"
	"github.com/mrdavey/Futura-os/internal/storage"
)

// BinanceDispatcher executes spot market orders through the Binance REST
// API. The deterministic client order ID makes submissions idempotent on
// the exchange side: a retried request with the same ID is rejected as a
// duplicate instead of filling twice.
type BinanceDispatcher struct {
	client    *binance.Client
	positions storage.PositionStore
	capital   storage.WorkingCapitalStore
	profits   storage.ProfitLedger
	logger    *log.Logger
}

// NewBinanceDispatcher creates a dispatcher over an authenticated client.
func NewBinanceDispatcher(apiKey, secretKey string, positions storage.PositionStore, capital storage.WorkingCapitalStore, profits storage.ProfitLedger, logger *log.Logger) *BinanceDispatcher {
	return &BinanceDispatcher{
		client:    binance.NewClient(apiKey, secretKey),
		positions: positions,
		capital:   capital,
		profits:   profits,
		logger:    logger,
	}
}

var _ OrderDispatcher = (*BinanceDispatcher)(nil)

// symbol maps a trade key to the exchange symbol, e.g. BTC/USD -> BTCUSD.
func symbol(key domain.TradeKey) string {
	return key.Currency + key.PairedAsset
}

// Buy submits a market buy sized from the key's working capital.
func (d *BinanceDispatcher) Buy(ctx context.Context, key domain.TradeKey, obs *domain.Observation, lossThreshold float64) (*Ack, error) {
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

	orderID := idhash.ComputeOrderID(key, domain.ActionBuy, obs.TimestampMs)
	resp, err := d.client.NewCreateOrderService().
		Symbol(symbol(key)).
		Side(binance.SideTypeBuy).
		Type(binance.OrderTypeMarket).
		QuoteOrderQty(strconv.FormatFloat(wc.CurrentWC, 'f', 2, 64)).
		NewClientOrderID(orderID).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance buy %s: %w", symbol(key), err)
	}

	ack, err := ackFromResponse(orderID, resp)
	if err != nil {
		return nil, err
	}
	d.logger.Printf("buy filled %s: amount=%v price=%v fees=%v", key, ack.Amount, ack.Price, ack.Fees)

	pos := &domain.Position{
		HasPosition:    true,
		BuyPrice:       ack.Price,
		BuyScore:       obs.Score,
		BuyTimestampMs: obs.TimestampMs,
		LossThreshold:  lossThreshold,
		Amount:         ack.Amount,
		Fees:           ack.Fees,
	}
	if err := d.positions.Set(ctx, key, pos); err != nil {
		return nil, fmt.Errorf("record position: %w", err)
	}

	wc.CurrentWC = 0
	if err := d.capital.Set(ctx, key, wc); err != nil {
		return nil, fmt.Errorf("update working capital: %w", err)
	}
	return ack, nil
}

// Sell submits a market sell for the whole open position.
func (d *BinanceDispatcher) Sell(ctx context.Context, key domain.TradeKey, obs *domain.Observation, pos *domain.Position) (*Ack, error) {
	if pos == nil || !pos.HasPosition {
		return nil, ErrNoPosition
	}

	orderID := idhash.ComputeOrderID(key, domain.ActionSell, obs.TimestampMs)
	resp, err := d.client.NewCreateOrderService().
		Symbol(symbol(key)).
		Side(binance.SideTypeSell).
		Type(binance.OrderTypeMarket).
		Quantity(strconv.FormatFloat(pos.Amount, 'f', 8, 64)).
		NewClientOrderID(orderID).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance sell %s: %w", symbol(key), err)
	}

	ack, err := ackFromResponse(orderID, resp)
	if err != nil {
		return nil, err
	}
	d.logger.Printf("sell filled %s: amount=%v price=%v fees=%v", key, ack.Amount, ack.Price, ack.Fees)

	proceeds := ack.Amount*ack.Price - ack.Fees
	costBasis := pos.Amount*pos.BuyPrice + pos.Fees
	realized := proceeds - costBasis

	if err := d.positions.Set(ctx, key, &domain.Position{HasPosition: false}); err != nil {
		return nil, fmt.Errorf("clear position: %w", err)
	}

	wc, err := d.capital.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load working capital: %w", err)
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
	return ack, nil
}

// ackFromResponse extracts fill totals from a create-order response.
func ackFromResponse(orderID string, resp *binance.CreateOrderResponse) (*Ack, error) {
	amount, err := strconv.ParseFloat(resp.ExecutedQuantity, 64)
	if err != nil {
		return nil, fmt.Errorf("parse executed quantity %q: %w", resp.ExecutedQuantity, err)
	}
	quote, err := strconv.ParseFloat(resp.CummulativeQuoteQuantity, 64)
	if err != nil {
		return nil, fmt.Errorf("parse quote quantity %q: %w", resp.CummulativeQuoteQuantity, err)
	}
	if amount <= 0 {
		return nil, fmt.Errorf("order %s not filled", orderID)
	}

	var fees float64
	for _, fill := range resp.Fills {
		c, err := strconv.ParseFloat(fill.Commission, 64)
		if err != nil {
			return nil, fmt.Errorf("parse commission %q: %w", fill.Commission, err)
		}
		fees += c
	}

	return &Ack{
		OrderID: orderID,
		Price:   quote / amount,
		Amount:  amount,
		Fees:    fees,
	}, nil
}
