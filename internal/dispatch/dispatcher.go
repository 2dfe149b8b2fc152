// Package dispatch submits buy and sell orders decided by the engine.
// Dispatchers confirm synchronously: position creation and clearing
// happen only on a returned ack, never on a pending order.
package dispatch

import (
	"context"
	"errors"

	"github.com/mrdavey/Futura-os/internal/domain"
)

// Dispatch errors.
var (
	// ErrOpenOrderExists is returned when a buy arrives for a key that
	// already holds a position. The repository, not the decision engine,
	// enforces at most one open order per key.
	ErrOpenOrderExists = errors.New("open order already exists for key")

	// ErrNoPosition is returned when a sell arrives for a key without an
	// open position.
	ErrNoPosition = errors.New("no open position for key")
)

// Ack confirms an executed order.
type Ack struct {
	OrderID string  // deterministic client order ID
	Price   float64 // execution price
	Amount  float64 // units of the currency filled
	Fees    float64 // execution fees in the paired asset
}

// OrderDispatcher submits orders to an execution venue. Implementations
// must be idempotent per client order ID: retrying a failed call with the
// same observation must not execute twice.
type OrderDispatcher interface {
	// Buy opens a position sized from the key's working capital.
	// lossThreshold is frozen into the created position.
	Buy(ctx context.Context, key domain.TradeKey, obs *domain.Observation, lossThreshold float64) (*Ack, error)

	// Sell closes the open position.
	Sell(ctx context.Context, key domain.TradeKey, obs *domain.Observation, pos *domain.Position) (*Ack, error)
}
