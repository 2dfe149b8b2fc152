// Package lookup resolves historical prices for correlation windows.
package lookup

import (
	"errors"
	"fmt"

	"github.com/mrdavey/Futura-os/internal/domain"
)

// ErrNoPriceForTick is returned when no price source at all covers a
// required historical tick. Correlation is then undetermined for the
// whole window; it must never be reported as zero instead.
var ErrNoPriceForTick = errors.New("no price available for tick")

// PriceFor resolves one tick's price from a snapshot, falling back
// through exchange-specific price, cross-exchange average, and the
// third-party market price, in that order.
func PriceFor(snap *domain.PriceSnapshot, exchange string) (float64, error) {
	if snap == nil {
		return 0, ErrNoPriceForTick
	}
	if p, ok := snap.Quotes[exchange]; ok {
		return p, nil
	}
	if p, ok := snap.Quotes[domain.PriceSourceAverage]; ok {
		return p, nil
	}
	if p, ok := snap.Quotes[domain.PriceSourceMarket]; ok {
		return p, nil
	}
	return 0, fmt.Errorf("%w: ts=%d exchange=%s", ErrNoPriceForTick, snap.TimestampMs, exchange)
}

// PricesFor resolves a full window of snapshots to a price series. The
// snapshots must be positionally matched to the sentiment ticks; a nil
// snapshot or an exhausted fallback chain fails the whole window.
func PricesFor(snaps []*domain.PriceSnapshot, exchange string) ([]float64, error) {
	prices := make([]float64, len(snaps))
	for i, snap := range snaps {
		p, err := PriceFor(snap, exchange)
		if err != nil {
			return nil, fmt.Errorf("tick %d: %w", i, err)
		}
		prices[i] = p
	}
	return prices, nil
}
