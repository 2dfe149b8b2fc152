// Package replay drives the decision loop over recorded observations.
// A replay is fully reproducible: all state lives in fresh in-memory
// stores, orders go through the paper dispatcher, and each observation
// carries its own pre-sliced correlation window, so no live lookup ever
// influences the outcome.
package replay

import (
	"sort"

	"github.com/mrdavey/Futura-os/internal/domain"
)

// Scenario is one replayable observation sequence for a single trade key.
type Scenario struct {
	Key      domain.TradeKey
	Settings domain.TradeSettings

	// DefaultWC seeds the working capital pool. Zero defaults to 1000.
	DefaultWC float64

	// Observations must be for Key. The runner sorts them
	// chronologically before replaying.
	Observations []*domain.Observation
}

// SortObservations orders observations by (timestamp ASC, key ASC).
// The key tie-breaker keeps multi-key streams deterministic even when
// two keys tick in the same millisecond.
func SortObservations(obs []*domain.Observation) {
	sort.Slice(obs, func(i, j int) bool {
		if obs[i].TimestampMs != obs[j].TimestampMs {
			return obs[i].TimestampMs < obs[j].TimestampMs
		}
		return obs[i].Key.String() < obs[j].Key.String()
	})
}

// BuildWindows attaches to each observation the correlation lookback
// window ending at that observation: the most recent `interval` ticks
// including the current one. Early ticks get whatever shorter prefix
// exists. Already-attached windows are left alone so hand-built
// scenarios replay verbatim.
func BuildWindows(obs []*domain.Observation, interval int) {
	if interval <= 0 {
		return
	}
	for i, o := range obs {
		if o.CorrelationSeries != nil {
			continue
		}
		start := i + 1 - interval
		if start < 0 {
			start = 0
		}
		window := make([]domain.CorrelationSample, 0, i+1-start)
		for _, prev := range obs[start : i+1] {
			window = append(window, domain.CorrelationSample{
				TimestampMs: prev.TimestampMs,
				Score:       prev.Score,
				Price:       prev.Price,
			})
		}
		o.CorrelationSeries = window
	}
}
