package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/mrdavey/Futura-os/internal/domain"
	"github.com/mrdavey/Futura-os/internal/storage"
)

// SentimentHistoryStore is an in-memory implementation of
// storage.SentimentHistoryStore.
type SentimentHistoryStore struct {
	mu   sync.RWMutex
	data map[string][]*domain.SentimentPoint // keyed by currency
}

// NewSentimentHistoryStore creates a new in-memory sentiment history store.
func NewSentimentHistoryStore() *SentimentHistoryStore {
	return &SentimentHistoryStore{data: make(map[string][]*domain.SentimentPoint)}
}

var _ storage.SentimentHistoryStore = (*SentimentHistoryStore)(nil)

// Insert appends one sentiment point.
func (s *SentimentHistoryStore) Insert(_ context.Context, p *domain.SentimentPoint) error {
	if p == nil || p.Currency == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *p
	s.data[p.Currency] = append(s.data[p.Currency], &cp)
	return nil
}

// Latest retrieves up to limit points at or before beforeMs, ordered by
// timestamp ASC.
func (s *SentimentHistoryStore) Latest(_ context.Context, currency string, limit int, beforeMs int64) ([]*domain.SentimentPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.SentimentPoint
	for _, p := range s.data[currency] {
		if p.TimestampMs <= beforeMs {
			cp := *p
			result = append(result, &cp)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].TimestampMs < result[j].TimestampMs
	})

	if limit > 0 && len(result) > limit {
		result = result[len(result)-limit:]
	}
	return result, nil
}

// PriceHistoryStore is an in-memory implementation of
// storage.PriceHistoryStore.
type PriceHistoryStore struct {
	mu   sync.RWMutex
	data map[string]map[int64]*domain.PriceSnapshot // currency -> timestamp -> snapshot
}

// NewPriceHistoryStore creates a new in-memory price history store.
func NewPriceHistoryStore() *PriceHistoryStore {
	return &PriceHistoryStore{data: make(map[string]map[int64]*domain.PriceSnapshot)}
}

var _ storage.PriceHistoryStore = (*PriceHistoryStore)(nil)

// Insert appends one price snapshot.
func (s *PriceHistoryStore) Insert(_ context.Context, snap *domain.PriceSnapshot) error {
	if snap == nil || snap.Currency == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data[snap.Currency] == nil {
		s.data[snap.Currency] = make(map[int64]*domain.PriceSnapshot)
	}
	cp := *snap
	cp.Quotes = make(map[string]float64, len(snap.Quotes))
	for k, v := range snap.Quotes {
		cp.Quotes[k] = v
	}
	s.data[snap.Currency][snap.TimestampMs] = &cp
	return nil
}

// At retrieves the snapshots matching the given timestamps, in the same
// order. Missing timestamps yield nil entries.
func (s *PriceHistoryStore) At(_ context.Context, currency string, timestamps []int64) ([]*domain.PriceSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.PriceSnapshot, len(timestamps))
	byTS := s.data[currency]
	for i, ts := range timestamps {
		if snap, ok := byTS[ts]; ok {
			cp := *snap
			result[i] = &cp
		}
	}
	return result, nil
}
