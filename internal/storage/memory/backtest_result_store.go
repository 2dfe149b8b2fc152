package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/mrdavey/Futura-os/internal/domain"
	"github.com/mrdavey/Futura-os/internal/storage"
)

// BacktestResultStore is an in-memory implementation of
// storage.BacktestResultStore.
type BacktestResultStore struct {
	mu   sync.RWMutex
	data map[string]*domain.BacktestResult // keyed by run_id
}

// NewBacktestResultStore creates a new in-memory backtest result store.
func NewBacktestResultStore() *BacktestResultStore {
	return &BacktestResultStore{data: make(map[string]*domain.BacktestResult)}
}

var _ storage.BacktestResultStore = (*BacktestResultStore)(nil)

// Insert adds a new result. Returns ErrDuplicateKey if run_id exists.
func (s *BacktestResultStore) Insert(_ context.Context, r *domain.BacktestResult) error {
	if r == nil || r.RunID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.RunID]; exists {
		return storage.ErrDuplicateKey
	}
	cp := *r
	s.data[r.RunID] = &cp
	return nil
}

// GetByID retrieves a result by run ID. Returns ErrNotFound if not exists.
func (s *BacktestResultStore) GetByID(_ context.Context, runID string) (*domain.BacktestResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.data[runID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

// GetByKey retrieves all results for a trade key, ordered by StartMs ASC.
func (s *BacktestResultStore) GetByKey(_ context.Context, key domain.TradeKey) ([]*domain.BacktestResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.BacktestResult
	for _, r := range s.data {
		if r.Key == key {
			cp := *r
			result = append(result, &cp)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].StartMs != result[j].StartMs {
			return result[i].StartMs < result[j].StartMs
		}
		return result[i].RunID < result[j].RunID
	})
	return result, nil
}
