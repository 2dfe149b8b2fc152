// Package memory provides in-memory storage implementations, used by
// unit tests and by backtest runs that must not touch real databases.
package memory

import (
	"context"
	"sync"

	"github.com/mrdavey/Futura-os/internal/domain"
	"github.com/mrdavey/Futura-os/internal/storage"
)

// SettingsStore is an in-memory implementation of storage.SettingsStore.
type SettingsStore struct {
	mu   sync.RWMutex
	data map[domain.TradeKey]*domain.TradeSettings
}

// NewSettingsStore creates a new in-memory settings store.
func NewSettingsStore() *SettingsStore {
	return &SettingsStore{data: make(map[domain.TradeKey]*domain.TradeSettings)}
}

var _ storage.SettingsStore = (*SettingsStore)(nil)

// Get retrieves the settings for a key. Returns ErrNotFound if none exist.
func (s *SettingsStore) Get(_ context.Context, key domain.TradeKey) (*domain.TradeSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.data[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *v
	return &cp, nil
}

// Set stores the settings for a key after validating them.
func (s *SettingsStore) Set(_ context.Context, key domain.TradeKey, v *domain.TradeSettings) error {
	if v == nil {
		return storage.ErrInvalidInput
	}
	if err := v.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *v
	s.data[key] = &cp
	return nil
}

// AnchorStore is an in-memory implementation of storage.AnchorStore.
type AnchorStore struct {
	mu   sync.RWMutex
	data map[domain.TradeKey]*domain.Anchor
}

// NewAnchorStore creates a new in-memory anchor store.
func NewAnchorStore() *AnchorStore {
	return &AnchorStore{data: make(map[domain.TradeKey]*domain.Anchor)}
}

var _ storage.AnchorStore = (*AnchorStore)(nil)

// Get retrieves the anchor for a key. Returns ErrNotFound when no anchor
// exists yet, which triggers the bootstrap rule upstream.
func (s *AnchorStore) Get(_ context.Context, key domain.TradeKey) (*domain.Anchor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.data[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *v
	return &cp, nil
}

// Set stores the anchor for a key.
func (s *AnchorStore) Set(_ context.Context, key domain.TradeKey, v *domain.Anchor) error {
	if v == nil {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *v
	s.data[key] = &cp
	return nil
}

// PositionStore is an in-memory implementation of storage.PositionStore.
type PositionStore struct {
	mu   sync.RWMutex
	data map[domain.TradeKey]*domain.Position
}

// NewPositionStore creates a new in-memory position store.
func NewPositionStore() *PositionStore {
	return &PositionStore{data: make(map[domain.TradeKey]*domain.Position)}
}

var _ storage.PositionStore = (*PositionStore)(nil)

// Get retrieves the position for a key. Returns ErrNotFound if the key
// never held one.
func (s *PositionStore) Get(_ context.Context, key domain.TradeKey) (*domain.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.data[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *v
	return &cp, nil
}

// Set stores the position for a key.
func (s *PositionStore) Set(_ context.Context, key domain.TradeKey, v *domain.Position) error {
	if v == nil {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *v
	s.data[key] = &cp
	return nil
}

// WorkingCapitalStore is an in-memory implementation of
// storage.WorkingCapitalStore.
type WorkingCapitalStore struct {
	mu   sync.RWMutex
	data map[domain.TradeKey]*domain.WorkingCapital
}

// NewWorkingCapitalStore creates a new in-memory working capital store.
func NewWorkingCapitalStore() *WorkingCapitalStore {
	return &WorkingCapitalStore{data: make(map[domain.TradeKey]*domain.WorkingCapital)}
}

var _ storage.WorkingCapitalStore = (*WorkingCapitalStore)(nil)

// Get retrieves the working capital for a key.
func (s *WorkingCapitalStore) Get(_ context.Context, key domain.TradeKey) (*domain.WorkingCapital, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.data[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *v
	return &cp, nil
}

// Set stores the working capital for a key.
func (s *WorkingCapitalStore) Set(_ context.Context, key domain.TradeKey, v *domain.WorkingCapital) error {
	if v == nil {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *v
	s.data[key] = &cp
	return nil
}
