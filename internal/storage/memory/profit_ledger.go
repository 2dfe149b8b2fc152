package memory

import (
	"context"
	"sync"

	"github.com/mrdavey/Futura-os/internal/domain"
	"github.com/mrdavey/Futura-os/internal/storage"
)

type ledgerKey struct {
	trade   domain.TradeKey
	kind    domain.ProfitRange
	rangeID string
}

// ProfitLedger is an in-memory implementation of storage.ProfitLedger.
type ProfitLedger struct {
	mu   sync.RWMutex
	data map[ledgerKey][]*domain.ProfitRecord

	// failNext forces the next Sum call to fail; tests use it to verify
	// the caller fails closed on ledger errors.
	failNext error
}

// NewProfitLedger creates a new in-memory profit ledger.
func NewProfitLedger() *ProfitLedger {
	return &ProfitLedger{data: make(map[ledgerKey][]*domain.ProfitRecord)}
}

var _ storage.ProfitLedger = (*ProfitLedger)(nil)

// Sum returns the realized gross P&L for the given range. A range with
// no entries sums to 0.
func (l *ProfitLedger) Sum(_ context.Context, key domain.TradeKey, kind domain.ProfitRange, rangeID string) (float64, error) {
	l.mu.Lock()
	if err := l.failNext; err != nil {
		l.failNext = nil
		l.mu.Unlock()
		return 0, err
	}
	l.mu.Unlock()

	l.mu.RLock()
	defer l.mu.RUnlock()

	var total float64
	for _, rec := range l.data[ledgerKey{key, kind, rangeID}] {
		total += rec.Gross
	}
	return total, nil
}

// Record appends one realized P&L entry.
func (l *ProfitLedger) Record(_ context.Context, rec *domain.ProfitRecord) error {
	if rec == nil || rec.RangeID == "" {
		return storage.ErrInvalidInput
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	cp := *rec
	k := ledgerKey{rec.Key, rec.Range, rec.RangeID}
	l.data[k] = append(l.data[k], &cp)
	return nil
}

// FailNextSum makes the next Sum call return err.
func (l *ProfitLedger) FailNextSum(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failNext = err
}
