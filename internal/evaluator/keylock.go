package evaluator

import (
	"sync"

	"github.com/mrdavey/Futura-os/internal/domain"
)

// keyLocks serializes evaluation per trade key. Concurrent ticks for the
// same key would race on the anchor/position read-modify-write and could
// double-buy or lose a stop-loss trigger; ticks for different keys run
// in parallel.
type keyLocks struct {
	mu    sync.Mutex
	locks map[domain.TradeKey]*sync.Mutex
}

func newKeyLocks() *keyLocks {
	return &keyLocks{locks: make(map[domain.TradeKey]*sync.Mutex)}
}

// acquire locks the key and returns its release function.
func (k *keyLocks) acquire(key domain.TradeKey) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &sync.Mutex{}
		k.locks[key] = l
	}
	k.mu.Unlock()

	l.Lock()
	return l.Unlock
}
