package evaluator

import (
	"context"
	"sync/atomic"
)

// KillSwitch halts all trading activity when active. Checked before any
// state is read on every tick; a check failure counts as active.
type KillSwitch interface {
	Active(ctx context.Context) (bool, error)
}

// StaticKillSwitch is a process-local kill switch flipped by an operator
// endpoint or signal handler.
type StaticKillSwitch struct {
	active atomic.Bool
}

// NewStaticKillSwitch creates a kill switch in the given state.
func NewStaticKillSwitch(active bool) *StaticKillSwitch {
	s := &StaticKillSwitch{}
	s.active.Store(active)
	return s
}

var _ KillSwitch = (*StaticKillSwitch)(nil)

// Active reports the current state.
func (s *StaticKillSwitch) Active(_ context.Context) (bool, error) {
	return s.active.Load(), nil
}

// Set flips the switch.
func (s *StaticKillSwitch) Set(active bool) {
	s.active.Store(active)
}
