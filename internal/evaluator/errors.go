package evaluator

import (
	"errors"
	"fmt"
)

// ErrKillSwitchActive aborts a tick before any state is read or written.
var ErrKillSwitchActive = errors.New("kill switch is active")

// ErrorKind classifies evaluation failures so callers know whether the
// tick may simply be retried on the next observation.
type ErrorKind string

// Error kind constants.
const (
	// KindTransient marks repository or network failures. The tick is
	// abandoned with anchor and position untouched; the next observation
	// retries naturally.
	KindTransient ErrorKind = "transient"

	// KindDispatch marks a rejected or unreachable order submission.
	// Anchor and position stay untouched so the same decision is
	// attempted again on the next tick.
	KindDispatch ErrorKind = "dispatch"

	// KindFatal marks failures that retrying cannot fix for this tick,
	// such as an undetermined correlation from missing price data.
	KindFatal ErrorKind = "fatal"

	// KindConfig marks invalid settings or observations, rejected before
	// the decision loop runs.
	KindConfig ErrorKind = "config"
)

// DecisionError wraps a failure of one evaluation tick with enough
// context to reconstruct what was attempted.
type DecisionError struct {
	Kind ErrorKind
	Op   string // operation that failed, e.g. "load settings"
	Key  string // trade key
	Err  error
}

func (e *DecisionError) Error() string {
	return fmt.Sprintf("%s: %s (%s): %v", e.Key, e.Op, e.Kind, e.Err)
}

func (e *DecisionError) Unwrap() error { return e.Err }

// IsRetryable reports whether the failed tick will be retried naturally
// by the next observation without any operator intervention.
func (e *DecisionError) IsRetryable() bool {
	return e.Kind == KindTransient || e.Kind == KindDispatch
}

func decisionErr(kind ErrorKind, op, key string, err error) *DecisionError {
	return &DecisionError{Kind: kind, Op: op, Key: key, Err: err}
}
