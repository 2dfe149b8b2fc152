package replay

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mrdavey/Futura-os/internal/dispatch"
	"github.com/mrdavey/Futura-os/internal/domain"
	"github.com/mrdavey/Futura-os/internal/engine"
	"github.com/mrdavey/Futura-os/internal/evaluator"
	"github.com/mrdavey/Futura-os/internal/storage/memory"
)

const defaultWorkingCapital = 1000

// Step records the outcome of one replayed observation.
type Step struct {
	TimestampMs int64
	Branch      engine.Branch
	Action      domain.Action
	Anchor      domain.Anchor
}

// Report is the full outcome of one replay run: the recorded result row
// plus the per-tick step sequence the verifier diffs.
type Report struct {
	Result *domain.BacktestResult
	Steps  []Step

	// FinalCapital is the working capital pool at the end of the run.
	FinalCapital domain.WorkingCapital
}

// Runner replays scenarios through the evaluation loop.
type Runner struct {
	// RunID overrides the generated run identifier. Empty generates a
	// fresh UUID per run.
	RunID string

	// FeeRate is the paper execution fee. Zero means no fees.
	FeeRate float64
}

// Run replays the scenario from a clean slate and reports the outcome.
// Identical scenarios always produce identical step sequences and
// results (up to RunID and DurationMs).
func (r *Runner) Run(ctx context.Context, sc *Scenario) (*Report, error) {
	if len(sc.Observations) == 0 {
		return nil, ErrEmptyScenario
	}
	if err := sc.Settings.Validate(); err != nil {
		return nil, fmt.Errorf("scenario settings: %w", err)
	}

	defaultWC := sc.DefaultWC
	if defaultWC == 0 {
		defaultWC = defaultWorkingCapital
	}

	SortObservations(sc.Observations)
	BuildWindows(sc.Observations, sc.Settings.CorrelationInterval)

	settingsStore := memory.NewSettingsStore()
	anchorStore := memory.NewAnchorStore()
	positionStore := memory.NewPositionStore()
	capitalStore := memory.NewWorkingCapitalStore()
	ledger := memory.NewProfitLedger()

	if err := settingsStore.Set(ctx, sc.Key, &sc.Settings); err != nil {
		return nil, fmt.Errorf("seed settings: %w", err)
	}
	wc := &domain.WorkingCapital{CurrentWC: defaultWC, DefaultWC: defaultWC}
	if err := capitalStore.Set(ctx, sc.Key, wc); err != nil {
		return nil, fmt.Errorf("seed working capital: %w", err)
	}

	ev := evaluator.New(evaluator.Options{
		SettingsStore:       settingsStore,
		AnchorStore:         anchorStore,
		PositionStore:       positionStore,
		WorkingCapitalStore: capitalStore,
		ProfitLedger:        ledger,
		Dispatcher:          dispatch.NewPaperDispatcher(positionStore, capitalStore, ledger, r.FeeRate),
		Retry:               evaluator.RetryConfig{MaxAttempts: 1},
	})

	started := time.Now()
	steps := make([]Step, 0, len(sc.Observations))
	trades := 0

	for i, obs := range sc.Observations {
		if i > 0 && obs.TimestampMs < sc.Observations[i-1].TimestampMs {
			return nil, ErrInvalidOrdering
		}
		res, err := ev.Evaluate(ctx, obs)
		if err != nil {
			return nil, fmt.Errorf("tick %d (ts=%d): %w", i, obs.TimestampMs, err)
		}
		if res.Action.Type == domain.ActionSell {
			trades++
		}
		steps = append(steps, Step{
			TimestampMs: obs.TimestampMs,
			Branch:      res.Branch,
			Action:      res.Action,
			Anchor:      res.Anchor,
		})
	}

	// An open position at the end of the run stays open; only realized
	// capital counts toward the result.
	final, err := capitalStore.Get(ctx, sc.Key)
	if err != nil {
		return nil, fmt.Errorf("final working capital: %w", err)
	}

	runID := r.RunID
	if runID == "" {
		runID = uuid.NewString()
	}

	first := sc.Observations[0]
	last := sc.Observations[len(sc.Observations)-1]

	result := &domain.BacktestResult{
		RunID:      runID,
		Key:        sc.Key,
		StartMs:    first.TimestampMs,
		EndMs:      last.TimestampMs,
		StartPrice: first.Price,
		EndPrice:   last.Price,
		Trades:     trades,
		Profit:     final.CurrentWC - final.DefaultWC,
		GrowthPct:  (final.CurrentWC/final.DefaultWC - 1) * 100,
		DurationMs: time.Since(started).Milliseconds(),
		Settings:   sc.Settings,
	}
	if first.Price > 0 {
		result.BetaPct = (last.Price/first.Price - 1) * 100
	}
	result.AlphaPct = result.GrowthPct - result.BetaPct

	return &Report{Result: result, Steps: steps, FinalCapital: *final}, nil
}

// IsFatalTick reports whether a replay failure came from an
// undetermined correlation or other unrecoverable tick error, as
// opposed to a malformed scenario.
func IsFatalTick(err error) bool {
	var derr *evaluator.DecisionError
	return errors.As(err, &derr) && derr.Kind == evaluator.KindFatal
}
