// Package evaluator orchestrates one decision tick per observation:
// load state, resolve correlation and risk gates, run the decision
// engine, dispatch the order, persist the anchor. The decision logic
// itself lives in the engine package and stays pure.
package evaluator

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/mrdavey/Futura-os/internal/correlation"
	"github.com/mrdavey/Futura-os/internal/dispatch"
	"github.com/mrdavey/Futura-os/internal/domain"
	"github.com/mrdavey/Futura-os/internal/engine"
	"github.com/mrdavey/Futura-os/internal/lookup"
	"github.com/mrdavey/Futura-os/internal/observability"
	"github.com/mrdavey/Futura-os/internal/risk"
	"github.com/mrdavey/Futura-os/internal/storage"
)

// Evaluator runs the decision loop for observations. Safe for concurrent
// use; ticks for the same trade key are serialized, ticks for different
// keys run in parallel.
type Evaluator struct {
	settings  storage.SettingsStore
	anchors   storage.AnchorStore
	positions storage.PositionStore
	capital   storage.WorkingCapitalStore
	ledger    storage.ProfitLedger
	sentiment storage.SentimentHistoryStore
	prices    storage.PriceHistoryStore

	dispatcher dispatch.OrderDispatcher
	killSwitch KillSwitch

	retry   RetryConfig
	verbose bool

	locks *keyLocks
}

// Options for creating an Evaluator.
type Options struct {
	// Required stores
	SettingsStore       storage.SettingsStore
	AnchorStore         storage.AnchorStore
	PositionStore       storage.PositionStore
	WorkingCapitalStore storage.WorkingCapitalStore
	ProfitLedger        storage.ProfitLedger

	// History stores, only consulted for live correlation windows.
	// Observations carrying their own correlation series never touch them.
	SentimentHistoryStore storage.SentimentHistoryStore
	PriceHistoryStore     storage.PriceHistoryStore

	// Required dispatcher
	Dispatcher dispatch.OrderDispatcher

	// Optional kill switch; nil means trading is never halted.
	KillSwitch KillSwitch

	// Retry policy for store I/O. Zero value uses DefaultRetryConfig.
	Retry RetryConfig

	Verbose bool
}

// New creates a new Evaluator.
func New(opts Options) *Evaluator {
	retryConfig := opts.Retry
	if retryConfig.MaxAttempts == 0 {
		retryConfig = DefaultRetryConfig()
	}
	return &Evaluator{
		settings:   opts.SettingsStore,
		anchors:    opts.AnchorStore,
		positions:  opts.PositionStore,
		capital:    opts.WorkingCapitalStore,
		ledger:     opts.ProfitLedger,
		sentiment:  opts.SentimentHistoryStore,
		prices:     opts.PriceHistoryStore,
		dispatcher: opts.Dispatcher,
		killSwitch: opts.KillSwitch,
		retry:      retryConfig,
		verbose:    opts.Verbose,
		locks:      newKeyLocks(),
	}
}

// Result is the outcome of one successfully evaluated observation.
type Result struct {
	Action      domain.Action
	Branch      engine.Branch
	Anchor      domain.Anchor
	Correlation engine.Correlation
}

// Evaluate runs one decision tick for the observation. On success the
// anchor has been advanced to this observation and any decided order has
// been dispatched and confirmed. On error nothing has been persisted
// except, for dispatch confirmations, the dispatcher's own bookkeeping;
// the next observation for the key retries naturally.
func (e *Evaluator) Evaluate(ctx context.Context, obs *domain.Observation) (*Result, error) {
	started := time.Now()

	if err := obs.Validate(); err != nil {
		return nil, decisionErr(KindConfig, "validate observation", obs.Key.String(), err)
	}
	key := obs.Key

	if e.killSwitch != nil {
		active, err := e.killSwitch.Active(ctx)
		if err != nil {
			// An unreadable switch halts trading the same as an active one.
			active = true
			e.logf("%s: kill switch check failed, refusing tick: %v", key, err)
		}
		if active {
			observability.DefaultMetrics.KillSwitchBlocks.Inc()
			return nil, decisionErr(KindFatal, "kill switch", key.String(), ErrKillSwitchActive)
		}
	}

	release := e.locks.acquire(key)
	defer release()

	settings, err := e.loadSettings(ctx, key)
	if err != nil {
		return nil, err
	}

	anchor, err := e.loadAnchor(ctx, key)
	if err != nil {
		return nil, err
	}
	position, err := e.loadPosition(ctx, key)
	if err != nil {
		return nil, err
	}

	in := engine.Input{
		Observation: obs,
		Settings:    *settings,
		Anchor:      anchor,
		Position:    position,
	}

	hasPosition := position != nil && position.HasPosition

	// Bootstrap needs no correlation or gates; the engine returns before
	// either is consulted. Same for falling sentiment with no position,
	// which means a live tick there never queries the history stores.
	needsCorrelation := anchor != nil && (hasPosition || obs.Score >= anchor.Score)

	if needsCorrelation && settings.CorrelationInterval > 0 {
		corr, err := e.resolveCorrelation(ctx, obs, settings.CorrelationInterval)
		if err != nil {
			observability.DefaultMetrics.CorrelationFailures.Inc()
			observability.RecordEvaluationError(string(KindFatal))
			return nil, decisionErr(KindFatal, "resolve correlation", key.String(), err)
		}
		in.Correlation = engine.Correlation{Enabled: true, Value: corr}
	}

	if anchor != nil && !hasPosition && obs.Score >= anchor.Score {
		in.DayStopActive, in.WeekStopActive = e.resolveRiskGates(ctx, key, obs, *settings)
	}

	decision := engine.Decide(in)

	switch decision.Action.Type {
	case domain.ActionBuy:
		if _, err := e.dispatcher.Buy(ctx, key, obs, decision.Action.LossThreshold); err != nil {
			observability.RecordDispatchError("buy")
			return nil, decisionErr(KindDispatch, "dispatch buy", key.String(), err)
		}
		observability.RecordDispatch("buy")
	case domain.ActionSell:
		if _, err := e.dispatcher.Sell(ctx, key, obs, position); err != nil {
			observability.RecordDispatchError("sell")
			return nil, decisionErr(KindDispatch, "dispatch sell", key.String(), err)
		}
		observability.RecordDispatch("sell")
	}

	// The anchor moves only after the action (if any) succeeded, so a
	// failed dispatch replays the same decision on the next tick.
	if err := retry(ctx, e.retry, func() error {
		return e.anchors.Set(ctx, key, decision.Anchor)
	}); err != nil {
		return nil, decisionErr(KindTransient, "persist anchor", key.String(), err)
	}

	observability.RecordEvaluation(string(decision.Branch))
	observability.RecordAction(string(decision.Action.Type))
	observability.DefaultMetrics.EvaluationLatency.
		WithLabelValues(string(decision.Action.Type)).
		Observe(time.Since(started).Seconds())
	observability.DefaultMetrics.LastSuccessfulEvaluation.SetToCurrentTime()

	if e.verbose {
		e.logf("%s: branch=%s action=%s price=%.8f score=%.4f",
			key, decision.Branch, decision.Action.Type, obs.Price, obs.Score)
	}

	return &Result{
		Action:      decision.Action,
		Branch:      decision.Branch,
		Anchor:      *decision.Anchor,
		Correlation: in.Correlation,
	}, nil
}

func (e *Evaluator) loadSettings(ctx context.Context, key domain.TradeKey) (*domain.TradeSettings, error) {
	var settings *domain.TradeSettings
	err := retry(ctx, e.retry, func() error {
		var err error
		settings, err = e.settings.Get(ctx, key)
		if errors.Is(err, storage.ErrNotFound) {
			// Missing settings never heal by retrying.
			return nil
		}
		return err
	})
	if err != nil {
		return nil, decisionErr(KindTransient, "load settings", key.String(), err)
	}
	if settings == nil {
		return nil, decisionErr(KindConfig, "load settings", key.String(), storage.ErrNotFound)
	}
	if err := settings.Validate(); err != nil {
		return nil, decisionErr(KindConfig, "validate settings", key.String(), err)
	}
	return settings, nil
}

func (e *Evaluator) loadAnchor(ctx context.Context, key domain.TradeKey) (*domain.Anchor, error) {
	var anchor *domain.Anchor
	err := retry(ctx, e.retry, func() error {
		var err error
		anchor, err = e.anchors.Get(ctx, key)
		if errors.Is(err, storage.ErrNotFound) {
			anchor = nil
			return nil
		}
		return err
	})
	if err != nil {
		return nil, decisionErr(KindTransient, "load anchor", key.String(), err)
	}
	return anchor, nil
}

func (e *Evaluator) loadPosition(ctx context.Context, key domain.TradeKey) (*domain.Position, error) {
	var position *domain.Position
	err := retry(ctx, e.retry, func() error {
		var err error
		position, err = e.positions.Get(ctx, key)
		if errors.Is(err, storage.ErrNotFound) {
			position = nil
			return nil
		}
		return err
	})
	if err != nil {
		return nil, decisionErr(KindTransient, "load position", key.String(), err)
	}
	return position, nil
}

// resolveCorrelation computes the sentiment/price correlation for the
// tick. Observations supplied with their own series (replay) use it
// verbatim; live observations assemble the window from the history
// stores. An incomplete window is an error, never a zero correlation.
func (e *Evaluator) resolveCorrelation(ctx context.Context, obs *domain.Observation, interval int) (float64, error) {
	if obs.CorrelationSeries != nil {
		scores := make([]float64, len(obs.CorrelationSeries))
		prices := make([]float64, len(obs.CorrelationSeries))
		for i, s := range obs.CorrelationSeries {
			scores[i] = s.Score
			prices[i] = s.Price
		}
		return correlation.Pearson(scores, prices), nil
	}

	if e.sentiment == nil || e.prices == nil {
		return 0, errors.New("no history stores configured for live correlation")
	}

	points, err := e.sentiment.Latest(ctx, obs.Key.Currency, interval, obs.TimestampMs)
	if err != nil {
		return 0, err
	}

	timestamps := make([]int64, len(points))
	scores := make([]float64, len(points))
	for i, p := range points {
		timestamps[i] = p.TimestampMs
		scores[i] = p.Score
	}

	snaps, err := e.prices.At(ctx, obs.Key.Currency, timestamps)
	if err != nil {
		return 0, err
	}
	prices, err := lookup.PricesFor(snaps, obs.Key.Exchange)
	if err != nil {
		return 0, err
	}

	return correlation.Pearson(correlation.Window(scores, interval), correlation.Window(prices, interval)), nil
}

// resolveRiskGates sums the realized P&L for the observation's calendar
// day and ISO week and compares each against the allowed drawdown. Any
// failure to read the ledger or the capital pool closes both gates.
func (e *Evaluator) resolveRiskGates(ctx context.Context, key domain.TradeKey, obs *domain.Observation, settings domain.TradeSettings) (dayActive, weekActive bool) {
	wc, err := e.capital.Get(ctx, key)
	if err != nil {
		e.logf("%s: working capital unavailable, entries blocked: %v", key, err)
		return true, true
	}

	at := time.UnixMilli(obs.TimestampMs)

	for _, kind := range []domain.ProfitRange{domain.ProfitRangeDay, domain.ProfitRangeWeek} {
		sum, err := e.ledger.Sum(ctx, key, kind, domain.RangeKey(kind, at))
		if err != nil {
			e.logf("%s: %s ledger unavailable, entries blocked: %v", key, kind, err)
			dayActive, weekActive = true, true
			return
		}
		active := risk.IsStopLossActive(sum, wc.DefaultWC, risk.ThresholdFor(kind, settings))
		if active {
			observability.RecordStopLoss(string(kind))
		}
		if kind == domain.ProfitRangeDay {
			dayActive = active
		} else {
			weekActive = active
		}
	}
	return dayActive, weekActive
}

func (e *Evaluator) logf(format string, args ...interface{}) {
	log.Printf("[evaluator] "+format, args...)
}
