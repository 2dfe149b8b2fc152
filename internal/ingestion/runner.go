package ingestion

import (
	"context"
	"errors"
	"log"

	"github.com/mrdavey/Futura-os/internal/domain"
	"github.com/mrdavey/Futura-os/internal/evaluator"
	"github.com/mrdavey/Futura-os/internal/lookup"
	"github.com/mrdavey/Futura-os/internal/observability"
	"github.com/mrdavey/Futura-os/internal/storage"
)

// MessageSource delivers sentiment ticks, live or recorded.
type MessageSource interface {
	Messages() <-chan FeedMessage
}

// Runner consumes the sentiment feed: each tick is recorded into the
// history stores and then evaluated for every configured trade key on
// the tick's currency.
type Runner struct {
	source    MessageSource
	evaluator *evaluator.Evaluator
	sentiment storage.SentimentHistoryStore
	prices    storage.PriceHistoryStore
	keys      []domain.TradeKey
}

// RunnerOptions for creating a Runner.
type RunnerOptions struct {
	Source    MessageSource
	Evaluator *evaluator.Evaluator

	// History stores the runner records every tick into. They are the
	// same stores the evaluator assembles live correlation windows from.
	SentimentHistoryStore storage.SentimentHistoryStore
	PriceHistoryStore     storage.PriceHistoryStore

	// Keys are the trade keys under management. A tick is evaluated for
	// every key whose currency matches.
	Keys []domain.TradeKey
}

// NewRunner creates a new feed runner.
func NewRunner(opts RunnerOptions) *Runner {
	return &Runner{
		source:    opts.Source,
		evaluator: opts.Evaluator,
		sentiment: opts.SentimentHistoryStore,
		prices:    opts.PriceHistoryStore,
		keys:      opts.Keys,
	}
}

// Run consumes ticks until the context is done or the source closes.
// A failed tick never stops the run; the error is logged and the next
// tick proceeds.
func (r *Runner) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-r.source.Messages():
			if !ok {
				return nil
			}
			r.handleTick(ctx, msg)
		}
	}
}

// handleTick records one feed message and evaluates the affected keys.
func (r *Runner) handleTick(ctx context.Context, msg FeedMessage) {
	r.recordHistory(ctx, msg)

	snap := &domain.PriceSnapshot{
		Currency:    msg.Currency,
		TimestampMs: msg.TimestampMs,
		Quotes:      msg.Quotes,
	}

	for _, key := range r.keys {
		if key.Currency != msg.Currency {
			continue
		}

		price, err := lookup.PriceFor(snap, key.Exchange)
		if err != nil {
			log.Printf("[ingestion] %s: SKIP tick ts=%d: %v", key, msg.TimestampMs, err)
			continue
		}

		obs := &domain.Observation{
			Key:         key,
			Price:       price,
			Score:       msg.Score,
			TimestampMs: msg.TimestampMs,
		}

		res, err := r.evaluator.Evaluate(ctx, obs)
		if err != nil {
			r.logEvaluationError(key, err)
			continue
		}
		if res.Action.Type != domain.ActionNone {
			log.Printf("[ingestion] %s: %s at %.8f (branch=%s)", key, res.Action.Type, price, res.Branch)
		}
	}
}

// recordHistory stores the tick for later correlation windows. A failed
// insert is logged but does not block evaluation; the affected windows
// will fail loudly when assembled.
func (r *Runner) recordHistory(ctx context.Context, msg FeedMessage) {
	if r.sentiment != nil {
		point := &domain.SentimentPoint{
			Currency:    msg.Currency,
			TimestampMs: msg.TimestampMs,
			Score:       msg.Score,
		}
		if err := r.sentiment.Insert(ctx, point); err != nil {
			log.Printf("[ingestion] WARN: sentiment history insert failed for %s ts=%d: %v",
				msg.Currency, msg.TimestampMs, err)
			return
		}
	}
	if r.prices != nil && len(msg.Quotes) > 0 {
		snap := &domain.PriceSnapshot{
			Currency:    msg.Currency,
			TimestampMs: msg.TimestampMs,
			Quotes:      msg.Quotes,
		}
		if err := r.prices.Insert(ctx, snap); err != nil {
			log.Printf("[ingestion] WARN: price history insert failed for %s ts=%d: %v",
				msg.Currency, msg.TimestampMs, err)
			return
		}
	}
	observability.DefaultMetrics.ObservationsStored.Inc()
}

func (r *Runner) logEvaluationError(key domain.TradeKey, err error) {
	var derr *evaluator.DecisionError
	if errors.As(err, &derr) {
		if errors.Is(err, evaluator.ErrKillSwitchActive) {
			log.Printf("[ingestion] %s: tick refused, kill switch active", key)
			return
		}
		observability.RecordEvaluationError(string(derr.Kind))
		log.Printf("[ingestion] %s: evaluation failed (%s, retryable=%t): %v",
			key, derr.Kind, derr.IsRetryable(), err)
		return
	}
	log.Printf("[ingestion] %s: evaluation failed: %v", key, err)
}
