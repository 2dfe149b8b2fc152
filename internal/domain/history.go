package domain

// SentimentPoint is one recorded sentiment score for a currency.
// Corresponds to the sentiment_history table.
type SentimentPoint struct {
	Currency    string
	TimestampMs int64
	Score       float64
}

// PriceSnapshot holds every price quote recorded for a currency at one
// tick, keyed by source: an exchange name, "average" for the
// cross-exchange mean, or "market" for the third-party market price.
// Corresponds to the price_history table.
type PriceSnapshot struct {
	Currency    string
	TimestampMs int64
	Quotes      map[string]float64
}

// Price source names with defined fallback semantics.
const (
	PriceSourceAverage = "average"
	PriceSourceMarket  = "market"
)
