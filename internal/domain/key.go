package domain

import "fmt"

// TradeKey identifies one independently traded market:
// a currency on an exchange against a paired asset.
// All anchors, positions, settings and profits are keyed by it.
type TradeKey struct {
	Currency    string // e.g. "BTC"
	Exchange    string // e.g. "coinbase"
	PairedAsset string // e.g. "USD"
}

// String returns the canonical key form used in storage and logs.
func (k TradeKey) String() string {
	return fmt.Sprintf("%s-%s-%s", k.Currency, k.Exchange, k.PairedAsset)
}

// Validate checks that all key components are present.
func (k TradeKey) Validate() error {
	if k.Currency == "" || k.Exchange == "" || k.PairedAsset == "" {
		return fmt.Errorf("trade key incomplete: %q", k.String())
	}
	return nil
}
