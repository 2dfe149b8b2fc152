// Package idhash computes deterministic identifiers. Using a hash of the
// decision inputs as the client order ID means a retried dispatch carries
// the same ID as the original attempt, so the exchange side can
// deduplicate instead of double-executing.
package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/mrdavey/Futura-os/internal/domain"
)

// orderIDLength keeps client order IDs within the Binance spot API
// limit of 36 characters for newClientOrderId.
const orderIDLength = 32

// ComputeOrderID computes a deterministic client order ID using SHA256.
// Formula: SHA256(key|side|observation_timestamp), hex-encoded and
// truncated to 32 characters (128 bits, still unique per key/side/tick).
func ComputeOrderID(key domain.TradeKey, side domain.ActionType, observationTimestampMs int64) string {
	data := fmt.Sprintf("%s|%s|%d", key.String(), side, observationTimestampMs)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])[:orderIDLength]
}

// ComputeRunID computes a deterministic backtest run ID from the key and
// the bounds of the replayed window.
func ComputeRunID(key domain.TradeKey, startMs, endMs int64) string {
	data := fmt.Sprintf("%s|%d|%d", key.String(), startMs, endMs)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
