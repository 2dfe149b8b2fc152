package domain

import (
	"fmt"
	"time"
)

// ProfitRange selects which realized-P&L window a ledger query covers.
type ProfitRange string

// Profit range constants.
const (
	ProfitRangeDay  ProfitRange = "daily"
	ProfitRangeWeek ProfitRange = "weekly"
)

// DayKey formats t as the calendar-day ledger key, e.g. "2021-03-08".
func DayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// WeekKey formats t as the ISO-week ledger key, e.g. "2021-10".
func WeekKey(t time.Time) string {
	year, week := t.UTC().ISOWeek()
	return fmt.Sprintf("%d-%d", year, week)
}

// RangeKey resolves the ledger key for the given range kind at time t.
func RangeKey(kind ProfitRange, t time.Time) string {
	if kind == ProfitRangeWeek {
		return WeekKey(t)
	}
	return DayKey(t)
}

// ProfitRecord is one realized-P&L entry in the profit ledger.
// Corresponds to the profit_ledger table.
type ProfitRecord struct {
	Key         TradeKey
	Range       ProfitRange
	RangeID     string // DayKey or WeekKey value
	Gross       float64
	TimestampMs int64
}
