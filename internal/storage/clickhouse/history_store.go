package clickhouse

import (
	"context"
	"fmt"

	"github.com/mrdavey/Futura-os/internal/domain"
	"github.com/mrdavey/Futura-os/internal/storage"
)

// SentimentHistoryStore implements storage.SentimentHistoryStore using ClickHouse.
type SentimentHistoryStore struct {
	conn *Conn
}

// NewSentimentHistoryStore creates a new SentimentHistoryStore.
func NewSentimentHistoryStore(conn *Conn) *SentimentHistoryStore {
	return &SentimentHistoryStore{conn: conn}
}

// Compile-time interface check.
var _ storage.SentimentHistoryStore = (*SentimentHistoryStore)(nil)

// Insert appends one sentiment point.
func (s *SentimentHistoryStore) Insert(ctx context.Context, p *domain.SentimentPoint) error {
	if p == nil || p.Currency == "" {
		return storage.ErrInvalidInput
	}

	err := s.conn.Exec(ctx, `
		INSERT INTO sentiment_history (currency, timestamp_ms, score)
		VALUES (?, ?, ?)
	`, p.Currency, uint64(p.TimestampMs), p.Score)
	if err != nil {
		return fmt.Errorf("insert sentiment point: %w", err)
	}
	return nil
}

// Latest retrieves up to limit points for a currency at or before
// beforeMs, ordered by timestamp ASC.
func (s *SentimentHistoryStore) Latest(ctx context.Context, currency string, limit int, beforeMs int64) ([]*domain.SentimentPoint, error) {
	if limit <= 0 {
		return nil, nil
	}

	// Inner query takes the most recent rows, outer restores ASC order.
	rows, err := s.conn.Query(ctx, `
		SELECT currency, timestamp_ms, score
		FROM (
			SELECT currency, timestamp_ms, score
			FROM sentiment_history
			WHERE currency = ? AND timestamp_ms <= ?
			ORDER BY timestamp_ms DESC
			LIMIT ?
		)
		ORDER BY timestamp_ms ASC
	`, currency, uint64(beforeMs), uint64(limit))
	if err != nil {
		return nil, fmt.Errorf("query sentiment history: %w", err)
	}
	defer rows.Close()

	var points []*domain.SentimentPoint
	for rows.Next() {
		var (
			p  domain.SentimentPoint
			ts uint64
		)
		if err := rows.Scan(&p.Currency, &ts, &p.Score); err != nil {
			return nil, fmt.Errorf("scan sentiment point: %w", err)
		}
		p.TimestampMs = int64(ts)
		points = append(points, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sentiment history: %w", err)
	}
	return points, nil
}

// PriceHistoryStore implements storage.PriceHistoryStore using ClickHouse.
type PriceHistoryStore struct {
	conn *Conn
}

// NewPriceHistoryStore creates a new PriceHistoryStore.
func NewPriceHistoryStore(conn *Conn) *PriceHistoryStore {
	return &PriceHistoryStore{conn: conn}
}

// Compile-time interface check.
var _ storage.PriceHistoryStore = (*PriceHistoryStore)(nil)

// Insert appends one price snapshot.
func (s *PriceHistoryStore) Insert(ctx context.Context, snap *domain.PriceSnapshot) error {
	if snap == nil || snap.Currency == "" || len(snap.Quotes) == 0 {
		return storage.ErrInvalidInput
	}

	err := s.conn.Exec(ctx, `
		INSERT INTO price_history (currency, timestamp_ms, quotes)
		VALUES (?, ?, ?)
	`, snap.Currency, uint64(snap.TimestampMs), snap.Quotes)
	if err != nil {
		return fmt.Errorf("insert price snapshot: %w", err)
	}
	return nil
}

// At retrieves the snapshots matching the given timestamps, in the same
// order. A timestamp with no snapshot yields a nil entry; the caller
// decides whether a gap is fatal.
func (s *PriceHistoryStore) At(ctx context.Context, currency string, timestamps []int64) ([]*domain.PriceSnapshot, error) {
	snaps := make([]*domain.PriceSnapshot, len(timestamps))
	if len(timestamps) == 0 {
		return snaps, nil
	}

	wanted := make([]uint64, len(timestamps))
	for i, ts := range timestamps {
		wanted[i] = uint64(ts)
	}

	rows, err := s.conn.Query(ctx, `
		SELECT currency, timestamp_ms, quotes
		FROM price_history
		WHERE currency = ? AND timestamp_ms IN (?)
		ORDER BY timestamp_ms ASC
	`, currency, wanted)
	if err != nil {
		return nil, fmt.Errorf("query price history: %w", err)
	}
	defer rows.Close()

	byTimestamp := make(map[int64]*domain.PriceSnapshot, len(timestamps))
	for rows.Next() {
		var (
			snap   domain.PriceSnapshot
			ts     uint64
			quotes map[string]float64
		)
		if err := rows.Scan(&snap.Currency, &ts, &quotes); err != nil {
			return nil, fmt.Errorf("scan price snapshot: %w", err)
		}
		snap.TimestampMs = int64(ts)
		snap.Quotes = quotes
		byTimestamp[snap.TimestampMs] = &snap
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate price history: %w", err)
	}

	for i, ts := range timestamps {
		snaps[i] = byTimestamp[ts]
	}
	return snaps, nil
}
