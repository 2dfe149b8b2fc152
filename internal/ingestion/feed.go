// Package ingestion connects the live sentiment feed to the evaluation
// loop. The feed delivers one message per currency tick: the aggregated
// sentiment score plus every price quote collected for the tick.
package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mrdavey/Futura-os/internal/observability"
)

// FeedMessage is one sentiment tick on the wire.
type FeedMessage struct {
	Currency    string             `json:"currency"`
	TimestampMs int64              `json:"timestampMs"`
	Score       float64            `json:"score"`
	Quotes      map[string]float64 `json:"quotes"`
}

// FeedConfig configures feed client behavior.
type FeedConfig struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
	// HandshakeTimeout is timeout for the initial dial.
	HandshakeTimeout time.Duration
}

// DefaultFeedConfig returns default feed configuration.
func DefaultFeedConfig() FeedConfig {
	return FeedConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		HandshakeTimeout:  10 * time.Second,
	}
}

// FeedClient reads sentiment ticks over a WebSocket connection and
// reconnects with exponential backoff when the connection drops.
type FeedClient struct {
	endpoint string
	config   FeedConfig

	conn   *websocket.Conn
	connMu sync.Mutex
	closed atomic.Bool

	messages chan FeedMessage

	done chan struct{}
	wg   sync.WaitGroup

	reconnecting atomic.Bool
}

// NewFeedClient creates a feed client and connects to the endpoint.
func NewFeedClient(ctx context.Context, endpoint string, config *FeedConfig) (*FeedClient, error) {
	cfg := DefaultFeedConfig()
	if config != nil {
		cfg = *config
	}

	c := &FeedClient{
		endpoint: endpoint,
		config:   cfg,
		// Blocking send ensures no tick loss; buffer absorbs bursts.
		messages: make(chan FeedMessage, 1024),
		done:     make(chan struct{}),
	}

	if err := c.connect(ctx); err != nil {
		return nil, err
	}

	c.wg.Add(1)
	go c.readLoop()

	c.wg.Add(1)
	go c.pingLoop()

	return c, nil
}

// Messages returns the channel of parsed feed ticks. Closed when the
// client closes.
func (c *FeedClient) Messages() <-chan FeedMessage {
	return c.messages
}

// connect establishes the WebSocket connection.
func (c *FeedClient) connect(ctx context.Context) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: c.config.HandshakeTimeout,
	}

	conn, _, err := dialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	c.conn = conn
	return nil
}

// Close closes the connection and the message channel.
func (c *FeedClient) Close() error {
	if c.closed.Swap(true) {
		return nil // Already closed
	}

	close(c.done)

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.conn.Close()
	}
	c.connMu.Unlock()

	c.wg.Wait()
	close(c.messages)
	return nil
}

// readLoop reads ticks from the WebSocket and delivers them in order.
func (c *FeedClient) readLoop() {
	defer c.wg.Done()

	reconnectDelay := c.config.ReconnectDelay

	for !c.closed.Load() {
		c.connMu.Lock()
		conn := c.conn
		c.connMu.Unlock()

		if conn == nil {
			select {
			case <-c.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))

		_, message, err := conn.ReadMessage()
		if err != nil {
			if c.closed.Load() {
				return
			}

			if !c.reconnecting.Swap(true) {
				log.Printf("[feed] Connection lost, reconnecting: %v", err)
				go c.reconnect(reconnectDelay)
			}

			reconnectDelay = reconnectDelay * 2
			if reconnectDelay > c.config.MaxReconnectDelay {
				reconnectDelay = c.config.MaxReconnectDelay
			}

			select {
			case <-c.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		// Reset delay on successful read
		reconnectDelay = c.config.ReconnectDelay

		c.handleMessage(message)
	}
}

// reconnect attempts to re-establish the connection after delay.
func (c *FeedClient) reconnect(delay time.Duration) {
	defer c.reconnecting.Store(false)

	if c.closed.Load() {
		return
	}

	select {
	case <-c.done:
		return
	case <-time.After(delay):
	}

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.connMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := c.connect(ctx); err != nil {
		// Reconnect failed, will retry on next read error
		return
	}

	observability.DefaultMetrics.FeedReconnects.Inc()
	log.Printf("[feed] Reconnected to %s", c.endpoint)
}

// handleMessage parses one wire message and delivers it. Malformed
// messages are logged and dropped; the feed keeps running.
func (c *FeedClient) handleMessage(message []byte) {
	var msg FeedMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		log.Printf("[feed] SKIP: malformed message: %v", err)
		return
	}
	if msg.Currency == "" || msg.TimestampMs == 0 {
		log.Printf("[feed] SKIP: incomplete message: %+v", msg)
		return
	}

	observability.DefaultMetrics.ObservationsReceived.Inc()
	observability.DefaultMetrics.LastObservationTimestamp.Set(float64(msg.TimestampMs))

	// Block until delivered so ticks are never dropped.
	select {
	case c.messages <- msg:
	case <-c.done:
	}
}

// pingLoop sends periodic ping frames to keep the connection alive.
func (c *FeedClient) pingLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.connMu.Lock()
			if c.conn != nil {
				c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
				if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					// Connection might be dead, reader will handle reconnect
				}
			}
			c.connMu.Unlock()
		}
	}
}
