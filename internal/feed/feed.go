// Package feed implements the WebSocket/REST boundary adapter between the
// upstream exchange's market-data wire protocol and the core's narrow
// ingestion surface (order-book deltas and trade ticks).
//
// This package is the one place that knows about WebSocket frames; the
// strategy loop only ever sees BookSnapshot and TradeEvent values.
//
// Two independent streams run concurrently per connection:
//
//   - Depth: periodic full top-N order-book snapshots (depth 20), applied
//     via ApplyBookSnapshot. The upstream protocol is snapshot-based
//     rather than incremental, so each frame replaces the book wholesale.
//   - Trades: individual executed trade ticks.
//
// The feed auto-reconnects with exponential backoff (1s -> 30s max) and
// re-subscribes to every tracked symbol on reconnection. A read deadline
// (90s) ensures silent server failures are detected within ~2 missed
// pings.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/forgequant/nimbus-trader/internal/state"
	"github.com/forgequant/nimbus-trader/internal/types"
)

const (
	pingInterval     = 50 * time.Second
	readTimeout      = 90 * time.Second
	maxReconnectWait = 30 * time.Second
	writeTimeout     = 10 * time.Second
	depthBufferSize  = 256
	tradeBufferSize  = 256
)

// BookSnapshot is a full top-N depth snapshot for one symbol.
type BookSnapshot struct {
	Symbol    string
	Bids      []state.LevelUpdate
	Asks      []state.LevelUpdate
	EventTime time.Time
}

// TradeEvent is a single executed trade for one symbol.
type TradeEvent struct {
	Symbol string
	Tick   types.TradeTick
}

// wireMessage is the envelope every frame arrives in: a discriminator
// plus a symbol, with the payload shape depending on Type.
type wireMessage struct {
	Type      string          `json:"type"`
	Symbol    string          `json:"symbol"`
	Bids      [][2]string     `json:"bids,omitempty"`
	Asks      [][2]string     `json:"asks,omitempty"`
	Price     string          `json:"price,omitempty"`
	Qty       string          `json:"qty,omitempty"`
	Side      string          `json:"side,omitempty"`
	EventTime json.RawMessage `json:"event_time,omitempty"`
}

type subscribeMessage struct {
	Op      string   `json:"op"`
	Symbols []string `json:"symbols"`
}

// Feed manages a single upstream WebSocket connection: connection
// lifecycle, subscription tracking, message routing, and automatic
// reconnection with exponential backoff.
type Feed struct {
	url  string
	conn *websocket.Conn

	connMu sync.Mutex

	subscribedMu sync.RWMutex
	subscribed   map[string]bool

	everConnected bool

	depthCh chan BookSnapshot
	tradeCh chan TradeEvent

	resubscribeTotal func(reason string)

	logger *slog.Logger
}

// New creates a feed adapter for the given upstream WebSocket URL.
func New(wsURL string, logger *slog.Logger) *Feed {
	return &Feed{
		url:        wsURL,
		subscribed: make(map[string]bool),
		depthCh:    make(chan BookSnapshot, depthBufferSize),
		tradeCh:    make(chan TradeEvent, tradeBufferSize),
		logger:     logger.With("component", "feed"),
	}
}

// OnResubscribe registers a callback invoked once per established
// connection, after the tracked symbols are re-sent, with a reason
// ("initial" or "reconnect"); wired to the ws_resubscribe_total counter
// by the caller. Subscribe calls on a live connection do not invoke it.
func (f *Feed) OnResubscribe(fn func(reason string)) {
	f.resubscribeTotal = fn
}

// Depth returns a read-only channel of book snapshot events.
func (f *Feed) Depth() <-chan BookSnapshot { return f.depthCh }

// Trades returns a read-only channel of trade events.
func (f *Feed) Trades() <-chan TradeEvent { return f.tradeCh }

// Subscribe adds symbols to track (depth 20 + trade ticks).
func (f *Feed) Subscribe(symbols ...string) error {
	f.subscribedMu.Lock()
	for _, s := range symbols {
		f.subscribed[s] = true
	}
	f.subscribedMu.Unlock()
	return f.writeJSON(subscribeMessage{Op: "subscribe", Symbols: symbols})
}

// Unsubscribe drops symbols from tracking.
func (f *Feed) Unsubscribe(symbols ...string) error {
	f.subscribedMu.Lock()
	for _, s := range symbols {
		delete(f.subscribed, s)
	}
	f.subscribedMu.Unlock()
	return f.writeJSON(subscribeMessage{Op: "unsubscribe", Symbols: symbols})
}

// Run connects and maintains the WebSocket connection with auto-reconnect.
// Blocks until ctx is cancelled.
func (f *Feed) Run(ctx context.Context) error {
	backoff := time.Second

	for {
		err := f.connectAndRead(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		f.logger.Warn("feed disconnected, reconnecting", "error", err, "backoff", backoff)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > maxReconnectWait {
			backoff = maxReconnectWait
		}
	}
}

// Close gracefully closes the connection.
func (f *Feed) Close() error {
	f.connMu.Lock()
	defer f.connMu.Unlock()
	if f.conn != nil {
		return f.conn.Close()
	}
	return nil
}

func (f *Feed) connectAndRead(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, f.url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	f.connMu.Lock()
	f.conn = conn
	f.connMu.Unlock()

	defer func() {
		f.connMu.Lock()
		conn.Close()
		f.conn = nil
		f.connMu.Unlock()
	}()

	reason := "reconnect"
	if !f.everConnected {
		reason = "initial"
		f.everConnected = true
	}
	if err := f.sendTrackedSubscription(); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	if f.resubscribeTotal != nil {
		f.resubscribeTotal(reason)
	}

	f.logger.Info("feed connected")

	pingCtx, pingCancel := context.WithCancel(ctx)
	defer pingCancel()
	go f.pingLoop(pingCtx)

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		conn.SetReadDeadline(time.Now().Add(readTimeout))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}

		f.dispatchMessage(msg)
	}
}

func (f *Feed) sendTrackedSubscription() error {
	f.subscribedMu.RLock()
	symbols := make([]string, 0, len(f.subscribed))
	for s := range f.subscribed {
		symbols = append(symbols, s)
	}
	f.subscribedMu.RUnlock()

	if len(symbols) == 0 {
		return nil
	}
	return f.writeJSON(subscribeMessage{Op: "subscribe", Symbols: symbols})
}

func (f *Feed) dispatchMessage(data []byte) {
	var msg wireMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		f.logger.Warn("failed to decode feed message", "error", err)
		return
	}

	switch msg.Type {
	case "depth":
		snap, err := decodeDepth(msg)
		if err != nil {
			f.logger.Warn("failed to decode depth message", "symbol", msg.Symbol, "error", err)
			return
		}
		select {
		case f.depthCh <- snap:
		default:
			f.logger.Warn("depth channel full, dropping snapshot", "symbol", msg.Symbol)
		}
	case "trade":
		evt, err := decodeTrade(msg)
		if err != nil {
			f.logger.Warn("failed to decode trade message", "symbol", msg.Symbol, "error", err)
			return
		}
		select {
		case f.tradeCh <- evt:
		default:
			f.logger.Warn("trade channel full, dropping tick", "symbol", msg.Symbol)
		}
	case "ping", "pong":
		// keepalive, nothing to dispatch
	default:
		f.logger.Debug("unrecognized feed message type", "type", msg.Type)
	}
}

func (f *Feed) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := f.writeMessage(websocket.PingMessage, nil); err != nil {
				f.logger.Warn("ping failed", "error", err)
				return
			}
		}
	}
}

func (f *Feed) writeJSON(v interface{}) error {
	f.connMu.Lock()
	defer f.connMu.Unlock()
	if f.conn == nil {
		return nil
	}
	f.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return f.conn.WriteJSON(v)
}

func (f *Feed) writeMessage(messageType int, data []byte) error {
	f.connMu.Lock()
	defer f.connMu.Unlock()
	if f.conn == nil {
		return nil
	}
	f.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return f.conn.WriteMessage(messageType, data)
}
