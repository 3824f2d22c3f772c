package state

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/forgequant/nimbus-trader/internal/types"
)

// Buffer capacities per trade window.
const (
	window10sCap  = 1000
	window30sCap  = 3000
	window30mCap  = 20000
	qtyHistoryCap = 10000
)

// SymbolState owns one order book, four windowed buffers, and the
// freshness bookkeeping for a single symbol. It is created on symbol
// acquisition and retained (not destroyed) across releases so
// re-acquisition can reuse warm state.
type SymbolState struct {
	Symbol types.Symbol

	book *OrderBookL2

	trades10s  *WindowedBuffer[types.TradeTick]
	trades30s  *WindowedBuffer[types.TradeTick]
	trades30m  *WindowedBuffer[types.TradeTick]
	qtyHistory *WindowedBuffer[decimal.Decimal]

	lastTrade   *types.TradeTick
	lastEventTS time.Time
}

// NewSymbolState creates fresh state for a symbol.
func NewSymbolState(symbol types.Symbol) *SymbolState {
	tickTS := func(t types.TradeTick) time.Time { return t.Timestamp }
	return &SymbolState{
		Symbol:     symbol,
		book:       NewOrderBookL2(),
		trades10s:  NewWindowedBuffer(window10sCap, tickTS),
		trades30s:  NewWindowedBuffer(window30sCap, tickTS),
		trades30m:  NewWindowedBuffer(window30mCap, tickTS),
		qtyHistory: NewWindowedBuffer(qtyHistoryCap, func(decimal.Decimal) time.Time { return time.Time{} }),
	}
}

// UpdateBid applies a single incremental bid-level change.
func (s *SymbolState) UpdateBid(price, qty decimal.Decimal, eventTS time.Time) {
	s.book.UpdateBid(price, qty)
	s.recordQtyHistory(qty)
	s.touch(eventTS)
}

// UpdateAsk applies a single incremental ask-level change.
func (s *SymbolState) UpdateAsk(price, qty decimal.Decimal, eventTS time.Time) {
	s.book.UpdateAsk(price, qty)
	s.recordQtyHistory(qty)
	s.touch(eventTS)
}

// ApplyBookSnapshot replaces the top-20 bid/ask levels wholesale, as the
// upstream depth stream delivers them. eventTS is the snapshot's event
// time as the feed decoded it: the frame's own event_time, or receipt
// time when the frame carries none (and for REST bootstrap snapshots).
func (s *SymbolState) ApplyBookSnapshot(bids, asks []LevelUpdate, eventTS time.Time) {
	s.book.ReplaceBids(bids)
	s.book.ReplaceAsks(asks)
	for _, lv := range bids {
		s.recordQtyHistory(lv.Qty)
	}
	for _, lv := range asks {
		s.recordQtyHistory(lv.Qty)
	}
	s.touch(eventTS)
}

func (s *SymbolState) recordQtyHistory(qty decimal.Decimal) {
	s.qtyHistory.Add(qty)
}

func (s *SymbolState) touch(eventTS time.Time) {
	if eventTS.After(s.lastEventTS) {
		s.lastEventTS = eventTS
	}
}

// AddTrade inserts a trade tick into all three time-windowed buffers
// atomically (from the perspective of a single-threaded owner) and updates
// last_event_ts from the trade's own timestamp. Event time is preferred
// over receipt time whenever the event carries one.
func (s *SymbolState) AddTrade(tick types.TradeTick) {
	s.trades10s.Add(tick)
	s.trades30s.Add(tick)
	s.trades30m.Add(tick)
	last := tick
	s.lastTrade = &last
	s.touch(tick.Timestamp)
}

// BestBid returns the current best bid, if any.
func (s *SymbolState) BestBid() (types.PriceQty, bool) {
	p, q, ok := s.book.BestBid()
	if !ok {
		return types.PriceQty{}, false
	}
	return types.PriceQty{Price: p, Qty: q}, true
}

// BestAsk returns the current best ask, if any.
func (s *SymbolState) BestAsk() (types.PriceQty, bool) {
	p, q, ok := s.book.BestAsk()
	if !ok {
		return types.PriceQty{}, false
	}
	return types.PriceQty{Price: p, Qty: q}, true
}

// TopBids returns up to n bid levels, best first.
func (s *SymbolState) TopBids(n int) []LevelUpdate { return s.book.TopBids(n) }

// TopAsks returns up to n ask levels, best first.
func (s *SymbolState) TopAsks(n int) []LevelUpdate { return s.book.TopAsks(n) }

// LastTrade returns the most recent trade tick, if any has been recorded.
func (s *SymbolState) LastTrade() (types.TradeTick, bool) {
	if s.lastTrade == nil {
		return types.TradeTick{}, false
	}
	return *s.lastTrade, true
}

// TradesInWindow returns trades within the given window (10, 30, or any
// other duration — falls back to filtering the 30-minute buffer for
// windows not backed by a dedicated buffer).
func (s *SymbolState) TradesInWindow(window time.Duration) []types.TradeTick {
	cutoff := time.Now().Add(-window)
	switch {
	case window <= 10*time.Second:
		return s.trades10s.ItemsNewerThan(cutoff)
	case window <= 30*time.Second:
		return s.trades30s.ItemsNewerThan(cutoff)
	default:
		return s.trades30m.ItemsNewerThan(cutoff)
	}
}

// Trades30Min returns the full 30-minute trade buffer, used for volume
// profile computation.
func (s *SymbolState) Trades30Min() []types.TradeTick {
	return s.trades30m.Items()
}

// QuantityHistorySnapshot returns a copy of the quantity-only history
// buffer, used for percentile-based liquidity metrics.
func (s *SymbolState) QuantityHistorySnapshot() []decimal.Decimal {
	return s.qtyHistory.Items()
}

// DataAgeMs returns now - last_event_ts in milliseconds, or (0, false) if
// no event has been received yet.
func (s *SymbolState) DataAgeMs() (int64, bool) {
	if s.lastEventTS.IsZero() {
		return 0, false
	}
	return time.Since(s.lastEventTS).Milliseconds(), true
}

// LastEventTime returns the timestamp of the most recently ingested event.
func (s *SymbolState) LastEventTime() (time.Time, bool) {
	if s.lastEventTS.IsZero() {
		return time.Time{}, false
	}
	return s.lastEventTS, true
}
