package strategy

import "github.com/forgequant/nimbus-trader/internal/feed"

// dispatchIngestion routes depth snapshots and trade ticks: events for
// symbols this node doesn't own are dropped, the rest are applied to the
// symbol's warm state. A single goroutine serializes all mutation, so
// per-SymbolState ordering is trivially guaranteed even across symbols
// sharing one feed connection.
func (s *Supervisor) dispatchIngestion() {
	if s.feed == nil {
		return
	}
	for {
		select {
		case <-s.ctx.Done():
			return
		case snap := <-s.feed.Depth():
			s.onOrderBookDeltas(snap)
		case evt := <-s.feed.Trades():
			s.onTradeTick(evt)
		}
	}
}

func (s *Supervisor) onOrderBookDeltas(snap feed.BookSnapshot) {
	if !s.isOwned(snap.Symbol) {
		return
	}
	st, mu := s.stateFor(snap.Symbol)
	mu.Lock()
	feed.ApplySnapshot(st, snap)
	mu.Unlock()
}

func (s *Supervisor) onTradeTick(evt feed.TradeEvent) {
	if !s.isOwned(evt.Symbol) {
		return
	}
	st, mu := s.stateFor(evt.Symbol)
	mu.Lock()
	feed.ApplyTrade(st, evt)
	mu.Unlock()
}
