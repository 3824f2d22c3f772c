package feed

import "github.com/forgequant/nimbus-trader/internal/state"

// ApplySnapshot pushes a depth-20 snapshot into a symbol's state,
// replacing the top-N maps and advancing last_event_ts. The caller (the
// strategy loop) is responsible for dropping events for symbols it does
// not own.
func ApplySnapshot(s *state.SymbolState, snap BookSnapshot) {
	s.ApplyBookSnapshot(snap.Bids, snap.Asks, snap.EventTime)
}

// ApplyTrade records a trade tick into a symbol's state.
func ApplyTrade(s *state.SymbolState, evt TradeEvent) {
	s.AddTrade(evt.Tick)
}
