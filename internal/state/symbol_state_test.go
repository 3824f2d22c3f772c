package state

import (
	"testing"
	"time"

	"github.com/forgequant/nimbus-trader/internal/types"
)

func TestSymbolState_DataAgeMs_UnknownBeforeFirstEvent(t *testing.T) {
	s := NewSymbolState("BTCUSDT")
	if _, ok := s.DataAgeMs(); ok {
		t.Fatal("DataAgeMs should report unknown before any event is received")
	}
	if _, ok := s.LastEventTime(); ok {
		t.Fatal("LastEventTime should report unknown before any event is received")
	}
}

func TestSymbolState_DataAgeMs_PrefersTradeEventTime(t *testing.T) {
	s := NewSymbolState("BTCUSDT")
	eventTS := time.Now().Add(-5 * time.Second)
	s.AddTrade(types.TradeTick{Timestamp: eventTS, Price: d("100"), Volume: d("1"), Aggressor: types.BUY})

	age, ok := s.DataAgeMs()
	if !ok {
		t.Fatal("expected known data age after a trade")
	}
	if age < 4000 || age > 6000 {
		t.Fatalf("data age = %dms, want ~5000ms", age)
	}
}

func TestSymbolState_BestBidAsk_ReflectsBookMutation(t *testing.T) {
	s := NewSymbolState("ETHUSDT")
	if _, ok := s.BestBid(); ok {
		t.Fatal("expected no best bid on fresh state")
	}
	s.UpdateBid(d("1000"), d("2"), time.Now())
	s.UpdateAsk(d("1001"), d("3"), time.Now())

	bb, ok := s.BestBid()
	if !ok || !bb.Price.Equal(d("1000")) {
		t.Fatalf("BestBid = %+v, ok=%v", bb, ok)
	}
	ba, ok := s.BestAsk()
	if !ok || !ba.Price.Equal(d("1001")) {
		t.Fatalf("BestAsk = %+v, ok=%v", ba, ok)
	}
}

func TestSymbolState_TradeBuffersRespectCaps(t *testing.T) {
	s := NewSymbolState("BTCUSDT")
	base := time.Now().Add(-1 * time.Hour)
	for i := 0; i < window10sCap+50; i++ {
		s.AddTrade(types.TradeTick{
			Timestamp: base.Add(time.Duration(i) * time.Millisecond),
			Price:     d("100"),
			Volume:    d("1"),
			Aggressor: types.BUY,
		})
	}
	if got := s.trades10s.Len(); got != window10sCap {
		t.Fatalf("trades10s buffer len = %d, want cap %d", got, window10sCap)
	}
	if got := s.trades30m.Len(); got != window10sCap+50 {
		t.Fatalf("trades30m buffer len = %d, want %d", got, window10sCap+50)
	}
}

func TestSymbolState_QuantityHistoryTracksBookUpdates(t *testing.T) {
	s := NewSymbolState("BTCUSDT")
	s.UpdateBid(d("100"), d("5"), time.Now())
	s.UpdateAsk(d("101"), d("7"), time.Now())
	hist := s.QuantityHistorySnapshot()
	if len(hist) != 2 {
		t.Fatalf("quantity history len = %d, want 2", len(hist))
	}
}

func TestSymbolState_ApplyBookSnapshot(t *testing.T) {
	s := NewSymbolState("BTCUSDT")
	s.ApplyBookSnapshot(
		[]LevelUpdate{{Price: d("100"), Qty: d("1")}},
		[]LevelUpdate{{Price: d("101"), Qty: d("1")}},
		time.Now(),
	)
	if _, ok := s.BestBid(); !ok {
		t.Fatal("expected best bid after snapshot apply")
	}
	if _, ok := s.DataAgeMs(); !ok {
		t.Fatal("expected known data age after snapshot apply (ingestion-time fallback)")
	}
}
