package feed

import (
	"encoding/json"
	"testing"

	"github.com/forgequant/nimbus-trader/internal/types"
)

func TestDecodeDepth_ParsesLevels(t *testing.T) {
	msg := wireMessage{
		Type:   "depth",
		Symbol: "BTCUSDT",
		Bids:   [][2]string{{"100.00", "1.5"}, {"99.90", "2.0"}},
		Asks:   [][2]string{{"100.10", "1.0"}},
	}

	snap, err := decodeDepth(msg)
	if err != nil {
		t.Fatalf("decodeDepth: %v", err)
	}
	if snap.Symbol != "BTCUSDT" {
		t.Errorf("symbol = %q, want BTCUSDT", snap.Symbol)
	}
	if len(snap.Bids) != 2 || len(snap.Asks) != 1 {
		t.Fatalf("levels = %d bids, %d asks, want 2/1", len(snap.Bids), len(snap.Asks))
	}
	if !snap.Bids[0].Price.Equal(dec("100.00")) {
		t.Errorf("first bid price = %s, want 100.00", snap.Bids[0].Price)
	}
}

func TestDecodeDepth_RejectsMalformedPrice(t *testing.T) {
	msg := wireMessage{
		Type:   "depth",
		Symbol: "BTCUSDT",
		Bids:   [][2]string{{"not-a-number", "1.5"}},
	}
	if _, err := decodeDepth(msg); err == nil {
		t.Fatal("expected error for malformed price")
	}
}

func TestDecodeTrade_MapsAggressorSide(t *testing.T) {
	msg := wireMessage{
		Type:   "trade",
		Symbol: "ETHUSDT",
		Price:  "2500.50",
		Qty:    "0.75",
		Side:   "sell",
	}

	evt, err := decodeTrade(msg)
	if err != nil {
		t.Fatalf("decodeTrade: %v", err)
	}
	if evt.Tick.Aggressor != types.SELL {
		t.Errorf("aggressor = %v, want SELL", evt.Tick.Aggressor)
	}
	if !evt.Tick.Volume.Equal(dec("0.75")) {
		t.Errorf("volume = %s, want 0.75", evt.Tick.Volume)
	}
}

func TestDecodeTrade_DefaultsToBuyAggressor(t *testing.T) {
	msg := wireMessage{Type: "trade", Symbol: "ETHUSDT", Price: "1.0", Qty: "1.0"}
	evt, err := decodeTrade(msg)
	if err != nil {
		t.Fatalf("decodeTrade: %v", err)
	}
	if evt.Tick.Aggressor != types.BUY {
		t.Errorf("aggressor = %v, want BUY", evt.Tick.Aggressor)
	}
}

func TestDecodeEventTime_FallsBackToNowWhenAbsent(t *testing.T) {
	got := decodeEventTime(nil)
	if got.IsZero() {
		t.Error("expected non-zero fallback time")
	}
}

func TestDecodeEventTime_ParsesUnixMillis(t *testing.T) {
	raw, _ := json.Marshal(1700000000000)
	got := decodeEventTime(raw)
	if got.Unix() != 1700000000 {
		t.Errorf("unix seconds = %d, want 1700000000", got.Unix())
	}
}
