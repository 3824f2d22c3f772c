package calculators

import (
	"testing"
	"time"

	"github.com/forgequant/nimbus-trader/internal/types"
)

func TestOrdersPerSec_EmptyReturnsZero(t *testing.T) {
	if got := OrdersPerSec(nil, 10); got != 0 {
		t.Errorf("OrdersPerSec(nil) = %v, want 0", got)
	}
}

func TestOrdersPerSec_CountsOverWindow(t *testing.T) {
	trades := make([]types.TradeTick, 5)
	if got := OrdersPerSec(trades, 10); got != 0.5 {
		t.Errorf("OrdersPerSec = %v, want 0.5", got)
	}
}

func TestNetFlow_SignedDifference(t *testing.T) {
	trades := []types.TradeTick{
		{Volume: dec("3"), Aggressor: types.BUY},
		{Volume: dec("1"), Aggressor: types.SELL},
	}
	res, ok := NetFlow(trades)
	if !ok {
		t.Fatal("expected ok=true")
	}
	if !res.NetFlow.Equal(dec("2")) {
		t.Errorf("net_flow = %s, want 2", res.NetFlow)
	}
}

func TestNetFlow_EmptyReturnsNotOk(t *testing.T) {
	if _, ok := NetFlow(nil); ok {
		t.Fatal("expected ok=false for empty trades")
	}
}

func TestFlowAcceleration_RequiresTwoTrades(t *testing.T) {
	now := time.Now()
	if got := FlowAcceleration([]types.TradeTick{{Timestamp: now}}, 10, now); got != 0 {
		t.Errorf("FlowAcceleration with 1 trade = %v, want 0", got)
	}
}
