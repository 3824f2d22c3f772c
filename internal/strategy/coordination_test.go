package strategy

import (
	"context"
	"testing"
	"time"

	"github.com/forgequant/nimbus-trader/internal/config"
	"github.com/forgequant/nimbus-trader/internal/telemetry"
)

func coordinatedConfig(nodeID string, symbols ...string) *config.Config {
	return &config.Config{
		Symbols:  symbols,
		ReportMs: 100,
		SlowMs:   1000,
		Coordination: config.CoordinationConfig{
			Enabled:      true,
			NodeID:       nodeID,
			HeartbeatSec: 0.05,
			RebalanceSec: 0.05,
			LeaseTTLMs:   2000,
			MinHoldMs:    0,
			HRWStickyPct: 0.02,
		},
	}
}

func TestSupervisor_CoordinatedModeAcquiresSymbolsViaRebalance(t *testing.T) {
	cfg := coordinatedConfig("node-a", "BTCUSDT", "ETHUSDT")
	store := newTestStore(t)
	sup := New(cfg, store, nil, telemetry.NewMetrics(), testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	if err := sup.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer func() { cancel(); sup.Stop() }()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(sup.OwnedSymbols()) == 2 {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("owned = %v, want 2 symbols after rebalance", sup.OwnedSymbols())
}
