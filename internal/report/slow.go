package report

import (
	"time"

	"github.com/forgequant/nimbus-trader/internal/calculators"
	"github.com/forgequant/nimbus-trader/internal/state"
	"github.com/forgequant/nimbus-trader/internal/types"
)

const defaultTickSize = 0.01

// SlowMetrics bundles everything the slow cycle computes for a symbol.
type SlowMetrics struct {
	VolumeProfile *types.VolumeProfile
	Liquidity     types.Liquidity
	Anomalies     []types.Anomaly
}

// CalculateSlow runs every slow-cycle calculator for a symbol. Each
// sub-computation is independent; a missing precondition (e.g. no best
// bid/ask yet) simply omits that section rather than failing the whole
// cycle.
func CalculateSlow(s BookSource, tickSize float64, now time.Time) SlowMetrics {
	if tickSize <= 0 {
		tickSize = defaultTickSize
	}

	var metrics SlowMetrics

	if vp, ok := calculators.CalculateVolumeProfile(s.Trades30Min(), tickSize); ok {
		metrics.VolumeProfile = &types.VolumeProfile{
			POC:        vp.POC,
			VAH:        vp.VAH,
			VAL:        vp.VAL,
			WindowSec:  vp.WindowSec,
			TradeCount: vp.TradeCount,
		}
	}

	qtyHistory := s.QuantityHistorySnapshot()
	topBids := s.TopBids(state.TopN)
	topAsks := s.TopAsks(state.TopN)
	bid, haveBid := s.BestBid()
	ask, haveAsk := s.BestAsk()

	metrics.Liquidity.Walls = calculators.DetectLiquidityWalls(topBids, topAsks, qtyHistory, bid, ask, haveBid, haveAsk)
	metrics.Liquidity.Vacuums = calculators.DetectLiquidityVacuums(topBids, topAsks, qtyHistory)

	var anomalies []types.Anomaly
	if haveBid && haveAsk {
		mid := calculators.MidPrice(bid, ask)
		anomalies = append(anomalies, calculators.DetectSpoofing(topBids, topAsks, mid)...)
	}

	if trades30s := s.TradesInWindow(netFlowWindowSec * time.Second); len(trades30s) >= 5 {
		anomalies = append(anomalies, calculators.DetectIceberg(trades30s, 0.10)...)
	}

	if haveBid && haveAsk {
		depthMetrics, ok := calculators.CalculateDepthMetrics(topBids, topAsks)
		if ok {
			spreadBps := calculators.SpreadBps(bid, ask)
			trades10s := s.TradesInWindow(fastFlowWindowSec * time.Second)
			flowAccel := calculators.FlowAcceleration(trades10s, fastFlowWindowSec, now)
			if crash, ok := calculators.DetectFlashCrashRisk(spreadBps, depthMetrics.Imbalance, flowAccel); ok {
				anomalies = append(anomalies, crash)
			}
		}
	}
	metrics.Anomalies = anomalies

	return metrics
}

// Enrich merges slow-cycle metrics into an existing fast report without
// ever overwriting the fast-tier fields (spread, depth, flow, health) —
// the fast report remains the source of truth for those sections.
func Enrich(base types.Report, metrics SlowMetrics, now time.Time) types.Report {
	enriched := base

	if metrics.VolumeProfile != nil {
		if enriched.Analytics == nil {
			enriched.Analytics = &types.Analytics{}
		}
		enriched.Analytics.VolumeProfile = metrics.VolumeProfile
	}

	if len(metrics.Liquidity.Walls) > 0 || len(metrics.Liquidity.Vacuums) > 0 {
		if enriched.Liquidity == nil {
			enriched.Liquidity = &types.Liquidity{}
		}
		if len(metrics.Liquidity.Walls) > 0 {
			enriched.Liquidity.Walls = metrics.Liquidity.Walls
		}
		if len(metrics.Liquidity.Vacuums) > 0 {
			enriched.Liquidity.Vacuums = metrics.Liquidity.Vacuums
		}
	}

	if len(metrics.Anomalies) > 0 {
		enriched.Anomalies = metrics.Anomalies
	}

	enriched.SlowCycleUpdatedAt = now.UnixMilli()
	return enriched
}
