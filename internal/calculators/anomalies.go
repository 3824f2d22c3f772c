package calculators

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/forgequant/nimbus-trader/internal/state"
	"github.com/forgequant/nimbus-trader/internal/types"
)

const (
	spoofingDistanceThresholdBps = 50
	icebergMinFillCount          = 5
	flashCrashSpreadThresholdBps = 20.0
	flashCrashImbalanceThreshold = 0.3
	flashCrashFlowThreshold      = -100.0
)

// DetectSpoofing flags large, far-from-mid resting orders: proxy signals
// for spoofing since individual order lifecycle isn't tracked. A level
// qualifies if its distance from mid exceeds 50bps and its size is more
// than 2x the side's average.
func DetectSpoofing(topBids, topAsks []state.LevelUpdate, midPrice decimal.Decimal) []types.Anomaly {
	var out []types.Anomaly
	midF, _ := midPrice.Float64()
	out = append(out, spoofingForSide(topBids, "bid", midF)...)
	out = append(out, spoofingForSide(topAsks, "ask", midF)...)
	return out
}

func spoofingForSide(levels []state.LevelUpdate, side string, midF float64) []types.Anomaly {
	if len(levels) == 0 {
		return nil
	}
	n := len(levels)
	if n > 10 {
		n = 10
	}

	// The size baseline is the mean over the full side, even though only
	// the top 10 levels are evaluated for flagging.
	avgQty := averageQty(levels)

	var out []types.Anomaly
	for _, lv := range levels[:n] {
		priceF, _ := lv.Price.Float64()
		qtyF, _ := lv.Qty.Float64()
		distanceBps := math.Abs((priceF - midF) / midF * 10000)
		if distanceBps <= spoofingDistanceThresholdBps {
			continue
		}
		if qtyF <= avgQty*2 {
			continue
		}
		severity := "low"
		switch {
		case qtyF > avgQty*5 && distanceBps > 100:
			severity = "high"
		case qtyF > avgQty*3:
			severity = "medium"
		}
		out = append(out, types.Anomaly{
			Type:        "spoofing",
			Side:        side,
			Price:       lv.Price,
			Quantity:    lv.Qty,
			DistanceBps: int(distanceBps),
			Severity:    severity,
			Note:        fmt.Sprintf("Large %s %.2f at %.0fbps from mid, potential spoofing", side, qtyF, distanceBps),
		})
	}
	return out
}

func averageQty(levels []state.LevelUpdate) float64 {
	if len(levels) == 0 {
		return 0
	}
	sum := 0.0
	for _, lv := range levels {
		f, _ := lv.Qty.Float64()
		sum += f
	}
	return sum / float64(len(levels))
}

type icebergGroup struct {
	trades    []types.TradeTick
	totalVol  decimal.Decimal
	buyCount  int
	sellCount int
}

// DetectIceberg groups trades by near-identical price and flags groups
// with 5+ fills as potential iceberg orders. Side is assigned by which
// aggressor dominates the group: buyers hitting resting asks flags the
// ask side, sellers hitting resting bids flags the bid side. A tie
// (equal buy/sell counts) is treated as seller-initiated and assigned to
// the bid side.
func DetectIceberg(trades []types.TradeTick, priceTolerancePct float64) []types.Anomaly {
	if len(trades) < icebergMinFillCount {
		return nil
	}

	groups := map[string]*icebergGroup{}
	order := make([]string, 0)
	for _, t := range trades {
		priceF, _ := t.Price.Float64()
		tol := priceF * priceTolerancePct / 100
		if tol <= 0 {
			tol = 1
		}
		bucket := math.Round(priceF/tol) * tol
		key := fmt.Sprintf("%.8f", bucket)

		g, ok := groups[key]
		if !ok {
			g = &icebergGroup{}
			groups[key] = g
			order = append(order, key)
		}
		g.trades = append(g.trades, t)
		g.totalVol = g.totalVol.Add(t.Volume)
		if t.Aggressor == types.BUY {
			g.buyCount++
		} else {
			g.sellCount++
		}
	}

	var out []types.Anomaly
	for _, key := range order {
		g := groups[key]
		fillCount := len(g.trades)
		if fillCount < icebergMinFillCount {
			continue
		}
		side := "bid"
		if g.buyCount > g.sellCount {
			side = "ask"
		}
		severity := "low"
		switch {
		case fillCount >= 20:
			severity = "high"
		case fillCount >= 10:
			severity = "medium"
		}
		priceF, _ := g.trades[0].Price.Float64()
		out = append(out, types.Anomaly{
			Type:        "iceberg",
			Side:        side,
			Price:       decimal.NewFromFloat(priceF),
			FillCount:   fillCount,
			TotalVolume: g.totalVol.Round(8),
			Severity:    severity,
			Note:        fmt.Sprintf("%d fills at ~%.2f with stable depth, potential iceberg", fillCount, priceF),
		})
	}
	return out
}

// DetectFlashCrashRisk signals flash-crash conditions when at least 2 of 3
// proxy signals trigger: wide spread, thin/imbalanced book, and
// decelerating flow. Returns ok=false if fewer than 2 signals are active.
func DetectFlashCrashRisk(spreadBps, depthImbalance, flowAcceleration float64) (types.Anomaly, bool) {
	var signals []string
	if spreadBps > flashCrashSpreadThresholdBps {
		signals = append(signals, "spread_widening")
	}
	if math.Abs(depthImbalance) > flashCrashImbalanceThreshold {
		signals = append(signals, "thin_book")
	}
	if flowAcceleration < flashCrashFlowThreshold {
		signals = append(signals, "negative_flow")
	}
	if len(signals) < 2 {
		return types.Anomaly{}, false
	}

	severity := "medium"
	if len(signals) == 3 {
		severity = "high"
	}

	return types.Anomaly{
		Type:             "flash_crash_risk",
		TriggeredSignals: signals,
		Severity:         severity,
		Note:             fmt.Sprintf("%d of 3 flash crash signals active", len(signals)),
		Details: &types.AnomalyDetails{
			SpreadBps:        spreadBps,
			DepthImbalance:   depthImbalance,
			FlowAcceleration: flowAcceleration,
		},
	}, true
}
