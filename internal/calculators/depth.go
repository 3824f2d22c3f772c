package calculators

import (
	"github.com/shopspring/decimal"

	"github.com/forgequant/nimbus-trader/internal/state"
	"github.com/forgequant/nimbus-trader/internal/types"
)

// DepthMetrics bundles the summed top-of-book quantities and the signed
// imbalance between them.
type DepthMetrics struct {
	SumBid    decimal.Decimal
	SumAsk    decimal.Decimal
	Imbalance float64
}

// CalculateDepthMetrics sums the top bid/ask levels and derives imbalance,
// (bid-ask)/(bid+ask) in [-1, 1]. Returns ok=false if either side is empty.
func CalculateDepthMetrics(topBids, topAsks []state.LevelUpdate) (DepthMetrics, bool) {
	if len(topBids) == 0 || len(topAsks) == 0 {
		return DepthMetrics{}, false
	}
	sumBid := sumQty(topBids)
	sumAsk := sumQty(topAsks)

	total := sumBid.Add(sumAsk)
	imbalance := 0.0
	if total.Sign() != 0 {
		imbalance, _ = sumBid.Sub(sumAsk).Div(total).Round(4).Float64()
	}

	return DepthMetrics{
		SumBid:    sumBid.Round(8),
		SumAsk:    sumAsk.Round(8),
		Imbalance: imbalance,
	}, true
}

func sumQty(levels []state.LevelUpdate) decimal.Decimal {
	sum := decimal.Zero
	for _, lv := range levels {
		sum = sum.Add(lv.Qty)
	}
	return sum
}

// ToBestQuotes converts level updates into the report's BestQuote slice.
func ToBestQuotes(levels []state.LevelUpdate) []types.BestQuote {
	out := make([]types.BestQuote, len(levels))
	for i, lv := range levels {
		out[i] = types.BestQuote{Price: lv.Price, Qty: lv.Qty}
	}
	return out
}
