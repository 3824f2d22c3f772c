// Package calculators holds pure functions over symbol state:
// spread/mid/micro price, depth imbalance, order flow, volume profile,
// liquidity walls/vacuums, anomaly detectors, and the health score. None
// of these functions hold state or perform I/O; every input is passed
// explicitly.
package calculators

import (
	"github.com/shopspring/decimal"

	"github.com/forgequant/nimbus-trader/internal/types"
)

var bpsScale = decimal.NewFromInt(10000)

// SpreadBps returns the bid/ask spread in basis points, or 0 if either side
// is not a valid positive price.
func SpreadBps(bid, ask types.PriceQty) float64 {
	if bid.Price.Sign() <= 0 || ask.Price.Sign() <= 0 {
		return 0
	}
	mid := bid.Price.Add(ask.Price).Div(decimal.NewFromInt(2))
	spread := ask.Price.Sub(bid.Price)
	bps, _ := spread.Div(mid).Mul(bpsScale).Round(4).Float64()
	return bps
}

// MidPrice returns the simple average of best bid and best ask.
func MidPrice(bid, ask types.PriceQty) decimal.Decimal {
	return bid.Price.Add(ask.Price).Div(decimal.NewFromInt(2)).Round(8)
}

// MicroPrice returns the volume-weighted microprice, falling back to the
// mid price when both sides carry zero quantity.
func MicroPrice(bid, ask types.PriceQty) decimal.Decimal {
	totalQty := bid.Qty.Add(ask.Qty)
	if totalQty.Sign() == 0 {
		return MidPrice(bid, ask)
	}
	micro := ask.Qty.Mul(bid.Price).Add(bid.Qty.Mul(ask.Price)).Div(totalQty)
	return micro.Round(8)
}

// SpreadMetrics bundles spread_bps/mid_price/micro_price, the fast-report
// spread section. Returns ok=false if either side of the book is missing.
type SpreadMetrics struct {
	SpreadBps  float64
	MidPrice   decimal.Decimal
	MicroPrice decimal.Decimal
}

// CalculateSpreadMetrics computes the full spread bundle, or ok=false if
// either best bid or best ask is absent.
func CalculateSpreadMetrics(bid, ask types.PriceQty, haveBid, haveAsk bool) (SpreadMetrics, bool) {
	if !haveBid || !haveAsk {
		return SpreadMetrics{}, false
	}
	return SpreadMetrics{
		SpreadBps:  SpreadBps(bid, ask),
		MidPrice:   MidPrice(bid, ask),
		MicroPrice: MicroPrice(bid, ask),
	}, true
}
