package calculators

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/forgequant/nimbus-trader/internal/state"
	"github.com/forgequant/nimbus-trader/internal/types"
)

const (
	minTradesForVolumeProfile = 10
	defaultBinsPerTick        = 5
	valueAreaTarget           = 0.70
)

// VolumeProfileResult is the POC/VAH/VAL bundle, tick-binned over a trade
// window.
type VolumeProfileResult struct {
	POC        decimal.Decimal
	VAH        decimal.Decimal
	VAL        decimal.Decimal
	WindowSec  int64
	TradeCount int
}

// CalculateVolumeProfile bins trades into tick-sized buckets weighted by
// volume, then expands outward from the Point of Control until 70% of
// total volume is enclosed (the Value Area). Requires at least 10 trades;
// returns ok=false otherwise or if the VAL <= POC <= VAH check fails.
// Trades at a single price yield a one-bin value area around that price.
func CalculateVolumeProfile(trades []types.TradeTick, tickSize float64) (VolumeProfileResult, bool) {
	if len(trades) < minTradesForVolumeProfile {
		return VolumeProfileResult{}, false
	}

	minPrice, maxPrice := math.MaxFloat64, -math.MaxFloat64
	for _, t := range trades {
		p, _ := t.Price.Float64()
		if p < minPrice {
			minPrice = p
		}
		if p > maxPrice {
			maxPrice = p
		}
	}

	binSize := tickSize / float64(defaultBinsPerTick)
	if binSize <= 0 {
		binSize = 0.01 / float64(defaultBinsPerTick)
	}
	binCount := int((maxPrice-minPrice)/binSize) + 2
	if binCount < 1 {
		binCount = 1
	}

	hist := make([]float64, binCount)
	edges := make([]float64, binCount+1)
	for i := range edges {
		edges[i] = minPrice + float64(i)*binSize
	}
	for _, t := range trades {
		p, _ := t.Price.Float64()
		v, _ := t.Volume.Float64()
		idx := int((p - minPrice) / binSize)
		if idx < 0 {
			idx = 0
		}
		if idx >= binCount {
			idx = binCount - 1
		}
		hist[idx] += v
	}

	pocIdx := 0
	for i, v := range hist {
		if v > hist[pocIdx] {
			pocIdx = i
		}
	}
	pocPrice := (edges[pocIdx] + edges[pocIdx+1]) / 2

	total := 0.0
	for _, v := range hist {
		total += v
	}
	target := total * valueAreaTarget

	left, right := pocIdx, pocIdx
	accumulated := hist[pocIdx]
	for accumulated < target {
		leftVol := 0.0
		if left > 0 {
			leftVol = hist[left-1]
		}
		rightVol := 0.0
		if right < len(hist)-1 {
			rightVol = hist[right+1]
		}

		if leftVol >= rightVol && left > 0 {
			left--
			accumulated += hist[left]
		} else if right < len(hist)-1 {
			right++
			accumulated += hist[right]
		} else {
			break
		}
	}

	val := edges[left]
	vah := edges[right+1]
	if !(val <= pocPrice && pocPrice <= vah) {
		return VolumeProfileResult{}, false
	}

	windowSec := int64(0)
	if len(trades) >= 2 {
		windowSec = int64(trades[len(trades)-1].Timestamp.Sub(trades[0].Timestamp).Seconds())
	}

	return VolumeProfileResult{
		POC:        decimal.NewFromFloat(pocPrice),
		VAH:        decimal.NewFromFloat(vah),
		VAL:        decimal.NewFromFloat(val),
		WindowSec:  windowSec,
		TradeCount: len(trades),
	}, true
}

// percentileLinear computes the p-th percentile (0-100) of values using
// linear interpolation between closest ranks, matching numpy's default
// "linear" method.
func percentileLinear(values []decimal.Decimal, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	floats := make([]float64, len(values))
	for i, v := range values {
		floats[i], _ = v.Float64()
	}
	sort.Float64s(floats)

	rank := (p / 100) * float64(len(floats)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return floats[lo]
	}
	frac := rank - float64(lo)
	return floats[lo] + (floats[hi]-floats[lo])*frac
}

// DetectLiquidityWalls flags resting levels at least 1.5x the P95 quantity
// baseline, classified high/medium/low by how far past that baseline they
// sit.
func DetectLiquidityWalls(topBids, topAsks []state.LevelUpdate, qtyHistory []decimal.Decimal, bestBid, bestAsk types.PriceQty, haveBid, haveAsk bool) []types.LiquidityWall {
	var walls []types.LiquidityWall
	if len(qtyHistory) < 10 || !haveBid || !haveAsk {
		return walls
	}
	p95 := percentileLinear(qtyHistory, 95)
	mid := bestBid.Price.Add(bestAsk.Price).Div(decimal.NewFromInt(2))
	midF, _ := mid.Float64()

	walls = append(walls, wallsForSide(topBids, "bid", p95, midF)...)
	walls = append(walls, wallsForSide(topAsks, "ask", p95, midF)...)
	return walls
}

func wallsForSide(levels []state.LevelUpdate, side string, p95, midF float64) []types.LiquidityWall {
	var out []types.LiquidityWall
	for _, lv := range levels {
		qtyF, _ := lv.Qty.Float64()
		if qtyF < p95*1.5 {
			continue
		}
		severity := "low"
		switch {
		case qtyF >= p95*3.0:
			severity = "high"
		case qtyF >= p95*2.0:
			severity = "medium"
		}
		priceF, _ := lv.Price.Float64()
		distanceBps := int(math.Abs((priceF - midF) / midF * 10000))
		out = append(out, types.LiquidityWall{
			Side:        side,
			Price:       lv.Price,
			Quantity:    lv.Qty,
			Severity:    severity,
			DistanceBps: distanceBps,
		})
	}
	return out
}

// DetectLiquidityVacuums flags runs of 3+ consecutive levels below the P10
// quantity baseline.
func DetectLiquidityVacuums(topBids, topAsks []state.LevelUpdate, qtyHistory []decimal.Decimal) []types.LiquidityVacuum {
	var vacuums []types.LiquidityVacuum
	if len(qtyHistory) < 10 {
		return vacuums
	}
	p10 := percentileLinear(qtyHistory, 10)

	vacuums = append(vacuums, vacuumsForSide(topBids, "bid", p10)...)
	vacuums = append(vacuums, vacuumsForSide(topAsks, "ask", p10)...)
	return vacuums
}

func vacuumsForSide(levels []state.LevelUpdate, side string, p10 float64) []types.LiquidityVacuum {
	var out []types.LiquidityVacuum
	var run []decimal.Decimal

	flush := func() {
		if len(run) < 3 {
			run = nil
			return
		}
		severity := "low"
		switch {
		case len(run) >= 10:
			severity = "high"
		case len(run) >= 6:
			severity = "medium"
		}
		out = append(out, types.LiquidityVacuum{
			Side:       side,
			PriceStart: run[0],
			PriceEnd:   run[len(run)-1],
			LevelCount: len(run),
			Severity:   severity,
		})
		run = nil
	}

	for _, lv := range levels {
		qtyF, _ := lv.Qty.Float64()
		if qtyF < p10 {
			run = append(run, lv.Price)
		} else {
			flush()
		}
	}
	flush()

	return out
}
