package calculators

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/forgequant/nimbus-trader/internal/types"
)

// OrdersPerSec returns the trade rate over the given window, counting
// entries already filtered to that window by the caller (state.SymbolState
// exposes window-bucketed trade slices directly).
func OrdersPerSec(trades []types.TradeTick, windowSeconds float64) float64 {
	if len(trades) == 0 || windowSeconds <= 0 {
		return 0
	}
	rate := float64(len(trades)) / windowSeconds
	return round2(rate)
}

// NetFlowResult bundles buy/sell volume and their signed difference over a
// window. ok=false when the window contained no trades.
type NetFlowResult struct {
	BuyVolume  decimal.Decimal
	SellVolume decimal.Decimal
	NetFlow    decimal.Decimal
}

// NetFlow sums buy and sell volume in the given (already windowed) trades
// and returns the signed difference. Positive means buying pressure.
func NetFlow(trades []types.TradeTick) (NetFlowResult, bool) {
	if len(trades) == 0 {
		return NetFlowResult{}, false
	}
	buy := decimal.Zero
	sell := decimal.Zero
	for _, t := range trades {
		switch t.Aggressor {
		case types.BUY:
			buy = buy.Add(t.Volume)
		case types.SELL:
			sell = sell.Add(t.Volume)
		}
	}
	return NetFlowResult{
		BuyVolume:  buy.Round(8),
		SellVolume: sell.Round(8),
		NetFlow:    buy.Sub(sell).Round(8),
	}, true
}

// FlowAcceleration measures the change in trade rate between the newer and
// older half of a window, in orders/sec². trades must be pre-filtered to
// the full window (e.g. the 10s buffer); now is the reference instant.
func FlowAcceleration(trades []types.TradeTick, windowSeconds float64, now time.Time) float64 {
	if len(trades) < 2 || windowSeconds <= 0 {
		return 0
	}
	half := time.Duration(windowSeconds/2*1000) * time.Millisecond

	var recent, older int
	for _, t := range trades {
		age := now.Sub(t.Timestamp)
		if age <= half {
			recent++
		} else if age <= time.Duration(windowSeconds*1000)*time.Millisecond {
			older++
		}
	}
	if recent == 0 || older == 0 {
		return 0
	}

	halfSec := windowSeconds / 2
	recentRate := float64(recent) / halfSec
	olderRate := float64(older) / halfSec
	return (recentRate - olderRate) / halfSec
}

func round2(v float64) float64 {
	return float64(int64(v*100+sign(v)*0.5)) / 100
}

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}
