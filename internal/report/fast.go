// Package report builds and enriches the versioned market report:
// the fast cycle produces the schema-1.1 document from live book/flow
// state every report_period_ms, and the slow cycle enriches it with
// volume profile, liquidity, and anomaly analytics every slow_period_ms.
package report

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/forgequant/nimbus-trader/internal/calculators"
	"github.com/forgequant/nimbus-trader/internal/state"
	"github.com/forgequant/nimbus-trader/internal/types"
)

const (
	schemaVersion = "1.1"
	venue         = "BINANCE"

	fastFlowWindowSec = 10
	netFlowWindowSec  = 30
)

// BookSource is the narrow view of per-symbol market state the report
// builders consume. state.SymbolState satisfies it directly; any other
// upstream book shape is adapted to this one capability set once, at the
// boundary, instead of being probed per call.
type BookSource interface {
	BestBid() (types.PriceQty, bool)
	BestAsk() (types.PriceQty, bool)
	TopBids(n int) []state.LevelUpdate
	TopAsks(n int) []state.LevelUpdate
	TradesInWindow(window time.Duration) []types.TradeTick
	Trades30Min() []types.TradeTick
	QuantityHistorySnapshot() []decimal.Decimal
	LastTrade() (types.TradeTick, bool)
	LastEventTime() (time.Time, bool)
	DataAgeMs() (int64, bool)
}

// BuildFast assembles the fast-cycle report for a symbol. Returns
// ok=false if best bid/ask are not both present: a fast report requires a
// complete top-of-book.
func BuildFast(s BookSource, symbol types.Symbol, nodeID string, writerToken int64, mode string, ticker *types.TickerData, now time.Time) (types.Report, bool) {
	bid, haveBid := s.BestBid()
	ask, haveAsk := s.BestAsk()
	if !haveBid || !haveAsk {
		return types.Report{}, false
	}

	spreadMetrics, ok := calculators.CalculateSpreadMetrics(bid, ask, haveBid, haveAsk)
	if !ok {
		return types.Report{}, false
	}

	depthMetrics, ok := calculators.CalculateDepthMetrics(s.TopBids(state.TopN), s.TopAsks(state.TopN))
	if !ok {
		return types.Report{}, false
	}

	dataAgeMs, haveAge := s.DataAgeMs()
	var dataAgePtr *int64
	if haveAge {
		dataAgePtr = &dataAgeMs
	}

	ingestionStatus := "ok"
	switch {
	case !haveAge || dataAgeMs > 2000:
		ingestionStatus = "down"
	case dataAgeMs > 1000:
		ingestionStatus = "degraded"
	}

	lastUpdate := now
	if ts, ok := s.LastEventTime(); ok {
		lastUpdate = ts
	}

	flowWindow := fastFlowWindowSec * time.Second
	ordersPerSec := calculators.OrdersPerSec(s.TradesInWindow(flowWindow), fastFlowWindowSec)

	netFlow, haveNetFlow := calculators.NetFlow(s.TradesInWindow(netFlowWindowSec * time.Second))
	netFlowAmount := decimal.Zero
	if haveNetFlow {
		netFlowAmount = netFlow.NetFlow
	}

	spreadBps := spreadMetrics.SpreadBps
	imbalance := depthMetrics.Imbalance
	health := calculators.CalculateHealthScore(dataAgePtr, &spreadBps, &imbalance, false)

	lastTrade, haveLastTrade := s.LastTrade()
	lastPrice := spreadMetrics.MidPrice
	if haveLastTrade {
		lastPrice = lastTrade.Price
	}

	change24h, high24h, low24h, volume24h := 0.0, lastPrice, lastPrice, decimal.Zero
	if ticker != nil {
		change24h = ticker.Change24hPct
		high24h = ticker.High24h
		low24h = ticker.Low24h
		volume24h = ticker.Volume24h
	}

	return types.Report{
		SchemaVersion: schemaVersion,
		Writer: types.Writer{
			NodeID:      nodeID,
			WriterToken: writerToken,
			Mode:        mode,
		},
		UpdatedAt:   now.UnixMilli(),
		Symbol:      symbol,
		Venue:       venue,
		GeneratedAt: now.UTC().Format(time.RFC3339Nano),
		DataAgeMs:   dataAgeMsOrZero(dataAgePtr),
		Ingestion: types.Ingestion{
			Status:     ingestionStatus,
			LastUpdate: lastUpdate.UTC().Format(time.RFC3339Nano),
		},
		LastPrice:    lastPrice,
		Change24hPct: change24h,
		High24h:      high24h,
		Low24h:       low24h,
		Volume24h:    volume24h,
		BestBid:      types.BestQuote{Price: bid.Price, Qty: bid.Qty},
		BestAsk:      types.BestQuote{Price: ask.Price, Qty: ask.Qty},
		SpreadBps:    spreadMetrics.SpreadBps,
		MidPrice:     spreadMetrics.MidPrice,
		MicroPrice:   spreadMetrics.MicroPrice,
		Depth: types.Depth{
			Top20Bid:  calculators.ToBestQuotes(s.TopBids(state.TopN)),
			Top20Ask:  calculators.ToBestQuotes(s.TopAsks(state.TopN)),
			SumBid:    depthMetrics.SumBid,
			SumAsk:    depthMetrics.SumAsk,
			Imbalance: depthMetrics.Imbalance,
		},
		Flow: types.Flow{
			OrdersPerSec: ordersPerSec,
			NetFlow:      netFlowAmount,
		},
		Health: health,
	}, true
}

func dataAgeMsOrZero(p *int64) int64 {
	if p == nil {
		return 0
	}
	return *p
}
