// Package types defines shared data structures used across all packages.
//
// This is the common vocabulary for the producer — symbols, order book
// levels, trade ticks, and the report DTOs that get published to the KV
// store. It has no dependencies on internal packages, so it can be
// imported by any layer.
package types

import (
	"fmt"
	"regexp"
	"time"

	"github.com/shopspring/decimal"
)

// Side identifies the aggressor side of a trade.
type Side string

const (
	BUY  Side = "BUY"
	SELL Side = "SELL"
)

// Symbol is an opaque uppercase alphanumeric trading pair identifier ending
// in a fixed quote currency suffix, e.g. "BTCUSDT".
type Symbol string

var symbolPattern = regexp.MustCompile(`^[A-Z0-9]+USDT$`)

// ValidateSymbol checks a symbol against the deployment's quote-currency
// suffix pattern. The quote currency is a deployment constant (USDT in the
// reference deployment).
func ValidateSymbol(s Symbol) error {
	if !symbolPattern.MatchString(string(s)) {
		return fmt.Errorf("invalid symbol %q: must match %s", s, symbolPattern.String())
	}
	return nil
}

// PriceQty is a single price/quantity pair. A qty of zero on an incoming
// update means "remove this level"; NewPriceQty requires price > 0 and
// qty >= 0.
type PriceQty struct {
	Price decimal.Decimal
	Qty   decimal.Decimal
}

// NewPriceQty validates and constructs a PriceQty. Non-positive price or
// negative qty are rejected here so downstream code never has to guard
// against them.
func NewPriceQty(price, qty decimal.Decimal) (PriceQty, error) {
	if price.Sign() <= 0 {
		return PriceQty{}, fmt.Errorf("price must be > 0, got %s", price)
	}
	if qty.Sign() < 0 {
		return PriceQty{}, fmt.Errorf("qty must be >= 0, got %s", qty)
	}
	return PriceQty{Price: price, Qty: qty}, nil
}

// TradeTick is a single executed trade.
type TradeTick struct {
	Timestamp time.Time
	Price     decimal.Decimal
	Volume    decimal.Decimal
	Aggressor Side
}

// Writer identifies the node and fencing token that produced a report.
type Writer struct {
	NodeID      string `json:"nodeId"`
	WriterToken int64  `json:"writerToken"`
	// Mode distinguishes single-instance from coordinated deployments so
	// downstream consumers can tell them apart if a deployment mixes modes.
	Mode string `json:"mode"`
}

// Ingestion describes the freshness of the underlying market data.
type Ingestion struct {
	Status     string `json:"status"` // ok | degraded | down
	LastUpdate string `json:"last_update"`
}

// BestQuote is a best-bid or best-ask entry in the report.
type BestQuote struct {
	Price decimal.Decimal `json:"price"`
	Qty   decimal.Decimal `json:"qty"`
}

// Depth carries top-of-book and aggregate depth metrics.
type Depth struct {
	Top20Bid  []BestQuote     `json:"top20_bid"`
	Top20Ask  []BestQuote     `json:"top20_ask"`
	SumBid    decimal.Decimal `json:"sum_bid"`
	SumAsk    decimal.Decimal `json:"sum_ask"`
	Imbalance float64         `json:"imbalance"`
}

// Flow carries order-flow metrics.
type Flow struct {
	OrdersPerSec float64         `json:"orders_per_sec"`
	NetFlow      decimal.Decimal `json:"net_flow"`
}

// HealthComponents is the weighted breakdown of the health score.
type HealthComponents struct {
	Spread    float64 `json:"spread"`
	Depth     float64 `json:"depth"`
	Balance   float64 `json:"balance"`
	Flow      float64 `json:"flow"`
	Anomalies float64 `json:"anomalies"`
	Freshness float64 `json:"freshness"`
}

// Health is the health score section of the report.
type Health struct {
	Score      int              `json:"score"`
	Status     string           `json:"status"`
	Components HealthComponents `json:"components"`
	// Issues lists the human-readable reasons behind any score deduction.
	Issues []string `json:"issues,omitempty"`
}

// VolumeProfile is the POC/VAH/VAL bundle from the slow cycle.
type VolumeProfile struct {
	POC        decimal.Decimal `json:"POC"`
	VAH        decimal.Decimal `json:"VAH"`
	VAL        decimal.Decimal `json:"VAL"`
	WindowSec  int64           `json:"window_sec"`
	TradeCount int             `json:"trade_count"`
}

// Analytics bundles the slow-cycle analytics that enrich a fast report.
type Analytics struct {
	VolumeProfile *VolumeProfile `json:"volume_profile,omitempty"`
}

// LiquidityWall is a detected concentration of resting size.
type LiquidityWall struct {
	Side        string          `json:"side"`
	Price       decimal.Decimal `json:"price"`
	Quantity    decimal.Decimal `json:"quantity"`
	Severity    string          `json:"severity"`
	DistanceBps int             `json:"distance_bps"`
}

// LiquidityVacuum is a run of abnormally thin levels.
type LiquidityVacuum struct {
	Side       string          `json:"side"`
	PriceStart decimal.Decimal `json:"price_start"`
	PriceEnd   decimal.Decimal `json:"price_end"`
	LevelCount int             `json:"level_count"`
	Severity   string          `json:"severity"`
}

// Liquidity bundles liquidity-wall and liquidity-vacuum detections.
type Liquidity struct {
	Walls   []LiquidityWall   `json:"walls,omitempty"`
	Vacuums []LiquidityVacuum `json:"vacuums,omitempty"`
}

// AnomalyDetails carries the raw inputs behind a flash-crash-risk signal
// so consumers can see what tripped it.
type AnomalyDetails struct {
	SpreadBps        float64 `json:"spread_bps"`
	DepthImbalance   float64 `json:"depth_imbalance"`
	FlowAcceleration float64 `json:"flow_acceleration"`
}

// Anomaly is a single detected microstructure anomaly (spoofing, iceberg,
// or flash-crash risk).
type Anomaly struct {
	Type             string          `json:"type"`
	Side             string          `json:"side,omitempty"`
	Price            decimal.Decimal `json:"price,omitempty"`
	Quantity         decimal.Decimal `json:"quantity,omitempty"`
	DistanceBps      int             `json:"distance_bps,omitempty"`
	FillCount        int             `json:"fill_count,omitempty"`
	TotalVolume      decimal.Decimal `json:"total_volume,omitempty"`
	TriggeredSignals []string        `json:"triggered_signals,omitempty"`
	Severity         string          `json:"severity"`
	Note             string          `json:"note"`
	Details          *AnomalyDetails `json:"details,omitempty"`
}

// Report is the versioned record published to report:{symbol}. Field names
// and nesting follow the published schemaVersion 1.1 document exactly.
type Report struct {
	SchemaVersion string    `json:"schemaVersion"`
	Writer        Writer    `json:"writer"`
	UpdatedAt     int64     `json:"updatedAt"`
	Symbol        Symbol    `json:"symbol"`
	Venue         string    `json:"venue"`
	GeneratedAt   string    `json:"generated_at"`
	DataAgeMs     int64     `json:"data_age_ms"`
	Ingestion     Ingestion `json:"ingestion"`

	LastPrice    decimal.Decimal `json:"last_price"`
	Change24hPct float64         `json:"change_24h_pct"`
	High24h      decimal.Decimal `json:"high_24h"`
	Low24h       decimal.Decimal `json:"low_24h"`
	Volume24h    decimal.Decimal `json:"volume_24h"`

	BestBid BestQuote `json:"best_bid"`
	BestAsk BestQuote `json:"best_ask"`

	SpreadBps  float64         `json:"spread_bps"`
	MidPrice   decimal.Decimal `json:"mid_price"`
	MicroPrice decimal.Decimal `json:"micro_price"`

	Depth  Depth  `json:"depth"`
	Flow   Flow   `json:"flow"`
	Health Health `json:"health"`

	Analytics *Analytics `json:"analytics,omitempty"`
	Liquidity *Liquidity `json:"liquidity,omitempty"`
	Anomalies []Anomaly  `json:"anomalies,omitempty"`

	SlowCycleUpdatedAt int64 `json:"slow_cycle_updated_at,omitempty"`
}

// TickerData is optional 24h ticker context supplied by an upstream feed;
// when it is nil the fast report builder falls back to derived values.
type TickerData struct {
	Change24hPct float64
	High24h      decimal.Decimal
	Low24h       decimal.Decimal
	Volume24h    decimal.Decimal
}
