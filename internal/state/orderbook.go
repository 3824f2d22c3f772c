package state

import (
	"sort"

	"github.com/shopspring/decimal"
)

// TopN is the number of price levels retained per side.
const TopN = 20

// OrderBookL2 holds two price->qty maps plus cached top-N projections
// (bids descending, asks ascending). Top-N is a pure function of the
// underlying maps: it is recomputed whenever a map mutates.
type OrderBookL2 struct {
	bids map[string]decimal.Decimal // keyed by price.String() to avoid float key aliasing
	asks map[string]decimal.Decimal

	bidPrices map[string]decimal.Decimal // price.String() -> decimal.Decimal, for sorting
	askPrices map[string]decimal.Decimal

	topBids []decimal.Decimal // cached sorted price keys, descending
	topAsks []decimal.Decimal // cached sorted price keys, ascending
}

// NewOrderBookL2 creates an empty order book.
func NewOrderBookL2() *OrderBookL2 {
	return &OrderBookL2{
		bids:      make(map[string]decimal.Decimal),
		asks:      make(map[string]decimal.Decimal),
		bidPrices: make(map[string]decimal.Decimal),
		askPrices: make(map[string]decimal.Decimal),
	}
}

// UpdateBid inserts/replaces a bid level, or removes it if qty == 0. No
// negative or zero qty entries ever remain in the maps.
func (b *OrderBookL2) UpdateBid(price, qty decimal.Decimal) {
	updateLevel(b.bids, b.bidPrices, price, qty)
	b.recomputeBids()
}

// UpdateAsk inserts/replaces an ask level, or removes it if qty == 0.
func (b *OrderBookL2) UpdateAsk(price, qty decimal.Decimal) {
	updateLevel(b.asks, b.askPrices, price, qty)
	b.recomputeAsks()
}

// ReplaceBids replaces the entire bid side with the given levels, as the
// upstream depth stream delivers full top-20 snapshots.
func (b *OrderBookL2) ReplaceBids(levels []LevelUpdate) {
	b.bids = make(map[string]decimal.Decimal, len(levels))
	b.bidPrices = make(map[string]decimal.Decimal, len(levels))
	for _, lv := range levels {
		if lv.Qty.Sign() <= 0 {
			continue
		}
		key := lv.Price.String()
		b.bids[key] = lv.Qty
		b.bidPrices[key] = lv.Price
	}
	b.recomputeBids()
}

// ReplaceAsks replaces the entire ask side with the given levels.
func (b *OrderBookL2) ReplaceAsks(levels []LevelUpdate) {
	b.asks = make(map[string]decimal.Decimal, len(levels))
	b.askPrices = make(map[string]decimal.Decimal, len(levels))
	for _, lv := range levels {
		if lv.Qty.Sign() <= 0 {
			continue
		}
		key := lv.Price.String()
		b.asks[key] = lv.Qty
		b.askPrices[key] = lv.Price
	}
	b.recomputeAsks()
}

// LevelUpdate is a single price/qty pair delivered by an order-book-delta
// or full-snapshot event.
type LevelUpdate struct {
	Price decimal.Decimal
	Qty   decimal.Decimal
}

func updateLevel(qtyMap, priceMap map[string]decimal.Decimal, price, qty decimal.Decimal) {
	key := price.String()
	if qty.Sign() <= 0 {
		delete(qtyMap, key)
		delete(priceMap, key)
		return
	}
	qtyMap[key] = qty
	priceMap[key] = price
}

func (b *OrderBookL2) recomputeBids() {
	prices := make([]decimal.Decimal, 0, len(b.bidPrices))
	for _, p := range b.bidPrices {
		prices = append(prices, p)
	}
	sort.Slice(prices, func(i, j int) bool { return prices[i].GreaterThan(prices[j]) })
	if len(prices) > TopN {
		prices = prices[:TopN]
	}
	b.topBids = prices
}

func (b *OrderBookL2) recomputeAsks() {
	prices := make([]decimal.Decimal, 0, len(b.askPrices))
	for _, p := range b.askPrices {
		prices = append(prices, p)
	}
	sort.Slice(prices, func(i, j int) bool { return prices[i].LessThan(prices[j]) })
	if len(prices) > TopN {
		prices = prices[:TopN]
	}
	b.topAsks = prices
}

// BestBid returns the highest bid level, if any.
func (b *OrderBookL2) BestBid() (decimal.Decimal, decimal.Decimal, bool) {
	if len(b.topBids) == 0 {
		return decimal.Zero, decimal.Zero, false
	}
	p := b.topBids[0]
	return p, b.bids[p.String()], true
}

// BestAsk returns the lowest ask level, if any.
func (b *OrderBookL2) BestAsk() (decimal.Decimal, decimal.Decimal, bool) {
	if len(b.topAsks) == 0 {
		return decimal.Zero, decimal.Zero, false
	}
	p := b.topAsks[0]
	return p, b.asks[p.String()], true
}

// TopBids returns up to n bid levels, best (highest) first.
func (b *OrderBookL2) TopBids(n int) []LevelUpdate {
	return levelsFrom(b.topBids, b.bids, n)
}

// TopAsks returns up to n ask levels, best (lowest) first.
func (b *OrderBookL2) TopAsks(n int) []LevelUpdate {
	return levelsFrom(b.topAsks, b.asks, n)
}

func levelsFrom(prices []decimal.Decimal, qtyMap map[string]decimal.Decimal, n int) []LevelUpdate {
	if n > len(prices) {
		n = len(prices)
	}
	out := make([]LevelUpdate, n)
	for i := 0; i < n; i++ {
		p := prices[i]
		out[i] = LevelUpdate{Price: p, Qty: qtyMap[p.String()]}
	}
	return out
}
