package feed

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/forgequant/nimbus-trader/internal/state"
	"github.com/forgequant/nimbus-trader/internal/types"
)

func decodeDepth(msg wireMessage) (BookSnapshot, error) {
	bids, err := decodeLevels(msg.Bids)
	if err != nil {
		return BookSnapshot{}, fmt.Errorf("bids: %w", err)
	}
	asks, err := decodeLevels(msg.Asks)
	if err != nil {
		return BookSnapshot{}, fmt.Errorf("asks: %w", err)
	}
	return BookSnapshot{
		Symbol:    msg.Symbol,
		Bids:      bids,
		Asks:      asks,
		EventTime: decodeEventTime(msg.EventTime),
	}, nil
}

func decodeLevels(raw [][2]string) ([]state.LevelUpdate, error) {
	levels := make([]state.LevelUpdate, 0, len(raw))
	for _, pair := range raw {
		price, err := decimal.NewFromString(pair[0])
		if err != nil {
			return nil, fmt.Errorf("price %q: %w", pair[0], err)
		}
		qty, err := decimal.NewFromString(pair[1])
		if err != nil {
			return nil, fmt.Errorf("qty %q: %w", pair[1], err)
		}
		levels = append(levels, state.LevelUpdate{Price: price, Qty: qty})
	}
	return levels, nil
}

func decodeTrade(msg wireMessage) (TradeEvent, error) {
	price, err := decimal.NewFromString(msg.Price)
	if err != nil {
		return TradeEvent{}, fmt.Errorf("price %q: %w", msg.Price, err)
	}
	qty, err := decimal.NewFromString(msg.Qty)
	if err != nil {
		return TradeEvent{}, fmt.Errorf("qty %q: %w", msg.Qty, err)
	}

	aggressor := types.BUY
	if msg.Side == "sell" {
		aggressor = types.SELL
	}

	return TradeEvent{
		Symbol: msg.Symbol,
		Tick: types.TradeTick{
			Timestamp: decodeEventTime(msg.EventTime),
			Price:     price,
			Volume:    qty,
			Aggressor: aggressor,
		},
	}, nil
}

// decodeEventTime parses a unix-millisecond event_time field, falling
// back to the current time when absent or malformed — the upstream
// feed is assumed to send event-time on every frame, but ingestion
// must never block or fail a whole frame over a clock field.
func decodeEventTime(raw json.RawMessage) time.Time {
	if len(raw) == 0 {
		return time.Now().UTC()
	}
	var millis int64
	if err := json.Unmarshal(raw, &millis); err != nil {
		return time.Now().UTC()
	}
	return time.UnixMilli(millis).UTC()
}
