package feed

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// SnapshotClient fetches an initial full depth-20 order book over REST
// before the WebSocket connection starts delivering snapshots, so a
// freshly acquired symbol has a book to report against immediately.
type SnapshotClient struct {
	http *resty.Client
}

// NewSnapshotClient creates a REST bootstrap client against baseURL.
func NewSnapshotClient(baseURL string) *SnapshotClient {
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() >= 500
		})

	return &SnapshotClient{http: httpClient}
}

type depthResponse struct {
	Bids [][2]string `json:"bids"`
	Asks [][2]string `json:"asks"`
}

// FetchSnapshot fetches the current top-20 depth for symbol.
func (c *SnapshotClient) FetchSnapshot(ctx context.Context, symbol string) (BookSnapshot, error) {
	var result depthResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("symbol", symbol).
		SetQueryParam("limit", "20").
		SetResult(&result).
		Get("/depth")
	if err != nil {
		return BookSnapshot{}, fmt.Errorf("fetch depth snapshot: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return BookSnapshot{}, fmt.Errorf("fetch depth snapshot: status %d: %s", resp.StatusCode(), resp.String())
	}

	bids, err := decodeLevels(result.Bids)
	if err != nil {
		return BookSnapshot{}, fmt.Errorf("bids: %w", err)
	}
	asks, err := decodeLevels(result.Asks)
	if err != nil {
		return BookSnapshot{}, fmt.Errorf("asks: %w", err)
	}

	return BookSnapshot{
		Symbol:    symbol,
		Bids:      bids,
		Asks:      asks,
		EventTime: time.Now().UTC(),
	}, nil
}
