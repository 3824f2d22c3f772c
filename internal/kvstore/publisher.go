package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/forgequant/nimbus-trader/internal/types"
)

// DefaultPublishRetries bounds report-publication retries: transient store
// errors get three attempts and are never fatal to the cycle.
const DefaultPublishRetries = 3

// publishRetryBaseDelay is the starting backoff; each retry doubles it.
const publishRetryBaseDelay = 100 * time.Millisecond

// PublishReport writes a report to report:{symbol}, making up to
// DefaultPublishRetries attempts with exponential backoff between them. The
// write is an idempotent overwrite using SET KEEPTTL, so any expiry an
// operator or consumer has placed on the key survives updates. No
// compare-and-swap is required because staleness is fenced at the
// writer-token layer, not here.
func (s *Store) PublishReport(ctx context.Context, rep types.Report) error {
	payload, err := json.Marshal(rep)
	if err != nil {
		return fmt.Errorf("marshal report %s: %w", rep.Symbol, err)
	}

	return withRetry(ctx, DefaultPublishRetries, publishRetryBaseDelay, func() error {
		return s.rdb.Set(ctx, s.reportKey(string(rep.Symbol)), payload, redis.KeepTTL).Err()
	})
}

// GetReport reads the current report for a symbol, used by the slow cycle
// to enrich the fast report already published. Returns ok=false if no
// report has been published yet.
func (s *Store) GetReport(ctx context.Context, symbol string) (types.Report, bool, error) {
	data, err := s.rdb.Get(ctx, s.reportKey(symbol)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return types.Report{}, false, nil
		}
		return types.Report{}, false, fmt.Errorf("get report %s: %w", symbol, err)
	}
	var rep types.Report
	if err := json.Unmarshal(data, &rep); err != nil {
		return types.Report{}, false, fmt.Errorf("unmarshal report %s: %w", symbol, err)
	}
	return rep, true, nil
}
