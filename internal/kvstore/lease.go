package kvstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrLeaseHeld is returned by Acquire when the symbol's lease is currently
// owned by a different node.
var ErrLeaseHeld = errors.New("kvstore: lease held by another node")

// ErrLeaseLost is returned by Renew when ownership was lost (e.g. the
// lease expired and another node acquired it before this renewal).
var ErrLeaseLost = errors.New("kvstore: lease ownership lost")

// acquireScript atomically claims writer:{symbol} for node_id if it is
// unowned or already owned by node_id, refreshing the TTL and returning
// the monotonically incremented fencing token from writer:token:{symbol}.
// Returns nil if the lease is held by someone else.
var acquireScript = redis.NewScript(`
local lease_key = KEYS[1]
local token_key = KEYS[2]
local node_id = ARGV[1]
local ttl_ms = tonumber(ARGV[2])

local current = redis.call("GET", lease_key)
if current and current ~= node_id then
  return nil
end

local token = redis.call("INCR", token_key)
redis.call("SET", lease_key, node_id, "PX", ttl_ms)
return token
`)

// renewScript extends the TTL of writer:{symbol} only if node_id still
// owns it. Returns 1 on success, 0 if ownership was lost.
var renewScript = redis.NewScript(`
local lease_key = KEYS[1]
local node_id = ARGV[1]
local ttl_ms = tonumber(ARGV[2])

local current = redis.call("GET", lease_key)
if current ~= node_id then
  return 0
end

redis.call("PEXPIRE", lease_key, ttl_ms)
return 1
`)

// releaseScript deletes writer:{symbol} only if node_id is the current
// owner, so a node can never release a lease it no longer holds. Returns
// 1 on success, 0 if not the owner.
var releaseScript = redis.NewScript(`
local lease_key = KEYS[1]
local node_id = ARGV[1]

local current = redis.call("GET", lease_key)
if current ~= node_id then
  return 0
end

redis.call("DEL", lease_key)
return 1
`)

// AcquireLease attempts to claim (or renew, if already owned) the writer
// lease for symbol. On success it returns the fencing token, which is
// guaranteed to be >= any token previously handed out for this symbol.
func (s *Store) AcquireLease(ctx context.Context, symbol, nodeID string, ttl time.Duration) (int64, error) {
	res, err := acquireScript.Run(ctx, s.rdb, []string{s.writerKey(symbol), s.writerTokenKey(symbol)}, nodeID, ttl.Milliseconds()).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, ErrLeaseHeld
		}
		return 0, fmt.Errorf("acquire lease %s: %w", symbol, err)
	}
	if res == nil {
		return 0, ErrLeaseHeld
	}
	token, ok := res.(int64)
	if !ok {
		return 0, fmt.Errorf("acquire lease %s: unexpected script result %v", symbol, res)
	}
	return token, nil
}

// RenewLease extends the lease's TTL if this node still owns it.
func (s *Store) RenewLease(ctx context.Context, symbol, nodeID string, ttl time.Duration) error {
	res, err := renewScript.Run(ctx, s.rdb, []string{s.writerKey(symbol)}, nodeID, ttl.Milliseconds()).Result()
	if err != nil {
		return fmt.Errorf("renew lease %s: %w", symbol, err)
	}
	if toInt64(res) != 1 {
		return ErrLeaseLost
	}
	return nil
}

// ReleaseLease voluntarily drops ownership of a symbol's lease (used when
// a rebalance reassigns the symbol elsewhere). It is a no-op error if this
// node no longer owns the lease.
func (s *Store) ReleaseLease(ctx context.Context, symbol, nodeID string) error {
	res, err := releaseScript.Run(ctx, s.rdb, []string{s.writerKey(symbol)}, nodeID).Result()
	if err != nil {
		return fmt.Errorf("release lease %s: %w", symbol, err)
	}
	if toInt64(res) != 1 {
		return ErrLeaseLost
	}
	return nil
}

// CurrentToken returns the latest fencing token issued for a symbol, or 0
// if none has been issued yet.
func (s *Store) CurrentToken(ctx context.Context, symbol string) (int64, error) {
	val, err := s.rdb.Get(ctx, s.writerTokenKey(symbol)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("get writer token %s: %w", symbol, err)
	}
	return val, nil
}

func toInt64(v interface{}) int64 {
	switch t := v.(type) {
	case int64:
		return t
	default:
		return -1
	}
}
