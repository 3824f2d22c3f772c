// Package kvstore wraps the shared Redis-backed key/value store:
// report publication, node membership records, and writer-lease CAS
// operations. Every write carries the deployment's namespace prefix so
// multiple producer fleets can share one Redis instance.
package kvstore

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store wraps a go-redis client with the key naming shared by membership,
// lease, and report publication. Only report publication retries; the
// membership and lease calls make a single attempt.
type Store struct {
	rdb       *redis.Client
	namespace string
}

// New creates a Store from a Redis connection URL (redis://host:port/db).
// The namespace prefix is prepended to every key this store touches; pass
// "" to use the bare key names the report/lease/membership schema
// documents.
func New(redisURL, namespace string) (*Store, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &Store{rdb: redis.NewClient(opts), namespace: namespace}, nil
}

// NewFromClient wraps an already-constructed go-redis client, used by
// tests to point a Store at a miniredis instance.
func NewFromClient(rdb *redis.Client, namespace string) *Store {
	return &Store{rdb: rdb, namespace: namespace}
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.rdb.Close()
}

// Ping verifies connectivity, used as a startup readiness check.
func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *Store) key(parts ...string) string {
	k := parts[0]
	for _, p := range parts[1:] {
		k += ":" + p
	}
	if s.namespace == "" {
		return k
	}
	return s.namespace + k
}

func (s *Store) reportKey(symbol string) string      { return s.key("report", symbol) }
func (s *Store) nodeKey(nodeID string) string        { return s.key("node", nodeID) }
func (s *Store) nodesSeenKey() string                { return s.key("nodes_seen") }
func (s *Store) writerKey(symbol string) string      { return s.key("writer", symbol) }
func (s *Store) writerTokenKey(symbol string) string { return s.key("writer", "token", symbol) }

func withRetry(ctx context.Context, attempts int, baseDelay time.Duration, op func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = op(); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		delay := baseDelay * time.Duration(1<<uint(i))
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}
