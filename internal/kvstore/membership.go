package kvstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

func zMember(member string, score float64) redis.Z {
	return redis.Z{Score: score, Member: member}
}

// NodeRecord is the membership document published to node:{node_id}.
type NodeRecord struct {
	NodeID        string `json:"node_id"`
	Hostname      string `json:"hostname"`
	PID           int    `json:"pid"`
	StartedAt     string `json:"started_at"`
	MetricsURL    string `json:"metrics_url"`
	LastHeartbeat string `json:"last_heartbeat"`
}

// nodesSeenTrimWindow bounds how long the backup ZSET retains an entry
// past its last heartbeat, independent of the node:{id} key's own TTL.
const nodesSeenTrimWindow = 10 * time.Second

// Heartbeat writes the node's membership record with a TTL of
// heartbeatInterval*5 and refreshes its score in the nodes_seen backup
// ZSET, trimming entries older than nodesSeenTrimWindow in the same pass.
func (s *Store) Heartbeat(ctx context.Context, rec NodeRecord, heartbeatInterval time.Duration) error {
	ttl := heartbeatInterval * 5
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal node record: %w", err)
	}

	if err := s.rdb.Set(ctx, s.nodeKey(rec.NodeID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("set node record: %w", err)
	}

	now := float64(time.Now().UnixMilli()) / 1000
	if err := s.rdb.ZAdd(ctx, s.nodesSeenKey(), zMember(rec.NodeID, now)).Err(); err != nil {
		return fmt.Errorf("zadd nodes_seen: %w", err)
	}

	cutoff := now - nodesSeenTrimWindow.Seconds()
	if err := s.rdb.ZRemRangeByScore(ctx, s.nodesSeenKey(), "-inf", fmt.Sprintf("%f", cutoff)).Err(); err != nil {
		return fmt.Errorf("trim nodes_seen: %w", err)
	}
	return nil
}

// Discover scans for all live node:* records and returns the ones whose
// last_heartbeat falls within ttl of now.
func (s *Store) Discover(ctx context.Context, ttl time.Duration, now time.Time) ([]NodeRecord, error) {
	pattern := s.key("node", "*")
	var nodes []NodeRecord

	iter := s.rdb.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		data, err := s.rdb.Get(ctx, iter.Val()).Result()
		if err != nil {
			continue // key may have expired between SCAN and GET
		}
		var rec NodeRecord
		if err := json.Unmarshal([]byte(data), &rec); err != nil {
			continue
		}
		lastHB, err := time.Parse(time.RFC3339Nano, rec.LastHeartbeat)
		if err != nil {
			continue
		}
		if now.Sub(lastHB) <= ttl {
			nodes = append(nodes, rec)
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan nodes: %w", err)
	}
	return nodes, nil
}

// Cleanup removes a node's membership record and backup ZSET entry,
// called on graceful shutdown.
func (s *Store) Cleanup(ctx context.Context, nodeID string) error {
	if err := s.rdb.Del(ctx, s.nodeKey(nodeID)).Err(); err != nil {
		return fmt.Errorf("delete node record: %w", err)
	}
	if err := s.rdb.ZRem(ctx, s.nodesSeenKey(), nodeID).Err(); err != nil {
		return fmt.Errorf("zrem nodes_seen: %w", err)
	}
	return nil
}
