package coordinator

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/forgequant/nimbus-trader/internal/kvstore"
)

// Membership publishes this node's heartbeat and discovers active peers.
// It is a thin wrapper over kvstore.Store's membership calls carrying this
// node's identity.
type Membership struct {
	store      *kvstore.Store
	nodeID     string
	hostname   string
	pid        int
	metricsURL string
	startedAt  time.Time
	ttl        time.Duration
}

// NewMembership creates a membership manager. ttl should be
// heartbeatInterval * 5, per the KV schema's TTL policy for node:{id}.
func NewMembership(store *kvstore.Store, nodeID, metricsURL string, ttl time.Duration) *Membership {
	hostname, _ := os.Hostname()
	return &Membership{
		store:      store,
		nodeID:     nodeID,
		hostname:   hostname,
		pid:        os.Getpid(),
		metricsURL: metricsURL,
		startedAt:  time.Now().UTC(),
		ttl:        ttl,
	}
}

// NodeID returns this node's identifier.
func (m *Membership) NodeID() string { return m.nodeID }

// Heartbeat publishes this node's membership record.
func (m *Membership) Heartbeat(ctx context.Context) error {
	now := time.Now().UTC()
	rec := kvstore.NodeRecord{
		NodeID:        m.nodeID,
		Hostname:      m.hostname,
		PID:           m.pid,
		StartedAt:     m.startedAt.Format(time.RFC3339Nano),
		MetricsURL:    m.metricsURL,
		LastHeartbeat: now.Format(time.RFC3339Nano),
	}
	if err := m.store.Heartbeat(ctx, rec, m.ttl/5); err != nil {
		return fmt.Errorf("heartbeat: %w", err)
	}
	return nil
}

// ActiveNodeIDs discovers currently live peer node IDs.
func (m *Membership) ActiveNodeIDs(ctx context.Context) ([]string, error) {
	nodes, err := m.store.Discover(ctx, m.ttl, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("discover: %w", err)
	}
	ids := make([]string, len(nodes))
	for i, n := range nodes {
		ids[i] = n.NodeID
	}
	return ids, nil
}

// Cleanup removes this node's membership record on graceful shutdown.
func (m *Membership) Cleanup(ctx context.Context) error {
	return m.store.Cleanup(ctx, m.nodeID)
}

// JitteredInterval returns base scaled by a uniform ±10% jitter, used by
// the heartbeat and rebalance loops to avoid thundering-herd synchronized
// wakeups across the fleet.
func JitteredInterval(base time.Duration) time.Duration {
	jitter := (rand.Float64()*2 - 1) * 0.1 // nolint:gosec // timing jitter, not security-sensitive
	return time.Duration(float64(base) * (1 + jitter))
}
