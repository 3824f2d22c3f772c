package kvstore

import (
	"context"
	"testing"
	"time"
)

func TestHeartbeatAndDiscover(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	rec := NodeRecord{
		NodeID:        "node-a",
		Hostname:      "host-1",
		PID:           123,
		StartedAt:     now.Format(time.RFC3339Nano),
		MetricsURL:    "http://host-1:9090/metrics",
		LastHeartbeat: now.Format(time.RFC3339Nano),
	}
	if err := s.Heartbeat(ctx, rec, time.Second); err != nil {
		t.Fatalf("heartbeat: %v", err)
	}

	nodes, err := s.Discover(ctx, 5*time.Second, now)
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if len(nodes) != 1 || nodes[0].NodeID != "node-a" {
		t.Fatalf("discover = %+v, want single node-a entry", nodes)
	}
}

func TestDiscover_ExcludesStaleHeartbeats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	old := time.Now().UTC().Add(-1 * time.Hour)

	rec := NodeRecord{NodeID: "node-stale", LastHeartbeat: old.Format(time.RFC3339Nano)}
	if err := s.Heartbeat(ctx, rec, time.Hour); err != nil {
		t.Fatalf("heartbeat: %v", err)
	}

	nodes, err := s.Discover(ctx, 5*time.Second, time.Now().UTC())
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if len(nodes) != 0 {
		t.Fatalf("discover = %+v, want none (stale heartbeat)", nodes)
	}
}

func TestCleanup_RemovesMembershipRecord(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	rec := NodeRecord{NodeID: "node-a", LastHeartbeat: now.Format(time.RFC3339Nano)}
	if err := s.Heartbeat(ctx, rec, time.Second); err != nil {
		t.Fatalf("heartbeat: %v", err)
	}
	if err := s.Cleanup(ctx, "node-a"); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	nodes, err := s.Discover(ctx, 5*time.Second, now)
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if len(nodes) != 0 {
		t.Fatalf("discover after cleanup = %+v, want none", nodes)
	}
}
