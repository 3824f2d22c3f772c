package strategy

import (
	"time"

	"github.com/forgequant/nimbus-trader/internal/coordinator"
)

// runHeartbeatLoop publishes this node's membership record on a jittered
// cadence to avoid thundering-herd synchronized wakeups.
func (s *Supervisor) runHeartbeatLoop() {
	interval := s.cfg.Coordination.HeartbeatInterval()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-time.After(coordinator.JitteredInterval(interval)):
		}
		if err := s.membership.Heartbeat(s.ctx); err != nil {
			s.logger.Warn("heartbeat failed", "error", err)
			s.metrics.NodeHeartbeat.WithLabelValues(s.NodeID()).Set(0)
			continue
		}
		s.metrics.NodeHeartbeat.WithLabelValues(s.NodeID()).Set(1)
	}
}

// runRebalanceLoop reconciles desired vs. owned symbols on a jittered
// cadence.
func (s *Supervisor) runRebalanceLoop() {
	interval := s.cfg.Coordination.RebalanceInterval()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-time.After(coordinator.JitteredInterval(interval)):
		}
		_, changed := s.assignment.Rebalance(s.ctx)
		if changed > 0 {
			s.metrics.HRWRebalancesTotal.Add(float64(changed))
		}
		s.metrics.SymbolsAssigned.WithLabelValues(s.NodeID()).Set(float64(len(s.OwnedSymbols())))
	}
}

// runLeaseRenewLoop renews every owned symbol's lease every TTL/2 with
// jitter, so renewal beats expiry even at the +10% jitter bound.
func (s *Supervisor) runLeaseRenewLoop() {
	interval := s.cfg.Coordination.LeaseTTL() / 2
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-time.After(coordinator.JitteredInterval(interval)):
		}
		lost := s.assignment.RenewLeases(s.ctx)
		if len(lost) > 0 {
			s.metrics.LeaseConflictsTotal.Add(float64(len(lost)))
		}
	}
}
