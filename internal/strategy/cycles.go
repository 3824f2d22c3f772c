package strategy

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/forgequant/nimbus-trader/internal/report"
	"github.com/forgequant/nimbus-trader/internal/types"
)

const backpressureThreshold = 0.8

// runFastCycle publishes fast reports every report_period_ms.
func (s *Supervisor) runFastCycle() {
	period := s.cfg.ReportPeriod()
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
		}
		start := time.Now()
		s.onFastCycle()
		s.warnIfSlow("fast", time.Since(start), period)
	}
}

// runSlowCycle runs the enrichment pass every slow_period_ms,
// reentrancy-guarded: each cycle runs on its own goroutine holding the
// slowRunning token, so the ticker loop keeps draining ticks while a
// cycle is in flight. A tick that arrives while the token is held is
// skipped and counted, never queued.
func (s *Supervisor) runSlowCycle() {
	period := s.cfg.SlowPeriod()
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
		}

		select {
		case s.slowRunning <- struct{}{}:
		default:
			s.slowSkipMu.Lock()
			s.slowSkipCount++
			s.slowSkipMu.Unlock()
			s.logger.Warn("slow cycle overlap, skipping")
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer func() { <-s.slowRunning }()
			start := time.Now()
			s.onSlowCycle()
			s.warnIfSlow("slow", time.Since(start), period)
		}()
	}
}

// SlowSkipCount returns the number of slow cycles skipped due to
// reentrancy so far.
func (s *Supervisor) SlowSkipCount() int64 {
	s.slowSkipMu.Lock()
	defer s.slowSkipMu.Unlock()
	return s.slowSkipCount
}

func (s *Supervisor) warnIfSlow(cycle string, elapsed, period time.Duration) {
	utilization := float64(elapsed) / float64(period)
	if utilization > backpressureThreshold {
		s.logger.Warn(cycle+"_cycle_slow", "utilization_pct", utilization*100, "elapsed", elapsed, "period", period)
	}
}

// onFastCycle builds and publishes the fast report for every owned
// symbol.
func (s *Supervisor) onFastCycle() {
	for _, symbol := range s.OwnedSymbols() {
		s.publishFast(symbol)
	}
}

func (s *Supervisor) publishFast(symbol string) {
	now := time.Now().UTC()

	writerToken, mode := s.writerFor(symbol)
	if s.cfg.Coordination.Enabled {
		current, err := s.store.CurrentToken(s.ctx, symbol)
		if err != nil || current != writerToken {
			s.metrics.LeaseConflictsTotal.Inc()
			s.logger.Debug("stale writer token at publish, skipping", "symbol", symbol)
			return
		}
	}

	st, mu := s.stateFor(symbol)

	calcStart := time.Now()
	mu.Lock()
	rep, ok := report.BuildFast(st, types.Symbol(symbol), s.NodeID(), writerToken, mode, nil, now)
	dataAge, haveAge := st.DataAgeMs()
	mu.Unlock()
	s.metrics.CalcLatencyMs.WithLabelValues("fast_report", "fast").Observe(float64(time.Since(calcStart).Milliseconds()))
	if !ok {
		return
	}

	if haveAge {
		s.metrics.DataAgeMs.WithLabelValues(symbol).Observe(float64(dataAge))
	}

	publishCtx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
	defer cancel()
	if err := s.store.PublishReport(publishCtx, rep); err != nil {
		s.logger.Warn("publish failed", "symbol", symbol, "error", err)
		return
	}
	s.metrics.ReportPublishTotal.WithLabelValues(symbol).Inc()
}

// slowCycleParallelism bounds how many symbols enrich concurrently in one
// slow cycle. The per-symbol state mutex keeps each snapshot consistent;
// the bound keeps a large owned set from saturating the KV store.
const slowCycleParallelism = 4

// onSlowCycle enriches and republishes every owned symbol's report with
// slow-tier analytics. Symbols are processed concurrently up to
// slowCycleParallelism; the cycle itself remains reentrancy-guarded as a
// whole.
func (s *Supervisor) onSlowCycle() {
	g, _ := errgroup.WithContext(s.ctx)
	g.SetLimit(slowCycleParallelism)
	for _, symbol := range s.OwnedSymbols() {
		g.Go(func() error {
			s.publishSlow(symbol)
			return nil
		})
	}
	g.Wait()
}

func (s *Supervisor) publishSlow(symbol string) {
	now := time.Now().UTC()
	st, mu := s.stateFor(symbol)

	fetchCtx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
	base, ok, err := s.store.GetReport(fetchCtx, symbol)
	cancel()
	if err != nil || !ok {
		return
	}

	calcStart := time.Now()
	mu.Lock()
	metrics := report.CalculateSlow(st, defaultTickSize, now)
	mu.Unlock()
	s.metrics.CalcLatencyMs.WithLabelValues("slow_report", "slow").Observe(float64(time.Since(calcStart).Milliseconds()))

	enriched := report.Enrich(base, metrics, now)

	publishCtx, pcancel := context.WithTimeout(s.ctx, 5*time.Second)
	defer pcancel()
	if err := s.store.PublishReport(publishCtx, enriched); err != nil {
		s.logger.Warn("slow publish failed", "symbol", symbol, "error", err)
		return
	}
	s.metrics.ReportPublishTotal.WithLabelValues(symbol).Inc()
}

// writerFor returns the (token, mode) pair used to stamp a published
// report. In single-instance mode the token is still seeded from the KV
// store at startup (see startSingleInstance) so monotonicity holds
// across restarts and a later coordinated-mode startup against the same
// store; mode is "single".
func (s *Supervisor) writerFor(symbol string) (int64, string) {
	if !s.cfg.Coordination.Enabled {
		s.singleTokensMu.RLock()
		token := s.singleTokens[symbol]
		s.singleTokensMu.RUnlock()
		return token, "single"
	}
	token, _ := s.assignment.TokenFor(symbol)
	return token, "coordinated"
}

// defaultTickSize is the price-bucket width used by the volume-profile
// histogram when no per-symbol tick metadata is available. Instrument
// metadata loading sits outside this producer's boundary.
const defaultTickSize = 0.01
