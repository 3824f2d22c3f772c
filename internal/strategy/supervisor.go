// Package strategy implements the producer's supervisor loop: owned-symbol
// lifecycle, ingestion-event routing, the two periodic report cycles, and
// the three coordination background loops (heartbeat, rebalance,
// lease-renew).
//
// Lifecycle: New() -> Start() -> [runs until ctx is cancelled] -> Stop().
// Ingestion and the two cycles are single event-loop tasks fanning out per
// owned symbol; a single ingestion loop keeps per-symbol event ordering
// trivially correct.
package strategy

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/forgequant/nimbus-trader/internal/config"
	"github.com/forgequant/nimbus-trader/internal/coordinator"
	"github.com/forgequant/nimbus-trader/internal/feed"
	"github.com/forgequant/nimbus-trader/internal/kvstore"
	"github.com/forgequant/nimbus-trader/internal/state"
	"github.com/forgequant/nimbus-trader/internal/telemetry"
	"github.com/forgequant/nimbus-trader/internal/types"
)

// Supervisor orchestrates a single node's view of the configured symbol
// universe: which symbols it owns, their warm state, and the two
// periodic report cycles.
type Supervisor struct {
	cfg     *config.Config
	store   *kvstore.Store
	feed    *feed.Feed
	metrics *telemetry.Metrics
	logger  *slog.Logger

	membership *coordinator.Membership
	assignment *coordinator.AssignmentController

	// statesMu guards the maps themselves; each symbol's stateMus entry
	// serializes mutation of and snapshot reads from that SymbolState, so
	// a cycle's report is built from a consistent snapshot that never
	// interleaves with ingestion for the same symbol. The per-symbol lock
	// is only ever held over in-memory work, never across KV I/O.
	statesMu sync.RWMutex
	states   map[string]*state.SymbolState // warm across drop/reacquire
	stateMus map[string]*sync.Mutex

	ownedMu sync.RWMutex
	owned   map[string]struct{}

	// singleTokens holds the fencing token seeded from the KV store for
	// each symbol in single-instance mode, so token monotonicity holds
	// across restarts and against a later coordinated-mode startup
	// against the same store.
	singleTokensMu sync.RWMutex
	singleTokens   map[string]int64

	slowRunning   chan struct{} // buffered(1) token: held while a slow cycle runs
	slowSkipCount int64
	slowSkipMu    sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds a supervisor. feedClient may be nil, in which case no feed
// loop runs and symbols are owned without any upstream subscription.
func New(cfg *config.Config, store *kvstore.Store, feedClient *feed.Feed, metrics *telemetry.Metrics, logger *slog.Logger) *Supervisor {
	return &Supervisor{
		cfg:          cfg,
		store:        store,
		feed:         feedClient,
		metrics:      metrics,
		logger:       logger.With("component", "strategy"),
		states:       make(map[string]*state.SymbolState),
		stateMus:     make(map[string]*sync.Mutex),
		owned:        make(map[string]struct{}),
		singleTokens: make(map[string]int64),
		slowRunning:  make(chan struct{}, 1),
	}
}

// NodeID satisfies telemetry.HealthProvider.
func (s *Supervisor) NodeID() string {
	if s.membership != nil {
		return s.membership.NodeID()
	}
	return s.cfg.Coordination.NodeID
}

// OwnedSymbols satisfies telemetry.HealthProvider.
func (s *Supervisor) OwnedSymbols() []string {
	s.ownedMu.RLock()
	defer s.ownedMu.RUnlock()
	out := make([]string, 0, len(s.owned))
	for sym := range s.owned {
		out = append(out, sym)
	}
	return out
}

// Start launches the supervisor: single-instance mode owns every configured
// symbol immediately; coordinated mode starts the three background loops
// and lets them populate owned_symbols incrementally.
func (s *Supervisor) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	for _, sym := range s.cfg.Symbols {
		s.getOrCreateState(sym)
	}

	if s.feed != nil {
		s.feed.OnResubscribe(func(reason string) {
			s.metrics.WSResubscribeTotal.WithLabelValues(reason).Inc()
		})
	}

	if s.cfg.Coordination.Enabled {
		if err := s.startCoordinated(); err != nil {
			return err
		}
	} else {
		s.startSingleInstance()
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.dispatchIngestion()
	}()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runFastCycle()
	}()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runSlowCycle()
	}()

	if s.feed != nil {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := s.feed.Run(s.ctx); err != nil && s.ctx.Err() == nil {
				s.logger.Error("feed error", "error", err)
			}
		}()
	}

	return nil
}

// singleInstanceLeaseTTL is the TTL used to seed the fencing-token
// counter in single-instance mode. The lease itself is never renewed
// (there is no contention to fence against), only the monotonic token
// key, which carries no TTL, needs to exist.
const singleInstanceLeaseTTL = time.Hour

func (s *Supervisor) startSingleInstance() {
	for _, sym := range s.cfg.Symbols {
		token, err := s.store.AcquireLease(s.ctx, sym, s.NodeID(), singleInstanceLeaseTTL)
		if err != nil {
			s.logger.Warn("single-instance token seed failed, using token 0", "symbol", sym, "error", err)
		} else {
			s.singleTokensMu.Lock()
			s.singleTokens[sym] = token
			s.singleTokensMu.Unlock()
		}
		s.acquireSymbol(sym)
	}
}

func (s *Supervisor) startCoordinated() error {
	ttl := s.cfg.Coordination.HeartbeatInterval() * 5
	s.membership = coordinator.NewMembership(s.store, s.cfg.Coordination.NodeID, s.cfg.Telemetry.ListenAddr, ttl)
	s.assignment = coordinator.NewAssignmentController(
		s.store, s.membership, s.cfg.Symbols,
		s.cfg.Coordination.LeaseTTL(), s.cfg.Coordination.MinHold(),
		s.cfg.Coordination.HRWStickyPct, s.logger,
	)
	s.assignment.OnAcquired(func(symbol string) { s.acquireSymbol(symbol) })
	s.assignment.OnDropped(func(symbol string) { s.dropSymbol(symbol) })

	if err := s.membership.Heartbeat(s.ctx); err != nil {
		return err
	}
	s.metrics.NodeHeartbeat.WithLabelValues(s.NodeID()).Set(1)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runHeartbeatLoop()
	}()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runRebalanceLoop()
	}()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runLeaseRenewLoop()
	}()

	return nil
}

// Stop cancels background loops, releases all leases, unsubscribes, and
// clears owned state.
func (s *Supervisor) Stop() {
	s.logger.Info("stopping supervisor")
	s.cancel()

	if s.assignment != nil {
		cleanupCtx, cleanupCancel := context.WithTimeout(context.Background(), s.cfg.Coordination.LeaseTTL())
		defer cleanupCancel()
		s.assignment.Cleanup(cleanupCtx)
	} else {
		cleanupCtx, cleanupCancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cleanupCancel()
		s.singleTokensMu.RLock()
		for sym := range s.singleTokens {
			if err := s.store.ReleaseLease(cleanupCtx, sym, s.NodeID()); err != nil {
				s.logger.Warn("single-instance lease release failed", "symbol", sym, "error", err)
			}
		}
		s.singleTokensMu.RUnlock()
	}
	if s.membership != nil {
		cleanupCtx, cleanupCancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cleanupCancel()
		s.membership.Cleanup(cleanupCtx)
	}
	if s.feed != nil {
		s.feed.Close()
	}

	s.wg.Wait()

	s.ownedMu.Lock()
	s.owned = make(map[string]struct{})
	s.ownedMu.Unlock()

	s.logger.Info("supervisor stopped")
}

func (s *Supervisor) getOrCreateState(symbol string) *state.SymbolState {
	st, _ := s.stateFor(symbol)
	return st
}

// stateFor returns a symbol's warm state together with the mutex that
// serializes access to it, creating both on first use.
func (s *Supervisor) stateFor(symbol string) (*state.SymbolState, *sync.Mutex) {
	s.statesMu.Lock()
	defer s.statesMu.Unlock()
	st, ok := s.states[symbol]
	if !ok {
		st = state.NewSymbolState(types.Symbol(symbol))
		s.states[symbol] = st
		s.stateMus[symbol] = &sync.Mutex{}
	}
	return st, s.stateMus[symbol]
}

func (s *Supervisor) acquireSymbol(symbol string) {
	s.ownedMu.Lock()
	s.owned[symbol] = struct{}{}
	s.ownedMu.Unlock()

	if s.feed != nil {
		if err := s.feed.Subscribe(symbol); err != nil {
			s.logger.Warn("subscribe failed", "symbol", symbol, "error", err)
		}
	}
	s.logger.Info("symbol acquired", "symbol", symbol)
}

// dropSymbol implements the subscribe/unsubscribe policy: state is
// retained (warm re-acquisition) but the symbol is no longer owned, and
// any fencing token is purged by the assignment controller itself.
func (s *Supervisor) dropSymbol(symbol string) {
	s.ownedMu.Lock()
	delete(s.owned, symbol)
	s.ownedMu.Unlock()

	if s.feed != nil {
		if err := s.feed.Unsubscribe(symbol); err != nil {
			s.logger.Warn("unsubscribe failed", "symbol", symbol, "error", err)
		}
	}
	s.logger.Info("symbol dropped", "symbol", symbol)
}

func (s *Supervisor) isOwned(symbol string) bool {
	s.ownedMu.RLock()
	defer s.ownedMu.RUnlock()
	_, ok := s.owned[symbol]
	return ok
}
