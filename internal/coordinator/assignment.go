package coordinator

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/forgequant/nimbus-trader/internal/kvstore"
)

// RebalanceResult reports what a rebalance cycle changed.
type RebalanceResult struct {
	Acquired []string
	Released []string
}

// AssignmentController reconciles the desired HRW assignment against this
// node's currently-owned symbol set on every rebalance tick, acquiring and
// releasing writer leases as needed.
//
// The owned/token maps are read by the publish path and mutated by the
// rebalance and lease-renewal loops, so they sit behind a short-critical-
// section mutex. The mutex is never held across a KV call.
type AssignmentController struct {
	store      *kvstore.Store
	membership *Membership
	logger     *slog.Logger

	symbols   []string
	leaseTTL  time.Duration
	minHold   time.Duration
	stickyPct float64

	mu               sync.Mutex
	owned            map[string]struct{}
	tokens           map[string]int64
	acquisitionTimes map[string]time.Time

	onAcquired []func(symbol string)
	onDropped  []func(symbol string)
}

// NewAssignmentController creates a controller for the given configured
// symbol set.
func NewAssignmentController(store *kvstore.Store, membership *Membership, symbols []string, leaseTTL, minHold time.Duration, stickyPct float64, logger *slog.Logger) *AssignmentController {
	return &AssignmentController{
		store:            store,
		membership:       membership,
		logger:           logger,
		symbols:          symbols,
		leaseTTL:         leaseTTL,
		minHold:          minHold,
		stickyPct:        stickyPct,
		owned:            make(map[string]struct{}),
		tokens:           make(map[string]int64),
		acquisitionTimes: make(map[string]time.Time),
	}
}

// OnAcquired registers a callback invoked when a symbol is newly acquired.
// Callbacks must be registered before the background loops start.
func (c *AssignmentController) OnAcquired(fn func(symbol string)) {
	c.onAcquired = append(c.onAcquired, fn)
}

// OnDropped registers a callback invoked just before a symbol's lease is
// released. Drop callbacks always run before the release RPC, so observers
// see the symbol-dropped event while the lease is still held.
func (c *AssignmentController) OnDropped(fn func(symbol string)) {
	c.onDropped = append(c.onDropped, fn)
}

// OwnedSymbols returns a snapshot of currently-owned symbols.
func (c *AssignmentController) OwnedSymbols() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.owned))
	for s := range c.owned {
		out = append(out, s)
	}
	return out
}

// TokenFor returns the fencing token for an owned symbol, or (0, false).
func (c *AssignmentController) TokenFor(symbol string) (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	tok, ok := c.tokens[symbol]
	return tok, ok
}

// Rebalance runs one reconciliation cycle: discovers active nodes,
// computes desired HRW assignments (honoring min_hold_ms and hysteresis),
// and acquires/releases leases to match.
func (c *AssignmentController) Rebalance(ctx context.Context) (RebalanceResult, int) {
	activeNodes, err := c.membership.ActiveNodeIDs(ctx)
	if err != nil {
		c.logger.Warn("rebalance discover failed", "error", err)
		return RebalanceResult{}, 0
	}
	if len(activeNodes) == 0 {
		c.logger.Warn("rebalance found no active nodes")
		return RebalanceResult{}, 0
	}

	toAcquire, toRelease := c.computeDiff(activeNodes)

	rebalances := 0
	for _, symbol := range toRelease {
		c.releaseSymbol(ctx, symbol)
		rebalances++
	}
	var acquired []string
	for _, symbol := range toAcquire {
		if c.acquireSymbol(ctx, symbol) {
			acquired = append(acquired, symbol)
			rebalances++
		}
	}

	return RebalanceResult{Acquired: acquired, Released: toRelease}, rebalances
}

// computeDiff evaluates the HRW vote for every configured symbol against
// the current owned set. Pure in-memory work under the lock; no KV calls.
func (c *AssignmentController) computeDiff(activeNodes []string) (toAcquire, toRelease []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	desiredOwned := make(map[string]struct{})

	for _, symbol := range c.symbols {
		_, currentlyOwned := c.owned[symbol]
		currentOwner := ""
		if currentlyOwned {
			currentOwner = c.membership.NodeID()
			if acquiredAt, ok := c.acquisitionTimes[symbol]; ok && now.Sub(acquiredAt) < c.minHold {
				desiredOwned[symbol] = struct{}{}
				continue
			}
		}

		node := SelectNode(symbol, activeNodes, currentOwner, c.stickyPct)
		if node == c.membership.NodeID() {
			desiredOwned[symbol] = struct{}{}
		}
	}

	for symbol := range desiredOwned {
		if _, ok := c.owned[symbol]; !ok {
			toAcquire = append(toAcquire, symbol)
		}
	}
	for symbol := range c.owned {
		if _, ok := desiredOwned[symbol]; !ok {
			toRelease = append(toRelease, symbol)
		}
	}
	return toAcquire, toRelease
}

func (c *AssignmentController) acquireSymbol(ctx context.Context, symbol string) bool {
	token, err := c.store.AcquireLease(ctx, symbol, c.membership.NodeID(), c.leaseTTL)
	if err != nil {
		c.logger.Debug("symbol acquisition failed", "symbol", symbol, "error", err)
		return false
	}

	c.mu.Lock()
	c.owned[symbol] = struct{}{}
	c.tokens[symbol] = token
	c.acquisitionTimes[symbol] = time.Now()
	c.mu.Unlock()

	c.logger.Info("symbol acquired", "symbol", symbol, "token", token, "node", c.membership.NodeID())
	for _, cb := range c.onAcquired {
		cb(symbol)
	}
	return true
}

func (c *AssignmentController) releaseSymbol(ctx context.Context, symbol string) {
	for _, cb := range c.onDropped {
		cb(symbol)
	}
	if err := c.store.ReleaseLease(ctx, symbol, c.membership.NodeID()); err != nil {
		c.logger.Warn("symbol release failed", "symbol", symbol, "error", err)
	}
	c.forgetSymbol(symbol)
	c.logger.Info("symbol released", "symbol", symbol, "node", c.membership.NodeID())
}

// RenewLeases renews leases for all currently-owned symbols. Symbols whose
// renewal fails (ownership lost) are dropped locally, with drop callbacks
// firing before local state is cleared, and the caller's lease-conflict
// counter incremented once per loss.
func (c *AssignmentController) RenewLeases(ctx context.Context) (lost []string) {
	for _, symbol := range c.OwnedSymbols() {
		if err := c.store.RenewLease(ctx, symbol, c.membership.NodeID(), c.leaseTTL); err != nil {
			c.logger.Warn("lease renewal failed, ownership lost", "symbol", symbol, "error", err)
			for _, cb := range c.onDropped {
				cb(symbol)
			}
			c.forgetSymbol(symbol)
			lost = append(lost, symbol)
		}
	}
	return lost
}

// forgetSymbol clears local ownership state for a symbol.
func (c *AssignmentController) forgetSymbol(symbol string) {
	c.mu.Lock()
	delete(c.owned, symbol)
	delete(c.tokens, symbol)
	delete(c.acquisitionTimes, symbol)
	c.mu.Unlock()
}

// Cleanup releases every owned symbol's lease, used on graceful shutdown.
func (c *AssignmentController) Cleanup(ctx context.Context) {
	for _, symbol := range c.OwnedSymbols() {
		c.releaseSymbol(ctx, symbol)
	}
}
