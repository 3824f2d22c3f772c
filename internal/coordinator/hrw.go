// Package coordinator implements distributed symbol ownership: HRW
// consistent hashing with hysteresis, node membership, writer leases with
// fencing tokens, and the assignment controller that reconciles desired
// vs. owned symbols on every rebalance tick.
package coordinator

import (
	"encoding/binary"

	"golang.org/x/crypto/blake2b"
)

// hrwHash computes a 64-bit Highest-Random-Weight hash for a (node, symbol)
// pair using blake2b, matching the reference deployment's hashing choice.
func hrwHash(nodeID, symbol string) uint64 {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64-bit digest
	h.Write([]byte(nodeID))
	h.Write([]byte(":"))
	h.Write([]byte(symbol))
	return binary.BigEndian.Uint64(h.Sum(nil))
}

// SelectNode picks the winning node for a symbol under plain HRW, applying
// a sticky-percentage bonus to currentOwner (if non-empty and present in
// nodes) to reduce unnecessary rebalancing around hash ties. Non-owner
// weights are compared as exact 64-bit integers; only the owner's weight
// is carried into float64 for the sticky multiply. Returns "" if nodes is
// empty.
func SelectNode(symbol string, nodes []string, currentOwner string, stickyPct float64) string {
	if len(nodes) == 0 {
		return ""
	}
	if len(nodes) == 1 {
		return nodes[0]
	}

	best := ""
	var bestWeight uint64
	ownerSeen := false
	var ownerWeight float64
	for _, node := range nodes {
		weight := hrwHash(node, symbol)
		if currentOwner != "" && node == currentOwner {
			ownerSeen = true
			ownerWeight = float64(weight) * (1 + stickyPct)
			continue
		}
		if best == "" || weight > bestWeight {
			best = node
			bestWeight = weight
		}
	}
	if ownerSeen && (best == "" || ownerWeight >= float64(bestWeight)) {
		return currentOwner
	}
	return best
}

// CalculateSymbolDistribution computes the full symbol -> node map for a
// configured symbol set against the active node list, with no hysteresis
// (used for the stability property check and for cold-start assignment
// before any symbol has an owner).
func CalculateSymbolDistribution(symbols, nodes []string, stickyPct float64) map[string]string {
	assignments := make(map[string]string, len(symbols))
	for _, sym := range symbols {
		if node := SelectNode(sym, nodes, "", stickyPct); node != "" {
			assignments[sym] = node
		}
	}
	return assignments
}
