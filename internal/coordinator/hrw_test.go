package coordinator

import "testing"

// TestHRWStability checks that removing a node only moves the symbols it
// owned, never symbols owned by the remaining nodes.
func TestHRWStability(t *testing.T) {
	nodes := []string{"A", "B", "C"}
	symbols := []string{"BTCUSDT", "ETHUSDT"}

	before := CalculateSymbolDistribution(symbols, nodes, 0.02)

	remaining := []string{"A", "B"}
	after := CalculateSymbolDistribution(symbols, remaining, 0.02)

	for _, sym := range symbols {
		ownerBefore := before[sym]
		if ownerBefore == "C" {
			continue // this symbol's owner is gone, reassignment expected
		}
		if after[sym] != ownerBefore {
			t.Errorf("symbol %s moved from %s to %s after removing C, want unchanged", sym, ownerBefore, after[sym])
		}
	}
}

func TestSelectNode_EmptyNodesReturnsEmpty(t *testing.T) {
	if got := SelectNode("BTCUSDT", nil, "", 0.02); got != "" {
		t.Errorf("SelectNode with no nodes = %q, want empty", got)
	}
}

func TestSelectNode_SingleNodeAlwaysWins(t *testing.T) {
	if got := SelectNode("BTCUSDT", []string{"only"}, "", 0.02); got != "only" {
		t.Errorf("SelectNode with 1 node = %q, want only", got)
	}
}

func TestSelectNode_Deterministic(t *testing.T) {
	nodes := []string{"A", "B", "C"}
	first := SelectNode("BTCUSDT", nodes, "", 0.02)
	for i := 0; i < 10; i++ {
		if got := SelectNode("BTCUSDT", nodes, "", 0.02); got != first {
			t.Fatalf("SelectNode not deterministic: got %q, want %q", got, first)
		}
	}
}

func TestSelectNode_StickyBonusFavorsCurrentOwner(t *testing.T) {
	nodes := []string{"A", "B", "C"}
	winner := SelectNode("BTCUSDT", nodes, "", 0.02)
	// With a large sticky bonus, the designated current owner should win
	// even if it wasn't the unweighted winner.
	for _, candidate := range nodes {
		if candidate == winner {
			continue
		}
		got := SelectNode("BTCUSDT", nodes, candidate, 1000.0)
		if got != candidate {
			t.Errorf("SelectNode with huge sticky bonus for %s = %q, want %s", candidate, got, candidate)
		}
	}
}
