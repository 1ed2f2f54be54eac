package transform

import (
	"github.com/sonarsource/astquery/internal/graph"
	"github.com/sonarsource/astquery/internal/ir"
)

// MergeEquivalentChildren merges sibling nodes that compute the same values.
//
// For every node, children are compared pairwise in order: when a later
// child can merge with an earlier one, its children move to the earlier one
// and it is deleted. The pass runs until no node has a mergeable pair, which
// makes it idempotent.
func MergeEquivalentChildren(g *ir.Graph) {
	for changed := true; changed; {
		changed = false
		for _, n := range g.Nodes() {
			if n.Deleted() {
				continue
			}
			for mergeOnce(n) {
				changed = true
			}
		}
	}
}

func mergeOnce(n *ir.Node) bool {
	children := n.Children()
	for i, child := range children {
		for _, candidate := range children[i+1:] {
			if child.CanMergeWith(candidate) && !sharesChild(child, candidate) {
				mergeInto(child, candidate)
				return true
			}
		}
	}
	return false
}

// sharesChild reports whether a node is a child of both a and b. Merging
// them would collapse the two operands of that child into one.
func sharesChild(a, b *ir.Node) bool {
	ids := graph.NewIDSet(graph.IDs(a.Children())...)
	for _, c := range b.Children() {
		if ids.Has(c.ID()) {
			return true
		}
	}
	return false
}

func mergeInto(keep, drop *ir.Node) {
	for _, c := range drop.Children() {
		c.ReplaceParent(drop, keep)
	}
	if drop.Kind() == ir.KindScope {
		for _, u := range drop.Unscopes() {
			u.AddScopeStart(keep)
		}
	}
	drop.Delete()
}
