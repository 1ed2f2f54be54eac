package transform

import (
	"github.com/sonarsource/astquery/internal/invariant"
	"github.com/sonarsource/astquery/internal/ir"
)

// RemoveUnusedNodes deletes every node that no sink depends on.
//
// The root is never removed from the arena; when nothing below it reaches a
// sink it is left without children.
func RemoveUnusedNodes(g *ir.Graph) {
	for _, n := range g.Nodes() {
		if !n.Deleted() && !n.HasSink() {
			n.Delete()
		}
	}
}

// RemoveNodeAndStitch deletes n and moves its children onto its only
// parent. A node without exactly one parent cannot be stitched.
func RemoveNodeAndStitch(n *ir.Node) {
	parents := n.Parents()
	if len(parents) != 1 {
		invariant.Fail(invariant.Newf(invariant.CodeStitchParents,
			"cannot stitch %s: %d parents", n, len(parents)).With("node", n.ID()))
	}
	parent := parents[0]
	for _, c := range n.Children() {
		c.ReplaceParent(n, parent)
	}
	n.Delete()
}
