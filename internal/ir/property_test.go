package ir

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/sonarsource/astquery/internal/graph"
)

// randomDAG draws a rooted DAG. Every node picks its parents among the
// nodes created before it, so the result is acyclic by construction.
func randomDAG(t *rapid.T) (*Graph, []*Node) {
	g := New()
	nodes := []*Node{g.Root()}

	size := rapid.IntRange(1, 14).Draw(t, "size")
	for i := range size {
		first := rapid.IntRange(0, len(nodes)-1).Draw(t, fmt.Sprintf("parent-%d", i))
		if rapid.Bool().Draw(t, fmt.Sprintf("join-%d", i)) && len(nodes) > 1 {
			second := rapid.IntRange(0, len(nodes)-1).Draw(t, fmt.Sprintf("second-%d", i))
			nodes = append(nodes, NewUnion(nodes[first], nodes[second]))
			continue
		}
		nodes = append(nodes, NewMap(nodes[first], mapFn(fmt.Sprintf("m%d", i))))
	}
	return g, nodes
}

// reachableAvoiding returns the nodes reachable from the root without
// passing through avoid.
func reachableAvoiding(g *Graph, avoid graph.ID) graph.IDSet {
	seen := graph.NewIDSet()
	if g.Root().ID() == avoid {
		return seen
	}
	stack := []*Node{g.Root()}
	seen.Add(g.Root().ID())
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, c := range n.Children() {
			if c.ID() == avoid || seen.Has(c.ID()) {
				continue
			}
			seen.Add(c.ID())
			stack = append(stack, c)
		}
	}
	return seen
}

// bruteDominators applies the textbook definition: d dominates n when every
// path from the root to n goes through d.
func bruteDominators(g *Graph, nodes []*Node, n *Node) graph.IDSet {
	doms := graph.NewIDSet(n.ID())
	for _, d := range nodes {
		if d != n && !reachableAvoiding(g, d.ID()).Has(n.ID()) {
			doms.Add(d.ID())
		}
	}
	return doms
}

// TestDominators_Property tests memoized dominance against the definition,
// before and after an edit that must invalidate the caches.
func TestDominators_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		g, nodes := randomDAG(t)

		for _, n := range nodes {
			assert.Equal(t, bruteDominators(g, nodes, n), n.Dominators(), "node %d", n.ID())
		}

		// Add a forward edge and check again.
		if len(nodes) < 3 {
			return
		}
		from := rapid.IntRange(0, len(nodes)-2).Draw(t, "from")
		to := rapid.IntRange(from+1, len(nodes)-1).Draw(t, "to")
		nodes[to].AddParent(nodes[from])

		for _, n := range nodes {
			assert.Equal(t, bruteDominators(g, nodes, n), n.Dominators(), "node %d after edit", n.ID())
		}
	})
}

// TestImmediateDominator_Property tests that the immediate dominator is a
// strict dominator dominated by every other strict dominator.
func TestImmediateDominator_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		_, nodes := randomDAG(t)

		for _, n := range nodes[1:] {
			idom := n.ImmediateDominator()
			assert.True(t, n.StrictDominators().Has(idom.ID()))
			for d := range n.StrictDominators() {
				assert.True(t, idom.Dominators().Has(d), "idom %d of %d must be dominated by %d", idom.ID(), n.ID(), d)
			}
		}
	})
}

// TestAncestry_Property tests that ancestors and descendants are mirror images.
func TestAncestry_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		_, nodes := randomDAG(t)

		for _, a := range nodes {
			for _, b := range nodes {
				assert.Equal(t, a.Ancestors().Has(b.ID()), b.Descendants().Has(a.ID()))
			}
		}
	})
}
