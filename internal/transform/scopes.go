package transform

import (
	"github.com/sonarsource/astquery/internal/graph"
	"github.com/sonarsource/astquery/internal/ir"
)

// AddScopesToCombines wraps every join in a Scope/Unscope pair opened at
// its immediate dominator.
//
// Joins are processed deepest first. For a join J dominated by D, a Scope is
// added under D, the nodes between D and J are copied under the Scope, and
// J's children move under a new Unscope(J). Every processed join is then
// evaluated once per value of D instead of once per input.
func AddScopesToCombines(g *ir.Graph) {
	applied := graph.NewIDSet()
	for {
		join := lastJoin(g, applied)
		if join == nil {
			return
		}

		dom := join.ImmediateDominator()
		scope := ir.NewScope(dom)
		CopySubTree(dom, scope, join)

		children := join.Children()
		unscope := ir.NewUnscope(join, scope)
		for _, c := range children {
			c.ReplaceParent(join, unscope)
		}

		RemoveUnusedNodes(g)
		applied.Add(join.ID())
	}
}

func lastJoin(g *ir.Graph, applied graph.IDSet) *ir.Node {
	order := graph.TopologicalSort(g.Root())
	for i := len(order) - 1; i >= 0; i-- {
		n := order[i]
		if k := n.Kind(); (k == ir.KindCombine || k == ir.KindCombineDrop) && !applied.Has(n.ID()) {
			return n
		}
	}
	return nil
}

// UntangleScopes makes scopes nest properly.
//
// Two scopes are tangled when a scope S opens between a scope C and one of
// its unscopes U, but closes after U. The repair deletes U and lets every
// unscope of S close whatever U closed, C included. Repairs repeat until no
// tangle remains.
func UntangleScopes(g *ir.Graph) {
	for {
		candidate, unscope, tangled := findTangle(g)
		if candidate == nil {
			return
		}
		starts := unscope.ScopeStarts()
		RemoveNodeAndStitch(unscope)
		for _, u := range tangled.Unscopes() {
			for _, s := range starts {
				u.AddScopeStart(s)
			}
		}
	}
}

func findTangle(g *ir.Graph) (candidate, unscope, tangled *ir.Node) {
	for _, c := range graph.TopologicalSort(g.Root()) {
		if c.Kind() != ir.KindScope {
			continue
		}
		closing := graph.NewIDSet(graph.IDs(c.Unscopes())...)
		for _, u := range c.Unscopes() {
			between := c.StrictDescendants().Intersect(u.StrictAncestors())
			for _, id := range between.Sorted() {
				s := g.Node(id)
				if s.Kind() == ir.KindScope && closesOutside(s, between, closing) {
					return c, u, s
				}
			}
		}
	}
	return nil, nil, nil
}

// closesOutside reports whether s has an unscope outside between that does
// not already close the candidate scope. An unscope closing both scopes ends
// them together, which is proper nesting.
func closesOutside(s *ir.Node, between, closing graph.IDSet) bool {
	for _, u := range s.Unscopes() {
		if !between.Has(u.ID()) && !closing.Has(u.ID()) {
			return true
		}
	}
	return false
}
