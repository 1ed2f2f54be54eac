package build

import (
	"github.com/sonarsource/astquery/internal/graph"
	"github.com/sonarsource/astquery/internal/invariant"
	"github.com/sonarsource/astquery/internal/ir"
)

// Context records the runtime node built for every IR node during one
// build.
type Context[N any] struct {
	graph *ir.Graph
	nodes map[graph.ID]N
}

func newContext[N any](g *ir.Graph) *Context[N] {
	return &Context[N]{graph: g, nodes: make(map[graph.ID]N)}
}

// Graph returns the IR graph being built.
func (c *Context[N]) Graph() *ir.Graph {
	return c.graph
}

// Add records t as the translation of n.
func (c *Context[N]) Add(n *ir.Node, t N) {
	c.nodes[n.ID()] = t
}

// Get returns the translation of n.
func (c *Context[N]) Get(n *ir.Node) (N, bool) {
	t, ok := c.nodes[n.ID()]
	return t, ok
}

// Children returns the translations of n's children, in child order.
// Children are always translated before their parents.
func (c *Context[N]) Children(n *ir.Node) []N {
	children := n.Children()
	out := make([]N, 0, len(children))
	for _, child := range children {
		t, ok := c.nodes[child.ID()]
		if !ok {
			invariant.Failf(invariant.CodeMalformedNode, "child %s of %s is not translated", child, n)
		}
		out = append(out, t)
	}
	return out
}

// Len returns the number of translated nodes.
func (c *Context[N]) Len() int {
	return len(c.nodes)
}
