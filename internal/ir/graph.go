package ir

import (
	"reflect"
	"slices"

	"github.com/sonarsource/astquery/internal/graph"
	"github.com/sonarsource/astquery/internal/invariant"
)

// Graph is the arena holding every node of one pipeline.
//
// A Graph is not safe for concurrent mutation.
type Graph struct {
	nodes map[graph.ID]*Node
	root  graph.ID
}

// New creates a graph holding only its Root.
func New() *Graph {
	g := &Graph{nodes: make(map[graph.ID]*Node)}
	g.root = g.newNode(Root{}).id
	return g
}

func (g *Graph) newNode(op Op) *Node {
	n := &Node{g: g, id: graph.NextID(), op: op}
	g.nodes[n.id] = n
	return n
}

// Root returns the root node.
func (g *Graph) Root() *Node {
	return g.nodes[g.root]
}

// Node returns the node with the given id, or nil if the arena holds none.
func (g *Graph) Node(id graph.ID) *Node {
	return g.nodes[id]
}

// Len returns the number of nodes in the arena.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Nodes returns the nodes reachable from the root in breadth-first order.
func (g *Graph) Nodes() []*Node {
	return graph.BreadthFirst(g.Root())
}

// Sinks returns the reachable Consumer nodes.
func (g *Graph) Sinks() []*Node {
	return graph.Sinks(g.Root())
}

// Clone returns a deep copy of the arena. Node ids are preserved, so a node
// of the clone is found with the id of its original. Functions are shared.
func (g *Graph) Clone() *Graph {
	c := &Graph{nodes: make(map[graph.ID]*Node, len(g.nodes)), root: g.root}
	for id, n := range g.nodes {
		c.nodes[id] = &Node{
			g:        c,
			id:       n.id,
			op:       n.op,
			children: slices.Clone(n.children),
			parents:  slices.Clone(n.parents),
			left:     n.left,
			right:    n.right,
			links:    slices.Clone(n.links),
		}
	}
	return c
}

func (g *Graph) nodesOf(ids []graph.ID) []*Node {
	out := make([]*Node, 0, len(ids))
	for _, id := range ids {
		if n := g.nodes[id]; n != nil {
			out = append(out, n)
		}
	}
	return out
}

func newChild(parent *Node, op Op) *Node {
	n := parent.g.newNode(op)
	n.AddParent(parent)
	return n
}

// NewMap adds a Map under parent.
func NewMap(parent *Node, fn *Lambda[MapFunc]) *Node {
	return newChild(parent, Map{Fn: fn})
}

// NewFilter adds a Filter under parent.
func NewFilter(parent *Node, pred *Lambda[PredicateFunc]) *Node {
	return newChild(parent, Filter{Pred: pred})
}

// NewFilterNonNull adds a FilterNonNull under parent.
func NewFilterNonNull(parent *Node) *Node {
	return newChild(parent, FilterNonNull{})
}

// NewFilterType adds a FilterType under parent. Duplicate types are ignored.
func NewFilterType(parent *Node, types ...reflect.Type) *Node {
	var set []reflect.Type
	for _, t := range types {
		if !slices.Contains(set, t) {
			set = append(set, t)
		}
	}
	return newChild(parent, FilterType{Types: set})
}

// NewFlatMap adds a FlatMap under parent.
func NewFlatMap(parent *Node, fn Function) *Node {
	return newChild(parent, FlatMap{Fn: fn})
}

// NewCombine adds a Combine joining left and right.
func NewCombine(left, right *Node, fn *Lambda[CombineFunc]) *Node {
	return newJoin(left, right, Combine{Fn: fn})
}

// NewCombineDrop adds a CombineDrop joining left and right.
func NewCombineDrop(left, right *Node, fn *Lambda[CombineDropFunc]) *Node {
	return newJoin(left, right, CombineDrop{Fn: fn})
}

func newJoin(left, right *Node, op Op) *Node {
	n := left.g.newNode(op)
	n.left, n.right = left.id, right.id
	n.AddParent(left)
	n.AddParent(right)
	return n
}

// NewAggregate adds an Aggregate under parent.
func NewAggregate(parent *Node, fn Function) *Node {
	return newChild(parent, Aggregate{Fn: fn})
}

// NewAggregateDrop adds an AggregateDrop under parent.
func NewAggregateDrop(parent *Node, fn Function) *Node {
	return newChild(parent, AggregateDrop{Fn: fn})
}

// NewUnion adds a Union of the given parents.
func NewUnion(parents ...*Node) *Node {
	if len(parents) == 0 {
		invariant.Failf(invariant.CodeMalformedNode, "union without parents")
	}
	n := parents[0].g.newNode(Union{})
	for _, p := range parents {
		n.AddParent(p)
	}
	return n
}

// NewScope adds a Scope with a fresh scope id under parent.
func NewScope(parent *Node) *Node {
	return newChild(parent, Scope{ID: NextScopeID()})
}

// NewUnscope adds an Unscope under parent closing the given scopes.
// At least one scope is required.
func NewUnscope(parent *Node, scopes ...*Node) *Node {
	if len(scopes) == 0 {
		invariant.Failf(invariant.CodeEmptyUnscope, "unscope under node %d has no scope start", parent.id)
	}
	for _, s := range scopes {
		if s.Kind() != KindScope {
			invariant.Failf(invariant.CodeMalformedNode, "scope start %d is a %s", s.id, s.Kind())
		}
	}
	n := newChild(parent, Unscope{})
	for _, s := range scopes {
		link(s, n)
	}
	return n
}

// NewConsumer adds a Consumer under parent.
func NewConsumer(parent *Node, name string, fn ConsumerFunc) *Node {
	return newChild(parent, Consumer{Name: name, Fn: fn})
}

// link connects a Scope to an Unscope on both sides.
func link(scope, unscope *Node) {
	if !slices.Contains(scope.links, unscope.id) {
		scope.links = append(scope.links, unscope.id)
	}
	if !slices.Contains(unscope.links, scope.id) {
		unscope.links = append(unscope.links, scope.id)
	}
}

// unlink removes the connection between a Scope and an Unscope.
func unlink(scope, unscope *Node) {
	scope.links = slices.DeleteFunc(scope.links, func(id graph.ID) bool { return id == unscope.id })
	unscope.links = slices.DeleteFunc(unscope.links, func(id graph.ID) bool { return id == scope.id })
}

// Stats counts the reachable nodes per kind.
func (g *Graph) Stats() map[Kind]int {
	out := make(map[Kind]int)
	for _, n := range g.Nodes() {
		out[n.Kind()]++
	}
	return out
}
