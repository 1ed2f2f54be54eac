package ir

import (
	"fmt"
	"slices"
	"strings"

	"github.com/sonarsource/astquery/internal/graph"
	"github.com/sonarsource/astquery/internal/invariant"
)

// Node is a vertex of the IR graph.
//
// Edges are stored on both ends: a node lists its children in order and its
// parents in insertion order. The edge primitives (AddChild, AddParent,
// RemoveChild, RemoveParent) keep both ends in sync and are idempotent.
//
// INVARIANTS:
//   - p in n.Parents() iff n in p.Children()
//   - A Scope lists u as unscope iff u lists the Scope as scope start
//   - A node whose cache is valid only has parents (for ancestry caches) or
//     children (for descendant caches) whose cache is valid as well
type Node struct {
	g  *Graph
	id graph.ID
	op Op

	children []graph.ID
	parents  []graph.ID

	// Operands of Combine and CombineDrop.
	left, right graph.ID

	// Unscopes of a Scope, or scope starts of an Unscope.
	links []graph.ID

	// Memoized derived properties; nil (or invalid) until computed.
	ancestors   graph.IDSet
	descendants graph.IDSet
	dominators  graph.IDSet
	idom        graph.ID
	idomValid   bool
	hasSink     sinkState

	computing computeFlags
}

type sinkState uint8

const (
	sinkUnknown sinkState = iota
	sinkAbsent
	sinkPresent
)

type computeFlags uint8

const (
	computingAncestors computeFlags = 1 << iota
	computingDescendants
	computingDominators
	computingSink
)

// ID implements graph.Node.
func (n *Node) ID() graph.ID { return n.id }

// Op returns the operation of the node.
func (n *Node) Op() Op { return n.op }

// Kind returns the kind of the node operation.
func (n *Node) Kind() Kind { return n.op.Kind() }

// Graph returns the arena holding the node.
func (n *Node) Graph() *Graph { return n.g }

// IsSink implements graph.Node. Only Consumers are sinks.
func (n *Node) IsSink() bool { return n.op.Kind() == KindConsumer }

// Children implements graph.Node.
func (n *Node) Children() []*Node { return n.g.nodesOf(n.children) }

// Parents returns the parents in insertion order.
func (n *Node) Parents() []*Node { return n.g.nodesOf(n.parents) }

// Parent returns the single parent of the node, or nil when the node does
// not have exactly one.
func (n *Node) Parent() *Node {
	if len(n.parents) != 1 {
		return nil
	}
	return n.g.nodes[n.parents[0]]
}

// Left returns the left operand of a Combine or CombineDrop.
func (n *Node) Left() *Node { return n.g.nodes[n.left] }

// Right returns the right operand of a Combine or CombineDrop.
func (n *Node) Right() *Node { return n.g.nodes[n.right] }

// Unscopes returns the unscopes of a Scope.
func (n *Node) Unscopes() []*Node {
	if n.Kind() != KindScope {
		return nil
	}
	return n.g.nodesOf(n.links)
}

// ScopeStarts returns the scope starts of an Unscope.
func (n *Node) ScopeStarts() []*Node {
	if n.Kind() != KindUnscope {
		return nil
	}
	return n.g.nodesOf(n.links)
}

// ScopeIDs returns the scope ids closed by an Unscope.
func (n *Node) ScopeIDs() []ScopeID {
	var ids []ScopeID
	for _, s := range n.ScopeStarts() {
		id := s.op.(Scope).ID
		if !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}
	return ids
}

// AddScopeStart makes an Unscope close scope as well.
func (n *Node) AddScopeStart(scope *Node) {
	if n.Kind() != KindUnscope || scope.Kind() != KindScope {
		invariant.Failf(invariant.CodeMalformedNode, "cannot add %s %d as scope start of %s %d",
			scope.Kind(), scope.id, n.Kind(), n.id)
	}
	link(scope, n)
}

// Deleted reports whether the node was removed from its arena.
func (n *Node) Deleted() bool {
	return n.g.nodes[n.id] != n
}

// AddChild adds c as the last child of n.
func (n *Node) AddChild(c *Node) {
	if slices.Contains(n.children, c.id) {
		return
	}
	n.children = append(n.children, c.id)
	n.childrenChanged()
	c.AddParent(n)
}

// AddParent adds p as a parent of n.
func (n *Node) AddParent(p *Node) {
	if slices.Contains(n.parents, p.id) {
		return
	}
	n.parents = append(n.parents, p.id)
	n.parentsChanged()
	p.AddChild(n)
}

// RemoveChild removes the edge n -> c.
func (n *Node) RemoveChild(c *Node) {
	i := slices.Index(n.children, c.id)
	if i < 0 {
		return
	}
	n.children = slices.Delete(n.children, i, i+1)
	n.childrenChanged()
	c.RemoveParent(n)
}

// RemoveParent removes the edge p -> n.
func (n *Node) RemoveParent(p *Node) {
	i := slices.Index(n.parents, p.id)
	if i < 0 {
		return
	}
	n.parents = slices.Delete(n.parents, i, i+1)
	n.parentsChanged()
	p.RemoveChild(n)
}

// ReplaceParent moves n from old to nw, retargeting Combine operands.
func (n *Node) ReplaceParent(old, nw *Node) {
	if old == nw {
		return
	}
	if n.left == old.id {
		n.left = nw.id
	}
	if n.right == old.id {
		n.right = nw.id
	}
	n.moveParent(old, nw)
}

func (n *Node) moveParent(old, nw *Node) {
	if old == nw || !slices.Contains(n.parents, old.id) {
		return
	}
	n.AddParent(nw)
	n.RemoveParent(old)
}

// parentsChanged resets the ancestry caches of n and of every descendant.
func (n *Node) parentsChanged() {
	if n.ancestors == nil && n.dominators == nil && !n.idomValid {
		return
	}
	n.ancestors, n.dominators, n.idomValid = nil, nil, false
	for _, c := range n.Children() {
		c.parentsChanged()
	}
}

// childrenChanged resets the descendant caches of n and of every ancestor.
func (n *Node) childrenChanged() {
	if n.descendants == nil && n.hasSink == sinkUnknown {
		return
	}
	n.descendants, n.hasSink = nil, sinkUnknown
	for _, p := range n.Parents() {
		p.childrenChanged()
	}
}

func (n *Node) enter(f computeFlags) {
	if n.computing&f != 0 {
		invariant.Fail(invariant.Newf(invariant.CodeCyclicGraph, "node %d reaches itself", n.id).
			With("node", n.id))
	}
	n.computing |= f
}

func (n *Node) leave(f computeFlags) {
	n.computing &^= f
}

// Ancestors returns n and every node with a path to n.
// The returned set must not be modified.
func (n *Node) Ancestors() graph.IDSet {
	if n.ancestors != nil {
		return n.ancestors
	}
	n.enter(computingAncestors)
	defer n.leave(computingAncestors)

	set := graph.NewIDSet(n.id)
	for _, p := range n.Parents() {
		for id := range p.Ancestors() {
			set.Add(id)
		}
	}
	n.ancestors = set
	return set
}

// StrictAncestors returns Ancestors without n.
func (n *Node) StrictAncestors() graph.IDSet {
	return n.Ancestors().Without(n.id)
}

// Descendants returns n and every node reachable from n.
// The returned set must not be modified.
func (n *Node) Descendants() graph.IDSet {
	if n.descendants != nil {
		return n.descendants
	}
	n.enter(computingDescendants)
	defer n.leave(computingDescendants)

	set := graph.NewIDSet(n.id)
	for _, c := range n.Children() {
		for id := range c.Descendants() {
			set.Add(id)
		}
	}
	n.descendants = set
	return set
}

// StrictDescendants returns Descendants without n.
func (n *Node) StrictDescendants() graph.IDSet {
	return n.Descendants().Without(n.id)
}

// Dominators returns the nodes present on every path from the root to n,
// n included. The returned set must not be modified.
func (n *Node) Dominators() graph.IDSet {
	if n.dominators != nil {
		return n.dominators
	}
	n.enter(computingDominators)
	defer n.leave(computingDominators)

	var set graph.IDSet
	for i, p := range n.Parents() {
		if i == 0 {
			set = p.Dominators().Clone()
			continue
		}
		set = set.Intersect(p.Dominators())
	}
	if set == nil {
		set = graph.NewIDSet()
	}
	set.Add(n.id)
	n.dominators = set
	return set
}

// StrictDominators returns Dominators without n.
func (n *Node) StrictDominators() graph.IDSet {
	return n.Dominators().Without(n.id)
}

// ImmediateDominator returns the closest strict dominator of n: the only
// strict dominator that dominates no other strict dominator.
//
// The root has no immediate dominator; asking for it is a violation.
func (n *Node) ImmediateDominator() *Node {
	if n.idomValid {
		return n.g.nodes[n.idom]
	}

	strict := n.StrictDominators()
	var found []graph.ID
	for s := range strict {
		closest := true
		for o := range strict {
			if o != s && n.g.nodes[o].Dominators().Has(s) {
				closest = false
				break
			}
		}
		if closest {
			found = append(found, s)
		}
	}
	if len(found) != 1 {
		invariant.Fail(invariant.Newf(invariant.CodeNoDominator,
			"node %d has %d immediate dominator candidates", n.id, len(found)).With("node", n.id))
	}

	n.idom, n.idomValid = found[0], true
	return n.g.nodes[n.idom]
}

// HasSink reports whether n is a sink or reaches one.
func (n *Node) HasSink() bool {
	switch n.hasSink {
	case sinkPresent:
		return true
	case sinkAbsent:
		return false
	}
	n.enter(computingSink)
	defer n.leave(computingSink)

	has := n.IsSink()
	for _, c := range n.Children() {
		if has {
			break
		}
		has = c.HasSink()
	}
	n.hasSink = sinkAbsent
	if has {
		n.hasSink = sinkPresent
	}
	return has
}

// Delete removes n and every edge touching it, including scope links.
// The root stays in the arena but loses its children.
func (n *Node) Delete() {
	switch n.Kind() {
	case KindScope:
		for _, u := range n.Unscopes() {
			unlink(n, u)
		}
	case KindUnscope:
		for _, s := range n.ScopeStarts() {
			unlink(s, n)
		}
	}
	for _, p := range n.Parents() {
		p.RemoveChild(n)
	}
	for _, c := range n.Children() {
		c.RemoveParent(n)
	}
	if n.id != n.g.root {
		delete(n.g.nodes, n.id)
	}
}

// Copy adds a node with the same operation under the same parents. The
// copy has no children. Scope links are duplicated: a copied Scope closes at
// the same unscopes and a copied Unscope closes the same scope starts.
func (n *Node) Copy() *Node {
	c := n.g.newNode(n.op)
	c.left, c.right = n.left, n.right
	for _, p := range n.Parents() {
		c.AddParent(p)
	}
	switch n.Kind() {
	case KindScope:
		for _, u := range n.Unscopes() {
			link(c, u)
		}
	case KindUnscope:
		for _, s := range n.ScopeStarts() {
			link(s, c)
		}
	}
	return c
}

// ApplyTranslation moves n from its parents to their translations, keeping
// its children. Combine operands and scope links are translated as well.
func (n *Node) ApplyTranslation(t *TranslationTable) {
	left, right := n.Left(), n.Right()
	for _, p := range n.Parents() {
		n.moveParent(p, t.Get(p))
	}
	if left != nil {
		n.left = t.Get(left).id
	}
	if right != nil {
		n.right = t.Get(right).id
	}

	switch n.Kind() {
	case KindScope:
		for _, u := range n.Unscopes() {
			if nu := t.Get(u); nu != u {
				unlink(n, u)
				link(n, nu)
			}
		}
	case KindUnscope:
		for _, s := range n.ScopeStarts() {
			if ns := t.Get(s); ns != s {
				unlink(s, n)
				link(ns, n)
			}
		}
	}
}

// CanMergeWith reports whether n and o compute the same values given the
// same parents, so that one of them can replace the other.
func (n *Node) CanMergeWith(o *Node) bool {
	if n.Kind() != o.Kind() {
		return false
	}
	switch op := n.op.(type) {
	case Map, Filter, FlatMap, Aggregate, AggregateDrop:
		return SameFunction(FunctionOf(n.op), FunctionOf(o.op))
	case FilterNonNull:
		return true
	case FilterType:
		return sameTypes(op.Types, o.op.(FilterType).Types)
	case Combine, CombineDrop:
		return n.left == o.left && n.right == o.right &&
			SameFunction(FunctionOf(n.op), FunctionOf(o.op))
	case Union:
		return graph.NewIDSet(n.parents...).Equal(graph.NewIDSet(o.parents...))
	case Scope:
		return op.ID == o.op.(Scope).ID
	case Unscope:
		return graph.NewIDSet(n.links...).Equal(graph.NewIDSet(o.links...))
	case Root, Consumer:
		return false
	}
	return false
}

func (n *Node) String() string {
	switch op := n.op.(type) {
	case Combine, CombineDrop:
		return fmt.Sprintf("%s([%d-%d]%s)", n.Kind(), n.left, n.right, nameOf(FunctionOf(op)))
	case Scope:
		return fmt.Sprintf("Scope(%d-%s)", op.ID, joinIDs(n.links))
	case Unscope:
		return fmt.Sprintf("Unscope(%s)", joinIDs(n.links))
	}
	return n.op.String()
}

func joinIDs(ids []graph.ID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprint(int64(id))
	}
	return strings.Join(parts, ", ")
}
