package greedy

import (
	"iter"

	"github.com/sonarsource/astquery/internal/exec"
	"github.com/sonarsource/astquery/internal/graph"
	"github.com/sonarsource/astquery/internal/invariant"
	"github.com/sonarsource/astquery/internal/ir"
)

// RootNode receives the input of a run.
type RootNode struct {
	Base
}

// OnValue pushes the input, then closes the root batch.
func (n *RootNode) OnValue(ctx *exec.Context, _ graph.ID, v any) {
	n.PropagateValue(ctx, v)
	n.PropagateBatchEnd(ctx, NewBatchEnd(ir.RootScopeID))
}

func (n *RootNode) String() string { return label("Root", n.id) }

// MapNode applies a function to every value.
type MapNode struct {
	Base
	fn ir.MapFunc
}

func (n *MapNode) OnValue(ctx *exec.Context, _ graph.ID, v any) {
	n.PropagateValue(ctx, n.fn(v))
}

func (n *MapNode) String() string { return label("Map", n.id) }

// FilterNode forwards the values matching a predicate.
type FilterNode struct {
	Base
	pred ir.PredicateFunc
}

func (n *FilterNode) OnValue(ctx *exec.Context, _ graph.ID, v any) {
	if n.pred(v) {
		n.PropagateValue(ctx, v)
	}
}

func (n *FilterNode) String() string { return label("Filter", n.id) }

// FilterNonNullNode drops nil values, including typed nil pointers.
type FilterNonNullNode struct {
	Base
}

func (n *FilterNonNullNode) OnValue(ctx *exec.Context, _ graph.ID, v any) {
	if !ir.IsNil(v) {
		n.PropagateValue(ctx, v)
	}
}

func (n *FilterNonNullNode) String() string { return label("FilterNonNull", n.id) }

// FilterTypeNode forwards the values assignable to one of a set of types.
type FilterTypeNode struct {
	Base
	types ir.FilterType
}

func (n *FilterTypeNode) OnValue(ctx *exec.Context, _ graph.ID, v any) {
	if n.types.Matches(v) {
		n.PropagateValue(ctx, v)
	}
}

func (n *FilterTypeNode) String() string { return label(n.types.String(), n.id) }

// FlatMapNode pushes every value of the sequence derived from its input.
type FlatMapNode struct {
	Base
	fn ir.FlatMapFunc
}

func (n *FlatMapNode) OnValue(ctx *exec.Context, _ graph.ID, v any) {
	n.pushAll(ctx, n.fn(v))
}

// pushAll stops pulling from seq as soon as the node completes.
func (b *Base) pushAll(ctx *exec.Context, seq iter.Seq[any]) {
	for out := range seq {
		b.PropagateValue(ctx, out)
		if b.Complete(ctx) {
			return
		}
	}
}

func (n *FlatMapNode) String() string { return label("FlatMap", n.id) }

// ScopeNode opens one batch per value.
//
// A scope never completes: each value it receives starts a new batch that
// children must see whole.
type ScopeNode struct {
	Base
	scope ir.ScopeID
}

// OnValue pushes v as a batch of its own.
func (n *ScopeNode) OnValue(ctx *exec.Context, _ graph.ID, v any) {
	n.PropagateValue(ctx, v)
	n.PropagateBatchEnd(ctx, NewBatchEnd(n.scope))
}

// OnBatchEnd forwards outer batch ends disabled by this scope.
func (n *ScopeNode) OnBatchEnd(ctx *exec.Context, caller graph.ID, be BatchEnd) {
	n.Base.OnBatchEnd(ctx, caller, be.DisabledBy(n.scope))
}

func (n *ScopeNode) String() string { return label("Scope", n.id) }

// UnscopeNode closes the scopes it is linked to.
type UnscopeNode struct {
	Base
	scopes ScopeSet
}

func (n *UnscopeNode) OnValue(ctx *exec.Context, _ graph.ID, v any) {
	n.PropagateValue(ctx, v)
}

// OnBatchEnd drops the batch ends of the closed scopes and re-enables the
// outer ones.
func (n *UnscopeNode) OnBatchEnd(ctx *exec.Context, caller graph.ID, be BatchEnd) {
	if n.scopes.Has(be.Creator) {
		return
	}
	n.Base.OnBatchEnd(ctx, caller, be.EnabledBy(n.scopes))
}

func (n *UnscopeNode) String() string { return label("Unscope", n.id) }

// ConsumerNode applies a side effect to every value. It is the only sink.
type ConsumerNode struct {
	Base
	name string
	fn   ir.ConsumerFunc
}

func (n *ConsumerNode) OnValue(ctx *exec.Context, _ graph.ID, v any) {
	n.fn(ctx, v)
}

// OnBatchEnd ignores the signal.
func (n *ConsumerNode) OnBatchEnd(*exec.Context, graph.ID, BatchEnd) {}

// IsSink implements Node.
func (n *ConsumerNode) IsSink() bool { return true }

func (n *ConsumerNode) String() string { return label("Consume", n.id) }

// side identifies the parent a join-like node received a signal from.
type side int

const (
	sideNone side = iota
	sideLeft
	sideRight
)

func (s side) other() side {
	switch s {
	case sideLeft:
		return sideRight
	case sideRight:
		return sideLeft
	}
	return sideNone
}

func (s side) String() string {
	switch s {
	case sideLeft:
		return "left"
	case sideRight:
		return "right"
	}
	return "none"
}

// sides maps callers to the left and right parents of a node.
type sides struct {
	left, right graph.ID
}

func (s sides) of(node graph.ID, caller graph.ID) side {
	switch caller {
	case s.left:
		return sideLeft
	case s.right:
		return sideRight
	}
	invariant.Fail(invariant.Newf(invariant.CodeUnknownCaller,
		"node %d received a signal from %d, want %d or %d", node, caller, s.left, s.right).
		With("node", node).With("caller", caller))
	return sideNone
}
