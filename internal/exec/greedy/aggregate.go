package greedy

import (
	"fmt"

	"github.com/sonarsource/astquery/internal/exec"
	"github.com/sonarsource/astquery/internal/graph"
	"github.com/sonarsource/astquery/internal/ir"
)

// batch buffers the values of the current batch.
type batch struct {
	values []any
}

func newBatchStore() *exec.Store[*batch] {
	return exec.NewStore(func() *batch { return &batch{} })
}

// AggregateNode reduces every batch to one value.
type AggregateNode struct {
	Base
	fn    ir.AggregateFunc
	batch *exec.Store[*batch]
}

func (n *AggregateNode) OnValue(ctx *exec.Context, _ graph.ID, v any) {
	b := n.batch.Get(ctx)
	b.values = append(b.values, v)
}

// OnBatchEnd emits the reduction of the batch when the signal is active.
func (n *AggregateNode) OnBatchEnd(ctx *exec.Context, caller graph.ID, be BatchEnd) {
	if be.Active() {
		values := n.batch.Remove(ctx).values
		if !n.Complete(ctx) {
			n.PropagateValue(ctx, n.fn(values))
		}
	}
	n.Base.OnBatchEnd(ctx, caller, be)
}

func (n *AggregateNode) String() string { return label("Aggregate", n.id) }

// AggregateDropNode reduces every batch to at most one value.
type AggregateDropNode struct {
	Base
	fn    ir.AggregateDropFunc
	batch *exec.Store[*batch]
}

func (n *AggregateDropNode) OnValue(ctx *exec.Context, _ graph.ID, v any) {
	b := n.batch.Get(ctx)
	b.values = append(b.values, v)
}

func (n *AggregateDropNode) OnBatchEnd(ctx *exec.Context, caller graph.ID, be BatchEnd) {
	if be.Active() {
		values := n.batch.Remove(ctx).values
		if !n.Complete(ctx) {
			if out, ok := n.fn(values).Get(); ok {
				n.PropagateValue(ctx, out)
			}
		}
	}
	n.Base.OnBatchEnd(ctx, caller, be)
}

func (n *AggregateDropNode) String() string { return label("AggregateDrop", n.id) }

// CountNode counts the values of every batch without buffering them.
type CountNode struct {
	Base
	count *exec.Store[int]
}

func (n *CountNode) OnValue(ctx *exec.Context, _ graph.ID, _ any) {
	n.count.Set(ctx, n.count.Get(ctx)+1)
}

func (n *CountNode) OnBatchEnd(ctx *exec.Context, caller graph.ID, be BatchEnd) {
	if be.Active() {
		count := n.count.Remove(ctx)
		if !n.Complete(ctx) {
			n.PropagateValue(ctx, count)
		}
	}
	n.Base.OnBatchEnd(ctx, caller, be)
}

func (n *CountNode) String() string { return label("Count", n.id) }

// ExistsNode reports whether a batch holds a value. It completes on the
// first value, so its parents stop producing for the rest of the batch.
type ExistsNode struct {
	Base
	inverted bool
}

func (n *ExistsNode) OnValue(ctx *exec.Context, _ graph.ID, _ any) {
	n.PropagateValue(ctx, !n.inverted)
	n.MarkComplete(ctx)
}

func (n *ExistsNode) OnBatchEnd(ctx *exec.Context, caller graph.ID, be BatchEnd) {
	if be.Active() && !n.Complete(ctx) {
		n.PropagateValue(ctx, n.inverted)
	}
	n.Base.OnBatchEnd(ctx, caller, be)
}

func (n *ExistsNode) String() string {
	if n.inverted {
		return label("NotExists", n.id)
	}
	return label("Exists", n.id)
}

// FirstNode forwards the first value of every batch and drops empty
// batches.
type FirstNode struct {
	Base
}

func (n *FirstNode) OnValue(ctx *exec.Context, _ graph.ID, v any) {
	n.PropagateValue(ctx, v)
	n.MarkComplete(ctx)
}

func (n *FirstNode) String() string { return label("First", n.id) }

// FirstOrDefaultNode forwards the first value of every batch, or a default
// value for an empty batch.
type FirstOrDefaultNode struct {
	Base
	def any
}

func (n *FirstOrDefaultNode) OnValue(ctx *exec.Context, _ graph.ID, v any) {
	n.PropagateValue(ctx, v)
	n.MarkComplete(ctx)
}

func (n *FirstOrDefaultNode) OnBatchEnd(ctx *exec.Context, caller graph.ID, be BatchEnd) {
	if be.Active() && !n.Complete(ctx) {
		n.PropagateValue(ctx, n.def)
	}
	n.Base.OnBatchEnd(ctx, caller, be)
}

func (n *FirstOrDefaultNode) String() string {
	return label(fmt.Sprintf("FirstOrDefault(%v)", n.def), n.id)
}
