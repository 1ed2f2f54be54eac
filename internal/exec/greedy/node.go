package greedy

import (
	"fmt"

	"github.com/sonarsource/astquery/internal/exec"
	"github.com/sonarsource/astquery/internal/graph"
)

// Node is a runtime node of the greedy executor.
//
// Nodes are immutable once built. A parent calls OnValue and OnBatchEnd on
// its children with its own id as caller; all per-run state lives in the
// exec.Context.
type Node interface {
	ID() graph.ID
	Children() []Node
	IsSink() bool

	// OnValue receives a value pushed by caller.
	OnValue(ctx *exec.Context, caller graph.ID, v any)

	// OnBatchEnd receives a BatchEnd pushed by caller.
	OnBatchEnd(ctx *exec.Context, caller graph.ID, b BatchEnd)

	// Complete reports whether the node ignores further values until the
	// next active BatchEnd.
	Complete(ctx *exec.Context) bool
}

// Base implements the propagation and completion protocol shared by every
// node. Nodes embed it and override OnValue, and OnBatchEnd when they keep
// per-batch state.
type Base struct {
	id          graph.ID
	children    []Node
	complete    *exec.Store[bool]
	completable bool
}

// NewBase creates the shared part of a node.
func NewBase(id graph.ID, children []Node) Base {
	return Base{
		id:          id,
		children:    children,
		complete:    exec.NewStore(func() bool { return false }),
		completable: true,
	}
}

// ID implements Node.
func (b *Base) ID() graph.ID { return b.id }

// Children implements Node.
func (b *Base) Children() []Node { return b.children }

// IsSink implements Node.
func (b *Base) IsSink() bool { return false }

// Complete implements Node.
func (b *Base) Complete(ctx *exec.Context) bool {
	return b.complete.Get(ctx)
}

// MarkComplete makes the node complete within ctx.
func (b *Base) MarkComplete(ctx *exec.Context) {
	if b.completable {
		b.complete.Set(ctx, true)
	}
}

// MarkIncomplete clears the completion flag.
func (b *Base) MarkIncomplete(ctx *exec.Context) {
	b.complete.Remove(ctx)
}

// OnBatchEnd is the default BatchEnd handler: an active signal resets
// completion, then the signal is forwarded.
func (b *Base) OnBatchEnd(ctx *exec.Context, _ graph.ID, be BatchEnd) {
	if be.Active() {
		b.MarkIncomplete(ctx)
	}
	b.PropagateBatchEnd(ctx, be)
}

// PropagateValue pushes v to every child that is not complete. When every
// child is complete afterwards the node completes as well.
func (b *Base) PropagateValue(ctx *exec.Context, v any) {
	allComplete := true
	for _, c := range b.children {
		if c.Complete(ctx) {
			continue
		}
		c.OnValue(ctx, b.id, v)
		allComplete = allComplete && c.Complete(ctx)
	}
	if allComplete {
		b.MarkComplete(ctx)
	}
}

// PropagateBatchEnd pushes be to every child.
func (b *Base) PropagateBatchEnd(ctx *exec.Context, be BatchEnd) {
	for _, c := range b.children {
		c.OnBatchEnd(ctx, b.id, be)
	}
}

func label(name string, id graph.ID) string {
	return fmt.Sprintf("%s-%d", name, id)
}
