package greedy

import (
	"github.com/sonarsource/astquery/internal/exec"
	"github.com/sonarsource/astquery/internal/graph"
	"github.com/sonarsource/astquery/internal/tree"
)

// SubtreeNode walks the descendants of every tree it receives and stops
// walking once it completes.
type SubtreeNode struct {
	Base
	fn tree.SubtreeFunction
}

func (n *SubtreeNode) OnValue(ctx *exec.Context, _ graph.ID, v any) {
	n.pushAll(ctx, n.fn.Seq(v))
}

func (n *SubtreeNode) String() string { return label(n.fn.Name(), n.id) }

// ParentsNode pushes the ancestors of every tree it receives, nearest
// first.
type ParentsNode struct {
	Base
}

func (n *ParentsNode) OnValue(ctx *exec.Context, _ graph.ID, v any) {
	n.pushAll(ctx, tree.ParentsFunction{}.Seq(v))
}

func (n *ParentsNode) String() string { return label("TreeParents", n.id) }
