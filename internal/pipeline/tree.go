package pipeline

import (
	"fmt"

	"github.com/sonarsource/astquery/internal/ir"
	"github.com/sonarsource/astquery/internal/tree"
)

// Subtree emits the strict descendants of every tree, not descending
// below nodes of the stop kinds.
func Subtree(f Flow[*tree.Tree], stopAt ...tree.Kind) Flow[*tree.Tree] {
	return flow[*tree.Tree](ir.NewFlatMap(f.node, tree.Subtree(stopAt...)), Many)
}

// TreeOf emits every tree, then its descendants.
func TreeOf(f Flow[*tree.Tree], stopAt ...tree.Kind) Flow[*tree.Tree] {
	return flow[*tree.Tree](ir.NewFlatMap(f.node, tree.Self(stopAt...)), Many)
}

// ParentsOf emits the ancestors of every tree, nearest first.
func ParentsOf(f Flow[*tree.Tree]) Flow[*tree.Tree] {
	return flow[*tree.Tree](ir.NewFlatMap(f.node, tree.Parents), Many)
}

// OfKind keeps the trees of one of kinds.
func OfKind(f Flow[*tree.Tree], kinds ...tree.Kind) Flow[*tree.Tree] {
	return Filter(f, Named(fmt.Sprintf("tree.ofKind%v", kinds), func(t *tree.Tree) bool {
		return t != nil && t.Is(kinds...)
	}).Describe("OfKind"))
}
