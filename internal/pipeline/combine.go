package pipeline

import (
	"fmt"

	"github.com/sonarsource/astquery/internal/ir"
	"github.com/sonarsource/astquery/internal/transform"
)

// Pair is the result of Zip.
type Pair[A, B any] struct {
	First  A
	Second B
}

func (p Pair[A, B]) String() string {
	return fmt.Sprintf("(%v, %v)", p.First, p.Second)
}

// Combine pairs every value of left with the value of right of the same
// batch. right must be Single.
func Combine[A, B, C any](left Flow[A], right Flow[B], fn *Function[func(A, B) C]) Flow[C] {
	mustSingle(right, "combine")
	l := erase(fn, "combine", func(g func(A, B) C) ir.CombineFunc {
		return func(a, b any) any { return g(as[A](a), as[B](b)) }
	})
	return flow[C](ir.NewCombine(left.node, joinOperand(left.node, right.node), l), left.card)
}

// CombineDrop is Combine with a function that may drop the pair.
func CombineDrop[A, B, C any](left Flow[A], right Flow[B], fn *Function[func(A, B) ir.Droppable[C]]) Flow[C] {
	mustSingle(right, "combine")
	l := erase(fn, "combineDrop", func(g func(A, B) ir.Droppable[C]) ir.CombineDropFunc {
		return func(a, b any) ir.Droppable[any] { return eraseDroppable(g(as[A](a), as[B](b))) }
	})
	return flow[C](ir.NewCombineDrop(left.node, joinOperand(left.node, right.node), l), left.card.filtered())
}

// joinOperand returns the node a join reads its right side from. A join of
// a node with itself reads the right side through an identity Map, since
// a join needs two distinct parents.
func joinOperand(left, right *ir.Node) *ir.Node {
	if left != right {
		return right
	}
	return ir.NewMap(right, ir.Identity("SelfJoin"))
}

// Zip pairs every value of left with the value of right.
func Zip[A, B any](left Flow[A], right Flow[B]) Flow[Pair[A, B]] {
	return Combine(left, right, Named("pair", func(a A, b B) Pair[A, B] {
		return Pair[A, B]{First: a, Second: b}
	}).Describe("Pair"))
}

// Union forwards the values of every flow.
func Union[T any](first Flow[T], rest ...Flow[T]) Flow[T] {
	n := first.node
	for _, f := range rest {
		n = ir.NewUnion(n, f.node)
	}
	return flow[T](n, Many)
}

// Scoped runs body once per value of f: every value opens a batch of its
// own, so aggregations inside body only see what derives from that value.
func Scoped[A, B any](f Flow[A], body func(Flow[A]) Flow[B]) Flow[B] {
	end := body(flow[A](f.node, Single))
	scope := ir.NewScope(f.node)
	unscope := ir.NewUnscope(end.node, scope)
	transform.CopySubTree(f.node, scope, unscope)
	return flow[B](unscope, max(f.card, end.card))
}

// GroupWith pairs every value of f with the values group derives from it.
func GroupWith[A, G, C any](f Flow[A], group func(Flow[A]) Flow[G], fn *Function[func(A, []G) C]) Flow[C] {
	scope := ir.NewScope(f.node)
	grouped := Collect(group(flow[A](scope, Single)))
	join := Combine(flow[A](scope, Single), grouped, fn)
	return flow[C](ir.NewUnscope(join.node, scope), f.card)
}

// Where keeps the values of f for which cond yields true. An empty
// condition counts as false.
func Where[A any](f Flow[A], cond func(Flow[A]) Flow[bool]) Flow[A] {
	scope := ir.NewScope(f.node)
	c := cond(flow[A](scope, Single))
	if c.card != Single {
		c = OrElse(c, false)
	}
	join := CombineDrop(flow[A](scope, Single), c, Named("where", func(a A, keep bool) ir.Droppable[A] {
		if keep {
			return ir.Keep(a)
		}
		return ir.Drop[A]()
	}).Describe("Where"))
	return flow[A](ir.NewUnscope(join.node, scope), f.card.filtered())
}
