package graph

import (
	"slices"

	"github.com/emirpasic/gods/queues/linkedlistqueue"
	"github.com/emirpasic/gods/stacks/arraystack"
)

// BreadthFirst returns every node reachable from start through children,
// each exactly once, in level order. start comes first.
func BreadthFirst[N Node[N]](start N) []N {
	visited := NewIDSet(start.ID())
	queue := linkedlistqueue.New()
	queue.Enqueue(start)

	var out []N
	for !queue.Empty() {
		v, _ := queue.Dequeue()
		current := v.(N)
		out = append(out, current)

		for _, child := range current.Children() {
			if visited.Has(child.ID()) {
				continue
			}
			visited.Add(child.ID())
			queue.Enqueue(child)
		}
	}
	return out
}

type frame[N any] struct {
	node     N
	children []N
	next     int
}

// PostOrder returns every node reachable from start with all children of a
// node before the node itself. Shared subtrees are visited once.
//
// The walk uses an explicit stack since pipelines can be arbitrarily deep.
func PostOrder[N Node[N]](start N) []N {
	visited := NewIDSet(start.ID())
	stack := arraystack.New()
	stack.Push(&frame[N]{node: start, children: start.Children()})

	var out []N
	for !stack.Empty() {
		top, _ := stack.Peek()
		f := top.(*frame[N])

		if f.next < len(f.children) {
			child := f.children[f.next]
			f.next++
			if !visited.Has(child.ID()) {
				visited.Add(child.ID())
				stack.Push(&frame[N]{node: child, children: child.Children()})
			}
			continue
		}

		stack.Pop()
		out = append(out, f.node)
	}
	return out
}

// TopologicalSort returns every node reachable from start such that a node
// always precedes its children. It is the reverse of PostOrder.
func TopologicalSort[N Node[N]](start N) []N {
	out := PostOrder(start)
	slices.Reverse(out)
	return out
}
