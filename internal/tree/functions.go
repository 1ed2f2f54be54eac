package tree

import (
	"iter"
	"slices"
	"strings"

	"github.com/sonarsource/astquery/internal/ir"
)

// SubtreeFunction is the FlatMap node function yielding the descendants of
// a tree. Children of nodes whose kind is in StopAt are not visited.
type SubtreeFunction struct {
	IncludeStart bool
	StopAt       []Kind
}

// Subtree returns the node function walking the strict descendants.
func Subtree(stopAt ...Kind) SubtreeFunction {
	return SubtreeFunction{StopAt: normalize(stopAt)}
}

// Self returns the node function walking the start node, then its
// descendants.
func Self(stopAt ...Kind) SubtreeFunction {
	return SubtreeFunction{IncludeStart: true, StopAt: normalize(stopAt)}
}

// normalize sorts and dedups kinds so equal functions compare equal.
func normalize(kinds []Kind) []Kind {
	if len(kinds) == 0 {
		return nil
	}
	out := slices.Clone(kinds)
	slices.Sort(out)
	return slices.Compact(out)
}

func (SubtreeFunction) Kind() string { return "Subtree" }

func (f SubtreeFunction) Name() string {
	name := "Subtree"
	if f.IncludeStart {
		name = "Tree"
	}
	kinds := make([]string, len(f.StopAt))
	for i, k := range f.StopAt {
		kinds[i] = string(k)
	}
	return name + "(" + strings.Join(kinds, ", ") + ")"
}

func (f SubtreeFunction) FuncID() string { return "NodeOperation[" + f.Name() + "]" }

// Seq yields the trees reached from v, which must be a *Tree.
func (f SubtreeFunction) Seq(v any) iter.Seq[any] {
	return func(yield func(any) bool) {
		t, ok := v.(*Tree)
		if !ok || t == nil {
			return
		}
		if f.IncludeStart && !yield(t) {
			return
		}
		for d := range t.Descendants(f.StopAt...) {
			if !yield(d) {
				return
			}
		}
	}
}

// ParentsFunction is the FlatMap node function yielding the ancestors of a
// tree, nearest first.
type ParentsFunction struct{}

// Parents is the ParentsFunction singleton.
var Parents ir.NodeFunction = ParentsFunction{}

func (ParentsFunction) Kind() string   { return "Parents" }
func (ParentsFunction) Name() string   { return "Parents" }
func (ParentsFunction) FuncID() string { return "NodeOperation[Parents]" }

// Seq yields the ancestors of v, which must be a *Tree.
func (ParentsFunction) Seq(v any) iter.Seq[any] {
	return func(yield func(any) bool) {
		t, ok := v.(*Tree)
		if !ok || t == nil {
			return
		}
		for p := range t.Ancestors() {
			if !yield(p) {
				return
			}
		}
	}
}

// Sequencer is implemented by node functions that can also run as a plain
// FlatMap.
type Sequencer interface {
	ir.NodeFunction
	Seq(v any) iter.Seq[any]
}

var (
	_ Sequencer = SubtreeFunction{}
	_ Sequencer = ParentsFunction{}
)
