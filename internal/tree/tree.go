// Package tree is the document model queried by the engine: labelled,
// kinded trees with parent links, decoded from YAML, JSON or CUE.
package tree

import (
	"fmt"
	"iter"
	"slices"
	"strings"
)

// Kind classifies a tree node.
type Kind string

const (
	KindObject Kind = "object"
	KindArray  Kind = "array"
	KindString Kind = "string"
	KindInt    Kind = "int"
	KindFloat  Kind = "float"
	KindBool   Kind = "bool"
	KindNull   Kind = "null"
)

// Tree is one node of a document.
//
// Label is the field name under which an object member appears, or the
// index of an array element. Value holds the decoded scalar for scalar
// kinds and is nil otherwise.
type Tree struct {
	Kind     Kind
	Label    string
	Value    any
	Children []*Tree

	parent *Tree
}

// New creates a node and adopts children.
func New(kind Kind, label string, value any, children ...*Tree) *Tree {
	t := &Tree{Kind: kind, Label: label, Value: value}
	for _, c := range children {
		t.Add(c)
	}
	return t
}

// Add appends c as the last child of t.
func (t *Tree) Add(c *Tree) {
	c.parent = t
	t.Children = append(t.Children, c)
}

// Parent returns the enclosing node, or nil for the document root.
func (t *Tree) Parent() *Tree {
	return t.parent
}

// Is reports whether t has one of kinds.
func (t *Tree) Is(kinds ...Kind) bool {
	return slices.Contains(kinds, t.Kind)
}

// Descendants yields the strict descendants of t in pre-order. The
// children of a node whose kind is in stopAt are not visited, though the
// node itself is.
func (t *Tree) Descendants(stopAt ...Kind) iter.Seq[*Tree] {
	return func(yield func(*Tree) bool) {
		var walk func(n *Tree) bool
		walk = func(n *Tree) bool {
			for _, c := range n.Children {
				if !yield(c) {
					return false
				}
				if !c.Is(stopAt...) && !walk(c) {
					return false
				}
			}
			return true
		}
		walk(t)
	}
}

// Ancestors yields the parent of t, then its parent, up to the root.
func (t *Tree) Ancestors() iter.Seq[*Tree] {
	return func(yield func(*Tree) bool) {
		for p := t.parent; p != nil; p = p.parent {
			if !yield(p) {
				return
			}
		}
	}
}

// Path returns the labels from the root to t joined by dots.
func (t *Tree) Path() string {
	var labels []string
	for n := t; n != nil && n.parent != nil; n = n.parent {
		labels = append(labels, n.Label)
	}
	slices.Reverse(labels)
	return strings.Join(labels, ".")
}

// Plain converts t back to plain Go values: map[string]any for objects,
// []any for arrays and the scalar value otherwise.
func (t *Tree) Plain() any {
	switch t.Kind {
	case KindObject:
		m := make(map[string]any, len(t.Children))
		for _, c := range t.Children {
			m[c.Label] = c.Plain()
		}
		return m
	case KindArray:
		out := make([]any, len(t.Children))
		for i, c := range t.Children {
			out[i] = c.Plain()
		}
		return out
	}
	return t.Value
}

func (t *Tree) String() string {
	path := t.Path()
	if path == "" {
		path = "$"
	}
	switch t.Kind {
	case KindObject, KindArray:
		return fmt.Sprintf("%s(%s)", t.Kind, path)
	}
	return fmt.Sprintf("%s(%s=%v)", t.Kind, path, t.Value)
}
