package ir

import (
	"fmt"
	"strconv"

	"github.com/cespare/xxhash/v2"

	"github.com/sonarsource/astquery/internal/graph"
)

// Fingerprint hashes the structure of the graph reachable from the root.
//
// Nodes and scopes are numbered in breadth-first order, so two graphs built
// the same way hash equal even though their node and scope ids differ.
// Identified functions contribute their id. Anonymous functions are numbered
// in the same order, the same function always getting the same number, so
// the hash tells whether two nodes share an anonymous function but not
// which one it is.
func Fingerprint(g *Graph) uint64 {
	nodes := g.Nodes()
	index := make(map[graph.ID]int, len(nodes))
	for i, n := range nodes {
		index[n.id] = i
	}
	ref := func(id graph.ID) string {
		if i, ok := index[id]; ok {
			return strconv.Itoa(i)
		}
		return "?"
	}

	scopes := make(map[ScopeID]int)
	for _, n := range nodes {
		if sc, ok := n.op.(Scope); ok {
			if _, seen := scopes[sc.ID]; !seen {
				scopes[sc.ID] = len(scopes)
			}
		}
	}

	var anonymous []Function
	anon := func(fn Function) int {
		for i, seen := range anonymous {
			if seen == fn {
				return i
			}
		}
		anonymous = append(anonymous, fn)
		return len(anonymous) - 1
	}

	h := xxhash.New()
	for i, n := range nodes {
		_, _ = h.WriteString(strconv.Itoa(i))
		_, _ = h.WriteString(":")
		_, _ = h.WriteString(n.Kind().String())
		_, _ = h.WriteString("(")
		_, _ = h.WriteString(opKey(n.op, scopes, anon))
		_, _ = h.WriteString(")")

		if k := n.Kind(); k == KindCombine || k == KindCombineDrop {
			_, _ = h.WriteString("[" + ref(n.left) + "-" + ref(n.right) + "]")
		}
		_, _ = h.WriteString("->")
		for _, c := range n.children {
			_, _ = h.WriteString(ref(c) + ",")
		}
		_, _ = h.WriteString("~")
		for _, l := range n.links {
			_, _ = h.WriteString(ref(l) + ",")
		}
		_, _ = h.WriteString(";")
	}
	return h.Sum64()
}

// FingerprintString formats Fingerprint as 16 hex digits.
func FingerprintString(g *Graph) string {
	return fmt.Sprintf("%016x", Fingerprint(g))
}

func opKey(op Op, scopes map[ScopeID]int, anon func(Function) int) string {
	switch o := op.(type) {
	case FilterType:
		return o.String()
	case Scope:
		return strconv.Itoa(scopes[o.ID])
	case Consumer:
		return o.Name
	}
	fn := FunctionOf(op)
	if IsNil(fn) {
		return ""
	}
	if _, ok := fn.(NodeFunction); ok {
		return fn.FuncID()
	}
	if id := fn.FuncID(); id != "" {
		return id
	}
	return "anonymous#" + strconv.Itoa(anon(fn))
}
