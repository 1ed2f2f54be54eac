package compiler

import (
	"fmt"
	"slices"
	"strings"

	"github.com/sonarsource/astquery/internal/graph"
)

// CycleError reports pipelines that use each other in a cycle. Such
// pipelines cannot be inlined.
type CycleError struct {
	Path []string `json:"path"` // Cycle path: ["a", "b", "a"]
}

func (e *CycleError) Error() string {
	if len(e.Path) == 2 {
		return fmt.Sprintf("[%s] pipeline %q uses itself", ErrReferenceCycle, e.Path[0])
	}
	return fmt.Sprintf("[%s] pipelines use each other: %s", ErrReferenceCycle, strings.Join(e.Path, " -> "))
}

// AnalyzeCycles finds the reference cycles among defs. Definitions are
// visited in name order, so the result is deterministic.
//
// An acyclic set returns an empty list.
func AnalyzeCycles(defs map[string]*Definition) []*CycleError {
	names := make([]string, 0, len(defs))
	for name := range defs {
		names = append(names, name)
	}
	slices.Sort(names)

	nodes := make(map[string]*refNode, len(names))
	root := &refNode{id: graph.ID(0)}
	for i, name := range names {
		nodes[name] = &refNode{id: graph.ID(i + 1), name: name}
		root.children = append(root.children, nodes[name])
	}
	for _, name := range names {
		for _, used := range uses(defs[name].Steps) {
			if n, ok := nodes[used]; ok {
				nodes[name].children = append(nodes[name].children, n)
			}
		}
	}

	byID := make(map[graph.ID]string, len(names))
	for name, n := range nodes {
		byID[n.id] = name
	}

	cycles := []*CycleError{}
	for _, c := range graph.FindCycles(root) {
		path := make([]string, len(c))
		for i, id := range c {
			path[i] = byID[id]
		}
		cycles = append(cycles, &CycleError{Path: path})
	}
	return cycles
}

// uses lists the pipelines referenced by steps, nested steps included.
func uses(steps []Step) []string {
	var out []string
	for _, s := range steps {
		if s.Op == OpUse && s.Pipeline != "" && !slices.Contains(out, s.Pipeline) {
			out = append(out, s.Pipeline)
		}
		for _, u := range uses(s.Steps) {
			if !slices.Contains(out, u) {
				out = append(out, u)
			}
		}
	}
	return out
}

// refNode is a definition in the reference graph.
type refNode struct {
	id       graph.ID
	name     string
	children []*refNode
}

func (n *refNode) ID() graph.ID         { return n.id }
func (n *refNode) Children() []*refNode { return n.children }
func (n *refNode) IsSink() bool         { return len(n.children) == 0 }
