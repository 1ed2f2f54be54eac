package ir

import (
	"fmt"
	"slices"

	"github.com/hashicorp/go-multierror"

	"github.com/sonarsource/astquery/internal/graph"
)

// ProblemCode categorizes a structural problem found by Validate.
type ProblemCode string

const (
	// ProblemCyclicGraph indicates a cycle reachable from the root.
	ProblemCyclicGraph ProblemCode = "CYCLIC_GRAPH"

	// ProblemUnionArity indicates a Union without exactly two parents.
	ProblemUnionArity ProblemCode = "UNION_ARITY"

	// ProblemEmptyUnscope indicates an Unscope without scope starts.
	ProblemEmptyUnscope ProblemCode = "EMPTY_UNSCOPE"

	// ProblemMalformedCombine indicates a join whose parents are not its operands.
	ProblemMalformedCombine ProblemCode = "MALFORMED_COMBINE"

	// ProblemMalformedNode indicates a wrong parent count or a missing function.
	ProblemMalformedNode ProblemCode = "MALFORMED_NODE"

	// ProblemScopeLink indicates a one-sided or dangling Scope/Unscope link.
	ProblemScopeLink ProblemCode = "SCOPE_LINK"
)

// Problem is one structural defect of a graph.
type Problem struct {
	Code    ProblemCode
	NodeID  graph.ID
	Message string
}

// Error implements the error interface.
func (p *Problem) Error() string {
	return fmt.Sprintf("%s: node %d: %s", p.Code, p.NodeID, p.Message)
}

// Validate checks the graph reachable from the root and reports every
// problem found as a *multierror.Error of *Problem. It returns nil for a
// well-formed graph.
//
// A cyclic graph is reported alone, since the other checks assume a DAG.
func Validate(g *Graph) error {
	var result *multierror.Error

	if cycles := graph.FindCycles(g.Root()); len(cycles) > 0 {
		for _, c := range cycles {
			result = multierror.Append(result, &Problem{
				Code:    ProblemCyclicGraph,
				NodeID:  c[0],
				Message: fmt.Sprintf("cycle %v", c),
			})
		}
		return result.ErrorOrNil()
	}

	for _, n := range g.Nodes() {
		for _, p := range validateNode(n) {
			result = multierror.Append(result, p)
		}
	}
	return result.ErrorOrNil()
}

func validateNode(n *Node) []*Problem {
	var problems []*Problem
	report := func(code ProblemCode, format string, args ...any) {
		problems = append(problems, &Problem{Code: code, NodeID: n.id, Message: fmt.Sprintf(format, args...)})
	}

	switch n.Kind() {
	case KindRoot:
		if len(n.parents) != 0 {
			report(ProblemMalformedNode, "root has %d parents", len(n.parents))
		}

	case KindCombine, KindCombineDrop:
		left, right := n.Left(), n.Right()
		switch {
		case left == nil || right == nil:
			report(ProblemMalformedCombine, "missing operand")
		case left.id == right.id:
			report(ProblemMalformedCombine, "node %d is both operands", left.id)
		case !slices.Contains(n.parents, left.id) || !slices.Contains(n.parents, right.id):
			report(ProblemMalformedCombine, "operands %d and %d must both be parents", left.id, right.id)
		case len(graph.NewIDSet(n.parents...).Without(left.id).Without(right.id)) != 0:
			report(ProblemMalformedCombine, "parents %v are not all operands", n.parents)
		}

	case KindUnion:
		if len(n.parents) != 2 {
			report(ProblemUnionArity, "union has %d parents, want 2", len(n.parents))
		}

	default:
		if len(n.parents) != 1 {
			report(ProblemMalformedNode, "%s has %d parents, want 1", n.Kind(), len(n.parents))
		}
	}

	switch n.Kind() {
	case KindMap, KindFilter, KindFlatMap, KindCombine, KindCombineDrop, KindAggregate, KindAggregateDrop:
		if IsNil(FunctionOf(n.op)) {
			report(ProblemMalformedNode, "%s has no function", n.Kind())
		}
	case KindConsumer:
		if n.op.(Consumer).Fn == nil {
			report(ProblemMalformedNode, "consumer has no effect")
		}
	case KindUnscope:
		if len(n.links) == 0 {
			report(ProblemEmptyUnscope, "unscope has no scope start")
		}
		for _, id := range n.links {
			s := n.g.nodes[id]
			if s == nil || s.Kind() != KindScope || !slices.Contains(s.links, n.id) {
				report(ProblemScopeLink, "scope start %d does not link back", id)
			}
		}
	case KindScope:
		for _, id := range n.links {
			u := n.g.nodes[id]
			if u == nil || u.Kind() != KindUnscope || !slices.Contains(u.links, n.id) {
				report(ProblemScopeLink, "unscope %d does not link back", id)
			}
		}
	}

	return problems
}
