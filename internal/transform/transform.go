// Package transform provides the rewrite passes applied to an IR graph
// before it is lowered to an executor.
//
// Every pass edits the graph in place through the ir.Node edge primitives.
// Passes are deterministic: for the same graph they perform the same edits
// in the same order, so fingerprints of rewritten graphs are stable.
package transform

import (
	"github.com/sonarsource/astquery/internal/ir"
)

// Transformation rewrites an IR graph in place.
type Transformation interface {
	// Name identifies the pass in logs.
	Name() string

	// Apply rewrites g. Structural invariants broken by a pass are reported
	// by panicking with an *invariant.Violation.
	Apply(g *ir.Graph)
}

type pass struct {
	name string
	fn   func(*ir.Graph)
}

func (p pass) Name() string      { return p.name }
func (p pass) Apply(g *ir.Graph) { p.fn(g) }

// Func adapts a function into a Transformation.
func Func(name string, fn func(*ir.Graph)) Transformation {
	return pass{name: name, fn: fn}
}

// Built-in passes.
var (
	RemoveUnused    = Func("RemoveUnusedNodes", RemoveUnusedNodes)
	MergeEquivalent = Func("MergeEquivalentChildren", MergeEquivalentChildren)
	ScopeCombines   = Func("AddScopesToCombines", AddScopesToCombines)
	Untangle        = Func("UntangleScopes", UntangleScopes)
)

// Defaults returns the passes the greedy executor is built with: dead
// branches are removed, then equivalent siblings are merged.
//
// The greedy executor gates joins with BatchEnd signals, so it needs neither
// ScopeCombines nor Untangle.
func Defaults() []Transformation {
	return []Transformation{RemoveUnused, MergeEquivalent}
}
