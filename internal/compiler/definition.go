// Package compiler turns CUE pipeline definitions into query pipelines over
// trees.
//
// A definition is a named list of steps applied to the root of every input
// tree:
//
//	pipeline: ints: {
//		description: "integer leaves"
//		steps: [
//			{op: "subtree"},
//			{op: "ofKind", kinds: ["int"]},
//			"value",
//		]
//	}
//
// A step is either an operation name or a struct with an op field and the
// operands of that operation.
package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/sonarsource/astquery/internal/tree"
)

// Op names a step operation.
type Op string

const (
	OpSubtree Op = "subtree" // strict descendants, stop_at optional
	OpSelf    Op = "self"    // the tree and its descendants, stop_at optional
	OpParents Op = "parents" // ancestors, nearest first
	OpOfKind  Op = "ofKind"  // keeps trees of one of kinds
	OpWhere   Op = "where"   // keeps elements for which steps yield a value other than false or null
	OpScoped  Op = "scoped"  // runs steps once per element
	OpUse     Op = "use"     // inlines the steps of another pipeline
	OpLabel   Op = "label"
	OpPath    Op = "path"
	OpValue   Op = "value"
	OpFirst   Op = "first"
	OpCount   Op = "count"
	OpExists  Op = "exists"
	OpCollect Op = "collect"
	OpEq      Op = "eq" // compares elements with value
)

// Definition is a compiled pipeline definition.
type Definition struct {
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Steps       []Step    `json:"steps"`
	Pos         token.Pos `json:"-"`
}

// Step is one operation of a definition.
type Step struct {
	Op       Op          `json:"op"`
	StopAt   []tree.Kind `json:"stop_at,omitempty"`
	Kinds    []tree.Kind `json:"kinds,omitempty"`
	Value    any         `json:"value,omitempty"`
	HasValue bool        `json:"-"`
	Pipeline string      `json:"pipeline,omitempty"`
	Steps    []Step      `json:"steps,omitempty"`
	Pos      token.Pos   `json:"-"`
}

// CompilePipeline parses a CUE value into a Definition.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value should be the definition struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`pipeline: ints: { steps: ["count"] }`)
//	def, err := CompilePipeline(v.LookupPath(cue.ParsePath("pipeline.ints")))
//
// Structural checks that need the other definitions are left to Validate.
func CompilePipeline(v cue.Value) (*Definition, error) {
	if !v.Exists() {
		return nil, &CompileError{Field: "pipeline", Message: "definition does not exist"}
	}
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	def := &Definition{Pos: v.Pos()}
	if name, ok := v.Label(); ok {
		def.Name = name
	}

	if d := v.LookupPath(cue.ParsePath("description")); d.Exists() {
		desc, err := d.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		def.Description = desc
	}

	stepsVal := v.LookupPath(cue.ParsePath("steps"))
	if !stepsVal.Exists() {
		return nil, &CompileError{Field: "steps", Message: "steps are required", Pos: v.Pos()}
	}
	steps, err := parseSteps(stepsVal)
	if err != nil {
		return nil, err
	}
	def.Steps = steps
	return def, nil
}

func parseSteps(v cue.Value) ([]Step, error) {
	iter, err := v.List()
	if err != nil {
		return nil, &CompileError{Field: "steps", Message: "steps must be a list", Pos: v.Pos()}
	}

	var steps []Step
	for iter.Next() {
		step, err := parseStep(iter.Value())
		if err != nil {
			return nil, err
		}
		steps = append(steps, step)
	}
	return steps, nil
}

// parseStep parses a single step.
// Supports a bare operation name or a struct with an op field.
func parseStep(v cue.Value) (Step, error) {
	step := Step{Pos: v.Pos()}

	if name, err := v.String(); err == nil {
		step.Op = Op(name)
		return step, nil
	}

	opVal := v.LookupPath(cue.ParsePath("op"))
	if !opVal.Exists() {
		return Step{}, &CompileError{Field: "op", Message: "step has no op", Pos: v.Pos()}
	}
	op, err := opVal.String()
	if err != nil {
		return Step{}, formatCUEError(err)
	}
	step.Op = Op(op)

	if step.StopAt, err = parseKinds(v, "stop_at"); err != nil {
		return Step{}, err
	}
	if step.Kinds, err = parseKinds(v, "kinds"); err != nil {
		return Step{}, err
	}

	if p := v.LookupPath(cue.ParsePath("pipeline")); p.Exists() {
		if step.Pipeline, err = p.String(); err != nil {
			return Step{}, formatCUEError(err)
		}
	}

	if val := v.LookupPath(cue.ParsePath("value")); val.Exists() {
		t, err := tree.FromCUE(val)
		if err != nil {
			return Step{}, &CompileError{Field: "value", Message: err.Error(), Pos: val.Pos()}
		}
		step.Value = t.Plain()
		step.HasValue = true
	}

	if nested := v.LookupPath(cue.ParsePath("steps")); nested.Exists() {
		if step.Steps, err = parseSteps(nested); err != nil {
			return Step{}, err
		}
	}
	return step, nil
}

func parseKinds(v cue.Value, field string) ([]tree.Kind, error) {
	kv := v.LookupPath(cue.ParsePath(field))
	if !kv.Exists() {
		return nil, nil
	}
	var names []string
	if err := kv.Decode(&names); err != nil {
		return nil, &CompileError{Field: field, Message: "must be a list of kind names", Pos: kv.Pos()}
	}
	kinds := make([]tree.Kind, len(names))
	for i, n := range names {
		kinds[i] = tree.Kind(n)
	}
	return kinds, nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
