package compiler

import (
	"fmt"
	"slices"

	"cuelang.org/go/cue/token"

	"github.com/sonarsource/astquery/internal/tree"
)

// Validation error codes (E120-E129)
const (
	ErrUnknownOp       = "E120" // step op is not an operation
	ErrNoSteps         = "E121" // a definition or nested step list is empty
	ErrInvalidKind     = "E122" // kind name is not a tree kind
	ErrMissingOperand  = "E123" // operand required by the op is absent
	ErrTypeMismatch    = "E124" // tree op applied to plain values
	ErrUnknownPipeline = "E125" // use refers to an undefined pipeline
	ErrReferenceCycle  = "E126" // pipelines use each other in a cycle
)

// ValidationError represents a definition validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`

	Pos token.Pos `json:"-"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// elemType is what a flow carries between steps.
type elemType int

const (
	elemTree elemType = iota
	elemValue
)

func (t elemType) String() string {
	if t == elemTree {
		return "trees"
	}
	return "values"
}

var kinds = []tree.Kind{
	tree.KindObject, tree.KindArray, tree.KindString, tree.KindInt,
	tree.KindFloat, tree.KindBool, tree.KindNull,
}

// treeOps need tree elements.
var treeOps = []Op{OpSubtree, OpSelf, OpParents, OpOfKind, OpLabel, OpPath, OpValue, OpUse}

// Lookup resolves a definition by name.
type Lookup func(name string) (*Definition, bool)

// Validate checks def against the operations and the definitions known to
// lookup. Returns all errors found (does not fail-fast).
//
// Reference cycles are not detected here; see AnalyzeCycles.
func Validate(def *Definition, lookup Lookup) []ValidationError {
	v := &validator{lookup: lookup}
	if len(def.Steps) == 0 {
		v.report(fmt.Sprintf("pipeline.%s.steps", def.Name), ErrNoSteps, def.Pos, "at least one step is required")
		return v.errs
	}
	v.steps(fmt.Sprintf("pipeline.%s", def.Name), def.Steps, elemTree)
	return v.errs
}

type validator struct {
	lookup Lookup
	errs   []ValidationError
}

func (v *validator) report(field, code string, pos token.Pos, format string, args ...any) {
	v.errs = append(v.errs, ValidationError{Field: field, Code: code, Line: pos.Line(), Pos: pos, Message: fmt.Sprintf(format, args...)})
}

// steps checks a step list and returns the type it produces. Checking
// goes on after an error with the type the step would have produced.
func (v *validator) steps(field string, steps []Step, in elemType) elemType {
	t := in
	for i, s := range steps {
		t = v.step(fmt.Sprintf("%s.steps[%d]", field, i), s, t)
	}
	return t
}

func (v *validator) step(field string, s Step, in elemType) elemType {
	pos := s.Pos

	if in == elemValue && slices.Contains(treeOps, s.Op) {
		v.report(field, ErrTypeMismatch, pos, "%s needs trees, got %s", s.Op, in)
	}
	for _, k := range slices.Concat(s.StopAt, s.Kinds) {
		if !slices.Contains(kinds, k) {
			v.report(field, ErrInvalidKind, pos, "unknown kind %q, want one of %v", k, kinds)
		}
	}

	switch s.Op {
	case OpSubtree, OpSelf, OpParents:
		return elemTree
	case OpOfKind:
		if len(s.Kinds) == 0 {
			v.report(field, ErrMissingOperand, pos, "ofKind needs kinds")
		}
		return elemTree
	case OpLabel, OpPath, OpValue, OpCount, OpExists, OpCollect:
		return elemValue
	case OpFirst:
		return in
	case OpEq:
		if !s.HasValue {
			v.report(field, ErrMissingOperand, pos, "eq needs a value")
		}
		return elemValue
	case OpWhere:
		if len(s.Steps) == 0 {
			v.report(field, ErrNoSteps, pos, "where needs steps")
		}
		v.steps(field, s.Steps, in)
		return in
	case OpScoped:
		if len(s.Steps) == 0 {
			v.report(field, ErrNoSteps, pos, "scoped needs steps")
			return in
		}
		return v.steps(field, s.Steps, in)
	case OpUse:
		if s.Pipeline == "" {
			v.report(field, ErrMissingOperand, pos, "use needs a pipeline")
			return elemValue
		}
		used, ok := v.lookup(s.Pipeline)
		if !ok {
			v.report(field, ErrUnknownPipeline, pos, "pipeline %q is not defined", s.Pipeline)
			return elemValue
		}
		return resultType(used.Steps, v.lookup, nil)
	}

	v.report(field, ErrUnknownOp, pos, "unknown op %q", s.Op)
	return in
}

// resultType computes the element type produced by steps over trees
// without reporting errors. seen guards against reference cycles.
func resultType(steps []Step, lookup Lookup, seen []string) elemType {
	return typeOf(steps, elemTree, lookup, seen)
}

func typeOf(steps []Step, in elemType, lookup Lookup, seen []string) elemType {
	t := in
	for _, s := range steps {
		switch s.Op {
		case OpSubtree, OpSelf, OpParents, OpOfKind:
			t = elemTree
		case OpScoped:
			t = typeOf(s.Steps, t, lookup, seen)
		case OpUse:
			used, ok := lookup(s.Pipeline)
			if !ok || slices.Contains(seen, s.Pipeline) {
				return elemValue
			}
			t = typeOf(used.Steps, elemTree, lookup, append(seen, s.Pipeline))
		case OpFirst, OpWhere:
		default:
			t = elemValue
		}
	}
	return t
}
