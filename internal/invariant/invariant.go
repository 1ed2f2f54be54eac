// Package invariant reports violations of internal invariants.
//
// A violation can only be produced by a bug in graph construction, rewriting,
// lowering or execution. Violations are raised as panics carrying a
// *Violation so the call stack that broke the invariant is preserved; the
// public entry points (build, exec.Run) convert them back to errors with
// Recover. No caller is expected to retry.
package invariant

import (
	"errors"
	"fmt"

	goerrors "github.com/go-errors/errors"
)

// Code categorizes a violation.
type Code string

const (
	// CodeStitchParents indicates a stitch-removal target without exactly one parent.
	CodeStitchParents Code = "STITCH_PARENTS"

	// CodeNoDominator indicates an immediate dominator request that has no answer.
	CodeNoDominator Code = "NO_IMMEDIATE_DOMINATOR"

	// CodeCyclicGraph indicates a dominance query over a graph with a cycle.
	CodeCyclicGraph Code = "CYCLIC_GRAPH"

	// CodeEmptyUnscope indicates an Unscope built without any scope start.
	CodeEmptyUnscope Code = "EMPTY_UNSCOPE"

	// CodeMalformedNode indicates a node whose shape does not match its kind.
	CodeMalformedNode Code = "MALFORMED_NODE"

	// CodeUnknownCaller indicates a signal from a node that is not a parent.
	CodeUnknownCaller Code = "UNKNOWN_CALLER"

	// CodeCreatorMismatch indicates a merge of two BatchEnds with different creators.
	CodeCreatorMismatch Code = "CREATOR_MISMATCH"

	// CodeRegistrySealed indicates a registration after the registry was used.
	CodeRegistrySealed Code = "REGISTRY_SEALED"

	// CodeCardinality indicates a flow used where a single value per batch is required.
	CodeCardinality Code = "CARDINALITY"
)

// Violation is the payload of every invariant panic.
type Violation struct {
	Code    Code
	Message string

	// Details contains additional context (node ids, scope ids).
	Details map[string]string

	stack *goerrors.Error
}

// Error implements the error interface.
func (v *Violation) Error() string {
	return fmt.Sprintf("invariant violated: %s: %s", v.Code, v.Message)
}

// Stack returns the goroutine stack captured when the violation was raised.
func (v *Violation) Stack() string {
	if v.stack == nil {
		return ""
	}
	return string(v.stack.Stack())
}

// With attaches a detail entry and returns the violation for chaining.
func (v *Violation) With(key string, value any) *Violation {
	if v.Details == nil {
		v.Details = make(map[string]string)
	}
	v.Details[key] = fmt.Sprint(value)
	return v
}

// Newf creates a violation, capturing the caller's stack.
func Newf(code Code, format string, args ...any) *Violation {
	msg := fmt.Sprintf(format, args...)
	return &Violation{
		Code:    code,
		Message: msg,
		stack:   goerrors.Wrap(msg, 1),
	}
}

// Failf raises a violation. It never returns.
func Failf(code Code, format string, args ...any) {
	v := Newf(code, format, args...)
	v.stack = goerrors.Wrap(v.Message, 1)
	panic(v)
}

// Fail raises an already constructed violation.
func Fail(v *Violation) {
	panic(v)
}

// Recover converts a violation panic into an error stored in errp.
// Panics that do not carry a *Violation are re-raised untouched.
//
//	func Build() (err error) {
//		defer invariant.Recover(&err)
//		...
//	}
func Recover(errp *error) {
	r := recover()
	if r == nil {
		return
	}
	if v, ok := r.(*Violation); ok {
		*errp = v
		return
	}
	panic(r)
}

// IsViolation reports whether err wraps a *Violation.
func IsViolation(err error) bool {
	var v *Violation
	return errors.As(err, &v)
}

// CodeOf returns the violation code wrapped by err, or "" if there is none.
func CodeOf(err error) Code {
	var v *Violation
	if errors.As(err, &v) {
		return v.Code
	}
	return ""
}
