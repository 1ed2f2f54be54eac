package build

import (
	"errors"
	"fmt"

	"github.com/sonarsource/astquery/internal/graph"
)

// ErrorCode categorizes build errors.
type ErrorCode string

const (
	// ErrCodeNoTranslation indicates a node function no provider is
	// registered for.
	ErrCodeNoTranslation ErrorCode = "NO_TRANSLATION"

	// ErrCodeUnionArity indicates a Union without exactly two parents.
	ErrCodeUnionArity ErrorCode = "UNION_ARITY"

	// ErrCodeEmptyUnscope indicates an Unscope without scope starts.
	ErrCodeEmptyUnscope ErrorCode = "EMPTY_UNSCOPE"

	// ErrCodeMalformedCombine indicates a join whose parents are not its operands.
	ErrCodeMalformedCombine ErrorCode = "MALFORMED_COMBINE"

	// ErrCodeMalformedNode indicates a wrong parent count or a missing function.
	ErrCodeMalformedNode ErrorCode = "MALFORMED_NODE"

	// ErrCodeCyclicGraph indicates a cycle reachable from the root.
	ErrCodeCyclicGraph ErrorCode = "CYCLIC_GRAPH"

	// ErrCodeScopeLink indicates a one-sided Scope/Unscope link.
	ErrCodeScopeLink ErrorCode = "SCOPE_LINK"
)

// Error is a build failure attributed to one IR node.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// NodeID identifies the offending IR node.
	NodeID graph.ID

	// Message is a human-readable description.
	Message string

	// Err is the underlying problem, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: node %d: %s", e.Code, e.NodeID, e.Message)
}

// Unwrap returns the underlying problem.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsNoTranslation returns true if err is a build error for a node function
// without a registered provider. Uses errors.As to handle wrapped and
// aggregated errors.
func IsNoTranslation(err error) bool {
	return HasCode(err, ErrCodeNoTranslation)
}

// HasCode returns true if err holds a build error with the given code.
func HasCode(err error, code ErrorCode) bool {
	for _, e := range Errors(err) {
		if e.Code == code {
			return true
		}
	}
	return false
}

// Errors returns every build error held by err, looking inside aggregated
// errors.
func Errors(err error) []*Error {
	if err == nil {
		return nil
	}
	var agg interface{ WrappedErrors() []error }
	if errors.As(err, &agg) {
		var out []*Error
		for _, e := range agg.WrappedErrors() {
			out = append(out, Errors(e)...)
		}
		return out
	}
	var be *Error
	if errors.As(err, &be) {
		return []*Error{be}
	}
	return nil
}
