package ir

import (
	"errors"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func problemCodes(t *testing.T, err error) []ProblemCode {
	t.Helper()
	var merr *multierror.Error
	require.True(t, errors.As(err, &merr), "expected a multierror, got %v", err)

	var codes []ProblemCode
	for _, e := range merr.Errors {
		var p *Problem
		require.True(t, errors.As(e, &p))
		codes = append(codes, p.Code)
	}
	return codes
}

// TestValidate_WellFormed tests that a valid graph passes.
func TestValidate_WellFormed(t *testing.T) {
	g := New()
	root := g.Root()
	scope := NewScope(root)
	a := NewMap(scope, mapFn("a"))
	join := NewCombine(scope, a, pairFn())
	u := NewUnscope(join, scope)
	sink(NewUnion(u, NewFilterNonNull(root)))

	assert.NoError(t, Validate(g))
}

// TestValidate_Problems tests that every problem is reported at once.
func TestValidate_Problems(t *testing.T) {
	g := New()
	root := g.Root()

	a := NewMap(root, mapFn("a"))
	b := NewMap(root, mapFn("b"))
	NewUnion(a, b, root)

	NewMap(root, nil)

	codes := problemCodes(t, Validate(g))
	assert.ElementsMatch(t, []ProblemCode{ProblemUnionArity, ProblemMalformedNode}, codes)

	g2 := New()
	s2 := NewScope(g2.Root())
	u2 := NewUnscope(s2, s2)
	g2.Root().AddChild(u2)
	unlink(s2, u2)
	codes = problemCodes(t, Validate(g2))
	assert.ElementsMatch(t, []ProblemCode{ProblemEmptyUnscope, ProblemMalformedNode}, codes,
		"an unlinked unscope with two parents")
}

// TestValidate_MalformedCombine tests join operand checks.
func TestValidate_MalformedCombine(t *testing.T) {
	g := New()
	root := g.Root()
	a := NewMap(root, mapFn("a"))
	b := NewMap(root, mapFn("b"))
	join := NewCombine(a, b, pairFn())
	join.RemoveParent(b)

	assert.Equal(t, []ProblemCode{ProblemMalformedCombine}, problemCodes(t, Validate(g)))
}

// TestValidate_SelfCombine tests that a join needs two distinct operands.
func TestValidate_SelfCombine(t *testing.T) {
	g := New()
	a := NewMap(g.Root(), mapFn("a"))
	join := NewCombine(a, a, pairFn())
	require.Len(t, join.Parents(), 1)

	assert.Equal(t, []ProblemCode{ProblemMalformedCombine}, problemCodes(t, Validate(g)))
}

// TestValidate_Cycle tests that cycles are reported on their own.
func TestValidate_Cycle(t *testing.T) {
	g := New()
	a := NewMap(g.Root(), mapFn("a"))
	b := NewMap(a, mapFn("b"))
	a.AddParent(b)
	NewUnion(a, b, g.Root())

	assert.Equal(t, []ProblemCode{ProblemCyclicGraph}, problemCodes(t, Validate(g)))
}
