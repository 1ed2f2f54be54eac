package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func buildScoped() *Graph {
	g := New()
	scope := NewScope(g.Root())
	a := NewMap(scope, mapFn("a"))
	join := NewCombine(scope, a, pairFn())
	sink(NewUnscope(join, scope))
	return g
}

// TestFingerprint tests that equal constructions hash equal.
func TestFingerprint(t *testing.T) {
	a, b := buildScoped(), buildScoped()
	assert.Equal(t, Fingerprint(a), Fingerprint(b), "fresh node and scope ids do not matter")
	assert.Len(t, FingerprintString(a), 16)

	c := buildScoped()
	NewFilterNonNull(c.Root())
	assert.NotEqual(t, Fingerprint(a), Fingerprint(c))
}

// TestFingerprint_Functions tests how functions contribute to the hash.
func TestFingerprint_Functions(t *testing.T) {
	build := func(fn *Lambda[MapFunc]) *Graph {
		g := New()
		sink(NewMap(g.Root(), fn))
		return g
	}

	assert.Equal(t, Fingerprint(build(mapFn("x"))), Fingerprint(build(mapFn("x"))))
	assert.NotEqual(t, Fingerprint(build(mapFn("x"))), Fingerprint(build(mapFn("y"))))

	anon := Anonymous[MapFunc](func(v any) any { return v })
	assert.Equal(t, Fingerprint(build(anon)), Fingerprint(build(anon)))
}

// TestFingerprint_Anonymous tests that anonymous functions hash by their
// position in the graph, not by their address.
func TestFingerprint_Anonymous(t *testing.T) {
	identity := func() *Lambda[MapFunc] {
		return Anonymous[MapFunc](func(v any) any { return v })
	}
	shared := func() *Graph {
		fn := identity()
		return buildMapped(fn, fn)
	}
	distinct := func() *Graph {
		return buildMapped(identity(), identity())
	}

	assert.Equal(t, Fingerprint(distinct()), Fingerprint(distinct()), "fresh anonymous functions")
	assert.Equal(t, Fingerprint(shared()), Fingerprint(shared()))
	assert.NotEqual(t, Fingerprint(shared()), Fingerprint(distinct()), "sharing a function changes the hash")
	assert.NotEqual(t, Fingerprint(distinct()), Fingerprint(buildMapped(mapFn("x"), mapFn("y"))))
}

func buildMapped(fns ...*Lambda[MapFunc]) *Graph {
	g := New()
	for _, fn := range fns {
		sink(NewMap(g.Root(), fn))
	}
	return g
}

// TestFingerprint_Operands tests that swapping join operands changes the hash.
func TestFingerprint_Operands(t *testing.T) {
	build := func(swap bool) *Graph {
		g := New()
		a := NewMap(g.Root(), mapFn("a"))
		b := NewMap(g.Root(), mapFn("b"))
		if swap {
			a, b = b, a
		}
		sink(NewCombine(a, b, pairFn()))
		return g
	}
	assert.NotEqual(t, Fingerprint(build(false)), Fingerprint(build(true)))
}
