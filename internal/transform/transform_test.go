package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sonarsource/astquery/internal/exec"
	"github.com/sonarsource/astquery/internal/invariant"
	"github.com/sonarsource/astquery/internal/ir"
)

func mapFn(id string) *ir.Lambda[ir.MapFunc] {
	return ir.NewLambda[ir.MapFunc](id, id, func(v any) any { return v })
}

func pairFn() *ir.Lambda[ir.CombineFunc] {
	return ir.NewLambda[ir.CombineFunc]("pair", "Pair", func(l, r any) any { return []any{l, r} })
}

func sink(parent *ir.Node) *ir.Node {
	return ir.NewConsumer(parent, "sink", func(*exec.Context, any) {})
}

func violation(t *testing.T, fn func()) invariant.Code {
	t.Helper()
	err := func() (err error) {
		defer invariant.Recover(&err)
		fn()
		return nil
	}()
	require.Error(t, err)
	return invariant.CodeOf(err)
}

// TestRemoveUnusedNodes tests that dead branches are deleted.
func TestRemoveUnusedNodes(t *testing.T) {
	g := ir.New()
	root := g.Root()
	a := ir.NewMap(root, mapFn("a"))
	out := sink(a)
	b := ir.NewMap(root, mapFn("b"))
	c := ir.NewMap(b, mapFn("c"))
	d := ir.NewMap(a, mapFn("d"))

	RemoveUnusedNodes(g)

	assert.Equal(t, []*ir.Node{a}, root.Children())
	assert.Equal(t, []*ir.Node{out}, a.Children())
	for _, n := range []*ir.Node{b, c, d} {
		assert.True(t, n.Deleted(), "%s", n)
	}

	before := ir.Fingerprint(g)
	RemoveUnusedNodes(g)
	assert.Equal(t, before, ir.Fingerprint(g))
}

// TestRemoveUnusedNodes_NoSink tests that the root survives an empty graph.
func TestRemoveUnusedNodes_NoSink(t *testing.T) {
	g := ir.New()
	ir.NewMap(ir.NewMap(g.Root(), mapFn("a")), mapFn("b"))

	RemoveUnusedNodes(g)

	assert.Empty(t, g.Root().Children())
	assert.Equal(t, 1, g.Len())
	assert.NotNil(t, g.Node(g.Root().ID()))
}

// TestRemoveNodeAndStitch tests stitching children onto the parent.
func TestRemoveNodeAndStitch(t *testing.T) {
	g := ir.New()
	root := g.Root()
	a := ir.NewMap(root, mapFn("a"))
	b := ir.NewMap(a, mapFn("b"))
	other := ir.NewMap(root, mapFn("other"))
	join := ir.NewCombine(a, other, pairFn())

	RemoveNodeAndStitch(a)

	assert.True(t, a.Deleted())
	assert.ElementsMatch(t, []*ir.Node{other, b, join}, root.Children())
	assert.Equal(t, []*ir.Node{root}, b.Parents())
	assert.Same(t, root, join.Left(), "join operands follow the stitch")
	assert.NoError(t, ir.Validate(g))
}

// TestRemoveNodeAndStitch_Parents tests that only single-parent nodes stitch.
func TestRemoveNodeAndStitch_Parents(t *testing.T) {
	g := ir.New()
	a := ir.NewMap(g.Root(), mapFn("a"))
	b := ir.NewMap(g.Root(), mapFn("b"))
	u := ir.NewUnion(a, b)

	assert.Equal(t, invariant.CodeStitchParents, violation(t, func() { RemoveNodeAndStitch(u) }))
	assert.Equal(t, invariant.CodeStitchParents, violation(t, func() { RemoveNodeAndStitch(g.Root()) }))
	assert.False(t, u.Deleted())
}

// TestMergeEquivalentChildren tests merging siblings with the same function.
func TestMergeEquivalentChildren(t *testing.T) {
	g := ir.New()
	root := g.Root()
	x1 := ir.NewMap(root, mapFn("x"))
	s1 := sink(x1)
	x2 := ir.NewMap(root, mapFn("x"))
	f := ir.NewFilterNonNull(x2)
	s2 := sink(f)
	y := ir.NewMap(root, mapFn("y"))
	s3 := sink(y)

	MergeEquivalentChildren(g)

	assert.Equal(t, []*ir.Node{x1, y}, root.Children(), "child order is stable")
	assert.Equal(t, []*ir.Node{s1, f}, x1.Children())
	assert.True(t, x2.Deleted())
	assert.Equal(t, []*ir.Node{s2}, f.Children())
	assert.Equal(t, []*ir.Node{s3}, y.Children())
}

// TestMergeEquivalentChildren_Recursive tests merges that enable merges below.
func TestMergeEquivalentChildren_Recursive(t *testing.T) {
	g := ir.New()
	root := g.Root()
	sink(ir.NewMap(ir.NewMap(root, mapFn("a")), mapFn("b")))
	sink(ir.NewMap(ir.NewMap(root, mapFn("a")), mapFn("b")))

	MergeEquivalentChildren(g)

	require.Len(t, root.Children(), 1)
	a := root.Children()[0]
	require.Len(t, a.Children(), 1)
	assert.Len(t, a.Children()[0].Children(), 2, "both sinks survive")
}

// TestMergeEquivalentChildren_Combine tests that join operands are retargeted.
func TestMergeEquivalentChildren_Combine(t *testing.T) {
	g := ir.New()
	root := g.Root()
	a1 := ir.NewMap(root, mapFn("a"))
	sink(a1)
	a2 := ir.NewMap(root, mapFn("a"))
	b := ir.NewMap(root, mapFn("b"))
	join := ir.NewCombine(a2, b, pairFn())
	sink(join)

	MergeEquivalentChildren(g)

	assert.True(t, a2.Deleted())
	assert.Same(t, a1, join.Left())
	assert.Same(t, b, join.Right())
	assert.NoError(t, ir.Validate(g))
}

// TestMergeEquivalentChildren_SharedChild tests that a join over two
// equivalent operands keeps both.
func TestMergeEquivalentChildren_SharedChild(t *testing.T) {
	g := ir.New()
	root := g.Root()
	a1 := ir.NewMap(root, mapFn("a"))
	a2 := ir.NewMap(root, mapFn("a"))
	u := ir.NewUnion(a1, a2)
	sink(u)

	MergeEquivalentChildren(g)

	assert.False(t, a2.Deleted())
	assert.Len(t, u.Parents(), 2)
}

// TestMergeEquivalentChildren_SharedJoin tests that the two operands of a
// join stay distinct even when they compute the same values.
func TestMergeEquivalentChildren_SharedJoin(t *testing.T) {
	g := ir.New()
	root := g.Root()
	a1 := ir.NewMap(root, mapFn("a"))
	a2 := ir.NewMap(root, mapFn("a"))
	join := ir.NewCombine(a1, a2, pairFn())
	sink(join)
	require.NoError(t, ir.Validate(g))

	MergeEquivalentChildren(g)

	assert.False(t, a1.Deleted())
	assert.False(t, a2.Deleted())
	assert.Same(t, a1, join.Left())
	assert.Same(t, a2, join.Right())
	assert.Len(t, join.Parents(), 2)
	assert.NoError(t, ir.Validate(g))
}

// TestMergeEquivalentChildren_Constants tests that constants of different
// types are not merged.
func TestMergeEquivalentChildren_Constants(t *testing.T) {
	g := ir.New()
	root := g.Root()
	one := ir.NewMap(root, ir.Constant(1))
	sink(one)
	oneText := ir.NewMap(root, ir.Constant("1"))
	sink(oneText)
	again := ir.NewMap(root, ir.Constant(1))
	sink(again)

	MergeEquivalentChildren(g)

	assert.Equal(t, []*ir.Node{one, oneText}, root.Children())
	assert.True(t, again.Deleted())
	assert.Len(t, one.Children(), 2)
	assert.Len(t, oneText.Children(), 1)
}

// TestMergeEquivalentChildren_Scopes tests that merged scopes keep their unscopes.
func TestMergeEquivalentChildren_Scopes(t *testing.T) {
	g := ir.New()
	root := g.Root()
	s1 := ir.NewScope(root)
	u1 := ir.NewUnscope(ir.NewMap(s1, mapFn("a")), s1)
	sink(u1)
	s2 := s1.Copy()
	u2 := ir.NewUnscope(ir.NewMap(s2, mapFn("b")), s2)
	sink(u2)

	MergeEquivalentChildren(g)

	assert.True(t, s2.Deleted())
	assert.ElementsMatch(t, []*ir.Node{u1, u2}, s1.Unscopes())
	assert.Equal(t, []*ir.Node{s1}, u2.ScopeStarts())
	assert.NoError(t, ir.Validate(g))
}

// TestCopyNodes tests copying a chain.
func TestCopyNodes(t *testing.T) {
	g := ir.New()
	root := g.Root()
	a := ir.NewMap(root, mapFn("a"))
	b := ir.NewMap(a, mapFn("b"))

	table := CopyNodes([]*ir.Node{a, b}, nil)

	assert.Equal(t, 2, table.Len())
	ca, cb := table.Get(a), table.Get(b)
	assert.NotSame(t, a, ca)
	assert.Equal(t, []*ir.Node{root}, ca.Parents())
	assert.Equal(t, []*ir.Node{ca}, cb.Parents())
	assert.Equal(t, []*ir.Node{b}, a.Children(), "originals are untouched")
}

// TestCopySubTree tests moving a node onto a copied path.
func TestCopySubTree(t *testing.T) {
	g := ir.New()
	root := g.Root()
	scope := ir.NewScope(root)
	a := ir.NewMap(root, mapFn("a"))
	b := ir.NewMap(a, mapFn("b"))
	sink(b)

	CopySubTree(root, scope, b)

	require.Len(t, b.Parents(), 1)
	ca := b.Parents()[0]
	assert.NotSame(t, a, ca)
	assert.Equal(t, a.Op(), ca.Op())
	assert.Equal(t, []*ir.Node{scope}, ca.Parents())
	assert.Empty(t, a.Children())

	RemoveUnusedNodes(g)
	assert.True(t, a.Deleted())
	assert.Equal(t, []*ir.Node{scope}, root.Children())
}

// TestDefaults tests the default pass list.
func TestDefaults(t *testing.T) {
	var names []string
	for _, p := range Defaults() {
		names = append(names, p.Name())
	}
	assert.Equal(t, []string{"RemoveUnusedNodes", "MergeEquivalentChildren"}, names)
}
