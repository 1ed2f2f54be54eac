package pipeline

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/sonarsource/astquery/internal/exec"
	"github.com/sonarsource/astquery/internal/invariant"
	"github.com/sonarsource/astquery/internal/testutil"
	"github.com/sonarsource/astquery/internal/tree"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func run[IN, OUT any](t *testing.T, input IN, body func(Flow[IN]) Flow[OUT]) []OUT {
	t.Helper()
	q, err := NewQuery(body)
	require.NoError(t, err)
	out, err := q.Execute(nil, input)
	require.NoError(t, err)
	return out
}

func double() *Function[func(int) int] {
	return Named("double", func(v int) int { return v * 2 })
}

func greaterThan(k int) *Function[func(int) bool] {
	return Func(func(v int) bool { return v > k })
}

// TestOps tests the single-batch operations.
func TestOps(t *testing.T) {
	in := []int{1, 2, 3}

	assert.Equal(t, []int{6}, run(t, in, func(f Flow[[]int]) Flow[int] {
		return Filter(Map(Flatten(f), double()), greaterThan(4))
	}))
	assert.Equal(t, []int{3}, run(t, in, func(f Flow[[]int]) Flow[int] { return Count(Flatten(f)) }))
	assert.Equal(t, []int{1}, run(t, in, func(f Flow[[]int]) Flow[int] { return First(Flatten(f)) }))
	assert.Equal(t, []int{-1}, run(t, in, func(f Flow[[]int]) Flow[int] {
		return OrElse(Filter(Flatten(f), greaterThan(10)), -1)
	}))
	assert.Equal(t, []int{0}, run(t, in, func(f Flow[[]int]) Flow[int] {
		return FirstOrNull(Filter(Flatten(f), greaterThan(10)))
	}))
	assert.Equal(t, []bool{true}, run(t, in, func(f Flow[[]int]) Flow[bool] { return Exists(Flatten(f)) }))
	assert.Equal(t, []bool{false}, run(t, in, func(f Flow[[]int]) Flow[bool] { return NoneExists(Flatten(f)) }))
	assert.Equal(t, [][]int{{2, 4, 6}}, run(t, in, func(f Flow[[]int]) Flow[[]int] {
		return Collect(Map(Flatten(f), double()))
	}))
	assert.Equal(t, []int{6}, run(t, in, func(f Flow[[]int]) Flow[int] {
		return Aggregate(Flatten(f), Func(func(vs []int) int {
			sum := 0
			for _, v := range vs {
				sum += v
			}
			return sum
		}))
	}))
	assert.Equal(t, []bool{true}, run(t, in, func(f Flow[[]int]) Flow[bool] {
		return EqConst(Count(Flatten(f)), 3)
	}))
}

// TestFilterType tests filtering on dynamic types.
func TestFilterType(t *testing.T) {
	out := run(t, []any{1, "a", 2, nil}, func(f Flow[[]any]) Flow[int] {
		return FilterType[int](Flatten(f))
	})
	assert.Equal(t, []int{1, 2}, out)

	names := run(t, []any{"a", nil, "b"}, func(f Flow[[]any]) Flow[any] {
		return FilterNonNull(Flatten(f))
	})
	assert.Equal(t, []any{"a", "b"}, names)
}

// TestMapNonNull tests that nil results are dropped.
func TestMapNonNull(t *testing.T) {
	out := run(t, []string{"a", "", "b"}, func(f Flow[[]string]) Flow[*string] {
		return MapNonNull(Flatten(f), Func(func(s string) *string {
			if s == "" {
				return nil
			}
			return &s
		}))
	})
	require.Len(t, out, 2)
	assert.Equal(t, "a", *out[0])
	assert.Equal(t, "b", *out[1])
}

// TestCombine tests pairing with a value of the same batch.
func TestCombine(t *testing.T) {
	out := run(t, []int{1, 2}, func(f Flow[[]int]) Flow[Pair[int, int]] {
		return Zip(Flatten(f), Count(Flatten(f)))
	})
	assert.Equal(t, []Pair[int, int]{{1, 2}, {2, 2}}, out)
	assert.Equal(t, "(1, 2)", out[0].String())
}

// TestCombine_SelfJoin tests joining a flow with itself.
func TestCombine_SelfJoin(t *testing.T) {
	pairs := run(t, 7, func(f Flow[int]) Flow[Pair[int, int]] {
		return Zip(f, f)
	})
	assert.Equal(t, []Pair[int, int]{{7, 7}}, pairs)

	same := run(t, []int{1, 2, 3}, func(f Flow[[]int]) Flow[bool] {
		n := Count(Flatten(f))
		return Eq(n, n)
	})
	assert.Equal(t, []bool{true}, same)

	perValue := run(t, []int{1, 2}, func(f Flow[[]int]) Flow[Pair[int, int]] {
		return Scoped(Flatten(f), func(v Flow[int]) Flow[Pair[int, int]] {
			return Zip(v, v)
		})
	})
	assert.Equal(t, []Pair[int, int]{{1, 1}, {2, 2}}, perValue)
}

// TestCombine_EquivalentOperands tests a join of two flows that compute the
// same values.
func TestCombine_EquivalentOperands(t *testing.T) {
	out := run(t, []int{1, 2, 3}, func(f Flow[[]int]) Flow[Pair[int, int]] {
		return Zip(Count(Flatten(f)), Count(Flatten(f)))
	})
	assert.Equal(t, []Pair[int, int]{{3, 3}}, out)
}

// TestEqConst_Types tests that comparisons with equal-looking constants of
// different types stay apart.
func TestEqConst_Types(t *testing.T) {
	label := func(prefix string) *Function[func(bool) string] {
		return Func(func(b bool) string {
			if b {
				return prefix + " equal"
			}
			return prefix + " different"
		})
	}
	out := run(t, any(1), func(f Flow[any]) Flow[string] {
		return Union(Map(EqConst(f, any(1)), label("int")), Map(EqConst(f, any("1")), label("string")))
	})
	assert.ElementsMatch(t, []string{"int equal", "string different"}, out)
}

// TestCombine_Cardinality tests that the right side must be single.
func TestCombine_Cardinality(t *testing.T) {
	_, err := NewQuery(func(f Flow[[]int]) Flow[Pair[int, int]] {
		return Zip(Flatten(f), Flatten(f))
	})
	require.Error(t, err)
	assert.True(t, invariant.IsViolation(err))
	assert.Equal(t, invariant.CodeCardinality, invariant.CodeOf(err))
}

// TestExclude tests dropping the values of a collected flow.
func TestExclude(t *testing.T) {
	out := run(t, []int{1, 2, 3}, func(f Flow[[]int]) Flow[int] {
		return Exclude(Flatten(f), Map(f, Func(func(vs []int) []int { return vs[:2] })))
	})
	assert.Equal(t, []int{3}, out)
}

// TestConditional tests the presence and truth gates.
func TestConditional(t *testing.T) {
	in := []int{1, 2, 3}
	present := run(t, in, func(f Flow[[]int]) Flow[int] {
		return IfPresentUse(Filter(Flatten(f), greaterThan(2)), Count(Flatten(f)))
	})
	assert.Equal(t, []int{3}, present)

	absent := run(t, in, func(f Flow[[]int]) Flow[int] {
		return IfPresentUse(Filter(Flatten(f), greaterThan(5)), Count(Flatten(f)))
	})
	assert.Empty(t, absent)

	gated := run(t, in, func(f Flow[[]int]) Flow[int] {
		return IfTrueUse(NoneExists(Flatten(f)), Flatten(f))
	})
	assert.Empty(t, gated)

	eq := run(t, in, func(f Flow[[]int]) Flow[bool] {
		return Eq(Count(Flatten(f)), Map(f, Func(func(vs []int) int { return len(vs) })))
	})
	assert.Equal(t, []bool{true}, eq)
}

// TestUnion tests that both flows reach the output.
func TestUnion(t *testing.T) {
	out := run(t, []int{1, 2}, func(f Flow[[]int]) Flow[int] {
		items := Flatten(f)
		u := Union(Map(items, double()), Map(items, Func(func(v int) int { return v * 100 })))
		assert.Equal(t, Many, u.Cardinality())
		return u
	})
	assert.ElementsMatch(t, []int{2, 100, 4, 200}, out)
}

// TestScoped tests that aggregations inside a scope see one value at a time.
func TestScoped(t *testing.T) {
	rows := [][]int{{1, 2}, {3}, {}}

	counts := run(t, rows, func(f Flow[[][]int]) Flow[int] {
		return Scoped(Flatten(f), func(row Flow[[]int]) Flow[int] {
			return Count(Flatten(row))
		})
	})
	assert.Equal(t, []int{2, 1, 0}, counts)

	total := run(t, rows, func(f Flow[[][]int]) Flow[int] {
		return Count(Flatten(Flatten(f)))
	})
	assert.Equal(t, []int{3}, total, "the same aggregation outside a scope sees every value")
}

// TestGroupWith tests pairing values with their derived groups.
func TestGroupWith(t *testing.T) {
	out := run(t, [][]int{{1, 2}, {3}}, func(f Flow[[][]int]) Flow[string] {
		return GroupWith(Flatten(f), func(row Flow[[]int]) Flow[int] {
			return Map(Flatten(row), double())
		}, Func(func(row []int, doubled []int) string {
			return Pair[[]int, []int]{row, doubled}.String()
		}))
	})
	assert.Equal(t, []string{"([1 2], [2 4])", "([3], [6])"}, out)
}

// TestWhere tests filtering on a derived condition.
func TestWhere(t *testing.T) {
	rows := [][]int{{1, 2}, {3}, {4, 0}}

	out := run(t, rows, func(f Flow[[][]int]) Flow[[]int] {
		return Where(Flatten(f), func(row Flow[[]int]) Flow[bool] {
			return Exists(Filter(Flatten(row), greaterThan(2)))
		})
	})
	assert.Equal(t, [][]int{{3}, {4, 0}}, out)

	firstIsSmall := run(t, rows, func(f Flow[[][]int]) Flow[[]int] {
		return Where(Flatten(f), func(row Flow[[]int]) Flow[bool] {
			return Map(First(Flatten(row)), Func(func(v int) bool { return v < 3 }))
		})
	})
	assert.Equal(t, [][]int{{1, 2}}, firstIsSmall, "an optional condition defaults to false")
}

// TestTree tests the tree navigation helpers.
func TestTree(t *testing.T) {
	root := testutil.MustYAML(t, "a:\n  b: 1\n  c: [2, 3]\nd: x\n")
	paths := testutil.Paths

	ints := run(t, root, func(f Flow[*tree.Tree]) Flow[*tree.Tree] {
		return OfKind(Subtree(f), tree.KindInt)
	})
	assert.Equal(t, []string{"a.b", "a.c.0", "a.c.1"}, paths(ints))

	shallow := run(t, root, func(f Flow[*tree.Tree]) Flow[*tree.Tree] {
		return TreeOf(f, tree.KindArray)
	})
	assert.Equal(t, []string{"", "a", "a.b", "a.c", "d"}, paths(shallow))

	parents := run(t, root, func(f Flow[*tree.Tree]) Flow[*tree.Tree] {
		return ParentsOf(OfKind(Subtree(f), tree.KindInt))
	})
	assert.Equal(t, []string{"a", "", "a.c", "a", "", "a.c", "a", ""}, paths(parents))

	perKey := run(t, root, func(f Flow[*tree.Tree]) Flow[int] {
		return Scoped(OfKind(Subtree(f, tree.KindObject), tree.KindObject), func(obj Flow[*tree.Tree]) Flow[int] {
			return Count(OfKind(Subtree(obj), tree.KindInt))
		})
	})
	assert.Equal(t, []int{3}, perKey)
}

// TestExecuteOne tests the single-result helper.
func TestExecuteOne(t *testing.T) {
	q, err := NewQuery(func(f Flow[[]int]) Flow[int] { return Count(Flatten(f)) })
	require.NoError(t, err)
	n, err := q.ExecuteOne(nil, []int{4, 5})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	many, err := NewQuery(func(f Flow[[]int]) Flow[int] { return Flatten(f) })
	require.NoError(t, err)
	_, err = many.ExecuteOne(nil, []int{4, 5})
	assert.True(t, errors.Is(err, ErrResultCount))
	assert.ErrorContains(t, err, "got 2")
}

// TestQuery_Concurrent tests that one query serves concurrent contexts.
func TestQuery_Concurrent(t *testing.T) {
	q, err := NewQuery(func(f Flow[[]int]) Flow[int] { return Count(Flatten(f)) })
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			in := make([]int, i)
			n, err := q.ExecuteOne(exec.NewContext(nil), in)
			assert.NoError(t, err)
			assert.Equal(t, i, n)
		}()
	}
	wg.Wait()
}

// TestQueryOf tests that building a query leaves the source graph alone.
func TestQueryOf(t *testing.T) {
	m := NewManager[[]int]()
	var count Flow[int]
	m.Register(func(in Flow[[]int]) { count = Count(Flatten(in)) })
	before := m.Graph().Len()

	q, err := QueryOf[[]int](nil, count)
	require.NoError(t, err)
	assert.Equal(t, before, m.Graph().Len())

	out, err := q.Execute(nil, []int{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, []int{3}, out)
}

var lengthEntry = exec.NewEntry[int]("length")

// TestManager tests running several pipelines with metadata.
func TestManager(t *testing.T) {
	var calls atomic.Int32
	shared := func() *Function[func(int) int] {
		return Named("shared", func(v int) int {
			calls.Add(1)
			return v + 1
		})
	}

	m := NewManager(WithMetadata(lengthEntry, func(in []int) int { return len(in) }))

	var mu sync.Mutex
	var sums, maxes []string
	m.Register(func(in Flow[[]int]) {
		Consume(Count(Map(Flatten(in), shared())), "count", func(ctx *exec.Context, n int) {
			mu.Lock()
			defer mu.Unlock()
			sums = append(sums, Pair[int, int]{n, exec.MustLookup(ctx, lengthEntry)}.String())
		})
	})
	m.Register(func(in Flow[[]int]) {
		Consume(First(Map(Flatten(in), shared())), "first", func(_ *exec.Context, v int) {
			mu.Lock()
			defer mu.Unlock()
			maxes = append(maxes, Pair[int, int]{v, 0}.String())
		})
	})
	assert.Equal(t, 2, m.Len())

	r, err := m.Executable()
	require.NoError(t, err)
	require.NotNil(t, r)

	require.NoError(t, r.Run([]int{1, 2, 3}))
	require.NoError(t, r.Run([]int{7}))

	assert.Equal(t, []string{"(3, 3)", "(1, 1)"}, sums)
	assert.Equal(t, []string{"(2, 0)", "(8, 0)"}, maxes)
	assert.Equal(t, int32(4), calls.Load(), "the shared map runs once per value")
}

// TestManager_Empty tests that pipelines without consumers build to nothing.
func TestManager_Empty(t *testing.T) {
	m := NewManager[int]()
	m.Register(func(in Flow[int]) { Map(in, double()) })

	r, err := m.Executable()
	require.NoError(t, err)
	assert.Nil(t, r)
}

// TestFunction tests the identity of wrapped functions.
func TestFunction(t *testing.T) {
	f := Named("id", func(v int) int { return v }).Describe("Identity")
	assert.Equal(t, "id", f.ID())
	assert.Empty(t, Func(func(v int) int { return v }).ID())

	a := erase(f, "map", func(g func(int) int) func(any) any { return func(v any) any { return g(v.(int)) } })
	b := erase(f, "map", func(g func(int) int) func(any) any { return func(v any) any { return g(v.(int)) } })
	assert.Same(t, a, b)
	assert.Equal(t, "Identity", a.Name())
}

func TestCardinality(t *testing.T) {
	assert.Equal(t, "Single", Single.String())
	assert.Equal(t, Optional, Single.filtered())
	assert.Equal(t, Many, Many.filtered())
	assert.Equal(t, "Cardinality(7)", Cardinality(7).String())
}
