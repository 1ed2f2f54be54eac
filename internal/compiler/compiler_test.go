package compiler

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sonarsource/astquery/internal/pipeline"
	"github.com/sonarsource/astquery/internal/testutil"
	"github.com/sonarsource/astquery/internal/tree"
)

const document = "a:\n  b: 1\n  c: [2, 3]\nd: x\n"

func compileOne(t *testing.T, src, path string) (*Definition, error) {
	t.Helper()
	v := cuecontext.New().CompileString(src)
	require.NoError(t, v.Err())
	return CompilePipeline(v.LookupPath(cue.ParsePath(path)))
}

func TestCompilePipeline(t *testing.T) {
	def, err := compileOne(t, `
pipeline: ints: {
	description: "integer leaves"
	steps: [
		{op: "subtree", stop_at: ["array"]},
		{op: "ofKind", kinds: ["int", "float"]},
		"value",
	]
}
`, "pipeline.ints")
	require.NoError(t, err)

	assert.Equal(t, "ints", def.Name)
	assert.Equal(t, "integer leaves", def.Description)
	require.Len(t, def.Steps, 3)
	assert.Equal(t, OpSubtree, def.Steps[0].Op)
	assert.Equal(t, []tree.Kind{tree.KindArray}, def.Steps[0].StopAt)
	assert.Equal(t, OpOfKind, def.Steps[1].Op)
	assert.Equal(t, []tree.Kind{tree.KindInt, tree.KindFloat}, def.Steps[1].Kinds)
	assert.Equal(t, OpValue, def.Steps[2].Op)
	assert.True(t, def.Steps[2].Pos.IsValid())
}

func TestCompilePipeline_Operands(t *testing.T) {
	def, err := compileOne(t, `
pipeline: flagged: steps: [
	{op: "use", pipeline: "ints"},
	{op: "eq", value: {n: 3}},
	{op: "where", steps: ["value", {op: "eq", value: false}]},
]
`, "pipeline.flagged")
	require.NoError(t, err)

	require.Len(t, def.Steps, 3)
	assert.Equal(t, "ints", def.Steps[0].Pipeline)

	assert.True(t, def.Steps[1].HasValue)
	assert.Equal(t, map[string]any{"n": int64(3)}, def.Steps[1].Value)

	nested := def.Steps[2].Steps
	require.Len(t, nested, 2)
	assert.Equal(t, OpEq, nested[1].Op)
	assert.True(t, nested[1].HasValue)
	assert.Equal(t, false, nested[1].Value)
	assert.False(t, def.Steps[0].HasValue)
}

func TestCompilePipeline_Errors(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		field string
	}{
		{"missing steps", `pipeline: x: description: "no steps"`, "steps"},
		{"steps not a list", `pipeline: x: steps: "count"`, "steps"},
		{"step without op", `pipeline: x: steps: [{kinds: ["int"]}]`, "op"},
		{"kinds not a list", `pipeline: x: steps: [{op: "ofKind", kinds: "int"}]`, "kinds"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := compileOne(t, tt.src, "pipeline.x")
			require.Error(t, err)
			var cerr *CompileError
			require.True(t, errors.As(err, &cerr))
			assert.Equal(t, tt.field, cerr.Field)
		})
	}

	_, err := CompilePipeline(cue.Value{})
	assert.ErrorContains(t, err, "does not exist")
}

func TestCompileError(t *testing.T) {
	err := &CompileError{Field: "steps", Message: "steps are required"}
	assert.Equal(t, "steps: steps are required", err.Error())
}

func TestValidate(t *testing.T) {
	ints := &Definition{Name: "ints", Steps: []Step{{Op: OpSubtree}, {Op: OpOfKind, Kinds: []tree.Kind{tree.KindInt}}}}
	lookup := func(name string) (*Definition, bool) {
		if name == "ints" {
			return ints, true
		}
		return nil, false
	}

	tests := []struct {
		name  string
		steps []Step
		codes []string
	}{
		{"valid", []Step{{Op: OpSubtree}, {Op: OpValue}, {Op: OpEq, Value: int64(1), HasValue: true}}, nil},
		{"no steps", nil, []string{ErrNoSteps}},
		{"unknown op", []Step{{Op: "frobnicate"}}, []string{ErrUnknownOp}},
		{"invalid kind", []Step{{Op: OpSubtree, StopAt: []tree.Kind{"widget"}}}, []string{ErrInvalidKind}},
		{"ofKind without kinds", []Step{{Op: OpOfKind}}, []string{ErrMissingOperand}},
		{"eq without value", []Step{{Op: OpEq}}, []string{ErrMissingOperand}},
		{"use without pipeline", []Step{{Op: OpUse}}, []string{ErrMissingOperand}},
		{"tree op on values", []Step{{Op: OpValue}, {Op: OpSubtree}}, []string{ErrTypeMismatch}},
		{"unknown pipeline", []Step{{Op: OpUse, Pipeline: "nope"}}, []string{ErrUnknownPipeline}},
		{"empty where", []Step{{Op: OpWhere}}, []string{ErrNoSteps}},
		{"empty scoped", []Step{{Op: OpScoped}}, []string{ErrNoSteps}},
		{"use yields trees", []Step{{Op: OpUse, Pipeline: "ints"}, {Op: OpPath}}, nil},
		{"scoped yields values", []Step{{Op: OpScoped, Steps: []Step{{Op: OpCount}}}, {Op: OpLabel}}, []string{ErrTypeMismatch}},
		{"where keeps trees", []Step{{Op: OpWhere, Steps: []Step{{Op: OpLabel}}}, {Op: OpLabel}}, nil},
		{"errors are collected", []Step{{Op: "a"}, {Op: OpOfKind}, {Op: OpCount}, {Op: OpParents}},
			[]string{ErrUnknownOp, ErrMissingOperand, ErrTypeMismatch}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := Validate(&Definition{Name: "x", Steps: tt.steps}, lookup)
			var codes []string
			for _, e := range errs {
				codes = append(codes, e.Code)
			}
			assert.Equal(t, tt.codes, codes)
		})
	}
}

func TestValidationError(t *testing.T) {
	err := ValidationError{Field: "pipeline.x.steps[0]", Message: `unknown op "a"`, Code: ErrUnknownOp, Line: 3}
	assert.Equal(t, `[E120] line 3: pipeline.x.steps[0]: unknown op "a"`, err.Error())

	err.Line = 0
	assert.Equal(t, `[E120] pipeline.x.steps[0]: unknown op "a"`, err.Error())
}

func TestAnalyzeCycles(t *testing.T) {
	use := func(name string) Step { return Step{Op: OpUse, Pipeline: name} }

	acyclic := map[string]*Definition{
		"a": {Name: "a", Steps: []Step{use("b")}},
		"b": {Name: "b", Steps: []Step{{Op: OpCount}}},
	}
	assert.Empty(t, AnalyzeCycles(acyclic))

	self := map[string]*Definition{
		"c": {Name: "c", Steps: []Step{{Op: OpScoped, Steps: []Step{use("c")}}}},
	}
	cycles := AnalyzeCycles(self)
	require.Len(t, cycles, 1)
	assert.Equal(t, []string{"c", "c"}, cycles[0].Path)
	assert.Contains(t, cycles[0].Error(), `pipeline "c" uses itself`)

	mutual := map[string]*Definition{
		"a": {Name: "a", Steps: []Step{use("b")}},
		"b": {Name: "b", Steps: []Step{use("a")}},
		"d": {Name: "d", Steps: []Step{use("a")}},
	}
	cycles = AnalyzeCycles(mutual)
	require.Len(t, cycles, 1)
	path := cycles[0].Path
	require.Len(t, path, 3)
	assert.ElementsMatch(t, []string{"a", "b"}, path[:2])
	assert.Equal(t, path[0], path[2])
	assert.Contains(t, cycles[0].Error(), " -> ")
}

const definitions = `
pipeline: {
	ints: steps: [{op: "subtree"}, {op: "ofKind", kinds: ["int"]}, "value"]
	total: steps: [{op: "use", pipeline: "ints"}, "count"]
	labels: steps: ["subtree", "label"]
	first: steps: ["subtree", "first", "path"]
	hasBool: steps: ["subtree", {op: "ofKind", kinds: ["bool"]}, "exists"]
	all: steps: [{op: "use", pipeline: "ints"}, "collect"]
	parents: steps: ["subtree", {op: "ofKind", kinds: ["int"]}, "first", "parents", "path"]
	shallow: steps: [{op: "self", stop_at: ["object"]}, "path"]
	isX: steps: ["subtree", {op: "ofKind", kinds: ["string"]}, "value", {op: "eq", value: "x"}]
	perArray: steps: [
		"subtree",
		{op: "ofKind", kinds: ["array"]},
		{op: "scoped", steps: ["subtree", "count"]},
	]
	holdsThree: steps: [
		"subtree",
		{op: "ofKind", kinds: ["object", "array"]},
		{op: "where", steps: ["subtree", "value", {op: "eq", value: 3}]},
		"path",
	]
}
`

func runDefinition(t *testing.T, set *Set, name string, root *tree.Tree) []any {
	t.Helper()
	body, err := set.Body(name)
	require.NoError(t, err)
	q, err := pipeline.NewQuery[*tree.Tree, any](body)
	require.NoError(t, err)
	out, err := q.Execute(nil, root)
	require.NoError(t, err)
	return out
}

func TestBuild(t *testing.T) {
	set, errs := LoadSource([]byte(definitions), LoadModeCollectAll)
	require.Empty(t, errs)
	root := testutil.MustYAML(t, document)

	tests := []struct {
		name string
		want []any
	}{
		{"ints", []any{int64(1), int64(2), int64(3)}},
		{"total", []any{3}},
		{"labels", []any{"a", "b", "c", "0", "1", "d"}},
		{"first", []any{"a"}},
		{"hasBool", []any{false}},
		{"all", []any{[]any{int64(1), int64(2), int64(3)}}},
		{"parents", []any{"a", ""}},
		{"shallow", []any{"", "a", "d"}},
		{"isX", []any{true}},
		{"perArray", []any{2}},
		{"holdsThree", []any{"a", "a.c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, runDefinition(t, set, tt.name, root))
		})
	}
}

func TestSet(t *testing.T) {
	set, errs := LoadSource([]byte(definitions), LoadModeFailFast)
	require.Empty(t, errs)

	assert.Equal(t, 1, set.FileCount)
	assert.Len(t, set.Names(), 11)
	assert.Equal(t, "all", set.Names()[0])

	_, err := set.Body("missing")
	var lerr *LoadError
	require.True(t, errors.As(err, &lerr))
	assert.Equal(t, ErrCodeNotFound, lerr.Code)
}

func loadErrorCodes(errs []error) []string {
	var codes []string
	for _, err := range errs {
		var lerr *LoadError
		if errors.As(err, &lerr) {
			codes = append(codes, lerr.Code)
		}
	}
	return codes
}

func TestLoadSource_Errors(t *testing.T) {
	src := []byte(`
pipeline: {
	a: steps: ["frobnicate"]
	b: steps: [{op: "use", pipeline: "nope"}]
	c: steps: [{op: "use", pipeline: "c"}]
	d: description: "no steps"
}
`)

	_, errs := LoadSource(src, LoadModeCollectAll)
	assert.Equal(t, []string{ErrCodeGeneric, ErrUnknownOp, ErrUnknownPipeline, ErrReferenceCycle}, loadErrorCodes(errs))

	_, errs = LoadSource(src, LoadModeFailFast)
	assert.Len(t, errs, 1)

	_, errs = LoadSource([]byte(`other: 1`), LoadModeCollectAll)
	assert.Equal(t, []string{ErrCodeNoPipelines}, loadErrorCodes(errs))

	_, errs = LoadSource([]byte(`pipeline: {`), LoadModeCollectAll)
	assert.Equal(t, []string{ErrCodeBuildFailed}, loadErrorCodes(errs))
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ints.cue"), []byte(`package defs

pipeline: ints: steps: ["subtree", {op: "ofKind", kinds: ["int"]}, "value"]
`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "total.cue"), []byte(`package defs

pipeline: total: steps: [{op: "use", pipeline: "ints"}, "count"]
`), 0o644))

	set, errs := LoadDir(dir, LoadModeFailFast)
	require.Empty(t, errs)
	assert.Equal(t, 2, set.FileCount)
	assert.Equal(t, []string{"ints", "total"}, set.Names())
	assert.Equal(t, []any{3}, runDefinition(t, set, "total", testutil.MustYAML(t, document)))
}

func TestLoadDir_Errors(t *testing.T) {
	_, errs := LoadDir(filepath.Join(t.TempDir(), "missing"), LoadModeFailFast)
	assert.Equal(t, []string{ErrCodeNotFound}, loadErrorCodes(errs))

	empty := t.TempDir()
	_, errs = LoadDir(empty, LoadModeFailFast)
	assert.Equal(t, []string{ErrCodeNoFiles}, loadErrorCodes(errs))

	file := filepath.Join(empty, "x.txt")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	_, errs = LoadDir(file, LoadModeFailFast)
	assert.Equal(t, []string{ErrCodeNotFound}, loadErrorCodes(errs))
}
