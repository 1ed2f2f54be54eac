package compiler

import (
	"fmt"
	"reflect"

	"github.com/sonarsource/astquery/internal/canon"
	"github.com/sonarsource/astquery/internal/pipeline"
	"github.com/sonarsource/astquery/internal/tree"
)

// Body is a compiled definition: it derives the values of the pipeline
// from the flow of input roots.
type Body func(in pipeline.Flow[*tree.Tree]) pipeline.Flow[any]

// Build compiles def. The definition must have passed Validate and
// AnalyzeCycles; a definition that did not may panic while the body runs.
func Build(def *Definition, lookup Lookup) Body {
	return func(in pipeline.Flow[*tree.Tree]) pipeline.Flow[any] {
		return buildSteps(pipeline.Erase(in), def.Steps, lookup)
	}
}

func buildSteps(f pipeline.Flow[any], steps []Step, lookup Lookup) pipeline.Flow[any] {
	for _, s := range steps {
		f = buildStep(f, s, lookup)
	}
	return f
}

var (
	treeLabel = pipeline.Named("tree.label", func(t *tree.Tree) any { return t.Label }).Describe("Label")
	treePath  = pipeline.Named("tree.path", func(t *tree.Tree) any { return t.Path() }).Describe("Path")
	treeValue = pipeline.Named("tree.value", func(t *tree.Tree) any { return t.Plain() }).Describe("Value")
	truthy    = pipeline.Named("truthy", func(v any) bool { return v != nil && v != false }).Describe("Truthy")
)

func buildStep(f pipeline.Flow[any], s Step, lookup Lookup) pipeline.Flow[any] {
	trees := func() pipeline.Flow[*tree.Tree] { return pipeline.Assume[*tree.Tree](f) }

	switch s.Op {
	case OpSubtree:
		return pipeline.Erase(pipeline.Subtree(trees(), s.StopAt...))
	case OpSelf:
		return pipeline.Erase(pipeline.TreeOf(trees(), s.StopAt...))
	case OpParents:
		return pipeline.Erase(pipeline.ParentsOf(trees()))
	case OpOfKind:
		return pipeline.Erase(pipeline.OfKind(trees(), s.Kinds...))
	case OpLabel:
		return pipeline.Map(trees(), treeLabel)
	case OpPath:
		return pipeline.Map(trees(), treePath)
	case OpValue:
		return pipeline.Map(trees(), treeValue)
	case OpFirst:
		return pipeline.First(f)
	case OpCount:
		return pipeline.Erase(pipeline.Count(f))
	case OpExists:
		return pipeline.Erase(pipeline.Exists(f))
	case OpCollect:
		return pipeline.Erase(pipeline.Collect(f))
	case OpEq:
		return pipeline.Map(f, equals(s.Value))
	case OpWhere:
		return pipeline.Where(f, func(e pipeline.Flow[any]) pipeline.Flow[bool] {
			return pipeline.Exists(pipeline.Filter(buildSteps(e, s.Steps, lookup), truthy))
		})
	case OpScoped:
		return pipeline.Scoped(f, func(e pipeline.Flow[any]) pipeline.Flow[any] {
			return buildSteps(e, s.Steps, lookup)
		})
	case OpUse:
		used, ok := lookup(s.Pipeline)
		if !ok {
			panic(fmt.Sprintf("compiler: pipeline %q is not defined", s.Pipeline))
		}
		return buildSteps(f, used.Steps, lookup)
	}
	panic(fmt.Sprintf("compiler: unknown op %q", s.Op))
}

// equals compares values by their canonical JSON, so an int64 from a YAML
// input equals an int64 from a CUE definition whatever their Go types.
func equals(want any) *pipeline.Function[func(any) any] {
	text, err := canon.MarshalString(want)
	if err != nil {
		return pipeline.Func(func(v any) any { return reflect.DeepEqual(v, want) }).Describe("Equals")
	}
	return pipeline.Named("equals.canonical("+text+")", func(v any) any {
		got, err := canon.MarshalString(v)
		return err == nil && got == text
	}).Describe("Equals(" + text + ")")
}
