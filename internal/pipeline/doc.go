// Package pipeline is the typed combinator layer over the IR.
//
// A Flow[T] is a typed handle on an IR node together with the number of
// values it carries per batch: Single, Optional or Many. Operations are
// plain generic functions that add nodes to the graph and return a new
// Flow:
//
//	in := pipeline.Start[[]int](g)
//	evens := pipeline.Filter(pipeline.Flatten(in), isEven)
//	pipeline.Consume(pipeline.Count(evens), "report", report)
//
// User functions are wrapped with Named, which gives them an identity so
// that equal computations registered by different pipelines are merged
// when the graph is built, or with Func for anonymous functions.
package pipeline
