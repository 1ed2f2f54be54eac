package pipeline

import (
	"errors"
	"fmt"

	"github.com/sonarsource/astquery/internal/exec"
	"github.com/sonarsource/astquery/internal/exec/greedy"
	"github.com/sonarsource/astquery/internal/invariant"
	"github.com/sonarsource/astquery/internal/ir"
)

// ErrResultCount is returned by ExecuteOne when a query does not yield
// exactly one value.
var ErrResultCount = errors.New("query did not yield exactly one result")

// Query evaluates a pipeline and returns its values.
type Query[IN, OUT any] struct {
	exec    exec.Executable
	results *exec.Store[*[]OUT]
}

// NewQuery builds the pipeline defined by body with the greedy executor.
func NewQuery[IN, OUT any](body func(in Flow[IN]) Flow[OUT]) (*Query[IN, OUT], error) {
	return NewQueryWith(greedy.New(), body)
}

// NewQueryWith is NewQuery with a custom compiler.
func NewQueryWith[IN, OUT any](c Compiler, body func(in Flow[IN]) Flow[OUT]) (q *Query[IN, OUT], err error) {
	defer invariant.Recover(&err)
	g := ir.New()
	return QueryOf[IN](c, body(Start[IN](g)))
}

// QueryOf builds a query returning the values of out. The graph of out is
// cloned first and is left untouched. A nil c selects the greedy executor.
func QueryOf[IN, OUT any](c Compiler, out Flow[OUT]) (*Query[IN, OUT], error) {
	if c == nil {
		c = greedy.New()
	}
	g := out.node.Graph().Clone()
	results := exec.NewStore(func() *[]OUT { return new([]OUT) })
	ir.NewConsumer(g.Node(out.node.ID()), "collect", func(ctx *exec.Context, v any) {
		p := results.Get(ctx)
		*p = append(*p, as[OUT](v))
	})

	e, err := c.Build(g)
	if err != nil {
		return nil, err
	}
	return &Query[IN, OUT]{exec: e, results: results}, nil
}

// Execute evaluates the query against input within ctx. A nil ctx runs in
// a fresh context without metadata.
func (q *Query[IN, OUT]) Execute(ctx *exec.Context, input IN) ([]OUT, error) {
	if ctx == nil {
		ctx = exec.NewContext(nil)
	}
	if err := exec.Run(q.exec, ctx, input); err != nil {
		return nil, err
	}
	return *q.results.Remove(ctx), nil
}

// ExecuteOne is Execute for queries expected to yield one value.
func (q *Query[IN, OUT]) ExecuteOne(ctx *exec.Context, input IN) (OUT, error) {
	var zero OUT
	out, err := q.Execute(ctx, input)
	if err != nil {
		return zero, err
	}
	if len(out) != 1 {
		return zero, fmt.Errorf("%w: got %d", ErrResultCount, len(out))
	}
	return out[0], nil
}
