// Package build lowers an IR graph to an executable runtime graph.
//
// A Builder validates the graph, runs the configured rewrite passes, then
// walks the graph in post-order so that every node is translated after its
// children. Each IR kind maps to one Translator method; FlatMap, Aggregate
// and AggregateDrop nodes carrying an ir.NodeFunction are first offered to
// the Registry, keyed by the exact (kind, function kind) pair. A node function without a provider fails the
// build with NO_TRANSLATION.
package build

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/hashicorp/go-multierror"

	"github.com/sonarsource/astquery/internal/exec"
	"github.com/sonarsource/astquery/internal/graph"
	"github.com/sonarsource/astquery/internal/invariant"
	"github.com/sonarsource/astquery/internal/ir"
	"github.com/sonarsource/astquery/internal/transform"
)

// Translator creates the runtime node of type N for each IR kind.
//
// Methods receive the build context, from which they fetch the already
// translated children of the node.
type Translator[N any] interface {
	Root(ctx *Context[N], n *ir.Node) N
	Map(ctx *Context[N], n *ir.Node) N
	Filter(ctx *Context[N], n *ir.Node) N
	FilterNonNull(ctx *Context[N], n *ir.Node) N
	FilterType(ctx *Context[N], n *ir.Node) N
	FlatMap(ctx *Context[N], n *ir.Node) N
	Combine(ctx *Context[N], n *ir.Node) N
	CombineDrop(ctx *Context[N], n *ir.Node) N
	Aggregate(ctx *Context[N], n *ir.Node) N
	AggregateDrop(ctx *Context[N], n *ir.Node) N
	Union(ctx *Context[N], n *ir.Node) N
	Scope(ctx *Context[N], n *ir.Node) N
	Unscope(ctx *Context[N], n *ir.Node) N
	Consumer(ctx *Context[N], n *ir.Node) N

	// Executable wraps the translated root.
	Executable(ctx *Context[N], root N) exec.Executable
}

// Builder lowers IR graphs with a Translator.
type Builder[N any] struct {
	translator      Translator[N]
	registry        *Registry[N]
	transformations []transform.Transformation
	logger          *slog.Logger
}

type options struct {
	transformations []transform.Transformation
	logger          *slog.Logger
	registry        any
}

// Option configures a Builder.
type Option func(*options)

// WithTransformations replaces the rewrite passes run before translation.
//
// Default: transform.Defaults()
func WithTransformations(ts ...transform.Transformation) Option {
	return func(o *options) {
		o.transformations = ts
	}
}

// WithLogger sets the logger used for build diagnostics. Builds only log at
// Debug level.
//
// Default: slog.Default()
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithRegistry makes the builder use r instead of a fresh registry. The
// registry's node type must match the builder's.
func WithRegistry[N any](r *Registry[N]) Option {
	return func(o *options) {
		o.registry = r
	}
}

// New creates a Builder for t.
func New[N any](t Translator[N], opts ...Option) *Builder[N] {
	o := options{transformations: transform.Defaults()}
	for _, opt := range opts {
		opt(&o)
	}

	b := &Builder[N]{
		translator:      t,
		transformations: o.transformations,
		logger:          o.logger,
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	switch r := o.registry.(type) {
	case nil:
		b.registry = NewRegistry[N]()
	case *Registry[N]:
		b.registry = r
	default:
		panic(fmt.Sprintf("build: registry %T does not match builder node type", r))
	}
	return b
}

// Registry returns the builder's registry. Providers must be registered
// before the first call to Build.
func (b *Builder[N]) Registry() *Registry[N] {
	return b.registry
}

// Transformations returns the rewrite passes in run order.
func (b *Builder[N]) Transformations() []transform.Transformation {
	return b.transformations
}

// Build rewrites g in place and translates it.
//
// Structural problems are reported before any rewrite as an aggregated
// error of *Error. An invariant violation raised by a rewrite pass or a
// translator is returned as an *invariant.Violation.
func (b *Builder[N]) Build(g *ir.Graph) (e exec.Executable, err error) {
	defer invariant.Recover(&err)

	b.registry.seal()
	b.logger.Debug("build started", "nodes", g.Len(), "transformations", len(b.transformations))

	if err := validate(g); err != nil {
		return nil, err
	}

	for _, t := range b.transformations {
		t.Apply(g)
		b.logger.Debug("transformation applied", "name", t.Name(), "nodes", len(g.Nodes()))
	}

	if err := validate(g); err != nil {
		return nil, fmt.Errorf("after transformations: %w", err)
	}

	ctx := newContext[N](g)
	for _, n := range graph.PostOrder(g.Root()) {
		t, err := b.translate(ctx, n)
		if err != nil {
			return nil, err
		}
		ctx.Add(n, t)
	}

	root, _ := ctx.Get(g.Root())
	b.logger.Debug("build finished",
		"runtime_nodes", ctx.Len(),
		"fingerprint", ir.FingerprintString(g),
	)
	return b.translator.Executable(ctx, root), nil
}

func (b *Builder[N]) translate(ctx *Context[N], n *ir.Node) (N, error) {
	t := b.translator
	switch n.Kind() {
	case ir.KindRoot:
		return t.Root(ctx, n), nil
	case ir.KindMap:
		return t.Map(ctx, n), nil
	case ir.KindFilter:
		return t.Filter(ctx, n), nil
	case ir.KindFilterNonNull:
		return t.FilterNonNull(ctx, n), nil
	case ir.KindFilterType:
		return t.FilterType(ctx, n), nil
	case ir.KindFlatMap:
		return b.withRegistry(ctx, n, t.FlatMap)
	case ir.KindCombine:
		return t.Combine(ctx, n), nil
	case ir.KindCombineDrop:
		return t.CombineDrop(ctx, n), nil
	case ir.KindAggregate:
		return b.withRegistry(ctx, n, t.Aggregate)
	case ir.KindAggregateDrop:
		return b.withRegistry(ctx, n, t.AggregateDrop)
	case ir.KindUnion:
		return t.Union(ctx, n), nil
	case ir.KindScope:
		return t.Scope(ctx, n), nil
	case ir.KindUnscope:
		return t.Unscope(ctx, n), nil
	case ir.KindConsumer:
		return t.Consumer(ctx, n), nil
	}
	var zero N
	return zero, &Error{Code: ErrCodeMalformedNode, NodeID: n.ID(), Message: fmt.Sprintf("unknown kind %s", n.Kind())}
}

// withRegistry dispatches nodes carrying a node function to their provider
// and falls back to the generic translation for plain functions.
func (b *Builder[N]) withRegistry(ctx *Context[N], n *ir.Node, generic func(*Context[N], *ir.Node) N) (N, error) {
	nf, ok := ir.FunctionOf(n.Op()).(ir.NodeFunction)
	if !ok {
		return generic(ctx, n), nil
	}
	p, ok := b.registry.Lookup(n.Kind(), nf.Kind())
	if !ok {
		var zero N
		return zero, &Error{
			Code:    ErrCodeNoTranslation,
			NodeID:  n.ID(),
			Message: fmt.Sprintf("no translation for %s with %s", n.Kind(), nf.Kind()),
		}
	}
	return p(ctx, n, nf), nil
}

// validate converts the problems found by ir.Validate into build errors.
func validate(g *ir.Graph) error {
	err := ir.Validate(g)
	if err == nil {
		return nil
	}
	var merr *multierror.Error
	if !errors.As(err, &merr) {
		return err
	}
	var result *multierror.Error
	for _, e := range merr.Errors {
		var p *ir.Problem
		if !errors.As(e, &p) {
			result = multierror.Append(result, e)
			continue
		}
		result = multierror.Append(result, &Error{
			Code:    ErrorCode(p.Code),
			NodeID:  p.NodeID,
			Message: p.Message,
			Err:     p,
		})
	}
	return result.ErrorOrNil()
}
