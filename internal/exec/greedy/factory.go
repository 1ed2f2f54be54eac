package greedy

import (
	"log/slog"

	"github.com/sonarsource/astquery/internal/exec"
	"github.com/sonarsource/astquery/internal/exec/build"
	"github.com/sonarsource/astquery/internal/graph"
	"github.com/sonarsource/astquery/internal/invariant"
	"github.com/sonarsource/astquery/internal/ir"
	"github.com/sonarsource/astquery/internal/transform"
	"github.com/sonarsource/astquery/internal/tree"
)

// Graph is a built greedy executable.
type Graph struct {
	root Node
}

// Execute pushes input through the graph.
func (g *Graph) Execute(ctx *exec.Context, input any) {
	g.root.OnValue(ctx, g.root.ID(), input)
}

// Empty reports whether no sink is reachable.
func (g *Graph) Empty() bool {
	return len(g.root.Children()) == 0
}

// Root returns the runtime root.
func (g *Graph) Root() Node {
	return g.root
}

// Nodes returns the runtime nodes in breadth-first order.
func (g *Graph) Nodes() []Node {
	return graph.BreadthFirst(g.root)
}

type translator struct{}

func base(ctx *build.Context[Node], n *ir.Node) Base {
	return NewBase(n.ID(), ctx.Children(n))
}

func (translator) Root(ctx *build.Context[Node], n *ir.Node) Node {
	return &RootNode{Base: base(ctx, n)}
}

func (translator) Map(ctx *build.Context[Node], n *ir.Node) Node {
	return &MapNode{Base: base(ctx, n), fn: n.Op().(ir.Map).Fn.Fn}
}

func (translator) Filter(ctx *build.Context[Node], n *ir.Node) Node {
	return &FilterNode{Base: base(ctx, n), pred: n.Op().(ir.Filter).Pred.Fn}
}

func (translator) FilterNonNull(ctx *build.Context[Node], n *ir.Node) Node {
	return &FilterNonNullNode{Base: base(ctx, n)}
}

func (translator) FilterType(ctx *build.Context[Node], n *ir.Node) Node {
	return &FilterTypeNode{Base: base(ctx, n), types: n.Op().(ir.FilterType)}
}

func (translator) FlatMap(ctx *build.Context[Node], n *ir.Node) Node {
	return &FlatMapNode{Base: base(ctx, n), fn: lambda[ir.FlatMapFunc](n, n.Op().(ir.FlatMap).Fn)}
}

func (translator) Combine(ctx *build.Context[Node], n *ir.Node) Node {
	fn := n.Op().(ir.Combine).Fn
	return newCombineNode(base(ctx, n), operands(n), commonScopes(n.Left(), n.Right()), fn.Name(),
		func(l, r any) (any, bool) { return fn.Fn(l, r), true })
}

func (translator) CombineDrop(ctx *build.Context[Node], n *ir.Node) Node {
	fn := n.Op().(ir.CombineDrop).Fn
	return newCombineNode(base(ctx, n), operands(n), commonScopes(n.Left(), n.Right()), fn.Name(),
		func(l, r any) (any, bool) { return fn.Fn(l, r).Get() })
}

func (translator) Aggregate(ctx *build.Context[Node], n *ir.Node) Node {
	return &AggregateNode{
		Base:  base(ctx, n),
		fn:    lambda[ir.AggregateFunc](n, n.Op().(ir.Aggregate).Fn),
		batch: newBatchStore(),
	}
}

func (translator) AggregateDrop(ctx *build.Context[Node], n *ir.Node) Node {
	return &AggregateDropNode{
		Base:  base(ctx, n),
		fn:    lambda[ir.AggregateDropFunc](n, n.Op().(ir.AggregateDrop).Fn),
		batch: newBatchStore(),
	}
}

func (translator) Union(ctx *build.Context[Node], n *ir.Node) Node {
	parents := n.Parents()
	return newUnionNode(base(ctx, n),
		sides{left: parents[0].ID(), right: parents[1].ID()},
		commonScopes(parents[0], parents[1]))
}

func (translator) Scope(ctx *build.Context[Node], n *ir.Node) Node {
	b := base(ctx, n)
	b.completable = false
	return &ScopeNode{Base: b, scope: n.Op().(ir.Scope).ID}
}

func (translator) Unscope(ctx *build.Context[Node], n *ir.Node) Node {
	return &UnscopeNode{Base: base(ctx, n), scopes: NewScopeSet(n.ScopeIDs()...)}
}

func (translator) Consumer(ctx *build.Context[Node], n *ir.Node) Node {
	op := n.Op().(ir.Consumer)
	return &ConsumerNode{Base: base(ctx, n), name: op.Name, fn: op.Fn}
}

func (translator) Executable(_ *build.Context[Node], root Node) exec.Executable {
	return &Graph{root: root}
}

func lambda[F any](n *ir.Node, fn ir.Function) F {
	l, ok := fn.(*ir.Lambda[F])
	if !ok {
		invariant.Failf(invariant.CodeMalformedNode, "%s carries %T", n, fn)
	}
	return l.Fn
}

func operands(n *ir.Node) sides {
	return sides{left: n.Left().ID(), right: n.Right().ID()}
}

// commonScopes returns the scopes both nodes descend from. The root scope
// is always common.
func commonScopes(left, right *ir.Node) ScopeSet {
	g := left.Graph()
	common := NewScopeSet(ir.RootScopeID)
	for id := range left.Ancestors().Intersect(right.Ancestors()) {
		if s, ok := g.Node(id).Op().(ir.Scope); ok {
			common[s.ID] = struct{}{}
		}
	}
	return common
}

type factoryOptions struct {
	logger          *slog.Logger
	transformations []transform.Transformation
	providers       []provider
}

type provider struct {
	kind   ir.Kind
	fnKind string
	p      build.Provider[Node]
}

// FactoryOption configures New.
type FactoryOption func(*factoryOptions)

// WithLogger sets the logger of the builder.
func WithLogger(l *slog.Logger) FactoryOption {
	return func(o *factoryOptions) {
		o.logger = l
	}
}

// WithTransformations replaces the rewrite passes of the builder.
func WithTransformations(ts ...transform.Transformation) FactoryOption {
	return func(o *factoryOptions) {
		o.transformations = ts
	}
}

// WithProvider registers an additional provider, after the built-in ones.
func WithProvider(kind ir.Kind, fnKind string, p build.Provider[Node]) FactoryOption {
	return func(o *factoryOptions) {
		o.providers = append(o.providers, provider{kind: kind, fnKind: fnKind, p: p})
	}
}

// New returns a builder producing greedy executables, with the specialized
// nodes of the built-in node functions registered.
func New(opts ...FactoryOption) *build.Builder[Node] {
	var o factoryOptions
	for _, opt := range opts {
		opt(&o)
	}

	r := build.NewRegistry[Node]()
	registerBuiltins(r)
	for _, p := range o.providers {
		r.Register(p.kind, p.fnKind, p.p)
	}

	bopts := []build.Option{build.WithRegistry(r)}
	if o.logger != nil {
		bopts = append(bopts, build.WithLogger(o.logger))
	}
	if o.transformations != nil {
		bopts = append(bopts, build.WithTransformations(o.transformations...))
	}
	return build.New[Node](translator{}, bopts...)
}

func registerBuiltins(r *build.Registry[Node]) {
	first := func(ctx *build.Context[Node], n *ir.Node, _ ir.NodeFunction) Node {
		return &FirstNode{Base: base(ctx, n)}
	}
	r.Register(ir.KindAggregate, ir.First.Kind(), first)
	r.Register(ir.KindAggregateDrop, ir.First.Kind(), first)

	r.Register(ir.KindAggregate, ir.Count.Kind(), func(ctx *build.Context[Node], n *ir.Node, _ ir.NodeFunction) Node {
		return &CountNode{Base: base(ctx, n), count: exec.NewStore(func() int { return 0 })}
	})
	r.Register(ir.KindAggregate, ir.Exists.Kind(), func(ctx *build.Context[Node], n *ir.Node, _ ir.NodeFunction) Node {
		return &ExistsNode{Base: base(ctx, n)}
	})
	r.Register(ir.KindAggregate, ir.NotExists.Kind(), func(ctx *build.Context[Node], n *ir.Node, _ ir.NodeFunction) Node {
		return &ExistsNode{Base: base(ctx, n), inverted: true}
	})
	r.Register(ir.KindAggregate, ir.FirstOrDefault(nil).Kind(), func(ctx *build.Context[Node], n *ir.Node, fn ir.NodeFunction) Node {
		return &FirstOrDefaultNode{Base: base(ctx, n), def: fn.(ir.FirstOrDefaultFunction).Default}
	})

	r.Register(ir.KindFlatMap, tree.SubtreeFunction{}.Kind(), func(ctx *build.Context[Node], n *ir.Node, fn ir.NodeFunction) Node {
		return &SubtreeNode{Base: base(ctx, n), fn: fn.(tree.SubtreeFunction)}
	})
	r.Register(ir.KindFlatMap, tree.Parents.Kind(), func(ctx *build.Context[Node], n *ir.Node, _ ir.NodeFunction) Node {
		return &ParentsNode{Base: base(ctx, n)}
	})
}
