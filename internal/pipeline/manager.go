package pipeline

import (
	"github.com/sonarsource/astquery/internal/exec"
	"github.com/sonarsource/astquery/internal/exec/greedy"
	"github.com/sonarsource/astquery/internal/ir"
)

// Compiler lowers an IR graph to an executable. *build.Builder implements
// it for every runtime node type.
type Compiler interface {
	Build(g *ir.Graph) (exec.Executable, error)
}

// Manager collects the pipelines run over the same inputs into one graph,
// so shared computations run once per input.
type Manager[IN any] struct {
	graph     *ir.Graph
	compiler  Compiler
	metadata  *exec.MetadataGenerator[IN]
	pipelines int
}

// ManagerOption configures a Manager.
type ManagerOption[IN any] func(*Manager[IN])

// WithBuilder sets the compiler of the pipelines.
//
// Default: greedy.New()
func WithBuilder[IN any](c Compiler) ManagerOption[IN] {
	return func(m *Manager[IN]) {
		m.compiler = c
	}
}

// WithMetadata registers provider as the source of entry for every run.
func WithMetadata[IN, T any](entry *exec.Entry[T], provider func(IN) T) ManagerOption[IN] {
	return func(m *Manager[IN]) {
		exec.Add(m.metadata, entry, provider)
	}
}

// NewManager creates an empty manager.
func NewManager[IN any](opts ...ManagerOption[IN]) *Manager[IN] {
	m := &Manager[IN]{
		graph:    ir.New(),
		metadata: exec.NewMetadataGenerator[IN](),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.compiler == nil {
		m.compiler = greedy.New()
	}
	return m
}

// Register adds the pipeline built by define.
func (m *Manager[IN]) Register(define func(in Flow[IN])) {
	define(Start[IN](m.graph))
	m.pipelines++
}

// Len returns the number of registered pipelines.
func (m *Manager[IN]) Len() int { return m.pipelines }

// Graph returns the graph of the registered pipelines.
func (m *Manager[IN]) Graph() *ir.Graph { return m.graph }

// Executable builds the registered pipelines. It returns a nil runner and
// no error when no pipeline has a consumer.
//
// The build rewrites a clone, so pipelines may still be registered
// afterwards.
func (m *Manager[IN]) Executable() (*Runner[IN], error) {
	e, err := m.compiler.Build(m.graph.Clone())
	if err != nil {
		return nil, err
	}
	if e.Empty() {
		return nil, nil
	}
	return &Runner[IN]{exec: e, metadata: m.metadata}, nil
}

// Runner runs built pipelines over inputs.
type Runner[IN any] struct {
	exec     exec.Executable
	metadata *exec.MetadataGenerator[IN]
}

// Run evaluates every pipeline against input in a fresh context.
func (r *Runner[IN]) Run(input IN) error {
	ctx := exec.NewContext(r.metadata.Generate(input))
	return exec.Run(r.exec, ctx, input)
}
