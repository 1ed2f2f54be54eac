package pipeline

import (
	"fmt"

	"github.com/sonarsource/astquery/internal/invariant"
	"github.com/sonarsource/astquery/internal/ir"
)

// Cardinality is the number of values a flow carries per batch.
type Cardinality int

const (
	Single Cardinality = iota
	Optional
	Many
)

func (c Cardinality) String() string {
	switch c {
	case Single:
		return "Single"
	case Optional:
		return "Optional"
	case Many:
		return "Many"
	}
	return fmt.Sprintf("Cardinality(%d)", int(c))
}

// filtered is the cardinality after dropping some values.
func (c Cardinality) filtered() Cardinality {
	if c == Single {
		return Optional
	}
	return c
}

// Flow is a typed handle on the output of an IR node.
type Flow[T any] struct {
	node *ir.Node
	card Cardinality
}

// Start returns the flow of the inputs of g.
func Start[T any](g *ir.Graph) Flow[T] {
	return Flow[T]{node: g.Root(), card: Single}
}

// Node returns the IR node producing the flow.
func (f Flow[T]) Node() *ir.Node { return f.node }

// Cardinality returns the number of values per batch.
func (f Flow[T]) Cardinality() Cardinality { return f.card }

func (f Flow[T]) String() string {
	return fmt.Sprintf("%s[%s]", f.card, f.node)
}

func flow[T any](n *ir.Node, c Cardinality) Flow[T] {
	return Flow[T]{node: n, card: c}
}

func mustSingle[T any](f Flow[T], op string) {
	if f.card != Single {
		invariant.Fail(invariant.Newf(invariant.CodeCardinality,
			"%s needs a single value per batch, got %s; collect the flow first", op, f.card).
			With("node", f.node.ID()))
	}
}

// Erase forgets the value type of f.
func Erase[T any](f Flow[T]) Flow[any] {
	return flow[any](f.node, f.card)
}

// Assume retypes an erased flow. Values that are not of type T make the
// next typed function panic.
func Assume[T any](f Flow[any]) Flow[T] {
	return flow[T](f.node, f.card)
}
