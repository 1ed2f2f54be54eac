package ir

import (
	"fmt"
	"iter"
	"reflect"

	"github.com/sonarsource/astquery/internal/exec"
)

// Function is the identity of a function carried by a node.
//
// Implementations must be comparable with == unless they implement
// NodeFunction.
type Function interface {
	// FuncID returns the stable identity of the function, or "" when the
	// function is anonymous.
	FuncID() string

	// Name returns a display name.
	Name() string
}

// Erased function signatures. The typed pipeline DSL wraps user functions
// into these so the IR and the executors stay free of type parameters.
type (
	MapFunc           func(any) any
	PredicateFunc     func(any) bool
	FlatMapFunc       func(any) iter.Seq[any]
	CombineFunc       func(left, right any) any
	CombineDropFunc   func(left, right any) Droppable[any]
	AggregateFunc     func([]any) any
	AggregateDropFunc func([]any) Droppable[any]
	ConsumerFunc      func(ctx *exec.Context, value any)
)

// Lambda is a user function with an optional identity.
type Lambda[F any] struct {
	id   string
	name string

	// Fn is the function itself.
	Fn F
}

// NewLambda wraps fn. An empty id makes the lambda anonymous: it is then
// only equal to itself.
func NewLambda[F any](id, name string, fn F) *Lambda[F] {
	return &Lambda[F]{id: id, name: name, Fn: fn}
}

// Anonymous wraps fn without identity.
func Anonymous[F any](fn F) *Lambda[F] {
	return &Lambda[F]{Fn: fn}
}

// FuncID implements Function.
func (l *Lambda[F]) FuncID() string { return l.id }

// Name implements Function.
func (l *Lambda[F]) Name() string {
	if l.name == "" {
		return "Lambda"
	}
	return l.name
}

// Identity returns the identity mapping.
func Identity(name string) *Lambda[MapFunc] {
	if name == "" {
		name = "Identity"
	}
	return NewLambda[MapFunc]("identity", name, func(v any) any { return v })
}

// Constant returns a mapping that always yields value. Constants of
// different types never share an id, so Constant(1) and Constant("1") are
// distinct functions.
func Constant(value any) *Lambda[MapFunc] {
	return NewLambda[MapFunc](fmt.Sprintf("constant.%T:%#v", value, value), fmt.Sprintf("Constant-%v", value),
		func(any) any { return value })
}

// NodeFunction is a built-in function that executors implement with a
// dedicated runtime node instead of calling it. The build registry is keyed
// by the pair (node Kind, NodeFunction.Kind()).
type NodeFunction interface {
	Function

	// Kind names the function family, e.g. "Count".
	Kind() string
}

func nodeOperationID(name string) string {
	return "NodeOperation[" + name + "]"
}

// ExistsFunction reports whether a batch holds at least one value.
type ExistsFunction struct{}

func (ExistsFunction) Kind() string   { return "Exists" }
func (ExistsFunction) Name() string   { return "Exists" }
func (ExistsFunction) FuncID() string { return nodeOperationID("Exists") }

// NotExistsFunction reports whether a batch is empty.
type NotExistsFunction struct{}

func (NotExistsFunction) Kind() string   { return "NotExists" }
func (NotExistsFunction) Name() string   { return "NotExists" }
func (NotExistsFunction) FuncID() string { return nodeOperationID("NotExists") }

// FirstFunction keeps the first value of a batch and drops empty batches.
type FirstFunction struct{}

func (FirstFunction) Kind() string   { return "First" }
func (FirstFunction) Name() string   { return "First" }
func (FirstFunction) FuncID() string { return nodeOperationID("First") }

// CountFunction counts the values of a batch.
type CountFunction struct{}

func (CountFunction) Kind() string   { return "Count" }
func (CountFunction) Name() string   { return "Count" }
func (CountFunction) FuncID() string { return nodeOperationID("Count") }

// FirstOrDefaultFunction keeps the first value of a batch, or Default when
// the batch is empty.
type FirstOrDefaultFunction struct {
	Default any
}

func (FirstOrDefaultFunction) Kind() string { return "FirstOrDefault" }

func (f FirstOrDefaultFunction) Name() string {
	return fmt.Sprintf("FirstOrDefault(%v)", f.Default)
}

func (f FirstOrDefaultFunction) FuncID() string { return nodeOperationID(f.Name()) }

// Built-in node functions.
var (
	Exists    NodeFunction = ExistsFunction{}
	NotExists NodeFunction = NotExistsFunction{}
	First     NodeFunction = FirstFunction{}
	Count     NodeFunction = CountFunction{}
)

// FirstOrDefault returns the FirstOrDefault built-in for def.
func FirstOrDefault(def any) NodeFunction {
	return FirstOrDefaultFunction{Default: def}
}

// SameFunction reports whether a and b designate the same function.
//
//   - Node functions are equal when they have the same type and equal fields
//   - Identified functions are equal when their ids are equal
//   - Anonymous functions are only equal to themselves
func SameFunction(a, b Function) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if na, ok := a.(NodeFunction); ok {
		nb, ok := b.(NodeFunction)
		return ok && reflect.TypeOf(na) == reflect.TypeOf(nb) && reflect.DeepEqual(na, nb)
	}
	if reflect.TypeOf(a) != reflect.TypeOf(b) {
		return false
	}
	if id := a.FuncID(); id != "" {
		return id == b.FuncID()
	}
	return a == b
}

// IsNil reports whether v is nil or a nil pointer, map, slice, channel,
// function or interface.
func IsNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Pointer, reflect.Slice:
		return rv.IsNil()
	}
	return false
}
