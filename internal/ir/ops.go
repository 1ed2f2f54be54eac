package ir

import (
	"reflect"
	"strings"
	"sync/atomic"
)

// Kind identifies the operation of a node.
type Kind int

const (
	KindRoot Kind = iota
	KindMap
	KindFilter
	KindFilterNonNull
	KindFilterType
	KindFlatMap
	KindCombine
	KindCombineDrop
	KindAggregate
	KindAggregateDrop
	KindUnion
	KindScope
	KindUnscope
	KindConsumer
)

var kindNames = [...]string{
	KindRoot:          "Root",
	KindMap:           "Map",
	KindFilter:        "Filter",
	KindFilterNonNull: "FilterNonNull",
	KindFilterType:    "FilterType",
	KindFlatMap:       "FlatMap",
	KindCombine:       "Combine",
	KindCombineDrop:   "CombineDrop",
	KindAggregate:     "Aggregate",
	KindAggregateDrop: "AggregateDrop",
	KindUnion:         "Union",
	KindScope:         "Scope",
	KindUnscope:       "Unscope",
	KindConsumer:      "Consumer",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "Kind(?)"
	}
	return kindNames[k]
}

// ScopeID identifies a scope. Copies of a Scope share its ScopeID.
type ScopeID int64

// RootScopeID is the implicit scope opened by the root for every input.
const RootScopeID ScopeID = -1

var lastScopeID atomic.Int64

// NextScopeID returns a fresh scope id. Scope ids start at 0.
func NextScopeID() ScopeID {
	return ScopeID(lastScopeID.Add(1) - 1)
}

// Op is the operation of a node. The set of ops is closed.
type Op interface {
	Kind() Kind
	String() string
	op()
}

// Root receives the input of a run.
type Root struct{}

// Map transforms every value.
type Map struct{ Fn *Lambda[MapFunc] }

// Filter keeps the values matching Pred.
type Filter struct{ Pred *Lambda[PredicateFunc] }

// FilterNonNull drops nil values.
type FilterNonNull struct{}

// FilterType keeps the values assignable to one of Types.
type FilterType struct{ Types []reflect.Type }

// FlatMap expands every value into a sequence. Fn is a *Lambda[FlatMapFunc]
// or a NodeFunction.
type FlatMap struct{ Fn Function }

// Combine pairs every value of its left parent with every value of its
// right parent that belongs to the same batch.
type Combine struct{ Fn *Lambda[CombineFunc] }

// CombineDrop is Combine with a function that may drop the pair.
type CombineDrop struct{ Fn *Lambda[CombineDropFunc] }

// Aggregate reduces a batch to one value. Fn is a *Lambda[AggregateFunc]
// or a NodeFunction.
type Aggregate struct{ Fn Function }

// AggregateDrop reduces a batch to at most one value. Fn is a
// *Lambda[AggregateDropFunc] or a NodeFunction.
type AggregateDrop struct{ Fn Function }

// Union forwards the values of both of its parents.
type Union struct{}

// Scope opens a batch for every value it forwards.
type Scope struct{ ID ScopeID }

// Unscope closes the batches opened by its scope starts.
type Unscope struct{}

// Consumer is a sink applying an effect to every value.
type Consumer struct {
	Name string
	Fn   ConsumerFunc
}

func (Root) Kind() Kind          { return KindRoot }
func (Map) Kind() Kind           { return KindMap }
func (Filter) Kind() Kind        { return KindFilter }
func (FilterNonNull) Kind() Kind { return KindFilterNonNull }
func (FilterType) Kind() Kind    { return KindFilterType }
func (FlatMap) Kind() Kind       { return KindFlatMap }
func (Combine) Kind() Kind       { return KindCombine }
func (CombineDrop) Kind() Kind   { return KindCombineDrop }
func (Aggregate) Kind() Kind     { return KindAggregate }
func (AggregateDrop) Kind() Kind { return KindAggregateDrop }
func (Union) Kind() Kind         { return KindUnion }
func (Scope) Kind() Kind         { return KindScope }
func (Unscope) Kind() Kind       { return KindUnscope }
func (Consumer) Kind() Kind      { return KindConsumer }

func (Root) op()          {}
func (Map) op()           {}
func (Filter) op()        {}
func (FilterNonNull) op() {}
func (FilterType) op()    {}
func (FlatMap) op()       {}
func (Combine) op()       {}
func (CombineDrop) op()   {}
func (Aggregate) op()     {}
func (AggregateDrop) op() {}
func (Union) op()         {}
func (Scope) op()         {}
func (Unscope) op()       {}
func (Consumer) op()      {}

func (Root) String() string            { return "Root" }
func (o Map) String() string           { return "Map(" + nameOf(o.Fn) + ")" }
func (o Filter) String() string        { return "Filter(" + nameOf(o.Pred) + ")" }
func (FilterNonNull) String() string   { return "FilterNonNull" }
func (o FlatMap) String() string       { return "FlatMap(" + nameOf(o.Fn) + ")" }
func (o Combine) String() string       { return "Combine(" + nameOf(o.Fn) + ")" }
func (o CombineDrop) String() string   { return "CombineDrop(" + nameOf(o.Fn) + ")" }
func (o Aggregate) String() string     { return "Aggregate(" + nameOf(o.Fn) + ")" }
func (o AggregateDrop) String() string { return "AggregateDrop(" + nameOf(o.Fn) + ")" }
func (Union) String() string           { return "Union" }
func (Scope) String() string           { return "Scope" }
func (Unscope) String() string         { return "Unscope" }
func (Consumer) String() string        { return "Consume" }

func (o FilterType) String() string {
	names := make([]string, len(o.Types))
	for i, t := range o.Types {
		names[i] = t.String()
	}
	return "FilterType(" + strings.Join(names, ", ") + ")"
}

// Matches reports whether v is assignable to one of the filtered types.
func (o FilterType) Matches(v any) bool {
	if v == nil {
		return false
	}
	vt := reflect.TypeOf(v)
	for _, t := range o.Types {
		if vt.AssignableTo(t) {
			return true
		}
	}
	return false
}

func sameTypes(a, b []reflect.Type) bool {
	if len(a) != len(b) {
		// Duplicates are removed at construction, so sets of different
		// sizes always differ.
		return false
	}
	for _, t := range a {
		found := false
		for _, u := range b {
			if t == u {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func nameOf(f Function) string {
	if IsNil(f) {
		return "nil"
	}
	return f.Name()
}

// FunctionOf returns the function carried by op, or nil.
func FunctionOf(op Op) Function {
	switch o := op.(type) {
	case Map:
		return nilSafe(o.Fn)
	case Filter:
		return nilSafe(o.Pred)
	case FlatMap:
		return o.Fn
	case Combine:
		return nilSafe(o.Fn)
	case CombineDrop:
		return nilSafe(o.Fn)
	case Aggregate:
		return o.Fn
	case AggregateDrop:
		return o.Fn
	}
	return nil
}

// nilSafe avoids wrapping a nil *Lambda into a non-nil Function.
func nilSafe[F any](l *Lambda[F]) Function {
	if l == nil {
		return nil
	}
	return l
}
