package build

import (
	"sync"

	"github.com/sonarsource/astquery/internal/invariant"
	"github.com/sonarsource/astquery/internal/ir"
)

// Provider creates the runtime node for an IR node carrying a node function.
type Provider[N any] func(ctx *Context[N], n *ir.Node, fn ir.NodeFunction) N

// Key identifies a provider: an IR node kind and a node function kind.
type Key struct {
	Kind     ir.Kind
	Function string
}

// Registry maps (IR kind, node function kind) pairs to providers.
//
// Only FlatMap, Aggregate and AggregateDrop nodes can carry a node function,
// so only those kinds are looked up. Map, Filter, Combine and CombineDrop
// hold typed lambdas and always take the generic translation; registering a
// provider for any kind other than the three is an invariant violation.
//
// Registration is only allowed until the registry is used by a build; the
// registry is then sealed and every later Register call is an invariant
// violation.
type Registry[N any] struct {
	mu        sync.RWMutex
	providers map[Key]Provider[N]
	sealed    bool
}

// NewRegistry returns an empty registry.
func NewRegistry[N any]() *Registry[N] {
	return &Registry[N]{providers: make(map[Key]Provider[N])}
}

// Register installs p for IR nodes of kind carrying a node function of
// kind fnKind, replacing any previous provider for the same pair.
func (r *Registry[N]) Register(kind ir.Kind, fnKind string, p Provider[N]) {
	if !Dispatched(kind) {
		invariant.Fail(invariant.Newf(invariant.CodeMalformedNode,
			"cannot register %s/%s: %s nodes do not carry node functions", kind, fnKind, kind))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		invariant.Fail(invariant.Newf(invariant.CodeRegistrySealed,
			"cannot register %s/%s after the first build", kind, fnKind))
	}
	r.providers[Key{Kind: kind, Function: fnKind}] = p
}

// Dispatched reports whether nodes of kind are offered to the registry.
func Dispatched(kind ir.Kind) bool {
	switch kind {
	case ir.KindFlatMap, ir.KindAggregate, ir.KindAggregateDrop:
		return true
	}
	return false
}

// Lookup returns the provider registered for the exact pair.
func (r *Registry[N]) Lookup(kind ir.Kind, fnKind string) (Provider[N], bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[Key{Kind: kind, Function: fnKind}]
	return p, ok
}

// Has reports whether a provider is registered for the pair.
func (r *Registry[N]) Has(kind ir.Kind, fnKind string) bool {
	_, ok := r.Lookup(kind, fnKind)
	return ok
}

// Len returns the number of registered providers.
func (r *Registry[N]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.providers)
}

// Sealed reports whether the registry rejects registrations.
func (r *Registry[N]) Sealed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sealed
}

func (r *Registry[N]) seal() {
	r.mu.Lock()
	r.sealed = true
	r.mu.Unlock()
}
