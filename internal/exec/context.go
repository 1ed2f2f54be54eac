// Package exec holds the runtime contract shared by every executor: the
// per-run Context, typed state handles and metadata entries.
//
// Runtime nodes never hold mutable state. Everything a run mutates lives in
// the Context created for that run, so a compiled Executable can serve many
// runs concurrently as long as each run has its own Context.
package exec

import (
	"github.com/sonarsource/astquery/internal/invariant"
)

// Metadata maps entry tokens to the values generated for one input.
type Metadata map[any]any

// Context is the state of a single run.
//
// A Context is not safe for concurrent use; a run is single-threaded.
type Context struct {
	metadata Metadata
	state    map[any]any
}

// NewContext creates a Context over read-only metadata.
// The metadata map is not copied.
func NewContext(metadata Metadata) *Context {
	if metadata == nil {
		metadata = Metadata{}
	}
	return &Context{
		metadata: metadata,
		state:    make(map[any]any),
	}
}

// Entry is a typed token identifying one metadata value.
// Entries compare by identity.
type Entry[T any] struct {
	name string
}

// NewEntry creates a metadata entry token.
func NewEntry[T any](name string) *Entry[T] {
	return &Entry[T]{name: name}
}

// Name returns the entry display name.
func (e *Entry[T]) Name() string {
	return e.name
}

// Lookup returns the metadata value stored for entry.
func Lookup[T any](ctx *Context, entry *Entry[T]) (T, bool) {
	v, ok := ctx.metadata[entry]
	if !ok {
		var zero T
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}

// MustLookup is like Lookup but panics when the entry is missing.
func MustLookup[T any](ctx *Context, entry *Entry[T]) T {
	v, ok := Lookup(ctx, entry)
	if !ok {
		panic("exec: missing metadata entry " + entry.name)
	}
	return v
}

// Store is a typed handle over per-run state. A Store is created once, at
// build time, and the value it designates lives in each Context.
type Store[T any] struct {
	def func() T
}

// NewStore creates a Store whose absent values default to def().
func NewStore[T any](def func() T) *Store[T] {
	return &Store[T]{def: def}
}

// Has reports whether ctx holds a value for the store.
func (s *Store[T]) Has(ctx *Context) bool {
	_, ok := ctx.state[s]
	return ok
}

// Get returns the value held by ctx, initializing it with the default.
func (s *Store[T]) Get(ctx *Context) T {
	if v, ok := ctx.state[s]; ok {
		return v.(T)
	}
	v := s.def()
	ctx.state[s] = v
	return v
}

// Set replaces the value held by ctx.
func (s *Store[T]) Set(ctx *Context, value T) {
	ctx.state[s] = value
}

// Remove deletes and returns the value held by ctx. When nothing is held a
// fresh default is returned.
func (s *Store[T]) Remove(ctx *Context) T {
	v, ok := ctx.state[s]
	if !ok {
		return s.def()
	}
	delete(ctx.state, s)
	return v.(T)
}

// Executable is a compiled pipeline.
type Executable interface {
	// Execute pushes input through the graph within ctx.
	Execute(ctx *Context, input any)

	// Empty reports whether the graph has no sink, in which case Execute
	// has no observable effect.
	Empty() bool
}

// Run executes e and converts invariant violations into an error.
// Any other panic, including one raised by a consumer effect, propagates.
func Run(e Executable, ctx *Context, input any) (err error) {
	defer invariant.Recover(&err)
	e.Execute(ctx, input)
	return nil
}
