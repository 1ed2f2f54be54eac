package pipeline

import (
	"sync"

	"github.com/sonarsource/astquery/internal/ir"
)

// Function is a user function with an optional identity.
//
// The erased form handed to the IR is created once per operation kind and
// reused, so an anonymous Function used twice still yields mergeable nodes.
type Function[F any] struct {
	id   string
	name string
	fn   F

	mu     sync.Mutex
	erased map[string]any
}

// Named wraps fn with a stable identity. Functions with equal ids are
// considered equal, so id must identify the behavior of fn.
func Named[F any](id string, fn F) *Function[F] {
	return &Function[F]{id: id, name: id, fn: fn}
}

// Func wraps fn without identity.
func Func[F any](fn F) *Function[F] {
	return &Function[F]{fn: fn}
}

// Describe sets the display name and returns f.
func (f *Function[F]) Describe(name string) *Function[F] {
	f.name = name
	return f
}

// ID returns the identity of f, or "" for an anonymous function.
func (f *Function[F]) ID() string { return f.id }

func erase[F, E any](f *Function[F], op string, wrap func(F) E) *ir.Lambda[E] {
	f.mu.Lock()
	defer f.mu.Unlock()
	if l, ok := f.erased[op]; ok {
		return l.(*ir.Lambda[E])
	}
	if f.erased == nil {
		f.erased = make(map[string]any)
	}
	l := ir.NewLambda(f.id, f.name, wrap(f.fn))
	f.erased[op] = l
	return l
}

// as converts an erased value back to T. A nil value converts to the zero
// value of T.
func as[T any](v any) T {
	if v == nil {
		var zero T
		return zero
	}
	return v.(T)
}

func asSlice[T any](vs []any) []T {
	out := make([]T, len(vs))
	for i, v := range vs {
		out[i] = as[T](v)
	}
	return out
}

func eraseDroppable[T any](d ir.Droppable[T]) ir.Droppable[any] {
	return d.Erase()
}
