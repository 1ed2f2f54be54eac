package ir

import "fmt"

// Droppable is the result of a function that may discard its input.
type Droppable[T any] struct {
	value T
	keep  bool
}

// Keep returns a Droppable holding v.
func Keep[T any](v T) Droppable[T] {
	return Droppable[T]{value: v, keep: true}
}

// Drop returns an empty Droppable.
func Drop[T any]() Droppable[T] {
	return Droppable[T]{}
}

// Get returns the kept value and whether there is one.
func (d Droppable[T]) Get() (T, bool) {
	return d.value, d.keep
}

// Kept reports whether d holds a value.
func (d Droppable[T]) Kept() bool {
	return d.keep
}

// Erase converts d into a Droppable[any].
func (d Droppable[T]) Erase() Droppable[any] {
	if !d.keep {
		return Drop[any]()
	}
	return Keep[any](d.value)
}

func (d Droppable[T]) String() string {
	if !d.keep {
		return "Drop"
	}
	return fmt.Sprintf("Keep(%v)", d.value)
}
