package pipeline

import (
	"iter"
	"reflect"

	"github.com/sonarsource/astquery/internal/exec"
	"github.com/sonarsource/astquery/internal/ir"
)

// Map applies fn to every value.
func Map[A, B any](f Flow[A], fn *Function[func(A) B]) Flow[B] {
	l := erase(fn, "map", func(g func(A) B) ir.MapFunc {
		return func(v any) any { return g(as[A](v)) }
	})
	return flow[B](ir.NewMap(f.node, l), f.card)
}

// MapNonNull applies fn and drops nil results.
func MapNonNull[A, B any](f Flow[A], fn *Function[func(A) B]) Flow[B] {
	return FilterNonNull(Map(f, fn))
}

// Filter keeps the values matching pred.
func Filter[A any](f Flow[A], pred *Function[func(A) bool]) Flow[A] {
	l := erase(pred, "filter", func(g func(A) bool) ir.PredicateFunc {
		return func(v any) bool { return g(as[A](v)) }
	})
	return flow[A](ir.NewFilter(f.node, l), f.card.filtered())
}

// FilterNonNull drops nil values.
func FilterNonNull[A any](f Flow[A]) Flow[A] {
	return flow[A](ir.NewFilterNonNull(f.node), f.card.filtered())
}

// FilterType keeps the values of type B.
func FilterType[B, A any](f Flow[A]) Flow[B] {
	return flow[B](ir.NewFilterType(f.node, reflect.TypeFor[B]()), f.card.filtered())
}

// FlatMap expands every value into the values of a sequence.
func FlatMap[A, B any](f Flow[A], fn *Function[func(A) iter.Seq[B]]) Flow[B] {
	l := erase(fn, "flatMap", func(g func(A) iter.Seq[B]) ir.FlatMapFunc {
		return func(v any) iter.Seq[any] {
			return func(yield func(any) bool) {
				for b := range g(as[A](v)) {
					if !yield(b) {
						return
					}
				}
			}
		}
	})
	return flow[B](ir.NewFlatMap(f.node, l), Many)
}

// Flatten emits the elements of every slice.
func Flatten[T any](f Flow[[]T]) Flow[T] {
	l := ir.NewLambda[ir.FlatMapFunc]("flatten", "Flatten", func(v any) iter.Seq[any] {
		return func(yield func(any) bool) {
			for _, t := range as[[]T](v) {
				if !yield(t) {
					return
				}
			}
		}
	})
	return flow[T](ir.NewFlatMap(f.node, l), Many)
}

// Aggregate reduces the values of every batch.
func Aggregate[A, B any](f Flow[A], fn *Function[func([]A) B]) Flow[B] {
	l := erase(fn, "aggregate", func(g func([]A) B) ir.AggregateFunc {
		return func(vs []any) any { return g(asSlice[A](vs)) }
	})
	return flow[B](ir.NewAggregate(f.node, l), Single)
}

// AggregateDrop reduces the values of every batch to at most one value.
func AggregateDrop[A, B any](f Flow[A], fn *Function[func([]A) ir.Droppable[B]]) Flow[B] {
	l := erase(fn, "aggregateDrop", func(g func([]A) ir.Droppable[B]) ir.AggregateDropFunc {
		return func(vs []any) ir.Droppable[any] { return eraseDroppable(g(asSlice[A](vs))) }
	})
	return flow[B](ir.NewAggregateDrop(f.node, l), Optional)
}

func collectAs[T any](f Flow[T], name string) Flow[[]T] {
	l := ir.NewLambda[ir.AggregateFunc]("identity", name, func(vs []any) any { return asSlice[T](vs) })
	return flow[[]T](ir.NewAggregate(f.node, l), Single)
}

// Collect gathers the values of every batch into a slice.
func Collect[T any](f Flow[T]) Flow[[]T] {
	return collectAs(f, "Aggregate")
}

// ToSingle turns f into a single-valued flow of slices.
func ToSingle[T any](f Flow[T]) Flow[[]T] {
	return collectAs(f, "toSingle")
}

// Count counts the values of every batch.
func Count[T any](f Flow[T]) Flow[int] {
	return flow[int](ir.NewAggregate(f.node, ir.Count), Single)
}

// Exists reports whether a batch holds a value.
func Exists[T any](f Flow[T]) Flow[bool] {
	return flow[bool](ir.NewAggregate(f.node, ir.Exists), Single)
}

// NoneExists reports whether a batch is empty.
func NoneExists[T any](f Flow[T]) Flow[bool] {
	return flow[bool](ir.NewAggregate(f.node, ir.NotExists), Single)
}

// First keeps the first value of every batch.
func First[T any](f Flow[T]) Flow[T] {
	return flow[T](ir.NewAggregateDrop(f.node, ir.First), Optional)
}

// OrElse keeps the first value of every batch, or def for an empty batch.
func OrElse[T any](f Flow[T], def T) Flow[T] {
	return flow[T](ir.NewAggregate(f.node, ir.FirstOrDefault(def)), Single)
}

// FirstOrNull keeps the first value of every batch, or nil for an empty
// batch. Typed consumers see the zero value of T.
func FirstOrNull[T any](f Flow[T]) Flow[T] {
	return flow[T](ir.NewAggregate(f.node, ir.FirstOrDefault(nil)), Single)
}

// Consume applies effect to every value. Consumers are the only sinks: a
// pipeline without one is removed when the graph is built.
func Consume[T any](f Flow[T], name string, effect func(ctx *exec.Context, v T)) {
	ir.NewConsumer(f.node, name, func(ctx *exec.Context, v any) { effect(ctx, as[T](v)) })
}
