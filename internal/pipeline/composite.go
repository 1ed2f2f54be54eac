package pipeline

import (
	"fmt"
	"slices"

	"github.com/sonarsource/astquery/internal/ir"
)

// Exclude drops the values of f contained in excluded.
func Exclude[T comparable](f Flow[T], excluded Flow[[]T]) Flow[T] {
	return CombineDrop(f, excluded, Named("exclusion", func(v T, out []T) ir.Droppable[T] {
		if slices.Contains(out, v) {
			return ir.Drop[T]()
		}
		return ir.Keep(v)
	}).Describe("Exclusion"))
}

// IfPresentUse forwards the values of other when cond holds a value in the
// same batch.
func IfPresentUse[A, B any](cond Flow[A], other Flow[B]) Flow[B] {
	return CombineDrop(other, Collect(cond), Named("ifPresentUse", func(v B, c []A) ir.Droppable[B] {
		if len(c) > 0 {
			return ir.Keep(v)
		}
		return ir.Drop[B]()
	}).Describe("IfPresentUse"))
}

// IfTrueUse forwards the values of other when cond is true.
func IfTrueUse[B any](cond Flow[bool], other Flow[B]) Flow[B] {
	return CombineDrop(other, cond, Named("ifTrueUse", func(v B, c bool) ir.Droppable[B] {
		if c {
			return ir.Keep(v)
		}
		return ir.Drop[B]()
	}).Describe("IfTrueUse"))
}

// Eq compares every value of f with the value of other.
func Eq[T comparable](f, other Flow[T]) Flow[bool] {
	return Combine(f, other, Named("equals", func(a, b T) bool { return a == b }).Describe("Equals"))
}

// EqConst compares every value of f with c.
func EqConst[T comparable](f Flow[T], c T) Flow[bool] {
	id := fmt.Sprintf("equals.constant(%T:%#v)", c, c)
	return Map(f, Named(id, func(v T) bool { return v == c }).Describe("Equals"))
}
