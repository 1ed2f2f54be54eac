// Package ir provides the intermediate representation of a query pipeline.
//
// A pipeline is a rooted DAG of nodes stored in an arena (Graph) and
// addressed by graph.ID. Each node carries an Op describing what it does
// with the values flowing through it; the set of Op kinds is closed and
// every consumer dispatches on Kind with an exhaustive switch.
//
// The IR is mutable. Rewrite passes (package transform) edit it through the
// edge primitives on Node, which keep both directions of every edge in sync
// and invalidate the derived properties (ancestors, dominators, HasSink)
// that depend on the edited edge.
//
// Key design constraints:
//   - Scope and Unscope reference each other through id sets, never through
//     owning pointers; Copy, ApplyTranslation and Delete keep both sides in sync
//   - Derived properties are memoized in explicit fields and reset eagerly
//   - Functions are compared by identity (see SameFunction), which is what
//     makes MergeEquivalentChildren sound
package ir
