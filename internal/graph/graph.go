// Package graph provides the structural node abstraction shared by the IR and
// the runtime graphs: identities, id sets and the traversals every pass relies on.
//
// The package has no execution semantics. A node only exposes its id, its
// ordered children and whether it is a sink (an externally observable effect).
package graph

import (
	"maps"
	"slices"
	"sync/atomic"
)

// ID identifies a node. IDs are unique for the lifetime of the process and
// assigned in increasing order.
type ID int64

var lastID atomic.Int64

// NextID returns a fresh node id.
func NextID() ID {
	return ID(lastID.Add(1))
}

// Node is implemented by every graph node type. N is the concrete node type,
// so traversals stay typed without conversions at the call site.
type Node[N any] interface {
	ID() ID
	Children() []N
	IsSink() bool
}

// IDSet is a set of node ids.
type IDSet map[ID]struct{}

// NewIDSet returns a set holding ids.
func NewIDSet(ids ...ID) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Add inserts id.
func (s IDSet) Add(id ID) {
	s[id] = struct{}{}
}

// Remove deletes id.
func (s IDSet) Remove(id ID) {
	delete(s, id)
}

// Has reports whether id is present.
func (s IDSet) Has(id ID) bool {
	_, ok := s[id]
	return ok
}

// Len returns the number of ids.
func (s IDSet) Len() int {
	return len(s)
}

// Clone returns an independent copy.
func (s IDSet) Clone() IDSet {
	return maps.Clone(s)
}

// Intersect returns the ids present in both sets.
func (s IDSet) Intersect(o IDSet) IDSet {
	small, big := s, o
	if len(big) < len(small) {
		small, big = big, small
	}
	out := make(IDSet, len(small))
	for id := range small {
		if big.Has(id) {
			out[id] = struct{}{}
		}
	}
	return out
}

// Union returns the ids present in either set.
func (s IDSet) Union(o IDSet) IDSet {
	out := make(IDSet, len(s)+len(o))
	for id := range s {
		out[id] = struct{}{}
	}
	for id := range o {
		out[id] = struct{}{}
	}
	return out
}

// Without returns s minus id.
func (s IDSet) Without(id ID) IDSet {
	out := s.Clone()
	delete(out, id)
	return out
}

// Equal reports whether both sets hold the same ids.
func (s IDSet) Equal(o IDSet) bool {
	if len(s) != len(o) {
		return false
	}
	for id := range s {
		if !o.Has(id) {
			return false
		}
	}
	return true
}

// Sorted returns the ids in ascending order.
func (s IDSet) Sorted() []ID {
	return slices.Sorted(maps.Keys(s))
}

// IDs returns the ids of nodes, preserving order.
func IDs[N Node[N]](nodes []N) []ID {
	out := make([]ID, len(nodes))
	for i, n := range nodes {
		out[i] = n.ID()
	}
	return out
}

// Sinks returns every sink reachable from start, in breadth-first order.
func Sinks[N Node[N]](start N) []N {
	var sinks []N
	for _, n := range BreadthFirst(start) {
		if n.IsSink() {
			sinks = append(sinks, n)
		}
	}
	return sinks
}
