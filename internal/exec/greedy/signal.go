package greedy

import (
	"fmt"
	"slices"

	"github.com/sonarsource/astquery/internal/invariant"
	"github.com/sonarsource/astquery/internal/ir"
)

// Signal is an element of the push stream between runtime nodes: a Value
// or a BatchEnd.
type Signal interface {
	isSignal()
}

// Value carries one value.
type Value struct {
	V any
}

// BatchEnd closes the batch opened by its creator scope.
//
// A BatchEnd travelling through a nested Scope is disabled by that scope:
// nodes inside the scope see it as inactive and keep their per-batch state.
// The matching Unscope enables it again. BatchEnd values are immutable.
type BatchEnd struct {
	// Creator is the scope whose batch ends.
	Creator ir.ScopeID

	disabledBy []ir.ScopeID // sorted
}

func (Value) isSignal()    {}
func (BatchEnd) isSignal() {}

// NewBatchEnd returns an active BatchEnd created by scope.
func NewBatchEnd(creator ir.ScopeID) BatchEnd {
	return BatchEnd{Creator: creator}
}

// DisabledBy returns a copy of b disabled by scope.
func (b BatchEnd) DisabledBy(scope ir.ScopeID) BatchEnd {
	i, found := slices.BinarySearch(b.disabledBy, scope)
	if found {
		return b
	}
	b.disabledBy = slices.Insert(slices.Clone(b.disabledBy), i, scope)
	return b
}

// EnabledBy returns a copy of b no longer disabled by any of scopes.
func (b BatchEnd) EnabledBy(scopes ScopeSet) BatchEnd {
	b.disabledBy = slices.DeleteFunc(slices.Clone(b.disabledBy), scopes.Has)
	return b
}

// MergeWith combines the BatchEnds received from both sides of a join.
// The result is disabled only by the scopes disabling both.
func (b BatchEnd) MergeWith(o BatchEnd) BatchEnd {
	if b.Creator != o.Creator {
		invariant.Fail(invariant.Newf(invariant.CodeCreatorMismatch,
			"cannot merge batch ends of scopes %d and %d", b.Creator, o.Creator))
	}
	var both []ir.ScopeID
	for _, s := range b.disabledBy {
		if _, found := slices.BinarySearch(o.disabledBy, s); found {
			both = append(both, s)
		}
	}
	b.disabledBy = both
	return b
}

// Active reports whether no scope disables b.
func (b BatchEnd) Active() bool {
	return len(b.disabledBy) == 0
}

// Disabled returns the scopes disabling b, sorted.
func (b BatchEnd) Disabled() []ir.ScopeID {
	return slices.Clone(b.disabledBy)
}

func (b BatchEnd) String() string {
	return fmt.Sprintf("BatchEnd(%d, %v)", b.Creator, b.disabledBy)
}

// ScopeSet is a set of scope ids.
type ScopeSet map[ir.ScopeID]struct{}

// NewScopeSet returns a set holding ids.
func NewScopeSet(ids ...ir.ScopeID) ScopeSet {
	s := make(ScopeSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Has reports whether id is in the set.
func (s ScopeSet) Has(id ir.ScopeID) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the ids in ascending order.
func (s ScopeSet) Sorted() []ir.ScopeID {
	out := make([]ir.ScopeID, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}
