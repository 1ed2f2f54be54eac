package greedy

import (
	"github.com/sonarsource/astquery/internal/exec"
	"github.com/sonarsource/astquery/internal/graph"
)

// unionState holds back the signals of the side that ended the current
// common batch first.
type unionState struct {
	pendingSide side
	pending     []Signal
}

// UnionNode forwards the values of both parents.
//
// A BatchEnd of a scope both parents descend from reaches the union twice.
// It is forwarded once, merged, when the second copy arrives; until then the
// side that sent the first copy is held back so that its values stay in the
// next batch.
type UnionNode struct {
	Base
	sides
	common ScopeSet
	state  *exec.Store[*unionState]
}

func newUnionNode(base Base, s sides, common ScopeSet) *UnionNode {
	return &UnionNode{
		Base:   base,
		sides:  s,
		common: common,
		state:  exec.NewStore(func() *unionState { return &unionState{} }),
	}
}

func (n *UnionNode) OnValue(ctx *exec.Context, caller graph.ID, v any) {
	n.value(ctx, n.state.Get(ctx), n.of(n.id, caller), v)
}

func (n *UnionNode) value(ctx *exec.Context, s *unionState, sd side, v any) {
	if s.pendingSide == sd {
		s.pending = append(s.pending, Value{V: v})
		return
	}
	n.PropagateValue(ctx, v)
}

func (n *UnionNode) OnBatchEnd(ctx *exec.Context, caller graph.ID, be BatchEnd) {
	s := n.state.Get(ctx)
	n.state.Set(ctx, n.batchEnd(ctx, s, n.of(n.id, caller), be))
}

func (n *UnionNode) batchEnd(ctx *exec.Context, s *unionState, sd side, be BatchEnd) *unionState {
	switch {
	case s.pendingSide == sd:
		s.pending = append(s.pending, be)
		return s

	case !n.common.Has(be.Creator):
		n.forward(ctx, be)
		return s

	case s.pendingSide == sideNone:
		s.pendingSide = sd
		s.pending = []Signal{be}
		return s

	default:
		first := s.pending[0].(BatchEnd)
		n.forward(ctx, be.MergeWith(first))

		next := &unionState{}
		held, from := s.pending[1:], s.pendingSide
		for _, sig := range held {
			switch sig := sig.(type) {
			case Value:
				n.value(ctx, next, from, sig.V)
			case BatchEnd:
				next = n.batchEnd(ctx, next, from, sig)
			}
		}
		return next
	}
}

func (n *UnionNode) forward(ctx *exec.Context, be BatchEnd) {
	if be.Active() {
		n.MarkIncomplete(ctx)
	}
	n.PropagateBatchEnd(ctx, be)
}

func (n *UnionNode) String() string { return label("Union", n.id) }
