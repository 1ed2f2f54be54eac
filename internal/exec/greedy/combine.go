package greedy

import (
	"github.com/sonarsource/astquery/internal/exec"
	"github.com/sonarsource/astquery/internal/graph"
)

// combineState is the per-run state of a join.
//
// Each side buffers the signals of the current common batch. A common
// batch is one opened by a scope both sides descend from; other batch ends
// are local to one side and are replayed into the output between the pairs
// they separate.
//
// When one side ends the current common batch first, the join moves to a
// pending state: the signals that side sends afterwards belong to the next
// batch and are held back until the other side ends the batch too. The two
// BatchEnds are then merged and the held-back signals are replayed into a
// fresh state.
type combineState struct {
	left, right []Signal
	pendingSide side
	pending     []Signal
}

func (s *combineState) buffer(sd side) []Signal {
	if sd == sideLeft {
		return s.left
	}
	return s.right
}

func (s *combineState) push(sd side, sig Signal) {
	if sd == sideLeft {
		s.left = append(s.left, sig)
	} else {
		s.right = append(s.right, sig)
	}
}

// CombineNode pairs every left value with every right value of the same
// batch.
type CombineNode struct {
	Base
	sides
	common ScopeSet
	fn     func(left, right any) (any, bool)
	name   string
	state  *exec.Store[*combineState]
}

func newCombineNode(base Base, s sides, common ScopeSet, name string, fn func(l, r any) (any, bool)) *CombineNode {
	return &CombineNode{
		Base:   base,
		sides:  s,
		common: common,
		fn:     fn,
		name:   name,
		state:  exec.NewStore(func() *combineState { return &combineState{} }),
	}
}

func (n *CombineNode) OnValue(ctx *exec.Context, caller graph.ID, v any) {
	n.value(ctx, n.state.Get(ctx), n.of(n.id, caller), v)
}

func (n *CombineNode) value(ctx *exec.Context, s *combineState, sd side, v any) {
	if s.pendingSide == sd {
		s.pending = append(s.pending, Value{V: v})
		return
	}
	for _, sig := range s.buffer(sd.other()) {
		switch sig := sig.(type) {
		case Value:
			n.emit(ctx, sd, v, sig.V)
		case BatchEnd:
			n.PropagateBatchEnd(ctx, sig)
		}
	}
	s.push(sd, Value{V: v})
}

func (n *CombineNode) emit(ctx *exec.Context, sd side, v, other any) {
	left, right := v, other
	if sd == sideRight {
		left, right = other, v
	}
	if out, ok := n.fn(left, right); ok {
		n.PropagateValue(ctx, out)
	}
}

// OnBatchEnd resets completion for every signal, since values of either
// side may follow.
func (n *CombineNode) OnBatchEnd(ctx *exec.Context, caller graph.ID, be BatchEnd) {
	n.MarkIncomplete(ctx)
	s := n.state.Get(ctx)
	n.state.Set(ctx, n.batchEnd(ctx, s, n.of(n.id, caller), be))
}

func (n *CombineNode) batchEnd(ctx *exec.Context, s *combineState, sd side, be BatchEnd) *combineState {
	switch {
	case s.pendingSide == sd:
		s.pending = append(s.pending, be)
		return s

	case !n.common.Has(be.Creator):
		if s.pendingSide == sideNone {
			s.push(sd, be)
			if len(s.buffer(sd.other())) == 0 {
				return s
			}
		}
		n.PropagateBatchEnd(ctx, be)
		return s

	case s.pendingSide == sideNone:
		if len(s.buffer(sd)) == 0 {
			// The other side's local batch ends were held back waiting for
			// a value of this side. None came, so they are released now.
			for _, sig := range s.buffer(sd.other()) {
				if end, ok := sig.(BatchEnd); ok {
					n.PropagateBatchEnd(ctx, end)
				}
			}
		}
		s.pendingSide = sd
		s.pending = []Signal{be}
		return s

	default:
		first := s.pending[0].(BatchEnd)
		n.PropagateBatchEnd(ctx, be.MergeWith(first))

		next := &combineState{}
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

func (n *CombineNode) String() string { return label(n.name, n.id) }
