package nested

import (
	"time"

	tsengine "github.com/flowcore/tsengine"
	"github.com/flowcore/tsengine/graph"
	"github.com/flowcore/tsengine/signature"
	"github.com/flowcore/tsengine/ts"
	"golang.org/x/exp/slices"
)

// ReduceNode specialises map_ for the case where every sub-graph
// produces a scalar T, folding them with a user-supplied binary
// operation (§4.5.2). This implementation is the non-associative
// sequential-fold flavour: it recomputes the fold over all live keys,
// in a stable sort-by-key order, whenever any key's value changes.
// The associative reduction-tree flavour (O(log N) sub-graph creations
// per add/remove) is a further optimisation of the same observable
// result and is not implemented; see DESIGN.md.
type ReduceNode[K comparable, T any] struct {
	tsengine.BaseNode

	upstream *ts.TSD[K]
	in       *ts.TSDInput[K]
	op       func(a, b T) T
	zero     T
	less     func(a, b K) bool
	out      *ts.TS[T]
}

// NewReduceNode builds a reduce node folding upstream's live children
// with op starting from zero, in ascending order per less.
func NewReduceNode[K comparable, T any](id graph.NodeID, sig signature.NodeSignature, upstream *ts.TSD[K], op func(a, b T) T, zero T, less func(a, b K) bool) *ReduceNode[K, T] {
	return &ReduceNode[K, T]{
		BaseNode: tsengine.NewBaseNode(id, sig),
		upstream: upstream,
		in:       ts.NewTSDInput[K](upstream),
		op:       op,
		zero:     zero,
		less:     less,
		out:      ts.NewTS[T](),
	}
}

func (n *ReduceNode[K, T]) Output() ts.Container { return n.out }

func (n *ReduceNode[K, T]) Inputs() map[string]ts.GatedInput {
	return map[string]ts.GatedInput{"ts": n.in}
}

// Eval folds every live key's current value in ascending key order. It
// only ticks when at least one key was added, removed or modified this
// cycle, matching map_'s "no tick on an unrelated cycle" behavior.
func (n *ReduceNode[K, T]) Eval(at time.Time) error {
	if len(n.upstream.AddedItems()) == 0 && len(n.upstream.RemovedItems()) == 0 && len(n.upstream.ModifiedItems()) == 0 {
		return nil
	}

	keys := n.upstream.Keys()
	slices.SortFunc(keys, func(a, b K) bool { return n.less(a, b) })

	acc := n.zero
	for _, k := range keys {
		child := n.upstream.Child(k)
		val, ok := child.ValueAny().(T)
		if !ok {
			continue
		}
		acc = n.op(acc, val)
	}
	n.out.Tick(at, acc)
	return nil
}
