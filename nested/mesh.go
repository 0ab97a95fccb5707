package nested

import (
	"time"

	tsengine "github.com/flowcore/tsengine"
	"github.com/flowcore/tsengine/errs"
	"github.com/flowcore/tsengine/graph"
	"github.com/flowcore/tsengine/signature"
	"github.com/flowcore/tsengine/ts"
)

// MeshContext exposes already-evaluated sibling results to a mesh
// instance during a cycle, keyed by the shared context_path key.
type MeshContext[K comparable, T any] struct {
	results map[K]T
}

// Get looks up another instance's result for this cycle. It is only
// meaningful for keys that appear in the calling instance's DependsOn,
// since those are guaranteed to evaluate first.
func (c *MeshContext[K, T]) Get(key K) (T, bool) {
	v, ok := c.results[key]
	return v, ok
}

// MeshSubGraph is a SubGraph that can additionally declare, per cycle,
// which sibling keys in the same mesh it reads via the shared
// context_path (§4.5.4).
type MeshSubGraph[K comparable, T any] interface {
	// Eval evaluates this instance for the cycle, with ctx giving
	// access to sibling results already computed this cycle.
	Eval(at time.Time, in T, ctx *MeshContext[K, T]) (T, error)
	// DependsOn returns the sibling keys this instance subscribes to.
	// Called once right after the instance is constructed and again
	// after each Eval, to compute the evaluation order.
	DependsOn() []K
	Stop() error
	Dispose() error
}

// MeshNode instantiates one MeshSubGraph per key of a TSD[K] input,
// like map_, but orders each cycle's evaluation topologically by the
// dependency edges instances declare via DependsOn, so a subscriber
// always evaluates after the sibling it reads. A cycle among those
// edges is reported as an InvariantViolation and aborts the cycle.
type MeshNode[K comparable, T any] struct {
	tsengine.BaseNode

	upstream  *ts.TSD[K]
	in        *ts.TSDInput[K]
	factory   func(key K) MeshSubGraph[K, T]
	instances map[K]MeshSubGraph[K, T]
	deps      map[K][]K
	out       *ts.TSD[K]
}

// NewMeshNode builds a mesh node reading from upstream and constructing
// one MeshSubGraph per live key via factory.
func NewMeshNode[K comparable, T any](id graph.NodeID, sig signature.NodeSignature, upstream *ts.TSD[K], factory func(K) MeshSubGraph[K, T]) *MeshNode[K, T] {
	return &MeshNode[K, T]{
		BaseNode:  tsengine.NewBaseNode(id, sig),
		upstream:  upstream,
		in:        ts.NewTSDInput[K](upstream),
		factory:   factory,
		instances: make(map[K]MeshSubGraph[K, T]),
		deps:      make(map[K][]K),
		out:       ts.NewTSD[K](func() ts.Container { return ts.NewTS[T]() }),
	}
}

func (n *MeshNode[K, T]) Output() ts.Container { return n.out }

func (n *MeshNode[K, T]) Inputs() map[string]ts.GatedInput {
	return map[string]ts.GatedInput{"ts": n.in}
}

// Eval retires instances for keys removed this cycle, instantiates
// instances for keys whose child ticks for the first time, topologically
// orders the keys ticked this cycle by the dependency edges most
// recently declared (at construction or after the previous Eval), and
// drives each in that order so a subscriber sees its dependency's
// freshly computed result via MeshContext.
func (n *MeshNode[K, T]) Eval(at time.Time) error {
	for _, k := range n.upstream.RemovedItems() {
		if inst, ok := n.instances[k]; ok {
			if err := inst.Stop(); err != nil {
				return err
			}
			if err := inst.Dispose(); err != nil {
				return err
			}
			delete(n.instances, k)
			delete(n.deps, k)
		}
		n.out.RemoveKey(k)
	}

	modified := n.upstream.ModifiedItems()
	for _, k := range modified {
		if _, ok := n.instances[k]; ok {
			continue
		}
		inst := n.factory(k)
		n.instances[k] = inst
		// Record declared dependencies before the first Eval so the
		// very first cycle a subscriber and its dependency tick
		// together already orders correctly, not just from the
		// second cycle onward.
		n.deps[k] = inst.DependsOn()
	}

	order, err := n.topoOrder(modified)
	if err != nil {
		return err
	}

	ctx := &MeshContext[K, T]{results: make(map[K]T, len(modified))}
	for _, k := range order {
		child := n.upstream.Child(k)
		val, ok := child.ValueAny().(T)
		if !ok {
			continue
		}
		inst := n.instances[k]
		outVal, err := inst.Eval(at, val, ctx)
		if err != nil {
			return err
		}
		ctx.results[k] = outVal
		n.deps[k] = inst.DependsOn()

		outChild := n.out.EnsureKey(k).(*ts.TS[T])
		outChild.Tick(at, outVal)
	}

	n.out.Commit(at)
	return nil
}

// topoOrder returns keys in an order where each key follows every
// sibling it depends on (per the most recently declared edges), restricted
// to the set of keys ticking this cycle plus any dependency already
// instantiated. Returns an InvariantViolation if the edges form a
// cycle.
func (n *MeshNode[K, T]) topoOrder(keys []K) ([]K, error) {
	const (
		white = iota
		gray
		black
	)
	state := make(map[K]int, len(keys))
	order := make([]K, 0, len(keys))

	var visit func(k K) error
	visit = func(k K) error {
		switch state[k] {
		case black:
			return nil
		case gray:
			return errs.NewInvariantViolation("mesh: cycle detected in context_path dependency graph")
		}
		state[k] = gray
		for _, dep := range n.deps[k] {
			if _, live := n.instances[dep]; !live {
				continue
			}
			if err := visit(dep); err != nil {
				return err
			}
		}
		state[k] = black
		order = append(order, k)
		return nil
	}

	for _, k := range keys {
		if err := visit(k); err != nil {
			return nil, err
		}
	}
	return order, nil
}

func (n *MeshNode[K, T]) Stop() error {
	for _, inst := range n.instances {
		if err := inst.Stop(); err != nil {
			return err
		}
	}
	return n.BaseNode.Stop()
}

func (n *MeshNode[K, T]) Dispose() error {
	for k, inst := range n.instances {
		if err := inst.Dispose(); err != nil {
			return err
		}
		delete(n.instances, k)
	}
	return n.BaseNode.Dispose()
}
