package nested

import (
	"time"

	tsengine "github.com/flowcore/tsengine"
	"github.com/flowcore/tsengine/graph"
	"github.com/flowcore/tsengine/signature"
	"github.com/flowcore/tsengine/ts"
)

// MapNode instantiates one SubGraph per key present in a TSD[K] input
// whose children publish T-shaped values, adding a sub-graph on key-add
// and disposing it on key-remove (§4.5.1). The outer output is a
// TSD[K] whose child outputs are each sub-graph's result.
type MapNode[K comparable, T any] struct {
	tsengine.BaseNode

	upstream  *ts.TSD[K]
	in        *ts.TSDInput[K]
	factory   func(key K) SubGraph[T]
	instances map[K]SubGraph[T]
	out       *ts.TSD[K]
}

// NewMapNode builds a map_ node reading from upstream and constructing
// one SubGraph per live key via factory.
func NewMapNode[K comparable, T any](id graph.NodeID, sig signature.NodeSignature, upstream *ts.TSD[K], factory func(K) SubGraph[T]) *MapNode[K, T] {
	return &MapNode[K, T]{
		BaseNode:  tsengine.NewBaseNode(id, sig),
		upstream:  upstream,
		in:        ts.NewTSDInput[K](upstream),
		factory:   factory,
		instances: make(map[K]SubGraph[T]),
		out:       ts.NewTSD[K](func() ts.Container { return ts.NewTS[T]() }),
	}
}

func (n *MapNode[K, T]) Output() ts.Container { return n.out }

func (n *MapNode[K, T]) Inputs() map[string]ts.GatedInput {
	return map[string]ts.GatedInput{"ts": n.in}
}

// Eval retires sub-graphs for keys removed this cycle, instantiates a
// key's sub-graph the first time its child ticks, drives every key
// whose child ticked this cycle through its sub-graph, and commits the
// outer TSD.
func (n *MapNode[K, T]) Eval(at time.Time) error {
	for _, k := range n.upstream.RemovedItems() {
		if inst, ok := n.instances[k]; ok {
			if err := inst.Stop(); err != nil {
				return err
			}
			if err := inst.Dispose(); err != nil {
				return err
			}
			delete(n.instances, k)
		}
		n.out.RemoveKey(k)
	}

	for _, k := range n.upstream.ModifiedItems() {
		child := n.upstream.Child(k)
		val, ok := child.ValueAny().(T)
		if !ok {
			continue
		}
		inst, ok := n.instances[k]
		if !ok {
			inst = n.factory(k)
			n.instances[k] = inst
		}
		outVal, err := inst.Eval(at, val)
		if err != nil {
			return err
		}
		outChild := n.out.EnsureKey(k).(*ts.TS[T])
		outChild.Tick(at, outVal)
	}

	n.out.Commit(at)
	return nil
}

func (n *MapNode[K, T]) Stop() error {
	for _, inst := range n.instances {
		if err := inst.Stop(); err != nil {
			return err
		}
	}
	return n.BaseNode.Stop()
}

func (n *MapNode[K, T]) Dispose() error {
	for k, inst := range n.instances {
		if err := inst.Dispose(); err != nil {
			return err
		}
		delete(n.instances, k)
	}
	return n.BaseNode.Dispose()
}
