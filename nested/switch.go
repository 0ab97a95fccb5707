package nested

import (
	"time"

	tsengine "github.com/flowcore/tsengine"
	"github.com/flowcore/tsengine/errs"
	"github.com/flowcore/tsengine/graph"
	"github.com/flowcore/tsengine/signature"
	"github.com/flowcore/tsengine/ts"
)

// SwitchNode selects one of a finite set of pre-built sub-graph
// templates by a TS[K] key input (§4.5.3). On a key tick, if
// ReloadOnTicked is true or the new key differs from the current one,
// the prior sub-graph is stopped and disposed and the template for the
// new key is instantiated.
type SwitchNode[K comparable, T any] struct {
	tsengine.BaseNode

	key            *ts.TSInput[K]
	value          *ts.TSInput[T]
	templates      map[K]func() SubGraph[T]
	ReloadOnTicked bool

	current    SubGraph[T]
	currentKey K
	hasCurrent bool
	out        *ts.TS[T]
}

// NewSwitchNode builds a switch_ node: key selects a template from
// templates to drive value through.
func NewSwitchNode[K comparable, T any](id graph.NodeID, sig signature.NodeSignature, key *ts.TS[K], value *ts.TS[T], templates map[K]func() SubGraph[T]) *SwitchNode[K, T] {
	return &SwitchNode[K, T]{
		BaseNode:  tsengine.NewBaseNode(id, sig),
		key:       ts.NewTSInput[K](key),
		value:     ts.NewTSInput[T](value),
		templates: templates,
		out:       ts.NewTS[T](),
	}
}

func (n *SwitchNode[K, T]) Output() ts.Container { return n.out }

func (n *SwitchNode[K, T]) Inputs() map[string]ts.GatedInput {
	return map[string]ts.GatedInput{"key": n.key, "value": n.value}
}

func (n *SwitchNode[K, T]) Eval(at time.Time) error {
	if n.key.Modified(at) {
		k := n.key.Value()
		if n.ReloadOnTicked || !n.hasCurrent || k != n.currentKey {
			if n.hasCurrent {
				if err := n.current.Stop(); err != nil {
					return err
				}
				if err := n.current.Dispose(); err != nil {
					return err
				}
			}
			build, ok := n.templates[k]
			if !ok {
				return errs.NewInvariantViolation("switch_: no template registered for key")
			}
			n.current = build()
			n.currentKey = k
			n.hasCurrent = true
		}
	}
	if !n.hasCurrent || !n.value.Modified(at) {
		return nil
	}
	out, err := n.current.Eval(at, n.value.Value())
	if err != nil {
		return err
	}
	n.out.Tick(at, out)
	return nil
}

func (n *SwitchNode[K, T]) Stop() error {
	if n.hasCurrent {
		if err := n.current.Stop(); err != nil {
			return err
		}
	}
	return n.BaseNode.Stop()
}

func (n *SwitchNode[K, T]) Dispose() error {
	if n.hasCurrent {
		if err := n.current.Dispose(); err != nil {
			return err
		}
		n.hasCurrent = false
	}
	return n.BaseNode.Dispose()
}
