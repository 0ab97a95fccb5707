package nested

import (
	"time"

	tsengine "github.com/flowcore/tsengine"
	"github.com/flowcore/tsengine/errs"
	"github.com/flowcore/tsengine/graph"
	"github.com/flowcore/tsengine/signature"
	"github.com/flowcore/tsengine/ts"
)

// TryExceptNode wraps a single SubGraph, intercepting any error its
// Eval returns and turning it into a structured errs.NodeError on the
// error output instead of propagating the error to the enclosing cycle
// (§4.5.5). A cycle in which the inner graph does not error passes the
// inner result through the primary output unchanged.
type TryExceptNode[T any] struct {
	tsengine.BaseNode

	inner SubGraph[T]
	in    *ts.TSInput[T]
	out   *ts.TS[T]
	errs  *ts.TS[*errs.NodeError]
}

// NewTryExceptNode wraps inner, reading ticks from value.
func NewTryExceptNode[T any](id graph.NodeID, sig signature.NodeSignature, value *ts.TS[T], inner SubGraph[T]) *TryExceptNode[T] {
	return &TryExceptNode[T]{
		BaseNode: tsengine.NewBaseNode(id, sig),
		inner:    inner,
		in:       ts.NewTSInput[T](value),
		out:      ts.NewTS[T](),
		errs:     ts.NewTS[*errs.NodeError](),
	}
}

// Output is the primary passthrough output.
func (n *TryExceptNode[T]) Output() ts.Container { return n.out }

// ErrorOutput is the structured error output (§4.5.5).
func (n *TryExceptNode[T]) ErrorOutput() ts.Container { return n.errs }

func (n *TryExceptNode[T]) Inputs() map[string]ts.GatedInput {
	return map[string]ts.GatedInput{"value": n.in}
}

func (n *TryExceptNode[T]) Eval(at time.Time) error {
	if !n.in.Modified(at) {
		return nil
	}
	out, err := n.inner.Eval(at, n.in.Value())
	if err != nil {
		n.errs.Tick(at, &errs.NodeError{
			Message:  err.Error(),
			NodePath: n.Signature().WiringPathName,
			Time:     at.UnixMicro(),
		})
		return nil
	}
	n.out.Tick(at, out)
	return nil
}

func (n *TryExceptNode[T]) Stop() error {
	if err := n.inner.Stop(); err != nil {
		return err
	}
	return n.BaseNode.Stop()
}

func (n *TryExceptNode[T]) Dispose() error {
	if err := n.inner.Dispose(); err != nil {
		return err
	}
	return n.BaseNode.Dispose()
}
