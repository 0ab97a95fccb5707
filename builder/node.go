package builder

import (
	"time"

	tsengine "github.com/flowcore/tsengine"
	"github.com/flowcore/tsengine/errs"
	"github.com/flowcore/tsengine/graph"
	"github.com/flowcore/tsengine/nested"
	"github.com/flowcore/tsengine/signature"
	"github.com/flowcore/tsengine/ts"
)

// NodeBuilderSpec is the per-node-kind config a wiring layer attaches
// to a graph.NodeBuilder; BuildNode type-switches on the concrete spec,
// mirroring the teacher's ExecutingTask.createNode (task.go), which
// type-switches on *pipeline.Node to pick a constructor. node_type
// kinds not represented here (Python, PythonGenerator) are the source
// engine's arbitrary-user-code hosts; this engine instead hosts native
// Go closures directly via ComputeSpec/PullSpec, the idiomatic
// replacement for shipping a second-language interpreter into a Go
// binary.
type NodeBuilderSpec interface {
	isNodeBuilderSpec()
}

// ComputeSpec builds a COMPUTE node (the "Python" node kind in the
// source engine, native-hosted here) evaluating fn against a single
// scalar input each cycle it ticks.
type ComputeSpec[T any] struct {
	Signature signature.NodeSignature
	Input     *ts.TS[T]
	Fn        func(T) (T, error)
}

func (ComputeSpec[T]) isNodeBuilderSpec() {}

type computeNode[T any] struct {
	tsengine.BaseNode
	in  *ts.TSInput[T]
	fn  func(T) (T, error)
	out *ts.TS[T]
}

func (n *computeNode[T]) Output() ts.Container { return n.out }
func (n *computeNode[T]) Inputs() map[string]ts.GatedInput {
	return map[string]ts.GatedInput{"value": n.in}
}
func (n *computeNode[T]) Eval(at time.Time) error {
	if !n.in.Modified(at) {
		return nil
	}
	out, err := n.fn(n.in.Value())
	if err != nil {
		return err
	}
	n.out.Tick(at, out)
	return nil
}

// PullSpec builds a PULL_SOURCE node (the "PythonGenerator"/
// "LastValuePull" node kinds in the source engine) that produces a
// value whenever the engine schedules it, via Gen.
type PullSpec[T any] struct {
	Signature signature.NodeSignature
	Gen       func(at time.Time) (T, bool)
}

func (PullSpec[T]) isNodeBuilderSpec() {}

type pullNode[T any] struct {
	tsengine.BaseNode
	gen func(at time.Time) (T, bool)
	out *ts.TS[T]
}

func (n *pullNode[T]) Output() ts.Container             { return n.out }
func (n *pullNode[T]) Inputs() map[string]ts.GatedInput { return nil }
func (n *pullNode[T]) Eval(at time.Time) error {
	v, ok := n.gen(at)
	if !ok {
		return nil
	}
	n.out.Tick(at, v)
	return nil
}

// TsdMapSpec builds a map_ node (§4.5.1) over an int64-keyed TSD of
// int64 children — the concrete instantiation this builder package
// supports; see doc.go for why only a fixed key/value kind set is
// covered.
type TsdMapSpec struct {
	Signature signature.NodeSignature
	Upstream  *ts.TSD[int64]
	Factory   func(key int64) nested.SubGraph[int64]
}

func (TsdMapSpec) isNodeBuilderSpec() {}

// TsdNonAssociativeReduceSpec builds a reduce node (§4.5.2) over an
// int64-keyed TSD of int64 children, folding sequentially in ascending
// key order — the non-associative flavour (see nested.ReduceNode).
type TsdNonAssociativeReduceSpec struct {
	Signature signature.NodeSignature
	Upstream  *ts.TSD[int64]
	Op        func(a, b int64) int64
	Zero      int64
}

func (TsdNonAssociativeReduceSpec) isNodeBuilderSpec() {}

// SwitchSpec builds a switch_ node (§4.5.3) keyed by a bool template
// selector over an int64 value stream — the common case of a two-way
// branch used throughout §8's scenarios.
type SwitchSpec struct {
	Signature      signature.NodeSignature
	Key            *ts.TS[bool]
	Value          *ts.TS[int64]
	Templates      map[bool]func() nested.SubGraph[int64]
	ReloadOnTicked bool
}

func (SwitchSpec) isNodeBuilderSpec() {}

// MeshSpec builds a mesh node (§4.5.4) over a string-keyed TSD of
// int64 children.
type MeshSpec struct {
	Signature signature.NodeSignature
	Upstream  *ts.TSD[string]
	Factory   func(key string) nested.MeshSubGraph[string, int64]
}

func (MeshSpec) isNodeBuilderSpec() {}

// TryExceptSpec builds a try_except node (§4.5.5) wrapping inner.
type TryExceptSpec struct {
	Signature signature.NodeSignature
	Value     *ts.TS[int64]
	Inner     nested.SubGraph[int64]
}

func (TryExceptSpec) isNodeBuilderSpec() {}

// ComponentSpec builds a component node (§4.5.6) whose state persists
// in Store under Key.
type ComponentSpec struct {
	Signature signature.NodeSignature
	Value     *ts.TS[int64]
	Inner     nested.StatefulSubGraph[int64]
	Store     nested.StateStore
	Key       string
}

func (ComponentSpec) isNodeBuilderSpec() {}

// NativeSpec wraps an already-constructed node, for a caller that built
// its own tsengine.Node directly and just wants it slotted into the
// same BuildNode dispatch as every builder-kind spec (the "user
// registered native node" kind, §4.6).
type NativeSpec struct {
	Node tsengine.Node
}

func (NativeSpec) isNodeBuilderSpec() {}

// BuildNode dispatches spec to the matching constructor and returns the
// runtime node ready for GraphExecutor.
func BuildNode(id graph.NodeID, spec NodeBuilderSpec) (tsengine.Node, error) {
	switch s := spec.(type) {
	case ComputeSpec[int64]:
		return &computeNode[int64]{BaseNode: tsengine.NewBaseNode(id, s.Signature), in: ts.NewTSInput[int64](s.Input), fn: s.Fn, out: ts.NewTS[int64]()}, nil
	case ComputeSpec[float64]:
		return &computeNode[float64]{BaseNode: tsengine.NewBaseNode(id, s.Signature), in: ts.NewTSInput[float64](s.Input), fn: s.Fn, out: ts.NewTS[float64]()}, nil
	case ComputeSpec[bool]:
		return &computeNode[bool]{BaseNode: tsengine.NewBaseNode(id, s.Signature), in: ts.NewTSInput[bool](s.Input), fn: s.Fn, out: ts.NewTS[bool]()}, nil
	case PullSpec[int64]:
		return &pullNode[int64]{BaseNode: tsengine.NewBaseNode(id, s.Signature), gen: s.Gen, out: ts.NewTS[int64]()}, nil
	case PullSpec[float64]:
		return &pullNode[float64]{BaseNode: tsengine.NewBaseNode(id, s.Signature), gen: s.Gen, out: ts.NewTS[float64]()}, nil
	case TsdMapSpec:
		return nested.NewMapNode[int64, int64](id, s.Signature, s.Upstream, s.Factory), nil
	case TsdNonAssociativeReduceSpec:
		return nested.NewReduceNode[int64, int64](id, s.Signature, s.Upstream, s.Op, s.Zero, func(a, b int64) bool { return a < b }), nil
	case SwitchSpec:
		n := nested.NewSwitchNode[bool, int64](id, s.Signature, s.Key, s.Value, s.Templates)
		n.ReloadOnTicked = s.ReloadOnTicked
		return n, nil
	case MeshSpec:
		return nested.NewMeshNode[string, int64](id, s.Signature, s.Upstream, s.Factory), nil
	case TryExceptSpec:
		return nested.NewTryExceptNode[int64](id, s.Signature, s.Value, s.Inner), nil
	case ComponentSpec:
		return nested.NewComponentNode[int64](id, s.Signature, s.Value, s.Inner, s.Store, s.Key), nil
	case NativeSpec:
		return s.Node, nil
	default:
		return nil, errs.NewWiringError("", nil, "no node builder registered for this builder-kind spec")
	}
}
