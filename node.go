package tsengine

import (
	"log"
	"time"

	"github.com/flowcore/tsengine/graph"
	"github.com/flowcore/tsengine/signature"
	"github.com/flowcore/tsengine/ts"
)

// State is a node's position in the lifecycle state machine of §3.5:
// constructed -> initialised -> started -> (evaluated)* -> stopped ->
// disposed. Transitions only ever move forward; Init/Start/Stop/
// Dispose are each called at most once by the owning GraphExecutor.
type State int

const (
	Constructed State = iota
	Initialised
	Started
	Stopped
	Disposed
)

func (s State) String() string {
	switch s {
	case Constructed:
		return "constructed"
	case Initialised:
		return "initialised"
	case Started:
		return "started"
	case Stopped:
		return "stopped"
	case Disposed:
		return "disposed"
	default:
		return "unknown"
	}
}

// Env is handed to Node.Init; it carries the injectable collaborators
// named by a node's signature.Injectables bitfield (§4.1): the
// scheduler a node uses for self-scheduled wake-ups, the executor
// itself (for PULL_SOURCE/PUSH_SOURCE nodes that need engine-wide
// context), and the run's logical clock.
type Env struct {
	Scheduler *Scheduler
	Engine    *GraphExecutor
	Clock     ClockReader
	// Logger is this node's own named logger, built by the executor
	// from its signature name, adapted from the teacher's
	// tm.LogService.NewLogger(...) call in node.init() (node.go).
	Logger *log.Logger
}

// ClockReader is the read-only view of the run's logical clock exposed
// to nodes; only the GraphExecutor itself is allowed to advance time.
type ClockReader interface {
	Now() time.Time
}

// Scheduler is the node-facing handle onto the engine's event-time
// queue (§4.3): a node calls Schedule to arrange its own future
// wake-up (e.g. a PULL_SOURCE's generator cadence, or a deadline a
// node wants to notice the absence of a tick by).
type Scheduler struct {
	id   graph.NodeID
	sink *scheduledSink
}

func (s *Scheduler) Schedule(at time.Time) { s.sink.schedule(s.id, at) }
func (s *Scheduler) Cancel()               { s.sink.cancel(s.id) }

// scheduledSink decouples node.go from the scheduler package's NodeID
// type (uint64) so Scheduler can expose graph.NodeID to node authors.
type scheduledSink struct {
	schedule func(graph.NodeID, time.Time)
	cancel   func(graph.NodeID)
}

// Node is the runtime contract every graph node implements. Concrete
// node kinds (scalar transforms, nested-graph nodes, user-registered
// native nodes) embed BaseNode for the id/signature/state bookkeeping
// and implement Eval themselves.
type Node interface {
	ID() graph.NodeID
	Signature() signature.NodeSignature
	State() State

	// Inputs returns every named input this node's signature declares,
	// so the executor can run the §4.2 valid/all_valid gating without
	// knowing the node's concrete input types.
	Inputs() map[string]ts.GatedInput

	// Output is the node's single output container, or nil for a SINK
	// node (§4.1), used by the executor to detect whether this node
	// produced a tick this cycle and so to propagate it downstream.
	Output() ts.Container

	Init(env *Env) error
	Start() error
	Eval(at time.Time) error
	Stop() error
	Dispose() error
}

// BaseNode implements the id/signature/state bookkeeping shared by
// every concrete node, adapted from the teacher's `node` struct
// (node.go) which embedded pipeline.Node for the same purpose. Embed
// it and implement Eval (and Inputs/Output) to satisfy Node.
type BaseNode struct {
	id    graph.NodeID
	sig   signature.NodeSignature
	state State
	Env   *Env
}

// NewBaseNode constructs the shared bookkeeping for a node with the
// given graph id and signature.
func NewBaseNode(id graph.NodeID, sig signature.NodeSignature) BaseNode {
	return BaseNode{id: id, sig: sig, state: Constructed}
}

func (b *BaseNode) ID() graph.NodeID               { return b.id }
func (b *BaseNode) Signature() signature.NodeSignature { return b.sig }
func (b *BaseNode) State() State                    { return b.state }

// Init stores env and transitions constructed -> initialised. Embedding
// types that need their own setup should call BaseNode.Init first,
// then perform their own work.
func (b *BaseNode) Init(env *Env) error {
	b.Env = env
	b.state = Initialised
	return nil
}

func (b *BaseNode) Start() error {
	b.state = Started
	return nil
}

func (b *BaseNode) Stop() error {
	b.state = Stopped
	return nil
}

func (b *BaseNode) Dispose() error {
	b.state = Disposed
	return nil
}
