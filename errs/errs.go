// Package errs defines the error taxonomy raised by the engine: wiring
// errors at build time, node evaluation failures, invariant violations,
// lifecycle failures, and push-queue-closed signals.
package errs

import "github.com/pkg/errors"

// WiringError is returned when a GraphBuilder cannot realise a value
// shape or an edge references a node/path that does not exist. It is
// always fatal at build time, before any node is started.
type WiringError struct {
	NodeName string
	Path     []uint64
	Reason   string
}

func (e *WiringError) Error() string {
	return errors.Errorf("wiring error on node %q path %v: %s", e.NodeName, e.Path, e.Reason).Error()
}

// NewWiringError wraps a reason into a WiringError for the named node.
func NewWiringError(nodeName string, path []uint64, reason string) error {
	return &WiringError{NodeName: nodeName, Path: path, Reason: reason}
}

// NodeError is the structured record produced on a try_except node's
// error output when an inner node's eval returns an error. A panic in
// the inner eval is not recovered.
type NodeError struct {
	Message   string
	Traceback string
	NodePath  string
	Time      int64 // microseconds since MIN_ST, see package clock
}

func (e *NodeError) Error() string {
	return e.Message
}

// InvariantViolation is raised when the engine detects a state the
// scheduler/evaluator guarantees should be impossible, e.g. a cycle
// discovered while ordering a mesh's sub-graphs. It is always fatal;
// the engine terminates the run after best-effort teardown.
type InvariantViolation struct {
	Reason string
}

func (e *InvariantViolation) Error() string {
	return "invariant violation: " + e.Reason
}

func NewInvariantViolation(reason string) error {
	return &InvariantViolation{Reason: reason}
}

// LifecycleError wraps a failure from a node's start/stop/dispose hook.
// The executor writes it to its own logger; no LifeCycleObserver
// callback receives it. The engine still attempts to complete teardown
// of the remaining nodes.
type LifecycleError struct {
	NodeName string
	Phase    string // "start", "stop", or "dispose"
	Cause    error
}

func (e *LifecycleError) Error() string {
	return errors.Wrapf(e.Cause, "%s failed for node %q", e.Phase, e.NodeName).Error()
}

func (e *LifecycleError) Unwrap() error { return e.Cause }

func NewLifecycleError(nodeName, phase string, cause error) error {
	return &LifecycleError{NodeName: nodeName, Phase: phase, Cause: cause}
}

// ErrPushQueueClosed is returned by a PUSH_SOURCE node's producer-facing
// enqueue method once the engine has begun shutdown. The source node
// transitions to stopped without delivering the message.
var ErrPushQueueClosed = errors.New("push queue closed")

// IsFatal reports whether err should terminate the enclosing engine run
// rather than merely abort the current node's evaluation.
func IsFatal(err error) bool {
	switch err.(type) {
	case *WiringError, *InvariantViolation:
		return true
	default:
		return false
	}
}
