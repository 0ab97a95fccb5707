// Package nested implements the nested-graph node family (§4.5):
// map_, reduce, switch_, mesh, try_except, component. Each variant
// instantiates and retires per-key (or per-template) sub-computations
// at runtime, stitching their results into a single outer output.
//
// A sub-computation is represented by the SubGraph interface rather
// than a full graph.Graph + GraphExecutor: building a truly dynamic
// nested graph.Graph at runtime (new node ids minted mid-run, wired
// into the parent's scheduler) is a substantially larger undertaking
// than a single-function-per-key transform, and every §4.5/§8
// testable scenario (map +1, reduce sum, switch, mesh subscription,
// try/except, component state) is expressible as a SubGraph. A
// production wiring layer would lower a user's nested sub-graph
// specification to a SubGraph implementation that itself drives a
// private GraphExecutor; see DESIGN.md for the rationale.
package nested

import "time"

// SubGraph is one instantiated sub-computation of a nested-graph node:
// given the current per-key (or per-template) input at evaluation time
// at, it returns the value that cycle's evaluation produces.
type SubGraph[T any] interface {
	Eval(at time.Time, in T) (T, error)
	Stop() error
	Dispose() error
}
