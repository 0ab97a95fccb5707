// Package builder is the engine's wiring-time input contract (§4.6): it
// turns a value-shape tag plus a scalar-kind tag into the concrete,
// generic ts.Container/ts.GatedInput pair a node needs, and turns a
// node-builder-kind tag plus its config into a runtime tsengine.Node,
// mirroring the teacher's ExecutingTask.createNode type-switch
// (task.go) but dispatching on builder-kind structs instead of
// *pipeline.Node types, since this engine's wiring input is a
// GraphBuilder rather than a pipeline.Pipeline.
//
// Go's generics are resolved at compile time, so a factory cannot
// instantiate an arbitrary ts.TS[T]/nested.MapNode[K, T] from a
// runtime-only type tag the way the source engine's dynamic dispatch
// does. TimeSeriesBuilderFactory and the node builders below therefore
// cover a fixed, explicit set of scalar kinds (bool, int, float,
// date/datetime, timedelta, string-as-object; not every shape accepts
// every kind) and key kinds (int, string) — the shapes a wiring
// layer's generated code would actually need for this corpus — and
// report a WiringError for anything outside that set, exactly as the
// §4.6 "missing builder" error does for an unsupported shape.
package builder
