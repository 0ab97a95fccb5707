/*
Package tsengine is a reactive time-series dataflow engine.

A user (or a wiring layer built on top of package builder) describes a
directed graph of typed nodes whose edges carry time-stamped values.
package graph builds and validates that graph; package ts provides the
typed value shapes flowing along its edges; package scheduler is the
event-time priority queue driving evaluation order; this package hosts
the Node lifecycle and the GraphExecutor that advances the graph
through logical time, in SIMULATION or REAL_TIME mode.

Code organization:

  - ts: typed time-series containers (TS, SIGNAL, TSL, TSB, TSS, TSD,
    REF, TSW) and their producer/consumer (Output/Input) halves.
  - signature: NodeSignature and its supporting enums.
  - graph: GraphBuilder/Graph, the static node+edge table.
  - scheduler: the (time, node_id) wake-up priority queue.
  - tsengine (this package): Node, GraphExecutor, LifeCycleObserver.
  - nested: the nested-graph node family (map_, reduce, switch_, mesh,
    try_except, component).
  - builder: dispatches a typed value shape to its concrete builder.
  - errs: the engine's error taxonomy.
*/
package tsengine
