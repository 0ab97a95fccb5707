// Package graph builds and validates the static dataflow graph a
// GraphExecutor runs (§4.2): a dense, monotonically node-id-ordered
// vector of nodes joined by typed edges. Node ids are assigned at
// build time in wiring order, and every edge must point from a lower
// id to a higher one — the engine relies on this so that evaluating
// nodes in ascending id order within a cycle always sees a producer
// evaluated before its consumers (§4.2, §5).
package graph

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/flowcore/tsengine/errs"
	"github.com/flowcore/tsengine/signature"
)

// NodeID identifies a node's position in a Graph's dense [0,N) id
// space. Ids are assigned in the order nodes are added to a
// GraphBuilder and never reused.
type NodeID int

// Edge connects one producer's output to one consumer's named input
// (§4.2). OutputPath is a dotted path into a TSB/TSD shaped output
// (empty for the whole output). InputPath names the consumer's input:
// the executor looks it up as a key of the consumer's Inputs() map to
// decide whether a tick wakes the consumer.
type Edge struct {
	Src        NodeID
	OutputPath string
	Dst        NodeID
	InputPath  string
}

// NodeBuilder is supplied by the builder package (or directly by a
// caller wiring a graph by hand): it carries enough information for
// Graph construction and diagnostics without the graph package needing
// to know how to actually construct a runtime node.
type NodeBuilder struct {
	Signature signature.NodeSignature
}

// GraphBuilder accumulates nodes and edges before Build validates and
// freezes them into a Graph.
type GraphBuilder struct {
	nodeBuilders []NodeBuilder
	edges        []Edge
}

// NewGraphBuilder returns an empty builder.
func NewGraphBuilder() *GraphBuilder {
	return &GraphBuilder{}
}

// AddNode registers nb and returns the NodeID it was assigned. Ids are
// handed out in call order starting at 0.
func (b *GraphBuilder) AddNode(nb NodeBuilder) NodeID {
	id := NodeID(len(b.nodeBuilders))
	b.nodeBuilders = append(b.nodeBuilders, nb)
	return id
}

// Connect records an edge from src's output to dst's input. Build will
// reject the edge if it violates the src < dst monotonicity invariant.
func (b *GraphBuilder) Connect(src NodeID, outputPath string, dst NodeID, inputPath string) {
	b.edges = append(b.edges, Edge{Src: src, OutputPath: outputPath, Dst: dst, InputPath: inputPath})
}

// Graph is the frozen, validated result of a GraphBuilder: a dense
// node vector plus its edge table, ready for a GraphExecutor to run.
type Graph struct {
	Nodes []NodeBuilder
	Edges []Edge

	outEdges map[NodeID][]Edge
	inEdges  map[NodeID][]Edge
}

// Build validates the accumulated nodes and edges and freezes them
// into a Graph. It rejects any edge referencing an out-of-range node
// id, any edge with Src >= Dst (the monotonicity invariant a wiring
// layer must maintain so that ascending node-id evaluation order is
// also a valid topological order), and any edge that would close a
// cycle when combined with the others.
func (b *GraphBuilder) Build() (*Graph, error) {
	n := len(b.nodeBuilders)
	for _, e := range b.edges {
		if int(e.Src) < 0 || int(e.Src) >= n || int(e.Dst) < 0 || int(e.Dst) >= n {
			return nil, errs.NewWiringError("", nil,
				fmt.Sprintf("edge references out-of-range node id: src=%d dst=%d node_count=%d", e.Src, e.Dst, n))
		}
		if e.Src >= e.Dst {
			return nil, errs.NewWiringError("", nil,
				fmt.Sprintf("edge violates node-id monotonicity: src=%d must be < dst=%d", e.Src, e.Dst))
		}
	}

	g := &Graph{
		Nodes:    append([]NodeBuilder(nil), b.nodeBuilders...),
		Edges:    append([]Edge(nil), b.edges...),
		outEdges: make(map[NodeID][]Edge, n),
		inEdges:  make(map[NodeID][]Edge, n),
	}
	for _, e := range g.Edges {
		g.outEdges[e.Src] = append(g.outEdges[e.Src], e)
		g.inEdges[e.Dst] = append(g.inEdges[e.Dst], e)
	}
	// src < dst on every edge already rules out cycles (a cycle would
	// need some edge with src >= dst), so no separate DFS cycle check
	// is needed here — unlike mesh's runtime cross-subgraph wiring,
	// which is not bound by this static ordering and does its own
	// three-colour DFS (see nested.MeshNode.topoOrder).
	return g, nil
}

// Len returns the number of nodes in the graph.
func (g *Graph) Len() int { return len(g.Nodes) }

// OutEdges returns the edges leaving node n, in the order they were
// connected.
func (g *Graph) OutEdges(n NodeID) []Edge { return g.outEdges[n] }

// InEdges returns the edges arriving at node n, in the order they were
// connected.
func (g *Graph) InEdges(n NodeID) []Edge { return g.inEdges[n] }

// Dot renders the graph as Graphviz dot source, one edge statement per
// Edge, node labels taken from each node's signature name.
func (g *Graph) Dot(name string) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "digraph %s {\n", name)
	for i, nb := range g.Nodes {
		fmt.Fprintf(&buf, "  n%d [label=%q];\n", i, nb.Signature.Name)
	}
	edges := append([]Edge(nil), g.Edges...)
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Src != edges[j].Src {
			return edges[i].Src < edges[j].Src
		}
		return edges[i].Dst < edges[j].Dst
	})
	for _, e := range edges {
		label := e.OutputPath
		if e.InputPath != "" {
			label += "->" + e.InputPath
		}
		if label == "" {
			fmt.Fprintf(&buf, "  n%d -> n%d;\n", e.Src, e.Dst)
		} else {
			fmt.Fprintf(&buf, "  n%d -> n%d [label=%q];\n", e.Src, e.Dst, label)
		}
	}
	buf.WriteString("}")
	return buf.Bytes()
}
