package graph_test

import (
	"testing"

	"github.com/flowcore/tsengine/graph"
	"github.com/flowcore/tsengine/signature"
	"github.com/stretchr/testify/require"
)

func nb(name string) graph.NodeBuilder {
	return graph.NodeBuilder{Signature: signature.NodeSignature{Name: name}}
}

func TestBuildAssignsDenseAscendingIds(t *testing.T) {
	b := graph.NewGraphBuilder()
	a := b.AddNode(nb("source"))
	c := b.AddNode(nb("add_one"))
	b.Connect(a, "", c, "x")

	g, err := b.Build()
	require.NoError(t, err)
	require.Equal(t, 2, g.Len())
	require.Equal(t, graph.NodeID(0), a)
	require.Equal(t, graph.NodeID(1), c)
	require.Len(t, g.OutEdges(a), 1)
	require.Len(t, g.InEdges(c), 1)
}

func TestBuildRejectsBackwardEdge(t *testing.T) {
	b := graph.NewGraphBuilder()
	a := b.AddNode(nb("source"))
	c := b.AddNode(nb("sink"))
	b.Connect(c, "", a, "x") // dst < src: violates monotonicity

	_, err := b.Build()
	require.Error(t, err)
}

func TestBuildRejectsOutOfRangeNode(t *testing.T) {
	b := graph.NewGraphBuilder()
	a := b.AddNode(nb("source"))
	b.Connect(a, "", graph.NodeID(99), "x")

	_, err := b.Build()
	require.Error(t, err)
}

func TestDotRendersDeterministicEdgeOrder(t *testing.T) {
	b := graph.NewGraphBuilder()
	a := b.AddNode(nb("source"))
	c := b.AddNode(nb("add_one"))
	b.Connect(a, "out", c, "x")

	g, err := b.Build()
	require.NoError(t, err)

	dot := string(g.Dot("pipeline"))
	require.Contains(t, dot, "digraph pipeline {")
	require.Contains(t, dot, `n0 -> n1 [label="out->x"];`)
	require.Contains(t, dot, `n0 [label="source"];`)
}
