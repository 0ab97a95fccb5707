package tsengine_test

import (
	"testing"
	"time"

	tsengine "github.com/flowcore/tsengine"
	"github.com/flowcore/tsengine/graph"
	"github.com/flowcore/tsengine/signature"
	"github.com/flowcore/tsengine/ts"
	"github.com/stretchr/testify/require"
)

// intSource is a PUSH_SOURCE node of TS[int]: Receive commits the
// pushed value directly as the tick for the evaluation_time the
// executor already decided, so Eval itself is a no-op (§4.1).
type intSource struct {
	tsengine.BaseNode
	out *ts.TS[int]
}

func newIntSource(id graph.NodeID, name string) *intSource {
	sig := signature.NodeSignature{Name: name, NodeType: signature.PushSource, OutputSchema: "TS[int]"}
	return &intSource{BaseNode: tsengine.NewBaseNode(id, sig), out: ts.NewTS[int]()}
}

func (n *intSource) Inputs() map[string]ts.GatedInput { return nil }
func (n *intSource) Output() ts.Container             { return n.out }
func (n *intSource) Eval(at time.Time) error          { return nil }
func (n *intSource) Receive(at time.Time, payload any) error {
	n.out.Tick(at, payload.(int))
	return nil
}

// addOne is a COMPUTE node computing x+1 over an active, valid-required
// input (§8 scenario "Scalar add-one").
type addOne struct {
	tsengine.BaseNode
	in  *ts.TSInput[int]
	out *ts.TS[int]
}

func newAddOne(id graph.NodeID, src *intSource) *addOne {
	sig := signature.NodeSignature{
		Name:           "add_one",
		NodeType:       signature.Compute,
		InputSchema:    map[string]string{"x": "TS[int]"},
		OutputSchema:   "TS[int]",
		ActiveInputs:   map[string]bool{"x": true},
		ValidInputs:    map[string]bool{"x": true},
		AllValidInputs: map[string]bool{"x": true},
	}
	in := ts.NewTSInput[int](src.out)
	in.Active = true
	in.ValidRequired = true
	in.AllValidRequired = true
	return &addOne{BaseNode: tsengine.NewBaseNode(id, sig), in: in, out: ts.NewTS[int]()}
}

func (n *addOne) Inputs() map[string]ts.GatedInput {
	return map[string]ts.GatedInput{"x": n.in}
}
func (n *addOne) Output() ts.Container { return n.out }
func (n *addOne) Eval(at time.Time) error {
	n.out.Tick(at, n.in.Value()+1)
	return nil
}

// recordingSink is a SINK node with no output; it appends every
// observed input value to a slice, used by tests to assert the
// per-cycle tick trace.
type recordingSink struct {
	tsengine.BaseNode
	in   *ts.TSInput[int]
	Seen []int
}

func newRecordingSink(id graph.NodeID, src *addOne) *recordingSink {
	sig := signature.NodeSignature{
		Name:           "sink",
		NodeType:       signature.Sink,
		ActiveInputs:   map[string]bool{"x": true},
		ValidInputs:    map[string]bool{"x": true},
		AllValidInputs: map[string]bool{"x": true},
	}
	in := ts.NewTSInput[int](src.out)
	in.Active = true
	in.ValidRequired = true
	in.AllValidRequired = true
	return &recordingSink{BaseNode: tsengine.NewBaseNode(id, sig), in: in}
}

func (n *recordingSink) Inputs() map[string]ts.GatedInput {
	return map[string]ts.GatedInput{"x": n.in}
}
func (n *recordingSink) Output() ts.Container { return nil }
func (n *recordingSink) Eval(at time.Time) error {
	n.Seen = append(n.Seen, n.in.Value())
	return nil
}

func buildAddOneGraph() (*graph.Graph, *intSource, *addOne, *recordingSink, error) {
	gb := graph.NewGraphBuilder()
	srcID := gb.AddNode(graph.NodeBuilder{})
	addID := gb.AddNode(graph.NodeBuilder{})
	sinkID := gb.AddNode(graph.NodeBuilder{})

	src := newIntSource(srcID, "source")
	add := newAddOne(addID, src)
	sink := newRecordingSink(sinkID, add)

	gb.Connect(src.ID(), "", add.ID(), "x")
	gb.Connect(add.ID(), "", sink.ID(), "x")

	g, err := gb.Build()
	return g, src, add, sink, err
}

func TestScalarAddOneScenario(t *testing.T) {
	g, src, add, sink, err := buildAddOneGraph()
	require.NoError(t, err)

	eng, err := tsengine.NewGraphExecutor(g, []tsengine.Node{src, add, sink}, tsengine.REALTIME)
	require.NoError(t, err)

	runErr := make(chan error, 1)
	go func() { runErr <- eng.Run(time.Now().UTC(), time.Time{}) }()

	for i, v := range []int{1, 2, 3} {
		require.NoError(t, eng.Push(src.ID(), v))
		require.Eventually(t, func() bool { return len(sink.Seen) > i }, time.Second, time.Millisecond)
	}

	require.Equal(t, []int{2, 3, 4}, sink.Seen)
	require.Equal(t, int64(3), eng.Stats().Node(int(add.ID())).Emitted.Value())
	require.Greater(t, eng.TicksPerCycle(), 0.0)

	eng.RequestStop()
	require.NoError(t, <-runErr)
}

func TestGatingSkipsEvalUntilAllValidInputsReady(t *testing.T) {
	gb := graph.NewGraphBuilder()
	aID := gb.AddNode(graph.NodeBuilder{})
	bID := gb.AddNode(graph.NodeBuilder{})
	sumID := gb.AddNode(graph.NodeBuilder{})

	a := newIntSource(aID, "a")
	b := newIntSource(bID, "b")

	sig := signature.NodeSignature{
		Name:           "sum",
		NodeType:       signature.Compute,
		ActiveInputs:   map[string]bool{"a": true, "b": true},
		ValidInputs:    map[string]bool{"a": true, "b": true},
		AllValidInputs: map[string]bool{"a": true, "b": true},
	}
	inA := ts.NewTSInput[int](a.out)
	inA.Active, inA.ValidRequired, inA.AllValidRequired = true, true, true
	inB := ts.NewTSInput[int](b.out)
	inB.Active, inB.ValidRequired, inB.AllValidRequired = true, true, true

	sum := &sumNode{BaseNode: tsengine.NewBaseNode(sumID, sig), a: inA, b: inB, out: ts.NewTS[int]()}

	gb.Connect(a.ID(), "", sum.ID(), "a")
	gb.Connect(b.ID(), "", sum.ID(), "b")
	g, err := gb.Build()
	require.NoError(t, err)

	eng, err := tsengine.NewGraphExecutor(g, []tsengine.Node{a, b, sum}, tsengine.REALTIME)
	require.NoError(t, err)

	runErr := make(chan error, 1)
	go func() { runErr <- eng.Run(time.Now().UTC(), time.Time{}) }()

	require.NoError(t, eng.Push(a.ID(), 10))
	time.Sleep(20 * time.Millisecond)
	require.False(t, sum.Output().Valid(), "sum must not evaluate until b is also valid")

	require.NoError(t, eng.Push(b.ID(), 5))
	require.Eventually(t, func() bool { return sum.Output().Valid() }, time.Second, time.Millisecond)
	require.Equal(t, 15, sum.out.Value())

	eng.RequestStop()
	require.NoError(t, <-runErr)
}

type sumNode struct {
	tsengine.BaseNode
	a, b *ts.TSInput[int]
	out  *ts.TS[int]
}

func (n *sumNode) Inputs() map[string]ts.GatedInput {
	return map[string]ts.GatedInput{"a": n.a, "b": n.b}
}
func (n *sumNode) Output() ts.Container { return n.out }
func (n *sumNode) Eval(at time.Time) error {
	n.out.Tick(at, n.a.Value()+n.b.Value())
	return nil
}
