package builder

import (
	"testing"
	"time"

	"github.com/flowcore/tsengine/nested"
	"github.com/flowcore/tsengine/signature"
	"github.com/flowcore/tsengine/ts"
	"github.com/stretchr/testify/require"
)

func TestTimeSeriesBuilderFactoryScalarRoundTrip(t *testing.T) {
	f := NewTimeSeriesBuilderFactory()

	out, err := f.BuildScalarOutput(KindInt)
	require.NoError(t, err)
	src, ok := out.(*ts.TS[int64])
	require.True(t, ok)

	in, err := f.BuildScalarInput(KindInt, out)
	require.NoError(t, err)

	at := time.Date(2024, 1, 1, 0, 0, 1, 0, time.UTC)
	src.Tick(at, 42)
	require.True(t, in.Modified(at))
	require.Equal(t, int64(42), in.ValueAny().(int64))
}

func TestTimeSeriesBuilderFactoryRejectsUnknownKind(t *testing.T) {
	f := NewTimeSeriesBuilderFactory()
	_, err := f.BuildTSSOutput(ScalarKind("unknown"), "x")
	require.Error(t, err)
}

func TestTimeSeriesBuilderFactoryRejectsMismatchedSource(t *testing.T) {
	f := NewTimeSeriesBuilderFactory()
	boolOut, err := f.BuildScalarOutput(KindBool)
	require.NoError(t, err)
	_, err = f.BuildScalarInput(KindInt, boolOut)
	require.Error(t, err)
}

func TestNewSetDeltaStructuralEquality(t *testing.T) {
	a, err := NewSetDelta(KindInt, "widget", []any{int64(1), int64(2)}, nil)
	require.NoError(t, err)
	b, err := NewSetDelta(KindInt, "widget", []any{int64(2), int64(1)}, nil)
	require.NoError(t, err)
	require.True(t, a.(ts.SetDelta[int64]).Equal(b.(ts.SetDelta[int64])))
}

func TestNewSetDeltaObjectKindIsStringBacked(t *testing.T) {
	d, err := NewSetDelta(KindObject, "widget", []any{"a", "b"}, nil)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"a", "b"}, d.(ts.SetDelta[string]).Added)
}

func TestNewSetDeltaRejectsMismatchedElementType(t *testing.T) {
	_, err := NewSetDelta(KindBool, "x", []any{"not-a-bool"}, nil)
	require.Error(t, err)
}

func TestBuildNodeComputeSpec(t *testing.T) {
	in := ts.NewTS[int64]()
	spec := ComputeSpec[int64]{
		Signature: signature.NodeSignature{Name: "add_one"},
		Input:     in,
		Fn:        func(v int64) (int64, error) { return v + 1, nil },
	}
	n, err := BuildNode(0, spec)
	require.NoError(t, err)

	at := time.Date(2024, 1, 1, 0, 0, 1, 0, time.UTC)
	in.Tick(at, 1)
	require.NoError(t, n.Eval(at))
	require.Equal(t, int64(2), n.Output().ValueAny().(int64))
}

type addOneMesh struct{}

func (addOneMesh) Eval(at time.Time, in int64, ctx *nested.MeshContext[string, int64]) (int64, error) {
	return in + 1, nil
}
func (addOneMesh) DependsOn() []string { return nil }
func (addOneMesh) Stop() error         { return nil }
func (addOneMesh) Dispose() error      { return nil }

func TestBuildNodeTsdNonAssociativeReduceSpec(t *testing.T) {
	upstream := ts.NewTSD[int64](func() ts.Container { return ts.NewTS[int64]() })
	spec := TsdNonAssociativeReduceSpec{
		Signature: signature.NodeSignature{Name: "sum"},
		Upstream:  upstream,
		Op:        func(a, b int64) int64 { return a + b },
		Zero:      0,
	}
	n, err := BuildNode(0, spec)
	require.NoError(t, err)

	at := time.Date(2024, 1, 1, 0, 0, 1, 0, time.UTC)
	upstream.EnsureKey(1).(*ts.TS[int64]).Tick(at, 3)
	upstream.EnsureKey(2).(*ts.TS[int64]).Tick(at, 4)
	upstream.Commit(at)
	require.NoError(t, n.Eval(at))
	require.Equal(t, int64(7), n.Output().ValueAny().(int64))
}

type plusOneSub struct{}

func (plusOneSub) Eval(at time.Time, in int64) (int64, error) { return in + 1, nil }
func (plusOneSub) Stop() error                                { return nil }
func (plusOneSub) Dispose() error                             { return nil }

type minusOneSub struct{}

func (minusOneSub) Eval(at time.Time, in int64) (int64, error) { return in - 1, nil }
func (minusOneSub) Stop() error                                { return nil }
func (minusOneSub) Dispose() error                             { return nil }

func TestBuildNodeSwitchSpec(t *testing.T) {
	key := ts.NewTS[bool]()
	value := ts.NewTS[int64]()
	spec := SwitchSpec{
		Signature: signature.NodeSignature{Name: "switch_plus_minus"},
		Key:       key,
		Value:     value,
		Templates: map[bool]func() nested.SubGraph[int64]{
			true:  func() nested.SubGraph[int64] { return plusOneSub{} },
			false: func() nested.SubGraph[int64] { return minusOneSub{} },
		},
	}
	n, err := BuildNode(0, spec)
	require.NoError(t, err)

	at := time.Date(2024, 1, 1, 0, 0, 1, 0, time.UTC)
	key.Tick(at, true)
	value.Tick(at, 1)
	require.NoError(t, n.Eval(at))
	require.Equal(t, int64(2), n.Output().ValueAny().(int64))
}

func TestBuildNodeMeshSpec(t *testing.T) {
	upstream := ts.NewTSD[string](func() ts.Container { return ts.NewTS[int64]() })
	spec := MeshSpec{
		Signature: signature.NodeSignature{Name: "mesh"},
		Upstream:  upstream,
		Factory:   func(string) nested.MeshSubGraph[string, int64] { return addOneMesh{} },
	}
	n, err := BuildNode(0, spec)
	require.NoError(t, err)

	at := time.Date(2024, 1, 1, 0, 0, 1, 0, time.UTC)
	upstream.EnsureKey("a").(*ts.TS[int64]).Tick(at, 1)
	upstream.Commit(at)
	require.NoError(t, n.Eval(at))
	out := n.Output().ValueAny().(map[string]any)
	require.Equal(t, int64(2), out["a"])
}
