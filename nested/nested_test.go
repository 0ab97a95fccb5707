package nested

import (
	"errors"
	"testing"
	"time"

	"github.com/flowcore/tsengine/signature"
	"github.com/flowcore/tsengine/ts"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

var errAlways = errors.New("sub-graph failure")

func tAt(n int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, n, 0, time.UTC)
}

type addOneSub struct{ n int }

func (s *addOneSub) Eval(at time.Time, in int) (int, error) { return in + 1, nil }
func (s *addOneSub) Stop() error                            { return nil }
func (s *addOneSub) Dispose() error                         { return nil }

func TestMapNodeAddOne(t *testing.T) {
	upstream := ts.NewTSD[int](func() ts.Container { return ts.NewTS[int]() })
	sig := signature.NodeSignature{Name: "map_add_one"}
	m := NewMapNode[int, int](0, sig, upstream, func(int) SubGraph[int] { return &addOneSub{} })

	t1 := tAt(1)
	upstream.EnsureKey(1).(*ts.TS[int]).Tick(t1, 1)
	upstream.Commit(t1)
	require.NoError(t, m.Eval(t1))
	require.True(t, m.Output().Modified(t1))
	out1 := m.Output().ValueAny().(map[int]any)
	require.Equal(t, 2, out1[1])

	t2 := tAt(2)
	upstream.EnsureKey(2).(*ts.TS[int]).Tick(t2, 2)
	upstream.Commit(t2)
	require.NoError(t, m.Eval(t2))
	out2 := m.Output().ValueAny().(map[int]any)
	if diff := cmp.Diff(map[int]any{1: 2, 2: 3}, out2); diff != "" {
		t.Fatalf("map snapshot mismatch (-want +got):\n%s", diff)
	}

	t3 := tAt(3)
	upstream.Commit(t3) // nothing added/removed/modified
	require.NoError(t, m.Eval(t3))
	require.False(t, m.Output().Modified(t3))

	t4 := tAt(4)
	upstream.Child(1).(*ts.TS[int]).Tick(t4, 3)
	upstream.Commit(t4)
	require.NoError(t, m.Eval(t4))
	out4 := m.Output().ValueAny().(map[int]any)
	require.Equal(t, 4, out4[1])
	require.Equal(t, 3, out4[2])

	require.NoError(t, m.Stop())
	require.NoError(t, m.Dispose())
}

func TestReduceNodeSum(t *testing.T) {
	upstream := ts.NewTSD[int](func() ts.Container { return ts.NewTS[int]() })
	sig := signature.NodeSignature{Name: "reduce_sum"}
	sum := func(a, b int) int { return a + b }
	less := func(a, b int) bool { return a < b }
	r := NewReduceNode[int, int](0, sig, upstream, sum, 0, less)

	t1 := tAt(1)
	upstream.EnsureKey(1).(*ts.TS[int]).Tick(t1, 1)
	upstream.Commit(t1)
	require.NoError(t, r.Eval(t1))
	require.True(t, r.Output().Modified(t1))
	require.Equal(t, 1, r.Output().ValueAny().(int))

	t2 := tAt(2)
	upstream.EnsureKey(2).(*ts.TS[int]).Tick(t2, 2)
	upstream.Commit(t2)
	require.NoError(t, r.Eval(t2))
	require.Equal(t, 3, r.Output().ValueAny().(int))

	t3 := tAt(3)
	upstream.Commit(t3)
	require.NoError(t, r.Eval(t3))
	require.False(t, r.Output().Modified(t3))

	t4 := tAt(4)
	upstream.Child(1).(*ts.TS[int]).Tick(t4, 3)
	upstream.Commit(t4)
	require.NoError(t, r.Eval(t4))
	require.Equal(t, 5, r.Output().ValueAny().(int))
}

func TestSwitchNodeSelectsTemplateByKey(t *testing.T) {
	key := ts.NewTS[bool]()
	value := ts.NewTS[int]()
	sig := signature.NodeSignature{Name: "switch_plus_minus"}
	templates := map[bool]func() SubGraph[int]{
		true:  func() SubGraph[int] { return &deltaSub{delta: 1} },
		false: func() SubGraph[int] { return &deltaSub{delta: -1} },
	}
	s := NewSwitchNode[bool, int](0, sig, key, value, templates)

	t1 := tAt(1)
	key.Tick(t1, true)
	value.Tick(t1, 1)
	require.NoError(t, s.Eval(t1))
	require.Equal(t, 2, s.Output().ValueAny().(int))

	t2 := tAt(2)
	value.Tick(t2, 2)
	require.NoError(t, s.Eval(t2))
	require.Equal(t, 3, s.Output().ValueAny().(int))

	t3 := tAt(3)
	key.Tick(t3, false)
	value.Tick(t3, 3)
	require.NoError(t, s.Eval(t3))
	require.Equal(t, 2, s.Output().ValueAny().(int))

	t4 := tAt(4)
	value.Tick(t4, 4)
	require.NoError(t, s.Eval(t4))
	require.Equal(t, 3, s.Output().ValueAny().(int))
}

type deltaSub struct{ delta int }

func (s *deltaSub) Eval(at time.Time, in int) (int, error) { return in + s.delta, nil }
func (s *deltaSub) Stop() error                            { return nil }
func (s *deltaSub) Dispose() error                         { return nil }

type failingSub struct{}

func (s *failingSub) Eval(at time.Time, in int) (int, error) {
	return 0, errAlways
}
func (s *failingSub) Stop() error    { return nil }
func (s *failingSub) Dispose() error { return nil }

func TestTryExceptNodeCapturesError(t *testing.T) {
	value := ts.NewTS[int]()
	sig := signature.NodeSignature{Name: "try_except", WiringPathName: "root.try"}
	te := NewTryExceptNode[int](0, sig, value, &failingSub{})

	t1 := tAt(1)
	value.Tick(t1, 1)
	require.NoError(t, te.Eval(t1))
	require.False(t, te.Output().Modified(t1))
	require.True(t, te.ErrorOutput().Modified(t1))
}

func TestTryExceptNodePassesThroughOnSuccess(t *testing.T) {
	value := ts.NewTS[int]()
	sig := signature.NodeSignature{Name: "try_except_ok"}
	te := NewTryExceptNode[int](0, sig, value, &addOneSub{})

	t1 := tAt(1)
	value.Tick(t1, 1)
	require.NoError(t, te.Eval(t1))
	require.True(t, te.Output().Modified(t1))
	require.Equal(t, 2, te.Output().ValueAny().(int))
	require.False(t, te.ErrorOutput().Modified(t1))
}

type meshPassthrough struct{ deps []string }

func (s *meshPassthrough) Eval(at time.Time, in int, ctx *MeshContext[string, int]) (int, error) {
	return in, nil
}
func (s *meshPassthrough) DependsOn() []string { return s.deps }
func (s *meshPassthrough) Stop() error         { return nil }
func (s *meshPassthrough) Dispose() error      { return nil }

type meshSubscriber struct{ deps []string }

func (s *meshSubscriber) Eval(at time.Time, in int, ctx *MeshContext[string, int]) (int, error) {
	total := in
	for _, dep := range s.deps {
		if v, ok := ctx.Get(dep); ok {
			total += v
		}
	}
	return total, nil
}
func (s *meshSubscriber) DependsOn() []string { return s.deps }
func (s *meshSubscriber) Stop() error         { return nil }
func (s *meshSubscriber) Dispose() error      { return nil }

func TestMeshNodeOrdersBySubscription(t *testing.T) {
	upstream := ts.NewTSD[string](func() ts.Container { return ts.NewTS[int]() })
	sig := signature.NodeSignature{Name: "mesh_sum"}
	m := NewMeshNode[string, int](0, sig, upstream, func(key string) MeshSubGraph[string, int] {
		if key == "b" {
			return &meshSubscriber{deps: []string{"a"}}
		}
		return &meshPassthrough{}
	})

	t1 := tAt(1)
	upstream.EnsureKey("a").(*ts.TS[int]).Tick(t1, 10)
	upstream.EnsureKey("b").(*ts.TS[int]).Tick(t1, 1)
	upstream.Commit(t1)
	require.NoError(t, m.Eval(t1))
	out := m.Output().ValueAny().(map[string]any)
	require.Equal(t, 10, out["a"])
	require.Equal(t, 11, out["b"])

	t2 := tAt(2)
	upstream.Child("a").(*ts.TS[int]).Tick(t2, 20)
	upstream.Child("b").(*ts.TS[int]).Tick(t2, 2)
	upstream.Commit(t2)
	require.NoError(t, m.Eval(t2))
	out2 := m.Output().ValueAny().(map[string]any)
	if diff := cmp.Diff(map[string]any{"a": 20, "b": 22}, out2); diff != "" {
		t.Fatalf("mesh snapshot mismatch (-want +got):\n%s", diff)
	}
}

type statefulCounter struct{ total int }

func (s *statefulCounter) Eval(at time.Time, in int) (int, error) {
	s.total += in
	return s.total, nil
}
func (s *statefulCounter) Stop() error    { return nil }
func (s *statefulCounter) Dispose() error { return nil }
func (s *statefulCounter) SaveState() ([]byte, error) {
	return []byte{byte(s.total)}, nil
}
func (s *statefulCounter) LoadState(data []byte) error {
	if len(data) > 0 {
		s.total = int(data[0])
	}
	return nil
}

func TestComponentNodePersistsStateAcrossRuns(t *testing.T) {
	store := NewMemoryStateStore()
	value := ts.NewTS[int]()
	sig := signature.NodeSignature{Name: "component_counter"}

	c1 := NewComponentNode[int](0, sig, value, &statefulCounter{}, store, "counter-1")
	require.NoError(t, c1.Start())
	t1 := tAt(1)
	value.Tick(t1, 5)
	require.NoError(t, c1.Eval(t1))
	require.Equal(t, 5, c1.Output().ValueAny().(int))
	require.NoError(t, c1.Stop())

	c2 := NewComponentNode[int](0, sig, value, &statefulCounter{}, store, "counter-1")
	require.NoError(t, c2.Start())
	t2 := tAt(2)
	value.Tick(t2, 3)
	require.NoError(t, c2.Eval(t2))
	require.Equal(t, 8, c2.Output().ValueAny().(int))
}
