package nested

import (
	"sync"
	"time"

	tsengine "github.com/flowcore/tsengine"
	"github.com/flowcore/tsengine/graph"
	"github.com/flowcore/tsengine/signature"
	"github.com/flowcore/tsengine/ts"
)

// StatefulSubGraph is a SubGraph whose internal state can be snapshotted
// and restored, letting a component's state survive across separate
// engine runs (§4.5.6).
type StatefulSubGraph[T any] interface {
	SubGraph[T]
	SaveState() ([]byte, error)
	LoadState([]byte) error
}

// StateStore persists component snapshots by key across runs.
type StateStore interface {
	Load(key string) ([]byte, bool)
	Save(key string, data []byte)
}

// MemoryStateStore is a process-lifetime StateStore, sufficient for
// runs within a single process; a durable StateStore backed by disk or
// a KV store would satisfy the same interface.
type MemoryStateStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

// NewMemoryStateStore returns an empty in-memory StateStore.
func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{data: make(map[string][]byte)}
}

func (s *MemoryStateStore) Load(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	return v, ok
}

func (s *MemoryStateStore) Save(key string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = data
}

// ComponentNode is a named nested graph whose inner SubGraph's state is
// restored from a StateStore on Start and snapshotted back on Stop.
// Runtime evaluation semantics are otherwise identical to a plain
// nested-graph node: errors from inner.Eval propagate unchanged (a
// component is not an implicit try_except).
type ComponentNode[T any] struct {
	tsengine.BaseNode

	inner StatefulSubGraph[T]
	store StateStore
	key   string

	in  *ts.TSInput[T]
	out *ts.TS[T]
}

// NewComponentNode builds a component node. key identifies this
// instance's state in store; callers typically derive it from the
// node's RecordReplayID or wiring path name.
func NewComponentNode[T any](id graph.NodeID, sig signature.NodeSignature, value *ts.TS[T], inner StatefulSubGraph[T], store StateStore, key string) *ComponentNode[T] {
	return &ComponentNode[T]{
		BaseNode: tsengine.NewBaseNode(id, sig),
		inner:    inner,
		store:    store,
		key:      key,
		in:       ts.NewTSInput[T](value),
		out:      ts.NewTS[T](),
	}
}

func (n *ComponentNode[T]) Output() ts.Container { return n.out }

func (n *ComponentNode[T]) Inputs() map[string]ts.GatedInput {
	return map[string]ts.GatedInput{"value": n.in}
}

// Start restores prior state, if any, before the first evaluation.
func (n *ComponentNode[T]) Start() error {
	if data, ok := n.store.Load(n.key); ok {
		if err := n.inner.LoadState(data); err != nil {
			return err
		}
	}
	return n.BaseNode.Start()
}

func (n *ComponentNode[T]) Eval(at time.Time) error {
	if !n.in.Modified(at) {
		return nil
	}
	out, err := n.inner.Eval(at, n.in.Value())
	if err != nil {
		return err
	}
	n.out.Tick(at, out)
	return nil
}

// Stop snapshots inner state to the store before tearing the inner
// sub-graph down, so a later run constructed with the same key and
// store resumes where this one left off.
func (n *ComponentNode[T]) Stop() error {
	data, err := n.inner.SaveState()
	if err != nil {
		return err
	}
	n.store.Save(n.key, data)
	if err := n.inner.Stop(); err != nil {
		return err
	}
	return n.BaseNode.Stop()
}

func (n *ComponentNode[T]) Dispose() error {
	if err := n.inner.Dispose(); err != nil {
		return err
	}
	return n.BaseNode.Dispose()
}
