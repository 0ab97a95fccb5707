package ts

import (
	"time"

	"github.com/google/uuid"
)

// OutputId is a stable handle into an Arena: a UUID slot tag plus an
// epoch. A REF's delta_value is an OutputId; dereferencing through the
// owning Arena binds a downstream input transparently to the referred
// output (§3.4, §4.4.4). Design note §9: "a REF is an OutputId + epoch;
// lookups return None once the arena slot is reused" — the epoch is
// what makes a stale reference fail safely instead of resolving to
// whatever now occupies a reused UUID slot.
type OutputId struct {
	UUID  uuid.UUID
	Epoch uint64
}

type arenaSlot struct {
	epoch uint64
	value any
}

// Arena is the engine-wide registry of referenceable outputs. A TSD's
// child outputs are registered here when they may be borrowed via a
// REF so they can outlive their TSD entry until the last reference
// drops (§4.4.1, §9). Arena is owned by the single evaluation thread;
// no locking is required (§5).
type Arena struct {
	slots map[uuid.UUID]arenaSlot
}

// NewArena returns an empty output arena.
func NewArena() *Arena {
	return &Arena{slots: make(map[uuid.UUID]arenaSlot)}
}

// Register allocates a fresh OutputId for value (typically a pointer
// to a concrete output such as *TS[int] or *TSD[string]).
func (a *Arena) Register(value any) OutputId {
	id := uuid.New()
	a.slots[id] = arenaSlot{epoch: 1, value: value}
	return OutputId{UUID: id, Epoch: 1}
}

// Release evicts the slot referenced by id, but only if id's epoch
// still matches: a stale OutputId referencing an already-reused slot
// is a no-op, not a corruption of the new occupant.
func (a *Arena) Release(id OutputId) {
	if s, ok := a.slots[id.UUID]; ok && s.epoch == id.Epoch {
		delete(a.slots, id.UUID)
	}
}

// Resolve looks up the output registered under id and type-asserts it
// to *T. It returns ok=false if the slot is gone, its epoch has moved
// on, or the stored value is not a *T.
func Resolve[T any](a *Arena, id OutputId) (*T, bool) {
	s, ok := a.slots[id.UUID]
	if !ok || s.epoch != id.Epoch {
		return nil, false
	}
	v, ok := s.value.(*T)
	return v, ok
}

// REF is a reference handle to an output of shape T. Its DeltaValue is
// the opaque OutputId; binding a downstream input to a REF causes that
// input to transparently subscribe to the referred output for the
// duration of the reference (§3.4, §4.4.4).
type REF[T any] struct {
	Output[OutputId, OutputId]
}

// NewREF returns an unticked reference output.
func NewREF[T any]() *REF[T] { return &REF[T]{} }

// Tick publishes a new reference at the given logical time.
func (r *REF[T]) Tick(at time.Time, id OutputId) {
	r.ApplyResult(at, id, id)
}

// Deref resolves the current reference against arena.
func (r *REF[T]) Deref(arena *Arena) (*T, bool) {
	return Resolve[T](arena, r.Value())
}

// REFInput is the consumer-side handle for a REF output.
type REFInput[T any] = Input[OutputId, OutputId]

func NewREFInput[T any](source *REF[T]) *REFInput[T] {
	return NewInput[OutputId, OutputId](&source.Output)
}
