package ts

import "time"

// TSL is a fixed-length list of N child time series of T. Value is the
// list of child values as of the last modification; DeltaValue maps
// child index to that child's delta, for indices modified this cycle
// (§3.2).
type TSL[T any] struct {
	Output[[]T, map[int]T]
	children []*TS[T]
}

// NewTSL allocates a TSL with n children, each an independent TS[T]
// output.
func NewTSL[T any](n int) *TSL[T] {
	l := &TSL[T]{children: make([]*TS[T], n)}
	for i := range l.children {
		l.children[i] = NewTS[T]()
	}
	return l
}

// Size returns the fixed list length N.
func (l *TSL[T]) Size() int { return len(l.children) }

// Child returns the i'th child output, for the owning node to tick
// directly.
func (l *TSL[T]) Child(i int) *TS[T] { return l.children[i] }

// Commit gathers every child modified at the given logical time into
// this cycle's delta map and refreshes the accumulated value snapshot.
// Called once by the owning node after ticking zero or more children.
func (l *TSL[T]) Commit(at time.Time) {
	delta := make(map[int]T)
	values := make([]T, len(l.children))
	for i, c := range l.children {
		values[i] = c.Value()
		if c.Modified(at) {
			delta[i] = c.DeltaValue()
		}
	}
	if len(delta) == 0 {
		return
	}
	l.ApplyResult(at, values, delta)
}

// AllValid additionally requires every child to be valid (§3.2
// invariant e).
func (l *TSL[T]) AllValid() bool {
	for _, c := range l.children {
		if !c.Valid() {
			return false
		}
	}
	return l.Valid()
}

// TSLInput is the consumer-side handle for a TSL[T] output.
type TSLInput[T any] = Input[[]T, map[int]T]

func NewTSLInput[T any](source *TSL[T]) *TSLInput[T] {
	return NewInput[[]T, map[int]T](&source.Output)
}
