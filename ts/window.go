package ts

import "time"

type timedValue[T any] struct {
	at    time.Time
	value T
}

// TSW is a sliding window of the last up-to-`size` ticks of T. It
// becomes all-valid once occupancy reaches min_size, and exposes the
// single most-recently-evicted value for exactly the cycle in which
// eviction happened (§4.4.3).
type TSW[T any] struct {
	Output[[]T, struct{}]
	times   []time.Time
	buf     *ringBuffer[timedValue[T]]
	size    int
	minSize int

	removedValue    T
	hasRemovedValue bool
	removedAtCycle  time.Time
}

// NewTSW allocates a window of the given capacity and activation
// threshold. Panics if minSize > size, an unsatisfiable configuration.
func NewTSW[T any](size, minSize int) *TSW[T] {
	if minSize > size {
		panic("ts: TSW min_size must be <= size")
	}
	return &TSW[T]{
		buf:     newRingBuffer[timedValue[T]](size),
		size:    size,
		minSize: minSize,
	}
}

// Tick appends value at the given logical time, evicting the oldest
// entry first if the window is already at capacity.
func (w *TSW[T]) Tick(at time.Time, value T) {
	w.hasRemovedValue = false
	if w.buf.Len() == w.size {
		evicted := w.buf.PopFront()
		w.removedValue = evicted.value
		w.hasRemovedValue = true
		w.removedAtCycle = at
	}
	w.buf.PushBack(timedValue[T]{at: at, value: value})

	values := make([]T, w.buf.Len())
	times := make([]time.Time, w.buf.Len())
	for i := 0; i < w.buf.Len(); i++ {
		tv := w.buf.At(i)
		values[i] = tv.value
		times[i] = tv.at
	}
	w.times = times
	w.ApplyResult(at, values, struct{}{})
}

// Len reports current occupancy, min(N ticks so far, size).
func (w *TSW[T]) Len() int { return w.buf.Len() }

// AllValid becomes true once occupancy >= min_size (§4.4.3).
func (w *TSW[T]) AllValid() bool { return w.buf.Len() >= w.minSize }

// ValueTimes returns the timestamp of each entry in Value(), in the
// same order, iff AllValid.
func (w *TSW[T]) ValueTimes() []time.Time { return w.times }

// HasRemovedValue reports whether an eviction happened in the cycle at
// the window's current LastModifiedTime; it is true for exactly one
// cycle per eviction (§4.4.3, §8 property 5).
func (w *TSW[T]) HasRemovedValue(at time.Time) bool {
	return w.hasRemovedValue && w.removedAtCycle.Equal(at)
}

// RemovedValue returns the value evicted this cycle. Only meaningful
// when HasRemovedValue(at) is true.
func (w *TSW[T]) RemovedValue() T { return w.removedValue }

// FirstModifiedTime returns the timestamp of the current window head
// (oldest retained entry).
func (w *TSW[T]) FirstModifiedTime() (time.Time, bool) {
	if w.buf.Len() == 0 {
		return time.Time{}, false
	}
	return w.buf.At(0).at, true
}

// TSWInput is the consumer-side handle for a TSW output.
type TSWInput[T any] = Input[[]T, struct{}]

func NewTSWInput[T any](source *TSW[T]) *TSWInput[T] {
	return NewInput[[]T, struct{}](&source.Output)
}
