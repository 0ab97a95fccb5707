package ts

import (
	"sort"
	"time"

	"github.com/cespare/xxhash"
)

// SetDelta is the delta type of a TSS: the elements added and removed
// this cycle. Equality is structural (§8 property 6): two SetDeltas
// are equal iff their added/removed sets contain the same elements,
// order notwithstanding, and their ElementType tags match.
type SetDelta[T comparable] struct {
	Added       []T
	Removed     []T
	ElementType string
}

// Equal reports structural equality of two SetDeltas, ignoring slice
// order.
func (d SetDelta[T]) Equal(o SetDelta[T]) bool {
	if d.ElementType != o.ElementType {
		return false
	}
	return sameElements(d.Added, o.Added) && sameElements(d.Removed, o.Removed)
}

func sameElements[T comparable](a, b []T) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[T]int, len(a))
	for _, v := range a {
		counts[v]++
	}
	for _, v := range b {
		counts[v]--
	}
	for _, c := range counts {
		if c != 0 {
			return false
		}
	}
	return true
}

// TSS is a set of T. Value is the full accumulated set; DeltaValue is
// the SetDelta committed this cycle. The engine maintains
// value = value ∪ added \ removed on every tick (§4.4.2).
type TSS[T comparable] struct {
	Output[map[T]struct{}, SetDelta[T]]
	elementType string
}

// NewTSS allocates an empty set output tagged with elementType, the
// type name recorded on every SetDelta it produces.
func NewTSS[T comparable](elementType string) *TSS[T] {
	return &TSS[T]{elementType: elementType}
}

// Tick applies added/removed to the set and commits the resulting
// SetDelta and accumulated value at the given logical time.
func (s *TSS[T]) Tick(at time.Time, added, removed []T) {
	next := make(map[T]struct{}, len(s.Value())+len(added))
	for k := range s.Value() {
		next[k] = struct{}{}
	}
	for _, a := range added {
		next[a] = struct{}{}
	}
	for _, r := range removed {
		delete(next, r)
	}
	s.ApplyResult(at, next, SetDelta[T]{Added: added, Removed: removed, ElementType: s.elementType})
}

// Elements returns the current set elements sorted by less, for
// deterministic iteration; less must provide a total order over T.
func (s *TSS[T]) Elements(less func(a, b T) bool) []T {
	out := make([]T, 0, len(s.Value()))
	for k := range s.Value() {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

// TSSInput is the consumer-side handle for a TSS output.
type TSSInput[T comparable] = Input[map[T]struct{}, SetDelta[T]]

func NewTSSInput[T comparable](source *TSS[T]) *TSSInput[T] {
	return NewInput[map[T]struct{}, SetDelta[T]](&source.Output)
}

// HashKey is a stable byte-key function for a non-comparable element
// type, used by the generic object-keyed fallback set (TSSObject)
// where T cannot serve directly as a Go map key.
type HashKey[T any] func(T) []byte

// HashedBucket holds every element hashing to the same xxhash bucket,
// resolved by a caller-supplied equality check on collision.
type HashedBucket[T any] struct {
	Hash     uint64
	Elements []T
}

// TSSObject is the "generic object fallback" specialisation of TSS for
// element types with no natural comparable representation. It buckets
// elements by xxhash64 of a caller-supplied byte key and resolves
// collisions with equal.
type TSSObject[T any] struct {
	buckets map[uint64][]T
	hashKey HashKey[T]
	equal   func(a, b T) bool
}

// NewTSSObject allocates an object-keyed set fallback.
func NewTSSObject[T any](hashKey HashKey[T], equal func(a, b T) bool) *TSSObject[T] {
	return &TSSObject[T]{
		buckets: make(map[uint64][]T),
		hashKey: hashKey,
		equal:   equal,
	}
}

// Add inserts v if no equal element is already present, returning
// whether it was newly added.
func (o *TSSObject[T]) Add(v T) bool {
	h := xxhash.Sum64(o.hashKey(v))
	for _, e := range o.buckets[h] {
		if o.equal(e, v) {
			return false
		}
	}
	o.buckets[h] = append(o.buckets[h], v)
	return true
}

// Remove deletes the element equal to v, if present, returning whether
// one was removed.
func (o *TSSObject[T]) Remove(v T) bool {
	h := xxhash.Sum64(o.hashKey(v))
	bucket := o.buckets[h]
	for i, e := range bucket {
		if o.equal(e, v) {
			o.buckets[h] = append(bucket[:i], bucket[i+1:]...)
			if len(o.buckets[h]) == 0 {
				delete(o.buckets, h)
			}
			return true
		}
	}
	return false
}

// Contains reports whether an element equal to v is present.
func (o *TSSObject[T]) Contains(v T) bool {
	h := xxhash.Sum64(o.hashKey(v))
	for _, e := range o.buckets[h] {
		if o.equal(e, v) {
			return true
		}
	}
	return false
}
