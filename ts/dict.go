package ts

import "time"

// removeSentinel is the delta-map value used to mark a key's eviction
// from a TSD (§3.2).
type removeSentinel struct{}

// Remove is the sentinel placed in a TSD's delta_value map for every
// key evicted this cycle.
var Remove = removeSentinel{}

// TSD is a mapping from K to a child time series of a single, uniform
// child shape. Value is a snapshot of K -> child value; DeltaValue maps
// K -> child delta for the cycle, with Remove marking eviction (§3.2,
// §4.4.1).
type TSD[K comparable] struct {
	Output[map[K]any, map[K]any]
	children map[K]Container
	newChild func() Container

	addedThisCycle   []K
	removedThisCycle []K

	addedItems   []K
	removedItems []K
	modifiedItems []K
}

// NewTSD allocates an empty dictionary whose children are produced by
// newChild on key-add.
func NewTSD[K comparable](newChild func() Container) *TSD[K] {
	return &TSD[K]{
		children: make(map[K]Container),
		newChild: newChild,
	}
}

// EnsureKey returns the child for k, allocating and recording it as
// added-this-cycle if it does not already exist.
func (d *TSD[K]) EnsureKey(k K) Container {
	if c, ok := d.children[k]; ok {
		return c
	}
	c := d.newChild()
	d.children[k] = c
	d.addedThisCycle = append(d.addedThisCycle, k)
	return c
}

// Has reports whether k currently has a live child.
func (d *TSD[K]) Has(k K) bool {
	_, ok := d.children[k]
	return ok
}

// Child returns the current child for k, or nil if absent.
func (d *TSD[K]) Child(k K) Container { return d.children[k] }

// RemoveKey evicts k's child, recording the eviction for this cycle's
// delta. Subject to reference semantics: the caller (graph/nested) is
// responsible for keeping the child allocated elsewhere (e.g. via an
// arena-backed REF) if it must outlive the TSD entry (§4.4.1).
func (d *TSD[K]) RemoveKey(k K) {
	if _, ok := d.children[k]; !ok {
		return
	}
	delete(d.children, k)
	d.removedThisCycle = append(d.removedThisCycle, k)
}

// Keys returns the currently-live keys in unspecified order.
func (d *TSD[K]) Keys() []K {
	out := make([]K, 0, len(d.children))
	for k := range d.children {
		out = append(out, k)
	}
	return out
}

// Commit gathers every child modified at the given logical time, plus
// any keys added/removed this cycle, into the dictionary's delta and
// refreshes its accumulated value snapshot. Called once by the owning
// node (or the nested-graph node hosting this TSD) after driving zero
// or more child sub-graphs.
func (d *TSD[K]) Commit(at time.Time) {
	delta := make(map[K]any)
	value := make(map[K]any, len(d.children))
	var modified []K
	for k, c := range d.children {
		value[k] = c.ValueAny()
		if c.Modified(at) {
			delta[k] = c.DeltaAny()
			modified = append(modified, k)
		}
	}
	for _, k := range d.removedThisCycle {
		delta[k] = Remove
	}

	d.modifiedItems = modified
	d.addedItems = d.addedThisCycle
	d.removedItems = d.removedThisCycle
	d.addedThisCycle = nil
	d.removedThisCycle = nil

	if len(delta) == 0 {
		return
	}
	d.ApplyResult(at, value, delta)
}

// AddedItems returns the keys added this cycle (§4.4.1, §8 property 4).
func (d *TSD[K]) AddedItems() []K { return d.addedItems }

// RemovedItems returns the keys evicted this cycle.
func (d *TSD[K]) RemovedItems() []K { return d.removedItems }

// ModifiedItems returns the keys whose child ticked this cycle. It is
// always disjoint from RemovedItems, since a removed child is deleted
// from the children map before Commit iterates it (§8 property 4).
func (d *TSD[K]) ModifiedItems() []K { return d.modifiedItems }

// TSDInput is the consumer-side handle for a TSD output.
type TSDInput[K comparable] = Input[map[K]any, map[K]any]

func NewTSDInput[K comparable](source *TSD[K]) *TSDInput[K] {
	return NewInput[map[K]any, map[K]any](&source.Output)
}

// AllValid additionally requires every live child to be valid (§3.2
// invariant e). Open question (a), §9: AllValid/Modified reflect only
// the TSD's own commit, not a child's SIGNAL-shaped modification in
// isolation — a child ticking without the dictionary's own Commit
// being called (e.g. a bug in the driving nested-graph node) does not
// move AllValid; this is assumed intentional, matching the source
// engine's behavior referenced in the specification.
func (d *TSD[K]) AllValid() bool {
	for _, c := range d.children {
		if !c.AllValid() {
			return false
		}
	}
	return d.Valid()
}
