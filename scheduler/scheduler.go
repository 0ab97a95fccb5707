// Package scheduler implements the engine's event-time priority queue:
// entries are ordered by (scheduled_time, node_id), with node_id as a
// stable tie-break so two nodes due at the same logical instant always
// drain in ascending node-id order, matching the graph's evaluation
// order (§4.2 of the engine specification).
package scheduler

import (
	"time"

	"github.com/google/btree"
)

// NodeID identifies a node by its dense, topologically-ordered position
// in the owning graph.
type NodeID uint64

type entry struct {
	at     time.Time
	nodeID NodeID
}

func (e entry) Less(than btree.Item) bool {
	o := than.(entry)
	if !e.at.Equal(o.at) {
		return e.at.Before(o.at)
	}
	return e.nodeID < o.nodeID
}

// Scheduler is a priority queue of (time, NodeID) wake-ups. Schedule is
// idempotent for an identical (NodeID, at) pair; Cancel drops every
// pending entry for a node regardless of its scheduled time.
//
// Scheduler is not safe for concurrent use; it is owned exclusively by
// the evaluation engine's single thread (§5).
type Scheduler struct {
	tree *btree.BTree
	// byNode tracks the scheduled times currently pending for a node,
	// so Cancel and the idempotent re-schedule check don't need a tree
	// scan.
	byNode map[NodeID]map[time.Time]struct{}
}

// New returns an empty Scheduler. The underlying B-tree has degree 32,
// a reasonable branching factor for the thousands-of-entries scale a
// single graph's scheduler will see.
func New() *Scheduler {
	return &Scheduler{
		tree:   btree.New(32),
		byNode: make(map[NodeID]map[time.Time]struct{}),
	}
}

// Schedule posts a wake-up for node at the given logical time. Calling
// Schedule twice with the same (node, at) pair is a no-op.
func (s *Scheduler) Schedule(node NodeID, at time.Time) {
	times, ok := s.byNode[node]
	if !ok {
		times = make(map[time.Time]struct{})
		s.byNode[node] = times
	}
	if _, exists := times[at]; exists {
		return
	}
	times[at] = struct{}{}
	s.tree.ReplaceOrInsert(entry{at: at, nodeID: node})
}

// Cancel removes every pending wake-up for node.
func (s *Scheduler) Cancel(node NodeID) {
	times, ok := s.byNode[node]
	if !ok {
		return
	}
	for at := range times {
		s.tree.Delete(entry{at: at, nodeID: node})
	}
	delete(s.byNode, node)
}

// NextDue returns the earliest scheduled time still pending and true,
// or the zero time and false if the scheduler is empty.
func (s *Scheduler) NextDue() (time.Time, bool) {
	min := s.tree.Min()
	if min == nil {
		return time.Time{}, false
	}
	return min.(entry).at, true
}

// DrainUntil pops every entry with scheduled time <= t, in (time,
// node_id) order, and returns the node IDs due.
func (s *Scheduler) DrainUntil(t time.Time) []NodeID {
	var due []entry
	s.tree.Ascend(func(i btree.Item) bool {
		e := i.(entry)
		if e.at.After(t) {
			return false
		}
		due = append(due, e)
		return true
	})
	ids := make([]NodeID, 0, len(due))
	seen := make(map[NodeID]struct{}, len(due))
	for _, e := range due {
		s.tree.Delete(e)
		times := s.byNode[e.nodeID]
		delete(times, e.at)
		if len(times) == 0 {
			delete(s.byNode, e.nodeID)
		}
		if _, dup := seen[e.nodeID]; dup {
			continue
		}
		seen[e.nodeID] = struct{}{}
		ids = append(ids, e.nodeID)
	}
	return ids
}

// Len reports the number of pending wake-ups.
func (s *Scheduler) Len() int {
	return s.tree.Len()
}

// Pending reports whether node has at least one wake-up scheduled.
func (s *Scheduler) Pending(node NodeID) bool {
	_, ok := s.byNode[node]
	return ok
}
