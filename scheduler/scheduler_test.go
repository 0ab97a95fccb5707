package scheduler_test

import (
	"testing"
	"time"

	"github.com/flowcore/tsengine/scheduler"
	"github.com/stretchr/testify/require"
)

var t0 = time.Unix(0, 0).UTC()

func TestDrainOrdersByTimeThenNodeID(t *testing.T) {
	s := scheduler.New()
	s.Schedule(scheduler.NodeID(5), t0)
	s.Schedule(scheduler.NodeID(1), t0)
	s.Schedule(scheduler.NodeID(3), t0.Add(-time.Second))
	s.Schedule(scheduler.NodeID(9), t0.Add(time.Hour))

	due := s.DrainUntil(t0)
	require.Equal(t, []scheduler.NodeID{3, 1, 5}, due)
	require.Equal(t, 1, s.Len())
}

func TestScheduleIsIdempotent(t *testing.T) {
	s := scheduler.New()
	s.Schedule(scheduler.NodeID(1), t0)
	s.Schedule(scheduler.NodeID(1), t0)
	require.Equal(t, 1, s.Len())
	due := s.DrainUntil(t0)
	require.Equal(t, []scheduler.NodeID{1}, due)
}

func TestCancelRemovesAllPendingEntriesForNode(t *testing.T) {
	s := scheduler.New()
	s.Schedule(scheduler.NodeID(1), t0)
	s.Schedule(scheduler.NodeID(1), t0.Add(time.Hour))
	s.Schedule(scheduler.NodeID(2), t0)
	s.Cancel(scheduler.NodeID(1))
	require.False(t, s.Pending(scheduler.NodeID(1)))
	require.Equal(t, 1, s.Len())
	due := s.DrainUntil(t0.Add(2 * time.Hour))
	require.Equal(t, []scheduler.NodeID{2}, due)
}

func TestNextDueOnEmptyScheduler(t *testing.T) {
	s := scheduler.New()
	_, ok := s.NextDue()
	require.False(t, ok)
}

func TestNextDueReturnsEarliest(t *testing.T) {
	s := scheduler.New()
	s.Schedule(scheduler.NodeID(1), t0.Add(time.Hour))
	s.Schedule(scheduler.NodeID(2), t0)
	at, ok := s.NextDue()
	require.True(t, ok)
	require.True(t, at.Equal(t0))
}
