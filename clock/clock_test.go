package clock_test

import (
	"testing"
	"time"

	"github.com/flowcore/tsengine/clock"
	"github.com/stretchr/testify/require"
)

func TestSimClockUntilBlocksThenReleases(t *testing.T) {
	c := clock.Sim(clock.MinST)
	zero := c.Zero()

	done := make(chan bool)
	go func() {
		c.Until(zero.Add(10 * clock.MinTD))
		done <- true
	}()

	select {
	case <-done:
		t.Fatal("unexpected return from c.Until before deadline set")
	case <-time.After(10 * time.Millisecond):
	}

	c.Set(zero.Add(9 * clock.MinTD))
	select {
	case <-done:
		t.Fatal("unexpected return from c.Until before deadline reached")
	case <-time.After(10 * time.Millisecond):
	}

	c.Set(zero.Add(10 * clock.MinTD))
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("c.Until did not return after deadline reached")
	}
}

func TestSimClockRejectsBackwardsSet(t *testing.T) {
	c := clock.Sim(clock.MinST)
	c.Set(clock.MinST.Add(time.Second))
	require.Panics(t, func() {
		c.Set(clock.MinST)
	})
}

func TestNormalizeAssumesUTC(t *testing.T) {
	loc := time.FixedZone("x", 3600)
	naive := time.Date(2020, 1, 1, 0, 0, 0, 0, loc)
	got := clock.Normalize(naive)
	require.Equal(t, time.UTC, got.Location())
}
