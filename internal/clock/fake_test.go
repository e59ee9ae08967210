package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFakeClockFiresDueTimers(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewFakeClock(start)

	short := c.After(time.Second)
	long := c.After(time.Minute)
	require.Equal(t, 2, c.Waiters())

	c.Advance(2 * time.Second)

	select {
	case fired := <-short:
		assert.Equal(t, start.Add(2*time.Second), fired)
	default:
		t.Fatal("expected short timer to fire")
	}
	select {
	case <-long:
		t.Fatal("long timer fired early")
	default:
	}
	assert.Equal(t, 1, c.Waiters())
}

func TestFakeClockNonPositiveDurationFiresImmediately(t *testing.T) {
	c := NewFakeClock(time.Unix(0, 0))
	select {
	case <-c.After(0):
	default:
		t.Fatal("expected zero duration timer to fire immediately")
	}
	assert.Equal(t, 0, c.Waiters())
}
