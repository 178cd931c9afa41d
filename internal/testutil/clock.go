// Package testutil provides deterministic helpers for harness and unit
// tests.
package testutil

import (
	"sync"
	"time"
)

// DeterministicClock is a thread-safe manual clock. It stands in for the
// real-time pauses the suite would otherwise need between saves: instead
// of sleeping, the driver calls Advance so snapshot instants land
// unambiguously between two save events.
//
// Thread-safety: all methods are safe for concurrent use via internal mutex.
type DeterministicClock struct {
	mu  sync.Mutex
	now time.Time
}

// Epoch is the default starting instant of a deterministic clock.
// An arbitrary fixed date keeps golden traces stable across runs.
var Epoch = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// NewDeterministicClock creates a clock starting at Epoch.
func NewDeterministicClock() *DeterministicClock {
	return &DeterministicClock{now: Epoch}
}

// NewDeterministicClockAt creates a clock starting at the given instant.
func NewDeterministicClockAt(at time.Time) *DeterministicClock {
	return &DeterministicClock{now: at}
}

// Now returns the current instant without advancing.
func (c *DeterministicClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward. Monotonic: negative advances are
// ignored so the clock never runs backwards.
func (c *DeterministicClock) Advance(d time.Duration) {
	if d < 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Reset moves the clock back to Epoch. Used for test reuse.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = Epoch
}
