// Package testutil provides deterministic test doubles shared across
// packages: a settable wall clock for pinning "today" in age derivation and
// timestamp assertions.
package testutil

import (
	"sync"
	"time"
)

// Clock is a thread-safe settable wall clock for tests.
//
// Unlike time.Now, Clock only moves when a test tells it to, making
// timestamps and date-boundary behavior (age derivation, added-today
// counts) fully deterministic.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock creates a clock frozen at start.
func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

// Now returns the current frozen time. Pass c.Now as a controller's clock.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set moves the clock to t.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
