// Package debounce provides the cancellable delayed-task abstraction behind
// autosave: an action scheduled after a quiet period, rescheduled on every
// new trigger so only the final state within the period is acted on.
package debounce

import (
	"sync"
	"time"
)

// DefaultDelay is the quiet period used for autosave.
const DefaultDelay = 500 * time.Millisecond

// Debouncer delays a function until triggers have been quiet for the
// configured period. Each Trigger cancels the pending run and reschedules
// with the latest function, so intermediate states are never acted on.
//
// The pending run is not guaranteed to fire before process exit; callers
// that need the last state persisted call Flush on teardown (accepted
// data-loss window otherwise, matching autosave semantics).
//
// Thread-safety: all methods are safe for concurrent use.
type Debouncer struct {
	delay time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	pending func()
}

// New creates a debouncer with the given quiet period.
// A non-positive delay falls back to DefaultDelay.
func New(delay time.Duration) *Debouncer {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Debouncer{delay: delay}
}

// Trigger schedules fn to run after the quiet period.
// Any previously scheduled run is cancelled; the latest fn wins.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.pending = fn
	d.timer = time.AfterFunc(d.delay, d.fire)
}

// fire runs the pending function, if it hasn't been superseded or cancelled.
func (d *Debouncer) fire() {
	d.mu.Lock()
	fn := d.pending
	d.pending = nil
	d.timer = nil
	d.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// Flush runs the pending function immediately, if any.
// Used on view teardown to close the data-loss window.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	fn := d.pending
	d.pending = nil
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// Stop cancels the pending run without executing it.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.pending = nil
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// Pending reports whether a run is scheduled. Used by tests.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending != nil
}
