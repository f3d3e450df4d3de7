// Package bus implements the change bus: a same-process broadcast channel
// carrying typed change notifications between session controllers.
//
// The bus is fire-and-forget. There is no persistence, no replay for
// subscribers added after a publish, and no delivery confirmation. A
// publisher's own session receives its notifications like any other
// subscriber (no self-exclusion).
package bus

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

// Kind identifies what changed. Receivers must recognize or ignore a kind;
// unknown kinds are silently dropped by every controller.
type Kind string

const (
	// KindPatientAdded signals a new row in the patients table.
	// Data carries the new patient's id.
	KindPatientAdded Kind = "patient-added"

	// KindResultsUpdated signals that the console ran a query and persisted
	// new results.
	KindResultsUpdated Kind = "results-updated"

	// KindResultsCleared signals that the console's persisted results were
	// wiped.
	KindResultsCleared Kind = "results-cleared"

	// KindFormCleared signals that the registration form and its draft were
	// reset.
	KindFormCleared Kind = "form-cleared"

	// KindDraftSaved signals that a form draft autosave flushed.
	KindDraftSaved Kind = "draft-saved"
)

// Notification is the wire format of a change event.
// Ephemeral: exists only on the bus at the instant of broadcast.
type Notification struct {
	Kind      Kind            `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"timestamp"` // ms since epoch
}

// Handler receives notifications. Handlers run synchronously on the
// publisher's goroutine and must not block.
type Handler func(Notification)

// Subscription is a registered handler. Cancel on view teardown is
// mandatory to avoid leaking handlers across re-mounts.
type Subscription struct {
	bus *Bus
	id  int
}

// Cancel removes the subscription. Safe to call more than once.
func (s *Subscription) Cancel() {
	if s == nil || s.bus == nil {
		return
	}
	s.bus.mu.Lock()
	delete(s.bus.handlers, s.id)
	s.bus.mu.Unlock()
	s.bus = nil
}

// Bus fans notifications out to all current subscribers.
//
// Thread-safety: Publish and Subscribe are safe from any goroutine.
// Handlers are invoked outside the bus lock, so a handler may publish
// or subscribe reentrantly.
type Bus struct {
	mu       sync.Mutex
	handlers map[int]Handler
	nextID   int
	now      func() time.Time
	disabled bool
}

// Option configures a Bus.
type Option func(*Bus)

// WithClock overrides the timestamp source. Used by tests and the harness
// for deterministic notification timestamps.
func WithClock(now func() time.Time) Option {
	return func(b *Bus) {
		b.now = now
	}
}

// New creates an empty bus.
func New(opts ...Option) *Bus {
	b := &Bus{
		handlers: make(map[int]Handler),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// NewNop creates a degraded bus for environments without a usable channel:
// publish and subscribe become no-ops rather than failing callers, and the
// application operates single-session.
func NewNop() *Bus {
	b := New()
	b.disabled = true
	return b
}

// Subscribe registers a handler for the lifetime of the owning view.
// Returns a subscription that must be cancelled on teardown.
func (b *Bus) Subscribe(fn Handler) *Subscription {
	if b.disabled || fn == nil {
		return &Subscription{}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.handlers[id] = fn
	return &Subscription{bus: b, id: id}
}

// Publish broadcasts a notification to every subscriber registered at call
// time. The data payload is JSON-encoded; an unencodable payload is logged
// and the notification is sent without data (best-effort, never fails the
// caller).
func (b *Bus) Publish(kind Kind, data any) {
	if b.disabled {
		return
	}

	n := Notification{
		Kind:      kind,
		Timestamp: b.now().UnixMilli(),
	}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			slog.Warn("bus: dropping unencodable payload", "kind", kind, "error", err)
		} else {
			n.Data = raw
		}
	}

	// Snapshot under lock, invoke outside it so handlers can publish.
	b.mu.Lock()
	snapshot := make([]Handler, 0, len(b.handlers))
	for _, fn := range b.handlers {
		snapshot = append(snapshot, fn)
	}
	b.mu.Unlock()

	for _, fn := range snapshot {
		fn(n)
	}
}

// SubscriberCount returns the number of live subscriptions.
// Used by tests to verify teardown.
func (b *Bus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.handlers)
}
