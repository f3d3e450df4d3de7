package view

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/wardbook/internal/bus"
	"github.com/roach88/wardbook/internal/record"
	"github.com/roach88/wardbook/internal/store"
)

// RecentLimit is how many patients the dashboard shows.
const RecentLimit = 5

// DashboardView holds the dashboard's aggregate state.
type DashboardView struct {
	TotalPatients int              `json:"total_patients"`
	AddedToday    int              `json:"added_today"`
	Recent        []record.Patient `json:"recent,omitempty"`
}

// Dashboard mirrors aggregate patient counts and the most recent records.
// It refreshes whenever any session announces a new patient.
type Dashboard struct {
	st  *store.Store
	bus *bus.Bus
	now func() time.Time

	mu    sync.Mutex
	state State
	view  DashboardView
	sub   *bus.Subscription
}

// DashboardOption configures a Dashboard.
type DashboardOption func(*Dashboard)

// WithDashboardClock overrides the dashboard's time source ("today" for the
// added-today count).
func WithDashboardClock(now func() time.Time) DashboardOption {
	return func(d *Dashboard) {
		d.now = now
	}
}

// NewDashboard creates a dashboard over an explicit store and bus.
func NewDashboard(st *store.Store, b *bus.Bus, opts ...DashboardOption) *Dashboard {
	d := &Dashboard{
		st:  st,
		bus: b,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Mount hydrates the aggregates and subscribes to the bus.
func (d *Dashboard) Mount(ctx context.Context) error {
	d.mu.Lock()
	d.state = Loading
	d.mu.Unlock()

	if err := d.load(ctx); err != nil {
		return err
	}

	d.sub = d.bus.Subscribe(d.handle)
	return nil
}

// Unmount cancels the bus subscription.
func (d *Dashboard) Unmount() {
	d.sub.Cancel()
}

// State returns the controller state.
func (d *Dashboard) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// View returns a copy of the aggregate state.
func (d *Dashboard) View() DashboardView {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := d.view
	out.Recent = append([]record.Patient(nil), d.view.Recent...)
	return out
}

// handle dispatches bus notifications. Only patient-added is relevant here.
func (d *Dashboard) handle(n bus.Notification) {
	if n.Kind != bus.KindPatientAdded {
		return
	}
	// Re-run the read path; previous state is retained on failure.
	if err := d.load(context.Background()); err != nil {
		slog.Warn("dashboard: refresh failed", "error", err)
	}
}

// load recomputes the aggregates from the store.
func (d *Dashboard) load(ctx context.Context) error {
	total, err := d.st.CountPatients(ctx)
	if err != nil {
		return err
	}

	midnight := startOfDay(d.now())
	today, err := d.st.CountPatientsSince(ctx, midnight)
	if err != nil {
		return err
	}

	recent, err := d.st.RecentPatients(ctx, RecentLimit)
	if err != nil {
		return err
	}

	d.mu.Lock()
	d.view = DashboardView{
		TotalPatients: total,
		AddedToday:    today,
		Recent:        recent,
	}
	d.state = Ready
	d.mu.Unlock()

	return nil
}

// startOfDay truncates t to midnight UTC.
func startOfDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
