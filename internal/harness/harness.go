// Package harness runs multi-session synchronization scenarios.
//
// A scenario drives named sessions - each a dashboard, form, and console
// mounted over ONE shared store and bus, mirroring several tabs of the same
// application. The harness pins the clock and patient ID generation so every
// run produces an identical notification trace, which golden tests compare
// byte-for-byte.
package harness

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/roach88/wardbook/internal/bus"
	"github.com/roach88/wardbook/internal/record"
	"github.com/roach88/wardbook/internal/store"
	"github.com/roach88/wardbook/internal/testutil"
	"github.com/roach88/wardbook/internal/view"
)

// FixedNow is the frozen wall-clock time scenarios run at.
var FixedNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

// autosaveDelay is effectively "never" - scenario steps are explicit, a
// timer firing mid-scenario would make traces nondeterministic.
const autosaveDelay = time.Hour

// TraceEvent is one recorded bus notification.
type TraceEvent struct {
	Type string `json:"type"`
	Data string `json:"data,omitempty"`
}

// SessionState is a session's final console state.
type SessionState struct {
	Query    string   `json:"query"`
	RowCount int      `json:"row_count"`
	History  []string `json:"history,omitempty"`
}

// Result captures a scenario run.
type Result struct {
	Trace    []TraceEvent
	Sessions map[string]SessionState
}

// session bundles one session's mounted controllers.
type session struct {
	dashboard *view.Dashboard
	form      *view.Form
	console   *view.Console
}

// seqIDGenerator hands out patient-001, patient-002, ... without needing the
// scenario to predeclare how many records it creates.
type seqIDGenerator struct {
	mu sync.Mutex
	n  int
}

func (g *seqIDGenerator) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("patient-%03d", g.n)
}

// Run executes a scenario against a fresh in-memory database.
//
// Sessions are created on first use, all sharing the same store and bus.
// The returned trace is the exact publish order of notifications.
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	clock := testutil.NewClock(FixedNow)
	ids := &seqIDGenerator{}
	b := bus.New(bus.WithClock(clock.Now))

	result := &Result{
		Trace:    []TraceEvent{},
		Sessions: map[string]SessionState{},
	}

	// The recorder sees every publish, including ones triggered by other
	// handlers refreshing. Appends follow publish order.
	var traceMu sync.Mutex
	recorder := b.Subscribe(func(n bus.Notification) {
		traceMu.Lock()
		result.Trace = append(result.Trace, TraceEvent{
			Type: string(n.Kind),
			Data: string(n.Data),
		})
		traceMu.Unlock()
	})
	defer recorder.Cancel()

	ctx := context.Background()
	sessions := map[string]*session{}
	defer func() {
		for _, s := range sessions {
			s.console.Unmount()
			s.form.Unmount()
			s.dashboard.Unmount()
		}
	}()

	for i, step := range scenario.Steps {
		s, err := getSession(ctx, sessions, step.Session, st, b, clock, ids)
		if err != nil {
			return nil, fmt.Errorf("steps[%d]: %w", i, err)
		}

		switch {
		case step.Register != nil:
			s.form.SetInput(*step.Register)
			if _, err := s.form.Submit(ctx); err != nil {
				return nil, fmt.Errorf("steps[%d]: register: %w", i, err)
			}
		case step.Query != "":
			if _, err := s.console.Run(ctx, step.Query); err != nil {
				return nil, fmt.Errorf("steps[%d]: query: %w", i, err)
			}
		case step.Clear == "results":
			if err := s.console.Clear(ctx); err != nil {
				return nil, fmt.Errorf("steps[%d]: clear results: %w", i, err)
			}
		case step.Clear == "form":
			if err := s.form.Clear(ctx); err != nil {
				return nil, fmt.Errorf("steps[%d]: clear form: %w", i, err)
			}
		}
	}

	for name, s := range sessions {
		v := s.console.View()
		result.Sessions[name] = SessionState{
			Query:    v.Query,
			RowCount: v.RowCount,
			History:  v.History,
		}
	}

	return result, nil
}

// getSession returns the named session, mounting a fresh one on first use.
func getSession(
	ctx context.Context,
	sessions map[string]*session,
	name string,
	st *store.Store,
	b *bus.Bus,
	clock *testutil.Clock,
	ids record.IDGenerator,
) (*session, error) {
	if s, ok := sessions[name]; ok {
		return s, nil
	}

	s := &session{
		dashboard: view.NewDashboard(st, b, view.WithDashboardClock(clock.Now)),
		form: view.NewForm(st, b,
			view.WithFormClock(clock.Now),
			view.WithFormIDs(ids),
			view.WithFormAutosaveDelay(autosaveDelay),
		),
		console: view.NewConsole(st, b,
			view.WithConsoleClock(clock.Now),
			view.WithConsoleAutosaveDelay(autosaveDelay),
		),
	}

	if err := s.dashboard.Mount(ctx); err != nil {
		return nil, fmt.Errorf("mount dashboard: %w", err)
	}
	if err := s.form.Mount(ctx); err != nil {
		return nil, fmt.Errorf("mount form: %w", err)
	}
	if err := s.console.Mount(ctx); err != nil {
		return nil, fmt.Errorf("mount console: %w", err)
	}

	sessions[name] = s
	return s, nil
}

// SessionNames returns the sessions touched by a result, sorted for
// deterministic snapshots.
func (r *Result) SessionNames() []string {
	names := make([]string, 0, len(r.Sessions))
	for name := range r.Sessions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
