package view

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/roach88/wardbook/internal/bus"
	"github.com/roach88/wardbook/internal/debounce"
	"github.com/roach88/wardbook/internal/persist"
	"github.com/roach88/wardbook/internal/store"
)

// Settings keys owned by the console. Values in sql_settings.
const (
	keyLastQuery   = "last_query"
	keyLastColumns = "last_columns"
	keyLastHeaders = "last_headers"
	keyLastResults = "last_results"
	keyHistory     = "query_history"
)

// HistoryLimit caps the SQL history at the most recent entries.
const HistoryLimit = 10

// ConsoleView is the console's mirrored state: the last-run query, its
// post-processed results, and the bounded history.
type ConsoleView struct {
	Query    string     `json:"query"`
	Columns  []string   `json:"columns,omitempty"`
	Headers  []string   `json:"headers,omitempty"`
	Rows     [][]string `json:"rows,omitempty"`
	RowCount int        `json:"row_count"`
	History  []string   `json:"history,omitempty"`
}

// ResultsUpdate is the payload of a results-updated notification.
type ResultsUpdate struct {
	Query    string `json:"query"`
	RowCount int    `json:"row_count"`
}

// Console is the ad-hoc SQL console controller.
//
// All results are round-tripped through sql_settings so a freshly mounted
// console (or another session) restores the last-run query, results, and
// history. Free-text SQL edits autosave after a quiet period.
type Console struct {
	st   *store.Store
	bus  *bus.Bus
	now  func() time.Time
	save *debounce.Debouncer

	mu    sync.Mutex
	state State
	view  ConsoleView
	sub   *bus.Subscription
}

// ConsoleOption configures a Console.
type ConsoleOption func(*Console)

// WithConsoleClock overrides the console's time source (timestamps, age
// derivation "today"). Tests pin this for the birthday-boundary cases.
func WithConsoleClock(now func() time.Time) ConsoleOption {
	return func(c *Console) {
		c.now = now
	}
}

// WithConsoleAutosaveDelay overrides the autosave quiet period.
func WithConsoleAutosaveDelay(d time.Duration) ConsoleOption {
	return func(c *Console) {
		c.save = debounce.New(d)
	}
}

// NewConsole creates a console over an explicit store and bus.
func NewConsole(st *store.Store, b *bus.Bus, opts ...ConsoleOption) *Console {
	c := &Console{
		st:   st,
		bus:  b,
		now:  time.Now,
		save: debounce.New(debounce.DefaultDelay),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Mount hydrates the console from the store and subscribes to the bus.
// Each persisted field hydrates independently: a malformed stored value is
// logged and skipped, leaving that field at its default.
func (c *Console) Mount(ctx context.Context) error {
	c.mu.Lock()
	c.state = Loading

	if text, ok, err := persist.LoadString(ctx, c.st, persist.NamespaceSettings, keyLastQuery); err != nil {
		c.mu.Unlock()
		return err
	} else if ok {
		c.view.Query = text
	}

	c.hydrateJSON(ctx, keyLastColumns, &c.view.Columns)
	c.hydrateJSON(ctx, keyLastHeaders, &c.view.Headers)
	c.hydrateJSON(ctx, keyLastResults, &c.view.Rows)
	c.hydrateJSON(ctx, keyHistory, &c.view.History)
	c.view.RowCount = len(c.view.Rows)

	c.state = Ready
	c.mu.Unlock()

	c.sub = c.bus.Subscribe(c.handle)
	return nil
}

// hydrateJSON loads one persisted field, skipping it on decode failure.
// Caller holds c.mu.
func (c *Console) hydrateJSON(ctx context.Context, key string, dest any) {
	if _, err := persist.LoadJSON(ctx, c.st, persist.NamespaceSettings, key, dest); err != nil {
		slog.Warn("console: skipping hydration", "key", key, "error", err)
	}
}

// Unmount flushes the pending autosave and cancels the bus subscription.
func (c *Console) Unmount() {
	c.save.Flush()
	c.sub.Cancel()
}

// State returns the controller state.
func (c *Console) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// View returns a copy of the mirrored state.
func (c *Console) View() ConsoleView {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view.clone()
}

func (v ConsoleView) clone() ConsoleView {
	out := v
	out.Columns = append([]string(nil), v.Columns...)
	out.Headers = append([]string(nil), v.Headers...)
	out.History = append([]string(nil), v.History...)
	out.Rows = make([][]string, len(v.Rows))
	for i, r := range v.Rows {
		out.Rows[i] = append([]string(nil), r...)
	}
	return out
}

// SetQueryText updates the free-text SQL and schedules a debounced autosave.
// Only the final value within a quiet period is persisted.
func (c *Console) SetQueryText(text string) {
	c.mu.Lock()
	c.view.Query = text
	c.mu.Unlock()

	c.save.Trigger(func() {
		now := c.now()
		if err := persist.Save(context.Background(), c.st, persist.NamespaceSettings, keyLastQuery, text, now); err != nil {
			slog.Warn("console: autosave failed", "error", err)
		}
	})
}

// Run executes the SQL verbatim, post-processes the result (derived age
// column, header labels), persists the whole console state, appends to
// history, and publishes results-updated.
//
// On query failure the previous view is retained and the error returned.
func (c *Console) Run(ctx context.Context, sqlText string) (ConsoleView, error) {
	rs, err := c.st.Query(ctx, sqlText)
	if err != nil {
		return c.View(), err
	}

	today := c.now()
	cols, rows := WithDerivedAge(rs.Columns, rs.Rows, today)
	headers := HeaderLabels(cols)

	c.save.Stop() // the explicit run supersedes any pending text autosave

	c.mu.Lock()
	c.view.Query = sqlText
	c.view.Columns = cols
	c.view.Headers = headers
	c.view.Rows = rows
	c.view.RowCount = len(rows)
	c.view.History = appendHistory(c.view.History, sqlText)
	c.state = Ready
	snapshot := c.view.clone()
	c.mu.Unlock()

	c.persistView(ctx, snapshot)

	c.bus.Publish(bus.KindResultsUpdated, ResultsUpdate{
		Query:    sqlText,
		RowCount: snapshot.RowCount,
	})

	return snapshot, nil
}

// Clear wipes the persisted results and resets the local view, keeping
// history. Publishes results-cleared.
func (c *Console) Clear(ctx context.Context) error {
	c.save.Stop()

	c.mu.Lock()
	c.view.Query = ""
	c.view.Columns = nil
	c.view.Headers = nil
	c.view.Rows = nil
	c.view.RowCount = 0
	c.mu.Unlock()

	for _, key := range []string{keyLastQuery, keyLastColumns, keyLastHeaders, keyLastResults} {
		if err := c.st.DeleteSetting(ctx, key); err != nil {
			return err
		}
	}

	c.bus.Publish(bus.KindResultsCleared, nil)
	return nil
}

// handle dispatches bus notifications. Unrecognized kinds are ignored.
func (c *Console) handle(n bus.Notification) {
	switch n.Kind {
	case bus.KindPatientAdded:
		// Refresh only when the current query reads the patients table.
		c.mu.Lock()
		query := c.view.Query
		c.mu.Unlock()
		if queryMentionsPatients(query) {
			c.refresh(context.Background())
		}
	case bus.KindResultsUpdated, bus.KindResultsCleared:
		// Another session ran or cleared the console; converge by
		// re-reading the persisted state. Receiving our own publish this
		// way is harmless (hydration is idempotent).
		c.rehydrate(context.Background())
	}
}

// refresh re-runs the read path: execute the current query again and update
// local and persisted state. No notification is published - a refresh is a
// reaction to an external change, not a new one.
func (c *Console) refresh(ctx context.Context) {
	c.mu.Lock()
	query := c.view.Query
	c.mu.Unlock()
	if query == "" {
		return
	}

	rs, err := c.st.Query(ctx, query)
	if err != nil {
		// Previous state is retained on read failure.
		slog.Warn("console: refresh failed", "error", err)
		return
	}

	cols, rows := WithDerivedAge(rs.Columns, rs.Rows, c.now())

	c.mu.Lock()
	c.view.Columns = cols
	c.view.Headers = HeaderLabels(cols)
	c.view.Rows = rows
	c.view.RowCount = len(rows)
	c.state = Ready
	snapshot := c.view.clone()
	c.mu.Unlock()

	c.persistView(ctx, snapshot)
}

// rehydrate reloads the persisted console state from the store.
func (c *Console) rehydrate(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var next ConsoleView
	if text, ok, err := persist.LoadString(ctx, c.st, persist.NamespaceSettings, keyLastQuery); err != nil {
		slog.Warn("console: rehydrate failed", "error", err)
		return
	} else if ok {
		next.Query = text
	}
	c.view.Query = next.Query

	c.view.Columns = nil
	c.view.Headers = nil
	c.view.Rows = nil
	c.hydrateJSON(ctx, keyLastColumns, &c.view.Columns)
	c.hydrateJSON(ctx, keyLastHeaders, &c.view.Headers)
	c.hydrateJSON(ctx, keyLastResults, &c.view.Rows)
	c.hydrateJSON(ctx, keyHistory, &c.view.History)
	c.view.RowCount = len(c.view.Rows)
	c.state = Ready
}

// persistView writes the console state through the persistence helper.
// Best-effort: failures are logged, the in-memory view stands.
func (c *Console) persistView(ctx context.Context, v ConsoleView) {
	now := c.now()
	saves := []struct {
		key   string
		value any
	}{
		{keyLastQuery, v.Query},
		{keyLastColumns, v.Columns},
		{keyLastHeaders, v.Headers},
		{keyLastResults, v.Rows},
		{keyHistory, v.History},
	}
	for _, s := range saves {
		if err := persist.Save(ctx, c.st, persist.NamespaceSettings, s.key, s.value, now); err != nil {
			slog.Warn("console: persist failed", "key", s.key, "error", err)
		}
	}
}

// appendHistory appends query to history unless an identical entry is
// already stored, then truncates from the front to HistoryLimit.
func appendHistory(history []string, query string) []string {
	for _, h := range history {
		if h == query {
			return history
		}
	}
	history = append(history, query)
	if len(history) > HistoryLimit {
		history = history[len(history)-HistoryLimit:]
	}
	return history
}

// queryMentionsPatients reports whether the SQL text references the patients
// table. A case-insensitive word match keeps false positives rare without
// parsing SQL.
func queryMentionsPatients(query string) bool {
	lower := strings.ToLower(query)
	idx := strings.Index(lower, "patients")
	for idx >= 0 {
		before := idx == 0 || !isWordByte(lower[idx-1])
		afterIdx := idx + len("patients")
		after := afterIdx >= len(lower) || !isWordByte(lower[afterIdx])
		if before && after {
			return true
		}
		next := strings.Index(lower[idx+1:], "patients")
		if next < 0 {
			return false
		}
		idx = idx + 1 + next
	}
	return false
}

func isWordByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9')
}
