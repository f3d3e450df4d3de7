package view

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/wardbook/internal/bus"
	"github.com/roach88/wardbook/internal/record"
	"github.com/roach88/wardbook/internal/store"
	"github.com/roach88/wardbook/internal/testutil"
)

func mountedForm(t *testing.T, st *store.Store, b *bus.Bus, clock *testutil.Clock, ids ...string) *Form {
	t.Helper()
	f := NewForm(st, b,
		WithFormClock(clock.Now),
		WithFormIDs(record.NewFixedGenerator(ids...)),
		WithFormAutosaveDelay(time.Hour))
	require.NoError(t, f.Mount(context.Background()))
	t.Cleanup(f.Unmount)
	return f
}

func fillValidForm(t *testing.T, f *Form) {
	t.Helper()
	require.NoError(t, f.SetField("first_name", "Ada"))
	require.NoError(t, f.SetField("last_name", "Lovelace"))
	require.NoError(t, f.SetField("date_of_birth", "2000-06-15"))
	require.NoError(t, f.SetField("gender", "female"))
}

func TestForm_SubmitInsertsAndAnnounces(t *testing.T) {
	st := newViewStore(t)
	b := bus.New()
	clock := testutil.NewClock(viewNow)
	ctx := context.Background()

	f := mountedForm(t, st, b, clock, "p-1")
	fillValidForm(t, f)

	var added []bus.Notification
	sub := b.Subscribe(func(n bus.Notification) {
		if n.Kind == bus.KindPatientAdded {
			added = append(added, n)
		}
	})
	defer sub.Cancel()

	p, err := f.Submit(ctx)
	require.NoError(t, err)
	assert.Equal(t, "p-1", p.ID)

	// Exactly one row, carrying the submitted values.
	count, err := st.CountPatients(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	got, err := st.GetPatient(ctx, "p-1")
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.FirstName)
	assert.Equal(t, "Lovelace", got.LastName)
	assert.Equal(t, "2000-06-15", got.DateOfBirth)
	assert.True(t, got.CreatedAt.Equal(viewNow))

	require.Len(t, added, 1)
	assert.JSONEq(t, `{"id":"p-1"}`, string(added[0].Data))

	// The form resets after a successful submit.
	assert.Equal(t, record.PatientInput{}, f.Input())
}

func TestForm_SubmitInvalidInput(t *testing.T) {
	st := newViewStore(t)
	clock := testutil.NewClock(viewNow)
	ctx := context.Background()

	f := mountedForm(t, st, bus.New(), clock, "p-1")
	require.NoError(t, f.SetField("first_name", "Ada"))
	// last_name and date_of_birth missing

	_, err := f.Submit(ctx)
	require.Error(t, err)
	var verr *record.ValidationError
	assert.ErrorAs(t, err, &verr)

	count, err := st.CountPatients(ctx)
	require.NoError(t, err)
	assert.Zero(t, count, "invalid submit must not insert")

	// Fields survive a failed submit.
	assert.Equal(t, "Ada", f.Input().FirstName)
}

func TestForm_DraftRoundTrip(t *testing.T) {
	st := newViewStore(t)
	clock := testutil.NewClock(viewNow)
	ctx := context.Background()

	f := NewForm(st, bus.New(),
		WithFormClock(clock.Now),
		WithFormAutosaveDelay(time.Hour))
	require.NoError(t, f.Mount(ctx))

	require.NoError(t, f.SetField("first_name", "A"))
	require.NoError(t, f.SetField("first_name", "Ad"))
	require.NoError(t, f.SetField("first_name", "Ada"))
	require.NoError(t, f.SetField("allergies", "none known"))

	// Nothing persisted inside the quiet period.
	_, ok, err := st.GetDraft(ctx, FormID)
	require.NoError(t, err)
	assert.False(t, ok)

	// Teardown flushes the final snapshot only.
	f.Unmount()

	data, ok, err := st.GetDraft(ctx, FormID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"first_name":"Ada","last_name":"","date_of_birth":"","allergies":"none known"}`, data)

	// A fresh form restores the draft on mount.
	f2 := mountedForm(t, st, bus.New(), clock)
	assert.Equal(t, "Ada", f2.Input().FirstName)
	assert.Equal(t, "none known", f2.Input().Allergies)
}

func TestForm_AutosavePublishesDraftSaved(t *testing.T) {
	st := newViewStore(t)
	b := bus.New()
	clock := testutil.NewClock(viewNow)

	f := NewForm(st, b,
		WithFormClock(clock.Now),
		WithFormAutosaveDelay(time.Hour))
	require.NoError(t, f.Mount(context.Background()))

	var saved int
	sub := b.Subscribe(func(n bus.Notification) {
		if n.Kind == bus.KindDraftSaved {
			saved++
		}
	})
	defer sub.Cancel()

	require.NoError(t, f.SetField("first_name", "Ada"))
	f.Unmount()

	assert.Equal(t, 1, saved)
}

func TestForm_DraftSavedSyncsOtherSession(t *testing.T) {
	st := newViewStore(t)
	b := bus.New()
	clock := testutil.NewClock(viewNow)

	editor := NewForm(st, b,
		WithFormClock(clock.Now),
		WithFormAutosaveDelay(time.Hour))
	require.NoError(t, editor.Mount(context.Background()))

	watcher := mountedForm(t, st, b, clock)

	require.NoError(t, editor.SetField("first_name", "Ada"))
	editor.Unmount() // flush publishes draft-saved

	assert.Equal(t, "Ada", watcher.Input().FirstName)
}

func TestForm_SubmitClearsDraft(t *testing.T) {
	st := newViewStore(t)
	clock := testutil.NewClock(viewNow)
	ctx := context.Background()

	require.NoError(t, st.PutDraft(ctx, FormID, `{"first_name":"Ada","last_name":"Lovelace","date_of_birth":"2000-06-15"}`, viewNow))

	f := mountedForm(t, st, bus.New(), clock, "p-1")
	assert.Equal(t, "Ada", f.Input().FirstName, "mount restores the draft")

	_, err := f.Submit(ctx)
	require.NoError(t, err)

	_, ok, err := st.GetDraft(ctx, FormID)
	require.NoError(t, err)
	assert.False(t, ok, "submit deletes the draft")
}

func TestForm_ClearResetsAndBroadcasts(t *testing.T) {
	st := newViewStore(t)
	b := bus.New()
	clock := testutil.NewClock(viewNow)
	ctx := context.Background()

	f := mountedForm(t, st, b, clock)
	other := mountedForm(t, st, b, clock)

	require.NoError(t, f.SetField("first_name", "Ada"))
	require.NoError(t, other.SetField("first_name", "Grace"))

	require.NoError(t, f.Clear(ctx))

	assert.Equal(t, record.PatientInput{}, f.Input())
	assert.Equal(t, record.PatientInput{}, other.Input(), "clear converges every session")

	_, ok, err := st.GetDraft(ctx, FormID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestForm_MalformedDraftSkipped(t *testing.T) {
	st := newViewStore(t)
	clock := testutil.NewClock(viewNow)
	ctx := context.Background()

	require.NoError(t, st.PutDraft(ctx, FormID, "{corrupt", viewNow))

	f := mountedForm(t, st, bus.New(), clock)

	assert.Equal(t, record.PatientInput{}, f.Input(), "corrupt draft leaves empty fields")
	assert.Equal(t, Ready, f.State())
}

func TestForm_SetFieldUnknownName(t *testing.T) {
	st := newViewStore(t)
	clock := testutil.NewClock(viewNow)

	f := mountedForm(t, st, bus.New(), clock)

	err := f.SetField("favorite_color", "blue")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "favorite_color")
}
