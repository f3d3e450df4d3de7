package view

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/wardbook/internal/bus"
	"github.com/roach88/wardbook/internal/debounce"
	"github.com/roach88/wardbook/internal/persist"
	"github.com/roach88/wardbook/internal/record"
	"github.com/roach88/wardbook/internal/store"
)

// FormID is the single logical form of this application.
const FormID = "patient-registration"

// PatientAdded is the payload of a patient-added notification.
type PatientAdded struct {
	ID string `json:"id"`
}

// Form is the patient-registration form controller.
//
// Field edits autosave as a draft after a quiet period; Submit constructs an
// immutable patient record, clears the draft, and announces the new row.
type Form struct {
	st   *store.Store
	bus  *bus.Bus
	now  func() time.Time
	ids  record.IDGenerator
	save *debounce.Debouncer

	mu    sync.Mutex
	state State
	input record.PatientInput
	sub   *bus.Subscription
}

// FormOption configures a Form.
type FormOption func(*Form)

// WithFormClock overrides the form's time source.
func WithFormClock(now func() time.Time) FormOption {
	return func(f *Form) {
		f.now = now
	}
}

// WithFormIDs overrides the patient ID generator (FixedGenerator in tests).
func WithFormIDs(ids record.IDGenerator) FormOption {
	return func(f *Form) {
		f.ids = ids
	}
}

// WithFormAutosaveDelay overrides the draft autosave quiet period.
func WithFormAutosaveDelay(d time.Duration) FormOption {
	return func(f *Form) {
		f.save = debounce.New(d)
	}
}

// NewForm creates a registration form over an explicit store and bus.
func NewForm(st *store.Store, b *bus.Bus, opts ...FormOption) *Form {
	f := &Form{
		st:   st,
		bus:  b,
		now:  time.Now,
		ids:  record.UUIDv7Generator{},
		save: debounce.New(debounce.DefaultDelay),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Mount restores the saved draft, if any, and subscribes to the bus.
// A malformed draft is logged and skipped, leaving empty fields.
func (f *Form) Mount(ctx context.Context) error {
	f.mu.Lock()
	f.state = Loading

	var draft record.PatientInput
	if ok, err := persist.LoadJSON(ctx, f.st, persist.NamespaceForms, FormID, &draft); err != nil {
		slog.Warn("form: skipping draft hydration", "error", err)
	} else if ok {
		f.input = draft
	}

	f.state = Ready
	f.mu.Unlock()

	f.sub = f.bus.Subscribe(f.handle)
	return nil
}

// Unmount flushes the pending draft autosave and cancels the subscription.
func (f *Form) Unmount() {
	f.save.Flush()
	f.sub.Cancel()
}

// State returns the controller state.
func (f *Form) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Input returns the current field values.
func (f *Form) Input() record.PatientInput {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.input
}

// SetField updates one field by its column name and schedules a debounced
// draft autosave. Returns an error for an unknown field name.
func (f *Form) SetField(field, value string) error {
	f.mu.Lock()
	if err := setInputField(&f.input, field, value); err != nil {
		f.mu.Unlock()
		return err
	}
	snapshot := f.input
	f.mu.Unlock()

	f.scheduleAutosave(snapshot)
	return nil
}

// SetInput replaces all field values at once (batch intake path) and
// schedules a draft autosave.
func (f *Form) SetInput(in record.PatientInput) {
	f.mu.Lock()
	f.input = in
	f.mu.Unlock()

	f.scheduleAutosave(in)
}

// scheduleAutosave arms the debouncer with the given draft snapshot.
// Only the final snapshot within a quiet period is persisted.
func (f *Form) scheduleAutosave(draft record.PatientInput) {
	f.save.Trigger(func() {
		now := f.now()
		if err := persist.Save(context.Background(), f.st, persist.NamespaceForms, FormID, draft, now); err != nil {
			slog.Warn("form: draft autosave failed", "error", err)
			return
		}
		f.bus.Publish(bus.KindDraftSaved, nil)
	})
}

// Submit validates the current fields, inserts a new immutable patient row,
// deletes the draft, resets the form, and publishes patient-added with the
// new row's id.
func (f *Form) Submit(ctx context.Context) (record.Patient, error) {
	f.save.Stop() // the submit supersedes any pending draft save

	f.mu.Lock()
	input := f.input
	f.mu.Unlock()

	p, err := record.New(input, f.ids.NewID(), f.now())
	if err != nil {
		return record.Patient{}, err
	}

	if err := f.st.InsertPatient(ctx, p); err != nil {
		return record.Patient{}, fmt.Errorf("submit: %w", err)
	}

	// Draft cleanup is best-effort; the insert already succeeded.
	if err := f.st.DeleteDraft(ctx, FormID); err != nil {
		slog.Warn("form: draft cleanup failed", "error", err)
	}

	f.mu.Lock()
	f.input = record.PatientInput{}
	f.mu.Unlock()

	f.bus.Publish(bus.KindPatientAdded, PatientAdded{ID: p.ID})
	return p, nil
}

// Clear resets the form fields, deletes the draft, and publishes
// form-cleared.
func (f *Form) Clear(ctx context.Context) error {
	f.save.Stop()

	f.mu.Lock()
	f.input = record.PatientInput{}
	f.mu.Unlock()

	if err := f.st.DeleteDraft(ctx, FormID); err != nil {
		return err
	}

	f.bus.Publish(bus.KindFormCleared, nil)
	return nil
}

// handle dispatches bus notifications. Unrecognized kinds are ignored.
func (f *Form) handle(n bus.Notification) {
	switch n.Kind {
	case bus.KindFormCleared:
		// Another session cleared the form; converge. Receiving our own
		// clear is harmless (reset is idempotent).
		f.mu.Lock()
		f.input = record.PatientInput{}
		f.mu.Unlock()
	case bus.KindDraftSaved:
		// Another session flushed a draft; re-read it.
		f.reloadDraft(context.Background())
	}
}

// reloadDraft re-reads the persisted draft, retaining current fields on
// failure.
func (f *Form) reloadDraft(ctx context.Context) {
	var draft record.PatientInput
	ok, err := persist.LoadJSON(ctx, f.st, persist.NamespaceForms, FormID, &draft)
	if err != nil {
		slog.Warn("form: draft reload failed", "error", err)
		return
	}
	if !ok {
		return
	}

	f.mu.Lock()
	f.input = draft
	f.mu.Unlock()
}

// setInputField maps a column name to its struct field.
func setInputField(in *record.PatientInput, field, value string) error {
	switch field {
	case "first_name":
		in.FirstName = value
	case "last_name":
		in.LastName = value
	case "date_of_birth":
		in.DateOfBirth = value
	case "gender":
		in.Gender = value
	case "email":
		in.Email = value
	case "phone":
		in.Phone = value
	case "address":
		in.Address = value
	case "insurance_provider":
		in.InsuranceProvider = value
	case "insurance_number":
		in.InsuranceNumber = value
	case "medical_conditions":
		in.MedicalConditions = value
	case "medications":
		in.Medications = value
	case "allergies":
		in.Allergies = value
	default:
		return fmt.Errorf("unknown form field %q", field)
	}
	return nil
}
