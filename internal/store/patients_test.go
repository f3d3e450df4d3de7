package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/wardbook/internal/record"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testPatient(id string, created time.Time) record.Patient {
	return record.Patient{
		ID: id,
		PatientInput: record.PatientInput{
			FirstName:   "Ada",
			LastName:    "Lovelace",
			DateOfBirth: "1815-12-10",
			Gender:      "female",
			Email:       "ada@example.org",
			Allergies:   "none known",
		},
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func TestInsertPatient_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created := time.Date(2024, 6, 15, 10, 30, 0, 0, time.UTC)
	want := testPatient("p-1", created)

	if err := s.InsertPatient(ctx, want); err != nil {
		t.Fatalf("InsertPatient() failed: %v", err)
	}

	got, err := s.GetPatient(ctx, "p-1")
	if err != nil {
		t.Fatalf("GetPatient() failed: %v", err)
	}

	if got.ID != want.ID || got.PatientInput != want.PatientInput {
		t.Errorf("round trip mismatch:\n got  %+v\n want %+v", got, want)
	}
	if !got.CreatedAt.Equal(want.CreatedAt) || !got.UpdatedAt.Equal(want.UpdatedAt) {
		t.Errorf("timestamp mismatch: got %v/%v, want %v/%v",
			got.CreatedAt, got.UpdatedAt, want.CreatedAt, want.UpdatedAt)
	}
}

func TestInsertPatient_DuplicateIDIgnored(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created := time.Date(2024, 6, 15, 10, 30, 0, 0, time.UTC)
	p := testPatient("p-1", created)

	if err := s.InsertPatient(ctx, p); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}

	// Same ID with different fields: silently ignored, first write wins.
	p2 := p
	p2.FirstName = "Someone"
	if err := s.InsertPatient(ctx, p2); err != nil {
		t.Fatalf("duplicate insert should not error: %v", err)
	}

	got, err := s.GetPatient(ctx, "p-1")
	if err != nil {
		t.Fatalf("GetPatient() failed: %v", err)
	}
	if got.FirstName != "Ada" {
		t.Errorf("duplicate insert overwrote row: got first_name %q", got.FirstName)
	}

	count, err := s.CountPatients(ctx)
	if err != nil {
		t.Fatalf("CountPatients() failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 row after duplicate insert, got %d", count)
	}
}

func TestCountPatientsSince(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	day := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	older := testPatient("p-old", day.Add(-time.Hour))
	today1 := testPatient("p-1", day.Add(9*time.Hour))
	today2 := testPatient("p-2", day.Add(10*time.Hour))

	for _, p := range []record.Patient{older, today1, today2} {
		if err := s.InsertPatient(ctx, p); err != nil {
			t.Fatalf("InsertPatient(%s) failed: %v", p.ID, err)
		}
	}

	count, err := s.CountPatientsSince(ctx, day)
	if err != nil {
		t.Fatalf("CountPatientsSince() failed: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 patients since midnight, got %d", count)
	}
}

func TestRecentPatients_NewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2024, 6, 15, 8, 0, 0, 0, time.UTC)
	for i, id := range []string{"p-1", "p-2", "p-3"} {
		p := testPatient(id, base.Add(time.Duration(i)*time.Hour))
		if err := s.InsertPatient(ctx, p); err != nil {
			t.Fatalf("InsertPatient(%s) failed: %v", id, err)
		}
	}

	recent, err := s.RecentPatients(ctx, 2)
	if err != nil {
		t.Fatalf("RecentPatients() failed: %v", err)
	}

	if len(recent) != 2 {
		t.Fatalf("expected 2 patients, got %d", len(recent))
	}
	if recent[0].ID != "p-3" || recent[1].ID != "p-2" {
		t.Errorf("wrong order: got %s, %s", recent[0].ID, recent[1].ID)
	}
}

func TestRecentPatients_EmptyIsNotNil(t *testing.T) {
	s := newTestStore(t)

	recent, err := s.RecentPatients(context.Background(), 5)
	if err != nil {
		t.Fatalf("RecentPatients() failed: %v", err)
	}
	if recent == nil {
		t.Error("expected empty slice, got nil")
	}
	if len(recent) != 0 {
		t.Errorf("expected no patients, got %d", len(recent))
	}
}
