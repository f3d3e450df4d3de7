package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/roach88/wardbook/internal/record"
)

// timeLayout is the storage format for timestamps (RFC 3339 UTC).
const timeLayout = time.RFC3339

// InsertPatient inserts a patient record.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - duplicate IDs are
// silently ignored. Other constraint violations still return errors.
//
// Patients are insert-only; there is no update or delete path.
func (s *Store) InsertPatient(ctx context.Context, p record.Patient) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO patients
		(id, first_name, last_name, date_of_birth, gender, email, phone, address,
		 insurance_provider, insurance_number, medical_conditions, medications, allergies,
		 created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		p.ID,
		p.FirstName,
		p.LastName,
		p.DateOfBirth,
		p.Gender,
		p.Email,
		p.Phone,
		p.Address,
		p.InsuranceProvider,
		p.InsuranceNumber,
		p.MedicalConditions,
		p.Medications,
		p.Allergies,
		p.CreatedAt.UTC().Format(timeLayout),
		p.UpdatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert patient: %w", err)
	}

	return nil
}

// GetPatient retrieves a single patient by ID.
// Returns sql.ErrNoRows if not found.
func (s *Store) GetPatient(ctx context.Context, id string) (record.Patient, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, first_name, last_name, date_of_birth, gender, email, phone, address,
		       insurance_provider, insurance_number, medical_conditions, medications, allergies,
		       created_at, updated_at
		FROM patients
		WHERE id = ?
	`, id)

	return scanPatient(row)
}

// CountPatients returns the total number of patient rows.
func (s *Store) CountPatients(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM patients`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count patients: %w", err)
	}
	return count, nil
}

// CountPatientsSince returns the number of patients created at or after t.
func (s *Store) CountPatientsSince(ctx context.Context, t time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM patients WHERE created_at >= ?
	`, t.UTC().Format(timeLayout)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count patients since: %w", err)
	}
	return count, nil
}

// RecentPatients returns the most recently created patients, newest first.
// Ordering uses created_at with id as a deterministic tiebreaker.
func (s *Store) RecentPatients(ctx context.Context, limit int) ([]record.Patient, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, first_name, last_name, date_of_birth, gender, email, phone, address,
		       insurance_provider, insurance_number, medical_conditions, medications, allergies,
		       created_at, updated_at
		FROM patients
		ORDER BY created_at DESC, id COLLATE BINARY DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent patients: %w", err)
	}
	defer rows.Close()

	var patients []record.Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		patients = append(patients, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate patients: %w", err)
	}

	// Return empty slice instead of nil
	if patients == nil {
		patients = []record.Patient{}
	}

	return patients, nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for shared scanning.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanPatient scans one patient row in column order.
func scanPatient(row rowScanner) (record.Patient, error) {
	var p record.Patient
	var createdAt, updatedAt string

	err := row.Scan(
		&p.ID,
		&p.FirstName,
		&p.LastName,
		&p.DateOfBirth,
		&p.Gender,
		&p.Email,
		&p.Phone,
		&p.Address,
		&p.InsuranceProvider,
		&p.InsuranceNumber,
		&p.MedicalConditions,
		&p.Medications,
		&p.Allergies,
		&createdAt,
		&updatedAt,
	)
	if err == sql.ErrNoRows {
		return record.Patient{}, err
	}
	if err != nil {
		return record.Patient{}, fmt.Errorf("scan patient: %w", err)
	}

	if p.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return record.Patient{}, fmt.Errorf("parse created_at: %w", err)
	}
	if p.UpdatedAt, err = time.Parse(timeLayout, updatedAt); err != nil {
		return record.Patient{}, fmt.Errorf("parse updated_at: %w", err)
	}

	return p, nil
}
