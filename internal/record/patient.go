package record

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the wire format for birth dates.
const DateLayout = "2006-01-02"

// validGenders is the accepted gender vocabulary. Empty is allowed.
var validGenders = map[string]bool{
	"female": true,
	"male":   true,
	"other":  true,
}

// PatientInput holds the raw field values of the registration form.
// Field names match the patients table columns so drafts round-trip
// byte-for-byte through form_persistence.
type PatientInput struct {
	FirstName         string `json:"first_name" yaml:"first_name"`
	LastName          string `json:"last_name" yaml:"last_name"`
	DateOfBirth       string `json:"date_of_birth" yaml:"date_of_birth"`
	Gender            string `json:"gender,omitempty" yaml:"gender,omitempty"`
	Email             string `json:"email,omitempty" yaml:"email,omitempty"`
	Phone             string `json:"phone,omitempty" yaml:"phone,omitempty"`
	Address           string `json:"address,omitempty" yaml:"address,omitempty"`
	InsuranceProvider string `json:"insurance_provider,omitempty" yaml:"insurance_provider,omitempty"`
	InsuranceNumber   string `json:"insurance_number,omitempty" yaml:"insurance_number,omitempty"`
	MedicalConditions string `json:"medical_conditions,omitempty" yaml:"medical_conditions,omitempty"`
	Medications       string `json:"medications,omitempty" yaml:"medications,omitempty"`
	Allergies         string `json:"allergies,omitempty" yaml:"allergies,omitempty"`
}

// Patient is a constructed, validated record as stored in the patients table.
type Patient struct {
	ID string `json:"id"`
	PatientInput
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ValidationError reports a single invalid input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Validate checks the input against the registration rules.
// Returns the first violation found, or nil.
func (in PatientInput) Validate() error {
	if strings.TrimSpace(in.FirstName) == "" {
		return &ValidationError{Field: "first_name", Message: "required"}
	}
	if strings.TrimSpace(in.LastName) == "" {
		return &ValidationError{Field: "last_name", Message: "required"}
	}
	if in.DateOfBirth == "" {
		return &ValidationError{Field: "date_of_birth", Message: "required"}
	}
	if _, err := time.Parse(DateLayout, in.DateOfBirth); err != nil {
		return &ValidationError{Field: "date_of_birth", Message: "must be YYYY-MM-DD"}
	}
	if in.Gender != "" && !validGenders[in.Gender] {
		return &ValidationError{Field: "gender", Message: "must be one of female, male, other"}
	}
	if in.Email != "" && !strings.Contains(in.Email, "@") {
		return &ValidationError{Field: "email", Message: "missing @"}
	}
	return nil
}

// BirthDate parses the date_of_birth field.
func (in PatientInput) BirthDate() (time.Time, error) {
	t, err := time.Parse(DateLayout, in.DateOfBirth)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date_of_birth: %w", err)
	}
	return t, nil
}

// New constructs a Patient from validated input.
// The id is generated client-side (see IDGenerator); both timestamps are
// stamped with now because records are immutable after creation.
func New(in PatientInput, id string, now time.Time) (Patient, error) {
	if err := in.Validate(); err != nil {
		return Patient{}, err
	}
	ts := now.UTC()
	return Patient{
		ID:           id,
		PatientInput: in,
		CreatedAt:    ts,
		UpdatedAt:    ts,
	}, nil
}
