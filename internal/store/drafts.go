package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// PutDraft upserts the serialized draft for a logical form.
// One row per form_id; the draft is the full JSON field set of the form.
func (s *Store) PutDraft(ctx context.Context, formID, formData string, now time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO form_persistence (form_id, form_data, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(form_id) DO UPDATE SET
			form_data = excluded.form_data,
			updated_at = excluded.updated_at
	`, formID, formData, now.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("put draft %q: %w", formID, err)
	}
	return nil
}

// GetDraft returns the saved draft for a form.
// Returns ("", false, nil) when no draft exists.
func (s *Store) GetDraft(ctx context.Context, formID string) (string, bool, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `
		SELECT form_data FROM form_persistence WHERE form_id = ?
	`, formID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get draft %q: %w", formID, err)
	}
	return data, true, nil
}

// DeleteDraft removes a form's draft. Deleting a missing draft is a no-op.
func (s *Store) DeleteDraft(ctx context.Context, formID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM form_persistence WHERE form_id = ?`, formID); err != nil {
		return fmt.Errorf("delete draft %q: %w", formID, err)
	}
	return nil
}
