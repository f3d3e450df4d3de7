// Package persist serializes JSON-able values under a (namespace, key) pair
// into the store with upsert semantics, and hydrates them back out.
//
// Persistence here is best-effort: callers log failures and continue, the
// view never crashes over a failed save. Malformed values read back from
// storage are likewise recoverable - hydration of that one field is skipped
// and defaults remain.
package persist

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Namespaces are a fixed whitelist. Identifiers never come from user input;
// only values are parameterized.
const (
	// NamespaceSettings maps to the sql_settings table (keyed by key).
	NamespaceSettings = "sql_settings"
	// NamespaceForms maps to the form_persistence table (keyed by form_id).
	NamespaceForms = "form_persistence"
)

// Storage is the subset of the store the helper needs.
// Satisfied by *store.Store; tests supply fakes.
type Storage interface {
	PutSetting(ctx context.Context, key, value string, now time.Time) error
	GetSetting(ctx context.Context, key string) (string, bool, error)
	PutDraft(ctx context.Context, formID, formData string, now time.Time) error
	GetDraft(ctx context.Context, formID string) (string, bool, error)
}

// Save serializes value and upserts it under (namespace, key), stamping now.
//
// Strings pass through unchanged; everything else is JSON-encoded. Repeated
// calls with the same value leave the store in the same observable state
// except for updated_at (idempotent upsert).
func Save(ctx context.Context, st Storage, namespace, key string, value any, now time.Time) error {
	text, err := stringify(value)
	if err != nil {
		return fmt.Errorf("persist %s/%s: %w", namespace, key, err)
	}

	switch namespace {
	case NamespaceSettings:
		if err := st.PutSetting(ctx, key, text, now); err != nil {
			return fmt.Errorf("persist %s/%s: %w", namespace, key, err)
		}
	case NamespaceForms:
		if err := st.PutDraft(ctx, key, text, now); err != nil {
			return fmt.Errorf("persist %s/%s: %w", namespace, key, err)
		}
	default:
		return fmt.Errorf("persist %s/%s: unknown namespace", namespace, key)
	}

	return nil
}

// LoadString reads the raw stored string under (namespace, key).
// Returns ("", false, nil) when the key has never been written.
func LoadString(ctx context.Context, st Storage, namespace, key string) (string, bool, error) {
	switch namespace {
	case NamespaceSettings:
		return st.GetSetting(ctx, key)
	case NamespaceForms:
		return st.GetDraft(ctx, key)
	default:
		return "", false, fmt.Errorf("load %s/%s: unknown namespace", namespace, key)
	}
}

// LoadJSON reads and decodes the stored value under (namespace, key) into
// dest. Returns (false, nil) when the key is absent. A decode failure is
// returned to the caller, who logs it and keeps defaults - stored garbage
// must not take a view down.
func LoadJSON(ctx context.Context, st Storage, namespace, key string, dest any) (bool, error) {
	text, ok, err := LoadString(ctx, st, namespace, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal([]byte(text), dest); err != nil {
		return false, fmt.Errorf("load %s/%s: decode: %w", namespace, key, err)
	}
	return true, nil
}

// stringify converts a value to its stored text form.
func stringify(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("encode: %w", err)
		}
		return string(data), nil
	}
}
