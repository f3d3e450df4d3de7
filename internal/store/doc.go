// Package store provides SQLite-backed durable storage for patient records,
// form drafts, and console settings.
//
// The store owns three tables, created idempotently on open:
//   - patients: demographic and clinical fields, immutable after insert
//   - form_persistence: one JSON draft per logical form, upsert on form_id
//   - sql_settings: opaque key/value settings for the console, upsert on key
//
// # Write Discipline
//
//   - Patient rows are insert-only. There is no update or delete path, so no
//     read-modify-write races exist across sessions.
//   - Drafts and settings use upsert (insert-or-replace on primary key);
//     repeated saves with the same value differ only in updated_at.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: enforce referential integrity
//
// All timestamps are stored as RFC 3339 UTC text.
package store
