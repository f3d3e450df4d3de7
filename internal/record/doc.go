// Package record defines the patient domain model: input validation,
// constructed records, and ID generation.
//
// A Patient is immutable after creation - the application has no update or
// delete path, so created_at and updated_at are set once at construction.
package record
