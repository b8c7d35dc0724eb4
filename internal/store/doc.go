// Package store persists items, jobs, artifacts, and export records in
// SQLite.
//
// All status changes are single-row compare-and-swap updates guarded by an
// expected-prior-value predicate; zero affected rows surfaces as
// ErrStateConflict rather than being silently ignored. Artifact writes are
// append-only with the next version computed inside the insert. Timestamps
// are stored as RFC3339Nano text.
package store
