package store

import "errors"

// ErrStateConflict signals an optimistic concurrency loss: a compare-and-swap
// matched zero rows because something else changed the row first. Callers
// should re-read and retry the whole operation.
var ErrStateConflict = errors.New("state conflict")
