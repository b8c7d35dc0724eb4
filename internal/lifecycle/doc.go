// Package lifecycle defines the item status enum, the central transition
// table, and the structured failure payload.
//
// Statuses move only through CanTransition; persistence applies each move as
// a compare-and-swap keyed on the expected prior status, so a lost race is
// reported as a state conflict instead of silently overwriting. Processing is
// a hard lock: no mutating operation is legal while an item is processing.
//
// Treat this package as the single source of truth for lifecycle semantics;
// handlers must not re-derive legality checks from status strings.
package lifecycle
