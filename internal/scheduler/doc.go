// Package scheduler owns the single-worker job loop: lease-based selection
// with expiry reclamation, bounded by an in-process busy flag so ticks never
// overlap, and an explicit Start/Stop lifecycle.
package scheduler
