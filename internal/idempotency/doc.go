// Package idempotency derives and reconciles the request keys that make
// capture, process, and export replay-safe. Key derivation is deterministic
// and side-effect free; the store's unique constraints do the actual
// deduplication.
package idempotency
