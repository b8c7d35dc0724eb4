// Package pipeline executes the enrichment pipeline for one leased job:
// extraction, enrichment, artifact writes, and the final status transition.
// Failures are tagged with the step they occurred in so callers can map them
// to the matching failed status.
package pipeline
