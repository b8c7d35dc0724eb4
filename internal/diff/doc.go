// Package diff computes structural differences between two versions of an
// artifact payload: exact added/removed/changed paths for machine use, plus a
// line-oriented change count for a human-scannable magnitude signal.
package diff
