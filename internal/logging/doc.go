// Package logging assembles structured slog loggers and formatting helpers
// used across intake services.
//
// It owns the configurable console/JSON handlers, centralizes level and
// output plumbing, and exposes context-aware helpers so pipeline code can
// automatically tag log lines with item, job, and run identifiers. The
// package also provides a no-op logger for tests and wiring code that
// cannot fail.
package logging
