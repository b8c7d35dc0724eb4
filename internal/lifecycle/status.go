package lifecycle

import "strings"

// Status represents the lifecycle of a captured item.
type Status string

const (
	StatusCaptured         Status = "captured"
	StatusQueued           Status = "queued"
	StatusProcessing       Status = "processing"
	StatusReady            Status = "ready"
	StatusFailedExtraction Status = "failed_extraction"
	StatusFailedAI         Status = "failed_ai"
	StatusFailedExport     Status = "failed_export"
	StatusShipped          Status = "shipped"
	StatusArchived         Status = "archived"
)

var allStatuses = []Status{
	StatusCaptured,
	StatusQueued,
	StatusProcessing,
	StatusReady,
	StatusFailedExtraction,
	StatusFailedAI,
	StatusFailedExport,
	StatusShipped,
	StatusArchived,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

var failedStatuses = map[Status]struct{}{
	StatusFailedExtraction: {},
	StatusFailedAI:         {},
	StatusFailedExport:     {},
}

// exportSources are the statuses an export may start from. An export that
// succeeds lands the item in shipped; one that produces no files lands it in
// failed_export, from where it may be retried.
var exportSources = map[Status]struct{}{
	StatusReady:        {},
	StatusShipped:      {},
	StatusFailedExport: {},
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsFailed reports whether the status is one of the failure states.
func IsFailed(status Status) bool {
	_, ok := failedStatuses[status]
	return ok
}

// CanEnqueue reports whether an item in the given status may be moved into
// queued: fresh captures, failed items being retried, and ready or archived
// items being regenerated.
func CanEnqueue(from Status) bool {
	if IsFailed(from) {
		return true
	}
	switch from {
	case StatusCaptured, StatusReady, StatusArchived:
		return true
	default:
		return false
	}
}

// CanExport reports whether an export may be attempted from the given status.
func CanExport(from Status) bool {
	_, ok := exportSources[from]
	return ok
}

// CanArchive reports whether an item in the given status may be archived.
// Processing is a hard lock; everything else can be parked.
func CanArchive(from Status) bool {
	return from != StatusProcessing && from != StatusArchived
}

// CanTransition validates a single status move against the transition table.
// Every write path applies the move as a compare-and-swap keyed on the prior
// status, so this table is the single authority on legal moves.
func CanTransition(from, to Status) bool {
	if _, ok := statusSet[from]; !ok {
		return false
	}
	if _, ok := statusSet[to]; !ok {
		return false
	}
	switch to {
	case StatusQueued:
		return CanEnqueue(from)
	case StatusProcessing:
		return from == StatusQueued
	case StatusReady:
		return from == StatusProcessing || from == StatusArchived
	case StatusFailedExtraction, StatusFailedAI:
		return from == StatusProcessing
	case StatusShipped, StatusFailedExport:
		return CanExport(from)
	case StatusArchived:
		return CanArchive(from)
	default:
		return false
	}
}
