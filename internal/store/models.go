package store

import (
	"encoding/json"
	"time"

	"intake/internal/lifecycle"
)

// Job kinds.
const (
	KindProcess = "process"
	KindExport  = "export"
)

// Job statuses.
const (
	JobQueued = "queued"
	JobLeased = "leased"
	JobDone   = "done"
	JobFailed = "failed"
)

// Artifact types.
const (
	ArtifactExtraction = "extraction"
	ArtifactSummary    = "summary"
	ArtifactScore      = "score"
	ArtifactTodos      = "todos"
	ArtifactCard       = "card"
	ArtifactExport     = "export"
)

// PrimaryArtifactTypes are the types whose presence makes an item "ready"
// for export.
var PrimaryArtifactTypes = []string{ArtifactSummary, ArtifactScore, ArtifactTodos, ArtifactCard}

// Artifact creators.
const (
	CreatedBySystem = "system"
	CreatedByUser   = "user"
)

// Item is a captured reference under processing.
type Item struct {
	ID          string
	CaptureKey  string
	URL         string
	URLOriginal string
	Title       string
	Domain      string
	SourceType  string
	IntentText  string
	Status      lifecycle.Status
	Priority    string
	MatchScore  *float64
	FailureJSON string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Failure decodes the stored failure payload, if any.
func (i *Item) Failure() (*lifecycle.FailureInfo, error) {
	if i == nil || i.FailureJSON == "" {
		return nil, nil
	}
	return lifecycle.ParseFailure(i.FailureJSON)
}

// Job is one unit of queued processing work for an item.
type Job struct {
	ID             int64
	ItemID         string
	Kind           string
	Status         string
	RunID          string
	Attempts       int
	LeaseOwner     string
	LeaseExpiresAt *time.Time
	RequestKey     string
	LastError      string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Artifact is one versioned output payload for an item.
type Artifact struct {
	ID              int64
	ItemID          string
	Type            string
	Version         int
	CreatedBy       string
	RunID           string
	EngineVersion   string
	TemplateVersion string
	Payload         json.RawMessage
	CreatedAt       time.Time
}

// ExportRecord is the stored result of a committed export, keyed for replay.
type ExportRecord struct {
	RequestKey string
	ItemID     string
	Payload    json.RawMessage
	CreatedAt  time.Time
}

// ItemFilter narrows ListItems results.
type ItemFilter struct {
	Statuses []lifecycle.Status
	Priority string
	Offset   int
	Limit    int
}

// HealthSummary aggregates queue state for diagnostic output.
type HealthSummary struct {
	TotalItems int
	ByStatus   map[lifecycle.Status]int
	QueuedJobs int
	LeasedJobs int
	FailedJobs int
}
