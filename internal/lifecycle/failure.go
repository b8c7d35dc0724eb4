package lifecycle

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Step identifies the pipeline phase a failure is attributed to.
type Step string

const (
	StepExtract  Step = "extract"
	StepPipeline Step = "pipeline"
	StepExport   Step = "export"
)

// StatusForStep maps a failed step to the item status that records it.
func StatusForStep(step Step) Status {
	switch step {
	case StepExtract:
		return StatusFailedExtraction
	case StepExport:
		return StatusFailedExport
	default:
		return StatusFailedAI
	}
}

// FailureInfo is the structured failure payload stored on an item. It is
// cleared whenever the item transitions back into queued.
type FailureInfo struct {
	FailedStep    Step   `json:"failed_step"`
	ErrorCode     string `json:"error_code"`
	Message       string `json:"message"`
	Retryable     bool   `json:"retryable"`
	RetryAttempts int    `json:"retry_attempts"`
	RetryLimit    int    `json:"retry_limit"`
}

// ToJSON serializes the failure payload for storage.
func (f FailureInfo) ToJSON() string {
	b, _ := json.Marshal(f)
	return string(b)
}

// ParseFailure decodes a stored failure payload. Empty input yields nil.
func ParseFailure(raw string) (*FailureInfo, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var info FailureInfo
	if err := json.Unmarshal([]byte(raw), &info); err != nil {
		return nil, fmt.Errorf("parse failure payload: %w", err)
	}
	return &info, nil
}
