package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"intake/internal/lifecycle"
	"intake/internal/logging"
	"intake/internal/services"
	"intake/internal/services/engine"
	"intake/internal/services/extract"
	"intake/internal/store"
)

// Extractor fetches and normalizes content for a URL.
type Extractor interface {
	Extract(ctx context.Context, url string) (*extract.Content, error)
}

// Engine produces enrichment payloads from intent and extracted text.
type Engine interface {
	Version() string
	Enrich(ctx context.Context, req engine.Request) (*engine.Result, error)
}

// StepError tags a failure with the pipeline step it occurred in so the
// caller can choose the matching failed status.
type StepError struct {
	Step lifecycle.Step
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// ClassifyStep infers the failed step from an error. StepError tags win;
// otherwise extraction-shaped sentinels (timeout, external fetch) map to
// extract and everything else to pipeline.
func ClassifyStep(err error) lifecycle.Step {
	var stepErr *StepError
	if errors.As(err, &stepErr) {
		return stepErr.Step
	}
	if errors.Is(err, services.ErrTimeout) {
		return lifecycle.StepExtract
	}
	return lifecycle.StepPipeline
}

// ErrorCode derives a stable failure code from an error's sentinel marker.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, services.ErrTimeout):
		return "timeout"
	case errors.Is(err, services.ErrValidation):
		return "validation"
	case errors.Is(err, services.ErrNotFound):
		return "not_found"
	case errors.Is(err, services.ErrExternalTool):
		return "collaborator_failed"
	case errors.Is(err, services.ErrConfiguration):
		return "configuration"
	default:
		return "internal"
	}
}

// Processor runs the enrichment pipeline for one leased job.
type Processor struct {
	store          *store.Store
	extractor      Extractor
	engine         Engine
	extractTimeout time.Duration
	profile        string
	logger         *slog.Logger
}

// NewProcessor wires the pipeline collaborators. extractTimeout bounds the
// extraction call; zero selects the 8 second default.
func NewProcessor(st *store.Store, extractor Extractor, eng Engine, extractTimeout time.Duration, profile string, logger *slog.Logger) *Processor {
	if extractTimeout <= 0 {
		extractTimeout = 8 * time.Second
	}
	return &Processor{
		store:          st,
		extractor:      extractor,
		engine:         eng,
		extractTimeout: extractTimeout,
		profile:        profile,
		logger:         logging.NewComponentLogger(logger, "pipeline"),
	}
}

// Run executes one leased job end to end: queued item to processing,
// extraction, enrichment, artifact writes, then processing to ready.
// Failures come back as StepError so the scheduler can pick the matching
// failed status; the item is left in processing for the scheduler to drive.
func (p *Processor) Run(ctx context.Context, job *store.Job) error {
	item, err := p.store.GetItem(ctx, job.ItemID)
	if err != nil {
		return &StepError{Step: lifecycle.StepPipeline, Err: err}
	}
	if item == nil {
		return &StepError{
			Step: lifecycle.StepPipeline,
			Err:  services.Wrap(services.ErrNotFound, "pipeline", "load item", job.ItemID, nil),
		}
	}

	// A reclaimed job can find its item already in processing from an
	// interrupted run; the lease guards single execution, so resume.
	if item.Status != lifecycle.StatusProcessing {
		if err := p.store.TransitionStatus(ctx, item.ID, lifecycle.StatusQueued, lifecycle.StatusProcessing); err != nil {
			return &StepError{Step: lifecycle.StepPipeline, Err: err}
		}
	}

	ctx = services.WithItemID(ctx, item.ID)
	ctx = services.WithJobID(ctx, job.ID)
	ctx = services.WithRunID(ctx, job.RunID)
	log := logging.WithContext(ctx, p.logger)

	log.Info("processing item", logging.String("url", item.URL))

	extractCtx, cancel := context.WithTimeout(ctx, p.extractTimeout)
	content, err := p.extractor.Extract(extractCtx, item.URL)
	cancel()
	if err != nil {
		return &StepError{Step: lifecycle.StepExtract, Err: err}
	}

	if content.Meta.Title != "" && item.Title == "" {
		if err := p.store.UpdateTitle(ctx, item.ID, content.Meta.Title); err != nil {
			log.Warn("record title", logging.Error(err))
		}
	}

	result, err := p.engine.Enrich(ctx, engine.Request{
		URL:        item.URL,
		IntentText: item.IntentText,
		Text:       content.NormalizedText,
		Profile:    p.profile,
		SourceType: item.SourceType,
		Title:      content.Meta.Title,
		Domain:     item.Domain,
		RunID:      job.RunID,
	})
	if err != nil {
		return &StepError{Step: lifecycle.StepPipeline, Err: err}
	}

	if err := p.writeArtifacts(ctx, item.ID, job.RunID, content, result); err != nil {
		return &StepError{Step: lifecycle.StepPipeline, Err: err}
	}

	if err := p.store.TransitionToReady(ctx, item.ID, result.Score.Priority, result.Score.MatchScore); err != nil {
		return &StepError{Step: lifecycle.StepPipeline, Err: err}
	}

	log.Info("item ready",
		logging.String("priority", result.Score.Priority),
		logging.Float64("match_score", result.Score.MatchScore),
	)
	return nil
}

func (p *Processor) writeArtifacts(ctx context.Context, itemID, runID string, content *extract.Content, result *engine.Result) error {
	extractionPayload, err := json.Marshal(content)
	if err != nil {
		return fmt.Errorf("marshal extraction: %w", err)
	}
	summary, score, todos, card, err := result.MarshalPayloads()
	if err != nil {
		return fmt.Errorf("marshal enrichment payloads: %w", err)
	}

	engineVersion := p.engine.Version()
	writes := []struct {
		artifactType string
		payload      json.RawMessage
	}{
		{store.ArtifactExtraction, extractionPayload},
		{store.ArtifactSummary, summary},
		{store.ArtifactScore, score},
		{store.ArtifactTodos, todos},
		{store.ArtifactCard, card},
	}
	for _, write := range writes {
		art := &store.Artifact{
			ItemID:        itemID,
			Type:          write.artifactType,
			CreatedBy:     store.CreatedBySystem,
			RunID:         runID,
			EngineVersion: engineVersion,
			Payload:       write.payload,
		}
		if err := p.store.WriteArtifact(ctx, art); err != nil {
			return fmt.Errorf("write %s artifact: %w", write.artifactType, err)
		}
	}
	return nil
}
