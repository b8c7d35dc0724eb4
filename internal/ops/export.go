package ops

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"intake/internal/idempotency"
	"intake/internal/lifecycle"
	"intake/internal/logging"
	"intake/internal/services"
	"intake/internal/services/export"
	"intake/internal/store"
)

// ExportRequest asks for an item's latest card to be rendered into files.
type ExportRequest struct {
	ItemID    string
	Formats   []string
	HeaderKey string
	BodyKey   string
}

// ExportResult reports the rendered (or replayed) export payload.
type ExportResult struct {
	Item             *store.Item
	Export           *export.Result
	IdempotentReplay bool
}

// Export renders the item's latest card artifact into shareable files and
// moves the item to shipped. Replays return the previously committed payload
// verbatim; a render that produces zero files drives the item to
// failed_export and consumes retry budget.
func (s *Service) Export(ctx context.Context, req ExportRequest) (*ExportResult, error) {
	key, err := idempotency.Reconcile(req.HeaderKey, req.BodyKey)
	if err != nil {
		return nil, NewError(CodeValidation, "idempotency key mismatch", err)
	}
	formats, err := normalizeFormats(req.Formats)
	if err != nil {
		return nil, err
	}
	if key == "" {
		key = uuid.NewString()
	}
	composite := idempotency.ExportKey(req.ItemID, key)

	if replay, err := s.replayExport(ctx, req.ItemID, composite); err != nil {
		return nil, err
	} else if replay != nil {
		return replay, nil
	}

	item, err := s.requireItem(ctx, req.ItemID)
	if err != nil {
		return nil, err
	}
	if !lifecycle.CanExport(item.Status) {
		return nil, Errorf(CodeProcessNotAllowed, "export not allowed from status %s", item.Status)
	}
	if item.Status == lifecycle.StatusFailedExport {
		if err := s.checkRetryBudget(ctx, item.ID); err != nil {
			return nil, err
		}
	}

	latest, err := s.store.LatestArtifacts(ctx, item.ID)
	if err != nil {
		return nil, NewError(CodeInternal, "load artifacts", err)
	}
	card, ok := latest[store.ArtifactCard]
	if !ok {
		return nil, Errorf(CodeValidation, "item %s has no card artifact to export", item.ID)
	}

	result, renderErr := s.exporter.Render(ctx, card.Payload, item.ID, formats)
	if renderErr == nil && (result == nil || len(result.Files) == 0) {
		renderErr = errors.New("renderer produced no files")
	}
	if renderErr != nil {
		// Malformed input is rejected without touching item state; only
		// genuine render failures consume retry budget.
		if errors.Is(renderErr, services.ErrValidation) {
			return nil, NewError(CodeValidation, "card cannot be rendered", renderErr)
		}
		return nil, s.failExport(ctx, item, renderErr)
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return nil, NewError(CodeInternal, "encode export payload", err)
	}
	rec := &store.ExportRecord{RequestKey: composite, ItemID: item.ID, Payload: payload}
	stored, created, err := s.store.SaveExportRecord(ctx, rec)
	if err != nil {
		return nil, NewError(CodeInternal, "commit export", err)
	}
	if !created {
		return exportReplay(item, stored)
	}

	artifact := &store.Artifact{
		ItemID:          item.ID,
		Type:            store.ArtifactExport,
		CreatedBy:       store.CreatedBySystem,
		TemplateVersion: result.TemplateVersion,
		Payload:         payload,
	}
	if err := s.store.WriteArtifact(ctx, artifact); err != nil {
		return nil, NewError(CodeInternal, "record export artifact", err)
	}
	if err := s.store.TransitionStatus(ctx, item.ID, item.Status, lifecycle.StatusShipped); err != nil {
		if errors.Is(err, store.ErrStateConflict) {
			return nil, NewError(CodeStateConflict, "item status changed concurrently", err)
		}
		return nil, NewError(CodeInternal, "mark item shipped", err)
	}
	item.Status = lifecycle.StatusShipped

	s.logger.Info("exported item",
		logging.String(logging.FieldItemID, item.ID),
		logging.Int("files", len(result.Files)))
	return &ExportResult{Item: item, Export: result}, nil
}

// normalizeFormats rejects formats the renderer does not know so a mistyped
// request never reaches the failure path.
func normalizeFormats(formats []string) ([]string, error) {
	out := make([]string, 0, len(formats))
	for _, format := range formats {
		normalized := strings.ToLower(strings.TrimSpace(format))
		switch normalized {
		case export.FormatMarkdown, export.FormatJSON:
			out = append(out, normalized)
		default:
			return nil, Errorf(CodeValidation, "unknown export format %q", format)
		}
	}
	return out, nil
}

// replayExport resolves a request key against previously committed exports.
func (s *Service) replayExport(ctx context.Context, itemID, requestKey string) (*ExportResult, error) {
	rec, err := s.store.FindExportRecord(ctx, requestKey)
	if err != nil {
		return nil, NewError(CodeInternal, "lookup export record", err)
	}
	if rec == nil {
		return nil, nil
	}
	item, err := s.requireItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	return exportReplay(item, rec)
}

func exportReplay(item *store.Item, rec *store.ExportRecord) (*ExportResult, error) {
	var result export.Result
	if err := json.Unmarshal(rec.Payload, &result); err != nil {
		return nil, NewError(CodeDataCorruption, "stored export payload is unreadable", err)
	}
	return &ExportResult{Item: item, Export: &result, IdempotentReplay: true}, nil
}

// failExport records the failed export against the retry budget and drives
// the item into failed_export.
func (s *Service) failExport(ctx context.Context, item *store.Item, renderErr error) error {
	message := fmt.Sprintf("export failed: %v", renderErr)
	if _, err := s.store.RecordFailedJob(ctx, item.ID, store.KindExport, message); err != nil {
		return NewError(CodeInternal, "record failed export", err)
	}
	failed, err := s.store.CountFailedJobs(ctx, item.ID)
	if err != nil {
		return NewError(CodeInternal, "count failed jobs", err)
	}
	decision := s.policy.Evaluate(failed)
	failure := lifecycle.FailureInfo{
		FailedStep:    lifecycle.StepExport,
		ErrorCode:     CodeExportRenderFailed,
		Message:       message,
		Retryable:     decision.Retryable,
		RetryAttempts: decision.Attempts,
		RetryLimit:    decision.Limit,
	}
	if err := s.store.TransitionToFailed(ctx, item.ID, item.Status, lifecycle.StatusFailedExport, failure.ToJSON()); err != nil {
		s.logger.Warn("export failure transition lost",
			logging.String(logging.FieldItemID, item.ID),
			logging.Error(err))
	}
	s.logger.Error("export failed",
		logging.String(logging.FieldItemID, item.ID),
		logging.Error(renderErr))
	return NewError(CodeExportRenderFailed, message, renderErr)
}
