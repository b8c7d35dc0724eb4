package ops

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"intake/internal/idempotency"
	"intake/internal/lifecycle"
	"intake/internal/logging"
	"intake/internal/store"
)

// IntentResult reports an intent edit. Job is non-nil when the edit also
// re-queued the item.
type IntentResult struct {
	Item    *store.Item
	Job     *store.Job
	Requeue bool
}

// EditIntent replaces the item's stated intent and refreshes its capture
// fingerprint. Rejected while the item is processing. With reprocess set the
// item is re-queued so artifacts are regenerated against the new intent.
func (s *Service) EditIntent(ctx context.Context, id, intent string, reprocess bool) (*IntentResult, error) {
	intent = strings.TrimSpace(intent)
	if intent == "" {
		return nil, Errorf(CodeValidation, "intent text is required")
	}
	item, err := s.requireItem(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.Status == lifecycle.StatusProcessing {
		return nil, Errorf(CodeProcessNotAllowed, "item %s is processing", item.ID)
	}

	captureKey := idempotency.CaptureKey(item.URL, idempotency.NormalizeIntent(intent))
	if err := s.store.UpdateIntent(ctx, item.ID, intent, captureKey); err != nil {
		switch {
		case store.IsUniqueViolation(err):
			return nil, NewError(CodeValidation, "another item already captures this url and intent", err)
		case errors.Is(err, store.ErrStateConflict):
			return nil, NewError(CodeProcessNotAllowed, "item moved into processing concurrently", err)
		default:
			return nil, NewError(CodeInternal, "update intent", err)
		}
	}
	item.IntentText = intent
	item.CaptureKey = captureKey

	result := &IntentResult{Item: item}
	if !reprocess || item.Status == lifecycle.StatusQueued {
		return result, nil
	}
	if !lifecycle.CanEnqueue(item.Status) {
		return nil, Errorf(CodeProcessNotAllowed, "cannot reprocess from status %s", item.Status)
	}
	if lifecycle.IsFailed(item.Status) {
		if err := s.checkRetryBudget(ctx, item.ID); err != nil {
			return nil, err
		}
	}
	if err := s.store.TransitionStatus(ctx, item.ID, item.Status, lifecycle.StatusQueued); err != nil {
		if errors.Is(err, store.ErrStateConflict) {
			return nil, NewError(CodeStateConflict, "item status changed concurrently", err)
		}
		return nil, NewError(CodeInternal, "queue item", err)
	}
	job, _, err := s.store.EnqueueJob(ctx, item.ID, store.KindProcess, idempotency.ProcessKey(item.ID, ModeRegenerate, uuid.NewString()))
	if err != nil {
		return nil, NewError(CodeInternal, "enqueue job", err)
	}
	item.Status = lifecycle.StatusQueued
	result.Job = job
	result.Requeue = true

	s.logger.Info("intent updated and item requeued",
		logging.String(logging.FieldItemID, item.ID),
		logging.Int64(logging.FieldJobID, job.ID))
	return result, nil
}
