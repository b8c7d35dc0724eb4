package ops

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"intake/internal/idempotency"
	"intake/internal/lifecycle"
	"intake/internal/logging"
	"intake/internal/store"
)

// BatchRequest selects items for a bulk operation. Items are scanned in
// (created_at, id) order; Offset and Limit page through that order. DryRun
// previews the outcome without applying any transition.
type BatchRequest struct {
	Statuses []lifecycle.Status
	Priority string
	Offset   int
	Limit    int
	DryRun   bool
}

// BatchOutcome records the result for one scanned item.
type BatchOutcome struct {
	ItemID    string
	From      lifecycle.Status
	To        lifecycle.Status
	Applied   bool
	ErrorCode string
	Error     string
}

// BatchResult summarizes a bulk operation.
type BatchResult struct {
	Outcomes []BatchOutcome
	Scanned  int
	Applied  int
	DryRun   bool
}

// BatchRetry re-queues failed items that still have retry budget. The status
// filter defaults to all failed statuses and rejects non-failed ones.
func (s *Service) BatchRetry(ctx context.Context, req BatchRequest) (*BatchResult, error) {
	statuses := req.Statuses
	if len(statuses) == 0 {
		statuses = []lifecycle.Status{
			lifecycle.StatusFailedExtraction,
			lifecycle.StatusFailedAI,
			lifecycle.StatusFailedExport,
		}
	}
	for _, status := range statuses {
		if !lifecycle.IsFailed(status) {
			return nil, Errorf(CodeValidation, "batch retry only applies to failed statuses, got %s", status)
		}
	}

	items, err := s.scan(ctx, req, statuses)
	if err != nil {
		return nil, err
	}
	result := &BatchResult{DryRun: req.DryRun, Scanned: len(items)}
	for _, item := range items {
		outcome := BatchOutcome{ItemID: item.ID, From: item.Status, To: lifecycle.StatusQueued}
		if err := s.checkRetryBudget(ctx, item.ID); err != nil {
			recordOutcomeError(&outcome, err)
			result.Outcomes = append(result.Outcomes, outcome)
			continue
		}
		if !req.DryRun {
			if err := s.retryOne(ctx, item); err != nil {
				recordOutcomeError(&outcome, err)
				result.Outcomes = append(result.Outcomes, outcome)
				continue
			}
			outcome.Applied = true
			result.Applied++
		}
		result.Outcomes = append(result.Outcomes, outcome)
	}
	s.logBatch("retry", result)
	return result, nil
}

// BatchArchive parks every scanned item that is not processing or already
// archived.
func (s *Service) BatchArchive(ctx context.Context, req BatchRequest) (*BatchResult, error) {
	items, err := s.scan(ctx, req, req.Statuses)
	if err != nil {
		return nil, err
	}
	result := &BatchResult{DryRun: req.DryRun, Scanned: len(items)}
	for _, item := range items {
		outcome := BatchOutcome{ItemID: item.ID, From: item.Status, To: lifecycle.StatusArchived}
		if !lifecycle.CanArchive(item.Status) {
			outcome.ErrorCode = CodeProcessNotAllowed
			outcome.Error = "archive not allowed from status " + string(item.Status)
			result.Outcomes = append(result.Outcomes, outcome)
			continue
		}
		if !req.DryRun {
			if _, err := s.Archive(ctx, item.ID); err != nil {
				recordOutcomeError(&outcome, err)
				result.Outcomes = append(result.Outcomes, outcome)
				continue
			}
			outcome.Applied = true
			result.Applied++
		}
		result.Outcomes = append(result.Outcomes, outcome)
	}
	s.logBatch("archive", result)
	return result, nil
}

// BatchUnarchive restores archived items, re-queueing those with incomplete
// artifacts.
func (s *Service) BatchUnarchive(ctx context.Context, req BatchRequest) (*BatchResult, error) {
	items, err := s.scan(ctx, req, []lifecycle.Status{lifecycle.StatusArchived})
	if err != nil {
		return nil, err
	}
	result := &BatchResult{DryRun: req.DryRun, Scanned: len(items)}
	for _, item := range items {
		outcome := BatchOutcome{ItemID: item.ID, From: item.Status}
		complete, err := s.store.HasPrimaryArtifacts(ctx, item.ID)
		if err != nil {
			return nil, NewError(CodeInternal, "check artifacts", err)
		}
		if complete {
			outcome.To = lifecycle.StatusReady
		} else {
			outcome.To = lifecycle.StatusQueued
		}
		if !req.DryRun {
			if _, err := s.Unarchive(ctx, item.ID); err != nil {
				recordOutcomeError(&outcome, err)
				result.Outcomes = append(result.Outcomes, outcome)
				continue
			}
			outcome.Applied = true
			result.Applied++
		}
		result.Outcomes = append(result.Outcomes, outcome)
	}
	s.logBatch("unarchive", result)
	return result, nil
}

func (s *Service) scan(ctx context.Context, req BatchRequest, statuses []lifecycle.Status) ([]*store.Item, error) {
	filter := store.ItemFilter{
		Statuses: statuses,
		Priority: req.Priority,
		Offset:   req.Offset,
		Limit:    req.Limit,
	}
	items, err := s.store.ListItems(ctx, filter)
	if err != nil {
		return nil, NewError(CodeInternal, "scan items", err)
	}
	return items, nil
}

// retryOne moves one failed item back to queued with a fresh job.
func (s *Service) retryOne(ctx context.Context, item *store.Item) error {
	if err := s.store.TransitionStatus(ctx, item.ID, item.Status, lifecycle.StatusQueued); err != nil {
		if errors.Is(err, store.ErrStateConflict) {
			return NewError(CodeStateConflict, "item status changed concurrently", err)
		}
		return NewError(CodeInternal, "queue item", err)
	}
	if _, _, err := s.store.EnqueueJob(ctx, item.ID, store.KindProcess, idempotency.ProcessKey(item.ID, ModeReprocess, uuid.NewString())); err != nil {
		return NewError(CodeInternal, "enqueue job", err)
	}
	return nil
}

func recordOutcomeError(outcome *BatchOutcome, err error) {
	outcome.ErrorCode = CodeOf(err)
	outcome.Error = err.Error()
}

func (s *Service) logBatch(operation string, result *BatchResult) {
	s.logger.Info("batch operation finished",
		logging.String("operation", operation),
		logging.Int("scanned", result.Scanned),
		logging.Int("applied", result.Applied),
		logging.Bool("dry_run", result.DryRun))
}
