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

// ArchiveResult reports an archive or unarchive transition. Job is non-nil
// when unarchiving had to re-queue the item.
type ArchiveResult struct {
	Item *store.Item
	Job  *store.Job
}

// Archive parks an item. Legal from every status except processing.
func (s *Service) Archive(ctx context.Context, id string) (*ArchiveResult, error) {
	item, err := s.requireItem(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.Status == lifecycle.StatusProcessing {
		return nil, Errorf(CodeProcessNotAllowed, "item %s is processing", item.ID)
	}
	if item.Status == lifecycle.StatusArchived {
		return nil, Errorf(CodeValidation, "item %s is already archived", item.ID)
	}
	if err := s.store.TransitionStatus(ctx, item.ID, item.Status, lifecycle.StatusArchived); err != nil {
		if errors.Is(err, store.ErrStateConflict) {
			return nil, NewError(CodeStateConflict, "item status changed concurrently", err)
		}
		return nil, NewError(CodeInternal, "archive item", err)
	}
	item.Status = lifecycle.StatusArchived
	s.logger.Info("archived item", logging.String(logging.FieldItemID, item.ID))
	return &ArchiveResult{Item: item}, nil
}

// Unarchive restores an archived item: back to ready when all primary
// artifacts are present, otherwise re-queued for processing.
func (s *Service) Unarchive(ctx context.Context, id string) (*ArchiveResult, error) {
	item, err := s.requireItem(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.Status != lifecycle.StatusArchived {
		return nil, Errorf(CodeValidation, "item %s is not archived", item.ID)
	}

	complete, err := s.store.HasPrimaryArtifacts(ctx, item.ID)
	if err != nil {
		return nil, NewError(CodeInternal, "check artifacts", err)
	}
	if complete {
		if err := s.store.TransitionStatus(ctx, item.ID, lifecycle.StatusArchived, lifecycle.StatusReady); err != nil {
			if errors.Is(err, store.ErrStateConflict) {
				return nil, NewError(CodeStateConflict, "item status changed concurrently", err)
			}
			return nil, NewError(CodeInternal, "unarchive item", err)
		}
		item.Status = lifecycle.StatusReady
		s.logger.Info("unarchived item", logging.String(logging.FieldItemID, item.ID))
		return &ArchiveResult{Item: item}, nil
	}

	if err := s.store.TransitionStatus(ctx, item.ID, lifecycle.StatusArchived, lifecycle.StatusQueued); err != nil {
		if errors.Is(err, store.ErrStateConflict) {
			return nil, NewError(CodeStateConflict, "item status changed concurrently", err)
		}
		return nil, NewError(CodeInternal, "unarchive item", err)
	}
	job, _, err := s.store.EnqueueJob(ctx, item.ID, store.KindProcess, idempotency.ProcessKey(item.ID, ModeProcess, uuid.NewString()))
	if err != nil {
		return nil, NewError(CodeInternal, "enqueue job", err)
	}
	item.Status = lifecycle.StatusQueued
	s.logger.Info("unarchived item for reprocessing",
		logging.String(logging.FieldItemID, item.ID),
		logging.Int64(logging.FieldJobID, job.ID))
	return &ArchiveResult{Item: item, Job: job}, nil
}
