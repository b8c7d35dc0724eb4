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

// Processing modes. Each mode is legal from a different set of source
// statuses; all of them land the item in queued.
const (
	ModeProcess    = "process"
	ModeReprocess  = "reprocess"
	ModeRegenerate = "regenerate"
)

// ProcessRequest asks for an item to be (re)queued for processing.
type ProcessRequest struct {
	ItemID    string
	Mode      string
	HeaderKey string
	BodyKey   string
}

// ProcessResult reports the queued (or replayed) processing request.
type ProcessResult struct {
	Item             *store.Item
	Job              *store.Job
	IdempotentReplay bool
}

// Process queues an item for processing under one of the three modes. A
// request_key hit returns the current item state without re-validating the
// transition; state legality is only checked for fresh requests.
func (s *Service) Process(ctx context.Context, req ProcessRequest) (*ProcessResult, error) {
	key, err := idempotency.Reconcile(req.HeaderKey, req.BodyKey)
	if err != nil {
		return nil, NewError(CodeValidation, "idempotency key mismatch", err)
	}
	mode := strings.ToLower(strings.TrimSpace(req.Mode))
	if mode == "" {
		mode = ModeProcess
	}
	if mode != ModeProcess && mode != ModeReprocess && mode != ModeRegenerate {
		return nil, Errorf(CodeValidation, "unknown process mode %q", req.Mode)
	}
	if key == "" {
		key = uuid.NewString()
	}
	composite := idempotency.ProcessKey(req.ItemID, mode, key)

	if existing, err := s.store.JobByRequestKey(ctx, composite); err != nil {
		return nil, NewError(CodeInternal, "lookup request key", err)
	} else if existing != nil {
		item, err := s.requireItem(ctx, req.ItemID)
		if err != nil {
			return nil, err
		}
		return &ProcessResult{Item: item, Job: existing, IdempotentReplay: true}, nil
	}

	item, err := s.requireItem(ctx, req.ItemID)
	if err != nil {
		return nil, err
	}
	if item.Status == lifecycle.StatusProcessing {
		return nil, Errorf(CodeProcessNotAllowed, "item %s is processing", item.ID)
	}
	if !modeAllowed(mode, item.Status) {
		return nil, Errorf(CodeProcessNotAllowed, "mode %s not allowed from status %s", mode, item.Status)
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
	job, created, err := s.store.EnqueueJob(ctx, item.ID, store.KindProcess, composite)
	if err != nil {
		return nil, NewError(CodeInternal, "enqueue job", err)
	}
	item.Status = lifecycle.StatusQueued

	s.logger.Info("queued item for processing",
		logging.String(logging.FieldItemID, item.ID),
		logging.String("mode", mode),
		logging.Int64(logging.FieldJobID, job.ID))
	return &ProcessResult{Item: item, Job: job, IdempotentReplay: !created}, nil
}

func modeAllowed(mode string, status lifecycle.Status) bool {
	switch mode {
	case ModeProcess:
		return status == lifecycle.StatusCaptured
	case ModeReprocess:
		return lifecycle.IsFailed(status)
	case ModeRegenerate:
		return status == lifecycle.StatusReady || status == lifecycle.StatusArchived
	default:
		return false
	}
}

func (s *Service) requireItem(ctx context.Context, id string) (*store.Item, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, Errorf(CodeValidation, "item id is required")
	}
	item, err := s.store.GetItem(ctx, id)
	if err != nil {
		return nil, NewError(CodeInternal, "load item", err)
	}
	if item == nil {
		return nil, Errorf(CodeNotFound, "item %s not found", id)
	}
	return item, nil
}

// checkRetryBudget rejects further retries once the item has exhausted its
// failure budget.
func (s *Service) checkRetryBudget(ctx context.Context, itemID string) error {
	failed, err := s.store.CountFailedJobs(ctx, itemID)
	if err != nil {
		return NewError(CodeInternal, "count failed jobs", err)
	}
	decision := s.policy.Evaluate(failed)
	if !decision.Retryable {
		return Errorf(CodeRetryLimitReached, "item %s exhausted its retry budget (%d/%d failures)", itemID, decision.Attempts, decision.Limit)
	}
	return nil
}
