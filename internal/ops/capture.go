package ops

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"intake/internal/idempotency"
	"intake/internal/lifecycle"
	"intake/internal/logging"
	"intake/internal/store"
)

// Source types accepted on capture.
const (
	SourceWeb        = "web"
	SourceYouTube    = "youtube"
	SourceNewsletter = "newsletter"
	SourceOther      = "other"
)

var knownSourceTypes = map[string]struct{}{
	SourceWeb:        {},
	SourceYouTube:    {},
	SourceNewsletter: {},
	SourceOther:      {},
}

// CaptureRequest is a new reference to ingest. HeaderKey and BodyKey are the
// caller-supplied idempotency keys from the transport header and request
// body; when both are present they must match.
type CaptureRequest struct {
	URL        string
	IntentText string
	Title      string
	SourceType string
	HeaderKey  string
	BodyKey    string
}

// CaptureResult reports the item a capture resolved to. Job is nil on
// replay.
type CaptureResult struct {
	Item             *store.Item
	Job              *store.Job
	IdempotentReplay bool
}

// Capture creates an item and queues its first processing job, or replays an
// earlier capture with the same fingerprint. A lost race on the capture_key
// uniqueness constraint is folded into the replay path.
func (s *Service) Capture(ctx context.Context, req CaptureRequest) (*CaptureResult, error) {
	key, err := idempotency.Reconcile(req.HeaderKey, req.BodyKey)
	if err != nil {
		return nil, NewError(CodeValidation, "idempotency key mismatch", err)
	}
	canonical, host, err := idempotency.CanonicalizeURL(req.URL)
	if err != nil {
		return nil, NewError(CodeValidation, "invalid url", err)
	}
	sourceType, err := resolveSourceType(req.SourceType, host)
	if err != nil {
		return nil, err
	}
	intent := strings.TrimSpace(req.IntentText)
	if key == "" {
		key = idempotency.CaptureKey(canonical, idempotency.NormalizeIntent(intent))
	}

	if existing, err := s.store.FindByCaptureKey(ctx, key); err != nil {
		return nil, NewError(CodeInternal, "lookup capture key", err)
	} else if existing != nil {
		return &CaptureResult{Item: existing, IdempotentReplay: true}, nil
	}

	item := &store.Item{
		ID:          uuid.NewString(),
		CaptureKey:  key,
		URL:         canonical,
		URLOriginal: strings.TrimSpace(req.URL),
		Title:       strings.TrimSpace(req.Title),
		Domain:      host,
		SourceType:  sourceType,
		IntentText:  intent,
		Status:      lifecycle.StatusCaptured,
	}
	if err := s.store.CreateItem(ctx, item); err != nil {
		if store.IsUniqueViolation(err) {
			existing, lookupErr := s.store.FindByCaptureKey(ctx, key)
			if lookupErr != nil || existing == nil {
				return nil, NewError(CodeInternal, "resolve concurrent capture", err)
			}
			return &CaptureResult{Item: existing, IdempotentReplay: true}, nil
		}
		return nil, NewError(CodeInternal, "create item", err)
	}

	if err := s.store.TransitionStatus(ctx, item.ID, lifecycle.StatusCaptured, lifecycle.StatusQueued); err != nil {
		return nil, NewError(CodeStateConflict, "queue captured item", err)
	}
	job, _, err := s.store.EnqueueJob(ctx, item.ID, store.KindProcess, "capture:"+key)
	if err != nil {
		return nil, NewError(CodeInternal, "enqueue capture job", err)
	}
	item.Status = lifecycle.StatusQueued

	s.logger.Info("captured item",
		logging.String(logging.FieldItemID, item.ID),
		logging.String("domain", item.Domain),
		logging.Int64(logging.FieldJobID, job.ID))
	return &CaptureResult{Item: item, Job: job}, nil
}

func resolveSourceType(requested, host string) (string, error) {
	requested = strings.ToLower(strings.TrimSpace(requested))
	if requested != "" {
		if _, ok := knownSourceTypes[requested]; !ok {
			return "", Errorf(CodeValidation, "unknown source type %q", requested)
		}
		return requested, nil
	}
	if strings.HasSuffix(host, "youtube.com") || host == "youtu.be" {
		return SourceYouTube, nil
	}
	return SourceWeb, nil
}
