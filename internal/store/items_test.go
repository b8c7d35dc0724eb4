package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"intake/internal/lifecycle"
	"intake/internal/store"
	"intake/internal/testsupport"
)

func TestCreateAndGetItem(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	item := &store.Item{
		ID:         uuid.NewString(),
		CaptureKey: "key-1",
		URL:        "https://example.org/a",
		SourceType: "web",
		IntentText: "learn things",
	}
	if err := st.CreateItem(ctx, item); err != nil {
		t.Fatalf("create item: %v", err)
	}

	got, err := st.GetItem(ctx, item.ID)
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if got == nil {
		t.Fatal("expected item")
	}
	if got.Status != lifecycle.StatusCaptured {
		t.Fatalf("unexpected status %s", got.Status)
	}
	if got.CaptureKey != "key-1" || got.URL != "https://example.org/a" {
		t.Fatalf("unexpected fields %+v", got)
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Fatal("timestamps not persisted")
	}
}

func TestCaptureKeyUniqueness(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	first := &store.Item{ID: uuid.NewString(), CaptureKey: "dup", URL: "https://example.org", SourceType: "web"}
	if err := st.CreateItem(ctx, first); err != nil {
		t.Fatalf("create first: %v", err)
	}

	second := &store.Item{ID: uuid.NewString(), CaptureKey: "dup", URL: "https://example.org", SourceType: "web"}
	err := st.CreateItem(ctx, second)
	if err == nil {
		t.Fatal("expected unique violation")
	}
	if !store.IsUniqueViolation(err) {
		t.Fatalf("expected unique violation, got %v", err)
	}

	existing, err := st.FindByCaptureKey(ctx, "dup")
	if err != nil {
		t.Fatalf("find by capture key: %v", err)
	}
	if existing == nil || existing.ID != first.ID {
		t.Fatalf("expected original item, got %+v", existing)
	}
}

func TestTransitionStatusCAS(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	item := testsupport.NewItem(t, st, "https://example.org", "intent")

	if err := st.TransitionStatus(ctx, item.ID, lifecycle.StatusCaptured, lifecycle.StatusQueued); err != nil {
		t.Fatalf("captured -> queued: %v", err)
	}

	err := st.TransitionStatus(ctx, item.ID, lifecycle.StatusCaptured, lifecycle.StatusQueued)
	if !errors.Is(err, store.ErrStateConflict) {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestQueuedTransitionClearsFailure(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	item := testsupport.NewItem(t, st, "https://example.org", "intent")

	if err := st.TransitionStatus(ctx, item.ID, lifecycle.StatusCaptured, lifecycle.StatusQueued); err != nil {
		t.Fatalf("to queued: %v", err)
	}
	if err := st.TransitionStatus(ctx, item.ID, lifecycle.StatusQueued, lifecycle.StatusProcessing); err != nil {
		t.Fatalf("to processing: %v", err)
	}
	failure := `{"failed_step":"extract","error_code":"fetch_failed","message":"boom","retryable":true,"retry_attempts":1,"retry_limit":3}`
	if err := st.TransitionToFailed(ctx, item.ID, lifecycle.StatusProcessing, lifecycle.StatusFailedExtraction, failure); err != nil {
		t.Fatalf("to failed: %v", err)
	}

	got, err := st.GetItem(ctx, item.ID)
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if got.FailureJSON == "" {
		t.Fatal("failure payload not stored")
	}
	info, err := got.Failure()
	if err != nil {
		t.Fatalf("parse failure: %v", err)
	}
	if info.FailedStep != lifecycle.StepExtract {
		t.Fatalf("unexpected failed step %q", info.FailedStep)
	}

	if err := st.TransitionStatus(ctx, item.ID, lifecycle.StatusFailedExtraction, lifecycle.StatusQueued); err != nil {
		t.Fatalf("retry to queued: %v", err)
	}
	got, err = st.GetItem(ctx, item.ID)
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if got.FailureJSON != "" {
		t.Fatalf("failure payload should be cleared, got %q", got.FailureJSON)
	}
}

func TestTransitionToReadyRecordsScore(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	item := testsupport.NewItem(t, st, "https://example.org", "intent")

	if err := st.TransitionStatus(ctx, item.ID, lifecycle.StatusCaptured, lifecycle.StatusQueued); err != nil {
		t.Fatalf("to queued: %v", err)
	}
	if err := st.TransitionStatus(ctx, item.ID, lifecycle.StatusQueued, lifecycle.StatusProcessing); err != nil {
		t.Fatalf("to processing: %v", err)
	}
	if err := st.TransitionToReady(ctx, item.ID, "read_next", 87.5); err != nil {
		t.Fatalf("to ready: %v", err)
	}

	got, err := st.GetItem(ctx, item.ID)
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if got.Status != lifecycle.StatusReady {
		t.Fatalf("unexpected status %s", got.Status)
	}
	if got.Priority != "read_next" || got.MatchScore == nil || *got.MatchScore != 87.5 {
		t.Fatalf("score not recorded: %+v", got)
	}
}

func TestUpdateIntentRejectedWhileProcessing(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	item := testsupport.NewItem(t, st, "https://example.org", "intent")

	if err := st.TransitionStatus(ctx, item.ID, lifecycle.StatusCaptured, lifecycle.StatusQueued); err != nil {
		t.Fatalf("to queued: %v", err)
	}
	if err := st.TransitionStatus(ctx, item.ID, lifecycle.StatusQueued, lifecycle.StatusProcessing); err != nil {
		t.Fatalf("to processing: %v", err)
	}

	err := st.UpdateIntent(ctx, item.ID, "new intent", uuid.NewString())
	if !errors.Is(err, store.ErrStateConflict) {
		t.Fatalf("expected state conflict, got %v", err)
	}

	if err := st.TransitionToReady(ctx, item.ID, "if_time", 10); err != nil {
		t.Fatalf("to ready: %v", err)
	}
	if err := st.UpdateIntent(ctx, item.ID, "new intent", uuid.NewString()); err != nil {
		t.Fatalf("update intent: %v", err)
	}
	got, _ := st.GetItem(ctx, item.ID)
	if got.IntentText != "new intent" {
		t.Fatalf("intent not updated: %q", got.IntentText)
	}
}

func TestListItemsFilterAndPagination(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		testsupport.NewItem(t, st, "https://example.org", "intent")
	}
	archived := testsupport.NewItem(t, st, "https://example.org/z", "intent")
	if err := st.TransitionStatus(ctx, archived.ID, lifecycle.StatusCaptured, lifecycle.StatusArchived); err != nil {
		t.Fatalf("archive: %v", err)
	}

	captured, err := st.ListItems(ctx, store.ItemFilter{Statuses: []lifecycle.Status{lifecycle.StatusCaptured}})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(captured) != 5 {
		t.Fatalf("expected 5 captured items, got %d", len(captured))
	}

	page, err := st.ListItems(ctx, store.ItemFilter{Statuses: []lifecycle.Status{lifecycle.StatusCaptured}, Offset: 2, Limit: 2})
	if err != nil {
		t.Fatalf("paged list: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("expected 2 items, got %d", len(page))
	}
	if page[0].ID != captured[2].ID || page[1].ID != captured[3].ID {
		t.Fatal("pagination did not preserve deterministic order")
	}
}

func TestHealthSummary(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	item := testsupport.NewItem(t, st, "https://example.org", "intent")
	if _, _, err := st.EnqueueJob(ctx, item.ID, store.KindProcess, "rk-health"); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	health, err := st.Health(ctx)
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	if health.TotalItems != 1 || health.ByStatus[lifecycle.StatusCaptured] != 1 {
		t.Fatalf("unexpected item stats %+v", health)
	}
	if health.QueuedJobs != 1 {
		t.Fatalf("unexpected job stats %+v", health)
	}
}
