package ops_test

import (
	"context"
	"testing"

	"intake/internal/lifecycle"
	"intake/internal/ops"
	"intake/internal/retrypolicy"
	"intake/internal/testsupport"
)

func TestBatchRetry(t *testing.T) {
	svc, st, _ := newService(t)
	ctx := context.Background()

	fresh := testsupport.NewItem(t, st, "https://b.test/fresh", "read")
	failedItem(t, st, fresh.ID, 1)
	exhausted := testsupport.NewItem(t, st, "https://b.test/spent", "read")
	failedItem(t, st, exhausted.ID, retrypolicy.DefaultLimit)

	result, err := svc.BatchRetry(ctx, ops.BatchRequest{})
	if err != nil {
		t.Fatalf("batch retry: %v", err)
	}
	if result.Scanned != 2 {
		t.Fatalf("expected 2 scanned, got %d", result.Scanned)
	}
	if result.Applied != 1 {
		t.Fatalf("expected 1 applied, got %d", result.Applied)
	}
	outcomes := outcomesByID(result)
	if !outcomes[fresh.ID].Applied {
		t.Fatalf("fresh item must retry: %+v", outcomes[fresh.ID])
	}
	if outcomes[exhausted.ID].ErrorCode != ops.CodeRetryLimitReached {
		t.Fatalf("exhausted item must be blocked: %+v", outcomes[exhausted.ID])
	}

	got, _ := st.GetItem(ctx, fresh.ID)
	if got.Status != lifecycle.StatusQueued {
		t.Fatalf("expected queued, got %s", got.Status)
	}
	spent, _ := st.GetItem(ctx, exhausted.ID)
	if spent.Status != lifecycle.StatusFailedAI {
		t.Fatalf("blocked item must keep its status, got %s", spent.Status)
	}
}

func TestBatchRetryDryRun(t *testing.T) {
	svc, st, _ := newService(t)
	ctx := context.Background()
	item := testsupport.NewItem(t, st, "https://b.test/dry", "read")
	failedItem(t, st, item.ID, 1)

	result, err := svc.BatchRetry(ctx, ops.BatchRequest{DryRun: true})
	if err != nil {
		t.Fatalf("dry run: %v", err)
	}
	if result.Applied != 0 || len(result.Outcomes) != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
	got, _ := st.GetItem(ctx, item.ID)
	if got.Status != lifecycle.StatusFailedAI {
		t.Fatalf("dry run must not transition, got %s", got.Status)
	}
}

func TestBatchRetryRejectsNonFailedFilter(t *testing.T) {
	svc, _, _ := newService(t)
	_, err := svc.BatchRetry(context.Background(), ops.BatchRequest{
		Statuses: []lifecycle.Status{lifecycle.StatusReady},
	})
	if err == nil || ops.CodeOf(err) != ops.CodeValidation {
		t.Fatalf("expected validation, got %v", err)
	}
}

func TestBatchArchiveSkipsIneligible(t *testing.T) {
	svc, st, _ := newService(t)
	ctx := context.Background()

	ready := testsupport.NewItem(t, st, "https://b.test/arch1", "read")
	moveTo(t, st, ready.ID, lifecycle.StatusReady)
	locked := testsupport.NewItem(t, st, "https://b.test/arch2", "read")
	moveTo(t, st, locked.ID, lifecycle.StatusProcessing)

	result, err := svc.BatchArchive(ctx, ops.BatchRequest{})
	if err != nil {
		t.Fatalf("batch archive: %v", err)
	}
	outcomes := outcomesByID(result)
	if !outcomes[ready.ID].Applied {
		t.Fatalf("ready item must archive: %+v", outcomes[ready.ID])
	}
	if outcomes[locked.ID].ErrorCode != ops.CodeProcessNotAllowed {
		t.Fatalf("processing item must be skipped: %+v", outcomes[locked.ID])
	}
	got, _ := st.GetItem(ctx, locked.ID)
	if got.Status != lifecycle.StatusProcessing {
		t.Fatalf("processing item must keep its status, got %s", got.Status)
	}
}

func TestBatchUnarchive(t *testing.T) {
	svc, st, _ := newService(t)
	ctx := context.Background()

	complete := testsupport.NewItem(t, st, "https://b.test/un1", "read")
	moveTo(t, st, complete.ID, lifecycle.StatusReady)
	writePrimaryArtifacts(t, st, complete.ID)
	partial := testsupport.NewItem(t, st, "https://b.test/un2", "read")
	for _, id := range []string{complete.ID, partial.ID} {
		if _, err := svc.Archive(ctx, id); err != nil {
			t.Fatalf("archive %s: %v", id, err)
		}
	}

	result, err := svc.BatchUnarchive(ctx, ops.BatchRequest{})
	if err != nil {
		t.Fatalf("batch unarchive: %v", err)
	}
	if result.Applied != 2 {
		t.Fatalf("expected 2 applied, got %d", result.Applied)
	}
	first, _ := st.GetItem(ctx, complete.ID)
	if first.Status != lifecycle.StatusReady {
		t.Fatalf("complete item must be ready, got %s", first.Status)
	}
	second, _ := st.GetItem(ctx, partial.ID)
	if second.Status != lifecycle.StatusQueued {
		t.Fatalf("partial item must be queued, got %s", second.Status)
	}
}

func TestBatchPagination(t *testing.T) {
	svc, st, _ := newService(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		item := testsupport.NewItem(t, st, "https://b.test/page", "read")
		failedItem(t, st, item.ID, 0)
	}

	page, err := svc.BatchRetry(ctx, ops.BatchRequest{DryRun: true, Limit: 2})
	if err != nil {
		t.Fatalf("page 1: %v", err)
	}
	if page.Scanned != 2 {
		t.Fatalf("expected 2 scanned, got %d", page.Scanned)
	}
	rest, err := svc.BatchRetry(ctx, ops.BatchRequest{DryRun: true, Limit: 2, Offset: 2})
	if err != nil {
		t.Fatalf("page 2: %v", err)
	}
	if rest.Scanned != 1 {
		t.Fatalf("expected 1 scanned, got %d", rest.Scanned)
	}
}

func outcomesByID(result *ops.BatchResult) map[string]ops.BatchOutcome {
	byID := make(map[string]ops.BatchOutcome, len(result.Outcomes))
	for _, outcome := range result.Outcomes {
		byID[outcome.ItemID] = outcome
	}
	return byID
}
