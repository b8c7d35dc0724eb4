package ops_test

import (
	"context"
	"testing"

	"intake/internal/ops"
	"intake/internal/store"
	"intake/internal/testsupport"
)

func TestGetItemSelectsPinnedVersions(t *testing.T) {
	svc, st, _ := newService(t)
	ctx := context.Background()
	item := testsupport.NewItem(t, st, "https://q.test/pin", "read")
	writeArtifact(t, st, item.ID, store.ArtifactTodos, `[{"title":"one"}]`)
	writeArtifact(t, st, item.ID, store.ArtifactTodos, `[{"title":"two"}]`)

	detail, err := svc.GetItem(ctx, item.ID, map[string]int{store.ArtifactTodos: 1}, false)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got := detail.Artifacts[store.ArtifactTodos].Version; got != 1 {
		t.Fatalf("expected pinned v1, got v%d", got)
	}

	// A pin on a version that was never written falls back to latest.
	detail, err = svc.GetItem(ctx, item.ID, map[string]int{store.ArtifactTodos: 99}, false)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got := detail.Artifacts[store.ArtifactTodos].Version; got != 2 {
		t.Fatalf("expected fallback to v2, got v%d", got)
	}
}

func TestGetItemHistory(t *testing.T) {
	svc, st, _ := newService(t)
	ctx := context.Background()
	item := testsupport.NewItem(t, st, "https://q.test/hist", "read")
	writeArtifact(t, st, item.ID, store.ArtifactSummary, `{"insight":"a"}`)
	writeArtifact(t, st, item.ID, store.ArtifactSummary, `{"insight":"b"}`)

	detail, err := svc.GetItem(ctx, item.ID, nil, true)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	history := detail.History[store.ArtifactSummary]
	if len(history) != 2 {
		t.Fatalf("expected 2 versions, got %d", len(history))
	}
	if history[0].Version != 2 || history[1].Version != 1 {
		t.Fatalf("history must be newest first: %d, %d", history[0].Version, history[1].Version)
	}
}

func TestGetItemValidation(t *testing.T) {
	svc, st, _ := newService(t)
	ctx := context.Background()
	item := testsupport.NewItem(t, st, "https://q.test/bad", "read")

	if _, err := svc.GetItem(ctx, item.ID, map[string]int{"nonsense": 1}, false); err == nil || ops.CodeOf(err) != ops.CodeValidation {
		t.Fatalf("unknown type: expected validation, got %v", err)
	}
	if _, err := svc.GetItem(ctx, item.ID, map[string]int{store.ArtifactCard: 0}, false); err == nil || ops.CodeOf(err) != ops.CodeValidation {
		t.Fatalf("zero version: expected validation, got %v", err)
	}
	if _, err := svc.GetItem(ctx, "missing", nil, false); err == nil || ops.CodeOf(err) != ops.CodeNotFound {
		t.Fatalf("unknown item: expected not_found, got %v", err)
	}
}

func TestCompareArtifactReportsChangedPaths(t *testing.T) {
	svc, st, _ := newService(t)
	ctx := context.Background()
	item := testsupport.NewItem(t, st, "https://q.test/diff", "read")
	writeArtifact(t, st, item.ID, store.ArtifactTodos, `[{"title":"read intro","eta":"10m"}]`)
	writeArtifact(t, st, item.ID, store.ArtifactTodos, `[{"title":"read everything","eta":"10m"}]`)

	summary, err := svc.CompareArtifact(ctx, item.ID, store.ArtifactTodos, 1, 2)
	if err != nil {
		t.Fatalf("compare: %v", err)
	}
	if len(summary.ChangedPaths) != 1 || summary.ChangedPaths[0] != "[0].title" {
		t.Fatalf("unexpected changed paths %v", summary.ChangedPaths)
	}
	if len(summary.AddedPaths) != 0 || len(summary.RemovedPaths) != 0 {
		t.Fatalf("no paths were added or removed: %+v", summary)
	}
}

func TestCompareArtifactErrors(t *testing.T) {
	svc, st, _ := newService(t)
	ctx := context.Background()
	item := testsupport.NewItem(t, st, "https://q.test/differr", "read")
	writeArtifact(t, st, item.ID, store.ArtifactTodos, `[]`)

	if _, err := svc.CompareArtifact(ctx, item.ID, store.ArtifactTodos, 1, 2); err == nil || ops.CodeOf(err) != ops.CodeNotFound {
		t.Fatalf("missing version: expected not_found, got %v", err)
	}
	if _, err := svc.CompareArtifact(ctx, item.ID, "nonsense", 1, 1); err == nil || ops.CodeOf(err) != ops.CodeValidation {
		t.Fatalf("unknown type: expected validation, got %v", err)
	}
}
