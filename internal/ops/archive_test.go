package ops_test

import (
	"context"
	"testing"

	"intake/internal/lifecycle"
	"intake/internal/ops"
	"intake/internal/testsupport"
)

func TestArchiveAndUnarchiveReady(t *testing.T) {
	svc, st, _ := newService(t)
	ctx := context.Background()
	item := testsupport.NewItem(t, st, "https://a.test/ready", "read")
	moveTo(t, st, item.ID, lifecycle.StatusReady)
	writePrimaryArtifacts(t, st, item.ID)

	archived, err := svc.Archive(ctx, item.ID)
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	if archived.Item.Status != lifecycle.StatusArchived {
		t.Fatalf("expected archived, got %s", archived.Item.Status)
	}
	if _, err := svc.Archive(ctx, item.ID); err == nil || ops.CodeOf(err) != ops.CodeValidation {
		t.Fatalf("double archive: expected validation, got %v", err)
	}

	// Complete artifacts restore straight to ready.
	restored, err := svc.Unarchive(ctx, item.ID)
	if err != nil {
		t.Fatalf("unarchive: %v", err)
	}
	if restored.Item.Status != lifecycle.StatusReady {
		t.Fatalf("expected ready, got %s", restored.Item.Status)
	}
	if restored.Job != nil {
		t.Fatal("complete item must not be requeued")
	}
}

func TestUnarchiveIncompleteRequeues(t *testing.T) {
	svc, st, _ := newService(t)
	ctx := context.Background()
	item := testsupport.NewItem(t, st, "https://a.test/partial", "read")

	if _, err := svc.Archive(ctx, item.ID); err != nil {
		t.Fatalf("archive: %v", err)
	}
	restored, err := svc.Unarchive(ctx, item.ID)
	if err != nil {
		t.Fatalf("unarchive: %v", err)
	}
	if restored.Item.Status != lifecycle.StatusQueued {
		t.Fatalf("expected queued, got %s", restored.Item.Status)
	}
	if restored.Job == nil {
		t.Fatal("incomplete item must be requeued with a job")
	}
}

func TestUnarchiveRequiresArchived(t *testing.T) {
	svc, st, _ := newService(t)
	item := testsupport.NewItem(t, st, "https://a.test/not-archived", "read")

	_, err := svc.Unarchive(context.Background(), item.ID)
	if err == nil || ops.CodeOf(err) != ops.CodeValidation {
		t.Fatalf("expected validation, got %v", err)
	}
}
