package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"intake/internal/store"
	"intake/internal/testsupport"
)

func TestEnqueueJobDeduplicatesOnRequestKey(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	item := testsupport.NewItem(t, st, "https://example.org", "intent")

	first, created, err := st.EnqueueJob(ctx, item.ID, store.KindProcess, "k1")
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if !created {
		t.Fatal("expected first enqueue to create a job")
	}

	second, created, err := st.EnqueueJob(ctx, item.ID, store.KindProcess, "k1")
	if err != nil {
		t.Fatalf("re-enqueue: %v", err)
	}
	if created {
		t.Fatal("expected dedup on request key")
	}
	if second.ID != first.ID {
		t.Fatalf("expected existing job %d, got %d", first.ID, second.ID)
	}

	jobs, err := st.JobsForItem(ctx, item.ID)
	if err != nil {
		t.Fatalf("jobs for item: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("exactly one job row expected, got %d", len(jobs))
	}
}

func TestNextQueuedJobIsFIFO(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	a := testsupport.NewItem(t, st, "https://example.org/a", "intent")
	b := testsupport.NewItem(t, st, "https://example.org/b", "intent")

	jobA, _, err := st.EnqueueJob(ctx, a.ID, store.KindProcess, "ka")
	if err != nil {
		t.Fatalf("enqueue a: %v", err)
	}
	if _, _, err := st.EnqueueJob(ctx, b.ID, store.KindProcess, "kb"); err != nil {
		t.Fatalf("enqueue b: %v", err)
	}

	next, err := st.NextQueuedJob(ctx)
	if err != nil {
		t.Fatalf("next queued: %v", err)
	}
	if next == nil || next.ID != jobA.ID {
		t.Fatalf("expected oldest job %d, got %+v", jobA.ID, next)
	}
}

func TestLeaseJobCAS(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	item := testsupport.NewItem(t, st, "https://example.org", "intent")
	job, _, err := st.EnqueueJob(ctx, item.ID, store.KindProcess, "k-lease")
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	owner := uuid.NewString()
	runID := uuid.NewString()
	expiry := time.Now().Add(time.Minute)

	won, err := st.LeaseJob(ctx, job.ID, owner, runID, expiry)
	if err != nil {
		t.Fatalf("lease: %v", err)
	}
	if !won {
		t.Fatal("expected to win lease")
	}

	won, err = st.LeaseJob(ctx, job.ID, uuid.NewString(), uuid.NewString(), expiry)
	if err != nil {
		t.Fatalf("second lease: %v", err)
	}
	if won {
		t.Fatal("second lease attempt must lose")
	}

	leased, err := st.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if leased.Status != store.JobLeased || leased.LeaseOwner != owner || leased.RunID != runID {
		t.Fatalf("lease fields not recorded: %+v", leased)
	}
	if leased.Attempts != 1 {
		t.Fatalf("expected attempts=1, got %d", leased.Attempts)
	}
	if leased.LeaseExpiresAt == nil {
		t.Fatal("lease expiry not recorded")
	}
}

func TestReclaimExpiredLeases(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	item := testsupport.NewItem(t, st, "https://example.org", "intent")
	job, _, err := st.EnqueueJob(ctx, item.ID, store.KindProcess, "k-expired")
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	expired := time.Now().Add(-time.Minute)
	if _, err := st.LeaseJob(ctx, job.ID, uuid.NewString(), uuid.NewString(), expired); err != nil {
		t.Fatalf("lease: %v", err)
	}

	reclaimed, err := st.ReclaimExpiredLeases(ctx, time.Now())
	if err != nil {
		t.Fatalf("reclaim: %v", err)
	}
	if reclaimed != 1 {
		t.Fatalf("expected 1 reclaimed, got %d", reclaimed)
	}

	got, err := st.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if got.Status != store.JobQueued || got.LeaseOwner != "" || got.LeaseExpiresAt != nil {
		t.Fatalf("lease not cleared: %+v", got)
	}

	next, err := st.NextQueuedJob(ctx)
	if err != nil {
		t.Fatalf("next queued: %v", err)
	}
	if next == nil || next.ID != job.ID {
		t.Fatal("reclaimed job must be eligible for re-selection")
	}
}

func TestReclaimIgnoresLiveLeases(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	item := testsupport.NewItem(t, st, "https://example.org", "intent")
	job, _, err := st.EnqueueJob(ctx, item.ID, store.KindProcess, "k-live")
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if _, err := st.LeaseJob(ctx, job.ID, uuid.NewString(), uuid.NewString(), time.Now().Add(time.Minute)); err != nil {
		t.Fatalf("lease: %v", err)
	}

	reclaimed, err := st.ReclaimExpiredLeases(ctx, time.Now())
	if err != nil {
		t.Fatalf("reclaim: %v", err)
	}
	if reclaimed != 0 {
		t.Fatalf("live lease must not be reclaimed, got %d", reclaimed)
	}
}

func TestCompleteAndFailJob(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	item := testsupport.NewItem(t, st, "https://example.org", "intent")

	done, _, err := st.EnqueueJob(ctx, item.ID, store.KindProcess, "k-done")
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if _, err := st.LeaseJob(ctx, done.ID, uuid.NewString(), uuid.NewString(), time.Now().Add(time.Minute)); err != nil {
		t.Fatalf("lease: %v", err)
	}
	if err := st.CompleteJob(ctx, done.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}
	got, _ := st.GetJob(ctx, done.ID)
	if got.Status != store.JobDone || got.LeaseOwner != "" {
		t.Fatalf("unexpected completed job %+v", got)
	}

	failed, _, err := st.EnqueueJob(ctx, item.ID, store.KindProcess, "k-fail")
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if _, err := st.LeaseJob(ctx, failed.ID, uuid.NewString(), uuid.NewString(), time.Now().Add(time.Minute)); err != nil {
		t.Fatalf("lease: %v", err)
	}
	if err := st.FailJob(ctx, failed.ID, "extraction timed out"); err != nil {
		t.Fatalf("fail: %v", err)
	}
	got, _ = st.GetJob(ctx, failed.ID)
	if got.Status != store.JobFailed || got.LastError != "extraction timed out" {
		t.Fatalf("unexpected failed job %+v", got)
	}

	count, err := st.CountFailedJobs(ctx, item.ID)
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 failed job, got %d", count)
	}
}

func TestRecordFailedJobSharesBudget(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	item := testsupport.NewItem(t, st, "https://example.org", "intent")

	if _, err := st.RecordFailedJob(ctx, item.ID, store.KindExport, "no files produced"); err != nil {
		t.Fatalf("record failed: %v", err)
	}
	count, err := st.CountFailedJobs(ctx, item.ID)
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("export failure must count toward budget, got %d", count)
	}
}
