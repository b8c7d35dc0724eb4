package retrypolicy_test

import (
	"testing"

	"intake/internal/retrypolicy"
)

func TestEvaluate(t *testing.T) {
	policy := retrypolicy.Default()

	cases := []struct {
		failedJobs    int
		wantRetryable bool
		wantRemaining int
	}{
		{0, true, 3},
		{1, true, 2},
		{2, true, 1},
		{3, false, 0},
		{4, false, 0},
		{-1, true, 3},
	}
	for _, tc := range cases {
		got := policy.Evaluate(tc.failedJobs)
		if got.Retryable != tc.wantRetryable {
			t.Errorf("Evaluate(%d).Retryable = %v, want %v", tc.failedJobs, got.Retryable, tc.wantRetryable)
		}
		if got.Remaining != tc.wantRemaining {
			t.Errorf("Evaluate(%d).Remaining = %d, want %d", tc.failedJobs, got.Remaining, tc.wantRemaining)
		}
		if got.Limit != retrypolicy.DefaultLimit {
			t.Errorf("Evaluate(%d).Limit = %d, want %d", tc.failedJobs, got.Limit, retrypolicy.DefaultLimit)
		}
	}
}

func TestNewClampsLimit(t *testing.T) {
	if got := retrypolicy.New(0).Limit(); got != retrypolicy.DefaultLimit {
		t.Fatalf("New(0).Limit() = %d, want default", got)
	}
	if got := retrypolicy.New(5).Limit(); got != 5 {
		t.Fatalf("New(5).Limit() = %d", got)
	}
	if d := retrypolicy.New(1).Evaluate(1); d.Retryable {
		t.Fatal("limit 1 with one failure should not be retryable")
	}
}
