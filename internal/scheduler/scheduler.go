package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"intake/internal/lifecycle"
	"intake/internal/logging"
	"intake/internal/pipeline"
	"intake/internal/retrypolicy"
	"intake/internal/store"
)

// Runner executes one leased job.
type Runner interface {
	Run(ctx context.Context, job *store.Job) error
}

// Scheduler drives the single-worker job loop: reclaim expired leases, lease
// the oldest queued job, execute it, and record the outcome. Only one tick
// runs at a time; an in-process busy flag rejects overlap.
type Scheduler struct {
	store         *store.Store
	runner        Runner
	policy        retrypolicy.Policy
	pollInterval  time.Duration
	leaseDuration time.Duration
	logger        *slog.Logger

	busy atomic.Bool

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Options bundles scheduler timing configuration.
type Options struct {
	PollInterval  time.Duration
	LeaseDuration time.Duration
}

// New constructs a scheduler. Zero options select 5s polling and 60s leases.
func New(st *store.Store, runner Runner, policy retrypolicy.Policy, opts Options, logger *slog.Logger) *Scheduler {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 5 * time.Second
	}
	if opts.LeaseDuration <= 0 {
		opts.LeaseDuration = 60 * time.Second
	}
	if policy.Limit() <= 0 {
		policy = retrypolicy.Default()
	}
	return &Scheduler{
		store:         st,
		runner:        runner,
		policy:        policy,
		pollInterval:  opts.PollInterval,
		leaseDuration: opts.LeaseDuration,
		logger:        logging.NewComponentLogger(logger, "scheduler"),
	}
}

// Start begins background processing.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("scheduler already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true
	s.wg.Add(1)
	s.mu.Unlock()

	go s.run(runCtx)
	return nil
}

// Stop terminates background processing and waits for completion.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	cancel := s.cancel
	s.running = false
	s.cancel = nil
	s.mu.Unlock()

	cancel()
	s.wg.Wait()
}

// Running reports whether the background loop is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Tick(ctx); err != nil {
				if errors.Is(err, context.Canceled) {
					return
				}
				s.logger.Error("scheduling tick failed", logging.Error(err))
			}
		}
	}
}

// Tick performs one scheduling pass. The boolean reports whether a job was
// executed. An overlapping tick, an empty queue, or a lost lease race all
// return (false, nil).
func (s *Scheduler) Tick(ctx context.Context) (bool, error) {
	if !s.busy.CompareAndSwap(false, true) {
		return false, nil
	}
	defer s.busy.Store(false)

	now := time.Now().UTC()
	reclaimed, err := s.store.ReclaimExpiredLeases(ctx, now)
	if err != nil {
		return false, err
	}
	if reclaimed > 0 {
		s.logger.Info("reclaimed expired leases", logging.Int64("count", reclaimed))
	}

	job, err := s.store.NextQueuedJob(ctx)
	if err != nil {
		return false, err
	}
	if job == nil {
		return false, nil
	}

	owner := uuid.NewString()
	runID := uuid.NewString()
	won, err := s.store.LeaseJob(ctx, job.ID, owner, runID, now.Add(s.leaseDuration))
	if err != nil {
		return false, err
	}
	if !won {
		return false, nil
	}

	leased, err := s.store.GetJob(ctx, job.ID)
	if err != nil {
		return false, err
	}
	if leased == nil {
		return false, nil
	}

	if runErr := s.runner.Run(ctx, leased); runErr != nil {
		if err := s.handleFailure(ctx, leased, runErr); err != nil {
			return true, err
		}
		return true, nil
	}

	if err := s.store.CompleteJob(ctx, leased.ID); err != nil {
		return true, err
	}
	return true, nil
}

// handleFailure records the failed job and drives the item into the failed
// status matching the classified step, consulting the retry budget.
func (s *Scheduler) handleFailure(ctx context.Context, job *store.Job, runErr error) error {
	log := s.logger.With(
		logging.String(logging.FieldItemID, job.ItemID),
		logging.Int64(logging.FieldJobID, job.ID),
	)
	log.Warn("job failed", logging.Error(runErr))

	if err := s.store.FailJob(ctx, job.ID, runErr.Error()); err != nil {
		return err
	}

	failedCount, err := s.store.CountFailedJobs(ctx, job.ItemID)
	if err != nil {
		return err
	}
	decision := s.policy.Evaluate(failedCount)

	step := pipeline.ClassifyStep(runErr)
	failure := lifecycle.FailureInfo{
		FailedStep:    step,
		ErrorCode:     pipeline.ErrorCode(runErr),
		Message:       runErr.Error(),
		Retryable:     decision.Retryable,
		RetryAttempts: decision.Attempts,
		RetryLimit:    decision.Limit,
	}
	target := lifecycle.StatusForStep(step)
	transitionErr := s.store.TransitionToFailed(ctx, job.ItemID, lifecycle.StatusProcessing, target, failure.ToJSON())
	if transitionErr != nil {
		// The job may have failed before the item reached processing; the
		// item is then already in a non-processing state and stays there.
		if errors.Is(transitionErr, store.ErrStateConflict) {
			log.Warn("item not in processing after failure", logging.String("target", string(target)))
			return nil
		}
		return transitionErr
	}
	return nil
}
