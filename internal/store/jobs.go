package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const jobColumns = "id, item_id, kind, status, run_id, attempts, lease_owner, lease_expires_at, request_key, last_error, created_at, updated_at"

// EnqueueJob inserts a queued job unless one with the same request_key
// already exists. The boolean reports whether a new row was created; on a
// request_key collision the existing job is returned unchanged.
func (s *Store) EnqueueJob(ctx context.Context, itemID, kind, requestKey string) (*Job, bool, error) {
	now := formatTime(time.Now())
	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO jobs (item_id, kind, status, attempts, request_key, created_at, updated_at)
         VALUES (?, ?, ?, 0, ?, ?, ?)`,
		itemID,
		kind,
		JobQueued,
		nullableString(requestKey),
		now,
		now,
	)
	if err != nil {
		if isUniqueViolation(err) && requestKey != "" {
			existing, findErr := s.JobByRequestKey(ctx, requestKey)
			if findErr != nil {
				return nil, false, findErr
			}
			if existing != nil {
				return existing, false, nil
			}
		}
		return nil, false, fmt.Errorf("enqueue job: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, false, fmt.Errorf("last insert id: %w", err)
	}
	job, err := s.GetJob(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return job, true, nil
}

// RecordFailedJob inserts a job row already in the failed state. Export
// failures are recorded this way so they draw from the same per-item retry
// budget as pipeline failures.
func (s *Store) RecordFailedJob(ctx context.Context, itemID, kind, lastError string) (*Job, error) {
	now := formatTime(time.Now())
	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO jobs (item_id, kind, status, attempts, last_error, created_at, updated_at)
         VALUES (?, ?, ?, 1, ?, ?, ?)`,
		itemID,
		kind,
		JobFailed,
		nullableString(lastError),
		now,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("record failed job: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetJob(ctx, id)
}

// GetJob fetches a job by identifier. Returns nil when not found.
func (s *Store) GetJob(ctx context.Context, id int64) (*Job, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// JobByRequestKey returns the job matching a request key, or nil.
func (s *Store) JobByRequestKey(ctx context.Context, requestKey string) (*Job, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+jobColumns+` FROM jobs WHERE request_key = ?`, requestKey)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("job by request key: %w", err)
	}
	return job, nil
}

// JobsForItem returns all jobs for an item, newest first.
func (s *Store) JobsForItem(ctx context.Context, itemID string) ([]*Job, error) {
	rows, err := s.db.QueryContext(
		ensureContext(ctx),
		`SELECT `+jobColumns+` FROM jobs WHERE item_id = ? ORDER BY created_at DESC, id DESC`,
		itemID,
	)
	if err != nil {
		return nil, fmt.Errorf("jobs for item: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// ReclaimExpiredLeases returns leased jobs whose lease has passed back to
// queued, clearing the lease fields. This is the self-healing path for
// crashed or slow workers, not an error condition.
func (s *Store) ReclaimExpiredLeases(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs
         SET status = ?, lease_owner = NULL, lease_expires_at = NULL, updated_at = ?
         WHERE status = ? AND lease_expires_at IS NOT NULL AND lease_expires_at < ?`,
		JobQueued,
		formatTime(now),
		JobLeased,
		formatTime(now),
	)
	if err != nil {
		return 0, fmt.Errorf("reclaim expired leases: %w", err)
	}
	return res.RowsAffected()
}

// NextQueuedJob returns the oldest queued process job, FIFO by creation
// time with id as tiebreak. Returns nil when the queue is empty.
func (s *Store) NextQueuedJob(ctx context.Context) (*Job, error) {
	row := s.db.QueryRowContext(
		ensureContext(ctx),
		`SELECT `+jobColumns+` FROM jobs WHERE status = ? AND kind = ? ORDER BY created_at, id LIMIT 1`,
		JobQueued,
		KindProcess,
	)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("next queued job: %w", err)
	}
	return job, nil
}

// LeaseJob compare-and-swaps a job from queued to leased, assigning the
// owner, run id, and expiry, and incrementing the attempt counter. The
// boolean reports whether the lease was won; losing the race is not an
// error.
func (s *Store) LeaseJob(ctx context.Context, id int64, owner, runID string, expiresAt time.Time) (bool, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs
         SET status = ?, lease_owner = ?, lease_expires_at = ?, run_id = ?,
             attempts = attempts + 1, updated_at = ?
         WHERE id = ? AND status = ?`,
		JobLeased,
		owner,
		formatTime(expiresAt),
		runID,
		formatTime(time.Now()),
		id,
		JobQueued,
	)
	if err != nil {
		return false, fmt.Errorf("lease job %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// CompleteJob marks a leased job done and clears its lease.
func (s *Store) CompleteJob(ctx context.Context, id int64) error {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs
         SET status = ?, lease_owner = NULL, lease_expires_at = NULL, updated_at = ?
         WHERE id = ? AND status = ?`,
		JobDone,
		formatTime(time.Now()),
		id,
		JobLeased,
	)
	if err != nil {
		return fmt.Errorf("complete job %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("job %d leased -> done: %w", id, ErrStateConflict)
	}
	return nil
}

// FailJob marks a leased job failed, records the error, and clears its lease.
func (s *Store) FailJob(ctx context.Context, id int64, lastError string) error {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs
         SET status = ?, last_error = ?, lease_owner = NULL, lease_expires_at = NULL, updated_at = ?
         WHERE id = ? AND status = ?`,
		JobFailed,
		nullableString(lastError),
		formatTime(time.Now()),
		id,
		JobLeased,
	)
	if err != nil {
		return fmt.Errorf("fail job %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("job %d leased -> failed: %w", id, ErrStateConflict)
	}
	return nil
}

// CountFailedJobs counts failed jobs recorded for an item across all kinds.
func (s *Store) CountFailedJobs(ctx context.Context, itemID string) (int, error) {
	row := s.db.QueryRowContext(
		ensureContext(ctx),
		`SELECT COUNT(1) FROM jobs WHERE item_id = ? AND status = ?`,
		itemID,
		JobFailed,
	)
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count failed jobs: %w", err)
	}
	return count, nil
}

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		id          int64
		itemID      string
		kind        string
		status      string
		runID       sql.NullString
		attempts    int
		leaseOwner  sql.NullString
		leaseExpiry sql.NullString
		requestKey  sql.NullString
		lastError   sql.NullString
		createdRaw  string
		updatedRaw  string
	)

	if err := scanner.Scan(
		&id,
		&itemID,
		&kind,
		&status,
		&runID,
		&attempts,
		&leaseOwner,
		&leaseExpiry,
		&requestKey,
		&lastError,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	job := &Job{
		ID:         id,
		ItemID:     itemID,
		Kind:       kind,
		Status:     status,
		RunID:      runID.String,
		Attempts:   attempts,
		LeaseOwner: leaseOwner.String,
		RequestKey: requestKey.String,
		LastError:  lastError.String,
	}
	if leaseExpiry.Valid {
		if expiry, err := parseTimeString(leaseExpiry.String); err == nil {
			job.LeaseExpiresAt = &expiry
		}
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		job.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		job.UpdatedAt = updated
	}
	return job, nil
}
