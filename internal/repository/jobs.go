package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/medfata/inkscore-sub000/internal/models"
)

// EnqueueJob inserts a new pending job. Duplicate-submission is the caller's
// responsibility to avoid (see JobExists), since the queue itself allows
// multiple jobs of the same type/contract with different payloads.
func (r *Repository) EnqueueJob(ctx context.Context, j models.Job) (int64, error) {
	if j.MaxAttempts == 0 {
		j.MaxAttempts = 5
	}
	if j.Priority == 0 {
		j.Priority = 5
	}

	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO job_queue (job_type, contract_id, priority, status, payload, payload_fingerprint, attempts, max_attempts, created_at)
		VALUES ($1, $2, $3, 'pending', $4, $5, 0, $6, NOW())
		RETURNING id
	`, string(j.JobType), j.ContractID, j.Priority, []byte(j.Payload), nullIfEmpty(j.PayloadFingerprint), j.MaxAttempts).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("enqueue %s job: %w", j.JobType, err)
	}
	return id, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// JobExists checks for a pending or processing job with the same
// (job_type, contract_id, payload fingerprint), the invariant that prevents
// duplicate backfill submissions (admin API returns 409 when this is true).
func (r *Repository) JobExists(ctx context.Context, jobType models.JobType, contractID *int64, payloadFingerprint string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM job_queue
			WHERE job_type = $1
			  AND contract_id IS NOT DISTINCT FROM $2
			  AND payload_fingerprint = $3
			  AND status IN ('pending', 'processing')
		)
	`, string(jobType), contractID, payloadFingerprint).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check job existence: %w", err)
	}
	return exists, nil
}

// FindJobByFingerprint returns the pending/processing job matching
// (job_type, contract_id, payload fingerprint), used to report the
// conflicting job's id when the admin API rejects a duplicate submission.
func (r *Repository) FindJobByFingerprint(ctx context.Context, jobType models.JobType, contractID *int64, payloadFingerprint string) (*models.Job, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, job_type, contract_id, priority, status, payload, attempts, max_attempts,
			created_at, started_at, completed_at, next_retry_at, error_message
		FROM job_queue
		WHERE job_type = $1
		  AND contract_id IS NOT DISTINCT FROM $2
		  AND payload_fingerprint = $3
		  AND status IN ('pending', 'processing')
		ORDER BY created_at DESC LIMIT 1
	`, string(jobType), contractID, payloadFingerprint)
	job, err := scanJob(row)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find job by fingerprint: %w", err)
	}
	return job, nil
}

// LeaseNextJob atomically claims the highest-priority, oldest-created
// pending (or due-for-retry) job using SELECT ... FOR UPDATE SKIP LOCKED, so
// concurrent workers never double-lease the same row.
func (r *Repository) LeaseNextJob(ctx context.Context, jobTypes []models.JobType, workerID string) (*models.Job, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("lease job: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	jobTypeStrs := make([]string, len(jobTypes))
	for i, t := range jobTypes {
		jobTypeStrs[i] = string(t)
	}

	row := tx.QueryRow(ctx, `
		SELECT id, job_type, contract_id, priority, status, payload, attempts, max_attempts,
			created_at, started_at, completed_at, next_retry_at, error_message
		FROM job_queue
		WHERE job_type = ANY($1)
		  AND status = 'pending'
		  AND (next_retry_at IS NULL OR next_retry_at <= NOW())
		ORDER BY priority ASC, created_at ASC
		FOR UPDATE SKIP LOCKED
		LIMIT 1
	`, jobTypeStrs)

	job, err := scanJob(row)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lease job: scan: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE job_queue SET status = 'processing', started_at = NOW(), leased_by = $2
		WHERE id = $1
	`, job.ID, workerID); err != nil {
		return nil, fmt.Errorf("lease job %d: mark processing: %w", job.ID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("lease job %d: commit: %w", job.ID, err)
	}

	job.Status = models.JobProcessing
	return job, nil
}

// CompleteJob marks a leased job completed.
func (r *Repository) CompleteJob(ctx context.Context, jobID int64) error {
	_, err := r.db.Exec(ctx, `
		UPDATE job_queue SET status = 'completed', completed_at = NOW() WHERE id = $1
	`, jobID)
	if err != nil {
		return fmt.Errorf("complete job %d: %w", jobID, err)
	}
	return nil
}

// FailJob records a failed attempt. If attempts remain, it schedules a retry
// with exponential backoff (base 30s, capped at 30min); once attempts are
// exhausted the job moves to 'failed' and stays there until an explicit
// admin retry.
func (r *Repository) FailJob(ctx context.Context, jobID int64, errMsg string) error {
	var attempts, maxAttempts int
	err := r.db.QueryRow(ctx, `
		UPDATE job_queue SET attempts = attempts + 1, error_message = $2
		WHERE id = $1
		RETURNING attempts, max_attempts
	`, jobID, errMsg).Scan(&attempts, &maxAttempts)
	if err != nil {
		return fmt.Errorf("fail job %d: record attempt: %w", jobID, err)
	}

	if attempts >= maxAttempts {
		_, err := r.db.Exec(ctx, `UPDATE job_queue SET status = 'failed' WHERE id = $1`, jobID)
		if err != nil {
			return fmt.Errorf("fail job %d: mark exhausted: %w", jobID, err)
		}
		return nil
	}

	backoff := retryBackoff(attempts)
	_, err = r.db.Exec(ctx, `
		UPDATE job_queue SET status = 'pending', next_retry_at = NOW() + $2
		WHERE id = $1
	`, jobID, backoff)
	if err != nil {
		return fmt.Errorf("fail job %d: schedule retry: %w", jobID, err)
	}
	return nil
}

// retryBackoff returns 30s * 2^attempts, capped at 30 minutes.
func retryBackoff(attempts int) time.Duration {
	base := 30 * time.Second
	cap := 30 * time.Minute
	d := base
	for i := 0; i < attempts; i++ {
		d *= 2
		if d >= cap {
			return cap
		}
	}
	return d
}

// SweepStuckJobs reclaims jobs stuck in 'processing' past maxAge (the worker
// that leased them presumably died without completing or failing them), the
// janitor sweep.
func (r *Repository) SweepStuckJobs(ctx context.Context, maxAge time.Duration) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE job_queue
		SET status = 'pending', next_retry_at = NOW()
		WHERE status = 'processing' AND started_at < NOW() - $1::interval
	`, maxAge)
	if err != nil {
		return 0, fmt.Errorf("sweep stuck jobs: %w", err)
	}
	return tag.RowsAffected(), nil
}

// CancelJob cancels a pending or already-failed job (admin action); processing
// jobs cannot be cancelled since a worker may already be mid-flight on them.
// Cancellation marks the job 'failed' with a marker rather than deleting it,
// preserving history.
func (r *Repository) CancelJob(ctx context.Context, jobID int64) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE job_queue SET status = 'failed', error_message = 'cancelled by admin', completed_at = NOW()
		WHERE id = $1 AND status IN ('pending', 'failed')
	`, jobID)
	if err != nil {
		return fmt.Errorf("cancel job %d: %w", jobID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("cancel job %d: not pending or failed (already processing or completed)", jobID)
	}
	return nil
}

// RetryJob resets a failed (attempts-exhausted) job back to pending, the only
// path back to the queue once automatic retries are spent.
func (r *Repository) RetryJob(ctx context.Context, jobID int64) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE job_queue SET status = 'pending', attempts = 0, next_retry_at = NULL, error_message = ''
		WHERE id = $1 AND status = 'failed'
	`, jobID)
	if err != nil {
		return fmt.Errorf("retry job %d: %w", jobID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("retry job %d: not in failed state", jobID)
	}
	return nil
}

// CountJobsByTypeAndStatus returns how many jobs of jobType are currently in
// status, used by the gap-fill worker's high-water backpressure check.
func (r *Repository) CountJobsByTypeAndStatus(ctx context.Context, jobType models.JobType, status models.JobStatus) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM job_queue WHERE job_type = $1 AND status = $2
	`, string(jobType), string(status)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count %s jobs in %s: %w", jobType, status, err)
	}
	return count, nil
}

// GetJob fetches a job by ID.
func (r *Repository) GetJob(ctx context.Context, jobID int64) (*models.Job, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, job_type, contract_id, priority, status, payload, attempts, max_attempts,
			created_at, started_at, completed_at, next_retry_at, error_message
		FROM job_queue WHERE id = $1
	`, jobID)
	job, err := scanJob(row)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job %d: %w", jobID, err)
	}
	return job, nil
}

// ListJobs returns jobs, optionally filtered by status, newest first.
func (r *Repository) ListJobs(ctx context.Context, status *models.JobStatus, limit int) ([]models.Job, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	var rows pgx.Rows
	var err error
	if status != nil {
		rows, err = r.db.Query(ctx, `
			SELECT id, job_type, contract_id, priority, status, payload, attempts, max_attempts,
				created_at, started_at, completed_at, next_retry_at, error_message
			FROM job_queue WHERE status = $1 ORDER BY created_at DESC LIMIT $2
		`, string(*status), limit)
	} else {
		rows, err = r.db.Query(ctx, `
			SELECT id, job_type, contract_id, priority, status, payload, attempts, max_attempts,
				created_at, started_at, completed_at, next_retry_at, error_message
			FROM job_queue ORDER BY created_at DESC LIMIT $1
		`, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var out []models.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *j)
	}
	return out, nil
}

func scanJob(row rowScanner) (*models.Job, error) {
	var j models.Job
	var jobType, status string
	var payload []byte
	if err := row.Scan(&j.ID, &jobType, &j.ContractID, &j.Priority, &status, &payload, &j.Attempts, &j.MaxAttempts,
		&j.CreatedAt, &j.StartedAt, &j.CompletedAt, &j.NextRetryAt, &j.ErrorMessage); err != nil {
		return nil, err
	}
	j.JobType = models.JobType(jobType)
	j.Status = models.JobStatus(status)
	j.Payload = json.RawMessage(payload)
	return &j, nil
}
