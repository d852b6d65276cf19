package repository

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zivvlabs/token-triage/internal/common"
	"github.com/zivvlabs/token-triage/internal/entity"
)

// JobRepository is the job store contract. ClaimBatch and MarkFailed run on
// the pool; the Tx variants participate in the persister's transaction.
type JobRepository interface {
	ClaimBatch(ctx context.Context, limit int) ([]entity.Job, error)
	MarkFailed(ctx context.Context, jobID int64, message string) error
	CompleteTx(ctx context.Context, tx DBTX, jobID int64) error
	RecordFailureTx(ctx context.Context, tx DBTX, jobID int64, message string, status entity.JobStatus, retries int, delay time.Duration) error
	UpsertPendingTx(ctx context.Context, tx DBTX, tokenID int64, stage int) error
}

type jobRepo struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewJobRepository(pool *pgxpool.Pool, log *slog.Logger) JobRepository {
	return &jobRepo{pool: pool, log: log}
}

// claimSQL selects eligible rows with a lock-skipping read and flips them to
// processing in the same statement, so two workers racing on the same batch
// never return the same row. Earlier stages and longer-waiting jobs win
// contention.
const claimSQL = `
WITH cte AS (
    SELECT id FROM analysis_jobs
    WHERE status = $1 AND next_run_at <= now()
    ORDER BY stage ASC, next_run_at ASC, id ASC
    LIMIT $2
    FOR UPDATE SKIP LOCKED
)
UPDATE analysis_jobs j
SET status = $3, updated_at = now()
FROM cte
WHERE j.id = cte.id
RETURNING j.id, j.token_id, j.stage, j.status, j.retries, j.last_error, j.next_run_at, j.created_at, j.updated_at`

func (r *jobRepo) ClaimBatch(ctx context.Context, limit int) ([]entity.Job, error) {
	rows, err := r.pool.Query(ctx, claimSQL, entity.JobStatusPending, limit, entity.JobStatusProcessing)
	if err != nil {
		r.log.Error("claim batch failed", "error", err)
		return nil, common.WrapError(err, "claim batch")
	}
	jobs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (entity.Job, error) {
		var j entity.Job
		err := row.Scan(&j.ID, &j.TokenID, &j.Stage, &j.Status, &j.Retries, &j.LastError, &j.NextRunAt, &j.CreatedAt, &j.UpdatedAt)
		return j, err
	})
	if err != nil {
		return nil, common.WrapError(err, "scan claimed jobs")
	}
	return jobs, nil
}

// MarkFailed is the fatal-precondition path: the job goes terminal without
// touching the retry counter, since retrying cannot change the outcome.
func (r *jobRepo) MarkFailed(ctx context.Context, jobID int64, message string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE analysis_jobs SET status = $2, last_error = $3, updated_at = now() WHERE id = $1`,
		jobID, entity.JobStatusFailed, message)
	if err != nil {
		r.log.Error("mark failed errored", "job_id", jobID, "error", err)
		return common.WrapError(err, "mark failed")
	}
	r.log.Warn("job failed permanently", "job_id", jobID, "error", message)
	return nil
}

func (r *jobRepo) CompleteTx(ctx context.Context, tx DBTX, jobID int64) error {
	_, err := tx.Exec(ctx,
		`UPDATE analysis_jobs SET status = $2, updated_at = now() WHERE id = $1`,
		jobID, entity.JobStatusCompleted)
	return common.WrapError(err, "mark completed")
}

// RecordFailureTx applies a failure transition decided by the persister:
// either back to pending with a deferred next_run_at, or terminally failed
// once the retry cap is exceeded. The claim made this row ours exclusively,
// so the counter can be computed from the claimed snapshot.
func (r *jobRepo) RecordFailureTx(ctx context.Context, tx DBTX, jobID int64, message string, status entity.JobStatus, retries int, delay time.Duration) error {
	_, err := tx.Exec(ctx, `
UPDATE analysis_jobs
SET retries = $2,
    last_error = $3,
    status = $4,
    next_run_at = now() + ($5 * INTERVAL '1 second'),
    updated_at = now()
WHERE id = $1`,
		jobID, retries, message, status, delay.Seconds())
	return common.WrapError(err, "record failure")
}

// UpsertPendingTx creates the next stage's pending job. The guard clause
// makes re-triggering finished work a no-op: an existing completed row for
// (token_id, stage) is left untouched.
func (r *jobRepo) UpsertPendingTx(ctx context.Context, tx DBTX, tokenID int64, stage int) error {
	_, err := tx.Exec(ctx, `
INSERT INTO analysis_jobs (token_id, stage, status, next_run_at, created_at, updated_at)
VALUES ($1, $2, $3, now(), now(), now())
ON CONFLICT (token_id, stage) DO UPDATE
SET status = $3, next_run_at = now(), updated_at = now()
WHERE analysis_jobs.status != $4`,
		tokenID, stage, entity.JobStatusPending, entity.JobStatusCompleted)
	return common.WrapError(err, "upsert pending job")
}
