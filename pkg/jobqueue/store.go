package jobqueue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the pgx-backed persistence layer for jobs.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a job Store over an existing connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Enqueue inserts a new PENDING job. If req.IdempotencyKey is set and a
// job with the same (tenant_id, idempotency_key) already exists, the
// existing job is returned instead of creating a duplicate.
func (s *Store) Enqueue(ctx context.Context, req EnqueueRequest) (*Job, error) {
	jobID := uuid.New()

	var idempotencyKey any
	if req.IdempotencyKey != "" {
		idempotencyKey = req.IdempotencyKey
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO jobs (job_id, tenant_id, user_id, topic_id, parameters, status, idempotency_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (tenant_id, idempotency_key) DO NOTHING
		RETURNING job_id, tenant_id, user_id, topic_id, parameters, status, attempts, created_at
	`, jobID, req.TenantID, req.UserID, req.TopicID, req.Parameters, StatusPending, idempotencyKey)

	var job Job
	err := row.Scan(&job.JobID, &job.TenantID, &job.UserID, &job.TopicID, &job.Parameters, &job.Status, &job.Attempts, &job.CreatedAt)
	if err == nil {
		return &job, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("enqueue job: %w", err)
	}

	// ON CONFLICT DO NOTHING matched an existing row — fetch it.
	if req.IdempotencyKey == "" {
		return nil, fmt.Errorf("enqueue job: insert returned no rows without a conflicting idempotency key")
	}
	existing, err := s.GetByIdempotencyKey(ctx, req.TenantID, req.IdempotencyKey)
	if err != nil {
		return nil, fmt.Errorf("fetch existing job for idempotency key: %w", err)
	}
	return existing, nil
}

// GetByIdempotencyKey fetches the job previously enqueued with the same
// (tenant_id, idempotency_key) pair, if any.
func (s *Store) GetByIdempotencyKey(ctx context.Context, tenantID, idempotencyKey string) (*Job, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT job_id, tenant_id, user_id, topic_id, parameters, status, result, error, error_code,
		       idempotency_key, attempts, worker_id, last_heartbeat_at, created_at, started_at,
		       completed_at, processing_time_ms
		FROM jobs WHERE tenant_id = $1 AND idempotency_key = $2
	`, tenantID, idempotencyKey)
	return scanJob(row)
}

// Get fetches a job by ID, scoped to a tenant.
func (s *Store) Get(ctx context.Context, tenantID string, jobID uuid.UUID) (*Job, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT job_id, tenant_id, user_id, topic_id, parameters, status, result, error, error_code,
		       idempotency_key, attempts, worker_id, last_heartbeat_at, created_at, started_at,
		       completed_at, processing_time_ms
		FROM jobs WHERE tenant_id = $1 AND job_id = $2
	`, tenantID, jobID)
	job, err := scanJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	return job, err
}

// claimBatchSize bounds how many oldest PENDING rows ClaimNext locks and
// considers in one pass when skipping tenants that are at capacity.
const claimBatchSize = 50

// ClaimNext atomically claims the oldest PENDING job whose tenant is below
// maxConcurrentPerTenant using SELECT ... FOR UPDATE SKIP LOCKED, so
// concurrent workers never claim the same row. maxConcurrentPerTenant <= 0
// disables the per-tenant check. Returns ErrNoJobsAvailable when the queue
// is empty, or ErrAtCapacity when every candidate's tenant is at its cap.
func (s *Store) ClaimNext(ctx context.Context, workerID string, maxConcurrentPerTenant int) (*Job, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin claim transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, `
		SELECT job_id, tenant_id FROM jobs
		WHERE status = $1
		ORDER BY created_at
		LIMIT $2
		FOR UPDATE SKIP LOCKED
	`, StatusPending, claimBatchSize)
	if err != nil {
		return nil, fmt.Errorf("query pending jobs: %w", err)
	}

	type candidate struct {
		jobID    uuid.UUID
		tenantID string
	}
	var candidates []candidate
	for rows.Next() {
		var c candidate
		if err := rows.Scan(&c.jobID, &c.tenantID); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan pending job: %w", err)
		}
		candidates = append(candidates, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query pending jobs: %w", err)
	}
	if len(candidates) == 0 {
		return nil, ErrNoJobsAvailable
	}

	processingByTenant := make(map[string]int)
	if maxConcurrentPerTenant > 0 {
		tenantRows, err := tx.Query(ctx, `
			SELECT tenant_id, count(*) FROM jobs WHERE status = $1 GROUP BY tenant_id
		`, StatusProcessing)
		if err != nil {
			return nil, fmt.Errorf("count processing jobs by tenant: %w", err)
		}
		for tenantRows.Next() {
			var tenantID string
			var count int
			if err := tenantRows.Scan(&tenantID, &count); err != nil {
				tenantRows.Close()
				return nil, fmt.Errorf("scan tenant processing count: %w", err)
			}
			processingByTenant[tenantID] = count
		}
		tenantRows.Close()
		if err := tenantRows.Err(); err != nil {
			return nil, fmt.Errorf("count processing jobs by tenant: %w", err)
		}
	}

	var jobID uuid.UUID
	claimable := false
	for _, c := range candidates {
		if maxConcurrentPerTenant > 0 && processingByTenant[c.tenantID] >= maxConcurrentPerTenant {
			continue
		}
		jobID = c.jobID
		claimable = true
		break
	}
	if !claimable {
		return nil, ErrAtCapacity
	}

	now := time.Now()
	claimRow := tx.QueryRow(ctx, `
		UPDATE jobs
		SET status = $1, worker_id = $2, started_at = $3, last_heartbeat_at = $3, attempts = attempts + 1
		WHERE job_id = $4 AND status = $5
		RETURNING job_id, tenant_id, user_id, topic_id, parameters, status, result, error, error_code,
		          idempotency_key, attempts, worker_id, last_heartbeat_at, created_at, started_at,
		          completed_at, processing_time_ms
	`, StatusProcessing, workerID, now, jobID, StatusPending)

	job, err := scanJob(claimRow)
	if err != nil {
		return nil, fmt.Errorf("claim job: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit claim: %w", err)
	}

	return job, nil
}

// Heartbeat refreshes last_heartbeat_at for a job still being processed.
func (s *Store) Heartbeat(ctx context.Context, jobID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE jobs SET last_heartbeat_at = $1 WHERE job_id = $2 AND status = $3
	`, time.Now(), jobID, StatusProcessing)
	if err != nil {
		return fmt.Errorf("heartbeat job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrJobNotFound
	}
	return nil
}

// CompleteTerminal performs the conditional (CAS) transition from
// PROCESSING to a terminal status. No-op (returns nil) if the job has
// already left PROCESSING, since a terminal status is never overwritten.
func (s *Store) CompleteTerminal(ctx context.Context, jobID uuid.UUID, result *ExecutionResult, processingTimeMs int) error {
	var errText, errCode any
	if result.Error != nil {
		errText = result.Error.Error()
	}
	if result.ErrorCode != "" {
		errCode = result.ErrorCode
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE jobs
		SET status = $1, result = $2, error = $3, error_code = $4, completed_at = $5, processing_time_ms = $6
		WHERE job_id = $7 AND status = $8
	`, result.Status, result.Result, errText, errCode, time.Now(), processingTimeMs, jobID, StatusProcessing)
	if err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Already terminal (e.g. cancelled concurrently) — not an error.
		return nil
	}
	return nil
}

// RequeueOrFail transitions an orphaned PROCESSING job back to PENDING for
// another attempt, or to FAILED with RETRIES_EXHAUSTED once maxAttempts is
// reached.
func (s *Store) RequeueOrFail(ctx context.Context, jobID uuid.UUID, attempts, maxAttempts int, reason string) error {
	if attempts >= maxAttempts {
		_, err := s.pool.Exec(ctx, `
			UPDATE jobs SET status = $1, error = $2, error_code = $3, completed_at = $4
			WHERE job_id = $5 AND status = $6
		`, StatusFailed, reason, ErrorCodeRetriesExhausted, time.Now(), jobID, StatusProcessing)
		if err != nil {
			return fmt.Errorf("fail exhausted job: %w", err)
		}
		return nil
	}

	_, err := s.pool.Exec(ctx, `
		UPDATE jobs SET status = $1, worker_id = NULL, last_heartbeat_at = NULL, started_at = NULL
		WHERE job_id = $2 AND status = $3
	`, StatusPending, jobID, StatusProcessing)
	if err != nil {
		return fmt.Errorf("requeue orphaned job: %w", err)
	}
	return nil
}

// CountProcessing returns the number of jobs currently PROCESSING,
// optionally scoped to one tenant (empty string means all tenants).
func (s *Store) CountProcessing(ctx context.Context, tenantID string) (int, error) {
	var count int
	var err error
	if tenantID == "" {
		err = s.pool.QueryRow(ctx, `SELECT count(*) FROM jobs WHERE status = $1`, StatusProcessing).Scan(&count)
	} else {
		err = s.pool.QueryRow(ctx, `SELECT count(*) FROM jobs WHERE status = $1 AND tenant_id = $2`, StatusProcessing, tenantID).Scan(&count)
	}
	if err != nil {
		return 0, fmt.Errorf("count processing jobs: %w", err)
	}
	return count, nil
}

// CountPending returns the number of PENDING jobs (queue depth).
func (s *Store) CountPending(ctx context.Context) (int, error) {
	var count int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM jobs WHERE status = $1`, StatusPending).Scan(&count); err != nil {
		return 0, fmt.Errorf("count pending jobs: %w", err)
	}
	return count, nil
}

// FindOrphans returns PROCESSING jobs whose heartbeat is older than threshold.
func (s *Store) FindOrphans(ctx context.Context, threshold time.Time) ([]*Job, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT job_id, tenant_id, user_id, topic_id, parameters, status, result, error, error_code,
		       idempotency_key, attempts, worker_id, last_heartbeat_at, created_at, started_at,
		       completed_at, processing_time_ms
		FROM jobs
		WHERE status = $1 AND last_heartbeat_at IS NOT NULL AND last_heartbeat_at < $2
	`, StatusProcessing, threshold)
	if err != nil {
		return nil, fmt.Errorf("query orphaned jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJobRow(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// PurgeTerminalBefore deletes COMPLETED/FAILED/CANCELLED jobs completed
// before cutoff, returning the number of rows removed. Used by the
// retention cleanup loop.
func (s *Store) PurgeTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM jobs
		WHERE status IN ($1, $2, $3) AND completed_at IS NOT NULL AND completed_at < $4
	`, StatusCompleted, StatusFailed, StatusCancelled, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge terminal jobs: %w", err)
	}
	return tag.RowsAffected(), nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanJob(row scannable) (*Job, error) {
	return scanJobRow(row)
}

func scanJobRow(row scannable) (*Job, error) {
	var job Job
	var errText, errCode, idempotencyKey *string
	err := row.Scan(
		&job.JobID, &job.TenantID, &job.UserID, &job.TopicID, &job.Parameters, &job.Status,
		&job.Result, &errText, &errCode, &idempotencyKey, &job.Attempts, &job.WorkerID,
		&job.LastHeartbeatAt, &job.CreatedAt, &job.StartedAt, &job.CompletedAt, &job.ProcessingTimeMs,
	)
	if err != nil {
		return nil, err
	}
	if errText != nil {
		job.Error = *errText
	}
	if errCode != nil {
		job.ErrorCode = *errCode
	}
	if idempotencyKey != nil {
		job.IdempotencyKey = *idempotencyKey
	}
	return &job, nil
}

