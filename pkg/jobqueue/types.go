// Package jobqueue implements the async job engine: PENDING jobs are
// claimed by a pool of workers, executed exactly once per attempt, and
// transitioned to a terminal state via a compare-and-swap update.
package jobqueue

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Sentinel errors for job queue operations.
var (
	// ErrNoJobsAvailable indicates no PENDING jobs are in the queue.
	ErrNoJobsAvailable = errors.New("no jobs available")

	// ErrAtCapacity indicates every claimable PENDING job belongs to a
	// tenant already at its per-tenant concurrency limit.
	ErrAtCapacity = errors.New("at capacity")

	// ErrJobNotFound indicates the referenced job does not exist.
	ErrJobNotFound = errors.New("job not found")

	// ErrIdempotencyConflict indicates a prior job with the same
	// (tenant_id, idempotency_key) already exists; the caller should use
	// the returned job instead of enqueuing a new one.
	ErrIdempotencyConflict = errors.New("idempotency key already used")
)

// Executor runs a claimed job to completion. It owns the entire execution:
// parameter re-validation, enrichment, prompt rendering, the LLM call, and
// response validation. The worker only handles claiming, heartbeating, and
// writing the terminal status the executor returns.
type Executor interface {
	Execute(ctx context.Context, job *Job) *ExecutionResult
}

// ExecutionResult is the terminal outcome of one job execution attempt.
type ExecutionResult struct {
	Status    Status
	Result    json.RawMessage
	Error     error
	ErrorCode string
}

// PoolHealth reports aggregate health for the job worker pool.
type PoolHealth struct {
	IsHealthy        bool           `json:"is_healthy"`
	StoreReachable   bool           `json:"store_reachable"`
	StoreError       string         `json:"store_error,omitempty"`
	WorkerID         string         `json:"worker_id"`
	ActiveWorkers    int            `json:"active_workers"`
	TotalWorkers     int            `json:"total_workers"`
	ProcessingJobs   int            `json:"processing_jobs"`
	QueueDepth       int            `json:"queue_depth"`
	WorkerStats      []WorkerHealth `json:"worker_stats"`
	LastOrphanScan   time.Time      `json:"last_orphan_scan"`
	OrphansRecovered int            `json:"orphans_recovered"`
}

// WorkerHealth reports health for a single worker goroutine.
type WorkerHealth struct {
	ID            string    `json:"id"`
	Status        string    `json:"status"` // "idle" or "working"
	CurrentJobID  string    `json:"current_job_id,omitempty"`
	JobsProcessed int       `json:"jobs_processed"`
	LastActivity  time.Time `json:"last_activity"`
}

// EnqueueRequest carries the fields needed to create a new job.
type EnqueueRequest struct {
	TenantID       string
	UserID         string
	TopicID        string
	Parameters     json.RawMessage
	IdempotencyKey string // empty means no idempotency check
}

// Job mirrors one row of the jobs table.
type Job struct {
	JobID            uuid.UUID
	TenantID         string
	UserID           string
	TopicID          string
	Parameters       json.RawMessage
	Status           Status
	Result           json.RawMessage
	Error            string
	ErrorCode        string
	IdempotencyKey   string
	Attempts         int
	WorkerID         string
	LastHeartbeatAt  *time.Time
	CreatedAt        time.Time
	StartedAt        *time.Time
	CompletedAt      *time.Time
	ProcessingTimeMs *int
}
