package jobqueue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/codeready-toolchain/gateway/pkg/config"
)

// WorkerStatus represents the current state of a worker goroutine.
type WorkerStatus string

// Worker status constants.
const (
	WorkerStatusIdle    WorkerStatus = "idle"
	WorkerStatusWorking WorkerStatus = "working"
)

// Worker polls for and processes PENDING jobs.
type Worker struct {
	id        string
	store     *Store
	config    *config.QueueConfig
	executor  Executor
	pool      SessionRegistry
	publisher EventPublisher
	stopCh    chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup

	mu            sync.RWMutex
	status        WorkerStatus
	currentJobID  string
	jobsProcessed int
	lastActivity  time.Time
}

// NewWorker creates a job worker. publisher may be nil (event publication disabled).
func NewWorker(id string, store *Store, cfg *config.QueueConfig, executor Executor, pool SessionRegistry, publisher EventPublisher) *Worker {
	return &Worker{
		id:           id,
		store:        store,
		config:       cfg,
		executor:     executor,
		pool:         pool,
		publisher:    publisher,
		stopCh:       make(chan struct{}),
		status:       WorkerStatusIdle,
		lastActivity: time.Now(),
	}
}

// Start begins the worker's polling loop in a goroutine.
func (w *Worker) Start(ctx context.Context) {
	w.wg.Add(1)
	go w.run(ctx)
}

// Stop signals the worker to stop and waits for the current job to finish.
// Safe to call multiple times.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	w.wg.Wait()
}

// Health returns the worker's current health snapshot.
func (w *Worker) Health() WorkerHealth {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return WorkerHealth{
		ID:            w.id,
		Status:        string(w.status),
		CurrentJobID:  w.currentJobID,
		JobsProcessed: w.jobsProcessed,
		LastActivity:  w.lastActivity,
	}
}

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()

	log := slog.With("worker_id", w.id)
	log.Info("job worker started")

	for {
		select {
		case <-w.stopCh:
			log.Info("job worker shutting down")
			return
		case <-ctx.Done():
			log.Info("context cancelled, job worker shutting down")
			return
		default:
			if err := w.pollAndProcess(ctx); err != nil {
				if errors.Is(err, ErrNoJobsAvailable) || errors.Is(err, ErrAtCapacity) {
					w.sleep(w.pollInterval())
					continue
				}
				log.Error("error processing job", "error", err)
				w.sleep(time.Second)
			}
		}
	}
}

func (w *Worker) sleep(d time.Duration) {
	select {
	case <-w.stopCh:
	case <-time.After(d):
	}
}

// pollAndProcess claims the next PENDING job and runs it to completion.
// ClaimNext itself enforces per-tenant backpressure, skipping a tenant's
// jobs once MaxConcurrentPerTenant of them are already PROCESSING and
// returning ErrAtCapacity when every candidate is at its tenant's cap;
// total in-flight work is additionally bounded by WorkerCount, since each
// worker processes one job at a time.
func (w *Worker) pollAndProcess(ctx context.Context) error {
	job, err := w.store.ClaimNext(ctx, w.id, w.config.MaxConcurrentPerTenant)
	if err != nil {
		return err
	}

	log := slog.With("job_id", job.JobID, "worker_id", w.id, "tenant_id", job.TenantID)
	log.Info("job claimed")

	w.publishStatus(ctx, job, StatusProcessing)

	w.setStatus(WorkerStatusWorking, job.JobID.String())
	defer w.setStatus(WorkerStatusIdle, "")

	jobCtx, cancelJob := context.WithTimeout(ctx, w.config.JobTimeout)
	defer cancelJob()

	w.pool.RegisterJob(job.JobID, cancelJob)
	defer w.pool.UnregisterJob(job.JobID)

	heartbeatCtx, cancelHeartbeat := context.WithCancel(jobCtx)
	defer cancelHeartbeat()
	go w.runHeartbeat(heartbeatCtx, job.JobID)

	start := time.Now()
	result := w.executor.Execute(jobCtx, job)

	if result == nil {
		result = w.synthesizeResult(jobCtx)
	}
	if result.Status == "" {
		result.Status = StatusFailed
	}

	cancelHeartbeat()

	processingTimeMs := int(time.Since(start).Milliseconds())

	if result.Status == StatusFailed && job.Attempts >= w.config.MaxAttempts {
		if err := w.store.RequeueOrFail(context.Background(), job.JobID, job.Attempts, w.config.MaxAttempts, resultErrorText(result)); err != nil {
			log.Error("failed to mark job retries exhausted", "error", err)
			return err
		}
	} else if err := w.store.CompleteTerminal(context.Background(), job.JobID, result, processingTimeMs); err != nil {
		log.Error("failed to write terminal job status", "error", err)
		return err
	}

	w.publishStatus(context.Background(), job, result.Status)

	w.mu.Lock()
	w.jobsProcessed++
	w.mu.Unlock()

	log.Info("job processing complete", "status", result.Status)
	return nil
}

// synthesizeResult builds a safe terminal result when the executor returns
// nil, based on why the job context ended.
func (w *Worker) synthesizeResult(ctx context.Context) *ExecutionResult {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return &ExecutionResult{
			Status:    StatusFailed,
			Error:     fmt.Errorf("job timed out after %v", w.config.JobTimeout),
			ErrorCode: ErrorCodeProcessingTimeout,
		}
	case errors.Is(ctx.Err(), context.Canceled):
		return &ExecutionResult{Status: StatusCancelled, Error: context.Canceled}
	default:
		return &ExecutionResult{
			Status:    StatusFailed,
			Error:     errors.New("executor returned nil result"),
			ErrorCode: ErrorCodeInternal,
		}
	}
}

func resultErrorText(result *ExecutionResult) string {
	if result.Error != nil {
		return result.Error.Error()
	}
	return "retries exhausted"
}

// runHeartbeat periodically refreshes last_heartbeat_at for orphan detection.
func (w *Worker) runHeartbeat(ctx context.Context, jobID uuid.UUID) {
	ticker := time.NewTicker(w.config.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.store.Heartbeat(ctx, jobID); err != nil && !errors.Is(err, pgx.ErrNoRows) {
				slog.Warn("heartbeat update failed", "job_id", jobID, "error", err)
			}
		}
	}
}

// publishStatus publishes a job status change. Non-blocking: failures are logged.
func (w *Worker) publishStatus(ctx context.Context, job *Job, status Status) {
	if w.publisher == nil {
		return
	}
	if err := w.publisher.PublishJobStatus(ctx, job.TenantID, job.JobID, status); err != nil {
		slog.Warn("failed to publish job status", "job_id", job.JobID, "status", status, "error", err)
	}
}

// pollInterval returns the poll duration with jitter applied.
func (w *Worker) pollInterval() time.Duration {
	base := w.config.PollInterval
	jitter := w.config.PollIntervalJitter
	if jitter <= 0 {
		return base
	}
	offset := time.Duration(rand.Int64N(int64(2 * jitter)))
	return base - jitter + offset
}

func (w *Worker) setStatus(status WorkerStatus, jobID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.status = status
	w.currentJobID = jobID
	w.lastActivity = time.Now()
}
