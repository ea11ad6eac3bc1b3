package jobqueue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/codeready-toolchain/gateway/pkg/config"
)

// EventPublisher is the subset of the events package a worker needs to
// announce job status changes. A nil publisher disables event publication.
type EventPublisher interface {
	PublishJobStatus(ctx context.Context, tenantID string, jobID uuid.UUID, status Status) error
}

// SessionRegistry is the subset of WorkerPool a Worker uses to register
// a cancel function so in-flight jobs can be cancelled from the API.
type SessionRegistry interface {
	RegisterJob(jobID uuid.UUID, cancel context.CancelFunc)
	UnregisterJob(jobID uuid.UUID)
}

// WorkerPool manages a pool of job workers that poll, claim, and execute
// PENDING jobs, plus a background orphan-detection loop.
type WorkerPool struct {
	instanceID string
	store      *Store
	config     *config.QueueConfig
	executor   Executor
	publisher  EventPublisher

	workers  []*Worker
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	activeJobs map[uuid.UUID]context.CancelFunc
	mu         sync.RWMutex
	started    bool

	orphans orphanState
}

// NewWorkerPool creates a worker pool bound to store for persistence and
// executor for running claimed jobs. instanceID identifies this process
// (pod/replica) for diagnostics; publisher may be nil.
func NewWorkerPool(instanceID string, store *Store, cfg *config.QueueConfig, executor Executor, publisher EventPublisher) *WorkerPool {
	return &WorkerPool{
		instanceID: instanceID,
		store:      store,
		config:     cfg,
		executor:   executor,
		publisher:  publisher,
		workers:    make([]*Worker, 0, cfg.WorkerCount),
		stopCh:     make(chan struct{}),
		activeJobs: make(map[uuid.UUID]context.CancelFunc),
	}
}

// Start spawns worker goroutines and the orphan detection loop. Safe to call
// once; subsequent calls are no-ops.
func (p *WorkerPool) Start(ctx context.Context) {
	if p.started {
		slog.Warn("worker pool already started, ignoring duplicate start", "instance_id", p.instanceID)
		return
	}
	p.started = true

	slog.Info("starting job worker pool", "instance_id", p.instanceID, "worker_count", p.config.WorkerCount)

	for i := 0; i < p.config.WorkerCount; i++ {
		workerID := fmt.Sprintf("%s-worker-%d", p.instanceID, i)
		worker := NewWorker(workerID, p.store, p.config, p.executor, p, p.publisher)
		p.workers = append(p.workers, worker)
		worker.Start(ctx)
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.runOrphanDetection(ctx)
	}()

	slog.Info("job worker pool started")
}

// Stop signals all workers and the orphan loop to stop and waits for the
// current job on each worker to finish (graceful shutdown).
func (p *WorkerPool) Stop() {
	slog.Info("stopping job worker pool gracefully")

	active := p.getActiveJobIDs()
	if len(active) > 0 {
		slog.Info("waiting for active jobs to complete", "count", len(active), "job_ids", active)
	}

	for _, worker := range p.workers {
		worker.Stop()
	}

	p.stopOnce.Do(func() { close(p.stopCh) })
	p.wg.Wait()

	slog.Info("job worker pool stopped gracefully")
}

// RegisterJob stores a cancel function so the job can be cancelled manually.
func (p *WorkerPool) RegisterJob(jobID uuid.UUID, cancel context.CancelFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.activeJobs[jobID] = cancel
}

// UnregisterJob removes the cancel function once processing ends.
func (p *WorkerPool) UnregisterJob(jobID uuid.UUID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.activeJobs, jobID)
}

// CancelJob triggers context cancellation for a job on this instance.
// Returns true if the job was found and cancelled here.
func (p *WorkerPool) CancelJob(jobID uuid.UUID) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if cancel, ok := p.activeJobs[jobID]; ok {
		cancel()
		return true
	}
	return false
}

// Health reports current pool health, combining worker stats with a live
// queue depth and processing count read from the store.
func (p *WorkerPool) Health() *PoolHealth {
	ctx := context.Background()

	queueDepth, errQ := p.store.CountPending(ctx)
	if errQ != nil {
		slog.Error("failed to query queue depth for health check", "instance_id", p.instanceID, "error", errQ)
	}

	processing, errP := p.store.CountProcessing(ctx, "")
	if errP != nil {
		slog.Error("failed to query processing jobs for health check", "instance_id", p.instanceID, "error", errP)
	}

	workerStats := make([]WorkerHealth, len(p.workers))
	activeWorkers := 0
	for i, worker := range p.workers {
		stats := worker.Health()
		workerStats[i] = stats
		if stats.Status == string(WorkerStatusWorking) {
			activeWorkers++
		}
	}

	storeHealthy := errQ == nil && errP == nil
	isHealthy := len(p.workers) > 0 && storeHealthy

	p.orphans.mu.Lock()
	lastOrphanScan := p.orphans.lastOrphanScan
	orphansRecovered := p.orphans.orphansRecovered
	p.orphans.mu.Unlock()

	var storeErr string
	if !storeHealthy {
		if errQ != nil {
			storeErr = fmt.Sprintf("queue depth query failed: %v", errQ)
		} else if errP != nil {
			storeErr = fmt.Sprintf("processing count query failed: %v", errP)
		}
	}

	return &PoolHealth{
		IsHealthy:        isHealthy,
		StoreReachable:   storeHealthy,
		StoreError:       storeErr,
		WorkerID:         p.instanceID,
		ActiveWorkers:    activeWorkers,
		TotalWorkers:     len(p.workers),
		ProcessingJobs:   processing,
		QueueDepth:       queueDepth,
		WorkerStats:      workerStats,
		LastOrphanScan:   lastOrphanScan,
		OrphansRecovered: orphansRecovered,
	}
}

func (p *WorkerPool) getActiveJobIDs() []uuid.UUID {
	p.mu.RLock()
	defer p.mu.RUnlock()
	ids := make([]uuid.UUID, 0, len(p.activeJobs))
	for id := range p.activeJobs {
		ids = append(ids, id)
	}
	return ids
}
