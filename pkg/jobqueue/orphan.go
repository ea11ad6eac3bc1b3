package jobqueue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// orphanState tracks orphan detection metrics (thread-safe).
type orphanState struct {
	mu               sync.Mutex
	lastOrphanScan   time.Time
	orphansRecovered int
}

// runOrphanDetection periodically scans for orphaned jobs. Every instance
// runs this independently; operations are idempotent via the CAS update in
// RequeueOrFail.
func (p *WorkerPool) runOrphanDetection(ctx context.Context) {
	ticker := time.NewTicker(p.config.OrphanDetectionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopCh:
			return
		case <-ticker.C:
			if err := p.detectAndRecoverOrphans(ctx); err != nil {
				slog.Error("orphan detection failed", "error", err)
			}
		}
	}
}

// detectAndRecoverOrphans finds PROCESSING jobs with a stale heartbeat and
// either requeues them to PENDING for another attempt or marks them FAILED
// with RETRIES_EXHAUSTED once they have used up their attempts.
func (p *WorkerPool) detectAndRecoverOrphans(ctx context.Context) error {
	threshold := time.Now().Add(-p.config.OrphanThreshold)

	orphans, err := p.store.FindOrphans(ctx, threshold)
	if err != nil {
		return fmt.Errorf("querying orphaned jobs: %w", err)
	}

	if len(orphans) == 0 {
		p.orphans.mu.Lock()
		p.orphans.lastOrphanScan = time.Now()
		p.orphans.mu.Unlock()
		return nil
	}

	slog.Warn("detected orphaned jobs", "count", len(orphans))

	recovered := 0
	failed := 0
	for _, job := range orphans {
		if err := p.recoverOrphanedJob(ctx, job); err != nil {
			slog.Error("failed to recover orphaned job", "job_id", job.JobID, "error", err)
			failed++
			continue
		}
		recovered++
	}

	p.orphans.mu.Lock()
	p.orphans.lastOrphanScan = time.Now()
	p.orphans.orphansRecovered += recovered
	p.orphans.mu.Unlock()

	if failed > 0 {
		slog.Warn("orphan recovery completed with failures",
			"total_orphans", len(orphans), "recovered", recovered, "failed", failed)
	}

	return nil
}

// recoverOrphanedJob requeues a single orphaned job, or fails it terminally
// if it has exhausted its attempts.
func (p *WorkerPool) recoverOrphanedJob(ctx context.Context, job *Job) error {
	log := slog.With("job_id", job.JobID, "old_worker_id", job.WorkerID)

	lastHeartbeat := "unknown"
	if job.LastHeartbeatAt != nil {
		lastHeartbeat = job.LastHeartbeatAt.Format(time.RFC3339)
	}

	reason := fmt.Sprintf("orphaned: no heartbeat from worker %s since %s", job.WorkerID, lastHeartbeat)
	if err := p.store.RequeueOrFail(ctx, job.JobID, job.Attempts, p.config.MaxAttempts, reason); err != nil {
		return err
	}

	log.Warn("orphaned job recovered", "last_heartbeat", lastHeartbeat, "attempts", job.Attempts)
	return nil
}

// CleanupStartupOrphans performs a one-time sweep of jobs left PROCESSING by
// a previous, crashed instance of this process. Call once at startup before
// Start.
func CleanupStartupOrphans(ctx context.Context, store *Store, orphanThreshold time.Duration) error {
	threshold := time.Now().Add(-orphanThreshold)

	orphans, err := store.FindOrphans(ctx, threshold)
	if err != nil {
		return fmt.Errorf("querying startup orphans: %w", err)
	}
	if len(orphans) == 0 {
		return nil
	}

	slog.Warn("found startup orphans from previous run", "count", len(orphans))

	for _, job := range orphans {
		reason := fmt.Sprintf("orphaned: worker %s restarted while job was processing", job.WorkerID)
		if err := store.RequeueOrFail(ctx, job.JobID, job.Attempts, job.Attempts+1, reason); err != nil {
			slog.Error("failed to recover startup orphan", "job_id", job.JobID, "error", err)
			continue
		}
		slog.Info("startup orphan recovered", "job_id", job.JobID)
	}

	return nil
}
