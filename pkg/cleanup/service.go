// Package cleanup provides data retention and cleanup services.
package cleanup

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/codeready-toolchain/gateway/pkg/config"
	"github.com/codeready-toolchain/gateway/pkg/events"
)

// jobPurger is the narrow slice of jobqueue.Store the cleanup loop needs.
type jobPurger interface {
	PurgeTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// sessionPurger is the narrow slice of coaching.PGStore the cleanup loop needs.
type sessionPurger interface {
	PurgeTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Service periodically enforces retention policies:
//   - Purges terminal jobs past JobRetentionDays
//   - Purges terminal coaching sessions (and their messages, via cascade) past SessionRetentionDays
//   - Removes event rows past EventTTL
//
// All operations are idempotent and safe to run from multiple pods.
type Service struct {
	config   *config.RetentionConfig
	jobs     jobPurger
	sessions sessionPurger
	eventsDB *sql.DB

	cancel context.CancelFunc
	done   chan struct{}
}

// NewService creates a new cleanup service.
func NewService(
	cfg *config.RetentionConfig,
	jobs jobPurger,
	sessions sessionPurger,
	eventsDB *sql.DB,
) *Service {
	return &Service{
		config:   cfg,
		jobs:     jobs,
		sessions: sessions,
		eventsDB: eventsDB,
	}
}

// Start launches the background cleanup loop.
func (s *Service) Start(ctx context.Context) {
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go s.run(ctx)

	slog.Info("Cleanup service started",
		"job_retention_days", s.config.JobRetentionDays,
		"session_retention_days", s.config.SessionRetentionDays,
		"event_ttl", s.config.EventTTL,
		"interval", s.config.CleanupInterval)
}

// Stop signals the cleanup loop to exit and waits for it to finish.
func (s *Service) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	slog.Info("Cleanup service stopped")
}

func (s *Service) run(ctx context.Context) {
	defer close(s.done)

	s.runAll(ctx)

	ticker := time.NewTicker(s.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runAll(ctx)
		}
	}
}

func (s *Service) runAll(ctx context.Context) {
	s.purgeOldJobs(ctx)
	s.purgeOldSessions(ctx)
	s.purgeOldEvents(ctx)
}

func (s *Service) purgeOldJobs(ctx context.Context) {
	cutoff := time.Now().AddDate(0, 0, -s.config.JobRetentionDays)
	count, err := s.jobs.PurgeTerminalBefore(ctx, cutoff)
	if err != nil {
		slog.Error("Retention: job purge failed", "error", err)
		return
	}
	if count > 0 {
		slog.Info("Retention: purged old jobs", "count", count)
	}
}

func (s *Service) purgeOldSessions(ctx context.Context) {
	cutoff := time.Now().AddDate(0, 0, -s.config.SessionRetentionDays)
	count, err := s.sessions.PurgeTerminalBefore(ctx, cutoff)
	if err != nil {
		slog.Error("Retention: coaching session purge failed", "error", err)
		return
	}
	if count > 0 {
		slog.Info("Retention: purged old coaching sessions", "count", count)
	}
}

func (s *Service) purgeOldEvents(ctx context.Context) {
	cutoff := time.Now().Add(-s.config.EventTTL)
	count, err := events.PurgeBefore(ctx, s.eventsDB, cutoff)
	if err != nil {
		slog.Error("Retention: event cleanup failed", "error", err)
		return
	}
	if count > 0 {
		slog.Info("Retention: purged old events", "count", count)
	}
}
