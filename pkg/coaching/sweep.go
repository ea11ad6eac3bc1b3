package coaching

import (
	"context"
	"log/slog"
	"time"
)

// SweepConfig controls the idle/expiry background loop.
type SweepConfig struct {
	Interval    time.Duration
	IdleTimeout time.Duration
}

func (c SweepConfig) withDefaults() SweepConfig {
	if c.Interval == 0 {
		c.Interval = 5 * time.Minute
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = defaultIdleTimeout
	}
	return c
}

// Sweeper periodically abandons sessions whose expiry has passed, mirroring
// jobqueue's orphan detection ticker loop. Idle sessions are never touched
// here: per spec, an ACTIVE session stays ACTIVE in storage after going
// idle (only a computed, read-time projection flips to "paused") until an
// explicit pause, cancel, or resuming message.
type Sweeper struct {
	engine *Engine
	config SweepConfig
	stopCh chan struct{}
}

// NewSweeper builds a Sweeper over engine.
func NewSweeper(engine *Engine, config SweepConfig) *Sweeper {
	return &Sweeper{engine: engine, config: config.withDefaults(), stopCh: make(chan struct{})}
}

// Run blocks, sweeping on config.Interval until ctx is cancelled or Stop is
// called.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			if err := s.sweepOnce(ctx); err != nil {
				slog.Error("coaching session sweep failed", "error", err)
			}
		}
	}
}

// Stop ends the running sweep loop.
func (s *Sweeper) Stop() {
	close(s.stopCh)
}

func (s *Sweeper) sweepOnce(ctx context.Context) error {
	// idleThreshold widens FindIdleOrExpired's query to also surface
	// long-idle sessions, but only expiry ever causes a write here.
	threshold := time.Now().Add(-s.config.IdleTimeout)
	sessions, err := s.engine.store.FindIdleOrExpired(ctx, threshold)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		return nil
	}

	now := time.Now()
	abandoned := 0
	for _, sess := range sessions {
		if !now.After(sess.ExpiresAt) {
			continue
		}
		unlock := s.engine.locks.acquire(sess.SessionID)
		ok, err := s.engine.store.CASTransition(ctx, sess.SessionID, sess.Status, SessionUpdate{Status: StatusAbandoned, Touch: true})
		unlock()
		if err != nil {
			slog.Error("failed to abandon expired session", "session_id", sess.SessionID, "error", err)
			continue
		}
		if ok {
			s.engine.locks.evict(sess.SessionID)
			abandoned++
		}
	}

	if abandoned > 0 {
		slog.Info("coaching session sweep completed", "abandoned", abandoned, "scanned", len(sessions))
	}
	return nil
}
