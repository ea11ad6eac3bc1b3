package coaching

import (
	"sync"

	"github.com/google/uuid"
)

// sessionLocks serializes concurrent calls against the same session with a
// per-entity mutex rather than a single global lock, the same shape as
// jobqueue.WorkerPool's activeJobs cancel-function registry.
type sessionLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{locks: make(map[uuid.UUID]*sync.Mutex)}
}

func (s *sessionLocks) acquire(sessionID uuid.UUID) func() {
	s.mu.Lock()
	lock, ok := s.locks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[sessionID] = lock
	}
	s.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// evict drops the lock entry for a session that has reached a terminal
// status, so the map does not grow unboundedly over the gateway's lifetime.
func (s *sessionLocks) evict(sessionID uuid.UUID) {
	s.mu.Lock()
	delete(s.locks, sessionID)
	s.mu.Unlock()
}
