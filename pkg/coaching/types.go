// Package coaching implements the Conversation Session Engine: the state
// machine behind multi-turn CONVERSATION_COACHING topics (spec §3.4/§4.8).
package coaching

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Sentinel errors for session store operations.
var (
	ErrSessionNotFound = errors.New("coaching session not found")
)

// Session mirrors one row of the coaching_sessions table.
type Session struct {
	SessionID      uuid.UUID
	TenantID       string
	UserID         string
	TopicID        string
	Status         Status
	Turn           int
	MaxTurns       int
	Context        json.RawMessage
	Result         json.RawMessage
	CreatedAt      time.Time
	UpdatedAt      time.Time
	LastActivityAt time.Time
	ExpiresAt      time.Time
}

// Message mirrors one row of the coaching_messages table.
type Message struct {
	ID        int64
	SessionID uuid.UUID
	Role      Role
	Content   string
	Tokens    int
	CreatedAt time.Time
}

// CheckResult is returned by Check.
type CheckResult struct {
	Session        *Session
	ActualStatus   Status
	ComputedStatus Status // ACTUAL_STATUS with ACTIVE flipped to "paused" when idle
	Conflict       bool
	ConflictUserID string
}

// Store is the persistence contract the engine needs, implemented by
// PGStore in this package. All
// status transitions that matter for correctness are conditional updates
// (UPDATE ... WHERE status = $expected), the same CAS discipline as
// pkg/jobqueue.Store.
type Store interface {
	// FindNonTerminalByTopic returns the caller's own non-terminal session
	// for topicID, if any, plus any other tenant user's non-terminal
	// session for the same topic (for conflict detection).
	FindNonTerminalByTopic(ctx context.Context, tenantID, userID, topicID string) (own *Session, otherUserID string, err error)
	Create(ctx context.Context, s *Session) error
	Get(ctx context.Context, sessionID uuid.UUID) (*Session, error)
	AppendMessage(ctx context.Context, m *Message) error
	ListMessages(ctx context.Context, sessionID uuid.UUID) ([]Message, error)
	// CASTransition updates status/turn/result/last_activity_at only if the
	// row's current status still matches expected. Returns false (no error)
	// if the CAS missed.
	CASTransition(ctx context.Context, sessionID uuid.UUID, expected Status, update SessionUpdate) (bool, error)
	// FindIdleOrExpired returns non-terminal sessions whose last_activity_at
	// predates idleThreshold or whose expires_at has passed, for the
	// background sweep.
	FindIdleOrExpired(ctx context.Context, idleThreshold time.Time) ([]*Session, error)
	// ListByUser returns the caller's sessions newest-first, for the list
	// endpoint (spec §4.8 "list").
	ListByUser(ctx context.Context, tenantID, userID string, includeCompleted bool, limit int) ([]*Session, error)
}

// SessionUpdate carries the fields a CASTransition may change. Zero values
// mean "leave unchanged" except Status, which is always applied.
type SessionUpdate struct {
	Status  Status
	Turn    *int
	Result  json.RawMessage
	Context json.RawMessage
	Touch   bool // bump last_activity_at to now
}
