package coaching

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore is the pgx-backed coaching session Store.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore creates a Store over an existing connection pool.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

func (s *PGStore) FindNonTerminalByTopic(ctx context.Context, tenantID, userID, topicID string) (*Session, string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT session_id, tenant_id, user_id, topic_id, status, turn, max_turns, context, result,
		       created_at, updated_at, last_activity_at, expires_at
		FROM coaching_sessions
		WHERE tenant_id = $1 AND topic_id = $2
		  AND status NOT IN ($3, $4, $5, $6)
	`, tenantID, topicID, StatusCompleted, StatusCancelled, StatusAbandoned, StatusFailed)
	if err != nil {
		return nil, "", fmt.Errorf("query non-terminal sessions: %w", err)
	}
	defer rows.Close()

	var own *Session
	otherUserID := ""
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, "", err
		}
		if sess.UserID == userID {
			own = sess
		} else {
			otherUserID = sess.UserID
		}
	}
	return own, otherUserID, rows.Err()
}

func (s *PGStore) Create(ctx context.Context, sess *Session) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO coaching_sessions
			(session_id, tenant_id, user_id, topic_id, status, turn, max_turns, context, result,
			 created_at, updated_at, last_activity_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10, $10, $11)
	`, sess.SessionID, sess.TenantID, sess.UserID, sess.TopicID, sess.Status, sess.Turn, sess.MaxTurns,
		sess.Context, sess.Result, sess.CreatedAt, sess.ExpiresAt)
	if err != nil {
		return fmt.Errorf("create coaching session: %w", err)
	}
	return nil
}

func (s *PGStore) Get(ctx context.Context, sessionID uuid.UUID) (*Session, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT session_id, tenant_id, user_id, topic_id, status, turn, max_turns, context, result,
		       created_at, updated_at, last_activity_at, expires_at
		FROM coaching_sessions WHERE session_id = $1
	`, sessionID)
	sess, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	return sess, err
}

func (s *PGStore) AppendMessage(ctx context.Context, m *Message) error {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO coaching_messages (session_id, role, content, tokens)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, m.SessionID, m.Role, m.Content, nullableInt(m.Tokens)).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return fmt.Errorf("append coaching message: %w", err)
	}
	return nil
}

func (s *PGStore) ListMessages(ctx context.Context, sessionID uuid.UUID) ([]Message, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, session_id, role, content, tokens, created_at
		FROM coaching_messages WHERE session_id = $1 ORDER BY id
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list coaching messages: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var m Message
		var tokens *int
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &tokens, &m.CreatedAt); err != nil {
			return nil, err
		}
		if tokens != nil {
			m.Tokens = *tokens
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// CASTransition performs the conditional status update. It leaves Turn,
// Result, and Context untouched unless explicitly set in update.
func (s *PGStore) CASTransition(ctx context.Context, sessionID uuid.UUID, expected Status, update SessionUpdate) (bool, error) {
	now := time.Now()
	lastActivity := any(nil)
	if update.Touch {
		lastActivity = now
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE coaching_sessions
		SET status = $1,
		    updated_at = $2,
		    turn = COALESCE($3, turn),
		    result = COALESCE($4, result),
		    context = COALESCE($5, context),
		    last_activity_at = COALESCE($6, last_activity_at)
		WHERE session_id = $7 AND status = $8
	`, update.Status, now, update.Turn, nullableJSON(update.Result), nullableJSON(update.Context),
		lastActivity, sessionID, expected)
	if err != nil {
		return false, fmt.Errorf("cas transition coaching session: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PGStore) FindIdleOrExpired(ctx context.Context, idleThreshold time.Time) ([]*Session, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT session_id, tenant_id, user_id, topic_id, status, turn, max_turns, context, result,
		       created_at, updated_at, last_activity_at, expires_at
		FROM coaching_sessions
		WHERE status NOT IN ($1, $2, $3, $4)
		  AND (last_activity_at < $5 OR expires_at < now())
	`, StatusCompleted, StatusCancelled, StatusAbandoned, StatusFailed, idleThreshold)
	if err != nil {
		return nil, fmt.Errorf("query idle/expired sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// ListByUser returns the caller's sessions newest-first, optionally
// including terminal ones, bounded by limit (0 means no limit).
func (s *PGStore) ListByUser(ctx context.Context, tenantID, userID string, includeCompleted bool, limit int) ([]*Session, error) {
	query := `
		SELECT session_id, tenant_id, user_id, topic_id, status, turn, max_turns, context, result,
		       created_at, updated_at, last_activity_at, expires_at
		FROM coaching_sessions
		WHERE tenant_id = $1 AND user_id = $2
	`
	args := []any{tenantID, userID}
	if !includeCompleted {
		query += fmt.Sprintf(" AND status NOT IN ($%d, $%d, $%d, $%d)", len(args)+1, len(args)+2, len(args)+3, len(args)+4)
		args = append(args, StatusCompleted, StatusCancelled, StatusAbandoned, StatusFailed)
	}
	query += " ORDER BY created_at DESC"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", len(args)+1)
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list coaching sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// PurgeTerminalBefore deletes terminal sessions (and their messages, via
// ON DELETE CASCADE) last updated before cutoff. Used by the retention
// cleanup loop.
func (s *PGStore) PurgeTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM coaching_sessions
		WHERE status IN ($1, $2, $3, $4) AND updated_at < $5
	`, StatusCompleted, StatusCancelled, StatusAbandoned, StatusFailed, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge terminal coaching sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanSession(row scannable) (*Session, error) {
	var sess Session
	var context, result []byte
	if err := row.Scan(
		&sess.SessionID, &sess.TenantID, &sess.UserID, &sess.TopicID, &sess.Status, &sess.Turn, &sess.MaxTurns,
		&context, &result, &sess.CreatedAt, &sess.UpdatedAt, &sess.LastActivityAt, &sess.ExpiresAt,
	); err != nil {
		return nil, err
	}
	sess.Context = context
	sess.Result = result
	return &sess, nil
}

func nullableInt(v int) any {
	if v == 0 {
		return nil
	}
	return v
}

func nullableJSON(v []byte) any {
	if v == nil {
		return nil
	}
	return v
}
