package coaching

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/codeready-toolchain/gateway/pkg/apperr"
	"github.com/codeready-toolchain/gateway/pkg/enrich"
	"github.com/codeready-toolchain/gateway/pkg/llm"
	"github.com/codeready-toolchain/gateway/pkg/prompt"
	"github.com/codeready-toolchain/gateway/pkg/registry"
)

const defaultIdleTimeout = 30 * time.Minute

// turnSchema is the small structured envelope every conversational turn
// asks the model for, so the engine can detect closure (is_final) without
// relying on free-text parsing, per spec §4.8.
const turnSchema = `{
	"type": "object",
	"required": ["message", "is_final"],
	"additionalProperties": false,
	"properties": {
		"message": {"type": "string", "minLength": 1},
		"is_final": {"type": "boolean"}
	}
}`

type turnResponse struct {
	Message string `json:"message"`
	IsFinal bool   `json:"is_final"`
}

// Caller identifies who is acting, for ownership and conflict checks.
type Caller struct {
	TenantID string
	UserID   string
}

// Engine implements the conversation session state machine (spec §3.4/§4.8).
type Engine struct {
	store     Store
	topics    *registry.Registry
	enricher  *enrich.Pipeline
	renderer  *prompt.Renderer
	models    *llm.Registry
	responses *registry.SchemaRegistry
	locks     *sessionLocks
}

// New builds an Engine from its collaborating components.
func New(store Store, topics *registry.Registry, enricher *enrich.Pipeline, renderer *prompt.Renderer, models *llm.Registry, responses *registry.SchemaRegistry) *Engine {
	return &Engine{
		store:     store,
		topics:    topics,
		enricher:  enricher,
		renderer:  renderer,
		models:    models,
		responses: responses,
		locks:     newSessionLocks(),
	}
}

// Check reports the caller's session state for topicID, per spec's check()
// contract.
func (e *Engine) Check(ctx context.Context, caller Caller, topicID string) (*CheckResult, error) {
	own, otherUserID, err := e.store.FindNonTerminalByTopic(ctx, caller.TenantID, caller.UserID, topicID)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternalError, "failed to look up coaching sessions", err)
	}

	result := &CheckResult{}
	if otherUserID != "" {
		result.Conflict = true
		result.ConflictUserID = otherUserID
	}
	if own == nil {
		return result, nil
	}

	result.Session = own
	result.ActualStatus = own.Status
	idleTimeout := defaultIdleTimeout
	if runtimeConfig, err := e.topics.MergeRuntimeConfig(ctx, topicID); err == nil && runtimeConfig.IdleTimeout > 0 {
		idleTimeout = runtimeConfig.IdleTimeout
	}
	result.ComputedStatus = computeStatus(own, idleTimeout)
	return result, nil
}

// computeStatus flips ACTIVE to "paused" (not a persisted status, only a
// read-time projection) once the session has been idle past idleTimeout,
// the topic's idle timeout.
func computeStatus(s *Session, idleTimeout time.Duration) Status {
	if s.Status == StatusActive && time.Since(s.LastActivityAt) > idleTimeout {
		return StatusPaused
	}
	return s.Status
}

// Start always creates a new session, cancelling the caller's own prior
// non-terminal session atomically first, per spec's start() contract.
func (e *Engine) Start(ctx context.Context, caller Caller, topicID string, reqContext map[string]any) (*Session, string, error) {
	topic, err := e.topics.Get(topicID)
	if err != nil {
		return nil, "", err
	}
	if topic.Type != registry.TopicTypeConversationCoaching {
		return nil, "", apperr.New(apperr.CodeWrongTopicType, "topic is not a conversation coaching topic")
	}

	own, otherUserID, err := e.store.FindNonTerminalByTopic(ctx, caller.TenantID, caller.UserID, topicID)
	if err != nil {
		return nil, "", apperr.Wrap(apperr.CodeInternalError, "failed to look up coaching sessions", err)
	}
	if otherUserID != "" {
		return nil, "", apperr.SessionConflict(otherUserID)
	}

	if own != nil {
		unlock := e.locks.acquire(own.SessionID)
		ok, err := e.store.CASTransition(ctx, own.SessionID, own.Status, SessionUpdate{Status: StatusCancelled})
		unlock()
		if err != nil {
			return nil, "", apperr.Wrap(apperr.CodeInternalError, "failed to cancel prior session", err)
		}
		if !ok {
			return nil, "", apperr.New(apperr.CodeInternalError, "prior session changed state concurrently; retry start")
		}
		e.locks.evict(own.SessionID)
	}

	runtimeConfig, err := e.topics.MergeRuntimeConfig(ctx, topicID)
	if err != nil {
		return nil, "", err
	}
	maxTurns := runtimeConfig.MaxTurns
	if maxTurns == 0 {
		maxTurns = 20
	}
	idleTimeout := runtimeConfig.IdleTimeout
	if idleTimeout == 0 {
		idleTimeout = defaultIdleTimeout
	}

	contextJSON, err := json.Marshal(reqContext)
	if err != nil {
		return nil, "", apperr.Wrap(apperr.CodeInternalError, "failed to encode session context", err)
	}

	now := time.Now()
	sess := &Session{
		SessionID:      uuid.New(),
		TenantID:       caller.TenantID,
		UserID:         caller.UserID,
		TopicID:        topicID,
		Status:         StatusActive,
		Turn:           1,
		MaxTurns:       maxTurns,
		Context:        contextJSON,
		CreatedAt:      now,
		UpdatedAt:      now,
		LastActivityAt: now,
		ExpiresAt:      now.Add(14 * 24 * time.Hour),
	}
	if err := e.store.Create(ctx, sess); err != nil {
		return nil, "", apperr.Wrap(apperr.CodeInternalError, "failed to create coaching session", err)
	}

	scope := enrich.Scope{TenantID: caller.TenantID, UserID: caller.UserID}
	params, err := e.enricher.Enrich(ctx, topic, reqContext, scope)
	if err != nil {
		return sess, "", err
	}
	opening, err := e.renderer.Render(ctx, topicID, prompt.RoleInitiation, params)
	if err != nil {
		return sess, "", err
	}
	resp, err := e.invokeTurn(ctx, runtimeConfig, []llm.Message{{Role: llm.RoleSystem, Content: opening}})
	if err != nil {
		return sess, "", err
	}

	if err := e.store.AppendMessage(ctx, &Message{SessionID: sess.SessionID, Role: RoleAssistant, Content: resp.Message, Tokens: 0}); err != nil {
		return sess, "", apperr.Wrap(apperr.CodeInternalError, "failed to persist opening message", err)
	}

	return sess, resp.Message, nil
}

// Resume transitions PAUSED→ACTIVE (ACTIVE stays ACTIVE) and emits a
// welcome-back message built from a conversation summary, per spec's
// resume() contract. Does not count as a new turn.
func (e *Engine) Resume(ctx context.Context, caller Caller, sessionID uuid.UUID) (*Session, string, error) {
	sess, err := e.ownedNonTerminalSession(ctx, caller, sessionID)
	if err != nil {
		return nil, "", err
	}
	if sess.Status != StatusActive && sess.Status != StatusPaused {
		return nil, "", apperr.New(apperr.CodeSessionNotActive, "session must be ACTIVE or PAUSED to resume")
	}
	if time.Now().After(sess.ExpiresAt) {
		return nil, "", apperr.New(apperr.CodeSessionExpired, "session has expired")
	}

	topic, err := e.topics.Get(sess.TopicID)
	if err != nil {
		return nil, "", err
	}
	runtimeConfig, err := e.topics.MergeRuntimeConfig(ctx, sess.TopicID)
	if err != nil {
		return nil, "", err
	}

	history, err := e.store.ListMessages(ctx, sessionID)
	if err != nil {
		return nil, "", apperr.Wrap(apperr.CodeInternalError, "failed to load session history", err)
	}

	scope := enrich.Scope{TenantID: caller.TenantID, UserID: caller.UserID, Conversation: historyToEnrichMessages(history)}
	params, err := e.enricher.Enrich(ctx, topic, map[string]any{}, scope)
	if err != nil {
		return nil, "", err
	}
	resumeTemplate, err := e.renderer.Render(ctx, sess.TopicID, prompt.RoleResume, params)
	if err != nil {
		return nil, "", err
	}

	resp, err := e.invokeTurn(ctx, runtimeConfig, []llm.Message{{Role: llm.RoleSystem, Content: resumeTemplate}})
	if err != nil {
		return nil, "", err
	}

	unlock := e.locks.acquire(sessionID)
	ok, err := e.store.CASTransition(ctx, sessionID, sess.Status, SessionUpdate{Status: StatusActive, Touch: true})
	unlock()
	if err != nil {
		return nil, "", apperr.Wrap(apperr.CodeInternalError, "failed to resume session", err)
	}
	if !ok {
		return nil, "", apperr.New(apperr.CodeInternalError, "session changed state concurrently; retry resume")
	}

	if err := e.store.AppendMessage(ctx, &Message{SessionID: sessionID, Role: RoleAssistant, Content: resp.Message}); err != nil {
		return nil, "", apperr.Wrap(apperr.CodeInternalError, "failed to persist welcome-back message", err)
	}

	sess.Status = StatusActive
	return sess, resp.Message, nil
}

// Message appends userMessage, invokes the LLM for the assistant's reply,
// and auto-completes the session when the model signals closure, max_turns
// is reached, or a final extraction succeeds, per spec's message() contract.
func (e *Engine) Message(ctx context.Context, caller Caller, sessionID uuid.UUID, userMessage string) (string, *Session, error) {
	sess, err := e.ownedNonTerminalSession(ctx, caller, sessionID)
	if err != nil {
		return "", nil, err
	}
	if sess.Status != StatusActive {
		return "", nil, apperr.New(apperr.CodeSessionNotActive, "session is not ACTIVE")
	}

	reply, shouldComplete, err := e.runMessageTurn(ctx, caller, sess, userMessage)
	if err != nil {
		return "", nil, err
	}
	if !shouldComplete {
		return reply, sess, nil
	}

	completed, err := e.Complete(ctx, caller, sessionID)
	if err != nil {
		// Closure signalled but extraction failed; the assistant reply still
		// stands, the session moved to FAILED inside Complete.
		if latest, getErr := e.store.Get(ctx, sessionID); getErr == nil {
			sess = latest
		}
		return reply, sess, err
	}
	return reply, completed, nil
}

// runMessageTurn holds the per-session lock for the entire turn — from the
// turn-number read through the CAS that advances it — so two concurrent
// message() calls against the same session_id serialize instead of both
// reading sess.Turn = N and both CASing to N+1 (CASTransition's predicate
// is status-only, so it can't catch a lost turn increment by itself).
func (e *Engine) runMessageTurn(ctx context.Context, caller Caller, sess *Session, userMessage string) (string, bool, error) {
	unlock := e.locks.acquire(sess.SessionID)
	defer unlock()

	topic, err := e.topics.Get(sess.TopicID)
	if err != nil {
		return "", false, err
	}
	runtimeConfig, err := e.topics.MergeRuntimeConfig(ctx, sess.TopicID)
	if err != nil {
		return "", false, err
	}

	if err := e.store.AppendMessage(ctx, &Message{SessionID: sess.SessionID, Role: RoleUser, Content: userMessage}); err != nil {
		return "", false, apperr.Wrap(apperr.CodeInternalError, "failed to persist user message", err)
	}

	history, err := e.store.ListMessages(ctx, sess.SessionID)
	if err != nil {
		return "", false, apperr.Wrap(apperr.CodeInternalError, "failed to load session history", err)
	}

	scope := enrich.Scope{TenantID: caller.TenantID, UserID: caller.UserID, Conversation: historyToEnrichMessages(history)}
	params, err := e.enricher.Enrich(ctx, topic, map[string]any{}, scope)
	if err != nil {
		return "", false, err
	}
	systemTemplate, err := e.renderer.Render(ctx, sess.TopicID, prompt.RoleSystem, params)
	if err != nil {
		return "", false, err
	}

	resp, err := e.invokeTurn(ctx, runtimeConfig, append([]llm.Message{{Role: llm.RoleSystem, Content: systemTemplate}}, historyToMessages(history)...))
	if err != nil {
		return "", false, err
	}

	if err := e.store.AppendMessage(ctx, &Message{SessionID: sess.SessionID, Role: RoleAssistant, Content: resp.Message}); err != nil {
		return "", false, apperr.Wrap(apperr.CodeInternalError, "failed to persist assistant message", err)
	}

	nextTurn := sess.Turn + 1
	shouldComplete := resp.IsFinal || nextTurn >= sess.MaxTurns

	ok, err := e.store.CASTransition(ctx, sess.SessionID, StatusActive, SessionUpdate{Status: StatusActive, Turn: &nextTurn, Touch: true})
	if err != nil {
		return "", false, apperr.Wrap(apperr.CodeInternalError, "failed to advance session turn", err)
	}
	if !ok {
		return "", false, apperr.New(apperr.CodeInternalError, "session changed state concurrently; retry message")
	}
	sess.Turn = nextTurn

	return resp.Message, shouldComplete, nil
}

// Pause transitions ACTIVE→PAUSED. Idempotent on PAUSED.
func (e *Engine) Pause(ctx context.Context, caller Caller, sessionID uuid.UUID) (*Session, error) {
	sess, err := e.ownedNonTerminalSession(ctx, caller, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status == StatusPaused {
		return sess, nil
	}

	unlock := e.locks.acquire(sessionID)
	ok, err := e.store.CASTransition(ctx, sessionID, sess.Status, SessionUpdate{Status: StatusPaused, Touch: true})
	unlock()
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternalError, "failed to pause session", err)
	}
	if !ok {
		return nil, apperr.New(apperr.CodeInternalError, "session changed state concurrently; retry pause")
	}
	sess.Status = StatusPaused
	return sess, nil
}

// Complete performs the final extraction pass and transitions the session
// to COMPLETED, or to FAILED with EXTRACTION_FAILED after one retry fails.
func (e *Engine) Complete(ctx context.Context, caller Caller, sessionID uuid.UUID) (*Session, error) {
	sess, err := e.ownedSession(ctx, caller, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status.IsTerminal() {
		return nil, apperr.New(apperr.CodeSessionNotActive, "session is already terminal")
	}

	topic, err := e.topics.Get(sess.TopicID)
	if err != nil {
		return nil, err
	}
	runtimeConfig, err := e.topics.MergeRuntimeConfig(ctx, sess.TopicID)
	if err != nil {
		return nil, err
	}
	history, err := e.store.ListMessages(ctx, sessionID)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternalError, "failed to load session history", err)
	}

	schemaJSON, err := e.responses.GetSchemaJSON(topic.ResponseModelRef)
	if err != nil {
		return nil, err
	}

	extract := func() (map[string]any, error) {
		extractionPrompt := buildExtractionPrompt(history)
		resp, err := e.models.Invoke(ctx, llm.Request{
			ModelCode:   runtimeConfig.ModelCode,
			Messages:    []llm.Message{{Role: llm.RoleSystem, Content: extractionPrompt}},
			Temperature: runtimeConfig.Temperature,
			MaxTokens:   runtimeConfig.MaxTokens,
			Schema:      schemaJSON,
		})
		if err != nil {
			return nil, err
		}
		var doc map[string]any
		if err := json.Unmarshal([]byte(resp.Content), &doc); err != nil {
			return nil, apperr.Wrap(apperr.CodeProviderMalformedOutput, "extraction output is not valid JSON", err)
		}
		if appErr := e.responses.Validate(topic.ResponseModelRef, doc); appErr != nil {
			return nil, appErr
		}
		return doc, nil
	}

	result, err := extract()
	if err != nil {
		result, err = extract()
	}

	unlock := e.locks.acquire(sessionID)
	defer unlock()

	if err != nil {
		_, casErr := e.store.CASTransition(ctx, sessionID, sess.Status, SessionUpdate{Status: StatusFailed, Touch: true})
		if casErr != nil {
			return nil, apperr.Wrap(apperr.CodeInternalError, "failed to mark session failed", casErr)
		}
		e.locks.evict(sessionID)
		return nil, apperr.Wrap(apperr.CodeExtractionFailed, "failed to extract final result after retry", err)
	}

	resultJSON, err := json.Marshal(result)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternalError, "failed to encode extracted result", err)
	}
	ok, err := e.store.CASTransition(ctx, sessionID, sess.Status, SessionUpdate{Status: StatusCompleted, Result: resultJSON, Touch: true})
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternalError, "failed to complete session", err)
	}
	if !ok {
		return nil, apperr.New(apperr.CodeInternalError, "session changed state concurrently; retry complete")
	}
	e.locks.evict(sessionID)

	sess.Status = StatusCompleted
	sess.Result = resultJSON
	return sess, nil
}

// Cancel transitions any non-terminal session to CANCELLED.
func (e *Engine) Cancel(ctx context.Context, caller Caller, sessionID uuid.UUID) (*Session, error) {
	sess, err := e.ownedNonTerminalSession(ctx, caller, sessionID)
	if err != nil {
		return nil, err
	}

	unlock := e.locks.acquire(sessionID)
	ok, err := e.store.CASTransition(ctx, sessionID, sess.Status, SessionUpdate{Status: StatusCancelled, Touch: true})
	unlock()
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternalError, "failed to cancel session", err)
	}
	if !ok {
		return nil, apperr.New(apperr.CodeInternalError, "session changed state concurrently; retry cancel")
	}
	e.locks.evict(sessionID)
	sess.Status = StatusCancelled
	return sess, nil
}

// Get returns a session, scoped to its owner.
func (e *Engine) Get(ctx context.Context, caller Caller, sessionID uuid.UUID) (*Session, error) {
	return e.ownedSession(ctx, caller, sessionID)
}

// List returns the caller's own sessions, newest first.
func (e *Engine) List(ctx context.Context, caller Caller, includeCompleted bool, limit int) ([]*Session, error) {
	return e.store.ListByUser(ctx, caller.TenantID, caller.UserID, includeCompleted, limit)
}

func (e *Engine) ownedSession(ctx context.Context, caller Caller, sessionID uuid.UUID) (*Session, error) {
	sess, err := e.store.Get(ctx, sessionID)
	if err != nil {
		return nil, apperr.New(apperr.CodeSessionNotFound, "coaching session not found")
	}
	if sess.TenantID != caller.TenantID || sess.UserID != caller.UserID {
		return nil, apperr.New(apperr.CodeSessionAccessDenied, "caller does not own this session")
	}
	return sess, nil
}

func (e *Engine) ownedNonTerminalSession(ctx context.Context, caller Caller, sessionID uuid.UUID) (*Session, error) {
	sess, err := e.ownedSession(ctx, caller, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status.IsTerminal() {
		return nil, apperr.New(apperr.CodeSessionNotActive, "session is already terminal")
	}
	return sess, nil
}

// invokeTurn asks the model for a structured {message, is_final} envelope
// for one conversational turn.
func (e *Engine) invokeTurn(ctx context.Context, runtimeConfig registry.RuntimeConfig, messages []llm.Message) (*turnResponse, error) {
	resp, err := e.models.Invoke(ctx, llm.Request{
		ModelCode:   runtimeConfig.ModelCode,
		Messages:    messages,
		Temperature: runtimeConfig.Temperature,
		MaxTokens:   runtimeConfig.MaxTokens,
		Schema:      []byte(turnSchema),
	})
	if err != nil {
		return nil, err
	}
	var turn turnResponse
	if err := json.Unmarshal([]byte(resp.Content), &turn); err != nil {
		return nil, apperr.Wrap(apperr.CodeProviderMalformedOutput, "turn output is not valid JSON", err)
	}
	return &turn, nil
}

func historyToMessages(history []Message) []llm.Message {
	out := make([]llm.Message, 0, len(history))
	for _, m := range history {
		role := llm.RoleUser
		if m.Role == RoleAssistant {
			role = llm.RoleAssistant
		}
		out = append(out, llm.Message{Role: role, Content: m.Content})
	}
	return out
}

func historyToEnrichMessages(history []Message) []enrich.Message {
	out := make([]enrich.Message, 0, len(history))
	for _, m := range history {
		out = append(out, enrich.Message{Role: string(m.Role), Content: m.Content})
	}
	return out
}

func buildExtractionPrompt(history []Message) string {
	var b strings.Builder
	b.WriteString("Extract the final structured result from this coaching conversation.\n\n")
	for _, m := range history {
		fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
	}
	return b.String()
}
