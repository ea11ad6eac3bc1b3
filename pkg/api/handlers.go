// Package api wires the gateway's components onto the gin HTTP surface
// defined in spec §6.1.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/codeready-toolchain/gateway/pkg/apperr"
	"github.com/codeready-toolchain/gateway/pkg/coaching"
	"github.com/codeready-toolchain/gateway/pkg/execute"
	"github.com/codeready-toolchain/gateway/pkg/jobqueue"
	"github.com/codeready-toolchain/gateway/pkg/registry"
	"github.com/codeready-toolchain/gateway/pkg/version"
)

// Server holds the collaborators handlers call into. It carries no
// per-request state.
type Server struct {
	topics    *registry.Registry
	responses *registry.SchemaRegistry
	executor  *execute.Executor
	jobs      *jobqueue.Store
	pool      *jobqueue.WorkerPool
	coaching  *coaching.Engine
}

// NewServer builds a Server from its collaborating components.
func NewServer(
	topics *registry.Registry,
	responses *registry.SchemaRegistry,
	executor *execute.Executor,
	jobs *jobqueue.Store,
	pool *jobqueue.WorkerPool,
	coachingEngine *coaching.Engine,
) *Server {
	return &Server{
		topics:    topics,
		responses: responses,
		executor:  executor,
		jobs:      jobs,
		pool:      pool,
		coaching:  coachingEngine,
	}
}

// Routes registers every endpoint from spec §6.1 onto router, behind auth.
func (s *Server) Routes(router gin.IRouter, auth *Authenticator) {
	router.GET("/health", s.Health)

	ai := router.Group("/ai", auth.Middleware())
	ai.POST("/execute", s.Execute)
	ai.GET("/topics", s.ListTopics)
	ai.GET("/schemas/:name", s.GetSchema)
	ai.POST("/execute-async", s.ExecuteAsync)
	ai.GET("/jobs/:job_id", s.GetJob)

	ai.POST("/coaching/start", s.CoachingStart)
	ai.POST("/coaching/resume", s.CoachingResume)
	ai.POST("/coaching/message", s.CoachingMessage)
	ai.POST("/coaching/pause", s.CoachingPause)
	ai.POST("/coaching/complete", s.CoachingComplete)
	ai.POST("/coaching/cancel", s.CoachingCancel)
	ai.GET("/coaching/session", s.CoachingGetSession)
	ai.GET("/coaching/sessions", s.CoachingListSessions)
	ai.GET("/coaching/session/check", s.CoachingCheck)
	ai.GET("/coaching/topics", s.ListCoachingTopics)
}

// Health reports process and worker-pool health for readiness probes.
func (s *Server) Health(c *gin.Context) {
	health := s.pool.Health()
	status := http.StatusOK
	if !health.IsHealthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"status": "ok", "version": version.Full(), "worker_pool": health})
}

type executeRequest struct {
	TopicID    string         `json:"topic_id" binding:"required"`
	Parameters map[string]any `json:"parameters"`
}

// Execute implements POST /ai/execute.
func (s *Server) Execute(c *gin.Context) {
	var req executeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperr.New(apperr.CodeParameterMalformed, err.Error()))
		return
	}

	result, err := s.executor.Execute(c.Request.Context(), execute.Request{
		TopicID:    req.TopicID,
		Parameters: req.Parameters,
	}, executeCaller(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ExecuteAsync implements POST /ai/execute-async.
func (s *Server) ExecuteAsync(c *gin.Context) {
	var req executeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperr.New(apperr.CodeParameterMalformed, err.Error()))
		return
	}

	topic, err := s.topics.Get(req.TopicID)
	if err != nil {
		writeError(c, err)
		return
	}

	paramsJSON, err := json.Marshal(req.Parameters)
	if err != nil {
		writeError(c, apperr.Wrap(apperr.CodeInternalError, "failed to encode parameters", err))
		return
	}

	caller := executeCaller(c)
	job, err := s.jobs.Enqueue(c.Request.Context(), jobqueue.EnqueueRequest{
		TenantID:   caller.TenantID,
		UserID:     caller.UserID,
		TopicID:    req.TopicID,
		Parameters: paramsJSON,
	})
	if err != nil {
		writeError(c, apperr.Wrap(apperr.CodeInternalError, "failed to enqueue job", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{
		"job_id":              job.JobID,
		"status":              "pending",
		"topic_id":            topic.TopicID,
		"estimated_duration_ms": topic.RuntimeConfig.Timeout.Milliseconds(),
	}})
}

// GetJob implements GET /ai/jobs/{job_id}, owner-scoped.
func (s *Server) GetJob(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("job_id"))
	if err != nil {
		writeError(c, apperr.New(apperr.CodeParameterMalformed, "job_id must be a uuid"))
		return
	}
	caller := executeCaller(c)
	job, err := s.jobs.Get(c.Request.Context(), caller.TenantID, jobID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

// ListTopics implements GET /ai/topics: single-shot topics only.
func (s *Server) ListTopics(c *gin.Context) {
	filterType := registry.TopicTypeSingleShot
	topics := s.topics.List(registry.ListFilter{Type: &filterType, ActiveOnly: true})
	c.JSON(http.StatusOK, gin.H{"success": true, "data": topics})
}

// ListCoachingTopics implements GET /ai/coaching/topics.
func (s *Server) ListCoachingTopics(c *gin.Context) {
	filterType := registry.TopicTypeConversationCoaching
	topics := s.topics.List(registry.ListFilter{Type: &filterType, ActiveOnly: true})
	c.JSON(http.StatusOK, gin.H{"success": true, "data": topics})
}

// GetSchema implements GET /ai/schemas/{name}.
func (s *Server) GetSchema(c *gin.Context) {
	schemaJSON, err := s.responses.GetSchemaJSON(c.Param("name"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json", schemaJSON)
}

type coachingStartRequest struct {
	TopicID string         `json:"topic_id" binding:"required"`
	Context map[string]any `json:"context"`
}

// CoachingStart implements POST /ai/coaching/start.
func (s *Server) CoachingStart(c *gin.Context) {
	var req coachingStartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperr.New(apperr.CodeParameterMalformed, err.Error()))
		return
	}
	sess, message, err := s.coaching.Start(c.Request.Context(), coachingCaller(c), req.TopicID, req.Context)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{"session": sess, "message": message}})
}

type sessionIDRequest struct {
	SessionID uuid.UUID `json:"session_id" binding:"required"`
}

// CoachingResume implements POST /ai/coaching/resume.
func (s *Server) CoachingResume(c *gin.Context) {
	var req sessionIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperr.New(apperr.CodeParameterMalformed, err.Error()))
		return
	}
	sess, message, err := s.coaching.Resume(c.Request.Context(), coachingCaller(c), req.SessionID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{"session": sess, "message": message}})
}

type coachingMessageRequest struct {
	SessionID uuid.UUID `json:"session_id" binding:"required"`
	Message   string    `json:"message" binding:"required"`
}

// CoachingMessage implements POST /ai/coaching/message.
func (s *Server) CoachingMessage(c *gin.Context) {
	var req coachingMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperr.New(apperr.CodeParameterMalformed, err.Error()))
		return
	}
	reply, sess, err := s.coaching.Message(c.Request.Context(), coachingCaller(c), req.SessionID, req.Message)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{"session": sess, "message": reply}})
}

// CoachingPause implements POST /ai/coaching/pause.
func (s *Server) CoachingPause(c *gin.Context) {
	var req sessionIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperr.New(apperr.CodeParameterMalformed, err.Error()))
		return
	}
	sess, err := s.coaching.Pause(c.Request.Context(), coachingCaller(c), req.SessionID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": sess})
}

// CoachingComplete implements POST /ai/coaching/complete.
func (s *Server) CoachingComplete(c *gin.Context) {
	var req sessionIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperr.New(apperr.CodeParameterMalformed, err.Error()))
		return
	}
	sess, err := s.coaching.Complete(c.Request.Context(), coachingCaller(c), req.SessionID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": sess})
}

// CoachingCancel implements POST /ai/coaching/cancel.
func (s *Server) CoachingCancel(c *gin.Context) {
	var req sessionIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperr.New(apperr.CodeParameterMalformed, err.Error()))
		return
	}
	sess, err := s.coaching.Cancel(c.Request.Context(), coachingCaller(c), req.SessionID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": sess})
}

// CoachingGetSession implements GET /ai/coaching/session?session_id=....
func (s *Server) CoachingGetSession(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Query("session_id"))
	if err != nil {
		writeError(c, apperr.New(apperr.CodeParameterMalformed, "session_id must be a uuid"))
		return
	}
	sess, err := s.coaching.Get(c.Request.Context(), coachingCaller(c), sessionID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": sess})
}

// CoachingListSessions implements GET /ai/coaching/sessions.
func (s *Server) CoachingListSessions(c *gin.Context) {
	includeCompleted := c.Query("include_completed") == "true"
	limit := 0
	if v := c.Query("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			writeError(c, apperr.New(apperr.CodeParameterMalformed, "limit must be an integer"))
			return
		}
		limit = parsed
	}

	sessions, err := s.coaching.List(c.Request.Context(), coachingCaller(c), includeCompleted, limit)
	if err != nil {
		writeError(c, apperr.Wrap(apperr.CodeInternalError, "failed to list coaching sessions", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": sessions})
}

// CoachingCheck implements GET /ai/coaching/session/check?topic_id=....
func (s *Server) CoachingCheck(c *gin.Context) {
	topicID := c.Query("topic_id")
	if topicID == "" {
		writeError(c, apperr.New(apperr.CodeParameterMalformed, "topic_id is required"))
		return
	}

	result, err := s.coaching.Check(c.Request.Context(), coachingCaller(c), topicID)
	if err != nil {
		writeError(c, err)
		return
	}

	if result.Session == nil {
		c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{
			"has_session": false,
			"conflict":    result.Conflict,
		}})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{
		"has_session":   true,
		"session_id":    result.Session.SessionID,
		"status":        result.ComputedStatus,
		"actual_status": result.ActualStatus,
		"is_idle":       result.ComputedStatus != result.ActualStatus,
		"conflict":      result.Conflict,
	}})
}
