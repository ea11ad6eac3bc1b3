package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/codeready-toolchain/gateway/pkg/jobqueue"
)

// jobLookup is the narrow slice of jobqueue.Store a Publisher needs to
// hydrate a terminal job's full record before building its event envelope.
// *jobqueue.Store satisfies this directly.
type jobLookup interface {
	Get(ctx context.Context, tenantID string, jobID uuid.UUID) (*jobqueue.Job, error)
}

// Publisher persists terminal job events and broadcasts them via
// pg_notify, adapted from the teacher's EventPublisher.persistAndNotify.
// It satisfies jobqueue.EventPublisher.
type Publisher struct {
	db    *sql.DB
	jobs  jobLookup
	stage string
}

// NewPublisher creates a Publisher. stage is the deployment tag
// ("dev"/"staging"/"prod") stamped on every published envelope.
func NewPublisher(db *sql.DB, jobs jobLookup, stage string) *Publisher {
	return &Publisher{db: db, jobs: jobs, stage: stage}
}

// PublishJobStatus implements jobqueue.EventPublisher. Only terminal
// COMPLETED/FAILED transitions are published to the fan-out bus, per
// spec §6.2; PENDING/PROCESSING/CANCELLED are no-ops here.
func (p *Publisher) PublishJobStatus(ctx context.Context, tenantID string, jobID uuid.UUID, status jobqueue.Status) error {
	eventType := ""
	switch status {
	case jobqueue.StatusCompleted:
		eventType = EventTypeJobCompleted
	case jobqueue.StatusFailed:
		eventType = EventTypeJobFailed
	default:
		return nil
	}

	job, err := p.jobs.Get(ctx, tenantID, jobID)
	if err != nil {
		return fmt.Errorf("fetch job for event envelope: %w", err)
	}

	processingTimeMs := 0
	if job.ProcessingTimeMs != nil {
		processingTimeMs = *job.ProcessingTimeMs
	}

	payload := JobEventPayload{
		EventType: eventType,
		JobID:     job.JobID.String(),
		TenantID:  job.TenantID,
		UserID:    job.UserID,
		TopicID:   job.TopicID,
		Data: JobEventData{
			JobID:            job.JobID.String(),
			TopicID:          job.TopicID,
			Result:           job.Result,
			Error:            job.Error,
			ErrorCode:        job.ErrorCode,
			ProcessingTimeMs: processingTimeMs,
		},
		Stage: p.stage,
	}

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal job event payload: %w", err)
	}

	return p.persistAndNotify(ctx, job.JobID.String(), JobsChannel, payloadJSON)
}

// persistAndNotify persists a pre-marshaled event to the database and
// broadcasts it via NOTIFY in the same transaction (pg_notify is
// transactional — held until COMMIT), exactly the teacher's pattern.
func (p *Publisher) persistAndNotify(ctx context.Context, jobID, channel string, payloadJSON []byte) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin event transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var eventID int64
	err = tx.QueryRowContext(ctx,
		`INSERT INTO events (job_id, channel, payload, created_at) VALUES ($1, $2, $3, $4) RETURNING id`,
		jobID, channel, payloadJSON, time.Now(),
	).Scan(&eventID)
	if err != nil {
		return fmt.Errorf("persist event: %w", err)
	}

	notifyPayload, err := injectDBEventIDAndTruncate(payloadJSON, eventID)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, "SELECT pg_notify($1, $2)", channel, notifyPayload); err != nil {
		return fmt.Errorf("pg_notify: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit event transaction: %w", err)
	}
	return nil
}

// PurgeBefore deletes event rows older than cutoff, returning the number
// of rows removed. Purging jobs or sessions does not remove their events,
// so this age-based purge is the only cleanup of the events table.
func PurgeBefore(ctx context.Context, db *sql.DB, cutoff time.Time) (int64, error) {
	res, err := db.ExecContext(ctx, `DELETE FROM events WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge events: %w", err)
	}
	return res.RowsAffected()
}

// injectDBEventIDAndTruncate adds db_event_id to the JSON payload for
// NOTIFY delivery and truncates if the result would exceed PostgreSQL's
// 8000-byte NOTIFY payload limit.
func injectDBEventIDAndTruncate(payloadJSON []byte, dbEventID int64) (string, error) {
	var m map[string]any
	if err := json.Unmarshal(payloadJSON, &m); err != nil {
		return "", fmt.Errorf("unmarshal payload for db_event_id injection: %w", err)
	}
	m["db_event_id"] = dbEventID

	enriched, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("marshal enriched notify payload: %w", err)
	}
	return truncateIfNeeded(string(enriched))
}

// truncateIfNeeded returns payloadStr as-is if it fits PostgreSQL's NOTIFY
// limit, otherwise a minimal envelope carrying only routing fields.
func truncateIfNeeded(payloadStr string) (string, error) {
	if len(payloadStr) <= 7900 {
		return payloadStr, nil
	}
	return buildTruncatedPayload([]byte(payloadStr))
}

func buildTruncatedPayload(payloadBytes []byte) (string, error) {
	var routing struct {
		EventType string `json:"event_type"`
		JobID     string `json:"job_id"`
		DBEventID *int64 `json:"db_event_id,omitempty"`
	}
	if err := json.Unmarshal(payloadBytes, &routing); err != nil {
		return "", fmt.Errorf("extract routing fields for truncation: %w", err)
	}

	truncated := map[string]any{
		"event_type": routing.EventType,
		"job_id":     routing.JobID,
		"truncated":  true,
	}
	if routing.DBEventID != nil {
		truncated["db_event_id"] = *routing.DBEventID
	}

	truncBytes, err := json.Marshal(truncated)
	if err != nil {
		return "", fmt.Errorf("marshal truncated payload: %w", err)
	}
	return string(truncBytes), nil
}
