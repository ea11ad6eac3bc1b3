package events

import "encoding/json"

// JobEventData is the inner `data` object of a job event envelope, per
// spec §6.2 — the same shape a client polling GET /ai/jobs/{job_id} would
// see for a terminal job.
type JobEventData struct {
	JobID            string          `json:"job_id"`
	TopicID          string          `json:"topic_id"`
	Result           json.RawMessage `json:"result,omitempty"`
	Error            string          `json:"error,omitempty"`
	ErrorCode        string          `json:"error_code,omitempty"`
	ProcessingTimeMs int             `json:"processing_time_ms"`
}

// JobEventPayload is the full event envelope published to the fan-out
// bus for a terminal job, per spec §6.2.
type JobEventPayload struct {
	EventType string       `json:"event_type"` // EventTypeJobCompleted or EventTypeJobFailed
	JobID     string       `json:"job_id"`
	TenantID  string       `json:"tenant_id"`
	UserID    string       `json:"user_id"`
	TopicID   string       `json:"topic_id"`
	Data      JobEventData `json:"data"`
	Stage     string       `json:"stage"` // "dev" | "staging" | "prod"
}
