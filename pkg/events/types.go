// Package events implements the Event Publisher: it persists the terminal
// job envelope (spec §6.2) to the events table and issues pg_notify in the
// same transaction, so an out-of-scope consumer can LISTEN without
// polling. The WebSocket/SSE delivery layer that would route these events
// to browsers is explicitly out of scope (spec §1 Non-goals) — this
// package only publishes to the fan-out bus.
package events

// Event types published to the fan-out bus, per spec §6.2. Consumers
// dedupe by job_id; only terminal job transitions are ever published here.
const (
	EventTypeJobCompleted = "ai.job.completed"
	EventTypeJobFailed    = "ai.job.failed"
)

// JobsChannel is the single pg_notify channel every job event is
// broadcast on. Unlike the teacher's per-session channel scheme, job
// events have no natural per-connection audience to scope a channel to,
// so one channel serves the whole fan-out bus.
const JobsChannel = "jobs"
